package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/pix-lifecycle/internal/interfaces"
	"github.com/akylbek/payment-system/pix-lifecycle/internal/models"
	"github.com/akylbek/payment-system/pix-lifecycle/internal/telemetry"
)

var (
	refundCancelTransition = transition[models.PixRefundState]{
		entity: models.EntityPixRefund,
		name:   "cancel",
		from:   []models.PixRefundState{models.PixRefundStateReceiveConfirmed},
		to:     models.PixRefundStateCancelPending,
		noop:   []models.PixRefundState{models.PixRefundStateCancelPending, models.PixRefundStateCancelConfirmed},
	}
	refundCloseTransition = transition[models.PixRefundState]{
		entity: models.EntityPixRefund,
		name:   "close",
		from:   []models.PixRefundState{models.PixRefundStateReceiveConfirmed},
		to:     models.PixRefundStateClosedPending,
		noop:   []models.PixRefundState{models.PixRefundStateClosedPending, models.PixRefundStateClosedConfirmed},
	}
)

func loadRefund(ctx context.Context, repo interfaces.PixRefundRepository, id uuid.UUID) (*models.PixRefund, error) {
	refund, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if refund == nil {
		return nil, models.NewNotFoundError(models.EntityPixRefund, id)
	}
	return refund, nil
}

// settleRefundOperations runs settle on every OPEN refund operation of the
// refund and closes it. Each step is idempotent, so a failure midway is
// returned and the whole call can be retried.
func settleRefundOperations(
	ctx context.Context,
	repo interfaces.PixInfractionRefundOperationRepository,
	refundID uuid.UUID,
	settle func(ctx context.Context, ref *models.Operation) (*models.Operation, error),
) error {
	open, err := repo.GetAllByFilter(ctx, models.PixInfractionRefundOperationFilter{
		PixRefundID: refundID,
		States:      []models.PixInfractionRefundOperationState{models.PixInfractionRefundOperationStateOpen},
	})
	if err != nil {
		return fmt.Errorf("failed to list refund operations: %w", err)
	}

	for _, refundOperation := range open {
		operation, err := settle(ctx, refundOperation.Operation)
		if err != nil {
			return fmt.Errorf("failed to settle refund operation %s: %w", refundOperation.ID, err)
		}

		refundOperation.Operation = operation
		refundOperation.State = models.PixInfractionRefundOperationStateClosed

		if _, err := repo.Update(ctx, refundOperation, models.PixInfractionRefundOperationStateOpen); err != nil {
			return fmt.Errorf("failed to close refund operation %s: %w", refundOperation.ID, err)
		}

		telemetry.Logger.Info("Refund operation closed",
			zap.String("pix_refund_id", refundID.String()),
			zap.String("refund_operation_id", refundOperation.ID.String()),
		)
	}

	return nil
}

// CancelPixRefund rejects a refund request and releases the funds reserved
// for it.
type CancelPixRefund struct {
	repo             interfaces.PixRefundRepository
	refundOperations interfaces.PixInfractionRefundOperationRepository
	operations       interfaces.OperationService
	emitter          interfaces.PixRefundEventEmitter
}

func NewCancelPixRefund(
	repo interfaces.PixRefundRepository,
	refundOperations interfaces.PixInfractionRefundOperationRepository,
	operations interfaces.OperationService,
	emitter interfaces.PixRefundEventEmitter,
) *CancelPixRefund {
	return &CancelPixRefund{
		repo:             repo,
		refundOperations: refundOperations,
		operations:       operations,
		emitter:          emitter,
	}
}

func (uc *CancelPixRefund) Execute(ctx context.Context, id uuid.UUID, rejectionReason, analysisDetails string) (*models.PixRefund, error) {
	ctx, span := telemetry.StartSpan(ctx, "CancelPixRefund", attribute.String("pix_refund.id", id.String()))
	defer span.End()

	if id == uuid.Nil {
		return nil, models.NewMissingDataError("id")
	}

	refund, err := loadRefund(ctx, uc.repo, id)
	if err != nil {
		return nil, err
	}

	v, err := refundCancelTransition.check(id, refund.State)
	if err != nil {
		return nil, err
	}
	if v == verdictNoop {
		return refund, nil
	}

	revert := func(ctx context.Context, ref *models.Operation) (*models.Operation, error) {
		return revertOperation(ctx, uc.operations, ref)
	}
	if err := settleRefundOperations(ctx, uc.refundOperations, id, revert); err != nil {
		return nil, err
	}

	from := refund.State
	refund.Status = models.PixRefundStatusCancelled
	refund.State = models.PixRefundStateCancelPending
	refund.RejectionReason = rejectionReason
	refund.AnalysisDetails = analysisDetails

	updated, err := uc.repo.Update(ctx, refund, from)
	if refundCancelTransition.superseded(id, err) {
		return loadRefund(ctx, uc.repo, id)
	}
	if err != nil {
		return nil, err
	}
	refundCancelTransition.applied(id, from)

	uc.emitter.CancelPendingRefund(ctx, updated)

	return updated, nil
}

// ClosePixRefund accepts a refund request: the reserved funds are committed
// and a PixRefundDevolution returns them to the requester. The devolution is
// announced on its pending topic so the devolution lifecycle submits it.
type ClosePixRefund struct {
	repo              interfaces.PixRefundRepository
	refundOperations  interfaces.PixInfractionRefundOperationRepository
	refundDevolutions interfaces.DevolutionRepository[*models.PixRefundDevolution]
	operations        interfaces.OperationService
	resolver          *TransactionResolver
	emitter           interfaces.PixRefundEventEmitter
	devolutionEmitter interfaces.DevolutionEventEmitter[*models.PixRefundDevolution]
}

func NewClosePixRefund(
	repo interfaces.PixRefundRepository,
	refundOperations interfaces.PixInfractionRefundOperationRepository,
	refundDevolutions interfaces.DevolutionRepository[*models.PixRefundDevolution],
	operations interfaces.OperationService,
	resolver *TransactionResolver,
	emitter interfaces.PixRefundEventEmitter,
	devolutionEmitter interfaces.DevolutionEventEmitter[*models.PixRefundDevolution],
) *ClosePixRefund {
	return &ClosePixRefund{
		repo:              repo,
		refundOperations:  refundOperations,
		refundDevolutions: refundDevolutions,
		operations:        operations,
		resolver:          resolver,
		emitter:           emitter,
		devolutionEmitter: devolutionEmitter,
	}
}

func (uc *ClosePixRefund) Execute(ctx context.Context, id, devolutionID uuid.UUID, analysisDetails string) (*models.PixRefund, error) {
	ctx, span := telemetry.StartSpan(ctx, "ClosePixRefund",
		attribute.String("pix_refund.id", id.String()),
		attribute.String("devolution.id", devolutionID.String()),
	)
	defer span.End()

	var missing []string
	if id == uuid.Nil {
		missing = append(missing, "id")
	}
	if devolutionID == uuid.Nil {
		missing = append(missing, "devolutionId")
	}
	if len(missing) > 0 {
		return nil, models.NewMissingDataError(missing...)
	}

	refund, err := loadRefund(ctx, uc.repo, id)
	if err != nil {
		return nil, err
	}

	v, err := refundCloseTransition.check(id, refund.State)
	if err != nil {
		return nil, err
	}
	if v == verdictNoop {
		return refund, nil
	}

	accept := func(ctx context.Context, ref *models.Operation) (*models.Operation, error) {
		return ref, acceptOperation(ctx, uc.operations, ref)
	}
	if err := settleRefundOperations(ctx, uc.refundOperations, id, accept); err != nil {
		return nil, err
	}

	devolution, err := uc.refundDevolution(ctx, refund, devolutionID)
	if err != nil {
		return nil, err
	}

	from := refund.State
	refund.Status = models.PixRefundStatusClosed
	refund.State = models.PixRefundStateClosedPending
	refund.AnalysisDetails = analysisDetails
	refund.RefundDevolutionID = &devolution.ID

	updated, err := uc.repo.Update(ctx, refund, from)
	if refundCloseTransition.superseded(id, err) {
		return loadRefund(ctx, uc.repo, id)
	}
	if err != nil {
		return nil, err
	}
	refundCloseTransition.applied(id, from)

	uc.emitter.ClosePendingRefund(ctx, updated)
	if devolution.State == models.DevolutionStatePending {
		uc.devolutionEmitter.PendingDevolution(ctx, devolution)
	}

	return updated, nil
}

// refundDevolution returns the devolution already created for this close
// request or creates it in PENDING.
func (uc *ClosePixRefund) refundDevolution(ctx context.Context, refund *models.PixRefund, devolutionID uuid.UUID) (*models.PixRefundDevolution, error) {
	existing, err := uc.refundDevolutions.GetByID(ctx, devolutionID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	resolved, err := uc.resolver.Resolve(ctx, refund.Transaction)
	if err != nil {
		return nil, err
	}

	devolution := &models.PixRefundDevolution{
		DevolutionBase: models.DevolutionBase{
			ID:          devolutionID,
			State:       models.DevolutionStatePending,
			Amount:      refund.Amount,
			Description: fmt.Sprintf("refund %d", refund.IssueID),
		},
		PixRefundID:           refund.ID,
		Transaction:           resolved.Transaction,
		TransactionEndToEndID: resolved.EndToEndID,
	}

	created, err := uc.refundDevolutions.Create(ctx, devolution)
	if err != nil {
		return nil, fmt.Errorf("failed to create refund devolution: %w", err)
	}

	telemetry.Logger.Info("Refund devolution created",
		zap.String("pix_refund_id", refund.ID.String()),
		zap.String("devolution_id", created.ID.String()),
		zap.Int64("amount", created.Amount),
	)

	return created, nil
}
