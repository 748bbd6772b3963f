package service

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/akylbek/payment-system/pix-lifecycle/internal/interfaces"
	"github.com/akylbek/payment-system/pix-lifecycle/internal/models"
	"github.com/akylbek/payment-system/pix-lifecycle/internal/telemetry"
)

// FAILED absorbs every devolution transition.

func devolutionPendingTransition(entity string) transition[models.DevolutionState] {
	return transition[models.DevolutionState]{
		entity: entity,
		name:   "pending",
		from:   []models.DevolutionState{models.DevolutionStatePending},
		to:     models.DevolutionStateWaiting,
		noop:   []models.DevolutionState{models.DevolutionStateWaiting, models.DevolutionStateFailed},
	}
}

func devolutionPendingFailedTransition(entity string) transition[models.DevolutionState] {
	return transition[models.DevolutionState]{
		entity: entity,
		name:   "pending_failed",
		from:   []models.DevolutionState{models.DevolutionStatePending},
		to:     models.DevolutionStateWaiting,
		noop:   []models.DevolutionState{models.DevolutionStateWaiting, models.DevolutionStateFailed},
	}
}

func devolutionCompleteTransition(entity string) transition[models.DevolutionState] {
	return transition[models.DevolutionState]{
		entity: entity,
		name:   "complete",
		from:   []models.DevolutionState{models.DevolutionStateWaiting},
		to:     models.DevolutionStateConfirmed,
		noop:   []models.DevolutionState{models.DevolutionStateConfirmed, models.DevolutionStateFailed},
	}
}

// CONFIRMED may still be reverted to allow late corrections.
func devolutionRevertTransition(entity string) transition[models.DevolutionState] {
	return transition[models.DevolutionState]{
		entity: entity,
		name:   "revert",
		from: []models.DevolutionState{
			models.DevolutionStatePending,
			models.DevolutionStateWaiting,
			models.DevolutionStateConfirmed,
		},
		to:   models.DevolutionStateFailed,
		noop: []models.DevolutionState{models.DevolutionStateFailed},
	}
}

func devolutionChargebackTransition(entity string) transition[models.DevolutionState] {
	return transition[models.DevolutionState]{
		entity: entity,
		name:   "chargeback",
		from:   []models.DevolutionState{models.DevolutionStateWaiting, models.DevolutionStateConfirmed},
		to:     models.DevolutionStateFailed,
		noop:   []models.DevolutionState{models.DevolutionStateFailed},
	}
}

func loadDevolution[T models.Devolution](ctx context.Context, repo interfaces.DevolutionRepository[T], id uuid.UUID) (T, error) {
	var zero T

	if id == uuid.Nil {
		return zero, models.NewMissingDataError("id")
	}

	devolution, err := repo.GetByID(ctx, id)
	if err != nil {
		return zero, err
	}
	if devolution == zero {
		return zero, models.NewNotFoundError(models.DevolutionKind[T](), id)
	}

	return devolution, nil
}

// HandlePendingDevolutionEvent submits a pending devolution to the PSP.
type HandlePendingDevolutionEvent[T models.Devolution] struct {
	repo    interfaces.DevolutionRepository[T]
	psp     interfaces.PixPaymentGateway
	emitter interfaces.DevolutionEventEmitter[T]
	edge    transition[models.DevolutionState]
}

func NewHandlePendingDevolutionEvent[T models.Devolution](
	repo interfaces.DevolutionRepository[T],
	psp interfaces.PixPaymentGateway,
	emitter interfaces.DevolutionEventEmitter[T],
) *HandlePendingDevolutionEvent[T] {
	return &HandlePendingDevolutionEvent[T]{
		repo:    repo,
		psp:     psp,
		emitter: emitter,
		edge:    devolutionPendingTransition(models.DevolutionKind[T]()),
	}
}

func (uc *HandlePendingDevolutionEvent[T]) Execute(ctx context.Context, id uuid.UUID) (T, error) {
	var zero T

	ctx, span := telemetry.StartSpan(ctx, "HandlePending"+uc.edge.entity+"Event", attribute.String("devolution.id", id.String()))
	defer span.End()

	devolution, err := loadDevolution(ctx, uc.repo, id)
	if err != nil {
		return zero, err
	}
	base := devolution.Devolution()

	v, err := uc.edge.check(id, base.State)
	if err != nil {
		return zero, err
	}
	if v == verdictNoop {
		return devolution, nil
	}

	created, err := uc.psp.CreatePixDevolution(ctx, devolutionRequest(devolution))
	if err != nil {
		return zero, err
	}

	from := base.State
	base.ExternalID = created.ExternalID
	base.EndToEndID = created.EndToEndID
	base.State = models.DevolutionStateWaiting

	updated, err := uc.repo.Update(ctx, devolution, from)
	if uc.edge.superseded(id, err) {
		return loadDevolution(ctx, uc.repo, id)
	}
	if err != nil {
		return zero, err
	}
	uc.edge.applied(id, from)

	uc.emitter.WaitingDevolution(ctx, updated)

	return updated, nil
}

// devolutionRequest points the PSP at the funds being returned: the deposit,
// or the refunded transaction for refund devolutions.
func devolutionRequest[T models.Devolution](devolution T) interfaces.CreatePixDevolutionRequest {
	base := devolution.Devolution()
	req := interfaces.CreatePixDevolutionRequest{
		ID:          base.ID,
		Amount:      base.Amount,
		Description: base.Description,
	}
	if base.Deposit != nil {
		depositID := base.Deposit.ID
		req.DepositID = &depositID
		req.DepositEndToEndID = base.Deposit.EndToEndID
	}
	if refund, ok := any(devolution).(*models.PixRefundDevolution); ok {
		transaction := refund.Transaction
		req.Transaction = &transaction
		req.TransactionEndToEndID = refund.TransactionEndToEndID
	}
	return req
}

// HandlePendingFailedDevolutionEvent parks a devolution whose submission
// failed in WAITING so reconciliation can resolve it.
type HandlePendingFailedDevolutionEvent[T models.Devolution] struct {
	repo    interfaces.DevolutionRepository[T]
	emitter interfaces.DevolutionEventEmitter[T]
	edge    transition[models.DevolutionState]
}

func NewHandlePendingFailedDevolutionEvent[T models.Devolution](
	repo interfaces.DevolutionRepository[T],
	emitter interfaces.DevolutionEventEmitter[T],
) *HandlePendingFailedDevolutionEvent[T] {
	return &HandlePendingFailedDevolutionEvent[T]{
		repo:    repo,
		emitter: emitter,
		edge:    devolutionPendingFailedTransition(models.DevolutionKind[T]()),
	}
}

func (uc *HandlePendingFailedDevolutionEvent[T]) Execute(ctx context.Context, id uuid.UUID, failed *models.Failed) (T, error) {
	var zero T

	ctx, span := telemetry.StartSpan(ctx, "HandlePendingFailed"+uc.edge.entity+"Event", attribute.String("devolution.id", id.String()))
	defer span.End()

	devolution, err := loadDevolution(ctx, uc.repo, id)
	if err != nil {
		return zero, err
	}
	base := devolution.Devolution()

	v, err := uc.edge.check(id, base.State)
	if err != nil {
		return zero, err
	}
	if v == verdictNoop {
		return devolution, nil
	}

	from := base.State
	base.State = models.DevolutionStateWaiting
	base.Failed = failed

	updated, err := uc.repo.Update(ctx, devolution, from)
	if uc.edge.superseded(id, err) {
		return loadDevolution(ctx, uc.repo, id)
	}
	if err != nil {
		return zero, err
	}
	uc.edge.applied(id, from)

	uc.emitter.WaitingDevolution(ctx, updated)

	return updated, nil
}

// HandleCompleteDevolutionEvent confirms a devolution settled by the PSP.
type HandleCompleteDevolutionEvent[T models.Devolution] struct {
	repo       interfaces.DevolutionRepository[T]
	operations interfaces.OperationService
	emitter    interfaces.DevolutionEventEmitter[T]
	edge       transition[models.DevolutionState]
}

func NewHandleCompleteDevolutionEvent[T models.Devolution](
	repo interfaces.DevolutionRepository[T],
	operations interfaces.OperationService,
	emitter interfaces.DevolutionEventEmitter[T],
) *HandleCompleteDevolutionEvent[T] {
	return &HandleCompleteDevolutionEvent[T]{
		repo:       repo,
		operations: operations,
		emitter:    emitter,
		edge:       devolutionCompleteTransition(models.DevolutionKind[T]()),
	}
}

func (uc *HandleCompleteDevolutionEvent[T]) Execute(ctx context.Context, id uuid.UUID, endToEndID string) (T, error) {
	var zero T

	ctx, span := telemetry.StartSpan(ctx, "HandleComplete"+uc.edge.entity+"Event", attribute.String("devolution.id", id.String()))
	defer span.End()

	devolution, err := loadDevolution(ctx, uc.repo, id)
	if err != nil {
		return zero, err
	}
	base := devolution.Devolution()

	v, err := uc.edge.check(id, base.State)
	if err != nil {
		return zero, err
	}
	if v == verdictNoop {
		return devolution, nil
	}

	if err := acceptOperation(ctx, uc.operations, base.Operation); err != nil {
		return zero, err
	}

	from := base.State
	if endToEndID != "" {
		base.EndToEndID = endToEndID
	}
	base.State = models.DevolutionStateConfirmed

	updated, err := uc.repo.Update(ctx, devolution, from)
	if uc.edge.superseded(id, err) {
		return loadDevolution(ctx, uc.repo, id)
	}
	if err != nil {
		return zero, err
	}
	uc.edge.applied(id, from)

	uc.emitter.ConfirmedDevolution(ctx, updated)

	return updated, nil
}

// devolutionFailer moves a devolution to FAILED. When deposits is set, the
// deposit returned amount is restored in the same database transaction.
type devolutionFailer[T models.Devolution] struct {
	repo       interfaces.DevolutionRepository[T]
	operations interfaces.OperationService
	emitter    interfaces.DevolutionEventEmitter[T]
	deposits   interfaces.PixDepositRepository
	tx         interfaces.Transactor
}

func (f *devolutionFailer[T]) fail(
	ctx context.Context,
	edge transition[models.DevolutionState],
	id uuid.UUID,
	chargebackReason string,
	failed *models.Failed,
) (T, error) {
	var zero T

	devolution, err := loadDevolution(ctx, f.repo, id)
	if err != nil {
		return zero, err
	}
	base := devolution.Devolution()

	v, err := edge.check(id, base.State)
	if err != nil {
		return zero, err
	}
	if v == verdictNoop {
		return devolution, nil
	}

	// The deposit must exist before anything is written.
	var deposit *models.PixDeposit
	if f.deposits != nil {
		if base.Deposit == nil {
			return zero, models.NewNotFoundError(models.EntityPixDeposit, "<nil>")
		}
		deposit, err = f.deposits.GetByID(ctx, base.Deposit.ID)
		if err != nil {
			return zero, err
		}
		if deposit == nil {
			return zero, models.NewNotFoundError(models.EntityPixDeposit, base.Deposit.ID)
		}
	}

	operation, err := revertOperation(ctx, f.operations, base.Operation)
	if err != nil {
		return zero, err
	}

	from := base.State
	base.Operation = operation
	if chargebackReason != "" {
		base.ChargebackReason = chargebackReason
	}
	base.Failed = failed
	base.State = models.DevolutionStateFailed

	var updated T
	err = f.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		updated, err = f.repo.Update(ctx, devolution, from)
		if err != nil {
			return err
		}

		if deposit == nil {
			return nil
		}

		restored, err := f.deposits.SubtractReturnedAmount(ctx, deposit.ID, base.Amount)
		if err != nil {
			return err
		}
		updated.Devolution().Deposit = restored
		return nil
	})
	if edge.superseded(id, err) {
		return loadDevolution(ctx, f.repo, id)
	}
	if err != nil {
		return zero, err
	}
	edge.applied(id, from)

	f.emitter.FailedDevolution(ctx, updated)

	return updated, nil
}

// HandleRevertDevolutionEvent fails a devolution and reverts its ledger
// operation.
type HandleRevertDevolutionEvent[T models.Devolution] struct {
	failer devolutionFailer[T]
	edge   transition[models.DevolutionState]
}

// NewHandleRevertDevolutionEvent builds the revert use case. deposits is nil
// for devolution kinds that do not track the deposit returned amount.
func NewHandleRevertDevolutionEvent[T models.Devolution](
	repo interfaces.DevolutionRepository[T],
	operations interfaces.OperationService,
	emitter interfaces.DevolutionEventEmitter[T],
	deposits interfaces.PixDepositRepository,
	tx interfaces.Transactor,
) *HandleRevertDevolutionEvent[T] {
	return &HandleRevertDevolutionEvent[T]{
		failer: devolutionFailer[T]{
			repo:       repo,
			operations: operations,
			emitter:    emitter,
			deposits:   deposits,
			tx:         tx,
		},
		edge: devolutionRevertTransition(models.DevolutionKind[T]()),
	}
}

func (uc *HandleRevertDevolutionEvent[T]) Execute(ctx context.Context, id uuid.UUID, chargebackReason string, failed *models.Failed) (T, error) {
	ctx, span := telemetry.StartSpan(ctx, "HandleRevert"+uc.edge.entity+"Event", attribute.String("devolution.id", id.String()))
	defer span.End()

	return uc.failer.fail(ctx, uc.edge, id, chargebackReason, failed)
}

// ReceiveDevolutionChargeback fails a devolution the PSP charged back.
type ReceiveDevolutionChargeback[T models.Devolution] struct {
	failer devolutionFailer[T]
	edge   transition[models.DevolutionState]
}

func NewReceiveDevolutionChargeback[T models.Devolution](
	repo interfaces.DevolutionRepository[T],
	operations interfaces.OperationService,
	emitter interfaces.DevolutionEventEmitter[T],
	deposits interfaces.PixDepositRepository,
	tx interfaces.Transactor,
) *ReceiveDevolutionChargeback[T] {
	return &ReceiveDevolutionChargeback[T]{
		failer: devolutionFailer[T]{
			repo:       repo,
			operations: operations,
			emitter:    emitter,
			deposits:   deposits,
			tx:         tx,
		},
		edge: devolutionChargebackTransition(models.DevolutionKind[T]()),
	}
}

func (uc *ReceiveDevolutionChargeback[T]) Execute(ctx context.Context, id uuid.UUID, chargebackReason string, failed *models.Failed) (T, error) {
	var zero T

	ctx, span := telemetry.StartSpan(ctx, "Receive"+uc.edge.entity+"Chargeback", attribute.String("devolution.id", id.String()))
	defer span.End()

	if chargebackReason == "" {
		missing := []string{"chargebackReason"}
		if id == uuid.Nil {
			missing = append([]string{"id"}, missing...)
		}
		return zero, models.NewMissingDataError(missing...)
	}

	return uc.failer.fail(ctx, uc.edge, id, chargebackReason, failed)
}
