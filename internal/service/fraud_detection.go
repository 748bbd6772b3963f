package service

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/pix-lifecycle/internal/interfaces"
	"github.com/akylbek/payment-system/pix-lifecycle/internal/models"
	"github.com/akylbek/payment-system/pix-lifecycle/internal/telemetry"
)

var (
	fraudDetectionRegisterTransition = transition[models.PixFraudDetectionState]{
		entity: models.EntityPixFraudDetection,
		name:   "register",
		from: []models.PixFraudDetectionState{
			models.PixFraudDetectionStateRegisteredPending,
			models.PixFraudDetectionStateFailed,
		},
		to:   models.PixFraudDetectionStateRegisteredConfirmed,
		noop: []models.PixFraudDetectionState{models.PixFraudDetectionStateRegisteredConfirmed},
	}
	fraudDetectionCancelTransition = transition[models.PixFraudDetectionState]{
		entity: models.EntityPixFraudDetection,
		name:   "cancel",
		from:   []models.PixFraudDetectionState{models.PixFraudDetectionStateCanceledPending},
		to:     models.PixFraudDetectionStateCanceledConfirmed,
		noop:   []models.PixFraudDetectionState{models.PixFraudDetectionStateCanceledConfirmed},
	}
	fraudDetectionFailedTransition = transition[models.PixFraudDetectionState]{
		entity: models.EntityPixFraudDetection,
		name:   "failed",
		from: []models.PixFraudDetectionState{
			models.PixFraudDetectionStateRegisteredPending,
			models.PixFraudDetectionStateCanceledPending,
		},
		to:   models.PixFraudDetectionStateFailed,
		noop: []models.PixFraudDetectionState{models.PixFraudDetectionStateFailed},
	}
)

func loadFraudDetection(ctx context.Context, repo interfaces.PixFraudDetectionRepository, id uuid.UUID) (*models.PixFraudDetection, error) {
	if id == uuid.Nil {
		return nil, models.NewMissingDataError("id")
	}

	fraudDetection, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if fraudDetection == nil {
		return nil, models.NewNotFoundError(models.EntityPixFraudDetection, id)
	}

	return fraudDetection, nil
}

// HandleRegisterPendingPixFraudDetectionEvent registers a fraud report with
// the PSP and mirrors the result on the issue tracker. Nothing is written
// locally until both external calls succeed.
type HandleRegisterPendingPixFraudDetectionEvent struct {
	repo    interfaces.PixFraudDetectionRepository
	psp     interfaces.PixFraudDetectionGateway
	issues  interfaces.IssuePixFraudDetectionGateway
	emitter interfaces.PixFraudDetectionEventEmitter
}

func NewHandleRegisterPendingPixFraudDetectionEvent(
	repo interfaces.PixFraudDetectionRepository,
	psp interfaces.PixFraudDetectionGateway,
	issues interfaces.IssuePixFraudDetectionGateway,
	emitter interfaces.PixFraudDetectionEventEmitter,
) *HandleRegisterPendingPixFraudDetectionEvent {
	return &HandleRegisterPendingPixFraudDetectionEvent{repo: repo, psp: psp, issues: issues, emitter: emitter}
}

func (uc *HandleRegisterPendingPixFraudDetectionEvent) Execute(ctx context.Context, id uuid.UUID) (*models.PixFraudDetection, error) {
	ctx, span := telemetry.StartSpan(ctx, "HandleRegisterPendingPixFraudDetectionEvent", attribute.String("pix_fraud_detection.id", id.String()))
	defer span.End()

	fraudDetection, err := loadFraudDetection(ctx, uc.repo, id)
	if err != nil {
		return nil, err
	}

	v, err := fraudDetectionRegisterTransition.check(id, fraudDetection.State)
	if err != nil {
		return nil, err
	}
	if v == verdictNoop {
		return fraudDetection, nil
	}

	externalID := fraudDetection.ExternalID
	status := models.PixFraudDetectionStatusRegistered

	// A known external id means the PSP already holds the report.
	if externalID == "" {
		registered, err := uc.psp.CreateFraudDetection(ctx, interfaces.CreateFraudDetectionRequest{
			ID:        fraudDetection.ID,
			Document:  fraudDetection.Document,
			Key:       fraudDetection.Key,
			FraudType: fraudDetection.FraudType,
		})
		if err != nil {
			return nil, err
		}
		externalID = registered.FraudDetectionID
		if registered.Status != "" {
			status = registered.Status
		}
	}

	if err := uc.issues.UpdatePixFraudDetectionIssue(ctx, interfaces.UpdatePixFraudDetectionIssueRequest{
		IssueID:    fraudDetection.IssueID,
		ExternalID: externalID,
		Status:     status,
	}); err != nil {
		return nil, err
	}

	from := fraudDetection.State
	fraudDetection.ExternalID = externalID
	fraudDetection.Status = status
	fraudDetection.State = models.PixFraudDetectionStateRegisteredConfirmed
	fraudDetection.Failed = nil

	updated, err := uc.repo.Update(ctx, fraudDetection, from)
	if fraudDetectionRegisterTransition.superseded(id, err) {
		return loadFraudDetection(ctx, uc.repo, id)
	}
	if err != nil {
		return nil, err
	}
	fraudDetectionRegisterTransition.applied(id, from)

	uc.emitter.RegisterConfirmedPixFraudDetection(ctx, updated)

	return updated, nil
}

// HandleCancelPendingPixFraudDetectionEvent withdraws a registered fraud
// report from the PSP.
type HandleCancelPendingPixFraudDetectionEvent struct {
	repo    interfaces.PixFraudDetectionRepository
	psp     interfaces.PixFraudDetectionGateway
	issues  interfaces.IssuePixFraudDetectionGateway
	emitter interfaces.PixFraudDetectionEventEmitter
}

func NewHandleCancelPendingPixFraudDetectionEvent(
	repo interfaces.PixFraudDetectionRepository,
	psp interfaces.PixFraudDetectionGateway,
	issues interfaces.IssuePixFraudDetectionGateway,
	emitter interfaces.PixFraudDetectionEventEmitter,
) *HandleCancelPendingPixFraudDetectionEvent {
	return &HandleCancelPendingPixFraudDetectionEvent{repo: repo, psp: psp, issues: issues, emitter: emitter}
}

func (uc *HandleCancelPendingPixFraudDetectionEvent) Execute(ctx context.Context, id uuid.UUID) (*models.PixFraudDetection, error) {
	ctx, span := telemetry.StartSpan(ctx, "HandleCancelPendingPixFraudDetectionEvent", attribute.String("pix_fraud_detection.id", id.String()))
	defer span.End()

	fraudDetection, err := loadFraudDetection(ctx, uc.repo, id)
	if err != nil {
		return nil, err
	}

	v, err := fraudDetectionCancelTransition.check(id, fraudDetection.State)
	if err != nil {
		return nil, err
	}
	if v == verdictNoop {
		return fraudDetection, nil
	}

	if fraudDetection.ExternalID == "" {
		return nil, models.NewMissingDataError("externalId")
	}

	canceled, err := uc.psp.CancelFraudDetection(ctx, interfaces.CancelFraudDetectionRequest{
		FraudDetectionID: fraudDetection.ExternalID,
	})
	if err != nil {
		return nil, err
	}

	status := models.PixFraudDetectionStatusCanceledRegistered
	if canceled.Status != "" {
		status = canceled.Status
	}

	if err := uc.issues.UpdatePixFraudDetectionIssue(ctx, interfaces.UpdatePixFraudDetectionIssueRequest{
		IssueID:    fraudDetection.IssueID,
		ExternalID: fraudDetection.ExternalID,
		Status:     status,
	}); err != nil {
		return nil, err
	}

	from := fraudDetection.State
	fraudDetection.Status = status
	fraudDetection.State = models.PixFraudDetectionStateCanceledConfirmed

	updated, err := uc.repo.Update(ctx, fraudDetection, from)
	if fraudDetectionCancelTransition.superseded(id, err) {
		return loadFraudDetection(ctx, uc.repo, id)
	}
	if err != nil {
		return nil, err
	}
	fraudDetectionCancelTransition.applied(id, from)

	uc.emitter.CancelConfirmedPixFraudDetection(ctx, updated)

	return updated, nil
}

// HandleFailedPixFraudDetectionEvent parks a fraud detection whose PSP call
// failed so it can be registered again later.
type HandleFailedPixFraudDetectionEvent struct {
	repo    interfaces.PixFraudDetectionRepository
	emitter interfaces.PixFraudDetectionEventEmitter
}

func NewHandleFailedPixFraudDetectionEvent(
	repo interfaces.PixFraudDetectionRepository,
	emitter interfaces.PixFraudDetectionEventEmitter,
) *HandleFailedPixFraudDetectionEvent {
	return &HandleFailedPixFraudDetectionEvent{repo: repo, emitter: emitter}
}

func (uc *HandleFailedPixFraudDetectionEvent) Execute(ctx context.Context, id uuid.UUID, failed *models.Failed) (*models.PixFraudDetection, error) {
	ctx, span := telemetry.StartSpan(ctx, "HandleFailedPixFraudDetectionEvent", attribute.String("pix_fraud_detection.id", id.String()))
	defer span.End()

	fraudDetection, err := loadFraudDetection(ctx, uc.repo, id)
	if err != nil {
		return nil, err
	}

	v, err := fraudDetectionFailedTransition.check(id, fraudDetection.State)
	if err != nil {
		return nil, err
	}
	if v == verdictNoop {
		return fraudDetection, nil
	}

	from := fraudDetection.State
	fraudDetection.State = models.PixFraudDetectionStateFailed
	fraudDetection.Failed = failed

	updated, err := uc.repo.Update(ctx, fraudDetection, from)
	if fraudDetectionFailedTransition.superseded(id, err) {
		return loadFraudDetection(ctx, uc.repo, id)
	}
	if err != nil {
		return nil, err
	}
	fraudDetectionFailedTransition.applied(id, from)

	if failed != nil {
		telemetry.Logger.Warn("Fraud detection failed",
			zap.String("id", id.String()),
			zap.String("code", failed.Code),
			zap.String("message", failed.Message),
		)
	}

	uc.emitter.FailedPixFraudDetection(ctx, updated)

	return updated, nil
}
