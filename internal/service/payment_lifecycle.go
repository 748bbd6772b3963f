package service

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/akylbek/payment-system/pix-lifecycle/internal/interfaces"
	"github.com/akylbek/payment-system/pix-lifecycle/internal/models"
	"github.com/akylbek/payment-system/pix-lifecycle/internal/telemetry"
)

var (
	paymentPendingTransition = transition[models.PaymentState]{
		entity: models.EntityPayment,
		name:   "pending",
		from:   []models.PaymentState{models.PaymentStatePending},
		to:     models.PaymentStateWaiting,
		noop:   []models.PaymentState{models.PaymentStateWaiting},
	}
	paymentPendingFailedTransition = transition[models.PaymentState]{
		entity: models.EntityPayment,
		name:   "pending_failed",
		from:   []models.PaymentState{models.PaymentStatePending},
		to:     models.PaymentStateWaiting,
		noop:   []models.PaymentState{models.PaymentStateWaiting, models.PaymentStateFailed},
	}
	paymentCompleteTransition = transition[models.PaymentState]{
		entity: models.EntityPayment,
		name:   "complete",
		from:   []models.PaymentState{models.PaymentStateWaiting},
		to:     models.PaymentStateConfirmed,
		noop:   []models.PaymentState{models.PaymentStateConfirmed},
	}
	paymentRevertTransition = transition[models.PaymentState]{
		entity: models.EntityPayment,
		name:   "revert",
		from:   []models.PaymentState{models.PaymentStatePending, models.PaymentStateWaiting},
		to:     models.PaymentStateFailed,
		noop:   []models.PaymentState{models.PaymentStateFailed},
	}
)

func loadPayment(ctx context.Context, repo interfaces.PaymentRepository, id uuid.UUID) (*models.Payment, error) {
	if id == uuid.Nil {
		return nil, models.NewMissingDataError("id")
	}

	payment, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, models.NewNotFoundError(models.EntityPayment, id)
	}

	return payment, nil
}

// HandlePendingPaymentEvent submits a pending payment to the PSP.
type HandlePendingPaymentEvent struct {
	repo    interfaces.PaymentRepository
	psp     interfaces.PixPaymentGateway
	emitter interfaces.PaymentEventEmitter
}

func NewHandlePendingPaymentEvent(
	repo interfaces.PaymentRepository,
	psp interfaces.PixPaymentGateway,
	emitter interfaces.PaymentEventEmitter,
) *HandlePendingPaymentEvent {
	return &HandlePendingPaymentEvent{repo: repo, psp: psp, emitter: emitter}
}

func (uc *HandlePendingPaymentEvent) Execute(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	ctx, span := telemetry.StartSpan(ctx, "HandlePendingPaymentEvent", attribute.String("payment.id", id.String()))
	defer span.End()

	payment, err := loadPayment(ctx, uc.repo, id)
	if err != nil {
		return nil, err
	}

	v, err := paymentPendingTransition.check(id, payment.State)
	if err != nil {
		return nil, err
	}
	if v == verdictNoop {
		return payment, nil
	}

	created, err := uc.psp.CreatePayment(ctx, interfaces.CreatePaymentRequest{
		ID:           payment.ID,
		Value:        payment.Value,
		PriorityType: payment.PriorityType,
		Key:          payment.Key,
		Description:  payment.Description,
	})
	if err != nil {
		return nil, err
	}

	from := payment.State
	payment.ExternalID = created.ExternalID
	payment.EndToEndID = created.EndToEndID
	payment.State = models.PaymentStateWaiting

	updated, err := uc.repo.Update(ctx, payment, from)
	if paymentPendingTransition.superseded(id, err) {
		return loadPayment(ctx, uc.repo, id)
	}
	if err != nil {
		return nil, err
	}
	paymentPendingTransition.applied(id, from)

	uc.emitter.WaitingPayment(ctx, updated)

	return updated, nil
}

// HandlePendingFailedPaymentEvent parks a payment whose submission outcome is
// unknown in WAITING, so reconciliation resolves it against the PSP.
type HandlePendingFailedPaymentEvent struct {
	repo    interfaces.PaymentRepository
	emitter interfaces.PaymentEventEmitter
}

func NewHandlePendingFailedPaymentEvent(repo interfaces.PaymentRepository, emitter interfaces.PaymentEventEmitter) *HandlePendingFailedPaymentEvent {
	return &HandlePendingFailedPaymentEvent{repo: repo, emitter: emitter}
}

func (uc *HandlePendingFailedPaymentEvent) Execute(ctx context.Context, id uuid.UUID, failed *models.Failed) (*models.Payment, error) {
	ctx, span := telemetry.StartSpan(ctx, "HandlePendingFailedPaymentEvent", attribute.String("payment.id", id.String()))
	defer span.End()

	payment, err := loadPayment(ctx, uc.repo, id)
	if err != nil {
		return nil, err
	}

	v, err := paymentPendingFailedTransition.check(id, payment.State)
	if err != nil {
		return nil, err
	}
	if v == verdictNoop {
		return payment, nil
	}

	from := payment.State
	payment.State = models.PaymentStateWaiting
	payment.Failed = failed

	updated, err := uc.repo.Update(ctx, payment, from)
	if paymentPendingFailedTransition.superseded(id, err) {
		return loadPayment(ctx, uc.repo, id)
	}
	if err != nil {
		return nil, err
	}
	paymentPendingFailedTransition.applied(id, from)

	uc.emitter.WaitingPayment(ctx, updated)

	return updated, nil
}

// HandleCompletePaymentEvent confirms a payment settled by the PSP.
type HandleCompletePaymentEvent struct {
	repo       interfaces.PaymentRepository
	operations interfaces.OperationService
	emitter    interfaces.PaymentEventEmitter
}

func NewHandleCompletePaymentEvent(
	repo interfaces.PaymentRepository,
	operations interfaces.OperationService,
	emitter interfaces.PaymentEventEmitter,
) *HandleCompletePaymentEvent {
	return &HandleCompletePaymentEvent{repo: repo, operations: operations, emitter: emitter}
}

func (uc *HandleCompletePaymentEvent) Execute(ctx context.Context, id uuid.UUID, endToEndID string) (*models.Payment, error) {
	ctx, span := telemetry.StartSpan(ctx, "HandleCompletePaymentEvent", attribute.String("payment.id", id.String()))
	defer span.End()

	payment, err := loadPayment(ctx, uc.repo, id)
	if err != nil {
		return nil, err
	}

	v, err := paymentCompleteTransition.check(id, payment.State)
	if err != nil {
		return nil, err
	}
	if v == verdictNoop {
		return payment, nil
	}

	if err := acceptOperation(ctx, uc.operations, payment.Operation); err != nil {
		return nil, err
	}

	from := payment.State
	if endToEndID != "" {
		payment.EndToEndID = endToEndID
	}
	payment.State = models.PaymentStateConfirmed

	updated, err := uc.repo.Update(ctx, payment, from)
	if paymentCompleteTransition.superseded(id, err) {
		return loadPayment(ctx, uc.repo, id)
	}
	if err != nil {
		return nil, err
	}
	paymentCompleteTransition.applied(id, from)

	uc.emitter.ConfirmedPayment(ctx, updated)

	return updated, nil
}

// HandleRevertPaymentEvent fails a payment and gives its funds back.
type HandleRevertPaymentEvent struct {
	repo       interfaces.PaymentRepository
	operations interfaces.OperationService
	emitter    interfaces.PaymentEventEmitter
}

func NewHandleRevertPaymentEvent(
	repo interfaces.PaymentRepository,
	operations interfaces.OperationService,
	emitter interfaces.PaymentEventEmitter,
) *HandleRevertPaymentEvent {
	return &HandleRevertPaymentEvent{repo: repo, operations: operations, emitter: emitter}
}

func (uc *HandleRevertPaymentEvent) Execute(ctx context.Context, id uuid.UUID, chargebackReason string, failed *models.Failed) (*models.Payment, error) {
	ctx, span := telemetry.StartSpan(ctx, "HandleRevertPaymentEvent", attribute.String("payment.id", id.String()))
	defer span.End()

	payment, err := loadPayment(ctx, uc.repo, id)
	if err != nil {
		return nil, err
	}

	v, err := paymentRevertTransition.check(id, payment.State)
	if err != nil {
		return nil, err
	}
	if v == verdictNoop {
		return payment, nil
	}

	operation, err := revertOperation(ctx, uc.operations, payment.Operation)
	if err != nil {
		return nil, err
	}

	from := payment.State
	payment.Operation = operation
	payment.ChargebackReason = chargebackReason
	payment.Failed = failed
	payment.State = models.PaymentStateFailed

	updated, err := uc.repo.Update(ctx, payment, from)
	if paymentRevertTransition.superseded(id, err) {
		return loadPayment(ctx, uc.repo, id)
	}
	if err != nil {
		return nil, err
	}
	paymentRevertTransition.applied(id, from)

	uc.emitter.FailedPayment(ctx, updated)

	return updated, nil
}
