package events

import (
	"context"
	"strconv"

	"github.com/akylbek/payment-system/pix-lifecycle/internal/models"
)

type PaymentEmitter struct {
	publisher *Publisher
}

func NewPaymentEmitter(publisher *Publisher) *PaymentEmitter {
	return &PaymentEmitter{publisher: publisher}
}

func (e *PaymentEmitter) emit(ctx context.Context, suffix string, payment *models.Payment) {
	e.publisher.Publish(ctx, Topic(PaymentTopicPrefix, suffix), payment.ID.String(), payment)
}

func (e *PaymentEmitter) WaitingPayment(ctx context.Context, payment *models.Payment) {
	e.emit(ctx, SuffixWaiting, payment)
}

func (e *PaymentEmitter) CompletedPayment(ctx context.Context, payment *models.Payment) {
	e.emit(ctx, SuffixCompleted, payment)
}

func (e *PaymentEmitter) RevertedPayment(ctx context.Context, payment *models.Payment) {
	e.emit(ctx, SuffixReverted, payment)
}

func (e *PaymentEmitter) ConfirmedPayment(ctx context.Context, payment *models.Payment) {
	e.emit(ctx, SuffixConfirmed, payment)
}

func (e *PaymentEmitter) FailedPayment(ctx context.Context, payment *models.Payment) {
	e.emit(ctx, SuffixFailed, payment)
}

// DevolutionEmitter publishes the events of one devolution kind under its
// own topic prefix.
type DevolutionEmitter[T models.Devolution] struct {
	publisher *Publisher
	prefix    string
}

func NewPixDevolutionEmitter(publisher *Publisher) *DevolutionEmitter[*models.PixDevolution] {
	return &DevolutionEmitter[*models.PixDevolution]{publisher: publisher, prefix: PixDevolutionTopicPrefix}
}

func NewPixRefundDevolutionEmitter(publisher *Publisher) *DevolutionEmitter[*models.PixRefundDevolution] {
	return &DevolutionEmitter[*models.PixRefundDevolution]{publisher: publisher, prefix: PixRefundDevolutionTopicPrefix}
}

func NewWarningPixDevolutionEmitter(publisher *Publisher) *DevolutionEmitter[*models.WarningPixDevolution] {
	return &DevolutionEmitter[*models.WarningPixDevolution]{publisher: publisher, prefix: WarningPixDevolutionTopicPrefix}
}

func (e *DevolutionEmitter[T]) emit(ctx context.Context, suffix string, devolution T) {
	e.publisher.Publish(ctx, Topic(e.prefix, suffix), devolution.Devolution().ID.String(), devolution)
}

func (e *DevolutionEmitter[T]) PendingDevolution(ctx context.Context, devolution T) {
	e.emit(ctx, SuffixPending, devolution)
}

func (e *DevolutionEmitter[T]) WaitingDevolution(ctx context.Context, devolution T) {
	e.emit(ctx, SuffixWaiting, devolution)
}

func (e *DevolutionEmitter[T]) CompletedDevolution(ctx context.Context, devolution T) {
	e.emit(ctx, SuffixCompleted, devolution)
}

func (e *DevolutionEmitter[T]) RevertedDevolution(ctx context.Context, devolution T) {
	e.emit(ctx, SuffixReverted, devolution)
}

func (e *DevolutionEmitter[T]) ConfirmedDevolution(ctx context.Context, devolution T) {
	e.emit(ctx, SuffixConfirmed, devolution)
}

func (e *DevolutionEmitter[T]) FailedDevolution(ctx context.Context, devolution T) {
	e.emit(ctx, SuffixFailed, devolution)
}

type PixRefundEmitter struct {
	publisher *Publisher
}

func NewPixRefundEmitter(publisher *Publisher) *PixRefundEmitter {
	return &PixRefundEmitter{publisher: publisher}
}

func (e *PixRefundEmitter) CancelPendingRefund(ctx context.Context, refund *models.PixRefund) {
	e.publisher.Publish(ctx, TopicPixRefundCancelPending, refund.ID.String(), refund)
}

func (e *PixRefundEmitter) ClosePendingRefund(ctx context.Context, refund *models.PixRefund) {
	e.publisher.Publish(ctx, TopicPixRefundClosePending, refund.ID.String(), refund)
}

// PixInfractionEmitter keys infraction events by issue id.
type PixInfractionEmitter struct {
	publisher *Publisher
}

func NewPixInfractionEmitter(publisher *Publisher) *PixInfractionEmitter {
	return &PixInfractionEmitter{publisher: publisher}
}

func (e *PixInfractionEmitter) emit(ctx context.Context, topic string, infraction *models.PixInfraction) {
	e.publisher.Publish(ctx, topic, strconv.FormatInt(infraction.IssueID, 10), infraction)
}

func (e *PixInfractionEmitter) NewInfraction(ctx context.Context, infraction *models.PixInfraction) {
	e.emit(ctx, TopicPixInfractionNew, infraction)
}

func (e *PixInfractionEmitter) CancelPendingInfraction(ctx context.Context, infraction *models.PixInfraction) {
	e.emit(ctx, TopicPixInfractionCancelPending, infraction)
}

func (e *PixInfractionEmitter) ClosePendingInfraction(ctx context.Context, infraction *models.PixInfraction) {
	e.emit(ctx, TopicPixInfractionClosePending, infraction)
}

type PixFraudDetectionEmitter struct {
	publisher *Publisher
}

func NewPixFraudDetectionEmitter(publisher *Publisher) *PixFraudDetectionEmitter {
	return &PixFraudDetectionEmitter{publisher: publisher}
}

func (e *PixFraudDetectionEmitter) emit(ctx context.Context, topic string, fd *models.PixFraudDetection) {
	e.publisher.Publish(ctx, topic, fd.ID.String(), fd)
}

func (e *PixFraudDetectionEmitter) RegisterPendingPixFraudDetection(ctx context.Context, fd *models.PixFraudDetection) {
	e.emit(ctx, TopicPixFraudDetectionRegisterPending, fd)
}

func (e *PixFraudDetectionEmitter) RegisterConfirmedPixFraudDetection(ctx context.Context, fd *models.PixFraudDetection) {
	e.emit(ctx, TopicPixFraudDetectionRegisterConfirmed, fd)
}

func (e *PixFraudDetectionEmitter) CancelConfirmedPixFraudDetection(ctx context.Context, fd *models.PixFraudDetection) {
	e.emit(ctx, TopicPixFraudDetectionCancelConfirmed, fd)
}

func (e *PixFraudDetectionEmitter) FailedPixFraudDetection(ctx context.Context, fd *models.PixFraudDetection) {
	e.emit(ctx, TopicPixFraudDetectionFailed, fd)
}

func (e *PixFraudDetectionEmitter) ReceivedPixFraudDetection(ctx context.Context, fd *models.PixFraudDetection) {
	e.emit(ctx, TopicPixFraudDetectionReceived, fd)
}
