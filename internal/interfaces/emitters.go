package interfaces

import (
	"context"

	"github.com/akylbek/payment-system/pix-lifecycle/internal/models"
)

// Emitters are fire-and-forget: a delivery failure is logged by the
// implementation and never reaches the caller.

type PaymentEventEmitter interface {
	WaitingPayment(ctx context.Context, payment *models.Payment)
	CompletedPayment(ctx context.Context, payment *models.Payment)
	RevertedPayment(ctx context.Context, payment *models.Payment)
	ConfirmedPayment(ctx context.Context, payment *models.Payment)
	FailedPayment(ctx context.Context, payment *models.Payment)
}

type DevolutionEventEmitter[T models.Devolution] interface {
	PendingDevolution(ctx context.Context, devolution T)
	WaitingDevolution(ctx context.Context, devolution T)
	CompletedDevolution(ctx context.Context, devolution T)
	RevertedDevolution(ctx context.Context, devolution T)
	ConfirmedDevolution(ctx context.Context, devolution T)
	FailedDevolution(ctx context.Context, devolution T)
}

type PixRefundEventEmitter interface {
	CancelPendingRefund(ctx context.Context, refund *models.PixRefund)
	ClosePendingRefund(ctx context.Context, refund *models.PixRefund)
}

type PixInfractionEventEmitter interface {
	NewInfraction(ctx context.Context, infraction *models.PixInfraction)
	CancelPendingInfraction(ctx context.Context, infraction *models.PixInfraction)
	ClosePendingInfraction(ctx context.Context, infraction *models.PixInfraction)
}

type PixFraudDetectionEventEmitter interface {
	RegisterPendingPixFraudDetection(ctx context.Context, fraudDetection *models.PixFraudDetection)
	RegisterConfirmedPixFraudDetection(ctx context.Context, fraudDetection *models.PixFraudDetection)
	CancelConfirmedPixFraudDetection(ctx context.Context, fraudDetection *models.PixFraudDetection)
	FailedPixFraudDetection(ctx context.Context, fraudDetection *models.PixFraudDetection)
	ReceivedPixFraudDetection(ctx context.Context, fraudDetection *models.PixFraudDetection)
}
