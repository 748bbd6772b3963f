package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/akylbek/payment-system/pix-lifecycle/internal/events"
	"github.com/akylbek/payment-system/pix-lifecycle/internal/gateway"
	"github.com/akylbek/payment-system/pix-lifecycle/internal/models"
)

var errDecode = errors.New("undecodable message")

func decode(value []byte, v any) error {
	if err := json.Unmarshal(value, v); err != nil {
		return fmt.Errorf("%w: %v", errDecode, err)
	}
	return nil
}

// transitionMessage matches the JSON of any lifecycle entity, so events
// emitted by reconciliation can be consumed as transition requests.
type transitionMessage struct {
	ID               uuid.UUID      `json:"id"`
	EndToEndID       string         `json:"end_to_end_id"`
	ChargebackReason string         `json:"chargeback_reason"`
	Failed           *models.Failed `json:"failed"`
}

type pendingHandler[R any] interface {
	Execute(ctx context.Context, id uuid.UUID) (R, error)
}

type pendingFailedHandler[R any] interface {
	Execute(ctx context.Context, id uuid.UUID, failed *models.Failed) (R, error)
}

type completeHandler[R any] interface {
	Execute(ctx context.Context, id uuid.UUID, endToEndID string) (R, error)
}

type revertHandler[R any] interface {
	Execute(ctx context.Context, id uuid.UUID, chargebackReason string, failed *models.Failed) (R, error)
}

func onPending[R any](topic string, h pendingHandler[R]) Route {
	return Route{Topic: topic, Handle: func(ctx context.Context, value []byte) error {
		var m transitionMessage
		if err := decode(value, &m); err != nil {
			return err
		}
		_, err := h.Execute(ctx, m.ID)
		return err
	}}
}

func onPendingFailed[R any](topic string, h pendingFailedHandler[R]) Route {
	return Route{Topic: topic, Handle: func(ctx context.Context, value []byte) error {
		var m transitionMessage
		if err := decode(value, &m); err != nil {
			return err
		}
		_, err := h.Execute(ctx, m.ID, m.Failed)
		return err
	}}
}

func onComplete[R any](topic string, h completeHandler[R]) Route {
	return Route{Topic: topic, Handle: func(ctx context.Context, value []byte) error {
		var m transitionMessage
		if err := decode(value, &m); err != nil {
			return err
		}
		_, err := h.Execute(ctx, m.ID, m.EndToEndID)
		return err
	}}
}

func onRevert[R any](topic string, h revertHandler[R]) Route {
	return Route{Topic: topic, Handle: func(ctx context.Context, value []byte) error {
		var m transitionMessage
		if err := decode(value, &m); err != nil {
			return err
		}
		_, err := h.Execute(ctx, m.ID, m.ChargebackReason, m.Failed)
		return err
	}}
}

func PaymentRoutes(
	pending pendingHandler[*models.Payment],
	pendingFailed pendingFailedHandler[*models.Payment],
	complete completeHandler[*models.Payment],
	revert revertHandler[*models.Payment],
) []Route {
	prefix := events.PaymentTopicPrefix
	return []Route{
		onPending(events.Topic(prefix, events.SuffixPending), pending),
		onPendingFailed(events.Topic(prefix, events.SuffixPendingFailed), pendingFailed),
		onComplete(events.Topic(prefix, events.SuffixCompleted), complete),
		onRevert(events.Topic(prefix, events.SuffixReverted), revert),
	}
}

// DevolutionRoutes wires the lifecycle of one devolution kind under prefix.
func DevolutionRoutes[T models.Devolution](
	prefix string,
	pending pendingHandler[T],
	pendingFailed pendingFailedHandler[T],
	complete completeHandler[T],
	revert revertHandler[T],
	chargeback revertHandler[T],
) []Route {
	return []Route{
		onPending(events.Topic(prefix, events.SuffixPending), pending),
		onPendingFailed(events.Topic(prefix, events.SuffixPendingFailed), pendingFailed),
		onComplete(events.Topic(prefix, events.SuffixCompleted), complete),
		onRevert(events.Topic(prefix, events.SuffixReverted), revert),
		onRevert(events.Topic(prefix, events.SuffixChargeback), chargeback),
	}
}

type refundCanceler interface {
	Execute(ctx context.Context, id uuid.UUID, rejectionReason, analysisDetails string) (*models.PixRefund, error)
}

type refundCloser interface {
	Execute(ctx context.Context, id, devolutionID uuid.UUID, analysisDetails string) (*models.PixRefund, error)
}

type refundMessage struct {
	ID              uuid.UUID `json:"id"`
	DevolutionID    uuid.UUID `json:"devolution_id"`
	RejectionReason string    `json:"rejection_reason"`
	AnalysisDetails string    `json:"analysis_details"`
}

func RefundRoutes(cancel refundCanceler, closer refundCloser) []Route {
	return []Route{
		{Topic: events.TopicPixRefundCancel, Handle: func(ctx context.Context, value []byte) error {
			var m refundMessage
			if err := decode(value, &m); err != nil {
				return err
			}
			_, err := cancel.Execute(ctx, m.ID, m.RejectionReason, m.AnalysisDetails)
			return err
		}},
		{Topic: events.TopicPixRefundClose, Handle: func(ctx context.Context, value []byte) error {
			var m refundMessage
			if err := decode(value, &m); err != nil {
				return err
			}
			_, err := closer.Execute(ctx, m.ID, m.DevolutionID, m.AnalysisDetails)
			return err
		}},
	}
}

type infractionCreator interface {
	Execute(ctx context.Context, infraction *models.PixInfraction) (*models.PixInfraction, error)
}

type infractionCanceler interface {
	Execute(ctx context.Context, issueID int64) (*models.PixInfraction, error)
}

type infractionCloser interface {
	Execute(ctx context.Context, issueID int64, analysisResult models.PixInfractionAnalysisResult, analysisDetails string) (*models.PixInfraction, error)
}

type infractionMessage struct {
	IssueID         int64                              `json:"issue_id"`
	AnalysisResult  models.PixInfractionAnalysisResult `json:"analysis_result"`
	AnalysisDetails string                             `json:"analysis_details"`
}

func InfractionRoutes(create infractionCreator, cancel infractionCanceler, closer infractionCloser) []Route {
	return []Route{
		{Topic: events.TopicPixInfractionCreate, Handle: func(ctx context.Context, value []byte) error {
			var infraction models.PixInfraction
			if err := decode(value, &infraction); err != nil {
				return err
			}
			_, err := create.Execute(ctx, &infraction)
			return err
		}},
		{Topic: events.TopicPixInfractionCancel, Handle: func(ctx context.Context, value []byte) error {
			var m infractionMessage
			if err := decode(value, &m); err != nil {
				return err
			}
			_, err := cancel.Execute(ctx, m.IssueID)
			return err
		}},
		{Topic: events.TopicPixInfractionClose, Handle: func(ctx context.Context, value []byte) error {
			var m infractionMessage
			if err := decode(value, &m); err != nil {
				return err
			}
			_, err := closer.Execute(ctx, m.IssueID, m.AnalysisResult, m.AnalysisDetails)
			return err
		}},
	}
}

// FraudDetectionRoutes moves a fraud detection whose registration or
// cancellation kept failing at the gateway to FAILED. Stale or duplicate
// events fail permanently and leave the record alone.
func FraudDetectionRoutes(
	register pendingHandler[*models.PixFraudDetection],
	cancel pendingHandler[*models.PixFraudDetection],
	failed pendingFailedHandler[*models.PixFraudDetection],
) []Route {
	markFailed := func(ctx context.Context, value []byte, err error) error {
		var m transitionMessage
		if permanent(err) || decode(value, &m) != nil {
			return nil
		}
		_, ferr := failed.Execute(ctx, m.ID, failureOf(err))
		if ferr != nil && !permanent(ferr) {
			return ferr
		}
		return nil
	}

	registerRoute := onPending(events.TopicPixFraudDetectionRegisterPending, register)
	registerRoute.OnFailure = markFailed
	cancelRoute := onPending(events.TopicPixFraudDetectionCancelPending, cancel)
	cancelRoute.OnFailure = markFailed

	return []Route{registerRoute, cancelRoute}
}

func failureOf(err error) *models.Failed {
	var pspErr *gateway.PSPError
	if errors.As(err, &pspErr) && pspErr.Code != "" {
		return &models.Failed{Code: pspErr.Code, Message: pspErr.Message}
	}
	if errors.Is(err, gateway.ErrCircuitOpen) {
		return &models.Failed{Code: "PSP_UNAVAILABLE", Message: err.Error()}
	}
	return &models.Failed{Code: "UNKNOWN_ERROR", Message: err.Error()}
}
