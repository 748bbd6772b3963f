package service

import (
	"context"
	"errors"
	"slices"

	"go.uber.org/zap"

	"github.com/akylbek/payment-system/pix-lifecycle/internal/interfaces"
	"github.com/akylbek/payment-system/pix-lifecycle/internal/models"
	"github.com/akylbek/payment-system/pix-lifecycle/internal/telemetry"
)

// transition describes one lifecycle edge. States in noop are returned
// unchanged (target reached or absorbing terminal); states in from are
// allowed to move to `to`; everything else is an invalid state.
type transition[S ~string] struct {
	entity string
	name   string
	from   []S
	to     S
	noop   []S
}

type verdict int

const (
	verdictApply verdict = iota
	verdictNoop
)

func (t transition[S]) check(id any, current S) (verdict, error) {
	if slices.Contains(t.noop, current) {
		telemetry.TransitionsTotal.WithLabelValues(t.entity, t.name, telemetry.OutcomeNoop).Inc()
		telemetry.Logger.Debug("Transition already applied",
			zap.String("entity", t.entity),
			zap.Any("id", id),
			zap.String("transition", t.name),
			zap.String("state", string(current)),
		)
		return verdictNoop, nil
	}

	if !slices.Contains(t.from, current) {
		telemetry.TransitionsTotal.WithLabelValues(t.entity, t.name, telemetry.OutcomeRejected).Inc()
		return verdictNoop, models.NewInvalidStateError(t.entity, id, string(current))
	}

	return verdictApply, nil
}

// superseded reports whether err is a guarded write that lost to a
// concurrent handler which already left the record in a no-op state for this
// edge. Any other stale outcome propagates so the event is redelivered.
func (t transition[S]) superseded(id any, err error) bool {
	var stale *models.StaleStateError
	if !errors.As(err, &stale) {
		return false
	}
	v, checkErr := t.check(id, S(stale.Actual))
	return checkErr == nil && v == verdictNoop
}

func (t transition[S]) applied(id any, from S) {
	telemetry.TransitionsTotal.WithLabelValues(t.entity, t.name, telemetry.OutcomeApplied).Inc()
	telemetry.Logger.Info("State transition",
		zap.String("entity", t.entity),
		zap.Any("id", id),
		zap.String("transition", t.name),
		zap.String("from_state", string(from)),
		zap.String("to_state", string(t.to)),
	)
}

// acceptOperation accepts the referenced ledger operation if it still exists.
func acceptOperation(ctx context.Context, operations interfaces.OperationService, ref *models.Operation) error {
	if ref == nil {
		return nil
	}

	operation, err := operations.GetOperationByID(ctx, ref.ID)
	if err != nil {
		return err
	}
	if operation == nil {
		telemetry.Logger.Debug("Operation not found, skipping accept", zap.String("operation_id", ref.ID.String()))
		return nil
	}

	return operations.AcceptOperation(ctx, operation)
}

// revertOperation reverts the referenced ledger operation and returns the
// reference to keep on the entity: nil when the operation was never created.
func revertOperation(ctx context.Context, operations interfaces.OperationService, ref *models.Operation) (*models.Operation, error) {
	if ref == nil {
		return nil, nil
	}

	operation, err := operations.GetOperationByID(ctx, ref.ID)
	if err != nil {
		return ref, err
	}
	if operation == nil {
		telemetry.Logger.Info("Operation not found, clearing reference", zap.String("operation_id", ref.ID.String()))
		return nil, nil
	}

	if err := operations.RevertOperation(ctx, operation); err != nil {
		return ref, err
	}

	return ref, nil
}
