package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/akylbek/payment-system/pix-lifecycle/internal/models"
)

type PixInfractionRefundOperationRepository struct {
	db *sql.DB
}

func NewPixInfractionRefundOperationRepository(db *sql.DB) *PixInfractionRefundOperationRepository {
	return &PixInfractionRefundOperationRepository{db: db}
}

// GetAllByFilter lists the operations of a refund. An empty States matches
// every state.
func (r *PixInfractionRefundOperationRepository) GetAllByFilter(
	ctx context.Context,
	filter models.PixInfractionRefundOperationFilter,
) ([]*models.PixInfractionRefundOperation, error) {
	states := make([]string, 0, len(filter.States))
	for _, state := range filter.States {
		states = append(states, string(state))
	}

	query := `
		SELECT id, state, pix_refund_id, operation_id, created_at, updated_at
		FROM pix_infraction_refund_operations
		WHERE pix_refund_id = $1`
	args := []any{filter.PixRefundID}
	if len(states) > 0 {
		query += ` AND state = ANY($2)`
		args = append(args, pq.Array(states))
	}
	query += ` ORDER BY created_at`

	rows, err := conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list refund operations of %s: %w", filter.PixRefundID, err)
	}
	defer rows.Close()

	var operations []*models.PixInfractionRefundOperation
	for rows.Next() {
		var op models.PixInfractionRefundOperation
		var operation uuid.NullUUID
		if err := rows.Scan(&op.ID, &op.State, &op.PixRefundID, &operation, &op.CreatedAt, &op.UpdatedAt); err != nil {
			return nil, err
		}
		op.Operation = operationFrom(operation)
		operations = append(operations, &op)
	}

	return operations, rows.Err()
}

func (r *PixInfractionRefundOperationRepository) Update(
	ctx context.Context,
	refundOperation *models.PixInfractionRefundOperation,
	from models.PixInfractionRefundOperationState,
) (*models.PixInfractionRefundOperation, error) {
	err := conn(ctx, r.db).QueryRowContext(ctx, `
		UPDATE pix_infraction_refund_operations
		SET state = $2, operation_id = $3, updated_at = NOW()
		WHERE id = $1 AND state = $4
		RETURNING updated_at
	`, refundOperation.ID, refundOperation.State, operationID(refundOperation.Operation), from,
	).Scan(&refundOperation.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, missedUpdate(ctx, r.db, "pix_infraction_refund_operations",
			models.EntityPixInfractionRefundOperation, refundOperation.ID, string(from))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update refund operation %s: %w", refundOperation.ID, err)
	}

	return refundOperation, nil
}
