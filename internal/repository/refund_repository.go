package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/akylbek/payment-system/pix-lifecycle/internal/models"
)

type PixRefundRepository struct {
	db *sql.DB
}

func NewPixRefundRepository(db *sql.DB) *PixRefundRepository {
	return &PixRefundRepository{db: db}
}

func (r *PixRefundRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.PixRefund, error) {
	var refund models.PixRefund
	var issueID sql.NullInt64
	var rejectionReason, analysisDetails sql.NullString
	var devolutionID uuid.NullUUID

	err := conn(ctx, r.db).QueryRowContext(ctx, `
		SELECT id, issue_id, amount, status, state, transaction_type, transaction_id,
			rejection_reason, analysis_details, refund_devolution_id, created_at, updated_at
		FROM pix_refunds WHERE id = $1
	`, id).Scan(&refund.ID, &issueID, &refund.Amount, &refund.Status, &refund.State,
		&refund.Transaction.Type, &refund.Transaction.ID, &rejectionReason, &analysisDetails,
		&devolutionID, &refund.CreatedAt, &refund.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get refund %s: %w", id, err)
	}

	refund.IssueID = issueID.Int64
	refund.RejectionReason = rejectionReason.String
	refund.AnalysisDetails = analysisDetails.String
	if devolutionID.Valid {
		refund.RefundDevolutionID = &devolutionID.UUID
	}

	return &refund, nil
}

func (r *PixRefundRepository) Update(ctx context.Context, refund *models.PixRefund, from models.PixRefundState) (*models.PixRefund, error) {
	var devolutionID uuid.NullUUID
	if refund.RefundDevolutionID != nil {
		devolutionID = uuid.NullUUID{UUID: *refund.RefundDevolutionID, Valid: true}
	}

	err := conn(ctx, r.db).QueryRowContext(ctx, `
		UPDATE pix_refunds
		SET status = $2, state = $3, rejection_reason = $4, analysis_details = $5,
			refund_devolution_id = $6, updated_at = NOW()
		WHERE id = $1 AND state = $7
		RETURNING updated_at
	`, refund.ID, refund.Status, refund.State, nullString(refund.RejectionReason),
		nullString(refund.AnalysisDetails), devolutionID, from,
	).Scan(&refund.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, missedUpdate(ctx, r.db, "pix_refunds", models.EntityPixRefund, refund.ID, string(from))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update refund %s: %w", refund.ID, err)
	}

	return refund, nil
}
