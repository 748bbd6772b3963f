package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/akylbek/payment-system/pix-lifecycle/internal/models"
)

const paymentColumns = `id, state, priority_type, value, pix_key, description, end_to_end_id, external_id,
	chargeback_reason, failed_code, failed_message, operation_id, created_at, updated_at`

type PaymentRepository struct {
	db *sql.DB
}

func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPayment(row rowScanner) (*models.Payment, error) {
	var p models.Payment
	var key, description, endToEndID, externalID, reason sql.NullString
	var failedCode, failedMessage sql.NullString
	var operation uuid.NullUUID

	err := row.Scan(&p.ID, &p.State, &p.PriorityType, &p.Value, &key, &description, &endToEndID, &externalID,
		&reason, &failedCode, &failedMessage, &operation, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}

	p.Key = key.String
	p.Description = description.String
	p.EndToEndID = endToEndID.String
	p.ExternalID = externalID.String
	p.ChargebackReason = reason.String
	p.Failed = failedFrom(failedCode, failedMessage)
	p.Operation = operationFrom(operation)

	return &p, nil
}

func (r *PaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	row := conn(ctx, r.db).QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id)

	payment, err := scanPayment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment %s: %w", id, err)
	}

	return payment, nil
}

// Update writes the payment only while it is still in state from.
func (r *PaymentRepository) Update(ctx context.Context, payment *models.Payment, from models.PaymentState) (*models.Payment, error) {
	failedCode, failedMessage := failedColumns(payment.Failed)

	err := conn(ctx, r.db).QueryRowContext(ctx, `
		UPDATE payments
		SET state = $2, end_to_end_id = $3, external_id = $4, chargeback_reason = $5,
			failed_code = $6, failed_message = $7, operation_id = $8, updated_at = NOW()
		WHERE id = $1 AND state = $9
		RETURNING updated_at
	`, payment.ID, payment.State, nullString(payment.EndToEndID), nullString(payment.ExternalID),
		nullString(payment.ChargebackReason), failedCode, failedMessage, operationID(payment.Operation), from,
	).Scan(&payment.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, missedUpdate(ctx, r.db, "payments", models.EntityPayment, payment.ID, string(from))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update payment %s: %w", payment.ID, err)
	}

	return payment, nil
}

func (r *PaymentRepository) GetAllByStateAndThresholdDate(
	ctx context.Context,
	state models.PaymentState,
	date time.Time,
	comparison models.ThresholdDateComparisonType,
) ([]*models.Payment, error) {
	clause, err := thresholdClause(comparison, "$2")
	if err != nil {
		return nil, err
	}

	rows, err := conn(ctx, r.db).QueryContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE state = $1 AND `+clause+` ORDER BY updated_at`,
		state, date)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	var payments []*models.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}

	return payments, rows.Err()
}
