package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/akylbek/payment-system/pix-lifecycle/internal/models"
)

const devolutionColumns = `id, state, amount, description, end_to_end_id, external_id, chargeback_reason,
	failed_code, failed_message, deposit_id, deposit_end_to_end_id, operation_id, created_at, updated_at`

// devolutionTable maps one devolution kind onto its table. extra names the
// kind-specific columns; extraRefs and extraArgs return scan destinations and
// insert values for them in the same order.
type devolutionTable[T models.Devolution] struct {
	table     string
	extra     []string
	newT      func() T
	extraRefs func(T) []any
	extraArgs func(T) []any
}

var (
	pixDevolutions = devolutionTable[*models.PixDevolution]{
		table: "pix_devolutions",
		newT:  func() *models.PixDevolution { return &models.PixDevolution{} },
	}
	pixRefundDevolutions = devolutionTable[*models.PixRefundDevolution]{
		table: "pix_refund_devolutions",
		extra: []string{"pix_refund_id", "transaction_type", "transaction_id", "transaction_end_to_end_id"},
		newT:  func() *models.PixRefundDevolution { return &models.PixRefundDevolution{} },
		extraRefs: func(d *models.PixRefundDevolution) []any {
			return []any{&d.PixRefundID, &d.Transaction.Type, &d.Transaction.ID, &d.TransactionEndToEndID}
		},
		extraArgs: func(d *models.PixRefundDevolution) []any {
			return []any{d.PixRefundID, d.Transaction.Type, d.Transaction.ID, d.TransactionEndToEndID}
		},
	}
	warningPixDevolutions = devolutionTable[*models.WarningPixDevolution]{
		table: "warning_pix_devolutions",
		extra: []string{"warning_transaction_id"},
		newT:  func() *models.WarningPixDevolution { return &models.WarningPixDevolution{} },
		extraRefs: func(d *models.WarningPixDevolution) []any {
			return []any{&d.WarningTransactionID}
		},
		extraArgs: func(d *models.WarningPixDevolution) []any {
			return []any{d.WarningTransactionID}
		},
	}
)

func (t devolutionTable[T]) columns() string {
	if len(t.extra) == 0 {
		return devolutionColumns
	}
	return devolutionColumns + ", " + strings.Join(t.extra, ", ")
}


func (t devolutionTable[T]) scan(row rowScanner) (T, error) {
	devolution := t.newT()
	base := devolution.Devolution()

	var description, endToEndID, externalID, reason sql.NullString
	var failedCode, failedMessage, depositEndToEndID sql.NullString
	var deposit, operation uuid.NullUUID

	dest := []any{&base.ID, &base.State, &base.Amount, &description, &endToEndID, &externalID, &reason,
		&failedCode, &failedMessage, &deposit, &depositEndToEndID, &operation, &base.CreatedAt, &base.UpdatedAt}
	if len(t.extra) > 0 {
		dest = append(dest, t.extraRefs(devolution)...)
	}

	if err := row.Scan(dest...); err != nil {
		var zero T
		return zero, err
	}

	base.Description = description.String
	base.EndToEndID = endToEndID.String
	base.ExternalID = externalID.String
	base.ChargebackReason = reason.String
	base.Failed = failedFrom(failedCode, failedMessage)
	base.Operation = operationFrom(operation)
	if deposit.Valid {
		base.Deposit = &models.PixDeposit{ID: deposit.UUID, EndToEndID: depositEndToEndID.String}
	}

	return devolution, nil
}

// DevolutionRepository persists one devolution kind.
type DevolutionRepository[T models.Devolution] struct {
	db    *sql.DB
	table devolutionTable[T]
}

func NewPixDevolutionRepository(db *sql.DB) *DevolutionRepository[*models.PixDevolution] {
	return &DevolutionRepository[*models.PixDevolution]{db: db, table: pixDevolutions}
}

func NewPixRefundDevolutionRepository(db *sql.DB) *DevolutionRepository[*models.PixRefundDevolution] {
	return &DevolutionRepository[*models.PixRefundDevolution]{db: db, table: pixRefundDevolutions}
}

func NewWarningPixDevolutionRepository(db *sql.DB) *DevolutionRepository[*models.WarningPixDevolution] {
	return &DevolutionRepository[*models.WarningPixDevolution]{db: db, table: warningPixDevolutions}
}

func (r *DevolutionRepository[T]) GetByID(ctx context.Context, id uuid.UUID) (T, error) {
	var zero T

	row := conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+r.table.columns()+` FROM `+r.table.table+` WHERE id = $1`, id)

	devolution, err := r.table.scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return zero, nil
	}
	if err != nil {
		return zero, fmt.Errorf("failed to get %s %s: %w", r.table.table, id, err)
	}

	return devolution, nil
}

func (r *DevolutionRepository[T]) Create(ctx context.Context, devolution T) (T, error) {
	var zero T
	base := devolution.Devolution()
	failedCode, failedMessage := failedColumns(base.Failed)

	var deposit uuid.NullUUID
	var depositEndToEndID sql.NullString
	if base.Deposit != nil {
		deposit = uuid.NullUUID{UUID: base.Deposit.ID, Valid: true}
		depositEndToEndID = nullString(base.Deposit.EndToEndID)
	}

	args := []any{base.ID, base.State, base.Amount, nullString(base.Description), nullString(base.EndToEndID),
		nullString(base.ExternalID), nullString(base.ChargebackReason), failedCode, failedMessage,
		deposit, depositEndToEndID, operationID(base.Operation)}
	columns := `id, state, amount, description, end_to_end_id, external_id, chargeback_reason,
		failed_code, failed_message, deposit_id, deposit_end_to_end_id, operation_id`
	placeholders := "$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12"
	if len(r.table.extra) > 0 {
		for i, value := range r.table.extraArgs(devolution) {
			args = append(args, value)
			columns += ", " + r.table.extra[i]
			placeholders += fmt.Sprintf(", $%d", len(args))
		}
	}

	err := conn(ctx, r.db).QueryRowContext(ctx,
		`INSERT INTO `+r.table.table+` (`+columns+`) VALUES (`+placeholders+`) RETURNING created_at, updated_at`,
		args...,
	).Scan(&base.CreatedAt, &base.UpdatedAt)
	if err != nil {
		return zero, fmt.Errorf("failed to create %s %s: %w", r.table.table, base.ID, err)
	}

	return devolution, nil
}

// Update writes the devolution only while it is still in state from. A miss
// returns a StaleStateError carrying the state another writer left behind.
func (r *DevolutionRepository[T]) Update(ctx context.Context, devolution T, from models.DevolutionState) (T, error) {
	var zero T
	base := devolution.Devolution()
	failedCode, failedMessage := failedColumns(base.Failed)

	err := conn(ctx, r.db).QueryRowContext(ctx, `
		UPDATE `+r.table.table+`
		SET state = $2, end_to_end_id = $3, external_id = $4, chargeback_reason = $5,
			failed_code = $6, failed_message = $7, operation_id = $8, updated_at = NOW()
		WHERE id = $1 AND state = $9
		RETURNING updated_at
	`, base.ID, base.State, nullString(base.EndToEndID), nullString(base.ExternalID),
		nullString(base.ChargebackReason), failedCode, failedMessage, operationID(base.Operation), from,
	).Scan(&base.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return zero, missedUpdate(ctx, r.db, r.table.table, models.DevolutionKind[T](), base.ID, string(from))
	}
	if err != nil {
		return zero, fmt.Errorf("failed to update %s %s: %w", r.table.table, base.ID, err)
	}

	return devolution, nil
}

func (r *DevolutionRepository[T]) GetAllByStateAndThresholdDate(
	ctx context.Context,
	state models.DevolutionState,
	date time.Time,
	comparison models.ThresholdDateComparisonType,
) ([]T, error) {
	clause, err := thresholdClause(comparison, "$2")
	if err != nil {
		return nil, err
	}

	rows, err := conn(ctx, r.db).QueryContext(ctx,
		`SELECT `+r.table.columns()+` FROM `+r.table.table+` WHERE state = $1 AND `+clause+` ORDER BY updated_at`,
		state, date)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", r.table.table, err)
	}
	defer rows.Close()

	var devolutions []T
	for rows.Next() {
		devolution, err := r.table.scan(rows)
		if err != nil {
			return nil, err
		}
		devolutions = append(devolutions, devolution)
	}

	return devolutions, rows.Err()
}
