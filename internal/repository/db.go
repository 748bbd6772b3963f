package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/pix-lifecycle/internal/models"
	"github.com/akylbek/payment-system/pix-lifecycle/internal/telemetry"
)

// executor is satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type txKey struct{}

// conn returns the transaction carried by ctx, or db outside RunInTx.
func conn(ctx context.Context, db *sql.DB) executor {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return db
}

// Transactor runs units of work in a database transaction. Repositories
// called with the context passed to fn join that transaction.
type Transactor struct {
	db *sql.DB
}

func NewTransactor(db *sql.DB) *Transactor {
	return &Transactor{db: db}
}

func (t *Transactor) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			telemetry.Logger.Error("Failed to rollback transaction", zap.Error(rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// InitDB creates the lifecycle tables if they do not exist.
func InitDB(ctx context.Context, db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS payments (
			id UUID PRIMARY KEY,
			state VARCHAR(20) NOT NULL,
			priority_type VARCHAR(20) NOT NULL,
			value BIGINT NOT NULL,
			pix_key VARCHAR(255),
			description TEXT,
			end_to_end_id VARCHAR(64),
			external_id VARCHAR(64),
			chargeback_reason TEXT,
			failed_code VARCHAR(64),
			failed_message TEXT,
			operation_id UUID,
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMP NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_payments_state_updated_at ON payments(state, updated_at)`,
		`CREATE TABLE IF NOT EXISTS pix_deposits (
			id UUID PRIMARY KEY,
			amount BIGINT NOT NULL,
			returned_amount BIGINT NOT NULL DEFAULT 0 CHECK (returned_amount >= 0),
			end_to_end_id VARCHAR(64),
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMP NOT NULL DEFAULT NOW()
		)`,
		devolutionTableDDL(pixDevolutions.table, ""),
		devolutionTableDDL(pixRefundDevolutions.table, `pix_refund_id UUID NOT NULL,
			transaction_type VARCHAR(20) NOT NULL,
			transaction_id UUID NOT NULL,
			transaction_end_to_end_id VARCHAR(64) NOT NULL DEFAULT '',`),
		devolutionTableDDL(warningPixDevolutions.table, "warning_transaction_id UUID NOT NULL,"),
		`CREATE TABLE IF NOT EXISTS pix_refunds (
			id UUID PRIMARY KEY,
			issue_id BIGINT,
			amount BIGINT NOT NULL,
			status VARCHAR(20) NOT NULL,
			state VARCHAR(30) NOT NULL,
			transaction_type VARCHAR(20) NOT NULL,
			transaction_id UUID NOT NULL,
			rejection_reason TEXT,
			analysis_details TEXT,
			refund_devolution_id UUID,
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMP NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS pix_infraction_refund_operations (
			id UUID PRIMARY KEY,
			state VARCHAR(20) NOT NULL,
			pix_refund_id UUID NOT NULL REFERENCES pix_refunds(id),
			operation_id UUID,
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMP NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_refund_operations_refund_state ON pix_infraction_refund_operations(pix_refund_id, state)`,
		`CREATE TABLE IF NOT EXISTS pix_infractions (
			id UUID PRIMARY KEY,
			issue_id BIGINT NOT NULL UNIQUE,
			infraction_type VARCHAR(30) NOT NULL,
			status VARCHAR(20) NOT NULL,
			state VARCHAR(30) NOT NULL,
			description TEXT,
			transaction_type VARCHAR(20) NOT NULL,
			transaction_id UUID NOT NULL,
			end_to_end_id VARCHAR(64),
			analysis_result VARCHAR(20),
			analysis_details TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMP NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS pix_fraud_detections (
			id UUID PRIMARY KEY,
			issue_id BIGINT,
			external_id VARCHAR(64) UNIQUE,
			document VARCHAR(20) NOT NULL,
			pix_key VARCHAR(255),
			fraud_type VARCHAR(30) NOT NULL,
			status VARCHAR(30),
			state VARCHAR(30) NOT NULL,
			failed_code VARCHAR(64),
			failed_message TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMP NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_pix_fraud_detections_state_updated_at ON pix_fraud_detections(state, updated_at)`,
	}

	for _, query := range queries {
		if _, err := db.ExecContext(ctx, query); err != nil {
			return err
		}
	}

	return nil
}

func devolutionTableDDL(table, extra string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %[1]s (
			id UUID PRIMARY KEY,
			state VARCHAR(20) NOT NULL,
			amount BIGINT NOT NULL,
			description TEXT,
			end_to_end_id VARCHAR(64),
			external_id VARCHAR(64),
			chargeback_reason TEXT,
			failed_code VARCHAR(64),
			failed_message TEXT,
			deposit_id UUID,
			deposit_end_to_end_id VARCHAR(64),
			operation_id UUID,
			%[2]s
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMP NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_%[1]s_state_updated_at ON %[1]s(state, updated_at)`, table, extra)
}

// missedUpdate explains a guarded UPDATE that matched no row: the record is
// either gone or no longer in the expected state.
func missedUpdate(ctx context.Context, db *sql.DB, table, entity string, id uuid.UUID, expected string) error {
	var current string
	err := conn(ctx, db).QueryRowContext(ctx, `SELECT state FROM `+table+` WHERE id = $1`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return models.NewNotFoundError(entity, id)
	}
	if err != nil {
		return fmt.Errorf("failed to read %s %s state: %w", table, id, err)
	}
	return models.NewStaleStateError(entity, id, expected, current)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func failedColumns(failed *models.Failed) (sql.NullString, sql.NullString) {
	if failed == nil {
		return sql.NullString{}, sql.NullString{}
	}
	return nullString(failed.Code), nullString(failed.Message)
}

func failedFrom(code, message sql.NullString) *models.Failed {
	if !code.Valid && !message.Valid {
		return nil
	}
	return &models.Failed{Code: code.String, Message: message.String}
}

func operationID(operation *models.Operation) uuid.NullUUID {
	if operation == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: operation.ID, Valid: true}
}

func operationFrom(id uuid.NullUUID) *models.Operation {
	if !id.Valid {
		return nil
	}
	return &models.Operation{ID: id.UUID}
}

// thresholdClause renders the updated_at filter for a comparison type.
func thresholdClause(comparison models.ThresholdDateComparisonType, placeholder string) (string, error) {
	op, err := comparison.Operator()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("updated_at %s %s", op, placeholder), nil
}
