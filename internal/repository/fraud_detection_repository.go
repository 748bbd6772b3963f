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

const fraudDetectionColumns = `id, issue_id, external_id, document, pix_key, fraud_type, status, state,
	failed_code, failed_message, created_at, updated_at`

type PixFraudDetectionRepository struct {
	db *sql.DB
}

func NewPixFraudDetectionRepository(db *sql.DB) *PixFraudDetectionRepository {
	return &PixFraudDetectionRepository{db: db}
}

func scanFraudDetection(row rowScanner) (*models.PixFraudDetection, error) {
	var fd models.PixFraudDetection
	var issueID sql.NullInt64
	var externalID, key, status, failedCode, failedMessage sql.NullString

	err := row.Scan(&fd.ID, &issueID, &externalID, &fd.Document, &key, &fd.FraudType, &status, &fd.State,
		&failedCode, &failedMessage, &fd.CreatedAt, &fd.UpdatedAt)
	if err != nil {
		return nil, err
	}

	fd.IssueID = issueID.Int64
	fd.ExternalID = externalID.String
	fd.Key = key.String
	fd.Status = models.PixFraudDetectionStatus(status.String)
	fd.Failed = failedFrom(failedCode, failedMessage)

	return &fd, nil
}

func (r *PixFraudDetectionRepository) getOne(ctx context.Context, where string, arg any) (*models.PixFraudDetection, error) {
	row := conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+fraudDetectionColumns+` FROM pix_fraud_detections WHERE `+where+` = $1`, arg)

	fraudDetection, err := scanFraudDetection(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get fraud detection by %s %v: %w", where, arg, err)
	}

	return fraudDetection, nil
}

func (r *PixFraudDetectionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.PixFraudDetection, error) {
	return r.getOne(ctx, "id", id)
}

func (r *PixFraudDetectionRepository) GetByExternalID(ctx context.Context, externalID string) (*models.PixFraudDetection, error) {
	return r.getOne(ctx, "external_id", externalID)
}

func (r *PixFraudDetectionRepository) Create(ctx context.Context, fd *models.PixFraudDetection) (*models.PixFraudDetection, error) {
	failedCode, failedMessage := failedColumns(fd.Failed)
	issueID := sql.NullInt64{Int64: fd.IssueID, Valid: fd.IssueID != 0}

	err := conn(ctx, r.db).QueryRowContext(ctx, `
		INSERT INTO pix_fraud_detections (id, issue_id, external_id, document, pix_key, fraud_type,
			status, state, failed_code, failed_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`, fd.ID, issueID, nullString(fd.ExternalID), fd.Document, nullString(fd.Key), fd.FraudType,
		nullString(string(fd.Status)), fd.State, failedCode, failedMessage,
	).Scan(&fd.CreatedAt, &fd.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create fraud detection %s: %w", fd.ID, err)
	}

	return fd, nil
}

func (r *PixFraudDetectionRepository) Update(ctx context.Context, fd *models.PixFraudDetection, from models.PixFraudDetectionState) (*models.PixFraudDetection, error) {
	failedCode, failedMessage := failedColumns(fd.Failed)
	issueID := sql.NullInt64{Int64: fd.IssueID, Valid: fd.IssueID != 0}

	err := conn(ctx, r.db).QueryRowContext(ctx, `
		UPDATE pix_fraud_detections
		SET issue_id = $2, external_id = $3, status = $4, state = $5,
			failed_code = $6, failed_message = $7, updated_at = NOW()
		WHERE id = $1 AND state = $8
		RETURNING updated_at
	`, fd.ID, issueID, nullString(fd.ExternalID), nullString(string(fd.Status)), fd.State,
		failedCode, failedMessage, from,
	).Scan(&fd.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, missedUpdate(ctx, r.db, "pix_fraud_detections", models.EntityPixFraudDetection, fd.ID, string(from))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update fraud detection %s: %w", fd.ID, err)
	}

	return fd, nil
}

func (r *PixFraudDetectionRepository) GetAllByStateAndThresholdDate(
	ctx context.Context,
	state models.PixFraudDetectionState,
	date time.Time,
	comparison models.ThresholdDateComparisonType,
) ([]*models.PixFraudDetection, error) {
	clause, err := thresholdClause(comparison, "$2")
	if err != nil {
		return nil, err
	}

	rows, err := conn(ctx, r.db).QueryContext(ctx,
		`SELECT `+fraudDetectionColumns+` FROM pix_fraud_detections WHERE state = $1 AND `+clause+` ORDER BY updated_at`,
		state, date)
	if err != nil {
		return nil, fmt.Errorf("failed to list fraud detections: %w", err)
	}
	defer rows.Close()

	var fraudDetections []*models.PixFraudDetection
	for rows.Next() {
		fd, err := scanFraudDetection(rows)
		if err != nil {
			return nil, err
		}
		fraudDetections = append(fraudDetections, fd)
	}

	return fraudDetections, rows.Err()
}
