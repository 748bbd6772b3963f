package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/akylbek/payment-system/pix-lifecycle/internal/models"
)

const infractionColumns = `id, issue_id, infraction_type, status, state, description, transaction_type,
	transaction_id, end_to_end_id, analysis_result, analysis_details, created_at, updated_at`

type PixInfractionRepository struct {
	db *sql.DB
}

func NewPixInfractionRepository(db *sql.DB) *PixInfractionRepository {
	return &PixInfractionRepository{db: db}
}

func scanInfraction(row rowScanner) (*models.PixInfraction, error) {
	var i models.PixInfraction
	var description, endToEndID, analysisResult, analysisDetails sql.NullString

	err := row.Scan(&i.ID, &i.IssueID, &i.InfractionType, &i.Status, &i.State, &description,
		&i.Transaction.Type, &i.Transaction.ID, &endToEndID, &analysisResult, &analysisDetails,
		&i.CreatedAt, &i.UpdatedAt)
	if err != nil {
		return nil, err
	}

	i.Description = description.String
	i.EndToEndID = endToEndID.String
	i.AnalysisResult = models.PixInfractionAnalysisResult(analysisResult.String)
	i.AnalysisDetails = analysisDetails.String

	return &i, nil
}

func (r *PixInfractionRepository) GetByIssueID(ctx context.Context, issueID int64) (*models.PixInfraction, error) {
	row := conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+infractionColumns+` FROM pix_infractions WHERE issue_id = $1`, issueID)

	infraction, err := scanInfraction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get infraction by issue %d: %w", issueID, err)
	}

	return infraction, nil
}

// Create inserts the infraction unless one already exists for its issue, in
// which case the stored record is returned with created false.
func (r *PixInfractionRepository) Create(ctx context.Context, infraction *models.PixInfraction) (*models.PixInfraction, bool, error) {
	err := conn(ctx, r.db).QueryRowContext(ctx, `
		INSERT INTO pix_infractions (id, issue_id, infraction_type, status, state, description,
			transaction_type, transaction_id, end_to_end_id, analysis_result, analysis_details)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (issue_id) DO NOTHING
		RETURNING created_at, updated_at
	`, infraction.ID, infraction.IssueID, infraction.InfractionType, infraction.Status, infraction.State,
		nullString(infraction.Description), infraction.Transaction.Type, infraction.Transaction.ID,
		nullString(infraction.EndToEndID), nullString(string(infraction.AnalysisResult)),
		nullString(infraction.AnalysisDetails),
	).Scan(&infraction.CreatedAt, &infraction.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		existing, err := r.GetByIssueID(ctx, infraction.IssueID)
		return existing, false, err
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to create infraction %d: %w", infraction.IssueID, err)
	}

	return infraction, true, nil
}

func (r *PixInfractionRepository) Update(ctx context.Context, infraction *models.PixInfraction, from models.PixInfractionState) (*models.PixInfraction, error) {
	err := conn(ctx, r.db).QueryRowContext(ctx, `
		UPDATE pix_infractions
		SET status = $2, state = $3, analysis_result = $4, analysis_details = $5, updated_at = NOW()
		WHERE id = $1 AND state = $6
		RETURNING updated_at
	`, infraction.ID, infraction.Status, infraction.State,
		nullString(string(infraction.AnalysisResult)), nullString(infraction.AnalysisDetails), from,
	).Scan(&infraction.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, missedUpdate(ctx, r.db, "pix_infractions", models.EntityPixInfraction, infraction.ID, string(from))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update infraction %s: %w", infraction.ID, err)
	}

	return infraction, nil
}
