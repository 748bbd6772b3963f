package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/akylbek/payment-system/pix-lifecycle/internal/models"
)

type PixDepositRepository struct {
	db *sql.DB
}

func NewPixDepositRepository(db *sql.DB) *PixDepositRepository {
	return &PixDepositRepository{db: db}
}

func (r *PixDepositRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.PixDeposit, error) {
	var d models.PixDeposit
	var endToEndID sql.NullString

	err := conn(ctx, r.db).QueryRowContext(ctx, `
		SELECT id, amount, returned_amount, end_to_end_id, updated_at
		FROM pix_deposits WHERE id = $1
	`, id).Scan(&d.ID, &d.Amount, &d.ReturnedAmount, &endToEndID, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get deposit %s: %w", id, err)
	}

	d.EndToEndID = endToEndID.String
	return &d, nil
}

// SubtractReturnedAmount decrements returned_amount in place and returns the
// updated deposit.
func (r *PixDepositRepository) SubtractReturnedAmount(ctx context.Context, id uuid.UUID, amount int64) (*models.PixDeposit, error) {
	var d models.PixDeposit
	var endToEndID sql.NullString

	err := conn(ctx, r.db).QueryRowContext(ctx, `
		UPDATE pix_deposits
		SET returned_amount = returned_amount - $2, updated_at = NOW()
		WHERE id = $1
		RETURNING id, amount, returned_amount, end_to_end_id, updated_at
	`, id, amount).Scan(&d.ID, &d.Amount, &d.ReturnedAmount, &endToEndID, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NewNotFoundError(models.EntityPixDeposit, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to subtract returned amount of deposit %s: %w", id, err)
	}

	d.EndToEndID = endToEndID.String
	return &d, nil
}
