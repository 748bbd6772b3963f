package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/akylbek/payment-system/pix-lifecycle/internal/interfaces"
	"github.com/akylbek/payment-system/pix-lifecycle/internal/models"
)

type transactionLoader func(ctx context.Context, id uuid.UUID) (*models.ResolvedTransaction, error)

// TransactionResolver loads the Payment or PixDevolution a refund or an
// infraction points at, dispatching on the transaction type.
type TransactionResolver struct {
	loaders map[models.TransactionType]transactionLoader
}

func NewTransactionResolver(
	payments interfaces.PaymentRepository,
	devolutions interfaces.DevolutionRepository[*models.PixDevolution],
) *TransactionResolver {
	return &TransactionResolver{
		loaders: map[models.TransactionType]transactionLoader{
			models.TransactionTypePayment: func(ctx context.Context, id uuid.UUID) (*models.ResolvedTransaction, error) {
				payment, err := payments.GetByID(ctx, id)
				if err != nil {
					return nil, err
				}
				if payment == nil {
					return nil, models.NewNotFoundError(models.EntityPayment, id)
				}
				return &models.ResolvedTransaction{
					Transaction: models.Transaction{Type: models.TransactionTypePayment, ID: id},
					EndToEndID:  payment.EndToEndID,
					Amount:      payment.Value,
				}, nil
			},
			models.TransactionTypeDevolution: func(ctx context.Context, id uuid.UUID) (*models.ResolvedTransaction, error) {
				devolution, err := devolutions.GetByID(ctx, id)
				if err != nil {
					return nil, err
				}
				if devolution == nil {
					return nil, models.NewNotFoundError(models.DevolutionKind[*models.PixDevolution](), id)
				}
				return &models.ResolvedTransaction{
					Transaction: models.Transaction{Type: models.TransactionTypeDevolution, ID: id},
					EndToEndID:  devolution.EndToEndID,
					Amount:      devolution.Amount,
					Deposit:     devolution.Deposit,
				}, nil
			},
		},
	}
}

func (r *TransactionResolver) Resolve(ctx context.Context, tx models.Transaction) (*models.ResolvedTransaction, error) {
	if tx.ID == uuid.Nil {
		return nil, models.NewMissingDataError("transaction.id")
	}

	load, ok := r.loaders[tx.Type]
	if !ok {
		return nil, models.NewMissingDataError("transaction.type")
	}

	return load(ctx, tx.ID)
}
