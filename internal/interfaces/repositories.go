package interfaces

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/akylbek/payment-system/pix-lifecycle/internal/models"
)

// Repositories return (nil, nil) when a record does not exist; translating
// that into a domain error is the caller's decision.
//
// Update writes only while the stored state still equals from. A record that
// moved meanwhile yields models.ErrStaleState, a missing one models.ErrNotFound.

// PaymentRepository defines the contract for payment data access
type PaymentRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	Update(ctx context.Context, payment *models.Payment, from models.PaymentState) (*models.Payment, error)
	GetAllByStateAndThresholdDate(ctx context.Context, state models.PaymentState, date time.Time, comparison models.ThresholdDateComparisonType) ([]*models.Payment, error)
}

// DevolutionRepository is implemented once per devolution kind.
type DevolutionRepository[T models.Devolution] interface {
	GetByID(ctx context.Context, id uuid.UUID) (T, error)
	Create(ctx context.Context, devolution T) (T, error)
	Update(ctx context.Context, devolution T, from models.DevolutionState) (T, error)
	GetAllByStateAndThresholdDate(ctx context.Context, state models.DevolutionState, date time.Time, comparison models.ThresholdDateComparisonType) ([]T, error)
}

type PixDepositRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.PixDeposit, error)
	// SubtractReturnedAmount atomically decrements returned_amount.
	SubtractReturnedAmount(ctx context.Context, id uuid.UUID, amount int64) (*models.PixDeposit, error)
}

type PixRefundRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.PixRefund, error)
	Update(ctx context.Context, refund *models.PixRefund, from models.PixRefundState) (*models.PixRefund, error)
}

type PixInfractionRefundOperationRepository interface {
	GetAllByFilter(ctx context.Context, filter models.PixInfractionRefundOperationFilter) ([]*models.PixInfractionRefundOperation, error)
	Update(ctx context.Context, refundOperation *models.PixInfractionRefundOperation, from models.PixInfractionRefundOperationState) (*models.PixInfractionRefundOperation, error)
}

type PixInfractionRepository interface {
	GetByIssueID(ctx context.Context, issueID int64) (*models.PixInfraction, error)
	// Create reports created false when the issue was already stored.
	Create(ctx context.Context, infraction *models.PixInfraction) (*models.PixInfraction, bool, error)
	Update(ctx context.Context, infraction *models.PixInfraction, from models.PixInfractionState) (*models.PixInfraction, error)
}

type PixFraudDetectionRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.PixFraudDetection, error)
	GetByExternalID(ctx context.Context, externalID string) (*models.PixFraudDetection, error)
	Create(ctx context.Context, fraudDetection *models.PixFraudDetection) (*models.PixFraudDetection, error)
	Update(ctx context.Context, fraudDetection *models.PixFraudDetection, from models.PixFraudDetectionState) (*models.PixFraudDetection, error)
	GetAllByStateAndThresholdDate(ctx context.Context, state models.PixFraudDetectionState, date time.Time, comparison models.ThresholdDateComparisonType) ([]*models.PixFraudDetection, error)
}

// Transactor runs fn inside a database transaction carried by the context.
type Transactor interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}
