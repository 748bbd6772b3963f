package interfaces

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/akylbek/payment-system/pix-lifecycle/internal/models"
)

// OperationService is the ledger boundary. Accept and revert are idempotent
// on the ledger side.
type OperationService interface {
	GetOperationByID(ctx context.Context, id uuid.UUID) (*models.Operation, error)
	AcceptOperation(ctx context.Context, operation *models.Operation) error
	RevertOperation(ctx context.Context, operation *models.Operation) error
}

type PSPPaymentStatus string

const (
	PSPPaymentStatusSettled    PSPPaymentStatus = "SETTLED"
	PSPPaymentStatusProcessing PSPPaymentStatus = "PROCESSING"
	PSPPaymentStatusChargeback PSPPaymentStatus = "CHARGEBACK"
)

type CreatePaymentRequest struct {
	ID           uuid.UUID                  `json:"id"`
	Value        int64                      `json:"value"`
	PriorityType models.PaymentPriorityType `json:"priority_type"`
	Key          string                     `json:"key,omitempty"`
	Description  string                     `json:"description,omitempty"`
}

// CreatePixDevolutionRequest returns funds of either a deposit or, for
// refund devolutions, a referenced transaction.
type CreatePixDevolutionRequest struct {
	ID                    uuid.UUID           `json:"id"`
	Amount                int64               `json:"amount"`
	DepositID             *uuid.UUID          `json:"deposit_id,omitempty"`
	DepositEndToEndID     string              `json:"deposit_end_to_end_id,omitempty"`
	Transaction           *models.Transaction `json:"transaction,omitempty"`
	TransactionEndToEndID string              `json:"transaction_end_to_end_id,omitempty"`
	Description           string              `json:"description,omitempty"`
}

type CreatedTransactionResponse struct {
	ExternalID string `json:"external_id"`
	EndToEndID string `json:"end_to_end_id"`
}

type GetPaymentByIDRequest struct {
	ID         uuid.UUID
	ExternalID string
}

type GetPaymentRequest struct {
	ID         uuid.UUID
	EndToEndID string
}

type PaymentStatusResponse struct {
	Status     PSPPaymentStatus `json:"status"`
	EndToEndID string           `json:"end_to_end_id"`
	ErrorCode  string           `json:"error_code,omitempty"`
	Reason     string           `json:"reason,omitempty"`
}

// PixPaymentGateway talks to the settlement network.
type PixPaymentGateway interface {
	CreatePayment(ctx context.Context, req CreatePaymentRequest) (*CreatedTransactionResponse, error)
	CreatePixDevolution(ctx context.Context, req CreatePixDevolutionRequest) (*CreatedTransactionResponse, error)
	GetPaymentByID(ctx context.Context, req GetPaymentByIDRequest) (*PaymentStatusResponse, error)
	GetPayment(ctx context.Context, req GetPaymentRequest) (*PaymentStatusResponse, error)
}

type CreateFraudDetectionRequest struct {
	ID        uuid.UUID                    `json:"id"`
	Document  string                       `json:"document"`
	Key       string                       `json:"key,omitempty"`
	FraudType models.PixFraudDetectionType `json:"fraud_type"`
}

type CancelFraudDetectionRequest struct {
	FraudDetectionID string `json:"fraud_detection_id"`
}

type FraudDetectionResponse struct {
	FraudDetectionID string                         `json:"fraud_detection_id"`
	Document         string                         `json:"document,omitempty"`
	Key              string                         `json:"key,omitempty"`
	FraudType        models.PixFraudDetectionType   `json:"fraud_type,omitempty"`
	Status           models.PixFraudDetectionStatus `json:"status"`
}

type GetAllFraudDetectionRequest struct {
	CreatedAtStart time.Time
	CreatedAtEnd   time.Time
	Page           int
	Size           int
}

type GetAllFraudDetectionResponse struct {
	FraudDetections []FraudDetectionResponse `json:"fraud_detections"`
	HasNextPage     bool                     `json:"has_next_page"`
}

type PixFraudDetectionGateway interface {
	CreateFraudDetection(ctx context.Context, req CreateFraudDetectionRequest) (*FraudDetectionResponse, error)
	CancelFraudDetection(ctx context.Context, req CancelFraudDetectionRequest) (*FraudDetectionResponse, error)
	GetAllFraudDetection(ctx context.Context, req GetAllFraudDetectionRequest) (*GetAllFraudDetectionResponse, error)
	GetByIDFraudDetection(ctx context.Context, fraudDetectionID string) (*FraudDetectionResponse, error)
}

type UpdatePixFraudDetectionIssueRequest struct {
	IssueID    int64                          `json:"issue_id"`
	ExternalID string                         `json:"external_id"`
	Status     models.PixFraudDetectionStatus `json:"status"`
}

// IssuePixFraudDetectionGateway keeps the issue tracker in sync.
type IssuePixFraudDetectionGateway interface {
	UpdatePixFraudDetectionIssue(ctx context.Context, req UpdatePixFraudDetectionIssueRequest) error
}

// TranslateService maps a PSP error code into a failure reason.
type TranslateService interface {
	TranslatePixPaymentFailed(ctx context.Context, errorCode string) (*models.Failed, error)
}
