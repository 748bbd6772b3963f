package models

import (
	"time"

	"github.com/google/uuid"
)

type PixRefundStatus string

const (
	PixRefundStatusOpen      PixRefundStatus = "OPEN"
	PixRefundStatusCancelled PixRefundStatus = "CANCELLED"
	PixRefundStatusClosed    PixRefundStatus = "CLOSED"
)

type PixRefundState string

const (
	PixRefundStateReceivePending   PixRefundState = "RECEIVE_PENDING"
	PixRefundStateReceiveConfirmed PixRefundState = "RECEIVE_CONFIRMED"
	PixRefundStateCancelPending    PixRefundState = "CANCEL_PENDING"
	PixRefundStateCancelConfirmed  PixRefundState = "CANCEL_CONFIRMED"
	PixRefundStateClosedPending    PixRefundState = "CLOSED_PENDING"
	PixRefundStateClosedConfirmed  PixRefundState = "CLOSED_CONFIRMED"
)

// PixRefund is a refund request received against one of our transactions.
type PixRefund struct {
	ID                 uuid.UUID       `json:"id"`
	IssueID            int64           `json:"issue_id,omitempty"`
	Amount             int64           `json:"amount"`
	Status             PixRefundStatus `json:"status"`
	State              PixRefundState  `json:"state"`
	Transaction        Transaction     `json:"transaction"`
	RejectionReason    string          `json:"rejection_reason,omitempty"`
	AnalysisDetails    string          `json:"analysis_details,omitempty"`
	RefundDevolutionID *uuid.UUID      `json:"refund_devolution_id,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

type PixInfractionRefundOperationState string

const (
	PixInfractionRefundOperationStateOpen   PixInfractionRefundOperationState = "OPEN"
	PixInfractionRefundOperationStateClosed PixInfractionRefundOperationState = "CLOSED"
)

// PixInfractionRefundOperation wraps a ledger operation opened to reserve
// funds while a refund is pending.
type PixInfractionRefundOperation struct {
	ID          uuid.UUID                         `json:"id"`
	State       PixInfractionRefundOperationState `json:"state"`
	PixRefundID uuid.UUID                         `json:"pix_refund_id"`
	Operation   *Operation                        `json:"operation,omitempty"`
	CreatedAt   time.Time                         `json:"created_at"`
	UpdatedAt   time.Time                         `json:"updated_at"`
}

// PixInfractionRefundOperationFilter selects refund operations of a refund.
type PixInfractionRefundOperationFilter struct {
	PixRefundID uuid.UUID
	States      []PixInfractionRefundOperationState
}
