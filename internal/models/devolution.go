package models

import (
	"time"

	"github.com/google/uuid"
)

type DevolutionState string

const (
	DevolutionStatePending   DevolutionState = "PENDING"
	DevolutionStateWaiting   DevolutionState = "WAITING"
	DevolutionStateConfirmed DevolutionState = "CONFIRMED"
	DevolutionStateFailed    DevolutionState = "FAILED"
)

// DevolutionBase holds the fields and state machine shared by every kind of
// devolution.
type DevolutionBase struct {
	ID               uuid.UUID       `json:"id"`
	State            DevolutionState `json:"state"`
	Amount           int64           `json:"amount"`
	Description      string          `json:"description,omitempty"`
	EndToEndID       string          `json:"end_to_end_id,omitempty"`
	ExternalID       string          `json:"external_id,omitempty"`
	ChargebackReason string          `json:"chargeback_reason,omitempty"`
	Failed           *Failed         `json:"failed,omitempty"`
	Deposit          *PixDeposit     `json:"deposit,omitempty"`
	Operation        *Operation      `json:"operation,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// Devolution gives generic code access to the shared fields.
func (d *DevolutionBase) Devolution() *DevolutionBase {
	return d
}

// PixDevolution returns funds of a received deposit back to the payer.
type PixDevolution struct {
	DevolutionBase
}

// PixRefundDevolution returns funds requested through a closed refund. It
// carries no deposit; Transaction is the Payment or PixDevolution refunded.
type PixRefundDevolution struct {
	DevolutionBase
	PixRefundID           uuid.UUID   `json:"pix_refund_id"`
	Transaction           Transaction `json:"transaction"`
	TransactionEndToEndID string      `json:"transaction_end_to_end_id,omitempty"`
}

// WarningPixDevolution returns a deposit blocked by a compliance warning.
type WarningPixDevolution struct {
	DevolutionBase
	WarningTransactionID uuid.UUID `json:"warning_transaction_id"`
}

// Devolution is the set of devolution kinds driven by the shared lifecycle.
type Devolution interface {
	*PixDevolution | *PixRefundDevolution | *WarningPixDevolution
	Devolution() *DevolutionBase
}

// DevolutionKind names a devolution type in logs, metrics and errors.
func DevolutionKind[T Devolution]() string {
	var zero T
	switch any(zero).(type) {
	case *PixRefundDevolution:
		return "PixRefundDevolution"
	case *WarningPixDevolution:
		return "WarningPixDevolution"
	default:
		return "PixDevolution"
	}
}
