package models

import (
	"time"

	"github.com/google/uuid"
)

type PaymentState string

const (
	PaymentStatePending   PaymentState = "PENDING"
	PaymentStateWaiting   PaymentState = "WAITING"
	PaymentStateConfirmed PaymentState = "CONFIRMED"
	PaymentStateFailed    PaymentState = "FAILED"
)

type PaymentPriorityType string

const (
	PaymentPriorityTypePriority PaymentPriorityType = "PRIORITY"
	PaymentPriorityTypeSchedule PaymentPriorityType = "SCHEDULE"
)

// Payment is an outbound PIX transfer.
type Payment struct {
	ID               uuid.UUID           `json:"id"`
	State            PaymentState        `json:"state"`
	PriorityType     PaymentPriorityType `json:"priority_type"`
	Value            int64               `json:"value"`
	Key              string              `json:"key,omitempty"`
	Description      string              `json:"description,omitempty"`
	EndToEndID       string              `json:"end_to_end_id,omitempty"`
	ExternalID       string              `json:"external_id,omitempty"`
	ChargebackReason string              `json:"chargeback_reason,omitempty"`
	Failed           *Failed             `json:"failed,omitempty"`
	Operation        *Operation          `json:"operation,omitempty"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}
