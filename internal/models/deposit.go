package models

import (
	"time"

	"github.com/google/uuid"
)

// PixDeposit is an inbound credit. ReturnedAmount is the running sum of the
// non-failed devolutions issued against it.
type PixDeposit struct {
	ID             uuid.UUID `json:"id"`
	Amount         int64     `json:"amount,omitempty"`
	ReturnedAmount int64     `json:"returned_amount,omitempty"`
	EndToEndID     string    `json:"end_to_end_id,omitempty"`
	UpdatedAt      time.Time `json:"updated_at,omitempty"`
}
