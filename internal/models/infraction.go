package models

import (
	"time"

	"github.com/google/uuid"
)

type PixInfractionStatus string

const (
	PixInfractionStatusNew          PixInfractionStatus = "NEW"
	PixInfractionStatusOpen         PixInfractionStatus = "OPEN"
	PixInfractionStatusAcknowledged PixInfractionStatus = "ACKNOWLEDGED"
	PixInfractionStatusClosed       PixInfractionStatus = "CLOSED"
	PixInfractionStatusCancelled    PixInfractionStatus = "CANCELLED"
)

type PixInfractionState string

const (
	PixInfractionStateNewConfirmed    PixInfractionState = "NEW_CONFIRMED"
	PixInfractionStateClosedPending   PixInfractionState = "CLOSED_PENDING"
	PixInfractionStateClosedConfirmed PixInfractionState = "CLOSED_CONFIRMED"
	PixInfractionStateCancelPending   PixInfractionState = "CANCEL_PENDING"
	PixInfractionStateCancelConfirmed PixInfractionState = "CANCEL_CONFIRMED"
)

type PixInfractionType string

const (
	PixInfractionTypeFraud            PixInfractionType = "FRAUD"
	PixInfractionTypeRefundRequest    PixInfractionType = "REFUND_REQUEST"
	PixInfractionTypeCancelDevolution PixInfractionType = "CANCEL_DEVOLUTION"
)

type PixInfractionAnalysisResult string

const (
	PixInfractionAnalysisResultAgreed    PixInfractionAnalysisResult = "AGREED"
	PixInfractionAnalysisResultDisagreed PixInfractionAnalysisResult = "DISAGREED"
)

// PixInfraction is a dispute opened over a Payment or a PixDevolution.
type PixInfraction struct {
	ID              uuid.UUID                   `json:"id"`
	IssueID         int64                       `json:"issue_id"`
	InfractionType  PixInfractionType           `json:"infraction_type"`
	Status          PixInfractionStatus         `json:"status"`
	State           PixInfractionState          `json:"state"`
	Description     string                      `json:"description,omitempty"`
	Transaction     Transaction                 `json:"transaction"`
	EndToEndID      string                      `json:"end_to_end_id,omitempty"`
	AnalysisResult  PixInfractionAnalysisResult `json:"analysis_result,omitempty"`
	AnalysisDetails string                      `json:"analysis_details,omitempty"`
	CreatedAt       time.Time                   `json:"created_at"`
	UpdatedAt       time.Time                   `json:"updated_at"`
}
