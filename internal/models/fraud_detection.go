package models

import (
	"time"

	"github.com/google/uuid"
)

type PixFraudDetectionState string

const (
	PixFraudDetectionStateRegisteredPending   PixFraudDetectionState = "REGISTERED_PENDING"
	PixFraudDetectionStateRegisteredConfirmed PixFraudDetectionState = "REGISTERED_CONFIRMED"
	PixFraudDetectionStateCanceledPending     PixFraudDetectionState = "CANCELED_PENDING"
	PixFraudDetectionStateCanceledConfirmed   PixFraudDetectionState = "CANCELED_CONFIRMED"
	PixFraudDetectionStateReceived            PixFraudDetectionState = "RECEIVED"
	PixFraudDetectionStateFailed              PixFraudDetectionState = "FAILED"
)

type PixFraudDetectionStatus string

const (
	PixFraudDetectionStatusRegistered         PixFraudDetectionStatus = "REGISTERED"
	PixFraudDetectionStatusCanceledRegistered PixFraudDetectionStatus = "CANCELED_REGISTERED"
	PixFraudDetectionStatusReceived           PixFraudDetectionStatus = "RECEIVED"
)

type PixFraudDetectionType string

const (
	PixFraudDetectionTypeFalseIdentification PixFraudDetectionType = "FALSE_IDENTIFICATION"
	PixFraudDetectionTypeDummyAccount        PixFraudDetectionType = "DUMMY_ACCOUNT"
	PixFraudDetectionTypeFraudsterAccount    PixFraudDetectionType = "FRAUDSTER_ACCOUNT"
	PixFraudDetectionTypeOther               PixFraudDetectionType = "OTHER"
)

// PixFraudDetection is a fraud report keyed by (document, key, fraud type).
type PixFraudDetection struct {
	ID         uuid.UUID               `json:"id"`
	IssueID    int64                   `json:"issue_id,omitempty"`
	ExternalID string                  `json:"external_id,omitempty"`
	Document   string                  `json:"document"`
	Key        string                  `json:"key,omitempty"`
	FraudType  PixFraudDetectionType   `json:"fraud_type"`
	Status     PixFraudDetectionStatus `json:"status"`
	State      PixFraudDetectionState  `json:"state"`
	Failed     *Failed                 `json:"failed,omitempty"`
	CreatedAt  time.Time               `json:"created_at"`
	UpdatedAt  time.Time               `json:"updated_at"`
}
