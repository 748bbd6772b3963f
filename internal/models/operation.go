package models

import "github.com/google/uuid"

type OperationState string

const (
	OperationStatePending  OperationState = "PENDING"
	OperationStateAccepted OperationState = "ACCEPTED"
	OperationStateReverted OperationState = "REVERTED"
)

// Operation is a ledger operation owned by the operation service. Entities in
// this service only hold a reference to it.
type Operation struct {
	ID             uuid.UUID      `json:"id"`
	State          OperationState `json:"state,omitempty"`
	Value          int64          `json:"value,omitempty"`
	TransactionTag string         `json:"transaction_tag,omitempty"`
}

// Failed is the structured failure reason attached to a transaction.
type Failed struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
