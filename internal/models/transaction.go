package models

import (
	"fmt"

	"github.com/google/uuid"
)

// TransactionType discriminates what a refund or infraction points at.
type TransactionType string

const (
	TransactionTypePayment    TransactionType = "PAYMENT"
	TransactionTypeDevolution TransactionType = "DEVOLUTION"
)

func (t TransactionType) IsValid() bool {
	return t == TransactionTypePayment || t == TransactionTypeDevolution
}

// Transaction references either a Payment or a PixDevolution.
type Transaction struct {
	Type TransactionType `json:"type"`
	ID   uuid.UUID       `json:"id"`
}

func (t Transaction) String() string {
	return fmt.Sprintf("%s:%s", t.Type, t.ID)
}

// ResolvedTransaction is the common view of a referenced transaction after it
// was loaded from its own repository.
type ResolvedTransaction struct {
	Transaction
	EndToEndID string
	Amount     int64
	Deposit    *PixDeposit
}
