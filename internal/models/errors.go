package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMissingData  = errors.New("missing data")
	ErrNotFound     = errors.New("entity not found")
	ErrInvalidState = errors.New("invalid state")
	ErrStaleState   = errors.New("stale state")
)

// MissingDataError is raised before any I/O when required input is absent.
type MissingDataError struct {
	Fields []string
}

func NewMissingDataError(fields ...string) *MissingDataError {
	return &MissingDataError{Fields: fields}
}

func (e *MissingDataError) Error() string {
	return fmt.Sprintf("missing data: %s", strings.Join(e.Fields, ", "))
}

func (e *MissingDataError) Is(target error) bool {
	return target == ErrMissingData
}

// NotFoundError is raised when a transition targets an unknown record.
type NotFoundError struct {
	Entity string
	ID     string
}

func NewNotFoundError(entity string, id any) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: fmt.Sprint(id)}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// IsPixDepositNotFound reports whether err is the missing-deposit variant.
func IsPixDepositNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf) && nf.Entity == EntityPixDeposit
}

// InvalidStateError carries the state that rejected a transition.
type InvalidStateError struct {
	Entity string
	ID     string
	State  string
}

func NewInvalidStateError(entity string, id any, state string) *InvalidStateError {
	return &InvalidStateError{Entity: entity, ID: fmt.Sprint(id), State: state}
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s %s is in invalid state %s", e.Entity, e.ID, e.State)
}

func (e *InvalidStateError) Is(target error) bool {
	return target == ErrInvalidState
}

// StaleStateError is raised by a guarded update that found the record in a
// state other than the one the caller read.
type StaleStateError struct {
	Entity   string
	ID       string
	Expected string
	Actual   string
}

func NewStaleStateError(entity string, id any, expected, actual string) *StaleStateError {
	return &StaleStateError{Entity: entity, ID: fmt.Sprint(id), Expected: expected, Actual: actual}
}

func (e *StaleStateError) Error() string {
	return fmt.Sprintf("%s %s moved from %s to %s concurrently", e.Entity, e.ID, e.Expected, e.Actual)
}

func (e *StaleStateError) Is(target error) bool {
	return target == ErrStaleState
}

const (
	EntityPayment                      = "Payment"
	EntityPixDeposit                   = "PixDeposit"
	EntityPixRefund                    = "PixRefund"
	EntityPixInfraction                = "PixInfraction"
	EntityPixFraudDetection            = "PixFraudDetection"
	EntityPixInfractionRefundOperation = "PixInfractionRefundOperation"
)
