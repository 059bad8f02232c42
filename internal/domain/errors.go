package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Error codes surfaced in API responses.
const (
	CodeValidation             = "VALIDATION_ERROR"
	CodeInvalidTransition      = "INVALID_TRANSITION"
	CodeConcurrentModification = "CONCURRENT_MODIFICATION"
	CodeNotInTrash             = "NOT_IN_TRASH"
	CodeUnknownCurrencyOrTax   = "UNKNOWN_CURRENCY_OR_TAX"
	CodeNotFound               = "NOT_FOUND"
)

var (
	ErrNotFound               = errors.New("resource not found")
	ErrConcurrentModification = errors.New("document was modified by another request")
	ErrNotInTrash             = errors.New("record is not in trash")
)

// ValidationError collects per-field messages. Fields are keyed by their
// JSON path, e.g. "items[0].unit_price".
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string]string)}
}

// Add records a field failure and returns the receiver for chaining.
func (e *ValidationError) Add(field, msg string) *ValidationError {
	e.Fields[field] = msg
	return e
}

// OrNil returns nil when no fields failed so callers can return it directly.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// InvalidTransitionError is returned when a lifecycle change is not permitted.
type InvalidTransitionError struct {
	DocumentType DocumentType
	From         Status
	To           Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("%s cannot move from %s to %s", strings.ToLower(string(e.DocumentType)), e.From, e.To)
}

// NotInTrashError is returned by restore or purge when the record is live or
// already gone.
type NotInTrashError struct {
	Kind EntityKind
	ID   uuid.UUID
}

func (e *NotInTrashError) Error() string {
	return fmt.Sprintf("%s %s is not in trash", strings.ToLower(string(e.Kind)), e.ID)
}

func (e *NotInTrashError) Is(target error) bool { return target == ErrNotInTrash }

// UnknownCurrencyOrTaxError is returned when a referenced currency code or tax
// rate is missing or inactive in the registry.
type UnknownCurrencyOrTaxError struct {
	Kind string // "currency" | "tax_rate"
	Ref  string
}

func (e *UnknownCurrencyOrTaxError) Error() string {
	return fmt.Sprintf("unknown or inactive %s %q", e.Kind, e.Ref)
}

// Code returns the API error code for err, or "" when err is not a domain error.
func Code(err error) string {
	var (
		ve *ValidationError
		te *InvalidTransitionError
		ue *UnknownCurrencyOrTaxError
	)
	switch {
	case errors.As(err, &ve):
		return CodeValidation
	case errors.As(err, &te):
		return CodeInvalidTransition
	case errors.Is(err, ErrConcurrentModification):
		return CodeConcurrentModification
	case errors.Is(err, ErrNotInTrash):
		return CodeNotInTrash
	case errors.As(err, &ue):
		return CodeUnknownCurrencyOrTax
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	}
	return ""
}
