// Package apperr defines the error taxonomy shared by the ledger, catalog,
// identity gate and outbox. Handlers map a Kind to an HTTP status; everything
// that is not an *Error is treated as an opaque server failure.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the API surface.
type Kind string

const (
	KindValidation  Kind = "validation"
	KindNotFound    Kind = "not_found"
	KindConflict    Kind = "conflict"
	KindCredential  Kind = "credential"
	KindTransaction Kind = "transaction"
	KindInternal    Kind = "internal"
)

// FieldGeneral tags errors that are not tied to a single input field.
const FieldGeneral = "general"

// Error is a classified application error. Field names the offending input
// ("username", "password", ...) and is echoed to clients.
type Error struct {
	Kind    Kind
	Field   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

var (
	ErrCapacityExceeded      = &Error{Kind: KindConflict, Field: FieldGeneral, Message: "event is full"}
	ErrDuplicateRegistration = &Error{Kind: KindConflict, Field: FieldGeneral, Message: "already registered for this event"}
	ErrNotRegistered         = &Error{Kind: KindConflict, Field: FieldGeneral, Message: "not registered for this event"}
	ErrDuplicateUser         = &Error{Kind: KindConflict, Field: "username", Message: "username already exists"}
	ErrUnknownUser           = &Error{Kind: KindCredential, Field: "username", Message: "user does not exist"}
	ErrInvalidCredential     = &Error{Kind: KindCredential, Field: "password", Message: "incorrect password"}
	ErrEventNotFound         = NotFound("event not found")
)

// Validation returns a client-correctable input error tagged with field.
func Validation(field, message string) *Error {
	if field == "" {
		field = FieldGeneral
	}
	return &Error{Kind: KindValidation, Field: field, Message: message}
}

// NotFound returns an error for an absent referenced entity.
func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Field: FieldGeneral, Message: message}
}

// Transaction wraps a store failure that aborted a multi-step unit of work.
// The unit has already been rolled back when this is returned.
func Transaction(op string, err error) *Error {
	return &Error{Kind: KindTransaction, Field: FieldGeneral, Message: op + " failed", Err: err}
}

// KindOf reports the Kind of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// FieldOf reports the input field err is tagged with.
func FieldOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) && ae.Field != "" {
		return ae.Field
	}
	return FieldGeneral
}

// IsClientError reports whether err should reach the client verbatim.
func IsClientError(err error) bool {
	switch KindOf(err) {
	case KindValidation, KindNotFound, KindConflict, KindCredential:
		return true
	}
	return false
}
