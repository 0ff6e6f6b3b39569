package workflow

import (
	"errors"
	"fmt"

	"github.com/diewo77/go-submittals/validation"
)

// Error kinds. Match them with errors.Is.
var (
	ErrValidation       = errors.New("validation_failed")
	ErrNotFound         = errors.New("not_found")
	ErrInvalidReference = errors.New("invalid_reference")
	ErrConflict         = errors.New("conflict")
	ErrSequence         = errors.New("sequence_unavailable")
	ErrStore            = errors.New("store_failure")
)

// MessageTryAgain is the only message exposed for sequence and store failures.
const MessageTryAgain = "something went wrong, please try again"

// Error is returned by every Engine operation.
// Kind is one of the sentinel errors above; Err carries the underlying cause, if any.
type Error struct {
	Kind    error
	Op      string
	Message string
	Fields  validation.Violations
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Op, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Retryable reports whether the caller may safely retry the operation.
func (e *Error) Retryable() bool {
	return e.Kind == ErrSequence || e.Kind == ErrStore
}

func validationError(op string, v validation.Violations) *Error {
	return &Error{Kind: ErrValidation, Op: op, Message: "invalid input", Fields: v}
}

func notFound(op, entity string) *Error {
	return &Error{Kind: ErrNotFound, Op: op, Message: entity + " not found"}
}

func invalidReference(op, msg string) *Error {
	return &Error{Kind: ErrInvalidReference, Op: op, Message: msg}
}

func conflict(op, msg string) *Error {
	return &Error{Kind: ErrConflict, Op: op, Message: msg}
}

func sequenceError(op string, err error) *Error {
	return &Error{Kind: ErrSequence, Op: op, Message: MessageTryAgain, Err: err}
}

func storeError(op string, err error) *Error {
	return &Error{Kind: ErrStore, Op: op, Message: MessageTryAgain, Err: err}
}

// asError returns err as an *Error, classifying anything unknown as a store failure.
func asError(op string, err error) *Error {
	var we *Error
	if errors.As(err, &we) {
		return we
	}
	return storeError(op, err)
}
