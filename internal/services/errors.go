package services

import (
	"github.com/diewo77/go-submittals/internal/workflow"
	"github.com/diewo77/go-submittals/validation"
)

// Services report failures with the workflow error type so handlers map
// every error the same way.

func notFound(op, entity string) error {
	return &workflow.Error{Kind: workflow.ErrNotFound, Op: op, Message: entity + " not found"}
}

func invalid(op string, v validation.Violations) error {
	return &workflow.Error{Kind: workflow.ErrValidation, Op: op, Message: "invalid input", Fields: v}
}

func invalidReference(op, msg string) error {
	return &workflow.Error{Kind: workflow.ErrInvalidReference, Op: op, Message: msg}
}

func conflict(op, msg string) error {
	return &workflow.Error{Kind: workflow.ErrConflict, Op: op, Message: msg}
}

func storeFailure(op string, err error) error {
	return &workflow.Error{Kind: workflow.ErrStore, Op: op, Message: workflow.MessageTryAgain, Err: err}
}
