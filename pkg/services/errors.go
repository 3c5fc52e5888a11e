// Package services provides the business logic layer between the HTTP API
// and the persistence and engine packages.
package services

import (
	"errors"
	"fmt"
)

// Validation errors map to 400 responses.
var (
	ErrWorkflowNil        = errors.New("workflow cannot be nil")
	ErrWorkflowInvalid    = errors.New("workflow failed validation")
	ErrNodesRequired      = errors.New("workflow must have at least one node")
	ErrStartNodeRequired  = errors.New("workflow must have a start node")
	ErrDuplicateNodeID    = errors.New("workflow has duplicate node ids")
	ErrDanglingEdge       = errors.New("edge references a node that does not exist")
	ErrCyclicDefinition   = errors.New("workflow definition contains a cycle")
	ErrInvalidNodeData    = errors.New("node data does not match its schema")
	ErrExecutionRequested = errors.New("invalid execution request")
)

// ServiceError wraps service-level errors with operation context.
type ServiceError struct {
	Op      string
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewValidationError creates a validation error with context.
func NewValidationError(op, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// IsValidationError checks whether an error should map to HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrWorkflowNil) ||
		errors.Is(err, ErrWorkflowInvalid) ||
		errors.Is(err, ErrNodesRequired) ||
		errors.Is(err, ErrStartNodeRequired) ||
		errors.Is(err, ErrDuplicateNodeID) ||
		errors.Is(err, ErrDanglingEdge) ||
		errors.Is(err, ErrCyclicDefinition) ||
		errors.Is(err, ErrInvalidNodeData) ||
		errors.Is(err, ErrExecutionRequested)
}
