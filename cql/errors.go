package cql

import (
	"errors"
	"fmt"
)

// ErrBuilderConsumed is returned by StatementBuilder.Build after the builder
// has already produced its statement.
var ErrBuilderConsumed = errors.New("statement builder already consumed")

// PreconditionError reports a programmer error: a required argument is
// missing or an argument combination is invalid. Not recoverable, not
// retryable.
type PreconditionError struct {
	Msg string
}

func (e *PreconditionError) Error() string {
	return "precondition violated: " + e.Msg
}

func preconditionf(format string, args ...interface{}) error {
	return &PreconditionError{Msg: fmt.Sprintf(format, args...)}
}

// UnsupportedOperationError reports an operator/value combination the
// translator cannot render, including CAS condition operators outside the
// supported subset.
type UnsupportedOperationError struct {
	Operator Operator
	Column   Column
	Value    interface{}
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("unsupported operator %q on column %s with value %v", e.Operator, e.Column, e.Value)
}
