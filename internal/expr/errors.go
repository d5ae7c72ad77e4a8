package expr

import (
	"errors"
	"fmt"
)

// EvaluationError is a runtime failure inside expression evaluation.
//
// Filters treat an EvaluationError as false and drop the solution; BIND
// leaves the variable unbound. It only aborts a query when raised outside
// any per-solution scope.
type EvaluationError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string
}

// ErrorCode categorizes evaluation errors.
type ErrorCode string

const (
	// CodeTypeError indicates an operand of the wrong type.
	CodeTypeError ErrorCode = "TYPE_ERROR"

	// CodeUnbound indicates an unbound variable was read.
	CodeUnbound ErrorCode = "UNBOUND_VARIABLE"

	// CodeAggregateContext indicates an aggregate evaluated outside a group.
	CodeAggregateContext ErrorCode = "AGGREGATE_CONTEXT"

	// CodeDivisionByZero indicates exact division by zero.
	CodeDivisionByZero ErrorCode = "DIVISION_BY_ZERO"

	// CodeUnknownFunction indicates an extension function with no implementation.
	CodeUnknownFunction ErrorCode = "UNKNOWN_FUNCTION"

	// CodeInvalidArgument indicates a malformed argument (bad regex, bad cast).
	CodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
)

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Errorf creates an EvaluationError.
func Errorf(code ErrorCode, format string, args ...any) *EvaluationError {
	return &EvaluationError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// IsEvaluationError reports whether err is or wraps an EvaluationError.
func IsEvaluationError(err error) bool {
	var ee *EvaluationError
	return errors.As(err, &ee)
}

// CodeOf returns the code of a wrapped EvaluationError, or "".
func CodeOf(err error) ErrorCode {
	var ee *EvaluationError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ""
}
