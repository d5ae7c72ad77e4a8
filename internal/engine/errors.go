package engine

import (
	"errors"
	"fmt"
)

// RuntimeError is a failure of query execution that is not a parse or
// evaluation error.
type RuntimeError struct {
	Code RuntimeErrorCode

	Message string

	// QueryID identifies the affected query.
	QueryID string

	// Details contains additional context.
	Details map[string]string
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeQueryTimeout indicates the query ran past its timeout and
	// partial results were not enabled.
	ErrCodeQueryTimeout RuntimeErrorCode = "QUERY_TIMEOUT"

	// ErrCodeUnsupportedForm indicates a query form the operation cannot
	// answer.
	ErrCodeUnsupportedForm RuntimeErrorCode = "UNSUPPORTED_FORM"
)

func (e *RuntimeError) Error() string {
	if e.QueryID != "" {
		return fmt.Sprintf("%s: %s (query=%s)", e.Code, e.Message, e.QueryID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsTimeoutError reports whether err is a query timeout.
func IsTimeoutError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeQueryTimeout
	}
	return false
}

// IsUnsupportedFormError reports whether err rejects a query form.
func IsUnsupportedFormError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeUnsupportedForm
	}
	return false
}
