package optimizer

import (
	"errors"
	"fmt"

	"github.com/roach88/quarry/internal/algebra"
)

// ErrorCode categorizes optimizer failures.
type ErrorCode string

const (
	// CodeUnsafeObjectSubstitution indicates a substitution in an object
	// position that could change which solutions a pattern produces.
	CodeUnsafeObjectSubstitution ErrorCode = "UNSAFE_OBJECT_SUBSTITUTION"

	// CodeUnsupportedNode indicates an operator the rewrite cannot see into.
	CodeUnsupportedNode ErrorCode = "UNSUPPORTED_NODE"

	// CodeInvalidGraphReplacement indicates a GRAPH specifier replaced by
	// something other than an IRI.
	CodeInvalidGraphReplacement ErrorCode = "INVALID_GRAPH_REPLACEMENT"
)

// OptimizerError is a refused rewrite. The caller keeps the original tree.
type OptimizerError struct {
	Code    ErrorCode
	Message string

	// Node is the operator that refused the rewrite.
	Node algebra.Node
}

func (e *OptimizerError) Error() string {
	if e.Node != nil {
		return fmt.Sprintf("%s: %s in %T", e.Code, e.Message, e.Node)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func refuse(code ErrorCode, n algebra.Node, format string, args ...any) error {
	return &OptimizerError{Code: code, Message: fmt.Sprintf(format, args...), Node: n}
}

// IsOptimizerError reports whether err wraps an *OptimizerError.
func IsOptimizerError(err error) bool {
	var oe *OptimizerError
	return errors.As(err, &oe)
}

// CodeOf returns the code of a wrapped *OptimizerError, or "".
func CodeOf(err error) ErrorCode {
	var oe *OptimizerError
	if errors.As(err, &oe) {
		return oe.Code
	}
	return ""
}
