package update

import (
	"errors"
	"fmt"

	"github.com/roach88/quarry/internal/rdf"
)

// ErrorCode categorizes update failures.
type ErrorCode string

const (
	// CodeNonGroundData indicates a variable or blank node in INSERT DATA
	// or DELETE DATA where only ground triples are allowed.
	CodeNonGroundData ErrorCode = "NON_GROUND_DATA"

	// CodeGraphExists indicates CREATE of an existing graph.
	CodeGraphExists ErrorCode = "GRAPH_EXISTS"

	// CodeGraphNotFound indicates CLEAR or DROP of a missing graph.
	CodeGraphNotFound ErrorCode = "GRAPH_NOT_FOUND"

	// CodeUnsupportedCommand indicates a command shape the processor cannot run.
	CodeUnsupportedCommand ErrorCode = "UNSUPPORTED_COMMAND"

	// CodeStoreFailure wraps an error returned by the store.
	CodeStoreFailure ErrorCode = "STORE_FAILURE"

	// CodeLoadFailure indicates LOAD could not retrieve its source.
	CodeLoadFailure ErrorCode = "LOAD_FAILURE"

	// CodeQueryUnsupported indicates a WHERE clause against a store that
	// cannot answer queries.
	CodeQueryUnsupported ErrorCode = "QUERY_UNSUPPORTED"
)

// UpdateError is a command-level failure.
type UpdateError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Command is the keyword of the failing command.
	Command string

	// Graph is the graph involved, when there is one.
	Graph rdf.IRI

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

func (e *UpdateError) Error() string {
	msg := fmt.Sprintf("%s: %s: %s", e.Code, e.Command, e.Message)
	if e.Graph != "" {
		msg += " (graph " + e.Graph.String() + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *UpdateError) Unwrap() error { return e.Err }

func newError(code ErrorCode, cmd Command, graph rdf.IRI, err error, format string, args ...any) *UpdateError {
	return &UpdateError{
		Code:    code,
		Command: cmd.Name(),
		Graph:   graph,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// IsUpdateError reports whether err is or wraps an UpdateError.
func IsUpdateError(err error) bool {
	var ue *UpdateError
	return errors.As(err, &ue)
}

// CodeOf returns the code of a wrapped UpdateError, or "".
func CodeOf(err error) ErrorCode {
	var ue *UpdateError
	if errors.As(err, &ue) {
		return ue.Code
	}
	return ""
}
