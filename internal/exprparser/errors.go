package exprparser

import (
	"errors"
	"fmt"

	"github.com/roach88/quarry/internal/lexer"
)

// ParseError reports a token that does not fit the grammar at its position.
// Parsing never recovers: the first ParseError aborts the parse call.
type ParseError struct {
	// Message is a human-readable description.
	Message string

	// Token is the offending token. It is the zero Token when AtEnd is set.
	Token lexer.Token

	// AtEnd is set when the input ended where a token was required.
	AtEnd bool
}

// Error renders the token kind and span followed by the message:
//
//	[VARIABLE at Line 1 Column 5 to Line 1 Column 6] message
func (e *ParseError) Error() string {
	if e.AtEnd {
		return "[end of input] " + e.Message
	}
	t := e.Token
	return fmt.Sprintf("[%s at Line %d Column %d to Line %d Column %d] %s",
		t.Kind, t.StartLine, t.StartColumn, t.EndLine, t.EndColumn, e.Message)
}

// Errorf creates a ParseError for tok.
func Errorf(tok lexer.Token, format string, args ...any) *ParseError {
	return &ParseError{Message: fmt.Sprintf(format, args...), Token: tok}
}

// EndOfInput creates a ParseError for a premature end of tokens.
func EndOfInput(format string, args ...any) *ParseError {
	return &ParseError{Message: fmt.Sprintf(format, args...), AtEnd: true}
}

// IsParseError reports whether err is or wraps a ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}
