package parser

import (
	"fmt"

	"github.com/reeflective/shellkit/internal/ast"
	shellerrors "github.com/reeflective/shellkit/internal/errors"
)

// IncompleteError is returned when the parser consumed a valid prefix of
// the input and needs more to finish a construct — the line editor uses
// this to keep reading lines.
type IncompleteError struct {
	Where string
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("%v: %s", shellerrors.ErrParseIncomplete, e.Where)
}

func (e *IncompleteError) Unwrap() error { return shellerrors.ErrParseIncomplete }

// TokenizingError wraps a failure from the tokenizer, which may itself be
// an IncompleteError.
type TokenizingError struct {
	Inner error
	Pos   ast.Location
}

func (e *TokenizingError) Error() string {
	return fmt.Sprintf("tokenizing at %s: %v", e.Pos, e.Inner)
}

func (e *TokenizingError) Unwrap() error { return e.Inner }

// FatalError is an irrecoverable grammar violation.
type FatalError struct {
	Message string
	Pos     ast.Location
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("%v at %s: %s", shellerrors.ErrParseFatal, e.Pos, e.Message)
}

func (e *FatalError) Unwrap() error { return shellerrors.ErrParseFatal }

func fatalf(pos ast.Location, format string, args ...any) error {
	return &FatalError{Message: fmt.Sprintf(format, args...), Pos: pos}
}
