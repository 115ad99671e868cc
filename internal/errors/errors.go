// Package errors defines the sentinel error values shared by every core
// subsystem (tokenizer, parser, pattern engine, expansion engine, completion
// engine, predicate evaluator). Callers wrap these with fmt.Errorf("...: %w",
// ...) to attach position or value context.
package errors

import "errors"

// Tokenizing errors.
var (
	// ErrIncomplete indicates the input ended inside an open lexical
	// context (unterminated quote, unclosed substitution, open heredoc).
	// Recoverable by feeding more input. A trailing backslash-newline is
	// consumed as a line continuation and does not by itself make the
	// input incomplete.
	ErrIncomplete = errors.New("incomplete input")

	// ErrBadEscape indicates an invalid escape sequence inside $'...'.
	ErrBadEscape = errors.New("invalid escape sequence")

	// ErrNullByte indicates a null byte was found in unquoted context.
	ErrNullByte = errors.New("null byte in input")
)

// Parsing errors.
var (
	// ErrParseIncomplete indicates the parser consumed a valid prefix and
	// needs more input to finish (used by the line editor to continue a
	// multi-line entry).
	ErrParseIncomplete = errors.New("parsing incomplete at end of input")

	// ErrParseFatal indicates an irrecoverable grammar violation.
	ErrParseFatal = errors.New("parse error")

	// ErrAliasLoopBound indicates alias expansion exceeded the bounded
	// iteration count without terminating naturally.
	ErrAliasLoopBound = errors.New("alias expansion iteration bound exceeded")
)

// Expansion errors.
var (
	// ErrUnboundVariable indicates a reference to an unset variable while
	// the "nounset" option is active.
	ErrUnboundVariable = errors.New("unbound variable")

	// ErrBadSubstitution indicates malformed parameter-expansion syntax.
	ErrBadSubstitution = errors.New("bad substitution")

	// ErrCommandSubstitution wraps a failure running a command
	// substitution's inner program.
	ErrCommandSubstitution = errors.New("command substitution failed")

	// ErrParamRequired indicates a ${var:?word} expansion whose variable
	// is unset or empty.
	ErrParamRequired = errors.New("parameter null or not set")
)

// Pattern errors.
var (
	// ErrPatternCompile indicates a malformed glob or extended-glob
	// pattern.
	ErrPatternCompile = errors.New("pattern compile error")

	// ErrUnbalancedGroup indicates an extended-glob group was never
	// closed.
	ErrUnbalancedGroup = errors.New("unbalanced pattern group")
)

// Builtin / execution errors.
var (
	// ErrBuiltinMisuse indicates invalid builtin arguments (exit code 2).
	ErrBuiltinMisuse = errors.New("builtin misuse")

	// ErrUnimplemented indicates a builtin recognized but not implemented.
	ErrUnimplemented = errors.New("not implemented")

	// ErrCancelled indicates a cooperative cancellation signal fired.
	// Never escapes the completion call; converted to an empty result.
	ErrCancelled = errors.New("cancelled")
)

// Shell-state errors.
var (
	// ErrNotFound indicates a variable, alias, function, or command
	// lookup failed.
	ErrNotFound = errors.New("not found")

	// ErrReadonly indicates an attempted write to a readonly variable.
	ErrReadonly = errors.New("readonly variable")

	// ErrValidation wraps a validator-rejected assignment.
	ErrValidation = errors.New("validation failed")
)
