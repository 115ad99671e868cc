package token

import (
	"strings"

	"github.com/reeflective/shellkit/internal/ast"
	shellerrors "github.com/reeflective/shellkit/internal/errors"
)

// scanWord reads one TokWord token, splitting its source into QuotedRun
// segments by top-level quoting context. Nested substitutions ($(...),
// ${...}, `...`) are skipped as opaque balanced spans at this layer; the
// parser re-tokenizes their captured text when it builds the Word AST.
func (l *Lexer) scanWord() (ast.Token, error) {
	startLoc := l.loc()

	var runs []ast.QuotedRun
	var buf strings.Builder
	curKind := ast.Unquoted
	runStart := l.pos

	flush := func(next ast.QuoteKind, consumedStart int) {
		if l.pos > runStart {
			buf.Reset()
			buf.WriteString(string(l.src[runStart:l.pos]))
			runs = append(runs, ast.QuotedRun{Text: buf.String(), Quote: curKind})
		}
		curKind = next
		runStart = consumedStart
	}

	for {
		if l.eof() {
			break
		}
		c := l.peek()

		if isBlank(c) || c == '\n' {
			break
		}
		if isOperatorStart(c) {
			break
		}

		switch c {
		case '\'':
			flush(ast.SingleQuoted, l.pos)
			l.advance()
			for !l.eof() && l.peek() != '\'' {
				l.advance()
			}
			if l.eof() {
				return ast.Token{}, l.pushIncomplete(InSingleQuote, "'")
			}
			l.advance()
			flush(ast.Unquoted, l.pos)
			continue

		case '"':
			flush(ast.DoubleQuoted, l.pos)
			l.advance()
			if err := l.skipDoubleQuoteBody(); err != nil {
				return ast.Token{}, err
			}
			flush(ast.Unquoted, l.pos)
			continue

		case '\\':
			l.advance()
			if !l.eof() {
				l.advance()
			}
			continue

		case '$':
			if l.peekAt(1) == '\'' {
				flush(ast.DollarSingleQuoted, l.pos)
				l.advance() // $
				l.advance() // '
				if err := l.skipAnsiCBody(); err != nil {
					return ast.Token{}, err
				}
				flush(ast.Unquoted, l.pos)
				continue
			}
			if l.peekAt(1) == '(' || l.peekAt(1) == '{' {
				if err := l.skipOpaqueDollarSpan(); err != nil {
					return ast.Token{}, err
				}
				continue
			}
			l.advance()
			continue

		case '`':
			if err := l.skipBacktickSpan(); err != nil {
				return ast.Token{}, err
			}
			continue

		default:
			l.advance()
			continue
		}
	}

	flush(curKind, l.pos)

	text := string(l.src[startLocOffset(startLoc):l.pos])
	return ast.Token{Kind: ast.TokWord, Text: text, Loc: startLoc, Pieces: runs}, nil
}

func startLocOffset(loc ast.Location) int { return loc.Offset }

// skipDoubleQuoteBody consumes up to and including the closing unescaped
// quote, treating \, $, and ` specially as bash does inside "...".
func (l *Lexer) skipDoubleQuoteBody() error {
	for {
		if l.eof() {
			return l.pushIncomplete(InDoubleQuote, "\"")
		}
		switch l.peek() {
		case '"':
			l.advance()
			return nil
		case '\\':
			l.advance()
			if !l.eof() {
				l.advance()
			}
		case '$':
			if l.peekAt(1) == '(' || l.peekAt(1) == '{' {
				if err := l.skipOpaqueDollarSpan(); err != nil {
					return err
				}
				continue
			}
			l.advance()
		case '`':
			if err := l.skipBacktickSpan(); err != nil {
				return err
			}
		default:
			l.advance()
		}
	}
}

// skipAnsiCBody consumes a $'...' body, validating escapes ("invalid
// escape in $'...'" is a fatal error, not incomplete).
func (l *Lexer) skipAnsiCBody() error {
	const validEscapes = "abefnrtv\\'\"?0xu1234567"
	for {
		if l.eof() {
			return l.pushIncomplete(InDollarSingleQuote, "$'")
		}
		switch l.peek() {
		case '\'':
			l.advance()
			return nil
		case '\\':
			l.advance()
			if l.eof() {
				return l.pushIncomplete(InDollarSingleQuote, "$'")
			}
			if !strings.ContainsRune(validEscapes, rune(l.peek())) {
				return shellerrors.ErrBadEscape
			}
			l.advance()
		default:
			l.advance()
		}
	}
}

func (l *Lexer) skipBacktickSpan() error {
	l.advance() // opening `
	for {
		if l.eof() {
			return l.pushIncomplete(InBacktick, "`")
		}
		switch l.peek() {
		case '`':
			l.advance()
			return nil
		case '\\':
			l.advance()
			if !l.eof() {
				l.advance()
			}
		default:
			l.advance()
		}
	}
}

// skipOpaqueDollarSpan consumes a $(...), $((...)), or ${...} construct
// starting at the '$', respecting nested quotes and nested balanced
// constructs of the same kinds.
func (l *Lexer) skipOpaqueDollarSpan() error {
	l.advance() // $
	switch l.peek() {
	case '(':
		l.advance()
		arith := false
		if l.peek() == '(' {
			arith = true
			l.advance()
		}
		mode := InCommandSubst
		if arith {
			mode = InArithmetic
		}
		depth := 1
		for depth > 0 {
			if l.eof() {
				return l.pushIncomplete(mode, "$(")
			}
			if err := l.skipBalancedUnit('(', ')', &depth); err != nil {
				return err
			}
		}
		if arith {
			// the arithmetic form needs a second closing paren.
			if l.eof() {
				return l.pushIncomplete(mode, "$((")
			}
			if l.peek() == ')' {
				l.advance()
			}
		}
		return nil
	case '{':
		l.advance()
		depth := 1
		for depth > 0 {
			if l.eof() {
				return l.pushIncomplete(InParamExpansion, "${")
			}
			if err := l.skipBalancedUnit('{', '}', &depth); err != nil {
				return err
			}
		}
		return nil
	default:
		return nil
	}
}

// skipBalancedUnit consumes one lexical unit while tracking depth against
// open/close, correctly stepping over nested quotes and nested $-spans so
// their contents never confuse the depth count.
func (l *Lexer) skipBalancedUnit(open, close byte, depth *int) error {
	switch l.peek() {
	case open:
		*depth++
		l.advance()
	case close:
		*depth--
		l.advance()
	case '\'':
		l.advance()
		for !l.eof() && l.peek() != '\'' {
			l.advance()
		}
		if l.eof() {
			return l.pushIncomplete(InSingleQuote, "'")
		}
		l.advance()
	case '"':
		l.advance()
		if err := l.skipDoubleQuoteBody(); err != nil {
			return err
		}
	case '`':
		if err := l.skipBacktickSpan(); err != nil {
			return err
		}
	case '\\':
		l.advance()
		if !l.eof() {
			l.advance()
		}
	case '$':
		if l.peekAt(1) == '(' || l.peekAt(1) == '{' {
			return l.skipOpaqueDollarSpan()
		}
		l.advance()
	default:
		l.advance()
	}
	return nil
}
