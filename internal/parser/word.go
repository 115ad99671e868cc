package parser

import (
	"strings"

	"github.com/reeflective/shellkit/internal/ast"
)

// buildWord converts a tokenizer Token's raw QuotedRun pieces into a full
// Word AST. The tokenizer deliberately leaves this to the parser (see
// internal/token/word.go doc comment): it only records where a word's
// top-level quoting context changes and where opaque $()/${}/`` spans sit,
// and the parser re-scans the run text to build ParameterExpansion,
// CommandSubstitution, ArithmeticExpansion, TildePrefix, and
// BraceExpansionPiece nodes.
func buildWord(tok ast.Token) (*ast.Word, error) {
	word := &ast.Word{Loc: tok.Loc}

	for _, run := range tok.Pieces {
		pieces, err := buildRunPieces(run)
		if err != nil {
			return nil, err
		}
		word.Pieces = append(word.Pieces, pieces...)
	}

	return word, nil
}

func buildRunPieces(run ast.QuotedRun) ([]ast.WordPiece, error) {
	switch run.Quote {
	case ast.SingleQuoted:
		// run.Text is "'...'" including both quote characters.
		inner := run.Text
		if len(inner) >= 2 {
			inner = inner[1 : len(inner)-1]
		}
		return []ast.WordPiece{ast.SingleQuotedPiece{Text: inner}}, nil

	case ast.DollarSingleQuoted:
		// run.Text is "$'...'".
		inner := run.Text
		if len(inner) >= 3 {
			inner = inner[2 : len(inner)-1]
		}
		return []ast.WordPiece{ast.DollarSingleQuotedPiece{Text: resolveAnsiCEscapes(inner)}}, nil

	case ast.DoubleQuoted:
		// run.Text is "\"...\"".
		inner := run.Text
		if len(inner) >= 2 {
			inner = inner[1 : len(inner)-1]
		}
		innerPieces, err := scanDollarConstructs(inner, false, false)
		if err != nil {
			return nil, err
		}
		return []ast.WordPiece{ast.DoubleQuotedPiece{Pieces: innerPieces}}, nil

	default: // Unquoted
		return scanDollarConstructs(run.Text, true, true)
	}
}

func wordFromText(s string, allowBrace, allowTilde bool) (*ast.Word, error) {
	pieces, err := scanDollarConstructs(s, allowBrace, allowTilde)
	if err != nil {
		return nil, err
	}
	return &ast.Word{Pieces: pieces}, nil
}

func isSpecialParamByte(c byte) bool {
	return c >= '0' && c <= '9' || strings.IndexByte("@*#?-$!", c) >= 0
}

// scanDollarConstructs walks unquoted (or double-quoted, with allowBrace
// and allowTilde both false) text, extracting parameter expansions,
// command/arithmetic substitutions, and — when enabled — tilde prefixes and
// brace-expansion groups, coalescing everything else into Literal runs.
func scanDollarConstructs(s string, allowBrace, allowTilde bool) ([]ast.WordPiece, error) {
	var pieces []ast.WordPiece
	var lit strings.Builder
	flushLit := func() {
		if lit.Len() > 0 {
			pieces = append(pieces, ast.Literal{Text: lit.String()})
			lit.Reset()
		}
	}

	n := len(s)
	i := 0

	if allowTilde && n > 0 && s[0] == '~' {
		j := 1
		for j < n && s[j] != '/' && s[j] != ':' {
			j++
		}
		if j == n || s[j] == '/' {
			pieces = append(pieces, ast.TildePrefix{User: s[1:j]})
			i = j
		}
	}

	for i < n {
		c := s[i]
		switch {
		case c == '\\':
			lit.WriteByte(c)
			i++
			if i < n {
				lit.WriteByte(s[i])
				i++
			}

		case c == '$' && i+1 < n && s[i+1] == '(':
			flushLit()
			end, arith, err := scanDollarParenSpan(s, i)
			if err != nil {
				return nil, err
			}
			if arith {
				inner := s[i+3 : end-2]
				pieces = append(pieces, ast.ArithmeticExpansion{Expr: inner})
			} else {
				inner := s[i+2 : end-1]
				prog, perr := ParseSubstitution(inner)
				if perr != nil {
					return nil, perr
				}
				pieces = append(pieces, ast.CommandSubstitution{Program: prog})
			}
			i = end

		case c == '$' && i+1 < n && s[i+1] == '{':
			flushLit()
			end, err := findBalanced(s, i+1, '{', '}')
			if err != nil {
				return nil, err
			}
			spec, serr := parseParamSpec(s[i+2 : end-1])
			if serr != nil {
				return nil, serr
			}
			pieces = append(pieces, ast.ParameterExpansion{Spec: *spec})
			i = end

		case c == '$' && i+1 < n && isNameStartByte(s[i+1]):
			flushLit()
			j := i + 1
			for j < n && isNameByte(s[j]) {
				j++
			}
			pieces = append(pieces, ast.ParameterExpansion{
				Spec: ast.ParameterExpansionSpec{Name: s[i+1 : j], Op: ast.ParamPlain},
			})
			i = j

		case c == '$' && i+1 < n && isSpecialParamByte(s[i+1]):
			flushLit()
			pieces = append(pieces, ast.ParameterExpansion{
				Spec: ast.ParameterExpansionSpec{Name: string(s[i+1]), Op: ast.ParamPlain},
			})
			i += 2

		case c == '`':
			flushLit()
			end, inner, err := findBacktickSpan(s, i)
			if err != nil {
				return nil, err
			}
			prog, perr := ParseSubstitution(unescapeBacktick(inner))
			if perr != nil {
				return nil, perr
			}
			pieces = append(pieces, ast.CommandSubstitution{Program: prog, Backtick: true})
			i = end

		case allowBrace && c == '{':
			if end, err := findBalanced(s, i, '{', '}'); err == nil {
				if alts, ok := tryBraceExpansion(s[i+1 : end-1]); ok {
					flushLit()
					parts := make([]*ast.Word, len(alts))
					for k, alt := range alts {
						w, werr := wordFromText(alt, allowBrace, allowTilde)
						if werr != nil {
							return nil, werr
						}
						parts[k] = w
					}
					pieces = append(pieces, ast.BraceExpansionPiece{Parts: parts})
					i = end
					continue
				}
			}
			lit.WriteByte(c)
			i++

		default:
			lit.WriteByte(c)
			i++
		}
	}

	flushLit()
	return pieces, nil
}

var ansiCEscapes = map[byte]byte{
	'a': '\a', 'b': '\b', 'e': 0x1b, 'f': '\f', 'n': '\n',
	'r': '\r', 't': '\t', 'v': '\v', '\\': '\\', '\'': '\'', '"': '"',
}

// resolveAnsiCEscapes interprets $'...' backslash escapes. The tokenizer
// only validates that each escape is well-formed (internal/token/word.go);
// resolving them to their literal bytes is left to the parser since it
// owns the rest of word-piece construction.
func resolveAnsiCEscapes(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 >= len(s) {
			b.WriteByte(s[i])
			continue
		}
		next := s[i+1]
		if r, ok := ansiCEscapes[next]; ok {
			b.WriteByte(r)
			i++
			continue
		}
		if next == '0' {
			j := i + 2
			val := 0
			for k := 0; k < 3 && j < len(s) && s[j] >= '0' && s[j] <= '7'; k++ {
				val = val*8 + int(s[j]-'0')
				j++
			}
			b.WriteByte(byte(val))
			i = j - 1
			continue
		}
		b.WriteByte('\\')
	}
	return b.String()
}
