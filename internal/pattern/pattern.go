// Package pattern implements the shell glob / extended-glob pattern engine
//: compiling patterns to a small bytecode,
// matching strings against them, and expanding them against a filesystem.
package pattern

import (
	"fmt"

	shellerrors "github.com/reeflective/shellkit/internal/errors"
)

// opKind enumerates the pattern bytecode operations.
type opKind int

const (
	opLiteral opKind = iota
	opAny          // ?
	opStar         // *
	opClass        // [...] / [!...] / [^...]
	opGroupOpen    // start of ?(...) *(...) +(...) @(...) !(...)
	opAlt          // | inside a group
	opGroupClose
)

type groupKind int

const (
	groupZeroOrOne groupKind = iota // ?(...)
	groupZeroOrMore                  // *(...)
	groupOneOrMore                   // +(...)
	groupExactlyOne                  // @(...)
	groupNegate                       // !(...)
)

type op struct {
	kind    opKind
	literal string      // opLiteral
	class   charClass   // opClass
	group   groupKind   // opGroupOpen
}

type charClass struct {
	negate bool
	ranges []classRange
	posix  []string // POSIX class names like "alpha", "digit"
}

type classRange struct {
	lo, hi rune
}

// Pattern is a compiled glob or extended-glob pattern.
// Invariant: a Pattern compiled with extGlob=false never contains a
// opGroupOpen/opGroupClose opcode.
type Pattern struct {
	Source  string
	ExtGlob bool
	ops     []op
}

// Compile compiles src into a Pattern. When extGlob is false, extended-glob
// syntax (?(...) etc.) is treated as literal text, guaranteeing the
// no-group-opcodes invariant.
func Compile(src string, extGlob bool) (*Pattern, error) {
	c := &compiler{src: []rune(src), extGlob: extGlob}
	ops, err := c.compile()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", shellerrors.ErrPatternCompile, src, err)
	}
	return &Pattern{Source: src, ExtGlob: extGlob, ops: ops}, nil
}

type compiler struct {
	src     []rune
	pos     int
	extGlob bool
}

func (c *compiler) eof() bool { return c.pos >= len(c.src) }
func (c *compiler) peek() rune {
	if c.eof() {
		return 0
	}
	return c.src[c.pos]
}
func (c *compiler) peekAt(n int) rune {
	if c.pos+n >= len(c.src) {
		return 0
	}
	return c.src[c.pos+n]
}

func (c *compiler) compile() ([]op, error) {
	var ops []op
	for !c.eof() {
		switch c.peek() {
		case '\\':
			// Backslash escapes the next rune as a literal, matching bash's
			// own glob quoting rule (quote-escaped metacharacters passed
			// through by the expansion engine land here as \* \? \[ etc.).
			c.pos++
			if c.eof() {
				ops = append(ops, op{kind: opLiteral, literal: "\\"})
				break
			}
			ops = append(ops, op{kind: opLiteral, literal: string(c.peek())})
			c.pos++
		case '?':
			if c.extGlob && c.isExtGlobIntro('?') {
				grp, err := c.compileGroup(groupZeroOrOne)
				if err != nil {
					return nil, err
				}
				ops = append(ops, grp...)
				continue
			}
			ops = append(ops, op{kind: opAny})
			c.pos++
		case '*':
			if c.extGlob && c.isExtGlobIntro('*') {
				grp, err := c.compileGroup(groupZeroOrMore)
				if err != nil {
					return nil, err
				}
				ops = append(ops, grp...)
				continue
			}
			ops = append(ops, op{kind: opStar})
			c.pos++
		case '+':
			if c.extGlob && c.isExtGlobIntro('+') {
				grp, err := c.compileGroup(groupOneOrMore)
				if err != nil {
					return nil, err
				}
				ops = append(ops, grp...)
				continue
			}
			ops = append(ops, c.literalRune())
		case '@':
			if c.extGlob && c.isExtGlobIntro('@') {
				grp, err := c.compileGroup(groupExactlyOne)
				if err != nil {
					return nil, err
				}
				ops = append(ops, grp...)
				continue
			}
			ops = append(ops, c.literalRune())
		case '!':
			if c.extGlob && c.isExtGlobIntro('!') {
				grp, err := c.compileGroup(groupNegate)
				if err != nil {
					return nil, err
				}
				ops = append(ops, grp...)
				continue
			}
			ops = append(ops, c.literalRune())
		case '[':
			cls, ok, err := c.compileClass()
			if err != nil {
				return nil, err
			}
			if ok {
				ops = append(ops, op{kind: opClass, class: cls})
			} else {
				ops = append(ops, op{kind: opLiteral, literal: "["})
				c.pos++
			}
		default:
			ops = append(ops, c.literalRune())
		}
	}
	return ops, nil
}

func (c *compiler) literalRune() op {
	o := op{kind: opLiteral, literal: string(c.peek())}
	c.pos++
	return o
}

func (c *compiler) isExtGlobIntro(_ rune) bool {
	return c.peekAt(1) == '('
}

// compileGroup compiles `X(pat1|pat2|...)` into opGroupOpen, each
// alternative's ops, opAlt between them, opGroupClose.
func (c *compiler) compileGroup(kind groupKind) ([]op, error) {
	c.pos += 2 // the introducer char + '('
	ops := []op{{kind: opGroupOpen, group: kind}}
	depth := 1
	start := c.pos
	var alt []rune
	flush := func() error {
		sub, err := (&compiler{src: alt, extGlob: c.extGlob}).compile()
		if err != nil {
			return err
		}
		ops = append(ops, sub...)
		alt = nil
		return nil
	}
	for {
		if c.eof() {
			return nil, shellerrors.ErrUnbalancedGroup
		}
		switch c.peek() {
		case '(':
			depth++
			alt = append(alt, c.peek())
			c.pos++
		case ')':
			depth--
			c.pos++
			if depth == 0 {
				if err := flush(); err != nil {
					return nil, err
				}
				ops = append(ops, op{kind: opGroupClose})
				_ = start
				return ops, nil
			}
			alt = append(alt, ')')
		case '|':
			if depth == 1 {
				if err := flush(); err != nil {
					return nil, err
				}
				ops = append(ops, op{kind: opAlt})
				c.pos++
				continue
			}
			alt = append(alt, c.peek())
			c.pos++
		default:
			alt = append(alt, c.peek())
			c.pos++
		}
	}
}
