// Package expand implements the word-expansion engine: brace, tilde, parameter, arithmetic, command substitution, word
// splitting, pathname expansion, and quote removal, applied to a word's AST
// in the documented order.
package expand

import (
	"fmt"
	"os/user"
	"strings"

	"github.com/reeflective/shellkit/internal/ast"
	shellerrors "github.com/reeflective/shellkit/internal/errors"
	"github.com/reeflective/shellkit/internal/pattern"
	"github.com/reeflective/shellkit/internal/state"
)

// ProgramRunner evaluates a command-substitution or process-substitution
// program and captures its output. The expansion engine treats program
// execution as an external collaborator rather than running it directly.
type ProgramRunner interface {
	RunProgram(prog *ast.Program) (stdout string, err error)
}

// Expander applies the six expansion phases to word ASTs against one
// shell state.
type Expander struct {
	State    *state.State
	Runner   ProgramRunner
	Args     []string // $1, $2, ... / $@ / $* / $#
	Name     string   // $0
	Pid      func() int
	BgPid    string // $!, empty if no background job tracked
}

// NewExpander builds an Expander over shell state, with runner backing
// command/process substitution.
func NewExpander(st *state.State, runner ProgramRunner) *Expander {
	return &Expander{State: st, Runner: runner}
}

// ifs reads $IFS, defaulting to " \t\n".
func (e *Expander) ifs() string {
	if v, ok := e.State.Lookup("IFS", state.Anywhere); ok && v.Value.Kind == state.ScalarValue {
		return v.Value.Scalar
	}
	return " \t\n"
}

// ifsFirstOrSpace is the separator "$*" and unquoted array-to-scalar joins
// use: the first character of IFS (a space when IFS is unset, since the
// default IFS starts with one), or "" when IFS is set to the empty string,
// in which case the caller chooses the separator.
func (e *Expander) ifsFirstOrSpace() string {
	ifs := e.ifs()
	if ifs == "" {
		return ""
	}
	return string(ifs[0])
}

func (e *Expander) extGlob() bool { return e.State.Options.Get(state.OptExtendedGlobbing) }

// ExpandWord runs the full expansion pipeline over one word, returning the
// resulting fields (possibly more than one, from splitting or pathname
// expansion; possibly zero, from nullglob).
func (e *Expander) ExpandWord(w *ast.Word) ([]string, error) {
	if w == nil {
		return nil, nil
	}

	var out []string
	for _, seq := range braceExpand(w.Pieces) {
		resolved, err := e.resolveTilde(seq)
		if err != nil {
			return nil, err
		}
		runs, err := e.buildRuns(resolved, false)
		if err != nil {
			return nil, err
		}
		for _, field := range e.splitFields(runs, e.ifs()) {
			expanded, err := e.pathnameExpand(field)
			if err != nil {
				return nil, err
			}
			out = append(out, expanded...)
		}
	}
	return out, nil
}

// ExpandWords expands a sequence of words in order, concatenating their
// resulting fields — the shape a SimpleCommand's Words list needs.
func (e *Expander) ExpandWords(words []*ast.Word) ([]string, error) {
	var out []string
	for _, w := range words {
		fields, err := e.ExpandWord(w)
		if err != nil {
			return nil, err
		}
		out = append(out, fields...)
	}
	return out, nil
}

// ExpandBasic performs tilde, parameter, command, and arithmetic expansion
// plus quote removal, but never splits on IFS and never globs — the "basic
// expansion" the extended-test evaluator applies to both test operands
// and the form assignment right-hand sides use.
func (e *Expander) ExpandBasic(w *ast.Word) (string, error) {
	if w == nil {
		return "", nil
	}
	resolved, err := e.resolveTilde(w.Pieces)
	if err != nil {
		return "", err
	}
	runs, err := e.buildRuns(resolved, false)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for i, r := range runs {
		if r.fieldBreak {
			if i != 0 {
				b.WriteString(e.ifsFirstOrSpace())
				if e.ifsFirstOrSpace() == "" {
					b.WriteByte(' ')
				}
			}
			continue
		}
		b.WriteString(r.text)
	}
	return b.String(), nil
}

// ExpandPattern performs the same phases as ExpandBasic, but produces a
// pattern *source string* suitable for pattern.Compile instead of a plain
// value: quoted runs are escaped so their content can never act as a glob
// metacharacter, unquoted runs are passed through pattern-active (spec
// §4.6 "the right-hand side is expanded as a pattern ... this distinction
// is observable and mandatory").
func (e *Expander) ExpandPattern(w *ast.Word) (string, error) {
	if w == nil {
		return "", nil
	}
	resolved, err := e.resolveTilde(w.Pieces)
	if err != nil {
		return "", err
	}
	runs, err := e.buildRuns(resolved, false)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, r := range runs {
		if r.fieldBreak {
			b.WriteByte(' ')
			continue
		}
		if r.quoted {
			b.WriteString(escapeGlobMeta(r.text))
		} else {
			b.WriteString(r.text)
		}
	}
	return b.String(), nil
}

// resolveTilde implements tilde expansion: a leading TildePrefix piece
// expands to $HOME / ~user's home / $PWD / $OLDPWD. Only pieces[0] is
// handled here; internal/parser/word.go also emits TildePrefix at the start
// of later unquoted runs and brace alternatives, and buildRuns expands
// those.
func (e *Expander) resolveTilde(pieces []ast.WordPiece) ([]ast.WordPiece, error) {
	if len(pieces) == 0 {
		return pieces, nil
	}
	tp, ok := pieces[0].(ast.TildePrefix)
	if !ok {
		return pieces, nil
	}
	value, err := e.tildeValue(tp.User)
	if err != nil {
		return nil, err
	}
	out := make([]ast.WordPiece, len(pieces))
	copy(out, pieces)
	out[0] = ast.Literal{Text: value}
	return out, nil
}

func (e *Expander) tildeValue(user_ string) (string, error) {
	switch user_ {
	case "":
		if v, ok := e.State.Lookup("HOME", state.Anywhere); ok && v.Value.Kind == state.ScalarValue {
			return v.Value.Scalar, nil
		}
		return "", nil
	case "+":
		return e.State.WorkingDir, nil
	case "-":
		return e.State.OldWorkingDir, nil
	default:
		u, err := user.Lookup(user_)
		if err != nil {
			// Unknown user: bash leaves the tilde-prefix unexpanded rather
			// than failing the whole word.
			return "~" + user_, nil
		}
		return u.HomeDir, nil
	}
}

// run is one contiguous span of already-escape-resolved text contributing
// to a word's expansion. quoted marks spans that must never be split on
// IFS or treated as glob-active. fieldBreak is a zero-width hard field boundary, used only for
// the unquoted "$@" / "${arr[@]}" special case.
type run struct {
	text       string
	quoted     bool
	fieldBreak bool
}

// buildRuns walks a (brace- and tilde-resolved) piece list, performing
// parameter/command/arithmetic expansion and lowering
// every piece to a flat run sequence. quoted is true while recursing into
// a DoubleQuotedPiece's own pieces.
func (e *Expander) buildRuns(pieces []ast.WordPiece, quoted bool) ([]run, error) {
	var runs []run
	for _, p := range pieces {
		switch v := p.(type) {
		case ast.Literal:
			if quoted {
				runs = append(runs, run{text: unescapeDoubleQuoted(v.Text), quoted: true})
			} else {
				runs = append(runs, splitEscapesForUnquoted(v.Text)...)
			}

		case ast.SingleQuotedPiece:
			runs = append(runs, run{text: v.Text, quoted: true})

		case ast.DollarSingleQuotedPiece:
			runs = append(runs, run{text: v.Text, quoted: true})

		case ast.DoubleQuotedPiece:
			inner, err := e.buildRuns(v.Pieces, true)
			if err != nil {
				return nil, err
			}
			runs = append(runs, inner...)

		case ast.ParameterExpansion:
			sc, list, isList, _, err := e.expandParameter(v.Spec, quoted)
			if err != nil {
				return nil, err
			}
			if isList {
				// "$@"/"${arr[@]}": quoted, each element is its own
				// immune-to-splitting field; unquoted, each element starts
				// its own field but remains subject to IFS splitting and
				// globbing, same as any other unquoted text.
				for i, el := range list {
					if i > 0 {
						runs = append(runs, run{fieldBreak: true})
					}
					runs = append(runs, run{text: el, quoted: quoted})
				}
			} else {
				runs = append(runs, run{text: sc, quoted: quoted})
			}

		case ast.ArithmeticExpansion:
			val, err := e.EvalArithmetic(v.Expr)
			if err != nil {
				return nil, err
			}
			runs = append(runs, run{text: fmt.Sprintf("%d", val), quoted: quoted})

		case ast.CommandSubstitution:
			out, err := e.runCommandSubstitution(v)
			if err != nil {
				return nil, err
			}
			runs = append(runs, run{text: out, quoted: quoted})

		case ast.TildePrefix:
			// Only reachable for a tilde that wasn't in prefix position
			// (e.g. produced by a nested brace alternative); expand it the
			// same way but never split it from the rest of the run.
			val, err := e.tildeValue(v.User)
			if err != nil {
				return nil, err
			}
			runs = append(runs, run{text: val, quoted: quoted})

		case ast.BraceExpansionPiece:
			// braceExpand already eliminates these at the top level; a
			// nested one reaching here (via a non-top-level word) is
			// expanded against its first alternative defensively.
			if len(v.Parts) > 0 {
				sub, err := e.buildRuns(v.Parts[0].Pieces, quoted)
				if err != nil {
					return nil, err
				}
				runs = append(runs, sub...)
			}
		}
	}
	return runs, nil
}

func (e *Expander) runCommandSubstitution(cs ast.CommandSubstitution) (string, error) {
	if e.Runner == nil {
		return "", fmt.Errorf("%w: no program runner configured", shellerrors.ErrCommandSubstitution)
	}
	out, err := e.Runner.RunProgram(cs.Program)
	if err != nil {
		return "", fmt.Errorf("%w: %v", shellerrors.ErrCommandSubstitution, err)
	}
	return strings.TrimRight(out, "\n"), nil
}

// splitEscapesForUnquoted turns raw unquoted literal source text (still
// carrying the tokenizer's unresolved backslash escapes) into runs: each
// backslash-escaped character becomes its own one-rune quoted run (so it
// can never be treated as an IFS separator or glob metacharacter), and the
// text between escapes stays an unquoted run.
func splitEscapesForUnquoted(s string) []run {
	var runs []run
	var buf strings.Builder
	flush := func() {
		if buf.Len() > 0 {
			runs = append(runs, run{text: buf.String(), quoted: false})
			buf.Reset()
		}
	}
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' {
			flush()
			if i+1 < len(s) {
				runs = append(runs, run{text: string(s[i+1]), quoted: true})
				i++
			} else {
				runs = append(runs, run{text: "\\", quoted: true})
			}
			continue
		}
		buf.WriteByte(s[i])
	}
	flush()
	return runs
}

// unescapeDoubleQuoted resolves the narrower backslash-escape set valid
// inside "...":
// only \$ \` \" \\ and a trailing \<newline> are escapes; any other
// backslash is literal.
func unescapeDoubleQuoted(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			switch s[i+1] {
			case '$', '`', '"', '\\':
				b.WriteByte(s[i+1])
				i++
				continue
			case '\n':
				i++
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// escapeGlobMeta backslash-escapes every pattern-engine metacharacter (and
// any literal backslash) so the result is always a literal match in
// pattern.Compile — used to neutralize quoted runs before they enter a
// glob source string.
func escapeGlobMeta(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '\\', '*', '?', '[', ']', '@', '!', '+', '(', ')', '|':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// isIFSWhitespace reports whether c is one of the three whitespace
// characters bash's splitting recognizes specially, and that it is
// actually present in ifs (a custom IFS without a space means space is not
// whitespace for splitting purposes).
func isIFSWhitespace(c byte, ifs string) bool {
	return (c == ' ' || c == '\t' || c == '\n') && strings.IndexByte(ifs, c) >= 0
}

// splitFields applies word splitting to a run
// sequence, returning one []run per resulting field. Quoted runs are
// never split and pass through whole; unquoted runs are scanned for IFS
// characters, with runs of IFS whitespace collapsing and non-whitespace
// IFS characters always producing a field boundary.
func (e *Expander) splitFields(runs []run, ifs string) [][]run {
	var fields [][]run
	var cur []run
	started := false
	flush := func(force bool) {
		if started || force {
			fields = append(fields, cur)
		}
		cur = nil
		started = false
	}

	for _, r := range runs {
		if r.fieldBreak {
			flush(true)
			continue
		}
		if r.quoted {
			cur = append(cur, r)
			started = true
			continue
		}
		if ifs == "" {
			if r.text != "" {
				cur = append(cur, run{text: r.text})
				started = true
			}
			continue
		}
		text := r.text
		i := 0
		for i < len(text) {
			c := text[i]
			if strings.IndexByte(ifs, c) >= 0 {
				if isIFSWhitespace(c, ifs) {
					if started {
						flush(false)
					}
					i++
					for i < len(text) && isIFSWhitespace(text[i], ifs) {
						i++
					}
					continue
				}
				flush(true)
				i++
				continue
			}
			j := i
			for j < len(text) && strings.IndexByte(ifs, text[j]) < 0 {
				j++
			}
			cur = append(cur, run{text: text[i:j]})
			started = true
			i = j
		}
	}
	flush(false)

	if len(fields) == 0 {
		fields = [][]run{nil}
	}
	return fields
}

// pathnameExpand applies pathname expansion (honoring
// noglob/nullglob/failglob/dotglob) and quote removal to one split field.
func (e *Expander) pathnameExpand(field []run) ([]string, error) {
	var lit, glob strings.Builder
	for _, r := range field {
		lit.WriteString(r.text)
		if r.quoted {
			glob.WriteString(escapeGlobMeta(r.text))
		} else {
			glob.WriteString(r.text)
		}
	}
	literal := lit.String()

	if e.State.Options.Get(state.OptNoglob) {
		return []string{literal}, nil
	}

	opts := pattern.ExpandOptions{Dotglob: e.State.Options.Get(state.OptDotglob)}
	matches, err := pattern.ExpandPaths(glob.String(), e.extGlob(), e.State.WorkingDir, opts)
	if err != nil {
		if e.State.Options.Get(state.OptFailglob) {
			return nil, err
		}
		return []string{literal}, nil
	}
	if len(matches) == 0 {
		if e.State.Options.Get(state.OptFailglob) {
			return nil, fmt.Errorf("%w: no match: %s", shellerrors.ErrPatternCompile, literal)
		}
		if e.State.Options.Get(state.OptNullglob) {
			return nil, nil
		}
		return []string{literal}, nil
	}
	return matches, nil
}
