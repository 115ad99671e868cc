// Package complete implements the completion engine: tokenizing the line up to the cursor, selecting a registered spec,
// merging candidate actions in a fixed order, and post-processing the
// result.
package complete

import (
	"context"
	"sort"
	"strings"

	"github.com/reeflective/shellkit/internal/ast"
	"github.com/reeflective/shellkit/internal/expand"
	"github.com/reeflective/shellkit/internal/pattern"
	"github.com/reeflective/shellkit/internal/state"
	"github.com/reeflective/shellkit/internal/token"
)

// Result is the return value of a GetCompletions call -> {start, candidates,
// options}`).
type Result struct {
	Start      int
	Candidates []string
	Options    map[state.CompletionOption]bool
}

// FunctionRunner invokes a shell function for function-sourced completion
// (§4.5 step 4 "function_name"), after COMP_* variables have been set on
// shared state, and reads back COMPREPLY as the candidate list.
type FunctionRunner interface {
	RunFunction(name string, args []string) error
}

// Engine holds what GetCompletions needs across calls: shell state (for
// the completion registry and variable-backed actions), an expander (for
// glob_pattern/filter_pattern evaluation and the $PATH/variable sources),
// and the collaborators for the two suspension points bash documents for
// completion (function invocation, external command execution).
type Engine struct {
	State    *state.State
	Expand   *expand.Expander
	Runner   expand.ProgramRunner
	Function FunctionRunner
}

// New builds a completion Engine sharing state with the rest of the
// interpreter.
func New(st *state.State, ex *expand.Expander, runner expand.ProgramRunner, fn FunctionRunner) *Engine {
	return &Engine{State: st, Expand: ex, Runner: runner, Function: fn}
}

// GetCompletions runs the full completion algorithm. ctx carries the
// cooperative cancellation signal: if ctx is done at any suspension
// point, the call returns a well-formed empty result with Start = cursor
// rather than a partial one.
func (e *Engine) GetCompletions(ctx context.Context, line string, cursor int) Result {
	select {
	case <-ctx.Done():
		return Result{Start: cursor}
	default:
	}

	if cursor > len(line) {
		cursor = len(line)
	}
	prefix := line[:cursor]

	tokRes, _ := token.Tokenize(prefix)
	word, index, start := currentWord(tokRes.Tokens, cursor)

	commandName := commandNameAt(tokRes.Tokens, index)
	spec := e.selectSpec(index, commandName, strings.TrimSpace(line) == "")

	var candidates []string
	if spec != nil {
		opts := e.State.Completions.PushCurrent(spec)
		defer e.State.Completions.PopCurrent()

		candidates = e.gatherActions(ctx, spec)
		candidates = append(candidates, e.gatherGenerators(ctx, spec, word)...)

		if ctx.Err() != nil {
			return Result{Start: cursor}
		}

		if spec.Filter != nil {
			candidates = e.applyFilter(candidates, spec.Filter)
		}

		candidates = prefixFilter(candidates, word)

		if spec.Prefix != "" || spec.Suffix != "" {
			for i, c := range candidates {
				candidates[i] = spec.Prefix + c + spec.Suffix
			}
		}

		if !opts.Options[state.OptNosort] {
			sort.Strings(candidates)
		}
	} else {
		candidates = prefixFilter(e.fallbackFiles(), word)
		sort.Strings(candidates)
	}

	select {
	case <-ctx.Done():
		return Result{Start: cursor}
	default:
	}

	var opts map[state.CompletionOption]bool
	if spec != nil {
		opts = spec.Options
	}
	return Result{Start: start, Candidates: candidates, Options: opts}
}

// currentWord finds the token under the cursor (the last TokWord token of
// prefix, if prefix does not end mid-separator), its zero-based word index
// within the tokens, and its starting byte offset. A prefix ending in
// whitespace/an operator means the cursor sits on a not-yet-started empty
// word, positioned right at cursor.
func currentWord(tokens []ast.Token, cursor int) (raw string, index, start int) {
	wordIdx := -1
	var lastWord *ast.Token
	for i := range tokens {
		if tokens[i].Kind == ast.TokWord {
			wordIdx++
			lastWord = &tokens[i]
		}
	}

	if lastWord == nil || lastWord.Loc.Offset+rawLen(*lastWord) != cursor {
		return "", wordIdx + 1, cursor
	}
	return rawText(*lastWord), wordIdx, lastWord.Loc.Offset
}

func rawText(t ast.Token) string {
	var b strings.Builder
	for _, r := range t.Pieces {
		b.WriteString(r.Text)
	}
	return b.String()
}

func rawLen(t ast.Token) int { return len(rawText(t)) }

// commandNameAt returns the literal first word of the line, or "" if
// wordIndex is itself 0 (no command word yet). Command separators are not
// considered: on a line holding several commands, the first command's
// name is returned whichever command contains wordIndex.
func commandNameAt(tokens []ast.Token, wordIndex int) string {
	if wordIndex <= 0 {
		return ""
	}
	count := -1
	for i := range tokens {
		if tokens[i].Kind != ast.TokWord {
			continue
		}
		count++
		if count == 0 {
			return rawText(tokens[i])
		}
	}
	return ""
}

// selectSpec picks the registered CompletionSpec for the word under the
// cursor in fixed priority order: initial word, then per-command spec,
// then the empty-line spec when the line is empty, then the default spec.
func (e *Engine) selectSpec(wordIndex int, commandName string, lineEmpty bool) *state.CompletionSpec {
	reg := e.State.Completions
	if wordIndex == 0 && reg.InitialWord != nil {
		return reg.InitialWord
	}
	if commandName != "" {
		if spec, ok := reg.PerCommand[commandName]; ok {
			return spec
		}
	}
	if lineEmpty && reg.EmptyLine != nil {
		return reg.EmptyLine
	}
	if reg.Default != nil {
		return reg.Default
	}
	return nil
}

func (e *Engine) fallbackFiles() []string {
	return e.filesIn(".", false)
}

func prefixFilter(candidates []string, prefix string) []string {
	out := candidates[:0:0]
	for _, c := range candidates {
		if strings.HasPrefix(c, prefix) {
			out = append(out, c)
		}
	}
	return dedupe(out)
}

// dedupe removes repeats while preserving the first-seen order, so callers
// that honor `nosort` (spec §5: "nosort suppresses the final sort but
// preserves this merge order") still see the §4.5-step-3 action merge
// order rather than an alphabetized one.
func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0:0]
	for _, c := range in {
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

func (e *Engine) applyFilter(candidates []string, f *state.FilterSpec) []string {
	p, err := pattern.Compile(f.Pattern, e.State.Options.Get(state.OptExtendedGlobbing))
	if err != nil {
		return candidates
	}
	var out []string
	for _, c := range candidates {
		matched := pattern.ExactlyMatches(p, c)
		if matched == f.Exclude {
			out = append(out, c)
		}
	}
	return out
}
