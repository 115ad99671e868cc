// Package shellkit wires seven core components (tokenizer, parser,
// pattern engine, expansion engine, completion engine, shell state,
// predicate evaluator) into one interactive interpreter, and adds the
// single-process execution layer that drives their "external
// collaborators": builtins, external command spawning, and redirection.
package shellkit

import (
	"context"
	"os"
	"strings"

	"github.com/reeflective/shellkit/internal/ast"
	"github.com/reeflective/shellkit/internal/builtins"
	"github.com/reeflective/shellkit/internal/complete"
	"github.com/reeflective/shellkit/internal/expand"
	"github.com/reeflective/shellkit/internal/parser"
	"github.com/reeflective/shellkit/internal/predicate"
	"github.com/reeflective/shellkit/internal/state"
)

// Shell bundles shared state with one instance of every component that
// reads or mutates it.
type Shell struct {
	State     *state.State
	Expand    *expand.Expander
	Predicate *predicate.Evaluator
	Complete  *complete.Engine
	Builtins  *builtins.Registry

	Stdin  *os.File
	Stdout *os.File
	Stderr *os.File
}

// New builds a Shell seeded from the process environment.
func New() *Shell {
	st := state.New(
		state.WithOption(state.OptExpandAliases, true),
	)
	if wd, err := os.Getwd(); err == nil {
		st.WorkingDir = wd
	}
	st.Umask = 0o022

	ex := expand.NewExpander(st, nil)

	sh := &Shell{
		State:     st,
		Expand:    ex,
		Predicate: predicate.New(st, ex),
		Stdin:     os.Stdin,
		Stdout:    os.Stdout,
		Stderr:    os.Stderr,
	}
	ex.Runner = sh
	sh.Builtins = builtins.NewRegistry()
	sh.Complete = complete.New(st, ex, sh, sh)

	sh.seedEnv()
	return sh
}

func (sh *Shell) seedEnv() {
	for _, kv := range os.Environ() {
		name, value, found := strings.Cut(kv, "=")
		if !found {
			continue
		}
		_ = sh.State.UpdateOrAdd(name, state.NewScalar(value), "", state.Anywhere, state.AssignGlobal)
		if v, ok := sh.State.Lookup(name, state.Anywhere); ok {
			v.Attributes.Exported = true
		}
	}
	if _, ok := sh.State.Lookup("IFS", state.Anywhere); !ok {
		_ = sh.State.UpdateOrAdd("IFS", state.NewScalar(" \t\n"), "", state.Anywhere, state.AssignGlobal)
	}
	if _, ok := sh.State.Lookup("PS1", state.Anywhere); !ok {
		_ = sh.State.UpdateOrAdd("PS1", state.NewScalar("\\s-\\v\\$ "), "", state.Anywhere, state.AssignGlobal)
	}
	if _, ok := sh.State.Lookup("PS2", state.Anywhere); !ok {
		_ = sh.State.UpdateOrAdd("PS2", state.NewScalar("> "), "", state.Anywhere, state.AssignGlobal)
	}
	_ = sh.State.UpdateOrAdd("PWD", state.NewScalar(sh.State.WorkingDir), "", state.Anywhere, state.AssignGlobal)
}

// ParseLine runs C1+C2 over src,
// reporting incompleteness the way a line editor needs to: the caller
// should keep appending lines and re-parsing while IsIncomplete(err) is
// true.
func (sh *Shell) ParseLine(src string) (*ast.Program, error) {
	if !sh.State.Options.Get(state.OptExpandAliases) {
		return parser.Parse(src)
	}
	return parser.ParseWithAliases(src, sh.State.Aliases)
}

// IsIncomplete reports whether err is the parser/tokenizer's "needs more
// input" signal, the condition a line editor uses to keep reading
// continuation lines instead of reporting a syntax error.
func IsIncomplete(err error) bool {
	return isIncompleteErr(err)
}

// GetCompletions is the public entrypoint for completion:
// line, cursor in; {start, candidates, options} out.
func (sh *Shell) GetCompletions(ctx context.Context, line string, cursor int) complete.Result {
	return sh.Complete.GetCompletions(ctx, line, cursor)
}
