// Package builtins implements the builtin interface: an ExecutionContext
// plus a typed BuiltinResult, and a reference set of builtins (cd, exit,
// umask, type, declare, continue/break) alongside the full completion-configuration
// surface (complete/compgen/compopt). Every other builtin (job control,
// history, …) is the surrounding shell's concern, not the core's — builtins
// are an external collaborator reachable only through this interface.
package builtins

import (
	"io"

	"github.com/reeflective/shellkit/internal/complete"
	"github.com/reeflective/shellkit/internal/expand"
	"github.com/reeflective/shellkit/internal/state"
)

// ExecutionContext is what every builtin receives: shared
// shell state, its own I/O streams, and its already-expanded argument
// vector (Args[0] is the builtin's own name, matching argv convention).
type ExecutionContext struct {
	Shell    *state.State
	Expand   *expand.Expander
	Complete *complete.Engine

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	Args []string
}

// ResultKind discriminates BuiltinResult's variant.
type ResultKind int

const (
	Success ResultKind = iota
	Custom
	InvalidUsage
	ExitShell
	ReturnFromFunction
	BreakLoop
	ContinueLoop
	Unimplemented
)

// BuiltinResult is the value every builtin returns: one of eight
// variants, each here carrying its associated code where applicable.
// Loop-control variants encode nesting depth as n-1, so
// `continue 1` is BuiltinResult{Kind: ContinueLoop, Code: 0}.
type BuiltinResult struct {
	Kind ResultKind
	Code uint8
}

func ok() BuiltinResult                { return BuiltinResult{Kind: Success} }
func custom(n uint8) BuiltinResult     { return BuiltinResult{Kind: Custom, Code: n} }
func usage() BuiltinResult             { return BuiltinResult{Kind: InvalidUsage, Code: 2} }
func exitWith(n uint8) BuiltinResult   { return BuiltinResult{Kind: ExitShell, Code: n} }
func returnWith(n uint8) BuiltinResult { return BuiltinResult{Kind: ReturnFromFunction, Code: n} }
func breakLoop(n uint8) BuiltinResult  { return BuiltinResult{Kind: BreakLoop, Code: n} }
func continueLoop(n uint8) BuiltinResult {
	return BuiltinResult{Kind: ContinueLoop, Code: n}
}

// Func is a builtin's implementation.
type Func func(ctx *ExecutionContext) BuiltinResult

// Registry maps a builtin name to its implementation, the way the
// teacher's command tree maps a verb to a Commander (request.go/
// response.go's typed request/response shape, here collapsed to one
// function per builtin since the core has no subcommand tree of its own).
type Registry struct {
	funcs map[string]Func
}

// NewRegistry builds a registry carrying every builtin this package
// implements.
func NewRegistry() *Registry {
	r := &Registry{funcs: map[string]Func{}}
	r.register("cd", builtinCd)
	r.register("exit", builtinExit)
	r.register("umask", builtinUmask)
	r.register("type", builtinType)
	r.register("declare", builtinDeclare)
	r.register("continue", builtinContinue)
	r.register("break", builtinBreak)
	r.register("complete", builtinComplete)
	r.register("compgen", builtinCompgen)
	r.register("compopt", builtinCompopt)
	return r
}

func (r *Registry) register(name string, fn Func) { r.funcs[name] = fn }

// Lookup reports whether name is a recognized builtin and returns it.
func (r *Registry) Lookup(name string) (Func, bool) {
	fn, ok := r.funcs[name]
	return fn, ok
}

// Names lists every registered builtin name, for `type`/completion.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		out = append(out, name)
	}
	return out
}

// Run dispatches to the named builtin, or Unimplemented if unknown (spec
// §7 "Unimplemented propagates as a visible builtin failure with exit
// code 2").
func (r *Registry) Run(ctx *ExecutionContext) BuiltinResult {
	if len(ctx.Args) == 0 {
		return usage()
	}
	fn, found := r.Lookup(ctx.Args[0])
	if !found {
		return BuiltinResult{Kind: Unimplemented, Code: 2}
	}
	return fn(ctx)
}
