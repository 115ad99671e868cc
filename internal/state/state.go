package state

import (
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/reeflective/shellkit/internal/ast"
	shellerrors "github.com/reeflective/shellkit/internal/errors"
)

// State is the shell's full mutable state: scoped variables, aliases,
// functions, options, the completion registry, last exit status, umask,
// and working directory (§4.7).
//
// The core is single-threaded cooperative: State is mutably
// borrowed by whichever operation is in progress, never mutated
// concurrently. The mutex here only guards against accidental concurrent
// access from, e.g., a cancelled completion's goroutine racing the main
// loop — it is not a general-purpose concurrency mechanism.
type State struct {
	mu sync.Mutex

	vars        *scopeStack
	Aliases     map[string]string
	Functions   map[string]*ast.FunctionDef
	Options     *Options
	Completions *CompletionRegistry

	LastExitStatus uint8
	Umask          uint32
	WorkingDir     string
	OldWorkingDir  string

	validate *validator.Validate
}

// New constructs shell state with the given functional options applied to
// Options.
func New(opts ...Option) *State {
	return &State{
		vars:        newScopeStack(),
		Aliases:     map[string]string{},
		Functions:   map[string]*ast.FunctionDef{},
		Options:     newOptions(opts...),
		Completions: NewCompletionRegistry(),
		validate:    validator.New(),
	}
}

// PushScope enters a new local variable scope (function invocation entry).
func (s *State) PushScope() { s.mu.Lock(); defer s.mu.Unlock(); s.vars.push() }

// PopScope leaves the innermost local variable scope (function return).
func (s *State) PopScope() { s.mu.Lock(); defer s.mu.Unlock(); s.vars.pop() }

// Lookup reads a variable under the given lookup mode.
func (s *State) Lookup(name string, mode LookupMode) (*Variable, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vars.lookup(name, mode)
}

// UpdateOrAdd performs a validator-gated write`): if an existing
// variable in scope has a non-empty ValidateRule, or rule is non-empty, the
// new value is checked with go-playground/validator before being
// committed. A readonly target is rejected outright.
func (s *State) UpdateOrAdd(name string, value Value, rule string, mode LookupMode, scope AssignScope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.vars.lookup(name, mode)
	if ok && existing.Attributes.Readonly {
		return fmt.Errorf("%w: %s", shellerrors.ErrReadonly, name)
	}

	effectiveRule := rule
	if effectiveRule == "" && ok {
		effectiveRule = existing.Attributes.ValidateRule
	}

	if effectiveRule != "" && value.Kind == ScalarValue {
		if err := s.validate.Var(value.Scalar, effectiveRule); err != nil {
			return fmt.Errorf("%w: %s=%q: %v", shellerrors.ErrValidation, name, value.Scalar, err)
		}
	}

	attrs := Attributes{ValidateRule: effectiveRule}
	if ok {
		attrs = existing.Attributes
		attrs.ValidateRule = effectiveRule
	}

	target := s.vars.targetMap(scope)
	target[name] = &Variable{Value: value, Attributes: attrs}
	return nil
}

// Unset removes a variable from whichever scope it is found in.
func (s *State) Unset(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.vars.frames) - 1; i >= 0; i-- {
		if _, ok := s.vars.frames[i][name]; ok {
			delete(s.vars.frames[i], name)
			return
		}
	}
}

// ExportedNames lists every variable with the Exported attribute, for $PATH
// lookup and completion's "exported vars" action.
func (s *State) ExportedNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var names []string
	for _, frame := range s.vars.frames {
		for name, v := range frame {
			if v.Attributes.Exported {
				names = append(names, name)
			}
		}
	}
	return names
}

// AllNames lists every variable visible from the current scope, innermost
// first, for `${!prefix*}`/`${!prefix@}` and variable completion.
func (s *State) AllNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[string]bool{}
	var names []string
	for i := len(s.vars.frames) - 1; i >= 0; i-- {
		for name := range s.vars.frames[i] {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	return names
}

// ScopeDepth reports the current variable-scope nesting depth.
func (s *State) ScopeDepth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vars.depth()
}
