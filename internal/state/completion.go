package state

// Action enumerates the completion candidate sources a CompletionSpec can
// request.
type Action string

const (
	ActionAlias       Action = "alias"
	ActionArrayVar    Action = "arrayvar"
	ActionBinding     Action = "binding"
	ActionBuiltin     Action = "builtin"
	ActionCommand     Action = "command"
	ActionDirectory   Action = "directory"
	ActionDisabled    Action = "disabled"
	ActionEnabled     Action = "enabled"
	ActionExport      Action = "export"
	ActionFile        Action = "file"
	ActionFunction    Action = "function"
	ActionGroup       Action = "group"
	ActionHelptopic   Action = "helptopic"
	ActionHostname    Action = "hostname"
	ActionJob         Action = "job"
	ActionKeyword     Action = "keyword"
	ActionRunning     Action = "running"
	ActionService     Action = "service"
	ActionSetopt      Action = "setopt"
	ActionShopt       Action = "shopt"
	ActionSignal      Action = "signal"
	ActionStopped     Action = "stopped"
	ActionUser        Action = "user"
	ActionVariable    Action = "variable"
)

// actionOrder is the fixed merge order generators run in and results
// get appended in, regardless of which actions a CompletionSpec enables.
var actionOrder = []Action{
	ActionAlias, ActionBuiltin, ActionCommand, ActionDirectory, ActionExport,
	ActionFile, ActionGroup, ActionJob, ActionKeyword, ActionService,
	ActionUser, ActionVariable, ActionArrayVar, ActionBinding,
	ActionEnabled, ActionDisabled, ActionFunction, ActionHelptopic,
	ActionHostname, ActionRunning, ActionStopped, ActionSetopt, ActionShopt,
	ActionSignal,
}

// ActionOrder exposes the fixed merge order to the completion engine.
func ActionOrder() []Action {
	out := make([]Action, len(actionOrder))
	copy(out, actionOrder)
	return out
}

// CompletionOption is a post-processing switch on a CompletionSpec.
type CompletionOption string

const (
	OptBashDefault CompletionOption = "bashdefault"
	OptDefault     CompletionOption = "default"
	OptDirnames    CompletionOption = "dirnames"
	OptFilenames   CompletionOption = "filenames"
	OptNoquote     CompletionOption = "noquote"
	OptNosort      CompletionOption = "nosort"
	OptNospace     CompletionOption = "nospace"
	OptPlusdirs    CompletionOption = "plusdirs"
)

// FilterSpec is the `-X` post-processing filter.
type FilterSpec struct {
	Pattern string
	Exclude bool // true: "!"-prefixed filter removes non-matching candidates
}

// CompletionSpec is the registered description of how to produce
// completions for a given command or slot.
type CompletionSpec struct {
	Actions  map[Action]bool
	Options  map[CompletionOption]bool
	Glob     string
	Wordlist string
	Function string
	Command  string
	Filter   *FilterSpec
	Prefix   string
	Suffix   string
}

// NewCompletionSpec builds an empty, ready-to-populate spec.
func NewCompletionSpec() *CompletionSpec {
	return &CompletionSpec{
		Actions: map[Action]bool{},
		Options: map[CompletionOption]bool{},
	}
}

func (s *CompletionSpec) HasOption(o CompletionOption) bool { return s.Options[o] }

// CompletionOptions is the live, mutable subset of a spec's Options that
// `compopt` can flip while a completion is in flight.
type CompletionOptions struct {
	Options map[CompletionOption]bool
}

func newCompletionOptions(src map[CompletionOption]bool) *CompletionOptions {
	dup := make(map[CompletionOption]bool, len(src))
	for k, v := range src {
		dup[k] = v
	}
	return &CompletionOptions{Options: dup}
}

// CompletionRegistry holds every registered CompletionSpec. `current` is a stack, not a single value: nested
// function-sourced completions each get their own live options, and
// `compopt` without names affects only the innermost (SPEC_FULL.md Open
// Question 2).
type CompletionRegistry struct {
	PerCommand  map[string]*CompletionSpec
	Default     *CompletionSpec
	EmptyLine   *CompletionSpec
	InitialWord *CompletionSpec

	currentStack []*CompletionOptions
}

// NewCompletionRegistry builds an empty registry.
func NewCompletionRegistry() *CompletionRegistry {
	return &CompletionRegistry{PerCommand: map[string]*CompletionSpec{}}
}

// PushCurrent starts tracking a new in-flight completion's live options,
// seeded from spec's declared Options.
func (r *CompletionRegistry) PushCurrent(spec *CompletionSpec) *CompletionOptions {
	cur := newCompletionOptions(spec.Options)
	r.currentStack = append(r.currentStack, cur)
	return cur
}

// PopCurrent ends the innermost in-flight completion.
func (r *CompletionRegistry) PopCurrent() {
	if len(r.currentStack) > 0 {
		r.currentStack = r.currentStack[:len(r.currentStack)-1]
	}
}

// Current returns the innermost in-flight completion's live options, or
// nil if none is in flight.
func (r *CompletionRegistry) Current() *CompletionOptions {
	if len(r.currentStack) == 0 {
		return nil
	}
	return r.currentStack[len(r.currentStack)-1]
}
