package builtins

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/pflag"

	"github.com/reeflective/shellkit/internal/state"
)

// specFlags is the generator/post-processing/action flag surface shared
// by `complete` and `compgen`, parsed with pflag on a hand-built
// pflag.FlagSet that lists the fixed completion-builtin flag table.
type specFlags struct {
	actions    []string // -A action, repeatable
	options    []string // -o option, repeatable
	glob       string   // -G
	wordlist   string   // -W
	function   string   // -F
	command    string   // -C
	filter     string   // -X
	prefix     string   // -P
	suffix     string   // -S

	shortcuts map[byte]bool // -a -b -c -d -e -f -g -j -k -s -u -v
}

var shortcutAction = map[byte]state.Action{
	'a': state.ActionAlias,
	'b': state.ActionBuiltin,
	'c': state.ActionCommand,
	'd': state.ActionDirectory,
	'e': state.ActionExport,
	'f': state.ActionFile,
	'g': state.ActionGroup,
	'j': state.ActionJob,
	'k': state.ActionKeyword,
	's': state.ActionService,
	'u': state.ActionUser,
	'v': state.ActionVariable,
}

func newSpecFlagSet(name string, sf *specFlags) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.StringArrayVarP(&sf.actions, "action", "A", nil, "completion action")
	fs.StringArrayVarP(&sf.options, "option", "o", nil, "completion option")
	fs.StringVarP(&sf.glob, "glob", "G", "", "glob pattern generator")
	fs.StringVarP(&sf.wordlist, "wordlist", "W", "", "wordlist generator")
	fs.StringVarP(&sf.function, "function", "F", "", "shell function generator")
	fs.StringVarP(&sf.command, "command", "C", "", "command generator")
	fs.StringVarP(&sf.filter, "filter", "X", "", "post-processing filter pattern")
	fs.StringVarP(&sf.prefix, "prefix", "P", "", "prefix every candidate")
	fs.StringVarP(&sf.suffix, "suffix", "S", "", "suffix every candidate")

	sf.shortcuts = map[byte]bool{}
	for letter := range shortcutAction {
		l := letter
		fs.BoolP(string(l), string(l), false, "shortcut action")
	}
	return fs
}

// applyShortcuts folds the boolean shortcut-letter flags into sf.actions,
// after Parse has populated the FlagSet.
func applyShortcuts(fs *pflag.FlagSet, sf *specFlags) {
	for letter, action := range shortcutAction {
		if v, err := fs.GetBool(string(letter)); err == nil && v {
			sf.actions = append(sf.actions, string(action))
		}
	}
}

func buildSpec(existing *state.CompletionSpec, sf *specFlags) *state.CompletionSpec {
	spec := existing
	if spec == nil {
		spec = state.NewCompletionSpec()
	}
	for _, a := range sf.actions {
		spec.Actions[state.Action(a)] = true
	}
	for _, o := range sf.options {
		spec.Options[state.CompletionOption(o)] = true
	}
	if sf.glob != "" {
		spec.Glob = sf.glob
	}
	if sf.wordlist != "" {
		spec.Wordlist = sf.wordlist
	}
	if sf.function != "" {
		spec.Function = sf.function
	}
	if sf.command != "" {
		spec.Command = sf.command
	}
	if sf.filter != "" {
		exclude := strings.HasPrefix(sf.filter, "!")
		pat := strings.TrimPrefix(sf.filter, "!")
		spec.Filter = &state.FilterSpec{Pattern: pat, Exclude: exclude}
	}
	if sf.prefix != "" {
		spec.Prefix = sf.prefix
	}
	if sf.suffix != "" {
		spec.Suffix = sf.suffix
	}
	return spec
}

// printSpec renders a CompletionSpec the way bash's `complete -p` does.
func printSpec(name string, spec *state.CompletionSpec) string {
	var b strings.Builder
	b.WriteString("complete")

	actions := make([]string, 0, len(spec.Actions))
	for a, on := range spec.Actions {
		if on {
			actions = append(actions, string(a))
		}
	}
	sort.Strings(actions)
	for _, a := range actions {
		fmt.Fprintf(&b, " -A %s", a)
	}

	opts := make([]string, 0, len(spec.Options))
	for o, on := range spec.Options {
		if on {
			opts = append(opts, string(o))
		}
	}
	sort.Strings(opts)
	for _, o := range opts {
		fmt.Fprintf(&b, " -o %s", o)
	}

	if spec.Glob != "" {
		fmt.Fprintf(&b, " -G %q", spec.Glob)
	}
	if spec.Wordlist != "" {
		fmt.Fprintf(&b, " -W %q", spec.Wordlist)
	}
	if spec.Function != "" {
		fmt.Fprintf(&b, " -F %s", spec.Function)
	}
	if spec.Command != "" {
		fmt.Fprintf(&b, " -C %q", spec.Command)
	}
	if spec.Filter != nil {
		pat := spec.Filter.Pattern
		if spec.Filter.Exclude {
			pat = "!" + pat
		}
		fmt.Fprintf(&b, " -X %q", pat)
	}
	if spec.Prefix != "" {
		fmt.Fprintf(&b, " -P %q", spec.Prefix)
	}
	if spec.Suffix != "" {
		fmt.Fprintf(&b, " -S %q", spec.Suffix)
	}
	if name != "" {
		fmt.Fprintf(&b, " %s", name)
	}
	return b.String()
}

// builtinComplete implements `complete`: register, print, or
// remove a CompletionSpec for one or more command names, or for the
// -D/-E/-I target slots.
func builtinComplete(ctx *ExecutionContext) BuiltinResult {
	args := ctx.Args[1:]

	printMode := hasFlag(args, "-p")
	removeMode := hasFlag(args, "-r")
	targetDefault := hasFlag(args, "-D")
	targetEmpty := hasFlag(args, "-E")
	targetInitial := hasFlag(args, "-I")

	filtered := stripFlags(args, "-p", "-r", "-D", "-E", "-I")

	sf := &specFlags{}
	fs := newSpecFlagSet("complete", sf)
	if err := fs.Parse(filtered); err != nil {
		fmt.Fprintf(ctx.Stderr, "complete: %v\n", err)
		return usage()
	}
	applyShortcuts(fs, sf)
	names := fs.Args()

	reg := ctx.Shell.Completions

	switch {
	case removeMode:
		for _, n := range names {
			delete(reg.PerCommand, n)
		}
		if targetDefault {
			reg.Default = nil
		}
		if targetEmpty {
			reg.EmptyLine = nil
		}
		if targetInitial {
			reg.InitialWord = nil
		}
		return ok()

	case printMode:
		switch {
		case targetDefault:
			// SPEC_FULL.md Open Question 1: printing -D with no default
			// spec registered prints nothing and exits 0.
			if reg.Default != nil {
				fmt.Fprintln(ctx.Stdout, printSpec("", reg.Default))
			}
			return ok()
		case targetEmpty:
			if reg.EmptyLine != nil {
				fmt.Fprintln(ctx.Stdout, printSpec("", reg.EmptyLine))
			}
			return ok()
		case targetInitial:
			if reg.InitialWord != nil {
				fmt.Fprintln(ctx.Stdout, printSpec("", reg.InitialWord))
			}
			return ok()
		}
		if len(names) == 0 {
			allNames := make([]string, 0, len(reg.PerCommand))
			for n := range reg.PerCommand {
				allNames = append(allNames, n)
			}
			sort.Strings(allNames)
			for _, n := range allNames {
				fmt.Fprintln(ctx.Stdout, printSpec(n, reg.PerCommand[n]))
			}
			return ok()
		}
		for _, n := range names {
			spec, found := reg.PerCommand[n]
			if !found {
				fmt.Fprintf(ctx.Stderr, "complete: %s: no completion specification\n", n)
				return custom(1)
			}
			fmt.Fprintln(ctx.Stdout, printSpec(n, spec))
		}
		return ok()
	}

	switch {
	case targetDefault:
		reg.Default = buildSpec(reg.Default, sf)
		return ok()
	case targetEmpty:
		reg.EmptyLine = buildSpec(reg.EmptyLine, sf)
		return ok()
	case targetInitial:
		reg.InitialWord = buildSpec(reg.InitialWord, sf)
		return ok()
	}

	if len(names) == 0 {
		fmt.Fprintf(ctx.Stderr, "complete: usage: complete [-abcdefgjksuv] [-A action] [name ...]\n")
		return usage()
	}
	for _, n := range names {
		reg.PerCommand[n] = buildSpec(reg.PerCommand[n], sf)
	}
	return ok()
}

// builtinCompgen implements `compgen`: run the same action/
// generator/post-processing machinery as `complete`, against an ad hoc
// spec, emitting one candidate per stdout line.
func builtinCompgen(ctx *ExecutionContext) BuiltinResult {
	args := ctx.Args[1:]
	sf := &specFlags{}
	fs := newSpecFlagSet("compgen", sf)
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(ctx.Stderr, "compgen: %v\n", err)
		return usage()
	}
	applyShortcuts(fs, sf)
	word := ""
	if rest := fs.Args(); len(rest) > 0 {
		word = rest[0]
	}

	spec := buildSpec(nil, sf)
	name := fmt.Sprintf("__compgen_%p", spec)
	ctx.Shell.Completions.PerCommand[name] = spec
	defer delete(ctx.Shell.Completions.PerCommand, name)

	line := name + " " + word
	res := ctx.Complete.GetCompletions(context.Background(), line, len(line))
	for _, c := range res.Candidates {
		fmt.Fprintln(ctx.Stdout, c)
	}
	return ok()
}

// builtinCompopt implements `compopt`: mutate options on a
// registered spec, or on the innermost in-flight completion's live
// options when called with no names.
func builtinCompopt(ctx *ExecutionContext) BuiltinResult {
	args := ctx.Args[1:]
	targetDefault := hasFlag(args, "-D")
	targetEmpty := hasFlag(args, "-E")
	targetInitial := hasFlag(args, "-I")
	filtered := stripFlags(args, "-D", "-E", "-I")

	var enable, disable []state.CompletionOption
	var names []string
	i := 0
	for i < len(filtered) {
		switch filtered[i] {
		case "-o":
			if i+1 < len(filtered) {
				enable = append(enable, state.CompletionOption(filtered[i+1]))
				i += 2
				continue
			}
		case "+o":
			if i+1 < len(filtered) {
				disable = append(disable, state.CompletionOption(filtered[i+1]))
				i += 2
				continue
			}
		default:
			names = append(names, filtered[i])
		}
		i++
	}

	reg := ctx.Shell.Completions
	apply := func(spec *state.CompletionSpec) {
		for _, o := range enable {
			spec.Options[o] = true
		}
		for _, o := range disable {
			spec.Options[o] = false
		}
	}

	switch {
	case targetDefault && reg.Default != nil:
		apply(reg.Default)
		return ok()
	case targetEmpty && reg.EmptyLine != nil:
		apply(reg.EmptyLine)
		return ok()
	case targetInitial && reg.InitialWord != nil:
		apply(reg.InitialWord)
		return ok()
	}

	if len(names) == 0 {
		cur := reg.Current()
		if cur == nil {
			fmt.Fprintf(ctx.Stderr, "compopt: no completion in progress\n")
			return custom(1)
		}
		for _, o := range enable {
			cur.Options[o] = true
		}
		for _, o := range disable {
			cur.Options[o] = false
		}
		return ok()
	}

	for _, n := range names {
		spec, found := reg.PerCommand[n]
		if !found {
			fmt.Fprintf(ctx.Stderr, "compopt: %s: no completion specification\n", n)
			return custom(1)
		}
		apply(spec)
	}
	return ok()
}

func hasFlag(args []string, flag string) bool {
	for _, a := range args {
		if a == flag {
			return true
		}
	}
	return false
}

func stripFlags(args []string, flags ...string) []string {
	skip := map[string]bool{}
	for _, f := range flags {
		skip[f] = true
	}
	var out []string
	for _, a := range args {
		if !skip[a] {
			out = append(out, a)
		}
	}
	return out
}
