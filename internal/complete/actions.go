package complete

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	carabin "github.com/rsteube/carapace-bin/pkg/actions/os"
	"github.com/rsteube/carapace"

	"github.com/reeflective/shellkit/internal/ast"
	"github.com/reeflective/shellkit/internal/parser"
	"github.com/reeflective/shellkit/internal/state"
)

// gatherActions runs every enabled Action on spec, merged in
// state.ActionOrder's fixed order, unioned into one candidate list.
func (e *Engine) gatherActions(ctx context.Context, spec *state.CompletionSpec) []string {
	var out []string
	for _, a := range state.ActionOrder() {
		if !spec.Actions[a] {
			continue
		}
		select {
		case <-ctx.Done():
			return out
		default:
		}
		out = append(out, e.actionCandidates(a)...)
	}
	return out
}

func (e *Engine) actionCandidates(a state.Action) []string {
	switch a {
	case state.ActionAlias:
		names := make([]string, 0, len(e.State.Aliases))
		for name := range e.State.Aliases {
			names = append(names, name)
		}
		sort.Strings(names)
		return names

	case state.ActionBuiltin:
		return builtinNames()

	case state.ActionCommand:
		return e.commandsOnPath()

	case state.ActionDirectory:
		return invokeCarapace(carapace.ActionDirectories())

	case state.ActionFile:
		return invokeCarapace(carapace.ActionFiles())

	case state.ActionExport:
		names := e.State.ExportedNames()
		sort.Strings(names)
		return names

	case state.ActionVariable:
		names := e.State.AllNames()
		sort.Strings(names)
		return names

	case state.ActionArrayVar:
		var out []string
		for _, name := range e.State.AllNames() {
			if v, ok := e.State.Lookup(name, state.Anywhere); ok &&
				(v.Value.Kind == state.IndexedArrayValue || v.Value.Kind == state.AssocArrayValue) {
				out = append(out, name)
			}
		}
		sort.Strings(out)
		return out

	case state.ActionFunction:
		names := make([]string, 0, len(e.State.Functions))
		for name := range e.State.Functions {
			names = append(names, name)
		}
		sort.Strings(names)
		return names

	case state.ActionKeyword:
		return []string{"if", "then", "else", "elif", "fi", "for", "while", "until", "do", "done",
			"case", "esac", "function", "select", "in", "time", "[[", "]]"}

	case state.ActionUser:
		return invokeCarapace(carabin.ActionUsers())

	case state.ActionGroup:
		return invokeCarapace(carabin.ActionGroups())

	case state.ActionSetopt:
		return []string{"-o", "+o"}

	case state.ActionShopt:
		return e.State.Options.Names()

	case state.ActionSignal:
		return signalNames()

	case state.ActionEnabled, state.ActionDisabled, state.ActionBinding,
		state.ActionHelptopic, state.ActionHostname, state.ActionJob,
		state.ActionRunning, state.ActionService, state.ActionStopped:
		// These sources need a live job table / hostname resolver / service
		// registry the core has no model for (job control is out of scope
		// here); they contribute no candidates rather than guessing.
		return nil
	}
	return nil
}

// invokeCarapace materializes a carapace.Action's fixed value list (no
// dynamic ctx dependency) into plain strings, for the action kinds that
// back one of our own Action enum values.
func invokeCarapace(a carapace.Action) []string {
	invoked := a.Invoke(carapace.Context{})
	var out []string
	for _, v := range invoked.Export() {
		out = append(out, v)
	}
	return out
}

func builtinNames() []string {
	return []string{
		"cd", "exit", "type", "umask", "continue", "break",
		"complete", "compgen", "compopt", "alias", "unalias", "declare",
		"export", "unset", "set", "shift", "return", "eval", "source",
	}
}

func (e *Engine) commandsOnPath() []string {
	pathVal := ""
	if v, ok := e.State.Lookup("PATH", state.Anywhere); ok {
		pathVal = v.Value.Scalar
	}
	var out []string
	for _, dir := range strings.Split(pathVal, string(os.PathListSeparator)) {
		if dir == "" {
			continue
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, ent := range entries {
			if !ent.IsDir() {
				out = append(out, ent.Name())
			}
		}
	}
	return dedupe(out)
}

// filesIn lists entry names directly under dir (not full paths —
// candidates are completion replacements for the current word, matched
// against its own basename-relative prefix); dirOnly restricts to
// directories for the `directory` action.
func (e *Engine) filesIn(dir string, dirOnly bool) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, ent := range entries {
		if dirOnly && !ent.IsDir() {
			continue
		}
		name := ent.Name()
		if ent.IsDir() {
			name += string(filepath.Separator)
		}
		out = append(out, name)
	}
	return out
}

var signalTable = []string{
	"HUP", "INT", "QUIT", "ILL", "TRAP", "ABRT", "BUS", "FPE", "KILL",
	"USR1", "SEGV", "USR2", "PIPE", "ALRM", "TERM", "CHLD", "CONT",
	"STOP", "TSTP", "TTIN", "TTOU", "WINCH",
}

func signalNames() []string {
	out := make([]string, len(signalTable))
	copy(out, signalTable)
	return out
}

// gatherGenerators runs spec's configured generator: glob_pattern
// (pattern expansion), word_list (space-split), function_name
// (shell-function invocation reading back COMPREPLY), or command
// (external command, one candidate per output line).
func (e *Engine) gatherGenerators(ctx context.Context, spec *state.CompletionSpec, word string) []string {
	var out []string

	if spec.Glob != "" {
		matches, err := e.Expand.ExpandWord(wordFromLiteral(spec.Glob))
		if err == nil {
			out = append(out, matches...)
		}
	}

	if spec.Wordlist != "" {
		out = append(out, strings.Fields(spec.Wordlist)...)
	}

	if spec.Function != "" && e.Function != nil {
		_ = e.State.UpdateOrAdd("COMP_WORDS", state.NewIndexedArray(map[int]string{0: word}), "", state.Anywhere, state.AssignGlobal)
		_ = e.State.UpdateOrAdd("COMP_CWORD", state.NewScalar("0"), "", state.Anywhere, state.AssignGlobal)
		_ = e.State.UpdateOrAdd("COMPREPLY", state.NewIndexedArray(nil), "", state.Anywhere, state.AssignGlobal)
		if err := e.Function.RunFunction(spec.Function, []string{word}); err == nil {
			if v, ok := e.State.Lookup("COMPREPLY", state.Anywhere); ok && v.Value.Kind == state.IndexedArrayValue {
				keys := make([]int, 0, len(v.Value.Indexed))
				for k := range v.Value.Indexed {
					keys = append(keys, k)
				}
				sort.Ints(keys)
				for _, k := range keys {
					out = append(out, v.Value.Indexed[k])
				}
			}
		}
	}

	if spec.Command != "" && e.Runner != nil {
		prog, err := parseShellCommand(spec.Command)
		if err == nil {
			if stdout, err := e.Runner.RunProgram(prog); err == nil {
				out = append(out, strings.Split(strings.TrimRight(stdout, "\n"), "\n")...)
			}
		}
	}

	return out
}

func wordFromLiteral(s string) *ast.Word {
	return &ast.Word{Pieces: []ast.WordPiece{ast.Literal{Text: s}}}
}

func parseShellCommand(src string) (*ast.Program, error) {
	return parser.Parse(src)
}
