package builtins

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/reeflective/shellkit/internal/state"
)

// builtinCd implements `cd [dir]`, writing $PWD/$OLDPWD on success (spec
// §6.4). With no operand it targets $HOME, matching bash.
func builtinCd(ctx *ExecutionContext) BuiltinResult {
	args := ctx.Args[1:]

	var target string
	switch len(args) {
	case 0:
		if v, found := ctx.Shell.Lookup("HOME", state.Anywhere); found {
			target = v.Value.Scalar
		}
	case 1:
		target = args[0]
	default:
		fmt.Fprintf(ctx.Stderr, "cd: too many arguments\n")
		return usage()
	}

	if target == "" {
		fmt.Fprintf(ctx.Stderr, "cd: HOME not set\n")
		return custom(1)
	}

	if !pathAbs(target) {
		target = ctx.Shell.WorkingDir + string(os.PathSeparator) + target
	}

	fi, err := os.Stat(target)
	if err != nil || !fi.IsDir() {
		fmt.Fprintf(ctx.Stderr, "cd: %s: No such file or directory\n", target)
		return custom(1)
	}

	ctx.Shell.OldWorkingDir = ctx.Shell.WorkingDir
	ctx.Shell.WorkingDir = target
	_ = ctx.Shell.UpdateOrAdd("PWD", state.NewScalar(target), "", state.Anywhere, state.AssignGlobal)
	_ = ctx.Shell.UpdateOrAdd("OLDPWD", state.NewScalar(ctx.Shell.OldWorkingDir), "", state.Anywhere, state.AssignGlobal)
	return ok()
}

func pathAbs(p string) bool { return len(p) > 0 && p[0] == '/' }

// builtinExit implements `exit [n]`: with no argument
// it reuses last_exit_status; a non-numeric argument is BuiltinMisuse; the
// numeric argument is masked to n & 0xFF.
func builtinExit(ctx *ExecutionContext) BuiltinResult {
	args := ctx.Args[1:]
	if len(args) == 0 {
		return exitWith(ctx.Shell.LastExitStatus)
	}
	if len(args) > 1 {
		fmt.Fprintf(ctx.Stderr, "exit: too many arguments\n")
		return usage()
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Fprintf(ctx.Stderr, "exit: %s: numeric argument required\n", args[0])
		return usage()
	}
	return exitWith(uint8(n & 0xFF))
}

// builtinUmask implements `umask [-S] [mode]`: printed or parsed as octal.
func builtinUmask(ctx *ExecutionContext) BuiltinResult {
	args := ctx.Args[1:]
	symbolic := false
	if len(args) > 0 && args[0] == "-S" {
		symbolic = true
		args = args[1:]
	}

	if len(args) == 0 {
		if symbolic {
			fmt.Fprintf(ctx.Stdout, "u=%s,g=%s,o=%s\n",
				umaskClassSymbolic(ctx.Shell.Umask, 6),
				umaskClassSymbolic(ctx.Shell.Umask, 3),
				umaskClassSymbolic(ctx.Shell.Umask, 0))
		} else {
			fmt.Fprintf(ctx.Stdout, "%04o\n", ctx.Shell.Umask)
		}
		return ok()
	}

	mode, err := strconv.ParseUint(args[0], 8, 32)
	if err != nil {
		fmt.Fprintf(ctx.Stderr, "umask: %s: octal number required\n", args[0])
		return usage()
	}
	ctx.Shell.Umask = uint32(mode) & 0o777
	return ok()
}

func umaskClassSymbolic(umask uint32, shift uint) string {
	bits := (umask >> shift) & 0o7
	perms := ^bits & 0o7
	out := ""
	if perms&0o4 != 0 {
		out += "r"
	}
	if perms&0o2 != 0 {
		out += "w"
	}
	if perms&0o1 != 0 {
		out += "x"
	}
	return out
}

// builtinType implements `type name`: resolves name against functions,
// aliases, this registry's builtins, and finally $PATH, in that order —
// the same resolution order bash documents for command-word lookup.
func builtinType(ctx *ExecutionContext) BuiltinResult {
	args := ctx.Args[1:]
	if len(args) == 0 {
		fmt.Fprintf(ctx.Stderr, "type: usage: type name [name ...]\n")
		return usage()
	}

	reg := NewRegistry()
	result := ok()
	for _, name := range args {
		switch {
		case ctx.Shell.Functions[name] != nil:
			fmt.Fprintf(ctx.Stdout, "%s is a function\n", name)
		case ctx.Shell.Aliases[name] != "":
			fmt.Fprintf(ctx.Stdout, "%s is aliased to `%s'\n", name, ctx.Shell.Aliases[name])
		default:
			if _, found := reg.Lookup(name); found {
				fmt.Fprintf(ctx.Stdout, "%s is a shell builtin\n", name)
				continue
			}
			if path, found := lookPath(ctx.Shell, name); found {
				fmt.Fprintf(ctx.Stdout, "%s is %s\n", name, path)
				continue
			}
			fmt.Fprintf(ctx.Stderr, "type: %s: not found\n", name)
			result = custom(1)
		}
	}
	return result
}

func lookPath(st *state.State, name string) (string, bool) {
	pathVar := ""
	if v, found := st.Lookup("PATH", state.Anywhere); found {
		pathVar = v.Value.Scalar
	}
	for _, dir := range splitPath(pathVar) {
		if dir == "" {
			continue
		}
		candidate := dir + string(os.PathSeparator) + name
		if fi, err := os.Stat(candidate); err == nil && !fi.IsDir() {
			return candidate, true
		}
	}
	return "", false
}

// builtinDeclare implements `declare [-x] [-r] [-i] [-t rule] name[=value]
// ...`: the attribute-assignment builtin that exercises the
// go-playground/validator-backed gate in UpdateOrAdd (-t attaches a
// validator tag checked on this and every later write to name) alongside
// the export/readonly/integer attributes bash's declare also sets.
func builtinDeclare(ctx *ExecutionContext) BuiltinResult {
	args := ctx.Args[1:]
	var rule string
	var exportAttr, readonlyAttr, integerAttr bool

	i := 0
loop:
	for i < len(args) {
		switch args[i] {
		case "-x":
			exportAttr = true
			i++
		case "-r":
			readonlyAttr = true
			i++
		case "-i":
			integerAttr = true
			i++
		case "-t":
			if i+1 >= len(args) {
				fmt.Fprintf(ctx.Stderr, "declare: -t: option requires an argument\n")
				return usage()
			}
			rule = args[i+1]
			i += 2
		default:
			break loop
		}
	}

	if i >= len(args) {
		fmt.Fprintf(ctx.Stderr, "declare: usage: declare [-x] [-r] [-i] [-t rule] name[=value] ...\n")
		return usage()
	}

	result := ok()
	for _, operand := range args[i:] {
		name, value, hasValue := strings.Cut(operand, "=")
		scalar := value
		if !hasValue {
			if existing, found := ctx.Shell.Lookup(name, state.Anywhere); found && existing.Value.Kind == state.ScalarValue {
				scalar = existing.Value.Scalar
			}
		}

		if err := ctx.Shell.UpdateOrAdd(name, state.NewScalar(scalar), rule, state.Anywhere, state.AssignGlobal); err != nil {
			fmt.Fprintf(ctx.Stderr, "declare: %v\n", err)
			result = custom(1)
			continue
		}

		v, found := ctx.Shell.Lookup(name, state.Anywhere)
		if !found {
			continue
		}
		if exportAttr {
			v.Attributes.Exported = true
		}
		if integerAttr {
			v.Attributes.Integer = true
		}
		if readonlyAttr {
			v.Attributes.Readonly = true
		}
	}
	return result
}

func splitPath(p string) []string {
	var out []string
	cur := ""
	for i := 0; i < len(p); i++ {
		if p[i] == ':' {
			out = append(out, cur)
			cur = ""
			continue
		}
		cur += string(p[i])
	}
	out = append(out, cur)
	return out
}
