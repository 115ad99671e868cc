package shellkit

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strconv"
	"strings"

	"github.com/reeflective/shellkit/internal/ast"
	"github.com/reeflective/shellkit/internal/builtins"
	shellerrors "github.com/reeflective/shellkit/internal/errors"
	"github.com/reeflective/shellkit/internal/pattern"
	"github.com/reeflective/shellkit/internal/state"
)

func isIncompleteErr(err error) bool {
	return errors.Is(err, shellerrors.ErrParseIncomplete) || errors.Is(err, shellerrors.ErrIncomplete)
}

// signalKind discriminates the control-flow unwind a builtin result can
// trigger, threaded up through exec* calls as a typed
// value instead of a panic/recover, matching the core's synchronous,
// single-task execution model.
type signalKind int

const (
	sigNone signalKind = iota
	sigBreak
	sigContinue
	sigReturn
	sigExit
)

// signal carries a pending control-flow unwind. level is the remaining
// loop nesting to unwind for break/continue (zero means "handle at the
// innermost enclosing loop").
type signal struct {
	kind  signalKind
	level uint8
	code  uint8
}

// ioStreams is the three standard streams a command or pipeline stage
// runs with.
type ioStreams struct {
	Stdin  *os.File
	Stdout *os.File
	Stderr *os.File
}

func (sh *Shell) stdStreams() ioStreams {
	return ioStreams{Stdin: sh.Stdin, Stdout: sh.Stdout, Stderr: sh.Stderr}
}

// Execute parses and runs one logical line of input. If err wraps
// IsIncomplete, the caller should append another line and retry; an
// *ExitRequested error means the interpreter asked to terminate with its
// Code.
func (sh *Shell) Execute(src string) (uint8, error) {
	prog, err := sh.ParseLine(src)
	if err != nil {
		return 1, err
	}
	return sh.RunAST(prog)
}

// RunAST executes an already-parsed program against this shell's state.
func (sh *Shell) RunAST(prog *ast.Program) (uint8, error) {
	status, sig, err := sh.execProgram(prog, sh.stdStreams())
	if err != nil {
		return status, err
	}
	switch sig.kind {
	case sigExit:
		return sig.code, &ExitRequested{Code: sig.code}
	case sigReturn:
		return sig.code, ErrReturnOutsideFunction
	case sigBreak, sigContinue:
		return status, ErrLoopControlOutsideLoop
	}
	return status, nil
}

// RunProgram implements expand.ProgramRunner for command/process
// substitution.
func (sh *Shell) RunProgram(prog *ast.Program) (string, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return "", err
	}
	captured := make(chan string, 1)
	go func() {
		buf, _ := io.ReadAll(r)
		captured <- string(buf)
	}()

	streams := ioStreams{Stdin: sh.Stdin, Stdout: w, Stderr: sh.Stderr}
	_, _, err = sh.execProgram(prog, streams)
	w.Close()
	out := <-captured
	r.Close()
	return out, err
}

// RunFunction implements complete.FunctionRunner for function-sourced
// completion: invokes a registered shell function with
// COMP_* already set by the caller, letting it write COMPREPLY.
func (sh *Shell) RunFunction(name string, args []string) error {
	fn, ok := sh.State.Functions[name]
	if !ok {
		return fmt.Errorf("%w: %s", shellerrors.ErrNotFound, name)
	}
	_, _, err := sh.callFunction(fn, args, sh.stdStreams())
	return err
}

func (sh *Shell) execProgram(prog *ast.Program, streams ioStreams) (uint8, signal, error) {
	var status uint8
	for _, cc := range prog.Commands {
		var sig signal
		var err error
		status, sig, err = sh.execCompleteCommand(cc, streams)
		if err != nil || sig.kind != sigNone {
			return status, sig, err
		}
	}
	return status, signal{}, nil
}

func (sh *Shell) execCompleteCommand(cc *ast.CompleteCommand, streams ioStreams) (uint8, signal, error) {
	var status uint8
	for _, list := range cc.Lists {
		// Background scheduling is a Non-goal: every pipeline
		// runs synchronously to completion regardless of a trailing "&".
		s, sig, err := sh.execAndOrList(list, streams)
		status = s
		if err != nil || sig.kind != sigNone {
			return status, sig, err
		}
	}
	sh.State.LastExitStatus = status
	return status, signal{}, nil
}

func (sh *Shell) execAndOrList(list *ast.AndOrList, streams ioStreams) (uint8, signal, error) {
	var status uint8
	for i, pl := range list.Pipelines {
		if i > 0 {
			switch list.Joins[i] {
			case ast.JoinAnd:
				if status != 0 {
					continue
				}
			case ast.JoinOr:
				if status == 0 {
					continue
				}
			}
		}
		s, sig, err := sh.execPipeline(pl, streams)
		status = s
		if err != nil || sig.kind != sigNone {
			return status, sig, err
		}
	}
	return status, signal{}, nil
}

func (sh *Shell) execPipeline(pl *ast.Pipeline, streams ioStreams) (uint8, signal, error) {
	status, sig, err := sh.execPipelineStages(pl.Commands, streams)
	if pl.Negated && err == nil && sig.kind == sigNone {
		if status == 0 {
			status = 1
		} else {
			status = 0
		}
	}
	return status, sig, err
}

func (sh *Shell) execPipelineStages(cmds []ast.Command, streams ioStreams) (uint8, signal, error) {
	if len(cmds) == 1 {
		return sh.execCommand(cmds[0], streams)
	}

	readers := make([]*os.File, len(cmds)-1)
	writers := make([]*os.File, len(cmds)-1)
	for i := range readers {
		r, w, err := os.Pipe()
		if err != nil {
			return 1, signal{}, err
		}
		readers[i] = r
		writers[i] = w
	}

	type stageResult struct {
		status uint8
		sig    signal
		err    error
	}
	results := make([]stageResult, len(cmds))
	done := make(chan int, len(cmds))

	for i, cmd := range cmds {
		stageStreams := streams
		if i > 0 {
			stageStreams.Stdin = readers[i-1]
		}
		if i < len(cmds)-1 {
			stageStreams.Stdout = writers[i]
		}
		go func(i int, cmd ast.Command, stageStreams ioStreams) {
			s, sig, err := sh.execCommand(cmd, stageStreams)
			if i > 0 {
				readers[i-1].Close()
			}
			if i < len(cmds)-1 {
				writers[i].Close()
			}
			results[i] = stageResult{s, sig, err}
			done <- i
		}(i, cmd, stageStreams)
	}
	for range cmds {
		<-done
	}

	last := results[len(results)-1]
	return last.status, last.sig, last.err
}

func (sh *Shell) execCommand(cmd ast.Command, streams ioStreams) (uint8, signal, error) {
	switch c := cmd.(type) {
	case *ast.SimpleCommand:
		return sh.execSimple(c, streams)
	case *ast.CompoundCommand:
		return sh.execCompound(c, streams)
	case *ast.FunctionDef:
		sh.State.Functions[c.Name] = c
		return 0, signal{}, nil
	}
	return 1, signal{}, fmt.Errorf("%w: unrecognized command node", shellerrors.ErrParseFatal)
}

func (sh *Shell) execSimple(sc *ast.SimpleCommand, streams ioStreams) (uint8, signal, error) {
	closers, redirStreams, err := sh.openRedirects(sc.Redirects, streams)
	defer closeAll(closers)
	if err != nil {
		fmt.Fprintf(streams.Stderr, "shellkit: %v\n", err)
		return 1, signal{}, nil
	}

	if len(sc.Words) == 0 {
		for _, a := range sc.Assignments {
			if err := sh.applyAssignment(a, state.AssignGlobal); err != nil {
				fmt.Fprintf(redirStreams.Stderr, "shellkit: %v\n", err)
				return 1, signal{}, nil
			}
		}
		return 0, signal{}, nil
	}

	for _, a := range sc.Assignments {
		if err := sh.applyAssignment(a, state.AssignGlobal); err != nil {
			fmt.Fprintf(redirStreams.Stderr, "shellkit: %v\n", err)
			return 1, signal{}, nil
		}
	}

	argv, err := sh.Expand.ExpandWords(sc.Words)
	if err != nil {
		fmt.Fprintf(redirStreams.Stderr, "shellkit: %v\n", err)
		return 1, signal{}, nil
	}
	if len(argv) == 0 {
		return 0, signal{}, nil
	}

	if fn, ok := sh.State.Functions[argv[0]]; ok {
		return sh.callFunction(fn, argv[1:], redirStreams)
	}

	if builtinFn, ok := sh.Builtins.Lookup(argv[0]); ok {
		return sh.runBuiltin(builtinFn, argv, redirStreams)
	}

	return sh.execExternal(argv, redirStreams)
}

func (sh *Shell) runBuiltin(fn builtins.Func, argv []string, streams ioStreams) (uint8, signal, error) {
	ctx := &builtins.ExecutionContext{
		Shell:    sh.State,
		Expand:   sh.Expand,
		Complete: sh.Complete,
		Stdin:    streams.Stdin,
		Stdout:   streams.Stdout,
		Stderr:   streams.Stderr,
		Args:     argv,
	}
	res := sh.Builtins.Run(ctx)
	switch res.Kind {
	case builtins.Success:
		return 0, signal{}, nil
	case builtins.Custom, builtins.InvalidUsage, builtins.Unimplemented:
		return res.Code, signal{}, nil
	case builtins.ExitShell:
		return res.Code, signal{kind: sigExit, code: res.Code}, nil
	case builtins.ReturnFromFunction:
		return res.Code, signal{kind: sigReturn, code: res.Code}, nil
	case builtins.BreakLoop:
		return 0, signal{kind: sigBreak, level: res.Code}, nil
	case builtins.ContinueLoop:
		return 0, signal{kind: sigContinue, level: res.Code}, nil
	}
	return 1, signal{}, nil
}

func (sh *Shell) callFunction(fn *ast.FunctionDef, args []string, streams ioStreams) (uint8, signal, error) {
	sh.State.PushScope()
	defer sh.State.PopScope()

	savedArgs := sh.Expand.Args
	sh.Expand.Args = args
	defer func() { sh.Expand.Args = savedArgs }()

	status, sig, err := sh.execCommand(fn.Body, streams)
	if sig.kind == sigReturn {
		return sig.code, signal{}, err
	}
	return status, sig, err
}

func (sh *Shell) applyAssignment(a *ast.Assignment, scope state.AssignScope) error {
	val, err := sh.Expand.ExpandBasic(a.Value)
	if err != nil {
		return err
	}
	if a.Append {
		if existing, ok := sh.State.Lookup(a.Name, state.Anywhere); ok && existing.Value.Kind == state.ScalarValue {
			val = existing.Value.Scalar + val
		}
	}
	return sh.State.UpdateOrAdd(a.Name, state.NewScalar(val), "", state.Anywhere, scope)
}

func (sh *Shell) execExternal(argv []string, streams ioStreams) (uint8, signal, error) {
	path, err := sh.resolvePath(argv[0])
	if err != nil {
		fmt.Fprintf(streams.Stderr, "shellkit: %s: command not found\n", argv[0])
		return 127, signal{}, nil
	}

	cmd := exec.Command(path, argv[1:]...)
	cmd.Stdin = streams.Stdin
	cmd.Stdout = streams.Stdout
	cmd.Stderr = streams.Stderr
	cmd.Dir = sh.State.WorkingDir
	cmd.Env = sh.environ()

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return uint8(exitErr.ExitCode() & 0xFF), signal{}, nil
		}
		if errors.Is(err, os.ErrPermission) {
			return 126, signal{}, nil
		}
		fmt.Fprintf(streams.Stderr, "shellkit: %s: %v\n", argv[0], err)
		return 126, signal{}, nil
	}
	return 0, signal{}, nil
}

func (sh *Shell) environ() []string {
	names := sh.State.ExportedNames()
	sort.Strings(names)
	env := make([]string, 0, len(names))
	for _, name := range names {
		if v, ok := sh.State.Lookup(name, state.Anywhere); ok && v.Value.Kind == state.ScalarValue {
			env = append(env, name+"="+v.Value.Scalar)
		}
	}
	return env
}

func (sh *Shell) resolvePath(name string) (string, error) {
	if strings.ContainsRune(name, '/') {
		if fi, err := os.Stat(name); err == nil && !fi.IsDir() {
			return name, nil
		}
		return "", os.ErrNotExist
	}
	pathVar := ""
	if v, ok := sh.State.Lookup("PATH", state.Anywhere); ok {
		pathVar = v.Value.Scalar
	}
	for _, dir := range strings.Split(pathVar, string(os.PathListSeparator)) {
		if dir == "" {
			continue
		}
		candidate := dir + string(os.PathSeparator) + name
		if fi, err := os.Stat(candidate); err == nil && !fi.IsDir() {
			return candidate, nil
		}
	}
	return "", os.ErrNotExist
}

func closeAll(files []*os.File) {
	for i := len(files) - 1; i >= 0; i-- {
		files[i].Close()
	}
}

// openRedirects applies scoped acquisition with guaranteed release to a
// command's redirections, returning the streams the
// command should actually run with plus every file opened (for the
// caller to Close on every exit path).
func (sh *Shell) openRedirects(redirs []*ast.Redirect, streams ioStreams) ([]*os.File, ioStreams, error) {
	var opened []*os.File
	for _, r := range redirs {
		if r.Op == ast.OpGreatAnd || r.Op == ast.OpAndGreat {
			src, dst, ok, err := sh.resolveFDDup(r, streams)
			if err != nil {
				return opened, streams, err
			}
			if !ok {
				continue
			}
			switch src {
			case 0:
				streams.Stdin = dst
			case 1:
				streams.Stdout = dst
			case 2:
				streams.Stderr = dst
			}
			continue
		}

		f, target, err := sh.openOneRedirect(r)
		if err != nil {
			return opened, streams, err
		}
		if f != nil {
			opened = append(opened, f)
		}
		switch target {
		case 0:
			streams.Stdin = f
		case 1:
			streams.Stdout = f
		case 2:
			streams.Stderr = f
		}
	}
	return opened, streams, nil
}

// resolveFDDup implements `N>&M` / `N<&M` by aliasing FD N onto whatever
// stream is currently open on FD M (e.g. `2>&1` points stderr at the file
// stdout is currently writing to). True OS-level dup2 semantics would let a
// later redirect on M keep diverging from N, which job-control-grade FD
// juggling needs but this core's two-or-three-stream model does not
// attempt to distinguish.
func (sh *Shell) resolveFDDup(r *ast.Redirect, streams ioStreams) (src int, dst *os.File, ok bool, err error) {
	targetStr, err := sh.Expand.ExpandBasic(r.Target)
	if err != nil {
		return 0, nil, false, err
	}
	m, convErr := strconv.Atoi(targetStr)
	if convErr != nil {
		return 0, nil, false, nil
	}
	def := 1
	if r.Op == ast.OpAndGreat {
		def = 0
	}
	n := fdOr(r.FD, def)

	switch m {
	case 0:
		dst = streams.Stdin
	case 1:
		dst = streams.Stdout
	case 2:
		dst = streams.Stderr
	default:
		return 0, nil, false, nil
	}
	return n, dst, true, nil
}

// openOneRedirect opens the file or constructs the heredoc pipe for one
// redirection, returning the resolved target file descriptor (0/1/2;
// other FDs are accepted but only 0/1/2 are wired into a command's
// streams, since the core models exactly stdin/stdout/stderr).
func (sh *Shell) openOneRedirect(r *ast.Redirect) (*os.File, int, error) {
	switch r.Op {
	case ast.OpDLess, ast.OpDLessDash:
		body := r.HeredocBody
		if r.HeredocStrip {
			body = stripHeredocTabs(body)
		}
		if !isHeredocQuoted(r.Target) {
			if expanded, err := sh.Expand.ExpandBasic(&ast.Word{Pieces: []ast.WordPiece{ast.DoubleQuotedPiece{
				Pieces: []ast.WordPiece{ast.Literal{Text: body}},
			}}}); err == nil {
				body = expanded
			}
		}
		pr, pw, err := os.Pipe()
		if err != nil {
			return nil, 0, err
		}
		go func() {
			io.WriteString(pw, body)
			pw.Close()
		}()
		return pr, fdOr(r.FD, 0), nil

	case ast.OpLess:
		path, err := sh.Expand.ExpandBasic(r.Target)
		if err != nil {
			return nil, 0, err
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, 0, err
		}
		return f, fdOr(r.FD, 0), nil

	case ast.OpGreat, ast.OpDGreat:
		path, err := sh.Expand.ExpandBasic(r.Target)
		if err != nil {
			return nil, 0, err
		}
		flags := os.O_WRONLY | os.O_CREATE
		if r.Op == ast.OpDGreat {
			flags |= os.O_APPEND
		} else {
			flags |= os.O_TRUNC
		}
		f, err := os.OpenFile(path, flags, 0o644)
		if err != nil {
			return nil, 0, err
		}
		return f, fdOr(r.FD, 1), nil

	case ast.OpLessGreat:
		path, err := sh.Expand.ExpandBasic(r.Target)
		if err != nil {
			return nil, 0, err
		}
		f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
		if err != nil {
			return nil, 0, err
		}
		return f, fdOr(r.FD, 0), nil
	}
	return nil, 0, nil
}

func fdOr(fd, def int) int {
	if fd < 0 {
		return def
	}
	return fd
}

func isHeredocQuoted(target *ast.Word) bool {
	if target == nil || len(target.Pieces) != 1 {
		return false
	}
	_, ok := target.Pieces[0].(ast.SingleQuotedPiece)
	return ok
}

func stripHeredocTabs(body string) string {
	lines := strings.Split(body, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimLeft(l, "\t")
	}
	return strings.Join(lines, "\n")
}

// execCompound dispatches every ast.CompoundKind variant. Redirections attached to the compound itself apply to the
// whole construct, same as a simple command's.
func (sh *Shell) execCompound(c *ast.CompoundCommand, streams ioStreams) (uint8, signal, error) {
	closers, redirStreams, err := sh.openRedirects(c.Redirects, streams)
	defer closeAll(closers)
	if err != nil {
		fmt.Fprintf(streams.Stderr, "shellkit: %v\n", err)
		return 1, signal{}, nil
	}

	switch c.Kind {
	case ast.KindBraceGroup:
		return sh.execProgram(c.Body.Body, redirStreams)

	case ast.KindSubshell:
		// True process isolation is a Non-goal; a subshell runs in a
		// pushed scope frame that is popped afterwards, so local-scope
		// writes made inside it (loop variables, REPLY) are discarded.
		// Plain NAME=value assignments write to the global scope and
		// remain visible after the subshell returns.
		sh.State.PushScope()
		status, sig, err := sh.execProgram(c.Body.Body, redirStreams)
		sh.State.PopScope()
		if sig.kind == sigReturn {
			sig = signal{}
		}
		return status, sig, err

	case ast.KindForLoop:
		return sh.execForLoop(c.Body, redirStreams)

	case ast.KindCase:
		return sh.execCase(c.Body, redirStreams)

	case ast.KindIf:
		return sh.execIf(c.Body, redirStreams)

	case ast.KindWhile:
		return sh.execWhileUntil(c.Body, redirStreams, false)

	case ast.KindUntil:
		return sh.execWhileUntil(c.Body, redirStreams, true)

	case ast.KindArithmeticCommand:
		n, err := sh.Expand.EvalArithmetic(c.Body.Expr)
		if err != nil {
			fmt.Fprintf(redirStreams.Stderr, "shellkit: %v\n", err)
			return 1, signal{}, nil
		}
		if n == 0 {
			return 1, signal{}, nil
		}
		return 0, signal{}, nil

	case ast.KindExtendedTest:
		ok, err := sh.Predicate.Evaluate(c.Body.Test)
		if err != nil {
			fmt.Fprintf(redirStreams.Stderr, "shellkit: %v\n", err)
			return 1, signal{}, nil
		}
		if !ok {
			return 1, signal{}, nil
		}
		return 0, signal{}, nil

	case ast.KindSelect:
		return sh.execSelect(c.Body, redirStreams)
	}
	return 1, signal{}, fmt.Errorf("%w: unrecognized compound kind", shellerrors.ErrParseFatal)
}

func (sh *Shell) execForLoop(body ast.CompoundBody, streams ioStreams) (uint8, signal, error) {
	if body.IsArithFor {
		if body.ArithInit != "" {
			if _, err := sh.Expand.EvalArithmetic(body.ArithInit); err != nil {
				fmt.Fprintf(streams.Stderr, "shellkit: %v\n", err)
				return 1, signal{}, nil
			}
		}
		var status uint8
		for {
			if body.ArithCond != "" {
				cond, err := sh.Expand.EvalArithmetic(body.ArithCond)
				if err != nil {
					fmt.Fprintf(streams.Stderr, "shellkit: %v\n", err)
					return 1, signal{}, nil
				}
				if cond == 0 {
					break
				}
			}
			s, sig, err := sh.execProgram(body.Body, streams)
			status = s
			if err != nil {
				return status, sig, err
			}
			if sig.kind == sigBreak {
				if sig.level > 0 {
					return status, signal{kind: sigBreak, level: sig.level - 1}, nil
				}
				break
			}
			if sig.kind != sigNone && sig.kind != sigContinue {
				return status, sig, nil
			}
			if sig.kind == sigContinue && sig.level > 0 {
				return status, signal{kind: sigContinue, level: sig.level - 1}, nil
			}
			if body.ArithStep != "" {
				if _, err := sh.Expand.EvalArithmetic(body.ArithStep); err != nil {
					fmt.Fprintf(streams.Stderr, "shellkit: %v\n", err)
					return 1, signal{}, nil
				}
			}
		}
		return status, signal{}, nil
	}

	var items []string
	if body.WordList == nil {
		items = sh.Expand.Args
	} else {
		expanded, err := sh.Expand.ExpandWords(body.WordList)
		if err != nil {
			fmt.Fprintf(streams.Stderr, "shellkit: %v\n", err)
			return 1, signal{}, nil
		}
		items = expanded
	}

	var status uint8
	for _, item := range items {
		if err := sh.State.UpdateOrAdd(body.Var, state.NewScalar(item), "", state.Anywhere, state.AssignLocal); err != nil {
			fmt.Fprintf(streams.Stderr, "shellkit: %v\n", err)
			return 1, signal{}, nil
		}
		s, sig, err := sh.execProgram(body.Body, streams)
		status = s
		if err != nil {
			return status, sig, err
		}
		if sig.kind == sigBreak {
			if sig.level > 0 {
				return status, signal{kind: sigBreak, level: sig.level - 1}, nil
			}
			break
		}
		if sig.kind != sigNone && sig.kind != sigContinue {
			return status, sig, nil
		}
		if sig.kind == sigContinue && sig.level > 0 {
			return status, signal{kind: sigContinue, level: sig.level - 1}, nil
		}
	}
	return status, signal{}, nil
}

func (sh *Shell) execSelect(body ast.CompoundBody, streams ioStreams) (uint8, signal, error) {
	var items []string
	if body.SelectWordList == nil {
		items = sh.Expand.Args
	} else {
		expanded, err := sh.Expand.ExpandWords(body.SelectWordList)
		if err != nil {
			fmt.Fprintf(streams.Stderr, "shellkit: %v\n", err)
			return 1, signal{}, nil
		}
		items = expanded
	}

	ps3 := "#? "
	if v, ok := sh.State.Lookup("PS3", state.Anywhere); ok {
		ps3 = v.Value.Scalar
	}

	reader := bufReadLine(streams.Stdin)
	var status uint8
	for {
		for i, item := range items {
			fmt.Fprintf(streams.Stdout, "%d) %s\n", i+1, item)
		}
		fmt.Fprint(streams.Stderr, ps3)
		line, ok := reader()
		if !ok {
			return status, signal{}, nil
		}
		_ = sh.State.UpdateOrAdd("REPLY", state.NewScalar(line), "", state.Anywhere, state.AssignLocal)
		choice := ""
		if n, err := strconv.Atoi(strings.TrimSpace(line)); err == nil && n >= 1 && n <= len(items) {
			choice = items[n-1]
		}
		if err := sh.State.UpdateOrAdd(body.SelectVar, state.NewScalar(choice), "", state.Anywhere, state.AssignLocal); err != nil {
			fmt.Fprintf(streams.Stderr, "shellkit: %v\n", err)
			return 1, signal{}, nil
		}
		s, sig, err := sh.execProgram(body.Body, streams)
		status = s
		if err != nil {
			return status, sig, err
		}
		if sig.kind == sigBreak {
			if sig.level > 0 {
				return status, signal{kind: sigBreak, level: sig.level - 1}, nil
			}
			break
		}
		if sig.kind != sigNone && sig.kind != sigContinue {
			return status, sig, nil
		}
		if sig.kind == sigContinue && sig.level > 0 {
			return status, signal{kind: sigContinue, level: sig.level - 1}, nil
		}
	}
	return status, signal{}, nil
}

// bufReadLine adapts an io.Reader to a simple "read one line" closure used
// by select, since the core treats interactive line reading as the line
// editor's concern everywhere else.
func bufReadLine(r io.Reader) func() (string, bool) {
	br := &singleByteReader{r: r}
	return func() (string, bool) {
		var sb strings.Builder
		for {
			b, err := br.readByte()
			if err != nil {
				if sb.Len() == 0 {
					return "", false
				}
				return sb.String(), true
			}
			if b == '\n' {
				return sb.String(), true
			}
			sb.WriteByte(b)
		}
	}
}

type singleByteReader struct {
	r   io.Reader
	buf [1]byte
}

func (s *singleByteReader) readByte() (byte, error) {
	n, err := s.r.Read(s.buf[:])
	if n == 1 {
		return s.buf[0], nil
	}
	if err == nil {
		err = io.EOF
	}
	return 0, err
}

func (sh *Shell) execCase(body ast.CompoundBody, streams ioStreams) (uint8, signal, error) {
	subject, err := sh.Expand.ExpandBasic(body.Subject)
	if err != nil {
		fmt.Fprintf(streams.Stderr, "shellkit: %v\n", err)
		return 1, signal{}, nil
	}
	extGlob := sh.State.Options.Get(state.OptExtendedGlobbing)

	for _, item := range body.Cases {
		matched := false
		for _, patWord := range item.Patterns {
			patStr, err := sh.Expand.ExpandPattern(patWord)
			if err != nil {
				fmt.Fprintf(streams.Stderr, "shellkit: %v\n", err)
				return 1, signal{}, nil
			}
			pat, err := pattern.Compile(patStr, extGlob)
			if err != nil {
				fmt.Fprintf(streams.Stderr, "shellkit: %v\n", err)
				return 1, signal{}, nil
			}
			if pattern.ExactlyMatches(pat, subject) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		status, sig, err := sh.execProgram(item.Body, streams)
		if item.Terminator == ast.OpSemiAnd {
			// fallthrough to the next clause's body without re-testing
			// its pattern (bash's `;&`).
			for _, next := range nextClauses(body.Cases, item) {
				if err != nil || sig.kind != sigNone {
					return status, sig, err
				}
				status, sig, err = sh.execProgram(next.Body, streams)
				if next.Terminator != ast.OpSemiAnd {
					break
				}
			}
		}
		return status, sig, err
	}
	return 0, signal{}, nil
}

func nextClauses(all []*ast.CaseItem, from *ast.CaseItem) []*ast.CaseItem {
	for i, it := range all {
		if it == from {
			return all[i+1:]
		}
	}
	return nil
}

func (sh *Shell) execIf(body ast.CompoundBody, streams ioStreams) (uint8, signal, error) {
	for _, clause := range body.Clauses {
		status, sig, err := sh.execProgram(clause.Cond, streams)
		if err != nil || sig.kind != sigNone {
			return status, sig, err
		}
		if status == 0 {
			return sh.execProgram(clause.Body, streams)
		}
	}
	if body.Else != nil {
		return sh.execProgram(body.Else, streams)
	}
	return 0, signal{}, nil
}

func (sh *Shell) execWhileUntil(body ast.CompoundBody, streams ioStreams, until bool) (uint8, signal, error) {
	var status uint8
	for {
		condStatus, sig, err := sh.execProgram(body.Cond, streams)
		if err != nil || sig.kind != sigNone {
			return condStatus, sig, err
		}
		truthy := condStatus == 0
		if until {
			truthy = !truthy
		}
		if !truthy {
			break
		}
		s, sig, err := sh.execProgram(body.Body, streams)
		status = s
		if err != nil {
			return status, sig, err
		}
		if sig.kind == sigBreak {
			if sig.level > 0 {
				return status, signal{kind: sigBreak, level: sig.level - 1}, nil
			}
			break
		}
		if sig.kind != sigNone && sig.kind != sigContinue {
			return status, sig, nil
		}
		if sig.kind == sigContinue && sig.level > 0 {
			return status, signal{kind: sigContinue, level: sig.level - 1}, nil
		}
	}
	return status, signal{}, nil
}
