// Package predicate evaluates `[[ ... ]]` extended-test expressions:
// string, file, variable, pattern, regex, lexical, and
// arithmetic-comparison predicates, composed with &&/||/!/(...).
package predicate

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/reeflective/shellkit/internal/ast"
	shellerrors "github.com/reeflective/shellkit/internal/errors"
	"github.com/reeflective/shellkit/internal/expand"
	"github.com/reeflective/shellkit/internal/pattern"
	"github.com/reeflective/shellkit/internal/state"
)

// Evaluator evaluates `[[ ... ]]` trees against one shell state, expanding
// operand words as it goes.
type Evaluator struct {
	State   *state.State
	Expand  *expand.Expander
}

// New builds an Evaluator sharing a shell state and expander with the rest
// of the interpreter.
func New(st *state.State, ex *expand.Expander) *Evaluator {
	return &Evaluator{State: st, Expand: ex}
}

// Evaluate walks an ExtendedTestExpr tree, returning its truth value (spec
// §4.6).
func (ev *Evaluator) Evaluate(expr ast.ExtendedTestExpr) (bool, error) {
	switch e := expr.(type) {
	case ast.AndTest:
		l, err := ev.Evaluate(e.Left)
		if err != nil || !l {
			return false, err
		}
		return ev.Evaluate(e.Right)

	case ast.OrTest:
		l, err := ev.Evaluate(e.Left)
		if err != nil {
			return false, err
		}
		if l {
			return true, nil
		}
		return ev.Evaluate(e.Right)

	case ast.NotTest:
		v, err := ev.Evaluate(e.Expr)
		if err != nil {
			return false, err
		}
		return !v, nil

	case ast.ParenTest:
		return ev.Evaluate(e.Expr)

	case ast.UnaryTest:
		return ev.evalUnary(e)

	case ast.BinaryTest:
		return ev.evalBinary(e)
	}
	return false, fmt.Errorf("%w: unrecognized extended-test node", shellerrors.ErrParseFatal)
}

func (ev *Evaluator) evalUnary(ut ast.UnaryTest) (bool, error) {
	switch ut.Op {
	case ast.UnaryVarSet:
		name, err := ev.Expand.ExpandBasic(ut.Word)
		if err != nil {
			return false, err
		}
		_, ok := ev.State.Lookup(name, state.Anywhere)
		return ok, nil

	case ast.UnaryVarNameref:
		name, err := ev.Expand.ExpandBasic(ut.Word)
		if err != nil {
			return false, err
		}
		v, ok := ev.State.Lookup(name, state.Anywhere)
		return ok && v.Attributes.Nameref, nil

	case ast.UnaryOptionEnabled:
		name, err := ev.Expand.ExpandBasic(ut.Word)
		if err != nil {
			return false, err
		}
		return ev.State.Options.Get(name), nil
	}

	s, err := ev.Expand.ExpandBasic(ut.Word)
	if err != nil {
		return false, err
	}

	switch ut.Op {
	case ast.UnaryStringNonEmpty:
		return s != "", nil
	case ast.UnaryStringEmpty:
		return s == "", nil
	case ast.UnaryFileExists:
		_, err := os.Stat(s)
		return err == nil, nil
	case ast.UnaryFileRegular:
		fi, err := os.Stat(s)
		return err == nil && fi.Mode().IsRegular(), nil
	case ast.UnaryFileDir:
		fi, err := os.Stat(s)
		return err == nil && fi.IsDir(), nil
	case ast.UnaryFileSymlink:
		fi, err := os.Lstat(s)
		return err == nil && fi.Mode()&os.ModeSymlink != 0, nil
	case ast.UnaryFileReadable:
		return accessible(s, 0o4), nil
	case ast.UnaryFileWritable:
		return accessible(s, 0o2), nil
	case ast.UnaryFileExecutable:
		return accessible(s, 0o1), nil
	case ast.UnaryFileNonEmpty:
		fi, err := os.Stat(s)
		return err == nil && fi.Size() > 0, nil
	case ast.UnaryFDIsTTY:
		fd, err := strconv.Atoi(s)
		if err != nil {
			return false, nil
		}
		fi, err := os.NewFile(uintptr(fd), "").Stat()
		return err == nil && fi.Mode()&os.ModeCharDevice != 0, nil
	}

	return false, fmt.Errorf("%w: unsupported unary test operator %q", shellerrors.ErrUnimplemented, ut.Op)
}

// accessible approximates bash's -r/-w/-x by checking the relevant
// permission bit against the file's own mode; it does not resolve the full
// POSIX owner/group/other access-check algorithm, which needs the
// process's effective uid/gid sets.
func accessible(path string, bit os.FileMode) bool {
	fi, err := os.Stat(path)
	if err != nil {
		return false
	}
	perm := fi.Mode().Perm()
	return perm&bit != 0 || perm&(bit<<3) != 0 || perm&(bit<<6) != 0
}

func (ev *Evaluator) evalBinary(bt ast.BinaryTest) (bool, error) {
	switch bt.Op {
	case ast.BinaryPatternEq, ast.BinaryPatternEqPOSIX, ast.BinaryPatternNe:
		left, err := ev.Expand.ExpandBasic(bt.Left)
		if err != nil {
			return false, err
		}
		pat, err := ev.Expand.ExpandPattern(bt.Right)
		if err != nil {
			return false, err
		}
		if ev.State.Options.Get(state.OptNocasematch) {
			left = strings.ToLower(left)
			pat = strings.ToLower(pat)
		}
		p, err := pattern.Compile(pat, ev.State.Options.Get(state.OptExtendedGlobbing))
		if err != nil {
			return false, err
		}
		matched := pattern.ExactlyMatches(p, left)
		if bt.Op == ast.BinaryPatternNe {
			return !matched, nil
		}
		return matched, nil

	case ast.BinaryRegexMatch:
		left, err := ev.Expand.ExpandBasic(bt.Left)
		if err != nil {
			return false, err
		}
		re, err := ev.Expand.ExpandBasic(bt.Right)
		if err != nil {
			return false, err
		}
		m, err := pattern.RegexMatches(re, left)
		if err != nil {
			return false, err
		}
		ev.setRematch(m)
		return m.Matched, nil

	case ast.BinaryLexicalLt, ast.BinaryLexicalGt:
		left, err := ev.Expand.ExpandBasic(bt.Left)
		if err != nil {
			return false, err
		}
		right, err := ev.Expand.ExpandBasic(bt.Right)
		if err != nil {
			return false, err
		}
		if bt.Op == ast.BinaryLexicalLt {
			return left < right, nil
		}
		return left > right, nil

	case ast.BinaryContains:
		left, err := ev.Expand.ExpandBasic(bt.Left)
		if err != nil {
			return false, err
		}
		right, err := ev.Expand.ExpandBasic(bt.Right)
		if err != nil {
			return false, err
		}
		return strings.Contains(left, right), nil

	case ast.BinaryFileNewer, ast.BinaryFileOlder, ast.BinaryFileSameInode:
		return ev.evalFileCompare(bt)

	case ast.BinaryIntEq, ast.BinaryIntNe, ast.BinaryIntLt, ast.BinaryIntLe, ast.BinaryIntGt, ast.BinaryIntGe:
		return ev.evalIntCompare(bt)
	}

	return false, fmt.Errorf("%w: unsupported binary test operator %q", shellerrors.ErrUnimplemented, bt.Op)
}

func (ev *Evaluator) evalFileCompare(bt ast.BinaryTest) (bool, error) {
	left, err := ev.Expand.ExpandBasic(bt.Left)
	if err != nil {
		return false, err
	}
	right, err := ev.Expand.ExpandBasic(bt.Right)
	if err != nil {
		return false, err
	}
	lfi, lerr := os.Stat(left)
	rfi, rerr := os.Stat(right)

	switch bt.Op {
	case ast.BinaryFileNewer:
		if lerr != nil {
			return false, nil
		}
		if rerr != nil {
			return true, nil
		}
		return lfi.ModTime().After(rfi.ModTime()), nil
	case ast.BinaryFileOlder:
		if rerr != nil {
			return false, nil
		}
		if lerr != nil {
			return true, nil
		}
		return lfi.ModTime().Before(rfi.ModTime()), nil
	case ast.BinaryFileSameInode:
		if lerr != nil || rerr != nil {
			return false, nil
		}
		lsys, lok := lfi.Sys().(*syscall.Stat_t)
		rsys, rok := rfi.Sys().(*syscall.Stat_t)
		if !lok || !rok {
			return false, nil
		}
		return lsys.Dev == rsys.Dev && lsys.Ino == rsys.Ino, nil
	}
	return false, nil
}

func (ev *Evaluator) evalIntCompare(bt ast.BinaryTest) (bool, error) {
	leftWord, err := ev.Expand.ExpandBasic(bt.Left)
	if err != nil {
		return false, err
	}
	rightWord, err := ev.Expand.ExpandBasic(bt.Right)
	if err != nil {
		return false, err
	}
	// Non-numeric operands are a semantic false, not an evaluation error:
	// bash's `[[ x -eq 1 ]]` reports failure, it doesn't abort the script.
	left, err := ev.Expand.EvalArithmetic(leftWord)
	if err != nil {
		return false, nil
	}
	right, err := ev.Expand.EvalArithmetic(rightWord)
	if err != nil {
		return false, nil
	}
	switch bt.Op {
	case ast.BinaryIntEq:
		return left == right, nil
	case ast.BinaryIntNe:
		return left != right, nil
	case ast.BinaryIntLt:
		return left < right, nil
	case ast.BinaryIntLe:
		return left <= right, nil
	case ast.BinaryIntGt:
		return left > right, nil
	case ast.BinaryIntGe:
		return left >= right, nil
	}
	return false, nil
}

// setRematch writes BASH_REMATCH as an indexed array: index 0 is the whole match, 1..n are capture groups.
func (ev *Evaluator) setRematch(m pattern.RegexMatch) {
	if !m.Matched {
		return
	}
	elems := map[int]string{}
	for i, g := range m.Groups {
		if g != nil {
			elems[i] = *g
		}
	}
	_ = ev.State.UpdateOrAdd("BASH_REMATCH", state.NewIndexedArray(elems), "", state.Anywhere, state.AssignGlobal)
}
