package shellkit

import (
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execCapture runs src against a fresh Shell with stdout/stderr redirected
// into an os.Pipe, returning the combined output once the command has
// finished and the pipe has drained.
func execCapture(t *testing.T, src string) (string, uint8, error) {
	t.Helper()
	sh := New()
	r, w, err := os.Pipe()
	require.NoError(t, err)
	sh.Stdout = w
	sh.Stderr = w

	done := make(chan string, 1)
	go func() {
		buf, _ := io.ReadAll(r)
		done <- string(buf)
	}()

	status, execErr := sh.Execute(src)
	w.Close()
	out := <-done
	r.Close()
	return out, status, execErr
}

func TestIfElseSelectsBranch(t *testing.T) {
	out, status, err := execCapture(t, `if true; then echo yes; else echo no; fi`)
	require.NoError(t, err)
	assert.Equal(t, uint8(0), status)
	assert.Contains(t, out, "yes")
}

func TestAndOrShortCircuits(t *testing.T) {
	out, _, err := execCapture(t, `false && echo nope || echo ok`)
	require.NoError(t, err)
	assert.Contains(t, out, "ok")
	assert.NotContains(t, out, "nope")
}

func TestForLoopOverWordsBreaksOnMatch(t *testing.T) {
	out, _, err := execCapture(t, `for i in a b c; do if test "$i" = b; then break; fi; echo "$i"; done`)
	require.NoError(t, err)
	assert.Equal(t, "a\n", out)
}

func TestWhileLoopCounts(t *testing.T) {
	out, _, err := execCapture(t, `n=0; while test "$n" -lt 3; do echo "$n"; n=$((n+1)); done`)
	require.NoError(t, err)
	assert.Equal(t, "0\n1\n2\n", out)
}

func TestCaseMatchesPattern(t *testing.T) {
	out, _, err := execCapture(t, `x=foo; case $x in f*) echo matched;; *) echo other;; esac`)
	require.NoError(t, err)
	assert.Equal(t, "matched\n", out)
}

func TestPipelineConnectsStages(t *testing.T) {
	out, _, err := execCapture(t, `echo hello | cat`)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", out)
}

func TestExitPropagatesAsExitRequested(t *testing.T) {
	_, _, err := execCapture(t, `exit 7`)
	var exitErr *ExitRequested
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, uint8(7), exitErr.Code)
}

func TestBreakOutsideLoopReportsError(t *testing.T) {
	_, _, err := execCapture(t, `break`)
	assert.ErrorIs(t, err, ErrLoopControlOutsideLoop)
}

func TestIncompleteInputRequestsContinuation(t *testing.T) {
	sh := New()
	_, err := sh.ParseLine(`if true; then`)
	assert.True(t, IsIncomplete(err))
}

func TestFunctionDefinitionAndCall(t *testing.T) {
	out, _, err := execCapture(t, `greet() { echo "hi $1"; }; greet world`)
	require.NoError(t, err)
	assert.Equal(t, "hi world\n", out)
}

func TestHeredocBodyIsFedToStdin(t *testing.T) {
	out, _, err := execCapture(t, "cat <<EOF\nline one\nEOF\n")
	require.NoError(t, err)
	assert.Equal(t, "line one\n", out)
}
