package builtins

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reeflective/shellkit/internal/complete"
	"github.com/reeflective/shellkit/internal/expand"
	"github.com/reeflective/shellkit/internal/state"
)

func newTestContext(args []string) (*ExecutionContext, *bytes.Buffer, *bytes.Buffer) {
	st := state.New()
	ex := expand.NewExpander(st, nil)
	ce := complete.New(st, ex, nil, nil)
	var stdout, stderr bytes.Buffer
	return &ExecutionContext{
		Shell:    st,
		Expand:   ex,
		Complete: ce,
		Stdout:   &stdout,
		Stderr:   &stderr,
		Args:     args,
	}, &stdout, &stderr
}

// complete -W "foo bar baz" cmd; compgen -W "foo bar baz" b -> prints bar\nbaz\n.
func TestCompleteAndCompgenWordlist(t *testing.T) {
	ctx, _, stderr := newTestContext([]string{"complete", "-W", "foo bar baz", "cmd"})
	res := NewRegistry().Run(ctx)
	require.Equal(t, Success, res.Kind, stderr.String())

	ctx2, stdout, stderr2 := newTestContext([]string{"compgen", "-W", "foo bar baz", "b"})
	ctx2.Shell = ctx.Shell
	ctx2.Complete = ctx.Complete
	res2 := NewRegistry().Run(ctx2)
	require.Equal(t, Success, res2.Kind, stderr2.String())
	assert.Equal(t, "bar\nbaz\n", stdout.String())
}

func TestCompletePrintsRegisteredSpec(t *testing.T) {
	ctx, _, _ := newTestContext([]string{"complete", "-W", "foo bar", "mycmd"})
	NewRegistry().Run(ctx)

	ctx2, stdout, _ := newTestContext([]string{"complete", "-p", "mycmd"})
	ctx2.Shell = ctx.Shell
	res := NewRegistry().Run(ctx2)
	require.Equal(t, Success, res.Kind)
	assert.True(t, strings.Contains(stdout.String(), "mycmd"))
	assert.True(t, strings.Contains(stdout.String(), "-W"))
}

func TestCompleteRemove(t *testing.T) {
	ctx, _, _ := newTestContext([]string{"complete", "-W", "foo", "mycmd"})
	NewRegistry().Run(ctx)
	require.NotNil(t, ctx.Shell.Completions.PerCommand["mycmd"])

	ctx2, _, _ := newTestContext([]string{"complete", "-r", "mycmd"})
	ctx2.Shell = ctx.Shell
	NewRegistry().Run(ctx2)
	assert.Nil(t, ctx2.Shell.Completions.PerCommand["mycmd"])
}

func TestCompleteDefaultPrintEmptyIsNotError(t *testing.T) {
	// SPEC_FULL.md Open Question 1: `complete -D -p` with no default spec
	// registered prints nothing and exits success.
	ctx, stdout, _ := newTestContext([]string{"complete", "-p", "-D"})
	res := NewRegistry().Run(ctx)
	assert.Equal(t, Success, res.Kind)
	assert.Empty(t, stdout.String())
}

// `continue 2` as a builtin returns ContinueLoop(1).
func TestContinueEncodesNMinus1(t *testing.T) {
	ctx, _, _ := newTestContext([]string{"continue", "2"})
	res := NewRegistry().Run(ctx)
	assert.Equal(t, ContinueLoop, res.Kind)
	assert.Equal(t, uint8(1), res.Code)
}

func TestContinueDefaultsToOne(t *testing.T) {
	ctx, _, _ := newTestContext([]string{"continue"})
	res := NewRegistry().Run(ctx)
	assert.Equal(t, ContinueLoop, res.Kind)
	assert.Equal(t, uint8(0), res.Code)
}

func TestContinueRejectsZero(t *testing.T) {
	ctx, _, _ := newTestContext([]string{"continue", "0"})
	res := NewRegistry().Run(ctx)
	assert.Equal(t, InvalidUsage, res.Kind)
}

func TestBreakEncodesNMinus1(t *testing.T) {
	ctx, _, _ := newTestContext([]string{"break", "3"})
	res := NewRegistry().Run(ctx)
	assert.Equal(t, BreakLoop, res.Kind)
	assert.Equal(t, uint8(2), res.Code)
}

// `exit` with last_exit_status=42 -> ExitShell(42).
func TestExitReusesLastStatus(t *testing.T) {
	ctx, _, _ := newTestContext([]string{"exit"})
	ctx.Shell.LastExitStatus = 42
	res := NewRegistry().Run(ctx)
	assert.Equal(t, ExitShell, res.Kind)
	assert.Equal(t, uint8(42), res.Code)
}

func TestExitMasksToLowByte(t *testing.T) {
	ctx, _, _ := newTestContext([]string{"exit", "257"})
	res := NewRegistry().Run(ctx)
	assert.Equal(t, ExitShell, res.Kind)
	assert.Equal(t, uint8(1), res.Code)
}

func TestExitRejectsNonNumeric(t *testing.T) {
	ctx, _, _ := newTestContext([]string{"exit", "abc"})
	res := NewRegistry().Run(ctx)
	assert.Equal(t, InvalidUsage, res.Kind)
}

func TestUmaskRoundTrips(t *testing.T) {
	ctx, _, _ := newTestContext([]string{"umask", "027"})
	res := NewRegistry().Run(ctx)
	require.Equal(t, Success, res.Kind)
	assert.Equal(t, uint32(0o027), ctx.Shell.Umask)

	ctx2, stdout, _ := newTestContext([]string{"umask"})
	ctx2.Shell = ctx.Shell
	NewRegistry().Run(ctx2)
	assert.Equal(t, "0027\n", stdout.String())
}

func TestTypeResolvesBuiltinBeforePath(t *testing.T) {
	ctx, stdout, _ := newTestContext([]string{"type", "cd"})
	res := NewRegistry().Run(ctx)
	require.Equal(t, Success, res.Kind)
	assert.Contains(t, stdout.String(), "cd is a shell builtin")
}

func TestUnknownBuiltinIsUnimplemented(t *testing.T) {
	ctx, _, _ := newTestContext([]string{"frobnicate"})
	res := NewRegistry().Run(ctx)
	assert.Equal(t, Unimplemented, res.Kind)
	assert.Equal(t, uint8(2), res.Code)
}

func TestDeclareSetsExportAttribute(t *testing.T) {
	ctx, _, stderr := newTestContext([]string{"declare", "-x", "FOO=bar"})
	res := NewRegistry().Run(ctx)
	require.Equal(t, Success, res.Kind, stderr.String())

	v, found := ctx.Shell.Lookup("FOO", state.Anywhere)
	require.True(t, found)
	assert.Equal(t, "bar", v.Value.Scalar)
	assert.True(t, v.Attributes.Exported)
}

func TestDeclareValidateRuleRejectsInvalidValue(t *testing.T) {
	ctx, _, stderr := newTestContext([]string{"declare", "-t", "numeric", "COUNT=abc"})
	res := NewRegistry().Run(ctx)
	assert.Equal(t, Custom, res.Kind)
	assert.Contains(t, stderr.String(), "COUNT")
}

func TestDeclareValidateRulePersistsAcrossLaterAssignments(t *testing.T) {
	ctx, _, stderr := newTestContext([]string{"declare", "-t", "numeric", "COUNT=1"})
	res := NewRegistry().Run(ctx)
	require.Equal(t, Success, res.Kind, stderr.String())

	err := ctx.Shell.UpdateOrAdd("COUNT", state.NewScalar("not-a-number"), "", state.Anywhere, state.AssignGlobal)
	assert.Error(t, err)

	err = ctx.Shell.UpdateOrAdd("COUNT", state.NewScalar("42"), "", state.Anywhere, state.AssignGlobal)
	assert.NoError(t, err)
}

func TestCompoptMutatesRegisteredSpecOptions(t *testing.T) {
	ctx, _, _ := newTestContext([]string{"complete", "-W", "foo", "mycmd"})
	NewRegistry().Run(ctx)

	ctx2, _, stderr := newTestContext([]string{"compopt", "-o", "nospace", "mycmd"})
	ctx2.Shell = ctx.Shell
	res := NewRegistry().Run(ctx2)
	require.Equal(t, Success, res.Kind, stderr.String())
	assert.True(t, ctx.Shell.Completions.PerCommand["mycmd"].Options[state.OptNospace])
}
