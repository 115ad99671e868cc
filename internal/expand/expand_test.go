package expand

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reeflective/shellkit/internal/ast"
	"github.com/reeflective/shellkit/internal/parser"
	"github.com/reeflective/shellkit/internal/state"
)

// firstWord parses src and returns the word AST of the first word of its
// first simple command, the shape every expansion phase operates on.
func firstWord(t *testing.T, src string) *ast.Word {
	t.Helper()
	prog, err := parser.Parse(src)
	require.NoError(t, err)
	require.NotEmpty(t, prog.Commands)
	cc := prog.Commands[0]
	require.NotEmpty(t, cc.Lists)
	cmd := cc.Lists[0].Pipelines[0].Commands[0]
	simple, ok := cmd.(*ast.SimpleCommand)
	require.True(t, ok, "expected a simple command")
	require.NotEmpty(t, simple.Words)
	return simple.Words[0]
}

func TestLiteralWordWithNoExpansionsRoundTrips(t *testing.T) {
	st := state.New()
	ex := NewExpander(st, nil)
	w := firstWord(t, "hello")
	out, err := ex.ExpandWord(w)
	require.NoError(t, err)
	assert.Equal(t, []string{"hello"}, out)
}

func TestBraceExpansionOrder(t *testing.T) {
	st := state.New()
	ex := NewExpander(st, nil)
	w := firstWord(t, "{a,b}{1,2}")
	out, err := ex.ExpandWord(w)
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "a2", "b1", "b2"}, out)
}

func TestParameterSubstring(t *testing.T) {
	st := state.New()
	require.NoError(t, st.UpdateOrAdd("x", state.NewScalar("abc"), "", state.Anywhere, state.AssignGlobal))
	ex := NewExpander(st, nil)
	w := firstWord(t, `${x:1:2}`)
	out, err := ex.ExpandWord(w)
	require.NoError(t, err)
	assert.Equal(t, []string{"bc"}, out)
}

func TestUnquotedWordSplitsOnIFS(t *testing.T) {
	st := state.New()
	require.NoError(t, st.UpdateOrAdd("x", state.NewScalar("a b"), "", state.Anywhere, state.AssignGlobal))
	ex := NewExpander(st, nil)
	w := firstWord(t, `$x`)
	out, err := ex.ExpandWord(w)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, out)
}

func TestQuotedWordIsSingleField(t *testing.T) {
	st := state.New()
	require.NoError(t, st.UpdateOrAdd("x", state.NewScalar("a b"), "", state.Anywhere, state.AssignGlobal))
	ex := NewExpander(st, nil)
	w := firstWord(t, `"$x"`)
	out, err := ex.ExpandWord(w)
	require.NoError(t, err)
	assert.Equal(t, []string{"a b"}, out)
}

func TestArithmeticExpansionEvaluatesExpr(t *testing.T) {
	st := state.New()
	ex := NewExpander(st, nil)
	w := firstWord(t, `$((2 + 3 * 2))`)
	out, err := ex.ExpandWord(w)
	require.NoError(t, err)
	assert.Equal(t, []string{"8"}, out)
}

func TestArithmeticPostIncrementYieldsOldValueAndWritesBack(t *testing.T) {
	st := state.New()
	require.NoError(t, st.UpdateOrAdd("i", state.NewScalar("5"), "", state.Anywhere, state.AssignGlobal))
	ex := NewExpander(st, nil)

	n, err := ex.EvalArithmetic("i++")
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	v, found := st.Lookup("i", state.Anywhere)
	require.True(t, found)
	assert.Equal(t, "6", v.Value.Scalar)
}

func TestArithmeticPreIncrementYieldsNewValueAndWritesBack(t *testing.T) {
	st := state.New()
	require.NoError(t, st.UpdateOrAdd("i", state.NewScalar("5"), "", state.Anywhere, state.AssignGlobal))
	ex := NewExpander(st, nil)

	n, err := ex.EvalArithmetic("++i")
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	v, found := st.Lookup("i", state.Anywhere)
	require.True(t, found)
	assert.Equal(t, "6", v.Value.Scalar)
}

func TestArithmeticPostDecrementYieldsOldValueAndWritesBack(t *testing.T) {
	st := state.New()
	require.NoError(t, st.UpdateOrAdd("i", state.NewScalar("5"), "", state.Anywhere, state.AssignGlobal))
	ex := NewExpander(st, nil)

	n, err := ex.EvalArithmetic("i--")
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	v, found := st.Lookup("i", state.Anywhere)
	require.True(t, found)
	assert.Equal(t, "4", v.Value.Scalar)
}

func TestArithmeticPreDecrementYieldsNewValueAndWritesBack(t *testing.T) {
	st := state.New()
	require.NoError(t, st.UpdateOrAdd("i", state.NewScalar("5"), "", state.Anywhere, state.AssignGlobal))
	ex := NewExpander(st, nil)

	n, err := ex.EvalArithmetic("--i")
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	v, found := st.Lookup("i", state.Anywhere)
	require.True(t, found)
	assert.Equal(t, "4", v.Value.Scalar)
}

func TestPathnameExpansionIsIdempotentWithoutMetachars(t *testing.T) {
	st := state.New()
	ex := NewExpander(st, nil)
	w := firstWord(t, "plainfile")
	first, err := ex.ExpandWord(w)
	require.NoError(t, err)
	w2 := firstWord(t, first[0])
	second, err := ex.ExpandWord(w2)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
