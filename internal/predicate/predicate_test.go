package predicate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reeflective/shellkit/internal/ast"
	"github.com/reeflective/shellkit/internal/expand"
	"github.com/reeflective/shellkit/internal/parser"
	"github.com/reeflective/shellkit/internal/state"
)

// extTest parses `[[ src ]]` and returns the ExtendedTestExpr tree.
func extTest(t *testing.T, src string) ast.ExtendedTestExpr {
	t.Helper()
	prog, err := parser.Parse("[[ " + src + " ]]")
	require.NoError(t, err)
	cc := prog.Commands[0].Lists[0].Pipelines[0].Commands[0]
	compound, ok := cc.(*ast.CompoundCommand)
	require.True(t, ok)
	require.Equal(t, ast.KindExtendedTest, compound.Kind)
	return compound.Body.Test
}

func newEvaluator() (*Evaluator, *state.State) {
	st := state.New()
	ex := expand.NewExpander(st, nil)
	return New(st, ex), st
}

func TestPatternMatchUnquotedGlob(t *testing.T) {
	ev, _ := newEvaluator()
	ok, err := ev.Evaluate(extTest(t, "abc == a*"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPatternMatchQuotedRHSIsLiteral(t *testing.T) {
	ev, _ := newEvaluator()
	ok, err := ev.Evaluate(extTest(t, `"abc" == "a*"`))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRegexMatchSetsRematch(t *testing.T) {
	ev, st := newEvaluator()
	ok, err := ev.Evaluate(extTest(t, "abcd =~ ^a(b+)c"))
	require.NoError(t, err)
	assert.True(t, ok)

	v, found := st.Lookup("BASH_REMATCH", state.Anywhere)
	require.True(t, found)
	require.Equal(t, state.IndexedArrayValue, v.Value.Kind)
	assert.Equal(t, "abc", v.Value.Indexed[0])
	assert.Equal(t, "b", v.Value.Indexed[1])
}

func TestIntegerComparators(t *testing.T) {
	ev, _ := newEvaluator()
	ok, err := ev.Evaluate(extTest(t, "3 -lt 10"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = ev.Evaluate(extTest(t, "3 -gt 10"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNonNumericIntComparisonIsFalseNotError(t *testing.T) {
	ev, _ := newEvaluator()
	ok, err := ev.Evaluate(extTest(t, "abc -eq 1"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMalformedIntOperandIsFalseNotError(t *testing.T) {
	ev, _ := newEvaluator()
	ok, err := ev.Evaluate(extTest(t, `"1 2" -eq 1`))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVarSetPredicate(t *testing.T) {
	ev, st := newEvaluator()
	require.NoError(t, st.UpdateOrAdd("FOO", state.NewScalar("1"), "", state.Anywhere, state.AssignGlobal))

	ok, err := ev.Evaluate(extTest(t, "-v FOO"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = ev.Evaluate(extTest(t, "-v BAR"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAndOrNot(t *testing.T) {
	ev, _ := newEvaluator()
	ok, err := ev.Evaluate(extTest(t, "-n abc && 1 -eq 1"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = ev.Evaluate(extTest(t, "! -z abc"))
	require.NoError(t, err)
	assert.True(t, ok)
}
