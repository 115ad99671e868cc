package parser

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reeflective/shellkit/internal/ast"
	shellerrors "github.com/reeflective/shellkit/internal/errors"
)

func TestParseSimpleCommandWithAssignmentsAndRedirects(t *testing.T) {
	prog, err := Parse(`FOO=bar echo hello > out.txt 2>&1`)
	require.NoError(t, err)
	require.Len(t, prog.Commands, 1)

	pipe := prog.Commands[0].Lists[0].Pipelines[0]
	sc, ok := pipe.Commands[0].(*ast.SimpleCommand)
	require.True(t, ok)

	require.Len(t, sc.Assignments, 1)
	assert.Equal(t, "FOO", sc.Assignments[0].Name)

	require.Len(t, sc.Words, 2)
	require.Len(t, sc.Redirects, 2)
	assert.Equal(t, ast.OpGreat, sc.Redirects[0].Op)
	assert.Equal(t, ast.OpGreatAnd, sc.Redirects[1].Op)
}

func TestParsePipelineAndAndOr(t *testing.T) {
	prog, err := Parse(`ls -la | grep foo && echo ok || echo fail`)
	require.NoError(t, err)
	list := prog.Commands[0].Lists[0]
	require.Len(t, list.Pipelines, 3)
	assert.Equal(t, ast.JoinAnd, list.Joins[1])
	assert.Equal(t, ast.JoinOr, list.Joins[2])
	assert.Len(t, list.Pipelines[0].Commands, 2)
}

func TestParseIfElifElse(t *testing.T) {
	prog, err := Parse("if true; then echo a; elif false; then echo b; else echo c; fi")
	require.NoError(t, err)
	cc, ok := prog.Commands[0].Lists[0].Pipelines[0].Commands[0].(*ast.CompoundCommand)
	require.True(t, ok)
	assert.Equal(t, ast.KindIf, cc.Kind)
	require.Len(t, cc.Body.Clauses, 2)
	assert.NotNil(t, cc.Body.Else)
}

func TestParseForLoopWithWordlist(t *testing.T) {
	prog, err := Parse("for x in a b c; do echo $x; done")
	require.NoError(t, err)
	cc := prog.Commands[0].Lists[0].Pipelines[0].Commands[0].(*ast.CompoundCommand)
	assert.Equal(t, ast.KindForLoop, cc.Kind)
	assert.Equal(t, "x", cc.Body.Var)
	require.Len(t, cc.Body.WordList, 3)
}

func TestParseCaseStatement(t *testing.T) {
	prog, err := Parse("case $x in a|b) echo ab ;; *) echo other ;; esac")
	require.NoError(t, err)
	cc := prog.Commands[0].Lists[0].Pipelines[0].Commands[0].(*ast.CompoundCommand)
	assert.Equal(t, ast.KindCase, cc.Kind)
	require.Len(t, cc.Body.Cases, 2)
	assert.Len(t, cc.Body.Cases[0].Patterns, 2)
}

func TestParseFunctionDefBothForms(t *testing.T) {
	prog, err := Parse("foo() { echo hi; }")
	require.NoError(t, err)
	fn, ok := prog.Commands[0].Lists[0].Pipelines[0].Commands[0].(*ast.FunctionDef)
	require.True(t, ok)
	assert.Equal(t, "foo", fn.Name)
	assert.Equal(t, ast.KindBraceGroup, fn.Body.Kind)
}

func TestParseParameterExpansionOperators(t *testing.T) {
	prog, err := Parse(`echo "${var:-default}"`)
	require.NoError(t, err)
	sc := prog.Commands[0].Lists[0].Pipelines[0].Commands[0].(*ast.SimpleCommand)
	dq := sc.Words[1].Pieces[0].(ast.DoubleQuotedPiece)
	pe := dq.Pieces[0].(ast.ParameterExpansion)
	assert.Equal(t, ast.ParamDefault, pe.Spec.Op)
	assert.Equal(t, "var", pe.Spec.Name)
}

func TestParseCommandSubstitutionBothForms(t *testing.T) {
	prog, err := Parse("echo $(ls) `pwd`")
	require.NoError(t, err)
	sc := prog.Commands[0].Lists[0].Pipelines[0].Commands[0].(*ast.SimpleCommand)
	cs1 := sc.Words[1].Pieces[0].(ast.CommandSubstitution)
	assert.False(t, cs1.Backtick)
	cs2 := sc.Words[2].Pieces[0].(ast.CommandSubstitution)
	assert.True(t, cs2.Backtick)
}

func TestParseExtendedTest(t *testing.T) {
	prog, err := Parse(`[[ -f foo.txt && $x == bar ]]`)
	require.NoError(t, err)
	cc := prog.Commands[0].Lists[0].Pipelines[0].Commands[0].(*ast.CompoundCommand)
	assert.Equal(t, ast.KindExtendedTest, cc.Kind)
	_, ok := cc.Body.Test.(ast.AndTest)
	assert.True(t, ok)
}

func TestParseIncompleteUnterminatedQuoteReturnsIncompleteError(t *testing.T) {
	_, err := Parse(`echo "unterminated`)
	var incomplete *IncompleteError
	assert.ErrorAs(t, err, &incomplete)
}

func TestParseHeredocAttachesBody(t *testing.T) {
	prog, err := Parse("cat <<EOF\nhello\nworld\nEOF\n")
	require.NoError(t, err)
	sc := prog.Commands[0].Lists[0].Pipelines[0].Commands[0].(*ast.SimpleCommand)
	require.Len(t, sc.Redirects, 1)
	assert.Equal(t, "hello\nworld\n", sc.Redirects[0].HeredocBody)
}

func TestExpandAliasesSubstitutesFirstWordOnly(t *testing.T) {
	prog, err := ParseWithAliases("ll /tmp", map[string]string{"ll": "ls -la"})
	require.NoError(t, err)
	sc := prog.Commands[0].Lists[0].Pipelines[0].Commands[0].(*ast.SimpleCommand)
	require.Len(t, sc.Words, 3)
}

func TestExpandAliasesBoundsRecursion(t *testing.T) {
	// A chain of 40 distinct aliases, each expanding to the next: no name
	// repeats, so the chainSeen guard never fires and the 32-iteration
	// bound is what has to stop it.
	aliases := map[string]string{}
	for i := 0; i < 39; i++ {
		aliases[fmt.Sprintf("a%d", i)] = fmt.Sprintf("a%d", i+1)
	}
	aliases["a39"] = "echo done"

	_, err := ParseWithAliases("a0", aliases)
	assert.ErrorIs(t, err, shellerrors.ErrAliasLoopBound)
}
