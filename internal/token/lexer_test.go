package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reeflective/shellkit/internal/ast"
	shellerrors "github.com/reeflective/shellkit/internal/errors"
)

func kinds(toks []ast.Token) []ast.TokenKind {
	out := make([]ast.TokenKind, len(toks))
	for i, t := range toks {
		out[i] = t.Kind
	}
	return out
}

func TestTokenizeSimpleCommand(t *testing.T) {
	res, err := Tokenize("echo hi\n")
	require.NoError(t, err)
	require.Len(t, res.Tokens, 4) // echo, hi, newline, eof
	assert.Equal(t, ast.TokWord, res.Tokens[0].Kind)
	assert.Equal(t, "echo", res.Tokens[0].Text)
	assert.Equal(t, ast.TokWord, res.Tokens[1].Kind)
	assert.Equal(t, "hi", res.Tokens[1].Text)
	assert.Equal(t, ast.TokNewline, res.Tokens[2].Kind)
	assert.Equal(t, ast.TokEOF, res.Tokens[3].Kind)
}

func TestTokenizeOperatorsMaximalMunch(t *testing.T) {
	res, err := Tokenize("a && b || c ;; d")
	require.NoError(t, err)
	ops := []ast.OperatorKind{}
	for _, tk := range res.Tokens {
		if tk.Kind == ast.TokOperator {
			ops = append(ops, tk.Op)
		}
	}
	assert.Equal(t, []ast.OperatorKind{ast.OpAndIf, ast.OpOrIf, ast.OpDSemi}, ops)
}

func TestTokenizeUnterminatedSingleQuoteIsIncomplete(t *testing.T) {
	_, err := Tokenize(`echo 'hi`)
	require.Error(t, err)
	assert.ErrorIs(t, err, shellerrors.ErrIncomplete)
}

func TestTokenizeUnterminatedCommandSubstitutionIsIncomplete(t *testing.T) {
	_, err := Tokenize("echo $(foo")
	require.Error(t, err)
	assert.ErrorIs(t, err, shellerrors.ErrIncomplete)
}

func TestTokenizeBadAnsiCEscapeIsFatal(t *testing.T) {
	_, err := Tokenize(`echo $'\qfoo'`)
	require.Error(t, err)
	assert.ErrorIs(t, err, shellerrors.ErrBadEscape)
	assert.NotErrorIs(t, err, shellerrors.ErrIncomplete)
}

func TestTokenizeQuotedRunsRoundTrip(t *testing.T) {
	src := `echo "a $(b) c" 'd'`
	res, err := Tokenize(src)
	require.NoError(t, err)

	var rebuilt string
	for _, tk := range res.Tokens {
		if tk.Kind == ast.TokWord {
			for _, run := range tk.Pieces {
				rebuilt += run.Text
			}
		}
	}
	assert.Equal(t, `echo"a $(b) c"'d'`, rebuilt)
}

func TestTokenizeHeredocBody(t *testing.T) {
	res, err := Tokenize("cat <<EOF\nhello\nworld\nEOF\n")
	require.NoError(t, err)
	require.Len(t, res.HeredocBodies, 1)
	assert.Equal(t, "hello\nworld\n", res.HeredocBodies[0])
	assert.False(t, res.HeredocQuoted[0])
}

func TestTokenizeHeredocDashStripsTabs(t *testing.T) {
	res, err := Tokenize("cat <<-EOF\n\t\thello\n\tEOF\n")
	require.NoError(t, err)
	require.Len(t, res.HeredocBodies, 1)
	assert.Equal(t, "hello\n", res.HeredocBodies[0])
}
