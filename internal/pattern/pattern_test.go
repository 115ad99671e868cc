package pattern

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExactlyMatchesBasicGlob(t *testing.T) {
	pat, err := Compile("a*c", false)
	require.NoError(t, err)
	assert.True(t, ExactlyMatches(pat, "abc"))
	assert.True(t, ExactlyMatches(pat, "ac"))
	assert.False(t, ExactlyMatches(pat, "abcd"))
}

func TestMatchesPrefixIsWeaker(t *testing.T) {
	pat, err := Compile("a*c", false)
	require.NoError(t, err)
	assert.True(t, pat != nil)
	assert.False(t, ExactlyMatches(pat, "abcd"))
	assert.True(t, MatchesPrefix(pat, "abcd"))
}

func TestCharClassAndNegation(t *testing.T) {
	pat, err := Compile("[abc]", false)
	require.NoError(t, err)
	assert.True(t, ExactlyMatches(pat, "b"))
	assert.False(t, ExactlyMatches(pat, "d"))

	neg, err := Compile("[!abc]", false)
	require.NoError(t, err)
	assert.False(t, ExactlyMatches(neg, "b"))
	assert.True(t, ExactlyMatches(neg, "d"))
}

func TestExtGlobGroups(t *testing.T) {
	star, err := Compile("@(foo|bar)baz", true)
	require.NoError(t, err)
	assert.True(t, ExactlyMatches(star, "foobaz"))
	assert.True(t, ExactlyMatches(star, "barbaz"))
	assert.False(t, ExactlyMatches(star, "quxbaz"))

	plus, err := Compile("+(ab)", true)
	require.NoError(t, err)
	assert.True(t, ExactlyMatches(plus, "ababab"))
	assert.False(t, ExactlyMatches(plus, ""))

	opt, err := Compile("ab?(c)", true)
	require.NoError(t, err)
	assert.True(t, ExactlyMatches(opt, "ab"))
	assert.True(t, ExactlyMatches(opt, "abc"))
	assert.False(t, ExactlyMatches(opt, "abcc"))

	neg, err := Compile("!(foo)", true)
	require.NoError(t, err)
	assert.False(t, ExactlyMatches(neg, "foo"))
	assert.True(t, ExactlyMatches(neg, "bar"))
}

func TestExtGlobDisabledIsLiteral(t *testing.T) {
	pat, err := Compile("@(foo|bar)", false)
	require.NoError(t, err)
	assert.True(t, ExactlyMatches(pat, "@(foo|bar)"))
	assert.False(t, ExactlyMatches(pat, "foo"))
}

func TestRegexMatchesCaptures(t *testing.T) {
	res, err := RegexMatches("^a(b+)c", "abbcd")
	require.NoError(t, err)
	require.True(t, res.Matched)
	require.Len(t, res.Groups, 2)
	assert.Equal(t, "abbc", *res.Groups[0])
	assert.Equal(t, "bb", *res.Groups[1])
}
