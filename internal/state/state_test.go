package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateOrAddPlainWrite(t *testing.T) {
	s := New()
	require.NoError(t, s.UpdateOrAdd("x", NewScalar("abc"), "", Anywhere, AssignGlobal))
	v, ok := s.Lookup("x", Anywhere)
	require.True(t, ok)
	assert.Equal(t, "abc", v.Value.Scalar)
}

func TestUpdateOrAddValidatorRejectsBadValue(t *testing.T) {
	s := New()
	err := s.UpdateOrAdd("n", NewScalar("notanumber"), "numeric", Anywhere, AssignGlobal)
	assert.Error(t, err)
	_, ok := s.Lookup("n", Anywhere)
	assert.False(t, ok)
}

func TestUpdateOrAddValidatorAcceptsGoodValue(t *testing.T) {
	s := New()
	err := s.UpdateOrAdd("n", NewScalar("42"), "numeric", Anywhere, AssignGlobal)
	assert.NoError(t, err)
}

func TestReadonlyRejectsWrite(t *testing.T) {
	s := New()
	require.NoError(t, s.UpdateOrAdd("x", NewScalar("1"), "", Anywhere, AssignGlobal))
	v, _ := s.Lookup("x", Anywhere)
	v.Attributes.Readonly = true

	err := s.UpdateOrAdd("x", NewScalar("2"), "", Anywhere, AssignGlobal)
	assert.Error(t, err)
}

func TestScopePushPopIsolatesLocals(t *testing.T) {
	s := New()
	require.NoError(t, s.UpdateOrAdd("g", NewScalar("global"), "", Anywhere, AssignGlobal))

	s.PushScope()
	require.NoError(t, s.UpdateOrAdd("l", NewScalar("local"), "", Anywhere, AssignLocal))

	_, ok := s.Lookup("l", Anywhere)
	assert.True(t, ok)

	s.PopScope()
	_, ok = s.Lookup("l", Anywhere)
	assert.False(t, ok, "local variable must not survive scope pop")

	g, ok := s.Lookup("g", Anywhere)
	require.True(t, ok)
	assert.Equal(t, "global", g.Value.Scalar)
}

func TestCompletionOptionsStackIsInnermostOnly(t *testing.T) {
	reg := NewCompletionRegistry()
	outer := reg.PushCurrent(NewCompletionSpec())
	inner := reg.PushCurrent(NewCompletionSpec())

	reg.Current().Options[OptNospace] = true
	assert.True(t, inner.Options[OptNospace])
	assert.False(t, outer.Options[OptNospace])

	reg.PopCurrent()
	assert.Same(t, outer, reg.Current())
}
