package complete

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reeflective/shellkit/internal/expand"
	"github.com/reeflective/shellkit/internal/state"
)

func newEngine() (*Engine, *state.State) {
	st := state.New()
	ex := expand.NewExpander(st, nil)
	return New(st, ex, nil, nil), st
}

func TestWordlistCompletionFiltersByPrefix(t *testing.T) {
	e, st := newEngine()
	spec := state.NewCompletionSpec()
	spec.Wordlist = "foo bar baz"
	st.Completions.PerCommand["cmd"] = spec

	res := e.GetCompletions(context.Background(), "cmd b", 5)
	assert.Equal(t, []string{"bar", "baz"}, res.Candidates)
}

func TestDefaultSpecUsedWhenNoPerCommandMatch(t *testing.T) {
	e, st := newEngine()
	spec := state.NewCompletionSpec()
	spec.Wordlist = "alpha beta"
	st.Completions.Default = spec

	res := e.GetCompletions(context.Background(), "other a", 7)
	assert.Equal(t, []string{"alpha"}, res.Candidates)
}

func TestPrefixSuffixAppliedToCandidates(t *testing.T) {
	e, st := newEngine()
	spec := state.NewCompletionSpec()
	spec.Wordlist = "opt"
	spec.Prefix = "--"
	spec.Suffix = "="
	st.Completions.PerCommand["cmd"] = spec

	res := e.GetCompletions(context.Background(), "cmd ", 4)
	require.Contains(t, res.Candidates, "--opt=")
}

func TestCancellationYieldsEmptyResult(t *testing.T) {
	e, st := newEngine()
	spec := state.NewCompletionSpec()
	spec.Wordlist = "foo bar"
	st.Completions.PerCommand["cmd"] = spec

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := e.GetCompletions(ctx, "cmd f", 5)
	assert.Empty(t, res.Candidates)
	assert.Equal(t, 5, res.Start)
}

func TestFilterWithBangKeepsMatchingCandidates(t *testing.T) {
	e, st := newEngine()
	spec := state.NewCompletionSpec()
	spec.Wordlist = "foo.txt foo.go bar.go"
	spec.Filter = &state.FilterSpec{Pattern: "*.go", Exclude: true}
	st.Completions.PerCommand["cmd"] = spec

	res := e.GetCompletions(context.Background(), "cmd ", 4)
	assert.ElementsMatch(t, []string{"foo.go", "bar.go"}, res.Candidates)
}

func TestFilterWithoutBangExcludesMatchingCandidates(t *testing.T) {
	e, st := newEngine()
	spec := state.NewCompletionSpec()
	spec.Wordlist = "foo.txt foo.go bar.go"
	spec.Filter = &state.FilterSpec{Pattern: "*.go", Exclude: false}
	st.Completions.PerCommand["cmd"] = spec

	res := e.GetCompletions(context.Background(), "cmd ", 4)
	assert.ElementsMatch(t, []string{"foo.txt"}, res.Candidates)
}
