package pattern

import "regexp"

// RegexMatch is the result of a regex_matches call: whether the pattern
// matched, plus one entry per capture group (nil entries for absent
// optional groups).
type RegexMatch struct {
	Matched  bool
	Groups   []*string // index 0 is the whole match
}

// RegexMatches evaluates ERE-style `s =~ re`.
// Go's RE2 engine (regexp) covers the ERE subset needed here; it is a
// separate entrypoint from the glob engine above, and assigning
// BASH_REMATCH from the result is the caller's responsibility, not this
// package's.
func RegexMatches(re string, s string) (RegexMatch, error) {
	compiled, err := regexp.Compile(re)
	if err != nil {
		return RegexMatch{}, err
	}

	loc := compiled.FindStringSubmatchIndex(s)
	if loc == nil {
		return RegexMatch{Matched: false}, nil
	}

	groups := make([]*string, len(loc)/2)
	for i := range groups {
		start, end := loc[2*i], loc[2*i+1]
		if start < 0 || end < 0 {
			continue
		}
		val := s[start:end]
		groups[i] = &val
	}

	return RegexMatch{Matched: true, Groups: groups}, nil
}
