package pattern

import (
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/exp/slices"
)

// ExpandOptions controls the filesystem-facing behavior of ExpandPaths.
type ExpandOptions struct {
	Dotglob  bool // match leading-dot entries against non-dot metacharacters
	Nullglob bool // caller decides fallback; ExpandPaths just reports the raw match list
	Nosort   bool // skip the ASCII sort
}

// ExpandPaths expands a (possibly multi-segment) glob pattern against cwd,
// returning matching paths ASCII-sorted unless opts.Nosort is set (spec
// §4.4 "sorted ASCII unless nosort").
func ExpandPaths(src string, extGlob bool, cwd string, opts ExpandOptions) ([]string, error) {
	segments := strings.Split(filepath.ToSlash(src), "/")

	roots := []string{cwd}
	if strings.HasPrefix(src, "/") {
		roots = []string{"/"}
		segments = segments[1:]
	}

	matches := roots
	for _, seg := range segments {
		if seg == "" {
			continue
		}
		if !hasMeta(seg) {
			var next []string
			for _, base := range matches {
				next = append(next, filepath.Join(base, seg))
			}
			matches = next
			continue
		}

		pat, err := Compile(seg, extGlob)
		if err != nil {
			return nil, err
		}

		var next []string
		for _, base := range matches {
			entries, err := os.ReadDir(base)
			if err != nil {
				continue
			}
			for _, e := range entries {
				name := e.Name()
				if !opts.Dotglob && strings.HasPrefix(name, ".") && !strings.HasPrefix(seg, ".") {
					continue
				}
				if ExactlyMatches(pat, name) {
					next = append(next, filepath.Join(base, name))
				}
			}
		}
		matches = next
	}

	out := make([]string, len(matches))
	copy(out, matches)
	if !opts.Nosort {
		slices.Sort(out) // ASCII byte order
	}
	return out, nil
}

func hasMeta(s string) bool {
	return strings.ContainsAny(s, "*?[") || strings.ContainsAny(s, "@!+")
}
