package expand

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/reeflective/shellkit/internal/ast"
	shellerrors "github.com/reeflective/shellkit/internal/errors"
	"github.com/reeflective/shellkit/internal/pattern"
	"github.com/reeflective/shellkit/internal/state"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// resolved is an intermediate lookup result: either a single scalar or an
// ordered list of elements (an array subscripted by @/* or one of the
// special multi-value parameters $@/$*).
type resolved struct {
	isList bool
	scalar string
	list   []string
	isSet  bool
}

// lookupBase resolves spec.Name (ignoring Index/Op) to its raw value,
// covering the positional/special parameters and ordinary/array shell variables.
func (e *Expander) lookupBase(name string) resolved {
	switch name {
	case "0":
		return resolved{scalar: e.Name, isSet: true}
	case "@":
		return resolved{isList: true, list: e.Args, isSet: true}
	case "*":
		return resolved{isList: true, list: e.Args, isSet: true}
	case "#":
		return resolved{scalar: strconv.Itoa(len(e.Args)), isSet: true}
	case "?":
		return resolved{scalar: strconv.Itoa(int(e.State.LastExitStatus)), isSet: true}
	case "-":
		return resolved{scalar: "", isSet: true}
	case "$":
		if e.Pid != nil {
			return resolved{scalar: strconv.Itoa(e.Pid()), isSet: true}
		}
		return resolved{scalar: "0", isSet: true}
	case "!":
		return resolved{scalar: e.BgPid, isSet: e.BgPid != ""}
	}

	if n, err := strconv.Atoi(name); err == nil && n >= 1 {
		if n <= len(e.Args) {
			return resolved{scalar: e.Args[n-1], isSet: true}
		}
		return resolved{isSet: false}
	}

	v, ok := e.State.Lookup(name, state.Anywhere)
	if !ok {
		return resolved{isSet: false}
	}
	switch v.Value.Kind {
	case state.ScalarValue:
		return resolved{scalar: v.Value.Scalar, isSet: true}
	case state.IndexedArrayValue:
		// Bare `$arr` is equivalent to `${arr[0]}`.
		if s, ok := v.Value.Indexed[0]; ok {
			return resolved{scalar: s, isSet: true}
		}
		return resolved{isSet: true}
	case state.AssocArrayValue:
		if s, ok := v.Value.Assoc["0"]; ok {
			return resolved{scalar: s, isSet: true}
		}
		return resolved{isSet: true}
	}
	return resolved{isSet: false}
}

// lookupIndexed resolves an explicit `${name[index]}` access, including the
// [@]/[*] all-elements forms.
func (e *Expander) lookupIndexed(name string, spec ast.ParameterExpansionSpec) (resolved, error) {
	v, ok := e.State.Lookup(name, state.Anywhere)
	if !ok {
		if name == "@" || name == "*" {
			if spec.IndexAll {
				return resolved{isList: true, list: e.Args, isSet: true}, nil
			}
		}
		return resolved{isSet: false}, nil
	}

	if spec.IndexAll {
		switch v.Value.Kind {
		case state.IndexedArrayValue:
			keys := maps.Keys(v.Value.Indexed)
			slices.Sort(keys)
			out := make([]string, len(keys))
			for i, k := range keys {
				out[i] = v.Value.Indexed[k]
			}
			return resolved{isList: true, list: out, isSet: true}, nil
		case state.AssocArrayValue:
			keys := maps.Keys(v.Value.Assoc)
			slices.Sort(keys)
			out := make([]string, len(keys))
			for i, k := range keys {
				out[i] = v.Value.Assoc[k]
			}
			return resolved{isList: true, list: out, isSet: true}, nil
		default:
			return resolved{isList: true, list: []string{v.Value.Scalar}, isSet: true}, nil
		}
	}

	idxWord, err := e.ExpandBasic(spec.Index)
	if err != nil {
		return resolved{}, err
	}

	switch v.Value.Kind {
	case state.AssocArrayValue:
		s, ok := v.Value.Assoc[idxWord]
		return resolved{scalar: s, isSet: ok}, nil
	case state.IndexedArrayValue:
		n, err := e.EvalArithmetic(idxWord)
		if err != nil {
			return resolved{}, err
		}
		s, ok := v.Value.Indexed[n]
		return resolved{scalar: s, isSet: ok}, nil
	default:
		n, err := e.EvalArithmetic(idxWord)
		if err != nil {
			return resolved{}, err
		}
		if n == 0 {
			return resolved{scalar: v.Value.Scalar, isSet: true}, nil
		}
		return resolved{isSet: false}, nil
	}
}

// expandParameter evaluates one ${...} / $var expansion to either a scalar
// or a list of fields. quoted tells transform/length/case ops whether their
// enclosing context is a double-quoted run (only relevant for how the
// result later participates in splitting, handled by the caller).
func (e *Expander) expandParameter(spec ast.ParameterExpansionSpec, quoted bool) (scalar string, list []string, isList bool, isArray bool, err error) {
	switch spec.Op {
	case ast.ParamLength:
		r, lerr := e.resolve(spec)
		if lerr != nil {
			return "", nil, false, false, lerr
		}
		if nerr := e.checkNounset(spec.Name, r); nerr != nil {
			return "", nil, false, false, nerr
		}
		if r.isList {
			return strconv.Itoa(len(r.list)), nil, false, false, nil
		}
		return strconv.Itoa(len(r.scalar)), nil, false, false, nil

	case ast.ParamPrefixNames, ast.ParamPrefixNamesArray:
		names := e.State.AllNames()
		sort.Strings(names)
		var out []string
		for _, n := range names {
			if strings.HasPrefix(n, spec.Name) {
				out = append(out, n)
			}
		}
		if spec.Op == ast.ParamPrefixNames {
			return strings.Join(out, " "), nil, false, false, nil
		}
		return "", out, true, false, nil

	case ast.ParamIndirect:
		r, rerr := e.resolve(spec)
		if rerr != nil {
			return "", nil, false, false, rerr
		}
		ref := r.scalar
		if ref == "" {
			return "", nil, false, false, nil
		}
		indirectSpec := ast.ParameterExpansionSpec{Name: ref, Op: ast.ParamPlain}
		return e.expandParameter(indirectSpec, quoted)

	case ast.ParamTransform:
		r, rerr := e.resolve(spec)
		if rerr != nil {
			return "", nil, false, false, rerr
		}
		return applyTransform(r.scalar, spec.TransformOp), nil, false, false, nil
	}

	r, rerr := e.resolve(spec)
	if rerr != nil {
		return "", nil, false, false, rerr
	}

	switch spec.Op {
	case ast.ParamPlain:
		if nerr := e.checkNounset(spec.Name, r); nerr != nil {
			return "", nil, false, false, nerr
		}
		if r.isList {
			return "", r.list, true, false, nil
		}
		return r.scalar, nil, false, false, nil

	case ast.ParamDefault:
		if isNonEmpty(r) {
			if r.isList {
				return "", r.list, true, false, nil
			}
			return r.scalar, nil, false, false, nil
		}
		d, derr := e.ExpandBasic(spec.Word)
		return d, nil, false, false, derr

	case ast.ParamAssign:
		if isNonEmpty(r) {
			if r.isList {
				return "", r.list, true, false, nil
			}
			return r.scalar, nil, false, false, nil
		}
		d, derr := e.ExpandBasic(spec.Word)
		if derr != nil {
			return "", nil, false, false, derr
		}
		if aerr := e.State.UpdateOrAdd(spec.Name, state.NewScalar(d), "", state.Anywhere, state.AssignLocal); aerr != nil {
			return "", nil, false, false, aerr
		}
		return d, nil, false, false, nil

	case ast.ParamError:
		if isNonEmpty(r) {
			if r.isList {
				return "", r.list, true, false, nil
			}
			return r.scalar, nil, false, false, nil
		}
		msg, _ := e.ExpandBasic(spec.Word)
		if msg == "" {
			msg = "parameter null or not set"
		}
		return "", nil, false, false, fmt.Errorf("%w: %s: %s", shellerrors.ErrParamRequired, spec.Name, msg)

	case ast.ParamAlt:
		if !isNonEmpty(r) {
			return "", nil, false, false, nil
		}
		alt, aerr := e.ExpandBasic(spec.Word)
		return alt, nil, false, false, aerr

	case ast.ParamSubstring:
		return e.expandSubstring(r, spec)

	case ast.ParamRemoveShortestPrefix, ast.ParamRemoveLongestPrefix,
		ast.ParamRemoveShortestSuffix, ast.ParamRemoveLongestSuffix:
		pat, perr := e.ExpandPattern(spec.Word)
		if perr != nil {
			return "", nil, false, false, perr
		}
		apply := func(s string) (string, error) { return e.removeMatch(s, pat, spec.Op) }
		return e.mapResolved(r, apply)

	case ast.ParamReplaceFirst, ast.ParamReplaceAll:
		pat, perr := e.ExpandPattern(spec.Word)
		if perr != nil {
			return "", nil, false, false, perr
		}
		rep := ""
		if spec.Word2 != nil {
			rep, perr = e.ExpandBasic(spec.Word2)
			if perr != nil {
				return "", nil, false, false, perr
			}
		}
		apply := func(s string) (string, error) {
			return e.replaceMatches(s, pat, rep, spec.Op == ast.ParamReplaceAll)
		}
		return e.mapResolved(r, apply)

	case ast.ParamUpperFirst, ast.ParamUpperAll, ast.ParamLowerFirst, ast.ParamLowerAll:
		var pat string
		if spec.Word != nil {
			var perr error
			pat, perr = e.ExpandPattern(spec.Word)
			if perr != nil {
				return "", nil, false, false, perr
			}
		}
		apply := func(s string) (string, error) { return applyCase(s, spec.Op, pat) }
		return e.mapResolved(r, apply)
	}

	if r.isList {
		return "", r.list, true, false, nil
	}
	return r.scalar, nil, false, false, nil
}

// checkNounset implements the `set -o nounset` error: a bare reference to
// an unset parameter is an error, except for "$@"/"$*" which are always
// considered set.
func (e *Expander) checkNounset(name string, r resolved) error {
	if r.isSet || name == "@" || name == "*" || !e.State.Options.Get(state.OptNounset) {
		return nil
	}
	return fmt.Errorf("%w: %s", shellerrors.ErrUnboundVariable, name)
}

func isNonEmpty(r resolved) bool {
	if !r.isSet {
		return false
	}
	if r.isList {
		return len(r.list) > 0
	}
	return r.scalar != ""
}

func (e *Expander) resolve(spec ast.ParameterExpansionSpec) (resolved, error) {
	if spec.Index != nil || spec.IndexAll {
		return e.lookupIndexed(spec.Name, spec)
	}
	return e.lookupBase(spec.Name), nil
}

// mapResolved applies a per-element transform to either the scalar or every
// element of a list result.
func (e *Expander) mapResolved(r resolved, f func(string) (string, error)) (string, []string, bool, bool, error) {
	if r.isList {
		out := make([]string, len(r.list))
		for i, s := range r.list {
			v, err := f(s)
			if err != nil {
				return "", nil, false, false, err
			}
			out[i] = v
		}
		return "", out, true, false, nil
	}
	v, err := f(r.scalar)
	if err != nil {
		return "", nil, false, false, err
	}
	return v, nil, false, false, nil
}

func (e *Expander) expandSubstring(r resolved, spec ast.ParameterExpansionSpec) (string, []string, bool, bool, error) {
	offWord, err := e.ExpandBasic(spec.Word)
	if err != nil {
		return "", nil, false, false, err
	}
	off, err := e.EvalArithmetic(offWord)
	if err != nil {
		return "", nil, false, false, err
	}

	substr := func(s string) string {
		n := len(s)
		start := off
		if start < 0 {
			start += n
			if start < 0 {
				start = 0
			}
		}
		if start > n {
			start = n
		}
		end := n
		if spec.Word2 != nil {
			lenWord, lerr := e.ExpandBasic(spec.Word2)
			if lerr == nil {
				length, lerr2 := e.EvalArithmetic(lenWord)
				if lerr2 == nil {
					if length < 0 {
						end = n + length
					} else {
						end = start + length
					}
				}
			}
		}
		if end > n {
			end = n
		}
		if end < start {
			end = start
		}
		return s[start:end]
	}

	if r.isList {
		out := make([]string, len(r.list))
		for i, s := range r.list {
			out[i] = substr(s)
		}
		return "", out, true, false, nil
	}
	return substr(r.scalar), nil, false, false, nil
}

func (e *Expander) removeMatch(s, pat string, op ast.ParamOp) (string, error) {
	if pat == "" {
		return s, nil
	}
	longest := op == ast.ParamRemoveLongestPrefix || op == ast.ParamRemoveLongestSuffix
	isPrefix := op == ast.ParamRemoveShortestPrefix || op == ast.ParamRemoveLongestPrefix

	best := -1
	for i := 0; i <= len(s); i++ {
		var candidate string
		if isPrefix {
			candidate = s[:i]
		} else {
			candidate = s[len(s)-i:]
		}
		p, err := pattern.Compile(pat, e.extGlob())
		if err != nil {
			return "", err
		}
		if pattern.ExactlyMatches(p, candidate) {
			if best == -1 || longest {
				best = i
				if !longest {
					break
				}
			}
		}
	}
	if best == -1 {
		return s, nil
	}
	if isPrefix {
		return s[best:], nil
	}
	return s[:len(s)-best], nil
}

func (e *Expander) replaceMatches(s, pat, rep string, all bool) (string, error) {
	if pat == "" {
		return s, nil
	}
	anchorPrefix := strings.HasPrefix(pat, "#")
	anchorSuffix := strings.HasPrefix(pat, "%")
	corePat := pat
	if anchorPrefix || anchorSuffix {
		corePat = pat[1:]
	}
	p, err := pattern.Compile(corePat, e.extGlob())
	if err != nil {
		return "", err
	}

	var b strings.Builder
	i := 0
	replaced := false
	for i < len(s) {
		if anchorPrefix && i != 0 {
			b.WriteString(s[i:])
			break
		}
		matchLen := -1
		maxJ := len(s)
		if anchorSuffix {
			maxJ = len(s)
		}
		for j := i; j <= maxJ; j++ {
			if pattern.ExactlyMatches(p, s[i:j]) {
				matchLen = j - i
				if !all {
					break
				}
			}
		}
		if matchLen < 0 {
			b.WriteByte(s[i])
			i++
			continue
		}
		if anchorSuffix && i+matchLen != len(s) {
			b.WriteByte(s[i])
			i++
			continue
		}
		b.WriteString(rep)
		replaced = true
		if matchLen == 0 {
			if i < len(s) {
				b.WriteByte(s[i])
			}
			i++
			continue
		}
		i += matchLen
		if !all {
			b.WriteString(s[i:])
			break
		}
		if anchorPrefix || anchorSuffix {
			b.WriteString(s[i:])
			break
		}
	}
	if !replaced {
		return s, nil
	}
	return b.String(), nil
}

func applyCase(s string, op ast.ParamOp, pat string) (string, error) {
	matches := func(r rune) bool {
		if pat == "" {
			return true
		}
		p, err := pattern.Compile(pat, false)
		if err != nil {
			return false
		}
		return pattern.ExactlyMatches(p, string(r))
	}

	toUpper := op == ast.ParamUpperFirst || op == ast.ParamUpperAll
	all := op == ast.ParamUpperAll || op == ast.ParamLowerAll

	runes := []rune(s)
	for i, r := range runes {
		if !all && i > 0 {
			break
		}
		if !matches(r) {
			if !all {
				break
			}
			continue
		}
		if toUpper {
			runes[i] = toUpperRune(r)
		} else {
			runes[i] = toLowerRune(r)
		}
	}
	return string(runes), nil
}

func toUpperRune(r rune) rune {
	if r >= 'a' && r <= 'z' {
		return r - ('a' - 'A')
	}
	return r
}

func toLowerRune(r rune) rune {
	if r >= 'A' && r <= 'Z' {
		return r + ('a' - 'A')
	}
	return r
}

// applyTransform implements ${var@op}: Q single-quotes the value for
// re-input, U and L upper- and lower-case the whole value. Every other
// operator, including E, P and a, returns the value unchanged.
func applyTransform(s string, op byte) string {
	switch op {
	case 'Q':
		var b strings.Builder
		b.WriteByte('\'')
		for _, r := range s {
			if r == '\'' {
				b.WriteString(`'\''`)
				continue
			}
			b.WriteRune(r)
		}
		b.WriteByte('\'')
		return b.String()
	case 'U':
		return strings.ToUpper(s)
	case 'L':
		return strings.ToLower(s)
	default:
		return s
	}
}
