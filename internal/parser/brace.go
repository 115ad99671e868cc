package parser

import (
	"strconv"
	"strings"
)

// tryBraceExpansion recognizes the content of a {...} span as brace
// expansion: a
// comma list, or a `first..last` / `first..last..step` sequence. Anything
// else means the braces were literal.
func tryBraceExpansion(inner string) ([]string, bool) {
	if seq, ok := tryBraceSequence(inner); ok {
		return seq, true
	}
	parts := splitTopLevel(inner, ',')
	if len(parts) < 2 {
		return nil, false
	}
	return parts, true
}

func tryBraceSequence(inner string) ([]string, bool) {
	parts := splitTopLevelRun(inner, "..")
	if len(parts) != 2 && len(parts) != 3 {
		return nil, false
	}

	if n1, err1 := strconv.Atoi(parts[0]); err1 == nil {
		n2, err2 := strconv.Atoi(parts[1])
		if err2 != nil {
			return nil, false
		}
		step := 1
		if len(parts) == 3 {
			s, err3 := strconv.Atoi(parts[2])
			if err3 != nil || s == 0 {
				return nil, false
			}
			step = s
			if step < 0 {
				step = -step
			}
		}
		return expandIntRange(n1, n2, step, hasLeadingZero(parts[0]), len(parts[0])), true
	}

	if len(parts[0]) == 1 && len(parts[1]) == 1 && isAsciiLetter(parts[0][0]) && isAsciiLetter(parts[1][0]) {
		step := 1
		if len(parts) == 3 {
			s, err := strconv.Atoi(parts[2])
			if err != nil || s == 0 {
				return nil, false
			}
			step = s
			if step < 0 {
				step = -step
			}
		}
		return expandCharRange(parts[0][0], parts[1][0], step), true
	}

	return nil, false
}

func isAsciiLetter(b byte) bool { return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') }

func hasLeadingZero(s string) bool {
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	return len(s) > 1 && s[0] == '0'
}

func expandIntRange(from, to, step int, pad bool, width int) []string {
	var out []string
	if from <= to {
		for v := from; v <= to; v += step {
			out = append(out, formatRangeInt(v, pad, width))
		}
	} else {
		for v := from; v >= to; v -= step {
			out = append(out, formatRangeInt(v, pad, width))
		}
	}
	return out
}

func formatRangeInt(v int, pad bool, width int) string {
	s := strconv.Itoa(v)
	if !pad {
		return s
	}
	neg := strings.HasPrefix(s, "-")
	digits := s
	if neg {
		digits = s[1:]
		width--
	}
	for len(digits) < width {
		digits = "0" + digits
	}
	if neg {
		return "-" + digits
	}
	return digits
}

func expandCharRange(from, to byte, step int) []string {
	var out []string
	if from <= to {
		for v := int(from); v <= int(to); v += step {
			out = append(out, string(rune(v)))
		}
	} else {
		for v := int(from); v >= int(to); v -= step {
			out = append(out, string(rune(v)))
		}
	}
	return out
}

// splitTopLevelRun splits on a literal multi-byte separator at depth 0,
// reusing splitTopLevel's quote/substitution awareness one byte at a time.
func splitTopLevelRun(s string, sep string) []string {
	// ".." never appears inside bash quoting rules for a bare range operand,
	// so a direct scan respecting splitTopLevel's opaque spans is enough.
	fields := splitTopLevel(s, sep[0])
	if len(fields) < 2 {
		return []string{s}
	}
	// Re-glue any split that wasn't actually followed by the rest of sep.
	var out []string
	cur := fields[0]
	for i := 1; i < len(fields); i++ {
		if strings.HasPrefix(fields[i], sep[1:]) {
			out = append(out, cur)
			cur = fields[i][len(sep)-1:]
		} else {
			cur = cur + sep[:1] + fields[i]
		}
	}
	out = append(out, cur)
	return out
}
