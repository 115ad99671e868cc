package pattern

// groupSpan locates the opGroupClose matching the opGroupOpen at ops[start]
// and splits its body into one []op per top-level alternative.
func groupSpan(ops []op, start int) (closeIdx int, alts [][]op) {
	depth := 1
	altStart := start + 1
	i := start + 1
	for i < len(ops) {
		switch ops[i].kind {
		case opGroupOpen:
			depth++
		case opGroupClose:
			depth--
			if depth == 0 {
				alts = append(alts, ops[altStart:i])
				return i, alts
			}
		case opAlt:
			if depth == 1 {
				alts = append(alts, ops[altStart:i])
				altStart = i + 1
			}
		}
		i++
	}
	return -1, nil
}

type cont func(si int) bool

// matchCPS is a continuation-passing backtracking matcher: it tries to
// match ops[oi:] against s starting at si, calling cont with the position
// reached once ops is exhausted. Using CPS lets group quantifiers (the
// extended-glob ?()/*()/+()/@()/!() forms) compose naturally with whatever
// follows the group in the pattern.
func matchCPS(ops []op, oi int, s []rune, si int, k cont) bool {
	if oi == len(ops) {
		return k(si)
	}

	switch ops[oi].kind {
	case opLiteral:
		r := []rune(ops[oi].literal)
		if si+len(r) > len(s) {
			return false
		}
		for i, rc := range r {
			if s[si+i] != rc {
				return false
			}
		}
		return matchCPS(ops, oi+1, s, si+len(r), k)

	case opAny:
		if si >= len(s) {
			return false
		}
		return matchCPS(ops, oi+1, s, si+1, k)

	case opClass:
		if si >= len(s) {
			return false
		}
		if !ops[oi].class.matches(s[si]) {
			return false
		}
		return matchCPS(ops, oi+1, s, si+1, k)

	case opStar:
		for end := len(s); end >= si; end-- {
			if matchCPS(ops, oi+1, s, end, k) {
				return true
			}
		}
		return false

	case opGroupOpen:
		closeIdx, alts := groupSpan(ops, oi)
		rest := func(endSi int) bool { return matchCPS(ops, closeIdx+1, s, endSi, k) }
		return matchGroup(ops[oi].group, alts, s, si, rest)
	}
	return false
}

func matchWhole(ops []op, s []rune) bool {
	return matchCPS(ops, 0, s, 0, func(si int) bool { return si == len(s) })
}

func matchGroup(kind groupKind, alts [][]op, s []rune, si int, rest cont) bool {
	switch kind {
	case groupZeroOrOne:
		for _, alt := range alts {
			if matchCPS(alt, 0, s, si, rest) {
				return true
			}
		}
		return rest(si)

	case groupExactlyOne:
		for _, alt := range alts {
			if matchCPS(alt, 0, s, si, rest) {
				return true
			}
		}
		return false

	case groupZeroOrMore, groupOneOrMore:
		var repeat func(curSi int, didOne bool) bool
		repeat = func(curSi int, didOne bool) bool {
			if didOne || kind == groupZeroOrMore {
				if rest(curSi) {
					return true
				}
			}
			for _, alt := range alts {
				if matchCPS(alt, 0, s, curSi, func(nextSi int) bool {
					if nextSi == curSi {
						return false // refuse an empty repetition: would loop forever
					}
					return repeat(nextSi, true)
				}) {
					return true
				}
			}
			return false
		}
		return repeat(si, false)

	case groupNegate:
		for end := len(s); end >= si; end-- {
			matched := false
			for _, alt := range alts {
				if matchWhole(alt, s[si:end]) {
					matched = true
					break
				}
			}
			if matched {
				continue
			}
			if rest(end) {
				return true
			}
		}
		return false
	}
	return false
}

// ExactlyMatches reports whether pat matches the whole of s.
func ExactlyMatches(p *Pattern, s string) bool {
	return matchWhole(p.ops, []rune(s))
}

// MatchesPrefix reports whether pat matches some prefix of s; a strict
// weakening of ExactlyMatches.
func MatchesPrefix(p *Pattern, s string) bool {
	runes := []rune(s)
	return matchCPS(p.ops, 0, runes, 0, func(si int) bool { return true })
}
