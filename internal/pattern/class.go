package pattern

import "strings"

var posixClassNames = []string{
	"alpha", "digit", "alnum", "upper", "lower", "space", "punct",
	"blank", "cntrl", "graph", "print", "xdigit",
}

// compileClass compiles a `[...]` bracket expression starting at '['. It
// returns ok=false (and leaves c.pos unchanged) if the text does not form a
// valid class, so the caller can fall back to treating '[' as a literal.
func (c *compiler) compileClass() (charClass, bool, error) {
	save := c.pos
	c.pos++ // '['

	var cls charClass
	if c.peek() == '!' || c.peek() == '^' {
		cls.negate = true
		c.pos++
	}

	first := true
	for {
		if c.eof() {
			c.pos = save
			return charClass{}, false, nil
		}
		if c.peek() == ']' && !first {
			c.pos++
			return cls, true, nil
		}
		first = false

		if c.peek() == '[' && c.peekAt(1) == ':' {
			if name, ok := c.tryPosixClass(); ok {
				cls.posix = append(cls.posix, name)
				continue
			}
		}

		lo := c.peek()
		c.pos++
		if c.peek() == '-' && c.peekAt(1) != ']' && !c.eof() {
			c.pos++ // '-'
			hi := c.peek()
			c.pos++
			cls.ranges = append(cls.ranges, classRange{lo: lo, hi: hi})
			continue
		}
		cls.ranges = append(cls.ranges, classRange{lo: lo, hi: lo})
	}
}

func (c *compiler) tryPosixClass() (string, bool) {
	rest := string(c.src[c.pos:])
	for _, name := range posixClassNames {
		marker := "[:" + name + ":]"
		if strings.HasPrefix(rest, marker) {
			c.pos += len([]rune(marker))
			return name, true
		}
	}
	return "", false
}

func (cls charClass) matches(r rune) bool {
	match := false
	for _, rg := range cls.ranges {
		if r >= rg.lo && r <= rg.hi {
			match = true
			break
		}
	}
	if !match {
		for _, name := range cls.posix {
			if posixClassMatch(name, r) {
				match = true
				break
			}
		}
	}
	if cls.negate {
		return !match
	}
	return match
}

func posixClassMatch(name string, r rune) bool {
	switch name {
	case "alpha":
		return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
	case "digit":
		return r >= '0' && r <= '9'
	case "alnum":
		return posixClassMatch("alpha", r) || posixClassMatch("digit", r)
	case "upper":
		return r >= 'A' && r <= 'Z'
	case "lower":
		return r >= 'a' && r <= 'z'
	case "space":
		return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f'
	case "blank":
		return r == ' ' || r == '\t'
	case "punct":
		return strings.ContainsRune("!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~", r)
	case "cntrl":
		return r < 0x20 || r == 0x7f
	case "graph":
		return r > 0x20 && r < 0x7f
	case "print":
		return r >= 0x20 && r < 0x7f
	case "xdigit":
		return posixClassMatch("digit", r) || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
	default:
		return false
	}
}
