package parser

import (
	"strings"

	"github.com/reeflective/shellkit/internal/ast"
)

func isNameStartByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isNameByte(c byte) bool {
	return isNameStartByte(c) || (c >= '0' && c <= '9')
}

// scanName consumes a parameter name (an identifier, or a single special
// parameter character) starting at s[i], returning the name and the index
// just past it.
func scanName(s string, i int) (string, int) {
	if i >= len(s) {
		return "", i
	}
	if isNameStartByte(s[i]) {
		j := i
		for j < len(s) && isNameByte(s[j]) {
			j++
		}
		return s[i:j], j
	}
	// Special parameters and single-digit positional parameters consume
	// exactly one character.
	return s[i : i+1], i + 1
}

func operandWord(s string) *ast.Word {
	w, err := wordFromText(s, false, false)
	if err != nil {
		return &ast.Word{Pieces: []ast.WordPiece{ast.Literal{Text: s}}}
	}
	return w
}

// parseParamSpec parses the content of a ${...} construct, already
// stripped of its outer braces, into a ParameterExpansionSpec covering
// every ${...} operator form.
func parseParamSpec(inner string) (*ast.ParameterExpansionSpec, error) {
	if inner == "" {
		return &ast.ParameterExpansionSpec{Op: ast.ParamPlain}, nil
	}

	// ${#var} / ${#arr[@]} length vs ${##} / ${#} special parameter itself.
	if inner[0] == '#' && len(inner) > 1 {
		name, pos := scanName(inner, 1)
		spec := &ast.ParameterExpansionSpec{Name: name, Op: ast.ParamLength}
		if pos < len(inner) && inner[pos] == '[' {
			pos = applyIndex(spec, inner, pos)
		}
		if pos == len(inner) {
			return spec, nil
		}
		// Fall through: "#" wasn't a length marker (e.g. "#" is itself the
		// name, followed by an operator) — rare; re-scan inner from the
		// start below, with "#" as the name.
	}

	if inner[0] == '!' && len(inner) > 1 {
		rest := inner[1:]
		switch {
		case strings.HasSuffix(rest, "*") && isValidPrefixName(rest[:len(rest)-1]):
			return &ast.ParameterExpansionSpec{Name: rest[:len(rest)-1], Op: ast.ParamPrefixNames}, nil
		case strings.HasSuffix(rest, "@") && isValidPrefixName(rest[:len(rest)-1]):
			return &ast.ParameterExpansionSpec{Name: rest[:len(rest)-1], Op: ast.ParamPrefixNamesArray}, nil
		default:
			name, pos := scanName(rest, 0)
			spec := &ast.ParameterExpansionSpec{Name: name, Op: ast.ParamIndirect}
			if pos < len(rest) && rest[pos] == '[' {
				applyIndex(spec, rest, pos)
			}
			return spec, nil
		}
	}

	name, pos := scanName(inner, 0)
	spec := &ast.ParameterExpansionSpec{Name: name, Op: ast.ParamPlain}

	if pos < len(inner) && inner[pos] == '[' {
		pos = applyIndex(spec, inner, pos)
	}

	if pos == len(inner) {
		return spec, nil
	}
	rest := inner[pos:]

	switch {
	case strings.HasPrefix(rest, ":-"):
		spec.Op, spec.Word = ast.ParamDefault, operandWord(rest[2:])
	case strings.HasPrefix(rest, ":="):
		spec.Op, spec.Word = ast.ParamAssign, operandWord(rest[2:])
	case strings.HasPrefix(rest, ":?"):
		spec.Op, spec.Word = ast.ParamError, operandWord(rest[2:])
	case strings.HasPrefix(rest, ":+"):
		spec.Op, spec.Word = ast.ParamAlt, operandWord(rest[2:])
	case rest[0] == ':':
		parts := splitTopLevel(rest[1:], ':')
		spec.Op = ast.ParamSubstring
		spec.Word = operandWord(parts[0])
		if len(parts) > 1 {
			spec.Word2 = operandWord(parts[1])
		}
	case strings.HasPrefix(rest, "##"):
		spec.Op, spec.Word = ast.ParamRemoveLongestPrefix, operandWord(rest[2:])
	case rest[0] == '#':
		spec.Op, spec.Word = ast.ParamRemoveShortestPrefix, operandWord(rest[1:])
	case strings.HasPrefix(rest, "%%"):
		spec.Op, spec.Word = ast.ParamRemoveLongestSuffix, operandWord(rest[2:])
	case rest[0] == '%':
		spec.Op, spec.Word = ast.ParamRemoveShortestSuffix, operandWord(rest[1:])
	case strings.HasPrefix(rest, "//"):
		pat, rep := splitPatRep(rest[2:])
		spec.Op, spec.Word, spec.Word2 = ast.ParamReplaceAll, operandWord(pat), operandWord(rep)
	case rest[0] == '/':
		pat, rep := splitPatRep(rest[1:])
		spec.Op, spec.Word, spec.Word2 = ast.ParamReplaceFirst, operandWord(pat), operandWord(rep)
	case rest == "^^":
		spec.Op = ast.ParamUpperAll
	case rest[0] == '^':
		if strings.HasPrefix(rest, "^^") {
			spec.Op, spec.Word = ast.ParamUpperAll, operandWord(rest[2:])
		} else {
			spec.Op, spec.Word = ast.ParamUpperFirst, operandWord(rest[1:])
		}
	case rest == ",,":
		spec.Op = ast.ParamLowerAll
	case rest[0] == ',':
		if strings.HasPrefix(rest, ",,") {
			spec.Op, spec.Word = ast.ParamLowerAll, operandWord(rest[2:])
		} else {
			spec.Op, spec.Word = ast.ParamLowerFirst, operandWord(rest[1:])
		}
	case rest[0] == '@' && len(rest) == 2:
		spec.Op, spec.TransformOp = ast.ParamTransform, rest[1]
	default:
		// Unrecognized trailer: treat as a literal default-expansion word so
		// malformed-but-harmless input still produces something instead of
		// failing the whole parse.
		spec.Op, spec.Word = ast.ParamDefault, operandWord(rest)
	}

	return spec, nil
}

func applyIndex(spec *ast.ParameterExpansionSpec, s string, start int) int {
	end, err := findBalanced(s, start, '[', ']')
	if err != nil {
		return start
	}
	idxText := s[start+1 : end-1]
	switch idxText {
	case "@":
		spec.IndexAll = true
	case "*":
		spec.IndexAll = true
		spec.IndexStar = true
	default:
		spec.Index = operandWord(idxText)
	}
	return end
}

func isValidPrefixName(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isNameByte(s[i]) {
			return false
		}
	}
	return true
}

// splitPatRep splits a replace operand on the first top-level '/'; a
// missing separator means an empty replacement ("${var/pat}" deletes
// matches).
func splitPatRep(s string) (pat, rep string) {
	idx := indexOfTopLevelByte(s, '/')
	if idx < 0 {
		return s, ""
	}
	return s[:idx], s[idx+1:]
}
