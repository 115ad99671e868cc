package parser

import (
	"github.com/reeflective/shellkit/internal/ast"
	shellerrors "github.com/reeflective/shellkit/internal/errors"
	"github.com/reeflective/shellkit/internal/token"
)

const maxAliasIterations = 32

// cmdBoundaryOps are the operators after which the next word starts a new
// command, and is therefore eligible for alias expansion.
var cmdBoundaryOps = map[ast.OperatorKind]bool{
	ast.OpSemi: true, ast.OpAnd: true, ast.OpAndIf: true, ast.OpOrIf: true,
	ast.OpPipe: true, ast.OpPipeAnd: true, ast.OpLParen: true,
	ast.OpDSemi: true, ast.OpSemiAnd: true, ast.OpDSemiAnd: true,
}

// expandAliases runs the alias-expansion pass between tokenize and parse
//. It only fires when the caller's expand_aliases option is
// set, and only substitutes a command's first word; recursive expansion is
// bounded at 32 iterations and never re-expands an alias already on the
// current chain.
func expandAliases(toks []ast.Token, aliases map[string]string) ([]ast.Token, error) {
	if len(aliases) == 0 {
		return toks, nil
	}

	out := make([]ast.Token, 0, len(toks))
	atCmdStart := true
	chainSeen := map[string]bool{}
	iterations := 0

	i := 0
	for i < len(toks) {
		tok := toks[i]

		if tok.Kind == ast.TokWord && atCmdStart {
			if val, ok := aliases[tok.Text]; ok && !chainSeen[tok.Text] {
				iterations++
				if iterations > maxAliasIterations {
					return nil, shellerrors.ErrAliasLoopBound
				}
				chainSeen[tok.Text] = true

				res, err := token.Tokenize(val)
				if err != nil {
					return nil, err
				}
				sub := res.Tokens
				if len(sub) > 0 && sub[len(sub)-1].Kind == ast.TokEOF {
					sub = sub[:len(sub)-1]
				}

				rest := make([]ast.Token, len(toks)-i-1)
				copy(rest, toks[i+1:])
				toks = append(append(append([]ast.Token{}, toks[:i]...), sub...), rest...)
				continue
			}
			chainSeen = map[string]bool{}
			out = append(out, tok)
			atCmdStart = false
			i++
			continue
		}

		out = append(out, tok)
		switch {
		case tok.Kind == ast.TokNewline:
			atCmdStart = true
			chainSeen = map[string]bool{}
		case tok.Kind == ast.TokOperator && cmdBoundaryOps[tok.Op]:
			atCmdStart = true
			chainSeen = map[string]bool{}
		default:
			atCmdStart = false
		}
		i++
	}

	return out, nil
}
