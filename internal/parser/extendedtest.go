package parser

import (
	"github.com/reeflective/shellkit/internal/ast"
)

// unaryTestOps and binaryTestOps map the word spelling of a `[[ ... ]]`
// operator to its ast enum value.
var unaryTestOps = map[string]ast.UnaryTestOp{
	"-n": ast.UnaryStringNonEmpty, "-z": ast.UnaryStringEmpty,
	"-e": ast.UnaryFileExists, "-f": ast.UnaryFileRegular, "-d": ast.UnaryFileDir,
	"-L": ast.UnaryFileSymlink, "-r": ast.UnaryFileReadable, "-w": ast.UnaryFileWritable,
	"-x": ast.UnaryFileExecutable, "-s": ast.UnaryFileNonEmpty, "-t": ast.UnaryFDIsTTY,
	"-v": ast.UnaryVarSet, "-R": ast.UnaryVarNameref, "-o": ast.UnaryOptionEnabled,
}

var binaryTestOps = map[string]ast.BinaryTestOp{
	"==": ast.BinaryPatternEq, "=": ast.BinaryPatternEqPOSIX, "!=": ast.BinaryPatternNe,
	"=~": ast.BinaryRegexMatch, "<": ast.BinaryLexicalLt, ">": ast.BinaryLexicalGt,
	"-nt": ast.BinaryFileNewer, "-ot": ast.BinaryFileOlder, "-ef": ast.BinaryFileSameInode,
	"-eq": ast.BinaryIntEq, "-ne": ast.BinaryIntNe, "-lt": ast.BinaryIntLt,
	"-le": ast.BinaryIntLe, "-gt": ast.BinaryIntGt, "-ge": ast.BinaryIntGe,
}

// parseExtendedTestCommand parses `[[ expr ]]` into a CompoundCommand whose
// Body.Test holds the parsed ExtendedTestExpr tree. The
// tokenizer does not special-case "[[" — it is an ordinary reserved word —
// so operators like && and || inside the expression already arrive as the
// usual ast.OperatorKind tokens.
func (p *Parser) parseExtendedTestCommand() (*ast.CompoundCommand, error) {
	if err := p.expectReservedWord("[["); err != nil {
		return nil, err
	}
	expr, err := p.parseTestOr()
	if err != nil {
		return nil, err
	}
	if err := p.expectReservedWord("]]"); err != nil {
		return nil, err
	}
	cc := &ast.CompoundCommand{Kind: ast.KindExtendedTest, Body: ast.CompoundBody{Test: expr}}
	return p.withTrailingRedirects(cc)
}

func (p *Parser) parseTestOr() (ast.ExtendedTestExpr, error) {
	left, err := p.parseTestAnd()
	if err != nil {
		return nil, err
	}
	for p.isOp(ast.OpOrIf) {
		p.advance()
		right, err := p.parseTestAnd()
		if err != nil {
			return nil, err
		}
		left = ast.OrTest{Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseTestAnd() (ast.ExtendedTestExpr, error) {
	left, err := p.parseTestNot()
	if err != nil {
		return nil, err
	}
	for p.isOp(ast.OpAndIf) {
		p.advance()
		right, err := p.parseTestNot()
		if err != nil {
			return nil, err
		}
		left = ast.AndTest{Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseTestNot() (ast.ExtendedTestExpr, error) {
	if p.isReservedWord("!") {
		p.advance()
		inner, err := p.parseTestNot()
		if err != nil {
			return nil, err
		}
		return ast.NotTest{Expr: inner}, nil
	}
	return p.parseTestPrimary()
}

func (p *Parser) parseTestPrimary() (ast.ExtendedTestExpr, error) {
	if p.isOp(ast.OpLParen) {
		p.advance()
		inner, err := p.parseTestOr()
		if err != nil {
			return nil, err
		}
		if !p.isOp(ast.OpRParen) {
			return nil, fatalf(p.loc(), "expected ) in [[ ]] expression")
		}
		p.advance()
		return ast.ParenTest{Expr: inner}, nil
	}

	if p.cur().Kind != ast.TokWord {
		return nil, fatalf(p.loc(), "expected a test expression")
	}

	if op, ok := unaryTestOps[p.rawWordText()]; ok {
		p.advance()
		operand, err := p.parseTestWord()
		if err != nil {
			return nil, err
		}
		return ast.UnaryTest{Op: op, Word: operand}, nil
	}

	lhs, err := p.parseTestWord()
	if err != nil {
		return nil, err
	}

	if p.cur().Kind == ast.TokWord {
		if op, ok := binaryTestOps[p.rawWordText()]; ok {
			p.advance()
			if op == ast.BinaryRegexMatch && p.cur().Kind == ast.TokWord {
				// An unquoted regex loses ( ) | to operator tokens; rejoin
				// the tokens that follow it with no gap into one word.
				tok := p.advance()
				for next := p.cur(); (next.Kind == ast.TokWord || next.Kind == ast.TokOperator) &&
					next.Loc.Offset == tok.Loc.Offset+len(tok.Text); next = p.cur() {
					if next.Kind == ast.TokOperator {
						next.Pieces = []ast.QuotedRun{{Text: next.Text, Quote: ast.Unquoted}}
					}
					tok.Text += next.Text
					tok.Pieces = append(tok.Pieces, next.Pieces...)
					p.advance()
				}
				p.pos--
				p.toks[p.pos] = tok
			}
			rhs, err := p.parseTestWord()
			if err != nil {
				return nil, err
			}
			return ast.BinaryTest{Op: op, Left: lhs, Right: rhs}, nil
		}
	}

	// A bare word is true if non-empty, equivalent to `-n word`.
	return ast.UnaryTest{Op: ast.UnaryStringNonEmpty, Word: lhs}, nil
}

// rawWordText returns the raw spelling of an unquoted single-run word
// token, or "" if it isn't one — used to recognize operator spellings like
// -eq or == without mistaking a quoted lookalike for an operator.
func (p *Parser) rawWordText() string {
	t := p.cur()
	if t.Kind != ast.TokWord || len(t.Pieces) != 1 || t.Pieces[0].Quote != ast.Unquoted {
		return ""
	}
	return t.Pieces[0].Text
}

func (p *Parser) parseTestWord() (*ast.Word, error) {
	if p.cur().Kind != ast.TokWord {
		return nil, fatalf(p.loc(), "expected a word in [[ ]] expression")
	}
	return buildWord(p.advance())
}
