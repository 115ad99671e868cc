// Package parser implements the recursive-descent parser: tokens in, full AST out, with a clean incomplete/
// tokenizing/fatal error split so a line editor can keep reading lines for
// an incomplete command.
package parser

import (
	"errors"
	"fmt"

	"github.com/reeflective/shellkit/internal/ast"
	shellerrors "github.com/reeflective/shellkit/internal/errors"
	"github.com/reeflective/shellkit/internal/token"
)

// Parser walks a flat token stream built by internal/token, consuming one
// heredoc body per << / <<- redirect it builds, in the order the lexer
// recorded them.
type Parser struct {
	toks []ast.Token
	pos  int

	heredocBodies []string
	heredocQuoted []bool
	heredocDelims []string
	heredocIdx    int
}

// Parse tokenizes and parses src with no alias expansion.
func Parse(src string) (*ast.Program, error) {
	return parseTokens(src, nil)
}

// ParseWithAliases runs the bounded alias-expansion pass before
// parsing.
func ParseWithAliases(src string, aliases map[string]string) (*ast.Program, error) {
	return parseTokens(src, aliases)
}

// ParseSubstitution parses the captured inner text of a $()/``` command
// substitution. It is the same entry point as Parse, called recursively
// while building word pieces (internal/parser/word.go).
func ParseSubstitution(src string) (*ast.Program, error) {
	return parseTokens(src, nil)
}

func parseTokens(src string, aliases map[string]string) (*ast.Program, error) {
	res, err := token.Tokenize(src)
	if err != nil {
		if errors.Is(err, shellerrors.ErrIncomplete) {
			return nil, &IncompleteError{Where: err.Error()}
		}
		return nil, &TokenizingError{Inner: err}
	}

	toks := res.Tokens
	if len(aliases) > 0 {
		toks, err = expandAliases(toks, aliases)
		if err != nil {
			return nil, err
		}
	}

	p := &Parser{
		toks:          toks,
		heredocBodies: res.HeredocBodies,
		heredocQuoted: res.HeredocQuoted,
		heredocDelims: res.HeredocDelims,
	}
	prog, err := p.parseProgram()
	if err != nil {
		return nil, err
	}
	return prog, nil
}

// --- token-stream helpers ---------------------------------------------

func (p *Parser) cur() ast.Token { return p.toks[p.pos] }

func (p *Parser) loc() ast.Location { return p.cur().Loc }

func (p *Parser) advance() ast.Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) atEOF() bool { return p.cur().Kind == ast.TokEOF }

func (p *Parser) isOp(k ast.OperatorKind) bool {
	return p.cur().Kind == ast.TokOperator && p.cur().Op == k
}

func (p *Parser) isNewline() bool { return p.cur().Kind == ast.TokNewline }

func (p *Parser) skipNewlines() {
	for p.isNewline() {
		p.advance()
	}
}

// isReservedWord reports whether the current token is an unquoted word
// exactly equal to s — quoting defeats reserved-word recognition, matching
// bash.
func (p *Parser) isReservedWord(s string) bool {
	t := p.cur()
	if t.Kind != ast.TokWord || len(t.Pieces) != 1 {
		return false
	}
	return t.Pieces[0].Quote == ast.Unquoted && t.Pieces[0].Text == s
}

func (p *Parser) expectReservedWord(s string) error {
	if !p.isReservedWord(s) {
		return fatalf(p.loc(), "expected %q", s)
	}
	p.advance()
	return nil
}

func (p *Parser) incomplete(where string) error {
	return &IncompleteError{Where: where}
}

// --- grammar -------------------------------------------------------------

func (p *Parser) parseProgram() (*ast.Program, error) {
	prog := &ast.Program{}
	p.skipNewlines()

	for !p.atEOF() {
		cc, err := p.parseCompleteCommand()
		if err != nil {
			return nil, err
		}
		if cc != nil {
			prog.Commands = append(prog.Commands, cc)
		}
		p.skipNewlines()
	}

	return prog, nil
}

func (p *Parser) parseCompleteCommand() (*ast.CompleteCommand, error) {
	cc := &ast.CompleteCommand{}

	for {
		list, err := p.parseAndOrList()
		if err != nil {
			return nil, err
		}
		cc.Lists = append(cc.Lists, list)

		switch {
		case p.isOp(ast.OpSemi):
			p.advance()
			cc.Background = append(cc.Background, false)
		case p.isOp(ast.OpAnd):
			p.advance()
			cc.Background = append(cc.Background, true)
		default:
			return cc, nil
		}

		if p.atEOF() || p.isNewline() || p.isCompoundBoundaryWord() || p.isOp(ast.OpRParen) ||
			p.isOp(ast.OpDSemi) || p.isOp(ast.OpSemiAnd) || p.isOp(ast.OpDSemiAnd) {
			return cc, nil
		}
	}
}

func (p *Parser) parseAndOrList() (*ast.AndOrList, error) {
	first, err := p.parsePipeline()
	if err != nil {
		return nil, err
	}
	list := &ast.AndOrList{Pipelines: []*ast.Pipeline{first}, Joins: []ast.AndOrJoin{ast.JoinNone}}

	for {
		var join ast.AndOrJoin
		switch {
		case p.isOp(ast.OpAndIf):
			join = ast.JoinAnd
		case p.isOp(ast.OpOrIf):
			join = ast.JoinOr
		default:
			return list, nil
		}
		p.advance()
		p.skipNewlines()

		next, err := p.parsePipeline()
		if err != nil {
			return nil, err
		}
		list.Pipelines = append(list.Pipelines, next)
		list.Joins = append(list.Joins, join)
	}
}

func (p *Parser) parsePipeline() (*ast.Pipeline, error) {
	pipe := &ast.Pipeline{}
	if p.isReservedWord("!") {
		pipe.Negated = true
		p.advance()
	}

	cmd, err := p.parseCommand()
	if err != nil {
		return nil, err
	}
	pipe.Commands = append(pipe.Commands, cmd)

	for {
		pipeAll := false
		switch {
		case p.isOp(ast.OpPipe):
		case p.isOp(ast.OpPipeAnd):
			pipeAll = true
		default:
			return pipe, nil
		}
		p.advance()
		p.skipNewlines()

		next, err := p.parseCommand()
		if err != nil {
			return nil, err
		}
		pipe.Commands = append(pipe.Commands, next)
		pipe.PipeAll = append(pipe.PipeAll, pipeAll)
	}
}

var compoundStarters = map[string]bool{
	"{": true, "for": true, "case": true, "if": true, "while": true,
	"until": true, "select": true, "[[": true,
}

func (p *Parser) parseCommand() (ast.Command, error) {
	if p.atEOF() {
		return nil, p.incomplete("expected a command")
	}

	if p.isOp(ast.OpLParen) {
		if p.looksLikeArithmeticCommand() {
			return p.parseArithmeticCommand()
		}
		return p.parseSubshell()
	}

	if p.isReservedWord("function") {
		return p.parseFunctionDef()
	}

	if p.cur().Kind == ast.TokWord {
		for kw := range compoundStarters {
			if p.isReservedWord(kw) {
				return p.parseNamedCompound(kw)
			}
		}
		// `name () compound-body` function definition, detected by
		// lookahead since the name itself isn't a reserved word.
		if p.looksLikeFunctionDef() {
			return p.parseFunctionDef()
		}
	}

	return p.parseSimpleCommand()
}

func (p *Parser) looksLikeArithmeticCommand() bool {
	return p.toks[p.pos].Kind == ast.TokOperator && p.toks[p.pos].Op == ast.OpLParen &&
		p.pos+1 < len(p.toks) && p.toks[p.pos+1].Kind == ast.TokOperator && p.toks[p.pos+1].Op == ast.OpLParen
}

func (p *Parser) looksLikeFunctionDef() bool {
	return p.pos+1 < len(p.toks) &&
		p.toks[p.pos+1].Kind == ast.TokOperator && p.toks[p.pos+1].Op == ast.OpLParen &&
		p.pos+2 < len(p.toks) &&
		p.toks[p.pos+2].Kind == ast.TokOperator && p.toks[p.pos+2].Op == ast.OpRParen
}

func (p *Parser) parseNamedCompound(kw string) (ast.Command, error) {
	switch kw {
	case "{":
		return p.parseBraceGroup()
	case "for":
		return p.parseForLoop()
	case "case":
		return p.parseCase()
	case "if":
		return p.parseIf()
	case "while", "until":
		return p.parseWhileUntil(kw == "until")
	case "select":
		return p.parseSelect()
	case "[[":
		return p.parseExtendedTestCommand()
	}
	return nil, fatalf(p.loc(), "unhandled compound starter %q", kw)
}

// --- simple commands -------------------------------------------------

func (p *Parser) parseSimpleCommand() (*ast.SimpleCommand, error) {
	sc := &ast.SimpleCommand{}
	sawCommandWord := false

	for {
		if p.atEOF() || p.isNewline() {
			break
		}
		if p.cur().Kind == ast.TokOperator && !p.isRedirectOp(p.cur().Op) {
			break
		}
		if p.cur().Kind == ast.TokWord && !sawCommandWord && p.isCompoundBoundaryWord() {
			break
		}

		switch p.cur().Kind {
		case ast.TokIONumber:
			fd := p.cur().IONumber
			p.advance()
			redir, err := p.parseRedirectTail(fd)
			if err != nil {
				return nil, err
			}
			sc.Redirects = append(sc.Redirects, redir)

		case ast.TokOperator:
			redir, err := p.parseRedirectTail(-1)
			if err != nil {
				return nil, err
			}
			sc.Redirects = append(sc.Redirects, redir)

		case ast.TokWord:
			tok := p.cur()
			if !sawCommandWord {
				if name, idx, appendOp, valueStart, ok := parseAssignmentPrefix(tok.Text); ok {
					valueTok := sliceTokenFrom(tok, valueStart)
					valueWord, err := buildWord(valueTok)
					if err != nil {
						return nil, err
					}
					assign := &ast.Assignment{Name: name, Value: valueWord, Append: appendOp}
					if idx != "" {
						assign.Index = operandWord(idx)
					}
					sc.Assignments = append(sc.Assignments, assign)
					p.advance()
					continue
				}
			}
			sawCommandWord = true
			w, err := buildWord(tok)
			if err != nil {
				return nil, err
			}
			sc.Words = append(sc.Words, w)
			p.advance()

		default:
			return sc, nil
		}
	}

	if len(sc.Words) == 0 && len(sc.Assignments) == 0 && len(sc.Redirects) == 0 {
		return nil, fatalf(p.loc(), "expected a command")
	}
	return sc, nil
}

// isCompoundBoundaryWord reports whether the current word token is a
// reserved word that ends the enclosing compound command's command list
// (e.g. "fi", "done", "esac") rather than starting a new simple command.
func (p *Parser) isCompoundBoundaryWord() bool {
	for _, kw := range []string{"then", "else", "elif", "fi", "do", "done", "esac", "}", "]]"} {
		if p.isReservedWord(kw) {
			return true
		}
	}
	return false
}

func (p *Parser) isRedirectOp(op ast.OperatorKind) bool {
	switch op {
	case ast.OpLess, ast.OpGreat, ast.OpDGreat, ast.OpAndGreat, ast.OpGreatAnd,
		ast.OpLessGreat, ast.OpDLess, ast.OpDLessDash:
		return true
	default:
		return false
	}
}

func (p *Parser) parseRedirectTail(fd int) (*ast.Redirect, error) {
	op := p.cur().Op
	p.advance()

	redir := &ast.Redirect{FD: fd, Op: op}

	if op == ast.OpDLess || op == ast.OpDLessDash {
		if p.heredocIdx >= len(p.heredocBodies) {
			return nil, fatalf(p.loc(), "heredoc body missing for delimiter")
		}
		redir.HeredocBody = p.heredocBodies[p.heredocIdx]
		redir.HeredocStrip = op == ast.OpDLessDash
		delim := p.heredocDelims[p.heredocIdx]
		quoted := p.heredocQuoted[p.heredocIdx]
		p.heredocIdx++
		if quoted {
			redir.Target = &ast.Word{Pieces: []ast.WordPiece{ast.SingleQuotedPiece{Text: delim}}}
		} else {
			redir.Target = &ast.Word{Pieces: []ast.WordPiece{ast.Literal{Text: delim}}}
		}
		return redir, nil
	}

	if p.cur().Kind != ast.TokWord {
		return nil, fatalf(p.loc(), "expected a word after redirection operator")
	}
	w, err := buildWord(p.advance())
	if err != nil {
		return nil, err
	}
	redir.Target = w
	return redir, nil
}

// parseAssignmentPrefix recognizes NAME=word / NAME+=word / NAME[idx]=word
// prefixes of a simple command.
func parseAssignmentPrefix(text string) (name, index string, appendOp bool, valueStart int, ok bool) {
	if text == "" || !isNameStartByte(text[0]) {
		return "", "", false, 0, false
	}
	j := 1
	for j < len(text) && isNameByte(text[j]) {
		j++
	}
	name = text[:j]
	pos := j

	if pos < len(text) && text[pos] == '[' {
		end, err := findBalanced(text, pos, '[', ']')
		if err != nil {
			return "", "", false, 0, false
		}
		index = text[pos+1 : end-1]
		pos = end
	}

	if pos+1 < len(text) && text[pos] == '+' && text[pos+1] == '=' {
		return name, index, true, pos + 2, true
	}
	if pos < len(text) && text[pos] == '=' {
		return name, index, false, pos + 1, true
	}
	return "", "", false, 0, false
}

// sliceTokenFrom returns a copy of tok with its Pieces and Text trimmed to
// start at byte offset `from`, preserving per-run quoting.
func sliceTokenFrom(tok ast.Token, from int) ast.Token {
	var out []ast.QuotedRun
	pos := 0
	for _, r := range tok.Pieces {
		rl := len(r.Text)
		if pos+rl <= from {
			pos += rl
			continue
		}
		start := 0
		if pos < from {
			start = from - pos
		}
		out = append(out, ast.QuotedRun{Text: r.Text[start:], Quote: r.Quote})
		pos += rl
	}
	newText := ""
	if from <= len(tok.Text) {
		newText = tok.Text[from:]
	}
	return ast.Token{Kind: tok.Kind, Text: newText, Loc: tok.Loc, Pieces: out}
}

// --- compound commands -------------------------------------------------

func (p *Parser) parseBraceGroup() (*ast.CompoundCommand, error) {
	if err := p.expectReservedWord("{"); err != nil {
		return nil, err
	}
	body, err := p.parseCommandListUntil("}")
	if err != nil {
		return nil, err
	}
	if err := p.expectReservedWord("}"); err != nil {
		return nil, err
	}
	cc := &ast.CompoundCommand{Kind: ast.KindBraceGroup, Body: ast.CompoundBody{Body: body}}
	return p.withTrailingRedirects(cc)
}

func (p *Parser) parseSubshell() (*ast.CompoundCommand, error) {
	if !p.isOp(ast.OpLParen) {
		return nil, fatalf(p.loc(), "expected (")
	}
	p.advance()
	body, err := p.parseCommandListUntilOp(ast.OpRParen)
	if err != nil {
		return nil, err
	}
	if !p.isOp(ast.OpRParen) {
		return nil, p.incomplete("unterminated subshell")
	}
	p.advance()
	cc := &ast.CompoundCommand{Kind: ast.KindSubshell, Body: ast.CompoundBody{Body: body}}
	return p.withTrailingRedirects(cc)
}

func (p *Parser) parseArithmeticCommand() (*ast.CompoundCommand, error) {
	p.advance() // (
	p.advance() // (
	start := p.pos
	depth := 1
	for depth > 0 {
		if p.atEOF() {
			return nil, p.incomplete("unterminated (( ))")
		}
		if p.isOp(ast.OpLParen) {
			depth++
		} else if p.isOp(ast.OpRParen) {
			depth--
			if depth == 0 {
				break
			}
		}
		p.advance()
	}
	expr := p.joinTokenText(start, p.pos)
	p.advance() // first )
	if !p.isOp(ast.OpRParen) {
		return nil, p.incomplete("unterminated (( ))")
	}
	p.advance() // second )
	cc := &ast.CompoundCommand{Kind: ast.KindArithmeticCommand, Body: ast.CompoundBody{Expr: expr}}
	return p.withTrailingRedirects(cc)
}

// joinTokenText best-effort re-serializes tokens[start:end] back to source
// text with single-space separators, for the arithmetic-command expression
// (the tokenizer does not treat bare `((...))` specially — only `$((...))`
// — so there is no opaque span to copy verbatim here).
func (p *Parser) joinTokenText(start, end int) string {
	var b []byte
	for i := start; i < end; i++ {
		if len(b) > 0 {
			b = append(b, ' ')
		}
		b = append(b, p.toks[i].Text...)
	}
	return string(b)
}

func (p *Parser) parseForLoop() (*ast.CompoundCommand, error) {
	if err := p.expectReservedWord("for"); err != nil {
		return nil, err
	}

	if p.isOp(ast.OpLParen) && p.pos+1 < len(p.toks) && p.toks[p.pos+1].Kind == ast.TokOperator && p.toks[p.pos+1].Op == ast.OpLParen {
		return p.parseArithmeticFor()
	}

	if p.cur().Kind != ast.TokWord {
		return nil, fatalf(p.loc(), "expected a name after for")
	}
	varName := p.advance().Text
	p.skipNewlines()

	body := ast.CompoundBody{Var: varName}
	if p.isReservedWord("in") {
		p.advance()
		for p.cur().Kind == ast.TokWord && !p.isReservedWord("do") {
			w, err := buildWord(p.advance())
			if err != nil {
				return nil, err
			}
			body.WordList = append(body.WordList, w)
		}
		p.terminateForHeader()
	} else {
		p.terminateForHeader()
	}

	if err := p.expectReservedWord("do"); err != nil {
		return nil, err
	}
	list, err := p.parseCommandListUntil("done")
	if err != nil {
		return nil, err
	}
	body.Body = list
	if err := p.expectReservedWord("done"); err != nil {
		return nil, err
	}
	cc := &ast.CompoundCommand{Kind: ast.KindForLoop, Body: body}
	return p.withTrailingRedirects(cc)
}

func (p *Parser) terminateForHeader() {
	if p.isOp(ast.OpSemi) || p.isNewline() {
		p.advance()
	}
	p.skipNewlines()
}

func (p *Parser) parseArithmeticFor() (*ast.CompoundCommand, error) {
	p.advance() // (
	p.advance() // (
	parts := [3]string{}
	for seg := 0; seg < 3; seg++ {
		start := p.pos
		for !p.isOp(ast.OpSemi) && !(p.isOp(ast.OpRParen) && seg == 2) {
			if p.atEOF() {
				return nil, p.incomplete("unterminated arithmetic for header")
			}
			p.advance()
		}
		parts[seg] = p.joinTokenText(start, p.pos)
		if seg < 2 {
			p.advance() // ;
		}
	}
	if !p.isOp(ast.OpRParen) {
		return nil, p.incomplete("unterminated arithmetic for header")
	}
	p.advance()
	if !p.isOp(ast.OpRParen) {
		return nil, p.incomplete("unterminated arithmetic for header")
	}
	p.advance()
	p.terminateForHeader()

	if err := p.expectReservedWord("do"); err != nil {
		return nil, err
	}
	list, err := p.parseCommandListUntil("done")
	if err != nil {
		return nil, err
	}
	if err := p.expectReservedWord("done"); err != nil {
		return nil, err
	}
	cc := &ast.CompoundCommand{Kind: ast.KindForLoop, Body: ast.CompoundBody{
		IsArithFor: true, ArithInit: parts[0], ArithCond: parts[1], ArithStep: parts[2], Body: list,
	}}
	return p.withTrailingRedirects(cc)
}

func (p *Parser) parseSelect() (*ast.CompoundCommand, error) {
	if err := p.expectReservedWord("select"); err != nil {
		return nil, err
	}
	if p.cur().Kind != ast.TokWord {
		return nil, fatalf(p.loc(), "expected a name after select")
	}
	varName := p.advance().Text
	p.skipNewlines()

	body := ast.CompoundBody{SelectVar: varName}
	if p.isReservedWord("in") {
		p.advance()
		for p.cur().Kind == ast.TokWord && !p.isReservedWord("do") {
			w, err := buildWord(p.advance())
			if err != nil {
				return nil, err
			}
			body.SelectWordList = append(body.SelectWordList, w)
		}
	}
	p.terminateForHeader()

	if err := p.expectReservedWord("do"); err != nil {
		return nil, err
	}
	list, err := p.parseCommandListUntil("done")
	if err != nil {
		return nil, err
	}
	body.Body = list
	if err := p.expectReservedWord("done"); err != nil {
		return nil, err
	}
	cc := &ast.CompoundCommand{Kind: ast.KindSelect, Body: body}
	return p.withTrailingRedirects(cc)
}

func (p *Parser) parseCase() (*ast.CompoundCommand, error) {
	if err := p.expectReservedWord("case"); err != nil {
		return nil, err
	}
	if p.cur().Kind != ast.TokWord {
		return nil, fatalf(p.loc(), "expected a word after case")
	}
	subject, err := buildWord(p.advance())
	if err != nil {
		return nil, err
	}
	p.skipNewlines()
	if err := p.expectReservedWord("in"); err != nil {
		return nil, err
	}
	p.skipNewlines()

	body := ast.CompoundBody{Subject: subject}
	for !p.isReservedWord("esac") {
		if p.atEOF() {
			return nil, p.incomplete("unterminated case")
		}
		item, err := p.parseCaseItem()
		if err != nil {
			return nil, err
		}
		body.Cases = append(body.Cases, item)
		p.skipNewlines()
	}
	p.advance() // esac
	cc := &ast.CompoundCommand{Kind: ast.KindCase, Body: body}
	return p.withTrailingRedirects(cc)
}

func (p *Parser) parseCaseItem() (*ast.CaseItem, error) {
	if p.isOp(ast.OpLParen) {
		p.advance()
	}
	item := &ast.CaseItem{}
	for {
		if p.cur().Kind != ast.TokWord {
			return nil, fatalf(p.loc(), "expected a case pattern")
		}
		w, err := buildWord(p.advance())
		if err != nil {
			return nil, err
		}
		item.Patterns = append(item.Patterns, w)
		if p.isOp(ast.OpPipe) {
			p.advance()
			continue
		}
		break
	}
	if !p.isOp(ast.OpRParen) {
		return nil, fatalf(p.loc(), "expected ) after case pattern")
	}
	p.advance()
	p.skipNewlines()

	list, err := p.parseCommandListUntilAny("esac")
	if err != nil {
		return nil, err
	}
	item.Body = list

	switch {
	case p.isOp(ast.OpDSemi):
		item.Terminator = ast.OpDSemi
		p.advance()
	case p.isOp(ast.OpSemiAnd):
		item.Terminator = ast.OpSemiAnd
		p.advance()
	case p.isOp(ast.OpDSemiAnd):
		item.Terminator = ast.OpDSemiAnd
		p.advance()
	default:
		item.Terminator = ast.OpDSemi
	}
	return item, nil
}

func (p *Parser) parseIf() (*ast.CompoundCommand, error) {
	if err := p.expectReservedWord("if"); err != nil {
		return nil, err
	}
	body := ast.CompoundBody{}

	for {
		cond, err := p.parseCommandListUntilAny("then")
		if err != nil {
			return nil, err
		}
		if err := p.expectReservedWord("then"); err != nil {
			return nil, err
		}
		thenBody, err := p.parseCommandListUntilAny("elif", "else", "fi")
		if err != nil {
			return nil, err
		}
		body.Clauses = append(body.Clauses, &ast.IfClause{Cond: cond, Body: thenBody})

		if p.isReservedWord("elif") {
			p.advance()
			continue
		}
		break
	}

	if p.isReservedWord("else") {
		p.advance()
		elseBody, err := p.parseCommandListUntil("fi")
		if err != nil {
			return nil, err
		}
		body.Else = elseBody
	}

	if err := p.expectReservedWord("fi"); err != nil {
		return nil, err
	}
	cc := &ast.CompoundCommand{Kind: ast.KindIf, Body: body}
	return p.withTrailingRedirects(cc)
}

func (p *Parser) parseWhileUntil(until bool) (*ast.CompoundCommand, error) {
	kw := "while"
	if until {
		kw = "until"
	}
	if err := p.expectReservedWord(kw); err != nil {
		return nil, err
	}
	cond, err := p.parseCommandListUntilAny("do")
	if err != nil {
		return nil, err
	}
	if err := p.expectReservedWord("do"); err != nil {
		return nil, err
	}
	list, err := p.parseCommandListUntil("done")
	if err != nil {
		return nil, err
	}
	if err := p.expectReservedWord("done"); err != nil {
		return nil, err
	}
	kind := ast.KindWhile
	if until {
		kind = ast.KindUntil
	}
	cc := &ast.CompoundCommand{Kind: kind, Body: ast.CompoundBody{Cond: cond, Body: list}}
	return p.withTrailingRedirects(cc)
}

func (p *Parser) parseFunctionDef() (*ast.FunctionDef, error) {
	hadKeyword := false
	if p.isReservedWord("function") {
		hadKeyword = true
		p.advance()
	}
	if p.cur().Kind != ast.TokWord {
		return nil, fatalf(p.loc(), "expected a function name")
	}
	name := p.advance().Text

	if p.isOp(ast.OpLParen) {
		p.advance()
		if !p.isOp(ast.OpRParen) {
			return nil, fatalf(p.loc(), "expected ) in function definition")
		}
		p.advance()
	} else if !hadKeyword {
		return nil, fatalf(p.loc(), "expected ( ) in function definition")
	}
	p.skipNewlines()

	body, err := p.parseCommand()
	if err != nil {
		return nil, err
	}
	cc, ok := body.(*ast.CompoundCommand)
	if !ok {
		return nil, fatalf(p.loc(), "function body must be a compound command")
	}
	return &ast.FunctionDef{Name: name, Body: cc}, nil
}

func (p *Parser) withTrailingRedirects(cc *ast.CompoundCommand) (*ast.CompoundCommand, error) {
	for p.cur().Kind == ast.TokIONumber || (p.cur().Kind == ast.TokOperator && p.isRedirectOp(p.cur().Op)) {
		fd := -1
		if p.cur().Kind == ast.TokIONumber {
			fd = p.cur().IONumber
			p.advance()
		}
		redir, err := p.parseRedirectTail(fd)
		if err != nil {
			return nil, err
		}
		cc.Redirects = append(cc.Redirects, redir)
	}
	return cc, nil
}

// --- command lists (bodies of compound commands) ------------------------

func (p *Parser) parseCommandListUntil(stop string) (*ast.Program, error) {
	return p.parseCommandListUntilAny(stop)
}

func (p *Parser) parseCommandListUntilAny(stops ...string) (*ast.Program, error) {
	prog := &ast.Program{}
	p.skipNewlines()
	for {
		if p.atEOF() {
			return nil, p.incomplete(fmt.Sprintf("expected one of %v", stops))
		}
		// A case item's body always ends at ;; / ;& / ;;&, regardless of
		// which stop words the caller passed in.
		if p.isOp(ast.OpDSemi) || p.isOp(ast.OpSemiAnd) || p.isOp(ast.OpDSemiAnd) {
			return prog, nil
		}
		for _, s := range stops {
			if p.isReservedWord(s) {
				return prog, nil
			}
		}
		cc, err := p.parseCompleteCommand()
		if err != nil {
			return nil, err
		}
		prog.Commands = append(prog.Commands, cc)
		p.skipNewlines()
	}
}

func (p *Parser) parseCommandListUntilOp(op ast.OperatorKind) (*ast.Program, error) {
	prog := &ast.Program{}
	p.skipNewlines()
	for {
		if p.atEOF() {
			return nil, p.incomplete("unterminated subshell")
		}
		if p.isOp(op) {
			return prog, nil
		}
		cc, err := p.parseCompleteCommand()
		if err != nil {
			return nil, err
		}
		prog.Commands = append(prog.Commands, cc)
		p.skipNewlines()
	}
}
