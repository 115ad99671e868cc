package token

import "github.com/reeflective/shellkit/internal/ast"

// operatorTable lists every recognized operator, longest first, so a
// straightforward linear scan performs the maximal-munch match the
// tokenizer needs.
var operatorTable = []struct {
	text string
	kind ast.OperatorKind
}{
	{";;&", ast.OpDSemiAnd},
	{";&", ast.OpSemiAnd},
	{";;", ast.OpDSemi},
	{"&&", ast.OpAndIf},
	{"||", ast.OpOrIf},
	{"<<-", ast.OpDLessDash},
	{"<<", ast.OpDLess},
	{"<&", ast.OpAndGreat},
	{"<>", ast.OpLessGreat},
	{">>", ast.OpDGreat},
	{">&", ast.OpGreatAnd},
	{"|&", ast.OpPipeAnd},
	{"|", ast.OpPipe},
	{"&", ast.OpAnd},
	{";", ast.OpSemi},
	{"(", ast.OpLParen},
	{")", ast.OpRParen},
	{"<", ast.OpLess},
	{">", ast.OpGreat},
}

// matchOperator returns the longest operator matching a prefix of s, or
// ("", false) if s does not start with one.
func matchOperator(s string) (string, ast.OperatorKind, bool) {
	for _, op := range operatorTable {
		if len(s) >= len(op.text) && s[:len(op.text)] == op.text {
			return op.text, op.kind, true
		}
	}
	return "", 0, false
}

// operatorStartChars is every first byte an operator can start with, used
// to decide whether a bare char ends a word.
var operatorStartChars = "&|;<>()"

func isOperatorStart(b byte) bool {
	for i := 0; i < len(operatorStartChars); i++ {
		if operatorStartChars[i] == b {
			return true
		}
	}
	return false
}

func isBlank(b byte) bool {
	return b == ' ' || b == '\t'
}
