package expand

import "github.com/reeflective/shellkit/internal/ast"

// braceExpand implements brace expansion, the first expansion phase: a word's
// piece list is a simple sequence except where a BraceExpansionPiece sits,
// in which case the word forks into len(Parts) sequences, one per
// alternative, each continuing with the remaining pieces. Multiple brace
// pieces in one word cross-product left to right, matching bash's
// depth-first, leftmost-first expansion order (e.g. `{a,b}{1,2}` yields
// `a1 a2 b1 b2`, not `a1 b1 a2 b2`).
//
// The range/comma-list alternatives themselves were already computed by
// the parser (internal/parser/brace.go); this is purely the combinator
// over those already-resolved alternatives.
func braceExpand(pieces []ast.WordPiece) [][]ast.WordPiece {
	i := -1
	for j, p := range pieces {
		if _, ok := p.(ast.BraceExpansionPiece); ok {
			i = j
			break
		}
	}
	if i == -1 {
		return [][]ast.WordPiece{pieces}
	}

	brace := pieces[i].(ast.BraceExpansionPiece)
	prefix := pieces[:i]
	suffix := pieces[i+1:]

	var out [][]ast.WordPiece
	for _, alt := range brace.Parts {
		for _, suffixSeq := range braceExpand(suffix) {
			seq := make([]ast.WordPiece, 0, len(prefix)+len(alt.Pieces)+len(suffixSeq))
			seq = append(seq, prefix...)
			seq = append(seq, alt.Pieces...)
			seq = append(seq, suffixSeq...)
			out = append(out, seq)
		}
	}
	return out
}
