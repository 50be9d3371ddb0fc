// Package matcher evaluates structural query expressions against parsed
// ASTs. An expression is a tree-sitter query annotated with @name capture
// markers; @root marks the subtree a rewrite replaces.
package matcher

import (
	"fmt"
	"sort"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/snow-ghost/rewriter/core"
	"github.com/snow-ghost/rewriter/grammar"
)

// CompileExpression normalizes an expression so that the root capture is
// always present: an expression that never writes @root gets it appended,
// binding the outermost pattern node.
func CompileExpression(expression string) string {
	for _, name := range core.ExpressionCaptures(expression) {
		if name == core.RootCapture {
			return expression
		}
	}
	return expression + " @" + core.RootCapture
}

// Evaluate runs expression against ast and returns every match site in
// pre-order position (shallowest, leftmost first). Matches whose root span
// overlaps an earlier one are dropped, so the result is non-overlapping.
// A compile error means the expression was not authored against this
// grammar; the caller decides whether that skips the rule or surfaces.
func Evaluate(expression string, ast *grammar.AST) ([]core.Match, error) {
	q, err := sitter.NewQuery([]byte(CompileExpression(expression)), ast.Language)
	if err != nil {
		return nil, fmt.Errorf("compile expression: %w", err)
	}
	defer q.Close()

	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(q, ast.Root())

	var matches []core.Match
	for {
		m, ok := qc.NextMatch()
		if !ok {
			break
		}
		m = qc.FilterPredicates(m, ast.Source)
		if len(m.Captures) == 0 {
			continue
		}

		match := core.Match{Captures: make(map[string]string, len(m.Captures))}
		bound := false
		for _, cap := range m.Captures {
			name := q.CaptureNameForId(cap.Index)
			match.Captures[name] = cap.Node.Content(ast.Source)
			if name == core.RootCapture {
				match.Root = core.Span{Start: cap.Node.StartByte(), End: cap.Node.EndByte()}
				bound = true
			}
		}
		if !bound {
			continue
		}
		matches = append(matches, match)
	}

	// Pre-order: earlier start first, and at equal starts the wider
	// (shallower) subtree first.
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Root.Start != matches[j].Root.Start {
			return matches[i].Root.Start < matches[j].Root.Start
		}
		return matches[i].Root.End > matches[j].Root.End
	})

	kept := matches[:0]
	var lastEnd uint32
	for _, m := range matches {
		if len(kept) > 0 && m.Root.Start < lastEnd {
			continue
		}
		kept = append(kept, m)
		lastEnd = m.Root.End
	}
	return kept, nil
}
