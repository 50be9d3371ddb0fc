package core

import "fmt"

// ExpressionCaptures lexically scans an expression for @name capture markers
// and returns the declared names in order of first appearance. The scan is
// deliberately grammar-free: capture names are plain identifiers in the
// query syntax, so they can be validated before any grammar is known.
func ExpressionCaptures(expression string) []string {
	var names []string
	seen := make(map[string]bool)

	for i := 0; i < len(expression); i++ {
		if expression[i] != '@' {
			continue
		}
		j := i + 1
		for j < len(expression) && isCaptureRune(expression[j]) {
			j++
		}
		if j > i+1 {
			name := expression[i+1 : j]
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
		i = j - 1
	}
	return names
}

func isCaptureRune(b byte) bool {
	return b == '_' || b == '.' || b == '-' ||
		(b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// Validate checks that every capture the template references is declared by
// the expression. RootCapture is always implicitly available.
func (r MutationRule) Validate() error {
	if r.Expression == "" {
		return fmt.Errorf("%w: empty expression", ErrConfigInvalid)
	}
	if len(r.Template) == 0 {
		return fmt.Errorf("%w: empty template", ErrConfigInvalid)
	}

	declared := map[string]bool{RootCapture: true}
	for _, name := range ExpressionCaptures(r.Expression) {
		declared[name] = true
	}

	for _, seg := range r.Template {
		if seg.Kind != SegmentCapture {
			continue
		}
		if !declared[seg.Text] {
			return fmt.Errorf("%w: template references undeclared capture %q", ErrConfigInvalid, seg.Text)
		}
	}
	return nil
}

// Validate checks a collection's description and every rule in it.
func (c MutationCollection) Validate() error {
	if c.Description == "" {
		return fmt.Errorf("%w: collection has no description", ErrConfigInvalid)
	}
	if len(c.Rules) == 0 {
		return fmt.Errorf("%w: collection %q has no rules", ErrConfigInvalid, c.Description)
	}
	for i, rule := range c.Rules {
		if err := rule.Validate(); err != nil {
			return fmt.Errorf("rule %d: %w", i, err)
		}
	}
	return nil
}
