// Package rewrite renders rule templates against match captures and splices
// the result into the original body.
package rewrite

import (
	"fmt"
	"strings"

	"github.com/snow-ghost/rewriter/core"
)

// Render walks template segments in order: literals verbatim, capture refs
// replaced by the exact source text bound in match. A missing capture is a
// load-time validation bug, reported as ErrCaptureUnbound.
func Render(template []core.TemplateSegment, match core.Match) (string, error) {
	var b strings.Builder
	for _, seg := range template {
		switch seg.Kind {
		case core.SegmentLiteral:
			b.WriteString(seg.Text)
		case core.SegmentCapture:
			text, ok := match.Captures[seg.Text]
			if !ok {
				return "", fmt.Errorf("%w: %q", core.ErrCaptureUnbound, seg.Text)
			}
			b.WriteString(text)
		default:
			return "", fmt.Errorf("%w: unknown segment kind %d", core.ErrConfigInvalid, seg.Kind)
		}
	}
	return b.String(), nil
}

// Apply renders template against match and replaces the root span of body
// with the result. Everything outside the span, whitespace and formatting
// included, passes through untouched.
func Apply(body string, template []core.TemplateSegment, match core.Match) (string, error) {
	rendered, err := Render(template, match)
	if err != nil {
		return "", err
	}
	if int(match.Root.End) > len(body) || match.Root.Start > match.Root.End {
		return "", fmt.Errorf("match span [%d,%d) outside body of %d bytes",
			match.Root.Start, match.Root.End, len(body))
	}
	return body[:match.Root.Start] + rendered + body[match.Root.End:], nil
}
