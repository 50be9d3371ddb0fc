package core

// RootCapture is the reserved capture name that binds the entire matched
// subtree. It is implicitly available on every expression and can never be
// redefined by rule authors.
const RootCapture = "root"

// Span marks a half-open byte range [Start, End) in a source body.
type Span struct {
	Start uint32
	End   uint32
}

// Len returns the number of bytes covered by the span.
func (s Span) Len() int { return int(s.End - s.Start) }

// SegmentKind tags the variant of a template segment.
type SegmentKind int

const (
	SegmentLiteral SegmentKind = iota
	SegmentCapture
)

// TemplateSegment is one piece of a rule's output template: either literal
// text emitted verbatim, or a reference to a named capture.
type TemplateSegment struct {
	Kind SegmentKind
	Text string // literal text, or the capture name
}

// Literal builds a literal template segment.
func Literal(text string) TemplateSegment {
	return TemplateSegment{Kind: SegmentLiteral, Text: text}
}

// CaptureRef builds a capture-reference template segment.
func CaptureRef(name string) TemplateSegment {
	return TemplateSegment{Kind: SegmentCapture, Text: name}
}

// MutationRule pairs a structural query expression with the template
// rendered at its match site.
type MutationRule struct {
	Expression string
	Template   []TemplateSegment
}

// MutationCollection is an ordered set of rules sharing one semantic
// description. Rule order is authoring metadata: the first rule that matches
// wins, so more specific rules go first. Language records which grammar the
// expressions were authored against.
type MutationCollection struct {
	Description string
	Language    string
	Rules       []MutationRule
}

// Snippet is a literal piece of code retrievable by description.
type Snippet struct {
	Description string
	Language    string
	Body        string
}

// Match binds capture names (including "root") to the exact source text of
// the subtree each one matched. Root is the span of the body that a rendered
// template replaces.
type Match struct {
	Captures map[string]string
	Root     Span
}
