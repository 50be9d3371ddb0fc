// Package grammar maps language tags to tree-sitter parse capabilities.
// The set of supported tags is fixed at construction; adding a language
// means registering another capability, not touching any caller.
package grammar

import (
	"context"
	"fmt"
	"sort"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/rust"

	"github.com/snow-ghost/rewriter/core"
)

// AST is a parsed source body together with everything needed to evaluate
// structural queries against it.
type AST struct {
	Source   []byte
	Language *sitter.Language
	tree     *sitter.Tree
}

// Root returns the root node of the parse tree.
func (a *AST) Root() *sitter.Node { return a.tree.RootNode() }

// Close releases the underlying tree-sitter tree.
func (a *AST) Close() {
	if a.tree != nil {
		a.tree.Close()
		a.tree = nil
	}
}

// Capability turns source text of one language into an AST.
type Capability interface {
	Tag() string
	Language() *sitter.Language
	Parse(ctx context.Context, source []byte) (*AST, error)
}

// Registry holds the closed set of supported languages. It is immutable
// after construction, so lookups need no locking and parses from any number
// of goroutines are independent.
type Registry struct {
	caps map[string]Capability
}

// NewRegistry builds a registry with the built-in grammars. File-extension
// style aliases (h, hpp, ts) resolve to the same capability as their
// canonical tag.
func NewRegistry() *Registry {
	r := &Registry{caps: make(map[string]Capability)}
	r.register(newCapability("go", golang.GetLanguage()))
	r.register(newCapability("rust", rust.GetLanguage()), "rs")
	r.register(newCapability("c", c.GetLanguage()), "h")
	r.register(newCapability("cpp", cpp.GetLanguage()), "hpp")
	r.register(newCapability("javascript", javascript.GetLanguage()), "js", "ts")
	return r
}

func (r *Registry) register(cap Capability, aliases ...string) {
	r.caps[cap.Tag()] = cap
	for _, alias := range aliases {
		r.caps[alias] = cap
	}
}

// Lookup resolves a language tag to its parse capability.
func (r *Registry) Lookup(tag string) (Capability, error) {
	cap, ok := r.caps[tag]
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrUnsupportedLanguage, tag)
	}
	return cap, nil
}

// Parse parses source under the grammar registered for tag.
func (r *Registry) Parse(ctx context.Context, tag string, source []byte) (*AST, error) {
	cap, err := r.Lookup(tag)
	if err != nil {
		return nil, err
	}
	return cap.Parse(ctx, source)
}

// Tags returns the registered tags, aliases included, sorted.
func (r *Registry) Tags() []string {
	tags := make([]string, 0, len(r.caps))
	for tag := range r.caps {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

type capability struct {
	tag  string
	lang *sitter.Language
}

func newCapability(tag string, lang *sitter.Language) *capability {
	return &capability{tag: tag, lang: lang}
}

func (c *capability) Tag() string                { return c.tag }
func (c *capability) Language() *sitter.Language { return c.lang }

// Parse builds a fresh parser per call; tree-sitter parsers are not safe for
// concurrent use, the languages are.
func (c *capability) Parse(ctx context.Context, source []byte) (*AST, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(c.lang)

	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", c.tag, err)
	}

	root := tree.RootNode()
	if root == nil || root.HasError() {
		tree.Close()
		return nil, fmt.Errorf("%w: %s grammar produced no well-formed tree", core.ErrSyntaxInvalid, c.tag)
	}

	return &AST{Source: source, Language: c.lang, tree: tree}, nil
}
