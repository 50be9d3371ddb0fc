// Package engine composes the embedder, collection index, grammar registry,
// AST matcher and substitution compiler behind the four operations the
// transport layers consume.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/snow-ghost/rewriter/core"
	"github.com/snow-ghost/rewriter/embeddings"
	"github.com/snow-ghost/rewriter/grammar"
	"github.com/snow-ghost/rewriter/index"
	"github.com/snow-ghost/rewriter/matcher"
	"github.com/snow-ghost/rewriter/pkg/tracing"
	"github.com/snow-ghost/rewriter/rewrite"
	"github.com/snow-ghost/rewriter/store"
)

// Engine owns the process-wide indexes. It is constructed once at startup
// and passed into every handler; all shared state lives behind the indexes'
// reader-writer locks.
type Engine struct {
	embedder    embeddings.Embedder
	grammars    *grammar.Registry
	snippets    *index.Index[core.Snippet]
	collections *index.Index[core.MutationCollection]
	journal     *store.Journal
	logger      *slog.Logger
	tracer      *tracing.Tracer
}

// Option configures an Engine.
type Option func(*Engine)

// WithJournal persists runtime adds to j. It replays nothing by itself;
// call ReplayJournal before seeding definition files so journaled entries
// keep their original positions.
func WithJournal(j *store.Journal) Option {
	return func(e *Engine) { e.journal = j }
}

// WithLogger sets the engine's logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New builds an engine around the given embedder and grammar registry.
func New(embedder embeddings.Embedder, grammars *grammar.Registry, opts ...Option) *Engine {
	e := &Engine{
		embedder:    embedder,
		grammars:    grammars,
		snippets:    index.New[core.Snippet](embedder),
		collections: index.New[core.MutationCollection](embedder),
		logger:      slog.Default(),
		tracer:      tracing.Global("rewriter/engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// LookupSnippet returns the body of the snippet whose description is nearest
// to the query within the language's namespace.
func (e *Engine) LookupSnippet(ctx context.Context, description, language string) (core.Snippet, error) {
	hits, err := e.SearchSnippets(ctx, description, language, 1)
	if err != nil {
		return core.Snippet{}, err
	}
	return hits[0].Value, nil
}

// SearchSnippets returns up to topK snippets ranked by description
// similarity, restricted to the language's namespace.
func (e *Engine) SearchSnippets(ctx context.Context, description, language string, topK int) ([]index.Hit[core.Snippet], error) {
	ctx, span := e.tracer.StartLookupSpan(ctx, language, topK)
	defer span.End()

	hits, err := e.snippets.NearestText(ctx, description, topK, func(s core.Snippet) bool {
		return s.Language == language
	})
	if err != nil {
		tracing.RecordSpanError(span, err)
		return nil, err
	}
	if len(hits) == 0 {
		err := fmt.Errorf("%w: no snippets for language %q", core.ErrNoCollectionMatch, language)
		tracing.RecordSpanError(span, err)
		return nil, err
	}
	return hits, nil
}

// AddSnippet embeds the snippet's description and appends it to the
// language namespace, returning the assigned identifier.
func (e *Engine) AddSnippet(ctx context.Context, s core.Snippet) (int, error) {
	ctx, span := e.tracer.StartSpan(ctx, "engine.add_snippet")
	defer span.End()
	tracing.AddSpanAttributes(span, map[string]interface{}{"language": s.Language})

	id, err := e.snippets.Add(ctx, s.Description, s)
	if err != nil {
		tracing.RecordSpanError(span, err)
		return 0, err
	}
	if e.journal != nil {
		if err := e.journal.RecordSnippet(s); err != nil {
			e.logger.WarnContext(ctx, "journal write failed", "kind", "snippet", "error", err)
		}
	}
	e.logger.InfoContext(ctx, "snippet added", "id", id, "language", s.Language)
	return id, nil
}

// AddMutationCollection validates every rule, embeds the collection's
// description, and appends it to the global collection index.
func (e *Engine) AddMutationCollection(ctx context.Context, c core.MutationCollection) (int, error) {
	ctx, span := e.tracer.StartSpan(ctx, "engine.add_mutation_collection")
	defer span.End()
	tracing.AddSpanAttributes(span, map[string]interface{}{
		"language": c.Language,
		"rules":    len(c.Rules),
	})

	if err := c.Validate(); err != nil {
		tracing.RecordSpanError(span, err)
		return 0, err
	}
	id, err := e.collections.Add(ctx, c.Description, c)
	if err != nil {
		tracing.RecordSpanError(span, err)
		return 0, err
	}
	if e.journal != nil {
		if err := e.journal.RecordCollection(c); err != nil {
			e.logger.WarnContext(ctx, "journal write failed", "kind", "collection", "error", err)
		}
	}
	e.logger.InfoContext(ctx, "mutation collection added",
		"id", id, "language", c.Language, "rules", len(c.Rules))
	return id, nil
}

// Mutate selects the collection nearest to description, parses body under
// the language's grammar, picks the first rule (in declared order) with at
// least one match, and splices that rule's rendered template over the first
// pre-order match site. Exactly one substitution per invocation; on any
// failure the body is never altered or returned.
func (e *Engine) Mutate(ctx context.Context, description, language, body string) (string, error) {
	start := time.Now()
	ctx, span := e.tracer.StartMutateSpan(ctx, language)
	defer span.End()

	hits, err := e.collections.NearestText(ctx, description, 1, nil)
	if err != nil {
		tracing.RecordSpanError(span, err)
		return "", err
	}
	if len(hits) == 0 {
		err := fmt.Errorf("%w: collection index is empty", core.ErrNoCollectionMatch)
		tracing.RecordSpanError(span, err)
		return "", err
	}
	collection := hits[0].Value

	ast, err := e.grammars.Parse(ctx, language, []byte(body))
	if err != nil {
		tracing.RecordSpanError(span, err)
		return "", err
	}
	defer ast.Close()

	ruleIdx, match, err := SelectRule(collection, ast, e.logger)
	if err != nil {
		tracing.RecordSpanError(span, err)
		return "", err
	}

	out, err := rewrite.Apply(body, collection.Rules[ruleIdx].Template, match)
	if err != nil {
		tracing.RecordSpanError(span, err)
		return "", err
	}
	tracing.RecordSpanDuration(span, time.Since(start))

	e.logger.InfoContext(ctx, "mutation applied",
		"collection", hits[0].ID, "rule", ruleIdx, "language", language,
		"span_start", match.Root.Start, "span_end", match.Root.End)
	return out, nil
}

// SelectRule implements the selection policy: iterate rules in declared
// order and pick the first yielding at least one match, using its first
// pre-order match site. Rule order, not pattern specificity, governs
// selection. An expression that does not compile under the body's grammar
// was authored against a different one and simply never matches.
func SelectRule(c core.MutationCollection, ast *grammar.AST, logger *slog.Logger) (int, core.Match, error) {
	if logger == nil {
		logger = slog.Default()
	}
	for i, rule := range c.Rules {
		matches, err := matcher.Evaluate(rule.Expression, ast)
		if err != nil {
			logger.Debug("expression skipped under this grammar", "rule", i, "error", err)
			continue
		}
		if len(matches) > 0 {
			return i, matches[0], nil
		}
	}
	return 0, core.Match{}, core.ErrNoMatch
}

// SnippetCount and CollectionCount expose index sizes for health reporting.
func (e *Engine) SnippetCount() int    { return e.snippets.Len() }
func (e *Engine) CollectionCount() int { return e.collections.Len() }
