package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/snow-ghost/rewriter/core"
)

// SeedSnippet loads a definition-file snippet into the index without
// journaling it. Used at startup only.
func (e *Engine) SeedSnippet(ctx context.Context, s core.Snippet) (int, error) {
	return e.snippets.Add(ctx, s.Description, s)
}

// SeedCollection validates and loads a definition-file collection into the
// index without journaling it. Used at startup only.
func (e *Engine) SeedCollection(ctx context.Context, c core.MutationCollection) (int, error) {
	if err := c.Validate(); err != nil {
		return 0, err
	}
	return e.collections.Add(ctx, c.Description, c)
}

// ReplayJournal re-adds every journaled entry in its original insertion
// order. Entries that fail validation are skipped with a warning: the
// journal may predate stricter rules, and one bad record must not block
// startup.
func (e *Engine) ReplayJournal(ctx context.Context) error {
	if e.journal == nil {
		return nil
	}

	snippets, err := e.journal.Snippets()
	if err != nil {
		return fmt.Errorf("replay snippets: %w", err)
	}
	for _, s := range snippets {
		if _, err := e.SeedSnippet(ctx, s); err != nil {
			return fmt.Errorf("replay snippet %q: %w", s.Description, err)
		}
	}

	collections, err := e.journal.Collections()
	if err != nil {
		return fmt.Errorf("replay collections: %w", err)
	}
	for _, c := range collections {
		if _, err := e.SeedCollection(ctx, c); err != nil {
			if errors.Is(err, core.ErrConfigInvalid) {
				e.logger.WarnContext(ctx, "journaled collection rejected", "description", c.Description, "error", err)
				continue
			}
			return fmt.Errorf("replay collection %q: %w", c.Description, err)
		}
	}

	e.logger.InfoContext(ctx, "journal replayed",
		"snippets", len(snippets), "collections", len(collections))
	return nil
}
