package engine

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snow-ghost/rewriter/core"
	"github.com/snow-ghost/rewriter/embeddings"
	"github.com/snow-ghost/rewriter/grammar"
	"github.com/snow-ghost/rewriter/store"
)

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	embedder := embeddings.NewLocalEmbedder(nil, embeddings.CPU())
	return New(embedder, grammar.NewRegistry(), opts...)
}

const baseToParentExpr = `((call_expression
  function: (selector_expression
    operand: (identifier) @pkg
    field: (field_identifier) @fn)
  arguments: (argument_list (identifier) @path)) @root
 (#eq? @pkg "filepath")
 (#eq? @fn "Base"))`

func baseToParentCollection() core.MutationCollection {
	return core.MutationCollection{
		Description: "replace file base name calls with parent directory calls",
		Language:    "go",
		Rules: []core.MutationRule{
			{
				Expression: baseToParentExpr,
				Template: []core.TemplateSegment{
					core.Literal("parentOf("),
					core.CaptureRef("path"),
					core.Literal(")"),
				},
			},
		},
	}
}

func TestMutateRewritesBaseCall(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.AddMutationCollection(ctx, baseToParentCollection())
	require.NoError(t, err)

	out, err := e.Mutate(ctx,
		"replace file base name calls with parent directory calls",
		"go",
		"total := filepath.Base(resumeFilename)")
	require.NoError(t, err)
	assert.Equal(t, "total := parentOf(resumeFilename)", out)
}

func TestMutateIdentityTemplate(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.AddMutationCollection(ctx, core.MutationCollection{
		Description: "keep calls as they are",
		Language:    "go",
		Rules: []core.MutationRule{
			{
				Expression: `(call_expression) @root`,
				Template:   []core.TemplateSegment{core.CaptureRef(core.RootCapture)},
			},
		},
	})
	require.NoError(t, err)

	body := "total := filepath.Base(resumeFilename)  // keep\n"
	out, err := e.Mutate(ctx, "keep calls as they are", "go", body)
	require.NoError(t, err)
	assert.Equal(t, body, out)
}

func TestMutateDeclaredOrderBeatsSpecificity(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.AddMutationCollection(ctx, core.MutationCollection{
		Description: "flag calls",
		Language:    "go",
		Rules: []core.MutationRule{
			{
				// General rule declared first: it wins even though the
				// second rule matches the same code more specifically.
				Expression: `(call_expression) @root`,
				Template:   []core.TemplateSegment{core.Literal("anyCall")},
			},
			{
				Expression: baseToParentExpr,
				Template:   []core.TemplateSegment{core.Literal("baseCall")},
			},
		},
	})
	require.NoError(t, err)

	out, err := e.Mutate(ctx, "flag calls", "go", "x := filepath.Base(y)")
	require.NoError(t, err)
	assert.Equal(t, "x := anyCall", out)
}

func TestMutateFirstPreOrderSite(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.AddMutationCollection(ctx, core.MutationCollection{
		Description: "stub out calls",
		Language:    "go",
		Rules: []core.MutationRule{
			{
				Expression: `(call_expression) @root`,
				Template:   []core.TemplateSegment{core.Literal("stub()")},
			},
		},
	})
	require.NoError(t, err)

	// Two sites; only the first in pre-order is rewritten.
	out, err := e.Mutate(ctx, "stub out calls", "go", "a := f(x)\nb := g(y)\n")
	require.NoError(t, err)
	assert.Equal(t, "a := stub()\nb := g(y)\n", out)
}

func TestMutateNoMatchLeavesBodyUntouched(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.AddMutationCollection(ctx, baseToParentCollection())
	require.NoError(t, err)

	out, err := e.Mutate(ctx,
		"replace file base name calls with parent directory calls",
		"go",
		"x := 42")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrNoMatch)
	assert.Empty(t, out)
}

func TestMutateEmptyIndex(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.Mutate(context.Background(), "anything", "go", "x := f(y)")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrNoCollectionMatch)
}

func TestMutateUnsupportedLanguage(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.AddMutationCollection(ctx, baseToParentCollection())
	require.NoError(t, err)

	_, err = e.Mutate(ctx, "replace file base name calls", "cobol", "MOVE A TO B")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrUnsupportedLanguage)
}

func TestMutateSyntaxInvalid(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.AddMutationCollection(ctx, baseToParentCollection())
	require.NoError(t, err)

	_, err = e.Mutate(ctx, "replace file base name calls", "go", "func ((( {")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrSyntaxInvalid)
}

func TestAddMutationCollectionRejectsDanglingCapture(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.AddMutationCollection(context.Background(), core.MutationCollection{
		Description: "broken",
		Language:    "go",
		Rules: []core.MutationRule{
			{
				Expression: `(call_expression) @root`,
				Template:   []core.TemplateSegment{core.CaptureRef("path")},
			},
		},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrConfigInvalid)
	assert.Equal(t, 0, e.CollectionCount())
}

func TestAddSnippetThenLookup(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.AddSnippet(ctx, core.Snippet{
		Description: "channeled worker",
		Language:    "go",
		Body:        "go func() { for job := range jobs { do(job) } }()",
	})
	require.NoError(t, err)
	_, err = e.AddSnippet(ctx, core.Snippet{
		Description: "channeled worker",
		Language:    "rust",
		Body:        "thread::spawn(move || {})",
	})
	require.NoError(t, err)

	got, err := e.LookupSnippet(ctx, "channeled worker", "go")
	require.NoError(t, err)
	assert.Equal(t, "go func() { for job := range jobs { do(job) } }()", got.Body)
}

func TestLookupSnippetEmptyNamespace(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.AddSnippet(ctx, core.Snippet{Description: "x", Language: "rust", Body: "y"})
	require.NoError(t, err)

	_, err = e.LookupSnippet(ctx, "x", "go")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrNoCollectionMatch)
}

func TestJournalReplayRestoresAdds(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "journal.db")
	ctx := context.Background()

	j, err := store.NewJournal(dbPath)
	require.NoError(t, err)
	first := newTestEngine(t, WithJournal(j))

	_, err = first.AddSnippet(ctx, core.Snippet{Description: "read file", Language: "go", Body: "os.ReadFile(p)"})
	require.NoError(t, err)
	_, err = first.AddMutationCollection(ctx, baseToParentCollection())
	require.NoError(t, err)
	require.NoError(t, j.Close())

	j2, err := store.NewJournal(dbPath)
	require.NoError(t, err)
	defer j2.Close()

	second := newTestEngine(t, WithJournal(j2))
	require.NoError(t, second.ReplayJournal(ctx))
	assert.Equal(t, 1, second.SnippetCount())
	assert.Equal(t, 1, second.CollectionCount())

	got, err := second.LookupSnippet(ctx, "read file", "go")
	require.NoError(t, err)
	assert.Equal(t, "os.ReadFile(p)", got.Body)
}
