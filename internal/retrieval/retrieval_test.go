package retrieval

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tlowry/notectx/internal/embedder"
	"github.com/tlowry/notectx/internal/glossary"
	"github.com/tlowry/notectx/internal/scorer"
	"github.com/tlowry/notectx/internal/store"
	"github.com/tlowry/notectx/pkg/types"
)

// mockEmbedder maps texts onto a small keyword vocabulary so that texts
// sharing words get high cosine similarity, deterministically.
type mockEmbedder struct {
	embedCalls int64
	batchCalls int64
}

var mockVocab = []string{
	"shattered", "glass", "sky", "city", "event",
	"aurora", "harbor", "stew", "recipe", "winter",
}

func (m *mockEmbedder) vector(text string) []float32 {
	v := make([]float32, len(mockVocab)+1)
	lower := strings.ToLower(text)
	for i, w := range mockVocab {
		v[i] = float32(strings.Count(lower, w))
	}
	v[len(mockVocab)] = 0.1
	return embedder.NormalizeVector(v)
}

func (m *mockEmbedder) Embed(ctx context.Context, req embedder.Request) (*embedder.Embedding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	atomic.AddInt64(&m.embedCalls, 1)
	return &embedder.Embedding{
		Vector:    m.vector(req.Text),
		Dimension: len(mockVocab) + 1,
		Provider:  "mock",
		Model:     "mock-vocab",
	}, nil
}

func (m *mockEmbedder) EmbedBatch(ctx context.Context, req embedder.BatchRequest) (*embedder.BatchResponse, error) {
	atomic.AddInt64(&m.batchCalls, 1)
	embeddings := make([]*embedder.Embedding, len(req.Texts))
	for i, text := range req.Texts {
		embeddings[i] = &embedder.Embedding{
			Vector:    m.vector(text),
			Dimension: len(mockVocab) + 1,
			Provider:  "mock",
			Model:     "mock-vocab",
		}
	}
	return &embedder.BatchResponse{Embeddings: embeddings, Provider: "mock", Model: "mock-vocab"}, nil
}

func (m *mockEmbedder) Dimension() int   { return len(mockVocab) + 1 }
func (m *mockEmbedder) Provider() string { return "mock" }
func (m *mockEmbedder) Model() string    { return "mock-vocab" }
func (m *mockEmbedder) Close() error     { return nil }

type staticCorpus struct {
	notes []types.Note
}

func (c *staticCorpus) List(context.Context) ([]types.Note, error) {
	return c.notes, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(t *testing.T, corpus Corpus, terms []string) (*Service, *mockEmbedder, *store.SQLiteStore) {
	t.Helper()

	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	emb := &mockEmbedder{}
	cfg := DefaultConfig()
	cfg.Workers = 2

	svc, err := New(st, emb, glossary.NewStatic(terms), nil, corpus, scorer.DefaultWeights(), cfg, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })

	return svc, emb, st
}

func TestContextEmptyWindow(t *testing.T) {
	svc, emb, _ := newTestService(t, nil, nil)

	results, err := svc.Context(context.Background(), ContextRequest{NoteID: "n", Text: "   \n  ", CursorOffset: 0})
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Zero(t, atomic.LoadInt64(&emb.embedCalls), "empty window never reaches the embedder")
}

func TestContextRanksSharedConceptsAndWordsFirst(t *testing.T) {
	svc, _, _ := newTestService(t, nil, []string{"Shattered Glass Sky"})
	ctx := context.Background()

	require.NoError(t, svc.IndexNote(ctx, types.Note{
		ID:      "worlds/shattered-glass-sky",
		Kind:    types.KindNote,
		Content: "The Shattered Glass Sky event covered the city in falling glass.",
	}))
	require.NoError(t, svc.IndexNote(ctx, types.Note{
		ID:      "recipes/stew",
		Kind:    types.KindNote,
		Content: "Winter stew recipe. Simmer for three hours and season well.",
	}))
	require.NoError(t, svc.IndexNote(ctx, types.Note{
		ID:      "drafts/current",
		Kind:    types.KindNote,
		Content: "Writing about the Shattered Glass Sky over the city.",
	}))

	results, err := svc.Context(ctx, ContextRequest{
		NoteID:       "drafts/current",
		Text:         "Writing about the Shattered Glass Sky over the city.",
		CursorOffset: 10,
		Limit:        5,
	})
	require.NoError(t, err)
	require.NotEmpty(t, results)

	top := results[0]
	assert.Equal(t, "worlds/shattered-glass-sky", top.NoteID)
	assert.GreaterOrEqual(t, top.Breakdown.ActiveHits, 1, "shared glossary concept counted")
	assert.Greater(t, top.Breakdown.Rel, 0.5, "vector similarity contributes")
	assert.Greater(t, top.Breakdown.Lex, 0.0, "lexical overlap contributes")
	assert.Greater(t, top.Score, top.Breakdown.Base, "concept boost lifts the final score")

	for i, r := range results {
		assert.NotEqual(t, "drafts/current", r.NoteID, "own passages excluded")
		assert.Equal(t, i+1, r.Rank)
	}
}

func TestContextRespectsLimit(t *testing.T) {
	svc, _, _ := newTestService(t, nil, nil)
	ctx := context.Background()

	for _, note := range []types.Note{
		{ID: "a", Kind: types.KindNote, Content: "The harbor in winter."},
		{ID: "b", Kind: types.KindNote, Content: "The harbor in summer."},
		{ID: "c", Kind: types.KindNote, Content: "The harbor at night."},
	} {
		require.NoError(t, svc.IndexNote(ctx, note))
	}

	results, err := svc.Context(ctx, ContextRequest{NoteID: "q", Text: "Thinking about the harbor.", CursorOffset: 0, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestIndexNoteSkipsUnchangedContent(t *testing.T) {
	svc, emb, _ := newTestService(t, nil, nil)
	ctx := context.Background()

	note := types.Note{ID: "n", Kind: types.KindNote, Content: "The aurora over the harbor."}
	require.NoError(t, svc.IndexNote(ctx, note))
	calls := atomic.LoadInt64(&emb.batchCalls)

	require.NoError(t, svc.IndexNote(ctx, note))
	assert.Equal(t, calls, atomic.LoadInt64(&emb.batchCalls), "unchanged note is not re-embedded")

	note.Content = "The aurora over the harbor, changed."
	require.NoError(t, svc.IndexNote(ctx, note))
	assert.Greater(t, atomic.LoadInt64(&emb.batchCalls), calls)
}

func TestIndexNoteIgnoresFolders(t *testing.T) {
	svc, emb, st := newTestService(t, nil, nil)

	require.NoError(t, svc.IndexNote(context.Background(), types.Note{ID: "worlds", Kind: types.KindFolder}))
	assert.Zero(t, atomic.LoadInt64(&emb.batchCalls))

	_, err := st.GetNoteMeta(context.Background(), "worlds")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestOnNoteSavedIndexesAsynchronously(t *testing.T) {
	svc, _, st := newTestService(t, nil, nil)

	svc.OnNoteSaved(types.Note{ID: "n", Kind: types.KindNote, Content: "The aurora over the harbor."})

	assert.Eventually(t, func() bool {
		_, err := st.GetNoteMeta(context.Background(), "n")
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
}

func TestOnNoteDeleted(t *testing.T) {
	svc, _, st := newTestService(t, nil, nil)
	ctx := context.Background()

	require.NoError(t, svc.IndexNote(ctx, types.Note{ID: "n", Kind: types.KindNote, Content: "Some text."}))
	require.NoError(t, svc.OnNoteDeleted(ctx, "n"))

	_, err := st.GetNoteMeta(ctx, "n")
	assert.ErrorIs(t, err, store.ErrNotFound)

	assert.ErrorIs(t, svc.OnNoteDeleted(ctx, ""), types.ErrEmptyNoteID)
}

func TestRebuildIdempotentWithoutForce(t *testing.T) {
	corpus := &staticCorpus{notes: []types.Note{
		{ID: "a", Kind: types.KindNote, Content: "The harbor in winter."},
		{ID: "b", Kind: types.KindNote, Content: "Recipe for winter stew."},
	}}
	svc, emb, st := newTestService(t, corpus, nil)
	ctx := context.Background()

	require.NoError(t, svc.Rebuild(ctx, false))
	ids, err := st.ListNoteIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)

	calls := atomic.LoadInt64(&emb.batchCalls)
	require.NoError(t, svc.Rebuild(ctx, false))
	assert.Equal(t, calls, atomic.LoadInt64(&emb.batchCalls), "consistent index skips re-embedding")

	require.NoError(t, svc.Rebuild(ctx, true))
	assert.Greater(t, atomic.LoadInt64(&emb.batchCalls), calls, "force always re-embeds")
}

func TestRebuildIdempotentWithEmptyNote(t *testing.T) {
	corpus := &staticCorpus{notes: []types.Note{
		{ID: "a", Kind: types.KindNote, Content: "The harbor in winter."},
		{ID: "blank", Kind: types.KindNote, Content: "   \n\t\n"},
	}}
	svc, emb, st := newTestService(t, corpus, nil)
	ctx := context.Background()

	require.NoError(t, svc.Rebuild(ctx, false))

	// The empty note chunks to zero passages but still gets its meta row,
	// otherwise every rebuild would see it as missing and re-embed everything
	ids, err := st.ListNoteIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "blank"}, ids)

	calls := atomic.LoadInt64(&emb.batchCalls)
	require.NoError(t, svc.Rebuild(ctx, false))
	assert.Equal(t, calls, atomic.LoadInt64(&emb.batchCalls), "empty note must not defeat the hash-skip")
}

func TestRebuildPicksUpCorpusChanges(t *testing.T) {
	corpus := &staticCorpus{notes: []types.Note{
		{ID: "a", Kind: types.KindNote, Content: "The harbor in winter."},
	}}
	svc, _, st := newTestService(t, corpus, nil)
	ctx := context.Background()

	require.NoError(t, svc.Rebuild(ctx, false))

	corpus.notes = []types.Note{
		{ID: "a", Kind: types.KindNote, Content: "The harbor in winter."},
		{ID: "c", Kind: types.KindNote, Content: "A new note about the aurora."},
	}
	require.NoError(t, svc.Rebuild(ctx, false))

	ids, err := st.ListNoteIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, ids)
}

func TestRebuildWithoutCorpus(t *testing.T) {
	svc, _, _ := newTestService(t, nil, nil)
	assert.ErrorIs(t, svc.Rebuild(context.Background(), true), ErrNoCorpus)
}

func TestWarmupReportsProvider(t *testing.T) {
	svc, _, _ := newTestService(t, nil, nil)

	report, err := svc.Warmup(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, "mock", report.Provider)
	assert.Equal(t, len(mockVocab)+1, report.Dimension)
	assert.False(t, report.IndexCleared)
	assert.False(t, report.Rebuilt)
	assert.False(t, report.RerankerAvailable)
}

func TestWarmupRebuildsWhenIndexDrifts(t *testing.T) {
	corpus := &staticCorpus{notes: []types.Note{
		{ID: "a", Kind: types.KindNote, Content: "The harbor in winter."},
	}}
	svc, _, st := newTestService(t, corpus, nil)
	ctx := context.Background()

	report, err := svc.Warmup(ctx, false)
	require.NoError(t, err)
	assert.True(t, report.Rebuilt, "empty index, non-empty corpus")

	ids, err := st.ListNoteIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids)

	report, err = svc.Warmup(ctx, false)
	require.NoError(t, err)
	assert.False(t, report.Rebuilt, "consistent index left alone")
}

func TestWarmupClearsIndexOnDimensionChange(t *testing.T) {
	corpus := &staticCorpus{notes: []types.Note{
		{ID: "a", Kind: types.KindNote, Content: "The harbor in winter."},
	}}
	svc, _, st := newTestService(t, corpus, nil)
	ctx := context.Background()

	// Simulate an index built by a previous model with another dimension
	stale := &types.Passage{NoteID: "old", Ordinal: 0, Text: "Stale passage.", EndOff: 14, Quality: 0.5}
	stale.ComputeID()
	require.NoError(t, st.UpsertNote(ctx,
		store.NoteMeta{ID: "old", Kind: types.KindNote, ContentHash: "stale"},
		[]store.IndexedPassage{{Passage: stale, Vector: []float32{1, 2, 3}, Provider: "old", Model: "old"}}))

	report, err := svc.Warmup(ctx, false)
	require.NoError(t, err)
	assert.True(t, report.IndexCleared)
	assert.True(t, report.Rebuilt)

	dim, err := st.EmbeddingDimension(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(mockVocab)+1, dim)

	ids, err := st.ListNoteIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids, "stale note gone, corpus rebuilt")
}

func TestPrepareNoteFailsWhenAllEmbeddingsFail(t *testing.T) {
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	svc, err := New(st, &failingEmbedder{}, nil, nil, nil, scorer.DefaultWeights(), DefaultConfig(), testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })

	err = svc.IndexNote(context.Background(), types.Note{ID: "n", Kind: types.KindNote, Content: "Some text."})
	assert.Error(t, err)
}

type failingEmbedder struct{}

func (failingEmbedder) Embed(context.Context, embedder.Request) (*embedder.Embedding, error) {
	return nil, errors.New("provider down")
}
func (failingEmbedder) EmbedBatch(context.Context, embedder.BatchRequest) (*embedder.BatchResponse, error) {
	return nil, errors.New("provider down")
}
func (failingEmbedder) Dimension() int   { return 4 }
func (failingEmbedder) Provider() string { return "failing" }
func (failingEmbedder) Model() string    { return "failing" }
func (failingEmbedder) Close() error     { return nil }
