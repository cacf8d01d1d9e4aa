package retrieval

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/tlowry/notectx/internal/chunker"
	"github.com/tlowry/notectx/internal/embedder"
	"github.com/tlowry/notectx/internal/glossary"
	"github.com/tlowry/notectx/internal/reranker"
	"github.com/tlowry/notectx/internal/scorer"
	"github.com/tlowry/notectx/internal/store"
	"github.com/tlowry/notectx/internal/window"
	"github.com/tlowry/notectx/pkg/types"
)

var (
	// ErrNoCorpus is returned by Rebuild when no corpus lister is configured
	ErrNoCorpus = errors.New("no corpus configured")
)

// Corpus enumerates the note collection for rebuilds. The storage
// collaborator owns the notes; the engine only reads them.
type Corpus interface {
	List(ctx context.Context) ([]types.Note, error)
}

// Config tunes the retrieval service
type Config struct {
	// CandidateLimit is how many candidates each retrieval channel
	// (vector, lexical) contributes before scoring
	CandidateLimit int
	// DefaultLimit is the result count when a request does not set one
	DefaultLimit int
	// Workers bounds rebuild concurrency (default: NumCPU)
	Workers int
	// LexicalEnabled adds BM25 candidates alongside vector neighbors
	LexicalEnabled bool
	// MaxPassageChars is the chunker passage bound
	MaxPassageChars int
	// WindowTokenBudget bounds the query window handed to the embedder
	WindowTokenBudget int
	// SaveQueueSize buffers asynchronous re-index requests
	SaveQueueSize int
	// EnqueueTimeout bounds how long OnNoteSaved may wait for queue space
	EnqueueTimeout time.Duration
	// IndexTimeout bounds a single background note indexing run
	IndexTimeout time.Duration
	// Rerank configures the optional second pass
	Rerank reranker.Options
}

// DefaultConfig returns the standard service settings
func DefaultConfig() Config {
	return Config{
		CandidateLimit:    50,
		DefaultLimit:      8,
		Workers:           runtime.NumCPU(),
		LexicalEnabled:    true,
		MaxPassageChars:   chunker.DefaultMaxPassageChars,
		WindowTokenBudget: window.DefaultTokenBudget,
		SaveQueueSize:     64,
		EnqueueTimeout:    2 * time.Second,
		IndexTimeout:      60 * time.Second,
		Rerank:            reranker.DefaultOptions(),
	}
}

// ContextRequest asks for passages relevant to the cursor position in the
// live edit buffer
type ContextRequest struct {
	NoteID       string
	Text         string
	CursorOffset int
	Limit        int
}

// Service orchestrates the retrieval pipeline: window extraction, query
// embedding, candidate retrieval, scoring, optional reranking. It also owns
// the indexing side: asynchronous per-note re-index on save, deletion, and
// full corpus rebuild.
type Service struct {
	store    store.Store
	embedder embedder.Embedder
	glossary glossary.Glossary
	reranker reranker.Reranker
	corpus   Corpus
	chunker  *chunker.Chunker
	window   *window.Extractor
	scorer   *scorer.Scorer
	config   Config
	logger   *slog.Logger

	// windowCache holds query window embeddings keyed by text hash, so the
	// debounced re-query of an unchanged paragraph skips the provider
	windowCache *lru.Cache[[32]byte, []float32]

	saveCh    chan types.Note
	closeOnce sync.Once
	done      chan struct{}
	wg        sync.WaitGroup

	rebuildMu sync.Mutex
}

const windowCacheSize = 256

// New creates a retrieval service and starts its background index worker.
// corpus may be nil when rebuilds are not needed; reranker may be nil to
// disable the second pass. Close releases the worker.
func New(st store.Store, emb embedder.Embedder, gl glossary.Glossary, rr reranker.Reranker, corpus Corpus, weights scorer.Weights, cfg Config, logger *slog.Logger) (*Service, error) {
	if st == nil {
		return nil, errors.New("store is required")
	}
	if emb == nil {
		return nil, errors.New("embedder is required")
	}
	if err := weights.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scoring weights: %w", err)
	}
	if gl == nil {
		gl = glossary.Noop{}
	}
	if rr == nil {
		rr = reranker.Noop{}
	}
	if cfg.CandidateLimit <= 0 {
		cfg.CandidateLimit = DefaultConfig().CandidateLimit
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = DefaultConfig().DefaultLimit
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.SaveQueueSize <= 0 {
		cfg.SaveQueueSize = DefaultConfig().SaveQueueSize
	}
	if cfg.EnqueueTimeout <= 0 {
		cfg.EnqueueTimeout = DefaultConfig().EnqueueTimeout
	}
	if cfg.IndexTimeout <= 0 {
		cfg.IndexTimeout = DefaultConfig().IndexTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "retrieval")

	cache, err := lru.New[[32]byte, []float32](windowCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create window cache: %w", err)
	}

	s := &Service{
		store:       st,
		embedder:    emb,
		glossary:    gl,
		reranker:    rr,
		corpus:      corpus,
		chunker:     chunker.NewWithMax(cfg.MaxPassageChars),
		window:      window.NewWithBudget(gl, cfg.WindowTokenBudget, logger),
		scorer:      scorer.New(weights),
		config:      cfg,
		logger:      logger,
		windowCache: cache,
		saveCh:      make(chan types.Note, cfg.SaveQueueSize),
		done:        make(chan struct{}),
	}

	s.wg.Add(1)
	go s.indexWorker()

	return s, nil
}

// Close stops the background index worker. Pending saves are dropped; they
// are re-indexed on the next save or rebuild.
func (s *Service) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
	})
	s.wg.Wait()
	return nil
}

// Context runs the full retrieval pipeline for the cursor position and
// returns at most req.Limit results, ordered by final score. The querying
// note's own passages never appear.
func (s *Service) Context(ctx context.Context, req ContextRequest) ([]types.ScoredResult, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = s.config.DefaultLimit
	}

	win := s.window.Extract(ctx, req.NoteID, req.Text, req.CursorOffset)
	if win.Empty() {
		return []types.ScoredResult{}, nil
	}

	queryVec, err := s.embedWindow(ctx, win.Text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query window: %w", err)
	}

	vecHits, lexHits, err := s.gatherCandidates(ctx, queryVec, win.Text, req.NoteID)
	if err != nil {
		return nil, err
	}

	results, err := s.scoreCandidates(ctx, &win, queryVec, vecHits, lexHits)
	if err != nil {
		return nil, err
	}

	results = reranker.Apply(ctx, s.reranker, win.Text, results, s.config.Rerank)
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// embedWindow returns the window embedding, consulting the LRU cache first
func (s *Service) embedWindow(ctx context.Context, text string) ([]float32, error) {
	key := sha256.Sum256([]byte(text))
	if vec, ok := s.windowCache.Get(key); ok {
		out := make([]float32, len(vec))
		copy(out, vec)
		return out, nil
	}

	emb, err := s.embedder.Embed(ctx, embedder.Request{Text: text})
	if err != nil {
		return nil, err
	}

	cached := make([]float32, len(emb.Vector))
	copy(cached, emb.Vector)
	s.windowCache.Add(key, cached)
	return emb.Vector, nil
}

type vectorOutcome struct {
	hits []store.VectorHit
	err  error
}

type lexicalOutcome struct {
	hits []store.LexicalHit
	err  error
}

// gatherCandidates runs the vector and lexical searches concurrently. One
// channel may fail as long as the other delivers; both failing fails the
// query.
func (s *Service) gatherCandidates(ctx context.Context, queryVec []float32, windowText, excludeNoteID string) ([]store.VectorHit, []store.LexicalHit, error) {
	vecCh := make(chan vectorOutcome, 1)
	lexCh := make(chan lexicalOutcome, 1)

	go func() {
		hits, err := s.store.QueryVector(ctx, queryVec, s.config.CandidateLimit, excludeNoteID)
		select {
		case vecCh <- vectorOutcome{hits: hits, err: err}:
		case <-ctx.Done():
		}
	}()

	if s.config.LexicalEnabled {
		go func() {
			hits, err := s.store.SearchLexical(ctx, windowText, s.config.CandidateLimit, excludeNoteID)
			select {
			case lexCh <- lexicalOutcome{hits: hits, err: err}:
			case <-ctx.Done():
			}
		}()
	} else {
		lexCh <- lexicalOutcome{}
	}

	var vec vectorOutcome
	var lex lexicalOutcome
	for i := 0; i < 2; i++ {
		select {
		case vec = <-vecCh:
		case lex = <-lexCh:
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		}
	}

	if vec.err != nil && lex.err != nil {
		return nil, nil, fmt.Errorf("candidate retrieval failed: vector=%w, lexical=%v", vec.err, lex.err)
	}
	if vec.err != nil {
		s.logger.Warn("vector search failed, using lexical candidates only", "error", vec.err)
	}
	if lex.err != nil {
		s.logger.Warn("lexical search failed, using vector candidates only", "error", lex.err)
	}
	return vec.hits, lex.hits, nil
}

// scoreCandidates unions the candidate sets, loads passages, and computes
// the multi-signal score for each. Lexical-only candidates get their cosine
// similarity computed from the stored embedding; candidates without an
// embedding score on lexical overlap alone.
func (s *Service) scoreCandidates(ctx context.Context, win *types.QueryWindow, queryVec []float32, vecHits []store.VectorHit, lexHits []store.LexicalHit) ([]types.ScoredResult, error) {
	relByID := make(map[string]float64, len(vecHits))
	ids := make([]string, 0, len(vecHits)+len(lexHits))
	for _, h := range vecHits {
		relByID[h.PassageID] = h.Similarity
		ids = append(ids, h.PassageID)
	}

	var lexOnly []string
	for _, h := range lexHits {
		if _, ok := relByID[h.PassageID]; !ok {
			ids = append(ids, h.PassageID)
			lexOnly = append(lexOnly, h.PassageID)
		}
	}

	if len(ids) == 0 {
		return []types.ScoredResult{}, nil
	}

	passages, err := s.store.GetPassages(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load candidate passages: %w", err)
	}

	if len(lexOnly) > 0 {
		vectors, err := s.store.GetEmbeddings(ctx, lexOnly)
		if err != nil {
			s.logger.Warn("failed to load embeddings for lexical candidates", "error", err)
		} else {
			for id, vec := range vectors {
				relByID[id] = store.CosineSimilarity(queryVec, vec)
			}
		}
	}

	results := make([]types.ScoredResult, 0, len(passages))
	for _, p := range passages {
		score, breakdown := s.scorer.Score(win, p, relByID[p.ID])
		results = append(results, types.ScoredResult{
			PassageID: p.ID,
			NoteID:    p.NoteID,
			Score:     score,
			Breakdown: breakdown,
			Text:      p.Text,
			StartOff:  p.StartOff,
			EndOff:    p.EndOff,
		})
	}

	scorer.Rank(results)
	return results, nil
}
