package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/tlowry/notectx/internal/embedder"
	"github.com/tlowry/notectx/internal/store"
	"github.com/tlowry/notectx/pkg/types"
)

// Rebuild re-chunks and re-embeds the whole corpus inside one transaction,
// so concurrent queries see the pre- or post-rebuild index, never a mixture,
// and a failure leaves the prior index intact. With force false the rebuild
// is skipped when the index already matches the corpus by content hash.
func (s *Service) Rebuild(ctx context.Context, force bool) error {
	if s.corpus == nil {
		return ErrNoCorpus
	}

	s.rebuildMu.Lock()
	defer s.rebuildMu.Unlock()

	notes, err := s.corpus.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list corpus: %w", err)
	}

	if !force {
		consistent, err := s.indexConsistent(ctx, notes)
		if err != nil {
			return err
		}
		if consistent {
			s.logger.Debug("index consistent, skipping rebuild")
			return nil
		}
	}

	// Chunk and embed outside the transaction; only the swap is serialized.
	// ready is tracked separately from prepared because a note that chunks
	// to zero passages still gets its meta row, keeping the hash-skip valid.
	prepared := make([][]store.IndexedPassage, len(notes))
	ready := make([]bool, len(notes))
	var mu sync.Mutex
	var failedNotes []string

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Workers)
	for i := range notes {
		g.Go(func() error {
			note := notes[i]
			if note.Kind == types.KindFolder {
				return nil
			}
			indexed, err := s.prepareNote(gctx, note)
			if err != nil {
				if gctx.Err() != nil || errors.Is(err, embedder.ErrNoProviderEnabled) {
					return err
				}
				mu.Lock()
				failedNotes = append(failedNotes, note.ID)
				mu.Unlock()
				s.logger.Error("rebuild: note preparation failed", "note_id", note.ID, "error", err)
				return nil
			}
			prepared[i] = indexed
			ready[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("rebuild aborted: %w", err)
	}

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin rebuild transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := tx.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear index: %w", err)
	}
	indexed := 0
	for i, note := range notes {
		if note.Kind == types.KindFolder || !ready[i] {
			continue
		}
		meta := store.NoteMeta{ID: note.ID, Kind: note.Kind, ContentHash: note.ContentHash()}
		if err := tx.UpsertNote(ctx, meta, prepared[i]); err != nil {
			return fmt.Errorf("failed to store note %q: %w", note.ID, err)
		}
		indexed++
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rebuild: %w", err)
	}

	s.windowCache.Purge()
	s.logger.Info("rebuild complete", "notes", indexed, "failed", len(failedNotes))
	return nil
}

// indexConsistent reports whether the stored index matches the corpus:
// the same note set, each with a matching content hash
func (s *Service) indexConsistent(ctx context.Context, notes []types.Note) (bool, error) {
	storedIDs, err := s.store.ListNoteIDs(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to list indexed notes: %w", err)
	}

	want := make(map[string]string)
	for i := range notes {
		if notes[i].Kind == types.KindFolder {
			continue
		}
		want[notes[i].ID] = notes[i].ContentHash()
	}
	if len(storedIDs) != len(want) {
		return false, nil
	}

	for _, id := range storedIDs {
		hash, ok := want[id]
		if !ok {
			return false, nil
		}
		meta, err := s.store.GetNoteMeta(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return false, nil
			}
			return false, err
		}
		if meta.ContentHash != hash {
			return false, nil
		}
	}
	return true, nil
}

// WarmupReport describes the outcome of a warmup pass
type WarmupReport struct {
	Provider          string
	Model             string
	Dimension         int
	IndexCleared      bool
	Rebuilt           bool
	RerankerAvailable bool
}

// Warmup probes the embedding provider, clears the index when the stored
// embedding dimension no longer matches the provider (a model change), and
// rebuilds when the index has drifted from the corpus. Reranker availability
// is reported, never required.
func (s *Service) Warmup(ctx context.Context, forceRebuild bool) (*WarmupReport, error) {
	probe, err := s.embedder.Embed(ctx, embedder.Request{Text: "warmup probe"})
	if err != nil {
		return nil, fmt.Errorf("embedding provider unavailable: %w", err)
	}

	report := &WarmupReport{
		Provider:          s.embedder.Provider(),
		Model:             s.embedder.Model(),
		Dimension:         probe.Dimension,
		RerankerAvailable: s.reranker.Available(),
	}

	storedDim, err := s.store.EmbeddingDimension(ctx)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("failed to read index dimension: %w", err)
	}
	if err == nil && storedDim != probe.Dimension {
		s.logger.Info("embedding dimension changed, clearing index",
			"stored", storedDim, "provider", probe.Dimension)
		if err := s.store.Clear(ctx); err != nil {
			return nil, fmt.Errorf("failed to clear stale index: %w", err)
		}
		s.windowCache.Purge()
		report.IndexCleared = true
		forceRebuild = true
	}

	if s.corpus != nil {
		rebuild := forceRebuild
		if !rebuild {
			notes, err := s.corpus.List(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to list corpus: %w", err)
			}
			consistent, err := s.indexConsistent(ctx, notes)
			if err != nil {
				return nil, err
			}
			rebuild = !consistent
		}
		if rebuild {
			if err := s.Rebuild(ctx, true); err != nil {
				return nil, err
			}
			report.Rebuilt = true
		}
	}

	return report, nil
}
