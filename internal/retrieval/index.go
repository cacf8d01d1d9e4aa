package retrieval

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tlowry/notectx/internal/embedder"
	"github.com/tlowry/notectx/internal/store"
	"github.com/tlowry/notectx/pkg/types"
)

// OnNoteSaved queues the note for asynchronous re-indexing. The save path
// never waits for embedding completion; if the queue stays full past the
// enqueue timeout the save is dropped and the note is picked up by the next
// save or rebuild.
func (s *Service) OnNoteSaved(note types.Note) {
	timer := time.NewTimer(s.config.EnqueueTimeout)
	defer timer.Stop()

	select {
	case s.saveCh <- note:
	case <-timer.C:
		s.logger.Warn("index queue full, dropping save", "note_id", note.ID)
	case <-s.done:
	}
}

// OnNoteDeleted removes the note's passages, embeddings, and concepts
func (s *Service) OnNoteDeleted(ctx context.Context, noteID string) error {
	if noteID == "" {
		return types.ErrEmptyNoteID
	}
	if err := s.store.DeleteNote(ctx, noteID); err != nil {
		return fmt.Errorf("failed to delete note %q: %w", noteID, err)
	}
	return nil
}

// indexWorker drains the save queue one note at a time. Per-note failures
// are logged, not propagated; the note retries on its next save.
func (s *Service) indexWorker() {
	defer s.wg.Done()

	for {
		select {
		case note := <-s.saveCh:
			ctx, cancel := context.WithTimeout(context.Background(), s.config.IndexTimeout)
			if err := s.IndexNote(ctx, note); err != nil {
				s.logger.Error("note indexing failed", "note_id", note.ID, "error", err)
			}
			cancel()
		case <-s.done:
			return
		}
	}
}

// IndexNote chunks, embeds, and stores one note synchronously. Unchanged
// content (by hash) is skipped. Folders are never indexed.
func (s *Service) IndexNote(ctx context.Context, note types.Note) error {
	if err := note.Validate(); err != nil {
		return err
	}
	if note.Kind == types.KindFolder {
		return nil
	}

	hash := note.ContentHash()
	if meta, err := s.store.GetNoteMeta(ctx, note.ID); err == nil && meta.ContentHash == hash {
		return nil
	}

	indexed, err := s.prepareNote(ctx, note)
	if err != nil {
		return err
	}

	meta := store.NoteMeta{ID: note.ID, Kind: note.Kind, ContentHash: hash}
	if err := s.store.UpsertNote(ctx, meta, indexed); err != nil {
		return fmt.Errorf("failed to store note %q: %w", note.ID, err)
	}

	s.logger.Debug("note indexed", "note_id", note.ID, "passages", len(indexed))
	return nil
}

// prepareNote chunks the note, tags each passage with glossary concepts, and
// embeds the passage texts. A passage whose embedding fails is kept with a
// nil vector so lexical retrieval still sees it; the whole note fails only
// when every embedding fails.
func (s *Service) prepareNote(ctx context.Context, note types.Note) ([]store.IndexedPassage, error) {
	passages := s.chunker.ChunkNote(&note)
	if len(passages) == 0 {
		return nil, nil
	}

	var glossaryErr error
	for _, p := range passages {
		concepts, err := s.glossary.RecognizedConcepts(ctx, p.Text)
		if err != nil {
			glossaryErr = err
			continue
		}
		p.Concepts = concepts
	}
	if glossaryErr != nil {
		s.logger.Warn("glossary lookup failed during indexing", "note_id", note.ID, "error", glossaryErr)
	}

	texts := make([]string, len(passages))
	for i, p := range passages {
		texts[i] = p.Text
	}
	embeddings, err := s.embedTexts(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed note %q: %w", note.ID, err)
	}

	indexed := make([]store.IndexedPassage, len(passages))
	failed := 0
	for i, p := range passages {
		ip := store.IndexedPassage{Passage: p}
		if emb := embeddings[i]; emb != nil {
			ip.Vector = emb.Vector
			ip.Provider = emb.Provider
			ip.Model = emb.Model
		} else {
			failed++
		}
		indexed[i] = ip
	}

	if failed == len(passages) {
		return nil, fmt.Errorf("all %d passage embeddings failed for note %q", len(passages), note.ID)
	}
	if failed > 0 {
		s.logger.Warn("some passage embeddings failed", "note_id", note.ID, "failed", failed, "total", len(passages))
	}
	return indexed, nil
}

// embedTexts embeds texts in provider-sized batches. A failed batch retries
// per text so a single poisoned passage cannot sink its batch mates; failed
// entries come back nil.
func (s *Service) embedTexts(ctx context.Context, texts []string) ([]*embedder.Embedding, error) {
	out := make([]*embedder.Embedding, len(texts))

	for start := 0; start < len(texts); start += embedder.MaxBatchSize {
		end := start + embedder.MaxBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]

		resp, err := s.embedder.EmbedBatch(ctx, embedder.BatchRequest{Texts: batch})
		if err == nil {
			copy(out[start:end], resp.Embeddings)
			continue
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if errors.Is(err, embedder.ErrNoProviderEnabled) {
			return nil, err
		}

		for i, text := range batch {
			emb, embErr := s.embedder.Embed(ctx, embedder.Request{Text: text})
			if embErr != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return nil, ctxErr
				}
				continue
			}
			out[start+i] = emb
		}
	}

	return out, nil
}
