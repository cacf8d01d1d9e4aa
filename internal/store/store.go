package store

import (
	"context"
	"errors"
	"time"

	"github.com/tlowry/notectx/pkg/types"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
)

// IndexedPassage pairs a passage with its embedding for persistence. A nil
// Vector records the passage without an embedding (the embedding failed and
// the passage is skipped at query time).
type IndexedPassage struct {
	Passage  *types.Passage
	Vector   []float32
	Provider string
	Model    string
}

// VectorHit is a passage matched by vector similarity search
type VectorHit struct {
	PassageID  string
	Similarity float64
}

// LexicalHit is a passage matched by full-text search
type LexicalHit struct {
	PassageID string
	Score     float64
}

// NoteMeta is the indexing bookkeeping kept per note
type NoteMeta struct {
	ID          string
	Kind        types.NoteKind
	ContentHash string
	IndexedAt   time.Time
}

// IndexStatus contains statistics about the index
type IndexStatus struct {
	Notes       int
	Passages    int
	Embeddings  int
	IndexSizeMB float64
	Health      HealthStatus
}

// HealthStatus represents the health of the index
type HealthStatus struct {
	DatabaseAccessible  bool
	EmbeddingsAvailable bool
	FTSAvailable        bool
}

// Store persists passages and embeddings and answers candidate queries
type Store interface {
	// Note operations. UpsertNote replaces the note's entire passage set
	// atomically; queries see the old set or the new set, never a mixture.
	UpsertNote(ctx context.Context, note NoteMeta, passages []IndexedPassage) error
	DeleteNote(ctx context.Context, noteID string) error
	GetNoteMeta(ctx context.Context, noteID string) (*NoteMeta, error)
	ListNoteIDs(ctx context.Context) ([]string, error)

	// Passage operations
	GetPassages(ctx context.Context, passageIDs []string) ([]*types.Passage, error)
	GetEmbeddings(ctx context.Context, passageIDs []string) (map[string][]float32, error)

	// Candidate queries. excludeNoteID removes the querying note's own
	// passages server-side.
	QueryVector(ctx context.Context, vector []float32, limit int, excludeNoteID string) ([]VectorHit, error)
	SearchLexical(ctx context.Context, query string, limit int, excludeNoteID string) ([]LexicalHit, error)

	// EmbeddingDimension reports the dimension of stored embeddings,
	// ErrNotFound when the index holds none.
	EmbeddingDimension(ctx context.Context) (int, error)

	// Clear drops all indexed data, keeping the schema
	Clear(ctx context.Context) error

	// Status operations
	GetStatus(ctx context.Context) (*IndexStatus, error)

	// Database operations
	Close() error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx represents a database transaction
type Tx interface {
	Commit() error
	Rollback() error
	Store // Embed Store interface for transaction operations
}
