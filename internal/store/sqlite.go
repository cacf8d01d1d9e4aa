package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tlowry/notectx/pkg/types"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// SQLite benefits from a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStore creates a new SQLite store instance
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction
func (s *SQLiteStore) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx, store: s}, nil
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// sqliteTx wraps a SQL transaction
type sqliteTx struct {
	tx    *sql.Tx
	store *SQLiteStore
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

func (t *sqliteTx) querier() querier {
	return t.tx
}

func (s *SQLiteStore) querier() querier {
	return s.db
}

// Note operations

// upsertNoteWithQuerier replaces the note's passage set within the caller's
// transaction scope. FTS rows follow via triggers, embeddings and concepts
// via cascading deletes.
func (s *SQLiteStore) upsertNoteWithQuerier(ctx context.Context, q querier, note NoteMeta, passages []IndexedPassage) error {
	now := time.Now()
	indexedAt := note.IndexedAt
	if indexedAt.IsZero() {
		indexedAt = now
	}

	noteQuery := `
		INSERT INTO notes (id, kind, content_hash, indexed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			kind = excluded.kind,
			content_hash = excluded.content_hash,
			indexed_at = excluded.indexed_at,
			updated_at = excluded.updated_at
	`
	if _, err := q.ExecContext(ctx, noteQuery, note.ID, string(note.Kind), note.ContentHash, indexedAt, now, now); err != nil {
		return fmt.Errorf("failed to upsert note: %w", err)
	}

	if _, err := q.ExecContext(ctx, `DELETE FROM passages WHERE note_id = ?`, note.ID); err != nil {
		return fmt.Errorf("failed to clear passages: %w", err)
	}

	for _, ip := range passages {
		p := ip.Passage
		_, err := q.ExecContext(ctx, `
			INSERT INTO passages (id, note_id, ordinal, text, start_off, end_off, quality, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, p.ID, p.NoteID, p.Ordinal, p.Text, p.StartOff, p.EndOff, p.Quality, now)
		if err != nil {
			return fmt.Errorf("failed to insert passage %s: %w", p.ID, err)
		}

		if ip.Vector != nil {
			_, err = q.ExecContext(ctx, `
				INSERT INTO embeddings (passage_id, vector, dimension, provider, model, created_at)
				VALUES (?, ?, ?, ?, ?, ?)
			`, p.ID, serializeVector(ip.Vector), len(ip.Vector), ip.Provider, ip.Model, now)
			if err != nil {
				return fmt.Errorf("failed to insert embedding for %s: %w", p.ID, err)
			}
		}

		for _, concept := range p.Concepts {
			_, err = q.ExecContext(ctx, `
				INSERT OR IGNORE INTO passage_concepts (passage_id, concept) VALUES (?, ?)
			`, p.ID, strings.ToLower(concept))
			if err != nil {
				return fmt.Errorf("failed to insert concept for %s: %w", p.ID, err)
			}
		}
	}

	return nil
}

// UpsertNote replaces the note's entire passage set in one transaction
func (s *SQLiteStore) UpsertNote(ctx context.Context, note NoteMeta, passages []IndexedPassage) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := s.upsertNoteWithQuerier(ctx, tx, note, passages); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// deleteNoteWithQuerier removes the note and all dependent rows
func (s *SQLiteStore) deleteNoteWithQuerier(ctx context.Context, q querier, noteID string) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM passages WHERE note_id = ?`, noteID); err != nil {
		return fmt.Errorf("failed to delete passages: %w", err)
	}
	if _, err := q.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, noteID); err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}
	return nil
}

func (s *SQLiteStore) DeleteNote(ctx context.Context, noteID string) error {
	return s.deleteNoteWithQuerier(ctx, s.querier(), noteID)
}

// getNoteMetaWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStore) getNoteMetaWithQuerier(ctx context.Context, q querier, noteID string) (*NoteMeta, error) {
	query := `SELECT id, kind, content_hash, indexed_at FROM notes WHERE id = ?`
	var meta NoteMeta
	var kind string
	var indexedAt sql.NullTime
	err := q.QueryRowContext(ctx, query, noteID).Scan(&meta.ID, &kind, &meta.ContentHash, &indexedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	meta.Kind = types.NoteKind(kind)
	if indexedAt.Valid {
		meta.IndexedAt = indexedAt.Time
	}
	return &meta, nil
}

func (s *SQLiteStore) GetNoteMeta(ctx context.Context, noteID string) (*NoteMeta, error) {
	return s.getNoteMetaWithQuerier(ctx, s.querier(), noteID)
}

// listNoteIDsWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStore) listNoteIDsWithQuerier(ctx context.Context, q querier) ([]string, error) {
	rows, err := q.QueryContext(ctx, `SELECT id FROM notes ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLiteStore) ListNoteIDs(ctx context.Context) ([]string, error) {
	return s.listNoteIDsWithQuerier(ctx, s.querier())
}

// Passage operations

// getPassagesWithQuerier fetches passages with their concepts, preserving the
// requested ID order. Unknown IDs are skipped.
func (s *SQLiteStore) getPassagesWithQuerier(ctx context.Context, q querier, passageIDs []string) ([]*types.Passage, error) {
	if len(passageIDs) == 0 {
		return []*types.Passage{}, nil
	}

	placeholders := make([]string, len(passageIDs))
	args := make([]any, len(passageIDs))
	for i, id := range passageIDs {
		placeholders[i] = "?"
		args[i] = id
	}
	in := strings.Join(placeholders, ",")

	rows, err := q.QueryContext(ctx, `
		SELECT id, note_id, ordinal, text, start_off, end_off, quality
		FROM passages WHERE id IN (`+in+`)
	`, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	byID := make(map[string]*types.Passage, len(passageIDs))
	for rows.Next() {
		var p types.Passage
		if err := rows.Scan(&p.ID, &p.NoteID, &p.Ordinal, &p.Text, &p.StartOff, &p.EndOff, &p.Quality); err != nil {
			return nil, err
		}
		byID[p.ID] = &p
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	conceptRows, err := q.QueryContext(ctx, `
		SELECT passage_id, concept
		FROM passage_concepts WHERE passage_id IN (`+in+`)
		ORDER BY concept
	`, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = conceptRows.Close() }()

	for conceptRows.Next() {
		var passageID, concept string
		if err := conceptRows.Scan(&passageID, &concept); err != nil {
			return nil, err
		}
		if p, ok := byID[passageID]; ok {
			p.Concepts = append(p.Concepts, concept)
		}
	}
	if err := conceptRows.Err(); err != nil {
		return nil, err
	}

	passages := make([]*types.Passage, 0, len(byID))
	for _, id := range passageIDs {
		if p, ok := byID[id]; ok {
			passages = append(passages, p)
		}
	}
	return passages, nil
}

func (s *SQLiteStore) GetPassages(ctx context.Context, passageIDs []string) ([]*types.Passage, error) {
	return s.getPassagesWithQuerier(ctx, s.querier(), passageIDs)
}

// getEmbeddingsWithQuerier fetches stored vectors keyed by passage ID.
// Passages without an embedding are simply absent from the map.
func (s *SQLiteStore) getEmbeddingsWithQuerier(ctx context.Context, q querier, passageIDs []string) (map[string][]float32, error) {
	if len(passageIDs) == 0 {
		return map[string][]float32{}, nil
	}

	placeholders := make([]string, len(passageIDs))
	args := make([]any, len(passageIDs))
	for i, id := range passageIDs {
		placeholders[i] = "?"
		args[i] = id
	}

	rows, err := q.QueryContext(ctx, `
		SELECT passage_id, vector FROM embeddings
		WHERE passage_id IN (`+strings.Join(placeholders, ",")+`)
	`, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	vectors := make(map[string][]float32, len(passageIDs))
	for rows.Next() {
		var id string
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, err
		}
		vectors[id] = deserializeVector(blob)
	}
	return vectors, rows.Err()
}

func (s *SQLiteStore) GetEmbeddings(ctx context.Context, passageIDs []string) (map[string][]float32, error) {
	return s.getEmbeddingsWithQuerier(ctx, s.querier(), passageIDs)
}

// Candidate queries

func (s *SQLiteStore) QueryVector(ctx context.Context, vector []float32, limit int, excludeNoteID string) ([]VectorHit, error) {
	return queryVector(ctx, s.querier(), vector, limit, excludeNoteID)
}

func (s *SQLiteStore) SearchLexical(ctx context.Context, query string, limit int, excludeNoteID string) ([]LexicalHit, error) {
	return searchLexical(ctx, s.querier(), query, limit, excludeNoteID)
}

// embeddingDimensionWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStore) embeddingDimensionWithQuerier(ctx context.Context, q querier) (int, error) {
	var dim int
	err := q.QueryRowContext(ctx, `SELECT dimension FROM embeddings LIMIT 1`).Scan(&dim)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return dim, nil
}

func (s *SQLiteStore) EmbeddingDimension(ctx context.Context) (int, error) {
	return s.embeddingDimensionWithQuerier(ctx, s.querier())
}

// clearWithQuerier drops all indexed data, keeping the schema
func (s *SQLiteStore) clearWithQuerier(ctx context.Context, q querier) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM passages`); err != nil {
		return fmt.Errorf("failed to clear passages: %w", err)
	}
	if _, err := q.ExecContext(ctx, `DELETE FROM notes`); err != nil {
		return fmt.Errorf("failed to clear notes: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	return s.clearWithQuerier(ctx, s.querier())
}

// Status operations

func (s *SQLiteStore) GetStatus(ctx context.Context) (*IndexStatus, error) {
	status := &IndexStatus{}

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM notes").Scan(&status.Notes); err != nil {
		return nil, err
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM passages").Scan(&status.Passages); err != nil {
		return nil, err
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM embeddings").Scan(&status.Embeddings); err != nil {
		return nil, err
	}

	var pageCount, pageSize int
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err == nil {
		_ = s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
		status.IndexSizeMB = float64(pageCount*pageSize) / (1024 * 1024)
	}

	ftsAvailable := true
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM passages_fts").Scan(&n); err != nil {
		ftsAvailable = false
	}

	status.Health = HealthStatus{
		DatabaseAccessible:  true,
		EmbeddingsAvailable: status.Embeddings > 0,
		FTSAvailable:        ftsAvailable,
	}

	return status, nil
}

// Transaction implementations delegate to the internal querier helpers

func (t *sqliteTx) UpsertNote(ctx context.Context, note NoteMeta, passages []IndexedPassage) error {
	return t.store.upsertNoteWithQuerier(ctx, t.querier(), note, passages)
}

func (t *sqliteTx) DeleteNote(ctx context.Context, noteID string) error {
	return t.store.deleteNoteWithQuerier(ctx, t.querier(), noteID)
}

func (t *sqliteTx) GetNoteMeta(ctx context.Context, noteID string) (*NoteMeta, error) {
	return t.store.getNoteMetaWithQuerier(ctx, t.querier(), noteID)
}

func (t *sqliteTx) ListNoteIDs(ctx context.Context) ([]string, error) {
	return t.store.listNoteIDsWithQuerier(ctx, t.querier())
}

func (t *sqliteTx) GetPassages(ctx context.Context, passageIDs []string) ([]*types.Passage, error) {
	return t.store.getPassagesWithQuerier(ctx, t.querier(), passageIDs)
}

func (t *sqliteTx) GetEmbeddings(ctx context.Context, passageIDs []string) (map[string][]float32, error) {
	return t.store.getEmbeddingsWithQuerier(ctx, t.querier(), passageIDs)
}

func (t *sqliteTx) QueryVector(ctx context.Context, vector []float32, limit int, excludeNoteID string) ([]VectorHit, error) {
	return queryVector(ctx, t.querier(), vector, limit, excludeNoteID)
}

func (t *sqliteTx) SearchLexical(ctx context.Context, query string, limit int, excludeNoteID string) ([]LexicalHit, error) {
	return searchLexical(ctx, t.querier(), query, limit, excludeNoteID)
}

func (t *sqliteTx) EmbeddingDimension(ctx context.Context) (int, error) {
	return t.store.embeddingDimensionWithQuerier(ctx, t.querier())
}

func (t *sqliteTx) Clear(ctx context.Context) error {
	return t.store.clearWithQuerier(ctx, t.querier())
}

func (t *sqliteTx) GetStatus(ctx context.Context) (*IndexStatus, error) {
	return t.store.GetStatus(ctx)
}

func (t *sqliteTx) Close() error {
	// Transactions don't close the underlying connection
	return nil
}

func (t *sqliteTx) BeginTx(ctx context.Context) (Tx, error) {
	// SQLite does not support true nested transactions
	return nil, errors.New("nested transactions not supported")
}
