// Package store persists passages, embeddings, and concept labels in SQLite
// and answers candidate queries for retrieval.
//
// # Basic Usage
//
//	s, err := store.NewSQLiteStore("/path/to/index.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer s.Close()
//
//	err = s.UpsertNote(ctx, meta, indexedPassages)
//	hits, err := s.QueryVector(ctx, windowVector, 200, "drafts/current")
//
// # Atomicity
//
// UpsertNote replaces a note's entire passage set inside one transaction:
// concurrent queries observe either the previous set or the new one, never a
// mixture. Full rebuilds run through BeginTx, clearing and re-inserting the
// whole corpus in a single transaction so a failed rebuild leaves the prior
// index intact.
//
// # Queries
//
// QueryVector returns the nearest passages by cosine similarity, excluding
// the querying note's own passages server-side. With the sqlite_vec build tag
// the distance runs in SQL via the sqlite-vec extension; the purego build
// scans and ranks in Go, which is exact and fast enough for a notes corpus.
// SearchLexical broadens the candidate pool through FTS5/BM25 over passage
// text, degrading to a Go-side token scan if FTS5 is unavailable. Both
// orderings break score ties by ascending passage ID.
//
// # Schema
//
// The schema is versioned with semver-compared migrations: notes (indexing
// bookkeeping), passages, embeddings (float32 little-endian BLOBs),
// passage_concepts, and a trigger-maintained passages_fts virtual table.
package store
