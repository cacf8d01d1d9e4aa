package store

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/tlowry/notectx/internal/scorer"
)

// queryVector performs vector similarity search using cosine similarity
func queryVector(ctx context.Context, q querier, queryVector []float32, limit int, excludeNoteID string) ([]VectorHit, error) {
	if limit <= 0 {
		return []VectorHit{}, nil
	}
	// Use SQL-based search when sqlite-vec is available
	if VectorExtensionAvailable {
		return queryVectorOptimized(ctx, q, queryVector, limit, excludeNoteID)
	}
	// Fall back to Go-based computation for purego builds
	return queryVectorFallback(ctx, q, queryVector, limit, excludeNoteID)
}

// queryVectorOptimized uses the sqlite-vec extension for SQL-based similarity.
// vec_distance_cosine returns distance (lower is better); converted to
// similarity to keep one scale across both paths.
func queryVectorOptimized(ctx context.Context, q querier, queryVector []float32, limit int, excludeNoteID string) ([]VectorHit, error) {
	blob := serializeVector(queryVector)

	sqlQuery := `
		SELECT
			p.id,
			1.0 - vec_distance_cosine(e.vector, ?) AS similarity
		FROM passages p
		INNER JOIN embeddings e ON p.id = e.passage_id
		WHERE e.dimension = ?
	`
	args := []any{blob, len(queryVector)}

	if excludeNoteID != "" {
		sqlQuery += " AND p.note_id != ?"
		args = append(args, excludeNoteID)
	}

	// Passage-ID tie-break keeps equal-similarity orderings deterministic
	sqlQuery += " ORDER BY similarity DESC, p.id ASC LIMIT ?"
	args = append(args, limit)

	rows, err := q.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute vector search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]VectorHit, 0, limit)
	for rows.Next() {
		var hit VectorHit
		if err := rows.Scan(&hit.PassageID, &hit.Similarity); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		results = append(results, hit)
	}
	return results, rows.Err()
}

// queryVectorFallback performs an exact scan with Go-based cosine similarity.
// Used when the sqlite-vec extension is not available (purego builds); exact
// and plenty fast at notes-corpus scale.
func queryVectorFallback(ctx context.Context, q querier, queryVector []float32, limit int, excludeNoteID string) ([]VectorHit, error) {
	sqlQuery := `
		SELECT p.id, e.vector
		FROM passages p
		INNER JOIN embeddings e ON p.id = e.passage_id
	`
	args := []any{}
	if excludeNoteID != "" {
		sqlQuery += " WHERE p.note_id != ?"
		args = append(args, excludeNoteID)
	}

	rows, err := q.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query embeddings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	candidates := make([]VectorHit, 0, 256)
	for rows.Next() {
		var passageID string
		var vectorBlob []byte
		if err := rows.Scan(&passageID, &vectorBlob); err != nil {
			return nil, err
		}

		vector := deserializeVector(vectorBlob)
		if len(vector) != len(queryVector) {
			continue // Dimension mismatch, skip
		}

		candidates = append(candidates, VectorHit{
			PassageID:  passageID,
			Similarity: cosineSimilarity(queryVector, vector),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Similarity != candidates[j].Similarity {
			return candidates[i].Similarity > candidates[j].Similarity
		}
		return candidates[i].PassageID < candidates[j].PassageID
	})

	if limit > len(candidates) {
		limit = len(candidates)
	}
	return candidates[:limit], nil
}

// searchLexical performs BM25 full-text search over passage text, broadening
// the candidate pool beyond pure vector neighbors. The raw window text is
// reduced to content words joined with OR; an FTS failure degrades to a
// Go-side token scan rather than failing the query.
func searchLexical(ctx context.Context, q querier, query string, limit int, excludeNoteID string) ([]LexicalHit, error) {
	if limit <= 0 {
		return []LexicalHit{}, nil
	}

	tokens := scorer.ContentTokens(query)
	if len(tokens) == 0 {
		return []LexicalHit{}, nil
	}
	if len(tokens) > maxLexicalTokens {
		tokens = tokens[:maxLexicalTokens]
	}

	match := buildFTSQuery(tokens)

	sqlQuery := `
		SELECT p.id, bm25(passages_fts) AS score
		FROM passages_fts
		INNER JOIN passages p ON p.rowid = passages_fts.rowid
		WHERE passages_fts MATCH ?
	`
	args := []any{match}
	if excludeNoteID != "" {
		sqlQuery += " AND p.note_id != ?"
		args = append(args, excludeNoteID)
	}
	// bm25() is negative, lower is better
	sqlQuery += " ORDER BY score ASC, p.id ASC LIMIT ?"
	args = append(args, limit)

	rows, err := q.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return searchLexicalFallback(ctx, q, tokens, limit, excludeNoteID)
	}
	defer func() { _ = rows.Close() }()

	results := make([]LexicalHit, 0, limit)
	for rows.Next() {
		var hit LexicalHit
		var bm25 float64
		if err := rows.Scan(&hit.PassageID, &bm25); err != nil {
			return nil, err
		}
		// Map BM25 (negative, unbounded) into (0,1]
		hit.Score = 1.0 / (1.0 + math.Abs(bm25)/50.0)
		results = append(results, hit)
	}
	return results, rows.Err()
}

const maxLexicalTokens = 16

// buildFTSQuery quotes each token and joins with OR so user text can never
// inject FTS5 operators
func buildFTSQuery(tokens []string) string {
	quoted := make([]string, len(tokens))
	for i, tok := range tokens {
		quoted[i] = `"` + strings.ReplaceAll(tok, `"`, `""`) + `"`
	}
	return strings.Join(quoted, " OR ")
}

// searchLexicalFallback counts token occurrences in Go when FTS5 is not
// compiled into the driver
func searchLexicalFallback(ctx context.Context, q querier, tokens []string, limit int, excludeNoteID string) ([]LexicalHit, error) {
	sqlQuery := `SELECT id, text FROM passages`
	args := []any{}
	if excludeNoteID != "" {
		sqlQuery += " WHERE note_id != ?"
		args = append(args, excludeNoteID)
	}

	rows, err := q.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to scan passages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]LexicalHit, 0, 64)
	for rows.Next() {
		var id, text string
		if err := rows.Scan(&id, &text); err != nil {
			return nil, err
		}
		lower := strings.ToLower(text)
		matched := 0
		for _, tok := range tokens {
			if strings.Contains(lower, tok) {
				matched++
			}
		}
		if matched > 0 {
			results = append(results, LexicalHit{
				PassageID: id,
				Score:     float64(matched) / float64(len(tokens)),
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].PassageID < results[j].PassageID
	})
	if limit > len(results) {
		limit = len(results)
	}
	return results[:limit], nil
}

// serializeVector converts a float32 slice to a byte blob (little-endian)
func serializeVector(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

// deserializeVector converts a byte blob back to a float32 slice
func deserializeVector(blob []byte) []float32 {
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		bits := binary.LittleEndian.Uint32(blob[i*4:])
		vector[i] = math.Float32frombits(bits)
	}
	return vector
}

// cosineSimilarity computes the cosine similarity between two vectors
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i] * b[i])
		normA += float64(a[i] * a[i])
		normB += float64(b[i] * b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// SerializeVector is an exported helper for callers that persist vectors
func SerializeVector(vector []float32) []byte {
	return serializeVector(vector)
}

// DeserializeVector is an exported helper for callers that read vectors back
func DeserializeVector(blob []byte) []float32 {
	return deserializeVector(blob)
}

// CosineSimilarity is an exported helper for scoring
func CosineSimilarity(a, b []float32) float64 {
	return cosineSimilarity(a, b)
}
