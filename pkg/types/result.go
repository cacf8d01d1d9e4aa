package types

// ScoreBreakdown carries the per-signal components behind a final score,
// exposed for debugging and relevance tuning.
type ScoreBreakdown struct {
	Rel        float64 // cosine similarity against the query window, clipped to [0,1]
	Quality    float64 // query-independent passage quality in [0,1]
	Lex        float64 // lexical overlap between window and passage in [0,1]
	ActiveHits int     // count of window concepts matched in the passage
	Base       float64 // combined score before the concept boost
}

// ScoredResult represents a single retrieval result with relevance information
type ScoredResult struct {
	// Identification
	PassageID string
	NoteID    string
	Rank      int // Position in result set (1-based)

	// Scoring
	Score     float64 // Final score in [0,1], concept boost applied
	Breakdown ScoreBreakdown

	// Content
	Text     string
	StartOff int
	EndOff   int
}

// Validate checks if the scored result is valid
func (sr *ScoredResult) Validate() error {
	if sr.PassageID == "" {
		return ErrInvalidPassageID
	}
	if sr.NoteID == "" {
		return ErrEmptyNoteID
	}
	if sr.Rank < 1 {
		return ErrInvalidRank
	}
	if sr.Score < 0 || sr.Score > 1 {
		return ErrInvalidScore
	}
	if sr.Text == "" {
		return ErrEmptyText
	}
	return nil
}
