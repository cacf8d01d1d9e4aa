package scorer

import (
	"sort"
	"strings"

	"github.com/tlowry/notectx/pkg/types"
)

// Weights configures the scoring policy. All fields are tunable; the
// contract is that the final score is monotonically non-decreasing in each
// individual signal when the others are held fixed.
type Weights struct {
	Rel          float64 // weight of the semantic relevance term
	Lex          float64 // weight of the lexical overlap term
	QualityFloor float64 // minimum quality multiplier, keeps rel from being zeroed out
	BoostRate    float64 // per-hit multiplier for the active-concept boost
	HitCap       int     // active hits beyond this count add no further boost
	Ceiling      float64 // hard upper bound on the final score
}

// DefaultWeights returns the standard scoring policy
func DefaultWeights() Weights {
	return Weights{
		Rel:          0.75,
		Lex:          0.15,
		QualityFloor: 0.35,
		BoostRate:    0.15,
		HitCap:       4,
		Ceiling:      1.0,
	}
}

// Validate checks weight sanity
func (w Weights) Validate() error {
	if w.Rel < 0 || w.Lex < 0 || w.BoostRate < 0 {
		return ErrNegativeWeight
	}
	if w.QualityFloor < 0 || w.QualityFloor > 1 {
		return ErrInvalidQualityFloor
	}
	if w.HitCap < 0 {
		return ErrInvalidHitCap
	}
	if w.Ceiling <= 0 || w.Ceiling > 1 {
		return ErrInvalidCeiling
	}
	return nil
}

// Scorer combines per-passage signals into a final relevance score
type Scorer struct {
	w Weights
}

// New creates a Scorer with the given weights
func New(w Weights) *Scorer {
	return &Scorer{w: w}
}

// Score computes the final score and its breakdown for one candidate passage.
// rel is the raw cosine similarity between the query window embedding and the
// passage embedding; it is clipped to [0,1] before weighting.
func (s *Scorer) Score(window *types.QueryWindow, passage *types.Passage, rel float64) (float64, types.ScoreBreakdown) {
	rel = clip01(rel)
	lex := LexOverlap(window.Text, passage.Text)
	hits := ActiveHits(window.Concepts, passage.Concepts)

	// Quality modulates the semantic term only: a weak passage dampens a
	// strong embedding match but never erases it below the floor.
	qualityMul := s.w.QualityFloor + (1-s.w.QualityFloor)*clip01(passage.Quality)
	base := s.w.Rel*rel*qualityMul + s.w.Lex*lex

	// Saturating concept boost: each active hit multiplies the base up to
	// HitCap hits, after which further hits are ignored.
	boosted := base * (1 + s.w.BoostRate*float64(minInt(hits, s.w.HitCap)))
	if boosted > s.w.Ceiling {
		boosted = s.w.Ceiling
	}

	score := clip01(boosted)
	return score, types.ScoreBreakdown{
		Rel:        rel,
		Quality:    clip01(passage.Quality),
		Lex:        clip01(lex),
		ActiveHits: hits,
		Base:       clip01(base),
	}
}

// ActiveHits counts how many window concepts appear in the passage's concept
// set. Matching is case-insensitive on whole concept labels.
func ActiveHits(windowConcepts, passageConcepts []string) int {
	if len(windowConcepts) == 0 || len(passageConcepts) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(passageConcepts))
	for _, c := range passageConcepts {
		set[strings.ToLower(c)] = struct{}{}
	}
	hits := 0
	seen := make(map[string]struct{}, len(windowConcepts))
	for _, c := range windowConcepts {
		lc := strings.ToLower(c)
		if _, dup := seen[lc]; dup {
			continue
		}
		seen[lc] = struct{}{}
		if _, ok := set[lc]; ok {
			hits++
		}
	}
	return hits
}

// Rank orders results by descending score with deterministic passage-ID
// tie-breaks, and assigns 1-based ranks in place.
func Rank(results []types.ScoredResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].PassageID < results[j].PassageID
	})
	for i := range results {
		results[i].Rank = i + 1
	}
}

func clip01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
