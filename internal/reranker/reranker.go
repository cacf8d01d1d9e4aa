package reranker

import (
	"context"
	"errors"
	"math"
	"sort"
	"time"

	"github.com/tlowry/notectx/pkg/types"
)

var (
	// ErrUnavailable is returned when the reranking model cannot be reached
	ErrUnavailable = errors.New("reranker unavailable")
)

// Reranker scores (query, document) pairs with a heavier pairwise relevance
// model than the embedding similarity used for candidate retrieval
type Reranker interface {
	// Score returns one relevance score per document, in document order
	Score(ctx context.Context, query string, documents []string) ([]float64, error)
	// Available reports whether reranking is configured and usable
	Available() bool
	Close() error
}

// Noop is the disabled reranker; Apply leaves orderings untouched
type Noop struct{}

func (Noop) Score(context.Context, string, []string) ([]float64, error) {
	return nil, ErrUnavailable
}
func (Noop) Available() bool { return false }
func (Noop) Close() error    { return nil }

// Options tune the second-pass blend
type Options struct {
	// TopN is how many leading candidates are sent to the model
	TopN int
	// Weight scales the normalized rerank score added to the first-pass score
	Weight float64
	// Timeout bounds the model call; expiry falls back to the input ordering
	Timeout time.Duration
}

// DefaultOptions returns the standard blend settings
func DefaultOptions() Options {
	return Options{
		TopN:    20,
		Weight:  0.35,
		Timeout: 5 * time.Second,
	}
}

// Apply reorders results by blending min-max-normalized rerank scores into
// the existing scores. Best-effort: any model failure, timeout, or score
// count mismatch returns the input ordering unchanged. Ranks are reassigned
// on the returned slice.
func Apply(ctx context.Context, r Reranker, query string, results []types.ScoredResult, opts Options) []types.ScoredResult {
	if r == nil || !r.Available() || len(results) == 0 || opts.TopN <= 0 || opts.Weight <= 0 {
		return results
	}

	n := opts.TopN
	if n > len(results) {
		n = len(results)
	}
	docs := make([]string, n)
	for i := 0; i < n; i++ {
		docs[i] = results[i].Text
	}

	scoreCtx := ctx
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		scoreCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	raw, err := r.Score(scoreCtx, query, docs)
	if err != nil || len(raw) != n {
		return results
	}

	lo, hi := raw[0], raw[0]
	for _, v := range raw[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	denom := hi - lo

	blended := make([]types.ScoredResult, len(results))
	copy(blended, results)
	for i := 0; i < n; i++ {
		norm := 0.0
		if denom > 1e-9 {
			norm = (raw[i] - lo) / denom
		}
		blended[i].Score = math.Min(1.0, blended[i].Score+opts.Weight*norm)
	}

	sort.SliceStable(blended, func(i, j int) bool {
		if blended[i].Score != blended[j].Score {
			return blended[i].Score > blended[j].Score
		}
		return blended[i].PassageID < blended[j].PassageID
	})
	for i := range blended {
		blended[i].Rank = i + 1
	}
	return blended
}
