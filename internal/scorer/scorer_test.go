package scorer

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tlowry/notectx/pkg/types"
)

func TestDefaultWeightsValid(t *testing.T) {
	require.NoError(t, DefaultWeights().Validate())
}

func TestWeightsValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Weights)
		wantErr error
	}{
		{"negative rel", func(w *Weights) { w.Rel = -0.1 }, ErrNegativeWeight},
		{"floor above one", func(w *Weights) { w.QualityFloor = 1.5 }, ErrInvalidQualityFloor},
		{"negative hit cap", func(w *Weights) { w.HitCap = -1 }, ErrInvalidHitCap},
		{"zero ceiling", func(w *Weights) { w.Ceiling = 0 }, ErrInvalidCeiling},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := DefaultWeights()
			tt.mutate(&w)
			assert.ErrorIs(t, w.Validate(), tt.wantErr)
		})
	}
}

func TestLexOverlap(t *testing.T) {
	assert.Equal(t, 1.0, LexOverlap("glass shattered sky", "the glass shattered across the sky"))
	assert.Equal(t, 0.0, LexOverlap("ocean tides", "mountain granite"))
	assert.Equal(t, 0.0, LexOverlap("the and of", "anything here"), "stopword-only text has no content words")
	assert.Equal(t, 0.0, LexOverlap("", "anything"))

	// Case-insensitive
	assert.Equal(t, 1.0, LexOverlap("Resonance Cascade", "resonance cascade theory"))
}

func TestActiveHits(t *testing.T) {
	passage := []string{"resonance cascade", "aurora"}

	assert.Equal(t, 0, ActiveHits(nil, passage))
	assert.Equal(t, 0, ActiveHits([]string{"gravity"}, passage))
	assert.Equal(t, 1, ActiveHits([]string{"Aurora"}, passage), "matching is case-insensitive")
	assert.Equal(t, 2, ActiveHits([]string{"aurora", "resonance cascade"}, passage))
	assert.Equal(t, 1, ActiveHits([]string{"aurora", "AURORA"}, passage), "duplicate window concepts count once")
}

func TestQuality(t *testing.T) {
	assert.Equal(t, 0.0, Quality("   "))
	assert.Equal(t, 0.1, Quality("!!! ??? ..."))
	assert.Equal(t, 0.1, Quality("a b"))

	prose := "The resonance cascade spread through the valley, scattering light across every window."
	heading := "# Resonance Cascade"
	bullet := "- resonance cascade notes"

	assert.Greater(t, Quality(prose), 0.85)
	assert.Less(t, Quality(heading), Quality(prose))
	assert.Less(t, Quality(bullet), Quality(prose))

	fragment := "The resonance cascade spread through the"
	assert.Less(t, Quality(fragment), Quality(prose))
}

func TestScoreMonotonicInActiveHits(t *testing.T) {
	s := New(DefaultWeights())
	window := &types.QueryWindow{
		NoteID: "drafts/sky",
		Text:   "shattered glass across the evening sky",
	}
	passage := &types.Passage{
		NoteID:   "worlds/kestrel",
		Text:     "Glass rained down over the harbor, each shard catching the evening light.",
		Quality:  0.9,
		Concepts: []string{"glass", "harbor", "evening light", "shard"},
	}
	passage.ComputeID()

	prev := -1.0
	for hits := 0; hits <= 4; hits++ {
		window.Concepts = passage.Concepts[:hits]
		score, bd := s.Score(window, passage, 0.6)
		assert.Equal(t, hits, bd.ActiveHits)
		assert.GreaterOrEqual(t, score, prev, "score must not decrease as active hits grow")
		prev = score
	}
}

func TestScoreBoostSaturates(t *testing.T) {
	w := DefaultWeights()
	w.HitCap = 2
	s := New(w)

	window := &types.QueryWindow{NoteID: "n", Text: "evening glass"}
	passage := &types.Passage{
		NoteID:   "m",
		Text:     "Evening glass on the water.",
		Quality:  0.8,
		Concepts: []string{"a", "b", "c", "d"},
	}
	passage.ComputeID()

	window.Concepts = []string{"a", "b"}
	atCap, _ := s.Score(window, passage, 0.5)

	window.Concepts = []string{"a", "b", "c", "d"}
	overCap, _ := s.Score(window, passage, 0.5)

	assert.Equal(t, atCap, overCap, "hits beyond the cap add no further boost")
}

func TestScoreZeroHitsKeepsBase(t *testing.T) {
	s := New(DefaultWeights())
	window := &types.QueryWindow{NoteID: "n", Text: "evening glass"}
	passage := &types.Passage{NoteID: "m", Text: "Evening glass on the water.", Quality: 0.8}
	passage.ComputeID()

	score, bd := s.Score(window, passage, 0.5)
	assert.Equal(t, bd.Base, score)
	assert.Zero(t, bd.ActiveHits)
}

func TestScoreClipsRel(t *testing.T) {
	s := New(DefaultWeights())
	window := &types.QueryWindow{NoteID: "n", Text: "tide"}
	passage := &types.Passage{NoteID: "m", Text: "The tide returned at dusk.", Quality: 1.0}
	passage.ComputeID()

	_, bd := s.Score(window, passage, 1.7)
	assert.Equal(t, 1.0, bd.Rel)

	_, bd = s.Score(window, passage, -0.3)
	assert.Equal(t, 0.0, bd.Rel)
}

func TestRankDeterministicTieBreak(t *testing.T) {
	results := []types.ScoredResult{
		{PassageID: "b#0:aa", NoteID: "b", Text: "x", Score: 0.5},
		{PassageID: "a#0:aa", NoteID: "a", Text: "x", Score: 0.5},
		{PassageID: "c#0:aa", NoteID: "c", Text: "x", Score: 0.9},
	}

	Rank(results)

	require.Len(t, results, 3)
	assert.Equal(t, "c#0:aa", results[0].PassageID)
	assert.Equal(t, "a#0:aa", results[1].PassageID, "equal scores break ties by ascending passage ID")
	assert.Equal(t, "b#0:aa", results[2].PassageID)
	for i, r := range results {
		assert.Equal(t, i+1, r.Rank)
	}
}

func TestRankStableAcrossRuns(t *testing.T) {
	build := func() []types.ScoredResult {
		out := make([]types.ScoredResult, 0, 20)
		for i := 0; i < 20; i++ {
			out = append(out, types.ScoredResult{
				PassageID: fmt.Sprintf("note-%02d#0:ff", 19-i),
				NoteID:    "note",
				Text:      "x",
				Score:     float64(i%5) / 10,
			})
		}
		return out
	}

	a := build()
	b := build()
	Rank(a)
	Rank(b)
	assert.Equal(t, a, b)
}
