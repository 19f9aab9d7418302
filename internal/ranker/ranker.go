// Package ranker implements C9: field-hierarchy scoring. Every match
// contributes a score derived from which field it landed in, how close to
// the start of that field it sits, and which search tier found it; scores
// across terms and documents are then aggregated and trimmed to the
// requested result size (spec §4.9).
package ranker

import (
	"container/heap"
	"sort"

	"github.com/harryzorus/sorex-sub000/internal/docmodel"
)

// Field-hierarchy base scores and boost ceiling (spec §4.9). The strict
// inequalities base(Title) - max_boost > base(Heading) + max_boost, and
// likewise Heading over Content, must hold for position boosting to never
// let a lower-tier field outrank a higher one. verify.FieldHierarchy
// checks this at build time via Constants; it isn't checked on every
// package init since that would run the check on every production load
// instead of just at build time (spec §4.12/§8).
const (
	baseTitle   = 100.0
	baseHeading = 10.0
	baseContent = 1.0
	maxBoost    = 0.5
)

// FieldConstants exposes the field-hierarchy base scores and boost
// ceiling currently in effect, for verify.FieldHierarchy to check.
type FieldConstants struct {
	Title, Heading, Content, MaxBoost float64
}

// Constants returns the field-hierarchy constants this package scores
// matches with.
func Constants() FieldConstants {
	return FieldConstants{Title: baseTitle, Heading: baseHeading, Content: baseContent, MaxBoost: maxBoost}
}

func baseScore(ft docmodel.FieldType) float64 {
	switch ft {
	case docmodel.FieldTitle:
		return baseTitle
	case docmodel.FieldHeading:
		return baseHeading
	default:
		return baseContent
	}
}

// Tier identifies which of the three search passes produced a match, used
// to apply the corresponding penalty factor (spec §4.9).
type Tier int

const (
	TierExact Tier = iota
	TierPrefix
	TierFuzzy
)

func (t Tier) String() string {
	switch t {
	case TierExact:
		return "exact"
	case TierPrefix:
		return "prefix"
	case TierFuzzy:
		return "fuzzy"
	default:
		return "unknown"
	}
}

// Match is one term's occurrence contributing to a document's score.
type Match struct {
	FieldType  docmodel.FieldType
	Position   int
	FieldLen   int // length, in tokens, of the field instance this occurred in
	Tier       Tier
	EditDist   int // meaningful only for TierFuzzy
	SectionIdx int // index into the artifact's section table; 0 = none
}

// score computes one match's contribution: base(field) scaled by a
// position boost that decays linearly from maxBoost at position 0 to 0 at
// the field's end, then scaled by the tier's penalty factor (spec §4.9).
func score(m Match) float64 {
	base := baseScore(m.FieldType)
	boost := 0.0
	if m.FieldLen > 0 {
		frac := float64(m.Position) / float64(m.FieldLen)
		if frac > 1 {
			frac = 1
		}
		boost = maxBoost * (1 - frac)
	}
	s := base + boost

	switch m.Tier {
	case TierPrefix:
		s *= 0.9
	case TierFuzzy:
		s *= 1.0 / (1.0 + float64(m.EditDist))
	}
	return s
}

// DocumentScore is one candidate document's aggregated score: for each
// matched term, the maximum-scoring occurrence within the document; then
// the per-term maxima are summed, doubled when every query term matched
// (spec §4.9 "all-terms-present bonus").
type DocumentScore struct {
	DocID int
	Score float64
}

// Score aggregates a document's matches, grouped by term, into one
// DocumentScore. matchesByTerm must have one entry per distinct query
// term that matched in this document; numQueryTerms is the total number
// of terms in the query.
func Score(docID int, matchesByTerm [][]Match, numQueryTerms int) DocumentScore {
	var total float64
	matchedTerms := 0
	for _, matches := range matchesByTerm {
		if len(matches) == 0 {
			continue
		}
		matchedTerms++
		best := 0.0
		for _, m := range matches {
			if s := score(m); s > best {
				best = s
			}
		}
		total += best
	}
	if numQueryTerms > 0 && matchedTerms == numQueryTerms {
		total *= 2
	}
	return DocumentScore{DocID: docID, Score: total}
}

// docHeap is a min-heap over DocumentScore, used to keep only the top-k
// candidates while streaming over a large result set without a full sort
// (spec §4.9/§4.8 "bounded min-heap top-k for large result sets").
type docHeap []DocumentScore

func (h docHeap) Len() int { return len(h) }
func (h docHeap) Less(i, j int) bool {
	if h[i].Score != h[j].Score {
		return h[i].Score < h[j].Score
	}
	return h[i].DocID > h[j].DocID
}
func (h docHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *docHeap) Push(x interface{}) { *h = append(*h, x.(DocumentScore)) }
func (h *docHeap) Pop() interface{} {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}

// TopK keeps running candidates and returns the top-k documents by score,
// descending, ties broken by ascending DocID for determinism. Below a
// small-input threshold it simply sorts; above it, it maintains a bounded
// min-heap so memory stays O(k) regardless of candidate volume.
const fullSortThreshold = 512

// TopK selects the top-k DocumentScores from candidates (spec §4.9).
func TopK(candidates []DocumentScore, k int) []DocumentScore {
	if k <= 0 || len(candidates) == 0 {
		return nil
	}
	if len(candidates) <= fullSortThreshold || k >= len(candidates) {
		out := append([]DocumentScore(nil), candidates...)
		sortDescending(out)
		if k < len(out) {
			out = out[:k]
		}
		return out
	}

	h := &docHeap{}
	heap.Init(h)
	for _, c := range candidates {
		if h.Len() < k {
			heap.Push(h, c)
			continue
		}
		if root := (*h)[0]; c.Score > root.Score || (c.Score == root.Score && c.DocID < root.DocID) {
			heap.Pop(h)
			heap.Push(h, c)
		}
	}
	out := make([]DocumentScore, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(h).(DocumentScore)
	}
	sortDescending(out)
	return out
}

func sortDescending(scores []DocumentScore) {
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		return scores[i].DocID < scores[j].DocID
	})
}
