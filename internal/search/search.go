// Package search implements C8 (the three-tier searcher) and C10 (query
// parsing and tier dispatch). Results stream out tier by tier through a
// pull-based state machine so a caller can stop consuming as soon as it
// has enough matches, rather than waiting for every tier to finish (spec
// §4.8/§4.10, §9 redesign flag).
package search

import (
	"context"
	"strings"

	"github.com/RoaringBitmap/roaring"

	"github.com/harryzorus/sorex-sub000/internal/fuzzy"
	"github.com/harryzorus/sorex-sub000/internal/loader"
	"github.com/harryzorus/sorex-sub000/internal/postings"
	"github.com/harryzorus/sorex-sub000/internal/ranker"
	"github.com/harryzorus/sorex-sub000/internal/token"
)

// maxQueryTerms bounds how many terms a single query contributes to
// tier dispatch, protecting Tier 3 (the most expensive tier) from
// pathological long queries (spec §4.10 "query normalization/truncation").
const maxQueryTerms = 16

// Query is a parsed, normalized query: case-folded, de-duplicated terms,
// at most maxQueryTerms of them (spec §4.10). Stop words are not removed.
type Query struct {
	Terms []string
}

// ParseQuery normalizes raw input into a Query. Terms are whitespace-
// separated, case-folded the same way C1 folds document text so exact-
// tier lookups hit the same vocabulary casing. Fields with no letter or
// digit are dropped.
func ParseQuery(raw string) Query {
	fields := strings.Fields(raw)
	seen := map[string]bool{}
	var terms []string
	for _, f := range fields {
		f, ok := token.Normalize(f, nil)
		if !ok || seen[f] {
			continue
		}
		seen[f] = true
		terms = append(terms, f)
		if len(terms) >= maxQueryTerms {
			break
		}
	}
	return Query{Terms: terms}
}

// Empty reports whether the query carries no usable terms (spec §4.10
// "empty-query handling").
func (q Query) Empty() bool { return len(q.Terms) == 0 }

// tierState names the pull-based state machine's position (spec §9).
type tierState int

const (
	stateIdle tierState = iota
	stateInTier1
	stateInTier2
	stateInTier3
	stateDone
)

// Searcher runs the three-tier pipeline against one loaded index.
type Searcher struct {
	idx *loader.Index
	dfa *fuzzy.DFA
}

// NewSearcher builds a Searcher over an already-loaded index. The Tier 3
// DFA is never compiled here: it was built once at artifact build time and
// travels inside the artifact's lev_dfa section, so every searcher over the
// same index reuses the identical decoded automaton instead of repeating
// the BFS construction per construction or per query (spec §4.5 "built
// once"; §9 "the DFA must never be rebuilt at query time").
func NewSearcher(idx *loader.Index) *Searcher {
	return &Searcher{idx: idx, dfa: idx.DFA}
}

// Result is one scored document, tagged with the tier that produced the
// contributing match of highest tier-quality (exact beats prefix beats
// fuzzy) so callers can show provenance, and enriched with the locator,
// title, excerpt, and section identifier a caller needs to render it
// (spec §3 SearchResult) without holding a reference back into the index.
type Result struct {
	ranker.DocumentScore
	Tier      ranker.Tier
	Title     string
	Excerpt   string
	Href      string
	SectionID string
}

// Session is the pull-based, cooperatively cancellable tier walk: each
// call to Next advances through Tier 1 (exact), then Tier 2 (prefix), then
// Tier 3 (fuzzy), stopping early if ctx is cancelled (spec §4.8/§9).
type Session struct {
	s      *Searcher
	q      Query
	state  tierState
	limit  int
	seen   *roaring.Bitmap
	buffer []Result
}

// Search starts a new pull-based session for query q, ready to yield up
// to limit results per tier via Next.
func (s *Searcher) Search(q Query, limit int) *Session {
	return &Session{s: s, q: q, state: stateIdle, limit: limit, seen: roaring.New()}
}

// Next advances the session by one tier step and returns that tier's
// batch of results (possibly empty) plus whether the session has more
// tiers to try. Cancelling ctx stops work at the next tier boundary, or,
// during Tier 3, at coarse checkpoints within the tier (spec §9).
func (s *Session) Next(ctx context.Context) ([]Result, bool) {
	if s.q.Empty() || s.state == stateDone {
		s.state = stateDone
		return nil, false
	}
	if ctx.Err() != nil {
		s.state = stateDone
		return nil, false
	}

	switch s.state {
	case stateIdle:
		s.state = stateInTier1
		return s.runTier1(), true
	case stateInTier1:
		s.state = stateInTier2
		return s.runTier2(), true
	case stateInTier2:
		s.state = stateInTier3
		return s.runTier3(ctx), false
	default:
		s.state = stateDone
		return nil, false
	}
}

// runTier1 performs exact vocabulary lookup and AND-intersection across
// every query term's posting list (spec §4.8 Tier 1).
func (s *Session) runTier1() []Result {
	lists := make([]*postings.PostingList, 0, len(s.q.Terms))
	matchesByDoc := map[int][][]ranker.Match{}

	for _, term := range s.q.Terms {
		id, ok := s.s.idx.Vocab.Lookup(term)
		if !ok {
			return nil // spec: Tier 1 requires every term to resolve exactly
		}
		pl, err := postings.ListFor(s.s.idx.Dict, s.s.idx.Postings, id)
		if err != nil {
			return nil
		}
		lists = append(lists, pl)
	}

	docIDs := postings.IntersectDocIDs(lists)
	for _, docID := range docIDs {
		s.seen.Add(uint32(docID))
		var perTerm [][]ranker.Match
		for _, pl := range lists {
			perTerm = append(perTerm, occurrencesFor(pl, docID, ranker.TierExact, 0))
		}
		matchesByDoc[docID] = perTerm
	}
	return s.scoreAndTrim(matchesByDoc)
}

// mostSelectiveTerm picks the query term with the fewest candidate
// expansions, using the suffix array's prefix-range size as a cheap proxy
// for candidate-set size, so Tiers 2/3 bound their cost to one term's
// expansion instead of every query term's (spec §4.8: "the most selective
// token (the one with the fewest prefix/fuzzy expansions)").
func (s *Session) mostSelectiveTerm() (qIdx int, term string) {
	best := -1
	for i, t := range s.q.Terms {
		lo, hi := s.s.idx.SA.PrefixRange(t)
		if count := hi - lo; best == -1 || count < best {
			best, qIdx, term = count, i, t
		}
	}
	return qIdx, term
}

// runTier2 expands only the most selective query term across its term
// prefixes via the suffix array, excluding documents Tier 1 already
// returned (spec §4.8 Tier 2, §4.4).
func (s *Session) runTier2() []Result {
	matchesByDoc := map[int][][]ranker.Match{}
	qIdx, term := s.mostSelectiveTerm()
	termIDs := s.s.idx.SA.TermsWithPrefix(term)
	for _, id := range termIDs {
		pl, err := postings.ListFor(s.s.idx.Dict, s.s.idx.Postings, id)
		if err != nil {
			continue
		}
		for i, docID := range pl.DocIDs {
			if s.seen.Contains(uint32(docID)) {
				continue
			}
			matchesByDoc[docID] = appendTermMatches(matchesByDoc[docID], qIdx,
				pl.Occurrences[i], ranker.TierPrefix, 0)
		}
	}
	for docID := range matchesByDoc {
		s.seen.Add(uint32(docID))
	}
	return s.scoreAndTrim(matchesByDoc)
}

// runTier3 expands only the most selective query term against the whole
// vocabulary through the parametric Levenshtein DFA, checking ctx for
// cancellation every fuzzyCheckpointStride vocabulary terms (spec §4.8
// Tier 3, §9).
const fuzzyCheckpointStride = 1024

func (s *Session) runTier3(ctx context.Context) []Result {
	matchesByDoc := map[int][][]ranker.Match{}
	qIdx, term := s.mostSelectiveTerm()
	for id := 0; id < s.s.idx.Vocab.Len(); id++ {
		if id%fuzzyCheckpointStride == 0 && ctx.Err() != nil {
			return s.scoreAndTrim(matchesByDoc)
		}
		dist, ok := s.s.dfa.Matches(term, s.s.idx.Vocab.TermOf(id))
		if !ok {
			continue
		}
		pl, err := postings.ListFor(s.s.idx.Dict, s.s.idx.Postings, id)
		if err != nil {
			continue
		}
		for i, docID := range pl.DocIDs {
			if s.seen.Contains(uint32(docID)) {
				continue
			}
			matchesByDoc[docID] = appendTermMatches(matchesByDoc[docID], qIdx,
				pl.Occurrences[i], ranker.TierFuzzy, dist)
		}
	}
	return s.scoreAndTrim(matchesByDoc)
}

func occurrencesFor(pl *postings.PostingList, docID int, tier ranker.Tier, dist int) []ranker.Match {
	for i, d := range pl.DocIDs {
		if d == docID {
			return toMatches(pl.Occurrences[i], tier, dist)
		}
	}
	return nil
}

func toMatches(occs []postings.Occurrence, tier ranker.Tier, dist int) []ranker.Match {
	out := make([]ranker.Match, len(occs))
	for i, o := range occs {
		out[i] = ranker.Match{
			FieldType:  o.FieldType,
			Position:   o.Position,
			FieldLen:   o.FieldLen,
			Tier:       tier,
			EditDist:   dist,
			SectionIdx: o.SectionIdx,
		}
	}
	return out
}

// appendTermMatches appends one term's occurrence matches for a document
// at termSlot within that document's per-term match slice, growing it as
// needed (documents accumulate matches term-by-term as Tier 2/3 iterate).
func appendTermMatches(perTerm [][]ranker.Match, termSlot int, occs []postings.Occurrence, tier ranker.Tier, dist int) [][]ranker.Match {
	for len(perTerm) <= termSlot {
		perTerm = append(perTerm, nil)
	}
	perTerm[termSlot] = append(perTerm[termSlot], toMatches(occs, tier, dist)...)
	return perTerm
}

func (s *Session) scoreAndTrim(matchesByDoc map[int][][]ranker.Match) []Result {
	if len(matchesByDoc) == 0 {
		return nil
	}
	scores := make([]ranker.DocumentScore, 0, len(matchesByDoc))
	tierOf := map[int]ranker.Tier{}
	sectionOf := map[int]int{}
	for docID, perTerm := range matchesByDoc {
		scores = append(scores, ranker.Score(docID, perTerm, len(s.q.Terms)))
		best := bestMatch(perTerm)
		tierOf[docID] = best.Tier
		sectionOf[docID] = best.SectionIdx
	}
	top := ranker.TopK(scores, s.limit)
	out := make([]Result, len(top))
	for i, sc := range top {
		r := Result{DocumentScore: sc, Tier: tierOf[sc.DocID]}
		if idx := s.s.idx.Sections; idx != nil {
			r.SectionID = idx.At(sectionOf[sc.DocID])
		}
		if meta, ok := s.s.idx.DocMetaFor(sc.DocID); ok {
			r.Title, r.Excerpt, r.Href = meta.Title, meta.Excerpt, meta.Href
		}
		out[i] = r
	}
	return out
}

// bestMatch picks the highest-quality match across every matched term for
// a document (lowest tier, then earliest position), used to tag the
// document's Result with representative tier/section provenance.
func bestMatch(perTerm [][]ranker.Match) ranker.Match {
	best := ranker.Match{Tier: ranker.TierFuzzy}
	found := false
	for _, matches := range perTerm {
		for _, m := range matches {
			if !found || m.Tier < best.Tier || (m.Tier == best.Tier && m.Position < best.Position) {
				best = m
				found = true
			}
		}
	}
	return best
}
