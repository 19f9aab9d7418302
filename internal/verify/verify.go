// Package verify implements C12: dev-mode invariant checks over build
// outputs. These run during `build --strict` (and in tests) rather than
// on every production load, since they re-derive structural properties
// the codecs are already supposed to guarantee (spec §4.12, §8).
package verify

import (
	"fmt"

	"github.com/harryzorus/sorex-sub000/internal/docmodel"
	"github.com/harryzorus/sorex-sub000/internal/postings"
	"github.com/harryzorus/sorex-sub000/internal/ranker"
	"github.com/harryzorus/sorex-sub000/internal/sufarray"
	"github.com/harryzorus/sorex-sub000/internal/vocab"
)

// Violation is one failed invariant, naming which check failed and the
// offending index so a CLI can point at the exact bad record.
type Violation struct {
	Check string
	Index int
	Msg   string
}

func (v Violation) Error() string {
	return fmt.Sprintf("%s[%d]: %s", v.Check, v.Index, v.Msg)
}

// Vocabulary checks the vocabulary is sorted and duplicate-free (spec
// §4.2/§8 "vocabulary sortedness").
func Vocabulary(v *vocab.Vocabulary) []Violation {
	var violations []Violation
	for i := 1; i < v.Len(); i++ {
		if v.TermOf(i) <= v.TermOf(i-1) {
			violations = append(violations, Violation{
				Check: "vocab.sorted", Index: i,
				Msg: fmt.Sprintf("term %q does not sort strictly after %q", v.TermOf(i), v.TermOf(i-1)),
			})
		}
	}
	return violations
}

// SuffixArray checks the VSA's entries are well-formed (term_idx in
// range, char_offset within the term) and sorted by the suffix they
// denote (spec §4.4/§8 "VSA sortedness", "VSA well-formedness").
func SuffixArray(sa *sufarray.SuffixArray, v *vocab.Vocabulary) []Violation {
	var violations []Violation
	entries := sa.Entries()
	for i, e := range entries {
		if e.TermIdx < 0 || e.TermIdx >= v.Len() {
			violations = append(violations, Violation{
				Check: "sufarray.wellformed", Index: i,
				Msg: fmt.Sprintf("term_idx %d out of range [0,%d)", e.TermIdx, v.Len()),
			})
			continue
		}
		term := v.TermOf(e.TermIdx)
		if e.CharOffset < 0 || (term != "" && e.CharOffset >= len(term)) {
			violations = append(violations, Violation{
				Check: "sufarray.wellformed", Index: i,
				Msg: fmt.Sprintf("char_offset %d out of range for term %q", e.CharOffset, term),
			})
		}
	}
	for i := 1; i < len(entries); i++ {
		prevSuffix := v.TermOf(entries[i-1].TermIdx)[entries[i-1].CharOffset:]
		curSuffix := v.TermOf(entries[i].TermIdx)[entries[i].CharOffset:]
		if curSuffix < prevSuffix {
			violations = append(violations, Violation{
				Check: "sufarray.sorted", Index: i,
				Msg: fmt.Sprintf("suffix %q sorts before preceding suffix %q", curSuffix, prevSuffix),
			})
		}
	}
	return violations
}

// PostingLists checks every term's distinct doc_id sequence is strictly
// ascending and every document's in-field positions are non-decreasing
// (spec §3/§8 "posting list monotonicity").
func PostingLists(lists []*postings.PostingList) []Violation {
	var violations []Violation
	for t, pl := range lists {
		for i := 1; i < len(pl.DocIDs); i++ {
			if pl.DocIDs[i] <= pl.DocIDs[i-1] {
				violations = append(violations, Violation{
					Check: "postings.monotonic", Index: t,
					Msg: fmt.Sprintf("doc_id %d does not sort strictly after %d", pl.DocIDs[i], pl.DocIDs[i-1]),
				})
			}
		}
		for _, occs := range pl.Occurrences {
			for i := 1; i < len(occs); i++ {
				if occs[i].Position < occs[i-1].Position {
					violations = append(violations, Violation{
						Check: "postings.position_order", Index: t,
						Msg: "position decreased within a single document's occurrence list",
					})
				}
			}
		}
	}
	return violations
}

// FieldHierarchy checks the field-hierarchy base scores leave enough
// headroom that position boosting can never let a lower-tier field
// outrank a higher one even at its most-boosted position: base(Title) -
// max_boost must still exceed base(Heading) + max_boost, and likewise
// Heading over Content (spec §4.12/§8 "field hierarchy strict
// inequalities"). This is the literal subtract/add invariant, strictly
// stronger than just comparing the base scores to each other.
func FieldHierarchy(c ranker.FieldConstants) []Violation {
	var violations []Violation
	if !(c.Title-c.MaxBoost > c.Heading+c.MaxBoost) {
		violations = append(violations, Violation{
			Check: "ranker.field_hierarchy", Index: 0,
			Msg: fmt.Sprintf("base(Title)-max_boost (%.4f) does not exceed base(Heading)+max_boost (%.4f)",
				c.Title-c.MaxBoost, c.Heading+c.MaxBoost),
		})
	}
	if !(c.Heading-c.MaxBoost > c.Content+c.MaxBoost) {
		violations = append(violations, Violation{
			Check: "ranker.field_hierarchy", Index: 1,
			Msg: fmt.Sprintf("base(Heading)-max_boost (%.4f) does not exceed base(Content)+max_boost (%.4f)",
				c.Heading-c.MaxBoost, c.Content+c.MaxBoost),
		})
	}
	return violations
}

// FieldBoundaries checks a decoded document's boundaries are non-
// overlapping and section-id charset-valid, re-running the same check
// C1 relies on upstream (spec §3/§8 "field-boundary non-overlap").
func FieldBoundaries(doc *docmodel.Document) []Violation {
	if err := doc.Validate(); err != nil {
		return []Violation{{Check: "docmodel.boundaries", Index: doc.ID, Msg: err.Error()}}
	}
	return nil
}
