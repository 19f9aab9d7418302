// Package token implements C1: tokenization and normalization. Text is
// walked with a Unicode word-boundary segmenter; each word-like segment is
// case-folded, and rejected if empty, entirely non-alphanumeric, or a
// configured stop word (spec §4.1).
package token

import (
	"sort"
	"unicode"
	"unicode/utf8"

	"github.com/clipperhouse/uax29/v2/words"
	"golang.org/x/text/cases"

	"github.com/harryzorus/sorex-sub000/internal/docmodel"
	"github.com/harryzorus/sorex-sub000/internal/stopwords"
)

var fold = cases.Fold()

// Record is one normalized term occurrence (spec §4.1 output tuple).
type Record struct {
	Term      string
	FieldType docmodel.FieldType
	SectionID string
	Position  int // ordinal of the occurrence within its field, 0-based
	FieldLen  int // total term count of the field instance this occurred in
}

// Normalize case-folds a raw segment, then applies the reject rules:
// empty, entirely non-alphanumeric, or present in the stop-word set.
// Returns ("", false) when the segment should be discarded.
func Normalize(raw string, stop *stopwords.Set) (string, bool) {
	if raw == "" {
		return "", false
	}
	folded := fold.String(raw)
	if folded == "" {
		return "", false
	}

	hasAlnum := false
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			hasAlnum = true
			break
		}
	}
	if !hasAlnum {
		return "", false
	}

	if stop.Contains(folded) {
		return "", false
	}
	return folded, true
}

// boundaryIndex locates the field boundary covering offset via binary
// search over boundaries sorted by Start (spec §4.1).
func boundaryIndex(sorted []docmodel.FieldBoundary, offset int) int {
	i := sort.Search(len(sorted), func(i int) bool { return sorted[i].Start > offset })
	if i == 0 {
		return -1
	}
	cand := sorted[i-1]
	if offset >= cand.Start && offset < cand.End {
		return i - 1
	}
	return -1
}

// Tokenize walks a document's text and emits normalized term records with
// per-field position counters that reset at every field boundary
// transition. Offsets not covered by any boundary are treated as Content
// with no section (spec §3). Each record's FieldLen is the total term
// count of the field instance it belongs to, needed by C9's position
// boost (`max_boost * (1 - pos/field_len)`, spec §4.9) — since that total
// isn't known until the whole field has been walked, token counts are
// accumulated per field instance during the single segmentation pass and
// then stamped onto every record of that field in a second pass.
func Tokenize(doc *docmodel.Document, stop *stopwords.Set) []Record {
	sorted := doc.SortedBoundaries()

	var records []Record
	var fieldIdx []int // fieldIdx[i] is the field-instance key records[i] belongs to
	positions := map[int]int{}
	fieldLens := map[int]int{}

	offset := 0
	seg := words.NewSegmenter([]byte(doc.Text))
	for seg.Next() {
		tok := seg.Bytes()
		start := offset
		offset += utf8.RuneCount(tok)

		term, ok := Normalize(string(tok), stop)
		if !ok {
			continue
		}

		fieldType := docmodel.FieldContent
		sectionID := ""
		idx := boundaryIndex(sorted, start)
		if idx >= 0 {
			fieldType = sorted[idx].FieldType
			sectionID = sorted[idx].SectionID
		} else {
			// Each uncovered gap is its own Content field instance, keyed
			// below -1 by how many boundaries start at or before it.
			idx = -1 - sort.Search(len(sorted), func(i int) bool { return sorted[i].Start > start })
		}

		pos := positions[idx]
		records = append(records, Record{
			Term:      term,
			FieldType: fieldType,
			SectionID: sectionID,
			Position:  pos,
		})
		fieldIdx = append(fieldIdx, idx)
		positions[idx] = pos + 1
		fieldLens[idx] = pos + 1
	}
	for i := range records {
		records[i].FieldLen = fieldLens[fieldIdx[i]]
	}
	return records
}
