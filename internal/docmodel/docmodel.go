// Package docmodel defines the input document and manifest shapes the
// build pipeline consumes (spec §6) and validates the invariants the
// tokenizer depends on (spec §3 FieldBoundary).
package docmodel

import (
	"encoding/binary"
	"errors"
	"fmt"
	"regexp"
	"sort"

	json "github.com/goccy/go-json"
)

// FieldType is the closed set of field tags a boundary may carry.
type FieldType uint8

const (
	FieldContent FieldType = iota
	FieldTitle
	FieldHeading
)

func (t FieldType) String() string {
	switch t {
	case FieldTitle:
		return "title"
	case FieldHeading:
		return "heading"
	default:
		return "content"
	}
}

func ParseFieldType(s string) (FieldType, error) {
	switch s {
	case "title":
		return FieldTitle, nil
	case "heading":
		return FieldHeading, nil
	case "content", "":
		return FieldContent, nil
	default:
		return 0, fmt.Errorf("docmodel: unknown field type %q", s)
	}
}

var sectionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// FieldBoundary is a half-open character range [Start, End) tagged with a
// field type and optional section identifier (spec §3).
type FieldBoundary struct {
	Start     int       `json:"start"`
	End       int       `json:"end"`
	FieldType FieldType `json:"-"`
	SectionID string    `json:"sectionId,omitempty"`
}

type fieldBoundaryJSON struct {
	Start     int     `json:"start"`
	End       int     `json:"end"`
	FieldType string  `json:"fieldType"`
	SectionID *string `json:"sectionId"`
}

func (b *FieldBoundary) UnmarshalJSON(data []byte) error {
	var raw fieldBoundaryJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	ft, err := ParseFieldType(raw.FieldType)
	if err != nil {
		return err
	}
	b.Start = raw.Start
	b.End = raw.End
	b.FieldType = ft
	if raw.SectionID != nil {
		b.SectionID = *raw.SectionID
	}
	return nil
}

func (b FieldBoundary) MarshalJSON() ([]byte, error) {
	raw := fieldBoundaryJSON{Start: b.Start, End: b.End, FieldType: b.FieldType.String()}
	if b.SectionID != "" {
		raw.SectionID = &b.SectionID
	}
	return json.Marshal(raw)
}

// Document is a single input document (spec §6 JSON shape).
type Document struct {
	ID              int             `json:"id"`
	Slug            string          `json:"slug"`
	Title           string          `json:"title"`
	Excerpt         string          `json:"excerpt"`
	Href            string          `json:"href"`
	Type            string          `json:"type"`
	Category        string          `json:"category,omitempty"`
	Author          string          `json:"author,omitempty"`
	Tags            []string        `json:"tags,omitempty"`
	Text            string          `json:"text"`
	FieldBoundaries []FieldBoundary `json:"fieldBoundaries"`
}

// ValidationError names the offending document and, where applicable, the
// two conflicting ranges — matching spec §4.1/§7's structured abort report.
type ValidationError struct {
	DocID  int
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("docmodel: document %d: %s", e.DocID, e.Reason)
}

// Validate checks field-boundary invariants for a single document: start <
// end, section-id charset, and pairwise non-overlap (spec §3).
func (d *Document) Validate() error {
	for _, b := range d.FieldBoundaries {
		if b.Start < 0 || b.End < 0 {
			return &ValidationError{d.ID, fmt.Sprintf("negative boundary offsets [%d,%d)", b.Start, b.End)}
		}
		if b.Start >= b.End {
			return &ValidationError{d.ID, fmt.Sprintf("boundary start >= end: [%d,%d)", b.Start, b.End)}
		}
		if b.SectionID != "" && !sectionIDPattern.MatchString(b.SectionID) {
			return &ValidationError{d.ID, fmt.Sprintf("invalid section id %q", b.SectionID)}
		}
	}

	sorted := make([]FieldBoundary, len(d.FieldBoundaries))
	copy(sorted, d.FieldBoundaries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	for i := 1; i < len(sorted); i++ {
		prev, cur := sorted[i-1], sorted[i]
		if cur.Start < prev.End {
			return &ValidationError{
				d.ID,
				fmt.Sprintf("overlapping boundaries [%d,%d) and [%d,%d)", prev.Start, prev.End, cur.Start, cur.End),
			}
		}
	}
	return nil
}

// SortedBoundaries returns a copy of the document's field boundaries
// sorted by Start, suitable for the binary-search lookup C1 performs.
func (d *Document) SortedBoundaries() []FieldBoundary {
	sorted := make([]FieldBoundary, len(d.FieldBoundaries))
	copy(sorted, d.FieldBoundaries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })
	return sorted
}

// IndexDef names one named index and the filter over documents that
// belong to it, for multi-index manifest builds (spec §6).
type IndexDef struct {
	Name    string `json:"name"`
	Include string `json:"include"` // "*" or a category/kind filter expression
}

// Manifest lists the per-document files that make up a corpus and the
// index definitions to build from them (spec §6).
type Manifest struct {
	Files   []string   `json:"files"`
	Indexes []IndexDef `json:"indexes,omitempty"`
}

// Matches reports whether a document belongs to the index definition's
// include filter. "*" matches everything; otherwise the filter is matched
// against category, then type (kind tag).
func (d IndexDef) Matches(doc *Document) bool {
	if d.Include == "" || d.Include == "*" {
		return true
	}
	return doc.Category == d.Include || doc.Type == d.Include
}

// SectionTable is the deduplicated, sorted section-identifier table a
// Posting's section_idx indexes into; index 0 always denotes "none" (spec
// §3 Posting: "section_idx is an index into a deduplicated section-string
// table, 0 denotes none").
type SectionTable struct {
	ids []string // ids[0] == ""; ids[1:] sorted ascending, unique
}

// BuildSectionTable collects every distinct, non-empty SectionID across a
// document set's field boundaries and assigns it a stable index.
func BuildSectionTable(docs []*Document) *SectionTable {
	seen := map[string]bool{}
	var ids []string
	for _, d := range docs {
		for _, b := range d.FieldBoundaries {
			if b.SectionID == "" || seen[b.SectionID] {
				continue
			}
			seen[b.SectionID] = true
			ids = append(ids, b.SectionID)
		}
	}
	sort.Strings(ids)
	return &SectionTable{ids: append([]string{""}, ids...)}
}

// IndexOf returns id's table index, or 0 ("none") if id is empty or
// absent. Lookup is O(log n) via binary search over the sorted tail.
func (t *SectionTable) IndexOf(id string) int {
	if id == "" {
		return 0
	}
	rest := t.ids[1:]
	i := sort.SearchStrings(rest, id)
	if i < len(rest) && rest[i] == id {
		return i + 1
	}
	return 0
}

// At returns the section identifier at idx, or "" for 0 or an out-of-range
// index.
func (t *SectionTable) At(idx int) string {
	if idx <= 0 || idx >= len(t.ids) {
		return ""
	}
	return t.ids[idx]
}

// Encode serializes the table as length-prefixed UTF-8 entries, in index
// order (including the leading empty "none" entry), mirroring the
// vocabulary's own wire layout (spec §4.2/§6).
func (t *SectionTable) Encode() []byte {
	var buf []byte
	var lenTmp [binary.MaxVarintLen64]byte
	for _, id := range t.ids {
		n := binary.PutUvarint(lenTmp[:], uint64(len(id)))
		buf = append(buf, lenTmp[:n]...)
		buf = append(buf, id...)
	}
	return buf
}

// DecodeSectionTable reads a table previously written by Encode.
func DecodeSectionTable(data []byte) (*SectionTable, error) {
	var ids []string
	i := 0
	for i < len(data) {
		l, n := binary.Uvarint(data[i:])
		if n <= 0 {
			return nil, errors.New("docmodel: malformed section table length varint")
		}
		i += n
		if i+int(l) > len(data) {
			return nil, errors.New("docmodel: truncated section table entry")
		}
		ids = append(ids, string(data[i:i+int(l)]))
		i += int(l)
	}
	if len(ids) == 0 {
		ids = []string{""}
	}
	return &SectionTable{ids: ids}, nil
}

// DocMeta is the subset of a Document retained in the built artifact's
// "source document blob" for result enrichment at query time (spec §3
// SearchResult: "document locator, title, excerpt, optional section
// identifier"). Text and field boundaries are build-time-only and dropped.
type DocMeta struct {
	ID      int    `json:"id"`
	Slug    string `json:"slug"`
	Title   string `json:"title"`
	Excerpt string `json:"excerpt"`
	Href    string `json:"href"`
	Type    string `json:"type"`
}

// EncodeDocMetas serializes a dense, ID-indexed slice of DocMeta (spec §6:
// "id non-negative integer, dense") as JSON, consistent with the JSON
// shape used for input documents and manifests.
func EncodeDocMetas(docs []*Document) ([]byte, error) {
	metas := make([]DocMeta, len(docs))
	for i, d := range docs {
		metas[i] = DocMeta{ID: d.ID, Slug: d.Slug, Title: d.Title, Excerpt: d.Excerpt, Href: d.Href, Type: d.Type}
	}
	return json.Marshal(metas)
}

// DecodeDocMetas is the inverse of EncodeDocMetas.
func DecodeDocMetas(data []byte) ([]DocMeta, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var metas []DocMeta
	if err := json.Unmarshal(data, &metas); err != nil {
		return nil, err
	}
	return metas, nil
}
