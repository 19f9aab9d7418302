package postings

import (
	"errors"
	"fmt"

	"github.com/harryzorus/sorex-sub000/internal/docmodel"
)

// skipStride is the number of level-0 blocks each level-1 skip entry spans
// (spec §4.6: "two-level skip pointers ... a coarser stride over the
// per-block entries").
const skipStride = 16

// skipThreshold is the doc_freq above which a term's posting list carries
// skip pointers (spec §4.6).
const skipThreshold = 1024

// Occurrence is one place a term appears within a single document.
type Occurrence struct {
	FieldType  docmodel.FieldType
	SectionIdx int
	Position   int
	FieldLen   int // total term count of the field instance this occurred in
}

// PostingList is one term's complete occurrence set, grouped by document
// and sorted by (DocID ascending, Position ascending within a document)
// per spec §3 "PostingList".
type PostingList struct {
	DocIDs      []int // strictly ascending, one entry per document
	Occurrences [][]Occurrence
}

// NewPostingList starts an empty list to be filled by AddOccurrence calls
// in ascending DocID order (the order build-time tokenization naturally
// produces when documents are processed in ID order).
func NewPostingList() *PostingList {
	return &PostingList{}
}

// AddOccurrence appends one occurrence for docID. Callers must present
// docIDs in non-decreasing order; within a document, positions must be
// non-decreasing (spec §3).
func (pl *PostingList) AddOccurrence(docID int, occ Occurrence) {
	n := len(pl.DocIDs)
	if n > 0 && pl.DocIDs[n-1] == docID {
		pl.Occurrences[n-1] = append(pl.Occurrences[n-1], occ)
		return
	}
	pl.DocIDs = append(pl.DocIDs, docID)
	pl.Occurrences = append(pl.Occurrences, []Occurrence{occ})
}

// DocFreq is the number of distinct documents containing the term.
func (pl *PostingList) DocFreq() int { return len(pl.DocIDs) }

// Dictionary is the per-term side table (container §6 "dict_table_len")
// recording each term's document frequency and its byte offsets into the
// postings and skip sections. It sits alongside the vocabulary so that
// list_for(term_id) is an O(1) offset lookup followed by a decode.
type Dictionary struct {
	DocFreq        []int
	PostingsOffset []int
	SkipOffset     []int // -1 when the term has no skip list
}

// EncodedPostings holds the three container sections a build produces
// together: the concatenated per-term posting streams, the concatenated
// skip tables, and the dictionary describing how to find both.
type EncodedPostings struct {
	Postings []byte
	Skips    []byte
	Dict     *Dictionary
}

// blockSkipEntry is one level-0 skip pointer: the last doc_id in a
// 128-entry block, and the byte offset (within the term's own doc-id
// delta stream) where that block's encoding, starting with its min/bits
// header, begins.
type blockSkipEntry struct {
	lastDocID  int
	byteOffset int
}

// EncodeAll serializes every term's posting list into the postings and
// skip sections, in term-id order, and returns the accompanying
// dictionary (spec §4.6, §6).
func EncodeAll(lists []*PostingList) *EncodedPostings {
	dict := &Dictionary{
		DocFreq:        make([]int, len(lists)),
		PostingsOffset: make([]int, len(lists)),
		SkipOffset:     make([]int, len(lists)),
	}

	var postingsBuf, skipBuf []byte
	for id, pl := range lists {
		dict.DocFreq[id] = pl.DocFreq()
		dict.PostingsOffset[id] = len(postingsBuf)

		deltas := deltaEncode(pl.DocIDs)
		blockStart := len(postingsBuf)
		var blockOffsets []blockSkipEntry
		postingsBuf, blockOffsets = encodeBlockPFORWithOffsets(postingsBuf, deltas)

		freqPerDoc := make([]uint64, len(pl.Occurrences))
		var positions, sectionIdx, fieldTypes, fieldLens []uint64
		for i, occs := range pl.Occurrences {
			freqPerDoc[i] = uint64(len(occs))
			prevPos := 0
			for _, o := range occs {
				positions = append(positions, uint64(o.Position-prevPos))
				prevPos = o.Position
				sectionIdx = append(sectionIdx, uint64(o.SectionIdx))
				fieldTypes = append(fieldTypes, uint64(o.FieldType))
				fieldLens = append(fieldLens, uint64(o.FieldLen))
			}
		}
		postingsBuf = encodeBlockPFOR(postingsBuf, freqPerDoc)
		postingsBuf = encodeBlockPFOR(postingsBuf, positions)
		postingsBuf = encodeBlockPFOR(postingsBuf, sectionIdx)
		postingsBuf = encodeBlockPFOR(postingsBuf, fieldTypes)
		postingsBuf = encodeBlockPFOR(postingsBuf, fieldLens)

		if pl.DocFreq() > skipThreshold {
			dict.SkipOffset[id] = len(skipBuf)
			skipBuf = encodeSkipTable(skipBuf, blockOffsetsRelativeTo(blockStart, blockOffsets))
		} else {
			dict.SkipOffset[id] = -1
		}
	}

	return &EncodedPostings{Postings: postingsBuf, Skips: skipBuf, Dict: dict}
}

func blockOffsetsRelativeTo(base int, offsets []blockSkipEntry) []blockSkipEntry {
	out := make([]blockSkipEntry, len(offsets))
	for i, e := range offsets {
		out[i] = blockSkipEntry{lastDocID: e.lastDocID, byteOffset: e.byteOffset - base}
	}
	return out
}

// encodeBlockPFORWithOffsets is encodeBlockPFOR instrumented to also record,
// for every full 128-element block, the last (post-delta-sum) doc_id in
// that block and the byte offset within buf where the block begins.
func encodeBlockPFORWithOffsets(buf []byte, deltas []uint64) ([]byte, []blockSkipEntry) {
	var entries []blockSkipEntry
	cur := 0
	i := 0
	for i+blockSize <= len(deltas) {
		blockStart := len(buf)
		block := deltas[i : i+blockSize]
		buf = encodeFullBlock(buf, block)
		for _, d := range block {
			cur += int(d)
		}
		entries = append(entries, blockSkipEntry{lastDocID: cur, byteOffset: blockStart})
		i += blockSize
	}
	tail := deltas[i:]
	buf = putUvarint(buf, uint64(len(tail)))
	for _, v := range tail {
		buf = putUvarint(buf, v)
	}
	return buf, entries
}

// encodeSkipTable writes the two-level skip structure for one term: a
// level-0 entry per full block, and a level-1 entry every skipStride
// level-0 entries (spec §4.6).
func encodeSkipTable(buf []byte, level0 []blockSkipEntry) []byte {
	buf = putUvarint(buf, uint64(len(level0)))
	for _, e := range level0 {
		buf = putUvarint(buf, uint64(e.lastDocID))
		buf = putUvarint(buf, uint64(e.byteOffset))
	}
	numLevel1 := (len(level0) + skipStride - 1) / skipStride
	buf = putUvarint(buf, uint64(numLevel1))
	for i := 0; i < numLevel1; i++ {
		idx := i * skipStride
		last := level0[idx]
		buf = putUvarint(buf, uint64(last.lastDocID))
		buf = putUvarint(buf, uint64(idx))
	}
	return buf
}

// Decode reconstructs one term's full PostingList from the postings
// section, given its dictionary entry.
func Decode(postingsSection []byte, docFreq, offset int) (*PostingList, error) {
	i := offset
	deltas, i, err := decodeBlockPFOR(postingsSection, i, docFreq)
	if err != nil {
		return nil, fmt.Errorf("postings: decode doc ids: %w", err)
	}
	docIDs := deltaDecode(deltas)

	freqPerDoc, i, err := decodeBlockPFOR(postingsSection, i, docFreq)
	if err != nil {
		return nil, fmt.Errorf("postings: decode freq-per-doc: %w", err)
	}
	total := 0
	for _, f := range freqPerDoc {
		total += int(f)
	}

	posDeltas, i, err := decodeBlockPFOR(postingsSection, i, total)
	if err != nil {
		return nil, fmt.Errorf("postings: decode positions: %w", err)
	}
	sectionIdx, i, err := decodeBlockPFOR(postingsSection, i, total)
	if err != nil {
		return nil, fmt.Errorf("postings: decode section idx: %w", err)
	}
	fieldTypes, i, err := decodeBlockPFOR(postingsSection, i, total)
	if err != nil {
		return nil, fmt.Errorf("postings: decode field types: %w", err)
	}
	fieldLens, _, err := decodeBlockPFOR(postingsSection, i, total)
	if err != nil {
		return nil, fmt.Errorf("postings: decode field lens: %w", err)
	}

	pl := &PostingList{DocIDs: docIDs, Occurrences: make([][]Occurrence, docFreq)}
	cursor := 0
	for d := 0; d < docFreq; d++ {
		n := int(freqPerDoc[d])
		occs := make([]Occurrence, n)
		prevPos := 0
		for k := 0; k < n; k++ {
			prevPos += int(posDeltas[cursor])
			occs[k] = Occurrence{
				Position:   prevPos,
				SectionIdx: int(sectionIdx[cursor]),
				FieldType:  docmodel.FieldType(fieldTypes[cursor]),
				FieldLen:   int(fieldLens[cursor]),
			}
			cursor++
		}
		pl.Occurrences[d] = occs
	}
	return pl, nil
}

// Cursor walks a PostingList's distinct doc_ids in ascending order, the
// primitive that Tier 1's AND-intersection and set-based Tier 2/3
// expansion are built on (spec §5 "PostingCursor").
type Cursor struct {
	pl  *PostingList
	pos int
}

func NewCursor(pl *PostingList) *Cursor { return &Cursor{pl: pl, pos: 0} }

func (c *Cursor) Valid() bool { return c.pos < len(c.pl.DocIDs) }

func (c *Cursor) DocID() int { return c.pl.DocIDs[c.pos] }

func (c *Cursor) Occurrences() []Occurrence { return c.pl.Occurrences[c.pos] }

func (c *Cursor) Next() { c.pos++ }

// Advance moves the cursor to the first doc_id >= target using galloping
// search, falling back to linear steps near the target (spec §4.6/§5
// "gallop/leap intersection for long lists").
func (c *Cursor) Advance(target int) {
	if !c.Valid() || c.DocID() >= target {
		return
	}
	step := 1
	lo := c.pos
	for {
		probe := lo + step
		if probe >= len(c.pl.DocIDs) || c.pl.DocIDs[probe] >= target {
			hi := probe
			if hi > len(c.pl.DocIDs) {
				hi = len(c.pl.DocIDs)
			}
			c.pos = lowerBound(c.pl.DocIDs, lo, hi, target)
			return
		}
		lo = probe
		step *= 2
	}
}

func lowerBound(docIDs []int, lo, hi, target int) int {
	for lo < hi {
		mid := (lo + hi) / 2
		if docIDs[mid] < target {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// IntersectDocIDs returns the doc_ids present in every list, using the
// shortest list to drive galloping probes into the rest (spec §5: "gallop
// or leapfrog intersection for long posting lists, straight merge for
// short ones").
func IntersectDocIDs(lists []*PostingList) []int {
	if len(lists) == 0 {
		return nil
	}
	for _, pl := range lists {
		if pl.DocFreq() == 0 {
			return nil
		}
	}

	shortest := 0
	for i, pl := range lists {
		if pl.DocFreq() < lists[shortest].DocFreq() {
			shortest = i
		}
	}

	cursors := make([]*Cursor, len(lists))
	for i, pl := range lists {
		cursors[i] = NewCursor(pl)
	}

	var out []int
	driver := cursors[shortest]
candidate:
	for driver.Valid() {
		target := driver.DocID()
		for i, c := range cursors {
			if i == shortest {
				continue
			}
			c.Advance(target)
			if !c.Valid() {
				break candidate
			}
			if c.DocID() != target {
				driver.Advance(c.DocID())
				continue candidate
			}
		}
		out = append(out, target)
		driver.Next()
	}
	return out
}

var errEmptyDictionary = errors.New("postings: dictionary has no entry for term")

// ListFor decodes term_id's posting list from a decoded Dictionary and
// postings section.
func ListFor(dict *Dictionary, postingsSection []byte, termID int) (*PostingList, error) {
	if termID < 0 || termID >= len(dict.DocFreq) {
		return nil, errEmptyDictionary
	}
	return Decode(postingsSection, dict.DocFreq[termID], dict.PostingsOffset[termID])
}
