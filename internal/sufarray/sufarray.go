// Package sufarray implements C4: the Vocabulary Suffix Array, supporting
// prefix and substring lookups against the sorted term vocabulary in
// O(|P| log S) (spec §4.4).
package sufarray

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/harryzorus/sorex-sub000/internal/vocab"
)

// Entry is one suffix of one vocabulary term: (term_idx, char_offset) names
// the suffix vocabulary[term_idx][char_offset:] (spec §4.4).
type Entry struct {
	TermIdx    int
	CharOffset int
}

// SuffixArray is the full set of (term_idx, char_offset) entries, sorted
// lexicographically by the suffix they denote, ties broken by ascending
// term_idx then ascending char_offset (spec §4.4).
type SuffixArray struct {
	v       *vocab.Vocabulary
	entries []Entry
}

// Build constructs the suffix array over every suffix of every term in v.
// Construction is O(total_chars log total_chars) via sort.Slice, which
// spec §4.4 explicitly allows ("per-term insertion into a sort").
func Build(v *vocab.Vocabulary) *SuffixArray {
	var entries []Entry
	for termIdx := 0; termIdx < v.Len(); termIdx++ {
		term := v.TermOf(termIdx)
		for charOffset := range term {
			entries = append(entries, Entry{TermIdx: termIdx, CharOffset: charOffset})
		}
		// include the offset matching len(term) only when term is empty;
		// non-empty terms never have a meaningful zero-length suffix entry.
		if term == "" {
			entries = append(entries, Entry{TermIdx: termIdx, CharOffset: 0})
		}
	}

	sa := &SuffixArray{v: v, entries: entries}
	sort.Slice(sa.entries, func(i, j int) bool {
		return sa.less(sa.entries[i], sa.entries[j])
	})
	return sa
}

func (sa *SuffixArray) suffix(e Entry) string {
	return sa.v.TermOf(e.TermIdx)[e.CharOffset:]
}

func (sa *SuffixArray) less(a, b Entry) bool {
	sa1, sb1 := sa.suffix(a), sa.suffix(b)
	if sa1 != sb1 {
		return sa1 < sb1
	}
	if a.TermIdx != b.TermIdx {
		return a.TermIdx < b.TermIdx
	}
	return a.CharOffset < b.CharOffset
}

// Len returns the number of suffix entries.
func (sa *SuffixArray) Len() int { return len(sa.entries) }

// PrefixRange returns the contiguous [lo, hi) range of entries whose
// suffix starts with prefix, via two binary searches (spec §4.4).
func (sa *SuffixArray) PrefixRange(prefix string) (lo, hi int) {
	lo = sort.Search(len(sa.entries), func(i int) bool {
		return sa.suffix(sa.entries[i]) >= prefix
	})
	hi = sort.Search(len(sa.entries), func(i int) bool {
		return !strings.HasPrefix(sa.suffix(sa.entries[i]), prefix) && sa.suffix(sa.entries[i]) >= prefix
	})
	return lo, hi
}

// TermsWithPrefix returns the distinct term_ids whose term (or one of its
// suffixes, for substring search) starts with prefix.
func (sa *SuffixArray) TermsWithPrefix(prefix string) []int {
	lo, hi := sa.PrefixRange(prefix)
	seen := map[int]bool{}
	var out []int
	for i := lo; i < hi; i++ {
		t := sa.entries[i].TermIdx
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	sort.Ints(out)
	return out
}

// Entries exposes the raw sorted entry slice for encode/verify use.
func (sa *SuffixArray) Entries() []Entry { return sa.entries }

// Encode serializes the suffix array as varint(count) followed, in sorted
// (suffix) order, by term_idx and char_offset each emitted as a signed
// (zigzag) varint delta from the previous entry's corresponding field. No
// frame-of-reference framing or bit-packing is applied.
func Encode(sa *SuffixArray, buf []byte) []byte {
	buf = putUvarint(buf, uint64(len(sa.entries)))
	prevTerm, prevOffset := 0, 0
	for _, e := range sa.entries {
		buf = putVarint(buf, int64(e.TermIdx-prevTerm))
		buf = putVarint(buf, int64(e.CharOffset-prevOffset))
		prevTerm, prevOffset = e.TermIdx, e.CharOffset
	}
	return buf
}

// Decode reconstructs a SuffixArray's entries from bytes written by
// Encode; suffix strings are derived from v on demand.
func Decode(data []byte, v *vocab.Vocabulary) (*SuffixArray, error) {
	i := 0
	count, n := binary.Uvarint(data[i:])
	if n <= 0 {
		return nil, errors.New("sufarray: malformed count varint")
	}
	i += n

	entries := make([]Entry, count)
	prevTerm, prevOffset := int64(0), int64(0)
	for k := uint64(0); k < count; k++ {
		dt, n := binary.Varint(data[i:])
		if n <= 0 {
			return nil, fmt.Errorf("sufarray: malformed term delta at entry %d", k)
		}
		i += n
		doff, n := binary.Varint(data[i:])
		if n <= 0 {
			return nil, fmt.Errorf("sufarray: malformed offset delta at entry %d", k)
		}
		i += n
		prevTerm += dt
		prevOffset += doff
		entries[k] = Entry{TermIdx: int(prevTerm), CharOffset: int(prevOffset)}
	}
	return &SuffixArray{v: v, entries: entries}, nil
}

func putUvarint(buf []byte, v uint64) []byte {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	return append(buf, tmp[:n]...)
}

func putVarint(buf []byte, v int64) []byte {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutVarint(tmp[:], v)
	return append(buf, tmp[:n]...)
}
