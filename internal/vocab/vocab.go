// Package vocab implements C2: the sorted, deduplicated term vocabulary.
// Build-time shards are merged through a vellum FST so that the
// memory-heavy sort-and-dedup step never holds more than one shard's terms
// at a time; the artifact's on-disk representation stays a plain
// length-prefixed UTF-8 layout (§4.2), never vellum's own FST format.
package vocab

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/blevesearch/vellum"
)

// Vocabulary is the immutable, sorted term set built in one pass (spec §4.2).
type Vocabulary struct {
	terms []string // index == TermId
}

// Len returns the number of distinct terms.
func (v *Vocabulary) Len() int { return len(v.terms) }

// TermOf returns the term at the given TermId in O(1).
func (v *Vocabulary) TermOf(id int) string {
	return v.terms[id]
}

// Lookup returns the TermId for term, or (-1, false) if absent, in O(log V).
func (v *Vocabulary) Lookup(term string) (int, bool) {
	i := sort.SearchStrings(v.terms, term)
	if i < len(v.terms) && v.terms[i] == term {
		return i, true
	}
	return -1, false
}

// Terms returns the underlying sorted term slice. Callers must not mutate it.
func (v *Vocabulary) Terms() []string { return v.terms }

// FromSorted builds a Vocabulary directly from an already-sorted,
// already-deduplicated term slice (used by tests and by the shard merge
// below).
func FromSorted(terms []string) *Vocabulary {
	return &Vocabulary{terms: terms}
}

// Shard is one build worker's locally sorted, deduplicated set of terms,
// backed by a vellum FST for compact merge-time iteration (spec §5: "each
// worker produces private shards... merged in an explicit reduce step").
type Shard struct {
	fstData []byte
}

// BuildShard sorts and deduplicates the terms a single worker collected
// from its slice of documents, and encodes them as a vellum FST.
func BuildShard(terms []string) (*Shard, error) {
	sorted := append([]string(nil), terms...)
	sort.Strings(sorted)
	sorted = dedupSorted(sorted)

	var buf bytes.Buffer
	builder, err := vellum.New(&buf, nil)
	if err != nil {
		return nil, fmt.Errorf("vocab: new shard builder: %w", err)
	}
	for i, t := range sorted {
		if err := builder.Insert([]byte(t), uint64(i)); err != nil {
			return nil, fmt.Errorf("vocab: insert %q: %w", t, err)
		}
	}
	if err := builder.Close(); err != nil {
		return nil, fmt.Errorf("vocab: close shard builder: %w", err)
	}
	return &Shard{fstData: buf.Bytes()}, nil
}

func dedupSorted(sorted []string) []string {
	if len(sorted) == 0 {
		return sorted
	}
	out := sorted[:1]
	for _, t := range sorted[1:] {
		if t != out[len(out)-1] {
			out = append(out, t)
		}
	}
	return out
}

// shardCursor walks one shard's FST in sorted order.
type shardCursor struct {
	it  *vellum.FSTIterator
	fst *vellum.FST
	key string
	ok  bool
}

func newShardCursor(s *Shard) (*shardCursor, error) {
	fst, err := vellum.Load(s.fstData)
	if err != nil {
		return nil, fmt.Errorf("vocab: load shard fst: %w", err)
	}
	it, err := fst.Iterator(nil, nil)
	if err != nil && !errors.Is(err, vellum.ErrIteratorDone) {
		return nil, fmt.Errorf("vocab: shard iterator: %w", err)
	}
	c := &shardCursor{it: it, fst: fst}
	c.advance(err)
	return c, nil
}

func (c *shardCursor) advance(lastErr error) {
	if errors.Is(lastErr, vellum.ErrIteratorDone) || c.it == nil {
		c.ok = false
		return
	}
	k, _ := c.it.Current()
	c.key = string(k)
	c.ok = true
}

func (c *shardCursor) next() {
	err := c.it.Next()
	c.advance(err)
}

// Merge performs a k-way merge of build-worker shards into the single
// global sorted, deduplicated Vocabulary. TermIds are assigned in merge
// (i.e. lexicographic) order.
func Merge(shards []*Shard) (*Vocabulary, error) {
	cursors := make([]*shardCursor, 0, len(shards))
	for _, s := range shards {
		c, err := newShardCursor(s)
		if err != nil {
			return nil, err
		}
		if c.ok {
			cursors = append(cursors, c)
		}
	}

	var terms []string
	for len(cursors) > 0 {
		minIdx := 0
		for i := 1; i < len(cursors); i++ {
			if cursors[i].key < cursors[minIdx].key {
				minIdx = i
			}
		}
		minKey := cursors[minIdx].key
		if len(terms) == 0 || terms[len(terms)-1] != minKey {
			terms = append(terms, minKey)
		}

		// Advance every cursor currently positioned on minKey so duplicate
		// terms across shards collapse into a single global entry.
		for i := 0; i < len(cursors); {
			if cursors[i].key == minKey {
				cursors[i].next()
				if !cursors[i].ok {
					cursors = append(cursors[:i], cursors[i+1:]...)
					continue
				}
			}
			i++
		}
	}

	return &Vocabulary{terms: terms}, nil
}

// Encode serializes the vocabulary as length-prefixed UTF-8 in sorted
// order: varint(len(term)) || term, repeated (spec §4.2/§6).
func (v *Vocabulary) Encode(w io.Writer) error {
	var lenBuf [binary.MaxVarintLen64]byte
	for _, t := range v.terms {
		n := binary.PutUvarint(lenBuf[:], uint64(len(t)))
		if _, err := w.Write(lenBuf[:n]); err != nil {
			return fmt.Errorf("vocab: write length: %w", err)
		}
		if _, err := io.WriteString(w, t); err != nil {
			return fmt.Errorf("vocab: write term: %w", err)
		}
	}
	return nil
}

// Decode reads a vocabulary previously written by Encode.
func Decode(data []byte) (*Vocabulary, error) {
	var terms []string
	i := 0
	for i < len(data) {
		l, n := binary.Uvarint(data[i:])
		if n <= 0 {
			return nil, errors.New("vocab: malformed length varint")
		}
		i += n
		if i+int(l) > len(data) {
			return nil, errors.New("vocab: truncated term")
		}
		terms = append(terms, string(data[i:i+int(l)]))
		i += int(l)
	}
	return &Vocabulary{terms: terms}, nil
}
