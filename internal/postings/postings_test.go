package postings

import (
	"testing"

	"github.com/harryzorus/sorex-sub000/internal/docmodel"
)

func TestBlockPFORRoundTrip(t *testing.T) {
	values := make([]uint64, 300)
	for i := range values {
		values[i] = uint64(i * 3)
	}
	buf := encodeBlockPFOR(nil, values)
	got, n, err := decodeBlockPFOR(buf, 0, len(values))
	if err != nil {
		t.Fatal(err)
	}
	if n != len(buf) {
		t.Errorf("consumed %d bytes, want %d", n, len(buf))
	}
	for i := range values {
		if got[i] != values[i] {
			t.Fatalf("value %d: got %d, want %d", i, got[i], values[i])
		}
	}
}

func TestBlockPFORAllZeroBlock(t *testing.T) {
	values := make([]uint64, 128)
	buf := encodeBlockPFOR(nil, values)
	got, _, err := decodeBlockPFOR(buf, 0, len(values))
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range got {
		if v != 0 {
			t.Fatalf("value %d: got %d, want 0", i, v)
		}
	}
}

func TestBlockPFORShortTailOnly(t *testing.T) {
	values := []uint64{5, 12, 12, 900}
	buf := encodeBlockPFOR(nil, values)
	got, _, err := decodeBlockPFOR(buf, 0, len(values))
	if err != nil {
		t.Fatal(err)
	}
	for i := range values {
		if got[i] != values[i] {
			t.Fatalf("value %d: got %d, want %d", i, got[i], values[i])
		}
	}
}

func buildList(docIDs []int) *PostingList {
	pl := NewPostingList()
	for _, d := range docIDs {
		pl.AddOccurrence(d, Occurrence{FieldType: docmodel.FieldContent, Position: 0, FieldLen: 1})
		pl.AddOccurrence(d, Occurrence{FieldType: docmodel.FieldTitle, Position: 1, FieldLen: 5})
	}
	return pl
}

func TestEncodeDecodePreservesFieldLen(t *testing.T) {
	pl := NewPostingList()
	pl.AddOccurrence(1, Occurrence{FieldType: docmodel.FieldContent, Position: 5, FieldLen: 1000})
	enc := EncodeAll([]*PostingList{pl})

	got, err := ListFor(enc.Dict, enc.Postings, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Occurrences[0]) != 1 || got.Occurrences[0][0].FieldLen != 1000 {
		t.Fatalf("got %+v, want FieldLen 1000", got.Occurrences[0])
	}
}

func TestEncodeDecodePostingList(t *testing.T) {
	pl := buildList([]int{1, 4, 9, 20, 21})
	enc := EncodeAll([]*PostingList{pl})

	got, err := ListFor(enc.Dict, enc.Postings, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.DocIDs) != len(pl.DocIDs) {
		t.Fatalf("got %d docs, want %d", len(got.DocIDs), len(pl.DocIDs))
	}
	for i := range pl.DocIDs {
		if got.DocIDs[i] != pl.DocIDs[i] {
			t.Errorf("doc %d: got %d, want %d", i, got.DocIDs[i], pl.DocIDs[i])
		}
		if len(got.Occurrences[i]) != 2 || got.Occurrences[i][1].Position != 1 {
			t.Errorf("doc %d occurrences mismatch: %+v", i, got.Occurrences[i])
		}
	}
}

func TestEncodeDecodeWithSkipList(t *testing.T) {
	docIDs := make([]int, 2000)
	for i := range docIDs {
		docIDs[i] = i * 2
	}
	pl := buildList(docIDs)
	enc := EncodeAll([]*PostingList{pl})

	if enc.Dict.SkipOffset[0] < 0 {
		t.Fatal("expected a skip list for a long posting list")
	}

	got, err := ListFor(enc.Dict, enc.Postings, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.DocIDs) != len(docIDs) {
		t.Fatalf("got %d docs, want %d", len(got.DocIDs), len(docIDs))
	}
	if got.DocIDs[1999] != docIDs[1999] {
		t.Errorf("last doc id: got %d, want %d", got.DocIDs[1999], docIDs[1999])
	}
}

func TestIntersectDocIDs(t *testing.T) {
	a := buildList([]int{1, 2, 3, 4, 5, 10, 20})
	b := buildList([]int{2, 4, 5, 20, 30})
	c := buildList([]int{2, 5, 6, 20})

	got := IntersectDocIDs([]*PostingList{a, b, c})
	want := []int{2, 5, 20}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestIntersectDocIDsEmptyWhenOneListEmpty(t *testing.T) {
	a := buildList([]int{1, 2, 3})
	b := NewPostingList()
	got := IntersectDocIDs([]*PostingList{a, b})
	if len(got) != 0 {
		t.Fatalf("expected empty intersection, got %v", got)
	}
}

func TestCursorAdvance(t *testing.T) {
	pl := buildList([]int{1, 3, 5, 7, 9, 11})
	c := NewCursor(pl)
	c.Advance(7)
	if c.DocID() != 7 {
		t.Fatalf("got %d, want 7", c.DocID())
	}
	c.Advance(100)
	if c.Valid() {
		t.Fatal("expected cursor exhausted past the end of the list")
	}
}
