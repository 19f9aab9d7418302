package sufarray

import (
	"sort"
	"testing"

	"github.com/harryzorus/sorex-sub000/internal/vocab"
)

func TestPrefixRangeFindsAllMatches(t *testing.T) {
	v := vocab.FromSorted([]string{"cat", "catalog", "dog", "category"})
	sa := Build(v)

	got := sa.TermsWithPrefix("cat")
	want := []int{0, 1, 3}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestPrefixRangeNoMatches(t *testing.T) {
	v := vocab.FromSorted([]string{"alpha", "beta"})
	sa := Build(v)
	got := sa.TermsWithPrefix("zzz")
	if len(got) != 0 {
		t.Errorf("expected no matches, got %v", got)
	}
}

func TestSubstringViaSuffixes(t *testing.T) {
	// "tion" occurs as a suffix of "authentication" starting mid-term; the
	// suffix array must find it via a non-zero CharOffset entry.
	v := vocab.FromSorted([]string{"authentication", "nation"})
	sa := Build(v)

	got := sa.TermsWithPrefix("tion")
	foundAuth, foundNation := false, false
	for _, id := range got {
		if v.TermOf(id) == "authentication" {
			foundAuth = true
		}
		if v.TermOf(id) == "nation" {
			foundNation = true
		}
	}
	if !foundAuth || !foundNation {
		t.Errorf("expected both terms matched via mid-term suffix, got %v", got)
	}
}

func TestEntriesSortedByTieBreak(t *testing.T) {
	v := vocab.FromSorted([]string{"aa", "aaa"})
	sa := Build(v)
	entries := sa.Entries()
	if !sort.SliceIsSorted(entries, func(i, j int) bool { return sa.less(entries[i], entries[j]) }) {
		t.Error("entries not sorted under the array's own comparator")
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	v := vocab.FromSorted([]string{"cat", "catalog", "dog"})
	sa := Build(v)
	buf := Encode(sa, nil)

	got, err := Decode(buf, v)
	if err != nil {
		t.Fatal(err)
	}
	if got.Len() != sa.Len() {
		t.Fatalf("got %d entries, want %d", got.Len(), sa.Len())
	}
	for i, e := range sa.Entries() {
		ge := got.Entries()[i]
		if ge != e {
			t.Errorf("entry %d: got %+v, want %+v", i, ge, e)
		}
	}
}
