package ranker

import (
	"testing"

	"github.com/harryzorus/sorex-sub000/internal/docmodel"
)

func TestTitleOutranksHeadingOutranksContent(t *testing.T) {
	title := score(Match{FieldType: docmodel.FieldTitle, Position: 5, FieldLen: 5, Tier: TierExact})
	heading := score(Match{FieldType: docmodel.FieldHeading, Position: 0, FieldLen: 5, Tier: TierExact})
	content := score(Match{FieldType: docmodel.FieldContent, Position: 0, FieldLen: 5, Tier: TierExact})

	if !(title > heading && heading > content) {
		t.Fatalf("expected title > heading > content, got %.3f, %.3f, %.3f", title, heading, content)
	}
}

func TestPositionBoostDecaysWithPosition(t *testing.T) {
	early := score(Match{FieldType: docmodel.FieldContent, Position: 0, FieldLen: 10, Tier: TierExact})
	late := score(Match{FieldType: docmodel.FieldContent, Position: 9, FieldLen: 10, Tier: TierExact})
	if early <= late {
		t.Fatalf("expected earlier position to score higher: early=%.3f late=%.3f", early, late)
	}
}

func TestTierPenalties(t *testing.T) {
	exact := score(Match{FieldType: docmodel.FieldContent, Position: 0, FieldLen: 1, Tier: TierExact})
	prefix := score(Match{FieldType: docmodel.FieldContent, Position: 0, FieldLen: 1, Tier: TierPrefix})
	fuzzy1 := score(Match{FieldType: docmodel.FieldContent, Position: 0, FieldLen: 1, Tier: TierFuzzy, EditDist: 1})
	fuzzy2 := score(Match{FieldType: docmodel.FieldContent, Position: 0, FieldLen: 1, Tier: TierFuzzy, EditDist: 2})

	if !(exact > prefix && prefix > fuzzy1 && fuzzy1 > fuzzy2) {
		t.Fatalf("expected exact > prefix > fuzzy(1) > fuzzy(2), got %.3f %.3f %.3f %.3f", exact, prefix, fuzzy1, fuzzy2)
	}
}

func TestAllTermsPresentBonus(t *testing.T) {
	oneTerm := Score(1, [][]Match{{{FieldType: docmodel.FieldContent, FieldLen: 1, Tier: TierExact}}}, 2)
	bothTerms := Score(2, [][]Match{
		{{FieldType: docmodel.FieldContent, FieldLen: 1, Tier: TierExact}},
		{{FieldType: docmodel.FieldContent, FieldLen: 1, Tier: TierExact}},
	}, 2)
	if bothTerms.Score <= oneTerm.Score {
		t.Fatalf("expected matching both query terms to score higher: one=%.3f both=%.3f", oneTerm.Score, bothTerms.Score)
	}
}

func TestAllTermsPresentBonusIgnoresUnmatchedPaddingSlots(t *testing.T) {
	// A document whose matches were accumulated out of query-term order can
	// carry nil entries for terms that never matched (search.appendTermMatches
	// grows the slice up to the highest matched term's slot). The bonus must
	// key off how many terms actually matched, not the slice length.
	padded := Score(1, [][]Match{
		nil,
		{{FieldType: docmodel.FieldContent, FieldLen: 1, Tier: TierExact}},
	}, 3)
	unpadded := Score(2, [][]Match{
		{{FieldType: docmodel.FieldContent, FieldLen: 1, Tier: TierExact}},
	}, 3)
	if padded.Score != unpadded.Score {
		t.Fatalf("padding with an unmatched nil slot changed the score: padded=%.3f unpadded=%.3f", padded.Score, unpadded.Score)
	}
}

func TestTopKOrdersDescendingWithDeterministicTiebreak(t *testing.T) {
	candidates := []DocumentScore{
		{DocID: 3, Score: 5},
		{DocID: 1, Score: 5},
		{DocID: 2, Score: 9},
	}
	got := TopK(candidates, 2)
	if len(got) != 2 {
		t.Fatalf("got %d results, want 2", len(got))
	}
	if got[0].DocID != 2 {
		t.Errorf("expected doc 2 first, got %d", got[0].DocID)
	}
	if got[1].DocID != 1 {
		t.Errorf("expected tie broken by ascending DocID, got %d", got[1].DocID)
	}
}

func TestTopKAboveFullSortThresholdUsesHeapPath(t *testing.T) {
	candidates := make([]DocumentScore, fullSortThreshold+50)
	for i := range candidates {
		candidates[i] = DocumentScore{DocID: i, Score: float64(i)}
	}
	got := TopK(candidates, 3)
	if len(got) != 3 {
		t.Fatalf("got %d results, want 3", len(got))
	}
	want := []int{len(candidates) - 1, len(candidates) - 2, len(candidates) - 3}
	for i, w := range want {
		if got[i].DocID != w {
			t.Errorf("result %d: got doc %d, want %d", i, got[i].DocID, w)
		}
	}
}

func TestTopKZero(t *testing.T) {
	if got := TopK([]DocumentScore{{DocID: 1, Score: 1}}, 0); got != nil {
		t.Errorf("expected nil for k=0, got %v", got)
	}
}
