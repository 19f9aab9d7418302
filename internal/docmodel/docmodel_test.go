package docmodel

import "testing"

func TestValidateRejectsOverlappingBoundaries(t *testing.T) {
	d := &Document{
		ID: 1,
		FieldBoundaries: []FieldBoundary{
			{Start: 0, End: 10, FieldType: FieldTitle},
			{Start: 5, End: 15, FieldType: FieldContent},
		},
	}
	if err := d.Validate(); err == nil {
		t.Fatal("expected an overlap error")
	}
}

func TestValidateRejectsStartGreaterThanEnd(t *testing.T) {
	d := &Document{ID: 1, FieldBoundaries: []FieldBoundary{{Start: 10, End: 5}}}
	if err := d.Validate(); err == nil {
		t.Fatal("expected a start>=end error")
	}
}

func TestValidateRejectsBadSectionID(t *testing.T) {
	d := &Document{ID: 1, FieldBoundaries: []FieldBoundary{{Start: 0, End: 5, SectionID: "bad id!"}}}
	if err := d.Validate(); err == nil {
		t.Fatal("expected an invalid section id error")
	}
}

func TestValidateAcceptsAdjacentNonOverlapping(t *testing.T) {
	d := &Document{
		ID: 1,
		FieldBoundaries: []FieldBoundary{
			{Start: 0, End: 10, FieldType: FieldTitle},
			{Start: 10, End: 20, FieldType: FieldContent},
		},
	}
	if err := d.Validate(); err != nil {
		t.Fatalf("expected adjacent boundaries to be valid, got %v", err)
	}
}

func sampleDocs() []*Document {
	return []*Document{
		{ID: 0, FieldBoundaries: []FieldBoundary{{Start: 0, End: 5, SectionID: "intro"}}},
		{ID: 1, FieldBoundaries: []FieldBoundary{{Start: 0, End: 5, SectionID: "setup"}}},
		{ID: 2, FieldBoundaries: []FieldBoundary{{Start: 0, End: 5}}},
	}
}

func TestBuildSectionTableDedupesAndSortsDeterministically(t *testing.T) {
	table := BuildSectionTable(sampleDocs())
	if table.At(0) != "" {
		t.Errorf("index 0 = %q, want empty (none)", table.At(0))
	}
	if got := table.IndexOf("intro"); table.At(got) != "intro" {
		t.Errorf("round trip for intro failed: idx=%d", got)
	}
	if got := table.IndexOf("setup"); table.At(got) != "setup" {
		t.Errorf("round trip for setup failed: idx=%d", got)
	}
	if table.IndexOf("missing") != 0 {
		t.Error("unknown section id should map to 0 (none)")
	}
	if table.IndexOf("") != 0 {
		t.Error("empty section id should map to 0 (none)")
	}
}

func TestSectionTableEncodeDecodeRoundTrip(t *testing.T) {
	table := BuildSectionTable(sampleDocs())
	decoded, err := DecodeSectionTable(table.Encode())
	if err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"intro", "setup"} {
		want := table.IndexOf(id)
		got := decoded.IndexOf(id)
		if want != got {
			t.Errorf("index of %q: got %d, want %d", id, got, want)
		}
		if decoded.At(got) != id {
			t.Errorf("At(%d) = %q, want %q", got, decoded.At(got), id)
		}
	}
}

func TestDecodeSectionTableEmptyData(t *testing.T) {
	table, err := DecodeSectionTable(nil)
	if err != nil {
		t.Fatal(err)
	}
	if table.At(0) != "" {
		t.Errorf("At(0) = %q, want empty", table.At(0))
	}
}

func TestDocMetaEncodeDecodeRoundTrip(t *testing.T) {
	docs := []*Document{
		{ID: 0, Slug: "intro-guide", Title: "Intro Guide", Excerpt: "An introduction.", Href: "/docs/intro", Type: "guide"},
		{ID: 1, Slug: "api-ref", Title: "API Reference", Excerpt: "All the endpoints.", Href: "/docs/api", Type: "reference"},
	}
	data, err := EncodeDocMetas(docs)
	if err != nil {
		t.Fatal(err)
	}
	metas, err := DecodeDocMetas(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(metas) != 2 {
		t.Fatalf("got %d metas, want 2", len(metas))
	}
	if metas[0].Title != "Intro Guide" || metas[1].Href != "/docs/api" {
		t.Errorf("unexpected metas: %+v", metas)
	}
}

func TestIndexDefMatches(t *testing.T) {
	doc := &Document{Category: "blog", Type: "post"}
	all := IndexDef{Name: "all", Include: "*"}
	if !all.Matches(doc) {
		t.Error("'*' should match everything")
	}
	byCategory := IndexDef{Name: "blog-only", Include: "blog"}
	if !byCategory.Matches(doc) {
		t.Error("expected category match")
	}
	other := IndexDef{Name: "docs-only", Include: "docs"}
	if other.Matches(doc) {
		t.Error("unexpected match for an unrelated include filter")
	}
}
