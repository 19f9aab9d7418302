package buildpipeline

import (
	"context"
	"testing"

	"github.com/harryzorus/sorex-sub000/internal/container"
	"github.com/harryzorus/sorex-sub000/internal/docmodel"
	"github.com/harryzorus/sorex-sub000/internal/loader"
	"github.com/harryzorus/sorex-sub000/internal/search"
	"github.com/harryzorus/sorex-sub000/internal/stopwords"
)

func sampleDocs() []*docmodel.Document {
	return []*docmodel.Document{
		{
			ID:    0,
			Title: "Authentication Guide",
			Href:  "/docs/auth",
			Text:  "Authentication Guide\nLearn how authentication works in this system.",
			FieldBoundaries: []docmodel.FieldBoundary{
				{Start: 0, End: 20, FieldType: docmodel.FieldTitle, SectionID: "auth-guide"},
			},
		},
		{
			ID:    1,
			Title: "Authorization Overview",
			Href:  "/docs/authz",
			Text:  "Authorization Overview\nAuthorization builds on authentication concepts.",
			FieldBoundaries: []docmodel.FieldBoundary{
				{Start: 0, End: 22, FieldType: docmodel.FieldTitle},
			},
		},
	}
}

func TestBuildProducesLoadableArtifact(t *testing.T) {
	data, err := Build(sampleDocs(), stopwords.Empty(), Options{Layout: container.LayoutLegacy})
	if err != nil {
		t.Fatal(err)
	}

	idx, err := loader.Load(data)
	if err != nil {
		t.Fatal(err)
	}
	if idx.DocCount != 2 {
		t.Errorf("DocCount = %d, want 2", idx.DocCount)
	}
	if idx.Vocab.Len() == 0 {
		t.Error("expected a non-empty vocabulary")
	}

	s := search.NewSearcher(idx)
	sess := s.Search(search.ParseQuery("authentication"), 10)
	results, _ := sess.Next(context.Background())
	if len(results) != 2 {
		t.Fatalf("expected both docs to match 'authentication', got %v", results)
	}
	for _, r := range results {
		if r.DocID == 0 {
			if r.Title != "Authentication Guide" || r.Href != "/docs/auth" {
				t.Errorf("doc 0 metadata not enriched: %+v", r)
			}
			if r.SectionID != "auth-guide" {
				t.Errorf("doc 0 section id = %q, want auth-guide", r.SectionID)
			}
		}
	}
}

func TestBuildRejectsInvalidDocument(t *testing.T) {
	docs := []*docmodel.Document{
		{
			ID:   0,
			Text: "bad doc",
			FieldBoundaries: []docmodel.FieldBoundary{
				{Start: 5, End: 2, FieldType: docmodel.FieldTitle},
			},
		},
	}
	_, err := Build(docs, stopwords.Empty(), Options{})
	if err == nil {
		t.Fatal("expected an error for a document with start >= end")
	}
}

func TestBuildStrictModeCatchesNothingOnValidInput(t *testing.T) {
	_, err := Build(sampleDocs(), stopwords.Empty(), Options{Strict: true})
	if err != nil {
		t.Fatalf("expected strict verification to pass on well-formed input, got %v", err)
	}
}

func TestBuildStreamingLayoutRoundTrips(t *testing.T) {
	data, err := Build(sampleDocs(), stopwords.Empty(), Options{Layout: container.LayoutStreaming})
	if err != nil {
		t.Fatal(err)
	}
	idx, err := loader.Load(data)
	if err != nil {
		t.Fatal(err)
	}
	if idx.Vocab.Len() == 0 {
		t.Error("expected a non-empty vocabulary after streaming-layout round trip")
	}
}
