package loader

import (
	"bytes"
	"errors"
	"testing"

	"github.com/harryzorus/sorex-sub000/internal/container"
	"github.com/harryzorus/sorex-sub000/internal/docmodel"
	"github.com/harryzorus/sorex-sub000/internal/fuzzy"
	"github.com/harryzorus/sorex-sub000/internal/postings"
	"github.com/harryzorus/sorex-sub000/internal/sufarray"
	"github.com/harryzorus/sorex-sub000/internal/vocab"
)

func buildSampleArtifact(t *testing.T) []byte {
	t.Helper()

	v := vocab.FromSorted([]string{"alpha", "beta"})
	var vocabBuf bytes.Buffer
	if err := v.Encode(&vocabBuf); err != nil {
		t.Fatal(err)
	}

	sa := sufarray.Build(v)
	saBuf := sufarray.Encode(sa, nil)

	pl0 := postings.NewPostingList()
	pl0.AddOccurrence(0, postings.Occurrence{Position: 0})
	pl1 := postings.NewPostingList()
	pl1.AddOccurrence(1, postings.Occurrence{Position: 0})
	enc := postings.EncodeAll([]*postings.PostingList{pl0, pl1})

	dictBuf := EncodeDictionary(enc.Dict)

	art := &container.Artifact{
		Header: container.Header{
			Version:   container.LayoutLegacy,
			DocCount:  2,
			TermCount: 2,
		},
		Sections: container.Sections{
			Vocab:     vocabBuf.Bytes(),
			SA:        saBuf,
			Postings:  enc.Postings,
			DictTable: dictBuf,
		},
	}
	var out bytes.Buffer
	if err := container.Write(&out, art); err != nil {
		t.Fatal(err)
	}
	return out.Bytes()
}

func TestLoadRoundTrip(t *testing.T) {
	data := buildSampleArtifact(t)
	idx, err := Load(data)
	if err != nil {
		t.Fatal(err)
	}
	if idx.DocCount != 2 {
		t.Errorf("DocCount = %d, want 2", idx.DocCount)
	}
	if idx.Vocab.Len() != 2 {
		t.Errorf("vocab len = %d, want 2", idx.Vocab.Len())
	}

	pl, err := postings.ListFor(idx.Dict, idx.Postings, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(pl.DocIDs) != 1 || pl.DocIDs[0] != 0 {
		t.Errorf("term 0 posting list = %+v", pl.DocIDs)
	}
}

func TestLoadRejectsBadMagic(t *testing.T) {
	data := buildSampleArtifact(t)
	data[0] = 'Z'
	_, err := Load(data)
	if err == nil {
		t.Fatal("expected an error for a corrupted magic prefix")
	}
	var loadErr *Error
	if !errors.As(err, &loadErr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if loadErr.Kind != ErrKindInvalidMagic {
		t.Errorf("Kind = %v, want ErrKindInvalidMagic", loadErr.Kind)
	}
}

func TestLoadDecodesSectionTableAndDocMetadata(t *testing.T) {
	sections := docmodel.BuildSectionTable([]*docmodel.Document{
		{ID: 0, FieldBoundaries: []docmodel.FieldBoundary{{Start: 0, End: 1, SectionID: "intro"}}},
	})
	docsBuf, err := docmodel.EncodeDocMetas([]*docmodel.Document{
		{ID: 0, Title: "Doc Zero", Href: "/zero"},
		{ID: 1, Title: "Doc One", Href: "/one"},
	})
	if err != nil {
		t.Fatal(err)
	}

	v := vocab.FromSorted([]string{"alpha"})
	var vocabBuf bytes.Buffer
	if err := v.Encode(&vocabBuf); err != nil {
		t.Fatal(err)
	}
	sa := sufarray.Build(v)
	enc := postings.EncodeAll([]*postings.PostingList{postings.NewPostingList()})

	art := &container.Artifact{
		Header: container.Header{Version: container.LayoutLegacy, DocCount: 2, TermCount: 1},
		Sections: container.Sections{
			Vocab:        vocabBuf.Bytes(),
			SA:           sufarray.Encode(sa, nil),
			Postings:     enc.Postings,
			DictTable:    EncodeDictionary(enc.Dict),
			SectionTable: sections.Encode(),
			Docs:         docsBuf,
		},
	}
	var out bytes.Buffer
	if err := container.Write(&out, art); err != nil {
		t.Fatal(err)
	}

	idx, err := Load(out.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if idx.Sections.At(idx.Sections.IndexOf("intro")) != "intro" {
		t.Error("expected the section table to round trip 'intro'")
	}
	meta, ok := idx.DocMetaFor(1)
	if !ok || meta.Title != "Doc One" || meta.Href != "/one" {
		t.Errorf("DocMetaFor(1) = %+v, %v", meta, ok)
	}
}

func TestLoadDecodesFuzzyDFAOnce(t *testing.T) {
	v := vocab.FromSorted([]string{"alpha"})
	var vocabBuf bytes.Buffer
	if err := v.Encode(&vocabBuf); err != nil {
		t.Fatal(err)
	}
	sa := sufarray.Build(v)
	enc := postings.EncodeAll([]*postings.PostingList{postings.NewPostingList()})
	dfa := fuzzy.Build(fuzzy.DefaultK, fuzzy.DefaultTranspositions)

	art := &container.Artifact{
		Header: container.Header{Version: container.LayoutLegacy, DocCount: 1, TermCount: 1},
		Sections: container.Sections{
			Vocab:     vocabBuf.Bytes(),
			SA:        sufarray.Encode(sa, nil),
			Postings:  enc.Postings,
			DictTable: EncodeDictionary(enc.Dict),
			LevDFA:    dfa.Encode(),
		},
	}
	var out bytes.Buffer
	if err := container.Write(&out, art); err != nil {
		t.Fatal(err)
	}

	idx, err := Load(out.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if idx.DFA == nil {
		t.Fatal("expected a decoded DFA")
	}
	dist, ok := idx.DFA.Matches("alpha", "alphx")
	if !ok || dist != 1 {
		t.Errorf("decoded DFA Matches(alpha, alphx) = (%d, %v), want (1, true)", dist, ok)
	}
}

func TestRuntimeCacheRoundTrip(t *testing.T) {
	wasm := []byte("fake-runtime-bytes")
	StoreRuntime(wasm, "instance-a")
	got, ok := CachedRuntime(wasm)
	if !ok || got != "instance-a" {
		t.Errorf("CachedRuntime = (%v, %v), want (instance-a, true)", got, ok)
	}
}
