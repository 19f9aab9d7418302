package container

import (
	"bytes"
	"testing"
)

func sampleArtifact(version Layout) *Artifact {
	return &Artifact{
		Header: Header{
			Version:   version,
			DocCount:  2,
			TermCount: 3,
		},
		Sections: Sections{
			Vocab:        []byte("vocabblob"),
			SA:           []byte("sablob"),
			Postings:     []byte("postingsblob"),
			SectionTable: []byte("sectiontableblob"),
			DictTable:    []byte("dicttableblob"),
			Wasm:         []byte("fakewasmbytes"),
		},
	}
}

func TestRoundTripLegacyLayout(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, sampleArtifact(LayoutLegacy)); err != nil {
		t.Fatal(err)
	}
	got, err := Read(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if got.Header.Version != LayoutLegacy {
		t.Errorf("version = %d, want legacy", got.Header.Version)
	}
	if string(got.Sections.Vocab) != "vocabblob" {
		t.Errorf("vocab = %q", got.Sections.Vocab)
	}
	if string(got.Sections.Wasm) != "fakewasmbytes" {
		t.Errorf("wasm = %q", got.Sections.Wasm)
	}
}

func TestRoundTripStreamingLayout(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, sampleArtifact(LayoutStreaming)); err != nil {
		t.Fatal(err)
	}
	got, err := Read(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if got.Header.Version != LayoutStreaming {
		t.Errorf("version = %d, want streaming", got.Header.Version)
	}
	if string(got.Sections.Postings) != "postingsblob" {
		t.Errorf("postings = %q", got.Sections.Postings)
	}
}

func TestCompressedRuntimeSection(t *testing.T) {
	a := sampleArtifact(LayoutStreaming)
	a.Header.Flags = FlagRuntimeCompressed
	var buf bytes.Buffer
	if err := Write(&buf, a); err != nil {
		t.Fatal(err)
	}
	got, err := Read(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if string(got.Sections.Wasm) != "fakewasmbytes" {
		t.Errorf("wasm after decompress = %q", got.Sections.Wasm)
	}
}

func TestCorruptedCRCRejected(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, sampleArtifact(LayoutLegacy)); err != nil {
		t.Fatal(err)
	}
	data := buf.Bytes()
	data[10] ^= 0xFF // flip a header byte without updating the footer CRC
	if _, err := Read(data); err != ErrCRCMismatch {
		t.Errorf("got %v, want ErrCRCMismatch", err)
	}
}

func TestBadMagicRejected(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, sampleArtifact(LayoutLegacy)); err != nil {
		t.Fatal(err)
	}
	data := buf.Bytes()
	data[0] = 'X'
	if _, err := Read(data); err != ErrInvalidMagic {
		t.Errorf("got %v, want ErrInvalidMagic", err)
	}
}

func TestUnsupportedVersionRejected(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, sampleArtifact(Layout(99))); err != nil {
		t.Fatal(err)
	}
	data := buf.Bytes()
	if _, err := Read(data); err == nil {
		t.Error("expected an unsupported-version error")
	}
}

func TestStripRuntimeRecomputesCRC(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, sampleArtifact(LayoutStreaming)); err != nil {
		t.Fatal(err)
	}
	stripped, err := StripRuntime(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	got, err := Read(stripped)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Sections.Wasm) != 0 {
		t.Errorf("expected empty runtime section after stripping, got %d bytes", len(got.Sections.Wasm))
	}
}
