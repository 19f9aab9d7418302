// Package container implements C7: the binary artifact format — header,
// sections, and footer, in either the legacy (runtime-last) or streaming
// (runtime-first) layout, with CRC-32 integrity checking and an optional
// zstd-compressed embedded runtime section (spec §4.7, §6).
package container

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/klauspost/compress/zstd"
)

// Magic bytes opening every artifact, and their reverse closing the
// footer (spec §4.7).
var (
	magic        = [4]byte{'S', 'R', 'X', '1'}
	magicReverse = [4]byte{'1', 'X', 'R', 'S'}
)

// Layout selects the section ordering. Version 1 is legacy (runtime
// section last, for build pipelines that always append a fresh runtime);
// version 2 is streaming (runtime section first, so a host can begin
// instantiating the sandboxed runtime while the rest of the artifact is
// still arriving) — spec §9 redesign flag.
type Layout uint8

const (
	LayoutLegacy    Layout = 1
	LayoutStreaming Layout = 2
)

// Flag bits within the header's one-byte flags field (spec §6: "bit 0:
// has_skip_lists, others reserved").
const (
	FlagHasSkipLists      uint8 = 1 << 0
	FlagRuntimeCompressed uint8 = 1 << 1
)

// Header mirrors spec §6's byte-exact offset table.
type Header struct {
	Version         Layout
	Flags           uint8
	DocCount        uint32
	TermCount       uint32
	VocabLen        uint32
	SALen           uint32
	PostingsLen     uint32
	SkipLen         uint32
	SectionTableLen uint32
	LevDFALen       uint32
	DocsLen         uint32 // source document blob; 0 when the build dropped it
	WasmLen         uint32
	DictTableLen    uint32
	Reserved        uint16
}

// Sections holds the decoded/encoded byte payload of every container
// section, named by role (not layout order — ordering is an encode-time
// concern handled by Write).
type Sections struct {
	Vocab        []byte
	SA           []byte
	Postings     []byte
	Skip         []byte
	SectionTable []byte
	LevDFA       []byte
	Docs         []byte
	Wasm         []byte
	DictTable    []byte
}

// Artifact is a fully decoded container: header plus every section.
type Artifact struct {
	Header   Header
	Sections Sections
}

var (
	ErrInvalidMagic       = errors.New("container: invalid magic")
	ErrUnsupportedVersion = errors.New("container: unsupported version")
	ErrTruncatedSection   = errors.New("container: truncated section")
	ErrCRCMismatch        = errors.New("container: CRC-32 mismatch")
)

// Write serializes a into w using the layout named by a.Header.Version
// (spec §4.7/§9). When FlagRuntimeCompressed is set, Sections.Wasm is
// zstd-compressed before being written.
func Write(w io.Writer, a *Artifact) error {
	wasm := a.Sections.Wasm
	if a.Header.Flags&FlagRuntimeCompressed != 0 && len(wasm) > 0 {
		var buf bytes.Buffer
		enc, err := zstd.NewWriter(&buf)
		if err != nil {
			return fmt.Errorf("container: new zstd writer: %w", err)
		}
		if _, err := enc.Write(wasm); err != nil {
			return fmt.Errorf("container: compress runtime: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("container: close zstd writer: %w", err)
		}
		wasm = buf.Bytes()
	}

	hdr := a.Header
	if len(a.Sections.Skip) > 0 {
		hdr.Flags |= FlagHasSkipLists
	}
	hdr.WasmLen = uint32(len(wasm))
	hdr.VocabLen = uint32(len(a.Sections.Vocab))
	hdr.SALen = uint32(len(a.Sections.SA))
	hdr.PostingsLen = uint32(len(a.Sections.Postings))
	hdr.SkipLen = uint32(len(a.Sections.Skip))
	hdr.SectionTableLen = uint32(len(a.Sections.SectionTable))
	hdr.LevDFALen = uint32(len(a.Sections.LevDFA))
	hdr.DocsLen = uint32(len(a.Sections.Docs))
	hdr.DictTableLen = uint32(len(a.Sections.DictTable))

	var body bytes.Buffer
	if err := writeHeader(&body, &hdr); err != nil {
		return err
	}

	order := sectionOrder(hdr.Version, a.Sections, wasm)
	for _, s := range order {
		body.Write(s)
	}

	crc := crc32.ChecksumIEEE(body.Bytes())
	if _, err := w.Write(body.Bytes()); err != nil {
		return fmt.Errorf("container: write body: %w", err)
	}
	var footer [8]byte
	binary.LittleEndian.PutUint32(footer[0:4], crc)
	copy(footer[4:8], magicReverse[:])
	_, err := w.Write(footer[:])
	return err
}

func sectionOrder(version Layout, s Sections, wasm []byte) [][]byte {
	body := [][]byte{s.Vocab, s.SA, s.Postings, s.Skip, s.SectionTable, s.LevDFA, s.Docs, s.DictTable}
	if version == LayoutStreaming {
		return append([][]byte{wasm}, body...)
	}
	return append(body, wasm)
}

func writeHeader(w io.Writer, h *Header) error {
	return binary.Write(w, binary.LittleEndian, struct {
		Magic           [4]byte
		Version         uint8
		Flags           uint8
		DocCount        uint32
		TermCount       uint32
		VocabLen        uint32
		SALen           uint32
		PostingsLen     uint32
		SkipLen         uint32
		SectionTableLen uint32
		LevDFALen       uint32
		DocsLen         uint32
		WasmLen         uint32
		DictTableLen    uint32
		Reserved        uint16
	}{
		Magic:           magic,
		Version:         uint8(h.Version),
		Flags:           h.Flags,
		DocCount:        h.DocCount,
		TermCount:       h.TermCount,
		VocabLen:        h.VocabLen,
		SALen:           h.SALen,
		PostingsLen:     h.PostingsLen,
		SkipLen:         h.SkipLen,
		SectionTableLen: h.SectionTableLen,
		LevDFALen:       h.LevDFALen,
		DocsLen:         h.DocsLen,
		WasmLen:         h.WasmLen,
		DictTableLen:    h.DictTableLen,
		Reserved:        h.Reserved,
	})
}

// headerSize = magic(4) + version(1) + flags(1) + 11 uint32 length fields
// (doc_count, term_count, vocab_len, sa_len, postings_len, skip_len,
// section_table_len, lev_dfa_len, docs_len, wasm_len, dict_table_len) +
// reserved(2), matching spec §6's byte-exact offset table (52 bytes).
const headerSize = 4 + 1 + 1 + 4*11 + 2

// Read parses and validates a complete container, decompressing the
// runtime section if FlagRuntimeCompressed is set, and verifying the
// trailing CRC-32 against the header+sections body (spec §4.11).
func Read(data []byte) (*Artifact, error) {
	if len(data) < headerSize+8 {
		return nil, ErrTruncatedSection
	}
	if !bytes.Equal(data[0:4], magic[:]) {
		return nil, ErrInvalidMagic
	}
	version := Layout(data[4])
	if version != LayoutLegacy && version != LayoutStreaming {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}

	h := Header{
		Version:         version,
		Flags:           data[5],
		DocCount:        binary.LittleEndian.Uint32(data[6:10]),
		TermCount:       binary.LittleEndian.Uint32(data[10:14]),
		VocabLen:        binary.LittleEndian.Uint32(data[14:18]),
		SALen:           binary.LittleEndian.Uint32(data[18:22]),
		PostingsLen:     binary.LittleEndian.Uint32(data[22:26]),
		SkipLen:         binary.LittleEndian.Uint32(data[26:30]),
		SectionTableLen: binary.LittleEndian.Uint32(data[30:34]),
		LevDFALen:       binary.LittleEndian.Uint32(data[34:38]),
		DocsLen:         binary.LittleEndian.Uint32(data[38:42]),
		WasmLen:         binary.LittleEndian.Uint32(data[42:46]),
		DictTableLen:    binary.LittleEndian.Uint32(data[46:50]),
		Reserved:        binary.LittleEndian.Uint16(data[50:52]),
	}

	footerStart := len(data) - 8
	wantCRC := binary.LittleEndian.Uint32(data[footerStart : footerStart+4])
	if !bytes.Equal(data[footerStart+4:footerStart+8], magicReverse[:]) {
		return nil, ErrInvalidMagic
	}
	gotCRC := crc32.ChecksumIEEE(data[:footerStart])
	if gotCRC != wantCRC {
		return nil, ErrCRCMismatch
	}

	lens := []int{int(h.VocabLen), int(h.SALen), int(h.PostingsLen), int(h.SkipLen),
		int(h.SectionTableLen), int(h.LevDFALen), int(h.DocsLen), int(h.DictTableLen)}

	i := headerSize
	readSection := func(n int) ([]byte, error) {
		if i+n > footerStart {
			return nil, ErrTruncatedSection
		}
		s := data[i : i+n]
		i += n
		return s, nil
	}

	var wasm []byte
	var err error
	if version == LayoutStreaming {
		if wasm, err = readSection(int(h.WasmLen)); err != nil {
			return nil, err
		}
	}

	sec := Sections{}
	fields := []*[]byte{&sec.Vocab, &sec.SA, &sec.Postings, &sec.Skip, &sec.SectionTable, &sec.LevDFA, &sec.Docs, &sec.DictTable}
	for idx, f := range fields {
		b, err := readSection(lens[idx])
		if err != nil {
			return nil, err
		}
		*f = b
	}

	if version == LayoutLegacy {
		if wasm, err = readSection(int(h.WasmLen)); err != nil {
			return nil, err
		}
	}

	if h.Flags&FlagRuntimeCompressed != 0 && len(wasm) > 0 {
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("container: new zstd reader: %w", err)
		}
		defer dec.Close()
		wasm, err = dec.DecodeAll(wasm, nil)
		if err != nil {
			return nil, fmt.Errorf("container: decompress runtime: %w", err)
		}
	}
	sec.Wasm = wasm

	return &Artifact{Header: h, Sections: sec}, nil
}

// StripRuntime returns a copy of data with the embedded runtime section
// removed and the footer CRC recomputed over the shortened body, so a
// host that supplies its own runtime can discard the one bundled at build
// time without invalidating the artifact (spec §9 "CRC recomputation for
// runtime-stripped reconstruction").
func StripRuntime(data []byte) ([]byte, error) {
	a, err := Read(data)
	if err != nil {
		return nil, err
	}
	a.Sections.Wasm = nil
	a.Header.Flags &^= FlagRuntimeCompressed
	var buf bytes.Buffer
	if err := Write(&buf, a); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
