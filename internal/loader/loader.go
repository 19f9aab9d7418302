// Package loader implements C11: turning a raw artifact byte slice into a
// ready-to-query in-memory index — validating the container, decoding
// each section, and caching the instantiated sandboxed runtime so that
// repeated loads of the same embedded blob don't redo the work (spec
// §4.11).
package loader

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/harryzorus/sorex-sub000/internal/container"
	"github.com/harryzorus/sorex-sub000/internal/docmodel"
	"github.com/harryzorus/sorex-sub000/internal/fuzzy"
	"github.com/harryzorus/sorex-sub000/internal/postings"
	"github.com/harryzorus/sorex-sub000/internal/sufarray"
	"github.com/harryzorus/sorex-sub000/internal/vocab"
)

func readVarint(data []byte, i int) (uint64, int, error) {
	v, n := binary.Uvarint(data[i:])
	if n <= 0 {
		return 0, i, errors.New("loader: malformed varint")
	}
	return v, i + n, nil
}

func putVarint(buf []byte, v uint64) []byte {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	return append(buf, tmp[:n]...)
}

// ErrorKind classifies a load failure (spec §4.11/§7).
type ErrorKind int

const (
	ErrKindInvalidMagic ErrorKind = iota
	ErrKindUnsupportedVersion
	ErrKindTruncatedSection
	ErrKindCRCMismatch
	ErrKindMalformedSection
	// ErrKindRuntimeInstantiationFailed classifies a failure to instantiate
	// the embedded sandboxed runtime (wasmhost.Run), not a container/section
	// decode failure — produced by callers driving the runtime, not by Load.
	ErrKindRuntimeInstantiationFailed
)

// Error wraps a load failure with its classification, so callers (the CLI,
// a host embedding the library) can branch on failure mode without string
// matching.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string { return fmt.Sprintf("loader: %s", e.Err) }
func (e *Error) Unwrap() error { return e.Err }

func wrap(kind ErrorKind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}

// Index is a fully decoded, query-ready artifact.
type Index struct {
	DocCount int
	Vocab    *vocab.Vocabulary
	SA       *sufarray.SuffixArray
	Dict     *postings.Dictionary
	Sections *docmodel.SectionTable
	DFA      *fuzzy.DFA
	Postings []byte
	DocMetas []docmodel.DocMeta
	Wasm     []byte

	docMetaByID map[int]docmodel.DocMeta
}

// DocMetaFor returns the retained metadata for a document id, if present.
func (idx *Index) DocMetaFor(id int) (docmodel.DocMeta, bool) {
	m, ok := idx.docMetaByID[id]
	return m, ok
}

var (
	runtimeCacheMu sync.Mutex
	runtimeCache   = map[uint64]interface{}{}
)

// Load validates and decodes a complete artifact.
func Load(data []byte) (*Index, error) {
	art, err := container.Read(data)
	if err != nil {
		return nil, classifyContainerError(err)
	}
	if len(art.Sections.Wasm) > 0 {
		// Rebuild the index-only buffer (runtime removed, CRC recomputed)
		// and check that it validates on its own.
		indexOnly, err := container.StripRuntime(data)
		if err == nil {
			_, err = container.Read(indexOnly)
		}
		if err != nil {
			return nil, classifyContainerError(err)
		}
	}

	v, err := vocab.Decode(art.Sections.Vocab)
	if err != nil {
		return nil, wrap(ErrKindMalformedSection, fmt.Errorf("vocab: %w", err))
	}

	sa, err := sufarray.Decode(art.Sections.SA, v)
	if err != nil {
		return nil, wrap(ErrKindMalformedSection, fmt.Errorf("suffix array: %w", err))
	}

	dict, err := decodeDictionary(art.Sections.DictTable, int(art.Header.TermCount))
	if err != nil {
		return nil, wrap(ErrKindMalformedSection, fmt.Errorf("dictionary: %w", err))
	}

	sections, err := docmodel.DecodeSectionTable(art.Sections.SectionTable)
	if err != nil {
		return nil, wrap(ErrKindMalformedSection, fmt.Errorf("section table: %w", err))
	}

	docMetas, err := docmodel.DecodeDocMetas(art.Sections.Docs)
	if err != nil {
		return nil, wrap(ErrKindMalformedSection, fmt.Errorf("document metadata: %w", err))
	}
	byID := make(map[int]docmodel.DocMeta, len(docMetas))
	for _, m := range docMetas {
		byID[m.ID] = m
	}

	dfa, err := fuzzy.Decode(art.Sections.LevDFA)
	if err != nil {
		return nil, wrap(ErrKindMalformedSection, fmt.Errorf("fuzzy DFA: %w", err))
	}

	return &Index{
		DocCount:    int(art.Header.DocCount),
		Vocab:       v,
		SA:          sa,
		Dict:        dict,
		Sections:    sections,
		DFA:         dfa,
		Postings:    art.Sections.Postings,
		DocMetas:    docMetas,
		Wasm:        art.Sections.Wasm,
		docMetaByID: byID,
	}, nil
}

func classifyContainerError(err error) error {
	switch {
	case errors.Is(err, container.ErrInvalidMagic):
		return wrap(ErrKindInvalidMagic, err)
	case errors.Is(err, container.ErrUnsupportedVersion):
		return wrap(ErrKindUnsupportedVersion, err)
	case errors.Is(err, container.ErrTruncatedSection):
		return wrap(ErrKindTruncatedSection, err)
	case errors.Is(err, container.ErrCRCMismatch):
		return wrap(ErrKindCRCMismatch, err)
	default:
		return wrap(ErrKindMalformedSection, err)
	}
}

// decodeDictionary reads the dict_table section written by
// postings.EncodeAll (doc_freq, postings_offset, skip_offset per term, in
// term_id order).
func decodeDictionary(data []byte, termCount int) (*postings.Dictionary, error) {
	dict := &postings.Dictionary{
		DocFreq:        make([]int, termCount),
		PostingsOffset: make([]int, termCount),
		SkipOffset:     make([]int, termCount),
	}
	i := 0
	for t := 0; t < termCount; t++ {
		df, n, err := readVarint(data, i)
		if err != nil {
			return nil, err
		}
		i = n
		off, n, err := readVarint(data, i)
		if err != nil {
			return nil, err
		}
		i = n
		skip, n, err := readVarint(data, i)
		if err != nil {
			return nil, err
		}
		i = n
		dict.DocFreq[t] = int(df)
		dict.PostingsOffset[t] = int(off)
		dict.SkipOffset[t] = int(skip) - 1 // -1 sentinel round-trips through a uint varint as 0
	}
	return dict, nil
}

// EncodeDictionary is the inverse of decodeDictionary, used by the build
// pipeline when assembling the dict_table_len container section.
func EncodeDictionary(dict *postings.Dictionary) []byte {
	var buf []byte
	for t := range dict.DocFreq {
		buf = putVarint(buf, uint64(dict.DocFreq[t]))
		buf = putVarint(buf, uint64(dict.PostingsOffset[t]))
		buf = putVarint(buf, uint64(dict.SkipOffset[t]+1))
	}
	return buf
}

// RuntimeCacheKey hashes a runtime blob with xxhash so repeated loads of
// artifacts sharing the same embedded runtime reuse one instantiation.
func RuntimeCacheKey(wasm []byte) uint64 {
	return xxhash.Sum64(wasm)
}

// CachedRuntime returns the previously stored runtime instance for this
// blob, if any.
func CachedRuntime(wasm []byte) (interface{}, bool) {
	runtimeCacheMu.Lock()
	defer runtimeCacheMu.Unlock()
	v, ok := runtimeCache[RuntimeCacheKey(wasm)]
	return v, ok
}

// StoreRuntime caches an instantiated runtime keyed by its source blob's
// hash.
func StoreRuntime(wasm []byte, instance interface{}) {
	runtimeCacheMu.Lock()
	defer runtimeCacheMu.Unlock()
	runtimeCache[RuntimeCacheKey(wasm)] = instance
}
