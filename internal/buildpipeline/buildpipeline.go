// Package buildpipeline orchestrates a full artifact build: C1 tokenizes
// documents in parallel across worker goroutines, C2/C3 accumulate
// per-worker vocabulary and posting shards, a reduce step merges them,
// then C4/C5/C6/C7 derive the suffix array, fuzzy DFA metadata, and the
// final binary container (spec §2, §5).
package buildpipeline

import (
	"bytes"
	"fmt"
	"runtime"
	"sort"
	"sync"

	"github.com/harryzorus/sorex-sub000/internal/container"
	"github.com/harryzorus/sorex-sub000/internal/docmodel"
	"github.com/harryzorus/sorex-sub000/internal/fuzzy"
	"github.com/harryzorus/sorex-sub000/internal/loader"
	"github.com/harryzorus/sorex-sub000/internal/logging"
	"github.com/harryzorus/sorex-sub000/internal/postings"
	"github.com/harryzorus/sorex-sub000/internal/ranker"
	"github.com/harryzorus/sorex-sub000/internal/stopwords"
	"github.com/harryzorus/sorex-sub000/internal/sufarray"
	"github.com/harryzorus/sorex-sub000/internal/token"
	"github.com/harryzorus/sorex-sub000/internal/verify"
	"github.com/harryzorus/sorex-sub000/internal/vocab"
)

// DocError names the document (and, when known, the field) a build input
// failed validation on, so a CLI can point the operator at the exact
// offending record instead of a bare error string.
type DocError struct {
	DocID int
	Err   error
}

func (e *DocError) Error() string { return fmt.Sprintf("document %d: %s", e.DocID, e.Err) }
func (e *DocError) Unwrap() error { return e.Err }

// Options configures one build (spec §5/§6).
type Options struct {
	Layout          container.Layout
	Strict          bool // run internal/verify checks before finalizing the artifact
	Workers         int  // 0 selects runtime.NumCPU()
	WasmRuntime     []byte
	CompressRuntime bool
}

func (o Options) workerCount() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.NumCPU()
}

// workerShard is one goroutine's private accumulation: its own vocab
// shard plus its own partial posting lists, keyed by term string until
// the reduce step assigns global TermIds (spec §5 "each worker produces
// private shards").
type workerShard struct {
	terms    []string
	postings map[string]*postings.PostingList
}

// Build runs the full pipeline over docs and returns the serialized
// artifact bytes.
func Build(docs []*docmodel.Document, stop *stopwords.Set, opts Options) ([]byte, error) {
	log := logging.Get()
	for _, d := range docs {
		if err := d.Validate(); err != nil {
			return nil, &DocError{DocID: d.ID, Err: err}
		}
	}

	sections := docmodel.BuildSectionTable(docs)
	shards := tokenizeParallel(docs, stop, sections, opts.workerCount())

	mergedVocab, dict, lists, postingsBuf, skipBuf, err := reduce(shards)
	if err != nil {
		return nil, fmt.Errorf("buildpipeline: reduce: %w", err)
	}
	log.Info().Int("terms", mergedVocab.Len()).Int("docs", len(docs)).Msg("vocabulary merged")

	sa := sufarray.Build(mergedVocab)
	dfa := fuzzy.Build(fuzzy.DefaultK, fuzzy.DefaultTranspositions)

	if opts.Strict {
		if violations := verify.Vocabulary(mergedVocab); len(violations) > 0 {
			return nil, fmt.Errorf("buildpipeline: %d vocabulary invariant violations: %v", len(violations), violations[0])
		}
		if violations := verify.SuffixArray(sa, mergedVocab); len(violations) > 0 {
			return nil, fmt.Errorf("buildpipeline: %d suffix array invariant violations: %v", len(violations), violations[0])
		}
		if violations := verify.PostingLists(lists); len(violations) > 0 {
			return nil, fmt.Errorf("buildpipeline: %d posting list invariant violations: %v", len(violations), violations[0])
		}
		if violations := verify.FieldHierarchy(ranker.Constants()); len(violations) > 0 {
			return nil, fmt.Errorf("buildpipeline: %d field hierarchy invariant violations: %v", len(violations), violations[0])
		}
	}

	var vocabBuf bytes.Buffer
	if err := mergedVocab.Encode(&vocabBuf); err != nil {
		return nil, fmt.Errorf("buildpipeline: encode vocab: %w", err)
	}
	saBuf := sufarray.Encode(sa, nil)
	dictBuf := loader.EncodeDictionary(dict)
	docsBuf, err := docmodel.EncodeDocMetas(docs)
	if err != nil {
		return nil, fmt.Errorf("buildpipeline: encode doc metadata: %w", err)
	}

	art := &container.Artifact{
		Header: container.Header{
			Version:   opts.Layout,
			DocCount:  uint32(len(docs)),
			TermCount: uint32(mergedVocab.Len()),
		},
		Sections: container.Sections{
			Vocab:        vocabBuf.Bytes(),
			SA:           saBuf,
			Postings:     postingsBuf,
			Skip:         skipBuf,
			SectionTable: sections.Encode(),
			LevDFA:       dfa.Encode(),
			DictTable:    dictBuf,
			Docs:         docsBuf,
			Wasm:         opts.WasmRuntime,
		},
	}
	if art.Header.Version == 0 {
		art.Header.Version = container.LayoutLegacy
	}
	if opts.CompressRuntime {
		art.Header.Flags |= container.FlagRuntimeCompressed
	}

	var out bytes.Buffer
	if err := container.Write(&out, art); err != nil {
		return nil, fmt.Errorf("buildpipeline: write container: %w", err)
	}
	return out.Bytes(), nil
}

// tokenizeParallel fans document tokenization out across workerCount
// goroutines, each accumulating its own vocabulary and posting shard
// (spec §5 "parallel threads... each worker produces private shards").
func tokenizeParallel(docs []*docmodel.Document, stop *stopwords.Set, sections *docmodel.SectionTable, workerCount int) []*workerShard {
	if workerCount < 1 {
		workerCount = 1
	}
	shards := make([]*workerShard, workerCount)
	for i := range shards {
		shards[i] = &workerShard{postings: map[string]*postings.PostingList{}}
	}

	var wg sync.WaitGroup
	chunk := (len(docs) + workerCount - 1) / workerCount
	if chunk == 0 {
		chunk = 1
	}
	for w := 0; w < workerCount; w++ {
		lo := w * chunk
		hi := lo + chunk
		if lo >= len(docs) {
			continue
		}
		if hi > len(docs) {
			hi = len(docs)
		}
		wg.Add(1)
		go func(w, lo, hi int) {
			defer wg.Done()
			shard := shards[w]
			seen := map[string]bool{}
			for _, doc := range docs[lo:hi] {
				for _, rec := range token.Tokenize(doc, stop) {
					if !seen[rec.Term] {
						seen[rec.Term] = true
						shard.terms = append(shard.terms, rec.Term)
					}
					pl, ok := shard.postings[rec.Term]
					if !ok {
						pl = postings.NewPostingList()
						shard.postings[rec.Term] = pl
					}
					pl.AddOccurrence(doc.ID, postings.Occurrence{
						FieldType:  rec.FieldType,
						SectionIdx: sections.IndexOf(rec.SectionID),
						Position:   rec.Position,
						FieldLen:   rec.FieldLen,
					})
				}
			}
		}(w, lo, hi)
	}
	wg.Wait()
	return shards
}

// reduce merges every worker shard's vocabulary into the single global
// Vocabulary, assigns final TermIds, and merges each term's per-worker
// partial posting lists into complete per-term PostingLists plus the
// encoded postings/skip/dictionary sections (spec §5's explicit reduce
// step, §4.3/§4.6). The decoded lists are also returned so --strict can
// run verify.PostingLists (spec §4.12/§8 "posting list monotonicity")
// without re-decoding the just-encoded sections.
func reduce(shards []*workerShard) (*vocab.Vocabulary, *postings.Dictionary, []*postings.PostingList, []byte, []byte, error) {
	vshards := make([]*vocab.Shard, 0, len(shards))
	for _, s := range shards {
		vs, err := vocab.BuildShard(s.terms)
		if err != nil {
			return nil, nil, nil, nil, nil, err
		}
		vshards = append(vshards, vs)
	}
	merged, err := vocab.Merge(vshards)
	if err != nil {
		return nil, nil, nil, nil, nil, err
	}

	lists := make([]*postings.PostingList, merged.Len())
	for id := 0; id < merged.Len(); id++ {
		term := merged.TermOf(id)
		full := postings.NewPostingList()
		var docs []int
		perDoc := map[int][]postings.Occurrence{}
		for _, s := range shards {
			pl, ok := s.postings[term]
			if !ok {
				continue
			}
			for i, docID := range pl.DocIDs {
				if _, seen := perDoc[docID]; !seen {
					docs = append(docs, docID)
				}
				perDoc[docID] = append(perDoc[docID], pl.Occurrences[i]...)
			}
		}
		sort.Ints(docs)
		for _, docID := range docs {
			occs := perDoc[docID]
			sort.Slice(occs, func(i, j int) bool { return occs[i].Position < occs[j].Position })
			for _, o := range occs {
				full.AddOccurrence(docID, o)
			}
		}
		lists[id] = full
	}

	enc := postings.EncodeAll(lists)
	return merged, enc.Dict, lists, enc.Postings, enc.Skips, nil
}
