// Package stopwords loads the configured stop-word set (spec §6: "a
// configuration file, JSON array of strings, consulted at build time
// only") and provides a fast membership test for the tokenizer's hot path.
package stopwords

import (
	"fmt"
	"os"

	json "github.com/goccy/go-json"
	"github.com/bits-and-blooms/bloom/v3"
)

// Set is an immutable stop-word set. A bloom filter rejects the common
// case (not a stop word) without touching the backing map; the map is the
// authoritative source of truth and is always consulted on a bloom hit, so
// false positives never cause an incorrect exclusion.
type Set struct {
	words  map[string]struct{}
	filter *bloom.BloomFilter
}

// Empty returns a Set that rejects nothing.
func Empty() *Set {
	return &Set{words: map[string]struct{}{}, filter: bloom.NewWithEstimates(1, 0.01)}
}

// New builds a Set from a list of words.
func New(words []string) *Set {
	m := make(map[string]struct{}, len(words))
	n := uint(len(words))
	if n == 0 {
		n = 1
	}
	filter := bloom.NewWithEstimates(n, 0.01)
	for _, w := range words {
		m[w] = struct{}{}
		filter.AddString(w)
	}
	return &Set{words: m, filter: filter}
}

// Load reads a JSON array of strings from path and builds a Set.
func Load(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("stopwords: read %s: %w", path, err)
	}
	var words []string
	if err := json.Unmarshal(data, &words); err != nil {
		return nil, fmt.Errorf("stopwords: parse %s: %w", path, err)
	}
	return New(words), nil
}

// Contains reports whether term is a configured stop word.
func (s *Set) Contains(term string) bool {
	if s == nil || len(s.words) == 0 {
		return false
	}
	if !s.filter.TestString(term) {
		return false
	}
	_, ok := s.words[term]
	return ok
}
