// Package fuzzy implements C5: a parametric Levenshtein automaton, built
// once per (max_edits, with_transpositions) configuration and then reused
// to match any query term against the vocabulary without per-term DFA
// construction (spec §4.5).
package fuzzy

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// DefaultK and DefaultTranspositions fix the single edit-distance budget
// Tier 3 builds its DFA for: built once at artifact build time (spec §4.5
// "built once"), serialized into the artifact, and never reconstructed at
// query time (spec §9). A deployment wanting a different budget rebuilds
// the artifact.
const (
	DefaultK              = 2
	DefaultTranspositions = true
)

// position is one NFA state component: an offset into the query term,
// relative to the automaton's current origin, and the number of edits
// spent reaching it (spec §4.5 "NFA positions as (offset, edits)").
type position struct {
	offset int
	edits  int
}

// state is a canonicalized, sorted, deduplicated set of positions — one
// DFA state, shape-equivalent regardless of where in the query it occurs.
type state []position

// transition is one (next state, origin shift) pair. The shift is how far
// the state's positions were re-based toward zero during canonicalization;
// callers accumulate it to recover each position's true offset into the
// query (spec §4.5's "parametric" construction).
type transition struct {
	next  int
	shift int
}

// DFA is a compiled parametric Levenshtein automaton for one
// (k, withTranspositions) configuration. Transitions depend only on the
// character-class pattern of the alphabet relative to the query, not on
// the query's actual characters, so one construction serves every query
// term within the configured edit budget (spec §4.5).
type DFA struct {
	k                  int
	withTranspositions bool
	states             []state
	// transitions[state][classMask] is the successor transition, or a
	// zero-value transition with next == -1 when the class kills every
	// position in the state.
	transitions [][]transition
}

// classMask is a bitmask over the 2k+2 query characters starting at the
// automaton's current origin, indicating which equal the input character
// being consumed: a canonical state's positions sit up to 2k offsets past
// the origin, and the transposition check looks one further. The alphabet
// therefore has 2^(2k+2) classes.
type classMask uint32

// Build constructs the full DFA for editing budget k via BFS/worklist
// exploration of reachable NFA states (spec §4.5). withTranspositions
// additionally allows adjacent-character swaps to count as a single edit
// (Damerau-Levenshtein).
func Build(k int, withTranspositions bool) *DFA {
	d := &DFA{k: k, withTranspositions: withTranspositions}

	start, _ := canonicalize(closure(state{{offset: 0, edits: 0}}, k))
	seen := map[string]int{key(start): 0}
	order := []state{start}

	numClasses := 1 << uint(2*k+2)
	for si := 0; si < len(order); si++ {
		s := order[si]
		d.states = append(d.states, s)
		row := make([]transition, numClasses)
		for m := 0; m < numClasses; m++ {
			raw := step(s, classMask(m), k, withTranspositions)
			if len(raw) == 0 {
				row[m] = transition{next: -1}
				continue
			}
			canon, shift := canonicalize(raw)
			nk := key(canon)
			idx, ok := seen[nk]
			if !ok {
				idx = len(order)
				seen[nk] = idx
				order = append(order, canon)
			}
			row[m] = transition{next: idx, shift: shift}
		}
		d.transitions = append(d.transitions, row)
	}
	return d
}

// closure applies the NFA's query-insertion epsilon-moves (consuming a
// query character without consuming input) until no new positions are
// reachable.
func closure(positions state, k int) state {
	frontier := append(state(nil), positions...)
	seen := map[position]bool{}
	for _, p := range frontier {
		seen[p] = true
	}
	for len(frontier) > 0 {
		p := frontier[len(frontier)-1]
		frontier = frontier[:len(frontier)-1]
		if p.edits >= k {
			continue
		}
		ins := position{offset: p.offset + 1, edits: p.edits + 1}
		if !seen[ins] {
			seen[ins] = true
			frontier = append(frontier, ins)
		}
	}
	out := make(state, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	return out
}

// step computes the successor NFA position set after consuming one input
// character whose relationship to the next 2k+2 query characters
// (relative to the state's origin) is described by mask: bit i set means
// the input character equals the query character at relative offset i.
func step(s state, mask classMask, k int, withTranspositions bool) state {
	var next state
	for _, p := range s {
		if p.edits > k {
			continue
		}
		if mask&(1<<uint(p.offset)) != 0 {
			// exact match against query[offset]
			next = append(next, position{offset: p.offset + 1, edits: p.edits})
		}
		if p.edits >= k {
			continue
		}
		// substitution of query[offset]
		next = append(next, position{offset: p.offset + 1, edits: p.edits + 1})
		// deletion of the input character (query offset unchanged)
		next = append(next, position{offset: p.offset, edits: p.edits + 1})
		if withTranspositions && mask&(1<<uint(p.offset+1)) != 0 {
			// transposition: this input char matches query[offset+1];
			// the automaton will match query[offset] against the next
			// input char on the following step, both spent on this edit.
			next = append(next, position{offset: p.offset + 2, edits: p.edits + 1})
		}
	}
	return closure(next, k)
}

// canonicalize shifts every position's offset down by the state's minimum
// offset (so structurally identical states at different query positions
// collapse to one), sorts, and dedups. It returns the shift subtracted so
// callers can accumulate true offsets across transitions.
func canonicalize(s state) (state, int) {
	if len(s) == 0 {
		return s, 0
	}
	min := s[0].offset
	for _, p := range s {
		if p.offset < min {
			min = p.offset
		}
	}
	out := make(state, len(s))
	for i, p := range s {
		out[i] = position{offset: p.offset - min, edits: p.edits}
	}
	sortPositions(out)
	return dedupPositions(out), min
}

func sortPositions(s state) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && less(s[j], s[j-1]); j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}

func less(a, b position) bool {
	if a.offset != b.offset {
		return a.offset < b.offset
	}
	return a.edits < b.edits
}

func dedupPositions(sorted state) state {
	out := sorted[:0:0]
	for i, p := range sorted {
		if i == 0 || p != sorted[i-1] {
			out = append(out, p)
		}
	}
	return out
}

func key(s state) string {
	buf := make([]byte, 0, len(s)*3)
	for _, p := range s {
		buf = append(buf, byte(p.offset), byte(p.offset>>8), byte(p.edits))
	}
	return string(buf)
}

// Matches reports whether term is within the DFA's edit-distance budget of
// query (by its configured metric: Levenshtein, or Damerau-Levenshtein
// when withTranspositions was set at Build time), and the distance found.
func (d *DFA) Matches(query, term string) (int, bool) {
	qr := []rune(query)
	termRunes := []rune(term)

	cur := 0
	origin := 0
	for _, c := range termRunes {
		mask := classMaskFor(qr, origin, d.k, c)
		t := d.transitions[cur][mask]
		if t.next < 0 {
			return 0, false
		}
		cur = t.next
		origin += t.shift
	}

	best := -1
	for _, p := range d.states[cur] {
		absOffset := origin + p.offset
		remaining := len(qr) - absOffset
		if remaining < 0 {
			continue
		}
		total := p.edits + remaining
		if total > d.k {
			continue
		}
		if best == -1 || total < best {
			best = total
		}
	}
	if best == -1 {
		return 0, false
	}
	return best, true
}

func classMaskFor(query []rune, origin, k int, c rune) classMask {
	var m classMask
	for i := 0; i <= 2*k+1; i++ {
		idx := origin + i
		if idx < len(query) && query[idx] == c {
			m |= 1 << uint(i)
		}
	}
	return m
}

// Encode serializes the compiled DFA so it can be built once at artifact
// construction time and reused across every future load (spec §4.5 "built
// once"; §9 "the DFA must never be rebuilt at query time"): varint(k),
// byte(with_transpositions), varint(state_count), then each state's
// position set (varint(count), (varint(offset), varint(edits)) pairs),
// then each state's transition row (varint(next+1); 0 means killed,
// varint(shift)), row width implied by k.
func (d *DFA) Encode() []byte {
	var buf []byte
	buf = putUvarint(buf, uint64(d.k))
	if d.withTranspositions {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	buf = putUvarint(buf, uint64(len(d.states)))
	for _, s := range d.states {
		buf = putUvarint(buf, uint64(len(s)))
		for _, p := range s {
			buf = putVarint(buf, int64(p.offset))
			buf = putVarint(buf, int64(p.edits))
		}
	}
	for _, row := range d.transitions {
		for _, t := range row {
			buf = putVarint(buf, int64(t.next+1))
			buf = putVarint(buf, int64(t.shift))
		}
	}
	return buf
}

// Decode reconstructs a DFA previously written by Encode, without
// repeating the BFS construction. Empty data (an artifact built without a
// Tier 3 budget) decodes to a nil DFA rather than an error.
func Decode(data []byte) (*DFA, error) {
	if len(data) == 0 {
		return nil, nil
	}
	i := 0
	k64, n := binary.Uvarint(data[i:])
	if n <= 0 {
		return nil, errors.New("fuzzy: malformed k varint")
	}
	i += n
	if i >= len(data) {
		return nil, errors.New("fuzzy: truncated transpositions flag")
	}
	withTranspositions := data[i] != 0
	i++

	stateCount, n := binary.Uvarint(data[i:])
	if n <= 0 {
		return nil, errors.New("fuzzy: malformed state count varint")
	}
	i += n

	d := &DFA{k: int(k64), withTranspositions: withTranspositions}
	d.states = make([]state, stateCount)
	for si := range d.states {
		posCount, n := binary.Uvarint(data[i:])
		if n <= 0 {
			return nil, fmt.Errorf("fuzzy: malformed position count for state %d", si)
		}
		i += n
		s := make(state, posCount)
		for pi := range s {
			offset, n := binary.Varint(data[i:])
			if n <= 0 {
				return nil, fmt.Errorf("fuzzy: malformed offset for state %d position %d", si, pi)
			}
			i += n
			edits, n := binary.Varint(data[i:])
			if n <= 0 {
				return nil, fmt.Errorf("fuzzy: malformed edits for state %d position %d", si, pi)
			}
			i += n
			s[pi] = position{offset: int(offset), edits: int(edits)}
		}
		d.states[si] = s
	}

	numClasses := 1 << uint(2*d.k+2)
	d.transitions = make([][]transition, stateCount)
	for si := range d.transitions {
		row := make([]transition, numClasses)
		for m := range row {
			next, n := binary.Varint(data[i:])
			if n <= 0 {
				return nil, fmt.Errorf("fuzzy: malformed transition for state %d class %d", si, m)
			}
			i += n
			shift, n := binary.Varint(data[i:])
			if n <= 0 {
				return nil, fmt.Errorf("fuzzy: malformed shift for state %d class %d", si, m)
			}
			i += n
			row[m] = transition{next: int(next) - 1, shift: int(shift)}
		}
		d.transitions[si] = row
	}

	return d, nil
}

func putUvarint(buf []byte, v uint64) []byte {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	return append(buf, tmp[:n]...)
}

func putVarint(buf []byte, v int64) []byte {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutVarint(tmp[:], v)
	return append(buf, tmp[:n]...)
}
