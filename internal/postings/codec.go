// Package postings implements C3 (Inverted Lists) and C6 (Posting Codec):
// per-term posting lists, block-PFOR delta encoding with skip pointers,
// and sorted-merge / gallop intersection.
package postings

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const blockSize = 128

// putUvarint appends a LEB128 varint to buf and returns the grown slice
// (spec §4.6: "LEB128, continuation bit 0x80, maximum 10 bytes").
func putUvarint(buf []byte, v uint64) []byte {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	return append(buf, tmp[:n]...)
}

// readUvarint reads a LEB128 varint from data at offset i, returning the
// value and the new offset.
func readUvarint(data []byte, i int) (uint64, int, error) {
	v, n := binary.Uvarint(data[i:])
	if n <= 0 {
		return 0, i, errors.New("postings: malformed varint")
	}
	return v, i + n, nil
}

func bitsNeeded(v uint64) uint8 {
	var n uint8
	for v > 0 {
		n++
		v >>= 1
	}
	return n
}

// encodeBlockPFOR encodes a sequence of non-negative integers using the
// block structure of spec §4.6: fixed blocks of 128 values, each framed by
// its minimum and bit-packed residuals; a short final block ("tail") is
// varint-encoded instead of bit-packed.
func encodeBlockPFOR(buf []byte, values []uint64) []byte {
	i := 0
	for i+blockSize <= len(values) {
		block := values[i : i+blockSize]
		buf = encodeFullBlock(buf, block)
		i += blockSize
	}
	tail := values[i:]
	buf = putUvarint(buf, uint64(len(tail)))
	for _, v := range tail {
		buf = putUvarint(buf, v)
	}
	return buf
}

func encodeFullBlock(buf []byte, block []uint64) []byte {
	min := block[0]
	for _, v := range block {
		if v < min {
			min = v
		}
	}
	maxAdj := uint64(0)
	for _, v := range block {
		adj := v - min
		if adj > maxAdj {
			maxAdj = adj
		}
	}
	bits := bitsNeeded(maxAdj)

	buf = putUvarint(buf, min)
	buf = append(buf, bits)

	packed := make([]byte, (int(bits)*blockSize+7)/8)
	bitPos := 0
	for _, v := range block {
		adj := v - min
		writeBits(packed, bitPos, bits, adj)
		bitPos += int(bits)
	}
	buf = append(buf, packed...)
	return buf
}

func writeBits(dst []byte, bitPos int, bits uint8, v uint64) {
	for b := uint8(0); b < bits; b++ {
		if v&(1<<b) != 0 {
			pos := bitPos + int(b)
			dst[pos/8] |= 1 << (uint(pos) % 8)
		}
	}
}

func readBits(src []byte, bitPos int, bits uint8) uint64 {
	var v uint64
	for b := uint8(0); b < bits; b++ {
		pos := bitPos + int(b)
		if src[pos/8]&(1<<(uint(pos)%8)) != 0 {
			v |= 1 << b
		}
	}
	return v
}

// decodeBlockPFOR decodes count values starting at offset i in data,
// returning the values, and the offset just past the encoded sequence.
func decodeBlockPFOR(data []byte, i, count int) ([]uint64, int, error) {
	values := make([]uint64, 0, count)
	remaining := count
	for remaining >= blockSize {
		min, ni, err := readUvarint(data, i)
		if err != nil {
			return nil, i, err
		}
		i = ni
		if i >= len(data) {
			return nil, i, errors.New("postings: truncated block header")
		}
		bits := data[i]
		i++
		packedLen := (int(bits)*blockSize + 7) / 8
		if i+packedLen > len(data) {
			return nil, i, errors.New("postings: truncated block body")
		}
		packed := data[i : i+packedLen]
		i += packedLen

		bitPos := 0
		for j := 0; j < blockSize; j++ {
			adj := readBits(packed, bitPos, bits)
			values = append(values, min+adj)
			bitPos += int(bits)
		}
		remaining -= blockSize
	}

	tailCount, ni, err := readUvarint(data, i)
	if err != nil {
		return nil, i, err
	}
	i = ni
	for j := uint64(0); j < tailCount; j++ {
		v, ni, err := readUvarint(data, i)
		if err != nil {
			return nil, i, err
		}
		i = ni
		values = append(values, v)
	}

	if len(values) != count {
		return nil, i, fmt.Errorf("postings: decoded %d values, expected %d", len(values), count)
	}
	return values, i, nil
}

// deltaEncode converts a strictly ascending sequence into first-order
// differences, suitable for block-PFOR framing (spec §4.6).
func deltaEncode(sorted []int) []uint64 {
	out := make([]uint64, len(sorted))
	prev := 0
	for i, v := range sorted {
		out[i] = uint64(v - prev)
		prev = v
	}
	return out
}

func deltaDecode(deltas []uint64) []int {
	out := make([]int, len(deltas))
	cur := 0
	for i, d := range deltas {
		cur += int(d)
		out[i] = cur
	}
	return out
}
