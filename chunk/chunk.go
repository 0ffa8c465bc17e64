// Copyright ©2024 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package chunk implements the half-open byte-span chunk type and its
// merge strategies, shared by the index store and the query path.
package chunk

import (
	"sort"

	"github.com/biogo/tbx/voff"
)

// Chunk is a half-open span [Begin, End) of the underlying compressed
// byte stream. Begin must be strictly less than End.
type Chunk struct {
	Begin, End voff.VOffset
}

// ByBegin sorts a []Chunk by Begin offset.
type ByBegin []Chunk

func (c ByBegin) Len() int           { return len(c) }
func (c ByBegin) Less(i, j int) bool { return c[i].Begin < c[j].Begin }
func (c ByBegin) Swap(i, j int)      { c[i], c[j] = c[j], c[i] }

// Sort sorts chunks in place by Begin offset if not already sorted.
func Sort(chunks []Chunk) {
	if !sort.IsSorted(ByBegin(chunks)) {
		sort.Sort(ByBegin(chunks))
	}
}

// MergeStrategy represents a chunk compression strategy applied to a
// Begin-sorted []Chunk.
type MergeStrategy func([]Chunk) []Chunk

var (
	// Identity leaves the []Chunk unaltered.
	Identity MergeStrategy = identity

	// Adjacent merges chunks that are contiguous or overlapping, per
	// spec §4.3's finish-time coalescing rule: merge (a,b)+(c,d) when
	// b>=c into (a,max(b,d)).
	Adjacent MergeStrategy = adjacent

	// Squash merges all chunks into a single spanning chunk.
	Squash MergeStrategy = squash
)

// CompressorStrategy returns a MergeStrategy that merges chunks whose
// underlying block starts are within near of each other, expressed in
// the same packed-offset units as voff.VOffset.
func CompressorStrategy(near int64) MergeStrategy {
	return func(chunks []Chunk) []Chunk {
		if len(chunks) == 0 {
			return nil
		}
		for c := 1; c < len(chunks); c++ {
			left := chunks[c-1]
			right := &chunks[c]
			leftBlockStart, _ := leftBlock(left.End)
			rightBlockStart, _ := leftBlock(right.Begin)
			if leftBlockStart+near >= rightBlockStart {
				right.Begin = left.Begin
				if left.End > right.End {
					right.End = left.End
				}
				chunks = append(chunks[:c-1], chunks[c:]...)
				c--
			}
		}
		return chunks
	}
}

func leftBlock(v voff.VOffset) (int64, uint16) {
	return voff.Unpack(v)
}

func identity(chunks []Chunk) []Chunk { return chunks }

func adjacent(chunks []Chunk) []Chunk {
	if len(chunks) == 0 {
		return nil
	}
	for c := 1; c < len(chunks); c++ {
		left := chunks[c-1]
		right := &chunks[c]
		if left.End >= right.Begin {
			right.Begin = left.Begin
			if left.End > right.End {
				right.End = left.End
			}
			chunks = append(chunks[:c-1], chunks[c:]...)
			c--
		}
	}
	return chunks
}

func squash(chunks []Chunk) []Chunk {
	if len(chunks) == 0 {
		return nil
	}
	left := chunks[0].Begin
	right := chunks[0].End
	for _, c := range chunks[1:] {
		if c.End > right {
			right = c.End
		}
	}
	return []Chunk{{Begin: left, End: right}}
}
