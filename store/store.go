// Copyright ©2024 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package store implements the Index store: the per-reference bin-to-
// chunk-list table and per-reference linear offset array described in
// spec §3.4–§3.5, plus the merging, sorting, and bin-enumeration query
// logic of spec §4.4. Store does not validate input order or track the
// in-flight run of a build in progress — that is the builder state
// machine's job (package builder). Store accumulates the per-reference
// mapped/unmapped statistics and materializes them as the meta bin on
// Finish.
package store

import (
	"errors"
	"sort"

	"github.com/biogo/tbx/bin"
	"github.com/biogo/tbx/chunk"
	"github.com/biogo/tbx/voff"
)

// ErrNoReference is returned by Query when tid is out of range.
var ErrNoReference = errors.New("store: no reference")

// Stats holds the per-reference mapping statistics stored in the meta
// bin (spec §3.8 invariant 4).
type Stats struct {
	Chunk    chunk.Chunk
	Mapped   uint64
	Unmapped uint64
}

type binEntry struct {
	bin    uint32
	loff   voff.VOffset
	chunks []chunk.Chunk
}

type refEntry struct {
	bins      []binEntry
	linear    []voff.VOffset
	linearSet []bool
	stats     *Stats
}

// Index is the coordinate-indexed bin/chunk/linear-offset store for all
// references in one index. The zero value is not usable; use New.
type Index struct {
	MinShift uint32
	Depth    uint32

	refs []refEntry

	// NoCoorChunk spans the portion of the byte stream holding records
	// with no reference placement at all (query tid = HTS_IDX_NOCOOR),
	// set by the builder on Finish.
	NoCoorChunk *chunk.Chunk

	sorted bool
}

// New returns an empty Index for a hierarchy with the given minShift and
// depth (see package bin).
func New(minShift, depth uint32) *Index {
	return &Index{MinShift: minShift, Depth: depth}
}

// NumRefs returns the number of references currently known to the
// store (the highest tid seen, plus one).
func (idx *Index) NumRefs() int { return len(idx.refs) }

// Grow ensures the store has an entry for tid, extending as needed.
func (idx *Index) Grow(tid int) {
	if tid < len(idx.refs) {
		return
	}
	refs := make([]refEntry, tid+1)
	copy(refs, idx.refs)
	idx.refs = refs
}

// AddChunk records c as belonging to bin b of reference tid, extending
// the bin's last chunk in place when c is contiguous with it (mirrors
// the teacher's internal.Index.Add / csi.Index.Add bin-accumulation
// loop) or appending a new chunk otherwise.
func (idx *Index) AddChunk(tid int, b uint32, c chunk.Chunk) {
	idx.Grow(tid)
	ref := &idx.refs[tid]
	for i := range ref.bins {
		if ref.bins[i].bin != b {
			continue
		}
		n := len(ref.bins[i].chunks)
		if n > 0 && ref.bins[i].chunks[n-1].End >= c.Begin {
			if c.End > ref.bins[i].chunks[n-1].End {
				ref.bins[i].chunks[n-1].End = c.End
			}
		} else {
			ref.bins[i].chunks = append(ref.bins[i].chunks, c)
		}
		return
	}
	idx.sorted = false
	ref.bins = append(ref.bins, binEntry{bin: b, chunks: []chunk.Chunk{c}})
}

// UpdateLinear sets L[l] = min(L[l], v) for every leaf-tile index l in
// [leafBeg, leafEnd], growing the linear array as needed (spec §4.3
// step 5).
func (idx *Index) UpdateLinear(tid int, leafBeg, leafEnd int64, v voff.VOffset) {
	idx.Grow(tid)
	ref := &idx.refs[tid]
	need := leafEnd + 1
	if int64(len(ref.linear)) < need {
		linear := make([]voff.VOffset, need)
		set := make([]bool, need)
		copy(linear, ref.linear)
		copy(set, ref.linearSet)
		ref.linear = linear
		ref.linearSet = set
	}
	for l := leafBeg; l <= leafEnd; l++ {
		if !ref.linearSet[l] || v < ref.linear[l] {
			ref.linear[l] = v
			ref.linearSet[l] = true
		}
	}
}

// AddRecordStats accumulates per-reference mapping statistics: the
// first call establishes the reference's chunk span, subsequent calls
// extend its end, and the mapped/unmapped counters are incremented
// according to mapped.
func (idx *Index) AddRecordStats(tid int, c chunk.Chunk, mapped bool) {
	idx.Grow(tid)
	ref := &idx.refs[tid]
	if ref.stats == nil {
		ref.stats = &Stats{Chunk: c}
	} else {
		ref.stats.Chunk.End = c.End
	}
	if mapped {
		ref.stats.Mapped++
	} else {
		ref.stats.Unmapped++
	}
}

// Stats returns the accumulated statistics for tid and true if any were
// recorded.
func (idx *Index) Stats(tid int) (Stats, bool) {
	if tid < 0 || tid >= len(idx.refs) || idx.refs[tid].stats == nil {
		return Stats{}, false
	}
	return *idx.refs[tid].stats, true
}

// SetStats overwrites the statistics for tid, used by the serializer
// when loading a persisted meta bin.
func (idx *Index) SetStats(tid int, s Stats) {
	idx.Grow(tid)
	cp := s
	idx.refs[tid].stats = &cp
}

// Linear returns the linear offset array for tid. The returned slice
// must not be modified.
func (idx *Index) Linear(tid int) []voff.VOffset {
	if tid < 0 || tid >= len(idx.refs) {
		return nil
	}
	return idx.refs[tid].linear
}

// SetLinear replaces the linear offset array for tid wholesale, used by
// the serializer when loading a persisted index.
func (idx *Index) SetLinear(tid int, linear []voff.VOffset) {
	idx.Grow(tid)
	set := make([]bool, len(linear))
	for i := range set {
		set[i] = true
	}
	idx.refs[tid].linear = linear
	idx.refs[tid].linearSet = set
}

// Bins returns the bin numbers, chunk lists and loffs for tid, in
// bin-number order once Finish has run and in insertion order before.
// Chunks returned are as stored; call Finish first to obtain the
// merged, sorted form required on disk.
func (idx *Index) Bins(tid int) (nums []uint32, chunks [][]chunk.Chunk, loffs []voff.VOffset) {
	if tid < 0 || tid >= len(idx.refs) {
		return nil, nil, nil
	}
	ref := idx.refs[tid]
	for _, b := range ref.bins {
		nums = append(nums, b.bin)
		chunks = append(chunks, b.chunks)
		loffs = append(loffs, b.loff)
	}
	return nums, chunks, loffs
}

// SetBin installs a bin's chunk list and loff directly, used by the
// serializer when loading a persisted index.
func (idx *Index) SetBin(tid int, b uint32, loff voff.VOffset, chunks []chunk.Chunk) {
	idx.Grow(tid)
	ref := &idx.refs[tid]
	ref.bins = append(ref.bins, binEntry{bin: b, loff: loff, chunks: chunks})
	idx.sorted = false
}

// statsChunks packs s into the two chunks the meta bin carries on disk
// (spec §3.8 invariant 4): the first is the reference's own mapped-span
// chunk, the second repurposes a chunk's begin/end fields to hold the
// mapped/unmapped counts, mirroring the teacher's dummy-bin stats
// encoding (internal/index_write.go:writeStats, csi/csi_write.go:writeStats).
func statsChunks(s Stats) []chunk.Chunk {
	return []chunk.Chunk{
		{Begin: s.Chunk.Begin, End: s.Chunk.End},
		{Begin: voff.VOffset(s.Mapped), End: voff.VOffset(s.Unmapped)},
	}
}

// Finish sorts each reference's bins by bin number, sorts and coalesces
// each non-meta bin's chunk list (chunk.Adjacent), fills any holes in
// the linear index by forward-propagating the last seen offset so it is
// monotone non-decreasing (spec §4.3), computes each non-meta bin's
// loff as the minimum linear-index value across the leaf tiles the bin
// spans (spec §3.4/§4.3), and (re-)materializes the meta bin as a real
// bin entry carrying the two stats chunks (spec §3.8 invariant 4), so
// it serializes in-band exactly like any other bin. It is idempotent.
func (idx *Index) Finish() {
	metaBin := bin.MetaBin(idx.Depth)
	for r := range idx.refs {
		ref := &idx.refs[r]

		kept := ref.bins[:0]
		for _, be := range ref.bins {
			if be.bin != metaBin {
				kept = append(kept, be)
			}
		}
		ref.bins = kept
		if ref.stats != nil {
			ref.bins = append(ref.bins, binEntry{bin: metaBin, chunks: statsChunks(*ref.stats)})
		}

		sort.Sort(byBinNumber(ref.bins))
		for i := range ref.bins {
			if ref.bins[i].bin == metaBin {
				continue
			}
			chunk.Sort(ref.bins[i].chunks)
			ref.bins[i].chunks = chunk.Adjacent(ref.bins[i].chunks)
		}

		var last voff.VOffset
		haveLast := false
		for i := range ref.linear {
			if ref.linearSet[i] {
				last = ref.linear[i]
				haveLast = true
			} else if haveLast {
				ref.linear[i] = last
				ref.linearSet[i] = true
			}
		}

		for i := range ref.bins {
			if ref.bins[i].bin == metaBin {
				ref.bins[i].loff = 0
				continue
			}
			beg, end := bin.Range(ref.bins[i].bin, idx.MinShift, idx.Depth)
			lo := beg >> idx.MinShift
			hi := (end - 1) >> idx.MinShift
			if hi >= int64(len(ref.linear)) {
				hi = int64(len(ref.linear)) - 1
			}
			var loff voff.VOffset
			set := false
			for l := lo; l <= hi && l >= 0; l++ {
				if !ref.linearSet[l] {
					continue
				}
				if !set || ref.linear[l] < loff {
					loff = ref.linear[l]
					set = true
				}
			}
			ref.bins[i].loff = loff
		}
	}
	idx.sorted = true
}

func (idx *Index) sort() {
	if idx.sorted {
		return
	}
	idx.Finish()
}

// Query returns the ordered, merged chunk list covering [beg,end) on
// reference tid (spec §4.4). It does not special-case
// HTS_IDX_START/HTS_IDX_NOCOOR; callers handle those sentinels before
// calling Query (see region.TidStart and region.TidNoCoor, and the
// NoCoorChunk field).
func (idx *Index) Query(tid int, beg, end int64) ([]chunk.Chunk, error) {
	if tid < 0 || tid >= len(idx.refs) {
		return nil, ErrNoReference
	}
	idx.sort()
	ref := idx.refs[tid]

	var minOff voff.VOffset
	leaf := bin.FirstLeaf(beg, idx.MinShift)
	if leaf >= 0 && leaf < int64(len(ref.linear)) && ref.linearSet[leaf] {
		minOff = ref.linear[leaf]
	}

	var chunks []chunk.Chunk
	for _, b := range bin.OverlappingBins(beg, end, idx.MinShift, idx.Depth) {
		i := sort.Search(len(ref.bins), func(i int) bool { return ref.bins[i].bin >= b })
		if i >= len(ref.bins) || ref.bins[i].bin != b {
			continue
		}
		for _, c := range ref.bins[i].chunks {
			if c.End <= minOff {
				continue
			}
			chunks = append(chunks, c)
		}
	}

	chunk.Sort(chunks)
	return chunk.Adjacent(chunks), nil
}

type byBinNumber []binEntry

func (b byBinNumber) Len() int           { return len(b) }
func (b byBinNumber) Less(i, j int) bool { return b[i].bin < b[j].bin }
func (b byBinNumber) Swap(i, j int)      { b[i], b[j] = b[j], b[i] }
