// Copyright ©2024 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package builder implements the build-time state machine of spec §4.3:
// it streams sorted (tid, begin, end, voff, mapped) tuples in, enforces
// the sort-order and range invariants, accumulates per-bin chunks and
// the linear offset array, and hands a finished store.Index to the
// serializer. It owns exactly the state that is meaningless outside an
// in-progress build (run accumulation, last-seen-record identity); the
// store owns the data that survives past Finish.
package builder

import (
	"errors"

	"github.com/biogo/tbx/bin"
	"github.com/biogo/tbx/chunk"
	"github.com/biogo/tbx/diag"
	"github.com/biogo/tbx/store"
	"github.com/biogo/tbx/voff"
)

var (
	// ErrUnsortedInput is returned by Push when a record precedes the
	// previous one in voff or (tid, begin) order.
	ErrUnsortedInput = errors.New("builder: record out of sort order")

	// ErrInvalidRecord is returned by Push for a negative tid, an empty
	// or inverted interval, or a position beyond the hierarchy's
	// max_pos.
	ErrInvalidRecord = errors.New("builder: invalid record")

	// ErrAlreadyFinished is returned by Push or Finish once Finish has
	// already been called.
	ErrAlreadyFinished = errors.New("builder: already finished")
)

// Builder drives a store.Index through the build-time state machine. A
// Builder is single-owner: concurrent Push calls are disallowed. The
// zero value is not usable; use New.
type Builder struct {
	idx  *store.Index
	diag *diag.Sink

	haveSave bool
	saveTid  int
	saveBin  uint32
	saveOff  voff.VOffset

	haveLast bool
	lastTid  int
	lastCoor int64
	lastOff  voff.VOffset

	haveNoCoor  bool
	noCoorBegin voff.VOffset

	finished bool
}

// New returns a Builder that accumulates into idx, reporting non-fatal
// diagnostics to sink. A nil sink discards diagnostics.
func New(idx *store.Index, sink *diag.Sink) *Builder {
	if sink == nil {
		sink = diag.NewSink(nil)
	}
	return &Builder{idx: idx, diag: sink}
}

// Push ingests one placed record: reference tid, half-open interval
// [begin, end), the virtual offset marking the record's position in
// the underlying byte stream, and whether the record is mapped (spec
// §4.3). Records must arrive in non-decreasing (tid, begin) and voff
// order.
func (b *Builder) Push(tid int, begin, end int64, v voff.VOffset, mapped bool) error {
	if b.finished {
		return ErrAlreadyFinished
	}
	if tid < 0 || begin >= end || !bin.ValidPos(begin, b.idx.MinShift, b.idx.Depth) || !bin.ValidPos(end-1, b.idx.MinShift, b.idx.Depth) {
		return ErrInvalidRecord
	}
	if b.haveLast {
		if v.Less(b.lastOff) {
			return ErrUnsortedInput
		}
		if tid < b.lastTid || (tid == b.lastTid && begin < b.lastCoor) {
			return ErrUnsortedInput
		}
	}

	if begin < 0 {
		b.diag.NegativeBegin()
		begin = 0
		if end < 1 {
			end = 1
		}
	}

	binNum := bin.BinFor(begin, end, b.idx.MinShift, b.idx.Depth)

	if !b.haveSave || tid != b.saveTid || binNum != b.saveBin {
		b.flushRun(v)
		b.saveOff = v
		b.saveBin = binNum
		b.saveTid = tid
		b.haveSave = true
	}

	leafBeg := bin.FirstLeaf(begin, b.idx.MinShift)
	leafEnd := bin.FirstLeaf(end-1, b.idx.MinShift)
	b.idx.UpdateLinear(tid, leafBeg, leafEnd, v)

	b.idx.AddRecordStats(tid, chunk.Chunk{Begin: v, End: v}, mapped)

	b.lastTid = tid
	b.lastCoor = begin
	b.lastOff = v
	b.haveLast = true
	return nil
}

// PushUnplaced records a single record with no reference placement at
// all (query tid = HTS_IDX_NOCOOR), tracked as a span from the first
// such record's voff to the final voff given to Finish.
func (b *Builder) PushUnplaced(v voff.VOffset) error {
	if b.finished {
		return ErrAlreadyFinished
	}
	if !b.haveNoCoor {
		b.noCoorBegin = v
		b.haveNoCoor = true
	}
	return nil
}

// flushRun closes out the in-flight run, if any, as a chunk
// [saveOff, end) in bin saveBin of reference saveTid.
func (b *Builder) flushRun(end voff.VOffset) {
	if !b.haveSave {
		return
	}
	b.idx.AddChunk(b.saveTid, b.saveBin, chunk.Chunk{Begin: b.saveOff, End: end})
}

// Finish flushes the in-flight run, records the no-coordinate span (if
// any), and asks the store to sort, coalesce, and compute loff values.
// finalVoff is the virtual offset of the end of the input stream: the
// end of the last flushed chunk and of the no-coordinate span.
func (b *Builder) Finish(finalVoff voff.VOffset) error {
	if b.finished {
		return ErrAlreadyFinished
	}
	b.flushRun(finalVoff)
	if b.haveNoCoor {
		c := chunk.Chunk{Begin: b.noCoorBegin, End: finalVoff}
		b.idx.NoCoorChunk = &c
	}
	b.idx.Finish()
	b.finished = true
	return nil
}

// Finished reports whether Finish has been called.
func (b *Builder) Finished() bool { return b.finished }
