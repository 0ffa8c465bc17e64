// Copyright ©2024 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package store

import (
	"testing"

	"github.com/kr/pretty"
	"gopkg.in/check.v1"

	"github.com/biogo/tbx/bin"
	"github.com/biogo/tbx/chunk"
	"github.com/biogo/tbx/voff"
)

func Test(t *testing.T) { check.TestingT(t) }

type S struct{}

var _ = check.Suite(&S{})

func v(n uint64) voff.VOffset { return voff.VOffset(n) }

// pdiff prints a kr/pretty diff of got vs want for gocheck failure
// messages, used the same way builder's test suite uses utter.Sdump:
// an expensive pretty-print reserved for the failure path.
func pdiff(got, want interface{}) string {
	diffs := pretty.Diff(got, want)
	s := "diffs:\n"
	for _, d := range diffs {
		s += "  " + d + "\n"
	}
	return s
}

func (s *S) TestAddChunkMergesContiguous(c *check.C) {
	idx := New(bin.LegacyMinShift, bin.LegacyDepth)
	b := bin.BinFor(0, 100, idx.MinShift, idx.Depth)
	idx.AddChunk(0, b, chunk.Chunk{Begin: v(0), End: v(10)})
	idx.AddChunk(0, b, chunk.Chunk{Begin: v(10), End: v(20)})
	nums, chunks, _ := idx.Bins(0)
	c.Assert(nums, check.HasLen, 1)
	c.Assert(chunks[0], check.DeepEquals, []chunk.Chunk{{Begin: v(0), End: v(20)}}, check.Commentf("%s", pdiff(chunks[0], []chunk.Chunk{{Begin: v(0), End: v(20)}})))
}

func (s *S) TestFinishSortsBinsAndFillsLinearHoles(c *check.C) {
	idx := New(bin.LegacyMinShift, bin.LegacyDepth)
	b1 := bin.BinFor(0, 1, idx.MinShift, idx.Depth)
	b2 := bin.BinFor(1<<20, 1<<20+1, idx.MinShift, idx.Depth)
	idx.AddChunk(0, b2, chunk.Chunk{Begin: v(100), End: v(200)})
	idx.AddChunk(0, b1, chunk.Chunk{Begin: v(0), End: v(100)})
	idx.UpdateLinear(0, 0, 0, v(0))
	idx.UpdateLinear(0, 64, 64, v(100)) // position 1<<20 / 2^14 = 64
	idx.Finish()

	nums, _, _ := idx.Bins(0)
	for i := 1; i < len(nums); i++ {
		c.Assert(nums[i-1] < nums[i], check.Equals, true)
	}

	linear := idx.Linear(0)
	c.Assert(len(linear) >= 65, check.Equals, true)
	for i := 1; i < 65; i++ {
		c.Assert(linear[i-1] <= linear[i], check.Equals, true)
	}
	// hole at index 1..63 should be filled with the value at index 0.
	c.Assert(linear[30], check.Equals, v(0))
}

func (s *S) TestQueryPrunesByLinearIndex(c *check.C) {
	idx := New(bin.LegacyMinShift, bin.LegacyDepth)
	b := bin.BinFor(0, 10, idx.MinShift, idx.Depth)
	idx.AddChunk(0, b, chunk.Chunk{Begin: v(0), End: v(10)})
	idx.UpdateLinear(0, 0, 0, v(50))
	idx.Finish()

	got, err := idx.Query(0, 0, 10)
	c.Assert(err, check.IsNil)
	// chunk end (10) <= min_off (50), so it must be pruned away.
	c.Assert(got, check.HasLen, 0)
}

func (s *S) TestQueryReturnsCoveringChunk(c *check.C) {
	idx := New(bin.LegacyMinShift, bin.LegacyDepth)
	b := bin.BinFor(100, 200, idx.MinShift, idx.Depth)
	idx.AddChunk(0, b, chunk.Chunk{Begin: v(0), End: v(1000)})
	idx.UpdateLinear(0, 0, 0, v(0))
	idx.Finish()

	got, err := idx.Query(0, 100, 200)
	c.Assert(err, check.IsNil)
	c.Assert(got, check.DeepEquals, []chunk.Chunk{{Begin: v(0), End: v(1000)}})
}

func (s *S) TestQueryUnknownReference(c *check.C) {
	idx := New(bin.LegacyMinShift, bin.LegacyDepth)
	_, err := idx.Query(5, 0, 10)
	c.Assert(err, check.Equals, ErrNoReference)
}

func (s *S) TestAddRecordStats(c *check.C) {
	idx := New(bin.LegacyMinShift, bin.LegacyDepth)
	idx.AddRecordStats(0, chunk.Chunk{Begin: v(0), End: v(10)}, true)
	idx.AddRecordStats(0, chunk.Chunk{Begin: v(10), End: v(20)}, false)
	st, ok := idx.Stats(0)
	c.Assert(ok, check.Equals, true)
	c.Assert(st.Mapped, check.Equals, uint64(1))
	c.Assert(st.Unmapped, check.Equals, uint64(1))
	c.Assert(st.Chunk, check.DeepEquals, chunk.Chunk{Begin: v(0), End: v(20)})
}
