// Copyright ©2024 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bin

import (
	"testing"
)

func TestNumBinsAndMetaBin(t *testing.T) {
	// Legacy TBI hierarchy: n_bins = (8^6-1)/7 = 37449.
	got := NumBins(LegacyDepth)
	want := uint32(37449)
	if got != want {
		t.Errorf("NumBins(%d) = %d, want %d", LegacyDepth, got, want)
	}
	if MetaBin(LegacyDepth) != want+1 {
		t.Errorf("MetaBin(%d) = %d, want %d", LegacyDepth, MetaBin(LegacyDepth), want+1)
	}
}

func TestMaxPos(t *testing.T) {
	got := MaxPos(LegacyMinShift, LegacyDepth)
	want := int64(1) << 29
	if got != want {
		t.Errorf("MaxPos(14,5) = %d, want %d", got, want)
	}
}

func TestBinForIsInOverlapping(t *testing.T) {
	cases := [][2]int64{
		{0, 1}, {0, 100}, {1000, 2000}, {1 << 14, 1<<14 + 1},
		{0, 1 << 29}, {100, 100 + 1<<20},
	}
	for _, c := range cases {
		beg, end := c[0], c[1]
		b := BinFor(beg, end, LegacyMinShift, LegacyDepth)
		overlap := OverlappingBins(beg, end, LegacyMinShift, LegacyDepth)
		found := false
		for _, o := range overlap {
			if o == b {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("BinFor(%d,%d)=%d not in OverlappingBins(%d,%d)=%v", beg, end, b, beg, end, overlap)
		}
	}
}

func TestBinForRootForLargeInterval(t *testing.T) {
	b := BinFor(0, MaxPos(LegacyMinShift, LegacyDepth), LegacyMinShift, LegacyDepth)
	if b != 0 {
		t.Errorf("BinFor spanning whole range = %d, want 0 (root)", b)
	}
}

func TestFirstLeaf(t *testing.T) {
	if FirstLeaf(0, LegacyMinShift) != 0 {
		t.Errorf("FirstLeaf(0) = %d, want 0", FirstLeaf(0, LegacyMinShift))
	}
	if FirstLeaf(1<<LegacyMinShift, LegacyMinShift) != 1 {
		t.Errorf("FirstLeaf(2^minShift) = %d, want 1", FirstLeaf(1<<LegacyMinShift, LegacyMinShift))
	}
}

func TestRangeRoundTripsBinFor(t *testing.T) {
	cases := [][2]int64{
		{0, 1}, {0, 100}, {1000, 2000}, {1 << 14, 1<<14 + 1},
		{100, 100 + 1<<20},
	}
	for _, c := range cases {
		beg, end := c[0], c[1]
		b := BinFor(beg, end, LegacyMinShift, LegacyDepth)
		rBeg, rEnd := Range(b, LegacyMinShift, LegacyDepth)
		if beg < rBeg || end > rEnd {
			t.Errorf("Range(BinFor(%d,%d)=%d) = [%d,%d), does not cover [%d,%d)", beg, end, b, rBeg, rEnd, beg, end)
		}
	}
}

func TestRangeRoot(t *testing.T) {
	beg, end := Range(0, LegacyMinShift, LegacyDepth)
	if beg != 0 || end != MaxPos(LegacyMinShift, LegacyDepth) {
		t.Errorf("Range(0) = [%d,%d), want [0,%d)", beg, end, MaxPos(LegacyMinShift, LegacyDepth))
	}
}

func TestRangeFirstLeaf(t *testing.T) {
	b := FirstBin(LegacyDepth)
	beg, end := Range(b, LegacyMinShift, LegacyDepth)
	if beg != 0 || end != 1<<LegacyMinShift {
		t.Errorf("Range(firstLeaf) = [%d,%d), want [0,%d)", beg, end, int64(1)<<LegacyMinShift)
	}
}

func TestMinimumShiftAndDepthFor(t *testing.T) {
	shift, ok := MinimumShiftFor(1<<29-1, LegacyDepth)
	if !ok || shift != LegacyMinShift {
		t.Errorf("MinimumShiftFor(2^29-1,5) = %d,%v, want %d,true", shift, ok, LegacyMinShift)
	}
	depth, ok := MinimumDepthFor(1<<29-1, LegacyMinShift)
	if !ok || depth != LegacyDepth {
		t.Errorf("MinimumDepthFor(2^29-1,14) = %d,%v, want %d,true", depth, ok, LegacyDepth)
	}
}

func TestValidPos(t *testing.T) {
	if !ValidPos(-1, LegacyMinShift, LegacyDepth) {
		t.Error("ValidPos(-1) should be true (sentinel)")
	}
	if !ValidPos(MaxPos(LegacyMinShift, LegacyDepth)-1, LegacyMinShift, LegacyDepth) {
		t.Error("ValidPos(maxPos-1) should be true")
	}
	if ValidPos(MaxPos(LegacyMinShift, LegacyDepth), LegacyMinShift, LegacyDepth) {
		t.Error("ValidPos(maxPos) should be false")
	}
}
