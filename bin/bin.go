// Copyright ©2024 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package bin implements the pure integer math of the 8-ary hierarchical
// binning scheme shared by the legacy TBI format (fixed minShift=14,
// depth=5) and the tunable CSI format. It has no knowledge of chunks,
// references, or any on-disk layout.
package bin

// fanoutShift is log2 of the per-level fanout (8-ary hierarchy).
const fanoutShift = 3

// LegacyMinShift and LegacyDepth are the fixed parameters of the legacy
// TBI on-disk format.
const (
	LegacyMinShift = 14
	LegacyDepth    = 5
)

// NumBins returns the total number of bins (excluding the meta bin) in a
// hierarchy of the given depth.
func NumBins(depth uint32) uint32 {
	return (uint32(1)<<(fanoutShift*(depth+1)) - 1) / 7
}

// MetaBin returns the distinguished meta-bin index for a hierarchy of the
// given depth: NumBins(depth)+1.
func MetaBin(depth uint32) uint32 {
	return NumBins(depth) + 1
}

// FirstBin returns the index of the first bin at level L (root=0).
func FirstBin(level uint32) uint32 {
	return (uint32(1)<<(fanoutShift*level) - 1) / 7
}

// MaxPos returns the exclusive upper bound on positions indexable by a
// hierarchy with the given minShift and depth: 1<<(minShift+3*depth).
func MaxPos(minShift, depth uint32) int64 {
	return int64(1) << (minShift + fanoutShift*depth)
}

// ValidPos reports whether the 0-based position p can be indexed by a
// hierarchy with the given minShift and depth.
func ValidPos(p int64, minShift, depth uint32) bool {
	return -1 <= p && p <= MaxPos(minShift, depth)-1
}

// BinFor returns the bin number for the smallest level fully containing
// the half-open interval [beg,end).
func BinFor(beg, end int64, minShift, depth uint32) uint32 {
	end--
	shift := minShift
	first := FirstBin(depth)
	for level := depth; level > 0; level-- {
		offset := beg >> shift
		if offset == end>>shift {
			return first + uint32(offset)
		}
		shift += fanoutShift
		first -= uint32(1) << ((level - 1) * fanoutShift)
	}
	return 0
}

// OverlappingBins returns, in ascending order, the bin numbers of every
// bin that may contain a record overlapping [beg,end).
func OverlappingBins(beg, end int64, minShift, depth uint32) []uint32 {
	end--
	var list []uint32
	shift := minShift + depth*fanoutShift
	first := uint32(0)
	for level := uint32(0); level <= depth; level++ {
		lo := first + uint32(beg>>shift)
		hi := first + uint32(end>>shift)
		for b := lo; b <= hi; b++ {
			list = append(list, b)
		}
		shift -= fanoutShift
		first += uint32(1) << (level * fanoutShift)
	}
	return list
}

// FirstLeaf returns the 0-based leaf-tile index containing position p:
// the index into the per-reference linear offset array (§3.5), not an
// absolute bin number from BinFor/OverlappingBins. This mirrors the
// teacher's own linear-index addressing (position / tile width) rather
// than the separate, much larger absolute bin-number space.
func FirstLeaf(p int64, minShift uint32) int64 {
	return p >> minShift
}

// LeafWidth returns the width, in reference positions, of one leaf bin.
func LeafWidth(minShift uint32) int64 {
	return int64(1) << minShift
}

// MinimumShiftFor returns the lowest minShift value that can index the
// given maximum 0-based position at the given depth.
func MinimumShiftFor(max int64, depth uint32) (uint32, bool) {
	for shift := uint32(0); shift < 32; shift++ {
		if ValidPos(max, shift, depth) {
			return shift, true
		}
	}
	return 0, false
}

// MinimumDepthFor returns the lowest depth value that can index the
// given maximum 0-based position at the given minShift.
func MinimumDepthFor(max int64, minShift uint32) (uint32, bool) {
	for depth := uint32(0); depth < 32; depth++ {
		if ValidPos(max, minShift, depth) {
			return depth, true
		}
	}
	return 0, false
}

// Range returns the half-open reference-coordinate span [beg,end)
// covered by bin b in a hierarchy with the given minShift and depth.
// It is the inverse of BinFor/OverlappingBins, used to map a bin number
// back to the leaf-tile range it spans for loff computation (§4.3).
func Range(b uint32, minShift, depth uint32) (beg, end int64) {
	level := uint32(0)
	for l := depth; ; l-- {
		if b >= FirstBin(l) {
			level = l
			break
		}
		if l == 0 {
			break
		}
	}
	shift := minShift + fanoutShift*(depth-level)
	offset := int64(b - FirstBin(level))
	beg = offset << shift
	end = beg + (int64(1) << shift)
	return beg, end
}
