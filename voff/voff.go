// Copyright ©2024 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package voff implements the virtual file offset token used throughout
// the index: an opaque, monotonically nondecreasing 64-bit value returned
// by an external block-compressed reader.
package voff

// VOffset is an opaque virtual file offset. Its internal structure is
// owned by the external byte-stream collaborator (for BGZF-backed
// readers this is coffset<<16|uoffset); this package only orders and
// compares it.
type VOffset uint64

// Zero is the smallest possible virtual offset.
const Zero VOffset = 0

// Less reports whether v sorts before w.
func (v VOffset) Less(w VOffset) bool { return v < w }

// Min returns the smaller of v and w.
func Min(v, w VOffset) VOffset {
	if v < w {
		return v
	}
	return w
}

// Max returns the larger of v and w.
func Max(v, w VOffset) VOffset {
	if v > w {
		return v
	}
	return w
}

// Pack folds a coffset/uoffset pair into a single virtual offset using
// the widely deployed BGZF convention coffset<<16|uoffset. It exists so
// the on-disk index formats, which store this packed form, round-trip
// bit-identically without requiring every in-memory comparison to go
// through a split representation.
func Pack(coffset int64, uoffset uint16) VOffset {
	return VOffset(coffset<<16 | int64(uoffset))
}

// Unpack splits a virtual offset back into its coffset/uoffset
// components.
func Unpack(v VOffset) (coffset int64, uoffset uint16) {
	return int64(v) >> 16, uint16(v)
}
