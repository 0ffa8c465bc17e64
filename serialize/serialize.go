// Copyright ©2024 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package serialize implements the on-disk index format of spec §4.7:
// a fixed 28-byte preamble (§3.7) followed by the concatenated,
// NUL-terminated reference name block, followed by the per-reference
// bin/chunk/linear-index payload in the widely deployed CSI/TBI style.
// Package serialize does not perform BGZF compression; callers wrap the
// returned bytes in whatever block-compressed container they use (spec
// §1 scopes BGZF itself out).
package serialize

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/exp/mmap"

	"github.com/biogo/tbx/bin"
	"github.com/biogo/tbx/chunk"
	"github.com/biogo/tbx/record"
	"github.com/biogo/tbx/refdict"
	"github.com/biogo/tbx/store"
	"github.com/biogo/tbx/voff"
)

// Format selects the on-disk container: TBI carries the legacy fixed
// bin parameters (min_shift=14, n_lvls=5); CSI carries them explicitly,
// tunable per index.
type Format int

const (
	TBI Format = iota
	CSI
)

var (
	tbiMagic = [4]byte{'T', 'B', 'I', 1}
	csiMagic = [4]byte{'C', 'S', 'I', 1}
)

const (
	legacyMinShift = 14
	legacyDepth    = 5

	headerSize = 28
)

var (
	// ErrBadMagic is returned when the leading 4 bytes of a stream
	// match neither the TBI nor the CSI magic number.
	ErrBadMagic = errors.New("serialize: magic number mismatch")
	// ErrTruncated is returned when the preamble declares a negative
	// name-block length. A stream that ends before the preamble or name
	// block is complete yields a wrapped read error, not ErrTruncated.
	ErrTruncated = errors.New("serialize: truncated index")
)

// Header holds the §3.7 preamble fields, excluding the names-block
// length (which Write/Read derive from the Names slice).
type Header struct {
	// Preset packs the record-parser preset tag in its low 16 bits and
	// format flags (bit 0: UCSC) in its high 16 bits.
	Preset uint32

	SeqCol, BeginCol, EndCol int32
	MetaChar                 byte
	Skip                     int32
}

const ucscFlag = 1 << 16

// HeaderFromConfig packs a record.Config into the on-disk Header form.
func HeaderFromConfig(cfg record.Config) Header {
	preset := uint32(cfg.Preset)
	if cfg.UCSC {
		preset |= ucscFlag
	}
	return Header{
		Preset:   preset,
		SeqCol:   int32(cfg.SeqCol),
		BeginCol: int32(cfg.BeginCol),
		EndCol:   int32(cfg.EndCol),
		MetaChar: cfg.MetaChar,
		Skip:     int32(cfg.Skip),
	}
}

// Config unpacks h into a record.Config. FormatLenOnlyForGVCF is not
// part of the on-disk format (it governs parsing, not storage) and is
// always set true, matching the Open Question #1 default.
func (h Header) Config() record.Config {
	return record.Config{
		Preset:               record.Preset(h.Preset & 0xffff),
		SeqCol:               int(h.SeqCol),
		BeginCol:             int(h.BeginCol),
		EndCol:               int(h.EndCol),
		MetaChar:             h.MetaChar,
		Skip:                 int(h.Skip),
		UCSC:                 h.Preset&ucscFlag != 0,
		FormatLenOnlyForGVCF: true,
	}
}

// Write emits format, hdr, the names from dict, and the contents of idx
// to w. idx.Finish must have already been called (a caller-visible
// contract, not re-verified here, since Finish is idempotent and cheap
// to call defensively).
func Write(w io.Writer, format Format, hdr Header, dict *refdict.Dict, idx *store.Index) error {
	magic := tbiMagic
	if format == CSI {
		magic = csiMagic
	}
	if err := binary.Write(w, binary.LittleEndian, magic); err != nil {
		return err
	}
	if format == CSI {
		if err := binary.Write(w, binary.LittleEndian, idx.MinShift); err != nil {
			return fmt.Errorf("serialize: failed to write min_shift: %v", err)
		}
		if err := binary.Write(w, binary.LittleEndian, idx.Depth); err != nil {
			return fmt.Errorf("serialize: failed to write depth: %v", err)
		}
	}

	names := dict.Names()
	nameBlock := encodeNames(names)
	if err := writeHeader(w, hdr, int32(len(nameBlock))); err != nil {
		return err
	}
	if _, err := w.Write(nameBlock); err != nil {
		return fmt.Errorf("serialize: failed to write name block: %v", err)
	}

	if err := binary.Write(w, binary.LittleEndian, int32(len(names))); err != nil {
		return fmt.Errorf("serialize: failed to write reference count: %v", err)
	}
	for tid := range names {
		if err := writeRef(w, format, idx, tid); err != nil {
			return fmt.Errorf("serialize: reference %d: %v", tid, err)
		}
	}

	return writeNoCoor(w, idx.NoCoorChunk)
}

func encodeNames(names []string) []byte {
	var b strings.Builder
	for _, n := range names {
		b.WriteString(n)
		b.WriteByte(0)
	}
	return []byte(b.String())
}

func writeHeader(w io.Writer, hdr Header, lenNames int32) error {
	fields := [7]int32{
		int32(hdr.Preset),
		hdr.SeqCol,
		hdr.BeginCol,
		hdr.EndCol,
		int32(hdr.MetaChar),
		hdr.Skip,
		lenNames,
	}
	if err := binary.Write(w, binary.LittleEndian, fields); err != nil {
		return fmt.Errorf("serialize: failed to write header: %v", err)
	}
	return nil
}

// writeRef writes the bin list (meta bin included, per store.Index.Finish)
// for tid. The per-bin loff field is a CSI-only addition over the legacy
// TBI/BAI bin record (teacher internal/index_write.go:writeBins carries no
// loff at all; only csi/csi_write.go:writeBins does), so it is only
// written when format is CSI.
func writeRef(w io.Writer, format Format, idx *store.Index, tid int) error {
	nums, chunks, loffs := idx.Bins(tid)
	if err := binary.Write(w, binary.LittleEndian, int32(len(nums))); err != nil {
		return fmt.Errorf("failed to write bin count: %v", err)
	}
	for i, num := range nums {
		if err := binary.Write(w, binary.LittleEndian, num); err != nil {
			return fmt.Errorf("failed to write bin number: %v", err)
		}
		if format == CSI {
			if err := binary.Write(w, binary.LittleEndian, uint64(loffs[i])); err != nil {
				return fmt.Errorf("failed to write bin loff: %v", err)
			}
		}
		if err := writeChunks(w, chunks[i]); err != nil {
			return err
		}
	}

	linear := idx.Linear(tid)
	if err := binary.Write(w, binary.LittleEndian, int32(len(linear))); err != nil {
		return fmt.Errorf("failed to write linear-index length: %v", err)
	}
	for _, v := range linear {
		if err := binary.Write(w, binary.LittleEndian, uint64(v)); err != nil {
			return fmt.Errorf("failed to write linear-index entry: %v", err)
		}
	}
	return nil
}

func writeChunks(w io.Writer, chunks []chunk.Chunk) error {
	if err := binary.Write(w, binary.LittleEndian, int32(len(chunks))); err != nil {
		return fmt.Errorf("failed to write chunk count: %v", err)
	}
	for _, c := range chunks {
		if err := binary.Write(w, binary.LittleEndian, [2]uint64{uint64(c.Begin), uint64(c.End)}); err != nil {
			return fmt.Errorf("failed to write chunk: %v", err)
		}
	}
	return nil
}

func writeNoCoor(w io.Writer, c *chunk.Chunk) error {
	if c == nil {
		_, err := w.Write([]byte{0})
		return err
	}
	if _, err := w.Write([]byte{1}); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, [2]uint64{uint64(c.Begin), uint64(c.End)})
}

// OpenFile mmaps the index file at path and parses it, mirroring
// fai.OpenFile's pattern of pairing a parsed index with a mmapped
// backing file rather than reading the whole file into memory up
// front. The returned Index and Dict remain valid after OpenFile
// returns; the mapping itself is closed once parsing completes, since
// (unlike fai's sequence data) nothing here keeps reading from the
// backing file after the index has been decoded into memory.
func OpenFile(path string) (Format, Header, *refdict.Dict, *store.Index, error) {
	ra, err := mmap.Open(path)
	if err != nil {
		return 0, Header{}, nil, nil, err
	}
	defer ra.Close()
	return Read(io.NewSectionReader(ra, 0, int64(ra.Len())))
}

// Read parses a stream written by Write, returning the container
// format, the unpacked header, a frozen reference dictionary, and a
// fully populated, finished Index ready for querying.
func Read(r io.Reader) (Format, Header, *refdict.Dict, *store.Index, error) {
	var magic [4]byte
	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil {
		return 0, Header{}, nil, nil, err
	}
	var format Format
	switch magic {
	case tbiMagic:
		format = TBI
	case csiMagic:
		format = CSI
	default:
		return 0, Header{}, nil, nil, ErrBadMagic
	}

	minShift := uint32(legacyMinShift)
	depth := uint32(legacyDepth)
	if format == CSI {
		if err := binary.Read(r, binary.LittleEndian, &minShift); err != nil {
			return 0, Header{}, nil, nil, fmt.Errorf("serialize: failed to read min_shift: %v", err)
		}
		if err := binary.Read(r, binary.LittleEndian, &depth); err != nil {
			return 0, Header{}, nil, nil, fmt.Errorf("serialize: failed to read depth: %v", err)
		}
		if !bin.ValidPos(0, minShift, depth) {
			return 0, Header{}, nil, nil, errors.New("serialize: invalid min_shift/depth")
		}
	}

	hdr, lenNames, err := readHeader(r)
	if err != nil {
		return 0, Header{}, nil, nil, err
	}
	if lenNames < 0 {
		return 0, Header{}, nil, nil, ErrTruncated
	}
	nameBytes := make([]byte, lenNames)
	if _, err := io.ReadFull(r, nameBytes); err != nil {
		return 0, Header{}, nil, nil, fmt.Errorf("serialize: failed to read name block: %v", err)
	}
	dict, err := decodeNames(nameBytes)
	if err != nil {
		return 0, Header{}, nil, nil, err
	}

	var n int32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return 0, Header{}, nil, nil, fmt.Errorf("serialize: failed to read reference count: %v", err)
	}
	if int(n) != dict.NumRefs() {
		return 0, Header{}, nil, nil, fmt.Errorf("serialize: reference count mismatch: %d names, %d refs", dict.NumRefs(), n)
	}

	idx := store.New(minShift, depth)
	for tid := 0; tid < int(n); tid++ {
		if err := readRef(r, format, idx, tid); err != nil {
			return 0, Header{}, nil, nil, fmt.Errorf("serialize: reference %d: %v", tid, err)
		}
	}
	noCoor, err := readNoCoor(r)
	if err != nil {
		return 0, Header{}, nil, nil, err
	}
	idx.NoCoorChunk = noCoor
	idx.Finish()

	return format, hdr, dict, idx, nil
}

func readHeader(r io.Reader) (Header, int32, error) {
	var fields [7]int32
	if err := binary.Read(r, binary.LittleEndian, &fields); err != nil {
		return Header{}, 0, fmt.Errorf("serialize: failed to read header: %v", err)
	}
	hdr := Header{
		Preset:   uint32(fields[0]),
		SeqCol:   fields[1],
		BeginCol: fields[2],
		EndCol:   fields[3],
		MetaChar: byte(fields[4]),
		Skip:     fields[5],
	}
	return hdr, fields[6], nil
}

func decodeNames(b []byte) (*refdict.Dict, error) {
	dict := refdict.New()
	if len(b) == 0 {
		dict.Freeze()
		return dict, nil
	}
	if b[len(b)-1] != 0 {
		return nil, errors.New("serialize: name block not NUL-terminated")
	}
	start := 0
	for i, c := range b {
		if c != 0 {
			continue
		}
		dict.Intern(string(b[start:i]))
		start = i + 1
	}
	dict.Freeze()
	return dict, nil
}

// readRef is the inverse of writeRef. A bin entry whose number equals
// bin.MetaBin(idx.Depth) is the in-band stats dummy bin (spec §3.8
// invariant 4): it is decoded into store.Stats rather than installed as
// a queryable bin, matching the teacher's dummy-bin stats trick
// (internal/index_read.go / csi/csi_read.go).
func readRef(r io.Reader, format Format, idx *store.Index, tid int) error {
	metaBin := bin.MetaBin(idx.Depth)
	var nBins int32
	if err := binary.Read(r, binary.LittleEndian, &nBins); err != nil {
		return fmt.Errorf("failed to read bin count: %v", err)
	}
	for i := int32(0); i < nBins; i++ {
		var num uint32
		if err := binary.Read(r, binary.LittleEndian, &num); err != nil {
			return fmt.Errorf("failed to read bin number: %v", err)
		}
		var loff uint64
		if format == CSI {
			if err := binary.Read(r, binary.LittleEndian, &loff); err != nil {
				return fmt.Errorf("failed to read bin loff: %v", err)
			}
		}
		chunks, err := readChunks(r)
		if err != nil {
			return err
		}
		if num == metaBin {
			if len(chunks) != 2 {
				return fmt.Errorf("serialize: meta bin has %d chunks, want 2", len(chunks))
			}
			idx.SetStats(tid, store.Stats{
				Chunk:    chunks[0],
				Mapped:   uint64(chunks[1].Begin),
				Unmapped: uint64(chunks[1].End),
			})
			continue
		}
		idx.SetBin(tid, num, voff.VOffset(loff), chunks)
	}

	var nLinear int32
	if err := binary.Read(r, binary.LittleEndian, &nLinear); err != nil {
		return fmt.Errorf("failed to read linear-index length: %v", err)
	}
	if nLinear > 0 {
		linear := make([]voff.VOffset, nLinear)
		for i := range linear {
			var v uint64
			if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
				return fmt.Errorf("failed to read linear-index entry: %v", err)
			}
			linear[i] = voff.VOffset(v)
		}
		idx.SetLinear(tid, linear)
	}
	return nil
}

func readChunks(r io.Reader) ([]chunk.Chunk, error) {
	var n int32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, fmt.Errorf("failed to read chunk count: %v", err)
	}
	if n == 0 {
		return nil, nil
	}
	chunks := make([]chunk.Chunk, n)
	for i := range chunks {
		var values [2]uint64
		if err := binary.Read(r, binary.LittleEndian, &values); err != nil {
			return nil, fmt.Errorf("failed to read chunk: %v", err)
		}
		chunks[i] = chunk.Chunk{Begin: voff.VOffset(values[0]), End: voff.VOffset(values[1])}
	}
	return chunks, nil
}

func readNoCoor(r io.Reader) (*chunk.Chunk, error) {
	var flag [1]byte
	if _, err := io.ReadFull(r, flag[:]); err != nil {
		return nil, fmt.Errorf("serialize: failed to read no-coor flag: %v", err)
	}
	if flag[0] == 0 {
		return nil, nil
	}
	var values [2]uint64
	if err := binary.Read(r, binary.LittleEndian, &values); err != nil {
		return nil, fmt.Errorf("serialize: failed to read no-coor span: %v", err)
	}
	return &chunk.Chunk{Begin: voff.VOffset(values[0]), End: voff.VOffset(values[1])}, nil
}
