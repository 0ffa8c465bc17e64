// Copyright ©2024 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package record implements the preset-driven record-intent parser of
// spec §4.5: given one text line and a column configuration, it
// extracts the reference name and the reference-space half-open
// interval [begin, end) the record occupies. Fields are sliced out of
// the line rather than copied; the VCF ALT scan and a few string
// conversions still allocate.
package record

import (
	"errors"
	"strconv"

	"github.com/biogo/tbx/diag"
)

// Preset selects the column layout and per-format length rule used to
// derive a record's end coordinate.
type Preset int

const (
	// Generic covers GFF, BED, PSL and similar tab-delimited formats:
	// end is read directly from EndCol, or defaults to begin+1.
	Generic Preset = iota
	// SAM derives end from the CIGAR string in column 6.
	SAM
	// VCF derives end from REF length, symbolic ALT SVLEN, INFO/END
	// and, for gVCF records, the per-sample FORMAT/LEN field.
	VCF
	// GAF reads a signed node-id path from BeginCol and sets begin/end
	// to its minimum/maximum node id. The name is the SeqCol field, as
	// for the other presets; Parse does not map GAF records to a fixed
	// reference.
	GAF
)

// Config describes one preset's column layout, mirroring the conf
// structs the teacher formats carry one per file type (spec §4.5).
type Config struct {
	Preset Preset

	// SeqCol, BeginCol, EndCol are 1-based column numbers. EndCol==0
	// means "no explicit end column" (Generic only).
	SeqCol, BeginCol, EndCol int

	// MetaChar marks header/comment lines; Skip is the number of
	// leading lines that are headers regardless of MetaChar.
	MetaChar byte
	Skip     int

	// UCSC selects 0-based half-open input coordinates instead of the
	// default 1-based inclusive convention.
	UCSC bool

	// FormatLenOnlyForGVCF gates the VCF FORMAT/LEN scan behind the
	// presence of a gVCF "<*>"/"<NON_REF>" symbolic ALT, matching the
	// source implementation; set false to scan FORMAT/LEN for every
	// VCF record regardless of ALT (see DESIGN.md Open Questions).
	FormatLenOnlyForGVCF bool
}

// ErrMalformed is returned when a required numeric field is missing or
// unparsable.
var ErrMalformed = errors.New("record: malformed line")

const (
	vcfRefCol    = 4
	vcfAltCol    = 5
	vcfInfoCol   = 8
	vcfFormatCol = 9
	samCigarCol  = 6

	maxVCFAlts = 65535
)

// Parse extracts (name, begin, end) from line according to cfg,
// reporting non-fatal diagnostics through sink (which may be nil).
// Column fields are returned as slices into line; the caller must not
// retain name past line's lifetime without copying it.
func Parse(cfg Config, line []byte, sink *diag.Sink) (name []byte, begin, end int64, err error) {
	begin, end = -1, -1

	var (
		gotBegin             bool
		alts                 int
		useSVLen             [maxVCFAlts/8 + 1]byte
		anySVLen             bool
		getlen               bool
		lenPos               int = -1
		reflen, svlen, fmtlen int64
	)

	b := 0
	id := 1
	for i := 0; i <= len(line); i++ {
		if i != len(line) && line[i] != '\t' {
			continue
		}
		field := line[b:i]

		switch {
		case id == cfg.SeqCol:
			name = field

		case id == cfg.BeginCol:
			if cfg.Preset == GAF {
				var ok bool
				begin, end, ok = parseGAFPath(field)
				if !ok {
					return nil, 0, 0, ErrMalformed
				}
				gotBegin = true
				break
			}
			v, _, ok := scanLeadingInt(field)
			if !ok {
				return nil, 0, 0, ErrMalformed
			}
			if cfg.UCSC {
				begin = v
			} else {
				begin = v - 1
			}
			if begin < 0 {
				sink.NegativeBegin()
				begin = 0
			}
			if cfg.Preset == Generic && cfg.EndCol == 0 {
				end = begin + 1
			}
			gotBegin = true

		case cfg.Preset == Generic && cfg.EndCol > 0 && id == cfg.EndCol:
			v, _, ok := scanLeadingInt(field)
			if !ok {
				return nil, 0, 0, ErrMalformed
			}
			end = v

		case cfg.Preset == SAM && id == samCigarCol:
			end = begin + cigarRefLen(field)

		case cfg.Preset == VCF && id == vcfRefCol:
			reflen = int64(len(field))
			if len(field) > 0 {
				end = begin + reflen
			}

		case cfg.Preset == VCF && id == vcfAltCol:
			for _, alt := range splitAlts(field, maxVCFAlts) {
				onRef, sentinel := classifyVCFAlt(alt)
				if onRef {
					useSVLen[alts>>3] |= 1 << uint(alts&7)
					anySVLen = true
				} else if sentinel {
					getlen = true
				}
				alts++
			}

		case cfg.Preset == VCF && id == vcfInfoCol:
			if v, ok := findINFOInt(field, "END="); ok {
				if v <= begin {
					sink.InvalidEnd(string(name), begin, v)
				} else {
					end = v
				}
			}
			if anySVLen {
				svlen = maxSVLen(field, useSVLen[:], alts)
			}

		case cfg.Preset == VCF && gateFormatLenOnGVCF(cfg, getlen) && id == vcfFormatCol:
			lenPos = findFormatLenPosition(field)

		case cfg.Preset == VCF && gateFormatLenOnGVCF(cfg, getlen) && id > vcfFormatCol && lenPos >= 0:
			if v, ok := sampleFieldInt(field, lenPos); ok && v > fmtlen {
				fmtlen = v
			}
		}

		b = i + 1
		id++
	}

	if !gotBegin {
		return nil, 0, 0, ErrMalformed
	}

	if cfg.Preset == VCF {
		tmp := reflen
		if svlen > tmp {
			tmp = svlen
		}
		if fmtlen > tmp {
			tmp = fmtlen
		}
		tmp += begin
		if tmp > end {
			end = tmp
		}
	}

	if name == nil || begin < 0 || end < 0 {
		return nil, 0, 0, ErrMalformed
	}
	return name, begin, end, nil
}

func gateFormatLenOnGVCF(cfg Config, getlen bool) bool {
	if cfg.FormatLenOnlyForGVCF {
		return getlen
	}
	return true
}

// scanLeadingInt parses the longest valid signed-decimal prefix of
// field, matching strtoll's tolerance of trailing garbage.
func scanLeadingInt(field []byte) (n int64, rest []byte, ok bool) {
	i := 0
	if i < len(field) && (field[i] == '+' || field[i] == '-') {
		i++
	}
	j := i
	for j < len(field) && field[j] >= '0' && field[j] <= '9' {
		j++
	}
	if j == i {
		return 0, field, false
	}
	v, err := strconv.ParseInt(string(field[:j]), 10, 64)
	if err != nil {
		return 0, field, false
	}
	return v, field[j:], true
}

// parseGAFPath parses a GAF path such as ">12<34>5": an alternating
// sequence of one-byte orientation symbols and signed node ids. It
// returns the minimum and maximum node id seen.
func parseGAFPath(field []byte) (begin, end int64, ok bool) {
	i := 0
	if i < len(field) {
		i++ // skip the leading orientation symbol
	}
	first := true
	for i < len(field) {
		n, rest, numOK := scanLeadingInt(field[i:])
		if !numOK {
			break
		}
		consumed := len(field[i:]) - len(rest)
		i += consumed
		if first {
			begin, end = n, n
			first = false
		} else {
			if n < begin {
				begin = n
			}
			if n > end {
				end = n
			}
		}
		if i < len(field) {
			i++ // skip the trailing orientation symbol
		}
	}
	return begin, end, !first
}

// cigarRefLen sums the reference-consuming CIGAR op lengths (M, D, N),
// with a floor of 1.
func cigarRefLen(field []byte) int64 {
	var l int64
	i := 0
	for i < len(field) {
		n, rest, ok := scanLeadingInt(field[i:])
		if !ok || len(rest) == 0 {
			break
		}
		op := rest[0]
		if op >= 'a' && op <= 'z' {
			op -= 'a' - 'A'
		}
		if op == 'M' || op == 'D' || op == 'N' {
			l += n
		}
		i = len(field) - len(rest) + 1
	}
	if l == 0 {
		l = 1
	}
	return l
}

// splitAlts splits a comma-separated ALT field into at most max
// allele strings, matching the source's silent-truncation rule.
func splitAlts(field []byte, max int) [][]byte {
	var alts [][]byte
	start := 0
	for i := 0; i <= len(field) && len(alts) < max; i++ {
		if i == len(field) || field[i] == ',' {
			alts = append(alts, field[start:i])
			start = i + 1
		}
	}
	return alts
}

// classifyVCFAlt reports whether a symbolic ALT (form "<...>") needs
// SVLEN to determine its reference-space extent, and whether it is one
// of the gVCF "no call past this point" sentinels.
func classifyVCFAlt(alt []byte) (onRef, gvcfSentinel bool) {
	if len(alt) < 2 || alt[0] != '<' || alt[len(alt)-1] != '>' {
		return false, false
	}
	s := string(alt)
	if s == "<*>" || s == "<NON_REF>" {
		return false, true
	}
	return true, false
}

// maxSVLen returns the largest |SVLEN| among the alleles flagged in
// useSVLen, defaulting to 1 for unflagged alleles, matching the
// source's per-allele scan over INFO/SVLEN. Allele indices are
// 0-based, consistent with the bit positions set during the ALT scan.
func maxSVLen(info []byte, useSVLen []byte, alts int) int64 {
	rest, ok := findINFOField(info, "SVLEN=")
	var max int64
	for d := 0; d < alts; d++ {
		var tmp int64 = 1
		if ok && len(rest) > 0 {
			if flagged(useSVLen, d) {
				v, r, numOK := scanLeadingInt(rest)
				if numOK {
					if v < 0 {
						v = -v
					}
					tmp = v
				}
				rest = r
			}
			rest = afterComma(rest)
		}
		if tmp > max {
			max = tmp
		}
	}
	return max
}

func flagged(useSVLen []byte, d int) bool {
	return useSVLen[d>>3]&(1<<uint(d&7)) != 0
}

func afterComma(b []byte) []byte {
	for i, c := range b {
		if c == ',' {
			return b[i+1:]
		}
	}
	return nil
}

// findINFOInt locates key (e.g. "END=") as a standalone INFO field
// (at the start of the INFO string or following a ';') and parses the
// integer that follows it.
func findINFOInt(info []byte, key string) (int64, bool) {
	rest, ok := findINFOField(info, key)
	if !ok {
		return 0, false
	}
	if len(rest) > 0 && rest[0] == '.' {
		return 0, false
	}
	v, _, numOK := scanLeadingInt(rest)
	return v, numOK
}

// findINFOField returns the bytes following key within info, requiring
// key to begin the string or be preceded by ';'.
func findINFOField(info []byte, key string) ([]byte, bool) {
	kb := []byte(key)
	for i := 0; i+len(kb) <= len(info); i++ {
		if string(info[i:i+len(kb)]) != key {
			continue
		}
		if i == 0 || info[i-1] == ';' {
			return info[i+len(kb):], true
		}
	}
	return nil, false
}

// findFormatLenPosition returns the 0-based position of the "LEN"
// sub-field within a colon-separated FORMAT column, or -1 if absent.
func findFormatLenPosition(format []byte) int {
	pos := 0
	start := 0
	for i := 0; i <= len(format); i++ {
		if i == len(format) || format[i] == ':' {
			if string(format[start:i]) == "LEN" {
				return pos
			}
			start = i + 1
			pos++
		}
	}
	return -1
}

// sampleFieldInt reads the integer at colon-separated position pos in
// a per-sample column.
func sampleFieldInt(sample []byte, pos int) (int64, bool) {
	cur := 0
	start := 0
	for i := 0; i <= len(sample); i++ {
		if i == len(sample) || sample[i] == ':' {
			if cur == pos {
				v, _, ok := scanLeadingInt(sample[start:i])
				return v, ok
			}
			start = i + 1
			cur++
		}
	}
	return 0, false
}
