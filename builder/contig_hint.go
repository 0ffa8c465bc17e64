// Copyright ©2024 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package builder

import (
	"bytes"
	"strconv"
)

// ScanContigHint extracts a reference name and length from a VCF
// "##contig=<ID=...,length=...>" or SAM "@SQ\t...\tSN:...\tLN:..."
// header line, for growing a CSI-style index's depth before the first
// Push (spec §4.2). It reports ok=false for any other line, including
// a malformed contig/SQ line; callers should simply skip the hint in
// that case; ScanContigHint is best-effort, not a header validator.
func ScanContigHint(line []byte) (name string, length int64, ok bool) {
	switch {
	case bytes.HasPrefix(line, []byte("##contig")):
		return scanVCFContig(line)
	case bytes.HasPrefix(line, []byte("@SQ")):
		return scanSAMSQ(line)
	default:
		return "", 0, false
	}
}

func scanVCFContig(line []byte) (name string, length int64, ok bool) {
	id, idOK := fieldValue(line, []byte("ID="), []byte(",>"))
	lenStr, lenOK := fieldValue(line, []byte("length="), []byte(",>"))
	if !lenOK {
		return "", 0, false
	}
	n, err := strconv.ParseInt(string(lenStr), 10, 64)
	if err != nil {
		return "", 0, false
	}
	if idOK {
		name = string(id)
	}
	return name, n, true
}

func scanSAMSQ(line []byte) (name string, length int64, ok bool) {
	sn, snOK := fieldValue(line, []byte("SN:"), []byte("\t\n"))
	lnStr, lnOK := fieldValue(line, []byte("LN:"), []byte("\t\n"))
	if !lnOK {
		return "", 0, false
	}
	n, err := strconv.ParseInt(string(lnStr), 10, 64)
	if err != nil {
		return "", 0, false
	}
	if snOK {
		name = string(sn)
	}
	return name, n, true
}

// fieldValue finds key in line and returns the bytes following it up
// to (but not including) the first byte in stop, or the end of line.
func fieldValue(line, key, stop []byte) ([]byte, bool) {
	i := bytes.Index(line, key)
	if i < 0 {
		return nil, false
	}
	rest := line[i+len(key):]
	end := bytes.IndexAny(rest, string(stop))
	if end < 0 {
		end = len(rest)
	}
	return rest[:end], true
}
