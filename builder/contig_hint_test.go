// Copyright ©2024 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package builder

import "testing"

func TestScanContigHintVCF(t *testing.T) {
	line := []byte(`##contig=<ID=chr1,length=249250621>`)
	name, length, ok := ScanContigHint(line)
	if !ok {
		t.Fatal("ScanContigHint returned ok=false")
	}
	if name != "chr1" || length != 249250621 {
		t.Errorf("ScanContigHint = %q,%d, want chr1,249250621", name, length)
	}
}

func TestScanContigHintSAM(t *testing.T) {
	line := []byte("@SQ\tSN:chr2\tLN:243199373\n")
	name, length, ok := ScanContigHint(line)
	if !ok {
		t.Fatal("ScanContigHint returned ok=false")
	}
	if name != "chr2" || length != 243199373 {
		t.Errorf("ScanContigHint = %q,%d, want chr2,243199373", name, length)
	}
}

func TestScanContigHintIgnoresOtherLines(t *testing.T) {
	cases := [][]byte{
		[]byte("##fileformat=VCFv4.2"),
		[]byte("chr1\t100\t200\t.\t.\t."),
		[]byte("@HD\tVN:1.6"),
	}
	for _, line := range cases {
		if _, _, ok := ScanContigHint(line); ok {
			t.Errorf("ScanContigHint(%q) = ok, want not ok", line)
		}
	}
}

func TestScanContigHintMalformedVCF(t *testing.T) {
	if _, _, ok := ScanContigHint([]byte("##contig=<ID=chr1>")); ok {
		t.Error("ScanContigHint with no length should fail")
	}
}
