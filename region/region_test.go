// Copyright ©2024 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package region

import (
	"errors"
	"math"
	"testing"
)

func testResolver(names ...string) Resolver {
	m := make(map[string]int, len(names))
	for i, n := range names {
		m[n] = i
	}
	return func(name string) (int, bool) {
		tid, ok := m[name]
		return tid, ok
	}
}

func TestParseBareName(t *testing.T) {
	r, err := Parse("chr1", testResolver("chr1", "chr2"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if r.Tid != 0 || r.Begin != 0 || r.End != math.MaxInt64 {
		t.Errorf("Parse = %+v, want {0 0 MaxInt64}", r)
	}
}

func TestParseNameUnknown(t *testing.T) {
	_, err := Parse("chrX", testResolver("chr1"))
	if !errors.Is(err, ErrNameUnknown) {
		t.Errorf("Parse error = %v, want ErrNameUnknown", err)
	}
}

func TestParseNameRange(t *testing.T) {
	r, err := Parse("chr1:101-200", testResolver("chr1"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if r.Tid != 0 || r.Begin != 100 || r.End != 200 {
		t.Errorf("Parse = %+v, want {0 100 200}", r)
	}
}

func TestParseNameOpenEnded(t *testing.T) {
	r, err := Parse("chr1:101-", testResolver("chr1"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if r.Begin != 100 || r.End != math.MaxInt64 {
		t.Errorf("Parse = %+v, want begin=100 end=MaxInt64", r)
	}
}

func TestParseNameFromStartShorthand(t *testing.T) {
	r, err := Parse("chr1:-200", testResolver("chr1"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if r.Begin != 0 || r.End != 200 {
		t.Errorf("Parse = %+v, want begin=0 end=200", r)
	}
}

func TestParseSingleCoordDefaultsToEnd(t *testing.T) {
	r, err := Parse("chr1:101", testResolver("chr1"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if r.Begin != 100 || r.End != math.MaxInt64 {
		t.Errorf("Parse = %+v, want begin=100 end=MaxInt64", r)
	}
}

func TestParseSingleCoordOneCoordFlag(t *testing.T) {
	r, err := parseOne("chr1:101", testResolver("chr1"), OneCoord)
	if err != nil {
		t.Fatalf("parseOne: %v", err)
	}
	if r.Begin != 100 || r.End != 101 {
		t.Errorf("parseOne = %+v, want begin=100 end=101", r)
	}
}

func TestParseEmptyRange(t *testing.T) {
	_, err := Parse("chr1:200-100", testResolver("chr1"))
	if !errors.Is(err, ErrEmptyRange) {
		t.Errorf("Parse error = %v, want ErrEmptyRange", err)
	}
}

func TestParseBadNumber(t *testing.T) {
	_, err := Parse("chr1:abc-200", testResolver("chr1"))
	if !errors.Is(err, ErrBadNumber) {
		t.Errorf("Parse error = %v, want ErrBadNumber", err)
	}
}

func TestParseTrailingGarbage(t *testing.T) {
	_, err := Parse("chr1:100-200xyz", testResolver("chr1"))
	if !errors.Is(err, ErrTrailingGarbage) {
		t.Errorf("Parse error = %v, want ErrTrailingGarbage", err)
	}
}

func TestParseThousandsSeparator(t *testing.T) {
	r, err := Parse("chr1:1,000-2,000", testResolver("chr1"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if r.Begin != 999 || r.End != 2000 {
		t.Errorf("Parse = %+v, want begin=999 end=2000", r)
	}
}

func TestParseAmbiguousName(t *testing.T) {
	// Both "chr1:100" and "chr1" are valid reference names.
	resolve := testResolver("chr1", "chr1:100")
	_, err := Parse("chr1:100", resolve)
	if !errors.Is(err, ErrAmbiguousName) {
		t.Errorf("Parse error = %v, want ErrAmbiguousName", err)
	}
}

func TestParseBracedNameWithColon(t *testing.T) {
	resolve := testResolver("chr1:weird")
	r, err := Parse("{chr1:weird}:101-200", resolve)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if r.Tid != 0 || r.Begin != 100 || r.End != 200 {
		t.Errorf("Parse = %+v, want {0 100 200}", r)
	}
}

func TestParseBracedNameBare(t *testing.T) {
	resolve := testResolver("chr1:weird")
	r, err := Parse("{chr1:weird}", resolve)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if r.Begin != 0 || r.End != math.MaxInt64 {
		t.Errorf("Parse = %+v, want whole-reference span", r)
	}
}

func TestParseBracedNameDoesNotAmbiguityCheck(t *testing.T) {
	// Unlike the unquoted case, a braced name is never compared against
	// a whole-string resolution, since the braces are unambiguous.
	resolve := testResolver("chr1:weird", "{chr1:weird}:101-200")
	r, err := Parse("{chr1:weird}:101-200", resolve)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if r.Tid != 0 || r.Begin != 100 || r.End != 200 {
		t.Errorf("Parse = %+v, want {0 100 200}", r)
	}
}

func TestParseMismatchedBrace(t *testing.T) {
	_, err := Parse("{chr1:weird", testResolver("chr1:weird"))
	if !errors.Is(err, ErrTrailingGarbage) {
		t.Errorf("Parse error = %v, want ErrTrailingGarbage", err)
	}
}

func TestParseDotSentinel(t *testing.T) {
	r, err := Parse(".", testResolver())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if r.Tid != TidStart {
		t.Errorf("Parse(\".\").Tid = %d, want TidStart", r.Tid)
	}
}

func TestParseStarSentinel(t *testing.T) {
	r, err := Parse("*", testResolver())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if r.Tid != TidNoCoor {
		t.Errorf("Parse(\"*\").Tid = %d, want TidNoCoor", r.Tid)
	}
}

func TestParseListSplitsOnTopLevelCommas(t *testing.T) {
	resolve := testResolver("chr1", "chr2")
	regions, err := ParseList("chr1:1-100,chr2:200-300", resolve)
	if err != nil {
		t.Fatalf("ParseList: %v", err)
	}
	if len(regions) != 2 {
		t.Fatalf("got %d regions, want 2", len(regions))
	}
	if regions[0].Tid != 0 || regions[0].Begin != 0 || regions[0].End != 100 {
		t.Errorf("regions[0] = %+v, want {0 0 100}", regions[0])
	}
	if regions[1].Tid != 1 || regions[1].Begin != 199 || regions[1].End != 300 {
		t.Errorf("regions[1] = %+v, want {1 199 300}", regions[1])
	}
}

func TestParseListCommaIsNotThousandsSeparator(t *testing.T) {
	resolve := testResolver("chr1")
	// In list mode the comma after "1" ends that item's range text
	// instead of grouping digits, splitting the region into
	// "chr1:1" and a second, unresolvable bare-name item "000-2000".
	_, err := ParseList("chr1:1,000-2000", resolve)
	if !errors.Is(err, ErrNameUnknown) {
		t.Errorf("ParseList error = %v, want ErrNameUnknown", err)
	}
}

func TestParseListRespectsBracesAcrossCommas(t *testing.T) {
	resolve := testResolver("a,b")
	regions, err := ParseList("{a,b}:1-10", resolve)
	if err != nil {
		t.Fatalf("ParseList: %v", err)
	}
	if len(regions) != 1 {
		t.Fatalf("got %d regions, want 1", len(regions))
	}
	if regions[0].Begin != 0 || regions[0].End != 10 {
		t.Errorf("regions[0] = %+v, want begin=0 end=10", regions[0])
	}
}
