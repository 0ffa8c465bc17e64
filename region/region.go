// Copyright ©2024 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package region implements the region-string grammar of spec §4.6:
// a bare reference name, "name:begin-end", braced "{name}:..." quoting
// for names containing colons, and comma-separated lists, resolved
// against a reference-name dictionary supplied by the caller.
package region

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Sentinel Tid values returned for the "." and "*" whole-string forms.
const (
	// TidStart means "from the start of the file", matching the "."
	// region and corresponding to HTS_IDX_START in the on-disk query
	// convention.
	TidStart = -2
	// TidNoCoor means "unmapped reads only", matching the "*" region
	// and corresponding to HTS_IDX_NOCOOR.
	TidNoCoor = -1
)

var (
	ErrNameUnknown     = errors.New("region: unknown reference name")
	ErrAmbiguousName   = errors.New("region: ambiguous name")
	ErrBadNumber       = errors.New("region: bad number")
	ErrTrailingGarbage = errors.New("region: trailing garbage after region")
	ErrEmptyRange      = errors.New("region: begin >= end")
)

// Resolver maps a reference name to its tid, returning ok=false if the
// name is not in the dictionary.
type Resolver func(name string) (tid int, ok bool)

// Flags controls range-parsing behaviour. List and OneCoord are
// orthogonal; ThousandsSep is implied whenever List is not set (spec
// §4.6) so it has no exported bit of its own.
type Flags uint8

const (
	// List parses range text as one item of a comma-terminated list:
	// a comma ends the number/range instead of being a digit-grouping
	// separator.
	List Flags = 1 << iota
	// OneCoord makes "X:N" mean the single base [N, N+1) instead of
	// the default "N to end of reference" ([N, +inf)).
	OneCoord
)

// Region is a resolved, 0-based half-open reference interval, or one
// of the two sentinel forms ("." / "*").
type Region struct {
	Tid        int
	Begin, End int64
}

// Parse parses a single region string (no list splitting).
func Parse(s string, resolve Resolver) (Region, error) {
	return parseOne(s, resolve, 0)
}

// ParseList splits s on top-level commas (commas inside {braces} do
// not split) and parses each item with the List flag set.
func ParseList(s string, resolve Resolver) ([]Region, error) {
	items := splitTopLevel(s)
	regions := make([]Region, 0, len(items))
	for _, item := range items {
		r, err := parseOne(item, resolve, List)
		if err != nil {
			return nil, err
		}
		regions = append(regions, r)
	}
	return regions, nil
}

func parseOne(s string, resolve Resolver, flags Flags) (Region, error) {
	switch s {
	case ".":
		return Region{Tid: TidStart}, nil
	case "*":
		return Region{Tid: TidNoCoor}, nil
	}

	var name, rangePart string

	if strings.HasPrefix(s, "{") {
		close := strings.IndexByte(s, '}')
		if close < 0 {
			return Region{}, fmt.Errorf("region: mismatched braces in %q: %w", s, ErrTrailingGarbage)
		}
		name = s[1:close]
		rest := s[close+1:]
		switch {
		case rest == "":
			rangePart = ""
		case rest[0] == ':':
			rangePart = rest[1:]
		default:
			return Region{}, fmt.Errorf("region: unexpected %q after braced name: %w", rest, ErrTrailingGarbage)
		}
	} else {
		idx := strings.LastIndexByte(s, ':')
		if idx < 0 {
			tid, ok := resolve(s)
			if !ok {
				return Region{}, fmt.Errorf("region: %q: %w", s, ErrNameUnknown)
			}
			return Region{Tid: tid, Begin: 0, End: math.MaxInt64}, nil
		}
		if tid, ok := resolve(s); ok {
			if _, ambiguous := resolve(s[:idx]); ambiguous {
				return Region{}, fmt.Errorf("region: %q matches both {%s} and {%s}: %w", s, s, s[:idx], ErrAmbiguousName)
			}
			return Region{Tid: tid, Begin: 0, End: math.MaxInt64}, nil
		}
		name = s[:idx]
		rangePart = s[idx+1:]
	}

	tid, ok := resolve(name)
	if !ok {
		return Region{}, fmt.Errorf("region: %q: %w", name, ErrNameUnknown)
	}
	beg, end, err := parseRange(rangePart, flags)
	if err != nil {
		return Region{}, err
	}
	return Region{Tid: tid, Begin: beg, End: end}, nil
}

func parseRange(s string, flags Flags) (beg, end int64, err error) {
	if s == "" {
		return 0, math.MaxInt64, nil
	}
	allowSep := flags&List == 0

	if strings.HasPrefix(s, "-") {
		// "X:-N" is shorthand for "X:1-N".
		n, rest, ok := scanNumber(s[1:], allowSep)
		if !ok {
			return 0, 0, fmt.Errorf("region: %q: %w", s, ErrBadNumber)
		}
		if rest != "" {
			return 0, 0, fmt.Errorf("region: %q: %w", rest, ErrTrailingGarbage)
		}
		return 0, n, nil
	}

	hyphen := strings.IndexByte(s, '-')
	if hyphen < 0 {
		n, rest, ok := scanNumber(s, allowSep)
		if !ok {
			return 0, 0, fmt.Errorf("region: %q: %w", s, ErrBadNumber)
		}
		if rest != "" {
			return 0, 0, fmt.Errorf("region: %q: %w", rest, ErrTrailingGarbage)
		}
		beg, err = toZeroBased(n)
		if err != nil {
			return 0, 0, err
		}
		if flags&OneCoord != 0 {
			return beg, beg + 1, nil
		}
		return beg, math.MaxInt64, nil
	}

	n1, rest1, ok := scanNumber(s[:hyphen], allowSep)
	if !ok {
		return 0, 0, fmt.Errorf("region: %q: %w", s[:hyphen], ErrBadNumber)
	}
	if rest1 != "" {
		return 0, 0, fmt.Errorf("region: %q: %w", rest1, ErrTrailingGarbage)
	}
	beg, err = toZeroBased(n1)
	if err != nil {
		return 0, 0, err
	}

	tail := s[hyphen+1:]
	if tail == "" {
		// "X:N-" extends to the reference end.
		return beg, math.MaxInt64, nil
	}
	n2, rest2, ok := scanNumber(tail, allowSep)
	if !ok {
		return 0, 0, fmt.Errorf("region: %q: %w", tail, ErrBadNumber)
	}
	if rest2 != "" {
		return 0, 0, fmt.Errorf("region: %q: %w", rest2, ErrTrailingGarbage)
	}
	end = n2
	if beg >= end {
		return 0, 0, fmt.Errorf("region: [%d,%d): %w", beg, end, ErrEmptyRange)
	}
	return beg, end, nil
}

func toZeroBased(n int64) (int64, error) {
	if n <= 0 {
		return 0, fmt.Errorf("region: coordinate %d must be > 0: %w", n, ErrBadNumber)
	}
	return n - 1, nil
}

// scanNumber scans a leading run of digits (optionally interspersed
// with ',' thousands separators when allowSep is true) and returns the
// parsed value and the unconsumed remainder of s.
func scanNumber(s string, allowSep bool) (n int64, rest string, ok bool) {
	var digits []byte
	i := 0
	for i < len(s) {
		c := s[i]
		if c >= '0' && c <= '9' {
			digits = append(digits, c)
			i++
			continue
		}
		if c == ',' && allowSep {
			i++
			continue
		}
		break
	}
	if len(digits) == 0 {
		return 0, s, false
	}
	v, perr := strconv.ParseInt(string(digits), 10, 64)
	if perr != nil {
		return 0, s, false
	}
	return v, s[i:], true
}

// splitTopLevel splits s on commas that are not nested inside {braces}.
func splitTopLevel(s string) []string {
	var items []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				items = append(items, s[start:i])
				start = i + 1
			}
		}
	}
	items = append(items, s[start:])
	return items
}
