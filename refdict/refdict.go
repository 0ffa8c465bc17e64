// Copyright ©2024 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package refdict implements the reference-name dictionary: an
// insertion-ordered, bijective mapping between reference names and the
// small dense integer ids ("tid") assigned to them.
package refdict

// Dict is a reference-name dictionary. The zero value is ready to use.
// Once Freeze has been called (as happens implicitly after loading a
// serialized index) the dictionary must not be mutated further.
type Dict struct {
	names  []string
	byName map[string]int
	frozen bool
}

// New returns an empty, mutable Dict.
func New() *Dict {
	return &Dict{byName: make(map[string]int)}
}

// NumRefs returns the number of references in the dictionary.
func (d *Dict) NumRefs() int { return len(d.names) }

// Names returns the reference names in insertion (tid) order. The
// returned slice must not be modified.
func (d *Dict) Names() []string { return d.names }

// ByName returns the tid for the given reference name and true if it is
// present.
func (d *Dict) ByName(name string) (tid int, ok bool) {
	tid, ok = d.byName[name]
	return tid, ok
}

// ByID returns the reference name for the given tid and true if it is
// in range.
func (d *Dict) ByID(tid int) (name string, ok bool) {
	if tid < 0 || tid >= len(d.names) {
		return "", false
	}
	return d.names[tid], true
}

// Intern returns the tid for name, assigning it the next tid in
// insertion order if it has not been seen before. It panics if the
// dictionary has been frozen.
func (d *Dict) Intern(name string) int {
	if d.frozen {
		panic("refdict: Intern on frozen dictionary")
	}
	if d.byName == nil {
		d.byName = make(map[string]int)
	}
	if tid, ok := d.byName[name]; ok {
		return tid
	}
	tid := len(d.names)
	d.names = append(d.names, name)
	d.byName[name] = tid
	return tid
}

// Freeze marks the dictionary read-only. A frozen dictionary's Intern
// method panics; ByName and ByID remain usable. Loaded indexes are
// always returned already frozen.
func (d *Dict) Freeze() { d.frozen = true }

// Frozen reports whether the dictionary has been frozen.
func (d *Dict) Frozen() bool { return d.frozen }
