// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fvm

import "github.com/cpmech/gosl/chk"

// IntensiveQuantities holds the secondary variables computed from the primary variables of one
// degree of freedom; e.g. densities, saturations and mobilities. The contents are opaque to the
// discretization
type IntensiveQuantities interface{}

// IqCache stores the intensive quantities of each degree of freedom and time level. An entry
// is valid only while it corresponds to the primary variables currently stored in the same
// history slot. Entries are stored by reference and must not be modified after Update.
//  Note: no locking is done; concurrent callers must not touch the same (dof, slot) pair
type IqCache struct {
	enableCache bool                    // return cached quantities
	enableHints bool                    // return cached quantities as starting points
	entries     [][]IntensiveQuantities // [historySize][ndof]
	valid       [][]bool                // [historySize][ndof]
}

// NewIqCache returns a new cache for ndof degrees of freedom
func NewIqCache(historySize, ndof int, enableCache, enableHints bool) (o *IqCache) {
	o = &IqCache{enableCache: enableCache, enableHints: enableHints}
	o.entries = make([][]IntensiveQuantities, historySize)
	o.valid = make([][]bool, historySize)
	o.Resize(ndof)
	return
}

// Storing tells whether Update keeps entries
func (o *IqCache) Storing() bool { return o.enableCache || o.enableHints }

// HistorySize returns the number of time levels
func (o *IqCache) HistorySize() int { return len(o.valid) }

// NumDof returns the number of degrees of freedom
func (o *IqCache) NumDof() int { return len(o.valid[0]) }

// ThermodynamicHint returns the quantities of dof at slot if valid; otherwise the quantities of
// the first valid slot, searching from the most recent one. Returns nil if hints are disabled
// or no slot is valid
func (o *IqCache) ThermodynamicHint(dof, slot int) IntensiveQuantities {
	if !o.enableHints {
		return nil
	}
	o.check(dof, slot)
	if o.valid[slot][dof] {
		return o.entries[slot][dof]
	}
	for s := range o.valid {
		if o.valid[s][dof] {
			return o.entries[s][dof]
		}
	}
	return nil
}

// Cached returns the quantities of dof at exactly slot or nil if caching is disabled or the
// entry is not valid
func (o *IqCache) Cached(dof, slot int) IntensiveQuantities {
	if !o.enableCache {
		return nil
	}
	o.check(dof, slot)
	if !o.valid[slot][dof] {
		return nil
	}
	return o.entries[slot][dof]
}

// Update stores iq as the quantities of dof at slot and marks the entry as valid
func (o *IqCache) Update(iq IntensiveQuantities, dof, slot int) {
	if !o.Storing() {
		return
	}
	o.check(dof, slot)
	o.entries[slot][dof] = iq
	o.valid[slot][dof] = true
}

// Invalidate marks the entry of dof at slot as not valid
func (o *IqCache) Invalidate(dof, slot int) { o.SetValidity(dof, slot, false) }

// SetValidity sets the validity flag of dof at slot
func (o *IqCache) SetValidity(dof, slot int, valid bool) {
	if !o.Storing() {
		return
	}
	o.check(dof, slot)
	o.valid[slot][dof] = valid
}

// InvalidateSlot marks all entries of slot as not valid
func (o *IqCache) InvalidateSlot(slot int) {
	o.checkSlot(slot)
	for i := range o.valid[slot] {
		o.valid[slot][i] = false
	}
}

// InvalidateAll marks all entries as not valid
func (o *IqCache) InvalidateAll() {
	for s := range o.valid {
		o.InvalidateSlot(s)
	}
}

// Shift moves the entries of each slot numSlots levels towards the past; entries moved beyond
// the last slot are dropped. Afterwards, the vacated slots [0, numSlots) are not valid; i.e.
// only slot 0 after a shift by one level
func (o *IqCache) Shift(numSlots int) {
	h := len(o.valid)
	if numSlots < 1 || numSlots > h {
		chk.Panic("number of slots to shift must be in [1, %d]. %d is invalid", h, numSlots)
	}
	for s := h - 1 - numSlots; s >= 0; s-- {
		copy(o.entries[s+numSlots], o.entries[s])
		copy(o.valid[s+numSlots], o.valid[s])
	}
	for s := 0; s < numSlots; s++ {
		o.InvalidateSlot(s)
	}
}

// CopySlot copies the entries and flags of slot src into slot dst
func (o *IqCache) CopySlot(dst, src int) {
	o.checkSlot(dst)
	o.checkSlot(src)
	copy(o.entries[dst], o.entries[src])
	copy(o.valid[dst], o.valid[src])
}

// Resize drops all entries and allocates space for ndof degrees of freedom
func (o *IqCache) Resize(ndof int) {
	for s := range o.valid {
		o.entries[s] = make([]IntensiveQuantities, ndof)
		o.valid[s] = make([]bool, ndof)
	}
}

// check panics if dof or slot are out of range
func (o *IqCache) check(dof, slot int) {
	o.checkSlot(slot)
	if dof < 0 || dof >= len(o.valid[slot]) {
		chk.Panic("degree of freedom %d is out of range [0, %d)", dof, len(o.valid[slot]))
	}
}

func (o *IqCache) checkSlot(slot int) {
	if slot < 0 || slot >= len(o.valid) {
		chk.Panic("history slot %d is out of range [0, %d)", slot, len(o.valid))
	}
}
