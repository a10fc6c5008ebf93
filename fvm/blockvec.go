// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fvm

import (
	"math"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/la"
)

// BlockVector holds one block of Neq values per degree of freedom in a flat array
type BlockVector struct {
	Neq  int       // number of equations (block size)
	Data la.Vector // [ndof*neq] values
}

// NewBlockVector allocates a zeroed block vector
func NewBlockVector(ndof, neq int) *BlockVector {
	if neq < 1 {
		chk.Panic("block size must be positive. %d is invalid", neq)
	}
	return &BlockVector{Neq: neq, Data: la.NewVector(ndof * neq)}
}

// NumDof returns the number of blocks
func (o *BlockVector) NumDof() int { return len(o.Data) / o.Neq }

// Block returns the values of degree of freedom i (not a copy)
func (o *BlockVector) Block(i int) []float64 {
	return o.Data[i*o.Neq : (i+1)*o.Neq]
}

// Resize changes the number of blocks keeping existing values; new blocks are zero
func (o *BlockVector) Resize(ndof int) {
	n := ndof * o.Neq
	if n <= cap(o.Data) {
		old := len(o.Data)
		o.Data = o.Data[:n]
		for i := old; i < n; i++ {
			o.Data[i] = 0
		}
		return
	}
	v := la.NewVector(n)
	copy(v, o.Data)
	o.Data = v
}

// CopyFrom copies all values from another vector with the same size
func (o *BlockVector) CopyFrom(src *BlockVector) {
	if len(src.Data) != len(o.Data) || src.Neq != o.Neq {
		chk.Panic("cannot copy block vector of size %d×%d into block vector of size %d×%d", src.NumDof(), src.Neq, o.NumDof(), o.Neq)
	}
	copy(o.Data, src.Data)
}

// GetCopy returns a deep copy
func (o *BlockVector) GetCopy() *BlockVector {
	return &BlockVector{Neq: o.Neq, Data: o.Data.GetCopy()}
}

// Fill sets all values to s
func (o *BlockVector) Fill(s float64) { o.Data.Fill(s) }

// Norm2 returns the Euclidean norm of all values
func (o *BlockVector) Norm2() float64 {
	var sum float64
	for _, v := range o.Data {
		sum += v * v
	}
	return math.Sqrt(sum)
}

// History holds the solution of the last time levels; slot 0 is the current iterate and
// slot 1 the last accepted solution
type History struct {
	slots []*BlockVector
}

// NewHistory allocates size slots of ndof blocks
func NewHistory(size, ndof, neq int) (o *History) {
	if size < 2 {
		chk.Panic("history must hold at least two time levels. %d is invalid", size)
	}
	o = &History{slots: make([]*BlockVector, size)}
	for i := range o.slots {
		o.slots[i] = NewBlockVector(ndof, neq)
	}
	return
}

// Size returns the number of slots
func (o *History) Size() int { return len(o.slots) }

// Slot returns the solution of time level slot
func (o *History) Slot(slot int) *BlockVector {
	if slot < 0 || slot >= len(o.slots) {
		chk.Panic("history slot %d is out of range [0, %d)", slot, len(o.slots))
	}
	return o.slots[slot]
}

// Resize resizes all slots
func (o *History) Resize(ndof int) {
	for _, s := range o.slots {
		s.Resize(ndof)
	}
}
