// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fvm

import (
	"fmt"
	goio "io"
	"strconv"

	"github.com/cpmech/gosl/chk"
)

// RestartReader is read by the deserialization functions; e.g. *bufio.Reader or *strings.Reader
type RestartReader interface {
	goio.Reader
	goio.RuneScanner
}

// SerializeEntity writes the primary variables of dof in equation order, each one followed by
// a space
func (o *Discretization) SerializeEntity(w goio.Writer, dof int) (err error) {
	o.checkDof(dof)
	for k, v := range o.hist.Slot(0).Block(dof) {
		if _, err = goio.WriteString(w, strconv.FormatFloat(v, 'g', -1, 64)+" "); err != nil {
			return chk.Err("cannot serialize equation %d of degree of freedom %d:\n%v", k, dof, err)
		}
	}
	return
}

// DeserializeEntity reads the primary variables of dof written by SerializeEntity into the
// current iterate
func (o *Discretization) DeserializeEntity(r RestartReader, dof int) (err error) {
	o.checkDof(dof)
	if err = readEntity(r, o.hist.Slot(0).Block(dof), dof); err != nil {
		return
	}
	if dof < o.NumGridDof() {
		o.cache.Invalidate(dof, 0)
	}
	return
}

// Serialize writes the number of dofs, the number of equations and the current iterate with
// one dof per line
func (o *Discretization) Serialize(w goio.Writer) (err error) {
	ndof := o.NumTotalDof()
	if _, err = fmt.Fprintf(w, "%d %d\n", ndof, o.numEq); err != nil {
		return chk.Err("cannot serialize header:\n%v", err)
	}
	for i := 0; i < ndof; i++ {
		if err = o.SerializeEntity(w, i); err != nil {
			return
		}
		if _, err = goio.WriteString(w, "\n"); err != nil {
			return chk.Err("cannot serialize degree of freedom %d:\n%v", i, err)
		}
	}
	return
}

// Deserialize reads a solution written by Serialize into all time levels and invalidates the
// cache. Nothing is changed if reading fails
func (o *Discretization) Deserialize(r RestartReader) (err error) {
	var ndof, neq int
	if _, err = fmt.Fscan(r, &ndof, &neq); err != nil {
		return chk.Err("cannot deserialize header:\n%v", err)
	}
	if ndof != o.NumTotalDof() || neq != o.numEq {
		return chk.Err("restart data with %d dofs and %d equations is incompatible with %d dofs and %d equations", ndof, neq, o.NumTotalDof(), o.numEq)
	}
	u := NewBlockVector(ndof, neq)
	for i := 0; i < ndof; i++ {
		if err = readEntity(r, u.Block(i), i); err != nil {
			return
		}
	}
	for t := 0; t < o.hist.Size(); t++ {
		o.hist.Slot(t).CopyFrom(u)
	}
	o.cache.InvalidateAll()
	return
}

// readEntity reads the primary variables of dof into blk; blk is modified only on success
func readEntity(r RestartReader, blk []float64, dof int) (err error) {
	vals := make([]float64, len(blk))
	for k := range vals {
		if _, err = fmt.Fscan(r, &vals[k]); err != nil {
			return chk.Err("cannot deserialize equation %d of degree of freedom %d:\n%v", k, dof, err)
		}
	}
	copy(blk, vals)
	return
}

// checkDof panics if dof is out of range
func (o *Discretization) checkDof(dof int) {
	if dof < 0 || dof >= o.NumTotalDof() {
		chk.Panic("degree of freedom %d is out of range [0, %d)", dof, o.NumTotalDof())
	}
}
