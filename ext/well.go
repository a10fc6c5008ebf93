// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ext

import (
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/la"
	"github.com/jakobtorben/opm-models/fvm"
	"github.com/jakobtorben/opm-models/inp"
)

// Well is an auxiliary module with one extra dof holding the bottom hole pressure of a well
// perforating one cell. The first primary variable of the cell is the pressure and the other
// primary variables are transported with the well rate
//
//  q = PI (p_cell - p_well)      (q > 0 => production)
//
// The extra dof has the same number of equations as the grid dofs: the first one fixes the
// bottom hole pressure and the others hold the injected values of the transported variables
type Well struct {
	fvm.BaseAuxiliaryModule
	Name string    // name
	Cell int       // perforated cell (grid dof)
	PI   float64   // productivity index
	Bhp  float64   // bottom hole pressure target
	Inj  []float64 // injected values of primary variables 1, 2, ...
}

// NewWell returns a new well
func NewWell(dat *inp.WellData) (o *Well, err error) {
	if dat == nil {
		return nil, chk.Err("well data must not be nil")
	}
	if dat.PI < 0 {
		return nil, chk.Err("productivity index of well %q must not be negative. %g is invalid", dat.Name, dat.PI)
	}
	o = &Well{Name: dat.Name, Cell: dat.Cell, PI: dat.PI, Bhp: dat.Bhp}
	o.Inj = append(o.Inj, dat.Inj...)
	return
}

func (o *Well) NumDofs() int { return 1 }

// NumNonZeros returns the number of Jacobian entries: two for the pressure coupling, three per
// transported variable and one per well equation
func (o *Well) NumNonZeros(neq int) int { return 4*neq + 2 }

// ApplyInitial sets the bottom hole pressure and the injected values
func (o *Well) ApplyInitial(d *fvm.Discretization) {
	u := d.Solution(0).Block(o.LocalToGlobalDof(0))
	u[0] = o.Bhp
	for k := 1; k < len(u); k++ {
		u[k] = o.injected(k)
	}
}

// Rate returns the well rate of the solution u
func (o *Well) Rate(u *fvm.BlockVector) float64 {
	return o.PI * (u.Block(o.Cell)[0] - u.Block(o.LocalToGlobalDof(0))[0])
}

// Linearize adds the well terms to the residual of the perforated cell and the residual of the
// well equations
func (o *Well) Linearize(d *fvm.Discretization, jac *la.Triplet, res *fvm.BlockVector) (err error) {
	if o.Cell < 0 || o.Cell >= d.NumGridDof() {
		return chk.Err("well %q is connected to cell %d which is not in the grid", o.Name, o.Cell)
	}
	neq := d.NumEq()
	u := d.Solution(0)
	wdof := o.LocalToGlobalDof(0)
	uc, uw := u.Block(o.Cell), u.Block(wdof)
	rc, rw := res.Block(o.Cell), res.Block(wdof)
	q := o.PI * (uc[0] - uw[0])

	// well equations
	rw[0] += uw[0] - o.Bhp
	for k := 1; k < neq; k++ {
		rw[k] += uw[k] - o.injected(k)
	}

	// cell equations; transported variables are taken from upstream
	rc[0] += q
	for k := 1; k < neq; k++ {
		up := uc
		if q < 0 {
			up = uw
		}
		rc[k] += q * up[k]
	}
	if jac == nil {
		return
	}

	// Jacobian
	ic, iw := o.Cell*neq, wdof*neq
	jac.Put(ic, ic, o.PI)
	jac.Put(ic, iw, -o.PI)
	for k := 1; k < neq; k++ {
		up, jup := uc, ic
		if q < 0 {
			up, jup = uw, iw
		}
		jac.Put(ic+k, ic, o.PI*up[k])
		jac.Put(ic+k, iw, -o.PI*up[k])
		jac.Put(ic+k, jup+k, q)
	}
	for k := 0; k < neq; k++ {
		jac.Put(iw+k, iw+k, 1)
	}
	return
}

// injected returns the injected value of primary variable k; missing values are zero
func (o *Well) injected(k int) float64 {
	if k-1 < len(o.Inj) {
		return o.Inj[k-1]
	}
	return 0
}
