// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fvm

import (
	"github.com/cpmech/gosl/chk"
	"github.com/jakobtorben/opm-models/grid"
)

// ElementContext holds the local view of one element: its stencil, the primary variables of
// the current iterate and the intensive quantities of each local dof. Intensive quantities are
// computed on demand and memoised until the next UpdateStencil. Each goroutine owns one context
type ElementContext struct {
	d         *Discretization
	lr        LocalResidual
	st        grid.Stencil
	interior  bool                    // element is interior; i.e. may update the cache
	pv0       [][]float64             // [ndof][neq] copy of the primary variables at time level 0
	iqs       [][]IntensiveQuantities // [historySize][ndof]
	have      [][]bool                // [historySize][ndof] iqs computed for the current stencil
	perturbed int                     // local dof being perturbed by the linearizer; -1 if none
}

// newElementContext returns a new context bound to d
func newElementContext(d *Discretization, lr LocalResidual) (o *ElementContext) {
	h := d.hist.Size()
	o = &ElementContext{d: d, lr: lr, perturbed: -1}
	o.iqs = make([][]IntensiveQuantities, h)
	o.have = make([][]bool, h)
	return
}

// UpdateStencil sets the element and copies the primary variables of its dofs
func (o *ElementContext) UpdateStencil(elem int) {
	o.d.view.Stencil(elem, &o.st)
	o.interior = o.d.view.PartitionType(elem) == grid.Interior
	o.perturbed = -1
	n := len(o.st.Dofs)
	neq := o.d.numEq
	for len(o.pv0) < n {
		o.pv0 = append(o.pv0, make([]float64, neq))
	}
	u := o.d.hist.Slot(0)
	for i, dof := range o.st.Dofs {
		copy(o.pv0[i], u.Block(dof))
	}
	for t := range o.iqs {
		if cap(o.iqs[t]) < n {
			o.iqs[t] = make([]IntensiveQuantities, n)
			o.have[t] = make([]bool, n)
		}
		o.iqs[t] = o.iqs[t][:n]
		o.have[t] = o.have[t][:n]
		for i := 0; i < n; i++ {
			o.iqs[t][i] = nil
			o.have[t][i] = false
		}
	}
}

// UpdateIntensiveQuantities computes the intensive quantities of all local dofs at timeIdx
func (o *ElementContext) UpdateIntensiveQuantities(timeIdx int) (err error) {
	for i := range o.st.Dofs {
		if _, err = o.Intensive(i, timeIdx); err != nil {
			return
		}
	}
	return
}

// UpdatePrimaryIntensiveQuantities computes the intensive quantities of the primary dofs at timeIdx
func (o *ElementContext) UpdatePrimaryIntensiveQuantities(timeIdx int) (err error) {
	for i := 0; i < o.st.NumPrimary; i++ {
		if _, err = o.Intensive(i, timeIdx); err != nil {
			return
		}
	}
	return
}

// Intensive returns the intensive quantities of local dof i at time level timeIdx. The cache
// of the discretization is consulted and updated for the primary dofs of interior elements only
func (o *ElementContext) Intensive(i, timeIdx int) (iq IntensiveQuantities, err error) {
	if o.have[timeIdx][i] {
		return o.iqs[timeIdx][i], nil
	}
	dof := o.st.Dofs[i]
	useCache := o.interior && i < o.st.NumPrimary && i != o.perturbed && dof < o.d.cache.NumDof()
	var hint IntensiveQuantities
	if useCache {
		iq = o.d.cache.Cached(dof, timeIdx)
		if iq != nil {
			o.iqs[timeIdx][i], o.have[timeIdx][i] = iq, true
			return
		}
		hint = o.d.cache.ThermodynamicHint(dof, timeIdx)
	}
	iq, err = o.lr.ComputeIntensive(o, i, timeIdx, hint)
	if err != nil {
		return nil, chk.Err("cannot compute intensive quantities of degree of freedom %d at time level %d:\n%v", dof, timeIdx, err)
	}
	if useCache {
		o.d.cache.Update(iq, dof, timeIdx)
	}
	o.iqs[timeIdx][i], o.have[timeIdx][i] = iq, true
	return
}

// PrimaryVars returns the primary variables of local dof i at time level timeIdx (not a copy)
func (o *ElementContext) PrimaryVars(i, timeIdx int) []float64 {
	if timeIdx == 0 {
		return o.pv0[i]
	}
	return o.d.hist.Slot(timeIdx).Block(o.st.Dofs[i])
}

// perturb sets primary variable k of local dof i at time level 0; the intensive quantities of
// this dof are recomputed without touching the cache until unperturb is called
func (o *ElementContext) perturb(i, k int, value float64) (saved IntensiveQuantities, had bool) {
	saved, had = o.iqs[0][i], o.have[0][i]
	o.pv0[i][k] = value
	o.have[0][i] = false
	o.perturbed = i
	return
}

// unperturb restores the state before perturb
func (o *ElementContext) unperturb(i, k int, value float64, saved IntensiveQuantities, had bool) {
	o.pv0[i][k] = value
	o.iqs[0][i], o.have[0][i] = saved, had
	o.perturbed = -1
}

// Discretization returns the discretization
func (o *ElementContext) Discretization() *Discretization { return o.d }

// Stencil returns the stencil of the current element
func (o *ElementContext) Stencil() *grid.Stencil { return &o.st }

// Element returns the index of the current element
func (o *ElementContext) Element() int { return o.st.Elem }

// NumDof returns the number of local dofs
func (o *ElementContext) NumDof() int { return len(o.st.Dofs) }

// NumPrimaryDof returns the number of primary dofs
func (o *ElementContext) NumPrimaryDof() int { return o.st.NumPrimary }

// GlobalSpaceIndex returns the global index of local dof i
func (o *ElementContext) GlobalSpaceIndex(i int) int { return o.st.Dofs[i] }

// DofVolume returns the volume of the sub control volume of local dof i
func (o *ElementContext) DofVolume(i int) float64 { return o.st.Volumes[i] }

// Region returns the saturation region of local dof i
func (o *ElementContext) Region(i int) int { return o.st.Regions[i] }

// PvtRegion returns the pvt region of local dof i
func (o *ElementContext) PvtRegion(i int) int { return o.st.PvtRegions[i] }

// OnBoundary tells whether the element has boundary faces
func (o *ElementContext) OnBoundary() bool { return len(o.st.Boundary) > 0 }

// Time returns the time at the end of the current time step
func (o *ElementContext) Time() float64 { return o.d.time + o.d.dt }

// Dt returns the current time step size
func (o *ElementContext) Dt() float64 { return o.d.dt }
