// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fvm

import (
	"github.com/cpmech/gosl/chk"
	"github.com/jakobtorben/opm-models/grid"
)

// DofVolumes holds the total volume of each grid degree of freedom, whether it belongs to the
// local process and whether it touches the domain boundary
type DofVolumes struct {
	total      []float64 // [ngriddof] volume summed over all elements and processes
	local      []bool    // [ngriddof] dof has volume in the interior elements of this process
	onBoundary []bool    // [ngriddof] dof is a primary dof of an element with boundary faces
	gridTotal  float64   // volume of the whole grid
}

// Build computes volumes and locality flags from the interior elements of view; volumes on
// process boundaries are summed over all processes
func (o *DofVolumes) Build(view grid.View) {
	ndof := view.NumDof()
	o.total = make([]float64, ndof)
	o.local = make([]bool, ndof)
	o.gridTotal = 0
	var st grid.Stencil
	for e := 0; e < view.NumElements(); e++ {
		if view.PartitionType(e) != grid.Interior {
			continue
		}
		view.Stencil(e, &st)
		for i := 0; i < st.NumPrimary; i++ {
			o.total[st.Dofs[i]] += st.Volumes[i]
			o.gridTotal += st.Volumes[i]
		}
	}
	for i, v := range o.total {
		o.local[i] = v != 0
	}
	comm := view.Comm()
	comm.SumVector(o.total)
	o.gridTotal = comm.SumScalar(o.gridTotal)
}

// UpdateBoundary flags the primary dofs of all elements with boundary faces
func (o *DofVolumes) UpdateBoundary(view grid.View) {
	o.onBoundary = make([]bool, view.NumDof())
	var st grid.Stencil
	for e := 0; e < view.NumElements(); e++ {
		view.Stencil(e, &st)
		if len(st.Boundary) == 0 {
			continue
		}
		for i := 0; i < st.NumPrimary; i++ {
			o.onBoundary[st.Dofs[i]] = true
		}
	}
}

// Total returns the total volume of grid dof i
func (o *DofVolumes) Total(i int) float64 {
	o.check(i, len(o.total))
	return o.total[i]
}

// IsLocal tells whether grid dof i has volume in the interior of this process
func (o *DofVolumes) IsLocal(i int) bool {
	o.check(i, len(o.local))
	return o.local[i]
}

// OnBoundary tells whether grid dof i touches the domain boundary
func (o *DofVolumes) OnBoundary(i int) bool {
	o.check(i, len(o.onBoundary))
	return o.onBoundary[i]
}

// GridTotal returns the volume of the whole grid
func (o *DofVolumes) GridTotal() float64 { return o.gridTotal }

func (o *DofVolumes) check(i, n int) {
	if i < 0 || i >= n {
		chk.Panic("grid degree of freedom %d is out of range [0, %d)", i, n)
	}
}
