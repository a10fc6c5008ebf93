// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fvm

import (
	"math"
	"sync"
	"time"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/la"
	"github.com/jakobtorben/opm-models/grid"
)

// Linearizer assembles the global Jacobian matrix and residual vector
type Linearizer interface {
	Init(d *Discretization) error // allocates structures for the current grid and auxiliary modules
	Linearize() error             // assembles Jacobian and residual at the current iterate
	RelinearizeAll()              // forces the Jacobian to be assembled by the next Linearize
	Jacobian() *la.Triplet        // global Jacobian
	Residual() *BlockVector       // global residual
}

// FdLinearizer computes the Jacobian of the local residuals with forward finite differences
type FdLinearizer struct {
	Eps   float64 // base perturbation
	CteTg bool    // keep the Jacobian until RelinearizeAll is called (modified Newton)

	d     *Discretization
	jac   *la.Triplet
	res   *BlockVector
	fresh bool // Jacobian must be assembled
}

// NewFdLinearizer returns a new finite difference linearizer
func NewFdLinearizer(eps float64, cteTg bool) *FdLinearizer {
	if eps <= 0 {
		eps = 1e-8
	}
	return &FdLinearizer{Eps: eps, CteTg: cteTg}
}

// Init allocates the global Jacobian with room for the local Jacobians of all interior elements
// and the entries of the auxiliary modules
func (o *FdLinearizer) Init(d *Discretization) (err error) {
	o.d = d
	neq := d.numEq
	n := d.NumTotalDof() * neq
	nnz := 0
	var st grid.Stencil
	for _, e := range d.interior {
		d.view.Stencil(e, &st)
		nnz += st.NumPrimary * neq * len(st.Dofs) * neq
	}
	for _, m := range d.auxMods {
		nnz += m.NumNonZeros(neq)
	}
	if nnz < 1 {
		return chk.Err("cannot allocate Jacobian without entries")
	}
	o.jac = new(la.Triplet)
	o.jac.Init(n, n, nnz)
	o.res = NewBlockVector(d.NumTotalDof(), neq)
	o.fresh = true
	return
}

// RelinearizeAll forces the assembly of the Jacobian
func (o *FdLinearizer) RelinearizeAll() { o.fresh = true }

// Jacobian returns the global Jacobian
func (o *FdLinearizer) Jacobian() *la.Triplet { return o.jac }

// Residual returns the global residual
func (o *FdLinearizer) Residual() *BlockVector { return o.res }

// Linearize assembles the residual and, unless a constant tangent is kept, the Jacobian
func (o *FdLinearizer) Linearize() (err error) {
	if o.d == nil {
		chk.Panic("linearizer must be initialised before use")
	}
	t0 := time.Now()
	d := o.d
	neq := d.numEq
	asmJac := o.fresh || !o.CteTg
	o.res.Fill(0)
	if asmJac {
		o.jac.Start()
	}

	// elements
	var mu sync.Mutex
	err = d.forEachInterior(func(w *worker, elem int) error {
		ctx := w.ctx
		ctx.UpdateStencil(elem)
		if err := ctx.UpdateIntensiveQuantities(0); err != nil {
			return err
		}
		st := ctx.Stencil()
		np, nd := st.NumPrimary, len(st.Dofs)
		w.fit(np, nd, neq)
		if err := w.lr.Eval(w.res[:np], w.sto[:np], ctx); err != nil {
			return chk.Err("cannot evaluate local residual of element %d:\n%v", elem, err)
		}
		if asmJac {
			for j := 0; j < nd; j++ {
				for k := 0; k < neq; k++ {
					val := ctx.pv0[j][k]
					h := o.Eps * math.Max(math.Abs(val), 1)
					saved, had := ctx.perturb(j, k, val+h)
					for i := 0; i < np; i++ {
						for q := 0; q < neq; q++ {
							w.res1[i][q], w.sto[i][q] = 0, 0
						}
					}
					err := w.lr.Eval(w.res1[:np], w.sto[:np], ctx)
					ctx.unperturb(j, k, val, saved, had)
					if err != nil {
						return chk.Err("cannot evaluate derivative of local residual of element %d:\n%v", elem, err)
					}
					for i := 0; i < np; i++ {
						for q := 0; q < neq; q++ {
							w.jac[i*neq+q][j*neq+k] = (w.res1[i][q] - w.res[i][q]) / h
						}
					}
				}
			}
		}
		mu.Lock()
		defer mu.Unlock()
		for i := 0; i < np; i++ {
			I := st.Dofs[i]
			blk := o.res.Block(I)
			for q := 0; q < neq; q++ {
				blk[q] += w.res[i][q]
			}
			if !asmJac {
				continue
			}
			for j := 0; j < nd; j++ {
				J := st.Dofs[j]
				for q := 0; q < neq; q++ {
					for k := 0; k < neq; k++ {
						o.jac.Put(I*neq+q, J*neq+k, w.jac[i*neq+q][j*neq+k])
					}
				}
			}
		}
		return nil
	})
	if err != nil {
		return
	}

	// auxiliary modules; added by one process only since all entries are summed afterwards
	if d.comm.Rank() == 0 {
		var jac *la.Triplet
		if asmJac {
			jac = o.jac
		}
		for _, m := range d.auxMods {
			if err = m.Linearize(d, jac, o.res); err != nil {
				return chk.Err("cannot linearize auxiliary module:\n%v", err)
			}
		}
	}

	// sum over processes
	d.comm.SumVector(o.res.Data)
	o.fresh = false
	d.observe(func(ob Observer) { ob.Assembly("linearize", time.Since(t0)) })
	return
}
