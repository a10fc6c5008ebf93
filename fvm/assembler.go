// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fvm

import (
	"math"
	"sync"
	"time"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/utl"
	"golang.org/x/sync/errgroup"
)

// worker holds the scratch data of one assembling goroutine
type worker struct {
	ctx  *ElementContext
	lr   LocalResidual
	res  [][]float64 // [nprimary][neq] residual
	sto  [][]float64 // [nprimary][neq] storage
	res1 [][]float64 // [nprimary][neq] residual of perturbed state
	jac  [][]float64 // [nprimary*neq][ndof*neq] local Jacobian
}

// fit makes sure that the local arrays can hold np primary dofs and nd dofs; the arrays are zeroed
func (o *worker) fit(np, nd, neq int) {
	if len(o.res) < np {
		o.res = utl.Alloc(np, neq)
		o.sto = utl.Alloc(np, neq)
		o.res1 = utl.Alloc(np, neq)
	}
	for i := 0; i < np; i++ {
		for k := 0; k < neq; k++ {
			o.res[i][k], o.sto[i][k], o.res1[i][k] = 0, 0, 0
		}
	}
	if len(o.jac) < np*neq || (len(o.jac) > 0 && len(o.jac[0]) < nd*neq) {
		o.jac = utl.Alloc(np*neq, nd*neq)
	}
}

// forEachInterior calls fn for each interior element. Elements are split in contiguous chunks,
// one per worker, and the chunks run concurrently
func (o *Discretization) forEachInterior(fn func(w *worker, elem int) error) error {
	nw := len(o.workers)
	n := len(o.interior)
	if nw == 1 || n < 2 {
		for _, e := range o.interior {
			if err := fn(o.workers[0], e); err != nil {
				return err
			}
		}
		return nil
	}
	var g errgroup.Group
	g.SetLimit(nw)
	chunk := (n + nw - 1) / nw
	for t := 0; t < nw; t++ {
		lo := t * chunk
		if lo >= n {
			break
		}
		hi := min(lo+chunk, n)
		w, part := o.workers[t], o.interior[lo:hi]
		g.Go(func() error {
			for _, e := range part {
				if err := fn(w, e); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}

// GlobalResidualFor computes the global residual of the solution u instead of the current
// iterate; the current iterate is restored before returning
func (o *Discretization) GlobalResidualFor(dest, u *BlockVector) (norm float64, err error) {
	u0 := o.hist.Slot(0)
	tmp := u0.GetCopy()
	u0.CopyFrom(u)
	o.cache.InvalidateSlot(0)
	defer func() {
		u0.CopyFrom(tmp)
		o.cache.InvalidateSlot(0)
	}()
	return o.GlobalResidual(dest)
}

// GlobalResidual computes the residual of all degrees of freedom and returns its norm.
//  Note: the norm sums the squared residuals of every dof known to each process, thus dofs on
//        process boundaries are counted once per process touching them
func (o *Discretization) GlobalResidual(dest *BlockVector) (norm float64, err error) {
	t0 := time.Now()
	if dest.Neq != o.numEq || dest.NumDof() != o.NumTotalDof() {
		dest.Neq = o.numEq
		dest.Data = make([]float64, o.NumTotalDof()*o.numEq)
	}
	dest.Fill(0)

	// local residuals
	var mu sync.Mutex
	err = o.forEachInterior(func(w *worker, elem int) error {
		w.ctx.UpdateStencil(elem)
		st := w.ctx.Stencil()
		np := st.NumPrimary
		w.fit(np, len(st.Dofs), o.numEq)
		if err := w.lr.Eval(w.res[:np], w.sto[:np], w.ctx); err != nil {
			return chk.Err("cannot evaluate local residual of element %d:\n%v", elem, err)
		}
		mu.Lock()
		defer mu.Unlock()
		for i := 0; i < np; i++ {
			blk := dest.Block(st.Dofs[i])
			for k, v := range w.res[i] {
				blk[k] += v
			}
		}
		return nil
	})
	if err != nil {
		return
	}

	// sum over process boundaries
	o.comm.SumVector(dest.Data)

	// norm
	var sum float64
	ngrid := o.NumGridDof()
	for i := 0; i < ngrid; i++ {
		if !o.view.IsProcessDof(i) {
			continue
		}
		for _, v := range dest.Block(i) {
			sum += v * v
		}
	}
	norm = math.Sqrt(o.comm.SumScalar(sum))
	o.observe(func(ob Observer) { ob.Assembly("residual", time.Since(t0)) })
	return
}

// GlobalStorage computes the storage term summed over the whole domain at time level timeIdx
func (o *Discretization) GlobalStorage(storage []float64, timeIdx int) (err error) {
	t0 := time.Now()
	if len(storage) != o.numEq {
		chk.Panic("storage must have %d components. %d is invalid", o.numEq, len(storage))
	}
	o.hist.Slot(timeIdx) // check slot
	for k := range storage {
		storage[k] = 0
	}
	var mu sync.Mutex
	err = o.forEachInterior(func(w *worker, elem int) error {
		w.ctx.UpdateStencil(elem)
		if err := w.ctx.UpdatePrimaryIntensiveQuantities(timeIdx); err != nil {
			return err
		}
		st := w.ctx.Stencil()
		np := st.NumPrimary
		w.fit(np, len(st.Dofs), o.numEq)
		if err := w.lr.EvalStorage(w.sto[:np], w.ctx, timeIdx); err != nil {
			return chk.Err("cannot evaluate storage of element %d:\n%v", elem, err)
		}
		mu.Lock()
		defer mu.Unlock()
		for i := 0; i < np; i++ {
			for k, v := range w.sto[i] {
				storage[k] += v
			}
		}
		return nil
	})
	if err != nil {
		return
	}
	o.comm.SumVector(storage)
	o.observe(func(ob Observer) { ob.Assembly("storage", time.Since(t0)) })
	return
}
