// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fvm

import (
	"math"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"github.com/cpmech/gosl/la"
)

// DebugChecks tells whether the consistency checks are compiled in; see build tag fvmdebug
const DebugChecks = debugChecks

// CheckConservativeness compares the rate of change of the storage terms during the last time
// step with the rates given by the source and boundary terms. A mismatch larger than tol
// (relative to the rates, but never smaller than tol itself) is a programming error and
// panics. The check requires two time levels and a local residual implementing RateProvider.
// It does nothing unless the package is built with tag fvmdebug
func (o *Discretization) CheckConservativeness(tol float64, verbose bool) (err error) {
	if !debugChecks {
		return
	}
	if tol <= 0 {
		return chk.Err("tolerance of conservativeness check must be positive. %g is invalid", tol)
	}
	if o.hist.Size() != 2 {
		return chk.Err("conservativeness check requires two time levels. %d is invalid", o.hist.Size())
	}
	if o.dt <= 0 {
		return chk.Err("conservativeness check requires a positive time step size. %g is invalid", o.dt)
	}
	w := o.workers[0]
	rp, ok := w.lr.(RateProvider)
	if !ok {
		return chk.Err("local residual of model %q does not provide source and boundary rates", o.model.Name())
	}

	// storage
	neq := o.numEq
	begin := make([]float64, neq)
	end := make([]float64, neq)
	if err = o.GlobalStorage(begin, 1); err != nil {
		return
	}
	if err = o.GlobalStorage(end, 0); err != nil {
		return
	}

	// boundary and source rates
	rate := la.NewVector(neq)
	totalRate := make([]float64, neq)
	ctx := w.ctx
	for _, e := range o.interior {
		ctx.UpdateStencil(e)
		st := ctx.Stencil()
		for b, bf := range st.Boundary {
			rate.Fill(0)
			if err = rp.Boundary(rate, ctx, b, 0); err != nil {
				return chk.Err("cannot compute boundary rate of element %d:\n%v", e, err)
			}
			for k, v := range rate {
				totalRate[k] += v * bf.Area
			}
		}
		for i := 0; i < st.NumPrimary; i++ {
			rate.Fill(0)
			if err = rp.Source(rate, ctx, i, 0); err != nil {
				return chk.Err("cannot compute source rate of element %d:\n%v", e, err)
			}
			for k, v := range rate {
				totalRate[k] -= v * ctx.DofVolume(i)
			}
		}
	}
	o.comm.SumVector(totalRate)
	if o.comm.Rank() != 0 {
		return
	}

	// compare
	storageRate := make([]float64, neq)
	for k := range storageRate {
		storageRate[k] = (begin[k] - end[k]) / o.dt
	}
	if verbose {
		io.Pf("storage at beginning of time step      = %v\n", begin)
		io.Pf("storage at end of time step            = %v\n", end)
		io.Pf("rate based on storage terms            = %v\n", storageRate)
		io.Pf("rate based on source and boundary terms = %v\n", totalRate)
	}
	for k := range storageRate {
		diff := math.Abs(storageRate[k] - totalRate[k])
		eps := math.Max(tol, (math.Abs(storageRate[k])+math.Abs(totalRate[k]))*tol)
		if diff > eps {
			chk.Panic("%s is not conserved: storage rate = %g, source and boundary rate = %g, difference = %g > %g", o.EqName(k), storageRate[k], totalRate[k], diff, eps)
		}
	}
	return
}
