// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fvm

import (
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"github.com/cpmech/gosl/utl"
)

// TolT is the tolerance to compare times
var TolT = 1e-10

// SolverImplicit runs the time loop with the implicit Euler method; the time step size follows
// the number of Newton iterations and failed steps are retried with smaller sizes
type SolverImplicit struct {
	fvm *FVM
}

// set factory
func init() {
	solverallocators["imp"] = func(o *FVM) TimeLoop {
		return &SolverImplicit{fvm: o}
	}
}

// Run runs the time loop until tf
func (o *SolverImplicit) Run(tf float64, verbose bool) (err error) {

	// auxiliary
	d := o.fvm.Disc
	ctrl := o.fvm.Newton.Ctrl
	ctl := &o.fvm.Sim.Control
	showR := o.fvm.Newton.ShowR

	// time control
	t := d.Time()
	Δt := utl.Min(ctl.Dt, ctl.DtMax)
	d.SetTime(t, 0)
	if !o.fvm.restarted {
		err = o.fvm.Output()
		if err != nil {
			return
		}
	}
	tout := t + ctl.DtOut

	// time loop
	var lasttimestep bool
	for t < tf-TolT {

		// time increment
		lasttimestep = false
		if t+Δt >= tf-TolT {
			Δt = tf - t
			lasttimestep = true
		} else if t+Δt > tout+TolT {
			Δt = tout - t // hit output time
		}

		// solve; reduce time step on failures
		ndiv := 0
		for {
			d.SetTime(t, Δt)
			if verbose && !showR {
				io.Pf("%30.15f\r", t+Δt)
			}
			if d.Update(o.fvm.Newton) {
				break
			}
			ndiv++
			if ndiv > ctl.MaxDiv {
				return chk.Err("Newton iterations failed at t = %g after %d time step divisions", t, ctl.MaxDiv)
			}
			Δt = ctrl.SuggestTimeStepSize(Δt)
			if Δt < ctl.DtMin {
				return chk.Err("Δt increment is too small: %g < %g", Δt, ctl.DtMin)
			}
			lasttimestep = false
			if verbose {
				io.Pfred(". . . Newton iterations failed (%2d). new Δt = %g . . .\n", ndiv, Δt)
			}
		}

		// check conservativeness of the time step
		if tol := o.consTol(); tol > 0 {
			err = d.CheckConservativeness(tol, verbose && o.fvm.Sim.Data.Debug)
			if err != nil {
				return
			}
		}

		// time update
		err = d.AdvanceTimeLevel()
		if err != nil {
			return
		}
		t += Δt
		d.SetTime(t, 0)

		// perform output
		if t >= tout-TolT || lasttimestep {
			err = o.fvm.Output()
			if err != nil {
				return
			}
			tout += ctl.DtOut
		}

		// next time step size
		Δt = utl.Min(ctrl.SuggestTimeStepSize(Δt), ctl.DtMax)
	}
	return
}

// consTol returns the tolerance of the conservativeness check; zero means no check
func (o *SolverImplicit) consTol() float64 {
	tol := o.fvm.Sim.Disc.ConsTol
	if tol < 0 {
		tol = o.fvm.Newton.Ctrl.Tolerance * o.fvm.Disc.GridTotalVolume() * 1000
	}
	return tol
}
