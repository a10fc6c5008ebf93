// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fvm

import (
	"github.com/cpmech/gosl/io"
)

// NonlinearSolver solves the nonlinear system of the current time step starting from the
// current iterate of a discretization
type NonlinearSolver interface {
	Apply() (converged bool)
}

// NewtonMethod solves the nonlinear system of a discretization with Newton-Raphson iterations
// governed by a NewtonController
type NewtonMethod struct {
	Ctrl  *NewtonController // controller
	ShowR bool              // show residual table

	// Convergence receives the convergence fields of each iteration if not nil
	Convergence func(iter int, flds *DofFields) error

	d     *Discretization // discretization
	delta *BlockVector    // update of the last iteration
	uPrev *BlockVector    // iterate before the last update
}

// NewNewtonMethod returns a new Newton method for d
func NewNewtonMethod(d *Discretization, ctrl *NewtonController) *NewtonMethod {
	return &NewtonMethod{Ctrl: ctrl, d: d}
}

// Delta returns the update of the last iteration
func (o *NewtonMethod) Delta() *BlockVector { return o.delta }

// Apply runs the iterations; the current iterate of the discretization holds the solution
func (o *NewtonMethod) Apply() (converged bool) {

	// auxiliary
	d := o.d
	ctrl := o.Ctrl
	lin := d.Linearizer()
	u := d.Solution(0)
	if o.delta == nil || len(o.delta.Data) != len(u.Data) {
		o.delta = NewBlockVector(u.NumDof(), u.Neq)
		o.uPrev = NewBlockVector(u.NumDof(), u.Neq)
	}

	// message
	if o.ShowR {
		io.Pf("\n%13s%4s%23s%23s\n", "t", "it", "defect", "physicalness")
	}

	// iterations
	lin.RelinearizeAll()
	ctrl.Begin(u)
	for ctrl.Proceed() {
		ctrl.BeginStep()

		// linearize at the current iterate
		err := lin.Linearize()
		if err != nil {
			if ctrl.Verbose {
				io.Pfred("linearization failed:\n%v\n", err)
			}
			ctrl.Abort()
			break
		}

		// solve J δ = r
		o.delta.Fill(0)
		ok := ctrl.SolveLinear(lin.Jacobian(), o.delta.Data, lin.Residual().Data)
		d.observe(func(ob Observer) { ob.LinearSolve(ok) })
		if !ok {
			ctrl.Abort()
			break
		}

		// update: u -= δ
		if o.Convergence != nil {
			o.uPrev.CopyFrom(u)
		}
		for i, v := range o.delta.Data {
			u.Data[i] -= v
		}
		d.cache.InvalidateSlot(0)
		d.SyncOverlap()

		// end step
		deflection := o.delta.Norm2()
		ctrl.EndStep(u, deflection)
		if o.ShowR {
			io.Pf("%13.6e%4d%23.15e%23.15e\n", d.time+d.dt, ctrl.NumSteps(), deflection*ctrl.oneByMag, ctrl.CurPhysicalness())
		}
		d.observe(func(ob Observer) { ob.NewtonIteration(ctrl.NumSteps(), deflection, ctrl.CurPhysicalness()) })

		// convergence output
		if o.Convergence != nil {
			flds := &DofFields{T: d.time + d.dt}
			err = d.ConvergenceFields(flds, o.uPrev, o.delta)
			if err == nil {
				err = o.Convergence(ctrl.NumSteps(), flds)
			}
			if err != nil {
				if ctrl.Verbose {
					io.Pfred("cannot write convergence fields:\n%v\n", err)
				}
				ctrl.Abort()
				break
			}
		}
	}

	// results
	converged = ctrl.State() == NewtonConverged
	steps := ctrl.NumSteps()
	if !converged {
		ctrl.OnFailure()
	}
	ctrl.End()
	d.observe(func(ob Observer) { ob.NewtonFinished(converged, steps) })
	return
}
