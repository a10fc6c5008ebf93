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

// NewtonState holds the state of a Newton solve
type NewtonState int

// Newton states
const (
	NewtonInitializing NewtonState = iota // before the first iteration
	NewtonIterating                       // iterations in progress
	NewtonConverged                       // converged
	NewtonFailed                          // giving up
)

// String returns the name of the state
func (o NewtonState) String() string {
	switch o {
	case NewtonInitializing:
		return "initializing"
	case NewtonIterating:
		return "iterating"
	case NewtonConverged:
		return "converged"
	case NewtonFailed:
		return "failed"
	}
	return "unknown"
}

// Physicalness measures how physically meaningful a solution is: values ≥ 1 are fully
// physical, values ≤ 0 are unphysical
type Physicalness interface {
	Physicalness(u *BlockVector) float64
}

// PhysicalnessFunc adapts a function to the Physicalness interface
type PhysicalnessFunc func(u *BlockVector) float64

// Physicalness calls f(u)
func (f PhysicalnessFunc) Physicalness(u *BlockVector) float64 { return f(u) }

// UnitPhysicalness considers every solution fully physical
type UnitPhysicalness struct{}

// Physicalness returns 1
func (UnitPhysicalness) Physicalness(u *BlockVector) float64 { return 1 }

// LinearSolver solves A x = b
type LinearSolver interface {

	// Solve solves the system with relative tolerance relTol (if iterative) and reports
	// whether the solution is usable
	Solve(A *la.Triplet, x, b la.Vector, relTol float64) (converged bool, err error)
}

// NewtonController decides whether Newton iterations continue, converged or failed and
// suggests the size of the next time step from the number of iterations
type NewtonController struct {

	// parameters
	Tolerance    float64      // tolerance on the scaled deflection
	TargetSteps  int          // desired number of iterations
	MaxSteps     int          // maximum number of iterations
	Phys         Physicalness // physicalness measure
	LinSol       LinearSolver // linear solver
	Verbose      bool         // show messages
	oneByMag     float64      // reciprocal of the magnitude of the initial solution
	deflection   float64      // norm of the last update
	numSteps     int          // number of iterations done
	probation    int          // consecutive iterations with physicalness below the maximum
	maxPhys      float64      // maximum physicalness seen in this solve
	curPhys      float64      // physicalness of the current iterate
	state        NewtonState  // state
	lastLinSolOk bool         // last linear solve succeeded
}

// NewNewtonController returns a new controller. maxSteps must be greater than targetSteps+3
func NewNewtonController(tol float64, targetSteps, maxSteps int, linsol LinearSolver) (o *NewtonController, err error) {
	if tol <= 0 {
		return nil, chk.Err("Newton tolerance must be positive. %g is invalid", tol)
	}
	if targetSteps < 1 {
		return nil, chk.Err("target number of Newton iterations must be positive. %d is invalid", targetSteps)
	}
	if maxSteps <= targetSteps+3 {
		return nil, chk.Err("maximum number of Newton iterations (%d) must be greater than the target number plus 3 (%d)", maxSteps, targetSteps+3)
	}
	o = &NewtonController{Tolerance: tol, TargetSteps: targetSteps, MaxSteps: maxSteps, LinSol: linsol}
	o.Phys = UnitPhysicalness{}
	return
}

// Begin starts a Newton solve from the initial solution u
func (o *NewtonController) Begin(u *BlockVector) {
	o.numSteps = 0
	o.probation = 0
	o.maxPhys = 0
	o.curPhys = 0
	o.deflection = 0
	o.oneByMag = 1.0 / math.Max(u.Norm2(), 1e-5)
	o.state = NewtonIterating
}

// Proceed tells whether another iteration should be done; when false is returned, the state
// is either converged or failed
func (o *NewtonController) Proceed() bool {
	if o.state != NewtonIterating {
		return false
	}
	if o.numSteps < 2 {
		return true // always do at least two iterations
	}
	if o.numSteps > o.MaxSteps {
		return o.fail("too many iterations: %d > %d", o.numSteps, o.MaxSteps)
	}
	if o.Converged() {
		o.state = NewtonConverged
		return false
	}
	if o.curPhys <= 0 {
		return o.fail("solution is unphysical: physicalness = %g", o.curPhys)
	}
	floor := float64(o.numSteps) / float64(o.MaxSteps-1)
	if o.curPhys < floor {
		return o.fail("solution is not physical enough: physicalness = %g < %g", o.curPhys, floor)
	}
	if o.probation > 1 {
		return o.fail("physicalness decreased in %d consecutive iterations", o.probation)
	}
	return true
}

// Converged tells whether the scaled deflection is below the tolerance and the solution is
// fully physical
func (o *NewtonController) Converged() bool {
	return o.deflection*o.oneByMag <= o.Tolerance && o.curPhys >= 1
}

// BeginStep is called before each iteration
func (o *NewtonController) BeginStep() {}

// EndStep is called after each iteration with the updated solution u and the norm of the
// update
func (o *NewtonController) EndStep(u *BlockVector, deflection float64) {
	o.numSteps++
	o.deflection = deflection
	o.curPhys = math.Min(o.Phys.Physicalness(u), 1)
	if o.curPhys < o.maxPhys {
		o.probation++
		return
	}
	o.probation = 0
	o.maxPhys = o.curPhys
}

// SolveLinear solves A x = b with a relative tolerance much tighter than the Newton tolerance.
// Failures and panics of the linear solver are reported as false
func (o *NewtonController) SolveLinear(A *la.Triplet, x, b la.Vector) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			if o.Verbose {
				io.Pfred("linear solver panicked: %v\n", r)
			}
			ok = false
		}
		o.lastLinSolOk = ok
	}()
	if o.LinSol == nil {
		chk.Panic("Newton controller requires a linear solver")
	}
	converged, err := o.LinSol.Solve(A, x, b, o.Tolerance/1e8)
	if err != nil {
		if o.Verbose {
			io.Pfred("linear solver failed:\n%v\n", err)
		}
		return false
	}
	return converged
}

// Abort makes the current solve fail; e.g. after a linear solver failure
func (o *NewtonController) Abort() {
	o.state = NewtonFailed
}

// OnFailure is called after a failed solve; the iteration count is set to twice the target so
// that the suggested time step is reduced
func (o *NewtonController) OnFailure() {
	o.numSteps = 2 * o.TargetSteps
}

// End is called after the solve
func (o *NewtonController) End() {}

// SuggestTimeStepSize returns the size of the next time step. The step is reduced if more than
// the target number of iterations were needed and increased otherwise
func (o *NewtonController) SuggestTimeStepSize(oldDt float64) float64 {
	s, t := float64(o.numSteps), float64(o.TargetSteps)
	if o.numSteps > o.TargetSteps {
		percent := (s - t) / t
		return oldDt / (1 + percent)
	}
	percent := (t - s) / t
	return oldDt * (1 + percent/1.2)
}

// NumSteps returns the number of iterations done
func (o *NewtonController) NumSteps() int { return o.numSteps }

// State returns the state
func (o *NewtonController) State() NewtonState { return o.state }

// Deflection returns the norm of the last update
func (o *NewtonController) Deflection() float64 { return o.deflection }

// CurPhysicalness returns the physicalness of the current iterate
func (o *NewtonController) CurPhysicalness() float64 { return o.curPhys }

// fail sets the failed state and returns false
func (o *NewtonController) fail(msg string, prm ...interface{}) bool {
	if o.Verbose {
		io.Pfred("Newton iterations failed: "+msg+"\n", prm...)
	}
	o.state = NewtonFailed
	return false
}
