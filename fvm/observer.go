// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fvm

import "time"

// Observer receives notifications from the solver; e.g. to collect metrics or statistics
type Observer interface {
	NewtonIteration(step int, deflection, physicalness float64) // end of a Newton iteration
	NewtonFinished(converged bool, steps int)                    // end of a Newton solve
	LinearSolve(converged bool)                                  // end of a linear solve
	Assembly(kind string, elapsed time.Duration)                 // end of an assembly; kind is "residual", "storage" or "linearize"
	TimeStep(t, dt float64, accepted bool)                       // end of a time step attempt
}

// NopObserver implements Observer doing nothing. Embed it to observe a subset of events
type NopObserver struct{}

func (NopObserver) NewtonIteration(step int, deflection, physicalness float64) {}
func (NopObserver) NewtonFinished(converged bool, steps int)                    {}
func (NopObserver) LinearSolve(converged bool)                                  {}
func (NopObserver) Assembly(kind string, elapsed time.Duration)                 {}
func (NopObserver) TimeStep(t, dt float64, accepted bool)                       {}
