// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fvm

import (
	"testing"

	"github.com/cpmech/gosl/chk"
	"github.com/jakobtorben/opm-models/inp"
)

// solveStep runs one time step of size dt
func solveStep(tst *testing.T, mdl *diffModel, prms *inp.DiscData, dt float64) *Discretization {
	d := newDisc(tst, mdl, 4, 1, nil, prms)
	d.ApplyInitialSolution()
	d.SetTime(0, dt)
	ctrl, err := NewNewtonController(1e-10, 4, 10, denseSolver())
	if err != nil {
		tst.Fatalf("NewNewtonController failed:\n%v", err)
	}
	if !d.Update(NewNewtonMethod(d, ctrl)) {
		tst.Fatalf("Update should have converged\n")
	}
	return d
}

func Test_conservation01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("conservation01. storage rate versus source rate")

	d := solveStep(tst, &diffModel{neq: 2, init: 1, slope: 0.5, src: 0.3}, nil, 0.5)
	if !DebugChecks {
		if err := d.CheckConservativeness(1e-6, false); err != nil {
			tst.Errorf("check should be a no-op without build tag fvmdebug:\n%v", err)
		}
		return
	}

	// conserved
	if err := d.CheckConservativeness(1e-6, chk.Verbose); err != nil {
		tst.Errorf("CheckConservativeness failed:\n%v", err)
		return
	}

	// invalid input
	if err := d.CheckConservativeness(0, false); err == nil {
		tst.Errorf("zero tolerance should have failed\n")
	}
	d3 := solveStep(tst, &diffModel{neq: 1, init: 1}, &inp.DiscData{HistorySize: 3}, 1)
	if err := d3.CheckConservativeness(1e-6, false); err == nil {
		tst.Errorf("three time levels should have failed\n")
	}

	// unreported source
	leaky := solveStep(tst, &diffModel{neq: 1, init: 1, src: 0.3, leak: 0.1}, nil, 0.5)
	defer func() {
		if r := recover(); r == nil {
			tst.Errorf("unreported source should have been detected\n")
		}
	}()
	leaky.CheckConservativeness(1e-6, false)
}
