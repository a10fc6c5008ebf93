// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fvm

import (
	"bytes"
	"os"
	"path/filepath"
	"time"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
)

// Summary records output times, accepted time steps and Newton deflections. It observes the
// discretization to collect its data
type Summary struct {

	// main data
	Nproc    int         // number of processors used in last run; equal to 1 if not distributed
	OutTimes []float64   // [nOutTimes] output times
	Times    []float64   // [nSteps] time at the end of each accepted step
	Dts      []float64   // [nSteps] size of each accepted step
	Iters    []int       // [nSteps] number of Newton iterations of each accepted step
	Rejected int         // number of rejected time step attempts
	Resids   [][]float64 // [nSteps][nIters] deflections (if Stat is on)
	Dirout   string      // directory where results are stored
	Fnkey    string      // filename key of simulation

	// auxiliary
	stat bool      // record deflections
	cur  []float64 // deflections of the current solve
	its  int       // iterations of the last converged solve
}

// NewtonIteration records the deflection
func (o *Summary) NewtonIteration(step int, deflection, physicalness float64) {
	if o.stat {
		o.cur = append(o.cur, deflection)
	}
}

// NewtonFinished keeps the deflections of converged solves only
func (o *Summary) NewtonFinished(converged bool, steps int) {
	if converged {
		o.its = steps
		if o.stat {
			o.Resids = append(o.Resids, o.cur)
		}
	}
	o.cur = nil
}

// TimeStep records accepted steps and counts rejected ones
func (o *Summary) TimeStep(t, dt float64, accepted bool) {
	if !accepted {
		o.Rejected++
		return
	}
	o.Times = append(o.Times, t+dt)
	o.Dts = append(o.Dts, dt)
	o.Iters = append(o.Iters, o.its)
}

// LinearSolve does nothing
func (o *Summary) LinearSolve(converged bool) {}

// Assembly does nothing
func (o *Summary) Assembly(kind string, elapsed time.Duration) {}

// Save saves summary to disc
func (o Summary) Save(dirout, fnkey, enctype string, nproc, proc int, verbose bool) (err error) {

	// set flags before saving
	o.Nproc = nproc
	o.Dirout = dirout
	o.Fnkey = fnkey

	// skip if not root
	if proc != 0 {
		return
	}

	// buffer and encoder
	var buf bytes.Buffer
	enc := GetEncoder(&buf, enctype)

	// encode summary
	err = enc.Encode(o)
	if err != nil {
		return chk.Err("cannot encode summary\n%v", err)
	}

	// save file
	fn := out_sum_path(dirout, fnkey, enctype)
	return save_file(fn, &buf, verbose)
}

// Read reads summary back
func (o *Summary) Read(dir, fnkey, enctype string) (err error) {

	// open file
	fn := out_sum_path(dir, fnkey, enctype)
	fil, err := os.Open(fn)
	if err != nil {
		return chk.Err("cannot open summary file:\n%v", err)
	}
	defer fil.Close()

	// decode summary
	dec := GetDecoder(fil, enctype)
	err = dec.Decode(o)
	if err != nil {
		return chk.Err("cannot decode summary from <%s>\n%v", fn, err)
	}
	return
}

// auxiliary ///////////////////////////////////////////////////////////////////////////////////////

func out_sum_path(dir, fnkey, enctype string) string {
	return filepath.Join(dir, io.Sf("%s_sum.%s", fnkey, enctype))
}
