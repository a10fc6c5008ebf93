// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build ignore

package main

import (
	"github.com/cpmech/gosl/io"
	"github.com/jakobtorben/opm-models/out"
	_ "github.com/jakobtorben/opm-models/models/tracer"
)

func main() {

	// catch errors
	defer func() {
		if err := recover(); err != nil {
			io.PfRed("ERROR: %v\n", err)
		}
	}()

	// input data
	simfn, fnk := io.ArgToFilename(0, "col01", ".sim", true)
	skip := io.ArgToInt(1, 0)
	dirout := io.ArgToString(2, "/tmp")
	key := io.ArgToString(3, "")
	dof := io.ArgToInt(4, 0)

	// print input data
	io.Pf("\n%s\n", io.ArgsTable(
		"simulation filename", "simfn", simfn,
		"number of initial time steps to skip", "skip", skip,
		"directory for figures", "dirout", dirout,
		"field to plot over time", "key", key,
		"grid dof of field", "dof", dof,
	))

	// read summary
	err := out.Start(simfn)
	if err != nil {
		io.PfRed("%v\n", err)
		return
	}
	sum := out.Sum
	io.Pf("\nNewton iterations per time step\n")
	io.Pf("===============================\n")
	for i, t := range sum.Times {
		io.Pf("%13.6e %4d %13.6e\n", t, sum.Iters[i], sum.Dts[i])
	}
	io.Pf("rejected time steps = %d\n\n", sum.Rejected)

	// plots
	if len(sum.Resids) > 0 {
		if _, err = out.PlotResiduals(dirout, fnk, sum, skip); err != nil {
			io.PfRed("%v\n", err)
		}
	}
	if _, err = out.PlotIterations(dirout, fnk, sum); err != nil {
		io.PfRed("%v\n", err)
	}
	if _, err = out.PlotTimeSteps(dirout, fnk, sum); err != nil {
		io.PfRed("%v\n", err)
	}
	if key != "" {
		if err = out.LoadResults(nil); err != nil {
			io.PfRed("%v\n", err)
			return
		}
		if _, err = out.PlotSeries(dirout, fnk, key, dof); err != nil {
			io.PfRed("%v\n", err)
		}
	}
}
