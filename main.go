// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"net/http"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"github.com/cpmech/gosl/mpi"
	"github.com/jakobtorben/opm-models/fvm"
	"github.com/jakobtorben/opm-models/metrics"
	_ "github.com/jakobtorben/opm-models/models/tracer"
)

func main() {

	// catch errors
	defer func() {
		if err := recover(); err != nil {
			if mpi.WorldRank() == 0 {
				chk.Verbose = true
				for i := 8; i > 3; i-- {
					chk.CallerInfo(i)
				}
				io.PfRed("ERROR: %v\n", err)
			}
		}
		mpi.Stop()
	}()
	mpi.Start()

	// read input parameters
	fnamepath, _ := io.ArgToFilename(0, "", ".sim", true)
	verbose := io.ArgToBool(1, true)
	erasePrev := io.ArgToBool(2, true)
	saveSummary := io.ArgToBool(3, true)
	allowParallel := io.ArgToBool(4, true)
	alias := io.ArgToString(5, "")
	restartIdx := io.ArgToInt(6, -1)
	metricsAddr := io.ArgToString(7, "")

	// message
	if mpi.WorldRank() == 0 && verbose {
		io.Pforan("\nopm-models -- finite volume simulation of flow in porous media\n\n")
		io.Pf("\n%v\n", io.ArgsTable(
			"filename path", "fnamepath", fnamepath,
			"show messages", "verbose", verbose,
			"erase previous results", "erasePrev", erasePrev,
			"save summary", "saveSummary", saveSummary,
			"allow parallel run", "allowParallel", allowParallel,
			"word to add to results", "alias", alias,
			"restart from output index", "restartIdx", restartIdx,
			"address of metrics endpoint", "metricsAddr", metricsAddr,
		))
	}

	// analysis data
	readSummary := restartIdx >= 0
	if readSummary {
		erasePrev = false
	}
	analysis, err := fvm.NewFVM(fnamepath, alias, erasePrev, saveSummary, readSummary, allowParallel, verbose)
	if err != nil {
		chk.Panic("cannot allocate simulation:\n%v", err)
	}

	// metrics
	if metricsAddr != "" && analysis.Proc == 0 {
		collector, err := metrics.NewCollector(nil)
		if err != nil {
			chk.Panic("cannot allocate metrics collector:\n%v", err)
		}
		analysis.Disc.AddObserver(collector)
		mux := http.NewServeMux()
		mux.Handle("/metrics", collector.Handler())
		go func() {
			if err := http.ListenAndServe(metricsAddr, mux); err != nil {
				io.PfRed("metrics endpoint stopped: %v\n", err)
			}
		}()
	}

	// restart
	if restartIdx >= 0 {
		err = analysis.Restart(restartIdx)
		if err != nil {
			chk.Panic("Restart failed:\n%v", err)
		}
	}

	// run simulation
	err = analysis.Run()
	if err != nil {
		chk.Panic("Run failed:\n%v", err)
	}
}
