// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package fvm implements the finite volume discretization of nonlinear transient conservation
// laws: solution history, intensive quantities cache, residual assembly and Newton iterations
package fvm

import (
	"bytes"
	"time"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"github.com/cpmech/gosl/mpi"
	"github.com/jakobtorben/opm-models/grid"
	"github.com/jakobtorben/opm-models/inp"
	"github.com/jakobtorben/opm-models/linsol"
)

// TimeLoop implements the actual solver (time loop)
type TimeLoop interface {
	Run(tf float64, verbose bool) (err error)
}

// solverallocators holds all available time loops
var solverallocators = make(map[string]func(o *FVM) TimeLoop)

// modelallocators holds all available models
var modelallocators = make(map[string]func(sim *inp.Simulation) (Model, error))

// RegisterModel makes a model available by name; it is called by the init functions of the
// model packages
func RegisterModel(name string, alloc func(sim *inp.Simulation) (Model, error)) {
	if _, ok := modelallocators[name]; ok {
		chk.Panic("model named %q is already registered", name)
	}
	modelallocators[name] = alloc
}

// NewModel allocates a registered model
func NewModel(name string, sim *inp.Simulation) (Model, error) {
	if alloc, ok := modelallocators[name]; ok {
		return alloc(sim)
	}
	return nil, chk.Err("cannot find model named %q", name)
}

// AuxiliaryModuleProvider is implemented by models that couple auxiliary modules to the grid
// equations; e.g. wells
type AuxiliaryModuleProvider interface {
	AuxiliaryModules() []AuxiliaryModule
}

// FVM holds all data for a simulation using the finite volume method
type FVM struct {
	Sim     *inp.Simulation // simulation data
	Summary *Summary        // summary structure
	Model   Model           // physical model
	Disc    *Discretization // discretization
	Newton  *NewtonMethod   // nonlinear solver
	Solver  TimeLoop        // time loop
	Nproc   int             // number of processors
	Proc    int             // processor id
	Verbose bool            // show messages

	// auxiliary
	tidx      int  // next time output index
	restarted bool // solution read from restart file
}

// NewFVM returns a new FVM structure
//  Input:
//   simfilepath   -- simulation (.sim) filename including full path
//   alias         -- word to be appended to simulation key; e.g. when running multiple FV solutions
//   erasePrev     -- erase previous results files
//   saveSummary   -- save summary
//   readSummary   -- read summary of previous simulation
//   allowParallel -- allow parallel execution; otherwise, run in serial mode regardless whether MPI is on or not
//   verbose       -- show messages
func NewFVM(simfilepath, alias string, erasePrev, saveSummary, readSummary, allowParallel, verbose bool) (o *FVM, err error) {

	// read input data
	sim, err := inp.ReadSim(simfilepath, alias, erasePrev)
	if err != nil {
		return
	}

	// communicator
	var comm grid.Communicator = grid.SerialComm{}
	if mpi.IsOn() && allowParallel && mpi.WorldSize() > 1 {
		comm = grid.NewMpiComm()
	}

	// allocate
	o, err = NewFVMsim(sim, comm, saveSummary || readSummary, verbose)
	if err != nil {
		return
	}

	// read summary of previous simulation
	if readSummary {
		err = o.Summary.Read(o.Sim.DirOut, o.Sim.Key, o.Sim.EncType)
		if err != nil {
			return nil, chk.Err("cannot read summary:\n%v", err)
		}
	}
	return
}

// NewFVMsim returns a new FVM structure for simulation data already read
func NewFVMsim(sim *inp.Simulation, comm grid.Communicator, saveSummary, verbose bool) (o *FVM, err error) {

	// new FVM object
	o = &FVM{Sim: sim, Proc: comm.Rank(), Nproc: comm.Size()}
	o.Verbose = verbose && (o.Proc == 0)

	// show input data
	if o.Verbose && sim.Data.Debug {
		var buf bytes.Buffer
		err = sim.GetInfo(&buf)
		if err != nil {
			return nil, chk.Err("cannot format simulation data:\n%v", err)
		}
		io.Pf("%s\n", buf.String())
	}

	// grid view
	view, err := grid.NewCellView(sim.Msh, comm)
	if err != nil {
		return nil, chk.Err("cannot allocate grid view:\n%v", err)
	}

	// model
	o.Model, err = NewModel(sim.Model.Name, sim)
	if err != nil {
		return nil, chk.Err("cannot allocate model:\n%v", err)
	}

	// discretization
	lin := NewFdLinearizer(sim.Solver.FdEps, sim.Solver.CteTg)
	o.Disc, err = NewDiscretization(o.Model, view, &sim.Disc, lin)
	if err != nil {
		return nil, chk.Err("cannot allocate discretization:\n%v", err)
	}
	o.Disc.Verbose = o.Verbose

	// auxiliary modules
	if p, ok := o.Model.(AuxiliaryModuleProvider); ok {
		for _, m := range p.AuxiliaryModules() {
			if err = o.Disc.AddAuxiliaryModule(m); err != nil {
				return nil, err
			}
		}
		if err = o.Disc.FinishInit(); err != nil {
			return nil, err
		}
	}

	// Newton method
	ls, err := linsol.New(sim.LinSol.Name, comm, sim.LinSol.Verbose && o.Verbose)
	if err != nil {
		return nil, err
	}
	ctrl, err := NewNewtonController(sim.Solver.Tol, sim.Solver.TargetIt, sim.Solver.MaxIt, ls)
	if err != nil {
		return nil, err
	}
	ctrl.Verbose = o.Verbose
	if phys, ok := o.Model.(Physicalness); ok {
		ctrl.Phys = phys
	}
	o.Newton = NewNewtonMethod(o.Disc, ctrl)
	o.Newton.ShowR = sim.Solver.ShowR && o.Verbose
	if sim.Solver.WriteCnv {
		o.Newton.Convergence = o.SaveConvergence
	}

	// summary
	if saveSummary {
		o.Summary = &Summary{stat: sim.Data.Stat}
		o.Disc.AddObserver(o.Summary)
	}

	// allocate solver
	if alloc, ok := solverallocators[sim.Solver.Type]; ok {
		o.Solver = alloc(o)
	} else {
		return nil, chk.Err("cannot find solver type named %q", sim.Solver.Type)
	}
	return
}

// Restart reads the solution saved at output index tidx of a previous simulation with the same
// key. The summary must have been read
func (o *FVM) Restart(tidx int) (err error) {
	if o.Summary == nil || tidx < 0 || tidx >= len(o.Summary.OutTimes) {
		return chk.Err("restart requires the summary of a previous simulation with output index %d", tidx)
	}
	err = o.ReadRestart(o.Sim.DirOut, o.Sim.Key, tidx)
	if err != nil {
		return
	}
	o.Summary.OutTimes = o.Summary.OutTimes[:tidx+1]
	o.tidx = tidx + 1
	o.restarted = true
	return
}

// Run runs FV simulation
func (o *FVM) Run() (err error) {

	// initial solution
	cputime := time.Now()
	if !o.restarted {
		o.Disc.ApplyInitialSolution()
	}

	// time loop
	err = o.Solver.Run(o.Sim.Control.Tf, o.Verbose)
	if err != nil {
		return
	}

	// message
	if o.Verbose {
		io.Pf("\n\n")
		io.Pf("\nfinal time = %v\n", o.Disc.Time())
		io.Pflmag("cpu time   = %v\n", time.Now().Sub(cputime))
	}

	// save summary
	if o.Summary != nil {
		err = o.Summary.Save(o.Sim.DirOut, o.Sim.Key, o.Sim.EncType, o.Nproc, o.Proc, o.Verbose)
	}
	return
}

// Output saves the fields and, if requested, the restart file at the current time
func (o *FVM) Output() (err error) {
	err = o.SaveFields(o.tidx)
	if err != nil {
		return
	}
	if o.Sim.Data.Restart {
		err = o.SaveRestart(o.tidx)
		if err != nil {
			return
		}
	}
	if o.Summary != nil {
		o.Summary.OutTimes = append(o.Summary.OutTimes, o.Disc.Time()+o.Disc.Dt())
	}
	o.tidx++
	return
}

// NumOutputs returns the number of outputs done so far
func (o *FVM) NumOutputs() int { return o.tidx }
