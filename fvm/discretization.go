// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fvm

import (
	"math"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"github.com/jakobtorben/opm-models/grid"
	"github.com/jakobtorben/opm-models/inp"
)

// GridAdapter adapts the grid after a time step. When the grid changes, parent maps each new
// grid dof to the old grid dof whose values it inherits (-1 => zero)
type GridAdapter interface {
	Adapt(d *Discretization) (view grid.View, parent []int, changed bool, err error)
}

// Discretization owns the solution history, the intensive quantities cache, the dof volumes,
// the auxiliary modules and the workers assembling the global residual
type Discretization struct {

	// options
	Verbose bool        // show messages
	Adapter GridAdapter // grid adapter; used only if adaptation is enabled

	// collaborators
	model Model
	view  grid.View
	comm  grid.Communicator
	lin   Linearizer

	// data
	numEq     int
	hist      *History
	cache     *IqCache
	vols      DofVolumes
	auxMods   []AuxiliaryModule
	outMods   []OutputModule
	observers []Observer
	interior  []int     // interior elements
	workers   []*worker // one per goroutine
	adapt     bool      // grid adaptation enabled
	stale     bool      // FinishInit must be called before the next update
	time      float64   // time at the beginning of the current time step
	dt        float64   // current time step size
}

// NewDiscretization allocates a new discretization and calls FinishInit
func NewDiscretization(model Model, view grid.View, prms *inp.DiscData, lin Linearizer) (o *Discretization, err error) {

	// check
	if model == nil {
		chk.Panic("discretization requires a model")
	}
	if view == nil {
		chk.Panic("discretization requires a grid view")
	}
	if lin == nil {
		chk.Panic("discretization requires a linearizer")
	}
	if prms == nil {
		prms = new(inp.DiscData)
	}
	hsize := prms.HistorySize
	if hsize == 0 {
		hsize = 2
	}
	if hsize < 2 {
		return nil, chk.Err("history size must be at least 2. %d is invalid", hsize)
	}
	neq := model.NumEq()
	if neq < 1 {
		return nil, chk.Err("model %q must have at least one equation. %d is invalid", model.Name(), neq)
	}

	// new object
	o = &Discretization{model: model, view: view, comm: view.Comm(), lin: lin, numEq: neq, adapt: prms.Adapt}
	o.Verbose = o.comm.Rank() == 0
	ndof := view.NumDof()
	o.hist = NewHistory(hsize, ndof, neq)
	o.cache = NewIqCache(hsize, ndof, prms.EnableCache, prms.EnableHints)

	// workers
	nw := max(prms.Nthreads, 1)
	o.workers = make([]*worker, nw)
	for i := range o.workers {
		lr := model.NewLocalResidual()
		o.workers[i] = &worker{lr: lr, ctx: newElementContext(o, lr)}
	}

	// finish
	err = o.FinishInit()
	if err != nil {
		return nil, err
	}
	model.RegisterOutputModules(o)
	return
}

// FinishInit computes the dof volumes and locality flags, collects the interior elements,
// resets the cache and initialises the linearizer. It must be called after the grid changed
// or auxiliary modules were registered
func (o *Discretization) FinishInit() (err error) {
	o.interior = o.interior[:0]
	for e := 0; e < o.view.NumElements(); e++ {
		if o.view.PartitionType(e) == grid.Interior {
			o.interior = append(o.interior, e)
		}
	}
	o.vols.Build(o.view)
	o.UpdateBoundary()
	o.cache.Resize(o.NumGridDof())
	err = o.ResetLinearizer()
	if err != nil {
		return chk.Err("cannot initialise linearizer:\n%v", err)
	}
	o.stale = false
	return
}

// UpdateBoundary flags the primary dofs of all elements touching the domain boundary
func (o *Discretization) UpdateBoundary() {
	o.vols.UpdateBoundary(o.view)
}

// ResetLinearizer re-initialises the linearizer; e.g. after the sparsity pattern changed
func (o *Discretization) ResetLinearizer() error {
	return o.lin.Init(o)
}

// ApplyInitialSolution sets the initial condition of all time levels
func (o *Discretization) ApplyInitialSolution() {
	u := o.hist.Slot(0)
	u.Fill(0)

	// grid dofs
	ctx := o.workers[0].ctx
	for _, e := range o.interior {
		ctx.UpdateStencil(e)
		st := ctx.Stencil()
		for i := 0; i < st.NumPrimary; i++ {
			pv := u.Block(st.Dofs[i])
			o.model.Initial(pv, ctx, i)
			o.model.SupplementInitialSolution(pv, ctx, i)
		}
	}

	// auxiliary dofs
	for _, m := range o.auxMods {
		m.ApplyInitial(o)
	}

	// all time levels
	o.SyncOverlap()
	for t := 1; t < o.hist.Size(); t++ {
		o.hist.Slot(t).CopyFrom(u)
	}
	o.cache.InvalidateAll()
}

// SyncOverlap makes the current iterate identical on all processes. Each dof keeps the
// values of the process owning it; auxiliary dofs are owned by the root process
func (o *Discretization) SyncOverlap() {
	if o.comm.Size() < 2 {
		return
	}
	u := o.hist.Slot(0)
	ngrid := o.NumGridDof()
	for i := 0; i < u.NumDof(); i++ {
		if !o.IsLocalDof(i) {
			blk := u.Block(i)
			for k := range blk {
				blk[k] = 0
			}
		}
	}
	o.comm.SumVector(u.Data)
	for i := 0; i < ngrid; i++ {
		o.cache.Invalidate(i, 0)
	}
}

// Update solves the nonlinear system of the current time step and returns whether the solver
// converged. On failure, the current iterate is rolled back to the last time level
func (o *Discretization) Update(solver NonlinearSolver) (converged bool) {
	if o.stale {
		chk.Panic("FinishInit must be called after registering auxiliary modules")
	}
	o.UpdateBegin()
	converged = solver.Apply()
	if converged {
		o.UpdateSuccessful()
	} else {
		o.UpdateFailed()
	}
	return
}

// UpdateBegin is called before the nonlinear solver starts; the intensive quantities of the
// current iterate are recomputed because the time step size may have changed
func (o *Discretization) UpdateBegin() {
	o.cache.InvalidateSlot(0)
}

// UpdateSuccessful is called after the nonlinear solver converged
func (o *Discretization) UpdateSuccessful() {
	o.observe(func(ob Observer) { ob.TimeStep(o.time, o.dt, true) })
}

// UpdateFailed rolls the current iterate and its intensive quantities back to the last time
// level and forces a complete relinearization
func (o *Discretization) UpdateFailed() {
	o.cache.CopySlot(0, 1)
	o.hist.Slot(0).CopyFrom(o.hist.Slot(1))
	o.lin.RelinearizeAll()
	o.observe(func(ob Observer) { ob.TimeStep(o.time, o.dt, false) })
}

// AdvanceTimeLevel commits the current iterate to the history after adapting the grid (if
// enabled); the intensive quantities are aged by one time level
func (o *Discretization) AdvanceTimeLevel() (err error) {
	if o.adapt {
		if _, err = o.AdaptGrid(); err != nil {
			return
		}
	}
	for t := o.hist.Size() - 1; t > 0; t-- {
		o.hist.Slot(t).CopyFrom(o.hist.Slot(t - 1))
	}
	o.cache.Shift(1)
	return
}

// AdaptGrid calls the grid adapter and, if the grid changed, transfers the solution to the
// new grid and recomputes all grid dependent data
func (o *Discretization) AdaptGrid() (changed bool, err error) {
	if o.Adapter == nil {
		return
	}
	view, parent, changed, err := o.Adapter.Adapt(o)
	if err != nil {
		return false, chk.Err("grid adaptation failed:\n%v", err)
	}
	if !changed {
		return
	}
	err = o.ReplaceGridView(view, parent)
	return
}

// ReplaceGridView installs a new grid view. The values of each new grid dof i are copied from
// the old grid dof parent[i] at all time levels; auxiliary dofs keep their values
func (o *Discretization) ReplaceGridView(view grid.View, parent []int) (err error) {
	ngridOld := o.NumGridDof()
	ngridNew := view.NumDof()
	if len(parent) != ngridNew {
		return chk.Err("parent map must have %d entries. %d is invalid", ngridNew, len(parent))
	}
	naux := o.NumAuxiliaryDof()
	for t := 0; t < o.hist.Size(); t++ {
		old := o.hist.Slot(t)
		neu := NewBlockVector(ngridNew+naux, o.numEq)
		for i, p := range parent {
			if p < 0 {
				continue
			}
			if p >= ngridOld {
				return chk.Err("parent %d of grid dof %d is out of range [0, %d)", p, i, ngridOld)
			}
			copy(neu.Block(i), old.Block(p))
		}
		for i := 0; i < naux; i++ {
			copy(neu.Block(ngridNew+i), old.Block(ngridOld+i))
		}
		o.hist.slots[t] = neu
	}
	offset := ngridNew
	for _, m := range o.auxMods {
		m.SetDofOffset(offset)
		offset += m.NumDofs()
	}
	o.view = view
	o.comm = view.Comm()
	if o.Verbose {
		io.Pforan("grid changed: %d => %d grid dofs\n", ngridOld, ngridNew)
	}
	return o.FinishInit()
}

// AddAuxiliaryModule registers an auxiliary module. Its dofs are appended to the global
// numbering, all time levels are resized and the module sets its initial values. FinishInit
// must be called before the next update
func (o *Discretization) AddAuxiliaryModule(m AuxiliaryModule) (err error) {
	if o.adapt {
		return chk.Err("auxiliary modules cannot be used with grid adaptation")
	}
	if m.NumDofs() < 0 {
		chk.Panic("auxiliary module must report a non-negative number of dofs. %d is invalid", m.NumDofs())
	}
	m.SetDofOffset(o.NumTotalDof())
	o.auxMods = append(o.auxMods, m)
	o.hist.Resize(o.NumTotalDof())
	m.ApplyInitial(o)
	o.stale = true
	return
}

// ClearAuxiliaryModules removes all auxiliary modules and their dofs
func (o *Discretization) ClearAuxiliaryModules() {
	o.auxMods = nil
	o.hist.Resize(o.NumGridDof())
	o.stale = true
}

// NumAuxiliaryModules returns the number of auxiliary modules
func (o *Discretization) NumAuxiliaryModules() int { return len(o.auxMods) }

// AuxiliaryModule returns auxiliary module i
func (o *Discretization) AuxiliaryModule(i int) AuxiliaryModule {
	if i < 0 || i >= len(o.auxMods) {
		chk.Panic("auxiliary module %d is out of range [0, %d)", i, len(o.auxMods))
	}
	return o.auxMods[i]
}

// Solution returns the solution at time level slot (0 => current iterate)
func (o *Discretization) Solution(slot int) *BlockVector { return o.hist.Slot(slot) }

// HistorySize returns the number of time levels
func (o *Discretization) HistorySize() int { return o.hist.Size() }

// NumEq returns the number of equations per dof
func (o *Discretization) NumEq() int { return o.numEq }

// NumGridDof returns the number of dofs of the grid
func (o *Discretization) NumGridDof() int { return o.view.NumDof() }

// NumAuxiliaryDof returns the number of dofs of all auxiliary modules
func (o *Discretization) NumAuxiliaryDof() (n int) {
	for _, m := range o.auxMods {
		n += m.NumDofs()
	}
	return
}

// NumTotalDof returns the number of grid and auxiliary dofs
func (o *Discretization) NumTotalDof() int { return o.NumGridDof() + o.NumAuxiliaryDof() }

// DofTotalVolume returns the volume of grid dof i summed over all processes; auxiliary dofs
// have no volume
func (o *Discretization) DofTotalVolume(i int) float64 {
	if i >= o.NumGridDof() && i < o.NumTotalDof() {
		return 0
	}
	return o.vols.Total(i)
}

// IsLocalDof tells whether dof i is owned by this process
func (o *Discretization) IsLocalDof(i int) bool {
	if i >= o.NumGridDof() && i < o.NumTotalDof() {
		return o.comm.Rank() == 0
	}
	return o.vols.IsLocal(i)
}

// OnBoundary tells whether grid dof i touches the domain boundary
func (o *Discretization) OnBoundary(i int) bool {
	if i >= o.NumGridDof() && i < o.NumTotalDof() {
		return false
	}
	return o.vols.OnBoundary(i)
}

// GridTotalVolume returns the volume of the whole grid
func (o *Discretization) GridTotalVolume() float64 { return o.vols.GridTotal() }

// PrimaryVarWeight returns the weight of primary variable pvIdx of dof i in error norms
func (o *Discretization) PrimaryVarWeight(i, pvIdx int) float64 {
	return o.model.PrimaryVarWeight(o, i, pvIdx)
}

// EqWeight returns the weight of equation eqIdx of dof i in residual norms
func (o *Discretization) EqWeight(i, eqIdx int) float64 {
	return o.model.EqWeight(o, i, eqIdx)
}

// RelativeDofError returns the largest weighted difference between two sets of primary
// variables of dof i
func (o *Discretization) RelativeDofError(i int, pv1, pv2 []float64) (res float64) {
	for j := 0; j < o.numEq; j++ {
		w := o.PrimaryVarWeight(i, j)
		res = math.Max(res, math.Abs((pv1[j]-pv2[j])*w))
	}
	return
}

// PrimaryVarName returns the name of primary variable pvIdx
func (o *Discretization) PrimaryVarName(pvIdx int) string { return o.model.PrimaryVarName(pvIdx) }

// EqName returns the name of equation eqIdx
func (o *Discretization) EqName(eqIdx int) string { return o.model.EqName(eqIdx) }

// SetTime sets the time at the beginning of the current time step and its size
func (o *Discretization) SetTime(t, dt float64) {
	o.time, o.dt = t, dt
}

// Time returns the time at the beginning of the current time step
func (o *Discretization) Time() float64 { return o.time }

// Dt returns the current time step size
func (o *Discretization) Dt() float64 { return o.dt }

// AddObserver registers an observer of the solution process
func (o *Discretization) AddObserver(ob Observer) {
	o.observers = append(o.observers, ob)
}

// observe calls fn with each observer
func (o *Discretization) observe(fn func(ob Observer)) {
	for _, ob := range o.observers {
		fn(ob)
	}
}

// Model returns the model
func (o *Discretization) Model() Model { return o.model }

// View returns the grid view
func (o *Discretization) View() grid.View { return o.view }

// Comm returns the communicator
func (o *Discretization) Comm() grid.Communicator { return o.comm }

// Linearizer returns the linearizer
func (o *Discretization) Linearizer() Linearizer { return o.lin }

// Cache returns the intensive quantities cache
func (o *Discretization) Cache() *IqCache { return o.cache }

// NumInterior returns the number of interior elements
func (o *Discretization) NumInterior() int { return len(o.interior) }
