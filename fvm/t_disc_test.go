// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fvm

import (
	"math"
	"sync"
	"testing"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"github.com/cpmech/gosl/la"
	"github.com/jakobtorben/opm-models/grid"
	"github.com/jakobtorben/opm-models/inp"
)

// diffModel is a linear diffusion model: V (u - u₁)/Δt + Σ T (u - uₙ) = V src
type diffModel struct {
	BaseModel
	neq   int
	init  float64 // initial value
	slope float64 // initial value increment per grid dof
	src   float64 // source rate per unit volume
	leak  float64 // unreported source; breaks conservation
}

func (o *diffModel) Name() string                    { return "diffusion" }
func (o *diffModel) NumEq() int                      { return o.neq }
func (o *diffModel) NewLocalResidual() LocalResidual { return &diffResidual{o} }

func (o *diffModel) Initial(pv []float64, ctx *ElementContext, dofIdx int) {
	for k := range pv {
		pv[k] = o.init + o.slope*float64(ctx.GlobalSpaceIndex(dofIdx))
	}
}

type diffIq struct {
	u []float64
}

type diffResidual struct {
	m *diffModel
}

func (o *diffResidual) ComputeIntensive(ctx *ElementContext, dofIdx, timeIdx int, hint IntensiveQuantities) (IntensiveQuantities, error) {
	pv := ctx.PrimaryVars(dofIdx, timeIdx)
	iq := &diffIq{make([]float64, len(pv))}
	copy(iq.u, pv)
	return iq, nil
}

func (o *diffResidual) intensive(ctx *ElementContext, i, timeIdx int) (*diffIq, error) {
	iq, err := ctx.Intensive(i, timeIdx)
	if err != nil {
		return nil, err
	}
	return iq.(*diffIq), nil
}

func (o *diffResidual) Eval(residual, storage [][]float64, ctx *ElementContext) (err error) {
	dt := ctx.Dt()
	if dt <= 0 {
		return chk.Err("time step size must be positive. %g is invalid", dt)
	}
	st := ctx.Stencil()
	for i := 0; i < st.NumPrimary; i++ {
		a, err := o.intensive(ctx, i, 0)
		if err != nil {
			return err
		}
		b, err := o.intensive(ctx, i, 1)
		if err != nil {
			return err
		}
		V := ctx.DofVolume(i)
		for k := range residual[i] {
			storage[i][k] = a.u[k] * V
			residual[i][k] = (a.u[k]-b.u[k])*V/dt - (o.m.src+o.m.leak)*V
		}
	}
	for _, f := range st.Faces {
		a, err := o.intensive(ctx, f.I, 0)
		if err != nil {
			return err
		}
		b, err := o.intensive(ctx, f.J, 0)
		if err != nil {
			return err
		}
		for k := 0; k < o.m.neq; k++ {
			flux := f.Trans * (a.u[k] - b.u[k])
			if f.I < st.NumPrimary {
				residual[f.I][k] += flux
			}
			if f.J < st.NumPrimary {
				residual[f.J][k] -= flux
			}
		}
	}
	return
}

func (o *diffResidual) EvalStorage(storage [][]float64, ctx *ElementContext, timeIdx int) error {
	for i := 0; i < ctx.NumPrimaryDof(); i++ {
		a, err := o.intensive(ctx, i, timeIdx)
		if err != nil {
			return err
		}
		for k := range storage[i] {
			storage[i][k] = a.u[k] * ctx.DofVolume(i)
		}
	}
	return nil
}

func (o *diffResidual) Source(rate []float64, ctx *ElementContext, dofIdx, timeIdx int) error {
	for k := range rate {
		rate[k] = o.m.src
	}
	return nil
}

func (o *diffResidual) Boundary(rate []float64, ctx *ElementContext, bfIdx, timeIdx int) error {
	return nil // closed
}

// fixedAux holds n extra dofs with residual u - val
type fixedAux struct {
	BaseAuxiliaryModule
	n   int
	val float64
}

func (o *fixedAux) NumDofs() int            { return o.n }
func (o *fixedAux) NumNonZeros(neq int) int { return o.n * neq }

func (o *fixedAux) ApplyInitial(d *Discretization) {
	for i := 0; i < o.n; i++ {
		blk := d.Solution(0).Block(o.LocalToGlobalDof(i))
		for k := range blk {
			blk[k] = o.val
		}
	}
}

func (o *fixedAux) Linearize(d *Discretization, jac *la.Triplet, res *BlockVector) error {
	neq := d.NumEq()
	for i := 0; i < o.n; i++ {
		I := o.LocalToGlobalDof(i)
		u := d.Solution(0).Block(I)
		r := res.Block(I)
		for k := 0; k < neq; k++ {
			r[k] += u[k] - o.val
			if jac != nil {
				jac.Put(I*neq+k, I*neq+k, 1)
			}
		}
	}
	return nil
}

// newDisc returns a discretization of an nx×1 column with unit cells
func newDisc(tst *testing.T, mdl *diffModel, nx, nparts int, comm grid.Communicator, prms *inp.DiscData) *Discretization {
	msh := inp.NewCartesianMesh(nx, 1, 1, 1, 1, nparts)
	view, err := grid.NewCellView(msh, comm)
	if err != nil {
		tst.Fatalf("NewCellView failed:\n%v", err)
	}
	d, err := NewDiscretization(mdl, view, prms, NewFdLinearizer(1e-8, false))
	if err != nil {
		tst.Fatalf("NewDiscretization failed:\n%v", err)
	}
	return d
}

func Test_disc01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("disc01. volumes and dofs")

	msh := inp.NewCartesianMesh(3, 2, 1, 2, 1, 1)
	view, err := grid.NewCellView(msh, nil)
	if err != nil {
		tst.Errorf("NewCellView failed:\n%v", err)
		return
	}
	mdl := &diffModel{neq: 2, init: 1}
	d, err := NewDiscretization(mdl, view, nil, NewFdLinearizer(0, false))
	if err != nil {
		tst.Errorf("NewDiscretization failed:\n%v", err)
		return
	}
	chk.Int(tst, "neq", d.NumEq(), 2)
	chk.Int(tst, "ngrid", d.NumGridDof(), 6)
	chk.Int(tst, "ntotal", d.NumTotalDof(), 6)
	chk.Int(tst, "history", d.HistorySize(), 2)
	chk.Int(tst, "ninterior", d.NumInterior(), 6)
	chk.Int(tst, "noutmods", d.NumOutputModules(), 1)
	chk.Float64(tst, "grid volume", 1e-15, d.GridTotalVolume(), 12)
	for i := 0; i < 6; i++ {
		chk.Float64(tst, io.Sf("vol%d", i), 1e-15, d.DofTotalVolume(i), 2)
		if !d.IsLocalDof(i) {
			tst.Errorf("dof %d should be local\n", i)
		}
		if !d.OnBoundary(i) {
			tst.Errorf("dof %d of a 3×2 mesh should be on the boundary\n", i)
		}
	}
	chk.String(tst, d.PrimaryVarName(1), "primary variable_1")
	chk.String(tst, d.EqName(0), "equation_0")

	// initial solution and weights
	d.ApplyInitialSolution()
	for t := 0; t < d.HistorySize(); t++ {
		chk.Array(tst, io.Sf("u%d", t), 1e-15, d.Solution(t).Data, utlOnes(12))
	}
	chk.Float64(tst, "pv weight", 1e-15, d.PrimaryVarWeight(0, 0), 1)
	d.Solution(1).Block(2)[1] = -4
	chk.Float64(tst, "pv weight", 1e-15, d.PrimaryVarWeight(2, 1), 0.25)
	chk.Float64(tst, "eq weight", 1e-15, d.EqWeight(2, 1), 1)
	chk.Float64(tst, "rel error", 1e-15, d.RelativeDofError(2, []float64{1, 1}, []float64{1.5, 3}), 0.5)

	// invalid input
	_, err = NewDiscretization(mdl, view, &inp.DiscData{HistorySize: 1}, NewFdLinearizer(0, false))
	if err == nil {
		tst.Errorf("history size 1 should have failed\n")
	}
	_, err = NewDiscretization(&diffModel{}, view, nil, NewFdLinearizer(0, false))
	if err == nil {
		tst.Errorf("model without equations should have failed\n")
	}
}

func Test_disc02(tst *testing.T) {

	//verbose()
	chk.PrintTitle("disc02. auxiliary modules")

	mdl := &diffModel{neq: 2, init: 1}
	d := newDisc(tst, mdl, 4, 1, nil, &inp.DiscData{HistorySize: 3})
	d.ApplyInitialSolution()

	aux := &fixedAux{n: 3, val: 7}
	err := d.AddAuxiliaryModule(aux)
	if err != nil {
		tst.Errorf("AddAuxiliaryModule failed:\n%v", err)
		return
	}
	chk.Int(tst, "naux", d.NumAuxiliaryDof(), 3)
	chk.Int(tst, "ntotal", d.NumTotalDof(), 7)
	chk.Int(tst, "offset", aux.DofOffset(), 4)
	chk.Int(tst, "nmods", d.NumAuxiliaryModules(), 1)
	for t := 0; t < d.HistorySize(); t++ {
		chk.Int(tst, io.Sf("slot%d size", t), d.Solution(t).NumDof(), 7)
	}
	chk.Array(tst, "aux values", 1e-15, d.Solution(0).Block(5), []float64{7, 7})
	for i := 4; i < 7; i++ {
		chk.Float64(tst, io.Sf("aux vol%d", i), 1e-15, d.DofTotalVolume(i), 0)
		if !d.IsLocalDof(i) {
			tst.Errorf("auxiliary dof %d should be local on rank 0\n", i)
		}
		if d.OnBoundary(i) {
			tst.Errorf("auxiliary dof %d cannot be on the boundary\n", i)
		}
	}

	// update requires FinishInit
	d.SetTime(0, 1)
	ctrl, err := NewNewtonController(1e-8, 4, 10, denseSolver())
	if err != nil {
		tst.Errorf("NewNewtonController failed:\n%v", err)
		return
	}
	nm := NewNewtonMethod(d, ctrl)
	func() {
		defer func() {
			if r := recover(); r == nil {
				tst.Errorf("Update should have panicked before FinishInit\n")
			}
		}()
		d.Update(nm)
	}()
	if err = d.FinishInit(); err != nil {
		tst.Errorf("FinishInit failed:\n%v", err)
		return
	}
	if err = d.Linearizer().Linearize(); err != nil {
		tst.Errorf("Linearize failed:\n%v", err)
		return
	}
	jac := d.Linearizer().Jacobian().ToDense()
	chk.Int(tst, "jacobian size", jac.M, 14)
	chk.Float64(tst, "aux diagonal", 1e-15, jac.Get(13, 13), 1)

	// aux dofs are driven to their value
	d.Solution(0).Block(6)[0] = 3
	if !d.Update(nm) {
		tst.Errorf("Update should have converged\n")
		return
	}
	chk.Array(tst, "aux solved", 1e-10, d.Solution(0).Block(6), []float64{7, 7})
	chk.Array(tst, "grid solved", 1e-10, d.Solution(0).Block(1), []float64{1, 1})

	// residual excludes auxiliary modules
	res := NewBlockVector(d.NumTotalDof(), 2)
	d.Solution(0).Block(6)[0] = 0
	norm, err := d.GlobalResidual(res)
	if err != nil {
		tst.Errorf("GlobalResidual failed:\n%v", err)
		return
	}
	chk.Float64(tst, "norm", 1e-12, norm, 0)

	// clear
	d.ClearAuxiliaryModules()
	chk.Int(tst, "ntotal", d.NumTotalDof(), 4)
	chk.Int(tst, "slot size", d.Solution(2).NumDof(), 4)

	// adaptation and auxiliary modules do not mix
	da := newDisc(tst, mdl, 2, 1, nil, &inp.DiscData{Adapt: true})
	if err = da.AddAuxiliaryModule(&fixedAux{n: 1}); err == nil {
		tst.Errorf("AddAuxiliaryModule should have failed with adaptation\n")
	}
}

func Test_disc03(tst *testing.T) {

	//verbose()
	chk.PrintTitle("disc03. global storage is linear")

	mdl := &diffModel{neq: 2}
	d := newDisc(tst, mdl, 5, 1, nil, &inp.DiscData{EnableCache: true})
	u := d.Solution(0)

	set := func(fn func(i, k int) float64) {
		for i := 0; i < u.NumDof(); i++ {
			for k := range u.Block(i) {
				u.Block(i)[k] = fn(i, k)
			}
		}
		d.Cache().InvalidateSlot(0)
	}
	f := func(i, k int) float64 { return float64(i + 1) }
	g := func(i, k int) float64 { return math.Sin(float64(i + k)) }
	α, β := 2.5, -0.75

	s1 := make([]float64, 2)
	s2 := make([]float64, 2)
	s3 := make([]float64, 2)
	set(f)
	if err := d.GlobalStorage(s1, 0); err != nil {
		tst.Errorf("GlobalStorage failed:\n%v", err)
		return
	}
	set(g)
	if err := d.GlobalStorage(s2, 0); err != nil {
		tst.Errorf("GlobalStorage failed:\n%v", err)
		return
	}
	set(func(i, k int) float64 { return α*f(i, k) + β*g(i, k) })
	if err := d.GlobalStorage(s3, 0); err != nil {
		tst.Errorf("GlobalStorage failed:\n%v", err)
		return
	}
	chk.Array(tst, "s1", 1e-14, s1, []float64{15, 15})
	chk.Array(tst, "s3", 1e-13, s3, []float64{α*s1[0] + β*s2[0], α*s1[1] + β*s2[1]})

	// other time level
	if err := d.GlobalStorage(s3, 1); err != nil {
		tst.Errorf("GlobalStorage failed:\n%v", err)
		return
	}
	chk.Array(tst, "s at t1", 1e-15, s3, []float64{0, 0})
}

func Test_disc04(tst *testing.T) {

	//verbose()
	chk.PrintTitle("disc04. residual norm over process boundaries")

	// r = [-1, -1, -1, 3] for u = [0, 1, 3, 6] and no time derivative
	uvals := []float64{0, 1, 3, 6}
	residual := func(d *Discretization) (res *BlockVector, norm float64, err error) {
		for t := 0; t < d.HistorySize(); t++ {
			for i, v := range uvals {
				d.Solution(t).Block(i)[0] = v
			}
		}
		d.Cache().InvalidateAll()
		d.SetTime(0, 1)
		res = NewBlockVector(d.NumTotalDof(), 1)
		norm, err = d.GlobalResidual(res)
		return
	}

	// serial
	ds := newDisc(tst, &diffModel{neq: 1}, 4, 1, nil, nil)
	res, norm, err := residual(ds)
	if err != nil {
		tst.Errorf("GlobalResidual failed:\n%v", err)
		return
	}
	chk.Array(tst, "serial res", 1e-14, res.Data, []float64{-1, -1, -1, 3})
	chk.Float64(tst, "serial norm", 1e-14, norm, math.Sqrt(12))

	// two ranks: dofs 1 and 2 are known to both ranks and counted twice
	comms := grid.NewLocalGroup(2)
	norms := make([]float64, 2)
	resids := make([][]float64, 2)
	errs := make([]error, 2)
	discs := make([]*Discretization, 2)
	var wg sync.WaitGroup
	for r := 0; r < 2; r++ {
		wg.Add(1)
		go func(r int) {
			defer wg.Done()
			msh := inp.NewCartesianMesh(4, 1, 1, 1, 1, 2)
			view, err := grid.NewCellView(msh, comms[r])
			if err != nil {
				errs[r] = err
				return
			}
			d, err := NewDiscretization(&diffModel{neq: 1}, view, nil, NewFdLinearizer(0, false))
			if err != nil {
				errs[r] = err
				return
			}
			discs[r] = d
			res, norm, err := residual(d)
			norms[r], resids[r], errs[r] = norm, res.Data, err
		}(r)
	}
	wg.Wait()
	for r := 0; r < 2; r++ {
		if errs[r] != nil {
			tst.Errorf("rank %d failed:\n%v", r, errs[r])
			return
		}
		chk.Array(tst, io.Sf("res%d", r), 1e-14, resids[r], []float64{-1, -1, -1, 3})
		chk.Float64(tst, io.Sf("norm%d", r), 1e-14, norms[r], math.Sqrt(14))
		chk.Int(tst, io.Sf("ninterior%d", r), discs[r].NumInterior(), 2)
		chk.Float64(tst, io.Sf("grid volume%d", r), 1e-15, discs[r].GridTotalVolume(), 4)
	}
	if !discs[0].IsLocalDof(1) || discs[0].IsLocalDof(2) || !discs[1].IsLocalDof(2) {
		tst.Errorf("locality of dofs is incorrect\n")
	}
	chk.Float64(tst, "vol2 on rank 0", 1e-15, discs[0].DofTotalVolume(2), 1)
}

func Test_disc05(tst *testing.T) {

	//verbose()
	chk.PrintTitle("disc05. grid replacement")

	mdl := &diffModel{neq: 1, init: 1, slope: 1}
	d := newDisc(tst, mdl, 2, 1, nil, nil)
	d.ApplyInitialSolution()
	chk.Array(tst, "u", 1e-15, d.Solution(0).Data, []float64{1, 2})

	// refine each cell into two
	msh := inp.NewCartesianMesh(4, 1, 0.5, 1, 1, 1)
	view, err := grid.NewCellView(msh, nil)
	if err != nil {
		tst.Errorf("NewCellView failed:\n%v", err)
		return
	}
	if err = d.ReplaceGridView(view, []int{0, 0, 1, -1}); err != nil {
		tst.Errorf("ReplaceGridView failed:\n%v", err)
		return
	}
	chk.Int(tst, "ngrid", d.NumGridDof(), 4)
	chk.Float64(tst, "grid volume", 1e-15, d.GridTotalVolume(), 2)
	for t := 0; t < d.HistorySize(); t++ {
		chk.Array(tst, io.Sf("u%d", t), 1e-15, d.Solution(t).Data, []float64{1, 1, 2, 0})
	}

	// invalid parent maps
	if err = d.ReplaceGridView(view, []int{0}); err == nil {
		tst.Errorf("short parent map should have failed\n")
	}
	if err = d.ReplaceGridView(view, []int{0, 1, 2, 9}); err == nil {
		tst.Errorf("parent out of range should have failed\n")
	}

	// adapter
	d.Adapter = &refiner{view: view}
	changed, err := d.AdaptGrid()
	if err != nil {
		tst.Errorf("AdaptGrid failed:\n%v", err)
		return
	}
	if changed {
		tst.Errorf("adapter reported no change\n")
	}
}

func Test_disc06(tst *testing.T) {

	//verbose()
	chk.PrintTitle("disc06. adaptation changing the grid")

	mdl := &diffModel{neq: 1, init: 1, slope: 1}
	prms := &inp.DiscData{HistorySize: 3, EnableCache: true, EnableHints: true, Adapt: true}
	d := newDisc(tst, mdl, 2, 1, nil, prms)
	d.ApplyInitialSolution()
	copy(d.Solution(0).Data, []float64{3, 4})
	d.SetTime(0, 1)

	// fill the cache of all time levels
	storage := make([]float64, 1)
	for t := 0; t < d.HistorySize(); t++ {
		if err := d.GlobalStorage(storage, t); err != nil {
			tst.Errorf("GlobalStorage failed:\n%v", err)
			return
		}
		if d.Cache().Cached(1, t) == nil {
			tst.Errorf("dof 1 should be cached at time level %d\n", t)
		}
	}

	// auxiliary modules are not allowed with adaptation
	if err := d.AddAuxiliaryModule(&fixedAux{n: 1}); err == nil {
		tst.Errorf("auxiliary module with adaptation should have failed\n")
	}

	// refine each cell into two
	fine, err := grid.NewCellView(inp.NewCartesianMesh(4, 1, 0.5, 1, 1, 1), nil)
	if err != nil {
		tst.Errorf("NewCellView failed:\n%v", err)
		return
	}
	d.Adapter = &refiner{view: fine, parent: []int{0, 0, 1, 1}}
	if err = d.AdvanceTimeLevel(); err != nil {
		tst.Errorf("AdvanceTimeLevel failed:\n%v", err)
		return
	}
	chk.Int(tst, "ngrid", d.NumGridDof(), 4)
	chk.Int(tst, "naux", d.NumAuxiliaryDof(), 0)
	chk.Int(tst, "ntotal", d.NumTotalDof(), 4)
	chk.Int(tst, "cache ndof", d.Cache().NumDof(), 4)
	chk.Int(tst, "cache history", d.Cache().HistorySize(), 3)
	chk.Float64(tst, "grid volume", 1e-15, d.GridTotalVolume(), 2)
	chk.Array(tst, "u0", 1e-15, d.Solution(0).Data, []float64{3, 3, 4, 4})
	chk.Array(tst, "u1", 1e-15, d.Solution(1).Data, []float64{3, 3, 4, 4})
	chk.Array(tst, "u2", 1e-15, d.Solution(2).Data, []float64{1, 1, 2, 2})
	for t := 0; t < d.HistorySize(); t++ {
		for i := 0; i < d.NumGridDof(); i++ {
			if d.Cache().Cached(i, t) != nil || d.Cache().ThermodynamicHint(i, t) != nil {
				tst.Errorf("no cache entry may survive the grid change: dof %d, time level %d\n", i, t)
			}
		}
	}

	// linearizer follows the new grid
	d.SetTime(1, 1)
	if err = d.Linearizer().Linearize(); err != nil {
		tst.Errorf("Linearize failed:\n%v", err)
		return
	}
	J := d.Linearizer().Jacobian().ToDense()
	chk.Int(tst, "jac rows", J.M, 4)
	chk.Float64(tst, "dR0/du0", 1e-6, J.Get(0, 0), 0.5+2)
	chk.Int(tst, "nres", d.Linearizer().Residual().NumDof(), 4)

	// replacing the grid keeps auxiliary dofs after the grid dofs
	e := newDisc(tst, mdl, 2, 1, nil, nil)
	e.ApplyInitialSolution()
	if err = e.AddAuxiliaryModule(&fixedAux{n: 1, val: -2.5}); err != nil {
		tst.Errorf("AddAuxiliaryModule failed:\n%v", err)
		return
	}
	if err = e.FinishInit(); err != nil {
		tst.Errorf("FinishInit failed:\n%v", err)
		return
	}
	if err = e.ReplaceGridView(fine, []int{0, 0, 1, 1}); err != nil {
		tst.Errorf("ReplaceGridView failed:\n%v", err)
		return
	}
	chk.Int(tst, "ntotal with aux", e.NumTotalDof(), 5)
	chk.Int(tst, "aux dof", e.AuxiliaryModule(0).(*fixedAux).LocalToGlobalDof(0), 4)
	chk.Array(tst, "u0 with aux", 1e-15, e.Solution(0).Data, []float64{1, 1, 2, 2, -2.5})
	chk.Array(tst, "u1 with aux", 1e-15, e.Solution(1).Data, []float64{1, 1, 2, 2, 0})
	e.SetTime(0, 1)
	if err = e.Linearizer().Linearize(); err != nil {
		tst.Errorf("Linearize failed:\n%v", err)
		return
	}
	Je := e.Linearizer().Jacobian().ToDense()
	chk.Int(tst, "jac rows with aux", Je.M, 5)
	chk.Float64(tst, "dRw/duw", 1e-15, Je.Get(4, 4), 1)
}

// refiner returns view; the grid changed if parent is given
type refiner struct {
	view   grid.View
	parent []int
}

func (o *refiner) Adapt(d *Discretization) (view grid.View, parent []int, changed bool, err error) {
	return o.view, o.parent, o.parent != nil, nil
}

func utlOnes(n int) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = 1
	}
	return v
}

func verbose() {
	io.Verbose = true
	chk.Verbose = true
}
