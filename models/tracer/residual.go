// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tracer

import (
	"github.com/cpmech/gosl/chk"
	"github.com/jakobtorben/opm-models/fvm"
)

// Intensive holds the intensive quantities of one dof
type Intensive struct {
	P   float64 // pressure
	X   float64 // tracer fraction
	C   float64 // foam concentration
	Rho float64 // density
	Phi float64 // porosity
	Mob float64 // mobility
}

// LocalResidual implements the local residual of the tracer model
type LocalResidual struct {
	m   *Model
	out []float64 // [neq] flux from one side of a face to the other
	s0  []float64 // [neq] storage at the current time level
	s1  []float64 // [neq] storage at the previous time level
}

// intensive computes the quantities of a state (p, x, c) in pvt region pvt
func (o *LocalResidual) intensive(p, x, c float64, pvt int) *Intensive {
	prms := &o.m.Prms
	return &Intensive{
		P:   p,
		X:   x,
		C:   c,
		Rho: prms.Density(p),
		Phi: prms.Porosity(p),
		Mob: o.m.Foam.MobilityMultiplier(c, pvt) / prms.Mu,
	}
}

// ComputeIntensive computes the intensive quantities of local dof dofIdx
func (o *LocalResidual) ComputeIntensive(ctx *fvm.ElementContext, dofIdx, timeIdx int, hint fvm.IntensiveQuantities) (fvm.IntensiveQuantities, error) {
	pv := ctx.PrimaryVars(dofIdx, timeIdx)
	c := 0.0
	if o.m.neq > FoamIdx {
		c = pv[FoamIdx]
	}
	iq := o.intensive(pv[PressureIdx], pv[FractionIdx], c, ctx.PvtRegion(dofIdx))
	if iq.Rho <= 0 {
		return nil, chk.Err("density in element %d must be positive. pressure %g yields %g", ctx.Element(), iq.P, iq.Rho)
	}
	return iq, nil
}

// get returns the intensive quantities of local dof i at time level timeIdx
func (o *LocalResidual) get(ctx *fvm.ElementContext, i, timeIdx int) (*Intensive, error) {
	iq, err := ctx.Intensive(i, timeIdx)
	if err != nil {
		return nil, err
	}
	return iq.(*Intensive), nil
}

// storage computes the storage per bulk volume of local dof i
func (o *LocalResidual) storage(s []float64, iq *Intensive, region int) (err error) {
	s[PressureIdx] = iq.Phi * iq.Rho
	s[FractionIdx] = iq.Phi * iq.Rho * iq.X
	if o.m.neq > FoamIdx {
		s[FoamIdx], err = o.m.Foam.Storage(iq.Phi, 1, iq.C, region)
	}
	return
}

// flux computes the flux from state a to state b through a face with transmissibility trans.
// The advected quantities are taken from the upstream state
func (o *LocalResidual) flux(f []float64, a, b *Intensive, ra, rb int, trans float64) {
	up := a
	if b.P > a.P {
		up = b
	}
	mass := o.m.Prms.Perm * trans * up.Mob * up.Rho * (a.P - b.P)
	f[PressureIdx] = mass
	f[FractionIdx] = mass*up.X + o.m.Diff.Flux(ra, rb, trans, a.Rho*a.X, b.Rho*b.X)
	if o.m.neq > FoamIdx {
		f[FoamIdx] = o.m.Foam.Flux(mass/up.Rho, up.C)
	}
}

// Eval computes the residual (storage change rate plus net outflow minus sources) and the
// storage of the primary dofs
func (o *LocalResidual) Eval(residual, storage [][]float64, ctx *fvm.ElementContext) (err error) {
	dt := ctx.Dt()
	if dt <= 0 {
		return chk.Err("time step size must be positive. %g is invalid", dt)
	}
	np := ctx.NumPrimaryDof()

	// storage
	for i := 0; i < np; i++ {
		if err = o.dofStorage(o.s0, ctx, i, 0); err != nil {
			return
		}
		if err = o.dofStorage(o.s1, ctx, i, 1); err != nil {
			return
		}
		vol := ctx.DofVolume(i)
		for k := 0; k < o.m.neq; k++ {
			storage[i][k] = o.s0[k] * vol
			residual[i][k] += (o.s0[k] - o.s1[k]) * vol / dt
		}
	}

	// interior faces
	st := ctx.Stencil()
	for _, f := range st.Faces {
		a, err := o.get(ctx, f.I, 0)
		if err != nil {
			return err
		}
		b, err := o.get(ctx, f.J, 0)
		if err != nil {
			return err
		}
		o.flux(o.out, a, b, ctx.Region(f.I), ctx.Region(f.J), f.Trans)
		for k := 0; k < o.m.neq; k++ {
			if f.I < np {
				residual[f.I][k] += o.out[k]
			}
			if f.J < np {
				residual[f.J][k] -= o.out[k]
			}
		}
	}

	// boundary faces
	for b := range st.Boundary {
		if err = o.Boundary(o.out, ctx, b, 0); err != nil {
			return
		}
		bf := &st.Boundary[b]
		for k := 0; k < o.m.neq; k++ {
			residual[bf.I][k] += o.out[k] * bf.Area
		}
	}

	// sources
	for i := 0; i < np; i++ {
		if err = o.Source(o.out, ctx, i, 0); err != nil {
			return
		}
		vol := ctx.DofVolume(i)
		for k := 0; k < o.m.neq; k++ {
			residual[i][k] -= o.out[k] * vol
		}
	}
	return
}

// EvalStorage computes the storage of the primary dofs at time level timeIdx
func (o *LocalResidual) EvalStorage(storage [][]float64, ctx *fvm.ElementContext, timeIdx int) (err error) {
	for i := 0; i < ctx.NumPrimaryDof(); i++ {
		if err = o.dofStorage(storage[i], ctx, i, timeIdx); err != nil {
			return
		}
		vol := ctx.DofVolume(i)
		for k := range storage[i] {
			storage[i][k] *= vol
		}
	}
	return
}

// dofStorage computes the storage per bulk volume of local dof i at time level timeIdx
func (o *LocalResidual) dofStorage(s []float64, ctx *fvm.ElementContext, i, timeIdx int) error {
	iq, err := o.get(ctx, i, timeIdx)
	if err != nil {
		return err
	}
	return o.storage(s, iq, ctx.Region(i))
}

// Source computes the source rate per volume of local dof dofIdx
func (o *LocalResidual) Source(rate []float64, ctx *fvm.ElementContext, dofIdx, timeIdx int) error {
	for k := range rate {
		rate[k] = 0
	}
	prms := &o.m.Prms
	rate[PressureIdx] = prms.Src
	rate[FractionIdx] = prms.Src * prms.Xsrc
	return nil
}

// Boundary computes the outflow rate per area through boundary face bfIdx. Faces without
// prescribed values are closed
func (o *LocalResidual) Boundary(rate []float64, ctx *fvm.ElementContext, bfIdx, timeIdx int) error {
	for k := range rate {
		rate[k] = 0
	}
	bf := &ctx.Stencil().Boundary[bfIdx]
	bc, ok := o.m.Bcs[bf.Tag]
	if !ok || bf.Area <= 0 {
		return nil
	}
	in, err := o.get(ctx, bf.I, timeIdx)
	if err != nil {
		return err
	}
	region := ctx.Region(bf.I)
	out := o.intensive(bc.P, bc.X, bc.C, ctx.PvtRegion(bf.I))
	if out.Rho <= 0 {
		return chk.Err("density on boundary %d of element %d must be positive. pressure %g yields %g", bf.Tag, ctx.Element(), bc.P, out.Rho)
	}
	o.flux(rate, in, out, region, region, bf.Trans)
	for k := range rate {
		rate[k] /= bf.Area
	}
	return nil
}

// DensityModule writes the density of the current iterate
type DensityModule struct {
	rho []float64
}

func (o *DensityModule) Allocate(d *fvm.Discretization) {
	o.rho = make([]float64, d.NumGridDof())
}

func (o *DensityModule) ProcessElement(ctx *fvm.ElementContext) error {
	for i := 0; i < ctx.NumPrimaryDof(); i++ {
		iq, err := ctx.Intensive(i, 0)
		if err != nil {
			return err
		}
		o.rho[ctx.GlobalSpaceIndex(i)] = iq.(*Intensive).Rho
	}
	return nil
}

func (o *DensityModule) Commit(w fvm.FieldWriter) { w.AttachDofField("density", o.rho) }
