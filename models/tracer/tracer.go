// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package tracer implements single-phase slightly compressible flow carrying a tracer and,
// optionally, a foaming agent
//
//  primary variables: p (pressure), x (tracer mass fraction), c (foam concentration)
//  equations:
//    ∂(φρ)/∂t   + ∇·(ρ v)         = q
//    ∂(φρx)/∂t  + ∇·(ρ x v - D∇x) = q x_q
//    ∂(s_f)/∂t  + ∇·(c v)         = 0
//
//  v = -k λ ∇p,  λ = m(c)/μ,  ρ = ρ0 (1 + cf (p - p0)),  φ = φ0 (1 + cr (p - p0))
package tracer

import (
	"math"

	"github.com/cpmech/gosl/chk"
	"github.com/jakobtorben/opm-models/ext"
	"github.com/jakobtorben/opm-models/fvm"
	"github.com/jakobtorben/opm-models/inp"
)

// indices of primary variables and equations
const (
	PressureIdx = 0
	FractionIdx = 1
	FoamIdx     = 2
)

// PhysTol is the violation of the bounds of the primary variables considered as round-off
var PhysTol = 1e-10

func init() {
	fvm.RegisterModel("tracer", func(sim *inp.Simulation) (fvm.Model, error) {
		return New(sim.Model.Prms, &sim.Modules)
	})
}

// Params holds the parameters of the fluid and the rock
type Params struct {
	Rho0 float64 // reference density
	P0   float64 // reference pressure
	Cf   float64 // fluid compressibility
	Phi0 float64 // porosity at reference pressure
	Cr   float64 // rock compressibility
	Mu   float64 // viscosity
	Perm float64 // permeability
	Src  float64 // mass source rate per volume
	Xsrc float64 // tracer fraction of the source
	Pini float64 // initial pressure
	Xini float64 // initial tracer fraction
	Cini float64 // initial foam concentration
}

// Init initialises the parameters
func (o *Params) Init(prms inp.Prms) (err error) {
	o.Rho0 = prms.GetValue("rho0", 1)
	o.P0 = prms.GetValue("p0", 0)
	o.Cf = prms.GetValue("cf", 0)
	o.Phi0 = prms.GetValue("phi", 0.3)
	o.Cr = prms.GetValue("cr", 0)
	o.Mu = prms.GetValue("mu", 1)
	o.Perm = prms.GetValue("perm", 1)
	o.Src = prms.GetValue("src", 0)
	o.Xsrc = prms.GetValue("xsrc", 0)
	o.Pini = prms.GetValue("pini", o.P0)
	o.Xini = prms.GetValue("xini", 0)
	o.Cini = prms.GetValue("cini", 0)
	if o.Rho0 <= 0 {
		return chk.Err("reference density must be positive. %g is invalid", o.Rho0)
	}
	if o.Phi0 <= 0 || o.Phi0 >= 1 {
		return chk.Err("porosity must be in (0, 1). %g is invalid", o.Phi0)
	}
	if o.Mu <= 0 {
		return chk.Err("viscosity must be positive. %g is invalid", o.Mu)
	}
	if o.Perm < 0 {
		return chk.Err("permeability must not be negative. %g is invalid", o.Perm)
	}
	return
}

// Density returns the fluid density at pressure p
func (o *Params) Density(p float64) float64 { return o.Rho0 * (1 + o.Cf*(p-o.P0)) }

// Porosity returns the porosity at pressure p
func (o *Params) Porosity(p float64) float64 { return o.Phi0 * (1 + o.Cr*(p-o.P0)) }

// Dirichlet holds the values prescribed on a boundary tag
type Dirichlet struct {
	P float64 // pressure
	X float64 // tracer fraction of the inflow
	C float64 // foam concentration of the inflow
}

// Model implements the tracer model
type Model struct {
	fvm.BaseModel
	Prms  Params             // fluid and rock parameters
	Foam  ext.Foam           // foam module
	Diff  ext.Diffusion      // diffusion module of the tracer
	Wells []*ext.Well        // wells
	Bcs   map[int]*Dirichlet // boundary tag => prescribed values; other boundaries have no flow
	neq   int                // number of equations
}

// New returns a new tracer model
func New(prms inp.Prms, mods *inp.ModulesData) (o *Model, err error) {
	o = &Model{neq: 2, Bcs: make(map[int]*Dirichlet)}
	if err = o.Prms.Init(prms); err != nil {
		return nil, chk.Err("tracer model parameters are invalid:\n%v", err)
	}
	if mods == nil {
		mods = new(inp.ModulesData)
	}
	o.Diff, err = ext.NewDiffusion(&mods.Diffusion)
	if err != nil {
		return nil, err
	}
	o.Foam, err = ext.NewFoam(&mods.Foam, FoamIdx)
	if err != nil {
		return nil, err
	}
	if o.Foam.Enabled() {
		o.neq = 3
	}
	for _, dat := range mods.Wells {
		w, err := ext.NewWell(dat)
		if err != nil {
			return nil, err
		}
		o.Wells = append(o.Wells, w)
	}
	for tag, key := range map[int]string{inp.TagXmin: "xmin", inp.TagXmax: "xmax", inp.TagYmin: "ymin", inp.TagYmax: "ymax"} {
		if p := prms.Find("p" + key); p != nil {
			o.Bcs[tag] = &Dirichlet{P: p.V, X: prms.GetValue("x"+key, 0), C: prms.GetValue("c"+key, 0)}
		}
	}
	return
}

func (o *Model) Name() string { return "tracer" }
func (o *Model) NumEq() int   { return o.neq }

// NewLocalResidual allocates the local residual of one goroutine
func (o *Model) NewLocalResidual() fvm.LocalResidual {
	n := o.neq
	return &LocalResidual{m: o, out: make([]float64, n), s0: make([]float64, n), s1: make([]float64, n)}
}

// Initial sets the initial primary variables
func (o *Model) Initial(pv []float64, ctx *fvm.ElementContext, dofIdx int) {
	pv[PressureIdx] = o.Prms.Pini
	pv[FractionIdx] = o.Prms.Xini
	if o.neq > FoamIdx {
		pv[FoamIdx] = o.Prms.Cini
	}
}

// PrimaryVarWeight returns the weight of the foam module for its variable and the default
// weight otherwise
func (o *Model) PrimaryVarWeight(d *fvm.Discretization, globalDof, pvIdx int) float64 {
	if o.Foam.PrimaryVarApplies(pvIdx) {
		return o.Foam.PrimaryVarWeight(pvIdx)
	}
	if pvIdx == FractionIdx {
		return 1
	}
	return o.BaseModel.PrimaryVarWeight(d, globalDof, pvIdx)
}

// EqWeight returns the weight of equation eqIdx
func (o *Model) EqWeight(d *fvm.Discretization, globalDof, eqIdx int) float64 {
	if o.Foam.EqApplies(eqIdx) {
		return o.Foam.EqWeight(eqIdx)
	}
	return 1
}

// PrimaryVarName returns the name of primary variable pvIdx
func (o *Model) PrimaryVarName(pvIdx int) string {
	if o.Foam.PrimaryVarApplies(pvIdx) {
		return o.Foam.PrimaryVarName(pvIdx)
	}
	switch pvIdx {
	case PressureIdx:
		return "pressure"
	case FractionIdx:
		return "tracer_fraction"
	}
	return o.BaseModel.PrimaryVarName(pvIdx)
}

// EqName returns the name of equation eqIdx
func (o *Model) EqName(eqIdx int) string {
	if o.Foam.EqApplies(eqIdx) {
		return o.Foam.EqName(eqIdx)
	}
	switch eqIdx {
	case PressureIdx:
		return "conti^total"
	case FractionIdx:
		return "conti^tracer"
	}
	return o.BaseModel.EqName(eqIdx)
}

// RegisterOutputModules adds the primary variables and the density
func (o *Model) RegisterOutputModules(d *fvm.Discretization) {
	o.BaseModel.RegisterOutputModules(d)
	d.AddOutputModule(new(DensityModule))
}

// AuxiliaryModules returns the wells
func (o *Model) AuxiliaryModules() (mods []fvm.AuxiliaryModule) {
	for _, w := range o.Wells {
		mods = append(mods, w)
	}
	return
}

// Physicalness returns 1 if all tracer fractions are within [0, 1] and all foam
// concentrations are non-negative, up to PhysTol. Otherwise, it decreases with the largest
// violation
func (o *Model) Physicalness(u *fvm.BlockVector) float64 {
	viol := 0.0
	for i := 0; i < u.NumDof(); i++ {
		pv := u.Block(i)
		x := pv[FractionIdx]
		viol = math.Max(viol, math.Max(-x, x-1))
		if o.neq > FoamIdx {
			viol = math.Max(viol, -pv[FoamIdx])
		}
	}
	if viol < PhysTol {
		return 1
	}
	return 1 - viol
}
