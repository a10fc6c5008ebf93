// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ext

import (
	"github.com/cpmech/gosl/chk"
	"github.com/jakobtorben/opm-models/inp"
)

// Foam adds the transport of a foaming agent (surfactant) with adsorption on the rock and a
// reduction of the mobility of the transport phase
type Foam interface {
	Enabled() bool
	PrimaryVarApplies(pvIdx int) bool
	PrimaryVarName(pvIdx int) string
	PrimaryVarWeight(pvIdx int) float64
	EqApplies(eqIdx int) bool
	EqName(eqIdx int) string
	EqWeight(eqIdx int) float64

	// Storage returns the amount of foaming agent per bulk volume
	Storage(porosity, saturation, conc float64, region int) (float64, error)

	// Flux returns the advective flux of foaming agent given the volume flux of the transport
	// phase and the concentration of the upstream dof
	Flux(volumeFlux, concUp float64) float64

	// MobilityMultiplier returns the factor applied to the mobility of the transport phase in
	// pvt region pvtRegion
	MobilityMultiplier(conc float64, pvtRegion int) float64
}

// NoFoam is the disabled foam module
type NoFoam struct{}

func (NoFoam) Enabled() bool                      { return false }
func (NoFoam) PrimaryVarApplies(pvIdx int) bool   { return false }
func (NoFoam) PrimaryVarName(pvIdx int) string    { return "" }
func (NoFoam) PrimaryVarWeight(pvIdx int) float64 { return 1 }
func (NoFoam) EqApplies(eqIdx int) bool           { return false }
func (NoFoam) EqName(eqIdx int) string            { return "" }
func (NoFoam) EqWeight(eqIdx int) float64         { return 1 }
func (NoFoam) Flux(volumeFlux, concUp float64) float64 {
	return 0
}
func (NoFoam) Storage(porosity, saturation, conc float64, region int) (float64, error) {
	return 0, nil
}
func (NoFoam) MobilityMultiplier(conc float64, pvtRegion int) float64 { return 1 }

// FoamRegion holds the foam parameters of one saturation region
type FoamRegion struct {
	RockDensity     float64 // density of the rock
	AllowDesorption bool    // adsorbed agent may return to the fluid
	Adsorbed        *Table  // adsorbed amount per rock mass as a function of concentration
}

// FoamParams holds the parameters of the foam module
type FoamParams struct {
	TransportPhase string        // phase carrying the foaming agent: "water" or "gas"
	Regions        []*FoamRegion // data of each saturation region
	MobMult        []*Table      // mobility multiplier as a function of concentration; one per pvt region
}

// FoamModule is the enabled foam module. The concentration is primary variable Idx and its
// conservation is equation Idx
type FoamModule struct {
	Idx  int
	prms *FoamParams
}

// NewFoam returns the foam module defined by dat using primary variable and equation idx
func NewFoam(dat *inp.FoamData, idx int) (Foam, error) {
	if dat == nil || !dat.On {
		return NoFoam{}, nil
	}
	if idx < 0 {
		return nil, chk.Err("index of foam concentration must not be negative. %d is invalid", idx)
	}
	if len(dat.Regions) < 1 {
		return nil, chk.Err("foam module requires the data of at least one saturation region")
	}
	prms := &FoamParams{TransportPhase: dat.TransportPhase}
	for i, r := range dat.Regions {
		if !r.AllowDesorption {
			return nil, chk.Err("foam region %d: disallowing desorption is not supported", i)
		}
		if r.RockDensity < 0 {
			return nil, chk.Err("foam region %d: rock density must not be negative. %g is invalid", i, r.RockDensity)
		}
		tab, err := NewTable(r.AdsConc, r.AdsVals)
		if err != nil {
			return nil, chk.Err("foam region %d: invalid adsorption table:\n%v", i, err)
		}
		prms.Regions = append(prms.Regions, &FoamRegion{r.RockDensity, r.AllowDesorption, tab})
	}
	for i, m := range dat.Mobility {
		tab, err := NewTable(m.Conc, m.Mult)
		if err != nil {
			return nil, chk.Err("foam pvt region %d: invalid mobility table:\n%v", i, err)
		}
		prms.MobMult = append(prms.MobMult, tab)
	}
	return &FoamModule{idx, prms}, nil
}

func (o *FoamModule) Enabled() bool                      { return true }
func (o *FoamModule) PrimaryVarApplies(pvIdx int) bool   { return pvIdx == o.Idx }
func (o *FoamModule) PrimaryVarWeight(pvIdx int) float64 { return 1 }
func (o *FoamModule) EqApplies(eqIdx int) bool           { return eqIdx == o.Idx }
func (o *FoamModule) EqWeight(eqIdx int) float64         { return 1 }

func (o *FoamModule) PrimaryVarName(pvIdx int) string {
	if pvIdx != o.Idx {
		chk.Panic("primary variable %d is not the foam concentration (%d)", pvIdx, o.Idx)
	}
	return "foam_concentration"
}

func (o *FoamModule) EqName(eqIdx int) string {
	if eqIdx != o.Idx {
		chk.Panic("equation %d is not the foam conservation equation (%d)", eqIdx, o.Idx)
	}
	return "conti^foam"
}

func (o *FoamModule) Storage(porosity, saturation, conc float64, region int) (float64, error) {
	if region < 0 || region >= len(o.prms.Regions) {
		return 0, chk.Err("foam module has no data for saturation region %d", region)
	}
	r := o.prms.Regions[region]
	dissolved := porosity * saturation * conc
	adsorbed := (1 - porosity) * r.RockDensity * r.Adsorbed.Eval(conc)
	return dissolved + adsorbed, nil
}

func (o *FoamModule) Flux(volumeFlux, concUp float64) float64 { return volumeFlux * concUp }

// MobilityMultiplier uses the table of the last pvt region for regions without data
func (o *FoamModule) MobilityMultiplier(conc float64, pvtRegion int) float64 {
	n := len(o.prms.MobMult)
	if n == 0 {
		return 1
	}
	if pvtRegion >= n {
		pvtRegion = n - 1
	}
	return o.prms.MobMult[pvtRegion].Eval(conc)
}
