// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package ext implements optional equation modules that models plug into their local residuals:
// molecular diffusion, foam transport and wells
package ext

import (
	"github.com/cpmech/gosl/chk"
	"github.com/jakobtorben/opm-models/inp"
)

// Diffusion computes the diffusive flux of transported quantities across a face
type Diffusion interface {
	Enabled() bool

	// Flux returns the diffusive flux from the inside dof to the outside dof of a face with
	// geometric transmissibility trans, given the regions and values on each side
	Flux(regionIn, regionOut int, trans, inside, outside float64) float64
}

// NoDiffusion is the disabled diffusion module
type NoDiffusion struct{}

func (NoDiffusion) Enabled() bool                                         { return false }
func (NoDiffusion) Flux(ri, ro int, trans, inside, outside float64) float64 { return 0 }

// DiffusionParams holds the parameters of the diffusion module
type DiffusionParams struct {
	Coefs []float64 // diffusion coefficient of each region
}

// Coef returns the coefficient of region r; the last coefficient applies to regions beyond
// the list
func (o *DiffusionParams) Coef(r int) float64 {
	if r >= len(o.Coefs) {
		return o.Coefs[len(o.Coefs)-1]
	}
	return o.Coefs[r]
}

// MolecularDiffusion implements Fick's law with the harmonic mean of the coefficients on each
// side of the face
type MolecularDiffusion struct {
	prms *DiffusionParams
}

func (o *MolecularDiffusion) Enabled() bool { return true }

func (o *MolecularDiffusion) Flux(ri, ro int, trans, inside, outside float64) float64 {
	di, do := o.prms.Coef(ri), o.prms.Coef(ro)
	if di+do <= 0 {
		return 0
	}
	d := 2 * di * do / (di + do)
	return d * trans * (inside - outside)
}

// NewDiffusion returns the diffusion module defined by dat
func NewDiffusion(dat *inp.DiffusionData) (Diffusion, error) {
	if dat == nil || !dat.On {
		return NoDiffusion{}, nil
	}
	if len(dat.Coefs) < 1 {
		return nil, chk.Err("diffusion module requires at least one coefficient")
	}
	prms := &DiffusionParams{Coefs: make([]float64, len(dat.Coefs))}
	for i, c := range dat.Coefs {
		if c < 0 {
			return nil, chk.Err("diffusion coefficient of region %d must not be negative. %g is invalid", i, c)
		}
		prms.Coefs[i] = c
	}
	return &MolecularDiffusion{prms}, nil
}
