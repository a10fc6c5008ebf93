// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fvm

import (
	"math"

	"github.com/cpmech/gosl/io"
)

// LocalResidual implements the physics of one element. Each goroutine owns its own instance,
// thus implementations may keep scratch data
type LocalResidual interface {

	// ComputeIntensive computes the intensive quantities of local dof dofIdx at time level
	// timeIdx from ctx.PrimaryVars(dofIdx, timeIdx). hint may be nil or the quantities of a
	// nearby state; the returned value is owned by the caller
	ComputeIntensive(ctx *ElementContext, dofIdx, timeIdx int, hint IntensiveQuantities) (IntensiveQuantities, error)

	// Eval computes the residual and the storage term at time level 0 of the primary dofs.
	// Both arrays have NumPrimaryDof rows and are zeroed by the caller
	Eval(residual, storage [][]float64, ctx *ElementContext) error

	// EvalStorage computes the storage term of the primary dofs at time level timeIdx
	// integrated over their volumes
	EvalStorage(storage [][]float64, ctx *ElementContext, timeIdx int) error
}

// RateProvider is implemented by local residuals that expose source and boundary rates; it is
// required by the conservativeness check
type RateProvider interface {

	// Source computes the source rate per unit volume of primary dof dofIdx
	Source(rate []float64, ctx *ElementContext, dofIdx, timeIdx int) error

	// Boundary computes the outflow rate per unit area through boundary face bfIdx
	Boundary(rate []float64, ctx *ElementContext, bfIdx, timeIdx int) error
}

// Model defines the physical model solved by the discretization. Implementations should
// embed BaseModel to obtain the default behaviour of the optional methods
type Model interface {
	Name() string                    // name of the model
	NumEq() int                      // number of equations per degree of freedom
	NewLocalResidual() LocalResidual // allocates the physics of one goroutine
	Initial(pv []float64, ctx *ElementContext, dofIdx int)
	SupplementInitialSolution(pv []float64, ctx *ElementContext, dofIdx int)
	PrimaryVarWeight(d *Discretization, globalDof, pvIdx int) float64
	EqWeight(d *Discretization, globalDof, eqIdx int) float64
	PrimaryVarName(pvIdx int) string
	EqName(eqIdx int) string
	RegisterOutputModules(d *Discretization)
}

// BaseModel implements the optional methods of Model
type BaseModel struct{}

// SupplementInitialSolution does nothing
func (o BaseModel) SupplementInitialSolution(pv []float64, ctx *ElementContext, dofIdx int) {}

// PrimaryVarWeight returns the reciprocal of the magnitude of the primary variable at the last
// accepted time level, limited to 1
func (o BaseModel) PrimaryVarWeight(d *Discretization, globalDof, pvIdx int) float64 {
	absPv := math.Abs(d.Solution(1).Block(globalDof)[pvIdx])
	return 1.0 / math.Max(absPv, 1.0)
}

// EqWeight returns 1
func (o BaseModel) EqWeight(d *Discretization, globalDof, eqIdx int) float64 { return 1 }

// PrimaryVarName returns "primary variable_i"
func (o BaseModel) PrimaryVarName(pvIdx int) string { return io.Sf("primary variable_%d", pvIdx) }

// EqName returns "equation_i"
func (o BaseModel) EqName(eqIdx int) string { return io.Sf("equation_%d", eqIdx) }

// RegisterOutputModules adds the module writing the primary variables
func (o BaseModel) RegisterOutputModules(d *Discretization) {
	d.AddOutputModule(new(PrimaryVarsModule))
}
