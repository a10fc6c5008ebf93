// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fvm

import (
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"github.com/jakobtorben/opm-models/grid"
)

// FieldWriter receives fields with one value per grid dof
type FieldWriter interface {
	AttachDofField(name string, values []float64)
}

// OutputModule collects fields from the elements of the grid
type OutputModule interface {
	Allocate(d *Discretization)               // allocates the fields for the current grid
	ProcessElement(ctx *ElementContext) error // collects values from one interior element
	Commit(w FieldWriter)                     // attaches the fields to w
}

// PrimaryVarsModule writes the primary variables of the current iterate
type PrimaryVarsModule struct {
	d      *Discretization
	values [][]float64 // [neq][ngriddof]
}

// Allocate allocates one field per primary variable
func (o *PrimaryVarsModule) Allocate(d *Discretization) {
	o.d = d
	n := d.NumGridDof()
	o.values = make([][]float64, d.NumEq())
	for k := range o.values {
		o.values[k] = make([]float64, n)
	}
}

// ProcessElement copies the primary variables of the primary dofs
func (o *PrimaryVarsModule) ProcessElement(ctx *ElementContext) error {
	for i := 0; i < ctx.NumPrimaryDof(); i++ {
		dof := ctx.GlobalSpaceIndex(i)
		for k, v := range ctx.PrimaryVars(i, 0) {
			o.values[k][dof] = v
		}
	}
	return nil
}

// Commit attaches the fields named by the model
func (o *PrimaryVarsModule) Commit(w FieldWriter) {
	for k, vals := range o.values {
		w.AttachDofField(o.d.PrimaryVarName(k), vals)
	}
}

// AddOutputModule registers an output module
func (o *Discretization) AddOutputModule(m OutputModule) {
	o.outMods = append(o.outMods, m)
}

// NumOutputModules returns the number of output modules
func (o *Discretization) NumOutputModules() int { return len(o.outMods) }

// PrepareOutputFields allocates the fields of all output modules and lets them process the
// interior elements
func (o *Discretization) PrepareOutputFields() (err error) {
	for _, m := range o.outMods {
		m.Allocate(o)
	}
	ctx := o.workers[0].ctx
	for _, e := range o.interior {
		ctx.UpdateStencil(e)
		for _, m := range o.outMods {
			if err = m.ProcessElement(ctx); err != nil {
				return chk.Err("output module cannot process element %d:\n%v", e, err)
			}
		}
	}
	return
}

// AppendOutputFields attaches the fields of all output modules to w. With many processes, the
// fields are summed over the group since each grid dof is primary in one interior element only
//  Note: all processes must call this function
func (o *Discretization) AppendOutputFields(w FieldWriter) {
	if o.comm.Size() > 1 {
		w = &summingWriter{o.comm, w}
	}
	for _, m := range o.outMods {
		m.Commit(w)
	}
}

// summingWriter sums fields over all processes before passing them on
type summingWriter struct {
	comm grid.Communicator
	w    FieldWriter
}

func (o *summingWriter) AttachDofField(name string, values []float64) {
	sum := make([]float64, len(values))
	copy(sum, values)
	o.comm.SumVector(sum)
	o.w.AttachDofField(name, sum)
}

// ConvergenceFields attaches fields to diagnose a Newton iteration that linearized at u and
// produced the iterate u-delta: primary variables of u, updates, weights, weighted defects of u
// and the relative error of each grid dof
func (o *Discretization) ConvergenceFields(w FieldWriter, u, delta *BlockVector) (err error) {
	res := NewBlockVector(o.NumTotalDof(), o.numEq)
	if _, err = o.GlobalResidualFor(res, u); err != nil {
		return
	}
	n := o.NumGridDof()
	neq := o.numEq
	relErr := make([]float64, n)
	uNew := make([]float64, neq)
	for k := 0; k < neq; k++ {
		priVar := make([]float64, n)
		dlt := make([]float64, n)
		weight := make([]float64, n)
		defect := make([]float64, n)
		for i := 0; i < n; i++ {
			priVar[i] = u.Block(i)[k]
			dlt[i] = -delta.Block(i)[k]
			weight[i] = o.PrimaryVarWeight(i, k)
			defect[i] = res.Block(i)[k] * o.EqWeight(i, k)
		}
		w.AttachDofField(io.Sf("priVar_%s", o.PrimaryVarName(k)), priVar)
		w.AttachDofField(io.Sf("delta_%s", o.PrimaryVarName(k)), dlt)
		w.AttachDofField(io.Sf("weight_%s", o.PrimaryVarName(k)), weight)
		w.AttachDofField(io.Sf("defect_%s", o.EqName(k)), defect)
	}
	for i := 0; i < n; i++ {
		pv := u.Block(i)
		for k := 0; k < neq; k++ {
			uNew[k] = pv[k] - delta.Block(i)[k]
		}
		relErr[i] = o.RelativeDofError(i, uNew, pv)
	}
	w.AttachDofField("relErr", relErr)
	return
}
