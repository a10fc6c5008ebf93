// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package out implements FV simulation output handling for analyses and plotting
package out

import (
	"github.com/cpmech/gosl/chk"
	"github.com/jakobtorben/opm-models/fvm"
)

// constants
var (
	TolT = 1e-3 // tolerance to compare times
)

// Global variables
var (

	// data set by Start
	Analysis *fvm.FVM     // the fvm structure
	Sum      *fvm.Summary // [from Analysis] summary

	// results loaded by LoadResults
	TimeInds []int            // selected output indices
	Times    []float64        // selected output times
	Fields   []*fvm.DofFields // [len(TimeInds)] fields at selected output times
)

// Start starts handling of results given a simulation input file
func Start(simfnpath string) (err error) {

	// fvm structure
	Analysis, err = fvm.NewFVM(simfnpath, "", false, false, true, false, false)
	if err != nil {
		return chk.Err("cannot read simulation:\n%v", err)
	}
	Sum = Analysis.Summary

	// clear previous data
	TimeInds = make([]int, 0)
	Times = make([]float64, 0)
	Fields = make([]*fvm.DofFields, 0)
	return
}

// LoadResults loads the fields saved at the output indices tidxs; nil means all outputs
func LoadResults(tidxs []int) (err error) {
	if Sum == nil {
		return chk.Err("Start must be called before LoadResults")
	}
	if tidxs == nil {
		tidxs = make([]int, len(Sum.OutTimes))
		for i := range tidxs {
			tidxs[i] = i
		}
	}
	sim := Analysis.Sim
	TimeInds = make([]int, 0, len(tidxs))
	Times = make([]float64, 0, len(tidxs))
	Fields = make([]*fvm.DofFields, 0, len(tidxs))
	for _, tidx := range tidxs {
		if tidx < 0 || tidx >= len(Sum.OutTimes) {
			return chk.Err("output index %d is out of range [0, %d)", tidx, len(Sum.OutTimes))
		}
		flds, err := fvm.ReadFields(sim.DirOut, sim.Key, sim.EncType, tidx)
		if err != nil {
			return err
		}
		TimeInds = append(TimeInds, tidx)
		Times = append(Times, flds.T)
		Fields = append(Fields, flds)
	}
	return
}

// TimeIndex returns the position in Times of the output at time t or -1 if not loaded
func TimeIndex(t float64) int {
	for i, tt := range Times {
		if tt > t-TolT && tt < t+TolT {
			return i
		}
	}
	return -1
}

// Series returns the values of field key at grid dof over all loaded times
func Series(key string, dof int) (vals []float64, err error) {
	vals = make([]float64, len(Fields))
	for i, flds := range Fields {
		v := flds.Get(key)
		if dof < 0 || dof >= len(v) {
			return nil, chk.Err("field %q at output %d has no value for dof %d", key, TimeInds[i], dof)
		}
		vals[i] = v[dof]
	}
	return
}

// Profile returns the values of field key over all grid dofs at loaded time index idx
func Profile(key string, idx int) (vals []float64, err error) {
	if idx < 0 || idx >= len(Fields) {
		return nil, chk.Err("time index %d is out of range [0, %d)", idx, len(Fields))
	}
	vals = Fields[idx].Get(key)
	if vals == nil {
		return nil, chk.Err("cannot find field %q at output %d", key, TimeInds[idx])
	}
	return
}
