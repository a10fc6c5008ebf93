// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ext

import (
	"github.com/cpmech/gosl/chk"
	"gonum.org/v1/gonum/interp"
)

// Table is a piecewise linear function of one variable. Values outside the range of the
// abscissae are extrapolated linearly from the first or last segment
type Table struct {
	X  []float64              // abscissae; strictly increasing
	Y  []float64              // ordinates
	pl interp.PiecewiseLinear // interpolator
}

// NewTable returns a new table
func NewTable(x, y []float64) (o *Table, err error) {
	if len(x) != len(y) {
		return nil, chk.Err("table must have the same number of abscissae and ordinates. %d != %d", len(x), len(y))
	}
	if len(x) < 2 {
		return nil, chk.Err("table must have at least two points. %d is invalid", len(x))
	}
	for i := 1; i < len(x); i++ {
		if x[i] <= x[i-1] {
			return nil, chk.Err("table abscissae must be strictly increasing. x[%d]=%g <= x[%d]=%g", i, x[i], i-1, x[i-1])
		}
	}
	o = &Table{X: make([]float64, len(x)), Y: make([]float64, len(y))}
	copy(o.X, x)
	copy(o.Y, y)
	if err = o.pl.Fit(o.X, o.Y); err != nil {
		return nil, chk.Err("cannot fit table:\n%v", err)
	}
	return
}

// Eval returns the value at x
func (o *Table) Eval(x float64) float64 {
	n := len(o.X)
	if x < o.X[0] {
		return o.Y[0] + o.slope(0)*(x-o.X[0])
	}
	if x > o.X[n-1] {
		return o.Y[n-1] + o.slope(n-2)*(x-o.X[n-1])
	}
	return o.pl.Predict(x)
}

// slope returns the slope of segment i
func (o *Table) slope(i int) float64 {
	return (o.Y[i+1] - o.Y[i]) / (o.X[i+1] - o.X[i])
}
