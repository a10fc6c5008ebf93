// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package linsol

import (
	"math"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"github.com/cpmech/gosl/la"
	"github.com/jakobtorben/opm-models/grid"
	"gonum.org/v1/gonum/mat"
)

// MaxCond is the largest condition number accepted by Dense
var MaxCond = 1e14

// Dense solves linear systems with the LU decomposition of the dense matrix. The matrix is
// summed over all processes, thus every process obtains the same solution. The relative
// tolerance is ignored
type Dense struct {
	Comm    grid.Communicator // communicator
	Verbose bool              // show messages
	buf     []float64         // matrix values
}

// Solve solves A x = b
func (o *Dense) Solve(A *la.Triplet, x, b la.Vector, relTol float64) (converged bool, err error) {
	if len(x) != len(b) {
		return false, chk.Err("vectors must have the same size. %d != %d", len(x), len(b))
	}
	D, data := assemble(A, o.Comm, o.buf)
	o.buf = data
	n, _ := D.Dims()
	if n != len(b) {
		return false, chk.Err("matrix (%d×%d) and vector (%d) are not compatible", n, n, len(b))
	}

	// factorise
	var lu mat.LU
	lu.Factorize(D)
	cond := lu.Cond()
	if math.IsInf(cond, 0) || math.IsNaN(cond) || cond > MaxCond {
		if o.Verbose {
			io.Pfred("matrix is singular or ill-conditioned: cond = %g\n", cond)
		}
		return false, nil
	}

	// solve
	rhs := mat.NewVecDense(n, b.GetCopy())
	sol := mat.NewVecDense(n, x)
	err = lu.SolveVecTo(sol, false, rhs)
	if err != nil {
		if o.Verbose {
			io.Pfred("LU solve failed: %v\n", err)
		}
		return false, nil
	}
	for _, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false, nil
		}
	}
	return true, nil
}
