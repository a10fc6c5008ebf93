// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package linsol implements linear solvers for the Newton iterations
package linsol

import (
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/la"
	"github.com/jakobtorben/opm-models/grid"
	"gonum.org/v1/gonum/mat"
)

// Solver solves A x = b
type Solver interface {
	Solve(A *la.Triplet, x, b la.Vector, relTol float64) (converged bool, err error)
}

// allocators holds all available solvers
var allocators = map[string]func(comm grid.Communicator, verbose bool) Solver{
	"dense":    func(comm grid.Communicator, verbose bool) Solver { return &Dense{Comm: comm, Verbose: verbose} },
	"bicgstab": func(comm grid.Communicator, verbose bool) Solver { return &BiCGStab{Comm: comm, Verbose: verbose} },
}

// New returns a new solver by name
func New(name string, comm grid.Communicator, verbose bool) (Solver, error) {
	if comm == nil {
		comm = grid.SerialComm{}
	}
	if alloc, ok := allocators[name]; ok {
		return alloc(comm, verbose), nil
	}
	return nil, chk.Err("cannot find linear solver named %q", name)
}

// assemble converts the triplet into a dense matrix summed over all processes
func assemble(A *la.Triplet, comm grid.Communicator, buf []float64) (D *mat.Dense, data []float64) {
	M := A.ToDense()
	m, n := M.M, M.N
	if m != n {
		chk.Panic("matrix must be square. %d×%d is invalid", m, n)
	}
	data = buf
	if len(data) != m*n {
		data = make([]float64, m*n)
	}
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			data[i*n+j] = M.Get(i, j)
		}
	}
	comm.SumVector(data)
	return mat.NewDense(m, n, data), data
}
