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

// BiCGStab solves linear systems with the stabilised bi-conjugate gradient method
// preconditioned by the inverse of the diagonal. The matrix is summed over all processes
type BiCGStab struct {
	Comm    grid.Communicator // communicator
	Verbose bool              // show messages
	MaxIt   int               // maximum number of iterations; 0 => 10 times the number of equations
	NumIt   int               // number of iterations of the last solve
	buf     []float64
}

// MinRelTol is the smallest relative tolerance used by BiCGStab; tighter requests cannot be met
// in double precision
var MinRelTol = 1e-12

// Solve solves A x = b starting from x and stops when |b - A x| ≤ relTol |b|
func (o *BiCGStab) Solve(A *la.Triplet, x, b la.Vector, relTol float64) (converged bool, err error) {
	if len(x) != len(b) {
		return false, chk.Err("vectors must have the same size. %d != %d", len(x), len(b))
	}
	D, data := assemble(A, o.Comm, o.buf)
	o.buf = data
	n, _ := D.Dims()
	if n != len(b) {
		return false, chk.Err("matrix (%d×%d) and vector (%d) are not compatible", n, n, len(b))
	}
	relTol = math.Max(relTol, MinRelTol)
	maxit := o.MaxIt
	if maxit < 1 {
		maxit = 10 * n
	}

	// Jacobi preconditioner
	dinv := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		d := D.At(i, i)
		if d == 0 {
			d = 1
		}
		dinv.SetVec(i, 1/d)
	}
	precond := func(dst, src *mat.VecDense) { dst.MulElemVec(dinv, src) }

	// initial residual
	X := mat.NewVecDense(n, x)
	B := mat.NewVecDense(n, b)
	bnorm := mat.Norm(B, 2)
	if bnorm == 0 {
		X.Zero()
		return true, nil
	}
	r := mat.NewVecDense(n, nil)
	r.MulVec(D, X)
	r.SubVec(B, r)
	rhat := mat.VecDenseCopyOf(r)
	p := mat.NewVecDense(n, nil)
	v := mat.NewVecDense(n, nil)
	s := mat.NewVecDense(n, nil)
	t := mat.NewVecDense(n, nil)
	y := mat.NewVecDense(n, nil)
	z := mat.NewVecDense(n, nil)
	rho, alpha, omega := 1.0, 1.0, 1.0

	// iterations
	for o.NumIt = 0; o.NumIt < maxit; o.NumIt++ {
		if mat.Norm(r, 2) <= relTol*bnorm {
			return true, nil
		}
		rhoNew := mat.Dot(rhat, r)
		if rhoNew == 0 || omega == 0 {
			break // breakdown
		}
		beta := (rhoNew / rho) * (alpha / omega)
		rho = rhoNew
		p.AddScaledVec(p, -omega, v)
		p.ScaleVec(beta, p)
		p.AddVec(p, r)
		precond(y, p)
		v.MulVec(D, y)
		alpha = rho / mat.Dot(rhat, v)
		s.AddScaledVec(r, -alpha, v)
		if mat.Norm(s, 2) <= relTol*bnorm {
			X.AddScaledVec(X, alpha, y)
			return true, nil
		}
		precond(z, s)
		t.MulVec(D, z)
		tt := mat.Dot(t, t)
		if tt == 0 {
			break
		}
		omega = mat.Dot(t, s) / tt
		X.AddScaledVec(X, alpha, y)
		X.AddScaledVec(X, omega, z)
		r.AddScaledVec(s, -omega, t)
		if math.IsNaN(omega) {
			break
		}
	}
	if o.Verbose {
		io.Pfred("BiCGStab did not converge after %d iterations: |r| = %g, tolerance = %g\n", o.NumIt, mat.Norm(r, 2), relTol*bnorm)
	}
	return false, nil
}
