// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package linsol

import (
	"sync"
	"testing"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"github.com/cpmech/gosl/la"
	"github.com/jakobtorben/opm-models/grid"
)

// system returns a non-symmetric diagonally dominant system with solution [1, 2, 3]
func system() (A *la.Triplet, b la.Vector) {
	A = new(la.Triplet)
	A.Init(3, 3, 8)
	A.Put(0, 0, 4)
	A.Put(0, 1, 1)
	A.Put(1, 0, 2)
	A.Put(1, 1, 5)
	A.Put(1, 2, 1)
	A.Put(2, 1, 1)
	A.Put(2, 2, 3)
	A.Put(2, 2, 1) // duplicates are summed
	b = la.Vector{6, 15, 14}
	return
}

func Test_dense01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("dense01. LU solution")

	A, b := system()
	sol, err := New("dense", nil, chk.Verbose)
	if err != nil {
		tst.Errorf("New failed:\n%v", err)
		return
	}
	x := la.NewVector(3)
	ok, err := sol.Solve(A, x, b, 1e-13)
	if err != nil {
		tst.Errorf("Solve failed:\n%v", err)
		return
	}
	if !ok {
		tst.Errorf("Solve should have converged\n")
		return
	}
	chk.Array(tst, "x", 1e-14, x, []float64{1, 2, 3})
	chk.Array(tst, "b unchanged", 1e-15, b, []float64{6, 15, 14})
}

func Test_dense02(tst *testing.T) {

	//verbose()
	chk.PrintTitle("dense02. singular matrix")

	A := new(la.Triplet)
	A.Init(2, 2, 4)
	A.Put(0, 0, 1)
	A.Put(0, 1, 2)
	A.Put(1, 0, 2)
	A.Put(1, 1, 4)
	var sol Dense
	sol.Comm = grid.SerialComm{}
	ok, err := sol.Solve(A, la.NewVector(2), la.Vector{1, 1}, 1e-13)
	if err != nil {
		tst.Errorf("Solve should not return an error:\n%v", err)
	}
	if ok {
		tst.Errorf("Solve should have reported failure\n")
	}

	// incompatible vectors
	_, err = sol.Solve(A, la.NewVector(3), la.Vector{1, 1}, 1e-13)
	if err == nil {
		tst.Errorf("Solve should have failed\n")
	}
}

func Test_bicgstab01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("bicgstab01. iterative solution")

	A, b := system()
	sol, err := New("bicgstab", grid.SerialComm{}, chk.Verbose)
	if err != nil {
		tst.Errorf("New failed:\n%v", err)
		return
	}
	x := la.NewVector(3)
	ok, err := sol.Solve(A, x, b, 1e-12)
	if err != nil {
		tst.Errorf("Solve failed:\n%v", err)
		return
	}
	if !ok {
		tst.Errorf("Solve should have converged\n")
		return
	}
	io.Pforan("iterations = %d\n", sol.(*BiCGStab).NumIt)
	chk.Array(tst, "x", 1e-10, x, []float64{1, 2, 3})

	// zero right-hand side
	x = la.Vector{5, 5, 5}
	ok, _ = sol.Solve(A, x, la.NewVector(3), 1e-12)
	if !ok {
		tst.Errorf("Solve should have converged\n")
	}
	chk.Array(tst, "x", 1e-15, x, []float64{0, 0, 0})

	// unknown solver
	_, err = New("umfpack", nil, false)
	if err == nil {
		tst.Errorf("New should have failed\n")
	}
}

func Test_dense03(tst *testing.T) {

	//verbose()
	chk.PrintTitle("dense03. matrix distributed over two ranks")

	// rank 0 holds rows 0 and 1; rank 1 holds row 2 and the duplicate
	comms := grid.NewLocalGroup(2)
	res := make([]la.Vector, 2)
	var wg sync.WaitGroup
	for r := 0; r < 2; r++ {
		wg.Add(1)
		go func(c grid.Communicator) {
			defer wg.Done()
			A := new(la.Triplet)
			A.Init(3, 3, 8)
			if c.Rank() == 0 {
				A.Put(0, 0, 4)
				A.Put(0, 1, 1)
				A.Put(1, 0, 2)
				A.Put(1, 1, 5)
				A.Put(1, 2, 1)
			} else {
				A.Put(2, 1, 1)
				A.Put(2, 2, 3)
				A.Put(2, 2, 1)
			}
			x := la.NewVector(3)
			sol := &Dense{Comm: c}
			ok, err := sol.Solve(A, x, la.Vector{6, 15, 14}, 1e-13)
			if err != nil || !ok {
				x = nil
			}
			res[c.Rank()] = x
		}(comms[r])
	}
	wg.Wait()
	for r := 0; r < 2; r++ {
		if res[r] == nil {
			tst.Errorf("rank %d failed\n", r)
			continue
		}
		chk.Array(tst, io.Sf("x%d", r), 1e-14, res[r], []float64{1, 2, 3})
	}
}

func verbose() {
	chk.Verbose = true
}
