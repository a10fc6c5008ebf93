// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package grid

import (
	"sync"
	"testing"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"github.com/jakobtorben/opm-models/inp"
)

func Test_view01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("view01. serial cell view")

	msh := inp.NewCartesianMesh(3, 2, 1, 2, 1, 1)
	view, err := NewCellView(msh, nil)
	if err != nil {
		tst.Errorf("NewCellView failed:\n%v", err)
		return
	}
	chk.Int(tst, "ndof", view.NumDof(), 6)
	chk.Int(tst, "nelems", view.NumElements(), 6)

	var st Stencil
	view.Stencil(4, &st) // middle of top row
	chk.Int(tst, "elem", st.Elem, 4)
	chk.Int(tst, "nprimary", st.NumPrimary, 1)
	chk.Ints(tst, "dofs", st.Dofs, []int{4, 3, 5, 1})
	chk.Array(tst, "volumes", 1e-15, st.Volumes, []float64{2, 2, 2, 2})
	chk.Int(tst, "nfaces", len(st.Faces), 3)
	chk.Int(tst, "nbry", len(st.Boundary), 1)
	chk.Int(tst, "bry tag", st.Boundary[0].Tag, inp.TagYmax)
	chk.Float64(tst, "trans x", 1e-15, st.Faces[0].Trans, 2)
	chk.Float64(tst, "trans y", 1e-15, st.Faces[2].Trans, 0.5)

	// stencil is reused
	view.Stencil(0, &st)
	chk.Ints(tst, "dofs", st.Dofs, []int{0, 1, 3})
	chk.Int(tst, "nbry", len(st.Boundary), 2)
	for e := 0; e < view.NumElements(); e++ {
		if view.PartitionType(e) != Interior {
			tst.Errorf("element %d should be interior\n", e)
		}
	}
}

func Test_view02(tst *testing.T) {

	//verbose()
	chk.PrintTitle("view02. distributed cell view")

	msh := inp.NewCartesianMesh(4, 1, 1, 1, 1, 2)
	comms := NewLocalGroup(2)

	v0, err := NewCellView(msh, comms[0])
	if err != nil {
		tst.Errorf("NewCellView failed:\n%v", err)
		return
	}
	v1, err := NewCellView(msh, comms[1])
	if err != nil {
		tst.Errorf("NewCellView failed:\n%v", err)
		return
	}

	chk.Int(tst, "nelems0", v0.NumElements(), 3)
	chk.Int(tst, "nelems1", v1.NumElements(), 3)
	chk.Ints(tst, "cells0", []int{v0.CellId(0), v0.CellId(1), v0.CellId(2)}, []int{0, 1, 2})
	chk.Ints(tst, "cells1", []int{v1.CellId(0), v1.CellId(1), v1.CellId(2)}, []int{2, 3, 1})
	chk.String(tst, v0.PartitionType(2).String(), "overlap")
	chk.String(tst, v1.PartitionType(0).String(), "interior")
	if v0.IsProcessDof(3) || !v0.IsProcessDof(2) {
		tst.Errorf("process dofs of rank 0 are incorrect\n")
	}

	// wrong number of partitions
	_, err = NewCellView(msh, NewLocalGroup(3)[0])
	if err == nil {
		tst.Errorf("NewCellView should have failed\n")
	}
}

func Test_comm01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("comm01. local group sums")

	n := 4
	comms := NewLocalGroup(n)
	res := make([][]float64, n)
	sca := make([]float64, n)
	var wg sync.WaitGroup
	for r := 0; r < n; r++ {
		wg.Add(1)
		go func(c Communicator) {
			defer wg.Done()
			x := []float64{float64(c.Rank()), 1}
			for k := 0; k < 3; k++ { // repeated rounds
				c.SumVector(x)
			}
			res[c.Rank()] = x
			sca[c.Rank()] = c.SumScalar(float64(c.Rank() + 1))
		}(comms[r])
	}
	wg.Wait()

	// round 1: [6, 4]; round 2: [24, 16]; round 3: [96, 64]
	for r := 0; r < n; r++ {
		chk.Array(tst, io.Sf("res%d", r), 1e-15, res[r], []float64{96, 64})
		chk.Float64(tst, io.Sf("sca%d", r), 1e-15, sca[r], 10)
	}

	var s SerialComm
	chk.Float64(tst, "serial", 1e-15, s.SumScalar(3), 3)
}

func verbose() {
	chk.Verbose = true
}
