// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package grid

import (
	"github.com/cpmech/gosl/chk"
	"github.com/jakobtorben/opm-models/inp"
)

// CellView is the view of a cell-centred mesh: each cell is one element with one primary dof;
// the stencil of an element holds the cell followed by its face neighbours
type CellView struct {
	Msh      *inp.Mesh       // mesh
	comm     Communicator    // communicator
	elems    []int           // element index => cell id
	ptypes   []PartitionType // partition type of each element
	procDofs []bool          // [ncells] dof touched by this process
}

// NewCellView returns a new view of msh. If comm has more than one rank, the mesh partitions
// are mapped to ranks: cells of partition == rank are interior and their face neighbours in
// other partitions form the overlap
func NewCellView(msh *inp.Mesh, comm Communicator) (o *CellView, err error) {
	if msh == nil {
		return nil, chk.Err("mesh must not be nil")
	}
	if comm == nil {
		comm = SerialComm{}
	}
	o = &CellView{Msh: msh, comm: comm}
	ncells := len(msh.Cells)
	o.procDofs = make([]bool, ncells)

	// serial
	if comm.Size() == 1 {
		o.elems = make([]int, ncells)
		o.ptypes = make([]PartitionType, ncells)
		for i := range msh.Cells {
			o.elems[i] = i
			o.procDofs[i] = true
		}
		return
	}

	// distributed
	if msh.Nparts != comm.Size() {
		return nil, chk.Err("number of mesh partitions (%d) must be equal to the number of processes (%d)", msh.Nparts, comm.Size())
	}
	rank := comm.Rank()
	overlap := make(map[int]bool)
	for _, c := range msh.Part2cells[rank] {
		o.elems = append(o.elems, c.Id)
		o.ptypes = append(o.ptypes, Interior)
		o.procDofs[c.Id] = true
		for _, n := range c.Neighs {
			if msh.Cells[n].Part != rank {
				overlap[n] = true
			}
		}
	}
	for _, c := range msh.Cells {
		if overlap[c.Id] {
			o.elems = append(o.elems, c.Id)
			o.ptypes = append(o.ptypes, Overlap)
			o.procDofs[c.Id] = true
		}
	}
	return
}

func (o *CellView) NumDof() int                          { return len(o.Msh.Cells) }
func (o *CellView) NumElements() int                     { return len(o.elems) }
func (o *CellView) PartitionType(elem int) PartitionType { return o.ptypes[elem] }
func (o *CellView) IsProcessDof(dof int) bool            { return o.procDofs[dof] }
func (o *CellView) Comm() Communicator                   { return o.comm }

// CellId returns the id of the cell of element elem
func (o *CellView) CellId(elem int) int { return o.elems[elem] }

// Stencil fills the stencil of element elem
func (o *CellView) Stencil(elem int, st *Stencil) {
	st.Reset()
	c := o.Msh.Cells[o.elems[elem]]
	st.Elem = elem
	st.NumPrimary = 1
	st.Dofs = append(st.Dofs, c.Id)
	st.Volumes = append(st.Volumes, c.Vol)
	st.Regions = append(st.Regions, c.Region)
	st.PvtRegions = append(st.PvtRegions, c.Pvt)
	for k, n := range c.Neighs {
		nc := o.Msh.Cells[n]
		st.Dofs = append(st.Dofs, n)
		st.Volumes = append(st.Volumes, nc.Vol)
		st.Regions = append(st.Regions, nc.Region)
		st.PvtRegions = append(st.PvtRegions, nc.Pvt)
		st.Faces = append(st.Faces, Face{I: 0, J: k + 1, Trans: c.Trans[k], Area: c.Areas[k]})
	}
	for _, f := range c.Bry {
		st.Boundary = append(st.Boundary, BoundaryFace{I: 0, Tag: f.Tag, Trans: f.Trans, Area: f.Area})
	}
}
