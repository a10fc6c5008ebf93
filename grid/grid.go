// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package grid implements grid views used by the finite volume discretization: element stencils,
// partition types and communicators for sums across process boundaries
package grid

// PartitionType classifies an element with respect to the local process
type PartitionType int

// partition types
const (
	Interior PartitionType = iota // element owned by this process
	Overlap                       // copy of an element owned by a neighbouring process
	Ghost                         // element known to this process but never assembled
)

// String returns the name of the partition type
func (o PartitionType) String() string {
	switch o {
	case Interior:
		return "interior"
	case Overlap:
		return "overlap"
	case Ghost:
		return "ghost"
	}
	return "unknown"
}

// Face holds an interior face of a stencil
type Face struct {
	I, J  int     // local indices of the degrees of freedom on each side
	Trans float64 // geometric transmissibility
	Area  float64 // face area
}

// BoundaryFace holds a face on the domain boundary
type BoundaryFace struct {
	I     int     // local index of the degree of freedom touching the face
	Tag   int     // boundary tag
	Trans float64 // geometric transmissibility between the dof centre and the face
	Area  float64 // face area
}

// Stencil holds the local view of an element: the degrees of freedom it touches and the faces
// connecting them. The first NumPrimary entries of Dofs are the element's primary dofs
type Stencil struct {
	Elem       int            // element index in the view
	Dofs       []int          // global dof indices
	NumPrimary int            // number of primary dofs
	Volumes    []float64      // sub-control-volume of each local dof
	Regions    []int          // saturation region of each local dof
	PvtRegions []int          // pvt region of each local dof
	Faces      []Face         // interior faces
	Boundary   []BoundaryFace // boundary faces
}

// NumDof returns the number of local degrees of freedom
func (o *Stencil) NumDof() int { return len(o.Dofs) }

// Reset clears the stencil keeping the allocated memory
func (o *Stencil) Reset() {
	o.Dofs = o.Dofs[:0]
	o.Volumes = o.Volumes[:0]
	o.Regions = o.Regions[:0]
	o.PvtRegions = o.PvtRegions[:0]
	o.Faces = o.Faces[:0]
	o.Boundary = o.Boundary[:0]
	o.NumPrimary = 0
}

// View defines the grid as seen by one process
type View interface {
	NumDof() int                          // global number of grid degrees of freedom
	NumElements() int                     // number of elements known to this process
	PartitionType(elem int) PartitionType // partition type of element
	Stencil(elem int, st *Stencil)        // fills the stencil of element
	IsProcessDof(dof int) bool            // dof is touched by an element known to this process
	Comm() Communicator                   // communicator of the process group
}
