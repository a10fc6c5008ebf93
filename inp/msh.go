// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package inp

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
)

// tags of the faces of Cartesian meshes
const (
	TagXmin = -10
	TagXmax = -11
	TagYmin = -20
	TagYmax = -21
)

// BryFace holds a face of a cell on the boundary of the domain
type BryFace struct {
	Tag   int     // tag
	Area  float64 // area
	Trans float64 // geometric transmissibility between cell centre and face
}

// Cell holds the data of a finite volume cell
type Cell struct {

	// input data
	Id     int        // id; equal to the position in Mesh.Cells
	Tag    int        // tag
	Part   int        // partition id
	Region int        // saturation region id
	Pvt    int        // pvt region id
	Vol    float64    // volume
	Neighs []int      // neighbours sharing a face
	Trans  []float64  // geometric transmissibility of the face shared with each neighbour
	Areas  []float64  // area of the face shared with each neighbour
	Bry    []*BryFace // faces on the boundary
}

// Mesh holds a mesh for finite volume analyses
type Mesh struct {

	// from JSON
	Cells []*Cell // cells

	// derived
	FnamePath string  // complete filename path
	Nparts    int     // number of partitions
	TotalVol  float64 // sum of cell volumes

	// derived: maps
	CellTag2cells map[int][]*Cell // cell tag => set of cells
	BryTag2cells  map[int][]*Cell // boundary face tag => set of cells
	Part2cells    map[int][]*Cell // partition number => set of cells
}

// ReadMsh reads a mesh for finite volume analyses
func ReadMsh(dir, fn string) (o *Mesh, err error) {

	// new mesh
	o = new(Mesh)

	// read file
	o.FnamePath = filepath.Join(dir, fn)
	b, err := os.ReadFile(o.FnamePath)
	if err != nil {
		return nil, chk.Err("cannot read mesh file %q:\n%v", o.FnamePath, err)
	}

	// decode
	err = json.Unmarshal(b, o)
	if err != nil {
		return nil, chk.Err("cannot unmarshal mesh file %q:\n%v", o.FnamePath, err)
	}

	// derived data
	err = o.PostProcess()
	if err != nil {
		return nil, chk.Err("mesh file %q is invalid:\n%v", o.FnamePath, err)
	}
	return
}

// PostProcess checks the connectivity and computes derived data
func (o *Mesh) PostProcess() (err error) {

	// check
	if len(o.Cells) < 1 {
		return chk.Err("mesh must have at least one cell")
	}

	// maps
	o.CellTag2cells = make(map[int][]*Cell)
	o.BryTag2cells = make(map[int][]*Cell)
	o.Part2cells = make(map[int][]*Cell)
	o.Nparts = 0
	o.TotalVol = 0
	ncells := len(o.Cells)
	for i, c := range o.Cells {
		if c.Id != i {
			return chk.Err("cells must be numbered sequentially. cell at position %d has id=%d", i, c.Id)
		}
		if c.Vol <= 0 {
			return chk.Err("volume of cell %d must be positive. %g is invalid", c.Id, c.Vol)
		}
		if len(c.Trans) != len(c.Neighs) {
			return chk.Err("cell %d must have one transmissibility per neighbour. %d != %d", c.Id, len(c.Trans), len(c.Neighs))
		}
		if len(c.Areas) == 0 {
			c.Areas = make([]float64, len(c.Neighs))
		}
		if len(c.Areas) != len(c.Neighs) {
			return chk.Err("cell %d must have one face area per neighbour. %d != %d", c.Id, len(c.Areas), len(c.Neighs))
		}
		for _, n := range c.Neighs {
			if n < 0 || n >= ncells || n == c.Id {
				return chk.Err("cell %d has an invalid neighbour %d", c.Id, n)
			}
		}
		if c.Part < 0 {
			return chk.Err("partition of cell %d must be non-negative. %d is invalid", c.Id, c.Part)
		}
		if c.Part+1 > o.Nparts {
			o.Nparts = c.Part + 1
		}
		o.TotalVol += c.Vol
		o.CellTag2cells[c.Tag] = append(o.CellTag2cells[c.Tag], c)
		o.Part2cells[c.Part] = append(o.Part2cells[c.Part], c)
		for _, f := range c.Bry {
			o.BryTag2cells[f.Tag] = append(o.BryTag2cells[f.Tag], c)
		}
	}

	// symmetry of connections
	for _, c := range o.Cells {
		for k, n := range c.Neighs {
			found := false
			for l, m := range o.Cells[n].Neighs {
				if m == c.Id {
					if math.Abs(o.Cells[n].Trans[l]-c.Trans[k]) > 1e-12*math.Max(1, math.Abs(c.Trans[k])) {
						return chk.Err("transmissibility between cells %d and %d is not symmetric", c.Id, n)
					}
					found = true
					break
				}
			}
			if !found {
				return chk.Err("cell %d lists %d as neighbour but not the other way around", c.Id, n)
			}
		}
	}
	return
}

// NewCartesianMesh generates a structured nx×ny mesh with unit permeability and cell sizes dx,
// dy and dz. Partitions are contiguous strips along x. Boundary faces are tagged with
// TagXmin, TagXmax, TagYmin and TagYmax
func NewCartesianMesh(nx, ny int, dx, dy, dz float64, nparts int) (o *Mesh) {
	if nx < 1 || ny < 1 || nparts < 1 || nparts > nx {
		chk.Panic("cannot generate mesh with nx=%d, ny=%d and nparts=%d", nx, ny, nparts)
	}
	o = new(Mesh)
	o.Cells = make([]*Cell, nx*ny)
	ax, ay := dy*dz, dx*dz // areas of faces normal to x and y
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			c := &Cell{Id: i + j*nx, Part: i * nparts / nx, Vol: dx * dy * dz}
			if i > 0 {
				c.add(c.Id-1, ax/dx, ax)
			} else {
				c.Bry = append(c.Bry, &BryFace{TagXmin, ax, 2 * ax / dx})
			}
			if i < nx-1 {
				c.add(c.Id+1, ax/dx, ax)
			} else {
				c.Bry = append(c.Bry, &BryFace{TagXmax, ax, 2 * ax / dx})
			}
			if ny > 1 {
				if j > 0 {
					c.add(c.Id-nx, ay/dy, ay)
				} else {
					c.Bry = append(c.Bry, &BryFace{TagYmin, ay, 2 * ay / dy})
				}
				if j < ny-1 {
					c.add(c.Id+nx, ay/dy, ay)
				} else {
					c.Bry = append(c.Bry, &BryFace{TagYmax, ay, 2 * ay / dy})
				}
			}
			o.Cells[c.Id] = c
		}
	}
	if err := o.PostProcess(); err != nil {
		chk.Panic("generated mesh is invalid:\n%v", err)
	}
	return
}

// add adds a neighbour
func (o *Cell) add(neigh int, trans, area float64) {
	o.Neighs = append(o.Neighs, neigh)
	o.Trans = append(o.Trans, trans)
	o.Areas = append(o.Areas, area)
}

// String returns a JSON representation of *Cell
func (o *Cell) String() string {
	b, err := json.Marshal(o)
	if err != nil {
		return io.Sf("{\"Id\":%d}", o.Id)
	}
	return string(b)
}
