// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fvm

import "github.com/cpmech/gosl/la"

// AuxiliaryModule adds equations which are not associated with grid cells; e.g. wells,
// non-neighbouring connections or coupling conditions. The extra degrees of freedom have the
// same number of equations as the grid dofs and are numbered after them
type AuxiliaryModule interface {
	NumDofs() int                   // number of extra degrees of freedom
	SetDofOffset(offset int)        // sets the global index of the first extra dof
	DofOffset() int                 // returns the global index of the first extra dof
	NumNonZeros(neq int) int        // upper bound of Jacobian entries added by Linearize
	ApplyInitial(d *Discretization) // sets the initial values of the extra dofs in d.Solution(0)

	// Linearize adds the residual and Jacobian contributions of the module; jac is nil if only
	// the residual must be computed
	Linearize(d *Discretization, jac *la.Triplet, res *BlockVector) error
}

// BaseAuxiliaryModule implements the dof numbering of auxiliary modules
type BaseAuxiliaryModule struct {
	offset int
}

// SetDofOffset sets the global index of the first extra dof
func (o *BaseAuxiliaryModule) SetDofOffset(offset int) { o.offset = offset }

// DofOffset returns the global index of the first extra dof
func (o *BaseAuxiliaryModule) DofOffset() int { return o.offset }

// LocalToGlobalDof converts the index of an extra dof into a global dof index
func (o *BaseAuxiliaryModule) LocalToGlobalDof(i int) int { return o.offset + i }
