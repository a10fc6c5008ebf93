// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package grid

import (
	"sync"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/mpi"
)

// Communicator sums values over all processes of a group
type Communicator interface {
	Rank() int                   // rank of this process
	Size() int                   // number of processes
	SumScalar(x float64) float64 // returns the sum of x over all processes
	SumVector(x []float64)       // replaces x by its sum over all processes
}

// SerialComm is the communicator of a run with a single process
type SerialComm struct{}

func (o SerialComm) Rank() int                   { return 0 }
func (o SerialComm) Size() int                   { return 1 }
func (o SerialComm) SumScalar(x float64) float64 { return x }
func (o SerialComm) SumVector(x []float64)       {}

// MpiComm implements Communicator with MPI
type MpiComm struct {
	c *mpi.Communicator
}

// NewMpiComm returns a communicator over all MPI processes
//  Note: mpi.Start must have been called already
func NewMpiComm() *MpiComm {
	if !mpi.IsOn() {
		chk.Panic("MPI must be started before allocating a communicator")
	}
	return &MpiComm{mpi.NewCommunicator(nil)}
}

func (o *MpiComm) Rank() int { return o.c.Rank() }
func (o *MpiComm) Size() int { return o.c.Size() }

func (o *MpiComm) SumScalar(x float64) float64 {
	v := []float64{x}
	o.SumVector(v)
	return v[0]
}

func (o *MpiComm) SumVector(x []float64) {
	if o.c.Size() < 2 {
		return
	}
	orig := make([]float64, len(x))
	copy(orig, x)
	o.c.AllReduceSum(x, orig)
}

// LocalGroup runs a group of ranks as goroutines of the same process. Each rank must call the
// collective operations in the same order, as with MPI
type LocalGroup struct {
	size    int
	mu      sync.Mutex
	cond    *sync.Cond
	arrived int       // ranks that contributed to the current round
	leaving int       // ranks that have not yet read the result of the last round
	gen     int       // round counter
	acc     []float64 // accumulated values
	res     []float64 // result of the last round
}

// NewLocalGroup returns n communicators sharing one group
func NewLocalGroup(n int) (comms []Communicator) {
	if n < 1 {
		chk.Panic("number of ranks must be positive. %d is invalid", n)
	}
	g := &LocalGroup{size: n}
	g.cond = sync.NewCond(&g.mu)
	comms = make([]Communicator, n)
	for i := 0; i < n; i++ {
		comms[i] = &LocalComm{g, i}
	}
	return
}

// allReduce sums x over all ranks of the group
func (o *LocalGroup) allReduce(x []float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for o.leaving > 0 {
		o.cond.Wait()
	}
	if o.arrived == 0 {
		o.acc = make([]float64, len(x))
	}
	if len(o.acc) != len(x) {
		chk.Panic("all ranks must reduce arrays of the same length. %d != %d", len(x), len(o.acc))
	}
	for i, v := range x {
		o.acc[i] += v
	}
	o.arrived++
	gen := o.gen
	if o.arrived == o.size {
		o.res, o.acc = o.acc, nil
		o.arrived = 0
		o.leaving = o.size
		o.gen++
		o.cond.Broadcast()
	} else {
		for gen == o.gen {
			o.cond.Wait()
		}
	}
	copy(x, o.res)
	o.leaving--
	if o.leaving == 0 {
		o.cond.Broadcast()
	}
}

// LocalComm is one rank of a LocalGroup
type LocalComm struct {
	g    *LocalGroup
	rank int
}

func (o *LocalComm) Rank() int { return o.rank }
func (o *LocalComm) Size() int { return o.g.size }

func (o *LocalComm) SumScalar(x float64) float64 {
	v := []float64{x}
	o.g.allReduce(v)
	return v[0]
}

func (o *LocalComm) SumVector(x []float64) { o.g.allReduce(x) }
