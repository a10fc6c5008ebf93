// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package inp implements the input data read from a (.sim) JSON or YAML file
package inp

import (
	"encoding/json"
	goio "io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"github.com/cpmech/gosl/utl"
	"gopkg.in/yaml.v3"
)

// Data holds global data for simulations
type Data struct {
	Desc    string `json:"desc" yaml:"desc"`       // description of simulation
	DirOut  string `json:"dirout" yaml:"dirout"`   // directory for output; e.g. /tmp/opm-models
	Encoder string `json:"encoder" yaml:"encoder"` // encoder name; e.g. "gob" "json" "yaml"
	Debug   bool   `json:"debug" yaml:"debug"`     // activate debugging
	Stat    bool   `json:"stat" yaml:"stat"`       // activate statistics; e.g. save residuals in summary
	Restart bool   `json:"restart" yaml:"restart"` // write restart file at output times
}

// MeshData holds the mesh file or the parameters to generate a Cartesian mesh
type MeshData struct {
	File   string  `json:"file" yaml:"file"`     // mesh file, relative to the .sim file
	Nx     int     `json:"nx" yaml:"nx"`         // generated mesh: number of cells along x
	Ny     int     `json:"ny" yaml:"ny"`         // generated mesh: number of cells along y
	Dx     float64 `json:"dx" yaml:"dx"`         // generated mesh: cell size along x
	Dy     float64 `json:"dy" yaml:"dy"`         // generated mesh: cell size along y
	Dz     float64 `json:"dz" yaml:"dz"`         // generated mesh: cell size along z
	Nparts int     `json:"nparts" yaml:"nparts"` // generated mesh: number of partitions
}

// Prm holds a named parameter
type Prm struct {
	N string  `json:"n" yaml:"n"` // name
	V float64 `json:"v" yaml:"v"` // value
}

// Prms holds many parameters
type Prms []*Prm

// Find finds a parameter by name. Returns nil if not found
func (o Prms) Find(name string) *Prm {
	for _, p := range o {
		if p.N == name {
			return p
		}
	}
	return nil
}

// GetValue returns the value of a parameter or a default value if not found
func (o Prms) GetValue(name string, dflt float64) float64 {
	if p := o.Find(name); p != nil {
		return p.V
	}
	return dflt
}

// ModelData holds data for the physical model
type ModelData struct {
	Name string `json:"name" yaml:"name"` // model name; e.g. "tracer"
	Prms Prms   `json:"prms" yaml:"prms"` // parameters
}

// DiscData holds data for the finite volume discretization
type DiscData struct {
	HistorySize int     `json:"historysize" yaml:"historysize"` // number of time levels kept in memory
	EnableCache bool    `json:"enablecache" yaml:"enablecache"` // keep intensive quantities of previous evaluations
	EnableHints bool    `json:"enablehints" yaml:"enablehints"` // use cached intensive quantities as starting points
	Nthreads    int     `json:"nthreads" yaml:"nthreads"`       // number of goroutines assembling the residual
	Adapt       bool    `json:"adapt" yaml:"adapt"`             // enable grid adaptation after each time step
	ConsTol     float64 `json:"constol" yaml:"constol"`         // tolerance of conservativeness check; 0 => skip check
}

// SolverData holds data for the nonlinear solver and time loop
type SolverData struct {
	Type     string  `json:"type" yaml:"type"`         // time loop type; e.g. "imp" => implicit Euler
	Tol      float64 `json:"tol" yaml:"tol"`           // Newton tolerance on the scaled deflection
	TargetIt int     `json:"targetit" yaml:"targetit"` // target number of Newton iterations per time step
	MaxIt    int     `json:"maxit" yaml:"maxit"`       // maximum number of Newton iterations per time step
	CteTg    bool    `json:"ctetg" yaml:"ctetg"`       // use constant tangent (modified Newton) during iterations
	FdEps    float64 `json:"fdeps" yaml:"fdeps"`       // base perturbation of numerical derivatives
	ShowR    bool    `json:"showr" yaml:"showr"`       // show residual
	WriteCnv bool    `json:"writecnv" yaml:"writecnv"` // write convergence fields of each Newton iteration
}

// LinSolData holds data for linear solvers
type LinSolData struct {
	Name    string `json:"name" yaml:"name"`       // "dense"
	Verbose bool   `json:"verbose" yaml:"verbose"` // verbose?
}

// TimeControl holds data for defining the simulation time stepping
type TimeControl struct {
	Tf     float64 `json:"tf" yaml:"tf"`         // final time
	Dt     float64 `json:"dt" yaml:"dt"`         // initial time step size
	DtMin  float64 `json:"dtmin" yaml:"dtmin"`   // minimum time step size
	DtMax  float64 `json:"dtmax" yaml:"dtmax"`   // maximum time step size
	DtOut  float64 `json:"dtout" yaml:"dtout"`   // time interval between outputs
	MaxDiv int     `json:"maxdiv" yaml:"maxdiv"` // maximum number of time step divisions after failures
}

// DiffusionData holds data for the molecular diffusion module
type DiffusionData struct {
	On    bool      `json:"on" yaml:"on"`       // enable module
	Coefs []float64 `json:"coefs" yaml:"coefs"` // diffusion coefficient of each region
}

// FoamRegionData holds foam data of one saturation region
type FoamRegionData struct {
	RockDensity     float64   `json:"rockdensity" yaml:"rockdensity"`         // rock density
	AllowDesorption bool      `json:"allowdesorption" yaml:"allowdesorption"` // desorption allowed
	AdsConc         []float64 `json:"adsconc" yaml:"adsconc"`                 // adsorption table: foam concentration
	AdsVals         []float64 `json:"adsvals" yaml:"adsvals"`                 // adsorption table: adsorbed amount per rock mass
}

// FoamMobilityData holds the gas mobility reduction table of one pvt region
type FoamMobilityData struct {
	Conc []float64 `json:"conc" yaml:"conc"` // foam concentration
	Mult []float64 `json:"mult" yaml:"mult"` // mobility multiplier
}

// FoamData holds data for the foam module
type FoamData struct {
	On             bool                `json:"on" yaml:"on"`                         // enable module
	TransportPhase string              `json:"transportphase" yaml:"transportphase"` // phase carrying the surfactant: "water" or "gas"
	Regions        []*FoamRegionData   `json:"regions" yaml:"regions"`               // data of each saturation region
	Mobility       []*FoamMobilityData `json:"mobility" yaml:"mobility"`             // data of each pvt region
}

// WellData holds data of a well connected to one cell
type WellData struct {
	Name string    `json:"name" yaml:"name"` // name
	Cell int       `json:"cell" yaml:"cell"` // perforated cell
	PI   float64   `json:"pi" yaml:"pi"`     // productivity index
	Bhp  float64   `json:"bhp" yaml:"bhp"`   // bottom hole pressure target
	Inj  []float64 `json:"inj" yaml:"inj"`   // values of the transported primary variables of the injected fluid
}

// ModulesData holds data of the optional modules
type ModulesData struct {
	Diffusion DiffusionData `json:"diffusion" yaml:"diffusion"` // molecular diffusion
	Foam      FoamData      `json:"foam" yaml:"foam"`           // foam
	Wells     []*WellData   `json:"wells" yaml:"wells"`         // wells
}

// Simulation holds all simulation data
type Simulation struct {

	// input
	Data    Data        `json:"data" yaml:"data"`       // stores global simulation data
	Mesh    MeshData    `json:"mesh" yaml:"mesh"`       // mesh file or generator
	Model   ModelData   `json:"model" yaml:"model"`     // physical model
	Disc    DiscData    `json:"disc" yaml:"disc"`       // discretization
	Solver  SolverData  `json:"solver" yaml:"solver"`   // nonlinear solver
	LinSol  LinSolData  `json:"linsol" yaml:"linsol"`   // linear solver
	Control TimeControl `json:"control" yaml:"control"` // time control
	Modules ModulesData `json:"modules" yaml:"modules"` // optional modules

	// derived
	Msh     *Mesh  `json:"-" yaml:"-"` // mesh
	Key     string `json:"-" yaml:"-"` // simulation key; e.g. mysim01.sim => mysim01 or mysim01.sim + alias => mysim01-alias
	DirOut  string `json:"-" yaml:"-"` // directory to save results
	EncType string `json:"-" yaml:"-"` // encoder type
}

// ReadSim reads all simulation data from a .sim JSON file or a .yaml/.yml file
func ReadSim(simfilepath, alias string, erasefiles bool) (o *Simulation, err error) {

	// new sim
	o = new(Simulation)

	// read file
	b, err := os.ReadFile(simfilepath)
	if err != nil {
		return nil, chk.Err("cannot read simulation file %q:\n%v", simfilepath, err)
	}

	// set default values
	o.SetDefault()

	// decode
	ext := strings.ToLower(filepath.Ext(simfilepath))
	if ext == ".yaml" || ext == ".yml" {
		err = yaml.Unmarshal(b, o)
	} else {
		err = json.Unmarshal(b, o)
	}
	if err != nil {
		return nil, chk.Err("cannot unmarshal simulation file %q:\n%v", simfilepath, err)
	}

	// input directory and filename key
	dir := os.ExpandEnv(filepath.Dir(simfilepath))
	fnkey := io.FnKey(filepath.Base(simfilepath))
	o.Key = fnkey
	if alias != "" {
		o.Key += "-" + alias
	}

	// output directory
	o.DirOut = o.Data.DirOut
	if o.DirOut == "" {
		o.DirOut = "/tmp/opm-models/" + fnkey
	}

	// create directory and erase previous simulation results
	if erasefiles {
		err = os.MkdirAll(o.DirOut, 0777)
		if err != nil {
			return nil, chk.Err("cannot create directory for output results (%s): %v", o.DirOut, err)
		}
		io.RemoveAll(io.Sf("%s/%s*", o.DirOut, o.Key))
	}

	// mesh
	if o.Mesh.File != "" {
		o.Msh, err = ReadMsh(dir, o.Mesh.File)
		if err != nil {
			return nil, chk.Err("cannot read mesh of simulation %q:\n%v", simfilepath, err)
		}
	}

	// derived and checks
	err = o.PostProcess()
	if err != nil {
		return nil, chk.Err("simulation file %q is invalid:\n%v", simfilepath, err)
	}
	return
}

// SetDefault sets default values
func (o *Simulation) SetDefault() {
	o.Data.Encoder = "gob"
	o.Model.Name = "tracer"
	o.Disc.HistorySize = 2
	o.Disc.Nthreads = 1
	o.Solver.SetDefault()
	o.LinSol.Name = "dense"
	o.Control.SetDefault()
	o.Modules.Foam.TransportPhase = "gas"
}

// PostProcess checks input data and computes derived values
func (o *Simulation) PostProcess() (err error) {

	// encoder type
	o.EncType = o.Data.Encoder
	if o.EncType != "gob" && o.EncType != "json" && o.EncType != "yaml" {
		o.EncType = "gob"
	}

	// generated mesh
	if o.Msh == nil {
		m := &o.Mesh
		if m.Nx < 1 {
			return chk.Err("either a mesh file or the number of cells (nx) must be given")
		}
		m.Ny = utl.Imax(m.Ny, 1)
		m.Nparts = utl.Imax(m.Nparts, 1)
		if m.Dx <= 0 {
			m.Dx = 1
		}
		if m.Dy <= 0 {
			m.Dy = 1
		}
		if m.Dz <= 0 {
			m.Dz = 1
		}
		if m.Nparts > m.Nx {
			return chk.Err("number of partitions (%d) must not exceed nx (%d)", m.Nparts, m.Nx)
		}
		o.Msh = NewCartesianMesh(m.Nx, m.Ny, m.Dx, m.Dy, m.Dz, m.Nparts)
	}

	// discretization
	if o.Disc.HistorySize < 2 {
		return chk.Err("history size must be at least 2. %d is invalid", o.Disc.HistorySize)
	}
	o.Disc.Nthreads = utl.Imax(o.Disc.Nthreads, 1)

	// solver
	if o.Solver.Tol <= 0 {
		return chk.Err("Newton tolerance must be positive. %g is invalid", o.Solver.Tol)
	}
	if o.Solver.MaxIt <= o.Solver.TargetIt+3 {
		return chk.Err("maximum number of Newton iterations (%d) must be greater than the target number plus 3 (%d)", o.Solver.MaxIt, o.Solver.TargetIt+3)
	}

	// time control
	c := &o.Control
	if c.Tf < 1e-14 {
		c.Tf = 1
	}
	if c.Dt < 1e-14 {
		c.Dt = c.Tf
	}
	if c.DtMax < 1e-14 {
		c.DtMax = c.Tf
	}
	if c.DtOut < 1e-14 {
		c.DtOut = c.Tf
	}
	c.Dt = utl.Min(c.Dt, c.DtMax)
	if c.MaxDiv < 0 {
		return chk.Err("maximum number of time step divisions must not be negative. %d is invalid", c.MaxDiv)
	}

	// modules
	if o.Modules.Foam.On {
		tp := o.Modules.Foam.TransportPhase
		if tp != "gas" && tp != "water" {
			return chk.Err("foam transport phase must be \"gas\" or \"water\". %q is invalid", tp)
		}
		if len(o.Modules.Foam.Regions) < 1 {
			return chk.Err("foam module requires the data of at least one saturation region")
		}
		for i, r := range o.Modules.Foam.Regions {
			if len(r.AdsConc) != len(r.AdsVals) {
				return chk.Err("adsorption table of foam region %d must have the same number of concentrations and values", i)
			}
		}
		for i, m := range o.Modules.Foam.Mobility {
			if len(m.Conc) != len(m.Mult) {
				return chk.Err("mobility table of foam pvt region %d must have the same number of concentrations and multipliers", i)
			}
		}
	}
	ncells := len(o.Msh.Cells)
	for _, w := range o.Modules.Wells {
		if w.Cell < 0 || w.Cell >= ncells {
			return chk.Err("well %q is connected to cell %d which is not in the mesh", w.Name, w.Cell)
		}
		if w.PI < 0 {
			return chk.Err("productivity index of well %q must not be negative. %g is invalid", w.Name, w.PI)
		}
	}
	return
}

// GetInfo returns formatted information
func (o *Simulation) GetInfo(w goio.Writer) (err error) {
	b, err := json.MarshalIndent(o, "", "  ")
	if err != nil {
		return
	}
	_, err = w.Write(b)
	return
}

// extra settings //////////////////////////////////////////////////////////////////////////////////

// SetDefault set defaults values
func (o *SolverData) SetDefault() {
	o.Type = "imp"
	o.Tol = 1e-5
	o.TargetIt = 8
	o.MaxIt = 12
	o.FdEps = 1e-8
}

// SetDefault set defaults values
func (o *TimeControl) SetDefault() {
	o.MaxDiv = 10
}
