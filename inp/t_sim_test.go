// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package inp

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/cpmech/gosl/chk"
)

func writeFile(tst *testing.T, dir, fn, content string) string {
	fp := filepath.Join(dir, fn)
	if err := os.WriteFile(fp, []byte(content), 0644); err != nil {
		tst.Fatalf("cannot write %q:\n%v", fp, err)
	}
	return fp
}

func Test_sim01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("sim01. json file with generated mesh")

	dir := tst.TempDir()
	fp := writeFile(tst, dir, "col01.sim", `{
  "data"    : { "desc" : "column", "dirout" : "`+dir+`", "encoder" : "json" },
  "mesh"    : { "nx" : 4, "dx" : 0.5, "nparts" : 2 },
  "model"   : { "name" : "tracer", "prms" : [ {"n":"phi", "v":0.3} ] },
  "disc"    : { "enablecache" : true, "nthreads" : 3 },
  "solver"  : { "showr" : true, "writecnv" : true },
  "control" : { "tf" : 10, "dt" : 0.1 }
}`)

	sim, err := ReadSim(fp, "a", false)
	if err != nil {
		tst.Errorf("ReadSim failed:\n%v", err)
		return
	}
	chk.String(tst, sim.Key, "col01-a")
	chk.String(tst, sim.EncType, "json")
	chk.String(tst, sim.Model.Name, "tracer")
	chk.Float64(tst, "phi", 1e-15, sim.Model.Prms.GetValue("phi", 0), 0.3)
	chk.Float64(tst, "perm", 1e-15, sim.Model.Prms.GetValue("perm", 1), 1)
	chk.Int(tst, "historysize", sim.Disc.HistorySize, 2)
	chk.Int(tst, "nthreads", sim.Disc.Nthreads, 3)
	chk.Int(tst, "targetit", sim.Solver.TargetIt, 8)
	chk.Int(tst, "maxit", sim.Solver.MaxIt, 12)
	chk.Float64(tst, "tol", 1e-20, sim.Solver.Tol, 1e-5)
	chk.Float64(tst, "dtmax", 1e-15, sim.Control.DtMax, 10)
	chk.Float64(tst, "dtout", 1e-15, sim.Control.DtOut, 10)
	chk.Int(tst, "maxdiv", sim.Control.MaxDiv, 10)
	chk.Int(tst, "ncells", len(sim.Msh.Cells), 4)
	chk.Int(tst, "nparts", sim.Msh.Nparts, 2)
	chk.Float64(tst, "totvol", 1e-15, sim.Msh.TotalVol, 2)
	if !sim.Disc.EnableCache || sim.Disc.EnableHints {
		tst.Errorf("cache flags are incorrect\n")
	}
	if !sim.Solver.ShowR || !sim.Solver.WriteCnv {
		tst.Errorf("solver flags are incorrect\n")
	}

	// formatted data can be read back
	var buf bytes.Buffer
	if err = sim.GetInfo(&buf); err != nil {
		tst.Errorf("GetInfo failed:\n%v", err)
		return
	}
	var back Simulation
	if err = json.Unmarshal(buf.Bytes(), &back); err != nil {
		tst.Errorf("cannot unmarshal formatted data:\n%v", err)
		return
	}
	chk.Int(tst, "nthreads (info)", back.Disc.Nthreads, 3)
	chk.Float64(tst, "tol (info)", 1e-20, back.Solver.Tol, 1e-5)
	chk.String(tst, back.Data.Desc, "column")
}

func Test_sim02(tst *testing.T) {

	//verbose()
	chk.PrintTitle("sim02. yaml file with modules")

	dir := tst.TempDir()
	fp := writeFile(tst, dir, "foam01.yaml", `
data:
  dirout: `+dir+`
mesh:
  nx: 3
model:
  name: tracer
solver:
  tol: 1.0e-7
  targetit: 4
  maxit: 10
modules:
  foam:
    on: true
    transportphase: water
    regions:
      - rockdensity: 2650
        adsconc: [0, 1]
        adsvals: [0, 0.001]
  wells:
    - name: prod
      cell: 2
      pi: 0.5
      bhp: 1
`)

	sim, err := ReadSim(fp, "", false)
	if err != nil {
		tst.Errorf("ReadSim failed:\n%v", err)
		return
	}
	chk.String(tst, sim.Key, "foam01")
	chk.String(tst, sim.EncType, "gob")
	chk.Float64(tst, "tol", 1e-20, sim.Solver.Tol, 1e-7)
	chk.Int(tst, "maxit", sim.Solver.MaxIt, 10)
	chk.String(tst, sim.Modules.Foam.TransportPhase, "water")
	chk.Float64(tst, "rho", 1e-15, sim.Modules.Foam.Regions[0].RockDensity, 2650)
	chk.Int(tst, "nwells", len(sim.Modules.Wells), 1)
	chk.Int(tst, "well cell", sim.Modules.Wells[0].Cell, 2)
}

func Test_sim03(tst *testing.T) {

	//verbose()
	chk.PrintTitle("sim03. invalid input")

	dir := tst.TempDir()
	bad := []string{
		`{ "mesh" : { "nx" : 0 } }`,
		`{ "mesh" : { "nx" : 2 }, "solver" : { "targetit" : 8, "maxit" : 11 } }`,
		`{ "mesh" : { "nx" : 2 }, "disc" : { "historysize" : 1 } }`,
		`{ "mesh" : { "nx" : 2 }, "modules" : { "wells" : [ { "cell" : 5 } ] } }`,
		`{ "mesh" : { "nx" : 2 }, "modules" : { "foam" : { "on" : true } } }`,
		`{ "mesh" : { "nx" : 2 }`,
	}
	for i, content := range bad {
		fp := writeFile(tst, dir, "bad.sim", content)
		_, err := ReadSim(fp, "", false)
		if err == nil {
			tst.Errorf("ReadSim should have failed with input %d\n", i)
		}
	}

	// missing files are reported as errors
	if _, err := ReadSim(filepath.Join(dir, "missing.sim"), "", false); err == nil {
		tst.Errorf("ReadSim should have failed with missing file\n")
	}
	if _, err := ReadSim(writeFile(tst, dir, "nomesh.sim", `{ "mesh" : { "file" : "missing.msh" } }`), "", false); err == nil {
		tst.Errorf("ReadSim should have failed with missing mesh file\n")
	}
}

func Test_msh01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("msh01. mesh file")

	dir := tst.TempDir()
	writeFile(tst, dir, "two.msh", `{
  "cells" : [
    { "id":0, "tag":-1, "vol":2, "neighs":[1], "trans":[3], "bry":[ {"tag":-10, "area":1, "trans":6} ] },
    { "id":1, "tag":-2, "part":1, "region":1, "vol":4, "neighs":[0], "trans":[3] }
  ]
}`)
	msh, err := ReadMsh(dir, "two.msh")
	if err != nil {
		tst.Errorf("ReadMsh failed:\n%v", err)
		return
	}
	chk.Int(tst, "nparts", msh.Nparts, 2)
	chk.Float64(tst, "totvol", 1e-15, msh.TotalVol, 6)
	chk.Int(tst, "bry cells", len(msh.BryTag2cells[-10]), 1)
	chk.Int(tst, "tag cells", len(msh.CellTag2cells[-2]), 1)
	chk.Int(tst, "region", msh.Cells[1].Region, 1)

	// asymmetric connection
	writeFile(tst, dir, "asym.msh", `{
  "cells" : [
    { "id":0, "vol":1, "neighs":[1], "trans":[3] },
    { "id":1, "vol":1, "neighs":[0], "trans":[2] }
  ]
}`)
	_, err = ReadMsh(dir, "asym.msh")
	if err == nil {
		tst.Errorf("ReadMsh should have failed\n")
	}
	if _, err = ReadMsh(dir, "missing.msh"); err == nil {
		tst.Errorf("ReadMsh should have failed with missing file\n")
	}
}

func Test_msh02(tst *testing.T) {

	//verbose()
	chk.PrintTitle("msh02. Cartesian mesh")

	msh := NewCartesianMesh(5, 3, 2, 1, 1, 2)
	chk.Int(tst, "ncells", len(msh.Cells), 15)
	chk.Int(tst, "nparts", msh.Nparts, 2)
	chk.Int(tst, "xmin cells", len(msh.BryTag2cells[TagXmin]), 3)
	chk.Int(tst, "ymax cells", len(msh.BryTag2cells[TagYmax]), 5)
	chk.Float64(tst, "totvol", 1e-14, msh.TotalVol, 30)
	chk.Ints(tst, "neighs of 6", msh.Cells[6].Neighs, []int{5, 7, 1, 11})
	chk.Array(tst, "trans of 6", 1e-15, msh.Cells[6].Trans, []float64{0.5, 0.5, 2, 2})
}

func verbose() {
	chk.Verbose = true
}
