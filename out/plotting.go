// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package out

import (
	"math"
	"path/filepath"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"github.com/jakobtorben/opm-models/fvm"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// figure size
var (
	FigWidth  = 6 * vg.Inch
	FigHeight = 4 * vg.Inch
)

// PlotResiduals plots log10 of the Newton deflections of each time step, skipping the first
// skip steps, and saves <dirout>/<fnkey>_resid.png
//  Note: the summary must have been recorded with statistics on
func PlotResiduals(dirout, fnkey string, sum *fvm.Summary, skip int) (fn string, err error) {
	if len(sum.Resids) == 0 {
		return "", chk.Err("summary has no deflections; statistics must be on")
	}
	p := plot.New()
	p.Title.Text = fnkey + ": convergence"
	p.X.Label.Text = "iteration"
	p.Y.Label.Text = "log10(deflection)"
	for i, resid := range sum.Resids {
		if i < skip {
			continue
		}
		pts := make(plotter.XYs, 0, len(resid))
		for k, r := range resid {
			if r > 0 {
				pts = append(pts, plotter.XY{X: float64(k + 1), Y: math.Log10(r)})
			}
		}
		if len(pts) == 0 {
			continue
		}
		l, err := plotter.NewLine(pts)
		if err != nil {
			return "", chk.Err("cannot plot deflections of step %d:\n%v", i, err)
		}
		l.Color = plotutil.Color(i)
		p.Add(l)
	}
	return save(p, dirout, fnkey+"_resid.png")
}

// PlotIterations plots the number of accepted time steps versus the number of Newton
// iterations needed and saves <dirout>/<fnkey>_iters.png
func PlotIterations(dirout, fnkey string, sum *fvm.Summary) (fn string, err error) {
	if len(sum.Iters) == 0 {
		return "", chk.Err("summary has no time steps")
	}
	nmax := 1
	for _, n := range sum.Iters {
		nmax = max(nmax, n)
	}
	counts := make(plotter.Values, nmax+1)
	names := make([]string, nmax+1)
	for i := range names {
		names[i] = io.Sf("%d", i)
	}
	for _, n := range sum.Iters {
		counts[n]++
	}
	bars, err := plotter.NewBarChart(counts, vg.Points(12))
	if err != nil {
		return "", chk.Err("cannot plot iterations:\n%v", err)
	}
	bars.Color = plotutil.Color(0)
	p := plot.New()
	p.Title.Text = fnkey + ": Newton iterations"
	p.X.Label.Text = "number of iterations"
	p.Y.Label.Text = "counts"
	p.Add(bars)
	p.NominalX(names...)
	return save(p, dirout, fnkey+"_iters.png")
}

// PlotTimeSteps plots the size of the accepted time steps versus time and saves
// <dirout>/<fnkey>_dt.png
func PlotTimeSteps(dirout, fnkey string, sum *fvm.Summary) (fn string, err error) {
	if len(sum.Times) == 0 {
		return "", chk.Err("summary has no time steps")
	}
	pts := make(plotter.XYs, len(sum.Times))
	for i, t := range sum.Times {
		pts[i].X = t
		pts[i].Y = sum.Dts[i]
	}
	p := plot.New()
	p.Title.Text = fnkey + ": time steps"
	p.X.Label.Text = "t"
	p.Y.Label.Text = "Δt"
	err = plotutil.AddLinePoints(p, "Δt", pts)
	if err != nil {
		return "", chk.Err("cannot plot time steps:\n%v", err)
	}
	return save(p, dirout, fnkey+"_dt.png")
}

// PlotSeries plots field key at grid dof over the loaded times and saves
// <dirout>/<fnkey>_<key>_<dof>.png
func PlotSeries(dirout, fnkey, key string, dof int) (fn string, err error) {
	vals, err := Series(key, dof)
	if err != nil {
		return
	}
	pts := make(plotter.XYs, len(vals))
	for i, v := range vals {
		pts[i].X = Times[i]
		pts[i].Y = v
	}
	p := plot.New()
	p.Title.Text = io.Sf("%s: %s at dof %d", fnkey, key, dof)
	p.X.Label.Text = "t"
	p.Y.Label.Text = key
	err = plotutil.AddLinePoints(p, key, pts)
	if err != nil {
		return "", chk.Err("cannot plot series:\n%v", err)
	}
	return save(p, dirout, io.Sf("%s_%s_%d.png", fnkey, key, dof))
}

// PlotProfiles plots field key over the grid dofs at each loaded time and saves
// <dirout>/<fnkey>_<key>_profiles.png
func PlotProfiles(dirout, fnkey, key string) (fn string, err error) {
	if len(Fields) == 0 {
		return "", chk.Err("LoadResults must be called before PlotProfiles")
	}
	var lines []interface{}
	for i := range Fields {
		vals, err := Profile(key, i)
		if err != nil {
			return "", err
		}
		pts := make(plotter.XYs, len(vals))
		for j, v := range vals {
			pts[j].X = float64(j)
			pts[j].Y = v
		}
		lines = append(lines, io.Sf("t=%g", Times[i]), pts)
	}
	p := plot.New()
	p.Title.Text = io.Sf("%s: %s", fnkey, key)
	p.X.Label.Text = "dof"
	p.Y.Label.Text = key
	err = plotutil.AddLinePoints(p, lines...)
	if err != nil {
		return "", chk.Err("cannot plot profiles:\n%v", err)
	}
	return save(p, dirout, io.Sf("%s_%s_profiles.png", fnkey, key))
}

// save saves the figure
func save(p *plot.Plot, dirout, fn string) (string, error) {
	fn = filepath.Join(dirout, fn)
	if err := p.Save(FigWidth, FigHeight, fn); err != nil {
		return "", chk.Err("cannot save figure %q:\n%v", fn, err)
	}
	io.Pfblue2("file <%s> written\n", fn)
	return fn, nil
}
