// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package metrics implements a Prometheus collector observing the solver: Newton iterations,
// linear solves, assembly durations and time steps
package metrics

import (
	"net/http"
	"time"

	"github.com/cpmech/gosl/chk"
	"github.com/jakobtorben/opm-models/fvm"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector bundles the solver metrics. It implements fvm.Observer
type Collector struct {
	gatherer prometheus.Gatherer

	NewtonIterations prometheus.Counter
	NewtonSolves     *prometheus.CounterVec   // by result: converged or failed
	NewtonSteps      prometheus.Histogram     // iterations per solve
	Deflection       prometheus.Gauge         // norm of the last Newton update
	LinearSolves     *prometheus.CounterVec   // by result: converged or failed
	AssemblyDuration *prometheus.HistogramVec // by kind: residual, storage or linearize
	TimeSteps        *prometheus.CounterVec   // by result: accepted or rejected
	TimeStepSize     prometheus.Gauge         // size of the last accepted time step
	SimulationTime   prometheus.Gauge         // time at the end of the last accepted time step
}

// NewCollector registers the solver metrics against reg, defaulting to the global Prometheus
// registry when nil. Metrics already registered by another collector are shared
func NewCollector(reg prometheus.Registerer) (o *Collector, err error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	o = &Collector{gatherer: prometheus.DefaultGatherer}
	if g, ok := reg.(prometheus.Gatherer); ok {
		o.gatherer = g
	}

	o.NewtonIterations, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fvm_newton_iterations_total",
		Help: "Total number of Newton iterations.",
	}), "fvm_newton_iterations_total")
	if err != nil {
		return nil, err
	}
	o.NewtonSolves, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fvm_newton_solves_total",
		Help: "Total number of Newton solves, labeled by result.",
	}, []string{"result"}), "fvm_newton_solves_total")
	if err != nil {
		return nil, err
	}
	o.NewtonSteps, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "fvm_newton_steps",
		Help:    "Number of Newton iterations per solve.",
		Buckets: prometheus.LinearBuckets(1, 1, 16),
	}), "fvm_newton_steps")
	if err != nil {
		return nil, err
	}
	o.Deflection, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "fvm_newton_deflection",
		Help: "Norm of the last Newton update.",
	}), "fvm_newton_deflection")
	if err != nil {
		return nil, err
	}
	o.LinearSolves, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fvm_linear_solves_total",
		Help: "Total number of linear solves, labeled by result.",
	}, []string{"result"}), "fvm_linear_solves_total")
	if err != nil {
		return nil, err
	}
	o.AssemblyDuration, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fvm_assembly_duration_seconds",
		Help:    "Duration of global assemblies in seconds, labeled by kind.",
		Buckets: prometheus.ExponentialBuckets(1e-5, 4, 12),
	}, []string{"kind"}), "fvm_assembly_duration_seconds")
	if err != nil {
		return nil, err
	}
	o.TimeSteps, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fvm_time_steps_total",
		Help: "Total number of time step attempts, labeled by result.",
	}, []string{"result"}), "fvm_time_steps_total")
	if err != nil {
		return nil, err
	}
	o.TimeStepSize, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "fvm_time_step_size",
		Help: "Size of the last accepted time step.",
	}), "fvm_time_step_size")
	if err != nil {
		return nil, err
	}
	o.SimulationTime, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "fvm_simulation_time",
		Help: "Simulated time at the end of the last accepted time step.",
	}), "fvm_simulation_time")
	if err != nil {
		return nil, err
	}
	return
}

// Handler returns the HTTP handler exposing the metrics of the registry
func (o *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(o.gatherer, promhttp.HandlerOpts{})
}

// observer methods ////////////////////////////////////////////////////////////////////////////////

var _ fvm.Observer = (*Collector)(nil)

func (o *Collector) NewtonIteration(step int, deflection, physicalness float64) {
	o.NewtonIterations.Inc()
	o.Deflection.Set(deflection)
}

func (o *Collector) NewtonFinished(converged bool, steps int) {
	o.NewtonSolves.WithLabelValues(result(converged, "converged", "failed")).Inc()
	o.NewtonSteps.Observe(float64(steps))
}

func (o *Collector) LinearSolve(converged bool) {
	o.LinearSolves.WithLabelValues(result(converged, "converged", "failed")).Inc()
}

func (o *Collector) Assembly(kind string, elapsed time.Duration) {
	o.AssemblyDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

func (o *Collector) TimeStep(t, dt float64, accepted bool) {
	o.TimeSteps.WithLabelValues(result(accepted, "accepted", "rejected")).Inc()
	if accepted {
		o.TimeStepSize.Set(dt)
		o.SimulationTime.Set(t + dt)
	}
}

// auxiliary ///////////////////////////////////////////////////////////////////////////////////////

func result(ok bool, yes, no string) string {
	if ok {
		return yes
	}
	return no
}

// register registers c, or returns the collector already registered with the same
// description if it has the same type
func register[T prometheus.Collector](reg prometheus.Registerer, c T, name string) (T, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
			var zero T
			return zero, chk.Err("collector %s already registered with incompatible type", name)
		}
		var zero T
		return zero, chk.Err("cannot register collector %s:\n%v", name, err)
	}
	return c, nil
}
