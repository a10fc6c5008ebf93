// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCollectorRecordsNewton(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)

	c.NewtonIteration(1, 0.1, 1)
	c.NewtonIteration(2, 0.001, 1)
	c.NewtonFinished(true, 2)
	c.NewtonIteration(1, 3, 0.5)
	c.NewtonFinished(false, 1)

	require.Equal(t, 3.0, testutil.ToFloat64(c.NewtonIterations))
	require.Equal(t, 3.0, testutil.ToFloat64(c.Deflection))
	require.Equal(t, 1.0, testutil.ToFloat64(c.NewtonSolves.WithLabelValues("converged")))
	require.Equal(t, 1.0, testutil.ToFloat64(c.NewtonSolves.WithLabelValues("failed")))
	require.Equal(t, 1, testutil.CollectAndCount(c.NewtonSteps))
}

func TestCollectorRecordsTimeSteps(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)

	c.TimeStep(0, 0.5, false)
	c.TimeStep(0, 0.25, true)
	c.TimeStep(0.25, 0.5, true)
	c.LinearSolve(true)
	c.LinearSolve(false)
	c.Assembly("residual", 2*time.Millisecond)
	c.Assembly("linearize", 5*time.Millisecond)

	require.Equal(t, 2.0, testutil.ToFloat64(c.TimeSteps.WithLabelValues("accepted")))
	require.Equal(t, 1.0, testutil.ToFloat64(c.TimeSteps.WithLabelValues("rejected")))
	require.Equal(t, 0.5, testutil.ToFloat64(c.TimeStepSize))
	require.Equal(t, 0.75, testutil.ToFloat64(c.SimulationTime))
	require.Equal(t, 1.0, testutil.ToFloat64(c.LinearSolves.WithLabelValues("failed")))
	require.Equal(t, 2, testutil.CollectAndCount(c.AssemblyDuration))
}

func TestCollectorSharesRegisteredMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c1, err := NewCollector(reg)
	require.NoError(t, err)
	c2, err := NewCollector(reg)
	require.NoError(t, err)

	c1.NewtonIteration(1, 1, 1)
	c2.NewtonIteration(1, 1, 1)
	require.Equal(t, 2.0, testutil.ToFloat64(c1.NewtonIterations))

	// incompatible type under the same name
	reg2 := prometheus.NewRegistry()
	reg2.MustRegister(prometheus.NewHistogram(prometheus.HistogramOpts{
		Name: "fvm_newton_iterations_total",
		Help: "Total number of Newton iterations.",
	}))
	_, err = NewCollector(reg2)
	require.Error(t, err)
}

func TestHandlerExposesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)
	c.NewtonIteration(1, 1e-3, 1)
	c.TimeStep(0, 0.1, true)
	c.Assembly("storage", time.Millisecond)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	c.Handler().ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	body := rr.Body.String()
	for _, name := range []string{
		"fvm_newton_iterations_total",
		"fvm_newton_deflection",
		"fvm_time_steps_total",
		"fvm_time_step_size",
		"fvm_assembly_duration_seconds",
	} {
		require.True(t, strings.Contains(body, name), "expected %q in /metrics output", name)
	}
}
