/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package metrics defines the Prometheus instrumentation surface for the
// experiment engine and its HTTP adapter, registered against a dedicated
// registry rather than the global default so the process can expose exactly
// the metrics this package defines.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// ExperimentsTotal counts completed experiment runs by chaos type and
	// terminal status.
	ExperimentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "experiments_total",
			Help: "Total number of chaos experiments executed, by chaos type and terminal status",
		},
		[]string{"chaos_type", "status"},
	)

	// ProbeResultsTotal counts probe evaluations by probe type and outcome.
	ProbeResultsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "probe_results",
			Help: "Total number of probe evaluations, by probe type and pass/fail outcome",
		},
		[]string{"probe_type", "passed"},
	)

	// RollbackTotal counts individual rollback action outcomes.
	RollbackTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rollback_total",
			Help: "Total number of rollback actions executed, by outcome status",
		},
		[]string{"status"},
	)

	// HTTPRequestsTotal counts HTTP API requests.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests served, by method, normalized path, and status code",
		},
		[]string{"method", "path", "status_code"},
	)

	// ExperimentDurationSeconds tracks end-to-end experiment run duration.
	ExperimentDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "experiment_duration_seconds",
			Help:    "Duration of a chaos experiment run from allocation to terminus",
			Buckets: []float64{1, 5, 10, 30, 60, 120},
		},
		[]string{"chaos_type"},
	)

	// HTTPRequestDurationSeconds tracks HTTP API request latency.
	HTTPRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests served by the chaosduck API",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		},
		[]string{"method", "path"},
	)

	// ActiveExperiments gauges the number of experiments currently running.
	ActiveExperiments = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_experiments",
			Help: "Number of currently running chaos experiments",
		},
	)
)

// Registry is a dedicated Prometheus registry (rather than the global
// default) so /metrics exposes exactly this metric set.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(
		ExperimentsTotal,
		ProbeResultsTotal,
		RollbackTotal,
		HTTPRequestsTotal,
		ExperimentDurationSeconds,
		HTTPRequestDurationSeconds,
		ActiveExperiments,
	)
}

// boolLabel renders a bool as the "true"/"false" label value Prometheus
// convention expects.
func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// RecordExperiment records a terminal experiment outcome.
func RecordExperiment(chaosType, status string, durationSeconds float64) {
	ExperimentsTotal.WithLabelValues(chaosType, status).Inc()
	ExperimentDurationSeconds.WithLabelValues(chaosType).Observe(durationSeconds)
}

// RecordProbeResult records one probe evaluation.
func RecordProbeResult(probeType string, passed bool) {
	ProbeResultsTotal.WithLabelValues(probeType, boolLabel(passed)).Inc()
}

// RecordRollback records one rollback action outcome ("success" or
// "failed").
func RecordRollback(status string) {
	RollbackTotal.WithLabelValues(status).Inc()
}

// RecordHTTPRequest records one served HTTP request with its normalized
// path label.
func RecordHTTPRequest(method, path, statusCode string, durationSeconds float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, statusCode).Inc()
	HTTPRequestDurationSeconds.WithLabelValues(method, path).Observe(durationSeconds)
}
