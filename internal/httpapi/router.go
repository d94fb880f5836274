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

// Package httpapi exposes the experiment engine over HTTP: the
// chaos/experiment CRUD surface, emergency-stop trigger, topology readout,
// and the Prometheus metrics endpoint.
package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-logr/logr"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/chaosduck/chaosduck/internal/analysis"
	"github.com/chaosduck/chaosduck/internal/experiment"
	"github.com/chaosduck/chaosduck/internal/metrics"
	"github.com/chaosduck/chaosduck/internal/safety"
	"github.com/chaosduck/chaosduck/internal/topology"
)

// AnalysisSink persists a completed analysis verdict. Implemented by
// internal/storage's AnalysisRepo.
type AnalysisSink interface {
	Save(ctx context.Context, experimentID string, res analysis.Result) error
}

// Server wires the Runner, EmergencyStop, and topology Discoverer into an
// http.Handler, mirroring backend/main.py's router composition.
type Server struct {
	Runner        *experiment.Runner
	EmergencyStop *safety.EmergencyStop
	Topology      *topology.Discoverer
	Analysis      *analysis.Client // nil: analysis endpoint is disabled
	AnalysisStore AnalysisSink     // nil: verdicts are not persisted
	Log           logr.Logger

	router *mux.Router
}

// NewServer constructs the routed handler. Call Handler() to obtain the
// http.Handler to serve. analysisClient/analysisStore may be nil, which
// disables POST /api/analysis/experiment/{id}.
func NewServer(runner *experiment.Runner, stop *safety.EmergencyStop, disco *topology.Discoverer, analysisClient *analysis.Client, analysisStore AnalysisSink, log logr.Logger) *Server {
	s := &Server{Runner: runner, EmergencyStop: stop, Topology: disco, Analysis: analysisClient, AnalysisStore: analysisStore, Log: log}
	s.router = mux.NewRouter()
	s.routes()
	return s
}

// Handler returns the fully wired handler, with request metrics middleware
// applied.
func (s *Server) Handler() http.Handler {
	return s.withMetrics(s.router)
}

func (s *Server) routes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet)
	s.router.HandleFunc("/emergency-stop", s.handleEmergencyStop).Methods(http.MethodPost)

	s.router.HandleFunc("/api/chaos/experiments", s.handleCreateExperiment).Methods(http.MethodPost)
	s.router.HandleFunc("/api/chaos/experiments", s.handleListExperiments).Methods(http.MethodGet)
	s.router.HandleFunc("/api/chaos/experiments/{id}", s.handleGetExperiment).Methods(http.MethodGet)
	s.router.HandleFunc("/api/chaos/experiments/{id}/rollback", s.handleRollbackExperiment).Methods(http.MethodPost)
	s.router.HandleFunc("/api/chaos/dry-run", s.handleDryRun).Methods(http.MethodPost)

	s.router.HandleFunc("/api/topology/k8s", s.handleTopologyK8s).Methods(http.MethodGet)
	s.router.HandleFunc("/api/topology/aws", s.handleTopologyAws).Methods(http.MethodGet)
	s.router.HandleFunc("/api/topology/combined", s.handleTopologyCombined).Methods(http.MethodGet)

	s.router.HandleFunc("/api/analysis/experiment/{id}", s.handleAnalyzeExperiment).Methods(http.MethodPost)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "healthy",
		"emergency_stop": s.EmergencyStop.IsSet(),
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
}

func (s *Server) handleEmergencyStop(w http.ResponseWriter, r *http.Request) {
	s.EmergencyStop.Trigger()
	writeJSON(w, http.StatusOK, map[string]any{"status": "emergency_stop_triggered"})
}

// withMetrics wraps next with request counting/latency instrumentation,
// normalizing path labels the way backend/observability/middleware.py does:
// 8-hex-char segments and "dry-*" segments collapse to "{id}".
func (s *Server) withMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		duration := time.Since(start).Seconds()

		path := normalizePath(r.URL.Path)
		metrics.RecordHTTPRequest(r.Method, path, strconv.Itoa(sw.status), duration)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
