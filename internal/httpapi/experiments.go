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

package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/chaosduck/chaosduck/internal/experiment"
	"github.com/chaosduck/chaosduck/internal/safety"
)

func (s *Server) handleCreateExperiment(w http.ResponseWriter, r *http.Request) {
	var cfg experiment.Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid request body: " + err.Error()})
		return
	}

	exp, err := s.Runner.Run(r.Context(), cfg)
	if exp == nil {
		writeRunError(w, err)
		return
	}
	// A failed run still yields a persisted record (status=failed); 400/503
	// are reserved for preconditions that stop an experiment from starting
	// at all.
	writeJSON(w, http.StatusOK, exp)
}

func (s *Server) handleDryRun(w http.ResponseWriter, r *http.Request) {
	var cfg experiment.Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid request body: " + err.Error()})
		return
	}
	cfg.Safety.DryRun = true

	exp, err := s.Runner.Run(r.Context(), cfg)
	if exp == nil {
		writeRunError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, exp)
}

func (s *Server) handleListExperiments(w http.ResponseWriter, r *http.Request) {
	experiments, err := s.Runner.Store.List(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, experiments)
}

func (s *Server) handleGetExperiment(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	exp, err := s.Runner.Store.Get(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "experiment not found"})
		return
	}
	writeJSON(w, http.StatusOK, exp)
}

func (s *Server) handleRollbackExperiment(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, err := s.Runner.Store.Get(r.Context(), id); err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "experiment not found"})
		return
	}

	results := s.Runner.RollbackExperiment(id)
	writeJSON(w, http.StatusOK, map[string]any{
		"experiment_id":    id,
		"rollback_results": results,
	})
}

// writeRunError maps a Runner.Run error to an HTTP status: 503 when the
// emergency stop is active, 400 for an unrecognized chaos_type, 500
// otherwise.
func writeRunError(w http.ResponseWriter, err error) {
	var stopErr *safety.EmergencyStopActiveError
	if errors.As(err, &stopErr) {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"detail": err.Error()})
		return
	}
	if strings.Contains(err.Error(), "unknown chaos_type") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": err.Error()})
		return
	}
	writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": err.Error()})
}
