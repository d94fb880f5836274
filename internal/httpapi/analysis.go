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
	"net/http"

	"github.com/gorilla/mux"
)

// handleAnalyzeExperiment mirrors backend/routers/analysis.py's
// analyze_experiment: loads the experiment record, forwards its steady
// state and observations to the AI analysis service, and relays the
// structured verdict. A nil Analysis client means the service was never
// configured (CHAOSDUCK_ANALYSIS_URL unset).
func (s *Server) handleAnalyzeExperiment(w http.ResponseWriter, r *http.Request) {
	if s.Analysis == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"detail": "analysis service is not configured"})
		return
	}

	id := mux.Vars(r)["id"]
	exp, err := s.Runner.Store.Get(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "experiment not found"})
		return
	}

	experimentData, steadyState, observations := toAnalysisInputs(exp)

	result, err := s.Analysis.AnalyzeExperiment(r.Context(), experimentData, steadyState, observations)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{"detail": err.Error()})
		return
	}

	if s.AnalysisStore != nil {
		if err := s.AnalysisStore.Save(r.Context(), id, result); err != nil {
			s.Log.Info("failed to persist analysis result", "id", id, "error", err.Error())
		}
	}

	writeJSON(w, http.StatusOK, result)
}

// toAnalysisInputs re-marshals the experiment record into the map[string]any
// shape analysis.Client's request body expects, mirroring the original's
// exp.model_dump().
func toAnalysisInputs(exp any) (experimentData, steadyState, observations map[string]any) {
	payload, err := json.Marshal(exp)
	if err != nil {
		return map[string]any{}, map[string]any{}, map[string]any{}
	}

	var decoded map[string]any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return map[string]any{}, map[string]any{}, map[string]any{}
	}

	experimentData = decoded
	if ss, ok := decoded["steady_state"].(map[string]any); ok {
		steadyState = ss
	} else {
		steadyState = map[string]any{}
	}
	if obs, ok := decoded["observations"].(map[string]any); ok {
		observations = obs
	} else {
		observations = map[string]any{}
	}
	return experimentData, steadyState, observations
}
