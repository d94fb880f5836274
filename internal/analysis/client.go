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

// Package analysis implements a thin HTTP client to the external AI
// analysis microservice. It never calls an LLM provider itself: the engine
// stays scoped to orchestration and safety, only forwarding a completed
// experiment's data and relaying the structured verdict back.
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// RecommendedAction is one suggested follow-up from an analysis.
type RecommendedAction struct {
	Action      string `json:"action"`
	Priority    string `json:"priority"`
	Description string `json:"description,omitempty"`
}

// Result is the structured verdict returned by the analysis service for one
// experiment, persisted to the analysis_results table.
type Result struct {
	Severity        string              `json:"severity"` // SEV1..SEV4
	RootCause       string              `json:"root_cause"`
	Confidence      float64             `json:"confidence"`
	Recommendations []RecommendedAction `json:"recommendations,omitempty"`
	ResilienceScore *float64            `json:"resilience_score,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
}

type analyzeRequest struct {
	ExperimentData map[string]any `json:"experiment_data"`
	SteadyState    map[string]any `json:"steady_state"`
	Observations   map[string]any `json:"observations"`
}

// Client calls an external analysis service reachable at BaseURL
// (e.g. "http://ai-service:8080").
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// NewClient constructs a Client with a bounded request timeout.
func NewClient(baseURL string) *Client {
	return &Client{BaseURL: baseURL, HTTP: &http.Client{Timeout: 30 * time.Second}}
}

// AnalyzeExperiment posts a completed experiment's data to the service's
// /analyze endpoint and returns the structured verdict.
func (c *Client) AnalyzeExperiment(ctx context.Context, experimentData, steadyState, observations map[string]any) (Result, error) {
	body, err := json.Marshal(analyzeRequest{
		ExperimentData: experimentData,
		SteadyState:    steadyState,
		Observations:   observations,
	})
	if err != nil {
		return Result{}, fmt.Errorf("marshaling analyze request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/analyze", bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("constructing analyze request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("calling analysis service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Result{}, fmt.Errorf("analysis service returned %d: %s", resp.StatusCode, payload)
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Result{}, fmt.Errorf("decoding analysis response: %w", err)
	}
	result.CreatedAt = time.Now()
	return result, nil
}
