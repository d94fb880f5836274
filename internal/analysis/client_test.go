package analysis

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_AnalyzeExperiment_DecodesSuccessResponse(t *testing.T) {
	var received analyzeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		assert.Equal(t, "/analyze", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(Result{
			Severity:   "SEV2",
			RootCause:  "pod churn exceeded readiness budget",
			Confidence: 0.8,
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	result, err := c.AnalyzeExperiment(t.Context(),
		map[string]any{"id": "exp-1"},
		map[string]any{"pods_total": float64(3)},
		map[string]any{"pods_total": float64(1)},
	)

	require.NoError(t, err)
	assert.Equal(t, "SEV2", result.Severity)
	assert.Equal(t, "exp-1", received.ExperimentData["id"])
	assert.False(t, result.CreatedAt.IsZero())
}

func TestClient_AnalyzeExperiment_NonOKStatusReturnsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream unavailable"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.AnalyzeExperiment(t.Context(), nil, nil, nil)
	assert.ErrorContains(t, err, "502")
}

func TestClient_AnalyzeExperiment_UnreachableServiceErrors(t *testing.T) {
	c := NewClient("http://127.0.0.1:1")
	_, err := c.AnalyzeExperiment(t.Context(), nil, nil, nil)
	assert.Error(t, err)
}

func TestClient_AnalyzeExperiment_MalformedResponseErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.AnalyzeExperiment(t.Context(), nil, nil, nil)
	assert.Error(t, err)
}
