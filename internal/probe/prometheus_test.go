package probe

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusProbe_ComparatorsAgainstThreshold(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"result":[{"value":[0,"0.95"]}]}}`))
	}))
	defer srv.Close()

	p, err := NewPrometheusProbe(Descriptor{
		Name: "error-rate",
		Type: KindPrometheus,
		Mode: ModeContinuous,
		Properties: map[string]any{
			"endpoint":   srv.URL,
			"query":      "up",
			"comparator": ">=",
			"threshold":  float64(0.9),
		},
	})
	require.NoError(t, err)

	res := p.SafeExecute(t.Context())
	assert.True(t, res.Passed)
}

func TestPrometheusProbe_EmptyResultFailsWithoutError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"result":[]}}`))
	}))
	defer srv.Close()

	p, err := NewPrometheusProbe(Descriptor{
		Name:       "no-data",
		Properties: map[string]any{"endpoint": srv.URL, "query": "up"},
	})
	require.NoError(t, err)

	res := p.SafeExecute(t.Context())
	assert.False(t, res.Passed)
	assert.Empty(t, res.Error)
	assert.Contains(t, res.Detail, "no results")
}

func TestNewPrometheusProbe_MissingQueryErrors(t *testing.T) {
	_, err := NewPrometheusProbe(Descriptor{Name: "bad", Properties: map[string]any{"endpoint": "http://x"}})
	assert.Error(t, err)
}
