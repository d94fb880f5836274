package probe

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPProbe_PassesOnExpectedStatusAndBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("status: ok"))
	}))
	defer srv.Close()

	p, err := NewHTTPProbe(Descriptor{
		Name: "api-health",
		Type: KindHTTP,
		Mode: ModeEndOfTest,
		Properties: map[string]any{
			"url":             srv.URL,
			"expected_status": float64(200),
			"body_pattern":    "status: \\w+",
		},
	})
	require.NoError(t, err)

	res := p.SafeExecute(t.Context())
	assert.True(t, res.Passed)
	assert.Empty(t, res.Error)
}

func TestHTTPProbe_FailsOnUnexpectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p, err := NewHTTPProbe(Descriptor{
		Name:       "api-health",
		Type:       KindHTTP,
		Mode:       ModeOnChaos,
		Properties: map[string]any{"url": srv.URL, "expected_status": float64(200)},
	})
	require.NoError(t, err)

	res := p.SafeExecute(t.Context())
	assert.False(t, res.Passed)
}

func TestHTTPProbe_UnreachableNeverPanicsAndReportsFailure(t *testing.T) {
	p, err := NewHTTPProbe(Descriptor{
		Name:       "unreachable",
		Type:       KindHTTP,
		Mode:       ModeContinuous,
		Properties: map[string]any{"url": "http://127.0.0.1:1", "timeout_seconds": float64(1)},
	})
	require.NoError(t, err)

	res := p.SafeExecute(t.Context())
	assert.False(t, res.Passed)
	assert.NotEmpty(t, res.Error)
}

func TestNewHTTPProbe_MissingURLErrors(t *testing.T) {
	_, err := NewHTTPProbe(Descriptor{Name: "bad", Properties: map[string]any{}})
	assert.Error(t, err)
}
