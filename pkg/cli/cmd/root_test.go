package cmd

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRootCmd_Name(t *testing.T) {
	if rootCmd.Use != "chaosduck" {
		t.Fatalf("expected root command use to be 'chaosduck', got %s", rootCmd.Use)
	}
}

func TestRootCmd_HasSubcommands(t *testing.T) {
	expected := []string{"run", "status", "rollback", "stop", "topology", "analyze", "health"}
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, name := range expected {
		if !names[name] {
			t.Errorf("expected subcommand %q not found", name)
		}
	}
}

func TestRootCmd_URLFlagDefault(t *testing.T) {
	flag := rootCmd.PersistentFlags().Lookup("url")
	if flag == nil {
		t.Fatal("expected --url persistent flag")
	}
	if flag.DefValue != "http://localhost:8000" {
		t.Fatalf("expected default url http://localhost:8000, got %s", flag.DefValue)
	}
}

func withTestServer(t *testing.T, handler http.HandlerFunc) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	orig := baseURL
	t.Cleanup(func() { baseURL = orig })
	baseURL = srv.URL
}

func TestApiGet_DecodesJSONBody(t *testing.T) {
	withTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"healthy"}`))
	})

	result, err := apiGet("/health")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m, ok := result.(map[string]any)
	if !ok || m["status"] != "healthy" {
		t.Fatalf("unexpected result: %#v", result)
	}
}

func TestApiGet_UnreachableBackendErrors(t *testing.T) {
	orig := baseURL
	t.Cleanup(func() { baseURL = orig })
	baseURL = "http://127.0.0.1:1"

	if _, err := apiGet("/health"); err == nil {
		t.Fatal("expected error for unreachable backend")
	}
}

func TestApiPost_SendsJSONBodyAndDecodesResponse(t *testing.T) {
	var receivedBody string
	withTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		receivedBody = string(data)
		w.Write([]byte(`{"id":"exp-1"}`))
	})

	result, err := apiPost("/api/chaos/experiments", map[string]any{"name": "pod-chaos"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(receivedBody, "pod-chaos") {
		t.Fatalf("expected request body to contain name, got %s", receivedBody)
	}
	m := result.(map[string]any)
	if m["id"] != "exp-1" {
		t.Fatalf("unexpected result: %#v", result)
	}
}

func TestApiPost_NilBodyOmitsPayload(t *testing.T) {
	withTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})

	if _, err := apiPost("/emergency-stop", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestApiGet_EmptyBodyDoesNotError(t *testing.T) {
	withTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	if _, err := apiGet("/health"); err != nil {
		t.Fatalf("unexpected error on empty body: %v", err)
	}
}
