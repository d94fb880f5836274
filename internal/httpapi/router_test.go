package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chaosduck/chaosduck/internal/actuator"
	"github.com/chaosduck/chaosduck/internal/analysis"
	"github.com/chaosduck/chaosduck/internal/experiment"
	"github.com/chaosduck/chaosduck/internal/safety"
	"github.com/chaosduck/chaosduck/internal/topology"
)

type fakeActuator struct {
	supports   actuator.ChaosType
	result     map[string]any
	compensate safety.CompensateFunc
	err        error
}

func (f *fakeActuator) Actuate(ctx context.Context, stop *safety.EmergencyStop, req actuator.ActuateRequest) (map[string]any, safety.CompensateFunc, string, error) {
	if stop.IsSet() {
		return nil, nil, "", &safety.EmergencyStopActiveError{}
	}
	return f.result, f.compensate, "fake action", f.err
}
func (f *fakeActuator) GetSteadyState(ctx context.Context, namespace string) (actuator.SteadyState, error) {
	return actuator.SteadyState{}, nil
}
func (f *fakeActuator) Supports(t actuator.ChaosType) bool { return t == f.supports }

type memStore struct {
	mu   sync.Mutex
	byID map[string]*experiment.Experiment
}

func newMemStore() *memStore { return &memStore{byID: make(map[string]*experiment.Experiment)} }

func (m *memStore) Create(ctx context.Context, exp *experiment.Experiment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *exp
	m.byID[exp.ID] = &cp
	return nil
}
func (m *memStore) Update(ctx context.Context, exp *experiment.Experiment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *exp
	m.byID[exp.ID] = &cp
	return nil
}
func (m *memStore) Get(ctx context.Context, id string) (*experiment.Experiment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	exp, ok := m.byID[id]
	if !ok {
		return nil, assert.AnError
	}
	return exp, nil
}
func (m *memStore) List(ctx context.Context) ([]*experiment.Experiment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*experiment.Experiment
	for _, exp := range m.byID {
		out = append(out, exp)
	}
	return out, nil
}

func newTestServer(t *testing.T, act actuator.Actuator, store experiment.Store) *Server {
	t.Helper()
	runner := newRunner(act, store)
	return NewServer(runner, runner.EmergencyStop, &topology.Discoverer{}, nil, nil, logr.Discard())
}

// newRunner builds a minimal *experiment.Runner wired to act and store.
func newRunner(act actuator.Actuator, store experiment.Store) *experiment.Runner {
	return &experiment.Runner{
		EmergencyStop: safety.NewEmergencyStop(),
		Rollback:      safety.NewRollbackStack(),
		Snapshots:     safety.NewSnapshotStore(nil, nil, nil, logr.Discard()),
		Actuators:     []actuator.Actuator{act},
		Store:         store,
		Log:           logr.Discard(),
	}
}

func doRequest(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestServer_Health(t *testing.T) {
	s := newTestServer(t, &fakeActuator{supports: actuator.ChaosPodDelete}, newMemStore())
	w := doRequest(t, s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServer_CreateExperiment_ReturnsCompletedRecord(t *testing.T) {
	act := &fakeActuator{supports: actuator.ChaosPodDelete, result: map[string]any{"deleted_pods": []string{"web-1"}}}
	s := newTestServer(t, act, newMemStore())

	w := doRequest(t, s, http.MethodPost, "/api/chaos/experiments", experiment.Config{ChaosType: actuator.ChaosPodDelete})

	require.Equal(t, http.StatusOK, w.Code)
	var exp experiment.Experiment
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &exp))
	assert.Equal(t, experiment.StatusCompleted, exp.Status)
}

func TestServer_CreateExperiment_UnknownChaosTypeReturns400(t *testing.T) {
	act := &fakeActuator{supports: actuator.ChaosPodDelete}
	s := newTestServer(t, act, newMemStore())

	w := doRequest(t, s, http.MethodPost, "/api/chaos/experiments", experiment.Config{ChaosType: "bogus"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServer_CreateExperiment_EmergencyStopReturns503(t *testing.T) {
	act := &fakeActuator{supports: actuator.ChaosPodDelete}
	store := newMemStore()
	runner := newRunner(act, store)
	runner.EmergencyStop.Trigger()
	s := NewServer(runner, runner.EmergencyStop, &topology.Discoverer{}, nil, nil, logr.Discard())

	w := doRequest(t, s, http.MethodPost, "/api/chaos/experiments", experiment.Config{ChaosType: actuator.ChaosPodDelete})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestServer_GetExperiment_NotFoundReturns404(t *testing.T) {
	s := newTestServer(t, &fakeActuator{supports: actuator.ChaosPodDelete}, newMemStore())
	w := doRequest(t, s, http.MethodGet, "/api/chaos/experiments/ghost", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_EmergencyStopEndpoint_TriggersStop(t *testing.T) {
	act := &fakeActuator{supports: actuator.ChaosPodDelete}
	store := newMemStore()
	runner := newRunner(act, store)
	s := NewServer(runner, runner.EmergencyStop, &topology.Discoverer{}, nil, nil, logr.Discard())

	w := doRequest(t, s, http.MethodPost, "/emergency-stop", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, runner.EmergencyStop.IsSet())
}

func TestServer_AnalyzeExperiment_DisabledReturns503(t *testing.T) {
	s := newTestServer(t, &fakeActuator{supports: actuator.ChaosPodDelete}, newMemStore())
	w := doRequest(t, s, http.MethodPost, "/api/analysis/experiment/exp-1", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

type fakeAnalysisSink struct{ saved bool }

func (f *fakeAnalysisSink) Save(ctx context.Context, experimentID string, res analysis.Result) error {
	f.saved = true
	return nil
}

func TestServer_AnalyzeExperiment_MissingExperimentReturns404(t *testing.T) {
	act := &fakeActuator{supports: actuator.ChaosPodDelete}
	store := newMemStore()
	runner := newRunner(act, store)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(analysis.Result{Severity: "SEV1"})
	}))
	defer srv.Close()

	s := NewServer(runner, runner.EmergencyStop, &topology.Discoverer{}, analysis.NewClient(srv.URL), &fakeAnalysisSink{}, logr.Discard())

	w := doRequest(t, s, http.MethodPost, "/api/analysis/experiment/ghost", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_AnalyzeExperiment_PersistsResultOnSuccess(t *testing.T) {
	act := &fakeActuator{supports: actuator.ChaosPodDelete, result: map[string]any{"deleted_pods": []string{"web-1"}}}
	store := newMemStore()
	runner := newRunner(act, store)

	exp, err := runner.Run(context.Background(), experiment.Config{ChaosType: actuator.ChaosPodDelete})
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(analysis.Result{Severity: "SEV3", RootCause: "transient"})
	}))
	defer srv.Close()

	sink := &fakeAnalysisSink{}
	s := NewServer(runner, runner.EmergencyStop, &topology.Discoverer{}, analysis.NewClient(srv.URL), sink, logr.Discard())

	w := doRequest(t, s, http.MethodPost, "/api/analysis/experiment/"+exp.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, sink.saved)
}

func TestServer_TopologyK8s_NoDiscovererReturns500(t *testing.T) {
	s := newTestServer(t, &fakeActuator{supports: actuator.ChaosPodDelete}, newMemStore())
	w := doRequest(t, s, http.MethodGet, "/api/topology/k8s", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
