package safety

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-logr/logr/testr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chaosduck/chaosduck/internal/probe"
)

type scriptedProbe struct {
	name    string
	results []bool
	idx     int
	mu      sync.Mutex
}

func (p *scriptedProbe) Name() string     { return p.name }
func (p *scriptedProbe) Kind() probe.Kind { return probe.KindHTTP }
func (p *scriptedProbe) Mode() probe.Mode { return probe.ModeContinuous }

func (p *scriptedProbe) SafeExecute(ctx context.Context) probe.Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	passed := true
	if len(p.results) > 0 {
		passed = p.results[p.idx%len(p.results)]
	}
	p.idx++
	return probe.Result{Name: p.name, Passed: passed, ExecutedAt: time.Now()}
}

func TestHealthCheckLoop_AlternatingNeverTriggersWithThresholdTwo(t *testing.T) {
	p := &scriptedProbe{name: "alt", results: []bool{true, false, true, false, true, false, true, false}}

	var fired int32
	var mu sync.Mutex
	loop := &HealthCheckLoop{
		ID:               "exp-1",
		Probes:           []probe.Probe{p},
		Interval:         5 * time.Millisecond,
		FailureThreshold: 2,
		Log:              testr.New(t),
	}
	loop.OnFailure = func() {
		mu.Lock()
		fired++
		mu.Unlock()
	}

	ctx, cancel := context.WithCancel(context.Background())
	loop.Start(ctx)
	time.Sleep(80 * time.Millisecond)
	cancel()
	loop.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, int32(0), fired)
}

func TestHealthCheckLoop_ConsecutiveFailuresTriggerOnFailure(t *testing.T) {
	p := &scriptedProbe{name: "always-fail", results: []bool{false}}

	fired := make(chan struct{}, 1)
	loop := &HealthCheckLoop{
		ID:               "exp-1",
		Probes:           []probe.Probe{p},
		Interval:         5 * time.Millisecond,
		FailureThreshold: 2,
		Log:              testr.New(t),
	}
	loop.OnFailure = func() {
		select {
		case fired <- struct{}{}:
		default:
		}
	}

	ctx := context.Background()
	loop.Start(ctx)
	defer loop.Stop()

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("on_failure did not fire within deadline")
	}
}

func TestHealthCheckLoop_NoProbesAlwaysPasses(t *testing.T) {
	var fired bool
	loop := &HealthCheckLoop{
		ID:               "exp-1",
		Probes:           nil,
		Interval:         5 * time.Millisecond,
		FailureThreshold: 1,
		Log:              testr.New(t),
	}
	loop.OnFailure = func() { fired = true }

	ctx, cancel := context.WithCancel(context.Background())
	loop.Start(ctx)
	time.Sleep(30 * time.Millisecond)
	cancel()
	loop.Stop()

	assert.False(t, fired)
}

func TestHealthCheckLoop_StartIsIdempotent(t *testing.T) {
	loop := &HealthCheckLoop{
		ID:               "exp-1",
		Interval:         5 * time.Millisecond,
		FailureThreshold: 1,
		Log:              testr.New(t),
	}
	loop.OnFailure = func() {}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	loop.Start(ctx)
	loop.Start(ctx)
	require.True(t, loop.started)
	loop.Stop()
}
