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

package safety

import (
	"context"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"github.com/chaosduck/chaosduck/internal/probe"
)

// OnFailureFunc is invoked once the consecutive-failure counter reaches the
// configured threshold. It defaults to RollbackStack.Rollback(id).
type OnFailureFunc func()

// HealthCheckLoop polls a fixed set of probes at a fixed interval for one
// experiment, triggering OnFailure after consecutive failures reach
// FailureThreshold. Probe evaluations within a cycle never overlap; cycles
// do not overlap; cancellation between cycles is immediate, mid-cycle
// cancellation is deferred until the current sweep completes.
type HealthCheckLoop struct {
	ID               string
	Probes           []probe.Probe
	Interval         time.Duration
	FailureThreshold int
	OnFailure        OnFailureFunc
	Log              logr.Logger

	mu       sync.Mutex
	started  bool
	stopCh   chan struct{}
	doneCh   chan struct{}
	failures int
}

// NewHealthCheckLoop constructs a loop bound to a RollbackStack's default
// OnFailure (RollbackStack.Rollback(id)) unless overridden afterward.
func NewHealthCheckLoop(id string, probes []probe.Probe, interval time.Duration, threshold int, stack *RollbackStack, log logr.Logger) *HealthCheckLoop {
	loop := &HealthCheckLoop{
		ID:               id,
		Probes:           probes,
		Interval:         interval,
		FailureThreshold: threshold,
		Log:              log,
	}
	loop.OnFailure = func() { stack.Rollback(id) }
	return loop
}

// Start spawns the background polling goroutine. Idempotent: calling Start
// twice on an already-started loop is a no-op.
func (h *HealthCheckLoop) Start(ctx context.Context) {
	h.mu.Lock()
	if h.started {
		h.mu.Unlock()
		return
	}
	h.started = true
	h.stopCh = make(chan struct{})
	h.doneCh = make(chan struct{})
	h.mu.Unlock()

	go h.run(ctx)
}

// Stop signals the loop to exit and waits for it, bounded by Interval+2s
// after which the wait simply gives up (the goroutine still exits on its
// own once it notices the stop signal between cycles).
func (h *HealthCheckLoop) Stop() {
	h.mu.Lock()
	if !h.started {
		h.mu.Unlock()
		return
	}
	stopCh := h.stopCh
	doneCh := h.doneCh
	h.mu.Unlock()

	select {
	case <-stopCh:
	default:
		close(stopCh)
	}

	select {
	case <-doneCh:
	case <-time.After(h.Interval + 2*time.Second):
		h.Log.Info("health check loop did not stop within deadline", "id", h.ID)
	}
}

func (h *HealthCheckLoop) run(ctx context.Context) {
	defer close(h.doneCh)

	for {
		select {
		case <-h.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		h.runCycle(ctx)

		if h.shouldStop() {
			return
		}

		select {
		case <-time.After(h.Interval):
		case <-h.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// runCycle evaluates all probes sequentially and updates the failure
// counter. Unexpected panics from a probe's SafeExecute (which should never
// happen, since SafeExecute itself recovers) are treated defensively as a
// failed cycle rather than being allowed to silence the loop.
func (h *HealthCheckLoop) runCycle(ctx context.Context) {
	allPassed := func() (passed bool) {
		defer func() {
			if r := recover(); r != nil {
				passed = false
			}
		}()
		ok := true
		for _, p := range h.Probes {
			res := p.SafeExecute(ctx)
			if !res.Passed {
				ok = false
			}
		}
		return ok
	}()

	h.mu.Lock()
	if allPassed {
		h.failures = 0
	} else {
		h.failures++
		h.Log.Info("health check cycle failed", "id", h.ID, "consecutive_failures", h.failures, "threshold", h.FailureThreshold)
	}
	trip := h.failures >= h.FailureThreshold
	h.mu.Unlock()

	if trip && h.OnFailure != nil {
		h.OnFailure()
		h.mu.Lock()
		select {
		case <-h.stopCh:
		default:
			close(h.stopCh)
		}
		h.mu.Unlock()
	}
}

func (h *HealthCheckLoop) shouldStop() bool {
	select {
	case <-h.stopCh:
		return true
	default:
		return false
	}
}
