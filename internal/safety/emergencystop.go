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
)

// EmergencyStop is a process-wide latch. Once Trigger has been called, new
// experiments must refuse to start; already-running experiments are not
// killed by this component itself — callers observe it at their own await
// points and unwind. Reset is an operator action, never automatic.
type EmergencyStop struct {
	mu      sync.Mutex
	set     bool
	closeCh chan struct{}
}

// NewEmergencyStop returns a latch in the not-set state.
func NewEmergencyStop() *EmergencyStop {
	return &EmergencyStop{closeCh: make(chan struct{})}
}

// Trigger sets the latch. Idempotent.
func (e *EmergencyStop) Trigger() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.set {
		return
	}
	e.set = true
	close(e.closeCh)
}

// Reset clears the latch. Must only be called by an operator, never
// automatically by the runner.
func (e *EmergencyStop) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.set {
		return
	}
	e.set = false
	e.closeCh = make(chan struct{})
}

// IsSet reports whether the latch is currently triggered.
func (e *EmergencyStop) IsSet() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.set
}

// Wait blocks until Trigger has been called, the context is done, or the
// latch is already set (in which case Wait returns immediately).
func (e *EmergencyStop) Wait(ctx context.Context) error {
	e.mu.Lock()
	ch := e.closeCh
	e.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
