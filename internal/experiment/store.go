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

package experiment

import (
	"context"

	"github.com/chaosduck/chaosduck/internal/probe"
)

// Store is the persistence-facing repository the Runner reads and writes
// experiment records through. Implemented by internal/storage.
type Store interface {
	Create(ctx context.Context, exp *Experiment) error
	Update(ctx context.Context, exp *Experiment) error
	Get(ctx context.Context, id string) (*Experiment, error)
	List(ctx context.Context) ([]*Experiment, error)
}

// ProbeResultSink persists individual probe evaluations to the
// probe_results table. Implemented by internal/storage; the Runner treats
// a nil sink as "do not persist probe results".
type ProbeResultSink interface {
	SaveProbeResult(ctx context.Context, experimentID string, d probe.Descriptor, res probe.Result) error
}
