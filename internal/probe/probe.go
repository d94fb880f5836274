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

// Package probe implements the health-probe contract used by the
// background health-check loop and by steady-state/hypothesis checks: an
// external check that reports pass/fail and never raises.
package probe

import (
	"context"
	"time"
)

// Mode is when during an experiment a probe is evaluated.
type Mode string

const (
	ModeStartOfTest Mode = "sot"
	ModeEndOfTest   Mode = "eot"
	ModeContinuous  Mode = "continuous"
	ModeOnChaos     Mode = "on_chaos"
)

// Kind identifies which concrete probe implementation to construct.
type Kind string

const (
	KindHTTP       Kind = "http"
	KindCmd        Kind = "cmd"
	KindK8s        Kind = "k8s"
	KindPrometheus Kind = "prometheus"
)

// Descriptor is the wire/config shape of a probe: a tagged variant with
// per-kind properties. Parse-time validation (New in factory.go, which
// dispatches to NewHTTPProbe, NewCmdProbe, NewK8sProbe or
// NewPrometheusProbe) ensures Properties matches the declared Type.
type Descriptor struct {
	Name       string         `json:"name"`
	Type       Kind           `json:"type"`
	Mode       Mode           `json:"mode"`
	Properties map[string]any `json:"properties"`
}

// Result is the outcome of one probe evaluation.
type Result struct {
	Name       string    `json:"name"`
	Passed     bool      `json:"passed"`
	Error      string    `json:"error,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	ExecutedAt time.Time `json:"executed_at"`
}

// Probe is the uniform capability every probe kind exposes. SafeExecute
// must never panic or return an error to its caller; failures are encoded
// in Result.
type Probe interface {
	Name() string
	Kind() Kind
	Mode() Mode
	SafeExecute(ctx context.Context) Result
}

// safeExecute is a shared helper each concrete probe's SafeExecute calls:
// it runs the kind-specific execute function and recovers both errors and
// panics into a Result, matching the "safe_execute never raises" contract.
func safeExecute(ctx context.Context, name string, execute func(context.Context) (bool, string, error)) (res Result) {
	res.Name = name
	defer func() {
		res.ExecutedAt = time.Now()
		if p := recover(); p != nil {
			res.Passed = false
			res.Error = panicMessage(p)
		}
	}()

	passed, detail, err := execute(ctx)
	if err != nil {
		res.Passed = false
		res.Error = err.Error()
		return res
	}
	res.Passed = passed
	res.Detail = detail
	return res
}

func panicMessage(p any) string {
	if err, ok := p.(error); ok {
		return err.Error()
	}
	return "panic: probe execution failed unexpectedly"
}
