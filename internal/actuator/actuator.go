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

// Package actuator implements the infrastructure drivers that perform
// chaos mutations against Kubernetes and AWS, and the compensating actions
// that undo them.
package actuator

import (
	"context"

	"github.com/chaosduck/chaosduck/internal/safety"
)

// ChaosType identifies a supported kind of chaos injection.
type ChaosType string

const (
	ChaosPodDelete       ChaosType = "pod_delete"
	ChaosNetworkLatency  ChaosType = "network_latency"
	ChaosNetworkLoss     ChaosType = "network_loss"
	ChaosCPUStress       ChaosType = "cpu_stress"
	ChaosMemoryStress    ChaosType = "memory_stress"
	ChaosEC2Stop         ChaosType = "ec2_stop"
	ChaosRDSFailover     ChaosType = "rds_failover"
	ChaosRouteBlackhole  ChaosType = "route_blackhole"
)

// TargetSelector names the infrastructure an experiment targets.
type TargetSelector struct {
	Namespace  string            `json:"namespace,omitempty"`
	Labels     map[string]string `json:"labels,omitempty"`
	ResourceID string            `json:"resource_id,omitempty"`
}

// ActuateRequest is the input to Actuate: the chaos type, its target, and
// free-form parameters plus the safety envelope that must be enforced
// internally.
type ActuateRequest struct {
	ChaosType  ChaosType
	Target     TargetSelector
	Parameters map[string]any
	Safety     SafetyEnvelope
}

// SafetyEnvelope carries the subset of SafetyConfig an actuator must itself
// enforce: emergency-stop and blast-radius preconditions, and dry-run mode.
type SafetyEnvelope struct {
	DryRun            bool
	RequireConfirm    bool
	NamespacePattern  string
	MaxBlastRadius    float64
}

// SteadyState is a quantitative baseline of system health, re-read after
// injection to produce observations.
type SteadyState struct {
	PodsTotal        int     `json:"pods_total"`
	PodsRunning      int     `json:"pods_running"`
	PodsHealthyRatio float64 `json:"pods_healthy_ratio"`
}

// Actuator performs one chaos mutation and returns a compensating action.
// On dry_run, Actuate must perform no mutation and return a nil compensate.
// The compensate closure, when invoked, must tolerate concurrent drift
// (e.g. starting an already-running instance should succeed or no-op).
type Actuator interface {
	// Actuate performs the mutation named by req.ChaosType and returns a
	// human-readable description alongside the result and compensate.
	Actuate(ctx context.Context, emergencyStop *safety.EmergencyStop, req ActuateRequest) (result map[string]any, compensate safety.CompensateFunc, description string, err error)

	// GetSteadyState returns a quantitative baseline for namespace. Used
	// for k8s-backed chaos types; aws-backed actuators may return a
	// zero-value SteadyState.
	GetSteadyState(ctx context.Context, namespace string) (SteadyState, error)

	// Supports reports whether this actuator knows how to actuate t.
	Supports(t ChaosType) bool
}

// Dispatch selects the actuator among candidates that supports t.
func Dispatch(candidates []Actuator, t ChaosType) (Actuator, bool) {
	for _, a := range candidates {
		if a.Supports(t) {
			return a, true
		}
	}
	return nil, false
}
