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

// Package experiment implements the experiment lifecycle state machine and
// its orchestration (ExperimentRunner, C6), the hard-engineering core that
// sequences safety guardrails, snapshot capture, health checking, actuation,
// and rollback.
package experiment

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/chaosduck/chaosduck/internal/actuator"
	"github.com/chaosduck/chaosduck/internal/probe"
)

// Status is an experiment's top-level lifecycle state.
type Status string

const (
	StatusPending          Status = "pending"
	StatusRunning          Status = "running"
	StatusCompleted        Status = "completed"
	StatusFailed           Status = "failed"
	StatusRolledBack       Status = "rolled_back"
	StatusEmergencyStopped Status = "emergency_stopped"
)

// Phase is the sub-state of a running experiment.
type Phase string

const (
	PhaseSteadyState Phase = "steady_state"
	PhaseHypothesis  Phase = "hypothesis"
	PhaseInject      Phase = "inject"
	PhaseObserve     Phase = "observe"
	PhaseRollback    Phase = "rollback"
)

// SafetyConfig is the experiment's safety envelope. Validate clamps and
// defaults every field.
type SafetyConfig struct {
	TimeoutSeconds               int     `json:"timeout_seconds"`
	RequireConfirmation          bool    `json:"require_confirmation"`
	MaxBlastRadius               float64 `json:"max_blast_radius"`
	DryRun                       bool    `json:"dry_run"`
	NamespacePattern             string  `json:"namespace_pattern,omitempty"`
	HealthCheckInterval          int     `json:"health_check_interval"`
	HealthCheckFailureThreshold  int     `json:"health_check_failure_threshold"`
}

// Validate clamps fields to their documented ranges and applies defaults to
// zero values.
func (s *SafetyConfig) Validate() {
	if s.TimeoutSeconds == 0 {
		s.TimeoutSeconds = 30
	}
	s.TimeoutSeconds = clamp(s.TimeoutSeconds, 1, 120)

	if s.MaxBlastRadius == 0 {
		s.MaxBlastRadius = 0.3
	}
	s.MaxBlastRadius = clampFloat(s.MaxBlastRadius, 0.0, 1.0)

	if s.HealthCheckInterval == 0 {
		s.HealthCheckInterval = 10
	}
	s.HealthCheckInterval = clamp(s.HealthCheckInterval, 1, 60)

	if s.HealthCheckFailureThreshold == 0 {
		s.HealthCheckFailureThreshold = 3
	}
	s.HealthCheckFailureThreshold = clamp(s.HealthCheckFailureThreshold, 1, 10)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Config is an experiment's configuration: what to do, to whom, and under
// what safety envelope.
type Config struct {
	Name       string                `json:"name"`
	ChaosType  actuator.ChaosType    `json:"chaos_type"`
	Target     actuator.TargetSelector `json:"target"`
	Parameters map[string]any        `json:"parameters,omitempty"`
	Safety     SafetyConfig          `json:"safety"`
	Probes     []probe.Descriptor    `json:"probes,omitempty"`
}

// Experiment is the persisted record of one run.
type Experiment struct {
	ID              string             `json:"id"`
	Config          Config             `json:"config"`
	Status          Status             `json:"status"`
	Phase           Phase              `json:"phase"`
	StartedAt       *time.Time         `json:"started_at,omitempty"`
	CompletedAt     *time.Time         `json:"completed_at,omitempty"`
	SteadyState     *actuator.SteadyState `json:"steady_state,omitempty"`
	Hypothesis      string             `json:"hypothesis,omitempty"`
	InjectionResult map[string]any     `json:"injection_result,omitempty"`
	Observations    *actuator.SteadyState `json:"observations,omitempty"`
	RollbackResult  []RollbackRecord   `json:"rollback_result,omitempty"`
	Error           string             `json:"error,omitempty"`
	AIInsights      map[string]any     `json:"ai_insights,omitempty"`
}

// RollbackRecord mirrors safety.ActionResult for the persisted record,
// decoupling experiment's wire shape from the safety package's internal
// type.
type RollbackRecord struct {
	Description string         `json:"description"`
	Status      string         `json:"status"`
	Result      map[string]any `json:"result,omitempty"`
	Error       string         `json:"error,omitempty"`
}

// NewID allocates an 8-character lowercase-hex experiment identifier.
func NewID() (string, error) {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
