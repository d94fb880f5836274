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
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/chaosduck/chaosduck/internal/actuator"
	"github.com/chaosduck/chaosduck/internal/metrics"
	"github.com/chaosduck/chaosduck/internal/probe"
	"github.com/chaosduck/chaosduck/internal/safety"
)

// Runner orchestrates the full experiment lifecycle: precondition →
// allocate/persist → steady state → pre-snapshot → optional health loop →
// inject → observe → terminus → cleanup.
type Runner struct {
	EmergencyStop *safety.EmergencyStop
	Rollback      *safety.RollbackStack
	Snapshots     *safety.SnapshotStore
	Actuators     []actuator.Actuator
	Store         Store
	ProbeResults  ProbeResultSink // may be nil: probe persistence becomes a no-op
	K8sClient     client.Client   // used to construct k8s-kind probes; may be nil
	Log           logr.Logger
}

// DryRunIDPrefix marks experiment ids allocated for the dry-run endpoint,
// which forces safety.dry_run and does not persist state.
const DryRunIDPrefix = "dry-"

// Run executes one experiment end-to-end and returns the terminal record.
func (r *Runner) Run(ctx context.Context, cfg Config) (*Experiment, error) {
	cfg.Safety.Validate()

	// Step 1: precondition.
	if r.EmergencyStop.IsSet() {
		return nil, &safety.EmergencyStopActiveError{}
	}
	if _, ok := actuator.Dispatch(r.Actuators, cfg.ChaosType); !ok {
		return nil, fmt.Errorf("unknown chaos_type: %s", cfg.ChaosType)
	}

	// Step 2: allocate + persist.
	id, err := NewID()
	if err != nil {
		return nil, fmt.Errorf("allocating experiment id: %w", err)
	}
	if cfg.Safety.DryRun {
		id = DryRunIDPrefix + id
	}

	now := time.Now()
	exp := &Experiment{
		ID:        id,
		Config:    cfg,
		Status:    StatusRunning,
		Phase:     PhaseSteadyState,
		StartedAt: &now,
	}

	persist := !cfg.Safety.DryRun
	if persist {
		if err := r.Store.Create(ctx, exp); err != nil {
			return nil, fmt.Errorf("persisting experiment record: %w", err)
		}
	}

	metrics.ActiveExperiments.Inc()
	defer metrics.ActiveExperiments.Dec()

	var loop *safety.HealthCheckLoop
	defer func() {
		if loop != nil {
			loop.Stop()
		}
	}()

	runErr := r.runBody(ctx, exp, &loop)

	exp.Phase = PhaseRollback
	elapsed := time.Since(now).Seconds()

	if runErr != nil {
		exp.Status = StatusFailed
		exp.Error = runErr.Error()
		completed := time.Now()
		exp.CompletedAt = &completed

		results := r.Rollback.Rollback(exp.ID)
		exp.RollbackResult = toRollbackRecords(results)
		for _, res := range results {
			metrics.RecordRollback(res.Status)
		}

		metrics.RecordExperiment(string(cfg.ChaosType), string(StatusFailed), elapsed)
		if persist {
			_ = r.Store.Update(ctx, exp)
		}
		return exp, runErr
	}

	exp.Status = StatusCompleted
	completed := time.Now()
	exp.CompletedAt = &completed
	metrics.RecordExperiment(string(cfg.ChaosType), string(StatusCompleted), elapsed)

	if persist {
		if err := r.Store.Update(ctx, exp); err != nil {
			r.Log.Info("failed to persist terminal experiment state", "id", exp.ID, "error", err.Error())
		}
	}
	return exp, nil
}

func (r *Runner) runBody(ctx context.Context, exp *Experiment, loop **safety.HealthCheckLoop) error {
	cfg := exp.Config

	act, ok := actuator.Dispatch(r.Actuators, cfg.ChaosType)
	if !ok {
		return fmt.Errorf("unknown chaos_type: %s", cfg.ChaosType)
	}

	// Step 3: steady state.
	exp.Phase = PhaseSteadyState
	if err := r.runProbes(ctx, exp.ID, cfg.Probes, probe.ModeStartOfTest); err != nil {
		r.Log.Info("start-of-test probe sweep degraded", "id", exp.ID, "error", err.Error())
	}
	if cfg.Target.Namespace != "" {
		steady, err := act.GetSteadyState(ctx, cfg.Target.Namespace)
		if err != nil {
			r.Log.Info("steady state capture degraded", "id", exp.ID, "error", err.Error())
		} else {
			exp.SteadyState = &steady
		}
	}

	// Step 4: pre-snapshot.
	if cfg.Target.Namespace != "" {
		r.Snapshots.CaptureK8s(ctx, exp.ID, cfg.Target.Namespace, cfg.Target.Labels)
	} else if cfg.Target.ResourceID != "" {
		resourceType := awsResourceTypeFor(cfg.ChaosType)
		if resourceType != "" {
			r.Snapshots.CaptureAws(ctx, exp.ID, resourceType, cfg.Target.ResourceID)
		}
	}

	// Step 5: optional health loop, for continuous-mode probes.
	continuous, err := r.buildProbes(cfg.Probes, probe.ModeContinuous)
	if err != nil {
		return fmt.Errorf("constructing continuous probes: %w", err)
	}
	if len(continuous) > 0 {
		*loop = safety.NewHealthCheckLoop(exp.ID, continuous, time.Duration(cfg.Safety.HealthCheckInterval)*time.Second, cfg.Safety.HealthCheckFailureThreshold, r.Rollback, r.Log)
		(*loop).Start(ctx)
	}

	// Step 6: inject.
	exp.Phase = PhaseInject
	req := actuator.ActuateRequest{
		ChaosType:  cfg.ChaosType,
		Target:     cfg.Target,
		Parameters: cfg.Parameters,
		Safety: actuator.SafetyEnvelope{
			DryRun:           cfg.Safety.DryRun,
			RequireConfirm:   cfg.Safety.RequireConfirmation,
			NamespacePattern: cfg.Safety.NamespacePattern,
			MaxBlastRadius:   cfg.Safety.MaxBlastRadius,
		},
	}

	var result map[string]any
	var compensate safety.CompensateFunc
	var description string
	timeoutErr := safety.WithTimeout(ctx, string(cfg.ChaosType), cfg.Safety.TimeoutSeconds, func(tctx context.Context) error {
		var actErr error
		result, compensate, description, actErr = act.Actuate(tctx, r.EmergencyStop, req)
		return actErr
	})
	if timeoutErr != nil {
		return timeoutErr
	}

	exp.InjectionResult = result
	if compensate != nil {
		r.Rollback.Push(exp.ID, compensate, description)
	}

	// Step 7: observe.
	exp.Phase = PhaseObserve
	if err := r.runProbes(ctx, exp.ID, cfg.Probes, probe.ModeOnChaos); err != nil {
		r.Log.Info("on_chaos probe sweep degraded", "id", exp.ID, "error", err.Error())
	}
	if cfg.Target.Namespace != "" {
		observed, err := act.GetSteadyState(ctx, cfg.Target.Namespace)
		if err != nil {
			r.Log.Info("observation capture degraded", "id", exp.ID, "error", err.Error())
		} else {
			exp.Observations = &observed
		}
	}
	if err := r.runProbes(ctx, exp.ID, cfg.Probes, probe.ModeEndOfTest); err != nil {
		r.Log.Info("end-of-test probe sweep degraded", "id", exp.ID, "error", err.Error())
	}

	return nil
}

// buildProbes constructs Probe instances for every descriptor matching
// mode.
func (r *Runner) buildProbes(descriptors []probe.Descriptor, mode probe.Mode) ([]probe.Probe, error) {
	var out []probe.Probe
	for _, d := range descriptors {
		if d.Mode != mode {
			continue
		}
		p, err := probe.New(d, r.K8sClient)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// runProbes evaluates every descriptor matching mode sequentially, records
// results to metrics, and persists them through ProbeResults if configured.
// Probe failures are reported through Result, not propagated as errors —
// this function only returns an error if a probe descriptor itself failed
// to construct.
func (r *Runner) runProbes(ctx context.Context, experimentID string, descriptors []probe.Descriptor, mode probe.Mode) error {
	for _, d := range descriptors {
		if d.Mode != mode {
			continue
		}
		p, err := probe.New(d, r.K8sClient)
		if err != nil {
			return err
		}
		res := p.SafeExecute(ctx)
		metrics.RecordProbeResult(string(p.Kind()), res.Passed)
		if r.ProbeResults != nil {
			if err := r.ProbeResults.SaveProbeResult(ctx, experimentID, d, res); err != nil {
				r.Log.Info("failed to persist probe result", "id", experimentID, "probe", d.Name, "error", err.Error())
			}
		}
	}
	return nil
}

func awsResourceTypeFor(t actuator.ChaosType) string {
	switch t {
	case actuator.ChaosEC2Stop, actuator.ChaosRouteBlackhole:
		return "ec2"
	case actuator.ChaosRDSFailover:
		return "rds"
	default:
		return ""
	}
}

func toRollbackRecords(results []safety.ActionResult) []RollbackRecord {
	out := make([]RollbackRecord, len(results))
	for i, res := range results {
		out[i] = RollbackRecord{Description: res.Description, Status: res.Status, Result: res.Result, Error: res.Error}
	}
	return out
}

// RollbackExperiment drains the rollback stack for id explicitly, for the
// operator-triggered /rollback endpoint. Safe to call multiple times: a
// second call returns an empty slice.
func (r *Runner) RollbackExperiment(id string) []RollbackRecord {
	results := r.Rollback.Rollback(id)
	for _, res := range results {
		metrics.RecordRollback(res.Status)
	}
	return toRollbackRecords(results)
}
