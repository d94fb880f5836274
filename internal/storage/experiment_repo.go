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

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/chaosduck/chaosduck/internal/experiment"
)

// ExperimentRepo persists experiment.Experiment records to the experiments
// table. Satisfies experiment.Store.
type ExperimentRepo struct {
	db *sql.DB
}

var _ experiment.Store = (*ExperimentRepo)(nil)

func (r *ExperimentRepo) Create(ctx context.Context, exp *experiment.Experiment) error {
	config, err := json.Marshal(exp.Config)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO experiments (id, config, status, phase, started_at)
		VALUES (?, ?, ?, ?, ?)`,
		exp.ID, config, exp.Status, exp.Phase, formatTime(exp.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting experiment %s: %w", exp.ID, err)
	}
	return nil
}

func (r *ExperimentRepo) Update(ctx context.Context, exp *experiment.Experiment) error {
	steadyState, err := json.Marshal(exp.SteadyState)
	if err != nil {
		return fmt.Errorf("marshaling steady_state: %w", err)
	}
	injectionResult, err := json.Marshal(exp.InjectionResult)
	if err != nil {
		return fmt.Errorf("marshaling injection_result: %w", err)
	}
	observations, err := json.Marshal(exp.Observations)
	if err != nil {
		return fmt.Errorf("marshaling observations: %w", err)
	}
	rollbackResult, err := json.Marshal(exp.RollbackResult)
	if err != nil {
		return fmt.Errorf("marshaling rollback_result: %w", err)
	}
	aiInsights, err := json.Marshal(exp.AIInsights)
	if err != nil {
		return fmt.Errorf("marshaling ai_insights: %w", err)
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE experiments SET
			status = ?, phase = ?, completed_at = ?, steady_state = ?,
			hypothesis = ?, injection_result = ?, observations = ?,
			rollback_result = ?, error = ?, ai_insights = ?
		WHERE id = ?`,
		exp.Status, exp.Phase, formatTime(exp.CompletedAt), steadyState,
		exp.Hypothesis, injectionResult, observations,
		rollbackResult, exp.Error, aiInsights, exp.ID,
	)
	if err != nil {
		return fmt.Errorf("updating experiment %s: %w", exp.ID, err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("experiment %s not found", exp.ID)
	}
	return nil
}

func (r *ExperimentRepo) Get(ctx context.Context, id string) (*experiment.Experiment, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, config, status, phase, started_at, completed_at, steady_state,
		       hypothesis, injection_result, observations, rollback_result, error, ai_insights
		FROM experiments WHERE id = ?`, id)
	exp, err := scanExperiment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("experiment %s not found: %w", id, err)
	}
	return exp, err
}

func (r *ExperimentRepo) List(ctx context.Context) ([]*experiment.Experiment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, config, status, phase, started_at, completed_at, steady_state,
		       hypothesis, injection_result, observations, rollback_result, error, ai_insights
		FROM experiments ORDER BY started_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing experiments: %w", err)
	}
	defer rows.Close()

	var out []*experiment.Experiment
	for rows.Next() {
		exp, err := scanExperiment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, exp)
	}
	return out, rows.Err()
}

// rowScanner abstracts over *sql.Row and *sql.Rows, both of which expose Scan.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanExperiment(row rowScanner) (*experiment.Experiment, error) {
	var (
		exp                                                                   experiment.Experiment
		config                                                                []byte
		startedAt, completedAt                                                sql.NullString
		steadyState, injectionResult, observations, rollbackResult, aiInsights []byte
		hypothesis, execError                                                 sql.NullString
	)

	err := row.Scan(&exp.ID, &config, &exp.Status, &exp.Phase, &startedAt, &completedAt,
		&steadyState, &hypothesis, &injectionResult, &observations, &rollbackResult, &execError, &aiInsights)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(config, &exp.Config); err != nil {
		return nil, fmt.Errorf("unmarshaling config for %s: %w", exp.ID, err)
	}
	exp.StartedAt = parseTime(startedAt)
	exp.CompletedAt = parseTime(completedAt)
	exp.Hypothesis = hypothesis.String
	exp.Error = execError.String

	if err := unmarshalIfPresent(steadyState, &exp.SteadyState); err != nil {
		return nil, err
	}
	if err := unmarshalIfPresent(injectionResult, &exp.InjectionResult); err != nil {
		return nil, err
	}
	if err := unmarshalIfPresent(observations, &exp.Observations); err != nil {
		return nil, err
	}
	if err := unmarshalIfPresent(rollbackResult, &exp.RollbackResult); err != nil {
		return nil, err
	}
	if err := unmarshalIfPresent(aiInsights, &exp.AIInsights); err != nil {
		return nil, err
	}
	return &exp, nil
}

func unmarshalIfPresent(data []byte, v any) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	return json.Unmarshal(data, v)
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339Nano)
	return &s
}

func parseTime(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, ns.String)
	if err != nil {
		return nil
	}
	return &t
}
