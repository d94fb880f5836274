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
	"fmt"

	"github.com/chaosduck/chaosduck/internal/probe"
)

// ProbeResultRepo persists probe.Result values to the probe_results table.
// Satisfies experiment.ProbeResultSink.
type ProbeResultRepo struct {
	db *sql.DB
}

func (r *ProbeResultRepo) SaveProbeResult(ctx context.Context, experimentID string, p probe.Descriptor, res probe.Result) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshaling probe result: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO probe_results (experiment_id, probe_type, mode, result, passed, executed_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		experimentID, p.Type, p.Mode, data, boolToInt(res.Passed), res.ExecutedAt.UTC().Format("2006-01-02T15:04:05.999999999Z07:00"),
	)
	if err != nil {
		return fmt.Errorf("inserting probe result for %s: %w", experimentID, err)
	}
	return nil
}

// ListForExperiment returns every probe result recorded for experimentID,
// in execution order.
func (r *ProbeResultRepo) ListForExperiment(ctx context.Context, experimentID string) ([]probe.Result, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT result FROM probe_results WHERE experiment_id = ? ORDER BY id ASC`, experimentID)
	if err != nil {
		return nil, fmt.Errorf("listing probe results for %s: %w", experimentID, err)
	}
	defer rows.Close()

	var out []probe.Result
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var res probe.Result
		if err := json.Unmarshal(data, &res); err != nil {
			return nil, fmt.Errorf("unmarshaling probe result for %s: %w", experimentID, err)
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
