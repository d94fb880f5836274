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
	"time"

	"github.com/chaosduck/chaosduck/internal/analysis"
)

func parseTimestamp(s string) (time.Time, error) {
	return time.Parse("2006-01-02T15:04:05.999999999Z07:00", s)
}

// AnalysisRepo persists analysis.Result values to the analysis_results
// table, added by the 002_add_ai_insights migration.
type AnalysisRepo struct {
	db *sql.DB
}

func (r *AnalysisRepo) Save(ctx context.Context, experimentID string, res analysis.Result) error {
	recommendations, err := json.Marshal(res.Recommendations)
	if err != nil {
		return fmt.Errorf("marshaling recommendations: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO analysis_results
			(experiment_id, severity, root_cause, confidence, recommendations, resilience_score, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		experimentID, res.Severity, res.RootCause, res.Confidence, recommendations,
		nullableFloat(res.ResilienceScore), res.CreatedAt.UTC().Format("2006-01-02T15:04:05.999999999Z07:00"),
	)
	if err != nil {
		return fmt.Errorf("inserting analysis result for %s: %w", experimentID, err)
	}
	return nil
}

func (r *AnalysisRepo) ListForExperiment(ctx context.Context, experimentID string) ([]analysis.Result, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT severity, root_cause, confidence, recommendations, resilience_score, created_at
		FROM analysis_results WHERE experiment_id = ? ORDER BY id ASC`, experimentID)
	if err != nil {
		return nil, fmt.Errorf("listing analysis results for %s: %w", experimentID, err)
	}
	defer rows.Close()

	var out []analysis.Result
	for rows.Next() {
		var (
			res             analysis.Result
			recommendations []byte
			resilienceScore sql.NullFloat64
			createdAt       string
		)
		if err := rows.Scan(&res.Severity, &res.RootCause, &res.Confidence, &recommendations, &resilienceScore, &createdAt); err != nil {
			return nil, err
		}
		if len(recommendations) > 0 {
			if err := json.Unmarshal(recommendations, &res.Recommendations); err != nil {
				return nil, fmt.Errorf("unmarshaling recommendations for %s: %w", experimentID, err)
			}
		}
		if resilienceScore.Valid {
			v := resilienceScore.Float64
			res.ResilienceScore = &v
		}
		if t, err := parseTimestamp(createdAt); err == nil {
			res.CreatedAt = t
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func nullableFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
