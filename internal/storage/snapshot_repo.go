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

	"github.com/chaosduck/chaosduck/internal/safety"
)

// SnapshotRepo persists safety.Snapshot values to the snapshots table.
// Satisfies safety.SnapshotSink.
type SnapshotRepo struct {
	db *sql.DB
}

var _ safety.SnapshotSink = (*SnapshotRepo)(nil)

func (r *SnapshotRepo) SaveSnapshot(ctx context.Context, snap safety.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO snapshots (experiment_id, type, namespace, data, captured_at)
		VALUES (?, ?, ?, ?, ?)`,
		snap.ExperimentID, snap.Kind, snap.Namespace, data, snap.CapturedAt.UTC().Format("2006-01-02T15:04:05.999999999Z07:00"),
	)
	if err != nil {
		return fmt.Errorf("inserting snapshot for %s: %w", snap.ExperimentID, err)
	}
	return nil
}

// ListForExperiment returns every snapshot captured for experimentID, oldest
// first.
func (r *SnapshotRepo) ListForExperiment(ctx context.Context, experimentID string) ([]safety.Snapshot, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT data FROM snapshots WHERE experiment_id = ? ORDER BY id ASC`, experimentID)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots for %s: %w", experimentID, err)
	}
	defer rows.Close()

	var out []safety.Snapshot
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var snap safety.Snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return nil, fmt.Errorf("unmarshaling snapshot for %s: %w", experimentID, err)
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}
