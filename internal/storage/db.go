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

// Package storage persists experiments, snapshots, probe results, and
// analysis results to a SQLite database, with schema changes applied
// through versioned migrations at startup.
package storage

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// DB wraps the underlying *sql.DB and exposes the repositories built on it.
type DB struct {
	sql *sql.DB
}

// Open connects to url (a DATABASE_URL value, e.g. "sqlite:./chaosduck.db"),
// applies any pending migrations, and returns a ready DB.
func Open(url string) (*DB, error) {
	dsn := strings.TrimPrefix(url, "sqlite:")
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database %q: %w", url, err)
	}
	sqlDB.SetMaxOpenConns(1) // modernc.org/sqlite serializes writers; avoid SQLITE_BUSY under concurrency

	db := &DB{sql: sqlDB}
	if err := runMigrations(db); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// Close releases the underlying connection.
func (d *DB) Close() error {
	return d.sql.Close()
}

// ExperimentStore returns the experiment.Store-satisfying repository.
func (d *DB) ExperimentStore() *ExperimentRepo {
	return &ExperimentRepo{db: d.sql}
}

// Snapshots returns the safety.SnapshotSink-satisfying repository.
func (d *DB) Snapshots() *SnapshotRepo {
	return &SnapshotRepo{db: d.sql}
}

// Probes returns the probe-result repository.
func (d *DB) Probes() *ProbeResultRepo {
	return &ProbeResultRepo{db: d.sql}
}

// Analysis returns the analysis-result repository.
func (d *DB) Analysis() *AnalysisRepo {
	return &AnalysisRepo{db: d.sql}
}
