// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package generation

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/resolver-engine/pkg/types"
)

const checkpointDBFile = "checkpoints.db"

// CheckpointStore persists run state after every batch so an interrupted
// run resumes without reprocessing committed batches.
type CheckpointStore interface {
	Save(ctx context.Context, cycleID string, state RunState) error
	Load(ctx context.Context, cycleID string, runID RunID) (RunState, bool, error)
}

// SQLiteCheckpoints stores checkpoints in workDir/checkpoints.db.
type SQLiteCheckpoints struct {
	db *sql.DB
}

// OpenCheckpoints opens or creates the checkpoint database under workDir.
func OpenCheckpoints(workDir string) (*SQLiteCheckpoints, error) {
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating work directory: %w", err)
	}

	dbPath := filepath.Join(workDir, checkpointDBFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening checkpoint database: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS checkpoints (
		cycle_id TEXT NOT NULL,
		run_id TEXT NOT NULL,
		batch_index INTEGER NOT NULL,
		state TEXT NOT NULL,
		saved_at TEXT NOT NULL,
		PRIMARY KEY (cycle_id, run_id)
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating checkpoint schema: %w", err)
	}

	return &SQLiteCheckpoints{db: db}, nil
}

// Close releases the database connection.
func (s *SQLiteCheckpoints) Close() error {
	return s.db.Close()
}

// Save upserts the run's latest committed state. One row per
// (cycle, run): a checkpoint supersedes its predecessor wholesale.
func (s *SQLiteCheckpoints) Save(ctx context.Context, cycleID string, state RunState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshaling run state: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO checkpoints (cycle_id, run_id, batch_index, state, saved_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(cycle_id, run_id) DO UPDATE SET
			batch_index=excluded.batch_index, state=excluded.state, saved_at=excluded.saved_at`,
		cycleID, string(state.RunID), state.LastBatch, string(data),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("saving checkpoint: %w", err)
	}
	return nil
}

// Load returns the latest checkpointed state for a run, reporting
// whether one exists.
func (s *SQLiteCheckpoints) Load(ctx context.Context, cycleID string, runID RunID) (RunState, bool, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT state FROM checkpoints WHERE cycle_id = ? AND run_id = ?`,
		cycleID, string(runID),
	).Scan(&data)
	if err == sql.ErrNoRows {
		return RunState{}, false, nil
	}
	if err != nil {
		return RunState{}, false, fmt.Errorf("loading checkpoint: %w", err)
	}

	var state RunState
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return RunState{}, false, fmt.Errorf("parsing checkpoint state: %w", err)
	}
	if state.Candidates == nil {
		state.Candidates = make(map[string]types.Candidate)
	}
	return state, true, nil
}
