// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package registry persists published resolver artifacts and tracks
// rebuild requests from downstream consumers.
// Implements: prd007-registry (R1-R4);
//
//	docs/ARCHITECTURE § Registry.
package registry

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

// Entry is the registry's summary row for one component's current
// resolver.
type Entry struct {
	Component   string               `json:"component" yaml:"component"`
	CycleID     string               `json:"cycle_id" yaml:"cycle_id"`
	GeneratedAt time.Time            `json:"generated_at" yaml:"generated_at"`
	Tier        types.ComponentTier  `json:"tier" yaml:"tier"`
	Mode        types.GenerationMode `json:"generation_mode" yaml:"generation_mode"`
}

// RebuildRequest is a downstream flag asking for a component's resolver
// to be regenerated in the next cycle.
type RebuildRequest struct {
	Component   string    `json:"component" yaml:"component"`
	Reason      string    `json:"reason" yaml:"reason"`
	RequestedAt time.Time `json:"requested_at" yaml:"requested_at"`
}

// Registry is the artifact publication port. Publishing a component
// supersedes its previous resolver wholesale and clears any pending
// rebuild request for it.
type Registry interface {
	Record(ctx context.Context, artifact types.ResolverArtifact) error
	Get(ctx context.Context, component string) (types.ResolverArtifact, bool, error)
	List(ctx context.Context) ([]Entry, error)
	RequestRebuild(ctx context.Context, component, reason string) error
	PendingRebuilds(ctx context.Context) ([]RebuildRequest, error)
	Close() error
}

// SQLiteRegistry backs the Registry port with a local SQLite database.
type SQLiteRegistry struct {
	db *sql.DB
}

var _ Registry = (*SQLiteRegistry)(nil)

// Open opens or creates the registry database at path, creating parent
// directories and the schema as needed.
func Open(path string) (*SQLiteRegistry, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating registry directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening registry database: %w", err)
	}

	r := &SQLiteRegistry{db: db}
	if err := r.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating registry schema: %w", err)
	}
	return r, nil
}

// Close releases the database connection.
func (r *SQLiteRegistry) Close() error {
	return r.db.Close()
}

func (r *SQLiteRegistry) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS resolvers (
			component TEXT PRIMARY KEY,
			cycle_id TEXT NOT NULL,
			generated_at TEXT NOT NULL,
			tier TEXT NOT NULL,
			generation_mode TEXT NOT NULL,
			artifact TEXT NOT NULL,
			recorded_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS rebuild_requests (
			component TEXT PRIMARY KEY,
			reason TEXT,
			requested_at TEXT NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := r.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record publishes an artifact, replacing the component's previous
// resolver and clearing any pending rebuild request in one transaction.
func (r *SQLiteRegistry) Record(ctx context.Context, artifact types.ResolverArtifact) error {
	if artifact.Component == "" {
		return fmt.Errorf("artifact has empty component")
	}

	payload, err := json.Marshal(artifact)
	if err != nil {
		return fmt.Errorf("marshaling artifact for %s: %w", artifact.Component, err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO resolvers (component, cycle_id, generated_at, tier, generation_mode, artifact, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(component) DO UPDATE SET
			cycle_id=excluded.cycle_id, generated_at=excluded.generated_at,
			tier=excluded.tier, generation_mode=excluded.generation_mode,
			artifact=excluded.artifact, recorded_at=excluded.recorded_at`,
		artifact.Component, artifact.CycleID,
		artifact.GeneratedAt.UTC().Format(time.RFC3339Nano),
		string(artifact.Meta.Tier), string(artifact.Meta.GenerationMode),
		string(payload), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upserting resolver for %s: %w", artifact.Component, err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM rebuild_requests WHERE component = ?`, artifact.Component,
	); err != nil {
		return fmt.Errorf("clearing rebuild request for %s: %w", artifact.Component, err)
	}

	return tx.Commit()
}

// Get returns the component's current resolver, reporting ok=false when
// none has been published.
func (r *SQLiteRegistry) Get(ctx context.Context, component string) (types.ResolverArtifact, bool, error) {
	var payload string
	err := r.db.QueryRowContext(ctx,
		`SELECT artifact FROM resolvers WHERE component = ?`, component,
	).Scan(&payload)
	if err == sql.ErrNoRows {
		return types.ResolverArtifact{}, false, nil
	}
	if err != nil {
		return types.ResolverArtifact{}, false, fmt.Errorf("loading resolver for %s: %w", component, err)
	}

	var artifact types.ResolverArtifact
	if err := json.Unmarshal([]byte(payload), &artifact); err != nil {
		return types.ResolverArtifact{}, false, fmt.Errorf("parsing stored resolver for %s: %w", component, err)
	}
	return artifact, true, nil
}

// List returns summary rows for every published resolver, ordered by
// component.
func (r *SQLiteRegistry) List(ctx context.Context) ([]Entry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT component, cycle_id, generated_at, tier, generation_mode
		 FROM resolvers ORDER BY component`)
	if err != nil {
		return nil, fmt.Errorf("listing resolvers: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var generatedAt string
		if err := rows.Scan(&e.Component, &e.CycleID, &generatedAt, &e.Tier, &e.Mode); err != nil {
			return nil, fmt.Errorf("scanning resolver row: %w", err)
		}
		e.GeneratedAt, err = time.Parse(time.RFC3339Nano, generatedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing generated_at for %s: %w", e.Component, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// RequestRebuild flags a component for regeneration. A repeated request
// refreshes the reason and timestamp.
func (r *SQLiteRegistry) RequestRebuild(ctx context.Context, component, reason string) error {
	if component == "" {
		return fmt.Errorf("rebuild request has empty component")
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO rebuild_requests (component, reason, requested_at) VALUES (?, ?, ?)
		 ON CONFLICT(component) DO UPDATE SET
			reason=excluded.reason, requested_at=excluded.requested_at`,
		component, reason, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("recording rebuild request for %s: %w", component, err)
	}
	return nil
}

// PendingRebuilds returns open rebuild requests, ordered by component.
func (r *SQLiteRegistry) PendingRebuilds(ctx context.Context) ([]RebuildRequest, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT component, reason, requested_at FROM rebuild_requests ORDER BY component`)
	if err != nil {
		return nil, fmt.Errorf("listing rebuild requests: %w", err)
	}
	defer rows.Close()

	var requests []RebuildRequest
	for rows.Next() {
		var req RebuildRequest
		var requestedAt string
		if err := rows.Scan(&req.Component, &req.Reason, &requestedAt); err != nil {
			return nil, fmt.Errorf("scanning rebuild request: %w", err)
		}
		req.RequestedAt, err = time.Parse(time.RFC3339Nano, requestedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing requested_at for %s: %w", req.Component, err)
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}
