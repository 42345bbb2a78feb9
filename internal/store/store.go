// Package store persists advection runs and their trajectories in SQLite.
package store

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/floe-data/drift.report/internal/advect"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite database holding advection runs.
type Store struct {
	db *sql.DB
}

// RunRecord is the stored metadata for one batch run.
type RunRecord struct {
	RunID       string
	Dataset     string
	Integrator  string
	DT          float64
	ParcelCount int
	CreatedAt   time.Time
}

// ErrNotFound is returned when a requested run or trajectory is absent.
var ErrNotFound = errors.New("not found")

// Open opens (creating if needed) the database at path and applies any
// pending schema migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// modernc sqlite serializes writers; a single connection avoids
	// SQLITE_BUSY on concurrent saves.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrateUp runs all pending migrations up to the latest version.
func (s *Store) migrateUp() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load embedded migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	// Note: We don't close m here because it would close the underlying DB connection.

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// SaveRun persists a batch result with its metadata. Auxiliary series are
// not stored; they live in the exported JSON output.
func (s *Store) SaveRun(batch *advect.BatchResult, dataset, integrator string, dt float64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO runs (run_id, dataset, integrator, dt, parcel_count) VALUES (?, ?, ?, ?, ?)`,
		batch.RunID, dataset, integrator, dt, len(batch.Results),
	); err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	parcelStmt, err := tx.Prepare(
		`INSERT INTO parcels (run_id, parcel_index, state, reason, steps) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare parcel insert: %w", err)
	}
	defer parcelStmt.Close()

	pointStmt, err := tx.Prepare(
		`INSERT INTO trajectory_points (run_id, parcel_index, seq, t, x, y) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare point insert: %w", err)
	}
	defer pointStmt.Close()

	for i, r := range batch.Results {
		if _, err := parcelStmt.Exec(batch.RunID, i, string(r.State), r.Reason, r.Steps); err != nil {
			return fmt.Errorf("failed to insert parcel %d: %w", i, err)
		}
		for seq, p := range r.Trajectory.Points {
			if _, err := pointStmt.Exec(batch.RunID, i, seq, p.T, p.X, p.Y); err != nil {
				return fmt.Errorf("failed to insert point %d/%d: %w", i, seq, err)
			}
		}
	}

	return tx.Commit()
}

// GetRun returns the stored metadata for one run.
func (s *Store) GetRun(runID string) (*RunRecord, error) {
	row := s.db.QueryRow(
		`SELECT run_id, dataset, integrator, dt, parcel_count, created_at FROM runs WHERE run_id = ?`,
		runID)
	var rec RunRecord
	err := row.Scan(&rec.RunID, &rec.Dataset, &rec.Integrator, &rec.DT, &rec.ParcelCount, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}
	return &rec, nil
}

// ListRuns returns metadata for all stored runs, newest first.
func (s *Store) ListRuns() ([]RunRecord, error) {
	rows, err := s.db.Query(
		`SELECT run_id, dataset, integrator, dt, parcel_count, created_at FROM runs ORDER BY created_at DESC, run_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var recs []RunRecord
	for rows.Next() {
		var rec RunRecord
		if err := rows.Scan(&rec.RunID, &rec.Dataset, &rec.Integrator, &rec.DT, &rec.ParcelCount, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// Trajectory reloads one parcel's stored trajectory with its terminal state.
func (s *Store) Trajectory(runID string, parcelIndex int) (*advect.Result, error) {
	row := s.db.QueryRow(
		`SELECT state, reason, steps FROM parcels WHERE run_id = ? AND parcel_index = ?`,
		runID, parcelIndex)
	var res advect.Result
	var state string
	err := row.Scan(&state, &res.Reason, &res.Steps)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s parcel %d: %w", runID, parcelIndex, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query parcel: %w", err)
	}
	res.State = advect.State(state)

	rows, err := s.db.Query(
		`SELECT t, x, y FROM trajectory_points WHERE run_id = ? AND parcel_index = ? ORDER BY seq`,
		runID, parcelIndex)
	if err != nil {
		return nil, fmt.Errorf("failed to query points: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p advect.TrajectoryPoint
		if err := rows.Scan(&p.T, &p.X, &p.Y); err != nil {
			return nil, fmt.Errorf("failed to scan point: %w", err)
		}
		res.Trajectory.Points = append(res.Trajectory.Points, p)
	}
	return &res, rows.Err()
}
