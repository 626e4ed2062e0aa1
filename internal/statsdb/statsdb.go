// Package statsdb records filter/convert runs and per-model occupancy in a
// sqlite file. Besides audit, the occupancy records double as a cache: a model
// whose view count is unchanged since a previous run keeps its measured
// occupancy and is not re-decoded.
package statsdb

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB wraps the stats database connection.
type DB struct {
	*sql.DB
}

// Open opens (or creates) the stats database at path and applies any pending
// schema migrations.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open stats db %s: %w", path, err)
	}

	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, err
	}
	return &DB{db}, nil
}

func migrateUp(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load embedded migrations: %w", err)
	}

	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create sqlite migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	// Note: we don't close m because that would close the underlying DB
	// connection.

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

// Run is a recorded pipeline invocation. Filter runs tally models, convert
// runs tally views; each kind fills its own pair of columns.
type Run struct {
	ID         string
	Kind       string
	Src        string
	Dst        string
	Threshold  float64
	ModelsSeen int
	ModelsKept int
	ViewsSeen  int
	ViewsKept  int
	StartedAt  time.Time
	FinishedAt time.Time
}

// BeginRun records the start of a pipeline run and returns its id.
func (db *DB) BeginRun(kind, src, dst string, threshold float64) (string, error) {
	id := uuid.NewString()
	_, err := db.Exec(
		`INSERT INTO runs (run_id, kind, src, dst, threshold, started_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, kind, src, dst, threshold, time.Now().UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to record run start: %w", err)
	}
	return id, nil
}

// FinishRun records a filter run's final per-model tallies.
func (db *DB) FinishRun(id string, seen, kept int) error {
	_, err := db.Exec(
		`UPDATE runs SET models_seen = ?, models_kept = ?, finished_at = ? WHERE run_id = ?`,
		seen, kept, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to record run finish: %w", err)
	}
	return nil
}

// FinishConvertRun records a convert run's final per-view tallies.
func (db *DB) FinishConvertRun(id string, viewsSeen, viewsKept int) error {
	_, err := db.Exec(
		`UPDATE runs SET views_seen = ?, views_kept = ?, finished_at = ? WHERE run_id = ?`,
		viewsSeen, viewsKept, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to record run finish: %w", err)
	}
	return nil
}

// GetRun loads a recorded run by id.
func (db *DB) GetRun(id string) (*Run, error) {
	row := db.QueryRow(
		`SELECT run_id, kind, src, dst, threshold, models_seen, models_kept, views_seen, views_kept, started_at, COALESCE(finished_at, started_at)
		 FROM runs WHERE run_id = ?`, id)

	var r Run
	if err := row.Scan(&r.ID, &r.Kind, &r.Src, &r.Dst, &r.Threshold, &r.ModelsSeen, &r.ModelsKept, &r.ViewsSeen, &r.ViewsKept, &r.StartedAt, &r.FinishedAt); err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", id, err)
	}
	return &r, nil
}

// RecordModelStat stores one model's measured occupancy for a run.
func (db *DB) RecordModelStat(runID, collection, model string, views int, occupancy float64, kept bool) error {
	_, err := db.Exec(
		`INSERT INTO model_stats (run_id, collection, model, views, occupancy, kept, recorded_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, collection, model, views, occupancy, kept, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record model stat: %w", err)
	}
	return nil
}

// CachedOccupancy returns the most recently recorded occupancy for a model
// with the given view count, or ok=false when none exists.
func (db *DB) CachedOccupancy(collection, model string, views int) (occupancy float64, ok bool, err error) {
	row := db.QueryRow(
		`SELECT occupancy FROM model_stats
		 WHERE collection = ? AND model = ? AND views = ?
		 ORDER BY recorded_at DESC LIMIT 1`,
		collection, model, views,
	)
	switch err := row.Scan(&occupancy); {
	case errors.Is(err, sql.ErrNoRows):
		return 0, false, nil
	case err != nil:
		return 0, false, fmt.Errorf("failed to look up cached occupancy: %w", err)
	}
	return occupancy, true, nil
}
