// Package history persists lifecycle passes and their transitions in
// SQLite so status surfaces can show what previous runs did.
package history

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"

	// SQLite driver
	_ "modernc.org/sqlite"

	"github.com/fyrsmithlabs/lifecycled/internal/config"
	"github.com/fyrsmithlabs/lifecycled/internal/logging"
	"github.com/fyrsmithlabs/lifecycled/pkg/lifecycle"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrNotFound is returned when no pass matches a query.
var ErrNotFound = errors.New("pass not found")

// Config holds history store configuration.
type Config struct {
	Path string
}

// PassRecord is one recorded pass.
type PassRecord struct {
	RunID      string
	Op         string
	Status     string
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
	DurationMS int64
}

// TransitionRecord is one recorded step of a pass: a phase boundary or an
// observer failure.
type TransitionRecord struct {
	ID         int64
	RunID      string
	Event      string
	Phase      string
	Group      string
	Observer   string
	Error      string
	DurationMS int64
	At         time.Time
}

// Store records passes in SQLite. It implements lifecycle.Sink for the
// engine and the datasource-group observer hooks for the daemon: Open (or
// PreStart) migrates and opens, PostStop checkpoints the WAL, and Close
// releases the handle once the final pass has drained.
type Store struct {
	config Config
	logger *logging.Logger
	db     *sql.DB
}

// New creates an unopened Store.
func New(cfg Config, logger *logging.Logger) (*Store, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}
	return &Store{config: cfg, logger: logger}, nil
}

// Open opens the database, applies the session pragmas and brings the
// schema current. Opening an open store is a no-op, so the daemon can open
// before the first pass and still register the store as an observer.
func (s *Store) Open(ctx context.Context) error {
	if s.db != nil {
		return nil
	}

	path, err := config.ExpandHome(s.config.Path)
	if err != nil {
		return fmt.Errorf("expand database path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return fmt.Errorf("%s: %w", pragma, err)
		}
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("ping database: %w", err)
	}

	if err := migrateUp(db); err != nil {
		db.Close()
		return err
	}

	s.db = db
	s.logger.Info(ctx, "history store opened", zap.String("path", path))
	return nil
}

// migrateUp runs the embedded migrations.
func migrateUp(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// PreStart opens the store as part of the datasource group.
func (s *Store) PreStart(ctx context.Context) error {
	return s.Open(ctx)
}

// PostStop checkpoints the WAL after every group has stopped. The handle
// stays open for the pass completion event that follows the hook; the
// daemon calls Close once the stop pass has drained.
func (s *Store) PostStop(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	if err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

var _ lifecycle.Sink = (*Store)(nil)

// Publish records one engine event. The store owns its delivery errors:
// failures are logged and dropped, never surfaced into the pass, and
// events arriving while the store is closed are dropped silently.
func (s *Store) Publish(ctx context.Context, ev lifecycle.Event) {
	if s.db == nil {
		return
	}

	var err error
	switch ev.Type {
	case lifecycle.EventPassStarted:
		err = s.insertPass(ctx, ev)
	case lifecycle.EventPassCompleted, lifecycle.EventPassFailed:
		err = s.finishPass(ctx, ev)
	case lifecycle.EventPhaseStarted, lifecycle.EventPhaseCompleted, lifecycle.EventObserverFailed:
		err = s.insertTransition(ctx, ev)
	default:
		return
	}

	if err != nil {
		s.logger.Warn(ctx, "record lifecycle event",
			zap.String("type", string(ev.Type)),
			zap.String("run_id", ev.RunID),
			zap.Error(err),
		)
	}
}

func (s *Store) insertPass(ctx context.Context, ev lifecycle.Event) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO passes (run_id, op, status, started_at) VALUES (?, ?, ?, ?)`,
		ev.RunID, ev.Op, "running", ev.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert pass: %w", err)
	}
	return nil
}

func (s *Store) finishPass(ctx context.Context, ev lifecycle.Event) error {
	status := "ok"
	if ev.Type == lifecycle.EventPassFailed {
		status = "failed"
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE passes SET status = ?, error = ?, finished_at = ?, duration_ms = ? WHERE run_id = ?`,
		status, ev.Error, ev.Timestamp.UTC(), ev.DurationMS, ev.RunID,
	)
	if err != nil {
		return fmt.Errorf("finish pass: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, ev.RunID)
	}
	return nil
}

func (s *Store) insertTransition(ctx context.Context, ev lifecycle.Event) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transitions (run_id, event, phase, group_name, observer_key, error, duration_ms, at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.RunID, string(ev.Type), string(ev.Phase), ev.Group, ev.Key, ev.Error, ev.DurationMS, ev.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert transition: %w", err)
	}
	return nil
}

// LastPass returns the most recently started pass.
func (s *Store) LastPass(ctx context.Context) (*PassRecord, error) {
	if s.db == nil {
		return nil, fmt.Errorf("history store is not open")
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT run_id, op, status, error, started_at, finished_at, duration_ms
		 FROM passes ORDER BY started_at DESC, rowid DESC LIMIT 1`)

	rec, err := scanPass(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get last pass: %w", err)
	}
	return rec, nil
}

// RecentPasses returns up to limit passes, newest first.
func (s *Store) RecentPasses(ctx context.Context, limit int) ([]PassRecord, error) {
	if s.db == nil {
		return nil, fmt.Errorf("history store is not open")
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, op, status, error, started_at, finished_at, duration_ms
		 FROM passes ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list passes: %w", err)
	}
	defer rows.Close()

	var passes []PassRecord
	for rows.Next() {
		rec, err := scanPass(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pass: %w", err)
		}
		passes = append(passes, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate passes: %w", err)
	}
	return passes, nil
}

// Transitions returns the transitions of one pass in recorded order.
func (s *Store) Transitions(ctx context.Context, runID string) ([]TransitionRecord, error) {
	if s.db == nil {
		return nil, fmt.Errorf("history store is not open")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, event, phase, group_name, observer_key, error, duration_ms, at
		 FROM transitions WHERE run_id = ? ORDER BY id ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("list transitions: %w", err)
	}
	defer rows.Close()

	var transitions []TransitionRecord
	for rows.Next() {
		var tr TransitionRecord
		var phase, group, observer, errMsg sql.NullString
		if err := rows.Scan(&tr.ID, &tr.RunID, &tr.Event, &phase, &group, &observer, &errMsg, &tr.DurationMS, &tr.At); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		tr.Phase = phase.String
		tr.Group = group.String
		tr.Observer = observer.String
		tr.Error = errMsg.String
		transitions = append(transitions, tr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transitions: %w", err)
	}
	return transitions, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanPass(sc scanner) (*PassRecord, error) {
	var rec PassRecord
	var errMsg sql.NullString
	var finished sql.NullTime
	if err := sc.Scan(&rec.RunID, &rec.Op, &rec.Status, &errMsg, &rec.StartedAt, &finished, &rec.DurationMS); err != nil {
		return nil, err
	}
	rec.Error = errMsg.String
	if finished.Valid {
		rec.FinishedAt = finished.Time
	}
	return &rec, nil
}
