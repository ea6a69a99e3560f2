// Package journal records what a block graph did: one row per finished
// resolution and one per action delivery, in a SQLite file. It journals
// events only; graph state itself is never persisted.
package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"io"
	"log/slog"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/blockgraph/internal/graph"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - initial tables
// 1 - index on deliveries.action_id
const currentSchemaVersion = 1

// Journal is a graph.Observer backed by SQLite in WAL mode.
type Journal struct {
	db     *sql.DB
	clock  *Clock
	logger *slog.Logger
}

// Option configures a Journal.
type Option func(*Journal)

// WithLogger sets the logger used to report write failures, which the
// observer interface cannot return.
func WithLogger(l *slog.Logger) Option {
	return func(j *Journal) {
		if l != nil {
			j.logger = l
		}
	}
}

// WithClock stamps rows from c instead of a private clock, so callers can
// interleave their own events with journal rows.
func WithClock(c *Clock) Option {
	return func(j *Journal) {
		if c != nil {
			j.clock = c
		}
	}
}

var _ graph.Observer = (*Journal)(nil)

// Open creates or opens the journal at path. Use ":memory:" for a throwaway
// journal. Pragmas and migrations are applied on every open.
func Open(path string, opts ...Option) (*Journal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite has a single writer; one connection also keeps :memory: shared.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	last, err := lastSeq(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	j := &Journal{
		db:     db,
		clock:  NewClock(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(j)
	}
	j.clock.Advance(last)
	return j, nil
}

// Close closes the database.
func (j *Journal) Close() error {
	if j.db == nil {
		return nil
	}
	return j.db.Close()
}

// ResolutionFinished records one settle.
func (j *Journal) ResolutionFinished(ctx context.Context, r graph.ResolutionRecord) {
	code, msg := errorColumns(r.Err)
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO resolutions (seq, origin, nodes, passes, duration_ns, error_code, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, j.clock.Next(), strings.Join(r.Origin, ","), r.Nodes, r.Passes, r.Duration.Nanoseconds(), code, msg)
	if err != nil {
		j.logger.Warn("journal write failed", "table", "resolutions", "error", err)
	}
}

// ActionDelivered records one delivery.
func (j *Journal) ActionDelivered(ctx context.Context, r graph.DeliveryRecord) {
	_, msg := errorColumns(r.Err)
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO deliveries (seq, action_id, type, src, dst, outcome, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, j.clock.Next(), r.ActionID, r.Type, r.From.String(), r.To.String(), string(r.Outcome), msg)
	if err != nil {
		j.logger.Warn("journal write failed", "table", "deliveries", "error", err)
	}
}

func errorColumns(err error) (string, string) {
	if err == nil {
		return "", ""
	}
	return string(graph.CodeOf(err)), err.Error()
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// runMigrations applies incremental migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version < 1 {
		if _, err := db.Exec(`
			CREATE INDEX IF NOT EXISTS idx_deliveries_action
			ON deliveries(action_id, seq)
		`); err != nil {
			return fmt.Errorf("migrate to v1: %w", err)
		}
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// lastSeq returns the highest seq in either table, so a reopened journal
// continues its clock.
func lastSeq(db *sql.DB) (int64, error) {
	var last int64
	err := db.QueryRow(`
		SELECT MAX(COALESCE((SELECT MAX(seq) FROM resolutions), 0),
		           COALESCE((SELECT MAX(seq) FROM deliveries), 0))
	`).Scan(&last)
	if err != nil {
		return 0, fmt.Errorf("read last seq: %w", err)
	}
	return last, nil
}
