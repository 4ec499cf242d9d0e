// Package sqlite implements the processed-set ledger on an embedded SQLite
// database file.
package sqlite

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/cognicore/matchtag/pkg/matchtag/internalerr"
	"github.com/cognicore/matchtag/pkg/matchtag/ledger"
)

const driverName = "sqlite"

// Store is a ledger.Ledger backed by a single `kv` table.
type Store struct {
	db  *sqlx.DB
	loc *time.Location
}

var (
	_ ledger.Ledger         = (*Store)(nil)
	_ ledger.FailureTracker = (*Store)(nil)
)

// Option configures a Store.
type Option func(*Store)

// WithLocation sets the zone processed-at timestamps are reported in.
func WithLocation(loc *time.Location) Option {
	return func(s *Store) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// Open opens (creating if needed) the ledger database at path with WAL mode
// enabled. Write transactions take the database lock up front so concurrent
// runs against the same file serialize instead of racing.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_txlock=immediate", path)
	db, err := sqlx.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}
	// One writer per process.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, "PRAGMA synchronous=FULL"); err != nil {
		db.Close()
		return nil, err
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return NewFromDB(db, opts...), nil
}

// NewFromDB wraps an already opened database whose schema exists.
func NewFromDB(db *sqlx.DB, opts ...Option) *Store {
	s := &Store{db: db, loc: time.UTC}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

const schema = `
CREATE TABLE IF NOT EXISTS kv (
	key TEXT UNIQUE NOT NULL,
	value TIMESTAMP
);

CREATE TABLE IF NOT EXISTS failures (
	key TEXT PRIMARY KEY,
	attempts INTEGER NOT NULL,
	last_error TEXT,
	updated_at TIMESTAMP
);
`

func initSchema(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Contains(ctx context.Context, id string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM kv WHERE key = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) Get(ctx context.Context, id string) (time.Time, bool, error) {
	var ts timestamp
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, id).Scan(&ts)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return ts.Time.In(s.loc), true, nil
}

// Put upserts id in its own transaction and returns once it is committed.
func (s *Store) Put(ctx context.Context, id string, at time.Time) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %w", internalerr.ErrLedgerWrite, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `REPLACE INTO kv (key, value) VALUES (?, ?)`, id, timestamp{at}); err != nil {
		return fmt.Errorf("%w: put %s: %w", internalerr.ErrLedgerWrite, id, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM failures WHERE key = ?`, id); err != nil {
		return fmt.Errorf("%w: clear failures %s: %w", internalerr.ErrLedgerWrite, id, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit %s: %w", internalerr.ErrLedgerWrite, id, err)
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, id string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %w", internalerr.ErrLedgerWrite, err)
	}
	defer tx.Rollback()

	var n int64
	for _, stmt := range []string{`DELETE FROM kv WHERE key = ?`, `DELETE FROM failures WHERE key = ?`} {
		res, err := tx.ExecContext(ctx, stmt, id)
		if err != nil {
			return fmt.Errorf("%w: remove %s: %w", internalerr.ErrLedgerWrite, id, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		n += affected
	}
	if n == 0 {
		return fmt.Errorf("ledger entry %s: %w", id, internalerr.ErrNotFound)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit remove %s: %w", internalerr.ErrLedgerWrite, id, err)
	}
	return nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM kv`); err != nil {
		return 0, err
	}
	return n, nil
}

type entryRow struct {
	Key   string    `db:"key"`
	Value timestamp `db:"value"`
}

func (s *Store) Entries(ctx context.Context) ([]ledger.Entry, error) {
	var rows []entryRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT key, value FROM kv ORDER BY key`); err != nil {
		return nil, err
	}
	out := make([]ledger.Entry, len(rows))
	for i, r := range rows {
		out[i] = ledger.Entry{ID: r.Key, ProcessedAt: r.Value.Time.In(s.loc)}
	}
	return out, nil
}

// Reset drops and recreates the tables.
func (s *Store) Reset(ctx context.Context) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %w", internalerr.ErrLedgerWrite, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS kv; DROP TABLE IF EXISTS failures;`); err != nil {
		return fmt.Errorf("%w: drop: %w", internalerr.ErrLedgerWrite, err)
	}
	if _, err := tx.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("%w: recreate: %w", internalerr.ErrLedgerWrite, err)
	}
	return tx.Commit()
}

func (s *Store) RecordFailure(ctx context.Context, id, reason string) (int, error) {
	const stmt = `
INSERT INTO failures (key, attempts, last_error, updated_at)
VALUES (?, 1, ?, ?)
ON CONFLICT(key) DO UPDATE SET
	attempts=failures.attempts + 1,
	last_error=excluded.last_error,
	updated_at=excluded.updated_at
RETURNING attempts;
`
	var attempts int
	if err := s.db.QueryRowContext(ctx, stmt, id, reason, timestamp{time.Now()}).Scan(&attempts); err != nil {
		return 0, fmt.Errorf("%w: record failure %s: %w", internalerr.ErrLedgerWrite, id, err)
	}
	return attempts, nil
}

func (s *Store) Failures(ctx context.Context, id string) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, `SELECT attempts FROM failures WHERE key = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return n, err
}

// timestamp stores times as RFC 3339 text with their zone offset and reads
// back either text or a driver-parsed time.Time.
type timestamp struct {
	time.Time
}

func (t timestamp) Value() (driver.Value, error) {
	return t.Time.Format(time.RFC3339Nano), nil
}

func (t *timestamp) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		t.Time = time.Time{}
		return nil
	case time.Time:
		t.Time = v
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	default:
		return fmt.Errorf("ledger timestamp: unsupported type %T", src)
	}
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

func (t *timestamp) parse(s string) error {
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("ledger timestamp: cannot parse %q", s)
}
