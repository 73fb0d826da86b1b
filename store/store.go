// Package store implements the persistent local observation cache: a
// single SQLite file keyed on (site, valid_time), opened or created on
// demand and pruned of stale rows on close.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/nimbuswx/obsdb/internal/obserr"
)

var (
	errCacheUnavailable = obserr.ErrCacheUnavailable
	errCacheIoError     = obserr.ErrCacheIoError
)

// retentionWindow is how far back observations are kept. About 555
// days, matching the original cache's prune-on-close policy.
const retentionWindow = 555 * 24 * time.Hour

const schemaSQL = `CREATE TABLE IF NOT EXISTS obs (
  site           TEXT    NOT NULL,
  valid_time     INTEGER NOT NULL,
  t_f            REAL,
  precip_in_1hr  REAL,
  PRIMARY KEY (site, valid_time)
);`

const insertSQL = `INSERT OR REPLACE INTO obs (valid_time, site, t_f, precip_in_1hr) VALUES (?, ?, ?, ?);`

// Store owns the single SQLite connection backing the observation
// cache. A Store is not safe for concurrent use: obsdb's contract is a
// single-threaded, synchronous caller.
type Store struct {
	db *sql.DB
}

// Open opens (creating it and its parent directories if necessary) the
// cache file at $HOME/.local/share/obsdb/wxobs.sqlite.
func Open() (*Store, error) {
	path, err := cachePath()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errCacheUnavailable, err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", errCacheUnavailable, path, err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: initializing schema: %v", errCacheUnavailable, err)
	}

	return &Store{db: db}, nil
}

func cachePath() (string, error) {
	home, ok := os.LookupEnv("HOME")
	if !ok || home == "" {
		return "", fmt.Errorf("could not find user's home directory")
	}

	dir := filepath.Join(home, ".local", "share", "obsdb")
	if err := os.MkdirAll(dir, 0o774); err != nil {
		return "", fmt.Errorf("creating cache directory %s: %w", dir, err)
	}

	return filepath.Join(dir, "wxobs.sqlite"), nil
}

// Close prunes rows older than the retention window and closes the
// underlying connection. The Store must not be used after Close.
func (s *Store) Close() error {
	tooOld := time.Now().Add(-retentionWindow).Unix()

	if _, err := s.db.Exec(`DELETE FROM obs WHERE valid_time < ?`, tooOld); err != nil {
		s.db.Close()
		return fmt.Errorf("%w: pruning old rows: %v", errCacheIoError, err)
	}

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("%w: closing cache: %v", errCacheIoError, err)
	}

	return nil
}

// CountInRange returns the number of rows stored for site within the
// inclusive range [start, end], both given as unix timestamps.
func (s *Store) CountInRange(ctx context.Context, site string, start, end int64) (int, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(valid_time) FROM obs WHERE site = ? AND valid_time >= ? AND valid_time <= ?`,
		site, start, end)

	var count int
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: counting rows: %v", errCacheIoError, err)
	}

	return count, nil
}

// Tx is a single all-or-nothing batch of inserts.
type Tx struct {
	tx   *sql.Tx
	stmt *sql.Stmt
}

// Begin starts a new transaction for batched inserts.
func (s *Store) Begin(ctx context.Context) (*Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: beginning transaction: %v", errCacheIoError, err)
	}

	stmt, err := tx.PrepareContext(ctx, insertSQL)
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("%w: preparing insert statement: %v", errCacheIoError, err)
	}

	return &Tx{tx: tx, stmt: stmt}, nil
}

// Insert upserts a single observation row. Either tF or precipIn1hr
// (or both) may be nil when the upstream feed didn't report that
// element for this valid time.
func (t *Tx) Insert(ctx context.Context, validTime time.Time, site string, tF, precipIn1hr *float64) error {
	if _, err := t.stmt.ExecContext(ctx, validTime.Unix(), site, nullableFloat(tF), nullableFloat(precipIn1hr)); err != nil {
		return fmt.Errorf("%w: inserting row: %v", errCacheIoError, err)
	}
	return nil
}

func nullableFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

// Commit finalizes the transaction, committing every inserted row.
func (t *Tx) Commit() error {
	t.stmt.Close()
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing transaction: %v", errCacheIoError, err)
	}
	return nil
}

// Rollback discards the transaction. Safe to call after Commit has
// already run (it becomes a no-op via database/sql's own semantics).
func (t *Tx) Rollback() error {
	t.stmt.Close()
	if err := t.tx.Rollback(); err != nil && err != sql.ErrTxDone {
		return fmt.Errorf("%w: rolling back transaction: %v", errCacheIoError, err)
	}
	return nil
}

// Row is one observation as read back from the cache.
type Row struct {
	ValidTime   time.Time
	Site        string
	TF          *float64
	PrecipIn1hr *float64
}

// Rows is a forward-only, ascending iterator over cached observations.
type Rows struct {
	rows *sql.Rows
	cur  Row
	err  error
}

// ScanAsc returns an ascending iterator over all rows cached for site
// within the inclusive range [start, end].
func (s *Store) ScanAsc(ctx context.Context, site string, start, end int64) (*Rows, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT valid_time, site, t_f, precip_in_1hr FROM obs
		 WHERE site = ? AND valid_time >= ? AND valid_time <= ?
		 ORDER BY valid_time ASC`,
		site, start, end)
	if err != nil {
		return nil, fmt.Errorf("%w: querying rows: %v", errCacheIoError, err)
	}

	return &Rows{rows: rows}, nil
}

// Next advances the iterator. It returns false at the end of the
// result set or after an error; callers must check Err afterward.
func (r *Rows) Next() bool {
	if !r.rows.Next() {
		return false
	}

	var validTime int64
	var site string
	var tF, precip sql.NullFloat64

	if err := r.rows.Scan(&validTime, &site, &tF, &precip); err != nil {
		r.err = fmt.Errorf("%w: scanning row: %v", errCacheIoError, err)
		return false
	}

	r.cur = Row{ValidTime: time.Unix(validTime, 0).UTC(), Site: site}
	if tF.Valid {
		v := tF.Float64
		r.cur.TF = &v
	}
	if precip.Valid {
		v := precip.Float64
		r.cur.PrecipIn1hr = &v
	}

	return true
}

// Row returns the row most recently advanced to by Next.
func (r *Rows) Row() Row { return r.cur }

// Err returns the first error encountered during iteration, if any.
func (r *Rows) Err() error {
	if r.err != nil {
		return r.err
	}
	if err := r.rows.Err(); err != nil {
		return fmt.Errorf("%w: iterating rows: %v", errCacheIoError, err)
	}
	return nil
}

// Close releases resources held by the iterator.
func (r *Rows) Close() error {
	return r.rows.Close()
}
