package summarystore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"crawshaw.io/sqlite"
	"github.com/localrivet/tinysummary/internal/errortypes"
)

// ErrStoreClosed is returned by SQLiteStore methods called after Close.
var ErrStoreClosed = errors.New("summary store is closed")

// SQLiteStore is a Store backed by a single SQLite connection.
type SQLiteStore struct {
	mu     sync.Mutex
	conn   *sqlite.Conn
	dbPath string
	now    func() time.Time
}

// NewSQLiteStore opens (creating if needed) the database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		return nil, errortypes.ConfigError(fmt.Errorf("empty path"), "sqlite cache requires a database path")
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errortypes.DatabaseError(err, "failed to create cache directory")
		}
	}

	conn, err := sqlite.OpenConn(dbPath, sqlite.SQLITE_OPEN_CREATE|sqlite.SQLITE_OPEN_READWRITE)
	if err != nil {
		return nil, errortypes.DatabaseError(err, "failed to open SQLite database").WithField("path", dbPath)
	}

	s := &SQLiteStore{conn: conn, dbPath: dbPath, now: time.Now}
	if err := s.createTable(); err != nil {
		conn.Close()
		return nil, errortypes.DatabaseError(err, "failed to create table")
	}
	return s, nil
}

func (s *SQLiteStore) createTable() error {
	createTableSQL := `
	CREATE TABLE IF NOT EXISTS summary_cache (
		key TEXT PRIMARY KEY,
		summary TEXT NOT NULL,
		expires_at INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);`
	return s.exec(createTableSQL)
}

func (s *SQLiteStore) exec(query string, args ...any) error {
	stmt, err := s.conn.Prepare(query)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Reset()

	bind(stmt, args...)
	if _, err := stmt.Step(); err != nil {
		return fmt.Errorf("step: %w", err)
	}
	return nil
}

// bind binds positional parameters; sqlite parameter indices are 1-based.
func bind(stmt *sqlite.Stmt, args ...any) {
	for i, arg := range args {
		switch v := arg.(type) {
		case string:
			stmt.BindText(i+1, v)
		case int64:
			stmt.BindInt64(i+1, v)
		}
	}
}

// interruptOn lets ctx cancel a running statement. The returned func restores
// the previous interrupt channel.
func (s *SQLiteStore) interruptOn(ctx context.Context) func() {
	old := s.conn.SetInterrupt(ctx.Done())
	return func() { s.conn.SetInterrupt(old) }
}

// Get returns the cached summary for key, ignoring expired rows.
func (s *SQLiteStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return "", false, ErrStoreClosed
	}
	defer s.interruptOn(ctx)()

	stmt, err := s.conn.Prepare(`
	SELECT summary FROM summary_cache
	WHERE key = ? AND (expires_at = 0 OR expires_at > ?);`)
	if err != nil {
		return "", false, errortypes.DatabaseError(err, "failed to prepare select statement")
	}
	defer stmt.Reset()

	bind(stmt, key, s.now().UnixNano())
	hasRow, err := stmt.Step()
	if err != nil {
		return "", false, errortypes.DatabaseError(err, "failed to read cache entry")
	}
	if !hasRow {
		return "", false, nil
	}
	return stmt.ColumnText(0), true, nil
}

// Set inserts or replaces an entry and purges expired rows.
func (s *SQLiteStore) Set(ctx context.Context, key, summary string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return ErrStoreClosed
	}
	defer s.interruptOn(ctx)()

	now := s.now().UnixNano()
	var expiresAt int64
	if ttl > 0 {
		expiresAt = now + ttl.Nanoseconds()
	}

	if err := s.exec(`DELETE FROM summary_cache WHERE expires_at != 0 AND expires_at <= ?;`, now); err != nil {
		return errortypes.DatabaseError(err, "failed to purge expired entries")
	}

	err := s.exec(`
	INSERT OR REPLACE INTO summary_cache (key, summary, expires_at, created_at)
	VALUES (?, ?, ?, ?);`, key, summary, expiresAt, now)
	if err != nil {
		return errortypes.DatabaseError(err, "failed to insert cache entry")
	}
	return nil
}

// Len counts live rows.
func (s *SQLiteStore) Len(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return 0, ErrStoreClosed
	}
	defer s.interruptOn(ctx)()

	stmt, err := s.conn.Prepare(`
	SELECT COUNT(*) FROM summary_cache
	WHERE expires_at = 0 OR expires_at > ?;`)
	if err != nil {
		return 0, errortypes.DatabaseError(err, "failed to prepare count statement")
	}
	defer stmt.Reset()

	bind(stmt, s.now().UnixNano())
	if _, err := stmt.Step(); err != nil {
		return 0, errortypes.DatabaseError(err, "failed to count cache entries")
	}
	return int(stmt.ColumnInt64(0)), nil
}

// Clear deletes every row.
func (s *SQLiteStore) Clear(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return 0, ErrStoreClosed
	}
	defer s.interruptOn(ctx)()

	if err := s.exec(`DELETE FROM summary_cache;`); err != nil {
		return 0, errortypes.DatabaseError(err, "failed to clear cache")
	}
	return s.conn.Changes(), nil
}

// Ping runs a trivial query.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return ErrStoreClosed
	}
	defer s.interruptOn(ctx)()

	if err := s.exec(`SELECT 1;`); err != nil {
		return errortypes.DatabaseError(err, "sqlite ping failed").WithField("path", s.dbPath)
	}
	return nil
}

// Close closes the underlying connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		err := s.conn.Close()
		s.conn = nil
		return err
	}
	return nil
}
