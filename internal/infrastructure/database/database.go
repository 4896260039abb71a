package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // registers the sqlite3 driver
)

const (
	// dirMode restricts the database directory to owner and group.
	dirMode = 0750

	// fileMode keeps the database file owner-only. It stores audit
	// entries that include actor identity.
	fileMode = 0600

	// pingTimeout bounds the connectivity check inside Open.
	pingTimeout = 5 * time.Second

	// idleConnLifetime is how long an idle connection is kept before
	// the pool recycles it.
	idleConnLifetime = 30 * time.Minute
)

// DB is an open SQLite handle plus migration and health helpers. The
// embedded sql.DB carries the usual query and transaction methods.
type DB struct {
	*sql.DB
	path string
}

// Config mirrors the database section of the service config file.
type Config struct {
	// Path is the SQLite database file. Its directory is created on
	// first open.
	Path string

	// WALMode turns on write-ahead logging, which lets reads proceed
	// during a write.
	WALMode bool

	// BusyTimeout is how many seconds a statement waits on a locked
	// database before giving up.
	BusyTimeout int
}

// Open opens (creating if needed) the SQLite database described by cfg
// and verifies it responds to a ping. The pool is pinned to a single
// connection because SQLite allows one writer at a time; the busy
// timeout covers the rest.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Path), dirMode); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	sqlDB, err := sql.Open("sqlite3", buildDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(idleConnLifetime)

	db := &DB{DB: sqlDB, path: cfg.Path}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		sqlDB.Close() //nolint:errcheck // best effort cleanup on error path
		return nil, fmt.Errorf("verifying database connection: %w", err)
	}

	// The file may not exist until the first write; tightening its
	// permissions is best effort here and repeated by SQLite's own
	// file creation mode.
	_ = os.Chmod(cfg.Path, fileMode)

	return db, nil
}

// buildDSN renders the go-sqlite3 connection string. Foreign keys are
// always enforced; audit rows reference nothing yet but future tables
// will.
func buildDSN(cfg Config) string {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=%d&_foreign_keys=on",
		cfg.Path, cfg.BusyTimeout*1000)
	if cfg.WALMode {
		dsn += "&_journal_mode=WAL&_synchronous=NORMAL"
	}
	return dsn
}

// Close releases the connection pool. Safe to call on a zero or
// already-closed handle.
func (db *DB) Close() error {
	if db.DB == nil {
		return nil
	}
	return db.DB.Close()
}

// Path returns the database file location.
func (db *DB) Path() string {
	return db.path
}

// HealthCheck runs a trivial query to prove the connection is alive,
// not just present in the pool.
func (db *DB) HealthCheck(ctx context.Context) error {
	var one int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}
