package shared

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// NewDatabase opens a connection to a SQLite database at the specified path.
// The path can be ":memory:" for an in-memory database.
//
// The connection enables WAL journaling, foreign keys, and immediate-mode
// transaction locking so multi-statement writes never interleave with reads.
// busyTimeout is in seconds and governs how long a locked database is retried.
func NewDatabase(path string, busyTimeout int) (*sql.DB, error) {
	if busyTimeout < 1 {
		busyTimeout = 10
	}

	dsn := fmt.Sprintf(
		"file:%s?_busy_timeout=%d&_journal_mode=WAL&_foreign_keys=on&_txlock=immediate",
		path, busyTimeout*1000,
	)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection enforces the single-writer discipline at the
	// driver level as well as at the worker level.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}
