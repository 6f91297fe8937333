// Package sqlite implements the server's repository interfaces on SQLite.
//
// The pattern for every query is the same:
//  1. db.conn.QueryRowContext / ExecContext runs the statement
//  2. Scan reads the columns into Go variables
//  3. sql.ErrNoRows becomes apperror.NotFound, anything else is wrapped with context
package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool. It implements both
// repository.AccountRepository (via Accounts) and repository.PostRepository (via Posts).
type DB struct {
	conn *sql.DB
}

// New opens the database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/blognode.db" → file-based database (persistent)
//   - ":memory:"         → in-memory database (tests)
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	if dbPath == ":memory:" {
		// Each connection would otherwise get its own empty in-memory database.
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets readers proceed while a write is in flight.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are OFF by default in SQLite.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the connection pool. Always defer it right after New.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping reports whether the database is reachable. Used by /healthz.
func (db *DB) Ping() error {
	return db.conn.Ping()
}

// Accounts returns the account repository view of db.
func (db *DB) Accounts() *AccountDB {
	return &AccountDB{conn: db.conn}
}

// Posts returns the post repository view of db.
func (db *DB) Posts() *PostDB {
	return &PostDB{conn: db.conn}
}

// migrate creates the schema. CREATE ... IF NOT EXISTS keeps it idempotent.
//
// email_key holds the lowercased email so uniqueness is case-insensitive while
// the email column keeps the spelling the user typed.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS accounts (
			id            TEXT PRIMARY KEY,
			email         TEXT NOT NULL,
			email_key     TEXT NOT NULL UNIQUE,
			username      TEXT NOT NULL DEFAULT '',
			display_name  TEXT NOT NULL DEFAULT '',
			avatar        TEXT NOT NULL DEFAULT '',
			bio           TEXT NOT NULL DEFAULT '',
			social_links  TEXT NOT NULL DEFAULT '{}',
			password_hash TEXT NOT NULL DEFAULT '',
			github_id     INTEGER UNIQUE,
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating accounts table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS posts (
			id             TEXT PRIMARY KEY,
			author_id      TEXT NOT NULL REFERENCES accounts(id),
			title          TEXT NOT NULL,
			slug           TEXT NOT NULL UNIQUE,
			content        TEXT NOT NULL DEFAULT '',
			excerpt        TEXT NOT NULL DEFAULT '',
			featured_image TEXT NOT NULL DEFAULT '',
			tags           TEXT NOT NULL DEFAULT '',
			status         TEXT NOT NULL DEFAULT 'draft',
			read_time      INTEGER NOT NULL DEFAULT 1,
			views          INTEGER NOT NULL DEFAULT 0,
			likes          INTEGER NOT NULL DEFAULT 0,
			comments       INTEGER NOT NULL DEFAULT 0,
			published_at   DATETIME,
			created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_posts_status_published ON posts(status, published_at);
		CREATE INDEX IF NOT EXISTS idx_posts_author ON posts(author_id);
	`)
	if err != nil {
		return fmt.Errorf("creating posts table: %w", err)
	}

	return nil
}

// isUniqueViolation reports whether err is SQLite's UNIQUE constraint failure.
// The driver exposes it only through the message text.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
