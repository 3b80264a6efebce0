package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/conorfennell/flashdeck/internal/domain"
	_ "modernc.org/sqlite" // Registers the sqlite driver
)

// DefaultQuota mirrors the 5 MB budget browsers give localStorage.
const DefaultQuota = 5 << 20

// ErrQuotaExceeded is returned by SetItem when the write would push the
// stored bytes over the quota. It wraps domain.ErrStorageExhausted.
var ErrQuotaExceeded = fmt.Errorf("%w: quota exceeded", domain.ErrStorageExhausted)

// DB represents a wrapper around the SQL database connection.
type DB struct {
	conn  *sql.DB
	quota int64
}

// Open creates a new database connection and ensures the schema is up to date.
// A quota <= 0 means DefaultQuota.
func Open(path string, quota int64) (*DB, error) {
	if path == "" {
		return nil, fmt.Errorf("open: empty db path")
	}
	if quota <= 0 {
		quota = DefaultQuota
	}

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("open: create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", "file:"+path+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &DB{conn: db, quota: quota}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func migrate(conn *sql.DB) error {
	if _, err := conn.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER PRIMARY KEY);`); err != nil {
		return fmt.Errorf("migrate: create schema_migrations: %w", err)
	}

	var current int
	if err := conn.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations;`).Scan(&current); err != nil {
		return fmt.Errorf("migrate: read current version: %w", err)
	}
	if current >= SchemaVersion {
		return nil
	}

	tx, err := conn.Begin()
	if err != nil {
		return fmt.Errorf("migrate: begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(schema); err != nil {
		return fmt.Errorf("migrate: create local_storage: %w", err)
	}
	if _, err := tx.Exec(`INSERT INTO schema_migrations(version) VALUES (?);`, SchemaVersion); err != nil {
		return fmt.Errorf("migrate: record schema version: %w", err)
	}
	return tx.Commit()
}

// GetItem returns the value stored under key. The boolean is false when the
// key is absent.
func (db *DB) GetItem(key string) ([]byte, bool, error) {
	var value []byte
	err := db.conn.QueryRow(`SELECT value FROM local_storage WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get item %s: %w", key, err)
	}
	return value, true, nil
}

// SetItem stores value under key, replacing any previous value. It fails with
// ErrQuotaExceeded when the total stored bytes would exceed the quota.
func (db *DB) SetItem(key string, value []byte) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin write of %s: %w", key, err)
	}
	defer func() { _ = tx.Rollback() }()

	var others int64
	if err := tx.QueryRow(`
		SELECT COALESCE(SUM(LENGTH(key) + LENGTH(value)), 0)
		FROM local_storage WHERE key <> ?
	`, key).Scan(&others); err != nil {
		return fmt.Errorf("failed to measure storage usage: %w", err)
	}
	if size := others + int64(len(key)) + int64(len(value)); size > db.quota {
		return fmt.Errorf("set item %s (%d of %d bytes): %w", key, size, db.quota, ErrQuotaExceeded)
	}

	if _, err := tx.Exec(`
		INSERT INTO local_storage (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to set item %s: %w", key, err)
	}
	return tx.Commit()
}

// RemoveItem deletes key. Removing an absent key is not an error.
func (db *DB) RemoveItem(key string) error {
	if _, err := db.conn.Exec(`DELETE FROM local_storage WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to remove item %s: %w", key, err)
	}
	return nil
}

// Keys lists the stored keys in lexical order.
func (db *DB) Keys() ([]string, error) {
	rows, err := db.conn.Query(`SELECT key FROM local_storage ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("failed to scan key row: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Usage returns the number of bytes currently stored and the quota.
func (db *DB) Usage() (used, quota int64, err error) {
	if err := db.conn.QueryRow(`SELECT COALESCE(SUM(LENGTH(key) + LENGTH(value)), 0) FROM local_storage`).Scan(&used); err != nil {
		return 0, 0, fmt.Errorf("failed to measure storage usage: %w", err)
	}
	return used, db.quota, nil
}
