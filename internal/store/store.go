// Package store persists fleet targets, collected samples, analysis-cache
// rows, and alert rules in a single sqlite database.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/spacefleet/spacefleet/internal/errors"
)

// Store wraps the sqlite handle with typed accessors.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies migrations.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.WrapWithCode(err, errors.ErrStore,
				"Can't create database directory",
				"Check permissions on "+dir)
		}
	}

	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrStore,
			"Can't open database at "+path, "")
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.WrapWithCode(err, errors.ErrStore,
			"Database at "+path+" isn't usable",
			"Remove the file if it's corrupt; it will be recreated.")
	}
	if _, err := db.Exec(`PRAGMA synchronous=NORMAL; PRAGMA temp_store=MEMORY;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	// Refresh claims are held by goroutines in the process that set them;
	// any claim still flagged at open belongs to a dead process.
	if _, err := db.Exec(`UPDATE analysis_cache SET refreshing = 0 WHERE refreshing = 1`); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the raw handle for API layers that need their own queries.
func (s *Store) DB() *sql.DB { return s.db }

func isNoRows(err error) bool {
	return err == sql.ErrNoRows
}

func migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS servers (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			host TEXT NOT NULL,
			port INTEGER NOT NULL DEFAULT 22,
			user TEXT NOT NULL,
			password TEXT,
			key_path TEXT,
			sudo INTEGER NOT NULL DEFAULT 0,
			enabled INTEGER NOT NULL DEFAULT 1,
			scan_mounts TEXT,
			os TEXT,
			description TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS disk_usages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			server_id INTEGER NOT NULL,
			device TEXT,
			filesystem TEXT,
			mount_point TEXT NOT NULL,
			total_gb REAL NOT NULL,
			used_gb REAL NOT NULL,
			free_gb REAL NOT NULL,
			use_percent REAL NOT NULL,
			collected_at DATETIME NOT NULL,
			FOREIGN KEY(server_id) REFERENCES servers(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS directory_usages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			server_id INTEGER NOT NULL,
			mount_point TEXT NOT NULL,
			directory TEXT NOT NULL,
			owner TEXT,
			used_gb REAL NOT NULL,
			collected_at DATETIME NOT NULL,
			FOREIGN KEY(server_id) REFERENCES servers(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS server_metrics (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			server_id INTEGER NOT NULL,
			cpu_percent REAL NOT NULL,
			memory_total_gb REAL NOT NULL,
			memory_used_gb REAL NOT NULL,
			memory_free_gb REAL NOT NULL,
			memory_percent REAL NOT NULL,
			gpu_info TEXT,
			collected_at DATETIME NOT NULL,
			FOREIGN KEY(server_id) REFERENCES servers(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS analysis_cache (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			server_id INTEGER NOT NULL,
			mount_point TEXT NOT NULL,
			kind TEXT NOT NULL,
			data_json TEXT,
			collected_at DATETIME,
			refreshing INTEGER NOT NULL DEFAULT 0,
			error TEXT,
			UNIQUE(server_id, mount_point, kind),
			FOREIGN KEY(server_id) REFERENCES servers(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS alert_rules (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			metric_type TEXT NOT NULL,
			threshold REAL NOT NULL,
			server_id INTEGER,
			enabled INTEGER NOT NULL DEFAULT 1,
			cooldown_minutes INTEGER NOT NULL DEFAULT 30,
			last_triggered_at DATETIME,
			bark_url TEXT NOT NULL,
			bark_sound TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_disk_usages_server_mount_ts ON disk_usages(server_id, mount_point, collected_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_directory_usages_server_mount_ts ON directory_usages(server_id, mount_point, collected_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_server_metrics_server_ts ON server_metrics(server_id, collected_at DESC);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return errors.WrapWithCode(err, errors.ErrStore, "Database migration failed", "")
		}
	}
	return nil
}
