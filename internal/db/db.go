package db

import (
	"database/sql"
	"os"
	"path/filepath"

	"github.com/billmal071/mangaunlock/internal/config"
	_ "modernc.org/sqlite"
)

var database *sql.DB

const schema = `
CREATE TABLE IF NOT EXISTS purchases (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    batch_id        TEXT NOT NULL,
    comic_id        INTEGER NOT NULL DEFAULT 0,
    comic_title     TEXT NOT NULL DEFAULT '',
    episode_id      INTEGER NOT NULL,
    episode_title   TEXT NOT NULL DEFAULT '',
    coupon_id       INTEGER NOT NULL DEFAULT 0,
    status          TEXT NOT NULL,
    error_message   TEXT,
    created_at      DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_purchases_comic ON purchases(comic_id);
CREATE INDEX IF NOT EXISTS idx_purchases_batch ON purchases(batch_id);

CREATE TABLE IF NOT EXISTS search_history (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    query           TEXT NOT NULL,
    query_key       TEXT NOT NULL,
    result_count    INTEGER DEFAULT 0,
    top_titles      TEXT NOT NULL DEFAULT '[]',
    from_cache      INTEGER NOT NULL DEFAULT 0,
    picked_comic_id INTEGER NOT NULL DEFAULT 0,
    picked_title    TEXT NOT NULL DEFAULT '',
    unlocked        INTEGER NOT NULL DEFAULT 0,
    created_at      DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_search_history_key ON search_history(query_key);

CREATE TABLE IF NOT EXISTS search_cache (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    cache_key       TEXT UNIQUE NOT NULL,
    query           TEXT NOT NULL,
    results_json    TEXT NOT NULL,
    result_count    INTEGER DEFAULT 0,
    created_at      INTEGER NOT NULL,
    expires_at      INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_search_cache_expires ON search_cache(expires_at);
`

// Init opens the database at the configured location
func Init() error {
	return Open(config.GetDBPath())
}

// Open initializes the database connection and schema at path
func Open(path string) error {
	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return err
	}

	// A single connection keeps writes serialized
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return err
	}

	database = db
	return nil
}

// DB returns the database connection
func DB() *sql.DB {
	return database
}

// Close closes the database connection
func Close() error {
	if database != nil {
		err := database.Close()
		database = nil
		return err
	}
	return nil
}
