package cache

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ZaguanLabs/huntlay"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS translations (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	stored_at  INTEGER NOT NULL
);`

// SQLiteCache persists translations in a local SQLite file so a restarted
// translate service does not pay for the same strings twice.
type SQLiteCache struct {
	db     *sql.DB
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// OpenSQLiteCache opens (creating if needed) the database at path.
func OpenSQLiteCache(path string, ttlSeconds int) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &huntlay.CacheError{Message: "open sqlite", Cause: err}
	}
	// one writer avoids SQLITE_BUSY on the single file
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, &huntlay.CacheError{Message: fmt.Sprintf("apply %q", pragma), Cause: err}
		}
	}

	c, err := NewSQLiteCache(db, ttlSeconds)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return c, nil
}

// NewSQLiteCache uses an already open database, creating the table if needed.
func NewSQLiteCache(db *sql.DB, ttlSeconds int) (*SQLiteCache, error) {
	if _, err := db.Exec(sqliteSchema); err != nil {
		return nil, &huntlay.CacheError{Message: "create schema", Cause: err}
	}

	var ttl time.Duration
	if ttlSeconds > 0 {
		ttl = time.Duration(ttlSeconds) * time.Second
	}
	return &SQLiteCache{db: db, ttl: ttl, now: time.Now, logger: slog.Default()}, nil
}

func (c *SQLiteCache) fresh(storedAt int64) bool {
	return c.ttl <= 0 || c.now().Sub(time.Unix(storedAt, 0)) <= c.ttl
}

// Get retrieves a live value.
func (c *SQLiteCache) Get(key string) (string, bool) {
	var value string
	var storedAt int64
	err := c.db.QueryRow(`SELECT value, stored_at FROM translations WHERE key = ?`, key).Scan(&value, &storedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false
	}
	if err != nil {
		c.logger.Warn("sqlite cache get failed", "key", key, "error", err)
		return "", false
	}
	if !c.fresh(storedAt) {
		return "", false
	}
	return value, true
}

// Set stores or replaces a value.
func (c *SQLiteCache) Set(key string, value string) error {
	_, err := c.db.Exec(`
		INSERT INTO translations (key, value, stored_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, stored_at = excluded.stored_at`,
		key, value, c.now().Unix())
	if err != nil {
		return &huntlay.CacheError{Message: "sqlite set failed", Cause: err}
	}
	return nil
}

// Entries returns all live entries.
func (c *SQLiteCache) Entries() map[string]string {
	out := make(map[string]string)

	rows, err := c.db.Query(`SELECT key, value, stored_at FROM translations`)
	if err != nil {
		c.logger.Warn("sqlite cache scan failed", "error", err)
		return out
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		var storedAt int64
		if err := rows.Scan(&key, &value, &storedAt); err != nil {
			c.logger.Warn("sqlite cache scan failed", "error", err)
			return out
		}
		if c.fresh(storedAt) {
			out[key] = value
		}
	}
	return out
}

// Prune deletes expired rows and returns how many were removed.
func (c *SQLiteCache) Prune() (int64, error) {
	if c.ttl <= 0 {
		return 0, nil
	}
	cutoff := c.now().Add(-c.ttl).Unix()
	res, err := c.db.Exec(`DELETE FROM translations WHERE stored_at < ?`, cutoff)
	if err != nil {
		return 0, &huntlay.CacheError{Message: "sqlite prune failed", Cause: err}
	}
	return res.RowsAffected()
}

// Close closes the database.
func (c *SQLiteCache) Close() error {
	return c.db.Close()
}

var _ Enumerable = (*SQLiteCache)(nil)
