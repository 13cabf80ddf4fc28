// internal/cart/sqlite.go
package cart

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"pixelverk/internal/logger"
)

// Database connection pool configuration
const (
	maxOpenConns    = 10
	maxIdleConns    = 2
	connMaxLifetime = time.Hour
	queryTimeout    = time.Second * 10
)

const TimeFormat = time.RFC3339

const cartTableSchema = `
    CREATE TABLE IF NOT EXISTS carts (
        cart_key TEXT PRIMARY KEY,
        items_json TEXT NOT NULL DEFAULT '[]',
        updated_at TEXT NOT NULL
    );`

// SQLiteStore keeps carts in a single sqlite table.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (and if needed creates) the cart database.
func OpenSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("cart database path is not configured")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0775); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open cart database: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping cart database: %w", err)
	}

	enablePragmas(ctx, db)

	if _, err := db.ExecContext(ctx, cartTableSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cart schema: %w", err)
	}

	logger.LogInfo("Cart database ready at %s", dbPath)
	return &SQLiteStore{db: db}, nil
}

// enablePragmas applies tuning pragmas; failures are logged, not fatal.
func enablePragmas(ctx context.Context, db *sql.DB) {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			logger.LogWarn("Failed to execute %s: %v", pragma, err)
		}
	}
}

func (s *SQLiteStore) Load(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var items string
	err := s.db.QueryRowContext(ctx, `SELECT items_json FROM carts WHERE cart_key = ?`, key).Scan(&items)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	return []byte(items), nil
}

func (s *SQLiteStore) Save(ctx context.Context, key string, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
        INSERT INTO carts (cart_key, items_json, updated_at) VALUES (?, ?, ?)
        ON CONFLICT(cart_key) DO UPDATE SET items_json = excluded.items_json, updated_at = excluded.updated_at`,
		key, string(data), time.Now().UTC().Format(TimeFormat))
	if err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM carts WHERE cart_key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
