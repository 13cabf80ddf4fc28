// internal/cart/store.go
package cart

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pixelverk/internal/logger"
)

// StorageKey namespaces every persisted cart record.
const StorageKey = "pixelverk-cart"

// ErrNotFound is returned by a Store when no record exists for a key.
var ErrNotFound = errors.New("cart not found")

// Key returns the storage key for a visitor.
func Key(visitorID string) string {
	return StorageKey + ":" + visitorID
}

// Store holds raw cart records, the server-side stand-in for browser
// local storage. Values are opaque; Decode decides whether they are usable.
type Store interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config selects the cart store
type Config struct {
	Backend   string
	Directory string        // file backend
	DBPath    string        // sqlite backend
	RedisURL  string        // redis backend
	TTL       time.Duration // redis expiry, 0 keeps carts forever
}

// NewStore opens the configured cart store.
func NewStore(ctx context.Context, cfg Config) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", BackendFile:
		logger.LogInfo("Using file cart store in %s", cfg.Directory)
		return NewFileStore(cfg.Directory)
	case BackendSQLite:
		logger.LogInfo("Using sqlite cart store at %s", cfg.DBPath)
		return OpenSQLiteStore(ctx, cfg.DBPath)
	case BackendRedis:
		logger.LogInfo("Using redis cart store")
		return NewRedisStore(ctx, cfg.RedisURL, cfg.TTL)
	default:
		return nil, fmt.Errorf("unknown cart store %q", cfg.Backend)
	}
}

// FileStore keeps one JSON file per cart.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("cart directory is not configured")
	}
	if err := os.MkdirAll(dir, 0775); err != nil {
		return nil, fmt.Errorf("failed to create cart directory %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, strings.ReplaceAll(key, ":", "_")+".json")
}

func (s *FileStore) Load(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cart: %w", err)
	}
	return data, nil
}

// Save writes through a temp file so a crash never leaves half a record.
func (s *FileStore) Save(ctx context.Context, key string, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, ".cart-*")
	if err != nil {
		return fmt.Errorf("failed to create temp cart file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write cart: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write cart: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path(key)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to store cart: %w", err)
	}
	return nil
}

func (s *FileStore) Delete(ctx context.Context, key string) error {
	err := os.Remove(s.path(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	return nil
}

func (s *FileStore) Close() error { return nil }
