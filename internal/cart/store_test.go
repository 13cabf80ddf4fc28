package cart

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stores runs fn against every backend available here. Redis only runs
// when REDIS_TEST_URL points at a server.
func stores(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("file", func(t *testing.T) {
		s, err := NewFileStore(t.TempDir())
		require.NoError(t, err)
		fn(t, s)
	})
	t.Run("sqlite", func(t *testing.T) {
		s, err := OpenSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "carts.db"))
		require.NoError(t, err)
		defer s.Close()
		fn(t, s)
	})
	t.Run("redis", func(t *testing.T) {
		url := os.Getenv("REDIS_TEST_URL")
		if url == "" {
			t.Skip("REDIS_TEST_URL not set")
		}
		s, err := NewRedisStore(context.Background(), url, time.Minute)
		require.NoError(t, err)
		defer s.Close()
		fn(t, s)
	})
}

func TestStoreRoundTrip(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		key := Key("3f1b2c0e-8d4a-4a51-9a43-0c1e2f3a4b5c")

		_, err := s.Load(ctx, key)
		assert.True(t, errors.Is(err, ErrNotFound))

		require.NoError(t, s.Save(ctx, key, []byte(`[{"id":"heart"}]`)))
		data, err := s.Load(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, `[{"id":"heart"}]`, string(data))

		require.NoError(t, s.Save(ctx, key, []byte(`[]`)))
		data, err = s.Load(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, `[]`, string(data))

		require.NoError(t, s.Delete(ctx, key))
		_, err = s.Load(ctx, key)
		assert.True(t, errors.Is(err, ErrNotFound))

		// deleting twice is fine
		require.NoError(t, s.Delete(ctx, key))
	})
}

func TestKey(t *testing.T) {
	assert.Equal(t, "pixelverk-cart:abc", Key("abc"))
}

func TestNewStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := NewStore(ctx, Config{Backend: "file", Directory: filepath.Join(dir, "carts")})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	s, err = NewStore(ctx, Config{Backend: "sqlite", DBPath: filepath.Join(dir, "db", "carts.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())

	_, err = NewStore(ctx, Config{Backend: "memcached"})
	assert.Error(t, err)

	_, err = NewStore(ctx, Config{Backend: "redis", RedisURL: "not a url"})
	assert.Error(t, err)
}
