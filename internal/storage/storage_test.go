package storage_test

import (
	"context"
	"path/filepath"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/forneria-pos/internal/storage"
)

func backends(t *testing.T) map[string]func(origin string) storage.Storage {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	dbPath := filepath.Join(t.TempDir(), "pos.db")

	return map[string]func(string) storage.Storage{
		"memory": func(string) storage.Storage { return storage.NewMemory() },
		"bolt": func(origin string) storage.Storage {
			b, err := storage.OpenBolt(dbPath, origin)
			require.NoError(t, err)
			return b
		},
		"redis": func(origin string) storage.Storage { return storage.NewRedis(client, origin) },
	}
}

func TestStorageRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open("caja-1")
			defer func() { _ = s.Close() }()

			_, ok, err := s.GetItem(ctx, "cart")
			require.NoError(t, err)
			require.False(t, ok)

			require.NoError(t, s.SetItem(ctx, "cart", `[{"id":"1"}]`))
			require.NoError(t, s.SetItem(ctx, "cart", `[]`))
			value, ok, err := s.GetItem(ctx, "cart")
			require.NoError(t, err)
			require.True(t, ok)
			require.Equal(t, `[]`, value)

			require.NoError(t, s.RemoveItem(ctx, "cart"))
			require.NoError(t, s.RemoveItem(ctx, "cart"))
			_, ok, err = s.GetItem(ctx, "cart")
			require.NoError(t, err)
			require.False(t, ok)

			require.NoError(t, s.Ping(ctx))
		})
	}
}

func TestRedisOriginsAreIsolated(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	ctx := context.Background()
	a := storage.NewRedis(client, "caja-1")
	b := storage.NewRedis(client, "caja-2")
	require.NoError(t, a.SetItem(ctx, "cart", "a"))
	_, ok, err := b.GetItem(ctx, "cart")
	require.NoError(t, err)
	require.False(t, ok)
	require.True(t, mr.Exists("pos:caja-1:cart"))
}

func TestBoltPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "pos.db")

	first, err := storage.OpenBolt(path, "caja-1")
	require.NoError(t, err)
	require.NoError(t, first.SetItem(ctx, "cart", "persisted"))
	require.NoError(t, first.Close())

	second, err := storage.OpenBolt(path, "caja-1")
	require.NoError(t, err)
	defer func() { _ = second.Close() }()
	value, ok, err := second.GetItem(ctx, "cart")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "persisted", value)
}

func TestMemoryClosed(t *testing.T) {
	m := storage.NewMemory()
	require.NoError(t, m.Close())
	_, _, err := m.GetItem(context.Background(), "cart")
	require.ErrorIs(t, err, storage.ErrClosed)
}
