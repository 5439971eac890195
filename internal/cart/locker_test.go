package cart_test

import (
	"context"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/forneria-pos/internal/cart"
	"github.com/noah-isme/forneria-pos/internal/lock"
	"github.com/noah-isme/forneria-pos/internal/storage"
)

// Two stores stand in for two processes sharing one Redis cart.
func TestSharedRedisCartWithLocker(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	newStore := func() *cart.Store {
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		locker := lock.Locker{R: client, Prefix: "pos:caja-1:", RetryBackoff: time.Millisecond}
		return cart.NewStore(storage.NewRedis(client, "caja-1"), "", zerolog.Nop()).WithLocker(locker)
	}
	a, b := newStore(), newStore()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	const perStore = 25
	var wg sync.WaitGroup
	for _, s := range []*cart.Store{a, b} {
		wg.Add(1)
		go func(s *cart.Store) {
			defer wg.Done()
			for i := 0; i < perStore; i++ {
				_, err := s.Add(ctx, "1", "Pan", 150)
				require.NoError(t, err)
			}
		}(s)
	}
	wg.Wait()

	items := a.Load(ctx)
	require.Len(t, items, 1)
	require.Equal(t, 2*perStore, items[0].Qty)
}
