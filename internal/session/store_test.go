package session

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func runStoreSuite(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()
	idle := 6 * time.Hour

	t.Run("Touch Fresh Refreshes", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Create(ctx, Record{ID: "s1", Email: "a@x.com", CreatedAt: base, LastActivity: base}))

		rec, err := s.Touch(ctx, "s1", base.Add(time.Hour), idle)
		require.NoError(t, err)
		assert.True(t, rec.LastActivity.Equal(base.Add(time.Hour)))

		stored, err := s.Get(ctx, "s1")
		require.NoError(t, err)
		assert.True(t, stored.LastActivity.Equal(base.Add(time.Hour)))
		assert.Equal(t, "a@x.com", stored.Email)
	})

	t.Run("Touch Never Moves Backwards", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Create(ctx, Record{ID: "s1", CreatedAt: base, LastActivity: base.Add(time.Hour)}))

		rec, err := s.Touch(ctx, "s1", base, idle)
		require.NoError(t, err)
		assert.True(t, rec.LastActivity.Equal(base.Add(time.Hour)))
	})

	t.Run("Touch Expired Keeps Record", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Create(ctx, Record{ID: "s1", CreatedAt: base, LastActivity: base}))

		_, err := s.Touch(ctx, "s1", base.Add(7*time.Hour), idle)
		assert.ErrorIs(t, err, ErrExpired)

		stored, err := s.Get(ctx, "s1")
		require.NoError(t, err)
		assert.True(t, stored.LastActivity.Equal(base), "expired touch must not refresh")
	})

	t.Run("Touch Missing", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Touch(ctx, "nope", base, idle)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Delete Reports Presence", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Create(ctx, Record{ID: "s1", CreatedAt: base, LastActivity: base}))

		ok, err := s.Delete(ctx, "s1")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = s.Delete(ctx, "s1")
		require.NoError(t, err)
		assert.False(t, ok)

		_, err = s.Get(ctx, "s1")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Delete Expired", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Create(ctx, Record{ID: "old", CreatedAt: base, LastActivity: base}))
		require.NoError(t, s.Create(ctx, Record{ID: "new", CreatedAt: base, LastActivity: base.Add(5 * time.Hour)}))

		n, err := s.DeleteExpired(ctx, base.Add(7*time.Hour), idle)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		_, err = s.Get(ctx, "old")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.Get(ctx, "new")
		assert.NoError(t, err)
	})

	t.Run("Concurrent Touch", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Create(ctx, Record{ID: "s1", CreatedAt: base, LastActivity: base}))

		var wg sync.WaitGroup
		for i := 1; i <= 20; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := s.Touch(ctx, "s1", base.Add(time.Duration(i)*time.Minute), idle)
				assert.NoError(t, err)
			}(i)
		}
		wg.Wait()

		stored, err := s.Get(ctx, "s1")
		require.NoError(t, err)
		assert.True(t, stored.LastActivity.Equal(base.Add(20*time.Minute)),
			"last activity = %v, want the latest touch", stored.LastActivity)
	})
}

func TestInMemoryStore(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) Store {
		return NewInMemoryStore()
	})
}

func TestSQLiteStore(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) Store {
		s, err := OpenSQLiteStore(filepath.Join(t.TempDir(), "sessions.db"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

// TestRedisStore runs against an in-process server, or against a real one if
// SIGNATURE_TEST_REDIS is set, e.g. SIGNATURE_TEST_REDIS=localhost:6379.
func TestRedisStore(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) Store {
		prefix := "signature-test:" + t.Name() + ":"
		s := NewRedisStoreFromClient(redis.NewClient(&redis.Options{Addr: redisAddr(t)}), prefix)
		t.Cleanup(func() {
			_, _ = s.DeleteExpired(context.Background(), base.Add(1000*time.Hour), 0)
			_ = s.Close()
		})
		return s
	})
}

func redisAddr(t *testing.T) string {
	t.Helper()
	if addr := os.Getenv("SIGNATURE_TEST_REDIS"); addr != "" {
		return addr
	}
	return miniredis.RunT(t).Addr()
}

func TestRedisStore_TouchSetsTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	s := NewRedisStoreFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "sess:")
	t.Cleanup(func() { _ = s.Close() })
	ctx := context.Background()
	idle := 6 * time.Hour

	require.NoError(t, s.Create(ctx, Record{ID: "s1", CreatedAt: base, LastActivity: base}))
	assert.Zero(t, mr.TTL("sess:s1"), "no ttl before the first touch")

	_, err := s.Touch(ctx, "s1", base.Add(time.Minute), idle)
	require.NoError(t, err)
	assert.Equal(t, idle+time.Minute, mr.TTL("sess:s1"))

	// an untouched key cleans itself up
	mr.FastForward(idle + 2*time.Minute)
	_, err = s.Get(ctx, "s1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_ServerDown(t *testing.T) {
	mr := miniredis.RunT(t)
	s := NewRedisStoreFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1}), "sess:")
	t.Cleanup(func() { _ = s.Close() })
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, Record{ID: "s1", CreatedAt: base, LastActivity: base}))
	mr.Close()

	_, err := s.Touch(ctx, "s1", base, time.Hour)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrExpired)
}
