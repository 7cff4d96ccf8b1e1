package token

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func registries(t *testing.T) map[string]Registry {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return map[string]Registry{
		"memory": NewMemoryRegistry(),
		"redis":  NewRedisRegistry(client, time.Hour),
	}
}

func TestRegistryPutSubjectRemove(t *testing.T) {
	for name, reg := range registries(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			subject, err := reg.Subject(ctx, "missing")
			require.NoError(t, err)
			require.Empty(t, subject)

			require.NoError(t, reg.Put(ctx, "tok-a", "acct-1"))
			subject, err = reg.Subject(ctx, "tok-a")
			require.NoError(t, err)
			require.Equal(t, "acct-1", subject)

			require.NoError(t, reg.Remove(ctx, "tok-a"))
			subject, err = reg.Subject(ctx, "tok-a")
			require.NoError(t, err)
			require.Empty(t, subject)

			// Removing an unknown token is a no-op.
			require.NoError(t, reg.Remove(ctx, "tok-a"))
		})
	}
}

func TestRegistryRemoveSubject(t *testing.T) {
	for name, reg := range registries(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, reg.Put(ctx, "tok-a", "acct-1"))
			require.NoError(t, reg.Put(ctx, "tok-b", "acct-1"))
			require.NoError(t, reg.Put(ctx, "tok-c", "acct-2"))

			removed, err := reg.RemoveSubject(ctx, "acct-1")
			require.NoError(t, err)
			require.Equal(t, 2, removed)

			for _, tok := range []string{"tok-a", "tok-b"} {
				subject, err := reg.Subject(ctx, tok)
				require.NoError(t, err)
				require.Empty(t, subject)
			}
			subject, err := reg.Subject(ctx, "tok-c")
			require.NoError(t, err)
			require.Equal(t, "acct-2", subject)

			// An unknown subject removes nothing.
			removed, err = reg.RemoveSubject(ctx, "acct-3")
			require.NoError(t, err)
			require.Zero(t, removed)
		})
	}
}

func TestMemoryRegistryConcurrentAccess(t *testing.T) {
	reg := NewMemoryRegistry()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				tok := fmt.Sprintf("tok-%d-%d", n, j)
				_ = reg.Put(ctx, tok, fmt.Sprintf("acct-%d", n))
				_, _ = reg.Subject(ctx, tok)
				_ = reg.Remove(ctx, tok)
			}
		}(i)
	}
	wg.Wait()
}
