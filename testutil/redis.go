package testutil

import (
	"context"
	"os"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// NewRedis returns a client on TEST_REDIS_URL when set, otherwise on a fresh
// miniredis. The miniredis handle is nil in the first case, so tests that
// need to fast-forward time must skip when it is.
func NewRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	if url := os.Getenv("TEST_REDIS_URL"); url != "" {
		opt, err := redis.ParseURL(url)
		if err != nil {
			t.Fatalf("testutil.NewRedis: parse TEST_REDIS_URL: %v", err)
		}
		rdb := redis.NewClient(opt)
		if err := rdb.FlushDB(context.Background()).Err(); err != nil {
			t.Fatalf("testutil.NewRedis: flush: %v", err)
		}
		t.Cleanup(func() { _ = rdb.Close() })
		return rdb, nil
	}

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb, mr
}
