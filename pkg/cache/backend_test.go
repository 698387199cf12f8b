package cache

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
)

// exerciseCache runs the behaviour every backend shares.
func exerciseCache(t *testing.T, c Cache) {
	t.Helper()
	ctx := context.Background()
	key := "test:" + uuid.NewString()

	if _, hit, err := c.Get(ctx, key); hit || err != nil {
		t.Fatalf("Get(new key) = %v, %v", hit, err)
	}
	if err := c.Set(ctx, key, []byte("payload"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	data, hit, err := c.Get(ctx, key)
	if err != nil || !hit || string(data) != "payload" {
		t.Fatalf("Get = %q, %v, %v", data, hit, err)
	}
	if err := c.Set(ctx, key, []byte("replaced"), 0); err != nil {
		t.Fatalf("Set (replace): %v", err)
	}
	if data, _, _ := c.Get(ctx, key); string(data) != "replaced" {
		t.Errorf("Get after replace = %q", data)
	}
	if err := c.Delete(ctx, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, hit, _ := c.Get(ctx, key); hit {
		t.Error("entry present after Delete")
	}
}

func TestFileCacheContract(t *testing.T) {
	c, _ := NewFileCache(t.TempDir())
	exerciseCache(t, c)
}

// Set GITLANES_TEST_REDIS=host:port to run against a live server.
func TestRedisCache(t *testing.T) {
	addr := os.Getenv("GITLANES_TEST_REDIS")
	if addr == "" {
		t.Skip("GITLANES_TEST_REDIS not set")
	}
	c, err := NewRedisCache(context.Background(), RedisConfig{Addr: addr, Prefix: "gitlanes-test:"})
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	exerciseCache(t, c)
}

func TestRedisCacheUnreachable(t *testing.T) {
	defer func(d time.Duration) { pingDelay = d }(pingDelay)
	pingDelay = time.Millisecond

	_, err := NewRedisCache(context.Background(), RedisConfig{Addr: "127.0.0.1:1", Timeout: 100 * time.Millisecond})
	if !errors.Is(err, ErrBackend) {
		t.Errorf("NewRedisCache error = %v, want ErrBackend", err)
	}
}

// Set GITLANES_TEST_MONGO=mongodb://... to run against a live server.
func TestMongoCache(t *testing.T) {
	uri := os.Getenv("GITLANES_TEST_MONGO")
	if uri == "" {
		t.Skip("GITLANES_TEST_MONGO not set")
	}
	c, err := NewMongoCache(context.Background(), MongoConfig{URI: uri, Database: "gitlanes_test"})
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	exerciseCache(t, c)

	ctx := context.Background()
	now := time.Now()
	c.now = func() time.Time { return now }
	_ = c.Set(ctx, "expiring", []byte("x"), time.Second)
	now = now.Add(time.Minute)
	if _, hit, _ := c.Get(ctx, "expiring"); hit {
		t.Error("expired document returned before the TTL sweep")
	}
	_ = c.Delete(ctx, "expiring")
}

func TestMongoCacheUnreachable(t *testing.T) {
	defer func(d time.Duration) { pingDelay = d }(pingDelay)
	pingDelay = time.Millisecond

	_, err := NewMongoCache(context.Background(), MongoConfig{URI: "mongodb://127.0.0.1:1", Timeout: 100 * time.Millisecond})
	if !errors.Is(err, ErrBackend) {
		t.Errorf("NewMongoCache error = %v, want ErrBackend", err)
	}
}
