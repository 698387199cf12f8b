package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Errorf("Set error: %v", err)
	}
	data, hit, err := c.Get(ctx, "key")
	if err != nil || hit || data != nil {
		t.Errorf("Get = %q, %v, %v; want miss", data, hit, err)
	}
	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
}

func TestFileCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(filepath.Join(t.TempDir(), "nested", "cache"))
	if err != nil {
		t.Fatal(err)
	}

	if _, hit, err := c.Get(ctx, "missing"); hit || err != nil {
		t.Errorf("Get(missing) = %v, %v", hit, err)
	}

	if err := c.Set(ctx, "graph:abc", []byte("<svg/>"), time.Hour); err != nil {
		t.Fatal(err)
	}
	data, hit, err := c.Get(ctx, "graph:abc")
	if err != nil || !hit || string(data) != "<svg/>" {
		t.Errorf("Get = %q, %v, %v", data, hit, err)
	}

	if err := c.Delete(ctx, "graph:abc"); err != nil {
		t.Fatal(err)
	}
	if _, hit, _ := c.Get(ctx, "graph:abc"); hit {
		t.Error("entry still present after Delete")
	}
	if err := c.Delete(ctx, "graph:abc"); err != nil {
		t.Errorf("second Delete: %v", err)
	}
}

func TestFileCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	_ = c.Set(ctx, "short", []byte("x"), time.Minute)
	_ = c.Set(ctx, "forever", []byte("y"), 0)

	now = now.Add(2 * time.Minute)
	if _, hit, _ := c.Get(ctx, "short"); hit {
		t.Error("expired entry returned")
	}
	if _, err := os.Stat(c.path("short")); !os.IsNotExist(err) {
		t.Error("expired entry not removed")
	}
	if _, hit, _ := c.Get(ctx, "forever"); !hit {
		t.Error("entry without ttl expired")
	}
}

func TestFileCacheCorruptEntry(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())
	path := c.path("bad")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, hit, err := c.Get(ctx, "bad"); hit || err != nil {
		t.Errorf("Get(corrupt) = %v, %v; want silent miss", hit, err)
	}
}

func TestFileCacheStatsAndClear(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())
	for _, k := range []string{"a", "b", "c"} {
		_ = c.Set(ctx, k, []byte(k), 0)
	}
	n, size, err := c.Stats()
	if err != nil || n != 3 || size == 0 {
		t.Errorf("Stats() = %d, %d, %v", n, size, err)
	}
	if err := c.Clear(); err != nil {
		t.Fatal(err)
	}
	if n, _, _ := c.Stats(); n != 0 {
		t.Errorf("Stats() after Clear = %d entries", n)
	}
	if _, err := os.Stat(c.Dir()); err != nil {
		t.Errorf("Clear removed the cache directory: %v", err)
	}
}

func TestHash(t *testing.T) {
	h1 := Hash([]byte("hello"))
	if h1 != Hash([]byte("hello")) {
		t.Error("Hash should be deterministic")
	}
	if h1 == Hash([]byte("world")) {
		t.Error("Different inputs should produce different hashes")
	}
	if len(h1) != 64 {
		t.Errorf("Hash length should be 64, got %d", len(h1))
	}
}

func TestDefaultKeyer(t *testing.T) {
	k := NewDefaultKeyer()
	tips := RefTips{"HEAD": "c3", "refs/heads/main": "c3", "refs/heads/topic": "c1"}

	gk := k.GraphKey("repo", tips, GraphKeyOpts{})
	if !strings.HasPrefix(gk, "graph:") {
		t.Errorf("GraphKey = %q, want graph: prefix", gk)
	}

	moved := RefTips{"HEAD": "c3", "refs/heads/main": "c3", "refs/heads/topic": "c2"}
	tests := []struct {
		name string
		key  string
	}{
		{"moved branch", k.GraphKey("repo", moved, GraphKeyOpts{})},
		{"other repo", k.GraphKey("other", tips, GraphKeyOpts{})},
		{"only local", k.GraphKey("repo", tips, GraphKeyOpts{OnlyLocal: true})},
		{"new generation", k.GraphKey("repo", tips, GraphKeyOpts{Generation: "g2"})},
	}
	for _, tt := range tests {
		if tt.key == gk {
			t.Errorf("%s: key unchanged", tt.name)
		}
	}

	same := RefTips{"refs/heads/topic": "c1", "refs/heads/main": "c3", "HEAD": "c3"}
	if k.GraphKey("repo", same, GraphKeyOpts{}) != gk {
		t.Error("GraphKey depends on map iteration order")
	}

	ak1 := k.ArtifactKey(gk, ArtifactKeyOpts{Format: "svg"})
	ak2 := k.ArtifactKey(gk, ArtifactKeyOpts{Format: "svg", RowStart: 10})
	if ak1 == ak2 || !strings.HasPrefix(ak1, "artifact:") {
		t.Errorf("ArtifactKey = %q, %q", ak1, ak2)
	}

	if got := k.GenerationKey("repo"); got != "gen:repo" {
		t.Errorf("GenerationKey = %q", got)
	}
}

func TestScopedKeyer(t *testing.T) {
	scoped := NewScopedKeyer(NewDefaultKeyer(), "staging:")
	if key := scoped.GraphKey("r", nil, GraphKeyOpts{}); !strings.HasPrefix(key, "staging:graph:") {
		t.Errorf("GraphKey not prefixed: %s", key)
	}
	if key := scoped.ArtifactKey("g", ArtifactKeyOpts{}); !strings.HasPrefix(key, "staging:artifact:") {
		t.Errorf("ArtifactKey not prefixed: %s", key)
	}
	if key := NewScopedKeyer(nil, "p:").GenerationKey("r"); key != "p:gen:r" {
		t.Errorf("Unexpected key with nil inner: %s", key)
	}
}

var errFlaky = errors.New("flaky")

func TestBackendErr(t *testing.T) {
	if backendErr("get", nil) != nil {
		t.Error("backendErr(nil) should return nil")
	}
	err := backendErr("get", errFlaky)
	if !errors.Is(err, ErrBackend) || !errors.Is(err, errFlaky) {
		t.Errorf("backendErr lost a wrapped error: %v", err)
	}
	if !strings.Contains(err.Error(), "get: flaky") {
		t.Errorf("backendErr message = %q", err)
	}
}

func TestWaitReady(t *testing.T) {
	defer func(d time.Duration) { pingDelay = d }(pingDelay)
	pingDelay = time.Millisecond
	ctx := context.Background()

	tests := []struct {
		name      string
		failures  int
		wantErr   bool
		wantCalls int
	}{
		{"ready", 0, false, 1},
		{"starting", 2, false, 3},
		{"down", 10, true, pingAttempts},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := waitReady(ctx, func(context.Context) error {
				calls++
				if calls <= tt.failures {
					return errFlaky
				}
				return nil
			})
			if (err != nil) != tt.wantErr || calls != tt.wantCalls {
				t.Errorf("err = %v, calls = %d; want err %v, calls %d", err, calls, tt.wantErr, tt.wantCalls)
			}
		})
	}
}

func TestWaitReadyContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := waitReady(ctx, func(ctx context.Context) error { return ctx.Err() })
	if err != context.Canceled {
		t.Errorf("Should return context error: %v", err)
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	c, err := Open(ctx, Config{Dir: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.(*FileCache); !ok {
		t.Errorf("Open(default) = %T, want *FileCache", c)
	}
	if c, _ := Open(ctx, Config{Backend: BackendNone}); c != (NullCache{}) {
		t.Errorf("Open(none) = %T", c)
	}
	if _, err := Open(ctx, Config{}); err == nil {
		t.Error("expected error for file cache without directory")
	}
	if _, err := Open(ctx, Config{Backend: "memcached"}); err == nil {
		t.Error("expected error for unknown backend")
	}
}
