package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCacheDir(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "")

	dir, err := cacheDir()
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}

	// Verify the expected structure: $HOME/.cache/gitlanes
	home, _ := os.UserHomeDir()
	expected := filepath.Join(home, ".cache", "gitlanes")
	if dir != expected {
		t.Errorf("cacheDir() = %q, want %q", dir, expected)
	}
}

func TestCacheDirXDG(t *testing.T) {
	base := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", base)

	dir, err := cacheDir()
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}
	if dir != filepath.Join(base, "gitlanes") {
		t.Errorf("cacheDir() = %q, want it under %q", dir, base)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{5 * 1024 * 1024, "5.0 MiB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.n); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestFileCacheRejectsSharedBackends(t *testing.T) {
	c := &CLI{Logger: newLogger(os.Stderr, LogInfo)}
	c.config.Cache.Backend = "redis"

	_, err := c.fileCache()
	if err == nil || !strings.Contains(err.Error(), "invalidate") {
		t.Errorf("fileCache() error = %v, want hint at 'cache invalidate'", err)
	}
}
