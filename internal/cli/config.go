package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/gitlanes/pkg/cache"
	"github.com/matzehuels/gitlanes/pkg/pipeline"
)

// defaultFetchTimeout bounds fetch and checkout requests served over HTTP.
const defaultFetchTimeout = 30 * time.Second

// Config is the contents of config.toml. Zero values mean "not set";
// command-line flags override anything set here.
type Config struct {
	Render RenderConfig `toml:"render"`
	Walk   WalkConfig   `toml:"walk"`
	Cache  CacheConfig  `toml:"cache"`
	Server ServerConfig `toml:"server"`
}

// RenderConfig holds drawing defaults.
type RenderConfig struct {
	LaneWidth          int    `toml:"lane_width"`
	LoopSpacing        int    `toml:"loop_spacing"`
	NodeHeight         int    `toml:"node_height"`
	NodeMargin         int    `toml:"node_margin"`
	RowLimit           int    `toml:"row_limit"`
	HideComplexHistory bool   `toml:"hide_complex_history"`
	Style              string `toml:"style"`
}

// WalkConfig holds traversal defaults.
type WalkConfig struct {
	OnlyLocal              bool   `toml:"only_local"`
	AlwaysShowPrimaryFirst bool   `toml:"always_show_primary_first"`
	PrimaryBranch          string `toml:"primary_branch"`
	MaxCommits             int    `toml:"max_commits"`
}

// CacheConfig selects and configures the cache backend.
type CacheConfig struct {
	Backend       string `toml:"backend"` // file (default), redis, mongo or none
	Dir           string `toml:"dir"`
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
	MongoURI      string `toml:"mongo_uri"`
	MongoDatabase string `toml:"mongo_database"`
}

// ServerConfig configures the serve command.
type ServerConfig struct {
	Addr         string            `toml:"addr"`
	FetchTimeout duration          `toml:"fetch_timeout"`
	Repos        map[string]string `toml:"repos"` // name -> path
}

// duration reads TOML strings such as "30s" or "5m".
type duration struct{ time.Duration }

func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// loadConfig reads the TOML file at path. A missing file yields an empty
// config unless the path was given explicitly.
func loadConfig(path string, explicit bool) (Config, error) {
	var cfg Config
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("config %s: unknown key %s", path, undecoded[0])
	}
	if cfg.Render.Style != "" {
		if err := pipeline.ValidateStyle(cfg.Render.Style); err != nil {
			return Config{}, fmt.Errorf("config %s: %w", path, err)
		}
	}
	return cfg, nil
}

// configPath returns the config file location using XDG standard
// (~/.config/gitlanes/config.toml).
func configPath() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}

// applyTo fills pipeline options the user left unset.
func (c Config) applyTo(opts *pipeline.Options) {
	r, w := c.Render, c.Walk
	setInt(&opts.LaneWidth, r.LaneWidth)
	setInt(&opts.LoopSpacing, r.LoopSpacing)
	setInt(&opts.NodeHeight, r.NodeHeight)
	setInt(&opts.NodeMargin, r.NodeMargin)
	setInt(&opts.RowLimit, r.RowLimit)
	setInt(&opts.MaxCommits, w.MaxCommits)
	if opts.Style == "" {
		opts.Style = r.Style
	}
	if opts.PrimaryBranch == "" {
		opts.PrimaryBranch = w.PrimaryBranch
	}
	opts.HideComplexHistory = opts.HideComplexHistory || r.HideComplexHistory
	opts.OnlyLocal = opts.OnlyLocal || w.OnlyLocal
	opts.AlwaysShowPrimaryFirst = opts.AlwaysShowPrimaryFirst || w.AlwaysShowPrimaryFirst
}

func setInt(dst *int, v int) {
	if *dst == 0 {
		*dst = v
	}
}

// cacheConfig resolves the cache backend settings.
func (c Config) cacheConfig() (cache.Config, error) {
	cfg := cache.Config{
		Backend: c.Cache.Backend,
		Dir:     c.Cache.Dir,
		Redis: cache.RedisConfig{
			Addr:     c.Cache.RedisAddr,
			Password: c.Cache.RedisPassword,
			DB:       c.Cache.RedisDB,
			Prefix:   appName + ":",
		},
		Mongo: cache.MongoConfig{
			URI:      c.Cache.MongoURI,
			Database: c.Cache.MongoDatabase,
		},
	}
	if cfg.Dir == "" && (cfg.Backend == "" || cfg.Backend == cache.BackendFile) {
		dir, err := cacheDir()
		if err != nil {
			return cache.Config{}, err
		}
		cfg.Dir = dir
	}
	return cfg, nil
}

func (c Config) fetchTimeout() time.Duration {
	if c.Server.FetchTimeout.Duration > 0 {
		return c.Server.FetchTimeout.Duration
	}
	return defaultFetchTimeout
}
