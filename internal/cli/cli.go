package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/gitlanes/pkg/buildinfo"
	"github.com/matzehuels/gitlanes/pkg/cache"
	"github.com/matzehuels/gitlanes/pkg/core/walk"
	"github.com/matzehuels/gitlanes/pkg/pipeline"
	"github.com/matzehuels/gitlanes/pkg/repo/fixture"
	"github.com/matzehuels/gitlanes/pkg/repo/gitcli"
	"github.com/matzehuels/gitlanes/pkg/repo/gogit"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "gitlanes"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
	LogWarn  = log.WarnLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configFile string
	config     Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "gitlanes draws git history as swim lanes",
		Long:         `gitlanes lays out the commit graph of a repository in columns ("lanes") and renders it as SVG, JSON, Graphviz, PNG or PDF, from the command line, over HTTP or in the terminal.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := c.loadConfig(); err != nil {
				return err
			}
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configFile, "config", "", "config file (default $XDG_CONFIG_HOME/gitlanes/config.toml)")

	// Register all subcommands
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.exportCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.browseCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())
	root.AddCommand(versionCommand())

	return root
}

// versionCommand prints the build information.
func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), buildinfo.String())
		},
	}
}

func (c *CLI) loadConfig() error {
	path, explicit := c.configFile, c.configFile != ""
	if !explicit {
		p, err := configPath()
		if err != nil {
			return nil
		}
		path = p
	}
	cfg, err := loadConfig(path, explicit)
	if err != nil {
		return err
	}
	c.config = cfg
	c.Logger.Debug("loaded config", "path", path)
	return nil
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	cache, err := c.newCache(ctx, noCache)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(cache, nil, c.Logger), nil
}

func (c *CLI) newCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	cfg, err := c.config.cacheConfig()
	if err != nil {
		c.Logger.Warn("caching disabled", "error", err)
		return cache.NewNullCache(), nil
	}
	return cache.Open(ctx, cfg)
}

// =============================================================================
// Repositories
// =============================================================================

// repoFlags selects how a repository argument is read.
type repoFlags struct {
	gitCLI bool // read through the git executable instead of go-git
}

func (f *repoFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.gitCLI, "git-cli", false, "read the repository with the git executable")
}

// openRepository opens a working tree, or a history snapshot when path is
// a .json, .yaml or .yml file. An empty path means the current directory.
func openRepository(ctx context.Context, path string, f repoFlags) (walk.Repository, error) {
	if path == "" {
		path = "."
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return fixture.Load(path)
	}
	if f.gitCLI {
		return gitcli.Open(ctx, path)
	}
	return gogit.Open(path)
}

// repoName derives a cache name for the repository at path.
func repoName(path string) string {
	if path == "" {
		path = "."
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	base := filepath.Base(abs)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	name := strings.TrimLeft(b.String(), ".-_")
	if name == "" {
		name = "repo"
	}
	return fmt.Sprintf("%s-%s", name, cache.Hash([]byte(abs))[:8])
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/gitlanes/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// =============================================================================
// Options Helpers
// =============================================================================

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if s == "" {
		return []string{pipeline.FormatSVG}
	}
	return strings.Split(s, ",")
}
