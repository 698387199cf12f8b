package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/gitlanes/pkg/cache"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage cached layouts and renderings",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())
	cmd.AddCommand(c.cacheStatsCommand())
	cmd.AddCommand(c.cacheInvalidateCommand())

	return cmd
}

// fileCache opens the configured cache directory. Shared backends have no
// directory to inspect.
func (c *CLI) fileCache() (*cache.FileCache, error) {
	cfg, err := c.config.cacheConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Backend != "" && cfg.Backend != cache.BackendFile {
		return nil, fmt.Errorf("%s cache has no local directory; use 'cache invalidate'", cfg.Backend)
	}
	return cache.NewFileCache(cfg.Dir)
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			fc, err := c.fileCache()
			if err != nil {
				return err
			}
			entries, _, err := fc.Stats()
			if err != nil {
				return err
			}
			if entries == 0 {
				printInfo("Cache is empty")
				return nil
			}
			if err := fc.Clear(); err != nil {
				return err
			}
			printSuccess("Cleared %d cached entries", entries)
			printDetail("Directory: %s", fc.Dir())
			return nil
		},
	}
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory path",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.config.cacheConfig()
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), cfg.Dir)
			return nil
		},
	}
}

// cacheStatsCommand creates the "cache stats" subcommand.
func (c *CLI) cacheStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show the number and size of cached entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			fc, err := c.fileCache()
			if err != nil {
				return err
			}
			entries, bytes, err := fc.Stats()
			if err != nil && !os.IsNotExist(err) {
				return err
			}
			printKeyValue("Directory", fc.Dir())
			printKeyValue("Entries", fmt.Sprintf("%d", entries))
			printKeyValue("Size", formatBytes(bytes))
			return nil
		},
	}
}

// cacheInvalidateCommand creates the "cache invalidate" subcommand. It works
// with every backend by moving the repository to a new cache generation.
func (c *CLI) cacheInvalidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "invalidate [repository]",
		Short: "Drop cached results for one repository",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) > 0 {
				path = args[0]
			}
			runner, err := c.newRunner(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer runner.Close()

			name := repoName(path)
			if err := runner.Invalidate(cmd.Context(), name); err != nil {
				return err
			}
			printSuccess("Invalidated cached results for %s", name)
			return nil
		},
	}
}

// formatBytes renders n with a binary unit.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
