package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/matzehuels/gitlanes/pkg/errors"
	"github.com/matzehuels/gitlanes/pkg/graph"
	"github.com/matzehuels/gitlanes/pkg/pipeline"
)

// layoutCommand creates the layout command for exporting the cell grid.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		output  string
		noCache bool
		rf      repoFlags
		opts    pipeline.Options
	)

	cmd := &cobra.Command{
		Use:   "layout [repository]",
		Short: "Compute the lane layout of a repository",
		Long: `Compute the lane layout of a repository.

The output is a layout.json file (same format as 'render -f layout') listing
every commit with its row, column and display flags, plus the reference set.
Results are cached until a reference moves.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) > 0 {
				path = args[0]
			}
			c.config.applyTo(&opts)
			return c.runLayout(cmd.Context(), path, opts, rf, output, noCache)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&opts.Refresh, "refresh", false, "ignore cached results")
	cmd.Flags().IntVar(&opts.RowOffset, "row-offset", 0, "absolute row of the newest commit")
	rf.register(cmd)
	registerWalkFlags(cmd, &opts)

	return cmd
}

func (c *CLI) runLayout(ctx context.Context, path string, opts pipeline.Options, rf repoFlags, output string, noCache bool) error {
	logger := loggerFromContext(ctx)
	prog := newProgress(logger)

	repo, err := openRepository(ctx, path, rf)
	if err != nil {
		return err
	}
	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	l, hit, err := runner.LayoutWithCacheInfo(ctx, repoName(path), repo, opts)
	if err != nil {
		printError("%s", errors.UserMessage(err))
		return err
	}
	data, err := graph.MarshalLayout(l)
	if err != nil {
		return err
	}
	if err := writeFile(output, data); err != nil {
		return err
	}

	prog.done("Computed layout", "cells", len(l.Cells), "lanes", l.Columns)
	if output != "" {
		printStats(len(l.Cells), l.Columns, hit)
		printFile(output)
	}
	return nil
}
