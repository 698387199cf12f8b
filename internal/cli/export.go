package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/gitlanes/pkg/graph"
	"github.com/matzehuels/gitlanes/pkg/repo/fixture"
)

// exportCommand creates the export command, which snapshots a repository's
// references and commits into a history file that every other command can
// read in place of a working tree.
func (c *CLI) exportCommand() *cobra.Command {
	var (
		output string
		limit  int
		yaml   bool
		rf     repoFlags
	)

	cmd := &cobra.Command{
		Use:   "export [repository]",
		Short: "Export a repository's history as JSON or YAML",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) > 0 {
				path = args[0]
			}
			enc := graph.EncodingJSON
			if output != "" {
				enc = graph.EncodingFor(output)
			} else if yaml {
				enc = graph.EncodingYAML
			}
			return runExport(cmd.Context(), path, rf, output, enc, limit)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file; .yaml/.yml selects YAML (default: stdout)")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of commits (0 = all)")
	cmd.Flags().BoolVar(&yaml, "yaml", false, "write YAML to stdout")
	rf.register(cmd)

	return cmd
}

func runExport(ctx context.Context, path string, rf repoFlags, output string, enc graph.Encoding, limit int) error {
	prog := newProgress(loggerFromContext(ctx))

	repo, err := openRepository(ctx, path, rf)
	if err != nil {
		return err
	}
	h, err := fixture.Capture(ctx, repo, limit)
	if err != nil {
		return fmt.Errorf("capture history: %w", err)
	}
	data, err := graph.MarshalHistory(h, enc)
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}
	if err := writeFile(output, data); err != nil {
		return err
	}

	prog.done("Exported history", "commits", len(h.Commits), "branches", len(h.Branches), "tags", len(h.Tags))
	if output != "" {
		printFile(output)
		printNextStep("Render it with", "gitlanes render "+output)
	}
	return nil
}
