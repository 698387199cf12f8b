package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/gitlanes/pkg/errors"
	"github.com/matzehuels/gitlanes/pkg/pipeline"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output  string // output file path (or base path for multiple outputs), "-" for stdout
	formats string // comma-separated output formats
	noCache bool
	repo    repoFlags

	pipeline.Options
}

// renderCommand creates the render command for drawing a repository.
func (c *CLI) renderCommand() *cobra.Command {
	var opts renderOpts

	cmd := &cobra.Command{
		Use:   "render [repository]",
		Short: "Render the commit graph of a repository",
		Long: `Render the commit graph of a git working tree (default: the current
directory) or of a history snapshot (.json, .yaml) exported with "gitlanes export".`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) > 0 {
				path = args[0]
			}
			opts.Formats = parseFormats(opts.formats)
			if err := pipeline.ValidateFormats(opts.Formats); err != nil {
				return err
			}
			c.config.applyTo(&opts.Options)
			return c.runRender(cmd.Context(), path, &opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.output, "output", "o", "", "output file (single format) or base path (multiple); - for stdout")
	f.StringVarP(&opts.formats, "format", "f", "", "output format(s): "+strings.Join(pipeline.Formats, ", ")+" (comma-separated)")
	_ = cmd.RegisterFlagCompletionFunc("format", completeFormats)
	f.BoolVar(&opts.noCache, "no-cache", false, "disable caching")
	f.BoolVar(&opts.Refresh, "refresh", false, "ignore cached results and redraw")
	opts.repo.register(cmd)
	registerWalkFlags(cmd, &opts.Options)
	registerDrawFlags(cmd, &opts.Options)
	f.StringVar(&opts.Title, "title", "", "SVG document title")
	f.BoolVar(&opts.Interactive, "interactive", false, "embed click-to-highlight script in SVG output")
	f.BoolVar(&opts.Detailed, "detailed", false, "show subjects and authors in nodelink output")
	f.Float64Var(&opts.Scale, "scale", pipeline.DefaultScale, "PNG resolution multiplier")

	return cmd
}

// registerWalkFlags adds the traversal flags shared by every command that
// builds a graph.
func registerWalkFlags(cmd *cobra.Command, opts *pipeline.Options) {
	f := cmd.Flags()
	f.BoolVar(&opts.OnlyLocal, "only-local", false, "skip remote-tracking branches")
	f.BoolVar(&opts.AlwaysShowPrimaryFirst, "primary-first", false, "trace the primary branch before the checkout")
	f.StringVar(&opts.PrimaryBranch, "primary", "", "primary branch (default: main, then master)")
	f.IntVar(&opts.MaxCommits, "max-commits", 0, "stop after this many commits (0 = no limit)")
}

// registerDrawFlags adds the flags that change the lane drawing.
func registerDrawFlags(cmd *cobra.Command, opts *pipeline.Options) {
	f := cmd.Flags()
	f.IntVar(&opts.RowStart, "row-start", 0, "first row to draw")
	f.IntVar(&opts.RowLimit, "row-limit", 0, "number of rows to draw (0 = all)")
	f.StringVar(&opts.Highlight, "highlight", "", "commit ID, unique prefix or reference to emphasize")
	f.StringVar(&opts.Style, "style", "", "lane palette: color (default), mono")
	f.BoolVar(&opts.HideComplexHistory, "hide-complex", false, "draw straight lines instead of loops")
	f.BoolVar(&opts.HideMessages, "hide-messages", false, "omit commit subjects")
	f.IntVar(&opts.LaneWidth, "lane-width", 0, "horizontal distance between lanes in pixels")
	f.IntVar(&opts.LoopSpacing, "loop-spacing", 0, "horizontal distance between nested loops in pixels")
	f.IntVar(&opts.NodeHeight, "node-height", 0, "commit marker diameter in pixels")
	f.IntVar(&opts.NodeMargin, "node-margin", 0, "vertical gap between markers in pixels")
}

// runRender draws the repository at path and writes one file per format.
func (c *CLI) runRender(ctx context.Context, path string, opts *renderOpts) error {
	logger := loggerFromContext(ctx)

	repo, err := openRepository(ctx, path, opts.repo)
	if err != nil {
		return err
	}
	runner, err := c.newRunner(ctx, opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	spinner := startSpinner(ctx, "Drawing lanes...")
	result, err := runner.Execute(ctx, repoName(path), repo, opts.Options)
	spinner.Stop()
	if err != nil {
		printError("%s", errors.UserMessage(err))
		return err
	}

	if result.Graph != nil {
		printStats(result.Stats.Commits, result.Stats.Columns, false)
		if result.Stats.Truncated {
			printWarning("History truncated at %d commits", opts.MaxCommits)
		}
	} else {
		printStats(0, 0, true)
	}

	if opts.output == "-" {
		if len(opts.Formats) != 1 {
			return fmt.Errorf("stdout output needs exactly one format")
		}
		_, err := os.Stdout.Write(result.Artifacts[opts.Formats[0]])
		return err
	}

	base := basePath(opts.output, path)
	for _, format := range opts.Formats {
		out := fmt.Sprintf("%s.%s", base, extension(format))
		if len(opts.Formats) == 1 && opts.output != "" {
			out = opts.output
		}
		if err := writeFile(out, result.Artifacts[format]); err != nil {
			return err
		}
		logger.Debug("wrote artifact", "format", format, "bytes", len(result.Artifacts[format]))
		printFile(out)
	}
	return nil
}

// extension maps a format to its file extension.
func extension(format string) string {
	switch format {
	case pipeline.FormatJSON:
		return "scene.json"
	case pipeline.FormatLayout:
		return "layout.json"
	case pipeline.FormatNodelink:
		return "nodelink.svg"
	default:
		return format
	}
}

// basePath derives the base output path from the output and repository
// paths. A known format extension on output is stripped; without output the
// repository's directory name (or snapshot file name) is used.
func basePath(output, repoPath string) string {
	if output == "" {
		if repoPath == "" {
			repoPath = "."
		}
		abs, err := filepath.Abs(repoPath)
		if err != nil {
			abs = repoPath
		}
		name := filepath.Base(abs)
		return strings.TrimSuffix(name, filepath.Ext(name))
	}
	ext := filepath.Ext(output)
	if slices.Contains(pipeline.Formats, strings.TrimPrefix(ext, ".")) {
		return strings.TrimSuffix(output, ext)
	}
	return output
}

func writeFile(path string, data []byte) error {
	out, err := openOutput(path)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = out.Write(data)
	return err
}

// openOutput opens path for writing, or stdout for "" and "-".
func openOutput(path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopCloser{os.Stdout}, nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return os.Create(path)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
