package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/gitlanes/pkg/pipeline"
)

// completionCommand writes a shell completion script to stdout.
func (c *CLI) completionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate a completion script for gitlanes.

  bash:        source <(gitlanes completion bash)
  zsh:         gitlanes completion zsh > "${fpath[1]}/_gitlanes"
  fish:        gitlanes completion fish | source
  powershell:  gitlanes completion powershell | Out-String | Invoke-Expression

Persist a script by redirecting it into your shell's completion directory.`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, out := cmd.Root(), cmd.OutOrStdout()
			switch args[0] {
			case "zsh":
				return root.GenZshCompletion(out)
			case "fish":
				return root.GenFishCompletion(out, true)
			case "powershell":
				return root.GenPowerShellCompletionWithDesc(out)
			default:
				return root.GenBashCompletionV2(out, true)
			}
		},
	}
}

// completeFormats offers the render formats for --format.
func completeFormats(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return pipeline.Formats, cobra.ShellCompDirectiveNoFileComp
}
