package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate a shell completion script for macropolo",
	Long: `Generate a completion script covering macropolo commands and flags, such as
run --engine, --preset and --output values.

Load it for the current session:
  bash:       source <(macropolo completion bash)
  zsh:        source <(macropolo completion zsh)
  fish:       macropolo completion fish | source
  powershell: macropolo completion powershell | Out-String | Invoke-Expression

Or write it once to your shell's completion directory, e.g.:
  macropolo completion bash > /etc/bash_completion.d/macropolo`,
	ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		var err error
		switch args[0] {
		case "bash":
			err = cmd.Root().GenBashCompletionV2(out, true)
		case "zsh":
			err = cmd.Root().GenZshCompletion(out)
		case "fish":
			err = cmd.Root().GenFishCompletion(out, true)
		case "powershell":
			err = cmd.Root().GenPowerShellCompletionWithDesc(out)
		}
		if err != nil {
			return fmt.Errorf("error generating %s completion: %w", args[0], err)
		}
		return nil
	},
}
