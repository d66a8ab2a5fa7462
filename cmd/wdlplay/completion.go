package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newCompletionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "completion <bash|zsh|fish|powershell>",
		Short: "Generate shell completion scripts",
		Long: `Print a completion script for the given shell. Load it from your shell's
startup file to complete wdlplay commands and flags.`,
		Example: `  wdlplay completion bash > /etc/bash_completion.d/wdlplay
  wdlplay completion zsh > "${fpath[1]}/_wdlplay"
  wdlplay completion fish > ~/.config/fish/completions/wdlplay.fish`,
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		DisableFlagsInUseLine: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			root := cmd.Root()

			var err error

			switch args[0] {
			case "bash":
				err = root.GenBashCompletionV2(os.Stdout, true)
			case "zsh":
				err = root.GenZshCompletion(os.Stdout)
			case "fish":
				err = root.GenFishCompletion(os.Stdout, true)
			case "powershell":
				err = root.GenPowerShellCompletionWithDesc(os.Stdout)
			}

			if err != nil {
				return fmt.Errorf("generate %s completion: %w", args[0], err)
			}

			return nil
		},
	}
}
