package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/systmms/secretmem/internal/config"
	"github.com/systmms/secretmem/pkg/secretmem"
)

// NewCompletionCommand creates the completion command for generating shell completions.
func NewCompletionCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for secretmem.

Backend names given to --backend are completed from what this system
supports, with usable backends marked.

Bash:
  $ source <(secretmem completion bash)

Zsh:
  $ secretmem completion zsh > "${fpath[1]}/_secretmem"

Fish:
  $ secretmem completion fish | source

PowerShell:
  PS> secretmem completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletionV2(cmd.OutOrStdout(), true)
			case "zsh":
				return cmd.Root().GenZshCompletion(cmd.OutOrStdout())
			case "fish":
				return cmd.Root().GenFishCompletion(cmd.OutOrStdout(), true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(cmd.OutOrStdout())
			}
			return nil
		},
	}

	return cmd
}

// completeBackendNames completes backend names, describing each with its
// probe result on this system.
func completeBackendNames(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	var names []string
	for _, result := range secretmem.Probe() {
		name := result.Backend.String()
		if !strings.HasPrefix(name, toComplete) {
			continue
		}
		status := "usable"
		if result.Err != nil {
			status = "unavailable"
		}
		names = append(names, fmt.Sprintf("%s\t%s", name, status))
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}
