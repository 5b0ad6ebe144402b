package autocomplete

import (
	"fmt"

	"github.com/spf13/cobra"
)

const longHelpTemplate = `Generate the completion script of %[1]s for the given shell.

Bash:
  $ source <(%[1]s completion bash)

Zsh:
  $ %[1]s completion zsh > "${fpath[1]}/_%[1]s"

Fish:
  $ %[1]s completion fish | source

PowerShell:
  PS> %[1]s completion powershell | Out-String | Invoke-Expression
`

// Command returns cobra command generating shell completion scripts of
// the root command. The default completion command of the root is
// disabled.
func Command(root *cobra.Command) *cobra.Command {
	root.CompletionOptions.DisableDefaultCmd = true

	var noDesc bool

	cmd := &cobra.Command{
		Use:                   "completion [bash|zsh|fish|powershell]",
		Short:                 "Generate completion script",
		Long:                  fmt.Sprintf(longHelpTemplate, root.Name()),
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			switch args[0] {
			case "bash":
				return root.GenBashCompletionV2(out, !noDesc)
			case "zsh":
				if noDesc {
					return root.GenZshCompletionNoDesc(out)
				}
				return root.GenZshCompletion(out)
			case "fish":
				return root.GenFishCompletion(out, !noDesc)
			default:
				if noDesc {
					return root.GenPowerShellCompletion(out)
				}
				return root.GenPowerShellCompletionWithDesc(out)
			}
		},
	}

	cmd.Flags().BoolVar(&noDesc, "no-descriptions", false, "Disable completion descriptions")

	return cmd
}
