package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/pyseek/pkg/python"
)

// newestMinor is the highest 3.x offered as a completion candidate.
const newestMinor = 14

func (c *CLI) completionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate a shell completion script for pyseek.

Besides subcommands and flags, the scripts complete interpreter requests
for "find", "pin" and "venv --python": implementation names and the
supported Python 3 minor versions.

Load completions for the current shell:
  bash:        source <(pyseek completion bash)
  zsh:         source <(pyseek completion zsh)
  fish:        pyseek completion fish | source
  powershell:  pyseek completion powershell | Out-String | Invoke-Expression

To keep them, write the script to your shell's completion directory, e.g.
  pyseek completion zsh > "${fpath[1]}/_pyseek"`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, out := cmd.Root(), cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return root.GenBashCompletionV2(out, true)
			case "zsh":
				return root.GenZshCompletion(out)
			case "fish":
				return root.GenFishCompletion(out, true)
			case "powershell":
				return root.GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}
}

// completeRequest completes the positional interpreter request of find and pin.
func completeRequest(_ *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return requestCandidates(toComplete)
}

// completePythonFlag completes the value of --python.
func completePythonFlag(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return requestCandidates(toComplete)
}

// requestCandidates offers interpreter requests starting with toComplete.
// Paths are left to the shell once the input looks like one.
func requestCandidates(toComplete string) ([]string, cobra.ShellCompDirective) {
	if strings.ContainsAny(toComplete, `/\~`) || strings.HasPrefix(toComplete, ".") {
		return nil, cobra.ShellCompDirectiveDefault
	}
	var out []string
	for _, impl := range []python.Implementation{python.CPython, python.PyPy, python.GraalPy} {
		if strings.HasPrefix(string(impl), toComplete) {
			out = append(out, string(impl)+"\t"+impl.Pretty())
		}
	}
	for minor := newestMinor; minor >= 7; minor-- {
		if v := fmt.Sprintf("3.%d", minor); strings.HasPrefix(v, toComplete) {
			out = append(out, v+"\tPython "+v)
		}
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}
