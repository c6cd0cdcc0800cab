package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/billmal071/mangaunlock/internal/db"
)

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion scripts",
	Long: `Generate shell completion scripts for mangaunlock.

To load completions:

Bash:
  $ source <(mangaunlock completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ mangaunlock completion bash > /etc/bash_completion.d/mangaunlock
  # macOS:
  $ mangaunlock completion bash > /usr/local/etc/bash_completion.d/mangaunlock

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it.  You can execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ mangaunlock completion zsh > "${fpath[1]}/_mangaunlock"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ mangaunlock completion fish | source

  # To load completions for each session, execute once:
  $ mangaunlock completion fish > ~/.config/fish/completions/mangaunlock.fish

PowerShell:
  PS> mangaunlock completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> mangaunlock completion powershell > mangaunlock.ps1
  # and source this file from your PowerShell profile.`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.ExactValidArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletion(os.Stdout)
		case "zsh":
			return rootCmd.GenZshCompletion(os.Stdout)
		case "fish":
			return rootCmd.GenFishCompletion(os.Stdout, true)
		case "powershell":
			return rootCmd.GenPowerShellCompletionWithDesc(os.Stdout)
		default:
			return fmt.Errorf("unsupported shell: %s", args[0])
		}
	},
}

// completeComicIDs provides dynamic completion for comic IDs seen in the purchase history
func completeComicIDs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	purchases, err := db.ListPurchases(0, 500)
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}

	seen := make(map[int]bool)
	var completions []string
	for _, p := range purchases {
		if p.ComicID == 0 || seen[p.ComicID] {
			continue
		}
		seen[p.ComicID] = true
		// Format: "ID<tab>Title"
		completions = append(completions, fmt.Sprintf("%d\t%s", p.ComicID, truncateTitle(p.ComicTitle, 40)))
	}

	return completions, cobra.ShellCompDirectiveNoFileComp
}

// truncateTitle truncates a title to the specified length
func truncateTitle(title string, maxLen int) string {
	r := []rune(title)
	if len(r) <= maxLen {
		return title
	}
	return string(r[:maxLen-3]) + "..."
}
