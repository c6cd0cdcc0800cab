package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/billmal071/mangaunlock/internal/bilimanga"
	"github.com/billmal071/mangaunlock/internal/tui"
)

var searchCmd = &cobra.Command{
	Use:   "search [keyword]",
	Short: "Search for comics",
	Long: `Search the store for comics matching the keyword.

By default, shows an interactive selector to choose from the results.
Use -u/--unlock to unlock every locked chapter of the selected comic.

Examples:
  mangaunlock search "pastel"
  mangaunlock search --no-interactive "pastel"
  mangaunlock search -u "pastel"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntP("limit", "n", 0, "number of results to show (default: all)")
	searchCmd.Flags().BoolP("unlock", "u", false, "unlock the selected comic's chapters")
	searchCmd.Flags().Bool("no-interactive", false, "disable interactive mode, just print results")
}

func runSearch(cmd *cobra.Command, args []string) error {
	keyword := strings.Join(args, " ")
	limit, _ := cmd.Flags().GetInt("limit")
	unlock, _ := cmd.Flags().GetBool("unlock")
	noInteractive, _ := cmd.Flags().GetBool("no-interactive")

	return searchAndSelect(cmd, keyword, limit, unlock, noInteractive)
}

// searchAndSelect runs a search and lets the user pick a result
func searchAndSelect(cmd *cobra.Command, keyword string, limit int, unlock, noInteractive bool) error {
	Printf("Searching for: %s\n", keyword)

	client := newClient()

	ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
	defer cancel()

	comics, searchID, err := searchComics(ctx, client, keyword)
	if err != nil {
		return err
	}
	outcome := &searchOutcome{id: searchID}

	if limit > 0 && len(comics) > limit {
		comics = comics[:limit]
	}

	if len(comics) == 0 {
		fmt.Println("No comics found matching your query.")
		return nil
	}

	Printf("Found %d result(s)\n\n", len(comics))

	// Non-interactive mode: just print results
	if noInteractive {
		printComics(comics)
		return nil
	}

	selected, err := tui.RunSelector(comics, fmt.Sprintf("Results for %q", keyword))
	if err != nil {
		return fmt.Errorf("selection failed: %w", err)
	}

	if selected == nil {
		return nil // User cancelled
	}

	fmt.Println()
	outcome.pick(selected)

	if unlock {
		cred, err := resolveCredential(cmd)
		if err != nil {
			return err
		}
		n, err := unlockComic(cmd.Context(), client, cred, selected.ID, 0)
		outcome.unlocked(selected, n)
		return err
	}

	fmt.Printf("Selected: %s\n", tui.FormatComic(selected))
	fmt.Printf("\nTo unlock its chapters, run:\n")
	fmt.Printf("  mangaunlock purchaseAll --comic-id %d\n", selected.ID)

	return nil
}

// printComics prints comics in a simple format
func printComics(comics []*bilimanga.Comic) {
	for i, comic := range comics {
		fmt.Printf("%d. %s\n", i+1, tui.FormatComic(comic))
		if authors := comic.AuthorsString(); authors != "" {
			fmt.Printf("   Author: %s\n", authors)
		}
		if styles := comic.StylesString(); styles != "" {
			fmt.Printf("   Styles: %s\n", styles)
		}
		fmt.Println()
	}
}
