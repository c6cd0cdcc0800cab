package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/billmal071/mangaunlock/internal/db"
	"github.com/billmal071/mangaunlock/internal/tui"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View and manage purchase and search history",
	Long: `View and manage the purchase ledger and your search history.

Every unlock attempt is recorded unless purchase.record_history is false.

Examples:
  mangaunlock history                     List recent unlock attempts
  mangaunlock history list --comic-id 1   List attempts for one comic
  mangaunlock history list --batch ID     List the attempts of one batch
  mangaunlock history stats               Show ledger totals
  mangaunlock history searches            List recent searches
  mangaunlock history searches -s         Run a past search again
  mangaunlock history clear               Clear all history`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return showPurchases(0, 20)
	},
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent unlock attempts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		comicID, _ := cmd.Flags().GetInt("comic-id")
		batchID, _ := cmd.Flags().GetString("batch")

		if batchID != "" {
			return showBatch(batchID)
		}
		return showPurchases(comicID, limit)
	},
}

var historyStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show purchase ledger totals",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		stats, err := db.GetPurchaseStats()
		if err != nil {
			return fmt.Errorf("failed to get purchase stats: %w", err)
		}

		fmt.Println("Purchase History")
		fmt.Println("─────────────────────────")
		fmt.Printf("Attempts:  %d\n", stats.Total)
		fmt.Printf("Unlocked:  %d\n", stats.Succeeded)
		fmt.Printf("Failed:    %d\n", stats.Failed)
		fmt.Printf("Batches:   %d\n", stats.Batches)
		fmt.Printf("Comics:    %d\n", stats.Comics)
		return nil
	},
}

var historySearchesCmd = &cobra.Command{
	Use:   "searches",
	Short: "List recent searches",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		pick, _ := cmd.Flags().GetBool("select")

		if !pick {
			return showSearchHistory(limit)
		}
		return searchAgain(cmd, limit)
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear purchase and search history",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		searchesOnly, _ := cmd.Flags().GetBool("searches")

		if err := db.ClearSearchHistory(); err != nil {
			return fmt.Errorf("failed to clear search history: %w", err)
		}
		if searchesOnly {
			Successf("Search history cleared.")
			return nil
		}

		if err := db.ClearPurchases(); err != nil {
			return fmt.Errorf("failed to clear purchase history: %w", err)
		}
		Successf("History cleared.")
		return nil
	},
}

func init() {
	historyListCmd.Flags().IntP("limit", "n", 20, "number of entries to show")
	historyListCmd.Flags().Int("comic-id", 0, "only show attempts for this comic")
	historyListCmd.Flags().String("batch", "", "show every attempt of one batch")
	historySearchesCmd.Flags().IntP("limit", "n", 20, "number of entries to show")
	historySearchesCmd.Flags().BoolP("select", "s", false, "pick a past search and run it again")
	historyClearCmd.Flags().Bool("searches", false, "only clear the search history")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyStatsCmd)
	historyCmd.AddCommand(historySearchesCmd)
	historyCmd.AddCommand(historyClearCmd)
}

func showPurchases(comicID, limit int) error {
	purchases, err := db.ListPurchases(comicID, limit)
	if err != nil {
		return fmt.Errorf("failed to get purchase history: %w", err)
	}

	if len(purchases) == 0 {
		fmt.Println("No purchase history.")
		fmt.Println("\nUnlock attempts are saved automatically when you unlock chapters.")
		return nil
	}

	fmt.Printf("Recent Unlocks (%d):\n\n", len(purchases))
	for _, p := range purchases {
		printPurchase(p)
	}
	return nil
}

func showBatch(batchID string) error {
	purchases, err := db.ListBatch(batchID)
	if err != nil {
		return fmt.Errorf("failed to get batch %s: %w", batchID, err)
	}

	if len(purchases) == 0 {
		fmt.Printf("No attempts recorded for batch %s.\n", batchID)
		return nil
	}

	fmt.Printf("Batch %s (%d attempts):\n\n", batchID, len(purchases))
	for _, p := range purchases {
		printPurchase(p)
	}
	return nil
}

func printPurchase(p *db.Purchase) {
	statusIcon := "✅"
	if p.Status == db.StatusFailed {
		statusIcon = "❌"
	}

	fmt.Printf("%s Episode %d", statusIcon, p.EpisodeID)
	if p.EpisodeTitle != "" {
		fmt.Printf(" %s", p.EpisodeTitle)
	}
	fmt.Println()

	if p.ComicID != 0 {
		fmt.Printf("   Comic: %s [%d]\n", p.ComicTitle, p.ComicID)
	}
	if p.CouponID != 0 {
		fmt.Printf("   Coupon: %d\n", p.CouponID)
	}
	if p.ErrorMessage != "" {
		fmt.Printf("   Error: %s\n", p.ErrorMessage)
	}
	fmt.Printf("   %s | batch %s\n\n", p.CreatedAt.Local().Format("2006-01-02 15:04"), p.BatchID)
}

func showSearchHistory(limit int) error {
	history, err := db.RecentSearches(limit)
	if err != nil {
		return fmt.Errorf("failed to get search history: %w", err)
	}

	if len(history) == 0 {
		fmt.Println("No search history.")
		fmt.Println("\nSearches are saved automatically when you search for comics.")
		return nil
	}

	fmt.Printf("Recent Searches (%d):\n\n", len(history))

	for i, h := range history {
		fmt.Printf("  %d. %q (%d results)\n", i+1, h.Query, h.ResultCount)
		fmt.Printf("     %s\n", tui.FormatSearchResults(h))
		fmt.Printf("     %s | %s\n\n", tui.FormatSearchOutcome(h), h.CreatedAt.Local().Format("2006-01-02 15:04"))
	}

	return nil
}

// searchAgain lets the user pick a past search and runs it again
func searchAgain(cmd *cobra.Command, limit int) error {
	history, err := db.RecentSearches(limit)
	if err != nil {
		return fmt.Errorf("failed to get search history: %w", err)
	}

	selected, err := tui.RunHistorySelector(history)
	if errors.Is(err, tui.ErrNoHistory) {
		fmt.Println("No search history.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("selection failed: %w", err)
	}
	if selected == nil {
		return nil // User cancelled
	}

	return searchAndSelect(cmd, selected.Query, 0, false, false)
}
