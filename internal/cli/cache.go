package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/billmal071/mangaunlock/internal/bilimanga"
	"github.com/billmal071/mangaunlock/internal/config"
	"github.com/billmal071/mangaunlock/internal/db"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and manage cached search results",
	Long: `Search results are cached per keyword for search.cache_ttl. Keywords that
differ only by width or case share an entry.

Examples:
  mangaunlock cache stats    Show every cached keyword
  mangaunlock cache clean    Drop expired keywords
  mangaunlock cache clear    Drop every keyword
  mangaunlock cache disable  Always ask the store`,
	Args: cobra.NoArgs,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show every cached keyword with its results and expiry",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := db.ListCachedSearches()
		if err != nil {
			return fmt.Errorf("failed to list cached searches: %w", err)
		}

		cfg := config.Get().Search
		fmt.Printf("Search cache: %s, entries live for %v\n\n", enabledStatus(cfg.CacheEnabled), cfg.CacheTTL)

		if len(entries) == 0 {
			fmt.Println("No cached searches.")
			return nil
		}

		now := time.Now()
		expired := 0
		for _, e := range entries {
			state := "expires in " + e.ExpiresAt.Sub(now).Round(time.Second).String()
			if e.Expired(now) {
				state = "expired"
				expired++
			}

			fmt.Printf("  %q  %d comic(s), %s\n", e.Query, len(e.Comics), state)
			if titles := leadingTitles(e.Comics, 3); titles != "" {
				fmt.Printf("     %s\n", titles)
			}
		}

		fmt.Printf("\n%d keyword(s), %d expired\n", len(entries), expired)
		if expired > 0 {
			fmt.Println("Run 'mangaunlock cache clean' to drop expired keywords")
		}
		return nil
	},
}

var cacheCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Drop expired keywords",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		removed, err := db.CleanExpiredCache()
		if err != nil {
			return fmt.Errorf("failed to clean cache: %w", err)
		}
		Successf("Dropped %d expired keyword(s)", removed)
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop every cached keyword",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := db.ClearSearchCache(); err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}
		Successf("Search cache cleared")
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheCleanCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheToggleCmd(true))
	cacheCmd.AddCommand(cacheToggleCmd(false))
}

// cacheToggleCmd builds the enable or disable subcommand
func cacheToggleCmd(enable bool) *cobra.Command {
	use := "disable"
	if enable {
		use = "enable"
	}

	return &cobra.Command{
		Use:   use,
		Short: fmt.Sprintf("%s search result caching", strings.ToUpper(use[:1])+use[1:]),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Set("search.cache_enabled", fmt.Sprint(enable)); err != nil {
				return fmt.Errorf("failed to %s cache: %w", use, err)
			}
			Successf("Search cache %sd", use)
			return nil
		},
	}
}

// leadingTitles joins the first n comic names, noting how many were left out
func leadingTitles(comics []*bilimanga.Comic, n int) string {
	names := make([]string, 0, n)
	for _, c := range comics {
		if len(names) == n {
			break
		}
		names = append(names, c.Name)
	}

	out := strings.Join(names, ", ")
	if len(comics) > n {
		out += fmt.Sprintf(", +%d more", len(comics)-n)
	}
	return out
}

func enabledStatus(enabled bool) string {
	if enabled {
		return "enabled ✓"
	}
	return "disabled"
}
