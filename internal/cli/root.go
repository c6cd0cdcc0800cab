package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/billmal071/mangaunlock/internal/config"
	"github.com/billmal071/mangaunlock/internal/db"
	"github.com/billmal071/mangaunlock/internal/logger"
	"github.com/billmal071/mangaunlock/internal/tui"
)

var (
	cfgFile string
	verbose bool
)

// flagAliases maps the alternative spellings accepted for a flag onto its canonical name
var flagAliases = map[string]string{
	"episodeId":  "episode-id",
	"episode_id": "episode-id",
	"ep_id":      "episode-id",
	"comicId":    "comic-id",
	"comic_id":   "comic-id",
	"ck":         "cookie",
	"couponId":   "coupon-id",
	"coupon_id":  "coupon-id",
	"cp_id":      "coupon-id",
}

var rootCmd = &cobra.Command{
	Use:   "mangaunlock",
	Short: "Unlock Bilibili Manga chapters with coupons",
	Long: `mangaunlock is a CLI tool for the Bilibili Manga storefront.

It searches comics, shows chapter details and unlocks locked chapters by
redeeming the coupons on your account. Run it without a command to start the
interactive mode.

Examples:
  mangaunlock                                   Interactive mode
  mangaunlock search "pastel"                   Search for comics
  mangaunlock info --comic-id 28284             Show a comic and its chapters
  mangaunlock purchaseOne --episode-id 564301   Unlock one chapter
  mangaunlock purchaseAll --comic-id 28284      Unlock every locked chapter
  mangaunlock login --save                      Sign in with a browser`,
	Args: cobra.NoArgs,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Initialize config
		if err := config.Init(cfgFile); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		log.Logger = logger.New(config.Get().Log, verbose)

		// Initialize database
		if err := db.Init(); err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		db.Close()
	},
	RunE: runShell,
}

// Execute runs the root command. Diagnostics go to stdout.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rootCmd.SetArgs(legacyArgs(os.Args[1:]))
	rootCmd.SetErr(os.Stdout)
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $HOME/.config/mangaunlock/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().String("cookie", "", "session cookie (default session.cookie from config)")

	rootCmd.SetGlobalNormalizationFunc(normalizeFlagName)

	// Add subcommands
	rootCmd.AddCommand(purchaseOneCmd)
	rootCmd.AddCommand(purchaseAllCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(couponsCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(completionCmd)
}

func runShell(cmd *cobra.Command, args []string) error {
	client := newClient()
	backend := &shellBackend{
		client:    client,
		purchaser: newPurchaser(client),
	}

	// The shell verifies a configured cookie itself and prompts when there is none
	cred, _ := lookupCredential(cmd)
	return tui.RunShell(cmd.Context(), backend, cred)
}

// normalizeFlagName lets every flag be given by any of its aliases
func normalizeFlagName(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	if canonical, ok := flagAliases[name]; ok {
		return pflag.NormalizedName(canonical)
	}
	return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
}

// legacyArgs rewrites single-dash long aliases like -episodeId into their
// double-dash form, which is the only form pflag parses
func legacyArgs(args []string) []string {
	out := make([]string, len(args))
	for i, arg := range args {
		out[i] = arg
		if arg == "--" {
			copy(out[i+1:], args[i+1:])
			break
		}
		if !strings.HasPrefix(arg, "-") || strings.HasPrefix(arg, "--") {
			continue
		}
		name, _, _ := strings.Cut(arg[1:], "=")
		if _, ok := flagAliases[name]; ok || isLongFlag(name) {
			out[i] = "-" + arg
		}
	}
	return out
}

func isLongFlag(name string) bool {
	switch name {
	case "cookie", "episode-id", "comic-id", "coupon-id":
		return true
	}
	return false
}

// Verbose returns whether verbose mode is enabled
func Verbose() bool {
	return verbose
}

// Printf prints if verbose mode is enabled
func Printf(format string, args ...interface{}) {
	if verbose {
		fmt.Printf(format, args...)
	}
}

// Errorf prints an error message
func Errorf(format string, args ...interface{}) {
	fmt.Fprintf(rootCmd.ErrOrStderr(), "Error: "+format+"\n", args...)
}

// Successf prints a success message
func Successf(format string, args ...interface{}) {
	fmt.Printf("✓ "+format+"\n", args...)
}
