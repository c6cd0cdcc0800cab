package cli

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/billmal071/mangaunlock/internal/bilimanga"
	"github.com/billmal071/mangaunlock/internal/config"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in with a browser and capture the cookie",
	Long: `Open a Chrome window on the login page and wait until you sign in.

The captured cookie is printed, or written to the config file with --save.
Chrome or Chromium must be installed.

Examples:
  mangaunlock login
  mangaunlock login --save
  mangaunlock login --timeout 10m`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

func init() {
	loginCmd.Flags().Bool("save", false, "save the cookie as session.cookie")
	loginCmd.Flags().Duration("timeout", 5*time.Minute, "how long to wait for the login")
}

func runLogin(cmd *cobra.Command, args []string) error {
	save, _ := cmd.Flags().GetBool("save")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	cfg := config.Get()

	login := bilimanga.NewBrowserLogin(cfg.Gateway.PassportURL, cfg.Gateway.UserAgent, log.Logger)
	login.Timeout = timeout

	fmt.Println("Waiting for you to sign in in the browser window...")
	cred, err := login.Run(cmd.Context())
	if err != nil {
		return fmt.Errorf("browser login failed: %w", err)
	}

	ok, err := newClient().CheckLogin(cmd.Context(), cred)
	switch {
	case err != nil:
		Errorf("could not verify the cookie: %v", err)
	case !ok:
		return errNotLoggedIn
	}

	if !save {
		fmt.Println(string(cred))
		return nil
	}

	if err := config.Set("session.cookie", string(cred)); err != nil {
		return fmt.Errorf("failed to save cookie: %w", err)
	}
	Successf("Logged in, cookie saved to %s", config.GetConfigPath())
	return nil
}
