package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// errNotLoggedIn is returned by check when the gateway rejects the cookie
var errNotLoggedIn = errors.New("not logged in: the cookie was rejected")

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that the cookie is logged in",
	Long: `Check the session cookie against the account service.

Exits with an error when the cookie is rejected.

Examples:
  mangaunlock check
  mangaunlock check --cookie "SESSDATA=..."`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	cred, err := resolveCredential(cmd)
	if err != nil {
		return err
	}

	ok, err := newClient().CheckLogin(cmd.Context(), cred)
	if err != nil {
		return fmt.Errorf("login check failed: %w", err)
	}
	if !ok {
		return errNotLoggedIn
	}

	Successf("Logged in")
	return nil
}
