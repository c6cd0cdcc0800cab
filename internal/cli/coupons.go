package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var couponsCmd = &cobra.Command{
	Use:   "coupons",
	Short: "List the account's unexpired coupons",
	Long: `List every unexpired coupon on the account.

Examples:
  mangaunlock coupons
  mangaunlock coupons --cookie "SESSDATA=..."`,
	Args: cobra.NoArgs,
	RunE: runCoupons,
}

func runCoupons(cmd *cobra.Command, args []string) error {
	cred, err := resolveCredential(cmd)
	if err != nil {
		return err
	}

	coupons, err := newClient().UserCoupons(cmd.Context(), cred)
	if err != nil {
		return fmt.Errorf("failed to list coupons: %w", err)
	}

	if len(coupons) == 0 {
		fmt.Println("No coupons available.")
		return nil
	}

	total := 0
	for _, c := range coupons {
		total += c.Remaining
	}
	fmt.Printf("Coupons (%d, %d uses left):\n\n", len(coupons), total)

	for _, c := range coupons {
		fmt.Printf("  [%d] %d left", c.ID, c.Remaining)
		if !c.Expire.IsZero() {
			fmt.Printf(" | expires %s", c.Expire.Format("2006-01-02 15:04"))
		}
		fmt.Printf(" | type %d\n", c.Type)
	}

	return nil
}
