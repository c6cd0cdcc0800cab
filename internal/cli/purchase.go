package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/billmal071/mangaunlock/internal/bilimanga"
	"github.com/billmal071/mangaunlock/internal/tui"
)

var purchaseOneCmd = &cobra.Command{
	Use:     "purchaseOne",
	Aliases: []string{"purchase-one"},
	Short:   "Unlock a single chapter",
	Long: `Unlock one chapter by redeeming a coupon.

Without --coupon-id the coupon the store recommends for the chapter is used.

Examples:
  mangaunlock purchaseOne --episode-id 564301
  mangaunlock purchaseOne --episode-id 564301 --coupon-id 1234567
  mangaunlock purchaseOne -ep_id 564301 -ck "SESSDATA=..."`,
	Args: cobra.NoArgs,
	RunE: runPurchaseOne,
}

var purchaseAllCmd = &cobra.Command{
	Use:     "purchaseAll",
	Aliases: []string{"purchase-all"},
	Short:   "Unlock every locked chapter of a comic",
	Long: `Unlock every locked chapter of a comic, oldest first.

The batch stops at the first chapter that cannot be unlocked.

Examples:
  mangaunlock purchaseAll --comic-id 28284
  mangaunlock purchaseAll --comic-id 28284 --coupon-id 1234567`,
	Args: cobra.NoArgs,
	RunE: runPurchaseAll,
}

func init() {
	purchaseOneCmd.Flags().Int("episode-id", 0, "chapter to unlock")
	purchaseOneCmd.Flags().Int("coupon-id", 0, "coupon to redeem (default: recommended coupon)")
	_ = purchaseOneCmd.MarkFlagRequired("episode-id")

	purchaseAllCmd.Flags().Int("comic-id", 0, "comic whose chapters to unlock")
	purchaseAllCmd.Flags().Int("coupon-id", 0, "coupon to redeem for every chapter (default: recommended coupon)")
	_ = purchaseAllCmd.MarkFlagRequired("comic-id")
	_ = purchaseAllCmd.RegisterFlagCompletionFunc("comic-id", completeComicIDs)
}

func runPurchaseOne(cmd *cobra.Command, args []string) error {
	episodeID, _ := cmd.Flags().GetInt("episode-id")
	couponID, _ := cmd.Flags().GetInt("coupon-id")

	cred, err := resolveCredential(cmd)
	if err != nil {
		return err
	}

	receipt, err := newPurchaser(newClient()).PurchaseOne(cmd.Context(), episodeID, cred, couponID)
	if err != nil {
		return fmt.Errorf("failed to unlock episode %d: %w", episodeID, err)
	}

	Printf("Redeemed coupon %d\n", receipt.Coupon.ID)
	fmt.Printf("Successfully Unlocked Episode:%d\n", receipt.EpisodeID)
	return nil
}

func runPurchaseAll(cmd *cobra.Command, args []string) error {
	comicID, _ := cmd.Flags().GetInt("comic-id")
	couponID, _ := cmd.Flags().GetInt("coupon-id")

	cred, err := resolveCredential(cmd)
	if err != nil {
		return err
	}

	_, err = unlockComic(cmd.Context(), newClient(), cred, comicID, couponID)
	return err
}

// unlockComic loads the comic and unlocks its pending chapters with a
// progress bar. It returns the number of chapters unlocked.
func unlockComic(ctx context.Context, client bilimanga.Client, cred bilimanga.Credential, comicID, couponID int) (int, error) {
	comic, err := client.ComicDetail(ctx, comicID, cred)
	if err != nil {
		return 0, fmt.Errorf("failed to load comic %d: %w", comicID, err)
	}

	pending := len(comic.PendingChapters())
	if pending == 0 {
		fmt.Printf("Nothing to unlock for %s\n", tui.FormatComic(comic))
		return 0, nil
	}
	fmt.Printf("Unlocking %d chapter(s) of %s\n", pending, tui.FormatComic(comic))

	progress := &progressReporter{}
	unlocked, err := newPurchaser(client, progress.observe).PurchaseAll(ctx, comic, cred, couponID)
	progress.done()
	notifyBatch(comic, unlocked, err)

	if err != nil {
		return unlocked, fmt.Errorf("unlocked %d of %d chapter(s) before stopping: %w", unlocked, pending, err)
	}

	Successf("Unlocked %d chapter(s) of %s", unlocked, tui.FormatComic(comic))
	return unlocked, nil
}
