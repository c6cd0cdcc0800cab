package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/billmal071/mangaunlock/internal/bilimanga"
	"github.com/billmal071/mangaunlock/internal/purchase"
	"github.com/billmal071/mangaunlock/internal/tui"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show a comic and its chapters",
	Long: `Show a comic's details. With -c/--chapters every chapter is listed,
oldest first.

The cookie is optional here, but without it the purchase state of the
chapters reflects an anonymous visitor.

Examples:
  mangaunlock info --comic-id 28284
  mangaunlock info --comic-id 28284 -c`,
	Args: cobra.NoArgs,
	RunE: runInfo,
}

func init() {
	infoCmd.Flags().Int("comic-id", 0, "comic to show")
	infoCmd.Flags().BoolP("chapters", "c", false, "list every chapter")
	_ = infoCmd.MarkFlagRequired("comic-id")
	_ = infoCmd.RegisterFlagCompletionFunc("comic-id", completeComicIDs)
}

func runInfo(cmd *cobra.Command, args []string) error {
	comicID, _ := cmd.Flags().GetInt("comic-id")
	showChapters, _ := cmd.Flags().GetBool("chapters")

	cred, _ := lookupCredential(cmd)

	comic, err := newClient().ComicDetail(cmd.Context(), comicID, cred)
	if err != nil {
		return fmt.Errorf("failed to load comic %d: %w", comicID, err)
	}

	printComicInfo(comic)

	if showChapters {
		fmt.Println()
		for _, ch := range purchase.Order(comic.Chapters) {
			printChapter(ch)
		}
	}

	return nil
}

func printComicInfo(comic *bilimanga.Comic) {
	fmt.Println(tui.FormatComic(comic))
	if authors := comic.AuthorsString(); authors != "" {
		fmt.Printf("   Author: %s\n", authors)
	}
	if styles := comic.StylesString(); styles != "" {
		fmt.Printf("   Styles: %s\n", styles)
	}
	if !comic.ReleaseTime.IsZero() {
		fmt.Printf("   First chapter: %s\n", comic.ReleaseTime.Format("2006-01-02"))
	}
	fmt.Printf("   Chapters: %d (%s)\n", len(comic.Chapters), tui.FormatPending(comic))
}

func printChapter(ch bilimanga.Chapter) {
	var statusIcon string
	switch {
	case ch.NeedsPurchase():
		statusIcon = "🔒"
	case ch.Locked:
		statusIcon = "🔓"
	default:
		statusIcon = "  "
	}

	title := ch.Title
	if r := []rune(title); len(r) > 40 {
		title = string(r[:37]) + "..."
	}

	fmt.Printf("%s [%d] %s", statusIcon, ch.ID, title)
	if ch.Price > 0 {
		fmt.Printf(" | %d gold", ch.Price)
	}
	fmt.Printf(" | %s\n", ch.ReleaseTime.Format("2006-01-02"))
}
