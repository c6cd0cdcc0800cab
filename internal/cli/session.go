package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/billmal071/mangaunlock/internal/bilimanga"
	"github.com/billmal071/mangaunlock/internal/config"
	"github.com/billmal071/mangaunlock/internal/db"
	"github.com/billmal071/mangaunlock/internal/notify"
	"github.com/billmal071/mangaunlock/internal/purchase"
)

// errNoCredential is returned when no cookie was given and none is configured
var errNoCredential = errors.New("no cookie given: pass --cookie, set MANGAUNLOCK_SESSION_COOKIE or run 'mangaunlock login --save'")

// newClient builds the gateway client. Tests replace it.
var newClient = func() bilimanga.Client {
	return bilimanga.NewClient(&log.Logger)
}

// lookupCredential returns the --cookie flag, falling back to the configured session cookie
func lookupCredential(cmd *cobra.Command) (bilimanga.Credential, bool) {
	cookie, _ := cmd.Flags().GetString("cookie")
	if cookie = strings.TrimSpace(cookie); cookie != "" {
		return bilimanga.Credential(cookie), true
	}
	if cookie = strings.TrimSpace(config.Get().Session.Cookie); cookie != "" {
		return bilimanga.Credential(cookie), true
	}
	return "", false
}

// resolveCredential is lookupCredential for commands that cannot run without one
func resolveCredential(cmd *cobra.Command) (bilimanga.Credential, error) {
	cred, ok := lookupCredential(cmd)
	if !ok {
		return "", errNoCredential
	}
	return cred, nil
}

// newPurchaser creates a purchaser that records every attempt in the ledger
func newPurchaser(client bilimanga.Client, observers ...purchase.Observer) *purchase.Purchaser {
	return purchase.New(client, purchase.Options{
		PacingInterval: config.Get().Purchase.PacingInterval,
		Logger:         &log.Logger,
		Observers:      append([]purchase.Observer{recordPurchase}, observers...),
	})
}

// recordPurchase writes an attempt to the purchase ledger. A failed write is
// logged and never affects the purchase.
func recordPurchase(ev purchase.Event) {
	if !config.Get().Purchase.RecordHistory {
		return
	}

	p := &db.Purchase{
		BatchID:      ev.BatchID,
		EpisodeID:    ev.Chapter.ID,
		EpisodeTitle: ev.Chapter.Title,
		CouponID:     ev.CouponID,
		Status:       db.StatusSuccess,
	}
	if ev.Comic != nil {
		p.ComicID = ev.Comic.ID
		p.ComicTitle = ev.Comic.Name
	}
	if ev.Err != nil {
		p.Status = db.StatusFailed
		p.ErrorMessage = ev.Err.Error()
	}

	if err := db.RecordPurchase(p); err != nil {
		log.Warn().Err(err).Int("episode", ev.Chapter.ID).Msg("could not record purchase")
	}
}

// progressReporter draws a bar for a batch, created on the first attempt
type progressReporter struct {
	bar *progressbar.ProgressBar
}

func (r *progressReporter) observe(ev purchase.Event) {
	if r.bar == nil {
		r.bar = progressbar.NewOptions(ev.Total,
			progressbar.OptionSetDescription("Unlocking"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "=",
				SaucerHead:    ">",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}),
		)
	}

	r.bar.Describe(fmt.Sprintf("Chapter %d", ev.Chapter.ID))
	if ev.Succeeded() {
		_ = r.bar.Add(1)
	}
}

// done moves past the bar so following output starts on a fresh line
func (r *progressReporter) done() {
	if r.bar != nil {
		fmt.Println()
	}
}

// searchComics searches through the local cache and records the search in
// the history. The returned id is 0 when the search could not be recorded.
func searchComics(ctx context.Context, client bilimanga.Client, keyword string) ([]*bilimanga.Comic, int64, error) {
	cfg := config.Get().Search

	comics, fromCache := cachedSearch(keyword, cfg.CacheEnabled)
	if !fromCache {
		var err error
		comics, err = client.Search(ctx, keyword)
		if err != nil {
			return nil, 0, fmt.Errorf("search failed: %w", err)
		}
		if cfg.CacheEnabled {
			if err := db.StoreSearch(keyword, comics, cfg.CacheTTL); err != nil {
				log.Warn().Err(err).Str("query", keyword).Msg("could not cache search results")
			}
		}
	}

	searchID, err := db.RecordSearch(keyword, comics, fromCache)
	if err != nil {
		log.Warn().Err(err).Str("query", keyword).Msg("could not save search history")
		return comics, 0, nil
	}
	return comics, searchID, nil
}

func cachedSearch(keyword string, enabled bool) ([]*bilimanga.Comic, bool) {
	if !enabled {
		return nil, false
	}
	comics, ok, err := db.LookupSearch(keyword)
	if err != nil {
		log.Warn().Err(err).Str("query", keyword).Msg("search cache lookup failed")
		return nil, false
	}
	if ok {
		log.Debug().Str("query", keyword).Int("results", len(comics)).Msg("search cache hit")
	}
	return comics, ok
}

// searchOutcome follows a recorded search to the comic picked from it
type searchOutcome struct {
	id     int64
	picked int
}

// pick records comic as the result chosen from the search
func (o *searchOutcome) pick(comic *bilimanga.Comic) {
	o.picked = 0
	if o.id == 0 {
		return
	}
	if err := db.MarkSearchPicked(o.id, comic); err != nil {
		log.Warn().Err(err).Int64("search", o.id).Msg("could not record picked comic")
		return
	}
	o.picked = comic.ID
}

// unlocked adds chapters unlocked from the picked comic
func (o *searchOutcome) unlocked(comic *bilimanga.Comic, n int) {
	if o.id == 0 || o.picked != comic.ID || n == 0 {
		return
	}
	if err := db.MarkSearchUnlocked(o.id, n); err != nil {
		log.Warn().Err(err).Int64("search", o.id).Msg("could not record unlocked chapters")
	}
}

// shellBackend serves the interactive mode
type shellBackend struct {
	client    bilimanga.Client
	purchaser *purchase.Purchaser

	last    searchOutcome
	results map[int]bool
}

func (b *shellBackend) CheckLogin(ctx context.Context, cred bilimanga.Credential) (bool, error) {
	return b.client.CheckLogin(ctx, cred)
}

func (b *shellBackend) Search(ctx context.Context, keyword string) ([]*bilimanga.Comic, error) {
	comics, id, err := searchComics(ctx, b.client, keyword)
	if err != nil {
		return nil, err
	}

	b.last = searchOutcome{id: id}
	b.results = make(map[int]bool, len(comics))
	for _, c := range comics {
		b.results[c.ID] = true
	}
	return comics, nil
}

func (b *shellBackend) ComicDetail(ctx context.Context, comicID int, cred bilimanga.Credential) (*bilimanga.Comic, error) {
	comic, err := b.client.ComicDetail(ctx, comicID, cred)
	if err != nil {
		return nil, err
	}
	if b.results[comic.ID] {
		b.last.pick(comic)
	}
	return comic, nil
}

func (b *shellBackend) PurchaseAll(ctx context.Context, comic *bilimanga.Comic, cred bilimanga.Credential) (int, error) {
	n, err := b.purchaser.PurchaseAll(ctx, comic, cred, 0)
	b.last.unlocked(comic, n)
	notifyBatch(comic, n, err)
	return n, err
}

func notifyBatch(comic *bilimanga.Comic, unlocked int, err error) {
	if err != nil {
		notify.BatchFailed(comic.Name, unlocked, err.Error())
		return
	}
	if unlocked > 0 {
		notify.BatchComplete(comic.Name, unlocked)
	}
}
