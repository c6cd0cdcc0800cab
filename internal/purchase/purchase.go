// Package purchase unlocks locked chapters by redeeming coupons, one at a time.
package purchase

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/billmal071/mangaunlock/internal/bilimanga"
)

// Gateway is the part of the gateway client the purchaser needs
type Gateway interface {
	RecommendCoupon(ctx context.Context, episodeID int, cred bilimanga.Credential) (*bilimanga.Coupon, error)
	BuyEpisode(ctx context.Context, episodeID, couponID int, cred bilimanga.Credential) error
}

// Event describes one purchase attempt
type Event struct {
	BatchID  string
	Comic    *bilimanga.Comic // nil for a standalone chapter purchase
	Chapter  bilimanga.Chapter
	CouponID int // 0 when no coupon could be resolved
	Err      error
	Index    int // 1-based position within the batch
	Total    int
}

// Succeeded reports whether the attempt unlocked the chapter
func (e Event) Succeeded() bool { return e.Err == nil }

// Observer is notified after every attempt. It cannot influence the batch.
type Observer func(Event)

// Receipt is the result of a successful chapter purchase
type Receipt struct {
	EpisodeID int
	Coupon    *bilimanga.Coupon
}

// SleepFunc waits for d or until ctx is done
type SleepFunc func(ctx context.Context, d time.Duration) error

// Options configures a Purchaser
type Options struct {
	// PacingInterval is waited before every attempt but the first of a batch
	PacingInterval time.Duration
	Sleep          SleepFunc
	Logger         *zerolog.Logger
	Observers      []Observer
}

// Purchaser runs purchases against the gateway. It holds no per-batch state
// and issues at most one gateway call at a time.
type Purchaser struct {
	gw        Gateway
	pacing    time.Duration
	sleep     SleepFunc
	log       zerolog.Logger
	observers []Observer
}

// New creates a Purchaser
func New(gw Gateway, opts Options) *Purchaser {
	p := &Purchaser{
		gw:        gw,
		pacing:    opts.PacingInterval,
		sleep:     opts.Sleep,
		log:       zerolog.Nop(),
		observers: opts.Observers,
	}
	if p.pacing < 0 {
		p.pacing = 0
	}
	if p.sleep == nil {
		p.sleep = sleepContext
	}
	if opts.Logger != nil {
		p.log = opts.Logger.With().Str("component", "purchase").Logger()
	}
	return p
}

// Observe registers an additional observer
func (p *Purchaser) Observe(o Observer) {
	p.observers = append(p.observers, o)
}

// PurchaseOne unlocks a single chapter. A non-zero couponID is redeemed as
// given; otherwise the gateway's recommended coupon is used.
func (p *Purchaser) PurchaseOne(ctx context.Context, episodeID int, cred bilimanga.Credential, couponID int) (Receipt, error) {
	receipt, err := p.purchase(ctx, episodeID, cred, couponID)

	ev := Event{
		BatchID: uuid.NewString(),
		Chapter: bilimanga.Chapter{ID: episodeID},
		Err:     err,
		Index:   1,
		Total:   1,
	}
	if receipt.Coupon != nil {
		ev.CouponID = receipt.Coupon.ID
	}
	p.notify(ev)

	return receipt, err
}

// PurchaseAll unlocks every chapter of the comic that is locked and not yet
// purchased, oldest first. It stops at the first failure and returns the
// number of chapters unlocked so far together with the failure.
func (p *Purchaser) PurchaseAll(ctx context.Context, comic *bilimanga.Comic, cred bilimanga.Credential, couponID int) (int, error) {
	pending := Order(comic.PendingChapters())
	if len(pending) == 0 {
		p.log.Info().Int("comic", comic.ID).Msg("nothing to purchase")
		return 0, nil
	}

	batchID := uuid.NewString()
	log := p.log.With().Str("batch", batchID).Int("comic", comic.ID).Logger()
	log.Info().Int("pending", len(pending)).Msg("starting batch")

	unlocked := 0
	for i, ch := range pending {
		if i > 0 {
			if err := p.pace(ctx); err != nil {
				log.Warn().Err(err).Int("unlocked", unlocked).Msg("batch interrupted")
				return unlocked, err
			}
		}

		// A started chapter runs to completion so its outcome is recorded
		receipt, err := p.purchase(context.WithoutCancel(ctx), ch.ID, cred, couponID)

		ev := Event{
			BatchID: batchID,
			Comic:   comic,
			Chapter: ch,
			Err:     err,
			Index:   i + 1,
			Total:   len(pending),
		}
		if receipt.Coupon != nil {
			ev.CouponID = receipt.Coupon.ID
		}
		p.notify(ev)

		if err != nil {
			log.Error().Err(err).Int("episode", ch.ID).Int("unlocked", unlocked).Msg("purchase failed, stopping batch")
			return unlocked, fmt.Errorf("chapter %d (%s): %w", ch.ID, ch.Title, err)
		}

		unlocked++
		log.Debug().Int("episode", ch.ID).Int("coupon", ev.CouponID).Msg("chapter unlocked")
	}

	log.Info().Int("unlocked", unlocked).Msg("batch complete")
	return unlocked, nil
}

func (p *Purchaser) purchase(ctx context.Context, episodeID int, cred bilimanga.Credential, couponID int) (Receipt, error) {
	var coupon *bilimanga.Coupon
	if couponID != 0 {
		coupon = bilimanga.NewCoupon(couponID)
	} else {
		var err error
		coupon, err = p.gw.RecommendCoupon(ctx, episodeID, cred)
		if err != nil {
			return Receipt{EpisodeID: episodeID}, err
		}
	}

	receipt := Receipt{EpisodeID: episodeID, Coupon: coupon}
	if err := p.gw.BuyEpisode(ctx, episodeID, coupon.ID, cred); err != nil {
		return receipt, err
	}
	return receipt, nil
}

// pace waits out the pacing interval, or returns early once ctx is done
func (p *Purchaser) pace(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.pacing == 0 {
		return nil
	}
	return p.sleep(ctx, p.pacing)
}

func (p *Purchaser) notify(ev Event) {
	for _, o := range p.observers {
		o(ev)
	}
}

// Order returns the chapters oldest first. The gateway lists chapters newest
// first, so the list is reversed and then stably sorted by release time.
func Order(chapters []bilimanga.Chapter) []bilimanga.Chapter {
	ordered := make([]bilimanga.Chapter, len(chapters))
	for i, ch := range chapters {
		ordered[len(chapters)-1-i] = ch
	}

	slices.SortStableFunc(ordered, func(a, b bilimanga.Chapter) int {
		return a.ReleaseTime.Compare(b.ReleaseTime)
	})
	return ordered
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
