package bilimanga

import (
	"context"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// Credential is the site's auth cookie, sent verbatim on every gateway call
type Credential string

// String keeps the cookie out of logs and error messages
func (c Credential) String() string {
	if c == "" {
		return ""
	}
	return "[redacted]"
}

// Category is the gateway's comic_type code
type Category int

// DefaultCategory is assumed for search results, which carry no comic_type
const DefaultCategory Category = 1

// Chapter is one purchasable episode of a comic
type Chapter struct {
	ID            int
	Title         string
	CommentCount  int
	UserPurchased bool
	Locked        bool
	Price         int
	ReleaseTime   time.Time
}

// NeedsPurchase reports whether the chapter is paid and not yet unlocked by the user
func (c Chapter) NeedsPurchase() bool {
	return c.Locked && !c.UserPurchased
}

// Comic represents a comic from the catalog
type Comic struct {
	ID          int
	Name        string
	Authors     []string
	Category    Category
	Styles      []string
	Chapters    []Chapter // newest first, as returned by the gateway
	ReleaseTime time.Time
}

// NewComic builds a comic and derives its release time from the earliest chapter.
// A comic without chapters has a zero release time.
func NewComic(id int, name string, authors []string, category Category, styles []string, chapters []Chapter) *Comic {
	var release time.Time
	for i, ch := range chapters {
		if i == 0 || ch.ReleaseTime.Before(release) {
			release = ch.ReleaseTime
		}
	}

	return &Comic{
		ID:          id,
		Name:        name,
		Authors:     authors,
		Category:    category,
		Styles:      styles,
		Chapters:    chapters,
		ReleaseTime: release,
	}
}

// AuthorsString returns the authors separated by commas
func (c *Comic) AuthorsString() string { return strings.Join(c.Authors, ",") }

// StylesString returns the styles separated by commas
func (c *Comic) StylesString() string { return strings.Join(c.Styles, ",") }

// PendingChapters returns the chapters that need purchasing, in gateway order
func (c *Comic) PendingChapters() []Chapter {
	var pending []Chapter
	for _, ch := range c.Chapters {
		if ch.NeedsPurchase() {
			pending = append(pending, ch)
		}
	}
	return pending
}

// NameMatches compares the comic name with a user query after Unicode and width folding
func (c *Comic) NameMatches(query string) bool {
	return NormalizeTitle(c.Name) == NormalizeTitle(query)
}

// NormalizeTitle folds full-width and compatibility characters so that titles typed
// with different input methods compare equal
func NormalizeTitle(s string) string {
	s = norm.NFKC.String(s)
	s = width.Fold.String(s)
	return strings.ToLower(strings.TrimSpace(s))
}

// Coupon is a redeemable token that unlocks one chapter
type Coupon struct {
	ID        int
	Remaining int
	Expire    time.Time
	Type      int
}

// NewCoupon builds a coupon from a bare id, as when the user supplies one
func NewCoupon(id int) *Coupon {
	return &Coupon{ID: id, Remaining: 1, Type: 1}
}

// Client defines the operations the manga gateway offers
type Client interface {
	// Search searches the catalog by keyword
	Search(ctx context.Context, keyword string) ([]*Comic, error)

	// ComicDetail fetches a comic with its full chapter list
	ComicDetail(ctx context.Context, comicID int, cred Credential) (*Comic, error)

	// BuyEpisode unlocks a chapter by redeeming the given coupon
	BuyEpisode(ctx context.Context, episodeID, couponID int, cred Credential) error

	// RecommendCoupon asks the gateway which coupon applies to a chapter
	RecommendCoupon(ctx context.Context, episodeID int, cred Credential) (*Coupon, error)

	// UserCoupons lists every non-expired coupon of the account
	UserCoupons(ctx context.Context, cred Credential) ([]*Coupon, error)

	// CheckLogin reports whether the gateway accepts the credential
	CheckLogin(ctx context.Context, cred Credential) (bool, error)
}
