package bilimanga

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"
)

// sessionCookie is the cookie the site sets once a login completes
const sessionCookie = "SESSDATA"

// BrowserLogin opens a visible browser on the login page and waits for the user to sign in
type BrowserLogin struct {
	LoginURL     string
	UserAgent    string
	PollInterval time.Duration
	Timeout      time.Duration
	Log          zerolog.Logger
}

// NewBrowserLogin creates a browser login flow against the given login page
func NewBrowserLogin(loginURL, userAgent string, log zerolog.Logger) *BrowserLogin {
	return &BrowserLogin{
		LoginURL:     loginURL,
		UserAgent:    userAgent,
		PollInterval: 2 * time.Second,
		Timeout:      5 * time.Minute,
		Log:          log,
	}
}

// Run blocks until the session cookie appears or the timeout expires, and
// returns every site cookie joined into a single Cookie header value
func (b *BrowserLogin) Run(ctx context.Context) (Credential, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", false),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
	)
	if b.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(b.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...interface{}) {
			b.Log.Trace().Msgf(format, args...)
		}),
		chromedp.WithErrorf(func(format string, args ...interface{}) {
			b.Log.Debug().Msgf(format, args...)
		}),
	)
	defer browserCancel()

	browserCtx, timeoutCancel := context.WithTimeout(browserCtx, b.Timeout)
	defer timeoutCancel()

	if err := chromedp.Run(browserCtx, chromedp.Navigate(b.LoginURL)); err != nil {
		return "", fmt.Errorf("opening login page: %w", err)
	}

	b.Log.Info().Str("url", b.LoginURL).Msg("waiting for login in browser window")

	ticker := time.NewTicker(b.PollInterval)
	defer ticker.Stop()

	for {
		var cookies []*network.Cookie
		err := chromedp.Run(browserCtx, chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			cookies, err = network.GetCookies().Do(ctx)
			return err
		}))
		if err != nil {
			return "", fmt.Errorf("reading browser cookies: %w", err)
		}

		if cred, ok := credentialFromCookies(cookies); ok {
			b.Log.Debug().Int("cookies", len(cookies)).Msg("session cookie found")
			return cred, nil
		}

		select {
		case <-browserCtx.Done():
			return "", fmt.Errorf("login not completed: %w", browserCtx.Err())
		case <-ticker.C:
		}
	}
}

// credentialFromCookies joins the site's cookies once the session cookie is present
func credentialFromCookies(cookies []*network.Cookie) (Credential, bool) {
	var parts []string
	found := false

	for _, c := range cookies {
		if !strings.HasSuffix(strings.TrimPrefix(c.Domain, "."), "bilibili.com") {
			continue
		}
		if c.Name == sessionCookie && c.Value != "" {
			found = true
		}
		parts = append(parts, c.Name+"="+c.Value)
	}

	if !found {
		return "", false
	}

	sort.Strings(parts)
	return Credential(strings.Join(parts, "; ")), true
}
