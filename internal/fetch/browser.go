// Package fetch - browser.go renders client-side pages in a headless
// browser. The host site fills submission timestamps and some sample
// blocks in after load, so the HTTP path alone can miss them.
package fetch

import (
	"context"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

// MinMarkupLength is the minimum body text length below which a fetched
// page is treated as an unrendered client-side shell.
const MinMarkupLength = 200

// renderSettle is the post-load pause for scripts to fill dynamic cells.
const renderSettle = 500 * time.Millisecond

// LooksUnrendered reports whether the fetched body text is too short to be
// a rendered judge page.
func LooksUnrendered(bodyText string) bool {
	return len(strings.TrimSpace(bodyText)) < MinMarkupLength
}

// Rendered loads url in a headless browser and returns the rendered HTML.
// Requires Chrome/Chromium to be installed on the system.
func Rendered(ctx context.Context, url string, timeout time.Duration) (string, error) {
	allocCtx, cancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)...,
	)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, timeout)
	defer cancel()

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.Sleep(renderSettle),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", &Error{
			URL:     url,
			Message: "browser rendering failed",
			Cause:   err,
		}
	}
	return html, nil
}
