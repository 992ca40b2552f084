// Package fetch loads judge-site documents. Plain HTTP is tried first; the
// headless browser path renders pages whose markup only materializes after
// client-side scripts run.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 30 * time.Second

// DefaultUserAgent is the user agent string for HTTP requests.
const DefaultUserAgent = "Mozilla/5.0 (compatible; AlgotrackAgent/1.0)"

// Error represents an error while loading a document.
type Error struct {
	URL     string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fetch error for %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("fetch error for %s: %s", e.URL, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Options configures document loading.
type Options struct {
	Timeout   time.Duration
	UserAgent string
	Headers   map[string]string
	// UseBrowser forces the headless browser path for every load. When
	// unset the browser is still tried as a fallback for pages whose
	// plain-HTTP body looks like an unrendered client-side shell.
	UseBrowser bool
}

// render is swapped out in tests; production always uses Rendered.
var render = Rendered

// DefaultOptions returns sensible defaults for loading.
func DefaultOptions() *Options {
	return &Options{
		Timeout:   DefaultTimeout,
		UserAgent: DefaultUserAgent,
	}
}

// Document loads urlStr and parses it. A plain HTTP body that looks
// unrendered is retried once through the headless browser. The returned
// URL is the parsed request URL, which page classification keys on.
func Document(ctx context.Context, urlStr string, opts *Options) (*goquery.Document, *url.URL, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	parsedURL, err := url.Parse(urlStr)
	if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, nil, &Error{
			URL:     urlStr,
			Message: "invalid URL",
			Cause:   err,
		}
	}

	var html string
	if opts.UseBrowser {
		html, err = render(ctx, urlStr, opts.Timeout)
		if err != nil {
			return nil, nil, err
		}
	} else {
		html, err = rawHTML(ctx, urlStr, opts)
		if err != nil {
			return nil, nil, err
		}
	}

	doc, err := parseHTML(urlStr, html)
	if err != nil {
		return nil, nil, err
	}

	if !opts.UseBrowser && LooksUnrendered(doc.Find("body").Text()) {
		rendered, rerr := render(ctx, urlStr, opts.Timeout)
		if rerr != nil {
			// No browser available; the shell document is still better
			// than nothing.
			return doc, parsedURL, nil
		}
		rdoc, perr := parseHTML(urlStr, rendered)
		if perr != nil {
			return doc, parsedURL, nil
		}
		return rdoc, parsedURL, nil
	}
	return doc, parsedURL, nil
}

func parseHTML(urlStr, html string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, &Error{
			URL:     urlStr,
			Message: "failed to parse HTML",
			Cause:   err,
		}
	}
	return doc, nil
}

// Loader returns a source function bound to one URL, suitable for the
// observation loops that re-load their page every tick.
func Loader(urlStr string, opts *Options) func(ctx context.Context) (*goquery.Document, *url.URL, error) {
	return func(ctx context.Context) (*goquery.Document, *url.URL, error) {
		return Document(ctx, urlStr, opts)
	}
}

func rawHTML(ctx context.Context, urlStr string, opts *Options) (string, error) {
	client := &http.Client{
		Timeout: opts.Timeout,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return "", &Error{
			URL:     urlStr,
			Message: "failed to create request",
			Cause:   err,
		}
	}

	req.Header.Set("User-Agent", opts.UserAgent)
	for key, value := range opts.Headers {
		req.Header.Set(key, value)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", &Error{
			URL:     urlStr,
			Message: "HTTP request failed",
			Cause:   err,
		}
	}
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &Error{
			URL:     urlStr,
			Message: "failed to read response body",
			Cause:   err,
		}
	}
	if resp.StatusCode != http.StatusOK {
		return "", &Error{
			URL:     urlStr,
			Message: fmt.Sprintf("HTTP status %d", resp.StatusCode),
		}
	}
	return string(bodyBytes), nil
}
