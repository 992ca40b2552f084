// Package fetch - cached.go adds a TTL cache in front of document loading.
// Problem statements change rarely, so the bridge and the tag scraper can
// share one load instead of hitting the site on every trigger. Results
// listings must never be cached; the watcher depends on fresh rows.
package fetch

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/errorterry/algotrack-agent/internal/page"
)

// DefaultCacheTTL bounds how stale a cached problem page may be.
const DefaultCacheTTL = 10 * time.Minute

type cachedDoc struct {
	doc       *goquery.Document
	u         *url.URL
	fetchedAt time.Time
}

// CachedLoader caches problem-page documents by URL. Non-problem pages
// bypass the cache entirely.
type CachedLoader struct {
	opts *Options
	ttl  time.Duration
	now  func() time.Time

	mu    sync.Mutex
	pages map[string]cachedDoc
}

// NewCachedLoader creates a loader with the given TTL; zero takes the
// default.
func NewCachedLoader(opts *Options, ttl time.Duration) *CachedLoader {
	if opts == nil {
		opts = DefaultOptions()
	}
	if ttl == 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedLoader{
		opts:  opts,
		ttl:   ttl,
		now:   time.Now,
		pages: make(map[string]cachedDoc),
	}
}

// Document loads urlStr, serving problem pages from cache while fresh.
func (c *CachedLoader) Document(ctx context.Context, urlStr string) (*goquery.Document, *url.URL, error) {
	parsed, err := url.Parse(urlStr)
	if err == nil && page.IsProblemPage(parsed) {
		c.mu.Lock()
		entry, ok := c.pages[urlStr]
		c.mu.Unlock()
		if ok && c.now().Sub(entry.fetchedAt) < c.ttl {
			return entry.doc, entry.u, nil
		}
	}

	doc, u, err := Document(ctx, urlStr, c.opts)
	if err != nil {
		return nil, nil, err
	}
	if page.IsProblemPage(u) {
		c.mu.Lock()
		c.pages[urlStr] = cachedDoc{doc: doc, u: u, fetchedAt: c.now()}
		c.mu.Unlock()
	}
	return doc, u, nil
}

// Invalidate drops the cached entry for urlStr, forcing a fresh load.
func (c *CachedLoader) Invalidate(urlStr string) {
	c.mu.Lock()
	delete(c.pages, urlStr)
	c.mu.Unlock()
}

// Loader returns a source function bound to one URL over the cache.
func (c *CachedLoader) Loader(urlStr string) func(ctx context.Context) (*goquery.Document, *url.URL, error) {
	return func(ctx context.Context) (*goquery.Document, *url.URL, error) {
		return c.Document(ctx, urlStr)
	}
}
