// Package bridge publishes the current problem page's sample set to the
// rest of the pipeline. Every emission is a full replacement of the sample
// set, so consumers stay correct no matter how often the page re-renders.
package bridge

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/errorterry/algotrack-agent/internal/bus"
	"github.com/errorterry/algotrack-agent/internal/messages"
	"github.com/errorterry/algotrack-agent/internal/page"
	"github.com/errorterry/algotrack-agent/internal/samples"
)

// Source supplies a fresh document of the page under observation.
type Source func(ctx context.Context) (*goquery.Document, *url.URL, error)

// Config tunes the emission schedule. Zero values take the defaults the
// host site's rendering behavior was measured against.
type Config struct {
	// LoadSettle delays one extra emission after startup so late-rendered
	// sample blocks are caught.
	LoadSettle time.Duration
	// Debounce is the trailing quiet period after a burst of document
	// mutations before re-emitting.
	Debounce time.Duration
	// Now is the clock stamped into payloads. Defaults to time.Now.
	Now func() time.Time
}

func (c *Config) applyDefaults() {
	if c.LoadSettle == 0 {
		c.LoadSettle = 50 * time.Millisecond
	}
	if c.Debounce == 0 {
		c.Debounce = 120 * time.Millisecond
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

// Bridge extracts samples from the observed page and broadcasts them on
// both delivery paths: the same-context event topic and the cross-context
// message topic. Broadcast requests arriving on the control topic trigger
// an immediate re-emission.
type Bridge struct {
	cfg       Config
	source    Source
	extractor *samples.Extractor
	bus       bus.Bus
	logger    *slog.Logger

	// mutations carries document change triggers; navigations carries
	// route changes. Either may be nil.
	mutations   <-chan struct{}
	navigations <-chan struct{}
}

// New creates a bridge. mutations and navigations may be nil.
func New(cfg Config, source Source, extractor *samples.Extractor, b bus.Bus, mutations, navigations <-chan struct{}, logger *slog.Logger) *Bridge {
	cfg.applyDefaults()
	return &Bridge{
		cfg:         cfg,
		source:      source,
		extractor:   extractor,
		bus:         b,
		logger:      logger,
		mutations:   mutations,
		navigations: navigations,
	}
}

// Run emits once immediately, once more after the load-settle delay, and
// then re-emits on navigation, on broadcast requests, and after each
// mutation burst settles. Runs until ctx ends.
func (b *Bridge) Run(ctx context.Context) error {
	requests := make(chan struct{}, 1)
	cancel := b.bus.Subscribe(bus.TopicControl, func(_ context.Context, env messages.Envelope) {
		if env.Type != messages.TypeRequestSamples {
			return
		}
		select {
		case requests <- struct{}{}:
		default:
		}
	})
	defer cancel()

	b.emit(ctx)

	settle := time.NewTimer(b.cfg.LoadSettle)
	defer settle.Stop()

	// debounce fires one trailing emission after a mutation burst. The
	// timer starts stopped and is re-armed on every mutation.
	debounce := time.NewTimer(time.Hour)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-settle.C:
			b.emit(ctx)
		case <-requests:
			b.emit(ctx)
		case <-b.navigations:
			b.emit(ctx)
		case <-b.mutations:
			debounce.Reset(b.cfg.Debounce)
		case <-debounce.C:
			b.emit(ctx)
		}
	}
}

// emit extracts the current sample set and publishes it. Pages that are
// not problem pages are skipped silently; extraction failures are logged
// and skipped so a later trigger can succeed.
func (b *Bridge) emit(ctx context.Context) {
	doc, u, err := b.source(ctx)
	if err != nil {
		b.logger.Warn("failed to load problem page", "err", err)
		return
	}
	if !page.IsProblemPage(u) {
		return
	}

	extracted := b.extractor.Extract(doc)
	if extracted == nil {
		// The payload schema requires an array; an empty emission still
		// replaces stale samples from the previous problem.
		extracted = []samples.Sample{}
	}
	meta := page.ExtractMeta(doc, u)

	env, err := messages.Wrap("", &messages.Samples{Payload: messages.SamplesPayload{
		ProblemID:    meta.ProblemID,
		ProblemTitle: meta.ProblemTitle,
		URL:          meta.SourceURL,
		Samples:      extracted,
		ParsedAt:     b.cfg.Now().UnixMilli(),
	}})
	if err != nil {
		b.logger.Warn("failed to build samples message", "err", err)
		return
	}

	for _, topic := range []string{bus.TopicSamplesEvent, bus.TopicSamplesMessage} {
		if err := b.bus.Publish(ctx, topic, env); err != nil {
			b.logger.Warn("samples publish failed", "topic", topic, "err", err)
		}
	}
	b.logger.Debug("samples broadcast", "problem", meta.ProblemID, "count", len(extracted))
}
