// Package watcher detects the user's own newly-accepted submission exactly
// once. It polls the results listing on a fixed sweep, re-checks on
// document mutation triggers, and self-cancels on a wall-clock budget. All
// ticks run on a single goroutine, so the ledger's check-then-append pair
// is serialized within one process.
package watcher

import (
	"context"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/errorterry/algotrack-agent/internal/algos"
	"github.com/errorterry/algotrack-agent/internal/bus"
	"github.com/errorterry/algotrack-agent/internal/ledger"
	"github.com/errorterry/algotrack-agent/internal/messages"
	"github.com/errorterry/algotrack-agent/internal/page"
	"github.com/errorterry/algotrack-agent/internal/submissions"
)

// State is the watcher's lifecycle position.
type State string

const (
	StateIdle     State = "idle"
	StateArmed    State = "armed"
	StateChecking State = "checking"
	StateDone     State = "done"
)

// Source supplies a fresh document of the page under observation. Called
// once per tick; the watcher never caches documents.
type Source func(ctx context.Context) (*goquery.Document, *url.URL, error)

// Config tunes the sweep schedule. Zero values take the defaults the host
// site's rendering behavior was measured against.
type Config struct {
	// InitialDelay lets late client-side rendering settle before the
	// first check.
	InitialDelay time.Duration
	// SweepInterval is the repeating check period.
	SweepInterval time.Duration
	// Budget bounds the whole sweep; after it elapses the watcher
	// self-cancels regardless of outcome.
	Budget time.Duration
	// Now is the clock used for the today-check. Defaults to time.Now.
	Now func() time.Time
	// OnRow observes the parsed row of a new qualifying submission just
	// before tag resolution. May be nil.
	OnRow func(*submissions.Row)
}

func (c *Config) applyDefaults() {
	if c.InitialDelay == 0 {
		c.InitialDelay = 300 * time.Millisecond
	}
	if c.SweepInterval == 0 {
		c.SweepInterval = 4 * time.Second
	}
	if c.Budget == 0 {
		c.Budget = 5 * time.Minute
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

// Watcher orchestrates row parsing, the ledger, and the resolver, and
// emits one relay message per qualifying submission.
type Watcher struct {
	cfg      Config
	source   Source
	ledger   *ledger.Ledger
	resolver *algos.Resolver
	bus      bus.Bus
	logger   *slog.Logger

	// mutations triggers an extra check outside the sweep schedule.
	mutations <-chan struct{}

	state State
}

// New creates a watcher. mutations may be nil.
func New(cfg Config, source Source, led *ledger.Ledger, resolver *algos.Resolver, b bus.Bus, mutations <-chan struct{}, logger *slog.Logger) *Watcher {
	cfg.applyDefaults()
	return &Watcher{
		cfg:       cfg,
		source:    source,
		ledger:    led,
		resolver:  resolver,
		bus:       b,
		logger:    logger,
		mutations: mutations,
		state:     StateIdle,
	}
}

// State returns the watcher's current lifecycle position.
func (w *Watcher) State() State { return w.state }

// Run arms the watcher if the current page is the user's own results
// listing, then sweeps until a qualifying submission is relayed, the
// budget elapses, or ctx ends. Pages that are not the user's own listing
// leave the watcher idle.
func (w *Watcher) Run(ctx context.Context) error {
	doc, u, err := w.source(ctx)
	if err != nil {
		return err
	}
	if !page.IsMyStatusPage(doc, u) {
		w.logger.Debug("not the user's own results listing, staying idle")
		return nil
	}
	w.state = StateArmed
	w.logger.Info("watcher armed", "url", u.String(), "budget", w.cfg.Budget)

	initial := time.NewTimer(w.cfg.InitialDelay)
	defer initial.Stop()
	sweep := time.NewTicker(w.cfg.SweepInterval)
	defer sweep.Stop()
	budget := time.NewTimer(w.cfg.Budget)
	defer budget.Stop()

	for {
		select {
		case <-ctx.Done():
			w.state = StateIdle
			return ctx.Err()
		case <-budget.C:
			w.logger.Info("watcher budget elapsed, standing down")
			w.state = StateIdle
			return nil
		case <-initial.C:
		case <-sweep.C:
		case <-w.mutations:
		}

		if done := w.tick(ctx); done {
			w.state = StateDone
			return nil
		}
		w.state = StateArmed
	}
}

// tick runs one check cycle. Returns true once a qualifying submission
// has been relayed and recorded. Every skip path is side-effect free.
func (w *Watcher) tick(ctx context.Context) bool {
	w.state = StateChecking

	doc, _, err := w.source(ctx)
	if err != nil {
		w.logger.Warn("failed to load results page", "err", err)
		return false
	}

	row := submissions.ParseLatest(doc)
	if row == nil {
		return false
	}
	if row.SolvedDate != w.cfg.Now().Format("2006-01-02") {
		return false
	}
	if !row.Accepted() {
		return false
	}
	if row.ProblemID == 0 {
		w.logger.Debug("problem id unresolvable, skipping", "submission", row.SubmissionID)
		return false
	}

	processed, err := w.ledger.Has(ctx, row.SubmissionID)
	if err != nil {
		w.logger.Warn("ledger check failed", "submission", row.SubmissionID, "err", err)
		return false
	}
	if processed {
		return false
	}
	if w.cfg.OnRow != nil {
		w.cfg.OnRow(row)
	}

	problemID := strconv.Itoa(row.ProblemID)
	algorithmName, ok, err := w.resolver.Resolve(ctx, problemID)
	if err != nil {
		w.logger.Warn("tag resolution failed", "problem", problemID, "err", err)
		return false
	}
	if !ok {
		// No learned tags yet; leave the ledger untouched so a visit
		// after the problem page teaches the tags can succeed.
		w.logger.Info("no known algorithm tags, skipping", "problem", problemID)
		return false
	}

	env, err := messages.Wrap("", &messages.SubmitResult{
		Verdict:       row.ResultText,
		SubmissionID:  row.SubmissionID,
		ProblemID:     row.ProblemID,
		SolvedDate:    row.SolvedDate,
		TierNumber:    row.TierCode,
		AlgorithmName: algorithmName,
		SolvedAt:      row.SolvedAtMillis(),
	})
	if err != nil {
		w.logger.Warn("failed to build relay message", "err", err)
		return false
	}
	if err := w.bus.Publish(ctx, bus.TopicSubmissions, env); err != nil {
		w.logger.Warn("relay publish failed", "submission", row.SubmissionID, "err", err)
		return false
	}

	if err := w.ledger.Append(ctx, row.SubmissionID); err != nil {
		// The relay already happened; a failed append means a later tick
		// may relay again. Logged, not retried.
		w.logger.Warn("ledger append failed", "submission", row.SubmissionID, "err", err)
	}
	w.logger.Info("submission relayed",
		"submission", row.SubmissionID, "problem", row.ProblemID, "algorithm", algorithmName)
	return true
}
