package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/errorterry/algotrack-agent/internal/bus"
	"github.com/errorterry/algotrack-agent/internal/judge"
	"github.com/errorterry/algotrack-agent/internal/kvstore"
	"github.com/errorterry/algotrack-agent/internal/messages"
	"github.com/errorterry/algotrack-agent/internal/samples"
)

// SampleResult is one judged run result as persisted in the per-problem
// cache.
type SampleResult struct {
	Output  string        `json:"output"`
	Verdict judge.Verdict `json:"verdict"`
}

// ResultSink folds code-run results into the per-problem cache and judges
// each one against the current sample set. It tracks the active problem
// from the samples broadcast, so run results arriving before any samples
// are dropped.
//
// Every sample broadcast also re-judges the already cached results for
// that problem, so a late sample extraction upgrades earlier no-result
// entries in place.
type ResultSink struct {
	store  kvstore.Store
	logger *slog.Logger

	mu        sync.Mutex
	problemID string
	samples   []samples.Sample
}

// NewResultSink creates a sink over the given store.
func NewResultSink(store kvstore.Store, logger *slog.Logger) *ResultSink {
	return &ResultSink{store: store, logger: logger}
}

// Start subscribes the sink to the samples and run-result topics.
func (s *ResultSink) Start(b bus.Bus) (cancel func()) {
	cancelSamples := b.Subscribe(bus.TopicSamplesMessage, func(ctx context.Context, env messages.Envelope) {
		m, err := env.Decode()
		if err != nil {
			s.logger.Warn("rejected samples message", "err", err)
			return
		}
		if sm, ok := m.(*messages.Samples); ok {
			s.setSamples(ctx, sm.Payload)
		}
	})
	cancelResults := b.Subscribe(bus.TopicRunResults, func(ctx context.Context, env messages.Envelope) {
		m, err := env.Decode()
		if err != nil {
			s.logger.Warn("rejected run result message", "err", err)
			return
		}
		if rr, ok := m.(*messages.RunResult); ok {
			s.merge(ctx, rr.Payload)
		}
	})
	return func() {
		cancelSamples()
		cancelResults()
	}
}

// Results returns the cached judged results for problemID.
func (s *ResultSink) Results(ctx context.Context, problemID string) (map[int]SampleResult, error) {
	results := make(map[int]SampleResult)
	_, err := kvstore.GetJSON(ctx, s.store, kvstore.PrefixIDEResults+problemID, &results)
	return results, err
}

func (s *ResultSink) setSamples(ctx context.Context, p messages.SamplesPayload) {
	s.mu.Lock()
	s.problemID = p.ProblemID
	s.samples = p.Samples
	s.mu.Unlock()

	if p.ProblemID == "" {
		return
	}
	s.rejudge(ctx, p.ProblemID, p.Samples)
}

// rejudge recomputes verdicts for all cached outputs of problemID against
// the given sample set.
func (s *ResultSink) rejudge(ctx context.Context, problemID string, set []samples.Sample) {
	results, err := s.Results(ctx, problemID)
	if err != nil {
		s.logger.Warn("failed to read cached results", "problem", problemID, "err", err)
		return
	}
	if len(results) == 0 {
		return
	}

	changed := false
	for id, res := range results {
		verdict := verdictFor(set, id, res.Output)
		if verdict != res.Verdict {
			res.Verdict = verdict
			results[id] = res
			changed = true
		}
	}
	if !changed {
		return
	}
	if err := s.persist(ctx, problemID, results); err != nil {
		s.logger.Warn("failed to persist re-judged results", "problem", problemID, "err", err)
	}
}

func (s *ResultSink) merge(ctx context.Context, p messages.RunResultPayload) {
	s.mu.Lock()
	problemID := s.problemID
	set := s.samples
	s.mu.Unlock()

	if problemID == "" {
		s.logger.Warn("run result before any samples broadcast, dropping", "sample", p.SampleID)
		return
	}

	results, err := s.Results(ctx, problemID)
	if err != nil {
		s.logger.Warn("failed to read cached results", "problem", problemID, "err", err)
		return
	}
	verdict := verdictFor(set, p.SampleID, p.Output)
	results[p.SampleID] = SampleResult{Output: p.Output, Verdict: verdict}

	if err := s.persist(ctx, problemID, results); err != nil {
		s.logger.Warn("failed to persist run result", "problem", problemID, "err", err)
		return
	}
	s.logger.Info("run result judged",
		"problem", problemID, "sample", p.SampleID, "verdict", verdict)
}

// persist writes through the evicting setter so a full cache makes room
// instead of failing outright.
func (s *ResultSink) persist(ctx context.Context, problemID string, results map[int]SampleResult) error {
	raw, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("failed to encode results for problem %s: %w", problemID, err)
	}
	return kvstore.SafeSetProblemKey(ctx, s.store, kvstore.PrefixIDEResults+problemID, string(raw))
}

// verdictFor judges output for the sample with the given index. An output
// for an index with no known sample stays unjudged.
func verdictFor(set []samples.Sample, sampleID int, output string) judge.Verdict {
	for _, sm := range set {
		if sm.Index == sampleID {
			return judge.Evaluate(sm.Output, output)
		}
	}
	return judge.NoResult
}
