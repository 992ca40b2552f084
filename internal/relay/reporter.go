// Package relay is the background side of the pipeline: it forwards
// accepted submissions to the companion service, folds code-run results
// into the per-problem cache, and admits login credentials from
// allow-listed origins.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/errorterry/algotrack-agent/internal/bus"
	"github.com/errorterry/algotrack-agent/internal/kvstore"
	"github.com/errorterry/algotrack-agent/internal/messages"
	"github.com/errorterry/algotrack-agent/internal/session"
	"github.com/errorterry/algotrack-agent/internal/submissions"
)

// solveLogPath is the companion-service endpoint for accepted submissions.
const solveLogPath = "/api/solve-log"

// solveLogBody is the wire body the companion service expects. ProblemTier
// is null when the difficulty could not be determined.
type solveLogBody struct {
	AlgorithmName string `json:"algorithmName"`
	ProblemID     int    `json:"problemId"`
	SolvedDate    string `json:"solvedDate"`
	ProblemTier   *int   `json:"problemTier"`
}

// ReporterConfig configures the solve-log reporter.
type ReporterConfig struct {
	// BaseURL is the companion-service root, without trailing slash.
	BaseURL string
	// Client defaults to a 10 second timeout client.
	Client *http.Client
}

// Reporter consumes accepted-submission messages and posts each one to the
// companion service exactly once per delivery. A failed post is logged and
// dropped; the ledger upstream already recorded the submission, so there is
// deliberately no retry.
type Reporter struct {
	cfg    ReporterConfig
	store  kvstore.Store
	logger *slog.Logger
}

// NewReporter creates a reporter over the given store.
func NewReporter(cfg ReporterConfig, store kvstore.Store, logger *slog.Logger) *Reporter {
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Reporter{cfg: cfg, store: store, logger: logger}
}

// Start subscribes the reporter to the submissions topic.
func (r *Reporter) Start(b bus.Bus) (cancel func()) {
	return b.Subscribe(bus.TopicSubmissions, func(ctx context.Context, env messages.Envelope) {
		m, err := env.Decode()
		if err != nil {
			r.logger.Warn("rejected submissions message", "err", err)
			return
		}
		sr, ok := m.(*messages.SubmitResult)
		if !ok {
			return
		}
		r.report(ctx, sr)
	})
}

func (r *Reporter) report(ctx context.Context, sr *messages.SubmitResult) {
	auth, err := session.Load(ctx, r.store)
	if err != nil {
		r.logger.Warn("failed to load session, posting anonymously", "err", err)
	}
	if !auth.LoggedIn() {
		r.logger.Warn("no access token, posting solve log without authorization",
			"problem", sr.ProblemID)
	} else if exp, ok := auth.TokenExpiry(); ok && exp.Before(time.Now()) {
		r.logger.Warn("access token appears expired", "expiredAt", exp)
	}

	body := solveLogBody{
		AlgorithmName: sr.AlgorithmName,
		ProblemID:     sr.ProblemID,
		SolvedDate:    sr.SolvedDate,
		ProblemTier:   tierNumber(sr.TierNumber),
	}
	raw, err := json.Marshal(body)
	if err != nil {
		r.logger.Warn("failed to encode solve log", "err", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.cfg.BaseURL+solveLogPath, bytes.NewReader(raw))
	if err != nil {
		r.logger.Warn("failed to build solve log request", "err", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if auth.LoggedIn() {
		req.Header.Set("Authorization", "Bearer "+auth.AccessToken)
	}

	resp, err := r.cfg.Client.Do(req)
	if err != nil {
		r.logger.Warn("solve log post failed", "problem", sr.ProblemID, "err", err)
		return
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode >= 300 {
		r.logger.Warn("solve log rejected",
			"problem", sr.ProblemID, "status", resp.StatusCode, "body", string(respBody))
		return
	}
	r.logger.Info("solve log posted",
		"problem", sr.ProblemID, "algorithm", sr.AlgorithmName, "status", resp.StatusCode)
}

// tierNumber converts the scraped tier code to the wire form: nil for the
// unknown sentinel or anything non-numeric.
func tierNumber(code string) *int {
	if code == submissions.TierUnknown {
		return nil
	}
	n, err := strconv.Atoi(code)
	if err != nil {
		return nil
	}
	return &n
}
