package relay

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/errorterry/algotrack-agent/internal/bus"
	"github.com/errorterry/algotrack-agent/internal/kvstore"
	"github.com/errorterry/algotrack-agent/internal/messages"
	"github.com/errorterry/algotrack-agent/internal/session"
)

type recordedRequest struct {
	Path          string
	Authorization string
	Body          map[string]any
}

type solveLogServer struct {
	mu       sync.Mutex
	requests []recordedRequest
	status   int
}

func newSolveLogServer(t *testing.T, status int) (*solveLogServer, *httptest.Server) {
	t.Helper()
	s := &solveLogServer{status: status}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var body map[string]any
		require.NoError(t, json.Unmarshal(raw, &body))

		s.mu.Lock()
		s.requests = append(s.requests, recordedRequest{
			Path:          r.URL.Path,
			Authorization: r.Header.Get("Authorization"),
			Body:          body,
		})
		s.mu.Unlock()
		w.WriteHeader(s.status)
	}))
	t.Cleanup(srv.Close)
	return s, srv
}

func (s *solveLogServer) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func (s *solveLogServer) last() recordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[len(s.requests)-1]
}

func submitResult(tier string) *messages.SubmitResult {
	return &messages.SubmitResult{
		Verdict:       "맞았습니다!!",
		SubmissionID:  "12345",
		ProblemID:     1000,
		SolvedDate:    "2026-08-31",
		TierNumber:    tier,
		AlgorithmName: "구현",
		SolvedAt:      1756600000000,
	}
}

func TestReporter_PostsSolveLogWithBearer(t *testing.T) {
	store := kvstore.NewMemory()
	require.NoError(t, session.Save(context.Background(), store, session.Auth{AccessToken: "tok"}))

	srv, ts := newSolveLogServer(t, http.StatusCreated)
	b := newTestBus(t)
	reporter := NewReporter(ReporterConfig{BaseURL: ts.URL}, store, testLogger())
	t.Cleanup(reporter.Start(b))

	publish(t, b, bus.TopicSubmissions, "", submitResult("11"))

	waitFor(t, func() bool { return srv.count() == 1 })
	got := srv.last()
	assert.Equal(t, "/api/solve-log", got.Path)
	assert.Equal(t, "Bearer tok", got.Authorization)
	assert.Equal(t, "구현", got.Body["algorithmName"])
	assert.Equal(t, float64(1000), got.Body["problemId"])
	assert.Equal(t, "2026-08-31", got.Body["solvedDate"])
	assert.Equal(t, float64(11), got.Body["problemTier"])
}

func TestReporter_PostsAnonymouslyWithoutToken(t *testing.T) {
	store := kvstore.NewMemory()
	srv, ts := newSolveLogServer(t, http.StatusCreated)
	b := newTestBus(t)
	reporter := NewReporter(ReporterConfig{BaseURL: ts.URL}, store, testLogger())
	t.Cleanup(reporter.Start(b))

	publish(t, b, bus.TopicSubmissions, "", submitResult("11"))

	waitFor(t, func() bool { return srv.count() == 1 })
	assert.Empty(t, srv.last().Authorization)
}

func TestReporter_UnknownTierPostsNull(t *testing.T) {
	store := kvstore.NewMemory()
	srv, ts := newSolveLogServer(t, http.StatusCreated)
	b := newTestBus(t)
	reporter := NewReporter(ReporterConfig{BaseURL: ts.URL}, store, testLogger())
	t.Cleanup(reporter.Start(b))

	publish(t, b, bus.TopicSubmissions, "", submitResult("NULL"))

	waitFor(t, func() bool { return srv.count() == 1 })
	got := srv.last()
	val, present := got.Body["problemTier"]
	assert.True(t, present)
	assert.Nil(t, val)
}

func TestReporter_ServerErrorIsNotRetried(t *testing.T) {
	store := kvstore.NewMemory()
	srv, ts := newSolveLogServer(t, http.StatusInternalServerError)
	b := newTestBus(t)
	reporter := NewReporter(ReporterConfig{BaseURL: ts.URL}, store, testLogger())
	t.Cleanup(reporter.Start(b))

	publish(t, b, bus.TopicSubmissions, "", submitResult("11"))

	waitFor(t, func() bool { return srv.count() == 1 })
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, srv.count())
}

func TestReporter_MalformedMessageIsDropped(t *testing.T) {
	store := kvstore.NewMemory()
	srv, ts := newSolveLogServer(t, http.StatusCreated)
	b := newTestBus(t)
	reporter := NewReporter(ReporterConfig{BaseURL: ts.URL}, store, testLogger())
	t.Cleanup(reporter.Start(b))

	env := messages.Envelope{
		ID:   "x",
		Type: messages.TypeSubmitResult,
		Data: []byte(`{"verdict":"맞았습니다!!"}`),
	}
	require.NoError(t, b.Publish(context.Background(), bus.TopicSubmissions, env))

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 0, srv.count())
}
