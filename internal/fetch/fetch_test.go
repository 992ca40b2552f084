package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMain disables the headless browser so the short fixture pages used
// throughout this package never launch Chrome.
func TestMain(m *testing.M) {
	render = func(context.Context, string, time.Duration) (string, error) {
		return "", &Error{Message: "no browser in tests"}
	}
	os.Exit(m.Run())
}

// stubRender swaps the browser path for a canned result for one test.
func stubRender(t *testing.T, html string, err error) *atomic.Int64 {
	t.Helper()
	var calls atomic.Int64
	prev := render
	render = func(context.Context, string, time.Duration) (string, error) {
		calls.Add(1)
		return html, err
	}
	t.Cleanup(func() { render = prev })
	return &calls
}

func TestDocument_ParsesFetchedPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><span id="problem_title">A+B</span></body></html>`))
	}))
	t.Cleanup(srv.Close)

	doc, u, err := Document(context.Background(), srv.URL+"/problem/1000", nil)
	require.NoError(t, err)
	assert.Equal(t, "/problem/1000", u.Path)
	assert.Equal(t, "A+B", doc.Find("#problem_title").Text())
}

func TestDocument_SetsUserAgentAndHeaders(t *testing.T) {
	var gotUA, gotExtra string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotExtra = r.Header.Get("X-Extra")
		_, _ = w.Write([]byte("<html></html>"))
	}))
	t.Cleanup(srv.Close)

	opts := DefaultOptions()
	opts.Headers = map[string]string{"X-Extra": "yes"}
	_, _, err := Document(context.Background(), srv.URL, opts)
	require.NoError(t, err)
	assert.Equal(t, DefaultUserAgent, gotUA)
	assert.Equal(t, "yes", gotExtra)
}

func TestDocument_NonOKStatusFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	_, _, err := Document(context.Background(), srv.URL, nil)
	require.Error(t, err)
	var fe *Error
	require.True(t, errors.As(err, &fe))
	assert.Contains(t, fe.Message, "404")
}

func TestDocument_RejectsInvalidURL(t *testing.T) {
	_, _, err := Document(context.Background(), "not a url", nil)
	require.Error(t, err)
	var fe *Error
	assert.True(t, errors.As(err, &fe))
}

func TestLoaderBindsURL(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		_, _ = w.Write([]byte("<html><body>ok</body></html>"))
	}))
	t.Cleanup(srv.Close)

	load := Loader(srv.URL+"/status", nil)
	_, u, err := load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/status", u.Path)
	_, _, err = load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, hits)
}

func TestDocument_UnrenderedShellFallsBackToBrowser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><div id="root"></div></body></html>`))
	}))
	t.Cleanup(srv.Close)
	calls := stubRender(t, `<html><body><span id="problem_title">A+B</span></body></html>`, nil)

	doc, _, err := Document(context.Background(), srv.URL+"/problem/1000", nil)
	require.NoError(t, err)
	assert.Equal(t, "A+B", doc.Find("#problem_title").Text())
	assert.Equal(t, int64(1), calls.Load())
}

func TestDocument_KeepsShellWhenBrowserUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><div id="root">loading</div></body></html>`))
	}))
	t.Cleanup(srv.Close)

	doc, _, err := Document(context.Background(), srv.URL+"/problem/1000", nil)
	require.NoError(t, err)
	assert.Equal(t, "loading", doc.Find("#root").Text())
}

func TestDocument_RenderedBodySkipsBrowser(t *testing.T) {
	body := make([]byte, MinMarkupLength+1)
	for i := range body {
		body[i] = 'x'
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body>" + string(body) + "</body></html>"))
	}))
	t.Cleanup(srv.Close)
	calls := stubRender(t, "", nil)

	_, _, err := Document(context.Background(), srv.URL+"/problem/1000", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), calls.Load())
}

func TestLooksUnrendered(t *testing.T) {
	assert.True(t, LooksUnrendered("   \n  "))
	assert.True(t, LooksUnrendered("loading"))
	long := make([]byte, MinMarkupLength+1)
	for i := range long {
		long[i] = 'x'
	}
	assert.False(t, LooksUnrendered(string(long)))
}
