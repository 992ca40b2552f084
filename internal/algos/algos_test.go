package algos

import (
	"context"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/errorterry/algotrack-agent/internal/kvstore"
)

type fakePrompter struct {
	answer   string
	answered bool
	calls    int
}

func (f *fakePrompter) Answer(string, []string) (string, bool) {
	f.calls++
	return f.answer, f.answered
}

func parseDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestScrapeTags(t *testing.T) {
	doc := parseDoc(t, `
		<html><body>
			<div id="problem_tags">
				<a href="/tag/dp">다이나믹 프로그래밍</a>
				<a href="/tag/graph">그래프 이론</a>
				<a href="/tag/empty">  </a>
			</div>
		</body></html>
	`)
	assert.Equal(t, []string{"다이나믹 프로그래밍", "그래프 이론"}, ScrapeTags(doc))
}

func TestScrapeTags_FallbackContainer(t *testing.T) {
	doc := parseDoc(t, `<html><body><div class="problem-tags"><a>BFS</a></div></body></html>`)
	assert.Equal(t, []string{"BFS"}, ScrapeTags(doc))
}

func TestScrapeTags_NoContainer(t *testing.T) {
	assert.Nil(t, ScrapeTags(parseDoc(t, `<html><body></body></html>`)))
}

func TestCatalog_LearnAndLookup(t *testing.T) {
	c := NewCatalog(kvstore.NewMemory())
	ctx := context.Background()

	require.NoError(t, c.Learn(ctx, "1000", []string{"DP"}))

	got, err := c.Candidates(ctx, "1000")
	require.NoError(t, err)
	assert.Equal(t, []string{"DP"}, got)
}

func TestCatalog_EmptyListDoesNotErase(t *testing.T) {
	c := NewCatalog(kvstore.NewMemory())
	ctx := context.Background()

	require.NoError(t, c.Learn(ctx, "1000", []string{"DP", "Graph"}))
	require.NoError(t, c.Learn(ctx, "1000", nil))

	got, err := c.Candidates(ctx, "1000")
	require.NoError(t, err)
	assert.Equal(t, []string{"DP", "Graph"}, got)
}

func TestResolver_NoCandidatesUnresolved(t *testing.T) {
	c := NewCatalog(kvstore.NewMemory())
	r := NewResolver(c, &fakePrompter{})

	_, ok, err := r.Resolve(context.Background(), "9999")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResolver_SingleCandidateSkipsPrompt(t *testing.T) {
	ctx := context.Background()
	c := NewCatalog(kvstore.NewMemory())
	require.NoError(t, c.Learn(ctx, "1000", []string{"DP"}))

	p := &fakePrompter{}
	name, ok, err := NewResolver(c, p).Resolve(ctx, "1000")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "DP", name)
	assert.Equal(t, 0, p.calls)
}

func TestResolver_UserPicksOrdinal(t *testing.T) {
	ctx := context.Background()
	c := NewCatalog(kvstore.NewMemory())
	require.NoError(t, c.Learn(ctx, "1000", []string{"DP", "Graph"}))

	name, ok, err := NewResolver(c, &fakePrompter{answer: "2", answered: true}).Resolve(ctx, "1000")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Graph", name)
}

func TestResolver_OutOfRangeDefaultsToFirst(t *testing.T) {
	ctx := context.Background()
	c := NewCatalog(kvstore.NewMemory())
	require.NoError(t, c.Learn(ctx, "1000", []string{"DP", "Graph"}))

	name, ok, err := NewResolver(c, &fakePrompter{answer: "9", answered: true}).Resolve(ctx, "1000")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "DP", name)
}

func TestResolver_CancelDefaultsToFirst(t *testing.T) {
	ctx := context.Background()
	c := NewCatalog(kvstore.NewMemory())
	require.NoError(t, c.Learn(ctx, "1000", []string{"DP", "Graph"}))

	name, ok, err := NewResolver(c, &fakePrompter{answered: false}).Resolve(ctx, "1000")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "DP", name)
}

func TestResolver_NilPrompterAutoDefaults(t *testing.T) {
	ctx := context.Background()
	c := NewCatalog(kvstore.NewMemory())
	require.NoError(t, c.Learn(ctx, "1000", []string{"DP", "Graph"}))

	name, ok, err := NewResolver(c, nil).Resolve(ctx, "1000")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "DP", name)
}

func TestTerminalPrompter_ReadsOrdinal(t *testing.T) {
	var out strings.Builder
	p := &TerminalPrompter{In: strings.NewReader("2\n"), Out: &out}

	answer, answered := p.Answer("1000", []string{"DP", "Graph"})
	assert.True(t, answered)
	assert.Equal(t, "2", answer)
	assert.Contains(t, out.String(), "1. DP")
	assert.Contains(t, out.String(), "2. Graph")
}

func TestTerminalPrompter_EOFIsCancel(t *testing.T) {
	var out strings.Builder
	p := &TerminalPrompter{In: strings.NewReader(""), Out: &out}

	_, answered := p.Answer("1000", []string{"DP", "Graph"})
	assert.False(t, answered)
}
