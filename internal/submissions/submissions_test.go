package submissions

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func statusRowHTML(submissionID, problemCell, result, tierImg string, ts int64) string {
	tsAnchor := ""
	if ts > 0 {
		tsAnchor = fmt.Sprintf(`<a class="real-time-update" data-timestamp="%d">방금 전</a>`, ts)
	}
	return fmt.Sprintf(`
		<html><body><table><tbody>
			<tr>
				<td>%s</td>
				<td>terry</td>
				<td>%s%s</td>
				<td class="result"><span>%s</span></td>
				<td>%s</td>
			</tr>
			<tr><td>999</td></tr>
		</tbody></table></body></html>
	`, submissionID, problemCell, tierImg, result, tsAnchor)
}

func TestParseLatest_FullRow(t *testing.T) {
	ts := time.Date(2026, 8, 31, 14, 3, 0, 0, time.Local).Unix()
	html := statusRowHTML(
		"12345678",
		`<a href="/problem/1000">1000</a>`,
		"맞았습니다!!",
		`<img class="solvedac-tier" src="https://static.example/tier_small/11.svg">`,
		ts,
	)

	row := ParseLatest(parseDoc(t, html))
	require.NotNil(t, row)

	assert.Equal(t, "12345678", row.SubmissionID)
	assert.Equal(t, 1000, row.ProblemID)
	assert.Equal(t, "맞았습니다!!", row.ResultText)
	assert.Equal(t, "2026-08-31", row.SolvedDate)
	assert.Equal(t, ts*1000, row.SolvedAtMillis())
	assert.Equal(t, "11", row.TierCode)
	assert.True(t, row.Accepted())
}

func TestParseLatest_NoTable(t *testing.T) {
	assert.Nil(t, ParseLatest(parseDoc(t, `<html><body><p>no submissions</p></body></html>`)))
}

func TestParseLatest_EmptyTable(t *testing.T) {
	assert.Nil(t, ParseLatest(parseDoc(t, `<html><body><table><tbody></tbody></table></body></html>`)))
}

func TestParseLatest_EmptySubmissionID(t *testing.T) {
	html := statusRowHTML("", `<a href="/problem/1000">1000</a>`, "맞았습니다!!", "", time.Now().Unix())
	assert.Nil(t, ParseLatest(parseDoc(t, html)))
}

func TestParseLatest_MissingTimestampAnchor(t *testing.T) {
	html := statusRowHTML("111", `<a href="/problem/1000">1000</a>`, "맞았습니다!!", "", 0)
	assert.Nil(t, ParseLatest(parseDoc(t, html)))
}

func TestParseLatest_ProblemIDFromCellText(t *testing.T) {
	html := statusRowHTML("222", `문제 2557`, "틀렸습니다", "", time.Now().Unix())

	row := ParseLatest(parseDoc(t, html))
	require.NotNil(t, row)
	assert.Equal(t, 2557, row.ProblemID)
	assert.False(t, row.Accepted())
}

func TestParseLatest_UnresolvableProblemID(t *testing.T) {
	html := statusRowHTML("333", `비공개`, "맞았습니다!!", "", time.Now().Unix())

	row := ParseLatest(parseDoc(t, html))
	require.NotNil(t, row)
	assert.Equal(t, 0, row.ProblemID)
}

func TestParseLatest_TierDefaultsToNULL(t *testing.T) {
	html := statusRowHTML("444", `<a href="/problem/1000">1000</a>`, "맞았습니다!!", "", time.Now().Unix())

	row := ParseLatest(parseDoc(t, html))
	require.NotNil(t, row)
	assert.Equal(t, TierUnknown, row.TierCode)
}

func TestParseLatest_TierPlainURL(t *testing.T) {
	html := statusRowHTML(
		"555",
		`<a href="/problem/1000">1000</a>`,
		"맞았습니다!!",
		`<img class="solvedac-tier" src="https://static.example/tiers/16.png">`,
		time.Now().Unix(),
	)

	row := ParseLatest(parseDoc(t, html))
	require.NotNil(t, row)
	assert.Equal(t, "16", row.TierCode)
}

func TestParseLatest_TierUnmatchedURL(t *testing.T) {
	html := statusRowHTML(
		"666",
		`<a href="/problem/1000">1000</a>`,
		"맞았습니다!!",
		`<img class="solvedac-tier" src="https://static.example/tiers/unrated.gif">`,
		time.Now().Unix(),
	)

	row := ParseLatest(parseDoc(t, html))
	require.NotNil(t, row)
	assert.Equal(t, TierUnknown, row.TierCode)
}

func TestParseLatest_OnlyFirstRowRead(t *testing.T) {
	ts := time.Now().Unix()
	html := fmt.Sprintf(`
		<html><body><table><tbody>
			<tr>
				<td>777</td><td>terry</td>
				<td><a href="/problem/1000">1000</a></td>
				<td class="result">채점 중</td>
				<td><a class="real-time-update" data-timestamp="%d">방금 전</a></td>
			</tr>
			<tr>
				<td>776</td><td>terry</td>
				<td><a href="/problem/2000">2000</a></td>
				<td class="result">맞았습니다!!</td>
				<td><a class="real-time-update" data-timestamp="%d">1분 전</a></td>
			</tr>
		</tbody></table></body></html>
	`, ts, ts-60)

	row := ParseLatest(parseDoc(t, html))
	require.NotNil(t, row)
	assert.Equal(t, "777", row.SubmissionID)
	assert.Equal(t, 1000, row.ProblemID)
	assert.False(t, row.Accepted())
}
