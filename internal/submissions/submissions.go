// Package submissions parses the host site's results table. Only the first
// row of the first table is ever read; any missing shape soft-fails to nil
// so a caller can skip the cycle without surfacing an error.
package submissions

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// AcceptedMarker is the verdict text fragment that indicates an accepted
// submission on the host site.
const AcceptedMarker = "맞았습니다!!"

// TierUnknown is the literal tier code used when no tier image is present
// or its URL does not match.
const TierUnknown = "NULL"

var (
	digitsRe = regexp.MustCompile(`(\d+)`)

	// Tier image URLs embed the numeric difficulty code right before the
	// extension; a tier_small variant is tried first.
	tierSmallRe = regexp.MustCompile(`(?i)tier[_-]small[_-]?(\d+)\.(svg|png|webp)$`)
	tierPlainRe = regexp.MustCompile(`(?i)(\d+)\.(svg|png|webp)$`)
)

// Row is one parsed submission row. Produced transiently on every watcher
// tick; only SubmissionID is ever persisted (in the ledger). A Row is
// always fully populated: ParseLatest returns nil instead of a partial
// row.
type Row struct {
	SubmissionID string
	ProblemID    int // 0 when unresolvable
	ResultText   string
	SolvedAt     time.Time
	SolvedDate   string // local year-month-day
	TierCode     string // numeric string, or TierUnknown
}

// Accepted reports whether the row's verdict indicates acceptance.
func (r *Row) Accepted() bool {
	return strings.Contains(r.ResultText, AcceptedMarker)
}

// SolvedAtMillis returns the solve instant as epoch milliseconds.
func (r *Row) SolvedAtMillis() int64 {
	return r.SolvedAt.UnixMilli()
}

// ParseLatest reads the first row of the first results table in doc.
// It returns nil when the table, row, or cells are absent, when the
// submission id cell is empty, or when the row carries no timestamp
// anchor.
func ParseLatest(doc *goquery.Document) *Row {
	body := doc.Find("table tbody").First()
	if body.Length() == 0 {
		return nil
	}
	tr := body.Find("tr").First()
	if tr.Length() == 0 {
		return nil
	}
	tds := tr.Find("td")
	if tds.Length() == 0 {
		return nil
	}

	submissionID := strings.TrimSpace(tds.Eq(0).Text())
	if submissionID == "" {
		return nil
	}

	// Problem id: third cell if present else second, first digit run of
	// the problem anchor's text or the cell text.
	problemID := 0
	problemTd := tds.Eq(2)
	if problemTd.Length() == 0 {
		problemTd = tds.Eq(1)
	}
	if problemTd.Length() > 0 {
		raw := problemTd.Find("a[href*='/problem/']").First().Text()
		if strings.TrimSpace(raw) == "" {
			raw = problemTd.Text()
		}
		if m := digitsRe.FindStringSubmatch(strings.TrimSpace(raw)); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				problemID = n
			}
		}
	}

	resultTd := tr.Find("td.result").First()
	if resultTd.Length() == 0 {
		resultTd = tds.Eq(3)
	}
	resultText := ""
	if resultTd.Length() > 0 {
		resultText = strings.TrimSpace(resultTd.Text())
	}

	// The timestamp anchor carries whole seconds; a row without one is
	// unparsable.
	tsRaw, ok := tr.Find("a.real-time-update").First().Attr("data-timestamp")
	if !ok {
		return nil
	}
	tsSec, err := strconv.ParseInt(strings.TrimSpace(tsRaw), 10, 64)
	if err != nil {
		return nil
	}
	solvedAt := time.Unix(tsSec, 0)

	return &Row{
		SubmissionID: submissionID,
		ProblemID:    problemID,
		ResultText:   resultText,
		SolvedAt:     solvedAt,
		SolvedDate:   solvedAt.Format("2006-01-02"),
		TierCode:     parseTierCode(tr),
	}
}

// parseTierCode extracts the numeric difficulty code from the row's tier
// image URL.
func parseTierCode(tr *goquery.Selection) string {
	src, ok := tr.Find("img.solvedac-tier").First().Attr("src")
	if !ok {
		return TierUnknown
	}
	if m := tierSmallRe.FindStringSubmatch(src); m != nil {
		return m[1]
	}
	if m := tierPlainRe.FindStringSubmatch(src); m != nil {
		return m[1]
	}
	return TierUnknown
}
