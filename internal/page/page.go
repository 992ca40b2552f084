// Package page classifies judge-site documents and extracts problem
// metadata. All selectors are version-pinned to the host site's markup and
// every lookup soft-fails to an empty value when the expected shape is
// absent.
package page

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// problemPathRe matches problem page paths like /problem/1000.
var problemPathRe = regexp.MustCompile(`/problem/(\d+)`)

// userPathRe extracts the user id from a profile link.
var userPathRe = regexp.MustCompile(`/user/([^/?#]+)`)

// Meta is the problem metadata derived once per scrape alongside samples.
// Empty fields mean the value could not be determined.
type Meta struct {
	ProblemID    string `json:"problemId,omitempty"`
	ProblemTitle string `json:"problemTitle,omitempty"`
	SourceURL    string `json:"url"`
}

// IsStatusPage reports whether u is a submission results listing.
func IsStatusPage(u *url.URL) bool {
	return strings.HasPrefix(u.Path, "/status")
}

// IsProblemPage reports whether u is a problem statement page.
func IsProblemPage(u *url.URL) bool {
	return problemPathRe.MatchString(u.Path)
}

// ProblemIDFromURL extracts the numeric problem id from a problem page URL,
// or "" if the path does not carry one.
func ProblemIDFromURL(u *url.URL) string {
	m := problemPathRe.FindStringSubmatch(u.Path)
	if m == nil {
		return ""
	}
	return m[1]
}

// LoggedInUserID reads the current user's id from the login-bar profile
// anchor, preferring the href over the anchor text.
func LoggedInUserID(doc *goquery.Document) string {
	link := doc.Find("ul.loginbar a.username[href^='/user/']").First()
	if link.Length() == 0 {
		return ""
	}
	if href, ok := link.Attr("href"); ok {
		if m := userPathRe.FindStringSubmatch(href); m != nil {
			if id, err := url.PathUnescape(m[1]); err == nil && id != "" {
				return id
			}
			return m[1]
		}
	}
	return strings.TrimSpace(link.Text())
}

// StatusPageUserID returns the user whose submissions the status page
// lists: the user_id query parameter when present, otherwise the logged-in
// user (a bare /status is the "my submissions" view).
func StatusPageUserID(doc *goquery.Document, u *url.URL) string {
	if uid := u.Query().Get("user_id"); uid != "" {
		return uid
	}
	return LoggedInUserID(doc)
}

// IsMyStatusPage reports whether the document is the logged-in user's own
// results listing. Both identities must be resolvable and equal; the
// watcher only arms on such pages.
func IsMyStatusPage(doc *goquery.Document, u *url.URL) bool {
	if !IsStatusPage(u) {
		return false
	}
	mine := LoggedInUserID(doc)
	page := StatusPageUserID(doc, u)
	return mine != "" && page != "" && mine == page
}

// ExtractMeta derives the problem id and title for the current document.
func ExtractMeta(doc *goquery.Document, u *url.URL) Meta {
	meta := Meta{SourceURL: u.String(), ProblemID: ProblemIDFromURL(u)}

	if title := strings.TrimSpace(doc.Find("#problem_title").First().Text()); title != "" {
		meta.ProblemTitle = title
	} else if h := strings.TrimSpace(doc.Find("h1, h2").First().Text()); h != "" {
		meta.ProblemTitle = h
	}
	return meta
}
