// Package algos learns algorithm tags from problem pages and resolves a
// single tag for an accepted submission. The learned map persists under one
// store key; a failed scrape never erases a previously learned mapping.
package algos

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/errorterry/algotrack-agent/internal/kvstore"
)

// tagContainerSelector covers the markup variants the tag list has appeared
// under on the host site.
const tagContainerSelector = "#problem_tags, .problem-tags, #problem_tag, #problem_tags_container"

// Prompter asks the user to pick one candidate by 1-based ordinal. Answer
// returns the raw input and false when the user cancelled. The terminal
// implementation blocks; tests inject fakes.
type Prompter interface {
	Answer(problemID string, candidates []string) (string, bool)
}

// Catalog reads and writes the learned problem-id → tag-list map.
type Catalog struct {
	store kvstore.Store
}

// NewCatalog returns a catalog over the given store.
func NewCatalog(store kvstore.Store) *Catalog {
	return &Catalog{store: store}
}

// ScrapeTags reads the tag names from a problem page's tag container.
// Returns nil when the container is absent or holds no anchors.
func ScrapeTags(doc *goquery.Document) []string {
	root := doc.Find(tagContainerSelector).First()
	if root.Length() == 0 {
		return nil
	}
	var names []string
	root.Find("a").Each(func(_ int, a *goquery.Selection) {
		if name := strings.TrimSpace(a.Text()); name != "" {
			names = append(names, name)
		}
	})
	return names
}

// Learn persists the tag list for problemID. An empty list is ignored so
// that a failed scrape cannot erase an earlier successful one.
func (c *Catalog) Learn(ctx context.Context, problemID string, names []string) error {
	if problemID == "" || len(names) == 0 {
		return nil
	}
	m, err := c.load(ctx)
	if err != nil {
		return err
	}
	m[problemID] = names
	if err := kvstore.SetJSON(ctx, c.store, kvstore.KeyAlgoByProblemID, m); err != nil {
		return fmt.Errorf("failed to persist tags for problem %s: %w", problemID, err)
	}
	return nil
}

// Candidates returns the learned tag list for problemID, oldest ordering
// preserved. Nil when nothing is known.
func (c *Catalog) Candidates(ctx context.Context, problemID string) ([]string, error) {
	m, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	return m[problemID], nil
}

func (c *Catalog) load(ctx context.Context) (map[string][]string, error) {
	m := make(map[string][]string)
	if _, err := kvstore.GetJSON(ctx, c.store, kvstore.KeyAlgoByProblemID, &m); err != nil {
		return nil, fmt.Errorf("failed to read tag map: %w", err)
	}
	return m, nil
}

// Resolver picks one algorithm tag for a qualifying submission.
type Resolver struct {
	catalog  *Catalog
	prompter Prompter
}

// NewResolver returns a resolver over the catalog. prompter may be nil, in
// which case multi-candidate problems auto-default to the first tag.
func NewResolver(catalog *Catalog, prompter Prompter) *Resolver {
	return &Resolver{catalog: catalog, prompter: prompter}
}

// Resolve returns the single tag to report for problemID. ok is false when
// no tags are known; the caller must abort the relay for that submission
// and leave the ledger untouched so a later visit can succeed. With more
// than one candidate the prompter is consulted once; cancellation or an
// out-of-range answer deterministically selects the first candidate.
func (r *Resolver) Resolve(ctx context.Context, problemID string) (name string, ok bool, err error) {
	candidates, err := r.catalog.Candidates(ctx, problemID)
	if err != nil {
		return "", false, err
	}
	if len(candidates) == 0 {
		return "", false, nil
	}
	if len(candidates) == 1 {
		return candidates[0], true, nil
	}

	chosen := candidates[0]
	if r.prompter != nil {
		if answer, answered := r.prompter.Answer(problemID, candidates); answered {
			if idx, err := strconv.Atoi(strings.TrimSpace(answer)); err == nil {
				if idx >= 1 && idx <= len(candidates) {
					chosen = candidates[idx-1]
				}
			}
		}
	}
	return chosen, true, nil
}
