// Package samples extracts example input/output blocks from judge-site
// documents. Two matcher strategies run behind one Extract capability: an
// identifier-prefix match against the site's sample block ids, then a
// heading-text fallback for markup variants that drop the ids. Extraction
// is a pure read over the document and is deterministic: an unchanged
// document always yields an identical ordered sequence.
package samples

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/errorterry/algotrack-agent/internal/textnorm"
)

// Sample is one example input/output pair, identified by its 1-based index.
// An index present on only one side still yields a Sample with the other
// side empty. Consumers must treat each emission as a full replacement of
// the previous set.
type Sample struct {
	Index       int    `json:"index"`
	Input       string `json:"input"`
	Output      string `json:"output"`
	InputLabel  string `json:"inputLabel"`
	OutputLabel string `json:"outputLabel"`
}

// Block is a labeled payload located by a strategy, keyed by sample index.
type Block struct {
	Label string
	Text  string
}

// Strategy locates labeled sample blocks in a document. Implementations
// must be pure reads.
type Strategy interface {
	Locate(doc *goquery.Document) (inputs, outputs map[int]Block)
}

// Extractor runs strategies in order and merges the first non-empty result
// into an ordered sample sequence.
type Extractor struct {
	strategies []Strategy
}

// NewExtractor returns an extractor over the given strategies. With no
// arguments it uses the identifier-prefix strategy followed by the
// heading fallback, both with host-site defaults.
func NewExtractor(strategies ...Strategy) *Extractor {
	if len(strategies) == 0 {
		strategies = []Strategy{NewIDPrefixStrategy(), NewHeadingStrategy()}
	}
	return &Extractor{strategies: strategies}
}

// Extract returns the document's samples in strictly ascending index order.
// Strategies are consulted in order until one locates any block; indices
// empty on both sides are dropped.
func (e *Extractor) Extract(doc *goquery.Document) []Sample {
	var inputs, outputs map[int]Block
	for _, st := range e.strategies {
		inputs, outputs = st.Locate(doc)
		if len(inputs) > 0 || len(outputs) > 0 {
			break
		}
	}

	seen := make(map[int]bool, len(inputs)+len(outputs))
	var indices []int
	for i := range inputs {
		if !seen[i] {
			seen[i] = true
			indices = append(indices, i)
		}
	}
	for i := range outputs {
		if !seen[i] {
			seen[i] = true
			indices = append(indices, i)
		}
	}
	sort.Ints(indices)

	result := make([]Sample, 0, len(indices))
	for _, i := range indices {
		in := inputs[i]
		out := outputs[i]
		if in.Text == "" && out.Text == "" {
			continue
		}
		s := Sample{
			Index:       i,
			Input:       in.Text,
			Output:      out.Text,
			InputLabel:  in.Label,
			OutputLabel: out.Label,
		}
		if s.InputLabel == "" {
			s.InputLabel = fmt.Sprintf("예제 입력 %d", i)
		}
		if s.OutputLabel == "" {
			s.OutputLabel = fmt.Sprintf("예제 출력 %d", i)
		}
		result = append(result, s)
	}
	return result
}

// trailingIndexRe matches a trailing integer in a label or identifier.
var trailingIndexRe = regexp.MustCompile(`(\d+)\s*$`)

// extractIndex returns the trailing integer of s, or 0 if none.
func extractIndex(s string) int {
	m := trailingIndexRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

// payloadText returns the normalized text of the sample payload: the node
// itself when it is a preformatted/code/text-input node, otherwise its
// first such descendant.
func payloadText(sel *goquery.Selection) string {
	payload := sel
	if !sel.Is("pre, code, textarea") {
		payload = sel.Find("pre, code, textarea").First()
		if payload.Length() == 0 {
			return ""
		}
	}
	if payload.Is("textarea") {
		return textnorm.Normalize(payload.AttrOr("value", payload.Text()))
	}
	return textnorm.Normalize(payload.Text())
}
