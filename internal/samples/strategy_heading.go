package samples

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// HeadingStrategy is the fallback for markup variants without sample block
// ids: it scans heading-like elements whose text matches an example
// input/output pattern and takes the adjacent or parent preformatted block
// as the payload. The patterns are language-configurable and matched
// case-insensitively.
type HeadingStrategy struct {
	HeadingSelector string
	InputPattern    *regexp.Regexp
	OutputPattern   *regexp.Regexp
}

// NewHeadingStrategy returns the strategy with Korean and English default
// patterns.
func NewHeadingStrategy() *HeadingStrategy {
	return &HeadingStrategy{
		HeadingSelector: "h2, h3, h4, .problem-section-title, .sample-title, .section-title",
		InputPattern:    regexp.MustCompile(`(?i)예제\s*입력|sample\s*input`),
		OutputPattern:   regexp.MustCompile(`(?i)예제\s*출력|sample\s*output`),
	}
}

// Locate scans headings for input/output labels. The payload is the next
// sibling when it is itself preformatted, else the first preformatted
// descendant of the next sibling, else the first preformatted descendant
// of the heading's parent.
func (st *HeadingStrategy) Locate(doc *goquery.Document) (inputs, outputs map[int]Block) {
	inputs = make(map[int]Block)
	outputs = make(map[int]Block)

	doc.Find(st.HeadingSelector).Each(func(_ int, h *goquery.Selection) {
		label := strings.TrimSpace(h.Text())
		isInput := st.InputPattern.MatchString(label)
		isOutput := st.OutputPattern.MatchString(label)
		if !isInput && !isOutput {
			return
		}

		text := headingPayloadText(h)
		if text == "" {
			return
		}

		idx := extractIndex(label)
		if idx == 0 {
			idx = 1
		}

		if isInput {
			inputs[idx] = Block{Label: label, Text: text}
		}
		if isOutput {
			outputs[idx] = Block{Label: label, Text: text}
		}
	})
	return inputs, outputs
}

func headingPayloadText(h *goquery.Selection) string {
	next := h.Next()
	if next.Length() > 0 {
		if text := payloadText(next); text != "" {
			return text
		}
	}
	if parent := h.Parent(); parent.Length() > 0 {
		pre := parent.Find("pre, code, textarea").First()
		if pre.Length() > 0 {
			return payloadText(pre)
		}
	}
	return ""
}
