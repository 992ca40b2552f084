package samples

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// headingSelector matches the headings a sample block may carry its label in.
const headingSelector = "h4, h3, .headline, .sample-title"

// IDPrefixStrategy locates sample blocks by element identifier prefix, the
// host site's stable convention (sample-input-1, sample-output-1, ...).
type IDPrefixStrategy struct {
	InputPrefix  string
	OutputPrefix string
}

// NewIDPrefixStrategy returns the strategy with the host site's prefixes.
func NewIDPrefixStrategy() *IDPrefixStrategy {
	return &IDPrefixStrategy{InputPrefix: "sample-input", OutputPrefix: "sample-output"}
}

// Locate scans for elements whose id begins with either prefix. The label
// comes from an inner heading, an aria-label, or the element's own id; the
// index is the label's trailing integer, else the id's, else 1. Blocks with
// no textual payload are skipped.
func (st *IDPrefixStrategy) Locate(doc *goquery.Document) (inputs, outputs map[int]Block) {
	inputs = make(map[int]Block)
	outputs = make(map[int]Block)

	sel := `[id^="` + st.InputPrefix + `"], [id^="` + st.OutputPrefix + `"]`
	doc.Find(sel).Each(func(_ int, node *goquery.Selection) {
		id := node.AttrOr("id", "")
		isInput := strings.HasPrefix(id, st.InputPrefix)
		if !isInput && !strings.HasPrefix(id, st.OutputPrefix) {
			return
		}

		text := payloadText(node)
		if text == "" {
			return
		}

		label := strings.TrimSpace(node.Find(headingSelector).First().Text())
		if label == "" {
			label = strings.TrimSpace(node.AttrOr("aria-label", ""))
		}
		if label == "" {
			label = id
		}

		idx := extractIndex(label)
		if idx == 0 {
			idx = extractIndex(id)
		}
		if idx == 0 {
			idx = 1
		}

		if isInput {
			inputs[idx] = Block{Label: label, Text: text}
		} else {
			outputs[idx] = Block{Label: label, Text: text}
		}
	})
	return inputs, outputs
}
