// Package judge compares expected sample output against produced output.
// Comparison is exact string equality after normalization, with no partial
// credit, no numeric tolerance.
package judge

import (
	"strings"

	"github.com/errorterry/algotrack-agent/internal/samples"
	"github.com/errorterry/algotrack-agent/internal/textnorm"
)

// Verdict is the outcome of judging one sample.
type Verdict string

const (
	NoResult  Verdict = "no-result"
	Correct   Verdict = "correct"
	Incorrect Verdict = "incorrect"
)

// Evaluate compares produced output against expected output. An absent or
// blank produced output yields NoResult; otherwise both sides are
// normalized (line endings, non-breaking spaces, trailing whitespace per
// line) and compared byte for byte.
func Evaluate(expected, produced string) Verdict {
	if strings.TrimSpace(produced) == "" {
		return NoResult
	}
	if textnorm.NormalizeLines(expected) == textnorm.NormalizeLines(produced) {
		return Correct
	}
	return Incorrect
}

// EvaluateSample judges one sample against the run-result map entry for its
// index. A missing entry yields NoResult.
func EvaluateSample(s samples.Sample, results map[int]string) Verdict {
	return Evaluate(s.Output, results[s.Index])
}
