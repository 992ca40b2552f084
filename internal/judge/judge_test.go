package judge

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/errorterry/algotrack-agent/internal/samples"
)

func TestEvaluate_TrailingNewlineInsensitive(t *testing.T) {
	assert.Equal(t, Correct, Evaluate("3\n", "3"))
}

func TestEvaluate_TrailingSpaceInsensitive(t *testing.T) {
	assert.Equal(t, Correct, Evaluate("3\n", "3 "))
}

func TestEvaluate_LineOrderMatters(t *testing.T) {
	assert.Equal(t, Incorrect, Evaluate("3\n4", "4\n3"))
}

func TestEvaluate_CRLFProduced(t *testing.T) {
	assert.Equal(t, Correct, Evaluate("1\n2\n3", "1\r\n2\r\n3\r\n"))
}

func TestEvaluate_InteriorWhitespaceMatters(t *testing.T) {
	assert.Equal(t, Incorrect, Evaluate("1 2", "1  2"))
}

func TestEvaluate_EmptyProducedIsNoResult(t *testing.T) {
	assert.Equal(t, NoResult, Evaluate("3", ""))
	assert.Equal(t, NoResult, Evaluate("3", "   \n"))
}

func TestEvaluateSample(t *testing.T) {
	s := samples.Sample{Index: 2, Output: "12\n"}

	assert.Equal(t, NoResult, EvaluateSample(s, nil))
	assert.Equal(t, NoResult, EvaluateSample(s, map[int]string{1: "12"}))
	assert.Equal(t, Correct, EvaluateSample(s, map[int]string{2: "12"}))
	assert.Equal(t, Incorrect, EvaluateSample(s, map[int]string{2: "13"}))
}
