package algos

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// TerminalPrompter blocks on an interactive ordinal prompt. This is the
// deliberate modal interruption the resolver is allowed exactly once per
// qualifying submission.
type TerminalPrompter struct {
	In  io.Reader
	Out io.Writer
}

// Answer prints the numbered candidate list and reads one line. An EOF or
// read error counts as cancellation.
func (p *TerminalPrompter) Answer(problemID string, candidates []string) (string, bool) {
	fmt.Fprintf(p.Out, "문제 %s의 알고리즘 분류가 여러 개입니다.\n", problemID)
	for i, name := range candidates {
		fmt.Fprintf(p.Out, "%d. %s\n", i+1, name)
	}
	fmt.Fprintf(p.Out, "이번에 푼 알고리즘 번호를 입력해 주세요. (취소하거나 잘못 입력하면 1번으로 기록됩니다.) ")

	line, err := bufio.NewReader(p.In).ReadString('\n')
	if err != nil && line == "" {
		return "", false
	}
	return strings.TrimSpace(line), true
}
