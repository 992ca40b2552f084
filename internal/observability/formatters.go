// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/errorterry/algotrack-agent/internal/messages"
	"github.com/errorterry/algotrack-agent/internal/submissions"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintSamples outputs a human-readable summary of an extracted sample set.
func (p *Printer) PrintSamples(payload *messages.SamplesPayload) {
	if payload == nil {
		return
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Problem:  %s\n", payload.ProblemID))
	if payload.ProblemTitle != "" {
		sb.WriteString(fmt.Sprintf("Title:    %s\n", payload.ProblemTitle))
	}
	sb.WriteString(fmt.Sprintf("Samples:  %d\n", len(payload.Samples)))

	count := min(len(payload.Samples), maxItemsToShow)
	for i := 0; i < count; i++ {
		s := payload.Samples[i]
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("#%d  %s\n", s.Index, s.InputLabel))
		sb.WriteString(fmt.Sprintf("    in:  %s\n", firstLine(s.Input)))
		sb.WriteString(fmt.Sprintf("    out: %s", firstLine(s.Output)))
		if i < count-1 {
			sb.WriteString("\n")
		}
	}
	if len(payload.Samples) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("\n... and %d more samples", len(payload.Samples)-maxItemsToShow))
	}

	p.printBox("EXTRACTED SAMPLES", sb.String())
}

// PrintSubmission outputs the parsed latest submission row.
func (p *Printer) PrintSubmission(row *submissions.Row) {
	if row == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Submission: %s\n", row.SubmissionID))
	sb.WriteString(fmt.Sprintf("Problem:    %d\n", row.ProblemID))
	sb.WriteString(fmt.Sprintf("Verdict:    %s\n", row.ResultText))
	sb.WriteString(fmt.Sprintf("Solved:     %s\n", row.SolvedDate))
	sb.WriteString(fmt.Sprintf("Tier:       %s", row.TierCode))

	p.printBox("LATEST SUBMISSION", sb.String())
}

// PrintRelay outputs the message about to be sent to the companion service.
func (p *Printer) PrintRelay(sr *messages.SubmitResult) {
	if sr == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Problem:    %d\n", sr.ProblemID))
	sb.WriteString(fmt.Sprintf("Algorithm:  %s\n", sr.AlgorithmName))
	sb.WriteString(fmt.Sprintf("Date:       %s\n", sr.SolvedDate))
	sb.WriteString(fmt.Sprintf("Tier:       %s", sr.TierNumber))

	p.printBox("RELAYING SUBMISSION", sb.String())
}

// firstLine truncates multi-line payloads to their first line for display.
func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ⏎"
	}
	return s
}
