package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/errorterry/algotrack-agent/internal/judge"
)

var judgeCommand = &cobra.Command{
	Use:   "judge <expected-file> <produced-file>",
	Short: "Compare produced output against an expected sample output",
	Long: `Judges one produced output against the expected sample output using the
same normalization the live pipeline applies: line endings and trailing
whitespace are ignored, everything else must match exactly.

Exits 0 for a correct answer, 1 otherwise.`,
	Args: cobra.ExactArgs(2),
	RunE: runJudgeCmd,
}

func init() {
	rootCmd.AddCommand(judgeCommand)
}

func runJudgeCmd(cmd *cobra.Command, args []string) error {
	expected, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read expected output: %w", err)
	}
	produced, err := os.ReadFile(args[1])
	if err != nil {
		return fmt.Errorf("failed to read produced output: %w", err)
	}

	verdict := judge.Evaluate(string(expected), string(produced))
	fmt.Fprintln(cmd.OutOrStdout(), verdict)
	if verdict != judge.Correct {
		cmd.SilenceUsage = true
		return fmt.Errorf("output does not match")
	}
	return nil
}
