package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/opgrader/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/opgrader/pkg/client"
)

// newGradeCmd builds the `grade` command group.
func newGradeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grade",
		Short: "Grade oral presentation transcripts",
	}
	cmd.AddCommand(newGradeSubmitCmd(), newGradeGetCmd())
	return cmd
}

func newGradeSubmitCmd() *cobra.Command {
	var rubricID, rubricVersion, transcriptID string

	cmd := &cobra.Command{
		Use:   "submit <transcript-file>",
		Short: "Grade a transcript file against a rubric",
		Long:  "Reads a speaker-tagged transcript from the given file (or stdin when\nthe file is \"-\") and grades it against the chosen rubric.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := getCLIContext(cmd)
			if err != nil {
				return err
			}

			raw, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			if strings.TrimSpace(raw) == "" {
				return fmt.Errorf("transcript is empty")
			}

			cliCtx.Logger.Debug("submitting transcript",
				logging.String("rubric_id", rubricID),
				logging.String("transcript_id", transcriptID),
				logging.Int("bytes", len(raw)),
			)

			res, err := cliCtx.Client.Grade(cmd.Context(), &client.GradingRequest{
				RubricID:      rubricID,
				RubricVersion: rubricVersion,
				TranscriptID:  transcriptID,
				RawText:       raw,
			})
			if err != nil {
				return err
			}
			return printResult(cmd, res)
		},
	}

	cmd.Flags().StringVar(&rubricID, "rubric", "", "rubric ID to grade against (required)")
	cmd.Flags().StringVar(&rubricVersion, "rubric-version", "", "rubric version (default: latest approved)")
	cmd.Flags().StringVar(&transcriptID, "transcript-id", "", "caller-supplied transcript ID (default: generated)")
	cmd.MarkFlagRequired("rubric")

	return cmd
}

func newGradeGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <grading-id>",
		Short: "Fetch a previously computed grading result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := getCLIContext(cmd)
			if err != nil {
				return err
			}
			res, err := cliCtx.Client.GetGrading(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printResult(cmd, res)
		},
	}
}

// readInput reads a file argument, treating "-" as the command's stdin.
func readInput(cmd *cobra.Command, path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}
