package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/turtacn/opgrader/pkg/client"
)

// newRubricCmd builds the `rubric` command group.
func newRubricCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rubric",
		Short: "Author and manage versioned grading rubrics",
	}
	cmd.AddCommand(
		newRubricCreateCmd(),
		newRubricGetCmd(),
		newRubricListCmd(),
		newRubricUpdateCmd(),
		newRubricPatchCmd(),
		newRubricValidateCmd(),
		newRubricStatusCmd("approve", "Approve a draft rubric version for grading",
			func(c *client.Client) statusFn { return c.ApproveRubric }),
		newRubricStatusCmd("archive", "Archive an approved rubric version",
			func(c *client.Client) statusFn { return c.ArchiveRubric }),
		newRubricDeleteCmd(),
	)
	return cmd
}

// readRubricFile parses a rubric JSON document from disk.
func readRubricFile(path string) (*client.Rubric, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var r client.Rubric
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("%s is not a valid rubric document: %w", path, err)
	}
	return &r, nil
}

func newRubricCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <rubric-file>",
		Short: "Store a new rubric version as a draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := getCLIContext(cmd)
			if err != nil {
				return err
			}
			r, err := readRubricFile(args[0])
			if err != nil {
				return err
			}
			created, err := cliCtx.Client.CreateRubric(cmd.Context(), r)
			if err != nil {
				return err
			}
			return printResult(cmd, created)
		},
	}
}

func newRubricGetCmd() *cobra.Command {
	var version string

	cmd := &cobra.Command{
		Use:   "get <rubric-id>",
		Short: "Fetch a rubric (latest approved version by default)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := getCLIContext(cmd)
			if err != nil {
				return err
			}
			r, err := cliCtx.Client.GetRubric(cmd.Context(), args[0], version)
			if err != nil {
				return err
			}
			return printResult(cmd, r)
		},
	}
	cmd.Flags().StringVar(&version, "version", "", "exact version to fetch")
	return cmd
}

// rubricVersionList adds table rendering on top of the SDK response.
type rubricVersionList struct {
	*client.RubricVersions
}

func (l rubricVersionList) TableHeaders() []string {
	return []string{"VERSION", "STATUS", "UPDATED"}
}

func (l rubricVersionList) TableRows() [][]string {
	rows := make([][]string, 0, len(l.Versions))
	for _, v := range l.Versions {
		rows = append(rows, []string{v.Version, v.Status, v.UpdatedAt.Format("2006-01-02 15:04")})
	}
	return rows
}

func newRubricListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <rubric-id>",
		Short: "List every stored version of a rubric",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := getCLIContext(cmd)
			if err != nil {
				return err
			}
			out, err := cliCtx.Client.ListRubricVersions(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printResult(cmd, rubricVersionList{out})
		},
	}
}

func newRubricUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update <rubric-id> <base-version> <rubric-file>",
		Short: "Store a full replacement as a new draft version",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := getCLIContext(cmd)
			if err != nil {
				return err
			}
			r, err := readRubricFile(args[2])
			if err != nil {
				return err
			}
			updated, err := cliCtx.Client.UpdateRubric(cmd.Context(), args[0], args[1], r)
			if err != nil {
				return err
			}
			return printResult(cmd, updated)
		},
	}
}

func newRubricPatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "patch <rubric-id> <base-version> <patch-file>",
		Short: "Apply a JSON patch and store the outcome as a new draft version",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := getCLIContext(cmd)
			if err != nil {
				return err
			}
			patch, err := os.ReadFile(args[2])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[2], err)
			}
			patched, err := cliCtx.Client.PatchRubric(cmd.Context(), args[0], args[1], patch)
			if err != nil {
				return err
			}
			return printResult(cmd, patched)
		},
	}
}

// rubricReportView adds table rendering on top of the QA report.
type rubricReportView struct {
	*client.RubricReport
}

func (v rubricReportView) TableHeaders() []string {
	return []string{"SEVERITY", "CATEGORY", "MESSAGE"}
}

func (v rubricReportView) TableRows() [][]string {
	rows := make([][]string, 0, len(v.Errors)+len(v.Warnings))
	for _, issues := range [][]client.RubricIssue{v.Errors, v.Warnings} {
		for _, i := range issues {
			rows = append(rows, []string{i.Severity, i.Category, i.Message})
		}
	}
	return rows
}

func newRubricValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <rubric-file>",
		Short: "Run the QA gate over a rubric without storing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := getCLIContext(cmd)
			if err != nil {
				return err
			}
			r, err := readRubricFile(args[0])
			if err != nil {
				return err
			}
			report, err := cliCtx.Client.ValidateRubric(cmd.Context(), r)
			if err != nil {
				return err
			}
			if err := printResult(cmd, rubricReportView{report}); err != nil {
				return err
			}
			if !report.Valid {
				return fmt.Errorf("rubric failed validation with %d error(s)", len(report.Errors))
			}
			return nil
		},
	}
}

type statusFn func(ctx context.Context, rubricID, version string) error

func newRubricStatusCmd(verb, short string, pick func(*client.Client) statusFn) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <rubric-id> <version>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := getCLIContext(cmd)
			if err != nil {
				return err
			}
			if err := pick(cliCtx.Client)(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "OK: %s %s@%s\n", verb+"d", args[0], args[1])
			return nil
		},
	}
}

func newRubricDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <rubric-id> <version>",
		Short: "Delete a draft or archived rubric version",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := getCLIContext(cmd)
			if err != nil {
				return err
			}
			if err := cliCtx.Client.DeleteRubric(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "OK: deleted %s@%s\n", args[0], args[1])
			return nil
		},
	}
}
