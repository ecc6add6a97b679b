package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/opgrader/pkg/client"
)

// newDictateCmd builds the `dictate` command.
func newDictateCmd() *cobra.Command {
	var ccPack, dictationID string

	cmd := &cobra.Command{
		Use:   "dictate <dictation-file>",
		Short: "Score a free dictation transcript",
		Long:  "Reads dictation text from the given file (or stdin when the file is \"-\")\nand scores it against a chief-complaint pack.  Insufficient dictations come\nback with sufficient=false rather than an error.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := getCLIContext(cmd)
			if err != nil {
				return err
			}

			text, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			if strings.TrimSpace(text) == "" {
				return fmt.Errorf("dictation text is empty")
			}

			report, err := cliCtx.Client.ScoreDictation(cmd.Context(), &client.DictationRequest{
				DictationID: dictationID,
				CCPack:      ccPack,
				Text:        text,
			})
			if err != nil {
				return err
			}
			return printResult(cmd, report)
		},
	}

	cmd.Flags().StringVar(&ccPack, "cc-pack", "", "chief-complaint pack (default: stroke)")
	cmd.Flags().StringVar(&dictationID, "dictation-id", "", "caller-supplied dictation ID (default: generated)")

	return cmd
}
