package cli

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/opgrader/pkg/client"
)

// searchResultView adds table rendering on top of the SDK response.
type searchResultView struct {
	*client.SearchResult
}

func (v searchResultView) TableHeaders() []string {
	return []string{"TRANSCRIPT", "LINE", "SPEAKER", "SCORE", "TEXT"}
}

func (v searchResultView) TableRows() [][]string {
	rows := make([][]string, 0, len(v.Hits))
	for _, h := range v.Hits {
		rows = append(rows, []string{
			h.TranscriptID,
			strconv.Itoa(h.Line),
			h.Speaker,
			strconv.FormatFloat(h.Score, 'f', 2, 64),
			h.Text,
		})
	}
	return rows
}

// newSearchCmd builds the `search` command.
func newSearchCmd() *cobra.Command {
	var transcriptID string
	var from, size int
	var highlight bool

	cmd := &cobra.Command{
		Use:   "search <query...>",
		Short: "Full-text search over indexed transcript utterances",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := getCLIContext(cmd)
			if err != nil {
				return err
			}

			res, err := cliCtx.Client.SearchUtterances(cmd.Context(), &client.SearchRequest{
				Query:        strings.Join(args, " "),
				TranscriptID: transcriptID,
				From:         from,
				Size:         size,
				Highlight:    highlight,
			})
			if err != nil {
				return err
			}
			return printResult(cmd, searchResultView{res})
		},
	}

	cmd.Flags().StringVar(&transcriptID, "transcript", "", "restrict to one transcript")
	cmd.Flags().IntVar(&from, "from", 0, "result offset")
	cmd.Flags().IntVar(&size, "size", 20, "page size")
	cmd.Flags().BoolVar(&highlight, "highlight", false, "include match highlights")

	return cmd
}
