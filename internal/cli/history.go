package cli

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/lyallcooper/hashmaker/internal/db"
)

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded hash runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			core, err := opts.core(true)
			if err != nil {
				return err
			}
			defer core.Close()

			runs, err := core.Database.ListRuns(limit, offset)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
				return nil
			}
			writeRunTable(cmd.OutOrStdout(), runs)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show")
	cmd.Flags().IntVar(&offset, "offset", 0, "Number of runs to skip")
	return cmd
}

func writeRunTable(w io.Writer, runs []*db.Run) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "Started", "Target", "Path", "Algorithm", "Status", "Hash", "Files"})
	table.SetBorder(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoWrapText(false)

	for _, r := range runs {
		files := ""
		if r.Status == db.RunStatusCompleted {
			files = strconv.Itoa(r.FileCount)
		}
		table.Append([]string{
			r.ID,
			r.StartedAt.Local().Format(time.DateTime),
			r.Target,
			r.Path,
			r.Algorithm.DisplayName(),
			string(r.Status),
			shortHash(r.Hash),
			files,
		})
	}
	table.Render()
}

func shortHash(h string) string {
	if len(h) > 16 {
		return h[:16] + "…"
	}
	return h
}
