package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/lyallcooper/hashmaker/internal/archive"
	"github.com/lyallcooper/hashmaker/internal/db"
	"github.com/lyallcooper/hashmaker/internal/types"
)

func newExportCmd(opts *rootOptions) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export <run-id>",
		Short: "Write the report archive of a recorded run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			core, err := opts.core(true)
			if err != nil {
				return err
			}
			defer core.Close()

			report, settings, err := storedReport(core.Database, args[0], core.Settings.Get())
			if errors.Is(err, db.ErrNotFound) {
				return fmt.Errorf("no completed run %q", args[0])
			}
			if err != nil {
				return err
			}

			path, err := archive.WriteFile(out, report, settings, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", ".", "Archive file or directory")
	return cmd
}

// storedReport loads a completed run and the settings to render it with:
// the live settings, carrying the algorithm the run was hashed with.
func storedReport(database *db.DB, id string, live types.Settings) (*types.HashReport, types.Settings, error) {
	run, err := database.GetRun(id)
	if err != nil {
		return nil, live, err
	}
	report, err := database.GetReport(id)
	if err != nil {
		return nil, live, err
	}
	return report, run.Settings(live), nil
}
