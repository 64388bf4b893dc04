package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/lyallcooper/hashmaker/internal/app"
	"github.com/lyallcooper/hashmaker/internal/archive"
	"github.com/lyallcooper/hashmaker/internal/progress"
	"github.com/lyallcooper/hashmaker/internal/types"
	"github.com/lyallcooper/hashmaker/internal/workflow"
)

func newHashCmd(opts *rootOptions) *cobra.Command {
	var out string
	var quiet bool

	cmd := &cobra.Command{
		Use:   "hash <folder>",
		Short: "Compute the hash of a folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			core, err := opts.core(false)
			if err != nil {
				return err
			}
			defer core.Close()

			ctx, cancel := signalContext(cmd)
			defer cancel()

			var bar io.Writer
			if !quiet {
				bar = cmd.ErrOrStderr()
			}
			report, err := runSelection(ctx, core, workflow.Primary, args[0], bar)
			if err != nil {
				return err
			}

			printSummary(cmd.OutOrStdout(), report, core.Settings.Get().Algorithm)

			if out != "" {
				path, err := archive.WriteFile(out, report, core.Settings.Get(), time.Now())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Archive:     %s\n", path)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "Write the report archive to this file or directory")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Hide the progress bar")
	return cmd
}

// runSelection runs one selection through the workflow, drawing progress on
// bar when it is non-nil.
func runSelection(ctx context.Context, core *app.Core, target workflow.Target, path string, bar io.Writer) (*types.HashReport, error) {
	if err := core.MountProgress(ctx, nil); err != nil {
		return nil, err
	}

	if bar != nil {
		b := progress.NewBar(bar)
		snaps := core.Progress.Subscribe()
		done := make(chan struct{})
		go func() {
			defer close(done)
			b.Follow(snaps)
		}()
		defer func() {
			core.Progress.Unsubscribe(snaps)
			<-done
			b.Finish()
		}()
	}

	st, err := core.Workflow.Select(ctx, target, path)
	if err != nil {
		return nil, err
	}
	if _, failed := st.(workflow.Failed); failed {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("could not hash %s", path)
	}

	if target == workflow.Comparison {
		return workflow.ComparisonReport(st), nil
	}
	return workflow.PrimaryReport(st), nil
}

func printSummary(w io.Writer, r *types.HashReport, alg types.Algorithm) {
	fmt.Fprintf(w, "Path:        %s\n", r.Path)
	fmt.Fprintf(w, "%-12s %s\n", alg.DisplayName()+":", r.Hash)
	fmt.Fprintf(w, "Files:       %d\n", r.FileCount)
	fmt.Fprintf(w, "Folders:     %d\n", r.FolderCount)
	fmt.Fprintf(w, "Time taken:  %s\n", r.TimeTaken)
}
