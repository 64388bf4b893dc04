package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/lyallcooper/hashmaker/internal/types"
	"github.com/lyallcooper/hashmaker/internal/workflow"
)

func newCompareCmd(opts *rootOptions) *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "compare <folder> <other-folder>",
		Short: "Compare the hashes of two folders",
		Long: `Compare hashes both folders with the same algorithm and reports whether
the folder hashes are identical. The exit status is 1 when they differ.`,
		Args: cobra.ExactArgs(2),
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

			primary, err := runSelection(ctx, core, workflow.Primary, args[0], bar)
			if err != nil {
				return err
			}
			if _, err := core.Workflow.Navigate(workflow.ScreenDualSelect); err != nil {
				return err
			}
			comparison, err := runSelection(ctx, core, workflow.Comparison, args[1], bar)
			if err != nil {
				return err
			}

			result, ok := core.Workflow.Compare()
			if !ok {
				return fmt.Errorf("comparison unavailable from %s", core.Workflow.State().Screen())
			}

			out := cmd.OutOrStdout()
			alg := core.Settings.Get().Algorithm
			printSummary(out, primary, alg)
			fmt.Fprintln(out)
			printSummary(out, comparison, alg)
			fmt.Fprintln(out)

			if result == types.Mismatch {
				fmt.Fprintln(out, "Result:      MISMATCH")
				return ErrMismatch
			}
			fmt.Fprintln(out, "Result:      IDENTICAL")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Hide the progress bar")
	return cmd
}
