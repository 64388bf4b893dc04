package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newVersionCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "hashmaker %s (%s)\n", Version, Commit)

			core, err := opts.core(false)
			if err != nil {
				return err
			}
			defer core.Close()

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			v, err := core.Executor.Version(ctx)
			if err != nil {
				fmt.Fprintln(out, "engine: not found")
				return nil
			}
			fmt.Fprintf(out, "engine: %s\n", v)
			return nil
		},
	}
}
