// Package cli provides the hashmaker command-line interface.
package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/lyallcooper/hashmaker/internal/app"
	"github.com/lyallcooper/hashmaker/internal/config"
	"github.com/lyallcooper/hashmaker/internal/engine"
	"github.com/lyallcooper/hashmaker/internal/logging"
	"github.com/lyallcooper/hashmaker/internal/types"
)

// ErrMismatch is returned by compare when the folders differ.
var ErrMismatch = errors.New("folders differ")

// Version information - set by main package at startup
var (
	Version = "dev"
	Commit  = "unknown"
)

type rootOptions struct {
	enginePath   string
	settingsPath string
	dbPath       string
	algorithm    string
	noHistory    bool
	verbose      bool

	// engine replaces the executor, for tests
	engine engine.Engine
	logger *logging.Logger
}

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&rootOptions{})
}

func newRootCmd(opts *rootOptions) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "hashmaker",
		Short: "Folder hash reports",
		Long: `hashmaker computes a single hash over a folder tree, renders the
hash list and hash report documents, and compares two folders.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.logger == nil {
				opts.logger = logging.NewLogger("cli", cmd.ErrOrStderr())
			}
			if opts.verbose {
				logging.SetGlobalLevel(logging.ParseLevel("debug"))
			} else {
				logging.SetGlobalLevel(logging.ParseLevel("warn"))
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.enginePath, "engine", "", "Path to the hashing engine binary (default $HASHMAKER_ENGINE_PATH)")
	flags.StringVar(&opts.settingsPath, "settings", "", "Report settings file (default $HASHMAKER_SETTINGS_PATH)")
	flags.StringVar(&opts.dbPath, "db", "", "History database (default $HASHMAKER_DB_PATH)")
	flags.StringVarP(&opts.algorithm, "algorithm", "a", "", "Hash algorithm: md5, sha1, sha256, sha384, sha512")
	flags.BoolVar(&opts.noHistory, "no-history", false, "Do not record runs in the history database")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose output (shows debug messages)")

	rootCmd.Version = Version

	rootCmd.AddCommand(newHashCmd(opts))
	rootCmd.AddCommand(newCompareCmd(opts))
	rootCmd.AddCommand(newHistoryCmd(opts))
	rootCmd.AddCommand(newExportCmd(opts))
	rootCmd.AddCommand(newVersionCmd(opts))

	return rootCmd
}

// core builds the workflow for one command. history forces the database open.
func (o *rootOptions) core(history bool) (*app.Core, error) {
	cfg := config.Load()
	if o.settingsPath != "" {
		cfg.SettingsPath = config.ExpandPath(o.settingsPath)
	}
	if o.dbPath != "" {
		cfg.DBPath = config.ExpandPath(o.dbPath)
	}
	if o.enginePath != "" {
		cfg.EnginePath = o.enginePath
	}

	return app.NewCore(cfg, app.CoreOptions{
		NoHistory: o.noHistory && !history,
		Algorithm: types.Algorithm(o.algorithm),
		Engine:    o.engine,
		Logger:    o.logger,
	})
}

// signalContext is cancelled on interrupt.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return signalNotify(ctx)
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	cmd := NewRootCmd()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, ErrMismatch) {
			cmd.PrintErrln("Error:", err)
		}
		return 1
	}
	return 0
}
