// Package app provides shared application initialization logic used by the
// server, desktop and CLI entry points.
package app

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/lyallcooper/hashmaker/internal/config"
	"github.com/lyallcooper/hashmaker/internal/db"
	"github.com/lyallcooper/hashmaker/internal/dropzone"
	"github.com/lyallcooper/hashmaker/internal/engine"
	"github.com/lyallcooper/hashmaker/internal/handlers"
	"github.com/lyallcooper/hashmaker/internal/logging"
	"github.com/lyallcooper/hashmaker/internal/progress"
	"github.com/lyallcooper/hashmaker/internal/scheduler"
	"github.com/lyallcooper/hashmaker/internal/types"
	"github.com/lyallcooper/hashmaker/internal/workflow"
)

// CoreOptions overrides parts of the environment configuration.
type CoreOptions struct {
	// EngineBinary path override. If empty, uses config.
	EngineBinary string

	// NoHistory skips opening the history database.
	NoHistory bool

	// Algorithm overrides the settings file for this process only.
	Algorithm types.Algorithm

	// Engine replaces the executor in the workflow, for tests.
	Engine engine.Engine

	Logger *logging.Logger
}

// Core is the workflow and everything it needs, without a transport.
type Core struct {
	Config   *config.Config
	Settings *config.SettingsStore
	Database *db.DB // nil when history is disabled
	Executor *engine.Executor
	Bus      *progress.Bus
	Progress *progress.Consumer
	Workflow *workflow.Controller

	log    *logging.Logger
	ctx    context.Context
	cancel context.CancelFunc
	mount  *progress.Mount
}

// NewCore initializes the workflow components. Call Close when done.
func NewCore(appCfg *config.Config, opts CoreOptions) (*Core, error) {
	log := opts.Logger
	if log == nil {
		log = logging.NewLogger("app", os.Stderr)
	}

	settings, err := config.LoadSettings(appCfg.SettingsPath)
	if err != nil {
		return nil, err
	}
	if opts.Algorithm != "" {
		alg, err := types.ParseAlgorithm(string(opts.Algorithm))
		if err != nil {
			return nil, err
		}
		settings.Algorithm = alg
	}

	var database *db.DB
	if !opts.NoHistory {
		database, err = db.Open(appCfg.DBPath)
		if err != nil {
			return nil, err
		}
	}

	executor := engine.NewExecutor(appCfg.EnginePath)
	if opts.EngineBinary != "" {
		executor.SetBinaryPath(opts.EngineBinary)
	}
	executor.SetTimeout(appCfg.EngineTimeout)

	bus := progress.NewBus()
	consumer := progress.NewConsumer(log.Named("progress"))
	store := config.NewSettingsStore(settings, appCfg.SettingsPath)

	ctx, cancel := context.WithCancel(context.Background())
	var eng engine.Engine = executor
	if opts.Engine != nil {
		eng = opts.Engine
	}
	wfOpts := workflow.Options{
		Engine:    eng,
		Progress:  consumer,
		Publisher: bus,
		Settings:  store,
		Logger:    log.Named("workflow"),
	}
	// A nil *db.DB must not become a non-nil Recorder.
	if database != nil {
		wfOpts.Recorder = database
	}

	return &Core{
		Config:   appCfg,
		Settings: store,
		Database: database,
		Executor: executor,
		Bus:      bus,
		Progress: consumer,
		Workflow: workflow.New(ctx, wfOpts),
		log:      log,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// CheckEngine logs a warning when the engine binary is missing.
func (c *Core) CheckEngine() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Executor.CheckInstalled(ctx); err != nil {
		c.log.Warn().Err(err).Msg("hashing engine not found")
	}
}

// MountProgress connects the consumer to its event source. window, if
// non-nil, is preferred over the process-global bus. The mount lasts until
// ctx is done or Close is called.
func (c *Core) MountProgress(ctx context.Context, window progress.Source) error {
	if c.mount != nil {
		c.mount.Close()
	}
	var global progress.Source = c.Bus
	m := c.Progress.Mount(ctx, window, global)
	c.mount = m

	select {
	case <-m.Ready():
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := m.Err(); err != nil {
		return fmt.Errorf("failed to mount progress: %w", err)
	}
	return nil
}

// Close stops background runs and releases resources.
func (c *Core) Close() {
	c.cancel()
	c.Workflow.Wait()
	if c.mount != nil {
		c.mount.Close()
	}
	if c.Database != nil {
		c.Database.Close()
	}
}

// ServerConfig contains options for creating the application server.
type ServerConfig struct {
	// Port to listen on. If 0, uses config default.
	Port int

	// EngineBinary path override. If empty, uses config.
	EngineBinary string

	// Version string for display.
	Version string

	// Commit hash for display.
	Commit string

	// StaticFS holds the web UI. Nil serves the API only.
	StaticFS fs.FS

	// BindAddress is the address to bind to. Defaults to "" (all interfaces).
	// Use "127.0.0.1" for desktop mode to only allow local connections.
	BindAddress string

	// DisableCSRF disables CSRF protection. Use for desktop mode where
	// the server only accepts local connections.
	DisableCSRF bool

	Logger *logging.Logger
}

// Server wraps the HTTP server and associated resources.
type Server struct {
	*Core

	HTTP      *http.Server
	Drops     *dropzone.Group
	Scheduler *scheduler.Scheduler
	Version   string
}

// CreateServer initializes all application components and returns a Server.
// The progress consumer is not mounted; call MountProgress before serving.
// Call Server.Cleanup() when done to release resources.
func CreateServer(cfg ServerConfig) (*Server, error) {
	appCfg := config.Load()
	if cfg.Port > 0 {
		appCfg.Port = cfg.Port
	}

	log := cfg.Logger
	if log == nil {
		log = logging.NewLogger("app", os.Stderr)
	}
	logging.SetGlobalLevel(logging.ParseLevel(appCfg.LogLevel))

	log.Info().
		Str("database", appCfg.DBPath).
		Str("settings", appCfg.SettingsPath).
		Int("port", appCfg.Port).
		Msg("hashmaker starting")

	core, err := NewCore(appCfg, CoreOptions{EngineBinary: cfg.EngineBinary, Logger: log})
	if err != nil {
		return nil, err
	}
	core.CheckEngine()

	sched, err := scheduler.New(core.Database, appCfg.CleanupSchedule, appCfg.RetentionDays, log.Named("scheduler"))
	if err != nil {
		core.Close()
		return nil, err
	}
	if err := sched.Start(); err != nil {
		core.Close()
		return nil, err
	}

	drops := NewDropGroup(core.Workflow, log.Named("dropzone"))
	versionStr := buildVersionString(cfg.Version, cfg.Commit)

	h, err := handlers.New(handlers.Options{
		Workflow:    core.Workflow,
		Progress:    core.Progress,
		Settings:    core.Settings,
		Drops:       drops,
		History:     core.Database,
		StaticFS:    cfg.StaticFS,
		Version:     versionStr,
		Logger:      log.Named("http"),
		DisableCSRF: cfg.DisableCSRF,
	})
	if err != nil {
		sched.Stop()
		core.Close()
		return nil, fmt.Errorf("failed to initialize handlers: %w", err)
	}

	h.StartCSRFCleanup(core.ctx, time.Hour)

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.BindAddress, appCfg.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // No timeout for SSE
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		Core:      core,
		HTTP:      server,
		Drops:     drops,
		Scheduler: sched,
		Version:   versionStr,
	}, nil
}

// Cleanup releases all resources held by the server.
func (s *Server) Cleanup() {
	if s.Scheduler != nil {
		s.Scheduler.Stop()
	}
	s.Core.Close()
}

// NewDropGroup creates the primary and comparison drop targets. A completed
// drop starts the matching selection.
func NewDropGroup(wf *workflow.Controller, log *logging.Logger) *dropzone.Group {
	target := func(t workflow.Target) *dropzone.Target {
		return dropzone.NewTarget(string(t), func(path string) {
			if err := wf.Submit(t, path); err != nil {
				log.Warn().Err(err).Str("target", string(t)).Str("path", path).Msg("drop ignored")
			}
		})
	}
	return dropzone.NewGroup(target(workflow.Primary), target(workflow.Comparison))
}

func buildVersionString(version, commit string) string {
	if version == "" {
		version = "dev"
	}
	if strings.HasPrefix(version, "v") {
		return version
	}
	shortCommit := commit
	if len(shortCommit) > 7 {
		shortCommit = shortCommit[:7]
	}
	if shortCommit == "" {
		shortCommit = "unknown"
	}
	return version + "-" + shortCommit
}
