package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lyallcooper/hashmaker/internal/app"
	"github.com/lyallcooper/hashmaker/internal/logging"
	"github.com/lyallcooper/hashmaker/internal/webfs"
)

// Version info - injected at build time via ldflags
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	log := logging.NewLogger("server", os.Stderr)

	server, err := app.CreateServer(app.ServerConfig{
		Version:  version,
		Commit:   commit,
		StaticFS: webfs.FS(),
		Logger:   log,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to create server")
		os.Exit(1)
	}
	defer server.Cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.MountProgress(ctx, nil); err != nil {
		log.Error().Err(err).Msg("failed to mount progress")
		return
	}

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.HTTP.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown error")
		}
	}()

	log.Info().Str("addr", server.HTTP.Addr).Msgf("server listening on http://localhost:%d", server.Config.Port)
	if err := server.HTTP.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("server error")
		return
	}

	log.Info().Msg("server stopped")
}
