package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	goruntime "runtime"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"github.com/wailsapp/wails/v2/pkg/options/mac"
	"github.com/wailsapp/wails/v2/pkg/options/windows"

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
	log := logging.NewLogger("desktop", os.Stderr)

	// Desktop defaults must be in the environment before config is loaded.
	setDesktopDefaults(log, appDataDir(goruntime.GOOS, os.Getenv))

	port, err := findAvailablePort(preferredPort)
	if err != nil {
		log.Error().Err(err).Msg("failed to find available port")
		os.Exit(1)
	}

	engineBinary := findBundledEngine(goruntime.GOOS, os.Getenv("HASHMAKER_ENGINE_PATH"))
	if engineBinary != "" {
		log.Info().Str("path", engineBinary).Msg("using bundled engine")
	}

	server, err := app.CreateServer(app.ServerConfig{
		Port:         port,
		EngineBinary: engineBinary,
		Version:      version,
		Commit:       commit,
		StaticFS:     webfs.FS(),
		BindAddress:  "127.0.0.1", // Only local connections
		DisableCSRF:  true,        // CSRF not needed for desktop app
		Logger:       log,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to create server")
		os.Exit(1)
	}

	targetURL, _ := url.Parse(fmt.Sprintf("http://127.0.0.1:%d", port))
	proxy := httputil.NewSingleHostReverseProxy(targetURL)

	desktopApp := NewApp(server, log.Named("window"))

	err = wails.Run(&options.App{
		Title:     "Hashmaker",
		Width:     1000,
		Height:    760,
		MinWidth:  720,
		MinHeight: 560,
		AssetServer: &assetserver.Options{
			Handler: proxy,
		},
		DragAndDrop: &options.DragAndDrop{
			EnableFileDrop:     true,
			DisableWebViewDrop: true,
		},
		OnStartup: func(ctx context.Context) {
			desktopApp.startup(ctx)
			go func() {
				log.Info().Int("port", port).Msg("internal server listening")
				if err := server.HTTP.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
					log.Error().Err(err).Msg("HTTP server error")
				}
			}()
		},
		OnShutdown: func(ctx context.Context) {
			log.Info().Msg("shutting down")
			desktopApp.shutdown()
			server.HTTP.Shutdown(context.Background())
			server.Cleanup()
			log.Info().Msg("shutdown complete")
		},
		Bind: []interface{}{
			desktopApp,
		},
		Mac: &mac.Options{
			About: &mac.AboutInfo{
				Title:   "Hashmaker",
				Message: fmt.Sprintf("Folder Hash Reports\n\nVersion: %s", server.Version),
			},
		},
		Windows: &windows.Options{
			WebviewIsTransparent: false,
			WindowIsTranslucent:  false,
		},
	})

	if err != nil {
		log.Error().Err(err).Msg("wails error")
		os.Exit(1)
	}
}
