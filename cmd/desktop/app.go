package main

import (
	"context"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"github.com/lyallcooper/hashmaker/internal/app"
	"github.com/lyallcooper/hashmaker/internal/dropzone"
	"github.com/lyallcooper/hashmaker/internal/logging"
	"github.com/lyallcooper/hashmaker/internal/progress"
	"github.com/lyallcooper/hashmaker/internal/types"
	"github.com/lyallcooper/hashmaker/internal/workflow"
)

// App struct holds the Wails application context and provides
// methods that can be called from the frontend.
type App struct {
	ctx    context.Context
	server *app.Server
	log    *logging.Logger

	unsubscribe []func()
}

// NewApp creates a new App instance.
func NewApp(server *app.Server, log *logging.Logger) *App {
	return &App{server: server, log: log}
}

// startup is called when the app starts. It routes window events into the
// drop targets and the progress consumer.
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	// Engine progress reaches the window channel, which the consumer prefers.
	unsubBus, err := a.server.Bus.Subscribe(ctx, progress.Channel, func(p types.ProgressPayload) {
		runtime.EventsEmit(ctx, progress.Channel, p)
	})
	if err != nil {
		a.log.Error().Err(err).Msg("failed to forward engine progress to the window")
	}
	a.track(unsubBus)

	if err := a.server.MountProgress(ctx, windowSource{ctx: ctx}); err != nil {
		a.log.Error().Err(err).Msg("failed to mount window progress")
	}

	runtime.OnFileDrop(ctx, func(x, y int, paths []string) {
		a.log.Debug().Int("x", x).Int("y", y).Strs("paths", paths).Msg("file drop")
		a.server.Drops.Broadcast(dropzone.Event{Kind: dropzone.OSDrop, Paths: paths})
	})
	a.track(
		runtime.EventsOn(ctx, dropzone.ChannelCancelled, func(...interface{}) {
			a.server.Drops.Broadcast(dropzone.Event{Kind: dropzone.OSCancel})
		}),
		runtime.EventsOn(ctx, dropzone.ChannelHover, func(...interface{}) {
			a.server.Drops.Broadcast(dropzone.Event{Kind: dropzone.OSHover})
		}),
	)

	states := a.server.Workflow.Subscribe()
	a.track(func() { a.server.Workflow.Unsubscribe(states) })
	go func() {
		for st := range states {
			runtime.EventsEmit(ctx, eventState, workflow.Describe(st))
		}
	}()
}

// track registers teardown funcs for shutdown. Nil funcs, left by failed
// subscriptions, are skipped.
func (a *App) track(fns ...func()) {
	for _, fn := range fns {
		if fn != nil {
			a.unsubscribe = append(a.unsubscribe, fn)
		}
	}
}

// shutdown detaches the window listeners.
func (a *App) shutdown() {
	if a.ctx != nil {
		runtime.OnFileDropOff(a.ctx)
	}
	for _, fn := range a.unsubscribe {
		fn()
	}
	a.unsubscribe = nil
}

// SelectFolder opens the folder picker and starts hashing the chosen folder
// for target ("primary" or "comparison"). It returns the chosen path, or ""
// when the picker was dismissed.
func (a *App) SelectFolder(target string) (string, error) {
	t, err := workflow.ParseTarget(target)
	if err != nil {
		return "", err
	}
	path, err := runtime.OpenDirectoryDialog(a.ctx, runtime.OpenDialogOptions{Title: "Select a folder to hash"})
	if err != nil || path == "" {
		return "", err
	}
	if err := a.server.Workflow.Submit(t, path); err != nil {
		return "", err
	}
	return path, nil
}
