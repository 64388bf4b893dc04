package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/lyallcooper/hashmaker/internal/config"
	"github.com/lyallcooper/hashmaker/internal/dropzone"
	"github.com/lyallcooper/hashmaker/internal/handlers"
	"github.com/lyallcooper/hashmaker/internal/logging"
	"github.com/lyallcooper/hashmaker/internal/progress"
	"github.com/lyallcooper/hashmaker/internal/types"
	"github.com/lyallcooper/hashmaker/internal/workflow"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HASHMAKER_DB_PATH", filepath.Join(dir, "data", "test.db"))
	t.Setenv("HASHMAKER_SETTINGS_PATH", filepath.Join(dir, "settings.yaml"))
	t.Setenv("HASHMAKER_ENGINE_PATH", filepath.Join(dir, "no-such-engine"))

	s, err := CreateServer(ServerConfig{Port: 18181, Version: "v1.2.3", DisableCSRF: true, Logger: logging.Nop()})
	if err != nil {
		t.Fatalf("CreateServer() error = %v", err)
	}
	t.Cleanup(s.Cleanup)
	return s
}

func TestCreateServer(t *testing.T) {
	s := testServer(t)

	if s.HTTP.Addr != ":18181" {
		t.Errorf("Addr = %q", s.HTTP.Addr)
	}
	if _, ok := s.Scheduler.NextRun(); !ok {
		t.Error("scheduler should be running")
	}
	if err := s.MountProgress(context.Background(), nil); err != nil {
		t.Fatalf("MountProgress() error = %v", err)
	}

	s.Bus.Emit(types.ProgressPayload{Status: progress.StatusComputing, Processed: 1, Total: 4})
	if got := s.Progress.Snapshot(); got.Percent != 25 {
		t.Errorf("snapshot after emit = %+v", got)
	}

	rec := httptest.NewRecorder()
	s.HTTP.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/state", nil))
	var resp handlers.StateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("GET /api/state: %v: %s", err, rec.Body)
	}
	if resp.State.Screen != workflow.ScreenLanding || resp.Version != "v1.2.3" {
		t.Errorf("state = %+v", resp)
	}
}

func TestWindowSourcePreferred(t *testing.T) {
	s := testServer(t)
	window := progress.NewBus()
	if err := s.MountProgress(context.Background(), window); err != nil {
		t.Fatal(err)
	}

	s.Bus.Emit(types.ProgressPayload{Status: "global", Processed: 1, Total: 1})
	if s.Progress.Snapshot().Status == "global" {
		t.Error("global bus should be ignored when a window source is mounted")
	}
	window.Emit(types.ProgressPayload{Status: "window", Processed: 1, Total: 2})
	if got := s.Progress.Snapshot(); got.Status != "window" || got.Percent != 50 {
		t.Errorf("snapshot = %+v", got)
	}
}

func TestDropStartsSelection(t *testing.T) {
	s := testServer(t)
	if err := s.MountProgress(context.Background(), nil); err != nil {
		t.Fatal(err)
	}

	primary, err := s.Drops.Get("primary")
	if err != nil {
		t.Fatal(err)
	}
	primary.Handle(dropzone.Event{Kind: dropzone.Enter})
	primary.Handle(dropzone.Event{Kind: dropzone.PointerDrop})
	s.Drops.Broadcast(dropzone.Event{Kind: dropzone.OSDrop, Paths: []string{t.TempDir()}})
	s.Workflow.Wait()

	// The engine binary does not exist, so the run fails.
	if _, ok := s.Workflow.State().(workflow.Failed); !ok {
		t.Errorf("state = %T, want Failed", s.Workflow.State())
	}
	if got := s.Progress.Snapshot(); got != progress.Failed() {
		t.Errorf("snapshot = %+v", got)
	}

	runs, err := s.Database.ListRuns(10, 0)
	if err != nil || len(runs) != 1 || runs[0].Status != "failed" {
		t.Errorf("history = %+v, %v", runs, err)
	}
}

func TestNewCoreWithoutHistory(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HASHMAKER_SETTINGS_PATH", filepath.Join(dir, "settings.yaml"))
	t.Setenv("HASHMAKER_DB_PATH", filepath.Join(dir, "unused.db"))

	core, err := NewCore(config.Load(), CoreOptions{NoHistory: true, Logger: logging.Nop()})
	if err != nil {
		t.Fatal(err)
	}
	defer core.Close()
	if core.Database != nil {
		t.Error("Database should be nil without history")
	}
	if core.Settings.Get().Algorithm != types.SHA256 {
		t.Errorf("default algorithm = %q", core.Settings.Get().Algorithm)
	}
}

func TestBuildVersionString(t *testing.T) {
	tests := []struct {
		version, commit, want string
	}{
		{"v1.0.0", "abcdef123", "v1.0.0"},
		{"dev", "abcdef123456", "dev-abcdef1"},
		{"dev", "", "dev-unknown"},
		{"", "abc", "dev-abc"},
	}
	for _, tt := range tests {
		if got := buildVersionString(tt.version, tt.commit); got != tt.want {
			t.Errorf("buildVersionString(%q, %q) = %q, want %q", tt.version, tt.commit, got, tt.want)
		}
	}
}
