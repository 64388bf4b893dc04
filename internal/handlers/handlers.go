// Package handlers serves the JSON API, the progress stream and the static UI.
package handlers

import (
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"strconv"
	"time"

	"github.com/lyallcooper/hashmaker/internal/archive"
	"github.com/lyallcooper/hashmaker/internal/db"
	"github.com/lyallcooper/hashmaker/internal/dropzone"
	"github.com/lyallcooper/hashmaker/internal/logging"
	"github.com/lyallcooper/hashmaker/internal/progress"
	"github.com/lyallcooper/hashmaker/internal/types"
	"github.com/lyallcooper/hashmaker/internal/workflow"
)

// History is the run history used by the history routes.
type History interface {
	ListRuns(limit, offset int) ([]*db.Run, error)
	GetRun(id string) (*db.Run, error)
	GetReport(id string) (*types.HashReport, error)
	DeleteRun(id string) error
}

// Settings holds the live report settings.
type Settings interface {
	Get() types.Settings
	Set(types.Settings) error
}

// Options configures a Handler. Workflow, Progress, Settings and Drops are required.
type Options struct {
	Workflow *workflow.Controller
	Progress *progress.Consumer
	Settings Settings
	Drops    *dropzone.Group
	History  History
	StaticFS fs.FS
	Version  string
	Logger   *logging.Logger

	// DisableCSRF turns off token checks. The desktop server only accepts
	// local connections from its own window.
	DisableCSRF bool
}

// Handler holds all HTTP handlers
type Handler struct {
	workflow    *workflow.Controller
	progress    *progress.Consumer
	settings    Settings
	drops       *dropzone.Group
	history     History
	staticFS    fs.FS
	version     string
	log         *logging.Logger
	disableCSRF bool
	csrf        *csrfTokens
	now         func() time.Time
}

// New creates a new Handler
func New(opts Options) (*Handler, error) {
	if opts.Workflow == nil || opts.Progress == nil || opts.Settings == nil || opts.Drops == nil {
		return nil, errors.New("handlers: workflow, progress, settings and drops are required")
	}
	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}
	return &Handler{
		workflow:    opts.Workflow,
		progress:    opts.Progress,
		settings:    opts.Settings,
		drops:       opts.Drops,
		history:     opts.History,
		staticFS:    opts.StaticFS,
		version:     opts.Version,
		log:         log,
		disableCSRF: opts.DisableCSRF,
		csrf:        newCSRFTokens(),
		now:         time.Now,
	}, nil
}

// RegisterRoutes registers all HTTP routes
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Workflow
	mux.HandleFunc("GET /api/state", h.State)
	mux.HandleFunc("POST /api/select", h.Select)
	mux.HandleFunc("POST /api/clear", h.Clear)
	mux.HandleFunc("POST /api/compare", h.Compare)
	mux.HandleFunc("POST /api/navigate", h.Navigate)
	mux.HandleFunc("POST /api/drop/{target}/{event}", h.Drop)
	mux.HandleFunc("GET /api/export", h.Export)

	// Settings
	mux.HandleFunc("GET /api/settings", h.GetSettings)
	mux.HandleFunc("PUT /api/settings", h.PutSettings)

	// History
	mux.HandleFunc("GET /api/history", h.History)
	mux.HandleFunc("GET /api/history/{id}", h.HistoryRun)
	mux.HandleFunc("DELETE /api/history/{id}", h.DeleteHistoryRun)
	mux.HandleFunc("GET /api/history/{id}/export", h.ExportHistoryRun)

	// SSE
	mux.HandleFunc("GET /sse/progress", h.ProgressSSE)

	// Static files
	if h.staticFS != nil {
		mux.Handle("GET /", http.FileServer(http.FS(h.staticFS)))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps package errors onto status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, workflow.ErrBusy):
		status = http.StatusConflict
	case errors.Is(err, workflow.ErrInvalidTransition),
		errors.Is(err, workflow.ErrEmptyPath),
		errors.Is(err, types.ErrUnknownAlgorithm),
		errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
	case errors.Is(err, db.ErrNotFound), errors.Is(err, archive.ErrNoReport):
		status = http.StatusNotFound
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

var errBadRequest = errors.New("bad request")

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Join(errBadRequest, err)
	}
	return nil
}

func queryInt(r *http.Request, key string, def, min, max int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || n < min {
		return def
	}
	if n > max {
		return max
	}
	return n
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02 15:04")
}
