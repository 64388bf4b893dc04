package handlers

import (
	"fmt"
	"net/http"

	"github.com/lyallcooper/hashmaker/internal/archive"
	"github.com/lyallcooper/hashmaker/internal/dropzone"
	"github.com/lyallcooper/hashmaker/internal/progress"
	"github.com/lyallcooper/hashmaker/internal/types"
	"github.com/lyallcooper/hashmaker/internal/workflow"
)

// StateResponse is the body of every workflow route.
type StateResponse struct {
	State    workflow.View     `json:"state"`
	Progress progress.Snapshot `json:"progress"`
	Dragging map[string]bool   `json:"dragging"`
	Version  string            `json:"version,omitempty"`
}

func (h *Handler) stateResponse(st workflow.State) StateResponse {
	dragging := map[string]bool{}
	for _, name := range []workflow.Target{workflow.Primary, workflow.Comparison} {
		if t, err := h.drops.Get(string(name)); err == nil {
			dragging[string(name)] = t.IsDragging()
		}
	}
	return StateResponse{
		State:    workflow.Describe(st),
		Progress: h.progress.Snapshot(),
		Dragging: dragging,
		Version:  h.version,
	}
}

// State handles GET /api/state
func (h *Handler) State(w http.ResponseWriter, r *http.Request) {
	h.setCSRFCookie(w, r)
	writeJSON(w, http.StatusOK, h.stateResponse(h.workflow.State()))
}

type selectRequest struct {
	Target string `json:"target"`
	Path   string `json:"path"`
}

// Select handles POST /api/select. The engine runs in the background; the
// response carries the processing state.
func (h *Handler) Select(w http.ResponseWriter, r *http.Request) {
	if !h.requireCSRF(w, r) {
		return
	}
	var req selectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	target, err := workflow.ParseTarget(req.Target)
	if err != nil {
		writeError(w, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	if err := h.workflow.Submit(target, req.Path); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, h.stateResponse(h.workflow.State()))
}

type targetRequest struct {
	Target string `json:"target"`
}

// Clear handles POST /api/clear
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	if !h.requireCSRF(w, r) {
		return
	}
	var req targetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	target, err := workflow.ParseTarget(req.Target)
	if err != nil {
		writeError(w, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	st, err := h.workflow.Clear(target)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.stateResponse(st))
}

// CompareResponse adds the comparison outcome to the state.
type CompareResponse struct {
	StateResponse
	Compared bool                   `json:"compared"`
	Result   types.ComparisonResult `json:"result,omitempty"`
}

// Compare handles POST /api/compare. Without both reports it is a no-op.
func (h *Handler) Compare(w http.ResponseWriter, r *http.Request) {
	if !h.requireCSRF(w, r) {
		return
	}
	result, ok := h.workflow.Compare()
	writeJSON(w, http.StatusOK, CompareResponse{
		StateResponse: h.stateResponse(h.workflow.State()),
		Compared:      ok,
		Result:        result,
	})
}

type navigateRequest struct {
	Screen string `json:"screen"`
}

// Navigate handles POST /api/navigate
func (h *Handler) Navigate(w http.ResponseWriter, r *http.Request) {
	if !h.requireCSRF(w, r) {
		return
	}
	var req navigateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	screen, err := workflow.ParseDestination(req.Screen)
	if err != nil {
		writeError(w, err)
		return
	}
	st, err := h.workflow.Navigate(screen)
	if err != nil {
		writeError(w, err)
		return
	}
	// Leaving a screen unmounts its drop targets.
	h.drops.Reset()
	writeJSON(w, http.StatusOK, h.stateResponse(st))
}

// DropResponse reports the target after a pointer event.
type DropResponse struct {
	Target   string `json:"target"`
	Dragging bool   `json:"dragging"`
	Phase    string `json:"phase"`
	Path     string `json:"path,omitempty"`
	Selected bool   `json:"selected"`
}

// Drop handles POST /api/drop/{target}/{event}. A "drop" may carry the
// resolved item path as ?path=.
func (h *Handler) Drop(w http.ResponseWriter, r *http.Request) {
	if !h.requireCSRF(w, r) {
		return
	}
	target, err := h.drops.Get(r.PathValue("target"))
	if err != nil {
		writeError(w, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	kind, err := dropzone.ParseKind(r.PathValue("event"))
	if err != nil {
		writeError(w, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	ev := dropzone.Event{Kind: kind}
	if p := r.URL.Query().Get("path"); p != "" {
		ev.Paths = []string{p}
	}
	path, ok := target.Handle(ev)

	st := target.State()
	writeJSON(w, http.StatusOK, DropResponse{
		Target:   target.Name(),
		Dragging: st.IsDragging(),
		Phase:    st.Phase.String(),
		Path:     path,
		Selected: ok,
	})
}

// Export handles GET /api/export?target=primary|comparison and downloads the
// archive of the held report.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	st := h.workflow.State()
	report := workflow.PrimaryReport(st)
	if r.URL.Query().Get("target") == string(workflow.Comparison) {
		report = workflow.ComparisonReport(st)
	}
	h.writeArchive(w, report, h.settings.Get())
}

func (h *Handler) writeArchive(w http.ResponseWriter, report *types.HashReport, settings types.Settings) {
	if report == nil {
		writeError(w, archive.ErrNoReport)
		return
	}
	ts := h.now()
	entries, err := archive.Entries(report, settings, ts)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, archive.BundleName(ts)))
	if err := archive.WriteEntries(w, entries, ts); err != nil {
		h.log.Error().Err(err).Msg("failed to write archive")
	}
}
