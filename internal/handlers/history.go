package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/lyallcooper/hashmaker/internal/db"
)

// RunView is the JSON form of a history entry.
type RunView struct {
	ID          string `json:"id"`
	Target      string `json:"target"`
	Path        string `json:"path"`
	Algorithm   string `json:"algorithm"`
	Status      string `json:"status"`
	Hash        string `json:"hash,omitempty"`
	TimeTaken   string `json:"timeTaken,omitempty"`
	FolderCount int    `json:"folderCount"`
	FileCount   int    `json:"fileCount"`
	Error       string `json:"error,omitempty"`
	StartedAt   string `json:"startedAt"`
	CompletedAt string `json:"completedAt,omitempty"`
	Duration    string `json:"duration"`
}

func newRunView(run *db.Run) RunView {
	v := RunView{
		ID:          run.ID,
		Target:      run.Target,
		Path:        run.Path,
		Algorithm:   string(run.Algorithm),
		Status:      string(run.Status),
		Hash:        run.Hash,
		TimeTaken:   run.TimeTaken,
		FolderCount: run.FolderCount,
		FileCount:   run.FileCount,
		StartedAt:   formatTime(&run.StartedAt),
		CompletedAt: formatTime(run.CompletedAt),
	}
	if run.ErrorMessage != nil {
		v.Error = *run.ErrorMessage
	}
	switch {
	case run.CompletedAt != nil:
		v.Duration = formatDuration(run.CompletedAt.Sub(run.StartedAt))
	case run.Status == db.RunStatusRunning:
		v.Duration = "Running..."
	default:
		v.Duration = "-"
	}
	return v
}

// HistoryResponse is one page of runs.
type HistoryResponse struct {
	Runs    []RunView `json:"runs"`
	Page    int       `json:"page"`
	HasMore bool      `json:"hasMore"`
}

// History handles GET /api/history?page=N
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	if !h.requireHistory(w) {
		return
	}
	page := queryInt(r, "page", 1, 1, 1<<20)
	limit := queryInt(r, "limit", 20, 1, 100)
	offset := (page - 1) * limit

	runs, err := h.history.ListRuns(limit+1, offset)
	if err != nil {
		writeError(w, err)
		return
	}

	hasMore := len(runs) > limit
	if hasMore {
		runs = runs[:limit]
	}

	views := make([]RunView, 0, len(runs))
	for _, run := range runs {
		views = append(views, newRunView(run))
	}
	writeJSON(w, http.StatusOK, HistoryResponse{Runs: views, Page: page, HasMore: hasMore})
}

// HistoryRun handles GET /api/history/{id}
func (h *Handler) HistoryRun(w http.ResponseWriter, r *http.Request) {
	if !h.requireHistory(w) {
		return
	}
	run, err := h.history.GetRun(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newRunView(run))
}

// DeleteHistoryRun handles DELETE /api/history/{id}
func (h *Handler) DeleteHistoryRun(w http.ResponseWriter, r *http.Request) {
	if !h.requireCSRF(w, r) || !h.requireHistory(w) {
		return
	}
	if err := h.history.DeleteRun(r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExportHistoryRun handles GET /api/history/{id}/export
func (h *Handler) ExportHistoryRun(w http.ResponseWriter, r *http.Request) {
	if !h.requireHistory(w) {
		return
	}
	id := r.PathValue("id")
	run, err := h.history.GetRun(id)
	if err != nil {
		writeError(w, err)
		return
	}
	report, err := h.history.GetReport(id)
	if err != nil {
		writeError(w, err)
		return
	}
	// The document names the algorithm the stored hash was computed with.
	h.writeArchive(w, report, run.Settings(h.settings.Get()))
}

func (h *Handler) requireHistory(w http.ResponseWriter) bool {
	if h.history != nil {
		return true
	}
	writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": errNoHistory.Error()})
	return false
}

var errNoHistory = errors.New("history is not enabled")

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return strconv.Itoa(int(d.Seconds())) + "s"
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return strconv.Itoa(m) + "m " + strconv.Itoa(s) + "s"
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return strconv.Itoa(h) + "h " + strconv.Itoa(m) + "m"
}
