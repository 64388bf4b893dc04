package db

import (
	"time"

	"github.com/lyallcooper/hashmaker/internal/types"
)

// RunStatus represents the status of a hash run
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run is one recorded engine call. Report fields are set once completed.
type Run struct {
	ID           string
	Target       string
	Path         string
	Algorithm    types.Algorithm
	Status       RunStatus
	Hash         string
	TimeTaken    string
	FolderCount  int
	FileCount    int
	ErrorMessage *string
	StartedAt    time.Time
	CompletedAt  *time.Time
}

// Settings returns base with the algorithm the run was hashed with.
func (r *Run) Settings(base types.Settings) types.Settings {
	if r.Algorithm != "" {
		base.Algorithm = r.Algorithm
	}
	return base
}

// Report rebuilds the engine report of a completed run.
func (r *Run) Report(files []types.FileHash) *types.HashReport {
	if files == nil {
		files = []types.FileHash{}
	}
	return &types.HashReport{
		Hash:        r.Hash,
		TimeTaken:   r.TimeTaken,
		FolderCount: r.FolderCount,
		FileCount:   r.FileCount,
		Path:        r.Path,
		FileHashes:  files,
	}
}
