// Package progress consumes the engine's progress channel and keeps the
// latest derived snapshot for the UI.
package progress

import "github.com/lyallcooper/hashmaker/internal/types"

// Channel is the name of the progress event channel.
const Channel = "hash-progress"

// Status strings shown while a computation runs.
const (
	StatusListing   = "Listing files and folders..."
	StatusComputing = "Computing hash..."
	StatusReporting = "Making report..."
	StatusReady     = "Ready"
	StatusError     = "Error"
)

// Snapshot is the derived view of the most recent progress event.
type Snapshot struct {
	Status    string `json:"status"`
	Processed int64  `json:"processed"`
	Total     int64  `json:"total"`
	Percent   int    `json:"percent"`
}

// Percent returns processed/total as a rounded percentage in [0, 100].
// A non-positive total yields 0.
func Percent(processed, total int64) int {
	if total <= 0 || processed <= 0 {
		return 0
	}
	if processed >= total {
		return 100
	}
	// round half up
	return int((processed*200 + total) / (total * 2))
}

// FromPayload derives a snapshot from a raw event. Negative counters are
// treated as zero.
func FromPayload(p types.ProgressPayload) Snapshot {
	processed, total := p.Processed, p.Total
	if processed < 0 {
		processed = 0
	}
	if total < 0 {
		total = 0
	}
	return Snapshot{
		Status:    p.Status,
		Processed: processed,
		Total:     total,
		Percent:   Percent(processed, total),
	}
}

// Listing is the snapshot shown when a computation starts.
func Listing() Snapshot {
	return Snapshot{Status: StatusListing}
}

// Failed is the snapshot shown after the engine rejects a call.
func Failed() Snapshot {
	return Snapshot{Status: StatusError}
}
