package engine

import (
	"context"

	"github.com/lyallcooper/hashmaker/internal/types"
)

// Engine computes a folder report. Progress is delivered out of band on
// progressChan, which may be nil. Intermediate events may be dropped when it
// is full, but the final event is delivered before ComputeHash returns, so
// the receiver must keep draining until then.
// Implementations must not close progressChan and must not send on it after
// ComputeHash returns.
type Engine interface {
	ComputeHash(ctx context.Context, req Request, progressChan chan<- types.ProgressPayload) (*types.HashReport, error)
}

var _ Engine = (*Executor)(nil)
