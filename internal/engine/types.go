package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/lyallcooper/hashmaker/internal/types"
)

// ErrNotInstalled is returned when the engine binary cannot be run.
var ErrNotInstalled = errors.New("hash engine not installed")

// Request is one engine invocation.
type Request struct {
	Path      string
	Algorithm types.Algorithm
}

// Validate checks the request before the engine is started.
func (r Request) Validate() error {
	if r.Path == "" {
		return errors.New("engine: empty path")
	}
	if _, err := types.ParseAlgorithm(string(r.Algorithm)); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	return nil
}

// FormatDuration renders d as HH:MM:SS, the format of HashReport.TimeTaken.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total/60)%60, total%60)
}
