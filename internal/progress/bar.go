package progress

import (
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"
)

// Bar renders snapshots as a terminal progress bar.
type Bar struct {
	w     io.Writer
	bar   *progressbar.ProgressBar
	total int64
}

// NewBar creates a bar writing to w. It starts as a spinner until a total
// is known.
func NewBar(w io.Writer) *Bar {
	return &Bar{w: w, bar: newProgressBar(w, -1, StatusListing), total: -1}
}

func newProgressBar(w io.Writer, total int64, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions64(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(w),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(w, "\n")
		}),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetRenderBlankState(true),
	)
}

// Update moves the bar to s.
func (b *Bar) Update(s Snapshot) {
	if s.Total > 0 && s.Total != b.total {
		b.total = s.Total
		b.bar.ChangeMax64(s.Total)
	}
	b.bar.Describe(s.Status)
	_ = b.bar.Set64(s.Processed)
}

// Follow renders every snapshot from ch until it is closed.
func (b *Bar) Follow(ch <-chan Snapshot) {
	for s := range ch {
		b.Update(s)
	}
}

// Finish completes the bar.
func (b *Bar) Finish() {
	_ = b.bar.Finish()
}
