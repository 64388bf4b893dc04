// Package engine adapts the external hashing engine binary. The binary
// writes the finished report as JSON to stdout and progress as one JSON
// object per line to stderr.
package engine

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/lyallcooper/hashmaker/internal/types"
)

// diagnosticLines is how many non-progress stderr lines are kept for errors.
const diagnosticLines = 5

// Executor runs the engine binary
type Executor struct {
	binaryPath string
	timeout    time.Duration
	command    func(ctx context.Context, name string, args ...string) *exec.Cmd
}

// NewExecutor creates a new engine executor
func NewExecutor(binaryPath string) *Executor {
	if binaryPath == "" {
		binaryPath = "hashmaker-engine"
	}
	return &Executor{
		binaryPath: binaryPath,
		command:    exec.CommandContext,
	}
}

// SetBinaryPath sets a custom path to the engine binary
func (e *Executor) SetBinaryPath(path string) {
	e.binaryPath = path
}

// SetTimeout bounds each ComputeHash call. Zero disables the limit.
func (e *Executor) SetTimeout(d time.Duration) {
	e.timeout = d
}

// CheckInstalled verifies that the engine is installed and accessible
func (e *Executor) CheckInstalled(ctx context.Context) error {
	output, err := e.command(ctx, e.binaryPath, "--version").Output()
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrNotInstalled, e.binaryPath, err)
	}
	if !strings.Contains(strings.ToLower(string(output)), "hashmaker") {
		return fmt.Errorf("%w: unexpected output from --version: %s", ErrNotInstalled, bytes.TrimSpace(output))
	}
	return nil
}

// Version returns the engine version string
func (e *Executor) Version(ctx context.Context) (string, error) {
	output, err := e.command(ctx, e.binaryPath, "--version").Output()
	if err != nil {
		return "", fmt.Errorf("failed to get engine version: %w", err)
	}
	return strings.TrimSpace(string(output)), nil
}

// ComputeHash runs the engine on req.Path and returns its report
func (e *Executor) ComputeHash(ctx context.Context, req Request, progressChan chan<- types.ProgressPayload) (*types.HashReport, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	alg, _ := types.ParseAlgorithm(string(req.Algorithm))
	args := []string{"hash", "--algorithm", string(alg), "--format", "json", "--", req.Path}
	cmd := e.command(ctx, e.binaryPath, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	started := time.Now()
	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("%w: %v", ErrNotInstalled, err)
		}
		return nil, fmt.Errorf("failed to start engine: %w", err)
	}

	diag := make(chan []string, 1)
	go func() {
		diag <- readProgress(ctx, stderr, progressChan)
	}()

	output, readErr := io.ReadAll(stdout)
	diagnostics := <-diag

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("engine stopped: %w", ctx.Err())
		}
		if len(diagnostics) > 0 {
			return nil, fmt.Errorf("engine exited with error: %w: %s", err, strings.Join(diagnostics, "; "))
		}
		return nil, fmt.Errorf("engine exited with error: %w", err)
	}
	if readErr != nil {
		return nil, fmt.Errorf("failed to read output: %w", readErr)
	}

	report, err := ParseReport(output)
	if err != nil {
		return nil, err
	}
	if report.TimeTaken == "" {
		report.TimeTaken = FormatDuration(time.Since(started))
	}
	return report, nil
}

// ParseReport decodes the engine's stdout.
func ParseReport(data []byte) (*types.HashReport, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.New("engine produced no output")
	}

	var report types.HashReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to parse engine output: %w", err)
	}
	if report.FileHashes == nil {
		report.FileHashes = []types.FileHash{}
	}
	return &report, nil
}

// parseProgressLine decodes one stderr line. Lines that are not a JSON
// progress object return nil.
func parseProgressLine(line string) *types.ProgressPayload {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "{") {
		return nil
	}

	var raw struct {
		Status    *string `json:"status"`
		Processed int64   `json:"processed"`
		Total     int64   `json:"total"`
	}
	if err := json.Unmarshal([]byte(line), &raw); err != nil || raw.Status == nil {
		return nil
	}
	return &types.ProgressPayload{
		Status:    *raw.Status,
		Processed: raw.Processed,
		Total:     raw.Total,
	}
}

// readProgress forwards progress lines and returns the last few other lines.
// Intermediate events are dropped when progressChan is full; the newest
// event is always delivered before return unless ctx ends first.
func readProgress(ctx context.Context, r io.Reader, progressChan chan<- types.ProgressPayload) []string {
	var other []string
	var pending *types.ProgressPayload

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()

		p := parseProgressLine(line)
		if p == nil {
			if s := strings.TrimSpace(line); s != "" {
				other = append(other, s)
				if len(other) > diagnosticLines {
					other = other[1:]
				}
			}
			continue
		}

		if progressChan == nil {
			continue
		}
		select {
		case progressChan <- *p:
			pending = nil
		default:
			pending = p
		}
	}
	// Drain whatever is left so the process never blocks on a full pipe.
	_, _ = io.Copy(io.Discard, r)

	if pending != nil {
		select {
		case progressChan <- *pending:
		case <-ctx.Done():
		}
	}
	return other
}
