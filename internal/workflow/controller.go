// Package workflow sequences the select, compute, report and compare screens.
//
// The controller owns the single current State. Reports are replaced whole on
// every transition and never mutated. At most one engine call is in flight;
// while it runs the controller stays in Processing and rejects every other
// request with ErrBusy.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/lyallcooper/hashmaker/internal/engine"
	"github.com/lyallcooper/hashmaker/internal/logging"
	"github.com/lyallcooper/hashmaker/internal/progress"
	"github.com/lyallcooper/hashmaker/internal/types"
)

var (
	// ErrBusy is returned while an engine call is in flight.
	ErrBusy = errors.New("a hash computation is already running")
	// ErrInvalidTransition is returned for requests the current state does not accept.
	ErrInvalidTransition = errors.New("invalid workflow transition")
	// ErrEmptyPath is returned when a selection carries no path.
	ErrEmptyPath = errors.New("empty path")
)

// ProgressSink holds the snapshot shown to the user.
type ProgressSink interface {
	Snapshot() progress.Snapshot
	Reset(progress.Snapshot)
}

// Publisher receives raw engine progress events.
type Publisher interface {
	Emit(types.ProgressPayload)
}

// SettingsProvider supplies the current report settings.
type SettingsProvider interface {
	Get() types.Settings
}

// Recorder stores a history entry for every engine call.
type Recorder interface {
	BeginRun(target, path string, algorithm types.Algorithm) (string, error)
	CompleteRun(id string, report *types.HashReport) error
	FailRun(id string, message string) error
}

// Options configures a Controller. Engine, Progress and Publisher are required.
type Options struct {
	Engine    engine.Engine
	Progress  ProgressSink
	Publisher Publisher
	Settings  SettingsProvider
	Recorder  Recorder
	Logger    *logging.Logger
}

// subscriber holds the latest state not yet read by a listener.
type subscriber struct {
	mu     sync.Mutex
	ch     chan State
	closed bool
}

func (sub *subscriber) close() {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if !sub.closed {
		sub.closed = true
		close(sub.ch)
	}
}

func (sub *subscriber) send(s State) {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if sub.closed {
		return
	}
	select {
	case sub.ch <- s:
		return
	default:
	}
	select {
	case <-sub.ch:
	default:
	}
	select {
	case sub.ch <- s:
	default:
	}
}

// Controller is the workflow state machine.
type Controller struct {
	engine    engine.Engine
	progress  ProgressSink
	publisher Publisher
	settings  SettingsProvider
	recorder  Recorder
	log       *logging.Logger

	// lifetime bounds background runs started with Submit
	lifetime context.Context

	mu    sync.Mutex
	state State

	subMu       sync.Mutex
	subscribers []*subscriber

	wg sync.WaitGroup
}

// New creates a controller in Landing. ctx bounds runs started by Submit.
func New(ctx context.Context, opts Options) *Controller {
	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}
	return &Controller{
		engine:    opts.Engine,
		progress:  opts.Progress,
		publisher: opts.Publisher,
		settings:  opts.Settings,
		recorder:  opts.Recorder,
		log:       log,
		lifetime:  ctx,
		state:     Landing{},
	}
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Busy reports whether an engine call is in flight.
func (c *Controller) Busy() bool {
	_, ok := c.State().(Processing)
	return ok
}

// Select runs the engine for target on path and blocks until it resolves.
// The returned state is the state entered when the run finished.
func (c *Controller) Select(ctx context.Context, target Target, path string) (State, error) {
	proc, err := c.begin(target, path)
	if err != nil {
		return nil, err
	}
	c.wg.Add(1)
	defer c.wg.Done()
	return c.run(ctx, proc), nil
}

// Submit starts the engine for target on path and returns immediately.
func (c *Controller) Submit(target Target, path string) error {
	proc, err := c.begin(target, path)
	if err != nil {
		return err
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.run(c.lifetime, proc)
	}()
	return nil
}

// Wait blocks until every run started by Select or Submit has finished.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// begin validates a selection and enters Processing.
func (c *Controller) begin(target Target, path string) (Processing, error) {
	if path == "" {
		return Processing{}, ErrEmptyPath
	}

	c.mu.Lock()
	var held *types.HashReport
	switch st := c.state.(type) {
	case Processing:
		c.mu.Unlock()
		return Processing{}, ErrBusy
	case Landing, Failed:
		if target != Primary {
			c.mu.Unlock()
			return Processing{}, c.invalid("select "+string(target), st)
		}
	case DualSelect:
		if target == Comparison {
			held = st.Primary
		}
	default:
		c.mu.Unlock()
		return Processing{}, c.invalid("select "+string(target), st)
	}

	proc := Processing{Target: target, Path: path, Held: held}
	c.state = proc
	// Reset before the engine is called so no stale progress is shown.
	c.progress.Reset(progress.Listing())
	c.mu.Unlock()

	c.log.Info().Str("target", string(target)).Str("path", path).Msg("hash computation started")
	c.notify(proc)
	return proc, nil
}

// run performs the engine call for proc and applies its outcome.
func (c *Controller) run(ctx context.Context, proc Processing) State {
	alg := types.SHA256
	if c.settings != nil {
		if a := c.settings.Get().Algorithm; a != "" {
			alg = a
		}
	}

	runID := c.recordBegin(proc, alg)

	progressChan := make(chan types.ProgressPayload, 100)
	forwarded := make(chan struct{})
	go func() {
		defer close(forwarded)
		for p := range progressChan {
			c.publisher.Emit(p)
		}
	}()

	report, err := c.engine.ComputeHash(ctx, engine.Request{Path: proc.Path, Algorithm: alg}, progressChan)
	close(progressChan)
	<-forwarded

	if err == nil && report == nil {
		err = errors.New("engine returned no report")
	}

	var next State
	c.mu.Lock()
	if err != nil {
		next = Failed{}
		c.progress.Reset(progress.Failed())
	} else if proc.Target == Comparison {
		next = ComparisonAttached{Primary: proc.Held, Comparison: report}
	} else {
		next = PrimaryReady{Primary: report}
	}
	c.state = next
	c.mu.Unlock()

	if err != nil {
		c.log.Error().Err(err).Str("target", string(proc.Target)).Str("path", proc.Path).Msg("hash computation failed")
		c.recordFail(runID, err)
	} else {
		c.log.Info().
			Str("target", string(proc.Target)).
			Str("hash", report.Hash).
			Int("files", report.FileCount).
			Int("folders", report.FolderCount).
			Str("took", report.TimeTaken).
			Msg("hash computation finished")
		c.recordComplete(runID, report)
	}

	c.notify(next)
	return next
}

// Clear drops the report for target.
func (c *Controller) Clear(target Target) (State, error) {
	c.mu.Lock()
	var next State
	switch st := c.state.(type) {
	case Processing:
		c.mu.Unlock()
		return nil, ErrBusy
	case PrimaryReady:
		if target == Primary {
			next = Landing{}
		}
	case ComparisonAttached:
		switch target {
		case Primary:
			next = Landing{}
		case Comparison:
			next = DualSelect{Primary: st.Primary}
		}
	}
	if next == nil {
		err := c.invalid("clear "+string(target), c.state)
		c.mu.Unlock()
		return nil, err
	}
	c.state = next
	c.mu.Unlock()

	c.notify(next)
	return next, nil
}

// Compare compares the two held reports. It is a no-op unless the current
// state holds both a primary and a comparison report; ok reports whether a
// comparison happened.
func (c *Controller) Compare() (result types.ComparisonResult, ok bool) {
	c.mu.Lock()
	st, attached := c.state.(ComparisonAttached)
	if !attached || st.Primary == nil || st.Comparison == nil {
		c.mu.Unlock()
		return "", false
	}

	result = types.Compare(st.Primary, st.Comparison)
	next := CompareResult{Primary: st.Primary, Comparison: st.Comparison, Result: result}
	c.state = next

	snap := c.progress.Snapshot()
	snap.Status = progress.StatusReady
	c.progress.Reset(snap)
	c.mu.Unlock()

	c.log.Info().Str("result", string(result)).Msg("reports compared")
	c.notify(next)
	return result, true
}

// Navigate moves to a navigable screen: landing, compare (dual-select) or about.
func (c *Controller) Navigate(screen Screen) (State, error) {
	c.mu.Lock()
	if _, busy := c.state.(Processing); busy {
		c.mu.Unlock()
		return nil, ErrBusy
	}

	var next State
	switch screen {
	case ScreenLanding:
		next = Landing{}
	case ScreenAbout:
		next = About{}
	case ScreenDualSelect:
		next = DualSelect{Primary: c.state.primary()}
	default:
		err := c.invalid("navigate "+string(screen), c.state)
		c.mu.Unlock()
		return nil, err
	}
	c.state = next
	c.mu.Unlock()

	c.notify(next)
	return next, nil
}

// Subscribe returns a channel that always yields the newest state.
func (c *Controller) Subscribe() <-chan State {
	sub := &subscriber{ch: make(chan State, 1)}
	c.subMu.Lock()
	c.subscribers = append(c.subscribers, sub)
	c.subMu.Unlock()
	return sub.ch
}

// Unsubscribe closes and removes ch.
func (c *Controller) Unsubscribe(ch <-chan State) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	for i, sub := range c.subscribers {
		if sub.ch == ch {
			c.subscribers = append(c.subscribers[:i], c.subscribers[i+1:]...)
			sub.close()
			return
		}
	}
}

func (c *Controller) notify(s State) {
	c.subMu.Lock()
	subs := make([]*subscriber, len(c.subscribers))
	copy(subs, c.subscribers)
	c.subMu.Unlock()

	for _, sub := range subs {
		sub.send(s)
	}
}

func (c *Controller) invalid(action string, from State) error {
	return fmt.Errorf("%w: %s from %s", ErrInvalidTransition, action, from.Screen())
}

func (c *Controller) recordBegin(proc Processing, alg types.Algorithm) string {
	if c.recorder == nil {
		return ""
	}
	id, err := c.recorder.BeginRun(string(proc.Target), proc.Path, alg)
	if err != nil {
		c.log.Warn().Err(err).Msg("failed to record run start")
		return ""
	}
	return id
}

func (c *Controller) recordComplete(id string, report *types.HashReport) {
	if c.recorder == nil || id == "" {
		return
	}
	if err := c.recorder.CompleteRun(id, report); err != nil {
		c.log.Warn().Err(err).Str("run", id).Msg("failed to record run result")
	}
}

func (c *Controller) recordFail(id string, runErr error) {
	if c.recorder == nil || id == "" {
		return
	}
	if err := c.recorder.FailRun(id, runErr.Error()); err != nil {
		c.log.Warn().Err(err).Str("run", id).Msg("failed to record run failure")
	}
}
