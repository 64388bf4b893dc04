package workflow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lyallcooper/hashmaker/internal/engine"
	"github.com/lyallcooper/hashmaker/internal/progress"
	"github.com/lyallcooper/hashmaker/internal/types"
)

// mockEngine implements engine.Engine for testing
type mockEngine struct {
	mu sync.Mutex

	// reports by path; missing paths fail with err
	reports map[string]*types.HashReport
	err     error
	events  []types.ProgressPayload
	block   chan struct{}

	calls    int
	requests []engine.Request
}

func (m *mockEngine) ComputeHash(ctx context.Context, req engine.Request, progressChan chan<- types.ProgressPayload) (*types.HashReport, error) {
	m.mu.Lock()
	m.calls++
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	for _, ev := range m.events {
		progressChan <- ev
	}
	if m.block != nil {
		select {
		case <-m.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if r, ok := m.reports[req.Path]; ok {
		return r, nil
	}
	if m.err != nil {
		return nil, m.err
	}
	return nil, errors.New("no such folder")
}

type staticSettings types.Settings

func (s staticSettings) Get() types.Settings { return types.Settings(s) }

// mockRecorder implements Recorder for testing
type mockRecorder struct {
	mu        sync.Mutex
	begun     []string
	completed []string
	failed    []string
	beginErr  error
}

func (r *mockRecorder) BeginRun(target, path string, algorithm types.Algorithm) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.beginErr != nil {
		return "", r.beginErr
	}
	r.begun = append(r.begun, target+":"+path+":"+string(algorithm))
	return path, nil
}

func (r *mockRecorder) CompleteRun(id string, report *types.HashReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed = append(r.completed, id)
	return nil
}

func (r *mockRecorder) FailRun(id, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed = append(r.failed, id+":"+message)
	return nil
}

type fixture struct {
	ctrl     *Controller
	engine   *mockEngine
	consumer *progress.Consumer
	recorder *mockRecorder
}

func newFixture(t *testing.T, eng *mockEngine) *fixture {
	t.Helper()
	bus := progress.NewBus()
	consumer := progress.NewConsumer(nil)
	mount := consumer.Mount(context.Background(), nil, bus)
	<-mount.Ready()
	t.Cleanup(mount.Close)

	rec := &mockRecorder{}
	ctrl := New(context.Background(), Options{
		Engine:    eng,
		Progress:  consumer,
		Publisher: bus,
		Settings:  staticSettings{Algorithm: types.SHA512},
		Recorder:  rec,
	})
	return &fixture{ctrl: ctrl, engine: eng, consumer: consumer, recorder: rec}
}

func report(path, hash string) *types.HashReport {
	return &types.HashReport{Hash: hash, Path: path, FileCount: 1, TimeTaken: "00:00:01"}
}

func TestSelectPrimaryResolves(t *testing.T) {
	eng := &mockEngine{
		reports: map[string]*types.HashReport{"/a": report("/a", "AAAA")},
		events: []types.ProgressPayload{
			{Status: progress.StatusComputing, Processed: 1, Total: 4},
			{Status: progress.StatusReporting, Processed: 3, Total: 4},
		},
	}
	f := newFixture(t, eng)

	st, err := f.ctrl.Select(context.Background(), Primary, "/a")
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	ready, ok := st.(PrimaryReady)
	if !ok {
		t.Fatalf("state = %T, want PrimaryReady", st)
	}
	if ready.Primary.Hash != "AAAA" {
		t.Errorf("primary hash = %q", ready.Primary.Hash)
	}

	snap := f.consumer.Snapshot()
	if snap.Status != progress.StatusReporting || snap.Processed != 3 || snap.Percent != 75 {
		t.Errorf("snapshot = %+v, want final event before resolution", snap)
	}
	if eng.requests[0].Algorithm != types.SHA512 {
		t.Errorf("algorithm = %q, want sha512 from settings", eng.requests[0].Algorithm)
	}
	if len(f.recorder.completed) != 1 {
		t.Errorf("recorded completions = %v", f.recorder.completed)
	}
}

func TestSelectWithoutEventsKeepsResetSnapshot(t *testing.T) {
	eng := &mockEngine{reports: map[string]*types.HashReport{"/a": report("/a", "A")}}
	f := newFixture(t, eng)
	f.consumer.Reset(progress.Snapshot{Status: "stale", Processed: 9, Total: 9, Percent: 100})

	if _, err := f.ctrl.Select(context.Background(), Primary, "/a"); err != nil {
		t.Fatal(err)
	}
	if got := f.consumer.Snapshot(); got != progress.Listing() {
		t.Errorf("snapshot = %+v, want reset snapshot", got)
	}
}

func TestSelectEngineFailure(t *testing.T) {
	f := newFixture(t, &mockEngine{err: errors.New("disk unplugged")})

	st, err := f.ctrl.Select(context.Background(), Primary, "/gone")
	if err != nil {
		t.Fatalf("Select() error = %v; engine failures surface as state", err)
	}
	if _, ok := st.(Failed); !ok {
		t.Fatalf("state = %T, want Failed", st)
	}
	if got := f.consumer.Snapshot(); got != progress.Failed() {
		t.Errorf("snapshot = %+v, want error snapshot", got)
	}
	if len(f.recorder.failed) != 1 || f.recorder.failed[0] != "/gone:disk unplugged" {
		t.Errorf("recorded failures = %v", f.recorder.failed)
	}

	// Error re-enters landing semantics: a new primary selection is accepted.
	f.engine.reports = map[string]*types.HashReport{"/b": report("/b", "B")}
	st, err = f.ctrl.Select(context.Background(), Primary, "/b")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := st.(PrimaryReady); !ok {
		t.Errorf("state = %T, want PrimaryReady", st)
	}
}

func TestRecorderFailureDoesNotAffectRun(t *testing.T) {
	f := newFixture(t, &mockEngine{reports: map[string]*types.HashReport{"/a": report("/a", "A")}})
	f.recorder.beginErr = errors.New("database locked")

	st, err := f.ctrl.Select(context.Background(), Primary, "/a")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := st.(PrimaryReady); !ok {
		t.Errorf("state = %T, want PrimaryReady", st)
	}
}

func TestFullCompareFlow(t *testing.T) {
	tests := []struct {
		name       string
		primary    string
		comparison string
		want       types.ComparisonResult
	}{
		{"identical", "ABCDEF", "ABCDEF", types.Identical},
		{"mismatch same length", "ABCDEF", "ABCDEE", types.Mismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, &mockEngine{reports: map[string]*types.HashReport{
				"/p": report("/p", tt.primary),
				"/c": report("/c", tt.comparison),
			}})
			ctx := context.Background()

			mustSelect(t, f.ctrl, Primary, "/p")
			if _, err := f.ctrl.Navigate(ScreenDualSelect); err != nil {
				t.Fatal(err)
			}
			ds, ok := f.ctrl.State().(DualSelect)
			if !ok || ds.Primary == nil || ds.Primary.Hash != tt.primary {
				t.Fatalf("state = %#v, want DualSelect carrying primary", f.ctrl.State())
			}

			st, err := f.ctrl.Select(ctx, Comparison, "/c")
			if err != nil {
				t.Fatal(err)
			}
			attached, ok := st.(ComparisonAttached)
			if !ok || attached.Primary.Hash != tt.primary || attached.Comparison.Hash != tt.comparison {
				t.Fatalf("state = %#v, want ComparisonAttached with both", st)
			}

			result, ok := f.ctrl.Compare()
			if !ok || result != tt.want {
				t.Errorf("Compare() = %q, %v, want %q", result, ok, tt.want)
			}
			cr, ok := f.ctrl.State().(CompareResult)
			if !ok || cr.Result != tt.want {
				t.Errorf("state = %#v, want CompareResult", f.ctrl.State())
			}
			if s := f.consumer.Snapshot().Status; s != progress.StatusReady {
				t.Errorf("status after compare = %q, want Ready", s)
			}

			next, err := f.ctrl.Navigate(ScreenDualSelect)
			if err != nil {
				t.Fatal(err)
			}
			if PrimaryReport(next) == nil {
				t.Error("navigating to compare from result dropped the primary")
			}
		})
	}
}

func TestCompareWithoutBothIsNoop(t *testing.T) {
	f := newFixture(t, &mockEngine{reports: map[string]*types.HashReport{"/c": report("/c", "C")}})

	if _, ok := f.ctrl.Compare(); ok {
		t.Error("Compare() from landing should be a no-op")
	}

	if _, err := f.ctrl.Navigate(ScreenDualSelect); err != nil {
		t.Fatal(err)
	}
	mustSelect(t, f.ctrl, Comparison, "/c")
	st := f.ctrl.State()
	if _, ok := st.(ComparisonAttached); !ok {
		t.Fatalf("state = %T, want ComparisonAttached", st)
	}

	if _, ok := f.ctrl.Compare(); ok {
		t.Error("Compare() without primary should be a no-op")
	}
	if f.ctrl.State().Screen() != ScreenComparisonAttached {
		t.Errorf("state changed to %s", f.ctrl.State().Screen())
	}
}

func TestClear(t *testing.T) {
	f := newFixture(t, &mockEngine{reports: map[string]*types.HashReport{
		"/p": report("/p", "P"),
		"/c": report("/c", "C"),
	}})

	if _, err := f.ctrl.Clear(Primary); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Clear() from landing error = %v, want ErrInvalidTransition", err)
	}

	mustSelect(t, f.ctrl, Primary, "/p")
	if _, err := f.ctrl.Clear(Comparison); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Clear(comparison) from primary-ready error = %v", err)
	}
	st, err := f.ctrl.Clear(Primary)
	if err != nil || st.Screen() != ScreenLanding {
		t.Fatalf("Clear(primary) = %v, %v, want landing", st, err)
	}

	mustSelect(t, f.ctrl, Primary, "/p")
	f.ctrl.Navigate(ScreenDualSelect)
	mustSelect(t, f.ctrl, Comparison, "/c")

	st, err = f.ctrl.Clear(Comparison)
	if err != nil {
		t.Fatal(err)
	}
	ds, ok := st.(DualSelect)
	if !ok || ds.Primary == nil || ds.Primary.Hash != "P" {
		t.Fatalf("Clear(comparison) = %#v, want DualSelect keeping primary", st)
	}

	mustSelect(t, f.ctrl, Comparison, "/c")
	st, err = f.ctrl.Clear(Primary)
	if err != nil || st.Screen() != ScreenLanding {
		t.Errorf("Clear(primary) from attached = %v, %v, want landing", st, err)
	}
	if PrimaryReport(st) != nil || ComparisonReport(st) != nil {
		t.Error("landing holds reports")
	}
}

func TestSelectGuards(t *testing.T) {
	f := newFixture(t, &mockEngine{reports: map[string]*types.HashReport{"/p": report("/p", "P")}})
	ctx := context.Background()

	if _, err := f.ctrl.Select(ctx, Comparison, "/c"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("comparison from landing error = %v", err)
	}
	if _, err := f.ctrl.Select(ctx, Primary, ""); !errors.Is(err, ErrEmptyPath) {
		t.Errorf("empty path error = %v", err)
	}

	mustSelect(t, f.ctrl, Primary, "/p")
	if _, err := f.ctrl.Select(ctx, Primary, "/p"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("select from primary-ready error = %v", err)
	}
	if f.engine.calls != 1 {
		t.Errorf("engine calls = %d, want 1", f.engine.calls)
	}
}

func TestBusyRejectsOverlap(t *testing.T) {
	eng := &mockEngine{
		reports: map[string]*types.HashReport{"/p": report("/p", "P")},
		block:   make(chan struct{}),
	}
	f := newFixture(t, eng)

	if err := f.ctrl.Submit(Primary, "/p"); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	st := f.ctrl.State()
	proc, ok := st.(Processing)
	if !ok || proc.Target != Primary || proc.Path != "/p" {
		t.Fatalf("state = %#v, want Processing", st)
	}
	if !f.ctrl.Busy() {
		t.Error("Busy() = false during run")
	}

	if err := f.ctrl.Submit(Primary, "/p"); !errors.Is(err, ErrBusy) {
		t.Errorf("second Submit() error = %v, want ErrBusy", err)
	}
	if _, err := f.ctrl.Navigate(ScreenAbout); !errors.Is(err, ErrBusy) {
		t.Errorf("Navigate() error = %v, want ErrBusy", err)
	}
	if _, err := f.ctrl.Clear(Primary); !errors.Is(err, ErrBusy) {
		t.Errorf("Clear() error = %v, want ErrBusy", err)
	}

	close(eng.block)
	f.ctrl.Wait()

	if _, ok := f.ctrl.State().(PrimaryReady); !ok {
		t.Errorf("state = %T, want PrimaryReady", f.ctrl.State())
	}
	if eng.calls != 1 {
		t.Errorf("engine calls = %d, want 1", eng.calls)
	}
}

func TestNavigate(t *testing.T) {
	f := newFixture(t, &mockEngine{})

	tests := []struct {
		to   Screen
		want Screen
		err  error
	}{
		{ScreenAbout, ScreenAbout, nil},
		{ScreenLanding, ScreenLanding, nil},
		{ScreenDualSelect, ScreenDualSelect, nil},
		{ScreenAbout, ScreenAbout, nil},
		{ScreenCompareResult, "", ErrInvalidTransition},
		{ScreenProcessing, "", ErrInvalidTransition},
	}

	for _, tt := range tests {
		st, err := f.ctrl.Navigate(tt.to)
		if tt.err != nil {
			if !errors.Is(err, tt.err) {
				t.Errorf("Navigate(%s) error = %v, want %v", tt.to, err, tt.err)
			}
			continue
		}
		if err != nil || st.Screen() != tt.want {
			t.Errorf("Navigate(%s) = %v, %v, want %s", tt.to, st, err, tt.want)
		}
	}
}

func TestSubscribeReceivesTransitions(t *testing.T) {
	f := newFixture(t, &mockEngine{reports: map[string]*types.HashReport{"/p": report("/p", "P")}})
	ch := f.ctrl.Subscribe()
	defer f.ctrl.Unsubscribe(ch)

	f.ctrl.Navigate(ScreenAbout)
	if got := receive(t, ch); got.Screen() != ScreenAbout {
		t.Errorf("received %s, want about", got.Screen())
	}

	f.ctrl.Navigate(ScreenLanding)
	if got := receive(t, ch); got.Screen() != ScreenLanding {
		t.Errorf("received %s, want landing", got.Screen())
	}

	mustSelect(t, f.ctrl, Primary, "/p")
	// Only the newest state is kept for a slow listener.
	if got := receive(t, ch); got.Screen() != ScreenPrimaryReady {
		t.Errorf("received %s, want primary-ready", got.Screen())
	}
}

func TestDescribe(t *testing.T) {
	p, c := report("/p", "P"), report("/c", "C")

	v := Describe(CompareResult{Primary: p, Comparison: c, Result: types.Mismatch})
	if v.Screen != ScreenCompareResult || v.Result != types.Mismatch {
		t.Errorf("Describe() = %+v", v)
	}
	if v.Primary == nil || v.Primary.Hash != "P" || v.Comparison == nil || v.Comparison.Hash != "C" {
		t.Errorf("Describe() reports = %+v / %+v", v.Primary, v.Comparison)
	}

	v = Describe(Processing{Target: Comparison, Path: "/c"})
	if v.Target != Comparison || v.Path != "/c" || v.Primary != nil {
		t.Errorf("Describe(processing) = %+v", v)
	}
}

func TestParseDestination(t *testing.T) {
	for in, want := range map[string]Screen{
		"landing":     ScreenLanding,
		"about":       ScreenAbout,
		"compare":     ScreenDualSelect,
		"dual-select": ScreenDualSelect,
	} {
		if got, err := ParseDestination(in); err != nil || got != want {
			t.Errorf("ParseDestination(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseDestination("error"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("ParseDestination(error) = %v", err)
	}
}

func mustSelect(t *testing.T, c *Controller, target Target, path string) {
	t.Helper()
	if _, err := c.Select(context.Background(), target, path); err != nil {
		t.Fatalf("Select(%s, %s) error = %v", target, path, err)
	}
}

func receive(t *testing.T, ch <-chan State) State {
	t.Helper()
	select {
	case s := <-ch:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("no state received")
		return nil
	}
}
