package scheduler

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/lyallcooper/hashmaker/internal/db"
	"github.com/lyallcooper/hashmaker/internal/types"
)

// mockCleaner implements Cleaner for testing
type mockCleaner struct {
	mu    sync.Mutex
	calls []int
	n     int64
	err   error
}

func (m *mockCleaner) CleanupOldData(retentionDays int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, retentionDays)
	return m.n, m.err
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		spec    string
		days    int
		wantErr bool
	}{
		{"descriptor", "@daily", 30, false},
		{"five fields", "0 3 * * *", 7, false},
		{"every", "@every 1h", 1, false},
		{"garbage spec", "whenever", 30, true},
		{"six fields", "0 0 3 * * *", 30, true},
		{"zero retention", "@daily", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(&mockCleaner{}, tt.spec, tt.days, nil)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && s == nil {
				t.Fatal("New returned nil")
			}
		})
	}
}

func TestRunNow(t *testing.T) {
	cleaner := &mockCleaner{n: 4}
	s, err := New(cleaner, "@daily", 14, nil)
	if err != nil {
		t.Fatal(err)
	}

	n, err := s.RunNow()
	if err != nil || n != 4 {
		t.Errorf("RunNow() = %d, %v, want 4", n, err)
	}
	if len(cleaner.calls) != 1 || cleaner.calls[0] != 14 {
		t.Errorf("cleaner calls = %v, want [14]", cleaner.calls)
	}

	cleaner.err = errors.New("disk full")
	if _, err := s.RunNow(); err == nil {
		t.Error("RunNow() should surface cleaner errors")
	}
}

func TestStartStop(t *testing.T) {
	s, err := New(&mockCleaner{}, "@daily", 30, nil)
	if err != nil {
		t.Fatal(err)
	}

	if _, ok := s.NextRun(); ok {
		t.Error("NextRun() before Start should report not running")
	}

	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	// Second start is a no-op
	if err := s.Start(); err != nil {
		t.Fatalf("second Start() error = %v", err)
	}

	next, ok := s.NextRun()
	if !ok {
		t.Fatal("NextRun() should report running")
	}
	if !next.After(time.Now()) || next.After(time.Now().Add(25*time.Hour)) {
		t.Errorf("NextRun() = %v, want within a day", next)
	}

	s.Stop()
	s.Stop()
	if _, ok := s.NextRun(); ok {
		t.Error("NextRun() after Stop should report not running")
	}
}

func TestScheduledRunFires(t *testing.T) {
	cleaner := &mockCleaner{}
	s, err := New(cleaner, "@every 1s", 30, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	defer s.Stop()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		cleaner.mu.Lock()
		n := len(cleaner.calls)
		cleaner.mu.Unlock()
		if n > 0 {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Error("scheduled cleanup never ran")
}

func TestRunNowWithDatabase(t *testing.T) {
	database, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	id, err := database.BeginRun("primary", "/old", types.SHA256)
	if err != nil {
		t.Fatal(err)
	}
	if err := database.FailRun(id, "boom"); err != nil {
		t.Fatal(err)
	}
	old := time.Now().AddDate(0, 0, -90).UnixMilli()
	if _, err := database.Exec("UPDATE hash_runs SET completed_at = ? WHERE id = ?", old, id); err != nil {
		t.Fatal(err)
	}

	s, err := New(database, "@daily", 30, nil)
	if err != nil {
		t.Fatal(err)
	}
	n, err := s.RunNow()
	if err != nil || n != 1 {
		t.Errorf("RunNow() = %d, %v, want 1", n, err)
	}
}
