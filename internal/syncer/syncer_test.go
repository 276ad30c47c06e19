package syncer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	ps "github.com/mitchellh/go-ps"
)

type mockProcess struct {
	pid        int
	executable string
}

func (m *mockProcess) Pid() int           { return m.pid }
func (m *mockProcess) PPid() int          { return 0 }
func (m *mockProcess) Executable() string { return m.executable }

type fakeTarget struct {
	pushed     int
	pushErr    error
	refreshErr error
	refreshes  atomic.Int32
	snapshots  atomic.Int32
	block      chan struct{}
}

func (f *fakeTarget) SyncPending(ctx context.Context) (int, error) {
	if f.block != nil {
		<-f.block
	}
	return f.pushed, f.pushErr
}

func (f *fakeTarget) Refresh(ctx context.Context) error {
	f.refreshes.Add(1)
	return f.refreshErr
}

func (f *fakeTarget) SaveSnapshot() error {
	f.snapshots.Add(1)
	return nil
}

func TestRun(t *testing.T) {
	tests := []struct {
		name          string
		target        *fakeTarget
		wantErr       bool
		wantSnapshots int32
	}{
		{"clean pass", &fakeTarget{pushed: 2}, false, 1},
		{"push failure still refreshes", &fakeTarget{pushErr: errors.New("down")}, true, 1},
		{"refresh failure skips snapshot", &fakeTarget{refreshErr: errors.New("down")}, true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var called Result
			s := New(tt.target, "", time.UTC, OnRun(func(r Result) { called = r }))
			res := s.Run(context.Background())
			if (res.Err != nil) != tt.wantErr {
				t.Errorf("Run() error = %v, wantErr %v", res.Err, tt.wantErr)
			}
			if res.Pushed != tt.target.pushed {
				t.Errorf("Pushed = %d, want %d", res.Pushed, tt.target.pushed)
			}
			if tt.target.refreshes.Load() != 1 {
				t.Errorf("refreshes = %d, want 1", tt.target.refreshes.Load())
			}
			if got := tt.target.snapshots.Load(); got != tt.wantSnapshots {
				t.Errorf("snapshots = %d, want %d", got, tt.wantSnapshots)
			}
			if called.Pushed != res.Pushed || s.Last().Pushed != res.Pushed {
				t.Error("callback and Last should see the run result")
			}
		})
	}
}

func TestRunDoesNotOverlap(t *testing.T) {
	target := &fakeTarget{block: make(chan struct{})}
	s := New(target, "@every 1h", time.UTC)

	done := make(chan struct{})
	go func() {
		s.Run(context.Background())
		close(done)
	}()
	for {
		s.mu.Lock()
		running := s.running
		s.mu.Unlock()
		if running {
			break
		}
		time.Sleep(time.Millisecond)
	}

	s.Run(context.Background())
	if target.refreshes.Load() != 0 {
		t.Error("overlapping run should be skipped")
	}
	close(target.block)
	<-done
	if target.refreshes.Load() != 1 {
		t.Errorf("refreshes = %d, want 1", target.refreshes.Load())
	}
}

func TestStartRejectsBadSpec(t *testing.T) {
	s := New(&fakeTarget{}, "not a schedule", time.UTC)
	if err := s.Start(); err == nil {
		s.Stop()
		t.Fatal("expected error for invalid schedule")
	}
	if err := ValidateSpec("*/5 * * * *"); err != nil {
		t.Errorf("ValidateSpec() error = %v", err)
	}
	if err := ValidateSpec("@every 5m"); err != nil {
		t.Errorf("ValidateSpec() error = %v", err)
	}
	if err := ValidateSpec("61 * * * *"); err == nil {
		t.Error("ValidateSpec() should reject minute 61")
	}
}

func TestAcquireLock(t *testing.T) {
	oldFind, oldPid := findProcessFunc, getpidFunc
	defer func() { findProcessFunc, getpidFunc = oldFind, oldPid }()
	getpidFunc = func() int { return 100 }

	path := filepath.Join(t.TempDir(), "sync.lock")

	lock, err := AcquireLock(path)
	if err != nil {
		t.Fatalf("AcquireLock() on free lock error = %v", err)
	}
	content, _ := os.ReadFile(path)
	if string(content) != "100\n" {
		t.Errorf("lockfile content = %q", content)
	}

	// Another live shiftcal process holds it.
	getpidFunc = func() int { return 200 }
	findProcessFunc = func(pid int) (ps.Process, error) {
		return &mockProcess{pid: pid, executable: "shiftcal"}, nil
	}
	if _, err := AcquireLock(path); !errors.Is(err, ErrLocked) {
		t.Errorf("AcquireLock() error = %v, want ErrLocked", err)
	}

	// Not ours to release.
	if err := lock.Release(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Error("Release() removed a lock owned by another pid")
	}

	// Holder exited.
	findProcessFunc = func(pid int) (ps.Process, error) { return nil, nil }
	lock2, err := AcquireLock(path)
	if err != nil {
		t.Fatalf("AcquireLock() over stale lock error = %v", err)
	}

	// Pid reused by another program.
	getpidFunc = func() int { return 300 }
	findProcessFunc = func(pid int) (ps.Process, error) {
		return &mockProcess{pid: pid, executable: "bash"}, nil
	}
	if _, err := AcquireLock(path); err != nil {
		t.Errorf("AcquireLock() over foreign pid error = %v", err)
	}

	getpidFunc = func() int { return 300 }
	if err := lock2.Release(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Release() should remove the caller's own lock")
	}
}

func TestAcquireLockMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sync.lock")
	if err := os.WriteFile(path, []byte("garbage"), 0o600); err != nil {
		t.Fatal(err)
	}
	lock, err := AcquireLock(path)
	if err != nil {
		t.Fatalf("AcquireLock() over malformed lock error = %v", err)
	}
	content, _ := os.ReadFile(path)
	if string(content) != strconv.Itoa(os.Getpid())+"\n" {
		t.Errorf("lockfile content = %q", content)
	}
	if err := lock.Release(); err != nil {
		t.Fatal(err)
	}
}
