// Package syncer keeps a loaded calendar in step with its storage provider
// on a cron schedule.
package syncer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/robfig/cron/v3"

	"github.com/julianstephens/shiftcal/internal/constants"
	"github.com/julianstephens/shiftcal/internal/logger"
)

// Target is the part of the scheduling engine a sync run drives.
type Target interface {
	SyncPending(ctx context.Context) (int, error)
	Refresh(ctx context.Context) error
	SaveSnapshot() error
}

// Result summarizes one sync run.
type Result struct {
	Pushed int
	Err    error
}

// Syncer runs periodic sync passes. Runs never overlap.
type Syncer struct {
	cron    *cron.Cron
	target  Target
	spec    string
	timeout time.Duration

	mu      sync.Mutex
	running bool
	last    Result
	onRun   func(Result)
	log     *log.Logger
}

// Option configures a Syncer.
type Option func(*Syncer)

// WithTimeout bounds each run.
func WithTimeout(d time.Duration) Option {
	return func(s *Syncer) { s.timeout = d }
}

// OnRun registers a callback invoked after each run.
func OnRun(fn func(Result)) Option {
	return func(s *Syncer) { s.onRun = fn }
}

// New builds a syncer for target firing on spec, a cron expression or a
// descriptor such as "@every 5m", evaluated in loc.
func New(target Target, spec string, loc *time.Location, opts ...Option) *Syncer {
	if spec == "" {
		spec = constants.DefaultSyncSpec
	}
	if loc == nil {
		loc = time.Local
	}
	s := &Syncer{
		cron:    cron.New(cron.WithLocation(loc)),
		target:  target,
		spec:    spec,
		timeout: time.Minute,
		log:     logger.For("sync"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ValidateSpec reports whether spec is a usable schedule.
func ValidateSpec(spec string) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid sync schedule %q: %w", spec, err)
	}
	return nil
}

// Start schedules the runs and returns immediately.
func (s *Syncer) Start() error {
	if _, err := s.cron.AddFunc(s.spec, func() { s.Run(context.Background()) }); err != nil {
		return fmt.Errorf("add sync job: %w", err)
	}
	s.cron.Start()
	s.log.Info("Sync scheduler started", "schedule", s.spec)
	return nil
}

// Stop halts the schedule and waits for a running pass.
func (s *Syncer) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Debug("Sync scheduler stopped")
}

// Run performs one pass: push unsynced changes, pull the provider's state,
// and write the snapshot cache. A pass already in progress makes it a no-op.
func (s *Syncer) Run(ctx context.Context) Result {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return Result{}
	}
	s.running = true
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var res Result
	res.Pushed, res.Err = s.target.SyncPending(ctx)
	if res.Err != nil {
		s.log.Warn("Some changes could not be synced", "error", res.Err)
	}
	if err := s.target.Refresh(ctx); err != nil {
		s.log.Error("Failed to refresh calendar", "error", err)
		if res.Err == nil {
			res.Err = err
		}
	} else if err := s.target.SaveSnapshot(); err != nil {
		s.log.Warn("Failed to write snapshot cache", "error", err)
	}

	s.mu.Lock()
	s.running = false
	s.last = res
	onRun := s.onRun
	s.mu.Unlock()

	if onRun != nil {
		onRun(res)
	}
	return res
}

// Last returns the result of the most recent run.
func (s *Syncer) Last() Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}
