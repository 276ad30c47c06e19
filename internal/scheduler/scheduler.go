// Package scheduler is the scheduling engine. It owns the event store and
// its history, turns gestures and form edits into committed changes, and
// pushes those changes to the storage provider in the background.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/shiftcal/internal/cache"
	"github.com/julianstephens/shiftcal/internal/constants"
	"github.com/julianstephens/shiftcal/internal/eventstore"
	"github.com/julianstephens/shiftcal/internal/interaction"
	"github.com/julianstephens/shiftcal/internal/layout"
	"github.com/julianstephens/shiftcal/internal/logger"
	"github.com/julianstephens/shiftcal/internal/models"
	"github.com/julianstephens/shiftcal/internal/notifier"
	"github.com/julianstephens/shiftcal/internal/storage"
	"github.com/julianstephens/shiftcal/internal/utils"
	"github.com/julianstephens/shiftcal/internal/validation"
)

// Notifier receives user-facing notices about background failures.
type Notifier interface {
	Notify(ctx context.Context, level notifier.Level, text string) error
}

// Options configures a Scheduler.
type Options struct {
	UserID        string
	Account       constants.AccountType
	Location      *time.Location
	View          constants.ViewMode
	HistoryLimit  int
	MaxDailyHours float64
	Grid          layout.Config
	// ScrollInterval is the auto-scroll period during drags.
	ScrollInterval time.Duration

	Cache    *cache.Cache
	Notifier Notifier
	// OnError receives failures of background persistence, e.g. a create
	// the backend rejected.
	OnError func(error)
	Now     func() time.Time
}

// Scheduler is safe for concurrent use.
type Scheduler struct {
	mu       sync.Mutex
	provider storage.Provider
	opts     Options

	store     *eventstore.Store
	history   *eventstore.History
	validator *validation.Validator

	view     utils.ViewState
	machine  *interaction.Machine
	scroller *interaction.AutoScroller
	preview  *models.Event

	request *ModificationRequest

	// pending records ids whose latest local state is not yet stored.
	pending map[string]syncOp
	// saving holds local ids with a create in flight.
	saving map[string]bool
	// savingSeries holds local recurrence ids with a series create in flight.
	savingSeries map[string]bool

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	changes chan struct{}
}

// New creates a scheduler over provider. Call Load before use.
func New(provider storage.Provider, opts Options) *Scheduler {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.View == "" {
		opts.View = constants.ViewWeek
	}
	if opts.Grid.PixelsPerHour <= 0 {
		opts.Grid = layout.DefaultConfig()
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = constants.DefaultHistoryLimit
	}

	ctx, cancel := context.WithCancel(context.Background())
	view := utils.NewViewState(opts.Now().In(opts.Location), opts.View)
	s := &Scheduler{
		provider:     provider,
		opts:         opts,
		store:        eventstore.NewStore(nil),
		history:      eventstore.NewHistory(opts.HistoryLimit, nil),
		validator:    validation.New(opts.MaxDailyHours),
		view:         view,
		machine:      interaction.New(interaction.Surface{View: view, Grid: opts.Grid, Width: 700, Height: opts.Grid.DayHeight()}),
		pending:      make(map[string]syncOp),
		saving:       make(map[string]bool),
		savingSeries: make(map[string]bool),
		ctx:          ctx,
		cancel:       cancel,
		changes:      make(chan struct{}, 1),
	}
	s.scroller = interaction.NewAutoScroller(opts.ScrollInterval, s.nudge)
	return s
}

// Load primes the store from the snapshot cache, then replaces it with the
// provider's events merged with any unsynced local edits.
func (s *Scheduler) Load(ctx context.Context) error {
	if s.opts.Cache != nil {
		snap, ok, err := s.opts.Cache.Load(s.opts.UserID)
		if err != nil {
			logger.Warn("Failed to read snapshot cache", "error", err)
		}
		if ok {
			s.mu.Lock()
			s.store.Set(snap.Events)
			s.history.Reset(snap.Events)
			s.restorePending(snap.Pending)
			s.mu.Unlock()
			logger.Debug("Primed calendar from snapshot", "events", len(snap.Events), "saved_at", snap.SavedAt)
			s.notifyChange()
		}
	}

	remote, err := s.provider.FetchEvents(ctx, s.opts.UserID, s.opts.Account)
	if err != nil {
		return err
	}

	s.mu.Lock()
	merged := s.merge(remote)
	s.store.Set(merged)
	s.history.Reset(merged)
	s.mu.Unlock()

	s.notifyChange()
	return s.SaveSnapshot()
}

// Refresh fetches the provider's events and merges them without creating
// an undo entry.
func (s *Scheduler) Refresh(ctx context.Context) error {
	remote, err := s.provider.FetchEvents(ctx, s.opts.UserID, s.opts.Account)
	if err != nil {
		return err
	}

	s.mu.Lock()
	merged := s.merge(remote)
	s.store.Set(merged)
	s.history.ReplaceCurrent(merged)
	s.mu.Unlock()

	s.notifyChange()
	return nil
}

// merge combines remote with local state: unsaved local events are kept,
// events with unsynced local edits keep the local copy, and local deletions
// not yet stored stay deleted. Caller must hold s.mu.
func (s *Scheduler) merge(remote []models.Event) []models.Event {
	out := make([]models.Event, 0, len(remote))
	for _, r := range remote {
		if op, ok := s.pending[r.ID]; ok && op == opDelete {
			continue
		}
		if op, ok := s.pending[r.ID]; ok && op == opUpdate {
			if local, found := s.store.Get(r.ID); found {
				out = append(out, local)
				continue
			}
		}
		r.ClearTransient()
		out = append(out, r)
	}

	for _, local := range s.store.Events() {
		if local.FromDatabase {
			if _, ok := eventstore.Find(remote, local.ID); !ok {
				if _, dirty := s.pending[local.ID]; dirty {
					logger.Warn("Event with unsynced edits was removed remotely", "event", local.ID)
					delete(s.pending, local.ID)
				}
			}
			continue
		}
		out = append(out, local)
	}
	return out
}

// Close stops background work and waits for in-flight persistence.
func (s *Scheduler) Close() {
	s.scroller.Stop()
	s.wg.Wait()
	s.cancel()
}

// Wait blocks until every in-flight persistence call has been applied.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// Changes delivers a signal whenever the read model changed. Signals are
// coalesced.
func (s *Scheduler) Changes() <-chan struct{} {
	return s.changes
}

func (s *Scheduler) notifyChange() {
	select {
	case s.changes <- struct{}{}:
	default:
	}
}

// UserID returns the account the scheduler acts for.
func (s *Scheduler) UserID() string {
	return s.opts.UserID
}

// Events returns a copy of the committed events.
func (s *Scheduler) Events() []models.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Events()
}

// Event looks up one committed event.
func (s *Scheduler) Event(id string) (models.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Get(id)
}

// View returns the current window.
func (s *Scheduler) View() utils.ViewState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// Layout positions the visible events, with the in-progress gesture's
// preview standing in for its committed event.
func (s *Scheduler) Layout() []layout.PositionedEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.layoutLocked()
}

func (s *Scheduler) layoutLocked() []layout.PositionedEvent {
	events := s.store.Events()
	if s.preview != nil {
		p := s.preview.Clone()
		if p.ID == "" {
			p.ID = previewID
			p.ApplyPalette()
			events = append(events, p)
		} else {
			events = eventstore.Replace(events, p)
		}
	}
	return layout.Layout(events, s.view, s.opts.Grid)
}

// previewID marks the not yet created event of a create gesture.
const previewID = "preview"

// ReadModel is what renderers need for one frame.
type ReadModel struct {
	View       utils.ViewState
	Positioned []layout.PositionedEvent
	Request    *ModificationRequest
	CanUndo    bool
	CanRedo    bool
	Gesture    interaction.State
	Unsynced   int
	// ScrollTop follows auto-scroll during a drag.
	ScrollTop float64
}

// Snapshot returns the current read model.
func (s *Scheduler) Snapshot() ReadModel {
	s.mu.Lock()
	defer s.mu.Unlock()
	rm := ReadModel{
		View:       s.view,
		Positioned: s.layoutLocked(),
		CanUndo:    s.history.CanUndo(),
		CanRedo:    s.history.CanRedo(),
		Gesture:    s.machine.State(),
		Unsynced:   len(s.pending),
		ScrollTop:  s.machine.Surface().ScrollTop,
	}
	if s.request != nil {
		r := *s.request
		rm.Request = &r
	}
	return rm
}

// SetViewMode switches between day and week view.
func (s *Scheduler) SetViewMode(mode constants.ViewMode) {
	s.setView(func(v utils.ViewState) utils.ViewState { return v.WithMode(mode) })
}

// Scroll shifts the visible window by delta days.
func (s *Scheduler) Scroll(delta int) {
	s.setView(func(v utils.ViewState) utils.ViewState { return v.Scroll(delta) })
}

// Navigate moves the anchor one week or day forward (1) or back (-1).
func (s *Scheduler) Navigate(dir int) {
	s.setView(func(v utils.ViewState) utils.ViewState { return v.Navigate(dir) })
}

// GoTo anchors the view on date.
func (s *Scheduler) GoTo(date time.Time) {
	s.setView(func(v utils.ViewState) utils.ViewState { return v.GoTo(date.In(s.opts.Location)) })
}

// Today anchors the view on the current date.
func (s *Scheduler) Today() {
	s.GoTo(s.opts.Now())
}

func (s *Scheduler) setView(fn func(utils.ViewState) utils.ViewState) {
	s.mu.Lock()
	s.view = fn(s.view)
	surface := s.machine.Surface()
	surface.View = s.view
	s.machine.SetSurface(surface)
	s.mu.Unlock()
	s.notifyChange()
}

// SetSurface describes the rendered grid: track width, viewport height and
// vertical scroll, all in pixels.
func (s *Scheduler) SetSurface(width, height, scrollTop float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.machine.SetSurface(interaction.Surface{
		View:      s.view,
		Grid:      s.opts.Grid,
		Width:     width,
		Height:    height,
		ScrollTop: scrollTop,
	})
}

// Validate checks the whole loaded calendar for conflicts.
func (s *Scheduler) Validate() validation.ValidationResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.validator.ValidateEvents(s.store.Events())
}

func newLocalID() string {
	return "local-" + uuid.NewString()
}
