package scheduler

import (
	"fmt"
	"time"

	"github.com/julianstephens/shiftcal/internal/errors"
	"github.com/julianstephens/shiftcal/internal/eventstore"
	"github.com/julianstephens/shiftcal/internal/interaction"
	"github.com/julianstephens/shiftcal/internal/logger"
	"github.com/julianstephens/shiftcal/internal/models"
	"github.com/julianstephens/shiftcal/internal/recurrence"
	"github.com/julianstephens/shiftcal/internal/validation"
)

// handleSlopPx is how close to a fragment edge a press grabs the resize handle.
const handleSlopPx = 6.0

// Outcome reports what a commit did.
type Outcome struct {
	EventID string
	// Committed is set when the store changed.
	Committed bool
	// Clicked is set for a press without drag.
	Clicked bool
	// Request is set when the change touches a series and waits for a scope.
	Request   *ModificationRequest
	Conflicts validation.ValidationResult
}

// HitTest returns the event fragment under p, or nil over empty grid.
func (s *Scheduler) HitTest(p interaction.Point) *interaction.Target {
	s.mu.Lock()
	defer s.mu.Unlock()

	width := s.machine.Surface().Width
	frags := s.layoutLocked()
	for i := len(frags) - 1; i >= 0; i-- {
		f := frags[i]
		x0 := f.Left / 100 * width
		x1 := x0 + f.Width/100*width
		if p.X < x0 || p.X >= x1 || p.Y < f.Top || p.Y > f.Top+f.Height {
			continue
		}
		ev, ok := s.store.Get(f.EventID)
		if !ok {
			return nil
		}
		handle := interaction.HandleBody
		switch {
		case f.ResizableTop && p.Y-f.Top <= handleSlopPx:
			handle = interaction.HandleTop
		case f.ResizableBottom && f.Top+f.Height-p.Y <= handleSlopPx:
			handle = interaction.HandleBottom
		}
		return &interaction.Target{Event: ev, Fragment: f, Handle: handle}
	}
	return nil
}

// PointerDown starts a gesture on target, or a create gesture when target
// is nil. Gestures on an event awaiting a scope decision are rejected.
func (s *Scheduler) PointerDown(p interaction.Point, target *interaction.Target) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if target != nil {
		if err := s.checkEditable(target.Event.ID); err != nil {
			return err
		}
		committed, _ := s.store.Get(target.Event.ID)
		t := *target
		t.Event = committed
		target = &t
	}
	return s.machine.PointerDown(p, target, s.opts.Now())
}

// checkEditable rejects edits to events that cannot take another change
// yet. Caller must hold s.mu.
func (s *Scheduler) checkEditable(id string) error {
	if s.request != nil && s.request.EventID == id {
		return fmt.Errorf("event %s: %w", id, errors.ErrPendingModification)
	}
	e, ok := s.store.Get(id)
	if !ok {
		return fmt.Errorf("event with id %s: %w", id, errors.ErrNotFound)
	}
	if e.RecurrenceID != "" && s.savingSeries[e.RecurrenceID] {
		return fmt.Errorf("event %s: series is still being saved: %w", id, errors.ErrPendingModification)
	}
	return nil
}

// PointerMove feeds the pointer position of an active gesture.
func (s *Scheduler) PointerMove(p interaction.Point) {
	s.mu.Lock()
	eff := s.machine.PointerMove(p)
	s.applyPreview(eff)
	s.mu.Unlock()

	if eff.Kind != interaction.EffectNone {
		s.scroller.Set(s.ctx, eff.Scroll)
		s.notifyChange()
	}
}

// PointerUp ends the active gesture and commits its result.
func (s *Scheduler) PointerUp(p interaction.Point) (Outcome, error) {
	s.scroller.Stop()

	s.mu.Lock()
	eff := s.machine.PointerUp(p)
	s.preview = nil

	var out Outcome
	var err error
	switch eff.Kind {
	case interaction.EffectClick:
		out = Outcome{EventID: eff.EventID, Clicked: true}
	case interaction.EffectCommit:
		out, err = s.commitLocked(eff.Original, eff.Event)
		s.machine.Done()
	case interaction.EffectCreate:
		out, err = s.createLocked(eff.Event)
		s.machine.Done()
	}
	s.mu.Unlock()

	s.notifyChange()
	return out, err
}

// PointerLeave cancels the active gesture; nothing reaches the store.
func (s *Scheduler) PointerLeave() {
	s.scroller.Stop()
	s.mu.Lock()
	s.machine.PointerLeave()
	s.preview = nil
	s.mu.Unlock()
	s.notifyChange()
}

// DoubleClick creates a one hour event at the slot under p.
func (s *Scheduler) DoubleClick(p interaction.Point) (Outcome, error) {
	s.mu.Lock()
	eff := s.machine.DoubleClick(p)
	out, err := s.createLocked(eff.Event)
	s.mu.Unlock()
	s.notifyChange()
	return out, err
}

// nudge runs on the auto-scroll goroutine.
func (s *Scheduler) nudge(dir interaction.Direction) {
	s.mu.Lock()
	eff := s.machine.Tick(dir)
	if eff.Kind == interaction.EffectNone {
		s.mu.Unlock()
		return
	}
	if dir == interaction.ScrollLeft || dir == interaction.ScrollRight {
		s.view = s.machine.Surface().View
	}
	s.applyPreview(eff)
	s.mu.Unlock()
	s.notifyChange()
}

// applyPreview records a temporary update. Caller must hold s.mu.
func (s *Scheduler) applyPreview(eff interaction.Effect) {
	if eff.Kind != interaction.EffectPreview {
		return
	}
	e := eff.Event.Clone()
	s.preview = &e
}

// MoveEvent moves id to start keeping its duration.
func (s *Scheduler) MoveEvent(id string, start time.Time) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.store.Get(id)
	if !ok {
		return Outcome{}, fmt.Errorf("event with id %s: %w", id, errors.ErrNotFound)
	}
	proposed := current.Clone()
	proposed.Start = start
	proposed.End = start.Add(current.Duration())
	return s.commitChecked(current, proposed)
}

// ResizeEvent sets new endpoints for id.
func (s *Scheduler) ResizeEvent(id string, start, end time.Time) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.store.Get(id)
	if !ok {
		return Outcome{}, fmt.Errorf("event with id %s: %w", id, errors.ErrNotFound)
	}
	proposed := current.Clone()
	proposed.Start, proposed.End = start, end
	return s.commitChecked(current, proposed)
}

// UpdateEvent applies a form edit of descriptive fields or times.
func (s *Scheduler) UpdateEvent(id string, edit func(*models.Event)) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.store.Get(id)
	if !ok {
		return Outcome{}, fmt.Errorf("event with id %s: %w", id, errors.ErrNotFound)
	}
	proposed := current.Clone()
	edit(&proposed)
	proposed.ID = current.ID
	return s.commitChecked(current, proposed)
}

func (s *Scheduler) commitChecked(current, proposed models.Event) (Outcome, error) {
	if s.machine.Active() && s.machine.EventID() == current.ID {
		return Outcome{}, fmt.Errorf("event %s is being dragged", current.ID)
	}
	if err := s.checkEditable(current.ID); err != nil {
		return Outcome{}, err
	}
	out, err := s.commitLocked(current, proposed)
	if err == nil {
		defer s.notifyChange()
	}
	return out, err
}

// commitLocked finalizes a change to one event. Series members raise a
// modification request instead. Caller must hold s.mu.
func (s *Scheduler) commitLocked(original, proposed models.Event) (Outcome, error) {
	out := Outcome{EventID: original.ID}

	current, ok := s.store.Get(original.ID)
	if !ok {
		logger.Warn("Commit target no longer loaded", "event", original.ID)
		return out, nil
	}
	proposed.ClearTransient()
	if err := validation.ValidateEvent(proposed); err != nil {
		return out, err
	}
	if sameContent(current, proposed) {
		return out, nil
	}

	events := s.store.Events()
	if recurrence.InSeries(events, current) {
		r, err := s.raiseRequest(ModificationRequest{
			Kind:         ModificationEdit,
			EventID:      current.ID,
			RecurrenceID: current.RecurrenceID,
			Change:       recurrence.Change{Before: current, After: proposed},
			IsLast:       recurrence.IsLastOccurrence(events, current),
			Members:      len(recurrence.Members(events, current)),
		})
		if err != nil {
			return out, err
		}
		out.Request = r
		return out, nil
	}

	proposed.IsValidated = false
	proposed.ApplyPalette()
	after := eventstore.Replace(events, proposed)
	s.commitEvents(events, after)

	out.Committed = true
	out.Conflicts = s.validator.ValidateChange(after, proposed)
	return out, nil
}

// commitEvents makes after the live state, records it in history and
// persists the difference. Caller must hold s.mu.
func (s *Scheduler) commitEvents(before, after []models.Event) {
	s.store.Set(after)
	if !s.history.Push(after) {
		return
	}
	s.persistDiff(before, after)
}

// createLocked adds a new local event. Caller must hold s.mu.
func (s *Scheduler) createLocked(e models.Event) (Outcome, error) {
	e.ID = newLocalID()
	e.ClearTransient()
	e.FromDatabase = false
	e.IsValidated = false
	if e.Title == "" {
		e.Title = "New shift"
	}
	if err := validation.ValidateEvent(e); err != nil {
		return Outcome{}, err
	}

	if e.Recurrence != nil {
		return s.createSeriesLocked(e)
	}

	e.ApplyPalette()
	before := s.store.Events()
	after := append(models.CloneEvents(before), e)
	s.store.Set(after)
	s.history.Push(after)
	s.markPending(e.ID, opUpdate)
	s.saveAsync(e)

	return Outcome{
		EventID:   e.ID,
		Committed: true,
		Conflicts: s.validator.ValidateChange(after, e),
	}, nil
}

// CreateEvent adds e as a new event and returns its local id. An event
// with a recurrence config creates a whole series.
func (s *Scheduler) CreateEvent(e models.Event) (Outcome, error) {
	s.mu.Lock()
	out, err := s.createLocked(e)
	s.mu.Unlock()
	s.notifyChange()
	return out, err
}

// sameContent compares what a user can change, ignoring sync flags.
func sameContent(a, b models.Event) bool {
	if !a.SameGeometry(b) || a.Title != b.Title || a.Location != b.Location || a.Notes != b.Notes {
		return false
	}
	if len(a.Employees) != len(b.Employees) {
		return false
	}
	for i := range a.Employees {
		if a.Employees[i] != b.Employees[i] {
			return false
		}
	}
	if a.RecurrenceID != b.RecurrenceID || a.IsRecurring != b.IsRecurring || a.Detached != b.Detached {
		return false
	}
	if (a.Recurrence == nil) != (b.Recurrence == nil) {
		return false
	}
	return a.Recurrence == nil || *a.Recurrence == *b.Recurrence
}
