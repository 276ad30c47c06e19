package scheduler

import (
	"fmt"

	"github.com/julianstephens/shiftcal/internal/constants"
	"github.com/julianstephens/shiftcal/internal/errors"
	"github.com/julianstephens/shiftcal/internal/eventstore"
	"github.com/julianstephens/shiftcal/internal/logger"
	"github.com/julianstephens/shiftcal/internal/models"
	"github.com/julianstephens/shiftcal/internal/recurrence"
	"github.com/julianstephens/shiftcal/internal/validation"
)

// ModificationKind says what a pending request will do to its series.
type ModificationKind string

const (
	ModificationEdit   ModificationKind = "edit"
	ModificationDelete ModificationKind = "delete"
)

// ModificationRequest is a change to a series member waiting for the user
// to pick a scope. The store keeps the committed state until it resolves.
type ModificationRequest struct {
	Kind         ModificationKind
	EventID      string
	RecurrenceID string
	Change       recurrence.Change
	// IsLast is set when the target is the final occurrence, where "future"
	// and "single" mean the same thing.
	IsLast bool
	// Members is the size of the series when the request was raised.
	Members int
}

// Scopes lists the choices a renderer should offer for r.
func (r ModificationRequest) Scopes() []constants.Scope {
	if r.IsLast {
		return []constants.Scope{constants.ScopeSingle, constants.ScopeAll, constants.ScopeCancel}
	}
	return []constants.Scope{constants.ScopeSingle, constants.ScopeFuture, constants.ScopeAll, constants.ScopeCancel}
}

// PendingRequest returns the unresolved modification request, if any.
func (s *Scheduler) PendingRequest() (ModificationRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.request == nil {
		return ModificationRequest{}, false
	}
	return *s.request, true
}

// ResolveModification applies the pending request with scope. Cancel
// drops the request and leaves the store as it was.
func (s *Scheduler) ResolveModification(scope constants.Scope) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req := s.request
	if req == nil {
		return Outcome{}, fmt.Errorf("no modification is pending")
	}
	switch scope {
	case constants.ScopeSingle, constants.ScopeFuture, constants.ScopeAll, constants.ScopeCancel:
	default:
		return Outcome{}, errors.Validationf("unknown scope %q", scope)
	}

	s.request = nil
	defer s.notifyChange()
	out := Outcome{EventID: req.EventID}
	if scope == constants.ScopeCancel {
		return out, nil
	}

	before := s.store.Events()
	switch req.Kind {
	case ModificationDelete:
		target, ok := eventstore.Find(before, req.EventID)
		if !ok {
			logger.Warn("Delete target no longer loaded", "event", req.EventID)
			return out, nil
		}
		s.deleteLocked(before, target, scope)
		out.Committed = true
		return out, nil

	default:
		res := recurrence.Apply(before, req.Change, scope)
		for _, e := range res.Updated {
			if err := validation.ValidateEvent(e); err != nil {
				return out, err
			}
		}
		s.commitEvents(before, res.Events)
		out.Committed = true
		if updated, ok := eventstore.Find(res.Events, req.EventID); ok {
			out.Conflicts = s.validator.ValidateChange(res.Events, updated)
		}
		return out, nil
	}
}

// raiseRequest opens req for a scope decision and returns a copy for the
// caller. Only one request may be open at a time. Caller must hold s.mu.
func (s *Scheduler) raiseRequest(req ModificationRequest) (*ModificationRequest, error) {
	if s.request != nil {
		logger.Warn("Modification request already open", "open", s.request.EventID, "rejected", req.EventID)
		return nil, fmt.Errorf("event %s: awaiting a decision on %s: %w", req.EventID, s.request.EventID, errors.ErrPendingModification)
	}
	s.request = &req
	r := req
	return &r, nil
}

// DeleteEvent removes id. An empty scope on a series member raises a
// delete request instead of deleting.
func (s *Scheduler) DeleteEvent(id string, scope constants.Scope) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkEditable(id); err != nil {
		return Outcome{}, err
	}
	if s.machine.Active() && s.machine.EventID() == id {
		return Outcome{}, fmt.Errorf("event %s is being dragged", id)
	}
	events := s.store.Events()
	target, _ := eventstore.Find(events, id)
	defer s.notifyChange()

	series := recurrence.InSeries(events, target)
	if scope == "" && series {
		r, err := s.raiseRequest(ModificationRequest{
			Kind:         ModificationDelete,
			EventID:      id,
			RecurrenceID: target.RecurrenceID,
			Change:       recurrence.Change{Before: target, After: target},
			IsLast:       recurrence.IsLastOccurrence(events, target),
			Members:      len(recurrence.Members(events, target)),
		})
		if err != nil {
			return Outcome{EventID: id}, err
		}
		return Outcome{EventID: id, Request: r}, nil
	}
	if scope == "" || !series {
		scope = constants.ScopeSingle
	}
	if scope == constants.ScopeCancel {
		return Outcome{EventID: id}, nil
	}
	s.deleteLocked(events, target, scope)
	return Outcome{EventID: id, Committed: true}, nil
}

// deleteLocked removes target per scope and issues one scoped delete to
// the provider. Caller must hold s.mu.
func (s *Scheduler) deleteLocked(before []models.Event, target models.Event, scope constants.Scope) {
	res := recurrence.ApplyDelete(before, target, scope)
	s.store.Set(res.Events)
	s.history.Push(res.Events)

	var stored []string
	for _, id := range res.Removed {
		if e, ok := eventstore.Find(before, id); ok && e.FromDatabase {
			stored = append(stored, id)
		} else {
			delete(s.pending, id)
		}
	}
	if len(stored) == 0 {
		return
	}
	if !target.FromDatabase {
		// The target itself was never stored, so a scoped call has no anchor.
		for _, id := range stored {
			s.deleteAsync(id, constants.ScopeSingle, "", []string{id})
		}
		return
	}
	s.deleteAsync(target.ID, scope, res.RecurrenceID, stored)
}

// createSeriesLocked expands e locally under a temporary recurrence id,
// then stores the series in the background and swaps in the stored rows.
// Caller must hold s.mu.
func (s *Scheduler) createSeriesLocked(e models.Event) (Outcome, error) {
	res := recurrence.Expand(e, e.Recurrence)
	if res.Fallback != nil {
		return Outcome{}, errors.Validationf("invalid recurrence: %v", res.Fallback)
	}
	localRID := "local-" + recurrence.NewSeriesID()
	instances := recurrence.Materialize(e, localRID, res)
	for i := range instances {
		if i > 0 {
			instances[i].ID = newLocalID()
		}
		instances[i].FromDatabase = false
		instances[i].IsValidated = false
		instances[i].ApplyPalette()
	}

	after := eventstore.Append(s.store.Events(), instances...)
	s.store.Set(after)
	s.history.Push(after)
	s.savingSeries[localRID] = true

	defining := instances[0]
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		rid, n, err := s.provider.SaveRecurringEvents(s.ctx, defining, s.opts.UserID)
		var rows []models.Event
		if err == nil {
			logger.Info("Stored recurring series", "recurrence_id", rid, "instances", n)
			rows, err = s.provider.FetchEvents(s.ctx, s.opts.UserID, s.opts.Account)
		}
		s.seriesSaved(localRID, rid, rows, err)
	}()

	return Outcome{
		EventID:   defining.ID,
		Committed: true,
		Conflicts: s.validator.ValidateChange(after, defining),
	}, nil
}

// seriesSaved swaps the temporary instances of localRID for the stored
// rows of rid, matched by start time.
func (s *Scheduler) seriesSaved(localRID, rid string, rows []models.Event, err error) {
	s.mu.Lock()
	delete(s.savingSeries, localRID)

	if err != nil {
		s.store.Set(eventstore.Filter(s.store.Events(), func(e models.Event) bool { return e.RecurrenceID != localRID }))
		s.history.ReplaceCurrent(s.store.Events())
		s.mu.Unlock()
		s.fail(fmt.Errorf("create recurring shift: %w", err))
		s.notifyChange()
		return
	}

	byStart := make(map[int64]models.Event)
	for _, r := range rows {
		if r.RecurrenceID == rid {
			byStart[r.Start.UnixNano()] = r
		}
	}
	swap := func(e *models.Event) {
		if e.RecurrenceID != localRID {
			return
		}
		if r, ok := byStart[e.Start.UnixNano()]; ok {
			e.ID = r.ID
			e.RecurrenceID = rid
			e.FromDatabase = true
			e.IsValidated = true
			e.ApplyPalette()
		}
	}
	s.history.Rewrite(swap)
	events := eventstore.Map(s.store.Events(), swap)
	events = eventstore.Filter(events, func(e models.Event) bool { return e.RecurrenceID != localRID })
	s.store.Set(events)
	s.history.ReplaceCurrent(events)
	s.mu.Unlock()
	s.notifyChange()
}

// Undo restores the previous snapshot and persists the difference.
func (s *Scheduler) Undo() bool {
	return s.step(s.history.Undo)
}

// Redo reapplies the next snapshot and persists the difference.
func (s *Scheduler) Redo() bool {
	return s.step(s.history.Redo)
}

func (s *Scheduler) step(move func() ([]models.Event, bool)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.machine.Active() || s.request != nil {
		return false
	}
	target, ok := move()
	if !ok {
		return false
	}

	before := s.store.Events()
	target = eventstore.Map(target, func(e *models.Event) {
		if b, found := eventstore.Find(before, e.ID); found && sameContent(b, *e) {
			e.FromDatabase = b.FromDatabase
			e.IsValidated = b.IsValidated
			e.ApplyPalette()
		}
	})
	s.store.Set(target)
	s.history.ReplaceCurrent(target)
	s.persistDiff(before, target)
	s.notifyChange()
	return true
}

// CanUndo reports whether Undo would do anything.
func (s *Scheduler) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.CanUndo()
}

// CanRedo reports whether Redo would do anything.
func (s *Scheduler) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.CanRedo()
}
