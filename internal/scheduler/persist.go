package scheduler

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/julianstephens/shiftcal/internal/constants"
	"github.com/julianstephens/shiftcal/internal/errors"
	"github.com/julianstephens/shiftcal/internal/eventstore"
	"github.com/julianstephens/shiftcal/internal/logger"
	"github.com/julianstephens/shiftcal/internal/models"
	"github.com/julianstephens/shiftcal/internal/notifier"
)

// syncOp is the provider call an unsynced event still needs.
type syncOp int

const (
	opUpdate syncOp = iota + 1
	opDelete
)

const notifyTimeout = 10 * time.Second

// markPending records that id needs op. Caller must hold s.mu.
func (s *Scheduler) markPending(id string, op syncOp) {
	s.pending[id] = op
}

// persistDiff sends what changed between two committed states to the
// provider. Caller must hold s.mu.
func (s *Scheduler) persistDiff(before, after []models.Event) {
	for _, a := range after {
		b, existed := eventstore.Find(before, a.ID)
		switch {
		case !existed:
			if s.saving[a.ID] || (a.RecurrenceID != "" && s.savingSeries[a.RecurrenceID]) {
				continue
			}
			s.markPending(a.ID, opUpdate)
			s.saveAsync(a)
		case !sameContent(a, b) && a.FromDatabase:
			s.updateAsync(a)
		case !sameContent(a, b):
			// A local event whose create is in flight picks this up when
			// the save returns.
			s.markPending(a.ID, opUpdate)
		}
	}
	for _, b := range before {
		if _, ok := eventstore.Find(after, b.ID); ok {
			continue
		}
		if b.FromDatabase {
			s.deleteAsync(b.ID, constants.ScopeSingle, "", []string{b.ID})
		} else {
			delete(s.pending, b.ID)
		}
	}
}

// saveAsync stores a new event. Caller must hold s.mu.
func (s *Scheduler) saveAsync(e models.Event) {
	s.saving[e.ID] = true
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		id, err := s.provider.SaveEvent(s.ctx, e, s.opts.UserID)
		s.saved(e, id, err)
	}()
}

// saved folds the result of a create into the store and history.
func (s *Scheduler) saved(sent models.Event, id string, err error) {
	s.mu.Lock()
	delete(s.saving, sent.ID)

	if err != nil {
		delete(s.pending, sent.ID)
		s.store.Set(eventstore.Remove(s.store.Events(), sent.ID))
		s.history.ReplaceCurrent(s.store.Events())
		s.mu.Unlock()
		s.fail(fmt.Errorf("create shift %q: %w", sent.Title, err))
		s.notifyChange()
		return
	}

	logger.Debug("Stored shift", "local_id", sent.ID, "id", id)
	s.history.Rewrite(func(e *models.Event) {
		if e.ID != sent.ID {
			return
		}
		e.ID = id
		e.FromDatabase = true
		if sameContent(*e, sent) {
			e.IsValidated = true
			e.ApplyPalette()
		}
	})

	current, ok := s.store.Get(sent.ID)
	delete(s.pending, sent.ID)
	if !ok {
		// Removed while the create was in flight.
		s.deleteAsync(id, constants.ScopeSingle, "", []string{id})
		s.mu.Unlock()
		return
	}

	current.FromDatabase = true
	unchanged := sameContent(current, sent)
	if unchanged {
		current.IsValidated = true
		current.ApplyPalette()
	}
	events := eventstore.RenameID(eventstore.Replace(s.store.Events(), current), sent.ID, id)
	s.store.Set(events)
	s.history.ReplaceCurrent(events)
	if !unchanged {
		current.ID = id
		s.updateAsync(current)
	}
	s.mu.Unlock()
	s.notifyChange()
}

// updateAsync rewrites a stored event. Caller must hold s.mu.
func (s *Scheduler) updateAsync(e models.Event) {
	s.markPending(e.ID, opUpdate)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		err := s.provider.UpdateEvent(s.ctx, e.ID, e, s.opts.UserID, s.opts.Account)
		s.updated(e, err)
	}()
}

func (s *Scheduler) updated(sent models.Event, err error) {
	if err != nil {
		logger.Error("Failed to store shift change", "event", sent.ID, "error", err)
		s.fail(fmt.Errorf("update shift %q: %w", sent.Title, err))
		return
	}

	s.mu.Lock()
	current, ok := s.store.Get(sent.ID)
	if ok && sameContent(current, sent) {
		delete(s.pending, sent.ID)
		if !current.IsValidated {
			current.IsValidated = true
			current.ApplyPalette()
			s.store.Set(eventstore.Replace(s.store.Events(), current))
			s.history.ReplaceCurrent(s.store.Events())
		}
	}
	s.mu.Unlock()
	s.notifyChange()
}

// deleteAsync issues one scoped delete covering removed. Caller must hold s.mu.
func (s *Scheduler) deleteAsync(id string, scope constants.Scope, recurrenceID string, removed []string) {
	for _, r := range removed {
		s.markPending(r, opDelete)
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		err := s.provider.DeleteEvent(s.ctx, id, s.opts.UserID, s.opts.Account, scope, recurrenceID)
		if err != nil && !errors.Is(err, errors.ErrNotFound) {
			logger.Error("Failed to delete shift", "event", id, "scope", scope, "error", err)
			s.fail(fmt.Errorf("delete shift: %w", err))
			return
		}
		s.mu.Lock()
		for _, r := range removed {
			if s.pending[r] == opDelete {
				delete(s.pending, r)
			}
		}
		s.mu.Unlock()
		s.notifyChange()
	}()
}

// fail reports a background failure. Caller must not hold s.mu.
func (s *Scheduler) fail(err error) {
	if s.opts.OnError != nil {
		s.opts.OnError(err)
	}
	if s.opts.Notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()
	if nerr := s.opts.Notifier.Notify(ctx, notifier.LevelError, err.Error()); nerr != nil {
		logger.Warn("Failed to send notification", "error", nerr)
	}
}

// Unsynced returns the ids whose latest local state is not yet stored.
func (s *Scheduler) Unsynced() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingIDs()
}

func (s *Scheduler) pendingIDs() []string {
	ids := make([]string, 0, len(s.pending))
	for id := range s.pending {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SyncPending retries every unsynced change synchronously and returns how
// many went through.
func (s *Scheduler) SyncPending(ctx context.Context) (int, error) {
	s.mu.Lock()
	type job struct {
		id    string
		op    syncOp
		event models.Event
		found bool
	}
	var jobs []job
	for _, id := range s.pendingIDs() {
		if s.saving[id] {
			continue
		}
		e, ok := s.store.Get(id)
		jobs = append(jobs, job{id: id, op: s.pending[id], event: e, found: ok})
	}
	s.mu.Unlock()

	synced := 0
	var errs []error
	for _, j := range jobs {
		switch {
		case j.op == opDelete:
			err := s.provider.DeleteEvent(ctx, j.id, s.opts.UserID, s.opts.Account, constants.ScopeSingle, "")
			if err != nil && !errors.Is(err, errors.ErrNotFound) {
				errs = append(errs, err)
				continue
			}
			s.mu.Lock()
			delete(s.pending, j.id)
			s.mu.Unlock()

		case !j.found:
			s.mu.Lock()
			delete(s.pending, j.id)
			s.mu.Unlock()
			continue

		case !j.event.FromDatabase:
			s.mu.Lock()
			s.saving[j.id] = true
			s.mu.Unlock()
			id, err := s.provider.SaveEvent(ctx, j.event, s.opts.UserID)
			s.saved(j.event, id, err)
			if err != nil {
				errs = append(errs, err)
				continue
			}

		default:
			if err := s.provider.UpdateEvent(ctx, j.id, j.event, s.opts.UserID, s.opts.Account); err != nil {
				errs = append(errs, err)
				continue
			}
			s.updated(j.event, nil)
		}
		synced++
	}
	if synced > 0 {
		logger.Info("Synced pending changes", "count", synced, "failed", len(errs))
	}
	return synced, errors.Join(errs...)
}

// SaveSnapshot writes the committed events and unsynced ids to the cache.
func (s *Scheduler) SaveSnapshot() error {
	if s.opts.Cache == nil {
		return nil
	}
	s.mu.Lock()
	events := s.store.Events()
	ids := s.pendingIDs()
	s.mu.Unlock()
	return s.opts.Cache.Save(s.opts.UserID, events, ids)
}

// restorePending rebuilds the unsynced set from cached ids. Caller must
// hold s.mu.
func (s *Scheduler) restorePending(ids []string) {
	for _, id := range ids {
		if _, ok := s.store.Get(id); ok {
			s.pending[id] = opUpdate
		} else {
			s.pending[id] = opDelete
		}
	}
}
