// Package eventstore holds the canonical event collection and its undo history.
// Every helper returns a new slice; inputs are never modified.
package eventstore

import (
	"slices"

	"github.com/julianstephens/shiftcal/internal/models"
)

// Find returns the event with id.
func Find(events []models.Event, id string) (models.Event, bool) {
	i := IndexOf(events, id)
	if i < 0 {
		return models.Event{}, false
	}
	return events[i], true
}

// IndexOf returns the position of id, or -1.
func IndexOf(events []models.Event, id string) int {
	return slices.IndexFunc(events, func(e models.Event) bool { return e.ID == id })
}

// Replace returns a copy of events with the event sharing e's id swapped for e.
// If no such event exists the copy is returned unchanged.
func Replace(events []models.Event, e models.Event) []models.Event {
	out := models.CloneEvents(events)
	if i := IndexOf(out, e.ID); i >= 0 {
		out[i] = e.Clone()
	}
	return out
}

// Upsert replaces e or appends it when absent.
func Upsert(events []models.Event, e models.Event) []models.Event {
	if IndexOf(events, e.ID) >= 0 {
		return Replace(events, e)
	}
	return Append(events, e)
}

// Append returns a copy of events with extra appended.
func Append(events []models.Event, extra ...models.Event) []models.Event {
	out := make([]models.Event, 0, len(events)+len(extra))
	out = append(out, models.CloneEvents(events)...)
	return append(out, models.CloneEvents(extra)...)
}

// Remove returns a copy of events without the given ids.
func Remove(events []models.Event, ids ...string) []models.Event {
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	return Filter(events, func(e models.Event) bool {
		_, ok := drop[e.ID]
		return !ok
	})
}

// Filter returns a copy of the events for which keep reports true.
func Filter(events []models.Event, keep func(models.Event) bool) []models.Event {
	out := make([]models.Event, 0, len(events))
	for _, e := range events {
		if keep(e) {
			out = append(out, e.Clone())
		}
	}
	return out
}

// Map returns a copy of events with fn applied to each clone.
func Map(events []models.Event, fn func(*models.Event)) []models.Event {
	out := models.CloneEvents(events)
	for i := range out {
		fn(&out[i])
	}
	return out
}

// RenameID swaps a temporary id for its canonical one.
func RenameID(events []models.Event, oldID, newID string) []models.Event {
	return Map(events, func(e *models.Event) {
		if e.ID == oldID {
			e.ID = newID
		}
	})
}

// Store is the canonical in-memory collection. It is not safe for concurrent
// use; the scheduler serializes access.
type Store struct {
	events []models.Event
}

// NewStore seeds a store with a copy of events.
func NewStore(events []models.Event) *Store {
	return &Store{events: models.CloneEvents(events)}
}

// Events returns a copy of the current collection.
func (s *Store) Events() []models.Event {
	return models.CloneEvents(s.events)
}

// Get looks up a single event.
func (s *Store) Get(id string) (models.Event, bool) {
	e, ok := Find(s.events, id)
	if !ok {
		return models.Event{}, false
	}
	return e.Clone(), true
}

// Set replaces the whole collection.
func (s *Store) Set(events []models.Event) {
	s.events = models.CloneEvents(events)
}

// Len reports the number of events.
func (s *Store) Len() int {
	return len(s.events)
}
