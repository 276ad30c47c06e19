package recurrence

import (
	"slices"
	"time"

	"github.com/julianstephens/shiftcal/internal/constants"
	"github.com/julianstephens/shiftcal/internal/eventstore"
	"github.com/julianstephens/shiftcal/internal/logger"
	"github.com/julianstephens/shiftcal/internal/models"
)

// Change describes an edit to one series instance: Before is the committed
// state, After the proposed one.
type Change struct {
	Before models.Event
	After  models.Event
}

// Outcome is the rewritten collection plus what changed, for persistence.
type Outcome struct {
	Events []models.Event
	// Updated holds events whose stored copy must be rewritten.
	Updated []models.Event
	// Removed holds ids dropped from the collection.
	Removed []string
	// RecurrenceID is the id minted for a rewritten series, if any.
	RecurrenceID string
}

// Apply rewrites events according to scope. The input is never modified.
// A target missing from events degrades to a no-op.
func Apply(events []models.Event, change Change, scope constants.Scope) Outcome {
	target, ok := eventstore.Find(events, change.Before.ID)
	if !ok {
		logger.Warn("Series modification target not loaded", "event", change.Before.ID, "scope", scope)
		return Outcome{Events: models.CloneEvents(events)}
	}

	switch scope {
	case constants.ScopeCancel:
		restored := target.Clone()
		restored.Start, restored.End = change.Before.Start, change.Before.End
		restored.ClearTransient()
		return Outcome{Events: eventstore.Replace(events, restored)}

	case constants.ScopeSingle:
		detached := change.After.Clone()
		detached.ID = target.ID
		detached.RecurrenceID = ""
		detached.IsRecurring = false
		detached.Recurrence = nil
		detached.Detached = true
		detached.IsValidated = false
		detached.ClearTransient()
		detached.ApplyPalette()
		return Outcome{
			Events:  eventstore.Replace(events, detached),
			Updated: []models.Event{detached},
		}

	case constants.ScopeFuture, constants.ScopeAll:
		return rewrite(events, target, change, scope)
	}

	logger.Warn("Unknown modification scope", "scope", scope)
	return Outcome{Events: models.CloneEvents(events)}
}

// rewrite regenerates the affected part of a series under a new recurrence
// id, shifting each instance by the target's start and end deltas and
// carrying over any descriptive field that changed. Instance ids are kept.
func rewrite(events []models.Event, target models.Event, change Change, scope constants.Scope) Outcome {
	members := Members(events, target)
	var affected []models.Event
	for _, m := range members {
		if scope == constants.ScopeAll || !m.Start.Before(change.Before.Start) {
			affected = append(affected, m)
		}
	}

	var config *models.RecurrenceConfig
	if def, ok := Defining(events, target); ok && def.Recurrence != nil {
		c := def.Recurrence.Clone()
		config = &c
	}
	if config != nil && config.End.Kind == constants.EndAfter {
		config.End.Count = len(affected)
	}

	startShift := shiftBetween(change.Before.Start, change.After.Start)
	endShift := shiftBetween(change.Before.End, change.After.End)
	seriesID := newID()

	removed := make([]string, 0, len(affected))
	regenerated := make([]models.Event, 0, len(affected))
	for i, m := range affected {
		e := m.Clone()
		e.Start = startShift.apply(e.Start)
		e.End = endShift.apply(e.End)
		applyFields(&e, change.Before, change.After)
		e.RecurrenceID = seriesID
		e.IsRecurring = i == 0
		e.Recurrence = nil
		if i == 0 {
			e.Recurrence = config
		}
		e.Detached = false
		e.IsValidated = false
		e.ClearTransient()
		e.ApplyPalette()
		removed = append(removed, m.ID)
		regenerated = append(regenerated, e)
	}

	return Outcome{
		Events:       eventstore.Append(eventstore.Remove(events, removed...), regenerated...),
		Updated:      regenerated,
		RecurrenceID: seriesID,
	}
}

// wallShift is a move in calendar days plus wall-clock seconds, so an
// instance keeps its local time of day across a DST change.
type wallShift struct {
	days int
	secs int
}

func shiftBetween(from, to time.Time) wallShift {
	to = to.In(from.Location())
	fy, fm, fd := from.Date()
	ty, tm, td := to.Date()
	days := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC).Sub(time.Date(fy, fm, fd, 0, 0, 0, 0, time.UTC)) / (24 * time.Hour)
	return wallShift{days: int(days), secs: clockSecs(to) - clockSecs(from)}
}

func clockSecs(t time.Time) int {
	h, m, s := t.Clock()
	return h*3600 + m*60 + s
}

func (w wallShift) apply(t time.Time) time.Time {
	y, mo, d := t.Date()
	h, mi, s := t.Clock()
	return time.Date(y, mo, d+w.days, h, mi, s+w.secs, t.Nanosecond(), t.Location())
}

// applyFields copies descriptive fields that differ between before and after.
func applyFields(e *models.Event, before, after models.Event) {
	if after.Title != before.Title {
		e.Title = after.Title
	}
	if after.Location != before.Location {
		e.Location = after.Location
	}
	if after.Notes != before.Notes {
		e.Notes = after.Notes
	}
	if !slices.Equal(after.Employees, before.Employees) {
		e.Employees = slices.Clone(after.Employees)
	}
}

// ApplyDelete removes target, target and later instances, or the whole series.
func ApplyDelete(events []models.Event, target models.Event, scope constants.Scope) Outcome {
	current, ok := eventstore.Find(events, target.ID)
	if !ok {
		logger.Warn("Delete target not loaded", "event", target.ID, "scope", scope)
		return Outcome{Events: models.CloneEvents(events)}
	}

	var ids []string
	switch scope {
	case constants.ScopeFuture, constants.ScopeAll:
		for _, m := range Members(events, current) {
			if scope == constants.ScopeAll || !m.Start.Before(current.Start) {
				ids = append(ids, m.ID)
			}
		}
	default:
		ids = []string{current.ID}
	}
	return Outcome{
		Events:       eventstore.Remove(events, ids...),
		Removed:      ids,
		RecurrenceID: current.RecurrenceID,
	}
}
