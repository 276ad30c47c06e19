package recurrence

import (
	"sort"

	"github.com/julianstephens/shiftcal/internal/models"
)

// Members returns every event in target's series, target included, sorted by start.
func Members(events []models.Event, target models.Event) []models.Event {
	var out []models.Event
	for _, e := range events {
		switch {
		case e.ID == target.ID:
			out = append(out, e)
		case target.RecurrenceID != "" && e.RecurrenceID == target.RecurrenceID:
			out = append(out, e)
		case legacyMember(target, e):
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

// InSeries reports whether e is part of a recurring series.
func InSeries(events []models.Event, e models.Event) bool {
	if e.RecurrenceID != "" {
		return true
	}
	if _, ok := legacyKey(e); ok {
		return len(Members(events, e)) > 1 || e.IsRecurring
	}
	return false
}

// Defining returns the series member carrying the recurrence config.
func Defining(events []models.Event, target models.Event) (models.Event, bool) {
	for _, m := range Members(events, target) {
		if m.IsRecurring {
			return m, true
		}
	}
	return models.Event{}, false
}

// IsLastOccurrence reports whether target ends last among its series.
// It is recomputed from the loaded events each time so it cannot go stale
// after a series rewrite.
func IsLastOccurrence(events []models.Event, target models.Event) bool {
	members := Members(events, target)
	if len(members) == 0 {
		return false
	}
	last := members[0]
	for _, m := range members[1:] {
		if !m.End.Before(last.End) {
			last = m
		}
	}
	return last.ID == target.ID
}
