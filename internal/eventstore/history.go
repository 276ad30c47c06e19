package eventstore

import (
	"sort"

	"github.com/mitchellh/hashstructure/v2"

	"github.com/julianstephens/shiftcal/internal/constants"
	"github.com/julianstephens/shiftcal/internal/logger"
	"github.com/julianstephens/shiftcal/internal/models"
)

// History is a bounded undo/redo stack of full event-set snapshots.
// index always points at the snapshot matching the live store.
type History struct {
	snapshots    [][]models.Event
	fingerprints []uint64
	index        int
	limit        int
}

// NewHistory starts a history whose only entry is initial.
func NewHistory(limit int, initial []models.Event) *History {
	if limit < 2 {
		limit = constants.DefaultHistoryLimit
	}
	h := &History{limit: limit}
	h.Reset(initial)
	return h
}

// Reset discards every snapshot and starts over from events.
func (h *History) Reset(events []models.Event) {
	h.snapshots = [][]models.Event{models.CloneEvents(events)}
	h.fingerprints = []uint64{fingerprint(events)}
	h.index = 0
}

// Push records events as the newest snapshot, dropping any redo entries.
// It returns false when events are identical to the current snapshot.
func (h *History) Push(events []models.Event) bool {
	fp := fingerprint(events)
	if fp != 0 && fp == h.fingerprints[h.index] {
		return false
	}

	h.snapshots = append(h.snapshots[:h.index+1], models.CloneEvents(events))
	h.fingerprints = append(h.fingerprints[:h.index+1], fp)

	if over := len(h.snapshots) - h.limit; over > 0 {
		h.snapshots = h.snapshots[over:]
		h.fingerprints = h.fingerprints[over:]
	}
	h.index = len(h.snapshots) - 1
	return true
}

// Undo steps back one snapshot and returns it.
func (h *History) Undo() ([]models.Event, bool) {
	if !h.CanUndo() {
		return nil, false
	}
	h.index--
	return models.CloneEvents(h.snapshots[h.index]), true
}

// Redo steps forward one snapshot and returns it.
func (h *History) Redo() ([]models.Event, bool) {
	if !h.CanRedo() {
		return nil, false
	}
	h.index++
	return models.CloneEvents(h.snapshots[h.index]), true
}

// CanUndo reports whether an earlier snapshot exists.
func (h *History) CanUndo() bool {
	return h.index > 0
}

// CanRedo reports whether a later snapshot exists.
func (h *History) CanRedo() bool {
	return h.index < len(h.snapshots)-1
}

// Current returns the snapshot at the index.
func (h *History) Current() []models.Event {
	return models.CloneEvents(h.snapshots[h.index])
}

// Len is the number of stored snapshots.
func (h *History) Len() int {
	return len(h.snapshots)
}

// Index is the position of the current snapshot.
func (h *History) Index() int {
	return h.index
}

// Rewrite applies fn to every event of every snapshot. It is used to fold
// server-assigned ids and validation flags into history so undo never
// resurrects a temporary id.
func (h *History) Rewrite(fn func(*models.Event)) {
	for i, snap := range h.snapshots {
		h.snapshots[i] = Map(snap, fn)
		h.fingerprints[i] = fingerprint(h.snapshots[i])
	}
}

// ReplaceCurrent overwrites the current snapshot without moving the index.
// Remote merges use it so they do not create undo entries.
func (h *History) ReplaceCurrent(events []models.Event) {
	h.snapshots[h.index] = models.CloneEvents(events)
	h.fingerprints[h.index] = fingerprint(events)
}

// eventKey is the hashed projection of an event. Transient gesture flags are
// excluded so a finished gesture does not count as a change.
type eventKey struct {
	ID           string
	Start        int64
	End          int64
	Title        string
	Location     string
	Notes        string
	Employees    []string
	Color        string
	IsValidated  bool
	FromDatabase bool
	RecurrenceID string
	IsRecurring  bool
	Detached     bool
	Recurrence   *recurrenceHash
}

func fingerprint(events []models.Event) uint64 {
	keys := make([]eventKey, len(events))
	for i, e := range events {
		keys[i] = eventKey{
			ID:           e.ID,
			Start:        e.Start.UnixNano(),
			End:          e.End.UnixNano(),
			Title:        e.Title,
			Location:     e.Location,
			Notes:        e.Notes,
			Employees:    e.Employees,
			Color:        e.Color,
			IsValidated:  e.IsValidated,
			FromDatabase: e.FromDatabase,
			RecurrenceID: e.RecurrenceID,
			IsRecurring:  e.IsRecurring,
			Detached:     e.Detached,
			Recurrence:   recurrenceKey(e.Recurrence),
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].ID < keys[j].ID })

	fp, err := hashstructure.Hash(keys, hashstructure.FormatV2, nil)
	if err != nil {
		logger.Warn("Failed to fingerprint snapshot", "error", err)
		return 0
	}
	return fp
}

type recurrenceHash struct {
	Frequency   string
	Interval    int
	Weekdays    [7]bool
	MonthlyMode string
	MonthWeek   int
	EndKind     string
	Count       int
	Until       int64
}

func recurrenceKey(r *models.RecurrenceConfig) *recurrenceHash {
	if r == nil {
		return nil
	}
	k := &recurrenceHash{
		Frequency:   string(r.Frequency),
		Interval:    r.Interval,
		Weekdays:    r.Weekdays,
		MonthlyMode: string(r.MonthlyMode),
		MonthWeek:   r.MonthWeek,
		EndKind:     string(r.End.Kind),
		Count:       r.End.Count,
	}
	if !r.End.Until.IsZero() {
		k.Until = r.End.Until.UnixNano()
	}
	return k
}
