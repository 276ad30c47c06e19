package recurrence

import (
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/julianstephens/shiftcal/internal/constants"
	"github.com/julianstephens/shiftcal/internal/eventstore"
	"github.com/julianstephens/shiftcal/internal/models"
)

func stubIDs(t *testing.T) func() {
	t.Helper()
	n := 0
	prev := newID
	newID = func() string {
		n++
		return fmt.Sprintf("gen-%d", n)
	}
	return func() { newID = prev }
}

// weeklySeries builds ten weekly instances under recurrence id "r1".
func weeklySeries(t *testing.T) []models.Event {
	t.Helper()
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	def := models.Event{ID: "def", Start: start, End: start.Add(time.Hour), Title: "Shift", IsValidated: true, FromDatabase: true}
	def.Recurrence = &models.RecurrenceConfig{Frequency: constants.FrequencyWeekly, Interval: 1, End: models.RecurrenceEnd{Kind: constants.EndAfter, Count: 10}}
	events := Materialize(def, "r1", Expand(def, def.Recurrence))
	if len(events) != 10 {
		t.Fatalf("setup: expected 10 instances, got %d", len(events))
	}
	return append(events, models.Event{ID: "other", Start: start, End: start.Add(2 * time.Hour)})
}

func TestApplySingleDetachesOnlyTarget(t *testing.T) {
	restore := stubIDs(t)
	defer restore()
	events := weeklySeries(t)
	target := events[4]
	after := target.Clone()
	after.Start = after.Start.Add(2 * time.Hour)
	after.End = after.End.Add(2 * time.Hour)

	out := Apply(events, Change{Before: target, After: after}, constants.ScopeSingle)

	stripped := 0
	for i, e := range out.Events {
		if e.ID == target.ID {
			if e.RecurrenceID != "" || e.IsRecurring || !e.Detached {
				t.Errorf("target not detached: %+v", e)
			}
			if !e.Start.Equal(after.Start) {
				t.Errorf("target geometry not applied")
			}
			stripped++
			continue
		}
		if !reflect.DeepEqual(e, events[i]) {
			t.Errorf("event %s changed: %+v vs %+v", e.ID, e, events[i])
		}
	}
	if stripped != 1 {
		t.Errorf("expected exactly one detached instance, got %d", stripped)
	}
	if events[4].RecurrenceID != "r1" {
		t.Error("input mutated")
	}
	if len(Members(out.Events, events[0])) != 9 {
		t.Errorf("detached instance still counted as member")
	}
}

func TestApplyFutureLeavesEarlierInstances(t *testing.T) {
	restore := stubIDs(t)
	defer restore()
	events := weeklySeries(t)
	target := events[4]
	after := target.Clone()
	after.Start = after.Start.Add(30 * time.Minute)
	after.End = after.End.Add(time.Hour)

	out := Apply(events, Change{Before: target, After: after}, constants.ScopeFuture)

	for _, orig := range events[:4] {
		got, ok := eventstore.Find(out.Events, orig.ID)
		if !ok || !reflect.DeepEqual(got, orig) {
			t.Errorf("earlier instance %s changed", orig.ID)
		}
	}
	if out.RecurrenceID == "" || out.RecurrenceID == "r1" {
		t.Fatalf("expected a new recurrence id, got %q", out.RecurrenceID)
	}
	if len(out.Updated) != 6 {
		t.Fatalf("expected 6 regenerated instances, got %d", len(out.Updated))
	}
	for i, e := range out.Updated {
		orig, _ := eventstore.Find(events, e.ID)
		if e.RecurrenceID != out.RecurrenceID {
			t.Errorf("%s kept old series", e.ID)
		}
		if !e.Start.Equal(orig.Start.Add(30*time.Minute)) || !e.End.Equal(orig.End.Add(time.Hour)) {
			t.Errorf("%s not shifted: %v-%v", e.ID, e.Start, e.End)
		}
		if (i == 0) != e.IsRecurring {
			t.Errorf("%s IsRecurring = %v", e.ID, e.IsRecurring)
		}
	}
	if out.Updated[0].Recurrence == nil || out.Updated[0].Recurrence.End.Count != 6 {
		t.Errorf("new defining occurrence should carry a 6-count config: %+v", out.Updated[0].Recurrence)
	}
	if len(out.Events) != len(events) {
		t.Errorf("collection size changed: %d vs %d", len(out.Events), len(events))
	}
}

func TestApplyAllRoundTrip(t *testing.T) {
	restore := stubIDs(t)
	defer restore()
	events := weeklySeries(t)
	target := events[3]

	out := Apply(events, Change{Before: target, After: target}, constants.ScopeAll)

	before := Members(events, events[0])
	after := Members(out.Events, out.Updated[0])
	if len(before) != len(after) {
		t.Fatalf("count changed: %d vs %d", len(before), len(after))
	}
	for i := range before {
		if !before[i].Start.Equal(after[i].Start) || !before[i].End.Equal(after[i].End) {
			t.Errorf("instance %d moved: %v vs %v", i, before[i].Start, after[i].Start)
		}
	}
}

func TestApplyAllCopiesFieldChanges(t *testing.T) {
	restore := stubIDs(t)
	defer restore()
	events := weeklySeries(t)
	after := events[2].Clone()
	after.Title = "Inventory"

	out := Apply(events, Change{Before: events[2], After: after}, constants.ScopeAll)
	for _, e := range out.Updated {
		if e.Title != "Inventory" {
			t.Errorf("%s title = %q", e.ID, e.Title)
		}
	}
	if other, _ := eventstore.Find(out.Events, "other"); other.Title != "" {
		t.Errorf("non-member touched")
	}
}

func TestApplyCancelRestoresGeometry(t *testing.T) {
	events := weeklySeries(t)
	before := events[1]
	moved := eventstore.Map(events, func(e *models.Event) {
		if e.ID == before.ID {
			e.Start = e.Start.Add(time.Hour)
			e.End = e.End.Add(time.Hour)
			e.IsBeingMoved = true
		}
	})
	out := Apply(moved, Change{Before: before, After: before}, constants.ScopeCancel)
	got, _ := eventstore.Find(out.Events, before.ID)
	if !reflect.DeepEqual(got, before) {
		t.Errorf("cancel did not restore: %+v", got)
	}
	if len(out.Updated) != 0 {
		t.Errorf("cancel should not require persistence")
	}
}

func TestApplyMissingTargetIsNoop(t *testing.T) {
	events := weeklySeries(t)
	out := Apply(events, Change{Before: models.Event{ID: "ghost"}}, constants.ScopeAll)
	if !reflect.DeepEqual(out.Events, events) || len(out.Updated) != 0 {
		t.Error("missing target should leave events unchanged")
	}
}

func TestApplyDeleteFuture(t *testing.T) {
	events := weeklySeries(t)
	out := ApplyDelete(events, events[4], constants.ScopeFuture)
	remaining := Members(out.Events, events[0])
	if len(remaining) != 4 {
		t.Fatalf("expected 4 remaining instances, got %d", len(remaining))
	}
	for i, e := range remaining {
		if e.ID != events[i].ID || e.RecurrenceID != "r1" {
			t.Errorf("instance %d = %s (%s)", i, e.ID, e.RecurrenceID)
		}
	}
	if len(out.Removed) != 6 {
		t.Errorf("expected 6 removed ids, got %d", len(out.Removed))
	}
	if _, ok := eventstore.Find(out.Events, "other"); !ok {
		t.Error("unrelated event removed")
	}
}

func TestApplyDeleteScopes(t *testing.T) {
	events := weeklySeries(t)
	tests := []struct {
		scope constants.Scope
		left  int
	}{
		{constants.ScopeSingle, 10},
		{constants.ScopeAll, 1},
	}
	for _, tt := range tests {
		out := ApplyDelete(events, events[4], tt.scope)
		if len(out.Events) != tt.left {
			t.Errorf("%s: %d events left, want %d", tt.scope, len(out.Events), tt.left)
		}
	}
}

func TestLegacyMembership(t *testing.T) {
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	events := []models.Event{
		{ID: "abc", Start: start, End: start.Add(time.Hour), IsRecurring: true},
		{ID: "abc_1", Start: start.AddDate(0, 0, 7), End: start.AddDate(0, 0, 7).Add(time.Hour)},
		{ID: "abc-2", Start: start.AddDate(0, 0, 14), End: start.AddDate(0, 0, 14).Add(time.Hour)},
		{ID: "abc_3", Start: start.AddDate(0, 0, 21), End: start.AddDate(0, 0, 21).Add(time.Hour), Detached: true},
		{ID: "abcd_1", Start: start, End: start.Add(time.Hour)},
	}
	members := Members(events, events[1])
	if len(members) != 3 {
		t.Fatalf("expected 3 legacy members, got %d: %v", len(members), members)
	}
	if !InSeries(events, events[2]) {
		t.Error("abc-2 should be in series")
	}
	if InSeries(events, events[3]) {
		t.Error("detached instance should not be in series")
	}
	if !IsLastOccurrence(events, events[2]) {
		t.Error("abc-2 should be the last occurrence")
	}
	if IsLastOccurrence(events, events[0]) {
		t.Error("abc should not be the last occurrence")
	}
}

func TestApplyFutureKeepsWallClockAcrossDST(t *testing.T) {
	restore := stubIDs(t)
	defer restore()
	zurich, err := time.LoadLocation("Europe/Zurich")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	// Saturdays at 09:00; Europe moves to summer time on 2024-03-31.
	start := time.Date(2024, 3, 16, 9, 0, 0, 0, zurich)
	def := models.Event{ID: "def", Start: start, End: start.Add(8 * time.Hour), Title: "Weekend desk"}
	def.Recurrence = &models.RecurrenceConfig{Frequency: constants.FrequencyWeekly, Interval: 1, End: models.RecurrenceEnd{Kind: constants.EndAfter, Count: 4}}
	events := Materialize(def, "r1", Expand(def, def.Recurrence))
	if len(events) != 4 {
		t.Fatalf("setup: expected 4 instances, got %d", len(events))
	}

	target := events[1]
	after := target.Clone()
	after.Start = time.Date(2024, 3, 24, 9, 0, 0, 0, zurich)
	after.End = time.Date(2024, 3, 24, 17, 0, 0, 0, zurich)

	out := Apply(events, Change{Before: target, After: after}, constants.ScopeFuture)

	want := []time.Time{
		time.Date(2024, 3, 24, 9, 0, 0, 0, zurich),
		time.Date(2024, 3, 31, 9, 0, 0, 0, zurich),
		time.Date(2024, 4, 7, 9, 0, 0, 0, zurich),
	}
	if len(out.Updated) != len(want) {
		t.Fatalf("got %d regenerated instances, want %d", len(out.Updated), len(want))
	}
	for i, e := range out.Updated {
		if !e.Start.Equal(want[i]) {
			t.Errorf("instance %d start = %v, want %v", i, e.Start, want[i])
		}
		if h := e.End.In(zurich).Hour(); h != 17 {
			t.Errorf("instance %d ends at %02d:00 local, want 17:00", i, h)
		}
	}
}

func TestShiftBetween(t *testing.T) {
	zurich, err := time.LoadLocation("Europe/Zurich")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	tests := []struct {
		name     string
		from, to time.Time
		on, want time.Time
	}{
		{
			name: "next day same clock",
			from: time.Date(2024, 3, 23, 9, 0, 0, 0, zurich),
			to:   time.Date(2024, 3, 24, 9, 0, 0, 0, zurich),
			on:   time.Date(2024, 3, 30, 9, 0, 0, 0, zurich),
			want: time.Date(2024, 3, 31, 9, 0, 0, 0, zurich),
		},
		{
			name: "earlier clock past midnight",
			from: time.Date(2024, 1, 2, 1, 0, 0, 0, time.UTC),
			to:   time.Date(2024, 1, 1, 23, 30, 0, 0, time.UTC),
			on:   time.Date(2024, 1, 9, 1, 0, 0, 0, time.UTC),
			want: time.Date(2024, 1, 8, 23, 30, 0, 0, time.UTC),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := shiftBetween(tt.from, tt.to).apply(tt.on); !got.Equal(tt.want) {
				t.Errorf("apply() = %v, want %v", got, tt.want)
			}
		})
	}
}
