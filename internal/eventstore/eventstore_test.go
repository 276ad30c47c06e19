package eventstore

import (
	"testing"
	"time"

	"github.com/julianstephens/shiftcal/internal/models"
)

func sample() []models.Event {
	base := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	return []models.Event{
		{ID: "a", Start: base, End: base.Add(time.Hour), Employees: []string{"ann"}},
		{ID: "b", Start: base.Add(2 * time.Hour), End: base.Add(3 * time.Hour)},
	}
}

func TestReplaceDoesNotMutateInput(t *testing.T) {
	events := sample()
	updated := events[0].Clone()
	updated.Title = "changed"
	updated.Employees[0] = "bob"

	out := Replace(events, updated)
	if events[0].Title != "" || events[0].Employees[0] != "ann" {
		t.Fatalf("input mutated: %+v", events[0])
	}
	if out[0].Title != "changed" {
		t.Errorf("replacement missing: %+v", out[0])
	}
}

func TestRemoveAndAppend(t *testing.T) {
	events := sample()
	out := Remove(events, "a")
	if len(out) != 1 || out[0].ID != "b" || len(events) != 2 {
		t.Fatalf("unexpected remove result %v", out)
	}
	out = Append(out, models.Event{ID: "c"})
	if len(out) != 2 || out[1].ID != "c" {
		t.Errorf("unexpected append result %v", out)
	}
	out = Upsert(out, models.Event{ID: "c", Title: "x"})
	if len(out) != 2 || out[1].Title != "x" {
		t.Errorf("upsert should replace, got %v", out)
	}
}

func TestRenameID(t *testing.T) {
	out := RenameID(sample(), "a", "srv-1")
	if _, ok := Find(out, "a"); ok {
		t.Error("old id still present")
	}
	if _, ok := Find(out, "srv-1"); !ok {
		t.Error("new id missing")
	}
}

func TestStoreCopies(t *testing.T) {
	s := NewStore(sample())
	got := s.Events()
	got[0].Title = "leak"
	if e, _ := s.Get("a"); e.Title != "" {
		t.Errorf("store shares memory with caller")
	}
	if s.Len() != 2 {
		t.Errorf("Len = %d", s.Len())
	}
}

func TestHistoryUndoRedo(t *testing.T) {
	events := sample()
	h := NewHistory(10, events)
	if h.CanUndo() || h.CanRedo() {
		t.Fatal("fresh history should have no undo/redo")
	}

	moved := Map(events, func(e *models.Event) { e.Start = e.Start.Add(time.Hour) })
	if !h.Push(moved) {
		t.Fatal("push of a change should succeed")
	}
	prev, ok := h.Undo()
	if !ok || !prev[0].Start.Equal(events[0].Start) {
		t.Fatalf("undo returned %v", prev)
	}
	if !h.CanRedo() {
		t.Fatal("redo should be available")
	}
	next, ok := h.Redo()
	if !ok || !next[0].Start.Equal(moved[0].Start) {
		t.Fatalf("redo returned %v", next)
	}
	if _, ok := h.Redo(); ok {
		t.Error("redo past end should fail")
	}
}

func TestHistoryPushTruncatesFuture(t *testing.T) {
	h := NewHistory(10, sample())
	h.Push(Remove(sample(), "a"))
	h.Push(Remove(sample(), "a", "b"))
	h.Undo()
	h.Undo()
	h.Push(Append(sample(), models.Event{ID: "c"}))
	if h.CanRedo() {
		t.Error("future snapshots should be dropped")
	}
	if h.Len() != 2 || h.Index() != 1 {
		t.Errorf("len=%d index=%d, want 2 and 1", h.Len(), h.Index())
	}
}

func TestHistorySkipsIdenticalSnapshot(t *testing.T) {
	events := sample()
	h := NewHistory(10, events)
	same := models.CloneEvents(events)
	same[0].IsBeingMoved = true
	if h.Push(same) {
		t.Error("identical snapshot should not be pushed")
	}
	if h.Len() != 1 {
		t.Errorf("len = %d", h.Len())
	}
}

func TestHistoryBounded(t *testing.T) {
	h := NewHistory(3, nil)
	for i := 0; i < 5; i++ {
		h.Push([]models.Event{{ID: string(rune('a' + i))}})
	}
	if h.Len() != 3 {
		t.Fatalf("len = %d, want 3", h.Len())
	}
	if h.Index() != 2 {
		t.Errorf("index = %d, want 2", h.Index())
	}
	for h.CanUndo() {
		h.Undo()
	}
	if cur := h.Current(); len(cur) != 1 || cur[0].ID != "c" {
		t.Errorf("oldest retained snapshot = %v", cur)
	}
}

func TestHistoryRewrite(t *testing.T) {
	h := NewHistory(10, sample())
	h.Push(Remove(sample(), "b"))
	h.Rewrite(func(e *models.Event) {
		if e.ID == "a" {
			e.ID = "srv-a"
		}
	})
	prev, _ := h.Undo()
	if _, ok := Find(prev, "srv-a"); !ok {
		t.Errorf("rewrite did not reach older snapshot: %v", prev)
	}
}
