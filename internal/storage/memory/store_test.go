package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/julianstephens/shiftcal/internal/constants"
	"github.com/julianstephens/shiftcal/internal/errors"
	"github.com/julianstephens/shiftcal/internal/models"
)

func TestZeroValueStore(t *testing.T) {
	var s Store
	start := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	id, err := s.SaveEvent(context.Background(), models.Event{Start: start, End: start.Add(time.Hour)}, "alice")
	if err != nil {
		t.Fatalf("SaveEvent() error = %v", err)
	}
	events, err := s.FetchEvents(context.Background(), "alice", constants.AccountEmployee)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || events[0].ID != id || !events[0].FromDatabase {
		t.Fatalf("FetchEvents() = %+v", events)
	}
}

func TestFailHook(t *testing.T) {
	s := New()
	s.Fail = func(op string) error {
		if op == "save" {
			return fmt.Errorf("disk full")
		}
		return nil
	}
	_, err := s.SaveEvent(context.Background(), models.Event{}, "alice")
	if !errors.Is(err, errors.ErrPersistence) {
		t.Fatalf("SaveEvent() error = %v, want ErrPersistence", err)
	}
	if s.Calls("save") != 1 {
		t.Errorf("Calls(save) = %d, want 1", s.Calls("save"))
	}
	if _, err := s.FetchEvents(context.Background(), "alice", constants.AccountEmployee); err != nil {
		t.Errorf("FetchEvents() error = %v", err)
	}
}

func TestHoldParksCallOutsideLock(t *testing.T) {
	s := New()
	start := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	s.Seed("alice", models.Event{ID: "e1", Start: start, End: start.Add(time.Hour)})

	entered := make(chan struct{})
	release := make(chan struct{})
	s.Hold = func(op string) {
		if op == "update" {
			close(entered)
			<-release
		}
	}

	done := make(chan error, 1)
	go func() {
		moved := models.Event{Start: start.Add(time.Hour), End: start.Add(2 * time.Hour)}
		done <- s.UpdateEvent(context.Background(), "e1", moved, "alice", constants.AccountManager)
	}()
	<-entered

	events, err := s.FetchEvents(context.Background(), "alice", constants.AccountManager)
	if err != nil || len(events) != 1 || !events[0].Start.Equal(start) {
		t.Fatalf("FetchEvents() while update parked = %+v, %v", events, err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("UpdateEvent() error = %v", err)
	}
	events, _ = s.FetchEvents(context.Background(), "alice", constants.AccountManager)
	if !events[0].Start.Equal(start.Add(time.Hour)) {
		t.Errorf("start = %v after release", events[0].Start)
	}
}

func TestFetchReturnsCopies(t *testing.T) {
	s := New()
	start := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	s.Seed("alice", models.Event{ID: "a", Start: start, End: start.Add(time.Hour), Employees: []string{"alice"}})

	events, _ := s.FetchEvents(context.Background(), "alice", constants.AccountEmployee)
	events[0].Employees[0] = "mallory"

	again, _ := s.FetchEvents(context.Background(), "alice", constants.AccountEmployee)
	if again[0].Employees[0] != "alice" {
		t.Error("caller mutation leaked into the store")
	}
}

func TestDeleteSeries(t *testing.T) {
	s := New()
	start := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	def := models.Event{
		Start: start,
		End:   start.Add(time.Hour),
		Recurrence: &models.RecurrenceConfig{
			Frequency: constants.FrequencyDaily,
			Interval:  1,
			End:       models.RecurrenceEnd{Kind: constants.EndAfter, Count: 3},
		},
	}
	seriesID, n, err := s.SaveRecurringEvents(context.Background(), def, "alice")
	if err != nil || n != 3 {
		t.Fatalf("SaveRecurringEvents() = %d, %v", n, err)
	}
	events, _ := s.FetchEvents(context.Background(), "alice", constants.AccountEmployee)
	if err := s.DeleteEvent(context.Background(), events[1].ID, "alice", constants.AccountEmployee, constants.ScopeAll, seriesID); err != nil {
		t.Fatal(err)
	}
	if left, _ := s.FetchEvents(context.Background(), "alice", constants.AccountEmployee); len(left) != 0 {
		t.Errorf("expected series removed, %d left", len(left))
	}
}
