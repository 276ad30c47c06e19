package validation

import (
	"strings"
	"testing"
	"time"

	"github.com/julianstephens/shiftcal/internal/errors"
	"github.com/julianstephens/shiftcal/internal/models"
)

func at(day, hour int) time.Time {
	return time.Date(2024, 1, day, hour, 0, 0, 0, time.UTC)
}

func TestValidateEvent(t *testing.T) {
	tests := []struct {
		name    string
		event   models.Event
		wantErr bool
	}{
		{"valid", models.Event{ID: "a", Start: at(1, 9), End: at(1, 10)}, false},
		{"missing id", models.Event{Start: at(1, 9), End: at(1, 10)}, true},
		{"end equals start", models.Event{ID: "a", Start: at(1, 9), End: at(1, 9)}, true},
		{"end before start", models.Event{ID: "a", Start: at(1, 10), End: at(1, 9)}, true},
		{"zero times", models.Event{ID: "a"}, true},
		{"bad recurrence", models.Event{ID: "a", Start: at(1, 9), End: at(1, 10), Recurrence: &models.RecurrenceConfig{Frequency: "daily"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEvent(tt.event)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateEvent() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, errors.ErrValidation) {
				t.Errorf("error should wrap ErrValidation: %v", err)
			}
		})
	}
}

func TestOverlappingShiftsForSameEmployee(t *testing.T) {
	events := []models.Event{
		{ID: "a", Start: at(1, 9), End: at(1, 12), Employees: []string{"ann"}},
		{ID: "b", Start: at(1, 11), End: at(1, 14), Employees: []string{"ann", "bob"}},
		{ID: "c", Start: at(1, 11), End: at(1, 13), Employees: []string{"cy"}},
	}
	v := New(0)
	result := v.ValidateEvents(events)
	if len(result.Conflicts) != 1 {
		t.Fatalf("expected 1 conflict, got %d: %s", len(result.Conflicts), result.FormatReport())
	}
	c := result.Conflicts[0]
	if c.Type != ConflictOverlappingShifts || c.Employee != "ann" {
		t.Errorf("unexpected conflict %+v", c)
	}
}

func TestDailyHoursLimit(t *testing.T) {
	events := []models.Event{
		{ID: "a", Start: at(1, 6), End: at(1, 12), Employees: []string{"ann"}},
		{ID: "b", Start: at(1, 13), End: at(1, 20), Employees: []string{"ann"}},
	}
	result := New(12).ValidateEvents(events)
	if !result.HasConflicts() || result.Conflicts[0].Type != ConflictExceedsDailyHours {
		t.Fatalf("expected daily hours conflict, got %s", result.FormatReport())
	}
	if result := New(13).ValidateEvents(events); result.HasConflicts() {
		t.Errorf("13h limit should pass: %s", result.FormatReport())
	}
}

func TestOvernightShiftSplitAcrossDays(t *testing.T) {
	events := []models.Event{{ID: "n", Start: at(1, 18), End: at(2, 8), Employees: []string{"ann"}}}
	if result := New(10).ValidateEvents(events); result.HasConflicts() {
		t.Errorf("6h + 8h across two days should not exceed 10h: %s", result.FormatReport())
	}
}

func TestDuplicateAndMissingIDs(t *testing.T) {
	events := []models.Event{
		{ID: "a", Start: at(1, 9), End: at(1, 10)},
		{ID: "a", Start: at(2, 9), End: at(2, 10)},
		{Start: at(3, 9), End: at(3, 10)},
	}
	result := New(0).ValidateEvents(events)
	types := map[ConflictType]bool{}
	for _, c := range result.Conflicts {
		types[c.Type] = true
	}
	if !types[ConflictDuplicateEventID] || !types[ConflictMissingEventID] {
		t.Errorf("missing conflict types: %s", result.FormatReport())
	}
}

func TestValidateChangeFocus(t *testing.T) {
	events := []models.Event{
		{ID: "a", Start: at(1, 9), End: at(1, 12), Employees: []string{"ann"}},
		{ID: "b", Start: at(1, 10), End: at(1, 11), Employees: []string{"ann"}},
		{ID: "c", Start: at(1, 14), End: at(1, 15), Employees: []string{"ann"}},
	}
	moved := events[2]
	moved.Start, moved.End = at(1, 16), at(1, 17)
	if result := New(0).ValidateChange(events, moved); result.HasConflicts() {
		t.Errorf("pre-existing conflicts should not be attributed to c: %s", result.FormatReport())
	}
	moved.Start, moved.End = at(1, 11), at(1, 13)
	result := New(0).ValidateChange(events, moved)
	if len(result.Conflicts) != 1 {
		t.Errorf("expected one conflict with a, got %s", result.FormatReport())
	}
}

func TestConflictError(t *testing.T) {
	err := error(&ConflictError{Result: ValidationResult{Conflicts: []Conflict{{Description: "x"}}}})
	if !errors.Is(err, errors.ErrConflict) {
		t.Error("ConflictError should match ErrConflict")
	}
	if !strings.Contains(err.Error(), "1 scheduling conflict") {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestFormatReport(t *testing.T) {
	var r ValidationResult
	if r.FormatReport() != "No conflicts detected." {
		t.Errorf("unexpected empty report %q", r.FormatReport())
	}
}
