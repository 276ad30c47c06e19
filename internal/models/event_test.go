package models

import (
	"testing"
	"time"

	"github.com/julianstephens/shiftcal/internal/constants"
)

func TestCloneDoesNotShare(t *testing.T) {
	e := Event{
		ID:         "a",
		Employees:  []string{"ann"},
		Recurrence: &RecurrenceConfig{Frequency: constants.FrequencyDaily, Interval: 1},
	}
	c := e.Clone()
	c.Employees[0] = "bob"
	c.Recurrence.Interval = 3

	if e.Employees[0] != "ann" {
		t.Errorf("employees slice shared")
	}
	if e.Recurrence.Interval != 1 {
		t.Errorf("recurrence pointer shared")
	}
}

func TestOverlaps(t *testing.T) {
	base := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	a := Event{Start: base, End: base.Add(time.Hour)}
	tests := []struct {
		name string
		b    Event
		want bool
	}{
		{"touching", Event{Start: base.Add(time.Hour), End: base.Add(2 * time.Hour)}, false},
		{"inside", Event{Start: base.Add(15 * time.Minute), End: base.Add(30 * time.Minute)}, true},
		{"partial", Event{Start: base.Add(30 * time.Minute), End: base.Add(90 * time.Minute)}, true},
		{"before", Event{Start: base.Add(-time.Hour), End: base}, false},
	}
	for _, tt := range tests {
		if got := a.Overlaps(tt.b); got != tt.want {
			t.Errorf("%s: Overlaps = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestApplyPalette(t *testing.T) {
	e := Event{IsValidated: true}
	e.ApplyPalette()
	if e.Color != "#0f54bc" || e.Color1 != "#a8c1ff" || e.Color2 != "#4da6fb" {
		t.Errorf("unexpected validated palette %s %s %s", e.Color, e.Color1, e.Color2)
	}
	e.IsValidated = false
	e.ApplyPalette()
	if e.Color != constants.PendingPalette.Color {
		t.Errorf("expected pending palette, got %s", e.Color)
	}
}

func TestRecurrenceValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     RecurrenceConfig
		wantErr bool
	}{
		{"daily", RecurrenceConfig{Frequency: constants.FrequencyDaily, Interval: 1}, false},
		{"zero interval", RecurrenceConfig{Frequency: constants.FrequencyDaily}, true},
		{"bad frequency", RecurrenceConfig{Frequency: "hourly", Interval: 1}, true},
		{"custom without days", RecurrenceConfig{Frequency: constants.FrequencyCustom, Interval: 1}, true},
		{"after zero", RecurrenceConfig{Frequency: constants.FrequencyWeekly, Interval: 1, End: RecurrenceEnd{Kind: constants.EndAfter}}, true},
		{"on date missing", RecurrenceConfig{Frequency: constants.FrequencyWeekly, Interval: 1, End: RecurrenceEnd{Kind: constants.EndOnDate}}, true},
		{"bad month week", RecurrenceConfig{Frequency: constants.FrequencyMonthly, Interval: 1, MonthlyMode: constants.MonthlyByWeekday, MonthWeek: 5}, true},
		{"last weekday", RecurrenceConfig{Frequency: constants.FrequencyMonthly, Interval: 1, MonthlyMode: constants.MonthlyByWeekday, MonthWeek: -1}, false},
	}
	for _, tt := range tests {
		err := tt.cfg.Validate()
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: Validate() error = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
	}
}
