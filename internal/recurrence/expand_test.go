package recurrence

import (
	"strings"
	"testing"
	"time"

	"github.com/julianstephens/shiftcal/internal/constants"
	"github.com/julianstephens/shiftcal/internal/models"
)

func shift(start time.Time, d time.Duration) models.Event {
	return models.Event{ID: "def", Start: start, End: start.Add(d), Title: "Front desk"}
}

func TestExpandWeeklyCount(t *testing.T) {
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	cfg := &models.RecurrenceConfig{
		Frequency: constants.FrequencyWeekly,
		Interval:  1,
		End:       models.RecurrenceEnd{Kind: constants.EndAfter, Count: 10},
	}
	res := Expand(shift(start, time.Hour), cfg)
	if len(res.Instances) != 10 {
		t.Fatalf("expected 10 instances, got %d", len(res.Instances))
	}
	for i, inst := range res.Instances {
		want := start.AddDate(0, 0, 7*i)
		if !inst.Start.Equal(want) || inst.End.Sub(inst.Start) != time.Hour {
			t.Errorf("instance %d: %v-%v, want start %v", i, inst.Start, inst.End, want)
		}
	}
	if res.Truncated || res.Fallback != nil {
		t.Errorf("unexpected truncation/fallback: %+v", res)
	}
}

func TestExpandDailyNeverHitsCap(t *testing.T) {
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	cfg := &models.RecurrenceConfig{Frequency: constants.FrequencyDaily, Interval: 1, End: models.RecurrenceEnd{Kind: constants.EndNever}}
	res := Expand(shift(start, time.Hour), cfg)
	if len(res.Instances) != constants.MaxOccurrences {
		t.Fatalf("expected cap of %d, got %d", constants.MaxOccurrences, len(res.Instances))
	}
	if !res.Truncated {
		t.Error("expected truncated flag")
	}
}

func TestExpandCountAboveCap(t *testing.T) {
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	cfg := &models.RecurrenceConfig{Frequency: constants.FrequencyDaily, Interval: 1, End: models.RecurrenceEnd{Kind: constants.EndAfter, Count: 500}}
	res := Expand(shift(start, time.Hour), cfg)
	if len(res.Instances) != constants.MaxOccurrences || !res.Truncated {
		t.Fatalf("got %d instances truncated=%v", len(res.Instances), res.Truncated)
	}
}

func TestExpandWeeklyNeverStopsAtHorizon(t *testing.T) {
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	cfg := &models.RecurrenceConfig{Frequency: constants.FrequencyWeekly, Interval: 1}
	res := Expand(shift(start, time.Hour), cfg)
	horizon := start.AddDate(constants.MaxHorizonYears, 0, 0)
	if len(res.Instances) < 100 || len(res.Instances) >= constants.MaxOccurrences {
		t.Fatalf("unexpected count %d", len(res.Instances))
	}
	if last := res.Instances[len(res.Instances)-1]; last.Start.After(horizon) {
		t.Errorf("instance %v beyond horizon %v", last.Start, horizon)
	}
}

func TestExpandUntilDateInclusive(t *testing.T) {
	start := time.Date(2024, 1, 1, 22, 0, 0, 0, time.UTC)
	cfg := &models.RecurrenceConfig{
		Frequency: constants.FrequencyDaily,
		Interval:  1,
		End:       models.RecurrenceEnd{Kind: constants.EndOnDate, Until: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)},
	}
	res := Expand(shift(start, time.Hour), cfg)
	if len(res.Instances) != 5 {
		t.Fatalf("expected 5 instances through Jan 5, got %d", len(res.Instances))
	}
}

func TestExpandCustomWeekdaysKeepsDefiningFirst(t *testing.T) {
	tuesday := time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC)
	cfg := &models.RecurrenceConfig{
		Frequency: constants.FrequencyCustom,
		Interval:  1,
		Weekdays:  [7]bool{true, false, true, false, true, false, false},
		End:       models.RecurrenceEnd{Kind: constants.EndAfter, Count: 4},
	}
	res := Expand(shift(tuesday, 8*time.Hour), cfg)
	want := []int{2, 3, 5, 8}
	if len(res.Instances) != len(want) {
		t.Fatalf("got %d instances", len(res.Instances))
	}
	for i, d := range want {
		if res.Instances[i].Start.Day() != d {
			t.Errorf("instance %d on day %d, want %d", i, res.Instances[i].Start.Day(), d)
		}
	}
}

func TestExpandMonthlyClampsToMonthEnd(t *testing.T) {
	start := time.Date(2024, 1, 31, 9, 0, 0, 0, time.UTC)
	cfg := &models.RecurrenceConfig{
		Frequency:   constants.FrequencyMonthly,
		Interval:    1,
		MonthlyMode: constants.MonthlyByDay,
		End:         models.RecurrenceEnd{Kind: constants.EndAfter, Count: 4},
	}
	res := Expand(shift(start, time.Hour), cfg)
	want := []string{"2024-01-31", "2024-02-29", "2024-03-31", "2024-04-30"}
	if len(res.Instances) != len(want) {
		t.Fatalf("got %d instances", len(res.Instances))
	}
	for i, w := range want {
		if got := res.Instances[i].Start.Format(constants.DateFormat); got != w {
			t.Errorf("instance %d = %s, want %s", i, got, w)
		}
	}
}

func TestExpandMonthlyLastWeekday(t *testing.T) {
	start := time.Date(2024, 1, 26, 9, 0, 0, 0, time.UTC) // last Friday of January
	cfg := &models.RecurrenceConfig{
		Frequency:   constants.FrequencyMonthly,
		Interval:    1,
		MonthlyMode: constants.MonthlyByWeekday,
		MonthWeek:   -1,
		End:         models.RecurrenceEnd{Kind: constants.EndAfter, Count: 3},
	}
	res := Expand(shift(start, time.Hour), cfg)
	want := []string{"2024-01-26", "2024-02-23", "2024-03-29"}
	if len(res.Instances) != len(want) {
		t.Fatalf("got %d instances", len(res.Instances))
	}
	for i, w := range want {
		if got := res.Instances[i].Start.Format(constants.DateFormat); got != w {
			t.Errorf("instance %d = %s, want %s", i, got, w)
		}
	}
}

func TestExpandInvalidConfigFallsBack(t *testing.T) {
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	res := Expand(shift(start, time.Hour), &models.RecurrenceConfig{Frequency: "yearly", Interval: 1})
	if len(res.Instances) != 1 || res.Fallback == nil {
		t.Fatalf("expected defining occurrence only with fallback, got %+v", res)
	}

	events := Materialize(shift(start, time.Hour), "series", res)
	if len(events) != 1 || events[0].RecurrenceID != "" || events[0].IsRecurring {
		t.Errorf("fallback should produce a standalone event, got %+v", events)
	}
}

func TestMaterialize(t *testing.T) {
	restore := stubIDs(t)
	defer restore()

	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	def := shift(start, time.Hour)
	def.Recurrence = &models.RecurrenceConfig{Frequency: constants.FrequencyDaily, Interval: 1, End: models.RecurrenceEnd{Kind: constants.EndAfter, Count: 3}}
	events := Materialize(def, "series-1", Expand(def, def.Recurrence))
	if len(events) != 3 {
		t.Fatalf("got %d events", len(events))
	}
	if events[0].ID != "def" || !events[0].IsRecurring || events[0].Recurrence == nil {
		t.Errorf("defining occurrence wrong: %+v", events[0])
	}
	for _, e := range events[1:] {
		if e.IsRecurring || e.Recurrence != nil || e.ID == "def" {
			t.Errorf("generated instance wrong: %+v", e)
		}
	}
	for _, e := range events {
		if e.RecurrenceID != "series-1" {
			t.Errorf("%s has recurrence id %q", e.ID, e.RecurrenceID)
		}
	}
}

func TestRuleString(t *testing.T) {
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	tests := []struct {
		name  string
		cfg   models.RecurrenceConfig
		wants []string
	}{
		{
			name:  "weekly count",
			cfg:   models.RecurrenceConfig{Frequency: constants.FrequencyWeekly, Interval: 2, End: models.RecurrenceEnd{Kind: constants.EndAfter, Count: 5}},
			wants: []string{"FREQ=WEEKLY", "INTERVAL=2", "COUNT=5"},
		},
		{
			name:  "daily never",
			cfg:   models.RecurrenceConfig{Frequency: constants.FrequencyDaily, Interval: 1, End: models.RecurrenceEnd{Kind: constants.EndNever}},
			wants: []string{"FREQ=DAILY"},
		},
		{
			name: "custom weekdays until",
			cfg: models.RecurrenceConfig{
				Frequency: constants.FrequencyCustom,
				Interval:  1,
				Weekdays:  [7]bool{true, false, true},
				End:       models.RecurrenceEnd{Kind: constants.EndOnDate, Until: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)},
			},
			wants: []string{"FREQ=WEEKLY", "BYDAY=MO,WE", "UNTIL=20240201T235959Z"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RuleString(start, tt.cfg)
			if err != nil {
				t.Fatalf("RuleString() error = %v", err)
			}
			for _, want := range tt.wants {
				if !strings.Contains(got, want) {
					t.Errorf("RuleString() = %q, missing %q", got, want)
				}
			}
		})
	}

	if _, err := RuleString(start, models.RecurrenceConfig{Frequency: constants.FrequencyDaily}); err == nil {
		t.Error("expected error for zero interval")
	}
}
