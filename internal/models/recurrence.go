package models

import (
	"fmt"
	"slices"
	"time"

	"github.com/julianstephens/shiftcal/internal/constants"
)

// RecurrenceEnd is the termination rule of a series.
type RecurrenceEnd struct {
	Kind  constants.EndKind `json:"kind"`
	Count int               `json:"count,omitempty"`
	Until time.Time         `json:"until,omitempty"`
}

// RecurrenceConfig lives on the defining occurrence of a series.
type RecurrenceConfig struct {
	Frequency constants.Frequency `json:"frequency"`
	Interval  int                 `json:"interval"`
	// Weekdays is indexed Monday=0 .. Sunday=6.
	Weekdays    [7]bool               `json:"weekdays"`
	MonthlyMode constants.MonthlyMode `json:"monthly_mode,omitempty"`
	// MonthWeek is 1..4 for first..fourth, -1 for last. Only used with MonthlyByWeekday.
	MonthWeek int           `json:"month_week,omitempty"`
	End       RecurrenceEnd `json:"end"`
}

// Clone returns a copy of the config.
func (c RecurrenceConfig) Clone() RecurrenceConfig {
	return c
}

// HasWeekdays reports whether any weekday marker is set.
func (c RecurrenceConfig) HasWeekdays() bool {
	return slices.Contains(c.Weekdays[:], true)
}

// Validate checks the config for values expansion cannot honor.
func (c RecurrenceConfig) Validate() error {
	switch c.Frequency {
	case constants.FrequencyDaily, constants.FrequencyWeekly, constants.FrequencyMonthly, constants.FrequencyCustom:
	default:
		return fmt.Errorf("unknown frequency %q", c.Frequency)
	}
	if c.Interval < 1 {
		return fmt.Errorf("interval must be at least 1, got %d", c.Interval)
	}
	if c.Frequency == constants.FrequencyCustom && !c.HasWeekdays() {
		return fmt.Errorf("custom frequency requires at least one weekday")
	}
	if c.Frequency == constants.FrequencyMonthly && c.MonthlyMode == constants.MonthlyByWeekday {
		if c.MonthWeek != -1 && (c.MonthWeek < 1 || c.MonthWeek > 4) {
			return fmt.Errorf("month week must be 1-4 or -1 (last), got %d", c.MonthWeek)
		}
	}
	switch c.End.Kind {
	case constants.EndAfter:
		if c.End.Count < 1 {
			return fmt.Errorf("occurrence count must be positive, got %d", c.End.Count)
		}
	case constants.EndOnDate:
		if c.End.Until.IsZero() {
			return fmt.Errorf("end date is required")
		}
	case constants.EndNever, "":
	default:
		return fmt.Errorf("unknown end kind %q", c.End.Kind)
	}
	return nil
}
