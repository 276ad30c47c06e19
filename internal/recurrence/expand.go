// Package recurrence expands recurring shift definitions and rewrites series
// in response to single, future and all-instance edits.
package recurrence

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/teambition/rrule-go"

	"github.com/julianstephens/shiftcal/internal/constants"
	"github.com/julianstephens/shiftcal/internal/logger"
	"github.com/julianstephens/shiftcal/internal/models"
	"github.com/julianstephens/shiftcal/internal/utils"
)

// newID mints identifiers for series and generated instances.
var newID = uuid.NewString

// Instance is one concrete occurrence of a series.
type Instance struct {
	Start time.Time
	End   time.Time
}

// ExpandResult is the outcome of expanding one defining occurrence.
type ExpandResult struct {
	Instances []Instance
	// Truncated is set when a safety cap stopped the expansion.
	Truncated bool
	// Fallback holds the reason expansion degraded to the defining occurrence only.
	Fallback error
}

// Expand generates the occurrences of a series. The defining occurrence is
// always first; later occurrences on an already used calendar day are
// skipped. Expansion stops at the configured end, 200 instances or two years
// after the defining start, whichever comes first. An invalid config yields
// only the defining occurrence.
func Expand(defining models.Event, cfg *models.RecurrenceConfig) ExpandResult {
	first := Instance{Start: defining.Start, End: defining.End}
	if cfg == nil {
		return ExpandResult{Instances: []Instance{first}}
	}
	if err := cfg.Validate(); err != nil {
		logger.Warn("Invalid recurrence config, treating event as non-recurring", "event", defining.ID, "error", err)
		return ExpandResult{Instances: []Instance{first}, Fallback: err}
	}
	if !defining.End.After(defining.Start) {
		err := fmt.Errorf("defining occurrence has non-positive duration")
		logger.Warn("Invalid recurrence config, treating event as non-recurring", "event", defining.ID, "error", err)
		return ExpandResult{Instances: []Instance{first}, Fallback: err}
	}

	limit := constants.MaxOccurrences
	capped := true
	if cfg.End.Kind == constants.EndAfter && cfg.End.Count <= limit {
		limit = cfg.End.Count
		capped = false
	}
	horizon := defining.Start.AddDate(constants.MaxHorizonYears, 0, 0)
	until := horizon
	if cfg.End.Kind == constants.EndOnDate {
		u := cfg.End.Until.In(defining.Start.Location())
		endOfDay := utils.StartOfDay(u).Add(24*time.Hour - time.Millisecond)
		if endOfDay.Before(until) {
			until = endOfDay
		}
	}

	rule, err := rrule.NewRRule(buildOption(defining.Start, *cfg, until))
	if err != nil {
		logger.Warn("Failed to build recurrence rule, treating event as non-recurring", "event", defining.ID, "error", err)
		return ExpandResult{Instances: []Instance{first}, Fallback: err}
	}

	dur := defining.Duration()
	result := ExpandResult{Instances: []Instance{first}}
	seen := map[string]struct{}{dayKey(defining.Start): {}}

	for _, start := range rule.Between(defining.Start, until, true) {
		start = start.In(defining.Start.Location())
		key := dayKey(start)
		if _, dup := seen[key]; dup {
			continue
		}
		if len(result.Instances) >= limit {
			result.Truncated = capped
			break
		}
		seen[key] = struct{}{}
		result.Instances = append(result.Instances, Instance{Start: start, End: start.Add(dur)})
	}
	if result.Truncated {
		logger.Warn("Recurrence expansion hit the safety cap", "event", defining.ID, "cap", limit)
	}
	return result
}

func buildOption(start time.Time, cfg models.RecurrenceConfig, until time.Time) rrule.ROption {
	opt := rrule.ROption{
		Dtstart:  start,
		Interval: cfg.Interval,
		Until:    until,
		Wkst:     rrule.MO,
	}

	switch cfg.Frequency {
	case constants.FrequencyDaily:
		opt.Freq = rrule.DAILY
	case constants.FrequencyWeekly, constants.FrequencyCustom:
		opt.Freq = rrule.WEEKLY
		opt.Byweekday = weekdays(cfg.Weekdays)
	case constants.FrequencyMonthly:
		opt.Freq = rrule.MONTHLY
		if cfg.MonthlyMode == constants.MonthlyByWeekday {
			wd := rruleWeekday(start.Weekday())
			opt.Byweekday = []rrule.Weekday{wd.Nth(cfg.MonthWeek)}
		} else {
			// Short months fall back to their last day.
			day := start.Day()
			if day > 28 {
				for d := 28; d <= day; d++ {
					opt.Bymonthday = append(opt.Bymonthday, d)
				}
				opt.Bysetpos = []int{-1}
			} else {
				opt.Bymonthday = []int{day}
			}
		}
	}
	return opt
}

// weekdays converts Monday-based markers into rrule weekdays.
func weekdays(marks [7]bool) []rrule.Weekday {
	var out []rrule.Weekday
	for i, on := range marks {
		if on {
			out = append(out, rruleWeekday(utils.WeekdayFromMondayIndex(i)))
		}
	}
	return out
}

func rruleWeekday(w time.Weekday) rrule.Weekday {
	switch w {
	case time.Monday:
		return rrule.MO
	case time.Tuesday:
		return rrule.TU
	case time.Wednesday:
		return rrule.WE
	case time.Thursday:
		return rrule.TH
	case time.Friday:
		return rrule.FR
	case time.Saturday:
		return rrule.SA
	default:
		return rrule.SU
	}
}

func dayKey(t time.Time) string {
	return t.Format(constants.DateFormat)
}

// Materialize turns an expansion into events. The first instance keeps the
// defining event's id and recurrence config; the rest get fresh ids. Every
// instance shares recurrenceID.
func Materialize(defining models.Event, recurrenceID string, res ExpandResult) []models.Event {
	out := make([]models.Event, 0, len(res.Instances))
	for i, inst := range res.Instances {
		e := defining.Clone()
		e.Start, e.End = inst.Start, inst.End
		e.ClearTransient()
		if res.Fallback != nil {
			e.RecurrenceID = ""
			e.IsRecurring = false
			e.Recurrence = nil
			out = append(out, e)
			break
		}
		e.RecurrenceID = recurrenceID
		if i == 0 {
			e.IsRecurring = true
		} else {
			e.ID = newID()
			e.IsRecurring = false
			e.Recurrence = nil
		}
		out = append(out, e)
	}
	return out
}

// NewSeriesID mints a recurrence group identifier.
func NewSeriesID() string {
	return newID()
}

// RuleString renders cfg as an RFC 5545 RRULE value for a series starting
// at start. Unlike Expand it carries no safety caps.
func RuleString(start time.Time, cfg models.RecurrenceConfig) (string, error) {
	if err := cfg.Validate(); err != nil {
		return "", err
	}
	var until time.Time
	if cfg.End.Kind == constants.EndOnDate {
		u := cfg.End.Until.In(start.Location())
		until = utils.StartOfDay(u).Add(24*time.Hour - time.Second)
	}
	opt := buildOption(start, cfg, until)
	if cfg.End.Kind == constants.EndAfter {
		opt.Count = cfg.End.Count
	}
	return opt.RRuleString(), nil
}
