package ics

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	"github.com/julianstephens/shiftcal/internal/constants"
	"github.com/julianstephens/shiftcal/internal/logger"
	"github.com/julianstephens/shiftcal/internal/models"
	"github.com/julianstephens/shiftcal/internal/utils"
)

// Parse reads VEVENTs from r. Events with an RRULE come back as defining
// occurrences carrying a recurrence config; rules that cannot be expressed
// are dropped with a warning and the event imported on its own.
func Parse(r io.Reader) ([]models.Event, error) {
	cal, err := ical.ParseCalendar(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse calendar: %w", err)
	}

	var events []models.Event
	for _, ve := range cal.Events() {
		e, err := parseVEvent(ve)
		if err != nil {
			logger.Warn("Skipping VEVENT", "error", err)
			continue
		}
		events = append(events, e)
	}
	return events, nil
}

func parseVEvent(ve *ical.VEvent) (models.Event, error) {
	var e models.Event

	uid := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uid == nil || uid.Value == "" {
		return e, errors.New("missing UID")
	}
	e.ID = uid.Value

	start, err := ve.GetStartAt()
	if err != nil {
		return e, fmt.Errorf("event %s: %w", e.ID, err)
	}
	end, err := ve.GetEndAt()
	if err != nil {
		return e, fmt.Errorf("event %s: %w", e.ID, err)
	}
	e.Start, e.End = start, end

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		e.Title = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		e.Notes = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		e.Location = p.Value
	}
	if p := ve.GetProperty(propEmployees); p != nil && p.Value != "" {
		e.Employees = strings.Split(p.Value, ",")
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		cfg, err := recurrenceFromRule(p.Value, e.Start)
		if err != nil {
			logger.Warn("Importing recurring event as a single shift", "event", e.ID, "rrule", p.Value, "error", err)
		} else {
			e.Recurrence = &cfg
			e.IsRecurring = true
		}
	}
	e.ApplyPalette()
	return e, nil
}

// recurrenceFromRule maps the subset of RRULE the recurrence editor can
// express onto a config.
func recurrenceFromRule(value string, start time.Time) (models.RecurrenceConfig, error) {
	opt, err := rrule.StrToROption(value)
	if err != nil {
		return models.RecurrenceConfig{}, err
	}

	cfg := models.RecurrenceConfig{Interval: opt.Interval, End: models.RecurrenceEnd{Kind: constants.EndNever}}
	if cfg.Interval == 0 {
		cfg.Interval = 1
	}

	switch opt.Freq {
	case rrule.DAILY:
		cfg.Frequency = constants.FrequencyDaily
	case rrule.WEEKLY:
		cfg.Frequency = constants.FrequencyWeekly
		for _, wd := range opt.Byweekday {
			cfg.Weekdays[wd.Day()] = true
		}
		if cfg.HasWeekdays() {
			cfg.Frequency = constants.FrequencyCustom
		}
	case rrule.MONTHLY:
		cfg.Frequency = constants.FrequencyMonthly
		cfg.MonthlyMode = constants.MonthlyByDay
		if len(opt.Byweekday) == 1 && opt.Byweekday[0].N() != 0 {
			cfg.MonthlyMode = constants.MonthlyByWeekday
			cfg.MonthWeek = opt.Byweekday[0].N()
		}
	default:
		return models.RecurrenceConfig{}, fmt.Errorf("unsupported frequency %v", opt.Freq)
	}

	switch {
	case opt.Count > 0:
		cfg.End = models.RecurrenceEnd{Kind: constants.EndAfter, Count: opt.Count}
	case !opt.Until.IsZero():
		cfg.End = models.RecurrenceEnd{Kind: constants.EndOnDate, Until: utils.StartOfDay(opt.Until.In(start.Location()))}
	}
	return cfg, cfg.Validate()
}
