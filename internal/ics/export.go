// Package ics exports shifts to iCalendar files and imports them back.
package ics

import (
	"io"
	"sort"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/julianstephens/shiftcal/internal/constants"
	"github.com/julianstephens/shiftcal/internal/logger"
	"github.com/julianstephens/shiftcal/internal/models"
	"github.com/julianstephens/shiftcal/internal/recurrence"
)

const (
	propRecurrenceID = ical.ComponentProperty("X-SHIFTCAL-RECURRENCE-ID")
	propEmployees    = ical.ComponentProperty("X-SHIFTCAL-EMPLOYEES")
)

// Options controls export.
type Options struct {
	// Name is written as X-WR-CALNAME.
	Name string
	// Rules collapses an untouched series into its defining VEVENT with an
	// RRULE. Series with moved or removed instances are always written out
	// instance by instance.
	Rules bool
}

// Export writes events as a VCALENDAR to w.
func Export(w io.Writer, events []models.Event, opts Options) error {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//" + constants.AppName + "//" + constants.Version + "//EN")
	if opts.Name != "" {
		cal.SetXWRCalName(opts.Name)
	}

	sorted := models.CloneEvents(events)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })

	collapsed := map[string]bool{}
	if opts.Rules {
		collapsed = collapsible(sorted)
	}

	stamp := time.Now().UTC()
	for _, e := range sorted {
		if collapsed[e.RecurrenceID] && !e.IsRecurring {
			continue
		}
		ve := cal.AddEvent(e.ID)
		ve.SetDtStampTime(stamp)
		ve.SetStartAt(e.Start.UTC())
		ve.SetEndAt(e.End.UTC())
		ve.SetSummary(e.Title)
		if e.Location != "" {
			ve.SetLocation(e.Location)
		}
		if e.Notes != "" {
			ve.SetDescription(e.Notes)
		}
		if len(e.Employees) > 0 {
			ve.SetProperty(propEmployees, strings.Join(e.Employees, ","))
		}
		if e.RecurrenceID != "" {
			ve.SetProperty(propRecurrenceID, e.RecurrenceID)
		}
		if collapsed[e.RecurrenceID] && e.IsRecurring {
			rule, err := recurrence.RuleString(e.Start.UTC(), *e.Recurrence)
			if err != nil {
				return err
			}
			ve.AddRrule(rule)
		}
	}

	_, err := io.WriteString(w, cal.Serialize())
	return err
}

// collapsible returns the recurrence ids whose members are exactly what
// their defining occurrence expands to.
func collapsible(events []models.Event) map[string]bool {
	series := map[string][]models.Event{}
	for _, e := range events {
		if e.RecurrenceID != "" {
			series[e.RecurrenceID] = append(series[e.RecurrenceID], e)
		}
	}

	out := map[string]bool{}
	for id, members := range series {
		def, ok := recurrence.Defining(members, members[0])
		if !ok || !def.IsRecurring || def.Recurrence == nil {
			continue
		}
		res := recurrence.Expand(def, def.Recurrence)
		if res.Fallback != nil || res.Truncated || len(res.Instances) != len(members) {
			continue
		}
		match := true
		for i, inst := range res.Instances {
			m := members[i]
			if m.Detached || !m.Start.Equal(inst.Start) || !m.End.Equal(inst.End) || !sameContent(m, def) {
				match = false
				break
			}
		}
		if match {
			out[id] = true
		} else {
			logger.Debug("Exporting modified series instance by instance", "recurrence_id", id)
		}
	}
	return out
}

func sameContent(a, b models.Event) bool {
	return a.Title == b.Title && a.Location == b.Location && a.Notes == b.Notes &&
		strings.Join(a.Employees, ",") == strings.Join(b.Employees, ",")
}
