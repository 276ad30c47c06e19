package caldav

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-ical"

	"github.com/julianstephens/shiftcal/internal/constants"
	"github.com/julianstephens/shiftcal/internal/models"
	"github.com/julianstephens/shiftcal/internal/storage"
)

// Extension properties carrying fields VEVENT has no slot for.
const (
	propOwner        = "X-SHIFTCAL-OWNER"
	propEmployees    = "X-SHIFTCAL-EMPLOYEES"
	propRecurrenceID = "X-SHIFTCAL-RECURRENCE-ID"
	propIsRecurring  = "X-SHIFTCAL-IS-RECURRING"
	propRecurrence   = "X-SHIFTCAL-RECURRENCE"
	propDetached     = "X-SHIFTCAL-DETACHED"
)

var productID = "-//" + constants.AppName + "//CalDAV//EN"

// encodeEvent converts e into a single-VEVENT calendar object.
func encodeEvent(e models.Event, owner string) (*ical.Calendar, error) {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)

	vevent := ical.NewEvent()
	vevent.Props.SetText(ical.PropUID, e.ID)
	vevent.Props.SetText(ical.PropSummary, e.Title)
	if e.Notes != "" {
		vevent.Props.SetText(ical.PropDescription, e.Notes)
	}
	if e.Location != "" {
		vevent.Props.SetText(ical.PropLocation, e.Location)
	}
	vevent.Props.SetDateTime(ical.PropDateTimeStart, e.Start.UTC())
	vevent.Props.SetDateTime(ical.PropDateTimeEnd, e.End.UTC())
	vevent.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())

	vevent.Props.SetText(propOwner, owner)
	if len(e.Employees) > 0 {
		vevent.Props.SetText(propEmployees, strings.Join(e.Employees, ","))
	}
	if e.RecurrenceID != "" {
		vevent.Props.SetText(propRecurrenceID, e.RecurrenceID)
	}
	if e.IsRecurring {
		vevent.Props.SetText(propIsRecurring, "true")
	}
	if e.Detached {
		vevent.Props.SetText(propDetached, "true")
	}
	if e.Recurrence != nil {
		b, err := json.Marshal(e.Recurrence)
		if err != nil {
			return nil, err
		}
		vevent.Props.SetText(propRecurrence, string(b))
	}

	cal.Children = append(cal.Children, vevent.Component)
	return cal, nil
}

// decodeEvent reads the first VEVENT of cal. It returns the owner stored
// alongside the event.
func decodeEvent(cal *ical.Calendar) (models.Event, string, error) {
	if cal == nil {
		return models.Event{}, "", fmt.Errorf("no data in calendar object")
	}

	for _, comp := range cal.Children {
		if comp.Name != ical.CompEvent {
			continue
		}

		var e models.Event
		e.ID = text(comp.Props, ical.PropUID)
		if e.ID == "" {
			return models.Event{}, "", fmt.Errorf("missing UID")
		}
		e.Title = text(comp.Props, ical.PropSummary)
		e.Notes = text(comp.Props, ical.PropDescription)
		e.Location = text(comp.Props, ical.PropLocation)

		start, err := dateTime(comp.Props, ical.PropDateTimeStart)
		if err != nil {
			return models.Event{}, "", fmt.Errorf("event %s: %w", e.ID, err)
		}
		end, err := dateTime(comp.Props, ical.PropDateTimeEnd)
		if err != nil {
			return models.Event{}, "", fmt.Errorf("event %s: %w", e.ID, err)
		}
		e.Start, e.End = start, end

		if v := text(comp.Props, propEmployees); v != "" {
			e.Employees = strings.Split(v, ",")
		}
		e.RecurrenceID = text(comp.Props, propRecurrenceID)
		e.IsRecurring, _ = strconv.ParseBool(text(comp.Props, propIsRecurring))
		e.Detached, _ = strconv.ParseBool(text(comp.Props, propDetached))
		if v := text(comp.Props, propRecurrence); v != "" {
			var cfg models.RecurrenceConfig
			if err := json.Unmarshal([]byte(v), &cfg); err != nil {
				return models.Event{}, "", fmt.Errorf("event %s recurrence: %w", e.ID, err)
			}
			e.Recurrence = &cfg
		}
		storage.MarkStored(&e)
		return e, text(comp.Props, propOwner), nil
	}
	return models.Event{}, "", fmt.Errorf("no VEVENT in calendar object")
}

func text(props ical.Props, name string) string {
	prop := props.Get(name)
	if prop == nil {
		return ""
	}
	v, err := prop.Text()
	if err != nil {
		return prop.Value
	}
	return v
}

func dateTime(props ical.Props, name string) (time.Time, error) {
	prop := props.Get(name)
	if prop == nil {
		return time.Time{}, fmt.Errorf("missing %s", name)
	}
	return prop.DateTime(time.UTC)
}
