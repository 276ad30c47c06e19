package models

import (
	"slices"
	"time"

	"github.com/julianstephens/shiftcal/internal/constants"
)

// Event is a single time-boxed shift on the calendar.
type Event struct {
	ID           string            `json:"id"`
	Start        time.Time         `json:"start"`
	End          time.Time         `json:"end"`
	Title        string            `json:"title,omitempty"`
	Location     string            `json:"location,omitempty"`
	Notes        string            `json:"notes,omitempty"`
	Employees    []string          `json:"employees,omitempty"`
	Color        string            `json:"color,omitempty"`
	Color1       string            `json:"color1,omitempty"`
	Color2       string            `json:"color2,omitempty"`
	IsValidated  bool              `json:"is_validated"`
	FromDatabase bool              `json:"from_database"`
	RecurrenceID string            `json:"recurrence_id,omitempty"`
	IsRecurring  bool              `json:"is_recurring"`
	Recurrence   *RecurrenceConfig `json:"recurrence,omitempty"`
	// Detached is set on an instance that left its series through a single-scope edit.
	Detached  bool      `json:"detached,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`

	IsBeingMoved   bool `json:"-"`
	IsBeingResized bool `json:"-"`
}

// Duration returns End - Start.
func (e Event) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// InSeries reports whether the event carries a series group id.
func (e Event) InSeries() bool {
	return e.RecurrenceID != ""
}

// Overlaps reports whether two half-open intervals intersect.
func (e Event) Overlaps(o Event) bool {
	return e.Start.Before(o.End) && e.End.After(o.Start)
}

// SameGeometry reports whether start and end are identical.
func (e Event) SameGeometry(o Event) bool {
	return e.Start.Equal(o.Start) && e.End.Equal(o.End)
}

// Clone returns a deep copy so slices and the recurrence pointer are not shared.
func (e Event) Clone() Event {
	c := e
	c.Employees = slices.Clone(e.Employees)
	if e.Recurrence != nil {
		r := e.Recurrence.Clone()
		c.Recurrence = &r
	}
	return c
}

// ApplyPalette sets the color triple from the validation status.
func (e *Event) ApplyPalette() {
	p := constants.PaletteFor(e.IsValidated)
	e.Color, e.Color1, e.Color2 = p.Color, p.Color1, p.Color2
}

// ClearTransient resets gesture-only flags.
func (e *Event) ClearTransient() {
	e.IsBeingMoved = false
	e.IsBeingResized = false
}

// CloneEvents deep-copies a slice of events.
func CloneEvents(events []Event) []Event {
	if events == nil {
		return nil
	}
	out := make([]Event, len(events))
	for i, e := range events {
		out[i] = e.Clone()
	}
	return out
}
