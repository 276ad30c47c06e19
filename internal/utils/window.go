package utils

import (
	"time"

	"github.com/julianstephens/shiftcal/internal/constants"
)

// ViewState is the anchor date plus the scroll offsets of the calendar window.
// The anchor only moves on navigation or when an offset reaches an extreme.
type ViewState struct {
	Anchor     time.Time          `json:"anchor"`
	Mode       constants.ViewMode `json:"mode"`
	DayOffset  int                `json:"day_offset"`
	WeekOffset int                `json:"week_offset"`
}

// NewViewState returns an unscrolled view anchored at the given date.
func NewViewState(anchor time.Time, mode constants.ViewMode) ViewState {
	if mode == "" {
		mode = constants.ViewWeek
	}
	return ViewState{Anchor: StartOfDay(anchor), Mode: mode}
}

// Offset returns the offset that applies to the current mode.
func (v ViewState) Offset() int {
	if v.Mode == constants.ViewDay {
		return v.DayOffset
	}
	return v.WeekOffset
}

// Scroll shifts the visible window by delta days without touching the anchor.
// When the offset reaches ±MaxScrollOffset the anchor advances by one week
// (week view) or one day (day view) and the offset resets to zero.
func (v ViewState) Scroll(delta int) ViewState {
	offset := clampOffset(v.Offset() + delta)

	if offset == constants.MaxScrollOffset || offset == -constants.MaxScrollOffset {
		dir := 1
		if offset < 0 {
			dir = -1
		}
		step := constants.DaysInWeek
		if v.Mode == constants.ViewDay {
			step = 1
		}
		v.Anchor = AddDays(v.Anchor, dir*step)
		offset = 0
	}

	if v.Mode == constants.ViewDay {
		v.DayOffset = offset
	} else {
		v.WeekOffset = offset
	}
	return v
}

// Navigate moves the anchor by one week or day and resets both offsets.
func (v ViewState) Navigate(dir int) ViewState {
	step := constants.DaysInWeek
	if v.Mode == constants.ViewDay {
		step = 1
	}
	v.Anchor = AddDays(v.Anchor, dir*step)
	v.DayOffset, v.WeekOffset = 0, 0
	return v
}

// GoTo re-anchors the view on date and resets both offsets.
func (v ViewState) GoTo(date time.Time) ViewState {
	v.Anchor = StartOfDay(date)
	v.DayOffset, v.WeekOffset = 0, 0
	return v
}

// WithMode switches between day and week view, keeping the anchor.
func (v ViewState) WithMode(mode constants.ViewMode) ViewState {
	v.Mode = mode
	return v
}

// VisibleDates returns midnight of each visible day, in column order.
func (v ViewState) VisibleDates() []time.Time {
	if v.Mode == constants.ViewDay {
		return []time.Time{AddDays(StartOfDay(v.Anchor), v.DayOffset)}
	}
	return ScrollableWeekDates(v.Anchor, v.WeekOffset)
}

// WindowStart returns midnight of the first visible day.
func (v ViewState) WindowStart() time.Time {
	return v.VisibleDates()[0]
}

// WindowEnd returns the exclusive end of the visible window.
func (v ViewState) WindowEnd() time.Time {
	dates := v.VisibleDates()
	return AddDays(dates[len(dates)-1], 1)
}

// ColumnCount is the number of day columns in the window.
func (v ViewState) ColumnCount() int {
	if v.Mode == constants.ViewDay {
		return 1
	}
	return constants.DaysInWeek
}

// Column returns the window column index for t and whether it is visible.
func (v ViewState) Column(t time.Time) (int, bool) {
	day := StartOfDay(t.In(v.Anchor.Location()))
	if day.Before(v.WindowStart()) || !day.Before(v.WindowEnd()) {
		return 0, false
	}
	if v.Mode == constants.ViewDay {
		return 0, true
	}
	return ScrollableDayIndex(day, v.WeekOffset), true
}

// ScrollableWeekDates returns the seven dates starting at the anchor's Monday shifted by offset days.
func ScrollableWeekDates(anchor time.Time, offset int) []time.Time {
	start := AddDays(StartOfWeek(anchor), offset)
	dates := make([]time.Time, constants.DaysInWeek)
	for i := range dates {
		dates[i] = AddDays(start, i)
	}
	return dates
}

// ScrollableDayIndex maps a date onto its column in a window scrolled by offset.
func ScrollableDayIndex(t time.Time, offset int) int {
	return mod(MondayIndex(t)-offset, constants.DaysInWeek)
}

func clampOffset(o int) int {
	if o > constants.MaxScrollOffset {
		return constants.MaxScrollOffset
	}
	if o < -constants.MaxScrollOffset {
		return -constants.MaxScrollOffset
	}
	return o
}
