package layout

import (
	"sort"
	"time"

	"github.com/julianstephens/shiftcal/internal/constants"
	"github.com/julianstephens/shiftcal/internal/models"
	"github.com/julianstephens/shiftcal/internal/utils"
)

// Config holds the vertical scale of the time grid.
type Config struct {
	PixelsPerHour float64
	MinHeight     float64
}

// DefaultConfig returns the standard grid scale.
func DefaultConfig() Config {
	return Config{
		PixelsPerHour: constants.PixelsPerHour,
		MinHeight:     constants.MinEventHeightPx,
	}
}

// PositionedEvent is one visual fragment of an event inside the visible window.
// Top and Height are pixels from midnight; Left and Width are percentages of
// the whole track.
type PositionedEvent struct {
	EventID   string
	Event     models.Event
	Date      time.Time
	DayColumn int
	Start     time.Time
	End       time.Time

	Column       int
	TotalColumns int

	Top    float64
	Height float64
	Left   float64
	Width  float64

	IsMultiDay      bool
	IsFirstFragment bool
	IsLastFragment  bool
	ResizableTop    bool
	ResizableBottom bool
	Pending         bool
}

// Layout computes the geometry of every visible fragment of events in view.
// The result is ordered by day column, then start time.
func Layout(events []models.Event, view utils.ViewState, cfg Config) []PositionedEvent {
	if cfg.PixelsPerHour <= 0 {
		cfg = DefaultConfig()
	}

	byColumn := make(map[int][]*PositionedEvent)
	for _, e := range events {
		for _, frag := range Segment(e, view) {
			f := frag
			byColumn[f.DayColumn] = append(byColumn[f.DayColumn], &f)
		}
	}

	dayWidth := 100.0 / float64(view.ColumnCount())
	var out []PositionedEvent
	for col := 0; col < view.ColumnCount(); col++ {
		frags := byColumn[col]
		if len(frags) == 0 {
			continue
		}
		assignColumns(frags, cfg)
		for _, f := range frags {
			width := dayWidth / float64(f.TotalColumns)
			f.Left = float64(col)*dayWidth + float64(f.Column)*width
			f.Width = width
			f.Top = utils.MinutesSinceMidnight(f.Start) / 60 * cfg.PixelsPerHour
			f.Height = fragmentHeight(*f, cfg)
			out = append(out, *f)
		}
	}
	return out
}

// Segment splits an event into one fragment per calendar day it spans and
// keeps only the fragments inside the visible window. Geometry fields other
// than the day column are left zero.
func Segment(e models.Event, view utils.ViewState) []PositionedEvent {
	loc := view.Anchor.Location()
	start := e.Start.In(loc)
	end := e.End.In(loc)
	if end.Before(start) {
		end = start
	}

	firstDay := utils.StartOfDay(start)
	lastDay := utils.StartOfDay(end)
	if end.Equal(lastDay) && end.After(start) {
		// ends exactly at midnight: the following day holds nothing
		lastDay = utils.AddDays(lastDay, -1)
	}
	multi := lastDay.After(firstDay)

	var frags []PositionedEvent
	for day := firstDay; !day.After(lastDay); day = utils.AddDays(day, 1) {
		col, ok := view.Column(day)
		if !ok {
			continue
		}
		next := utils.AddDays(day, 1)
		fs, fe := start, end
		if fs.Before(day) {
			fs = day
		}
		if fe.After(next) {
			fe = next
		}
		first := day.Equal(firstDay)
		last := day.Equal(lastDay)
		frags = append(frags, PositionedEvent{
			EventID:         e.ID,
			Event:           e,
			Date:            day,
			DayColumn:       col,
			Start:           fs,
			End:             fe,
			IsMultiDay:      multi,
			IsFirstFragment: first,
			IsLastFragment:  last,
			ResizableTop:    first,
			ResizableBottom: last,
			Pending:         !e.IsValidated,
		})
	}
	return frags
}

// assignColumns groups transitively overlapping fragments and gives each the
// smallest column that is free at its start.
func assignColumns(frags []*PositionedEvent, cfg Config) {
	sort.SliceStable(frags, func(i, j int) bool {
		a, b := frags[i], frags[j]
		if !a.Start.Equal(b.Start) {
			return a.Start.Before(b.Start)
		}
		if !a.End.Equal(b.End) {
			return a.End.Before(b.End)
		}
		return a.EventID < b.EventID
	})

	var group []*PositionedEvent
	var colEnds []time.Time
	var groupEnd time.Time

	flush := func() {
		for _, f := range group {
			f.TotalColumns = len(colEnds)
		}
		group = group[:0]
		colEnds = colEnds[:0]
	}

	for _, f := range frags {
		vEnd := visualEnd(*f, cfg)
		if len(group) > 0 && !f.Start.Before(groupEnd) {
			flush()
		}
		placed := false
		for c, ce := range colEnds {
			if !f.Start.Before(ce) {
				f.Column = c
				colEnds[c] = vEnd
				placed = true
				break
			}
		}
		if !placed {
			f.Column = len(colEnds)
			colEnds = append(colEnds, vEnd)
		}
		if len(group) == 0 || vEnd.After(groupEnd) {
			groupEnd = vEnd
		}
		group = append(group, f)
	}
	flush()
}

// visualEnd extends short fragments to the instant their minimum height
// reaches, so they are laid out against what is actually drawn.
func visualEnd(f PositionedEvent, cfg Config) time.Time {
	minDur := time.Duration(cfg.MinHeight / cfg.PixelsPerHour * float64(time.Hour))
	if f.End.Sub(f.Start) < minDur {
		return f.Start.Add(minDur)
	}
	return f.End
}

func fragmentHeight(f PositionedEvent, cfg Config) float64 {
	h := f.End.Sub(f.Start).Hours() * cfg.PixelsPerHour
	if h < cfg.MinHeight {
		return cfg.MinHeight
	}
	return h
}
