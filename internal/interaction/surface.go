package interaction

import (
	"math"
	"time"

	"github.com/julianstephens/shiftcal/internal/constants"
	"github.com/julianstephens/shiftcal/internal/layout"
	"github.com/julianstephens/shiftcal/internal/utils"
)

// Point is a pointer position in grid content coordinates: X from the left
// edge of the track, Y from midnight of the grid (scroll included).
type Point struct {
	X float64
	Y float64
}

// Surface describes the scrollable time grid the pointer moves over.
type Surface struct {
	View   utils.ViewState
	Grid   layout.Config
	Width  float64
	Height float64 // viewport height
	// ScrollTop is how far the viewport is scrolled down, in pixels.
	ScrollTop float64
}

// DayAt returns midnight of the visible day under x.
func (s Surface) DayAt(x float64) time.Time {
	dates := s.View.VisibleDates()
	if len(dates) == 1 || s.Width <= 0 {
		return dates[0]
	}
	col := int(math.Floor(x / (s.Width / float64(len(dates)))))
	if col < 0 {
		col = 0
	}
	if col >= len(dates) {
		col = len(dates) - 1
	}
	return dates[col]
}

// TimeAt converts a point into an instant, unsnapped.
func (s Surface) TimeAt(p Point) time.Time {
	return s.DayAt(p.X).Add(time.Duration(s.minutesAt(p.Y) * float64(time.Minute)))
}

// SnappedTimeAt converts a point into an instant on the 15 minute grid.
func (s Surface) SnappedTimeAt(p Point) time.Time {
	return s.DayAt(p.X).Add(time.Duration(utils.SnapMinutes(s.minutesAt(p.Y))) * time.Minute)
}

func (s Surface) minutesAt(y float64) float64 {
	return math.Min(math.Max(s.Grid.MinutesAtY(y), 0), 24*60)
}

// edge reports which auto-scroll zone p is in.
func (s Surface) edge(p Point) Direction {
	vy := p.Y - s.ScrollTop
	if s.Height > 0 {
		if vy < constants.AutoScrollEdgePx {
			return ScrollUp
		}
		if vy > s.Height-constants.AutoScrollEdgePx {
			return ScrollDown
		}
	}
	if s.View.Mode == constants.ViewWeek && s.Width > 0 {
		if p.X < constants.AutoScrollEdgePx {
			return ScrollLeft
		}
		if p.X > s.Width-constants.AutoScrollEdgePx {
			return ScrollRight
		}
	}
	return ScrollNone
}
