package layout

import (
	"time"

	"github.com/julianstephens/shiftcal/internal/utils"
)

// MinutesAtY converts a vertical pixel offset from midnight into minutes.
func (c Config) MinutesAtY(y float64) float64 {
	return y / c.PixelsPerHour * 60
}

// YForTime returns the vertical pixel offset of t from its midnight.
func (c Config) YForTime(t time.Time) float64 {
	return utils.MinutesSinceMidnight(t) / 60 * c.PixelsPerHour
}

// PixelsForDuration converts a duration to its vertical extent.
func (c Config) PixelsForDuration(d time.Duration) float64 {
	return d.Hours() * c.PixelsPerHour
}

// DayHeight is the pixel height of a full day column.
func (c Config) DayHeight() float64 {
	return 24 * c.PixelsPerHour
}
