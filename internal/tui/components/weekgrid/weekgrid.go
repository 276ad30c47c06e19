// Package weekgrid renders positioned events as a terminal time grid and
// maps terminal cells back to grid coordinates.
package weekgrid

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/shiftcal/internal/constants"
	"github.com/julianstephens/shiftcal/internal/interaction"
	"github.com/julianstephens/shiftcal/internal/layout"
	"github.com/julianstephens/shiftcal/internal/utils"
)

const (
	// GutterWidth is the width of the time labels column.
	GutterWidth = 6
	// HeaderRows is the number of rows above the first time row.
	HeaderRows = 1
	// PixelsPerCell is the horizontal grid distance of one terminal column.
	PixelsPerCell = 10.0
	// RowMinutes is the time span of one terminal row.
	RowMinutes = 30
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Bold(true)

	todayStyle = headerStyle.
			Foreground(lipgloss.Color("205"))

	gutterStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	lineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("236"))
)

// Model holds what one frame of the grid needs.
type Model struct {
	Width  int
	Height int
	Grid   layout.Config
	Window utils.ViewState
	Events []layout.PositionedEvent
	// ScrollTop is the grid offset of the first row, in pixels.
	ScrollTop float64
	Selected  string
	Today     string
}

// New returns an empty grid of the given terminal size.
func New(width, height int) Model {
	return Model{Width: width, Height: height, Grid: layout.DefaultConfig()}
}

// Columns is the number of visible days.
func (m Model) Columns() int {
	return m.Window.ColumnCount()
}

// ColumnWidth is the width of one day column in cells.
func (m Model) ColumnWidth() int {
	cols := m.Columns()
	if cols == 0 {
		return 0
	}
	return max((m.Width-GutterWidth)/cols, 4)
}

// Rows is the number of visible time rows.
func (m Model) Rows() int {
	return max(m.Height-HeaderRows, 1)
}

func (m Model) rowPixels() float64 {
	return m.Grid.PixelsPerHour * RowMinutes / 60
}

// SurfaceWidth is the track width in grid pixels.
func (m Model) SurfaceWidth() float64 {
	return float64(m.ColumnWidth()*m.Columns()) * PixelsPerCell
}

// SurfaceHeight is the viewport height in grid pixels.
func (m Model) SurfaceHeight() float64 {
	return float64(m.Rows()) * m.rowPixels()
}

// MaxScrollTop is the largest useful ScrollTop.
func (m Model) MaxScrollTop() float64 {
	return max(m.Grid.DayHeight()-m.SurfaceHeight(), 0)
}

// PointAt converts a terminal cell relative to the grid's top-left corner
// into grid content coordinates. ok is false outside the track.
func (m Model) PointAt(x, y int) (interaction.Point, bool) {
	col := x - GutterWidth
	row := y - HeaderRows
	track := m.ColumnWidth() * m.Columns()
	if col < 0 || col >= track || row < 0 || row >= m.Rows() {
		return interaction.Point{}, false
	}
	return interaction.Point{
		X: (float64(col) + 0.5) * PixelsPerCell,
		Y: m.ScrollTop + float64(row)*m.rowPixels(),
	}, true
}

// View renders the grid.
func (m Model) View() string {
	cw := m.ColumnWidth()
	if cw == 0 {
		return ""
	}
	lines := make([]string, 0, m.Rows()+HeaderRows)
	lines = append(lines, m.header(cw))

	rowPx := m.rowPixels()
	for r := 0; r < m.Rows(); r++ {
		top := m.ScrollTop + float64(r)*rowPx
		if top >= m.Grid.DayHeight() {
			break
		}
		var b strings.Builder
		b.WriteString(m.gutter(top))
		for c := 0; c < m.Columns(); c++ {
			b.WriteString(m.cell(c, cw, top, top+rowPx))
		}
		lines = append(lines, b.String())
	}
	return strings.Join(lines, "\n")
}

func (m Model) header(cw int) string {
	var b strings.Builder
	b.WriteString(strings.Repeat(" ", GutterWidth))
	for _, d := range m.Window.VisibleDates() {
		label := d.Format("Mon 02")
		style := headerStyle
		if d.Format(constants.DateFormat) == m.Today {
			style = todayStyle
		}
		b.WriteString(style.Width(cw).MaxWidth(cw).Align(lipgloss.Center).Render(label))
	}
	return b.String()
}

func (m Model) gutter(top float64) string {
	minutes := int(m.Grid.MinutesAtY(top))
	label := ""
	if minutes%60 == 0 {
		label = fmt.Sprintf("%02d:00", minutes/60)
	}
	return gutterStyle.Width(GutterWidth).Render(label)
}

// cell renders one day column for the row spanning [top, bottom).
func (m Model) cell(col, cw int, top, bottom float64) string {
	var frags []layout.PositionedEvent
	total := 1
	for _, f := range m.Events {
		if f.DayColumn != col || f.Top >= bottom || f.Top+f.Height <= top {
			continue
		}
		frags = append(frags, f)
		total = max(total, f.TotalColumns)
	}
	if len(frags) == 0 {
		return lineStyle.Width(cw).Render(strings.Repeat("·", 1))
	}

	slots := make([]string, total)
	used := make([]bool, total)
	sub := cw / total
	for _, f := range frags {
		if f.Column >= total || used[f.Column] {
			continue
		}
		used[f.Column] = true
		w := sub
		if f.Column == total-1 {
			w = cw - sub*(total-1)
		}
		label := ""
		if f.Top >= top && f.Top < bottom {
			label = f.Start.Format(constants.TimeFormat) + " " + f.Event.Title
		}
		slots[f.Column] = m.eventStyle(f).Width(w).MaxWidth(w).Render(truncate(label, w))
	}
	var b strings.Builder
	for i := range slots {
		if used[i] {
			b.WriteString(slots[i])
			continue
		}
		w := sub
		if i == total-1 {
			w = cw - sub*(total-1)
		}
		b.WriteString(strings.Repeat(" ", w))
	}
	return b.String()
}

func (m Model) eventStyle(f layout.PositionedEvent) lipgloss.Style {
	s := lipgloss.NewStyle().
		Background(lipgloss.Color(f.Event.Color)).
		Foreground(lipgloss.Color("#ffffff"))
	if f.Event.Color == "" {
		s = s.Background(lipgloss.Color(constants.PendingPalette.Color))
	}
	if f.EventID == m.Selected {
		s = s.Background(lipgloss.Color(f.Event.Color2)).Bold(true).Underline(true)
	}
	if f.Event.IsBeingMoved || f.Event.IsBeingResized {
		s = s.Italic(true)
	}
	return s
}

func truncate(s string, w int) string {
	r := []rune(s)
	if len(r) <= w {
		return s
	}
	if w <= 1 {
		return string(r[:w])
	}
	return string(r[:w-1]) + "…"
}
