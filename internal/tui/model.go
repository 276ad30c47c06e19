package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/julianstephens/shiftcal/internal/constants"
	"github.com/julianstephens/shiftcal/internal/scheduler"
	"github.com/julianstephens/shiftcal/internal/syncer"
	"github.com/julianstephens/shiftcal/internal/tui/components/weekgrid"
)

type SessionState int

const (
	StateGrid SessionState = iota
	StateForm
	StateScope
	StateConfirmDelete
)

// chromeRows is the number of rows around the grid: title, status and help.
const chromeRows = 3

// SyncRunner performs one sync pass on demand.
type SyncRunner interface {
	Run(ctx context.Context) syncer.Result
}

// Options wires optional collaborators into the TUI.
type Options struct {
	Location *time.Location
	Sync     SyncRunner
	// Errors carries background persistence failures to the status line.
	Errors <-chan error
}

type (
	changedMsg  struct{}
	errMsg      struct{ err error }
	syncDoneMsg struct{ res syncer.Result }
)

type Model struct {
	sched *scheduler.Scheduler
	opts  Options

	state SessionState
	keys  KeyMap
	help  help.Model
	grid  weekgrid.Model

	selected string

	form      *huh.Form
	shiftForm *ShiftFormModel
	scopeForm *ScopeFormModel
	editingID string
	deleteID  string

	status    string
	statusErr bool
	unsynced  int
	canUndo   bool
	canRedo   bool

	dragging  bool
	lastPress time.Time
	lastCell  [2]int

	width    int
	height   int
	quitting bool
}

func NewModel(sched *scheduler.Scheduler, opts Options) Model {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	m := Model{
		sched: sched,
		opts:  opts,
		state: StateGrid,
		keys:  DefaultKeyMap(),
		help:  help.New(),
		grid:  weekgrid.New(0, 0),
	}
	m.grid.ScrollTop = m.grid.Grid.PixelsPerHour * 7
	m.refresh()
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForChange(m.sched.Changes()), waitForError(m.opts.Errors))
}

func waitForChange(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return changedMsg{}
	}
}

func waitForError(ch <-chan error) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		return errMsg{err: <-ch}
	}
}

func runSync(r SyncRunner) tea.Cmd {
	return func() tea.Msg {
		return syncDoneMsg{res: r.Run(context.Background())}
	}
}

// refresh pulls the read model into the grid. A pending modification
// request opens the scope prompt.
func (m *Model) refresh() {
	rm := m.sched.Snapshot()
	m.grid.Window = rm.View
	m.grid.Events = rm.Positioned
	m.grid.Selected = m.selected
	m.grid.Today = time.Now().In(m.opts.Location).Format(constants.DateFormat)
	if m.dragging {
		m.grid.ScrollTop = rm.ScrollTop
	}
	m.unsynced = rm.Unsynced
	m.canUndo, m.canRedo = rm.CanUndo, rm.CanRedo

	if rm.Request != nil && m.state == StateGrid {
		m.openScope(*rm.Request)
	}
}

// syncSurface tells the scheduler how the grid is laid out on screen.
func (m *Model) syncSurface() {
	m.sched.SetSurface(m.grid.SurfaceWidth(), m.grid.SurfaceHeight(), m.grid.ScrollTop)
}

// visibleIDs lists the events on screen in display order, without repeats.
func (m Model) visibleIDs() []string {
	seen := make(map[string]bool)
	var ids []string
	for _, f := range m.grid.Events {
		if seen[f.EventID] {
			continue
		}
		seen[f.EventID] = true
		ids = append(ids, f.EventID)
	}
	return ids
}

func (m *Model) setStatus(text string, isErr bool) {
	m.status = text
	m.statusErr = isErr
}
