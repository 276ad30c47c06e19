package tui

import (
	"fmt"
	"slices"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/shiftcal/internal/constants"
	"github.com/julianstephens/shiftcal/internal/models"
	"github.com/julianstephens/shiftcal/internal/scheduler"
)

const (
	nudgeStep        = constants.SnapMinutes * time.Minute
	doubleClickDelay = 400 * time.Millisecond
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.resizeGrid()
		return m, nil

	case changedMsg:
		m.refresh()
		return m, waitForChange(m.sched.Changes())

	case errMsg:
		m.setStatus(msg.err.Error(), true)
		return m, waitForError(m.opts.Errors)

	case syncDoneMsg:
		if msg.res.Err != nil {
			m.setStatus("Sync failed: "+msg.res.Err.Error(), true)
		} else {
			m.setStatus(fmt.Sprintf("Synced (%d pushed)", msg.res.Pushed), false)
		}
		m.refresh()
		return m, nil
	}

	switch m.state {
	case StateForm:
		return m.updateShiftForm(msg)
	case StateScope:
		return m.updateScopeForm(msg)
	case StateConfirmDelete:
		return m.updateConfirmDelete(msg)
	}

	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.handleMouse(msg)
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.resizeGrid()
	case key.Matches(msg, m.keys.Next):
		m.cycleSelection(1)
	case key.Matches(msg, m.keys.Prev):
		m.cycleSelection(-1)
	case key.Matches(msg, m.keys.ScrollBack):
		m.sched.Scroll(-1)
	case key.Matches(msg, m.keys.ScrollFwd):
		m.sched.Scroll(1)
	case key.Matches(msg, m.keys.PrevPage):
		m.sched.Navigate(-1)
	case key.Matches(msg, m.keys.NextPage):
		m.sched.Navigate(1)
	case key.Matches(msg, m.keys.Today):
		m.sched.Today()
	case key.Matches(msg, m.keys.DayView):
		m.sched.SetViewMode(constants.ViewDay)
		m.syncSurface()
	case key.Matches(msg, m.keys.WeekView):
		m.sched.SetViewMode(constants.ViewWeek)
		m.syncSurface()
	case key.Matches(msg, m.keys.ScrollUp):
		m.grid.ScrollTop = max(m.grid.ScrollTop-m.grid.Grid.PixelsPerHour, 0)
		m.syncSurface()
	case key.Matches(msg, m.keys.ScrollDown):
		m.grid.ScrollTop = min(m.grid.ScrollTop+m.grid.Grid.PixelsPerHour, m.grid.MaxScrollTop())
		m.syncSurface()
	case key.Matches(msg, m.keys.Earlier):
		m.nudge(-nudgeStep, false)
	case key.Matches(msg, m.keys.Later):
		m.nudge(nudgeStep, false)
	case key.Matches(msg, m.keys.Shorter):
		m.nudge(-nudgeStep, true)
	case key.Matches(msg, m.keys.Longer):
		m.nudge(nudgeStep, true)
	case key.Matches(msg, m.keys.Add):
		m.shiftForm = newShiftFormModel(m.grid.Window.WindowStart())
		m.editingID = ""
		m.form = NewShiftForm(m.shiftForm)
		m.state = StateForm
		return m, m.form.Init()
	case key.Matches(msg, m.keys.Edit):
		e, ok := m.sched.Event(m.selected)
		if !ok {
			m.setStatus("Select a shift first (tab)", true)
			break
		}
		m.shiftForm = shiftFormFromEvent(e)
		m.editingID = e.ID
		m.form = NewShiftForm(m.shiftForm)
		m.state = StateForm
		return m, m.form.Init()
	case key.Matches(msg, m.keys.Delete):
		if _, ok := m.sched.Event(m.selected); !ok {
			m.setStatus("Select a shift first (tab)", true)
			break
		}
		m.deleteID = m.selected
		m.state = StateConfirmDelete
	case key.Matches(msg, m.keys.Undo):
		if !m.sched.Undo() {
			m.setStatus("Nothing to undo", false)
		}
	case key.Matches(msg, m.keys.Redo):
		if !m.sched.Redo() {
			m.setStatus("Nothing to redo", false)
		}
	case key.Matches(msg, m.keys.Sync):
		if m.opts.Sync == nil {
			m.setStatus("Sync is not configured", true)
			break
		}
		m.setStatus("Syncing…", false)
		return m, runSync(m.opts.Sync)
	case key.Matches(msg, m.keys.Validate):
		res := m.sched.Validate()
		if res.HasConflicts() {
			m.setStatus(fmt.Sprintf("%d conflicts found; run 'shiftcal validate' for details", len(res.Conflicts)), true)
		} else {
			m.setStatus("No conflicts", false)
		}
	}
	m.refresh()
	return m, nil
}

// resizeGrid gives the grid whatever the title, status and help rows leave.
func (m *Model) resizeGrid() {
	m.grid.Width = m.width
	m.grid.Height = max(m.height-(chromeRows-1)-lipgloss.Height(m.help.View(m.keys)), 0)
	m.grid.ScrollTop = min(m.grid.ScrollTop, m.grid.MaxScrollTop())
	m.syncSurface()
}

func (m *Model) cycleSelection(dir int) {
	ids := m.visibleIDs()
	if len(ids) == 0 {
		m.selected = ""
		return
	}
	i := slices.Index(ids, m.selected)
	switch {
	case i < 0 && dir < 0:
		i = len(ids) - 1
	case i < 0:
		i = 0
	default:
		i = (i + dir + len(ids)) % len(ids)
	}
	m.selected = ids[i]
}

// nudge moves the selected shift, or only its end when resize is set.
func (m *Model) nudge(d time.Duration, resize bool) {
	e, ok := m.sched.Event(m.selected)
	if !ok {
		m.setStatus("Select a shift first (tab)", true)
		return
	}
	var out scheduler.Outcome
	var err error
	if resize {
		out, err = m.sched.ResizeEvent(e.ID, e.Start, e.End.Add(d))
	} else {
		out, err = m.sched.MoveEvent(e.ID, e.Start.Add(d))
	}
	m.report(out, err)
}

// report shows the result of a change on the status line.
func (m *Model) report(out scheduler.Outcome, err error) {
	switch {
	case err != nil:
		m.setStatus(err.Error(), true)
	case out.Conflicts.HasConflicts():
		m.setStatus(fmt.Sprintf("Saved with %d conflicts", len(out.Conflicts.Conflicts)), true)
	case out.Committed:
		m.setStatus("", false)
	}
	if out.EventID != "" && out.Committed {
		m.selected = out.EventID
	}
}

func (m *Model) handleMouse(msg tea.MouseMsg) {
	// The title row sits above the grid.
	p, inside := m.grid.PointAt(msg.X, msg.Y-1)

	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft || !inside {
			return
		}
		cell := [2]int{msg.X, msg.Y}
		now := time.Now()
		if cell == m.lastCell && now.Sub(m.lastPress) < doubleClickDelay {
			m.lastPress = time.Time{}
			if m.dragging {
				m.sched.PointerLeave()
				m.dragging = false
			}
			if m.sched.HitTest(p) == nil {
				out, err := m.sched.DoubleClick(p)
				m.report(out, err)
			}
			m.refresh()
			return
		}
		m.lastPress, m.lastCell = now, cell

		target := m.sched.HitTest(p)
		if target != nil {
			m.selected = target.Event.ID
		}
		if err := m.sched.PointerDown(p, target); err != nil {
			m.setStatus(err.Error(), true)
			return
		}
		m.dragging = true

	case tea.MouseActionMotion:
		if !m.dragging {
			return
		}
		if !inside {
			m.sched.PointerLeave()
			m.dragging = false
			m.refresh()
			return
		}
		m.sched.PointerMove(p)

	case tea.MouseActionRelease:
		if !m.dragging {
			return
		}
		m.dragging = false
		if !inside {
			m.sched.PointerLeave()
			m.refresh()
			return
		}
		out, err := m.sched.PointerUp(p)
		if out.Clicked {
			m.selected = out.EventID
		}
		m.report(out, err)
		m.grid.ScrollTop = m.sched.Snapshot().ScrollTop
	}
	m.refresh()
}

func (m Model) updateShiftForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.Type == tea.KeyEsc {
		m.state = StateGrid
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		m.state = StateGrid
		m.saveShiftForm()
		m.refresh()
	case huh.StateAborted:
		m.state = StateGrid
	}
	return m, cmd
}

func (m *Model) saveShiftForm() {
	if m.editingID == "" {
		var e models.Event
		if err := m.shiftForm.Apply(&e, m.opts.Location); err != nil {
			m.setStatus(err.Error(), true)
			return
		}
		out, err := m.sched.CreateEvent(e)
		m.report(out, err)
		return
	}

	var applyErr error
	out, err := m.sched.UpdateEvent(m.editingID, func(e *models.Event) {
		applyErr = m.shiftForm.Apply(e, m.opts.Location)
	})
	if applyErr != nil {
		err = applyErr
	}
	m.report(out, err)
}

func (m *Model) openScope(req scheduler.ModificationRequest) {
	m.scopeForm = &ScopeFormModel{Request: req, Scope: constants.ScopeSingle}
	m.form = NewScopeForm(m.scopeForm)
	m.form.Init()
	m.state = StateScope
}

func (m Model) updateScopeForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.Type == tea.KeyEsc {
		return m.resolve(constants.ScopeCancel)
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		return m.resolve(m.scopeForm.Scope)
	case huh.StateAborted:
		return m.resolve(constants.ScopeCancel)
	}
	return m, cmd
}

func (m Model) resolve(scope constants.Scope) (tea.Model, tea.Cmd) {
	out, err := m.sched.ResolveModification(scope)
	m.state = StateGrid
	m.report(out, err)
	m.refresh()
	return m, nil
}

func (m Model) updateConfirmDelete(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "y", "Y":
			m.state = StateGrid
			out, err := m.sched.DeleteEvent(m.deleteID, "")
			m.report(out, err)
			if err == nil && out.Request == nil {
				m.selected = ""
			}
			m.deleteID = ""
			m.refresh()
		case "n", "N", "esc":
			m.deleteID = ""
			m.state = StateGrid
		}
	}
	return m, nil
}
