package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/shiftcal/internal/constants"
	"github.com/julianstephens/shiftcal/internal/scheduler"
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	switch m.state {
	case StateForm:
		return docStyle.Render(m.form.View())
	case StateScope:
		return docStyle.Render(m.scopeHeader() + "\n\n" + m.form.View())
	case StateConfirmDelete:
		return docStyle.Render(m.confirmView())
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.titleView(),
		m.grid.View(),
		m.statusView(),
		m.help.View(m.keys),
	)
}

func (m Model) titleView() string {
	v := m.grid.Window
	start := v.WindowStart()
	var span string
	if v.Mode == constants.ViewDay {
		span = start.Format("Mon Jan 2, 2006")
	} else {
		end := v.WindowEnd().AddDate(0, 0, -1)
		span = fmt.Sprintf("%s – %s", start.Format("Jan 2"), end.Format("Jan 2, 2006"))
	}

	parts := []string{titleStyle.Render(strings.ToUpper(constants.AppName)), subtleStyle.Render(span + " · " + string(v.Mode))}
	if m.unsynced > 0 {
		parts = append(parts, warningStyle.Render(fmt.Sprintf("%d unsynced", m.unsynced)))
	}
	var history []string
	if m.canUndo {
		history = append(history, "undo")
	}
	if m.canRedo {
		history = append(history, "redo")
	}
	if len(history) > 0 {
		parts = append(parts, subtleStyle.Render(strings.Join(history, "/")))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m Model) statusView() string {
	switch {
	case m.status == "":
		return ""
	case m.statusErr:
		return dangerStyle.Render(m.status)
	default:
		return okStyle.Render(m.status)
	}
}

func (m Model) scopeHeader() string {
	req := m.scopeForm.Request
	verb := "Edit"
	if req.Kind == scheduler.ModificationDelete {
		verb = "Delete"
	}
	title := req.EventID
	if e, ok := m.sched.Event(req.EventID); ok {
		title = e.Title
	}
	return titleStyle.Render(fmt.Sprintf("%s recurring shift %q", verb, title))
}

func (m Model) confirmView() string {
	title := m.deleteID
	when := ""
	if e, ok := m.sched.Event(m.deleteID); ok {
		title = e.Title
		when = e.Start.Format(constants.DateTimeFormat)
	}
	var b strings.Builder
	b.WriteString(dangerStyle.Render("Delete shift?"))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "  %s  %s\n\n", title, subtleStyle.Render(when))
	b.WriteString(subtleStyle.Render("y to delete, n to keep"))
	return b.String()
}
