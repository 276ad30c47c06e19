// Package interaction implements the pointer protocol for moving, resizing
// and creating events on the time grid. It proposes changes; it never writes
// to the event store.
package interaction

import (
	"fmt"
	"math"
	"time"

	"github.com/julianstephens/shiftcal/internal/constants"
	"github.com/julianstephens/shiftcal/internal/layout"
	"github.com/julianstephens/shiftcal/internal/models"
	"github.com/julianstephens/shiftcal/internal/utils"
)

// State is the phase of the current gesture.
type State int

const (
	StateIdle State = iota
	StatePressed
	StateDragging
	StateCommitting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePressed:
		return "pressed"
	case StateDragging:
		return "dragging"
	case StateCommitting:
		return "committing"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Gesture is what the pointer is doing to the grid.
type Gesture int

const (
	GestureNone Gesture = iota
	GestureMove
	GestureResizeTop
	GestureResizeBottom
	GestureCreate
)

// Handle is the part of an event fragment that was pressed.
type Handle int

const (
	HandleBody Handle = iota
	HandleTop
	HandleBottom
)

// EffectKind tells the caller what to do with an Effect.
type EffectKind int

const (
	EffectNone EffectKind = iota
	// EffectPreview carries a temporary update. Not persisted, not in history.
	EffectPreview
	// EffectClick is a press and release without crossing the drag threshold.
	EffectClick
	// EffectDiscard ends a drag whose net change is insignificant.
	EffectDiscard
	// EffectCommit carries the final state of a moved or resized event.
	EffectCommit
	// EffectCreate carries a new event produced by a create gesture.
	EffectCreate
	// EffectCancel restores Original.
	EffectCancel
)

// Direction is an auto-scroll direction.
type Direction int

const (
	ScrollNone Direction = iota
	ScrollUp
	ScrollDown
	ScrollLeft
	ScrollRight
)

// Target is the event fragment under the pointer at press time.
type Target struct {
	Event    models.Event
	Fragment layout.PositionedEvent
	Handle   Handle
}

// Effect is the outcome of one input to the machine.
type Effect struct {
	Kind     EffectKind
	Gesture  Gesture
	EventID  string
	Event    models.Event
	Original models.Event
	// Scroll is the auto-scroll direction that should be active after this input.
	Scroll Direction
}

// Machine is the pointer state machine. The zero value is not usable; use New.
type Machine struct {
	surface Surface

	state     State
	gesture   Gesture
	original  models.Event
	current   models.Event
	down      Point
	last      Point
	downAt    time.Time
	grab      time.Duration
	createAt  time.Time
	scrolling Direction
}

// New returns an idle machine over surface.
func New(surface Surface) *Machine {
	return &Machine{surface: surface}
}

// State returns the current phase.
func (m *Machine) State() State { return m.state }

// Gesture returns the active gesture, or GestureNone.
func (m *Machine) Gesture() Gesture { return m.gesture }

// Active reports whether a gesture is in progress.
func (m *Machine) Active() bool { return m.state != StateIdle }

// EventID returns the id of the event under gesture.
func (m *Machine) EventID() string { return m.original.ID }

// Surface returns the grid description.
func (m *Machine) Surface() Surface { return m.surface }

// SetSurface updates the grid description, e.g. after the window scrolled.
func (m *Machine) SetSurface(s Surface) { m.surface = s }

// Scrolling returns the auto-scroll direction currently requested.
func (m *Machine) Scrolling() Direction { return m.scrolling }

// PointerDown starts a gesture. A nil target starts a create gesture on the
// empty grid. It returns an error if a gesture is already active or the
// pressed handle is not resizable.
func (m *Machine) PointerDown(p Point, target *Target, at time.Time) error {
	if m.state != StateIdle {
		return fmt.Errorf("gesture already in progress (%s)", m.state)
	}

	m.down, m.last, m.downAt = p, p, at
	m.scrolling = ScrollNone

	if target == nil {
		m.gesture = GestureCreate
		m.original = models.Event{}
		m.createAt = m.surface.SnappedTimeAt(p)
		m.state = StatePressed
		return nil
	}

	switch target.Handle {
	case HandleTop:
		if !target.Fragment.ResizableTop {
			return fmt.Errorf("event %s cannot be resized from this fragment", target.Event.ID)
		}
		m.gesture = GestureResizeTop
	case HandleBottom:
		if !target.Fragment.ResizableBottom {
			return fmt.Errorf("event %s cannot be resized from this fragment", target.Event.ID)
		}
		m.gesture = GestureResizeBottom
	default:
		m.gesture = GestureMove
	}

	m.original = target.Event.Clone()
	m.current = target.Event.Clone()
	m.grab = m.surface.TimeAt(p).Sub(target.Event.Start)
	if m.grab < 0 {
		m.grab = 0
	}
	m.state = StatePressed
	return nil
}

// GrabFraction is how far into the event's duration the pointer landed.
func (m *Machine) GrabFraction() float64 {
	d := m.original.Duration()
	if d <= 0 {
		return 0
	}
	return float64(m.grab) / float64(d)
}

// PointerMove feeds a pointer position. Past the drag threshold it emits
// temporary updates.
func (m *Machine) PointerMove(p Point) Effect {
	if m.state != StatePressed && m.state != StateDragging {
		return Effect{}
	}
	m.last = p
	if m.state == StatePressed {
		if math.Hypot(p.X-m.down.X, p.Y-m.down.Y) <= constants.DragThresholdPx {
			return Effect{}
		}
		m.state = StateDragging
	}

	m.current = m.propose(p)
	m.scrolling = m.surface.edge(p)
	return m.effect(EffectPreview)
}

// PointerUp ends the gesture.
func (m *Machine) PointerUp(p Point) Effect {
	switch m.state {
	case StatePressed:
		eff := m.effect(EffectClick)
		if m.gesture == GestureCreate {
			eff.Event = models.Event{Start: m.createAt, End: m.createAt.Add(constants.DefaultEventHours * time.Hour)}
		}
		m.reset()
		return eff
	case StateDragging:
	default:
		return Effect{}
	}

	m.current = m.propose(p)
	m.scrolling = ScrollNone

	if m.gesture == GestureCreate {
		eff := m.effect(EffectCreate)
		m.state = StateCommitting
		return eff
	}
	if !significant(m.original, m.current) {
		eff := m.effect(EffectDiscard)
		eff.Event = m.original.Clone()
		m.reset()
		return eff
	}
	m.state = StateCommitting
	return m.effect(EffectCommit)
}

// PointerLeave cancels the gesture and hands back the pre-gesture event.
func (m *Machine) PointerLeave() Effect {
	if m.state != StatePressed && m.state != StateDragging {
		return Effect{}
	}
	eff := m.effect(EffectCancel)
	eff.Event = m.original.Clone()
	m.reset()
	return eff
}

// Done returns a committing machine to idle once the caller has applied or
// deferred the commit.
func (m *Machine) Done() {
	if m.state == StateCommitting {
		m.reset()
	}
}

// DoubleClick proposes a one hour event at the slot under p.
func (m *Machine) DoubleClick(p Point) Effect {
	start := m.surface.SnappedTimeAt(p)
	return Effect{
		Kind:    EffectCreate,
		Gesture: GestureCreate,
		Event:   models.Event{Start: start, End: start.Add(constants.DefaultEventHours * time.Hour)},
	}
}

// Tick applies one auto-scroll nudge while dragging. Vertical nudges scroll
// the viewport; horizontal ones (week view) shift the dragged event a day,
// and the caller is expected to scroll the window to match.
func (m *Machine) Tick(dir Direction) Effect {
	if m.state != StateDragging || dir == ScrollNone {
		return Effect{}
	}
	step := m.surface.Grid.PixelsPerHour / 4
	switch dir {
	case ScrollUp:
		m.surface.ScrollTop = math.Max(0, m.surface.ScrollTop-step)
		m.last.Y = math.Max(0, m.last.Y-step)
		m.current = m.propose(m.last)
	case ScrollDown:
		maxTop := math.Max(0, m.surface.Grid.DayHeight()-m.surface.Height)
		m.surface.ScrollTop = math.Min(maxTop, m.surface.ScrollTop+step)
		m.last.Y = math.Min(m.surface.Grid.DayHeight(), m.last.Y+step)
		m.current = m.propose(m.last)
	case ScrollLeft, ScrollRight:
		days := -1
		if dir == ScrollRight {
			days = 1
		}
		m.surface.View = m.surface.View.Scroll(days)
		minDur := time.Duration(constants.SnapMinutes) * time.Minute
		switch m.gesture {
		case GestureResizeTop:
			m.current.Start = utils.AddDays(m.current.Start, days)
			if limit := m.current.End.Add(-minDur); m.current.Start.After(limit) {
				m.current.Start = limit
			}
		case GestureResizeBottom:
			m.current.End = utils.AddDays(m.current.End, days)
			if limit := m.current.Start.Add(minDur); m.current.End.Before(limit) {
				m.current.End = limit
			}
		default:
			m.current.Start = utils.AddDays(m.current.Start, days)
			m.current.End = utils.AddDays(m.current.End, days)
			m.createAt = utils.AddDays(m.createAt, days)
		}
	}
	return m.effect(EffectPreview)
}

// propose computes the event geometry implied by pointer position p.
func (m *Machine) propose(p Point) models.Event {
	e := m.original.Clone()
	minDur := time.Duration(constants.SnapMinutes) * time.Minute

	switch m.gesture {
	case GestureMove:
		e.IsBeingMoved = true
		dur := m.original.Duration()
		day := m.surface.DayAt(p.X)
		// Only the start is held to the target day; the end may run past
		// midnight and layout splits it into fragments.
		start := utils.SnapTime(m.surface.TimeAt(p).Add(-m.grab))
		lo, hi := day, day.Add(24*time.Hour-minDur)
		if start.Before(lo) {
			start = lo
		}
		if start.After(hi) {
			start = hi
		}
		e.Start, e.End = start, start.Add(dur)

	case GestureResizeTop:
		e.IsBeingResized = true
		start := m.surface.SnappedTimeAt(p)
		if limit := e.End.Add(-minDur); start.After(limit) {
			start = limit
		}
		e.Start = start

	case GestureResizeBottom:
		e.IsBeingResized = true
		end := m.surface.SnappedTimeAt(p)
		if limit := e.Start.Add(minDur); end.Before(limit) {
			end = limit
		}
		e.End = end

	case GestureCreate:
		at := m.surface.SnappedTimeAt(p)
		start, end := m.createAt, at
		if end.Before(start) {
			start, end = end, start
		}
		if end.Sub(start) < minDur {
			end = start.Add(minDur)
		}
		e.Start, e.End = start, end
	}
	return e
}

// significant reports whether a drag moved an endpoint by at least one
// grid step or changed the calendar day.
func significant(before, after models.Event) bool {
	step := time.Duration(constants.SnapMinutes) * time.Minute
	if utils.DaysBetween(before.Start, after.Start) != 0 || utils.DaysBetween(before.End, after.End) != 0 {
		return true
	}
	return absDur(after.Start.Sub(before.Start)) >= step || absDur(after.End.Sub(before.End)) >= step
}

func absDur(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

func (m *Machine) effect(kind EffectKind) Effect {
	return Effect{
		Kind:     kind,
		Gesture:  m.gesture,
		EventID:  m.original.ID,
		Event:    m.current.Clone(),
		Original: m.original.Clone(),
		Scroll:   m.scrolling,
	}
}

func (m *Machine) reset() {
	m.state = StateIdle
	m.gesture = GestureNone
	m.original = models.Event{}
	m.current = models.Event{}
	m.grab = 0
	m.scrolling = ScrollNone
}
