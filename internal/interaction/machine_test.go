package interaction

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/julianstephens/shiftcal/internal/constants"
	"github.com/julianstephens/shiftcal/internal/layout"
	"github.com/julianstephens/shiftcal/internal/models"
	"github.com/julianstephens/shiftcal/internal/utils"
)

var monday = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func testSurface() Surface {
	return Surface{
		View:   utils.NewViewState(monday, constants.ViewWeek),
		Grid:   layout.DefaultConfig(),
		Width:  700,
		Height: 600,
	}
}

func nineToTen() models.Event {
	return models.Event{ID: "e1", Start: monday.Add(9 * time.Hour), End: monday.Add(10 * time.Hour)}
}

func target(e models.Event, h Handle) *Target {
	s := testSurface()
	frags := layout.Segment(e, s.View)
	return &Target{Event: e, Fragment: frags[0], Handle: h}
}

// y returns the grid offset of hh:mm.
func y(h, m int) float64 {
	return float64(h*60 + m)
}

func TestClickWithoutDrag(t *testing.T) {
	m := New(testSurface())
	if err := m.PointerDown(Point{50, y(9, 30)}, target(nineToTen(), HandleBody), time.Now()); err != nil {
		t.Fatal(err)
	}
	if eff := m.PointerMove(Point{52, y(9, 32)}); eff.Kind != EffectNone {
		t.Fatalf("move inside threshold should not preview, got %v", eff.Kind)
	}
	if m.State() != StatePressed {
		t.Fatalf("state = %s", m.State())
	}
	eff := m.PointerUp(Point{52, y(9, 32)})
	if eff.Kind != EffectClick || eff.EventID != "e1" {
		t.Errorf("expected click on e1, got %+v", eff)
	}
	if m.State() != StateIdle {
		t.Errorf("state after click = %s", m.State())
	}
}

func TestDragAcrossDays(t *testing.T) {
	m := New(testSurface())
	if err := m.PointerDown(Point{50, y(9, 30)}, target(nineToTen(), HandleBody), time.Now()); err != nil {
		t.Fatal(err)
	}
	if f := m.GrabFraction(); f != 0.5 {
		t.Errorf("grab fraction = %v, want 0.5", f)
	}

	eff := m.PointerMove(Point{150, y(14, 30)})
	if eff.Kind != EffectPreview || !eff.Event.IsBeingMoved {
		t.Fatalf("expected preview, got %+v", eff)
	}
	if m.State() != StateDragging {
		t.Fatalf("state = %s", m.State())
	}

	eff = m.PointerUp(Point{150, y(14, 30)})
	if eff.Kind != EffectCommit {
		t.Fatalf("expected commit, got %v", eff.Kind)
	}
	wantStart := monday.AddDate(0, 0, 1).Add(14 * time.Hour)
	if !eff.Event.Start.Equal(wantStart) || eff.Event.Duration() != time.Hour {
		t.Errorf("commit = %v-%v, want start %v", eff.Event.Start, eff.Event.End, wantStart)
	}
	if !eff.Original.Start.Equal(nineToTen().Start) {
		t.Errorf("original geometry lost")
	}
	if m.State() != StateCommitting {
		t.Errorf("state = %s", m.State())
	}
	m.Done()
	if m.State() != StateIdle {
		t.Errorf("state after Done = %s", m.State())
	}
}

func TestInsignificantDragDiscarded(t *testing.T) {
	m := New(testSurface())
	_ = m.PointerDown(Point{50, y(9, 30)}, target(nineToTen(), HandleBody), time.Now())
	m.PointerMove(Point{50, y(9, 36)})
	eff := m.PointerUp(Point{50, y(9, 36)})
	if eff.Kind != EffectDiscard {
		t.Fatalf("expected discard, got %v (%v)", eff.Kind, eff.Event.Start)
	}
	if !eff.Event.Start.Equal(nineToTen().Start) {
		t.Errorf("discard should hand back the original")
	}
	if m.Active() {
		t.Error("machine should be idle")
	}
}

func TestMoveKeepsOvernightShift(t *testing.T) {
	overnight := models.Event{ID: "night", Start: monday.Add(22 * time.Hour), End: monday.Add(30 * time.Hour)}
	tests := []struct {
		name      string
		to        Point
		wantStart time.Time
	}{
		{"half hour later", Point{50, y(23, 0)}, monday.Add(22*time.Hour + 30*time.Minute)},
		{"hour earlier", Point{50, y(21, 30)}, monday.Add(21 * time.Hour)},
		{"next day", Point{150, y(22, 30)}, monday.Add(46 * time.Hour)},
		{"start held to the day", Point{50, 0}, monday},
		{"start stops before midnight", Point{50, y(24, 0)}, monday.Add(23*time.Hour + 30*time.Minute)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New(testSurface())
			if err := m.PointerDown(Point{50, y(22, 30)}, target(overnight, HandleBody), time.Now()); err != nil {
				t.Fatal(err)
			}
			eff := m.PointerMove(tt.to)
			if eff.Kind != EffectPreview {
				t.Fatalf("expected preview, got %v", eff.Kind)
			}
			if !eff.Event.Start.Equal(tt.wantStart) {
				t.Errorf("start = %v, want %v", eff.Event.Start, tt.wantStart)
			}
			if eff.Event.Duration() != 8*time.Hour {
				t.Errorf("duration = %v, want 8h", eff.Event.Duration())
			}
		})
	}
}

func TestResizeBottom(t *testing.T) {
	m := New(testSurface())
	if err := m.PointerDown(Point{50, y(10, 0)}, target(nineToTen(), HandleBottom), time.Now()); err != nil {
		t.Fatal(err)
	}
	eff := m.PointerMove(Point{50, y(11, 5)})
	if !eff.Event.End.Equal(monday.Add(11*time.Hour)) || !eff.Event.Start.Equal(nineToTen().Start) {
		t.Errorf("unexpected resize preview %v-%v", eff.Event.Start, eff.Event.End)
	}
	if !eff.Event.IsBeingResized {
		t.Error("resize flag not set")
	}
	eff = m.PointerMove(Point{50, y(8, 0)})
	if want := monday.Add(9*time.Hour + 15*time.Minute); !eff.Event.End.Equal(want) {
		t.Errorf("end should clamp to %v, got %v", want, eff.Event.End)
	}
	if eff = m.PointerUp(Point{50, y(8, 0)}); eff.Kind != EffectCommit {
		t.Errorf("expected commit, got %v", eff.Kind)
	}
}

func TestResizeTopClamp(t *testing.T) {
	m := New(testSurface())
	_ = m.PointerDown(Point{50, y(9, 0)}, target(nineToTen(), HandleTop), time.Now())
	eff := m.PointerMove(Point{50, y(11, 0)})
	if want := monday.Add(9*time.Hour + 45*time.Minute); !eff.Event.Start.Equal(want) {
		t.Errorf("start should clamp to %v, got %v", want, eff.Event.Start)
	}
	if !eff.Event.Start.Before(eff.Event.End) {
		t.Error("start must stay before end")
	}
}

func TestHorizontalTickMovesOnlyResizedEndpoint(t *testing.T) {
	tests := []struct {
		name   string
		handle Handle
		down   Point
		drag   Point
		dir    Direction
		days   int
	}{
		{"bottom handle", HandleBottom, Point{50, y(10, 0)}, Point{690, y(10, 0)}, ScrollRight, 1},
		{"top handle", HandleTop, Point{650, y(9, 0)}, Point{5, y(9, 0)}, ScrollLeft, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New(testSurface())
			if err := m.PointerDown(tt.down, target(nineToTen(), tt.handle), time.Now()); err != nil {
				t.Fatal(err)
			}
			before := m.PointerMove(tt.drag).Event
			after := m.Tick(tt.dir).Event

			fixed, moved := after.Start, after.End
			fixedBefore, movedBefore := before.Start, before.End
			if tt.handle == HandleTop {
				fixed, moved = after.End, after.Start
				fixedBefore, movedBefore = before.End, before.Start
			}
			if !fixed.Equal(fixedBefore) {
				t.Errorf("opposite endpoint moved: %v -> %v", fixedBefore, fixed)
			}
			if want := movedBefore.AddDate(0, 0, tt.days); !moved.Equal(want) {
				t.Errorf("resized endpoint = %v, want %v", moved, want)
			}
			if !after.Start.Before(after.End) {
				t.Errorf("start %v not before end %v", after.Start, after.End)
			}
		})
	}
}

func TestResizeRejectedOnMiddleFragment(t *testing.T) {
	e := models.Event{ID: "multi", Start: monday.Add(20 * time.Hour), End: monday.AddDate(0, 0, 2).Add(4 * time.Hour)}
	frags := layout.Segment(e, testSurface().View)
	m := New(testSurface())
	if err := m.PointerDown(Point{150, y(12, 0)}, &Target{Event: e, Fragment: frags[1], Handle: HandleTop}, time.Now()); err == nil {
		t.Error("expected error resizing the middle fragment")
	}
	if err := m.PointerDown(Point{250, y(4, 0)}, &Target{Event: e, Fragment: frags[2], Handle: HandleBottom}, time.Now()); err != nil {
		t.Errorf("last fragment bottom should be resizable: %v", err)
	}
}

func TestPointerDownWhileActive(t *testing.T) {
	m := New(testSurface())
	_ = m.PointerDown(Point{50, y(9, 30)}, target(nineToTen(), HandleBody), time.Now())
	if err := m.PointerDown(Point{50, y(9, 30)}, target(nineToTen(), HandleBody), time.Now()); err == nil {
		t.Error("expected error for overlapping gesture")
	}
}

func TestPointerLeaveCancels(t *testing.T) {
	m := New(testSurface())
	_ = m.PointerDown(Point{50, y(9, 30)}, target(nineToTen(), HandleBody), time.Now())
	m.PointerMove(Point{350, y(15, 0)})
	eff := m.PointerLeave()
	if eff.Kind != EffectCancel {
		t.Fatalf("expected cancel, got %v", eff.Kind)
	}
	if !eff.Event.Start.Equal(nineToTen().Start) || !eff.Event.End.Equal(nineToTen().End) || eff.Event.IsBeingMoved {
		t.Errorf("cancel must restore exact pre-gesture state: %+v", eff.Event)
	}
	if m.Active() {
		t.Error("machine should be idle after cancel")
	}
}

func TestCreateGesture(t *testing.T) {
	m := New(testSurface())
	if err := m.PointerDown(Point{150, y(10, 0)}, nil, time.Now()); err != nil {
		t.Fatal(err)
	}
	m.PointerMove(Point{150, y(11, 0)})
	eff := m.PointerUp(Point{150, y(12, 0)})
	if eff.Kind != EffectCreate {
		t.Fatalf("expected create, got %v", eff.Kind)
	}
	tuesday := monday.AddDate(0, 0, 1)
	if !eff.Event.Start.Equal(tuesday.Add(10*time.Hour)) || !eff.Event.End.Equal(tuesday.Add(12*time.Hour)) {
		t.Errorf("created %v-%v", eff.Event.Start, eff.Event.End)
	}
}

func TestDoubleClickCreatesHourEvent(t *testing.T) {
	m := New(testSurface())
	eff := m.DoubleClick(Point{350, y(13, 8)})
	thursday := monday.AddDate(0, 0, 3)
	if eff.Kind != EffectCreate || !eff.Event.Start.Equal(thursday.Add(13*time.Hour+15*time.Minute)) || eff.Event.Duration() != time.Hour {
		t.Errorf("unexpected double click effect %+v", eff)
	}
}

func TestEdgeDetectionAndTick(t *testing.T) {
	m := New(testSurface())
	_ = m.PointerDown(Point{350, y(9, 0)}, target(nineToTen(), HandleBody), time.Now())

	eff := m.PointerMove(Point{350, 580})
	if eff.Scroll != ScrollDown {
		t.Fatalf("expected down scroll near bottom edge, got %v", eff.Scroll)
	}
	before := m.Surface().ScrollTop
	m.Tick(ScrollDown)
	if m.Surface().ScrollTop <= before {
		t.Errorf("tick should scroll viewport down")
	}

	eff = m.PointerMove(Point{350, 300})
	if eff.Scroll != ScrollNone {
		t.Errorf("safe zone should stop scrolling, got %v", eff.Scroll)
	}

	eff = m.PointerMove(Point{690, 300})
	if eff.Scroll != ScrollRight {
		t.Fatalf("expected right scroll, got %v", eff.Scroll)
	}
	startBefore := eff.Event.Start
	eff = m.Tick(ScrollRight)
	if !eff.Event.Start.Equal(startBefore.AddDate(0, 0, 1)) {
		t.Errorf("horizontal tick should move event one day")
	}
	if m.Surface().View.WeekOffset != 1 {
		t.Errorf("window should scroll one day, offset %d", m.Surface().View.WeekOffset)
	}
}

func TestAutoScroller(t *testing.T) {
	var hits atomic.Int32
	a := NewAutoScroller(5*time.Millisecond, func(d Direction) {
		if d == ScrollDown {
			hits.Add(1)
		}
	})
	a.Set(context.Background(), ScrollDown)
	deadline := time.Now().Add(2 * time.Second)
	for hits.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if hits.Load() < 2 {
		t.Fatalf("expected repeated nudges, got %d", hits.Load())
	}
	a.Stop()
	if a.Direction() != ScrollNone {
		t.Errorf("direction after stop = %v", a.Direction())
	}
	time.Sleep(20 * time.Millisecond)
	n := hits.Load()
	time.Sleep(30 * time.Millisecond)
	if hits.Load() != n {
		t.Errorf("scroller kept nudging after stop")
	}
}
