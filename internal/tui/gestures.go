package tui

import (
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/hylla/insync/internal/editor"
)

// pointerInput is one mouse message plus the item row under the pointer, if any.
type pointerInput struct {
	Msg    tea.Msg
	ItemID string
}

// mouseGestures turns press-drag-release on an item row into horizontal drag events.
type mouseGestures struct {
	active  bool
	itemID  string
	originX int
	lastX   int
	lastAt  time.Time
	speed   float64
	now     func() time.Time
}

var _ editor.GestureSource = (*mouseGestures)(nil)

func newMouseGestures(now func() time.Time) mouseGestures {
	if now == nil {
		now = time.Now
	}
	return mouseGestures{now: now}
}

// Gesture translates one pointerInput. It reports false for input that is not part of a drag.
func (g *mouseGestures) Gesture(input any) (editor.GestureEvent, bool) {
	in, ok := input.(pointerInput)
	if !ok {
		return editor.GestureEvent{}, false
	}
	if g.now == nil {
		g.now = time.Now
	}
	switch msg := in.Msg.(type) {
	case tea.MouseClickMsg:
		if msg.Button != tea.MouseLeft || in.ItemID == "" {
			return editor.GestureEvent{}, false
		}
		g.active = true
		g.itemID = in.ItemID
		g.originX = msg.X
		g.lastX = msg.X
		g.lastAt = g.now()
		g.speed = 0
		return editor.GestureEvent{Phase: editor.GestureStart, ItemID: g.itemID}, true
	case tea.MouseMotionMsg:
		if !g.active {
			return editor.GestureEvent{}, false
		}
		g.track(msg.X)
		return g.event(editor.GestureUpdate, msg.X), true
	case tea.MouseReleaseMsg:
		if !g.active {
			return editor.GestureEvent{}, false
		}
		g.track(msg.X)
		ev := g.event(editor.GestureEnd, msg.X)
		g.active = false
		return ev, true
	default:
		return editor.GestureEvent{}, false
	}
}

// Cancel abandons the drag in progress.
func (g *mouseGestures) Cancel() (editor.GestureEvent, bool) {
	if !g.active {
		return editor.GestureEvent{}, false
	}
	g.active = false
	return editor.GestureEvent{Phase: editor.GestureCancel, ItemID: g.itemID}, true
}

// Dragging reports whether a press is being tracked.
func (g *mouseGestures) Dragging() bool {
	return g.active
}

// track updates the horizontal speed in cells per second.
func (g *mouseGestures) track(x int) {
	now := g.now()
	if dt := now.Sub(g.lastAt).Seconds(); dt > 0 {
		g.speed = float64(x-g.lastX) / dt
	}
	g.lastX = x
	g.lastAt = now
}

func (g *mouseGestures) event(phase editor.GesturePhase, x int) editor.GestureEvent {
	return editor.GestureEvent{
		Phase:    phase,
		ItemID:   g.itemID,
		DeltaX:   float64(x - g.originX),
		Velocity: g.speed,
	}
}
