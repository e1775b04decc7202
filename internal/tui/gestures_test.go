package tui

import (
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/hylla/insync/internal/editor"
)

func TestMouseGesturesTrackDrag(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	g := newMouseGestures(func() time.Time { return now })

	if _, ok := g.Gesture(pointerInput{Msg: tea.MouseMotionMsg{X: 5}}); ok {
		t.Fatal("expected motion without a press to be ignored")
	}
	if _, ok := g.Gesture(pointerInput{Msg: tea.MouseClickMsg{X: 40, Button: tea.MouseLeft}}); ok {
		t.Fatal("expected a press outside any item to be ignored")
	}
	if _, ok := g.Gesture(pointerInput{Msg: tea.MouseClickMsg{X: 40, Button: tea.MouseRight}, ItemID: "a"}); ok {
		t.Fatal("expected a right press to be ignored")
	}

	start, ok := g.Gesture(pointerInput{Msg: tea.MouseClickMsg{X: 40, Button: tea.MouseLeft}, ItemID: "a"})
	if !ok || start.Phase != editor.GestureStart || start.ItemID != "a" {
		t.Fatalf("unexpected start %#v", start)
	}

	now = now.Add(100 * time.Millisecond)
	update, ok := g.Gesture(pointerInput{Msg: tea.MouseMotionMsg{X: 30}, ItemID: "b"})
	if !ok || update.Phase != editor.GestureUpdate || update.ItemID != "a" || update.DeltaX != -10 {
		t.Fatalf("unexpected update %#v", update)
	}
	if update.Velocity != -100 {
		t.Fatalf("expected -100 cells/s, got %v", update.Velocity)
	}

	now = now.Add(100 * time.Millisecond)
	end, ok := g.Gesture(pointerInput{Msg: tea.MouseReleaseMsg{X: 25}})
	if !ok || end.Phase != editor.GestureEnd || end.DeltaX != -15 {
		t.Fatalf("unexpected end %#v", end)
	}
	if g.Dragging() {
		t.Fatal("expected drag finished")
	}
}

func TestMouseGesturesCancel(t *testing.T) {
	g := newMouseGestures(nil)
	if _, ok := g.Cancel(); ok {
		t.Fatal("expected no cancel without a drag")
	}
	g.Gesture(pointerInput{Msg: tea.MouseClickMsg{X: 10, Button: tea.MouseLeft}, ItemID: "a"})
	ev, ok := g.Cancel()
	if !ok || ev.Phase != editor.GestureCancel || ev.ItemID != "a" {
		t.Fatalf("unexpected cancel %#v", ev)
	}
	if _, ok := g.Gesture(pointerInput{Msg: tea.MouseReleaseMsg{X: 0}}); ok {
		t.Fatal("expected release after cancel to be ignored")
	}
}

func TestFadeColorBounds(t *testing.T) {
	if got := fadeColor(-1); got != fadePalette[0] {
		t.Fatalf("fadeColor(-1) = %q", got)
	}
	if got := fadeColor(2); got != fadePalette[len(fadePalette)-1] {
		t.Fatalf("fadeColor(2) = %q", got)
	}
}
