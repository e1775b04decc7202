package editor

import (
	"context"
	"errors"
	"testing"
	"time"
)

// newTestEditor builds an editor over ordered items.
func newTestEditor(t *testing.T, items ...Item) Editor {
	t.Helper()
	outline, err := NewOutline("l1", "Groceries", items)
	if err != nil {
		t.Fatalf("NewOutline() error = %v", err)
	}
	return New(outline, DefaultPolicy())
}

// ids returns the ordered item ids of an outline.
func ids(o Outline) []string {
	out := make([]string, 0, o.Len())
	for _, item := range o.Items() {
		out = append(out, item.ID)
	}
	return out
}

// sameIDs compares two id slices.
func sameIDs(got []string, want ...string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestNewOutlineValidation(t *testing.T) {
	cases := []struct {
		name   string
		listID string
		items  []Item
		want   error
	}{
		{name: "blank list id", listID: " ", items: []Item{{ID: "a"}}, want: ErrInvalidList},
		{name: "empty", listID: "l1", items: nil, want: ErrEmptyList},
		{name: "blank item id", listID: "l1", items: []Item{{ID: ""}}, want: ErrInvalidItemID},
		{name: "duplicate", listID: "l1", items: []Item{{ID: "a"}, {ID: "a"}}, want: ErrDuplicateItem},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewOutline(tt.listID, "x", tt.items)
			if !errors.Is(err, tt.want) {
				t.Fatalf("NewOutline() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestBackspaceDeletesBlankItemAndFocusesPreviousAtEnd(t *testing.T) {
	e := newTestEditor(t, Item{ID: "a", Text: "hello"}, Item{ID: "b", Text: ""})
	e.FocusItem("b", CaretKeep)

	decision := e.HandleKey(KeyEvent{Key: KeyBackspace})
	if !decision.Handled || decision.Mutation == nil {
		t.Fatalf("expected handled delete decision, got %#v", decision)
	}
	if decision.Mutation.Kind != MutationDelete || decision.Mutation.ItemID != "b" {
		t.Fatalf("unexpected mutation %#v", decision.Mutation)
	}

	tr := e.Complete(Result{Mutation: *decision.Mutation})
	if !tr.Applied || tr.Removed != "b" {
		t.Fatalf("unexpected transition %#v", tr)
	}
	if got := ids(e.Outline()); !sameIDs(got, "a") {
		t.Fatalf("items = %v, want [a]", got)
	}
	if focus := e.Focus(); !focus.On("a") || focus.Caret != CaretEnd {
		t.Fatalf("focus = %#v, want a at end", focus)
	}
}

func TestBackspaceOnSoleItemIsNoop(t *testing.T) {
	e := newTestEditor(t, Item{ID: "a"})

	decision := e.HandleKey(KeyEvent{Key: KeyBackspace})
	if decision.Handled || decision.Mutation != nil {
		t.Fatalf("expected an unhandled key with no request, got %#v", decision)
	}
	if e.Outline().Len() != 1 {
		t.Fatalf("item count = %d, want 1", e.Outline().Len())
	}
	if _, ok := e.SwipeDelete("a"); ok {
		t.Fatal("expected swipe delete on the sole item to be refused")
	}
}

func TestBackspaceOnNonBlankItemKeepsDefaultEditing(t *testing.T) {
	for _, text := range []string{"x", "hello", "  a  ", "line\nline"} {
		e := newTestEditor(t, Item{ID: "a", Text: "first"}, Item{ID: "b", Text: text})
		e.FocusItem("b", CaretKeep)
		decision := e.HandleKey(KeyEvent{Key: KeyBackspace})
		if decision.Handled || decision.Mutation != nil {
			t.Fatalf("text %q: expected default editing, got %#v", text, decision)
		}
	}
}

func TestBackspaceTreatsWhitespaceAsBlank(t *testing.T) {
	e := newTestEditor(t, Item{ID: "a", Text: "x"}, Item{ID: "b", Text: " \n\t"})
	e.FocusItem("b", CaretKeep)
	if decision := e.HandleKey(KeyEvent{Key: KeyBackspace}); decision.Mutation == nil {
		t.Fatal("expected whitespace-only item to be deleted")
	}
}

func TestDeletingFirstItemFocusesContainer(t *testing.T) {
	e := newTestEditor(t, Item{ID: "a"}, Item{ID: "b", Text: "keep"})
	e.FocusItem("a", CaretKeep)

	decision := e.HandleKey(KeyEvent{Key: KeyBackspace})
	if decision.Mutation == nil {
		t.Fatal("expected delete mutation")
	}
	e.Complete(Result{Mutation: *decision.Mutation})
	if focus := e.Focus(); !focus.Container {
		t.Fatalf("focus = %#v, want container", focus)
	}
}

func TestDeleteCompletionKeepsContainerFocus(t *testing.T) {
	e := newTestEditor(t, Item{ID: "a", Text: "x"}, Item{ID: "b"}, Item{ID: "c", Text: "z"})
	e.FocusItem("b", CaretKeep)
	decision := e.HandleKey(KeyEvent{Key: KeyBackspace})
	if decision.Mutation == nil {
		t.Fatal("expected delete mutation")
	}

	e.FocusContainer()
	tr := e.Complete(Result{Mutation: *decision.Mutation})
	if !tr.Applied || tr.Removed != "b" {
		t.Fatalf("unexpected transition %#v", tr)
	}
	if focus := e.Focus(); !focus.Container {
		t.Fatalf("focus = %#v, want container", focus)
	}
}

func TestDeleteCompletionKeepsFocusMovedElsewhere(t *testing.T) {
	e := newTestEditor(t, Item{ID: "a", Text: "x"}, Item{ID: "b"}, Item{ID: "c", Text: "z"})
	e.FocusItem("b", CaretKeep)
	decision := e.HandleKey(KeyEvent{Key: KeyBackspace})

	e.FocusItem("c", CaretStart)
	e.Complete(Result{Mutation: *decision.Mutation})
	if focus := e.Focus(); !focus.On("c") || focus.Caret != CaretStart {
		t.Fatalf("focus = %#v, want c untouched", focus)
	}
}

func TestCreateCompletionKeepsFocusMovedDuringRequest(t *testing.T) {
	e := newTestEditor(t, Item{ID: "a", Text: "1"}, Item{ID: "b", Text: "2"}, Item{ID: "c", Text: "3"})
	e.FocusItem("a", CaretEnd)
	decision := e.HandleKey(KeyEvent{Key: KeyEnter})
	if decision.Mutation == nil {
		t.Fatal("expected create mutation")
	}

	e.FocusItem("c", CaretKeep)
	tr := e.Complete(Result{Mutation: *decision.Mutation, Fragment: Fragment{Item: Item{ID: "n"}}})
	if !tr.Applied || tr.Inserted != "n" {
		t.Fatalf("unexpected transition %#v", tr)
	}
	if got := ids(e.Outline()); !sameIDs(got, "a", "n", "b", "c") {
		t.Fatalf("items = %v, want [a n b c]", got)
	}
	if !e.Focus().On("c") {
		t.Fatalf("focus = %#v, want c", e.Focus())
	}
}

func TestCreateCompletionFromContainerFocusesNewItem(t *testing.T) {
	e := newTestEditor(t, Item{ID: "a", Text: "1"}, Item{ID: "b", Text: "2"})
	e.FocusItem("a", CaretEnd)
	decision := e.HandleKey(KeyEvent{Key: KeyEnter})

	e.FocusContainer()
	e.Complete(Result{Mutation: *decision.Mutation, Fragment: Fragment{Item: Item{ID: "n"}}})
	if focus := e.Focus(); !focus.On("n") || focus.Caret != CaretEnd {
		t.Fatalf("focus = %#v, want n at end", focus)
	}
}

func TestEnterCreatesAfterAndFocusesNewItem(t *testing.T) {
	e := newTestEditor(t, Item{ID: "a", Text: "hi"})

	decision := e.HandleKey(KeyEvent{Key: KeyEnter})
	if !decision.Handled || decision.Mutation == nil {
		t.Fatalf("expected create decision, got %#v", decision)
	}
	if decision.Mutation.Kind != MutationCreateAfter || decision.Mutation.ItemID != "a" {
		t.Fatalf("unexpected mutation %#v", decision.Mutation)
	}
	if e.PendingCount() != 1 {
		t.Fatalf("pending = %d, want 1", e.PendingCount())
	}

	tr := e.Complete(Result{Mutation: *decision.Mutation, Fragment: Fragment{Item: Item{ID: "b"}}})
	if !tr.Applied || tr.Inserted != "b" {
		t.Fatalf("unexpected transition %#v", tr)
	}
	if got := ids(e.Outline()); !sameIDs(got, "a", "b") {
		t.Fatalf("items = %v, want [a b]", got)
	}
	if !e.Focus().On("b") {
		t.Fatalf("focus = %#v, want b", e.Focus())
	}
	if e.PendingCount() != 0 {
		t.Fatalf("pending = %d, want 0", e.PendingCount())
	}
}

func TestEnterInsertsDirectlyAfterAnchor(t *testing.T) {
	e := newTestEditor(t, Item{ID: "a", Text: "1"}, Item{ID: "b", Text: "2"}, Item{ID: "c", Text: "3"})
	e.FocusItem("a", CaretEnd)
	decision := e.HandleKey(KeyEvent{Key: KeyEnter})
	e.Complete(Result{Mutation: *decision.Mutation, Fragment: Fragment{Item: Item{ID: "n"}}})
	if got := ids(e.Outline()); !sameIDs(got, "a", "n", "b", "c") {
		t.Fatalf("items = %v, want [a n b c]", got)
	}
}

func TestShiftEnterIsNeverHandled(t *testing.T) {
	for _, text := range []string{"", "hi"} {
		e := newTestEditor(t, Item{ID: "a", Text: text})
		decision := e.HandleKey(KeyEvent{Key: KeyEnter, Shift: true})
		if decision.Handled || decision.Mutation != nil {
			t.Fatalf("text %q: shift+enter must pass through, got %#v", text, decision)
		}
	}
}

func TestEnterOnBlankFollowsPolicy(t *testing.T) {
	e := newTestEditor(t, Item{ID: "a", Text: "  "})
	decision := e.HandleKey(KeyEvent{Key: KeyEnter})
	if !decision.Handled || decision.Mutation != nil {
		t.Fatalf("expected suppressed no-op, got %#v", decision)
	}

	policy := DefaultPolicy()
	policy.SuppressEnterOnBlank = false
	e.SetPolicy(policy)
	decision = e.HandleKey(KeyEvent{Key: KeyEnter})
	if decision.Mutation == nil || decision.Mutation.Kind != MutationCreateAfter {
		t.Fatalf("expected create when suppression is off, got %#v", decision)
	}
}

func TestKeysOnContainerAreIgnored(t *testing.T) {
	e := newTestEditor(t, Item{ID: "a"}, Item{ID: "b"})
	e.FocusContainer()
	for _, ev := range []KeyEvent{{Key: KeyBackspace}, {Key: KeyEnter}, {Key: KeyOther}} {
		if decision := e.HandleKey(ev); decision.Handled || decision.Mutation != nil {
			t.Fatalf("key %#v on container: got %#v", ev, decision)
		}
	}
}

func TestDeleteFailureRevertsAndKeepsItemFocused(t *testing.T) {
	e := newTestEditor(t, Item{ID: "a", Text: "x"}, Item{ID: "b"})
	e.FocusItem("b", CaretKeep)
	decision := e.HandleKey(KeyEvent{Key: KeyBackspace})
	if !e.PendingDelete("b") {
		t.Fatal("expected b to be pending delete")
	}

	tr := e.Complete(Result{Mutation: *decision.Mutation, Err: errors.New("boom")})
	if tr.Reverted != "b" || tr.Err == nil {
		t.Fatalf("unexpected transition %#v", tr)
	}
	if e.PendingDelete("b") {
		t.Fatal("expected pending mark cleared after failure")
	}
	if got := ids(e.Outline()); !sameIDs(got, "a", "b") {
		t.Fatalf("items = %v, want [a b]", got)
	}
	if !e.Focus().On("b") {
		t.Fatalf("focus = %#v, want b", e.Focus())
	}
}

func TestDeleteNotFoundIsAppliedAsRemoved(t *testing.T) {
	e := newTestEditor(t, Item{ID: "a", Text: "x"}, Item{ID: "b"})
	e.FocusItem("b", CaretKeep)
	decision := e.HandleKey(KeyEvent{Key: KeyBackspace})
	tr := e.Complete(Result{Mutation: *decision.Mutation, Err: errors.Join(ErrNotFound, errors.New("404"))})
	if !tr.Applied || tr.Removed != "b" {
		t.Fatalf("unexpected transition %#v", tr)
	}
}

func TestStaleDeleteCompletionIsNoop(t *testing.T) {
	e := newTestEditor(t, Item{ID: "a", Text: "x"}, Item{ID: "b"})
	e.FocusItem("b", CaretKeep)
	decision := e.HandleKey(KeyEvent{Key: KeyBackspace})

	reloaded, err := NewOutline("l1", "Groceries", []Item{{ID: "a", Text: "x"}})
	if err != nil {
		t.Fatalf("NewOutline() error = %v", err)
	}
	e.Replace(reloaded)

	tr := e.Complete(Result{Mutation: *decision.Mutation})
	if !tr.Stale || tr.Applied {
		t.Fatalf("expected stale no-op, got %#v", tr)
	}
	if got := ids(e.Outline()); !sameIDs(got, "a") {
		t.Fatalf("items = %v, want [a]", got)
	}
}

func TestStaleCreateCompletionAsksForReload(t *testing.T) {
	e := newTestEditor(t, Item{ID: "a", Text: "x"}, Item{ID: "b", Text: "y"})
	e.FocusItem("b", CaretEnd)
	create := e.HandleKey(KeyEvent{Key: KeyEnter})

	reloaded, _ := NewOutline("l1", "Groceries", []Item{{ID: "a", Text: "x"}})
	e.Replace(reloaded)

	tr := e.Complete(Result{Mutation: *create.Mutation, Fragment: Fragment{Item: Item{ID: "n"}}})
	if !tr.Stale || !tr.Reload {
		t.Fatalf("expected stale reload, got %#v", tr)
	}
	if e.Outline().Has("n") {
		t.Fatal("expected created item not to be inserted without its anchor")
	}
}

func TestLastItemGuardCountsInFlightDeletes(t *testing.T) {
	e := newTestEditor(t, Item{ID: "a"}, Item{ID: "b"})
	e.FocusItem("b", CaretKeep)
	if decision := e.HandleKey(KeyEvent{Key: KeyBackspace}); decision.Mutation == nil {
		t.Fatal("expected first delete to be issued")
	}
	e.FocusItem("a", CaretKeep)
	if decision := e.HandleKey(KeyEvent{Key: KeyBackspace}); decision.Mutation != nil {
		t.Fatalf("expected the remaining live item to be protected, got %#v", decision.Mutation)
	}
}

func TestRapidBackspaceThenEnterInEitherCompletionOrder(t *testing.T) {
	setup := func(t *testing.T) (Editor, Mutation, Mutation) {
		t.Helper()
		e := newTestEditor(t, Item{ID: "a", Text: "keep"}, Item{ID: "b"}, Item{ID: "c", Text: "tail"})
		e.FocusItem("b", CaretKeep)
		del := e.HandleKey(KeyEvent{Key: KeyBackspace})
		if del.Mutation == nil {
			t.Fatal("expected delete mutation")
		}
		e.FocusItem("c", CaretEnd)
		create := e.HandleKey(KeyEvent{Key: KeyEnter})
		if create.Mutation == nil {
			t.Fatal("expected create mutation")
		}
		return e, *del.Mutation, *create.Mutation
	}

	t.Run("delete first", func(t *testing.T) {
		e, del, create := setup(t)
		e.Complete(Result{Mutation: del})
		if !e.Focus().On("c") {
			t.Fatalf("focus = %#v, want c kept", e.Focus())
		}
		e.Complete(Result{Mutation: create, Fragment: Fragment{Item: Item{ID: "n"}}})
		if got := ids(e.Outline()); !sameIDs(got, "a", "c", "n") {
			t.Fatalf("items = %v, want [a c n]", got)
		}
		if !e.Focus().On("n") {
			t.Fatalf("focus = %#v, want n", e.Focus())
		}
	})

	t.Run("create first", func(t *testing.T) {
		e, del, create := setup(t)
		e.Complete(Result{Mutation: create, Fragment: Fragment{Item: Item{ID: "n"}}})
		e.Complete(Result{Mutation: del})
		if got := ids(e.Outline()); !sameIDs(got, "a", "c", "n") {
			t.Fatalf("items = %v, want [a c n]", got)
		}
		if !e.Focus().On("n") {
			t.Fatalf("focus = %#v, want n", e.Focus())
		}
	})
}

func TestRepeatedDeletesWalkBackToLiveSibling(t *testing.T) {
	e := newTestEditor(t, Item{ID: "a", Text: "keep"}, Item{ID: "b"}, Item{ID: "c"})
	e.FocusItem("b", CaretKeep)
	delB := e.HandleKey(KeyEvent{Key: KeyBackspace})
	e.FocusItem("c", CaretKeep)
	delC := e.HandleKey(KeyEvent{Key: KeyBackspace})
	if delB.Mutation == nil || delC.Mutation == nil {
		t.Fatal("expected both deletes to be issued")
	}

	// c settles while b is still in flight, then b settles.
	e.Complete(Result{Mutation: *delC.Mutation})
	if !e.Focus().On("b") {
		t.Fatalf("focus = %#v, want b", e.Focus())
	}
	e.Complete(Result{Mutation: *delB.Mutation})
	if !e.Focus().On("a") || e.Focus().Caret != CaretEnd {
		t.Fatalf("focus = %#v, want a at end", e.Focus())
	}
}

func TestFocusNavigation(t *testing.T) {
	e := newTestEditor(t, Item{ID: "a"}, Item{ID: "b"}, Item{ID: "c"})
	if !e.Focus().On("a") {
		t.Fatalf("initial focus = %#v, want a", e.Focus())
	}
	if e.FocusPrevious() {
		t.Fatal("expected no previous item before a")
	}
	e.FocusNext()
	e.FocusNext()
	if !e.Focus().On("c") {
		t.Fatalf("focus = %#v, want c", e.Focus())
	}
	if e.FocusNext() {
		t.Fatal("expected no next item after c")
	}
	e.FocusContainer()
	e.FocusNext()
	if !e.Focus().On("a") {
		t.Fatalf("focus = %#v, want a from container", e.Focus())
	}
	e.FocusContainer()
	e.FocusPrevious()
	if !e.Focus().On("c") {
		t.Fatalf("focus = %#v, want c from container", e.Focus())
	}
}

func TestSetCompletedLeavesOrderAndFocus(t *testing.T) {
	e := newTestEditor(t, Item{ID: "a", Text: "1"}, Item{ID: "b"}, Item{ID: "c", Text: "3"})
	e.FocusItem("c", CaretStart)

	if !e.SetCompleted("a", true) {
		t.Fatal("expected completion recorded")
	}
	if item, _ := e.Outline().Item("a"); !item.Completed {
		t.Fatalf("expected a completed, got %#v", item)
	}
	if got := ids(e.Outline()); !sameIDs(got, "a", "b", "c") {
		t.Fatalf("items = %v, want [a b c]", got)
	}
	if focus := e.Focus(); !focus.On("c") || focus.Caret != CaretStart {
		t.Fatalf("focus = %#v, want c untouched", focus)
	}
	if e.SetCompleted("missing", true) {
		t.Fatal("expected unknown item refused")
	}

	e.FocusItem("b", CaretKeep)
	decision := e.HandleKey(KeyEvent{Key: KeyBackspace})
	if decision.Mutation == nil {
		t.Fatal("expected delete mutation")
	}
	if e.SetCompleted("b", true) {
		t.Fatal("expected item with a delete in flight refused")
	}
}

func TestReplaceKeepsFocusByID(t *testing.T) {
	e := newTestEditor(t, Item{ID: "a"}, Item{ID: "b"})
	e.FocusItem("b", CaretEnd)
	next, _ := NewOutline("l1", "Groceries", []Item{{ID: "x"}, {ID: "b", Text: "remote"}})
	e.Replace(next)
	if !e.Focus().On("b") {
		t.Fatalf("focus = %#v, want b", e.Focus())
	}
	gone, _ := NewOutline("l1", "Groceries", []Item{{ID: "x"}})
	e.Replace(gone)
	if !e.Focus().Container {
		t.Fatalf("focus = %#v, want container", e.Focus())
	}
}

// fakeTransport records calls and returns fixed outcomes.
type fakeTransport struct {
	created  Fragment
	err      error
	delay    time.Duration
	creates  []string
	deletes  []string
	lastCtxD bool
}

func (f *fakeTransport) CreateAfter(ctx context.Context, afterItemID string) (Fragment, error) {
	f.creates = append(f.creates, afterItemID)
	_, f.lastCtxD = ctx.Deadline()
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return Fragment{}, ctx.Err()
		case <-time.After(f.delay):
		}
	}
	return f.created, f.err
}

func (f *fakeTransport) Delete(ctx context.Context, itemID string) error {
	f.deletes = append(f.deletes, itemID)
	_, f.lastCtxD = ctx.Deadline()
	return f.err
}

func TestExecuteRunsOneRequestPerMutation(t *testing.T) {
	transport := &fakeTransport{created: Fragment{Item: Item{ID: "n"}}}

	res := Execute(context.Background(), transport, Mutation{Seq: 1, Kind: MutationCreateAfter, ItemID: "a"}, time.Second)
	if !res.OK() || res.Fragment.Item.ID != "n" {
		t.Fatalf("unexpected create result %#v", res)
	}
	res = Execute(context.Background(), transport, Mutation{Seq: 2, Kind: MutationDelete, ItemID: "b"}, time.Second)
	if !res.OK() {
		t.Fatalf("unexpected delete result %#v", res)
	}
	if len(transport.creates) != 1 || transport.creates[0] != "a" {
		t.Fatalf("creates = %v, want [a]", transport.creates)
	}
	if len(transport.deletes) != 1 || transport.deletes[0] != "b" {
		t.Fatalf("deletes = %v, want [b]", transport.deletes)
	}
	if !transport.lastCtxD {
		t.Fatal("expected request context to carry a deadline")
	}
}

func TestExecuteTimesOut(t *testing.T) {
	transport := &fakeTransport{delay: time.Second}
	res := Execute(context.Background(), transport, Mutation{Kind: MutationCreateAfter, ItemID: "a"}, 10*time.Millisecond)
	if !res.TimedOut() {
		t.Fatalf("expected timeout, got %v", res.Err)
	}
}

func TestExecuteRejectsEmptyFragment(t *testing.T) {
	res := Execute(context.Background(), &fakeTransport{}, Mutation{Kind: MutationCreateAfter, ItemID: "a"}, 0)
	if !errors.Is(res.Err, ErrInvalidItemID) {
		t.Fatalf("Execute() error = %v, want ErrInvalidItemID", res.Err)
	}
}

func TestExecuteWithoutTransport(t *testing.T) {
	res := Execute(context.Background(), nil, Mutation{Kind: MutationDelete, ItemID: "a"}, 0)
	if !errors.Is(res.Err, ErrNoTransport) {
		t.Fatalf("Execute() error = %v, want ErrNoTransport", res.Err)
	}
}
