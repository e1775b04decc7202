package editor

import (
	"errors"
	"time"
)

// Policy configures the interaction rules.
type Policy struct {
	// SuppressEnterOnBlank turns Enter on a blank item into a no-op.
	SuppressEnterOnBlank bool
	// SwipeThreshold is the leftward drag distance that commits a swipe delete.
	SwipeThreshold float64
	// RequestTimeout bounds each remote mutation; zero disables the bound.
	RequestTimeout time.Duration
}

// DefaultPolicy returns the stock interaction rules.
func DefaultPolicy() Policy {
	return Policy{
		SuppressEnterOnBlank: true,
		SwipeThreshold:       12,
		RequestTimeout:       10 * time.Second,
	}
}

// Key is the subset of keys the editor reacts to.
type Key int

const (
	KeyOther Key = iota
	KeyBackspace
	KeyEnter
)

// KeyEvent is one key press on the focused item.
type KeyEvent struct {
	Key   Key
	Shift bool
}

// Decision tells the front end what to do with a key press.
type Decision struct {
	// Handled means the default text-editing action must be suppressed.
	Handled  bool
	Mutation *Mutation
}

// Transition describes what a completed mutation did to the editor.
type Transition struct {
	Applied  bool
	Stale    bool
	Reload   bool
	Reverted string
	Removed  string
	Inserted string
	Focus    Focus
	Err      error
}

// Editor owns the outline, the focus pointer and in-flight delete marks.
type Editor struct {
	policy  Policy
	outline Outline
	focus   Focus
	deletes map[string]uint64
	creates map[uint64]string
	seq     uint64
}

// New constructs an editor focused on the first item.
func New(outline Outline, policy Policy) Editor {
	e := Editor{
		policy:  policy,
		outline: outline.Clone(),
		deletes: map[string]uint64{},
		creates: map[uint64]string{},
	}
	if first, ok := outline.At(0); ok {
		e.focus = ItemFocus(first.ID, CaretEnd)
	} else {
		e.focus = ContainerFocus()
	}
	return e
}

// Policy returns the active rules.
func (e *Editor) Policy() Policy {
	return e.policy
}

// SetPolicy swaps the active rules.
func (e *Editor) SetPolicy(policy Policy) {
	e.policy = policy
}

// Outline returns a copy of the current outline.
func (e *Editor) Outline() Outline {
	return e.outline.Clone()
}

// Focus returns the current focus.
func (e *Editor) Focus() Focus {
	return e.focus
}

// FocusedItem returns the focused item when focus is on one.
func (e *Editor) FocusedItem() (Item, bool) {
	if e.focus.Container {
		return Item{}, false
	}
	return e.outline.Item(e.focus.ItemID)
}

// PendingDelete reports whether an item has a delete in flight.
func (e *Editor) PendingDelete(id string) bool {
	_, ok := e.deletes[id]
	return ok
}

// PendingCount returns the number of in-flight mutations.
func (e *Editor) PendingCount() int {
	return len(e.deletes) + len(e.creates)
}

// FocusItem moves focus onto one item.
func (e *Editor) FocusItem(id string, caret Caret) bool {
	if !e.outline.Has(id) {
		return false
	}
	e.focus = ItemFocus(id, caret)
	return true
}

// FocusContainer moves focus onto the list container.
func (e *Editor) FocusContainer() {
	e.focus = ContainerFocus()
}

// FocusPrevious moves focus one item up; from the container it lands on the last item.
func (e *Editor) FocusPrevious() bool {
	if e.focus.Container {
		last, ok := e.outline.At(e.outline.Len() - 1)
		if !ok {
			return false
		}
		e.focus = ItemFocus(last.ID, CaretEnd)
		return true
	}
	prev, ok := e.outline.Previous(e.focus.ItemID)
	if !ok {
		return false
	}
	e.focus = ItemFocus(prev.ID, CaretEnd)
	return true
}

// FocusNext moves focus one item down; from the container it lands on the first item.
func (e *Editor) FocusNext() bool {
	if e.focus.Container {
		first, ok := e.outline.At(0)
		if !ok {
			return false
		}
		e.focus = ItemFocus(first.ID, CaretEnd)
		return true
	}
	next, ok := e.outline.Next(e.focus.ItemID)
	if !ok {
		return false
	}
	e.focus = ItemFocus(next.ID, CaretEnd)
	return true
}

// SetText records a text edit made by normal input.
func (e *Editor) SetText(id, text string) bool {
	next, ok := e.outline.withText(id, text)
	if !ok {
		return false
	}
	e.outline = next
	return true
}

// SetCompleted records a completion toggle. Items with a delete in flight are left alone.
func (e *Editor) SetCompleted(id string, done bool) bool {
	if e.PendingDelete(id) {
		return false
	}
	next, ok := e.outline.withCompleted(id, done)
	if !ok {
		return false
	}
	e.outline = next
	return true
}

// Replace swaps in a freshly loaded outline, keeping focus by id when possible.
func (e *Editor) Replace(outline Outline) {
	e.outline = outline.Clone()
	for id := range e.deletes {
		if !e.outline.Has(id) {
			delete(e.deletes, id)
		}
	}
	if e.focus.Container {
		return
	}
	if !e.outline.Has(e.focus.ItemID) {
		e.focus = ContainerFocus()
		return
	}
	e.focus.Caret = CaretKeep
}

// HandleKey applies the keyboard rules to the focused item.
func (e *Editor) HandleKey(ev KeyEvent) Decision {
	switch ev.Key {
	case KeyBackspace:
		return e.backspace()
	case KeyEnter:
		return e.enter(ev.Shift)
	default:
		return Decision{}
	}
}

// backspace deletes the focused item when it is blank and not the last one.
func (e *Editor) backspace() Decision {
	item, ok := e.FocusedItem()
	if !ok {
		return Decision{}
	}
	// Text first: a non-blank item keeps default backspace editing.
	if !item.Blank() {
		return Decision{}
	}
	if !e.canDelete(item.ID) {
		return Decision{}
	}
	m := e.beginDelete(item.ID, OriginKey)
	return Decision{Handled: true, Mutation: &m}
}

// enter creates an item after the focused one.
func (e *Editor) enter(shift bool) Decision {
	if shift {
		return Decision{}
	}
	item, ok := e.FocusedItem()
	if !ok {
		return Decision{}
	}
	if e.PendingDelete(item.ID) {
		return Decision{Handled: true}
	}
	if item.Blank() && e.policy.SuppressEnterOnBlank {
		return Decision{Handled: true}
	}
	e.ensureMarks()
	e.seq++
	m := Mutation{Seq: e.seq, Kind: MutationCreateAfter, ItemID: item.ID, Origin: OriginKey}
	e.creates[m.Seq] = item.ID
	return Decision{Handled: true, Mutation: &m}
}

// CanDelete reports whether a delete of one item would pass the guards.
func (e *Editor) CanDelete(id string) bool {
	return e.canDelete(id)
}

// SwipeDelete starts the delete a committed swipe asks for.
func (e *Editor) SwipeDelete(id string) (Mutation, bool) {
	if !e.canDelete(id) {
		return Mutation{}, false
	}
	return e.beginDelete(id, OriginSwipe), true
}

// canDelete checks presence, in-flight state and the last-item guard.
func (e *Editor) canDelete(id string) bool {
	if !e.outline.Has(id) || e.PendingDelete(id) {
		return false
	}
	return e.liveCount() > 1
}

// liveCount counts items without a delete in flight.
func (e *Editor) liveCount() int {
	return e.outline.Len() - len(e.deletes)
}

// beginDelete marks one item as deleting and returns its mutation.
func (e *Editor) beginDelete(id string, origin Origin) Mutation {
	e.ensureMarks()
	e.seq++
	m := Mutation{Seq: e.seq, Kind: MutationDelete, ItemID: id, Origin: origin}
	e.deletes[id] = m.Seq
	return m
}

// ensureMarks lazily allocates the in-flight bookkeeping of a zero Editor.
func (e *Editor) ensureMarks() {
	if e.deletes == nil {
		e.deletes = map[string]uint64{}
	}
	if e.creates == nil {
		e.creates = map[uint64]string{}
	}
}

// Complete applies a settled mutation to the live outline.
func (e *Editor) Complete(res Result) Transition {
	switch res.Mutation.Kind {
	case MutationDelete:
		return e.completeDelete(res)
	case MutationCreateAfter:
		return e.completeCreate(res)
	default:
		return Transition{Stale: true, Focus: e.focus, Err: res.Err}
	}
}

// completeDelete removes the item or reverts it, re-deriving neighbours from live state.
func (e *Editor) completeDelete(res Result) Transition {
	m := res.Mutation
	if seq, ok := e.deletes[m.ItemID]; ok && seq == m.Seq {
		delete(e.deletes, m.ItemID)
	}
	if !e.outline.Has(m.ItemID) {
		return Transition{Stale: true, Focus: e.focus, Err: res.Err}
	}
	if res.Err != nil && !isNotFound(res.Err) {
		e.focus = ItemFocus(m.ItemID, CaretKeep)
		return Transition{Reverted: m.ItemID, Focus: e.focus, Err: res.Err}
	}

	pre := e.outline
	post, _ := pre.withRemoved(m.ItemID)
	e.outline = post
	e.focus = ResolveFocus(pre, post, m, "", e.focus)
	return Transition{Applied: true, Removed: m.ItemID, Focus: e.focus}
}

// completeCreate inserts the returned item after its anchor.
func (e *Editor) completeCreate(res Result) Transition {
	m := res.Mutation
	delete(e.creates, m.Seq)
	if res.Err != nil {
		return Transition{Focus: e.focus, Err: res.Err}
	}
	created := res.Fragment.Item
	if e.outline.Has(created.ID) {
		return Transition{Stale: true, Focus: e.focus}
	}
	if !e.outline.Has(m.ItemID) {
		return Transition{Stale: true, Reload: true, Focus: e.focus}
	}

	pre := e.outline
	post, _ := pre.withInsertAfter(m.ItemID, created)
	e.outline = post
	e.focus = ResolveFocus(pre, post, m, created.ID, e.focus)
	return Transition{Applied: true, Inserted: created.ID, Focus: e.focus}
}

// isNotFound reports a remote answer that the item no longer exists.
func isNotFound(err error) bool {
	return err != nil && errors.Is(err, ErrNotFound)
}
