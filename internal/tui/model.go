// Package tui is the terminal front end of the outline editor.
package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/textarea"
	tea "charm.land/bubbletea/v2"
	"github.com/atotto/clipboard"
	charmLog "github.com/charmbracelet/log"

	"github.com/hylla/insync/internal/editor"
)

// Model projects one editor.Editor onto the terminal.
type Model struct {
	ctx     context.Context
	remote  editor.Remote
	live    Subscriber
	listRef string

	policy editor.Policy
	ed     editor.Editor
	loaded bool
	err    error

	swipe     editor.Swipe
	swipeView editor.SwipeState
	gestures  mouseGestures
	fading    map[string]int
	deferred  map[string]editor.Result

	input     textarea.Model
	editingID string
	saved     map[string]string
	editRev   uint64

	subscribedID string

	saveDebounce time.Duration
	fadeFrames   int
	fadeInterval time.Duration
	maxRows      int
	markdown     bool
	md           *markdownRenderer

	keys     keyMap
	help     help.Model
	status   string
	width    int
	height   int
	copyText func(string) error
	logger   *charmLog.Logger
}

// loadedMsg carries one fetched outline.
type loadedMsg struct {
	outline editor.Outline
	err     error
}

// mutationDoneMsg carries one settled structural mutation.
type mutationDoneMsg struct {
	res editor.Result
}

// saveDueMsg fires when the edit debounce for one item elapses.
type saveDueMsg struct {
	itemID string
	rev    uint64
}

type savedMsg struct {
	itemID string
	text   string
	err    error
}

// fadeTickMsg advances the delete fade of one item.
type fadeTickMsg struct {
	itemID string
}

type subscribedMsg struct {
	listID string
	ch     <-chan editor.Outline
	err    error
}

// snapshotMsg carries one pushed outline; ok is false once the stream closed.
type snapshotMsg struct {
	listID  string
	outline editor.Outline
	ch      <-chan editor.Outline
	ok      bool
}

type copiedMsg struct {
	err error
}

// completedMsg reports one settled completion toggle.
type completedMsg struct {
	itemID string
	done   bool
	err    error
}

// NewModel constructs a model editing the list named by listRef (id or name).
func NewModel(remote editor.Remote, listRef string, opts ...Option) Model {
	h := help.New()
	h.ShowAll = false

	input := textarea.New()
	input.Prompt = ""
	input.ShowLineNumbers = false
	input.CharLimit = 0
	// Enter belongs to the editor rules; a literal newline is shift+enter.
	input.KeyMap.InsertNewline.SetKeys("shift+enter", "ctrl+j")

	policy := editor.DefaultPolicy()
	m := Model{
		ctx:          context.Background(),
		remote:       remote,
		listRef:      listRef,
		policy:       policy,
		swipe:        editor.NewSwipe(policy.SwipeThreshold),
		gestures:     newMouseGestures(time.Now),
		fading:       map[string]int{},
		deferred:     map[string]editor.Result{},
		input:        input,
		saved:        map[string]string{},
		saveDebounce: 750 * time.Millisecond,
		fadeFrames:   6,
		fadeInterval: 40 * time.Millisecond,
		maxRows:      8,
		md:           newMarkdownRenderer(),
		keys:         newKeyMap(),
		help:         h,
		status:       "loading...",
		copyText:     clipboard.WriteAll,
		logger:       charmLog.New(io.Discard),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&m)
		}
	}
	m.ed = editor.New(editor.Outline{}, m.policy)
	return m
}

func (m Model) Init() tea.Cmd {
	return m.loadCmd()
}

// Update applies one message. All editor state changes happen here.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeInput()
		return m, nil

	case loadedMsg:
		return m.applyLoaded(msg)

	case mutationDoneMsg:
		return m.applyResult(msg.res)

	case fadeTickMsg:
		return m.advanceFade(msg.itemID)

	case saveDueMsg:
		if msg.rev != m.editRev {
			return m, nil
		}
		return m, m.saveCmd(msg.itemID)

	case savedMsg:
		if msg.err != nil {
			if errors.Is(msg.err, editor.ErrNotFound) {
				return m, nil
			}
			m.status = "save failed: " + msg.err.Error()
			m.logger.Warn("item save failed", "item_id", msg.itemID, "err", msg.err)
			return m, nil
		}
		m.saved[msg.itemID] = msg.text
		m.logger.Debug("item saved", "item_id", msg.itemID)
		return m, nil

	case subscribedMsg:
		if msg.err != nil {
			m.status = "live updates unavailable: " + msg.err.Error()
			m.logger.Warn("live subscribe failed", "list_id", msg.listID, "err", msg.err)
			return m, nil
		}
		m.subscribedID = msg.listID
		return m, waitSnapshot(msg.listID, msg.ch)

	case snapshotMsg:
		return m.applySnapshot(msg)

	case completedMsg:
		return m.applyCompleted(msg)

	case copiedMsg:
		if msg.err != nil {
			m.status = "copy failed: " + msg.err.Error()
			return m, nil
		}
		m.status = "copied"
		return m, nil

	case tea.KeyPressMsg:
		return m.handleKey(msg)

	case tea.MouseClickMsg, tea.MouseMotionMsg, tea.MouseReleaseMsg:
		return m.handleMouse(msg)

	default:
		if m.editingID == "" {
			return m, nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
}

// handleKey routes one key press through the app keys, then the editor rules, then the textarea.
func (m Model) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.quit) {
		return m, tea.Sequence(m.saveCmd(m.editingID), tea.Quit)
	}
	if key.Matches(msg, m.keys.reload) {
		m.status = "reloading..."
		return m, m.loadCmd()
	}
	if !m.loaded {
		return m, nil
	}
	if ev, ok := m.gestures.Cancel(); ok {
		m.applySwipe(m.swipe.Handle(ev))
	}

	switch {
	case key.Matches(msg, m.keys.save):
		if m.editingID == "" {
			return m, nil
		}
		m.status = "saving..."
		return m, m.saveCmd(m.editingID)
	case key.Matches(msg, m.keys.copy):
		if m.editingID == "" {
			return m, nil
		}
		return m, m.copyCmd(m.input.Value())
	case key.Matches(msg, m.keys.complete):
		if m.editingID == "" {
			return m, nil
		}
		return m, m.toggleCompleted(m.editingID)
	}

	if m.ed.Focus().Container {
		switch {
		case key.Matches(msg, m.keys.toggleHelp):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		case key.Matches(msg, m.keys.up):
			m.ed.FocusPrevious()
			return m, m.syncFocus()
		case key.Matches(msg, m.keys.down), key.Matches(msg, m.keys.openList):
			m.ed.FocusNext()
			return m, m.syncFocus()
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.focusList):
		m.ed.FocusContainer()
		return m, m.syncFocus()
	case key.Matches(msg, m.keys.up) && m.input.Line() == 0:
		m.ed.FocusPrevious()
		return m, m.syncFocus()
	case key.Matches(msg, m.keys.down) && m.input.Line() >= m.input.LineCount()-1:
		m.ed.FocusNext()
		return m, m.syncFocus()
	}

	switch msg.Code {
	case tea.KeyBackspace:
		if decision := m.ed.HandleKey(editor.KeyEvent{Key: editor.KeyBackspace}); decision.Handled {
			return m, m.startMutation(decision.Mutation)
		}
	case tea.KeyEnter:
		shift := msg.Mod.Contains(tea.ModShift)
		if decision := m.ed.HandleKey(editor.KeyEvent{Key: editor.KeyEnter, Shift: shift}); decision.Handled {
			return m, m.startMutation(decision.Mutation)
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, tea.Batch(cmd, m.afterEdit())
}

// handleMouse focuses the row under the pointer and feeds drags to the swipe tracker.
func (m Model) handleMouse(msg tea.Msg) (tea.Model, tea.Cmd) {
	if !m.loaded {
		return m, nil
	}
	var cmd tea.Cmd
	itemID := ""
	if click, ok := msg.(tea.MouseClickMsg); ok {
		itemID = m.itemAt(click.Y)
		if click.Button == tea.MouseLeft {
			switch {
			case itemID != "":
				m.ed.FocusItem(itemID, editor.CaretEnd)
				cmd = m.syncFocus()
			case click.Y < headerRows:
				m.ed.FocusContainer()
				cmd = m.syncFocus()
			}
		}
	}
	if itemID != "" && m.ed.PendingDelete(itemID) {
		return m, cmd
	}
	ev, ok := m.gestures.Gesture(pointerInput{Msg: msg, ItemID: itemID})
	if !ok {
		return m, cmd
	}
	return m, tea.Batch(cmd, m.applySwipe(m.swipe.Handle(ev)))
}

// applySwipe updates the swipe visual and starts the delete a committed swipe asks for.
func (m *Model) applySwipe(state editor.SwipeState) tea.Cmd {
	switch state.Outcome {
	case editor.SwipeTracking:
		m.swipeView = state
		return nil
	case editor.SwipeRevert:
		m.swipeView = editor.SwipeState{}
		return nil
	case editor.SwipeCommit:
		mutation, ok := m.ed.SwipeDelete(state.ItemID)
		if !ok {
			m.swipeView = editor.SwipeState{}
			return nil
		}
		m.swipeView = state
		cmd := m.startMutation(&mutation)
		if m.fadeFrames <= 0 {
			return cmd
		}
		m.fading[state.ItemID] = 0
		return tea.Batch(cmd, m.fadeTick(state.ItemID))
	default:
		return nil
	}
}

// advanceFade steps one fade and applies a deferred delete once the fade is over.
func (m Model) advanceFade(itemID string) (tea.Model, tea.Cmd) {
	frame, ok := m.fading[itemID]
	if !ok {
		return m, nil
	}
	frame++
	if frame < m.fadeFrames {
		m.fading[itemID] = frame
		return m, m.fadeTick(itemID)
	}
	delete(m.fading, itemID)
	if res, ok := m.deferred[itemID]; ok {
		delete(m.deferred, itemID)
		return m.applyResult(res)
	}
	return m, nil
}

func (m Model) fadeTick(itemID string) tea.Cmd {
	return tea.Tick(m.fadeInterval, func(time.Time) tea.Msg {
		return fadeTickMsg{itemID: itemID}
	})
}

// startMutation runs one mutation off the event loop.
func (m *Model) startMutation(mutation *editor.Mutation) tea.Cmd {
	if mutation == nil {
		return nil
	}
	mut := *mutation
	switch mut.Kind {
	case editor.MutationDelete:
		m.status = "deleting..."
	case editor.MutationCreateAfter:
		m.status = "creating..."
	}
	m.logger.Debug("mutation issued", "kind", mut.Kind, "item_id", mut.ItemID, "origin", mut.Origin, "seq", mut.Seq)

	ctx, remote, timeout := m.ctx, m.remote, m.policy.RequestTimeout
	return func() tea.Msg {
		return mutationDoneMsg{res: editor.Execute(ctx, remote, mut, timeout)}
	}
}

// applyResult settles one mutation against the live outline.
func (m Model) applyResult(res editor.Result) (tea.Model, tea.Cmd) {
	id := res.Mutation.ItemID
	if _, fading := m.fading[id]; fading && res.Mutation.Kind == editor.MutationDelete {
		if res.OK() || errors.Is(res.Err, editor.ErrNotFound) {
			m.deferred[id] = res
			return m, nil
		}
		delete(m.fading, id)
	}

	t := m.ed.Complete(res)
	m.logResult(res, t)
	if res.Mutation.Kind == editor.MutationDelete && m.swipeView.ItemID == id {
		m.swipeView = editor.SwipeState{}
	}

	switch {
	case t.Reload:
		m.status = "list changed elsewhere, reloading"
		return m, tea.Batch(m.syncFocus(), m.loadCmd())
	case t.Reverted != "":
		m.status = "delete failed: " + errorText(t.Err)
	case t.Err != nil:
		m.status = "create failed: " + errorText(t.Err)
	case t.Removed != "":
		delete(m.saved, t.Removed)
		m.status = "item deleted"
	case t.Inserted != "":
		if item, ok := m.ed.Outline().Item(t.Inserted); ok {
			m.saved[item.ID] = item.Text
		}
		m.status = "item created"
	case t.Stale:
		if m.ed.PendingCount() == 0 {
			m.status = "ready"
		}
	}
	return m, m.syncFocus()
}

func (m Model) logResult(res editor.Result, t editor.Transition) {
	fields := []any{
		"kind", res.Mutation.Kind,
		"item_id", res.Mutation.ItemID,
		"seq", res.Mutation.Seq,
		"elapsed", res.Elapsed,
		"applied", t.Applied,
		"stale", t.Stale,
	}
	if res.Err != nil {
		m.logger.Warn("mutation failed", append(fields, "timeout", res.TimedOut(), "err", res.Err)...)
		return
	}
	m.logger.Debug("mutation settled", fields...)
}

// applyLoaded installs a fetched outline.
func (m Model) applyLoaded(msg loadedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		if !m.loaded {
			m.err = msg.err
		}
		m.status = "load failed: " + msg.err.Error()
		m.logger.Error("list load failed", "ref", m.listRef, "err", msg.err)
		return m, nil
	}
	m.err = nil
	if !m.loaded {
		m.ed = editor.New(msg.outline, m.policy)
		m.loaded = true
		m.recordSaved(msg.outline)
	} else {
		m.replace(msg.outline)
	}
	m.status = "ready"
	return m, tea.Batch(m.syncFocus(), m.subscribeCmd(msg.outline.ListID))
}

// applySnapshot takes a pushed outline when no local mutation is in flight.
func (m Model) applySnapshot(msg snapshotMsg) (tea.Model, tea.Cmd) {
	if !msg.ok {
		if m.subscribedID == msg.listID {
			m.subscribedID = ""
			m.status = "live updates stopped"
		}
		return m, nil
	}
	if msg.listID != m.ed.Outline().ListID {
		return m, nil
	}
	var cmd tea.Cmd
	if m.ed.PendingCount() == 0 && len(m.fading) == 0 && !m.gestures.Dragging() {
		m.replace(msg.outline)
		cmd = m.syncFocus()
	}
	return m, tea.Batch(cmd, waitSnapshot(msg.listID, msg.ch))
}

// replace swaps the outline, keeping the text being typed into the focused item.
func (m *Model) replace(outline editor.Outline) {
	m.ed.Replace(outline)
	m.recordSaved(outline)
	if m.editingID == "" {
		return
	}
	if !m.ed.Focus().On(m.editingID) {
		return
	}
	m.ed.SetText(m.editingID, m.input.Value())
	m.resizeInput()
}

func (m *Model) recordSaved(outline editor.Outline) {
	for _, item := range outline.Items() {
		if item.ID == m.editingID {
			continue
		}
		m.saved[item.ID] = item.Text
	}
}

// syncFocus moves the textarea onto the editor's focus, saving the item it leaves.
func (m *Model) syncFocus() tea.Cmd {
	focus := m.ed.Focus()
	if focus.Container || focus.ItemID == "" {
		if m.editingID == "" {
			return nil
		}
		cmd := m.saveCmd(m.editingID)
		m.input.Blur()
		m.editingID = ""
		return cmd
	}
	if focus.ItemID == m.editingID {
		return nil
	}

	var cmd tea.Cmd
	if m.editingID != "" {
		cmd = m.saveCmd(m.editingID)
	}
	item, ok := m.ed.FocusedItem()
	if !ok {
		return cmd
	}
	m.editingID = item.ID
	m.input.SetValue(item.Text)
	if focus.Caret == editor.CaretStart {
		for m.input.Line() > 0 {
			m.input.CursorUp()
		}
		m.input.CursorStart()
	}
	// The cursor blink command is dropped; the caret stays steady.
	m.input.Focus()
	m.resizeInput()
	return cmd
}

// afterEdit copies textarea text into the outline and schedules the debounced save.
func (m *Model) afterEdit() tea.Cmd {
	if m.editingID == "" {
		return nil
	}
	value := m.input.Value()
	if item, ok := m.ed.Outline().Item(m.editingID); ok && item.Text == value {
		return nil
	}
	if !m.ed.SetText(m.editingID, value) {
		return nil
	}
	m.resizeInput()
	m.editRev++
	if m.saveDebounce <= 0 {
		return m.saveCmd(m.editingID)
	}
	itemID, rev := m.editingID, m.editRev
	return tea.Tick(m.saveDebounce, func(time.Time) tea.Msg {
		return saveDueMsg{itemID: itemID, rev: rev}
	})
}

// saveCmd persists one item's text when it differs from the last saved copy.
func (m Model) saveCmd(itemID string) tea.Cmd {
	if itemID == "" || m.remote == nil {
		return nil
	}
	item, ok := m.ed.Outline().Item(itemID)
	if !ok || m.saved[itemID] == item.Text {
		return nil
	}
	ctx, remote, timeout, text := m.ctx, m.remote, m.policy.RequestTimeout, item.Text
	return func() tea.Msg {
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		return savedMsg{itemID: itemID, text: text, err: remote.UpdateText(ctx, itemID, text)}
	}
}

// toggleCompleted flips one item locally and persists the new state.
func (m *Model) toggleCompleted(itemID string) tea.Cmd {
	item, ok := m.ed.Outline().Item(itemID)
	if !ok || m.remote == nil {
		return nil
	}
	done := !item.Completed
	if !m.ed.SetCompleted(itemID, done) {
		return nil
	}
	ctx, remote, timeout := m.ctx, m.remote, m.policy.RequestTimeout
	return func() tea.Msg {
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		return completedMsg{itemID: itemID, done: done, err: remote.SetCompleted(ctx, itemID, done)}
	}
}

// applyCompleted reverts a failed toggle when the item is still shown.
func (m Model) applyCompleted(msg completedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.ed.SetCompleted(msg.itemID, !msg.done)
		m.status = "completion failed: " + errorText(msg.err)
		m.logger.Warn("item completion failed", "item_id", msg.itemID, "done", msg.done, "err", msg.err)
		return m, nil
	}
	if msg.done {
		m.status = "item completed"
	} else {
		m.status = "item reopened"
	}
	m.logger.Debug("item completion saved", "item_id", msg.itemID, "done", msg.done)
	return m, nil
}

func (m Model) loadCmd() tea.Cmd {
	if m.remote == nil {
		return func() tea.Msg {
			return loadedMsg{err: editor.ErrNoTransport}
		}
	}
	ctx, remote, timeout, ref := m.ctx, m.remote, m.policy.RequestTimeout, m.listRef
	return func() tea.Msg {
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		outline, err := remote.LoadList(ctx, ref)
		if err != nil {
			return loadedMsg{err: fmt.Errorf("load list %q: %w", ref, err)}
		}
		return loadedMsg{outline: outline}
	}
}

// subscribeCmd opens the live stream once per list.
func (m Model) subscribeCmd(listID string) tea.Cmd {
	if m.live == nil || listID == "" || m.subscribedID == listID {
		return nil
	}
	ctx, live := m.ctx, m.live
	return func() tea.Msg {
		ch, err := live.Subscribe(ctx, listID)
		return subscribedMsg{listID: listID, ch: ch, err: err}
	}
}

func waitSnapshot(listID string, ch <-chan editor.Outline) tea.Cmd {
	return func() tea.Msg {
		outline, ok := <-ch
		return snapshotMsg{listID: listID, outline: outline, ch: ch, ok: ok}
	}
}

func (m Model) copyCmd(text string) tea.Cmd {
	write := m.copyText
	return func() tea.Msg {
		return copiedMsg{err: write(text)}
	}
}

// resizeInput fits the textarea to the focused text.
func (m *Model) resizeInput() {
	width := m.textWidth()
	m.input.SetWidth(width)
	m.input.SetHeight(editor.FitHeight(m.input.Value(), width-1, 1, m.maxRows))
}

func errorText(err error) string {
	if err == nil {
		return "unknown error"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "request timed out"
	}
	return err.Error()
}
