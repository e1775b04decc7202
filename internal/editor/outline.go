// Package editor holds the outline interaction core: the list model, key and swipe rules,
// async structural mutations and the focus they leave behind.
package editor

import (
	"slices"
	"strings"
)

// Item is one entry of an outline.
type Item struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed,omitempty"`
}

// Blank reports whether the item text holds nothing but whitespace.
func (i Item) Blank() bool {
	return strings.TrimSpace(i.Text) == ""
}

// Outline is the ordered item list the editor works on.
type Outline struct {
	ListID string
	Name   string
	items  []Item
}

// NewOutline constructs an outline from ordered items.
func NewOutline(listID, name string, items []Item) (Outline, error) {
	listID = strings.TrimSpace(listID)
	if listID == "" {
		return Outline{}, ErrInvalidList
	}
	if len(items) == 0 {
		return Outline{}, ErrEmptyList
	}
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if strings.TrimSpace(item.ID) == "" {
			return Outline{}, ErrInvalidItemID
		}
		if _, ok := seen[item.ID]; ok {
			return Outline{}, ErrDuplicateItem
		}
		seen[item.ID] = struct{}{}
	}
	return Outline{
		ListID: listID,
		Name:   strings.TrimSpace(name),
		items:  slices.Clone(items),
	}, nil
}

// Items returns a copy of the ordered items.
func (o Outline) Items() []Item {
	return slices.Clone(o.items)
}

// Len returns the item count.
func (o Outline) Len() int {
	return len(o.items)
}

// Index returns the position of one item, or -1.
func (o Outline) Index(id string) int {
	return slices.IndexFunc(o.items, func(item Item) bool { return item.ID == id })
}

// Has reports whether an item is present.
func (o Outline) Has(id string) bool {
	return o.Index(id) >= 0
}

// Item returns one item by id.
func (o Outline) Item(id string) (Item, bool) {
	idx := o.Index(id)
	if idx < 0 {
		return Item{}, false
	}
	return o.items[idx], true
}

// At returns the item at one position.
func (o Outline) At(idx int) (Item, bool) {
	if idx < 0 || idx >= len(o.items) {
		return Item{}, false
	}
	return o.items[idx], true
}

// Previous returns the sibling before one item.
func (o Outline) Previous(id string) (Item, bool) {
	idx := o.Index(id)
	if idx <= 0 {
		return Item{}, false
	}
	return o.items[idx-1], true
}

// Next returns the sibling after one item.
func (o Outline) Next(id string) (Item, bool) {
	idx := o.Index(id)
	if idx < 0 || idx >= len(o.items)-1 {
		return Item{}, false
	}
	return o.items[idx+1], true
}

// Clone returns an independent copy.
func (o Outline) Clone() Outline {
	o.items = slices.Clone(o.items)
	return o
}

// withText returns a copy with one item's text replaced.
func (o Outline) withText(id, text string) (Outline, bool) {
	idx := o.Index(id)
	if idx < 0 {
		return o, false
	}
	out := o.Clone()
	out.items[idx].Text = text
	return out, true
}

// withCompleted returns a copy with one item's completion flag replaced.
func (o Outline) withCompleted(id string, done bool) (Outline, bool) {
	idx := o.Index(id)
	if idx < 0 {
		return o, false
	}
	out := o.Clone()
	out.items[idx].Completed = done
	return out, true
}

// withInsertAfter returns a copy with item placed right after anchorID.
func (o Outline) withInsertAfter(anchorID string, item Item) (Outline, bool) {
	idx := o.Index(anchorID)
	if idx < 0 {
		return o, false
	}
	out := o.Clone()
	out.items = slices.Insert(out.items, idx+1, item)
	return out, true
}

// withRemoved returns a copy without one item.
func (o Outline) withRemoved(id string) (Outline, bool) {
	idx := o.Index(id)
	if idx < 0 {
		return o, false
	}
	out := o.Clone()
	out.items = slices.Delete(out.items, idx, idx+1)
	return out, true
}
