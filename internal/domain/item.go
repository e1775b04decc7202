package domain

import (
	"strings"
	"time"
)

// MaxTextLength bounds item text in bytes.
const MaxTextLength = 16 * 1024

// Item is one entry of a list. Positions are dense from zero within a list.
type Item struct {
	ID        string
	ListID    string
	Position  int
	Text      string
	Completed bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewItem constructs an item at a position.
func NewItem(id, listID string, position int, text string, now time.Time) (Item, error) {
	id = strings.TrimSpace(id)
	listID = strings.TrimSpace(listID)
	if id == "" {
		return Item{}, ErrInvalidID
	}
	if listID == "" {
		return Item{}, ErrInvalidListID
	}
	if position < 0 {
		return Item{}, ErrInvalidPosition
	}
	if len(text) > MaxTextLength {
		return Item{}, ErrInvalidText
	}
	return Item{
		ID:        id,
		ListID:    listID,
		Position:  position,
		Text:      text,
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}, nil
}

// SetText replaces the item text. Text is stored as typed, whitespace included.
func (i *Item) SetText(text string, now time.Time) error {
	if len(text) > MaxTextLength {
		return ErrInvalidText
	}
	i.Text = text
	i.UpdatedAt = now.UTC()
	return nil
}

// SetCompleted marks the item done or open.
func (i *Item) SetCompleted(done bool, now time.Time) {
	i.Completed = done
	i.UpdatedAt = now.UTC()
}

// SetPosition handles set position.
func (i *Item) SetPosition(position int, now time.Time) error {
	if position < 0 {
		return ErrInvalidPosition
	}
	i.Position = position
	i.UpdatedAt = now.UTC()
	return nil
}

// Blank reports whether the item holds only whitespace.
func (i Item) Blank() bool {
	return strings.TrimSpace(i.Text) == ""
}
