package domain

import (
	"strings"
	"time"
)

// MaxNameLength bounds list names.
const MaxNameLength = 120

// List is a named, ordered outline of items.
type List struct {
	ID        string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewList constructs a list with a trimmed, non-blank name.
func NewList(id, name string, now time.Time) (List, error) {
	id = strings.TrimSpace(id)
	name = strings.TrimSpace(name)
	if id == "" {
		return List{}, ErrInvalidID
	}
	if name == "" || len([]rune(name)) > MaxNameLength {
		return List{}, ErrInvalidName
	}
	return List{
		ID:        id,
		Name:      name,
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}, nil
}

// Rename renames the list.
func (l *List) Rename(name string, now time.Time) error {
	name = strings.TrimSpace(name)
	if name == "" || len([]rune(name)) > MaxNameLength {
		return ErrInvalidName
	}
	l.Name = name
	l.UpdatedAt = now.UTC()
	return nil
}

// Touch bumps the update timestamp after an item change.
func (l *List) Touch(now time.Time) {
	l.UpdatedAt = now.UTC()
}
