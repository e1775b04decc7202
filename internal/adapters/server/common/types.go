// Package common provides transport-agnostic server contracts used by HTTP, MCP and live adapters.
package common

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound reports missing transport-visible resources.
var ErrNotFound = errors.New("not found")

// ErrInvalidRequest reports malformed or unresolvable input.
var ErrInvalidRequest = errors.New("invalid request")

// ErrConflict reports a request the current list state refuses.
var ErrConflict = errors.New("conflict")

// ListSummary is the transport view of one list.
type ListSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ItemView is the transport view of one list item.
type ItemView struct {
	ID        string    `json:"id"`
	ListID    string    `json:"list_id"`
	Position  int       `json:"position"`
	Text      string    `json:"text"`
	Completed bool      `json:"completed"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListView is one list with ordered items.
type ListView struct {
	List  ListSummary `json:"list"`
	Items []ItemView  `json:"items"`
}

// ListService is the list surface every transport adapter serves.
type ListService interface {
	ListLists(context.Context) ([]ListSummary, error)
	GetList(context.Context, string) (ListView, error)
	CreateItemAfter(context.Context, string) (ItemView, error)
	UpdateItemText(context.Context, string, string) (ItemView, error)
	SetItemCompleted(context.Context, string, bool) (ItemView, error)
	DeleteItem(context.Context, string) (ItemView, error)
}
