package app

import (
	"context"

	"github.com/hylla/insync/internal/domain"
)

// Repository persists lists and their ordered items.
type Repository interface {
	CreateList(context.Context, domain.List) error
	// CreateListWithItem stores a list and its first item atomically.
	CreateListWithItem(context.Context, domain.List, domain.Item) error
	UpdateList(context.Context, domain.List) error
	GetList(context.Context, string) (domain.List, error)
	GetListByName(context.Context, string) (domain.List, error)
	ListLists(context.Context) ([]domain.List, error)

	ListItems(context.Context, string) ([]domain.Item, error)
	GetItem(context.Context, string) (domain.Item, error)
	// InsertItem stores the item at its position, shifting later items down by one.
	InsertItem(context.Context, domain.Item) error
	// InsertItemAfter stores the item directly after the anchor item, reading the anchor
	// position in the same transaction. It returns the item with its list and position set.
	InsertItemAfter(context.Context, string, domain.Item) (domain.Item, error)
	UpdateItem(context.Context, domain.Item) error
	// DeleteItem removes one item and compacts positions. It returns ErrLastItem when the
	// item is the only one left in its list.
	DeleteItem(context.Context, string) error
	// ReplaceItems swaps the full item set of one list.
	ReplaceItems(context.Context, string, []domain.Item) error
}

// ChangeNotifier receives list changes after they are persisted.
type ChangeNotifier interface {
	Publish(context.Context, domain.ListChange)
}
