package common

import (
	"context"
	"errors"
	"fmt"

	"github.com/hylla/insync/internal/app"
	"github.com/hylla/insync/internal/domain"
)

// AppServiceAdapter maps transport contracts onto app.Service list APIs.
type AppServiceAdapter struct {
	service *app.Service
}

// NewAppServiceAdapter builds one common adapter over an app.Service instance.
func NewAppServiceAdapter(service *app.Service) *AppServiceAdapter {
	return &AppServiceAdapter{service: service}
}

// errNotConfigured reports an adapter without a backing service.
var errNotConfigured = errors.New("app service adapter is not configured")

// ListLists lists every list.
func (a *AppServiceAdapter) ListLists(ctx context.Context) ([]ListSummary, error) {
	if a == nil || a.service == nil {
		return nil, errNotConfigured
	}
	lists, err := a.service.ListLists(ctx)
	if err != nil {
		return nil, mapAppError("list lists", err)
	}
	out := make([]ListSummary, 0, len(lists))
	for _, l := range lists {
		out = append(out, mapList(l))
	}
	return out, nil
}

// GetList loads one list by id or name.
func (a *AppServiceAdapter) GetList(ctx context.Context, ref string) (ListView, error) {
	if a == nil || a.service == nil {
		return ListView{}, errNotConfigured
	}
	view, err := a.service.GetListView(ctx, ref)
	if err != nil {
		return ListView{}, mapAppError("get list", err)
	}
	return MapListView(view), nil
}

// CreateItemAfter inserts a blank item after an existing one.
func (a *AppServiceAdapter) CreateItemAfter(ctx context.Context, afterItemID string) (ItemView, error) {
	if a == nil || a.service == nil {
		return ItemView{}, errNotConfigured
	}
	item, err := a.service.CreateItemAfter(ctx, afterItemID)
	if err != nil {
		return ItemView{}, mapAppError("create item", err)
	}
	return mapItem(item), nil
}

// UpdateItemText replaces the text of one item.
func (a *AppServiceAdapter) UpdateItemText(ctx context.Context, itemID, text string) (ItemView, error) {
	if a == nil || a.service == nil {
		return ItemView{}, errNotConfigured
	}
	item, err := a.service.UpdateItemText(ctx, itemID, text)
	if err != nil {
		return ItemView{}, mapAppError("update item", err)
	}
	return mapItem(item), nil
}

// SetItemCompleted marks one item done or open.
func (a *AppServiceAdapter) SetItemCompleted(ctx context.Context, itemID string, done bool) (ItemView, error) {
	if a == nil || a.service == nil {
		return ItemView{}, errNotConfigured
	}
	item, err := a.service.SetItemCompleted(ctx, itemID, done)
	if err != nil {
		return ItemView{}, mapAppError("set item completed", err)
	}
	return mapItem(item), nil
}

// DeleteItem removes one item and returns what was removed.
func (a *AppServiceAdapter) DeleteItem(ctx context.Context, itemID string) (ItemView, error) {
	if a == nil || a.service == nil {
		return ItemView{}, errNotConfigured
	}
	item, err := a.service.DeleteItem(ctx, itemID)
	if err != nil {
		return ItemView{}, mapAppError("delete item", err)
	}
	return mapItem(item), nil
}

// MapListView converts an app list view to its transport form.
func MapListView(view app.ListView) ListView {
	out := ListView{
		List:  mapList(view.List),
		Items: make([]ItemView, 0, len(view.Items)),
	}
	for _, item := range view.Items {
		out.Items = append(out.Items, mapItem(item))
	}
	return out
}

func mapList(l domain.List) ListSummary {
	return ListSummary{ID: l.ID, Name: l.Name, UpdatedAt: l.UpdatedAt}
}

func mapItem(item domain.Item) ItemView {
	return ItemView{
		ID:        item.ID,
		ListID:    item.ListID,
		Position:  item.Position,
		Text:      item.Text,
		Completed: item.Completed,
		UpdatedAt: item.UpdatedAt,
	}
}

// mapAppError maps app and domain sentinels onto transport error categories.
func mapAppError(operation string, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, app.ErrNotFound):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrNotFound, err))
	case errors.Is(err, app.ErrLastItem),
		errors.Is(err, app.ErrAlreadyExists):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrConflict, err))
	case errors.Is(err, app.ErrInvalidReference),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrInvalidName),
		errors.Is(err, domain.ErrInvalidListID),
		errors.Is(err, domain.ErrInvalidPosition),
		errors.Is(err, domain.ErrInvalidText):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrInvalidRequest, err))
	default:
		return fmt.Errorf("%s: %w", operation, err)
	}
}
