// Package local serves the editor from an in-process list service.
package local

import (
	"context"
	"errors"
	"fmt"

	"github.com/hylla/insync/internal/adapters/server/common"
	"github.com/hylla/insync/internal/adapters/server/liveapi"
	"github.com/hylla/insync/internal/adapters/transport/httpclient"
	"github.com/hylla/insync/internal/editor"
)

// Transport implements editor.Remote over common.ListService.
type Transport struct {
	lists common.ListService
	hub   *liveapi.Hub
}

// New returns a transport. hub may be nil, which disables Subscribe.
func New(lists common.ListService, hub *liveapi.Hub) (*Transport, error) {
	if lists == nil {
		return nil, fmt.Errorf("list service is required")
	}
	return &Transport{lists: lists, hub: hub}, nil
}

// CreateAfter inserts a blank item after afterItemID.
func (t *Transport) CreateAfter(ctx context.Context, afterItemID string) (editor.Fragment, error) {
	item, err := t.lists.CreateItemAfter(ctx, afterItemID)
	if err != nil {
		return editor.Fragment{}, translate(err)
	}
	return editor.Fragment{Item: editor.Item{ID: item.ID, Text: item.Text, Completed: item.Completed}}, nil
}

// Delete removes one item.
func (t *Transport) Delete(ctx context.Context, itemID string) error {
	_, err := t.lists.DeleteItem(ctx, itemID)
	return translate(err)
}

// UpdateText replaces one item's text.
func (t *Transport) UpdateText(ctx context.Context, itemID, text string) error {
	_, err := t.lists.UpdateItemText(ctx, itemID, text)
	return translate(err)
}

// SetCompleted marks one item done or open.
func (t *Transport) SetCompleted(ctx context.Context, itemID string, done bool) error {
	_, err := t.lists.SetItemCompleted(ctx, itemID, done)
	return translate(err)
}

// LoadList fetches one list by id or name.
func (t *Transport) LoadList(ctx context.Context, ref string) (editor.Outline, error) {
	view, err := t.lists.GetList(ctx, ref)
	if err != nil {
		return editor.Outline{}, translate(err)
	}
	return httpclient.OutlineFromView(view)
}

// Subscribe reloads the list after every hub signal. The channel closes when ctx ends.
func (t *Transport) Subscribe(ctx context.Context, listID string) (<-chan editor.Outline, error) {
	if t.hub == nil {
		return nil, fmt.Errorf("live updates are not configured")
	}
	signals, cancel := t.hub.Subscribe(listID)
	out := make(chan editor.Outline, 1)
	go func() {
		defer close(out)
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case <-signals:
				outline, err := t.LoadList(ctx, listID)
				if err != nil {
					continue
				}
				select {
				case out <- outline:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// translate maps transport-level not-found onto the editor sentinel.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, common.ErrNotFound) {
		return errors.Join(editor.ErrNotFound, err)
	}
	return err
}
