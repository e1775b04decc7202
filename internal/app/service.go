package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hylla/insync/internal/domain"
)

// DefaultListName names the list created on first start.
const DefaultListName = "Inbox"

// ServiceConfig holds configuration for service.
type ServiceConfig struct {
	DefaultListName string
	Notifier        ChangeNotifier
}

// IDGenerator returns unique identifiers for new entities.
type IDGenerator func() string

// Clock returns the current time.
type Clock func() time.Time

// ListView is one list with its items in position order.
type ListView struct {
	List  domain.List
	Items []domain.Item
}

// Service implements list and item use cases over a Repository.
type Service struct {
	repo            Repository
	idGen           IDGenerator
	clock           Clock
	notifier        ChangeNotifier
	defaultListName string
}

// NewService constructs a new value for this package.
func NewService(repo Repository, idGen IDGenerator, clock Clock, cfg ServiceConfig) *Service {
	if idGen == nil {
		idGen = func() string { return "" }
	}
	if clock == nil {
		clock = time.Now
	}
	name := strings.TrimSpace(cfg.DefaultListName)
	if name == "" {
		name = DefaultListName
	}
	return &Service{
		repo:            repo,
		idGen:           idGen,
		clock:           clock,
		notifier:        cfg.Notifier,
		defaultListName: name,
	}
}

// SetNotifier swaps the change notifier. A nil notifier disables publishing.
func (s *Service) SetNotifier(n ChangeNotifier) {
	s.notifier = n
}

// EnsureDefaultList returns the first list, creating the default one when none exist.
func (s *Service) EnsureDefaultList(ctx context.Context) (domain.List, error) {
	lists, err := s.repo.ListLists(ctx)
	if err != nil {
		return domain.List{}, err
	}
	if len(lists) > 0 {
		return lists[0], nil
	}
	view, err := s.CreateList(ctx, s.defaultListName)
	if err != nil {
		return domain.List{}, err
	}
	return view.List, nil
}

// CreateList creates a named list holding one blank item.
func (s *Service) CreateList(ctx context.Context, name string) (ListView, error) {
	now := s.clock()
	list, err := domain.NewList(s.idGen(), name, now)
	if err != nil {
		return ListView{}, err
	}
	if _, err := s.repo.GetListByName(ctx, list.Name); err == nil {
		return ListView{}, fmt.Errorf("list %q: %w", list.Name, ErrAlreadyExists)
	} else if !errors.Is(err, ErrNotFound) {
		return ListView{}, err
	}
	item, err := domain.NewItem(s.idGen(), list.ID, 0, "", now)
	if err != nil {
		return ListView{}, err
	}
	if err := s.repo.CreateListWithItem(ctx, list, item); err != nil {
		return ListView{}, err
	}
	s.publish(ctx, list.ID, item.ID, domain.ChangeOperationCreate, now)
	return ListView{List: list, Items: []domain.Item{item}}, nil
}

// ListLists returns all lists.
func (s *Service) ListLists(ctx context.Context) ([]domain.List, error) {
	return s.repo.ListLists(ctx)
}

// GetListView resolves a list by id, then by name, and loads its items.
func (s *Service) GetListView(ctx context.Context, ref string) (ListView, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ListView{}, fmt.Errorf("list reference is required: %w", ErrInvalidReference)
	}
	list, err := s.repo.GetList(ctx, ref)
	if errors.Is(err, ErrNotFound) {
		list, err = s.repo.GetListByName(ctx, ref)
	}
	if err != nil {
		return ListView{}, err
	}
	items, err := s.repo.ListItems(ctx, list.ID)
	if err != nil {
		return ListView{}, err
	}
	return ListView{List: list, Items: items}, nil
}

// CreateItemAfter inserts a blank item directly after an existing one.
func (s *Service) CreateItemAfter(ctx context.Context, afterItemID string) (domain.Item, error) {
	afterItemID = strings.TrimSpace(afterItemID)
	if afterItemID == "" {
		return domain.Item{}, fmt.Errorf("after_item_id is required: %w", ErrInvalidReference)
	}
	anchor, err := s.repo.GetItem(ctx, afterItemID)
	if err != nil {
		return domain.Item{}, err
	}
	now := s.clock()
	item, err := domain.NewItem(s.idGen(), anchor.ListID, anchor.Position+1, "", now)
	if err != nil {
		return domain.Item{}, err
	}
	item, err = s.repo.InsertItemAfter(ctx, anchor.ID, item)
	if err != nil {
		return domain.Item{}, err
	}
	s.touchList(ctx, item.ListID, now)
	s.publish(ctx, item.ListID, item.ID, domain.ChangeOperationCreate, now)
	return item, nil
}

// UpdateItemText replaces the text of one item.
func (s *Service) UpdateItemText(ctx context.Context, itemID, text string) (domain.Item, error) {
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return domain.Item{}, fmt.Errorf("item id is required: %w", ErrInvalidReference)
	}
	item, err := s.repo.GetItem(ctx, itemID)
	if err != nil {
		return domain.Item{}, err
	}
	if item.Text == text {
		return item, nil
	}
	now := s.clock()
	if err := item.SetText(text, now); err != nil {
		return domain.Item{}, err
	}
	if err := s.repo.UpdateItem(ctx, item); err != nil {
		return domain.Item{}, err
	}
	s.touchList(ctx, item.ListID, now)
	s.publish(ctx, item.ListID, item.ID, domain.ChangeOperationUpdate, now)
	return item, nil
}

// SetItemCompleted marks one item done or open. Setting the current state is a no-op.
func (s *Service) SetItemCompleted(ctx context.Context, itemID string, done bool) (domain.Item, error) {
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return domain.Item{}, fmt.Errorf("item id is required: %w", ErrInvalidReference)
	}
	item, err := s.repo.GetItem(ctx, itemID)
	if err != nil {
		return domain.Item{}, err
	}
	if item.Completed == done {
		return item, nil
	}
	now := s.clock()
	item.SetCompleted(done, now)
	if err := s.repo.UpdateItem(ctx, item); err != nil {
		return domain.Item{}, err
	}
	s.touchList(ctx, item.ListID, now)
	s.publish(ctx, item.ListID, item.ID, domain.ChangeOperationUpdate, now)
	return item, nil
}

// DeleteItem removes one item. The last item of a list is refused with ErrLastItem.
func (s *Service) DeleteItem(ctx context.Context, itemID string) (domain.Item, error) {
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return domain.Item{}, fmt.Errorf("item id is required: %w", ErrInvalidReference)
	}
	item, err := s.repo.GetItem(ctx, itemID)
	if err != nil {
		return domain.Item{}, err
	}
	if err := s.repo.DeleteItem(ctx, itemID); err != nil {
		return domain.Item{}, err
	}
	now := s.clock()
	s.touchList(ctx, item.ListID, now)
	s.publish(ctx, item.ListID, item.ID, domain.ChangeOperationDelete, now)
	return item, nil
}

// touchList bumps the list timestamp; failures are not fatal to the item change.
func (s *Service) touchList(ctx context.Context, listID string, now time.Time) {
	list, err := s.repo.GetList(ctx, listID)
	if err != nil {
		return
	}
	list.Touch(now)
	_ = s.repo.UpdateList(ctx, list)
}

// publish forwards one change to the notifier when configured.
func (s *Service) publish(ctx context.Context, listID, itemID string, op domain.ChangeOperation, now time.Time) {
	if s.notifier == nil {
		return
	}
	s.notifier.Publish(ctx, domain.ListChange{
		ListID:     listID,
		ItemID:     itemID,
		Operation:  op,
		OccurredAt: now.UTC(),
	})
}
