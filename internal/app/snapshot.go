package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hylla/insync/internal/domain"
)

// SnapshotVersion defines a package constant value.
const SnapshotVersion = "insync.snapshot.v1"

// Snapshot is a portable export of every list and item.
type Snapshot struct {
	Version    string         `json:"version" yaml:"version"`
	ExportedAt time.Time      `json:"exported_at" yaml:"exported_at"`
	Lists      []SnapshotList `json:"lists" yaml:"lists"`
	Items      []SnapshotItem `json:"items" yaml:"items"`
}

// SnapshotList represents snapshot list data used by this package.
type SnapshotList struct {
	ID        string    `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// SnapshotItem represents snapshot item data used by this package.
type SnapshotItem struct {
	ID        string    `json:"id" yaml:"id"`
	ListID    string    `json:"list_id" yaml:"list_id"`
	Position  int       `json:"position" yaml:"position"`
	Text      string    `json:"text" yaml:"text"`
	Completed bool      `json:"completed,omitempty" yaml:"completed,omitempty"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// ExportSnapshot handles export snapshot.
func (s *Service) ExportSnapshot(ctx context.Context) (Snapshot, error) {
	lists, err := s.repo.ListLists(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	snap := Snapshot{
		Version:    SnapshotVersion,
		ExportedAt: s.clock().UTC(),
		Lists:      make([]SnapshotList, 0, len(lists)),
		Items:      []SnapshotItem{},
	}
	for _, list := range lists {
		snap.Lists = append(snap.Lists, snapshotListFromDomain(list))
		items, err := s.repo.ListItems(ctx, list.ID)
		if err != nil {
			return Snapshot{}, err
		}
		for _, item := range items {
			snap.Items = append(snap.Items, snapshotItemFromDomain(item))
		}
	}
	snap.sort()
	return snap, nil
}

// ImportSnapshot upserts lists and replaces the items of every imported list.
func (s *Service) ImportSnapshot(ctx context.Context, snap Snapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}
	snap.sort()

	itemsByList := map[string][]domain.Item{}
	for _, item := range snap.Items {
		itemsByList[item.ListID] = append(itemsByList[item.ListID], item.toDomain())
	}
	now := s.clock()
	for _, list := range snap.Lists {
		if err := s.upsertList(ctx, list.toDomain()); err != nil {
			return err
		}
		items := itemsByList[list.ID]
		for i := range items {
			items[i].Position = i
		}
		if err := s.repo.ReplaceItems(ctx, list.ID, items); err != nil {
			return err
		}
		s.publish(ctx, list.ID, "", domain.ChangeOperationImport, now)
	}
	return nil
}

// Validate checks references, required fields and the one-item-per-list minimum.
func (s *Snapshot) Validate() error {
	if s.Version != "" && s.Version != SnapshotVersion {
		return fmt.Errorf("unsupported snapshot version: %q", s.Version)
	}

	listIDs := map[string]struct{}{}
	names := map[string]struct{}{}
	for i, l := range s.Lists {
		if strings.TrimSpace(l.ID) == "" {
			return fmt.Errorf("lists[%d].id is required", i)
		}
		if strings.TrimSpace(l.Name) == "" {
			return fmt.Errorf("lists[%d].name is required", i)
		}
		if l.CreatedAt.IsZero() || l.UpdatedAt.IsZero() {
			return fmt.Errorf("lists[%d] timestamps are required", i)
		}
		if _, exists := listIDs[l.ID]; exists {
			return fmt.Errorf("duplicate list id: %q", l.ID)
		}
		if _, exists := names[strings.TrimSpace(l.Name)]; exists {
			return fmt.Errorf("duplicate list name: %q", l.Name)
		}
		listIDs[l.ID] = struct{}{}
		names[strings.TrimSpace(l.Name)] = struct{}{}
	}

	itemIDs := map[string]struct{}{}
	counts := map[string]int{}
	for i, it := range s.Items {
		if strings.TrimSpace(it.ID) == "" {
			return fmt.Errorf("items[%d].id is required", i)
		}
		if it.Position < 0 {
			return fmt.Errorf("items[%d].position must be >= 0", i)
		}
		if len(it.Text) > domain.MaxTextLength {
			return fmt.Errorf("items[%d].text is too long", i)
		}
		if it.CreatedAt.IsZero() || it.UpdatedAt.IsZero() {
			return fmt.Errorf("items[%d] timestamps are required", i)
		}
		if _, ok := listIDs[it.ListID]; !ok {
			return fmt.Errorf("items[%d] references unknown list_id %q", i, it.ListID)
		}
		if _, exists := itemIDs[it.ID]; exists {
			return fmt.Errorf("duplicate item id: %q", it.ID)
		}
		itemIDs[it.ID] = struct{}{}
		counts[it.ListID]++
	}
	for _, l := range s.Lists {
		if counts[l.ID] == 0 {
			return fmt.Errorf("list %q has no items", l.ID)
		}
	}
	return nil
}

// upsertList creates or updates one list by id.
func (s *Service) upsertList(ctx context.Context, list domain.List) error {
	if _, err := s.repo.GetList(ctx, list.ID); err == nil {
		return s.repo.UpdateList(ctx, list)
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	return s.repo.CreateList(ctx, list)
}

// sort orders lists by id and items by list then position.
func (s *Snapshot) sort() {
	sort.Slice(s.Lists, func(i, j int) bool {
		return s.Lists[i].ID < s.Lists[j].ID
	})
	sort.SliceStable(s.Items, func(i, j int) bool {
		a := s.Items[i]
		b := s.Items[j]
		if a.ListID == b.ListID {
			if a.Position == b.Position {
				return a.ID < b.ID
			}
			return a.Position < b.Position
		}
		return a.ListID < b.ListID
	})
}

func snapshotListFromDomain(l domain.List) SnapshotList {
	return SnapshotList{
		ID:        l.ID,
		Name:      l.Name,
		CreatedAt: l.CreatedAt,
		UpdatedAt: l.UpdatedAt,
	}
}

func snapshotItemFromDomain(i domain.Item) SnapshotItem {
	return SnapshotItem{
		ID:        i.ID,
		ListID:    i.ListID,
		Position:  i.Position,
		Text:      i.Text,
		Completed: i.Completed,
		CreatedAt: i.CreatedAt,
		UpdatedAt: i.UpdatedAt,
	}
}

func (l SnapshotList) toDomain() domain.List {
	return domain.List{
		ID:        strings.TrimSpace(l.ID),
		Name:      strings.TrimSpace(l.Name),
		CreatedAt: l.CreatedAt.UTC(),
		UpdatedAt: l.UpdatedAt.UTC(),
	}
}

func (i SnapshotItem) toDomain() domain.Item {
	return domain.Item{
		ID:        strings.TrimSpace(i.ID),
		ListID:    strings.TrimSpace(i.ListID),
		Position:  i.Position,
		Text:      i.Text,
		Completed: i.Completed,
		CreatedAt: i.CreatedAt.UTC(),
		UpdatedAt: i.UpdatedAt.UTC(),
	}
}
