package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/hylla/insync/internal/domain"
)

type fakeRepo struct {
	lists map[string]domain.List
	items map[string]domain.Item

	// beforeInsertAfter runs inside InsertItemAfter before the anchor is read.
	beforeInsertAfter func()
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		lists: map[string]domain.List{},
		items: map[string]domain.Item{},
	}
}

func (f *fakeRepo) CreateList(_ context.Context, l domain.List) error {
	f.lists[l.ID] = l
	return nil
}

func (f *fakeRepo) UpdateList(_ context.Context, l domain.List) error {
	if _, ok := f.lists[l.ID]; !ok {
		return ErrNotFound
	}
	f.lists[l.ID] = l
	return nil
}

func (f *fakeRepo) GetList(_ context.Context, id string) (domain.List, error) {
	l, ok := f.lists[id]
	if !ok {
		return domain.List{}, ErrNotFound
	}
	return l, nil
}

func (f *fakeRepo) GetListByName(_ context.Context, name string) (domain.List, error) {
	for _, l := range f.lists {
		if l.Name == name {
			return l, nil
		}
	}
	return domain.List{}, ErrNotFound
}

func (f *fakeRepo) ListLists(_ context.Context) ([]domain.List, error) {
	out := make([]domain.List, 0, len(f.lists))
	for _, l := range f.lists {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (f *fakeRepo) ListItems(_ context.Context, listID string) ([]domain.Item, error) {
	out := []domain.Item{}
	for _, it := range f.items {
		if it.ListID == listID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (f *fakeRepo) GetItem(_ context.Context, id string) (domain.Item, error) {
	it, ok := f.items[id]
	if !ok {
		return domain.Item{}, ErrNotFound
	}
	return it, nil
}

func (f *fakeRepo) InsertItem(_ context.Context, item domain.Item) error {
	for id, it := range f.items {
		if it.ListID == item.ListID && it.Position >= item.Position {
			it.Position++
			f.items[id] = it
		}
	}
	f.items[item.ID] = item
	return nil
}

func (f *fakeRepo) CreateListWithItem(ctx context.Context, l domain.List, item domain.Item) error {
	if err := f.CreateList(ctx, l); err != nil {
		return err
	}
	item.ListID = l.ID
	item.Position = 0
	f.items[item.ID] = item
	return nil
}

func (f *fakeRepo) InsertItemAfter(ctx context.Context, anchorID string, item domain.Item) (domain.Item, error) {
	if f.beforeInsertAfter != nil {
		f.beforeInsertAfter()
	}
	anchor, ok := f.items[anchorID]
	if !ok {
		return domain.Item{}, ErrNotFound
	}
	item.ListID = anchor.ListID
	item.Position = anchor.Position + 1
	return item, f.InsertItem(ctx, item)
}

func (f *fakeRepo) UpdateItem(_ context.Context, item domain.Item) error {
	if _, ok := f.items[item.ID]; !ok {
		return ErrNotFound
	}
	f.items[item.ID] = item
	return nil
}

func (f *fakeRepo) DeleteItem(ctx context.Context, id string) error {
	item, ok := f.items[id]
	if !ok {
		return ErrNotFound
	}
	siblings, _ := f.ListItems(ctx, item.ListID)
	if len(siblings) <= 1 {
		return ErrLastItem
	}
	delete(f.items, id)
	for sid, it := range f.items {
		if it.ListID == item.ListID && it.Position > item.Position {
			it.Position--
			f.items[sid] = it
		}
	}
	return nil
}

func (f *fakeRepo) ReplaceItems(_ context.Context, listID string, items []domain.Item) error {
	for id, it := range f.items {
		if it.ListID == listID {
			delete(f.items, id)
		}
	}
	for _, it := range items {
		f.items[it.ID] = it
	}
	return nil
}

// recordingNotifier captures published changes.
type recordingNotifier struct {
	mu      sync.Mutex
	changes []domain.ListChange
}

func (r *recordingNotifier) Publish(_ context.Context, change domain.ListChange) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, change)
}

func newTestService(t *testing.T) (*Service, *fakeRepo, *recordingNotifier) {
	t.Helper()
	repo := newFakeRepo()
	notifier := &recordingNotifier{}
	n := 0
	idGen := func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	now := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		now = now.Add(time.Second)
		return now
	}
	return NewService(repo, idGen, clock, ServiceConfig{Notifier: notifier}), repo, notifier
}

func itemIDs(items []domain.Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}

func TestEnsureDefaultListCreatesOnce(t *testing.T) {
	svc, _, _ := newTestService(t)
	first, err := svc.EnsureDefaultList(context.Background())
	if err != nil {
		t.Fatalf("EnsureDefaultList() error = %v", err)
	}
	if first.Name != DefaultListName {
		t.Fatalf("unexpected default list name %q", first.Name)
	}
	second, err := svc.EnsureDefaultList(context.Background())
	if err != nil {
		t.Fatalf("EnsureDefaultList() second error = %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected same list, got %q and %q", first.ID, second.ID)
	}
	view, err := svc.GetListView(context.Background(), first.ID)
	if err != nil {
		t.Fatalf("GetListView() error = %v", err)
	}
	if len(view.Items) != 1 || !view.Items[0].Blank() {
		t.Fatalf("expected one blank item, got %#v", view.Items)
	}
}

func TestCreateListRejectsDuplicateName(t *testing.T) {
	svc, _, _ := newTestService(t)
	if _, err := svc.CreateList(context.Background(), "Groceries"); err != nil {
		t.Fatalf("CreateList() error = %v", err)
	}
	if _, err := svc.CreateList(context.Background(), " Groceries "); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	if _, err := svc.CreateList(context.Background(), " "); !errors.Is(err, domain.ErrInvalidName) {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}
}

func TestGetListViewByIDOrName(t *testing.T) {
	svc, _, _ := newTestService(t)
	created, err := svc.CreateList(context.Background(), "Groceries")
	if err != nil {
		t.Fatalf("CreateList() error = %v", err)
	}
	byName, err := svc.GetListView(context.Background(), "Groceries")
	if err != nil {
		t.Fatalf("GetListView(name) error = %v", err)
	}
	if byName.List.ID != created.List.ID {
		t.Fatalf("unexpected list %#v", byName.List)
	}
	if _, err := svc.GetListView(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.GetListView(context.Background(), " "); !errors.Is(err, ErrInvalidReference) {
		t.Fatalf("expected ErrInvalidReference, got %v", err)
	}
}

func TestCreateItemAfterShiftsLaterItems(t *testing.T) {
	svc, _, notifier := newTestService(t)
	ctx := context.Background()
	view, err := svc.CreateList(ctx, "Groceries")
	if err != nil {
		t.Fatalf("CreateList() error = %v", err)
	}
	first := view.Items[0]
	second, err := svc.CreateItemAfter(ctx, first.ID)
	if err != nil {
		t.Fatalf("CreateItemAfter() error = %v", err)
	}
	middle, err := svc.CreateItemAfter(ctx, first.ID)
	if err != nil {
		t.Fatalf("CreateItemAfter() error = %v", err)
	}
	got, err := svc.GetListView(ctx, view.List.ID)
	if err != nil {
		t.Fatalf("GetListView() error = %v", err)
	}
	want := []string{first.ID, middle.ID, second.ID}
	if ids := itemIDs(got.Items); fmt.Sprint(ids) != fmt.Sprint(want) {
		t.Fatalf("items = %v, want %v", ids, want)
	}
	for i, it := range got.Items {
		if it.Position != i {
			t.Fatalf("item %q position = %d, want %d", it.ID, it.Position, i)
		}
	}
	if len(notifier.changes) != 3 || notifier.changes[2].Operation != domain.ChangeOperationCreate {
		t.Fatalf("unexpected changes %#v", notifier.changes)
	}
}

func TestCreateItemAfterUsesAnchorPositionAtInsert(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	view, _ := svc.CreateList(ctx, "Groceries")
	a := view.Items[0]
	b, _ := svc.CreateItemAfter(ctx, a.ID)
	c, _ := svc.CreateItemAfter(ctx, b.ID)

	repo.beforeInsertAfter = func() {
		if err := repo.DeleteItem(ctx, a.ID); err != nil {
			t.Fatalf("DeleteItem() error = %v", err)
		}
	}
	created, err := svc.CreateItemAfter(ctx, c.ID)
	if err != nil {
		t.Fatalf("CreateItemAfter() error = %v", err)
	}
	if created.Position != 2 {
		t.Fatalf("created position = %d, want 2", created.Position)
	}
	got, _ := svc.GetListView(ctx, view.List.ID)
	want := []string{b.ID, c.ID, created.ID}
	if ids := itemIDs(got.Items); fmt.Sprint(ids) != fmt.Sprint(want) {
		t.Fatalf("items = %v, want %v", ids, want)
	}
}

func TestCreateItemAfterRejectsBadReference(t *testing.T) {
	svc, _, _ := newTestService(t)
	if _, err := svc.CreateItemAfter(context.Background(), ""); !errors.Is(err, ErrInvalidReference) {
		t.Fatalf("expected ErrInvalidReference, got %v", err)
	}
	if _, err := svc.CreateItemAfter(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteItemGuardsLastItem(t *testing.T) {
	svc, _, notifier := newTestService(t)
	ctx := context.Background()
	view, _ := svc.CreateList(ctx, "Groceries")
	first := view.Items[0]
	if _, err := svc.DeleteItem(ctx, first.ID); !errors.Is(err, ErrLastItem) {
		t.Fatalf("expected ErrLastItem, got %v", err)
	}
	second, _ := svc.CreateItemAfter(ctx, first.ID)
	deleted, err := svc.DeleteItem(ctx, first.ID)
	if err != nil {
		t.Fatalf("DeleteItem() error = %v", err)
	}
	if deleted.ID != first.ID || deleted.ListID != view.List.ID {
		t.Fatalf("unexpected deleted item %#v", deleted)
	}
	got, _ := svc.GetListView(ctx, view.List.ID)
	if len(got.Items) != 1 || got.Items[0].ID != second.ID || got.Items[0].Position != 0 {
		t.Fatalf("unexpected items after delete %#v", got.Items)
	}
	last := notifier.changes[len(notifier.changes)-1]
	if last.Operation != domain.ChangeOperationDelete || last.ItemID != first.ID {
		t.Fatalf("unexpected last change %#v", last)
	}
	if _, err := svc.DeleteItem(ctx, first.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on repeat delete, got %v", err)
	}
}

func TestUpdateItemText(t *testing.T) {
	svc, _, notifier := newTestService(t)
	ctx := context.Background()
	view, _ := svc.CreateList(ctx, "Groceries")
	item, err := svc.UpdateItemText(ctx, view.Items[0].ID, "milk")
	if err != nil {
		t.Fatalf("UpdateItemText() error = %v", err)
	}
	if item.Text != "milk" {
		t.Fatalf("unexpected text %q", item.Text)
	}
	before := len(notifier.changes)
	if _, err := svc.UpdateItemText(ctx, item.ID, "milk"); err != nil {
		t.Fatalf("UpdateItemText() unchanged error = %v", err)
	}
	if len(notifier.changes) != before {
		t.Fatal("expected unchanged text not to publish")
	}
	if _, err := svc.UpdateItemText(ctx, "missing", "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSetItemCompleted(t *testing.T) {
	svc, repo, notifier := newTestService(t)
	ctx := context.Background()
	view, _ := svc.CreateList(ctx, "Groceries")
	id := view.Items[0].ID

	item, err := svc.SetItemCompleted(ctx, id, true)
	if err != nil {
		t.Fatalf("SetItemCompleted() error = %v", err)
	}
	if !item.Completed || !repo.items[id].Completed {
		t.Fatalf("expected stored completion, got %#v", repo.items[id])
	}
	last := notifier.changes[len(notifier.changes)-1]
	if last.Operation != domain.ChangeOperationUpdate || last.ItemID != id {
		t.Fatalf("unexpected last change %#v", last)
	}
	before := len(notifier.changes)
	if _, err := svc.SetItemCompleted(ctx, id, true); err != nil {
		t.Fatalf("SetItemCompleted() unchanged error = %v", err)
	}
	if len(notifier.changes) != before {
		t.Fatal("expected unchanged completion not to publish")
	}
	if item, _ := svc.SetItemCompleted(ctx, id, false); item.Completed {
		t.Fatal("expected item to be reopened")
	}
	if _, err := svc.SetItemCompleted(ctx, "missing", true); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.SetItemCompleted(ctx, " ", true); !errors.Is(err, ErrInvalidReference) {
		t.Fatalf("expected ErrInvalidReference, got %v", err)
	}
}
