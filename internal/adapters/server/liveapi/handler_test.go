package liveapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hylla/insync/internal/adapters/server/common"
	"github.com/hylla/insync/internal/domain"
)

// stubLists serves a mutable list view.
type stubLists struct {
	mu   sync.Mutex
	view common.ListView
}

func (s *stubLists) set(items ...common.ItemView) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.Items = items
}

func (s *stubLists) ListLists(context.Context) ([]common.ListSummary, error) {
	return []common.ListSummary{s.view.List}, nil
}

func (s *stubLists) GetList(_ context.Context, ref string) (common.ListView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ref != s.view.List.ID && ref != s.view.List.Name {
		return common.ListView{}, common.ErrNotFound
	}
	out := s.view
	out.Items = append([]common.ItemView(nil), s.view.Items...)
	return out, nil
}

func (s *stubLists) CreateItemAfter(context.Context, string) (common.ItemView, error) {
	return common.ItemView{}, nil
}

func (s *stubLists) UpdateItemText(context.Context, string, string) (common.ItemView, error) {
	return common.ItemView{}, nil
}

func (s *stubLists) SetItemCompleted(context.Context, string, bool) (common.ItemView, error) {
	return common.ItemView{}, nil
}

func (s *stubLists) DeleteItem(context.Context, string) (common.ItemView, error) {
	return common.ItemView{}, nil
}

func TestHandlerStreamsSnapshots(t *testing.T) {
	hub := NewHub()
	lists := &stubLists{view: common.ListView{
		List:  common.ListSummary{ID: "l1", Name: "Groceries"},
		Items: []common.ItemView{{ID: "a", ListID: "l1"}},
	}}
	srv := httptest.NewServer(http.StripPrefix("/ws/list", NewHandler(hub, lists, nil)))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/list/Groceries"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var first common.ListView
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if first.List.ID != "l1" || len(first.Items) != 1 {
		t.Fatalf("unexpected first frame %#v", first)
	}

	deadline := time.Now().Add(2 * time.Second)
	for hub.Subscribers("l1") == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	lists.set(common.ItemView{ID: "a", ListID: "l1"}, common.ItemView{ID: "b", ListID: "l1", Position: 1})
	hub.Publish(context.Background(), domain.ListChange{ListID: "l1", ItemID: "b", Operation: domain.ChangeOperationCreate})

	var second common.ListView
	if err := conn.ReadJSON(&second); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if len(second.Items) != 2 || second.Items[1].ID != "b" {
		t.Fatalf("unexpected second frame %#v", second)
	}
}

func TestHandlerRejectsUnknownList(t *testing.T) {
	lists := &stubLists{view: common.ListView{List: common.ListSummary{ID: "l1", Name: "x"}}}
	rec := httptest.NewRecorder()
	NewHandler(NewHub(), lists, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}
