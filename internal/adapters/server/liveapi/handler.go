package liveapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/hylla/insync/internal/adapters/server/common"
)

// writeWait bounds one websocket frame write.
const writeWait = 10 * time.Second

// pingPeriod keeps idle connections alive through proxies.
const pingPeriod = 30 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4 * 1024,
	WriteBufferSize: 32 * 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := strings.TrimSpace(r.Header.Get("Origin"))
		if origin == "" {
			return true
		}
		return strings.Contains(origin, "://"+strings.TrimSpace(r.Host))
	},
}

// Handler serves `GET /ws/list/{listID}`.
type Handler struct {
	hub    *Hub
	lists  common.ListService
	logger *log.Logger
}

// NewHandler constructs one websocket handler. A nil logger discards output.
func NewHandler(hub *Hub, lists common.ListService, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Handler{hub: hub, lists: lists, logger: logger}
}

// ServeHTTP upgrades the request and streams list snapshots until the client leaves.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	listID := strings.Trim(strings.TrimSpace(r.URL.Path), "/")
	if listID == "" || strings.Contains(listID, "/") {
		http.Error(w, "list id is required", http.StatusNotFound)
		return
	}
	if h.hub == nil || h.lists == nil {
		http.Error(w, "live updates are not configured", http.StatusServiceUnavailable)
		return
	}
	view, err := h.lists.GetList(r.Context(), listID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			http.Error(w, "list not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	// subscribe on the resolved id, the path may carry a list name
	signals, cancel := h.hub.Subscribe(view.List.ID)
	defer cancel()

	ctx, stop := context.WithCancel(r.Context())
	defer stop()
	go func() {
		defer stop()
		// drain client frames so close and pong control frames are handled
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	h.logger.Debug("live subscriber connected", "list_id", view.List.ID)
	defer h.logger.Debug("live subscriber left", "list_id", view.List.ID)

	if err := writeFrame(conn, view); err != nil {
		return
	}
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case _, ok := <-signals:
			if !ok {
				return
			}
			next, err := h.lists.GetList(ctx, view.List.ID)
			if err != nil {
				h.logger.Warn("live snapshot failed", "list_id", view.List.ID, "err", err)
				continue
			}
			if err := writeFrame(conn, next); err != nil {
				return
			}
		}
	}
}

// writeFrame writes one list snapshot as a JSON text frame.
func writeFrame(conn *websocket.Conn, view common.ListView) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(view)
}
