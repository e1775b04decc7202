package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hylla/insync/internal/adapters/server/common"
	"github.com/hylla/insync/internal/editor"
)

// dialTimeout bounds the websocket handshake.
const dialTimeout = 10 * time.Second

// Subscribe streams list snapshots pushed by the server. The channel closes when ctx ends
// or the connection drops.
func (c *Client) Subscribe(ctx context.Context, listID string) (<-chan editor.Outline, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	u := *c.baseURL
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = c.baseURL.Path + "/" + c.liveEndpoint + "/" + url.PathEscape(listID)

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	conn, resp, err := websocket.DefaultDialer.DialContext(dialCtx, u.String(), nil)
	if err != nil {
		if resp != nil {
			_ = resp.Body.Close()
			return nil, fmt.Errorf("dial websocket: %w", &StatusError{Method: "GET", Path: u.Path, StatusCode: resp.StatusCode})
		}
		return nil, fmt.Errorf("dial websocket: %w", err)
	}

	out := make(chan editor.Outline, 1)
	readerDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "closing"),
				time.Now().Add(time.Second),
			)
		case <-readerDone:
		}
		_ = conn.Close()
	}()
	go func() {
		defer close(out)
		defer close(readerDone)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var view common.ListView
			if err := json.Unmarshal(data, &view); err != nil {
				continue
			}
			outline, err := OutlineFromView(view)
			if err != nil {
				continue
			}
			// keep only the newest snapshot
			select {
			case out <- outline:
			default:
				select {
				case <-out:
				default:
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
