package realtime

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const maxFrameSize = 64 * 1024

// Conn - одно установленное соединение. *websocket.Conn подходит как есть.
type Conn interface {
	ReadJSON(v interface{}) error
	WriteJSON(v interface{}) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

type Transport interface {
	Dial(ctx context.Context, url string, header http.Header) (Conn, error)
}

// WebSocketTransport подключается через gorilla/websocket
type WebSocketTransport struct {
	Dialer *websocket.Dialer
}

func (t WebSocketTransport) Dial(ctx context.Context, url string, header http.Header) (Conn, error) {
	dialer := t.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	conn, resp, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
				return nil, fmt.Errorf("%w: status %d", ErrUnauthorized, resp.StatusCode)
			}
			return nil, fmt.Errorf("handshake failed with status %d: %w", resp.StatusCode, err)
		}
		return nil, err
	}

	conn.SetReadLimit(maxFrameSize)
	return conn, nil
}
