package stream

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocketDialer is the production Dialer, backed by gorilla/websocket.
type WebSocketDialer struct {
	dialer *websocket.Dialer
	header http.Header
}

// WebSocketOption customizes the production dialer.
type WebSocketOption func(*WebSocketDialer)

// WithHandshakeTimeout bounds the duplex handshake.
func WithHandshakeTimeout(timeout time.Duration) WebSocketOption {
	return func(d *WebSocketDialer) {
		if timeout > 0 {
			d.dialer.HandshakeTimeout = timeout
		}
	}
}

// WithHandshakeHeader adds a header to every handshake request.
func WithHandshakeHeader(key, value string) WebSocketOption {
	return func(d *WebSocketDialer) {
		d.header.Set(key, value)
	}
}

func NewWebSocketDialer(options ...WebSocketOption) *WebSocketDialer {
	dialer := &WebSocketDialer{
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 10 * time.Second,
		},
		header: http.Header{},
	}
	for _, option := range options {
		if option != nil {
			option(dialer)
		}
	}
	return dialer
}

func (d *WebSocketDialer) DialContext(ctx context.Context, rawURL string) (Conn, error) {
	conn, res, err := d.dialer.DialContext(ctx, rawURL, d.header)
	if err != nil {
		if res != nil && res.Body != nil {
			res.Body.Close()
		}
		return nil, err
	}
	return &webSocketConn{conn: conn}, nil
}

type webSocketConn struct {
	conn *websocket.Conn
}

func (c *webSocketConn) ReadMessage() ([]byte, error) {
	_, payload, err := c.conn.ReadMessage()
	return payload, err
}

func (c *webSocketConn) WriteMessage(payload []byte) error {
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

func (c *webSocketConn) Close() error {
	return c.conn.Close()
}
