package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nhle/milkfeed/internal/model"
)

const (
	// handshakeTimeout bounds the websocket opening handshake.
	handshakeTimeout = 10 * time.Second

	// pongWait is how long a connection may stay silent before it is
	// considered dead.
	pongWait = 60 * time.Second

	// pingPeriod must be shorter than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// writeWait bounds a single control frame write.
	writeWait = 10 * time.Second
)

// WebSocketURL builds the feed address from a host and a fixed path.
func WebSocketURL(host, path string, secure bool) string {
	scheme := "ws"
	if secure {
		scheme = "wss"
	}
	if path == "" {
		path = model.DefaultNotificationPath
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u := url.URL{Scheme: scheme, Host: host, Path: path}
	return u.String()
}

// WebSocketSource receives notifications over a websocket.
type WebSocketSource struct {
	url        string
	header     http.Header
	dialer     *websocket.Dialer
	pongWait   time.Duration
	pingPeriod time.Duration
}

// NewWebSocketSource creates a source for the given address. A non-empty
// token is sent as a Bearer Authorization header during the handshake.
func NewWebSocketSource(addr, token string) *WebSocketSource {
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	return &WebSocketSource{
		url:    addr,
		header: header,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
		},
		pongWait:   pongWait,
		pingPeriod: pingPeriod,
	}
}

// Name returns the transport name.
func (s *WebSocketSource) Name() string { return model.TransportWebSocket }

// URL returns the address the source dials.
func (s *WebSocketSource) URL() string { return s.url }

// SetLiveness overrides the silence timeout and ping interval.
func (s *WebSocketSource) SetLiveness(wait, ping time.Duration) {
	s.pongWait = wait
	s.pingPeriod = ping
}

// Connect dials the websocket and starts the keepalive pinger.
func (s *WebSocketSource) Connect(ctx context.Context) (Conn, error) {
	conn, resp, err := s.dialer.DialContext(ctx, s.url, s.header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dialing %s: status %d: %w", s.url, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("dialing %s: %w", s.url, err)
	}

	c := &wsConn{
		conn:     conn,
		pongWait: s.pongWait,
		done:     make(chan struct{}),
	}
	_ = conn.SetReadDeadline(time.Now().Add(s.pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(s.pongWait))
	})

	go c.keepalive(s.pingPeriod)

	return c, nil
}

// wsConn adapts a gorilla connection to Conn.
type wsConn struct {
	conn      *websocket.Conn
	pongWait  time.Duration
	done      chan struct{}
	closeOnce sync.Once
}

// Read returns the next text or binary frame.
func (c *wsConn) Read(_ context.Context) ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("reading websocket: %w", err)
	}
	_ = c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
	return data, nil
}

// Close stops the pinger and closes the socket.
func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait),
		)
		err = c.conn.Close()
	})
	return err
}

// keepalive pings the server so a half-open connection is detected by
// the read deadline.
func (c *wsConn) keepalive(period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			err := c.conn.WriteControl(
				websocket.PingMessage, nil, time.Now().Add(writeWait),
			)
			if err != nil {
				return
			}
		}
	}
}
