package bus

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/errorterry/algotrack-agent/internal/messages"
)

// frame is the wire unit between hub and clients.
type frame struct {
	Topic    string            `json:"topic"`
	Envelope messages.Envelope `json:"envelope"`
}

// clientBuffer bounds the per-connection write queue.
const clientBuffer = 64

// Hub relays frames between context processes. Every frame received from
// one connection is forwarded to all other connections; clients filter by
// topic on their side. The hub never inspects message bodies.
type Hub struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[*websocket.Conn]chan frame
}

// NewHub creates a hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger: logger,
		conns:  make(map[*websocket.Conn]chan frame),
	}
}

// ServeHTTP upgrades the request and pumps frames until the peer goes
// away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("hub upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}

	out := make(chan frame, clientBuffer)
	h.mu.Lock()
	h.conns[conn] = out
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.conns, conn)
		h.mu.Unlock()
		_ = conn.Close()
	}()

	go func() {
		for f := range out {
			if err := conn.WriteJSON(f); err != nil {
				return
			}
		}
	}()

	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("hub read ended", "remote", r.RemoteAddr, "err", err)
			}
			return
		}
		h.broadcast(conn, f)
	}
}

// broadcast forwards f to every connection except the sender, dropping
// frames for connections whose write queue is full.
func (h *Hub) broadcast(from *websocket.Conn, f frame) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn, out := range h.conns {
		if conn == from {
			continue
		}
		select {
		case out <- f:
		default:
			h.logger.Warn("hub dropping frame for slow client", "topic", f.Topic)
		}
	}
}

// ListenAndServe runs the hub on addr until ctx ends.
func (h *Hub) ListenAndServe(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/ws", h)

	srv := &http.Server{Addr: addr, Handler: mux}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	h.logger.Info("hub listening", "addr", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Client is the Bus implementation for a context process connected to a
// hub. Published envelopes are delivered to the process's own subscribers
// and forwarded to the hub; frames arriving from the hub are dispatched to
// local subscribers by topic.
type Client struct {
	conn    *websocket.Conn
	local   *Memory
	logger  *slog.Logger
	writeMu sync.Mutex
	done    chan struct{}
}

// Dial connects to a hub at wsURL (ws://host:port/ws).
func Dial(ctx context.Context, wsURL string, logger *slog.Logger) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, err
	}
	c := &Client{
		conn:   conn,
		local:  NewMemory(),
		logger: logger,
		done:   make(chan struct{}),
	}
	go c.readPump()
	return c, nil
}

// Publish sends env to local subscribers and to the hub.
func (c *Client) Publish(ctx context.Context, topic string, env messages.Envelope) error {
	if err := c.local.Publish(ctx, topic, env); err != nil {
		return err
	}
	raw, err := json.Marshal(frame{Topic: topic, Envelope: env})
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, raw)
}

// Subscribe registers h for topic.
func (c *Client) Subscribe(topic string, h Handler) (cancel func()) {
	return c.local.Subscribe(topic, h)
}

// Close tears the connection down.
func (c *Client) Close() error {
	close(c.done)
	err := c.conn.Close()
	_ = c.local.Close()
	return err
}

func (c *Client) readPump() {
	for {
		var f frame
		if err := c.conn.ReadJSON(&f); err != nil {
			select {
			case <-c.done:
			default:
				c.logger.Debug("hub connection lost", "err", err)
			}
			return
		}
		_ = c.local.Publish(context.Background(), f.Topic, f.Envelope)
	}
}
