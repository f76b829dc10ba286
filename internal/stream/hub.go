package stream

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"morphtree/internal/sim"
)

const (
	sendQueue    = 4
	requestQueue = 16
	writeWait    = 2 * time.Second
	maxMessage   = 512
)

// Request is a mode change asked for by a remote client.
type Request struct {
	Toggle bool
	Mode   sim.Mode // used when Toggle is false
}

// ParseRequest understands "toggle" plus any name sim.ParseMode accepts.
func ParseRequest(msg string) (Request, error) {
	if strings.EqualFold(strings.TrimSpace(msg), "toggle") {
		return Request{Toggle: true}, nil
	}
	m, err := sim.ParseMode(msg)
	if err != nil {
		return Request{}, err
	}
	return Request{Mode: m}, nil
}

// Apply returns the mode that results from r given the current one.
func (r Request) Apply(cur sim.Mode) sim.Mode {
	if r.Toggle {
		return cur.Toggle()
	}
	return r.Mode
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans encoded frames out to websocket viewers and collects their
// mode requests. A viewer that cannot keep up misses frames.
type Hub struct {
	log      zerolog.Logger
	upgrader websocket.Upgrader
	requests chan Request

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
	dropped uint64
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		log: log.With().Str("component", "stream").Logger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		requests: make(chan Request, requestQueue),
		clients:  make(map[*client]struct{}),
	}
}

// Handler serves the websocket endpoint at /ws.
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.serveWS)
	return mux
}

// Requests delivers client mode requests in arrival order.
func (h *Hub) Requests() <-chan Request { return h.requests }

// Clients returns the number of connected viewers.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Dropped returns how many frames were skipped for slow viewers.
func (h *Hub) Dropped() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}

// Broadcast encodes f once and queues it for every viewer without blocking.
func (h *Hub) Broadcast(f Frame) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed || len(h.clients) == 0 {
		return
	}
	msg := Encode(nil, f)
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.dropped++
		}
	}
}

// ListenAndServe runs the endpoint on addr until ctx is cancelled.
func (h *Hub) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	h.log.Info().Str("addr", addr).Msg("streaming frames")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Start runs ListenAndServe in the background. The returned channel closes
// once the server has stopped; failures are logged.
func (h *Hub) Start(ctx context.Context, addr string) <-chan struct{} {
	served := make(chan struct{})
	go func() {
		defer close(served)
		if err := h.ListenAndServe(ctx, addr); err != nil {
			h.log.Error().Err(err).Msg("stream server stopped")
		}
	}()
	return served
}

// Close disconnects every viewer. Later broadcasts are ignored.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		var hsErr websocket.HandshakeError
		if !errors.As(err, &hsErr) {
			h.log.Warn().Err(err).Msg("upgrade failed")
		}
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendQueue)}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	h.log.Info().Str("remote", r.RemoteAddr).Msg("viewer connected")
	go h.writeLoop(c)
	go h.readLoop(c, r.RemoteAddr)
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) writeLoop(c *client) {
	defer c.conn.Close()
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.BinaryMessage, msg); err != nil {
			h.remove(c)
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
}

func (h *Hub) readLoop(c *client, remote string) {
	defer func() {
		h.remove(c)
		h.log.Info().Str("remote", remote).Msg("viewer disconnected")
	}()

	c.conn.SetReadLimit(maxMessage)
	for {
		kind, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.log.Warn().Err(err).Str("remote", remote).Msg("read failed")
			}
			return
		}
		if kind != websocket.TextMessage {
			continue
		}
		req, err := ParseRequest(string(msg))
		if err != nil {
			h.log.Debug().Str("remote", remote).Str("msg", string(msg)).Msg("ignoring request")
			continue
		}
		select {
		case h.requests <- req:
		default:
			h.log.Warn().Msg("request queue full, dropping request")
		}
	}
}
