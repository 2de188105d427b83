// Package eventcast streams run events to WebSocket subscribers.
package eventcast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/example/deps/internal/runner"
	"github.com/go-logr/logr"
	"github.com/gorilla/websocket"
)

// Server fans run events out to every connected /ws client as JSON text frames.
type Server struct {
	addr     string
	hub      *hub
	upgrader websocket.Upgrader
	logger   logr.Logger
}

func New(addr string, logger logr.Logger) *Server {
	return &Server{
		addr:   addr,
		hub:    newHub(logger),
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (s *Server) ObserveEvent(ev runner.Event) {
	if s == nil {
		return
	}
	payload, err := encodeEvent(ev)
	if err != nil {
		s.logger.Error(err, "encode event payload")
		return
	}
	s.hub.Broadcast(payload)
}

// Clients reports the number of connected subscribers.
func (s *Server) Clients() int {
	return s.hub.Len()
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = fmt.Fprint(w, "ok")
	})
	return mux
}

// Listen binds the address so a failure surfaces before the run starts.
func (s *Server) Listen() (net.Listener, error) {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	return ln, nil
}

// Serve blocks until ctx is done, then shuts the server down and drops all clients.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		s.hub.Close()
	}()
	s.logger.V(1).Info("event feed ready", "addr", ln.Addr().String())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error(err, "upgrade event websocket")
		return
	}
	client := newClient(conn, s.logger)
	s.hub.Register(client)
	go client.writeLoop()
	client.readLoop(func() {
		s.hub.Unregister(client)
	})
}

type payload struct {
	Timestamp string   `json:"ts"`
	Type      string   `json:"type"`
	RunID     string   `json:"runId"`
	Project   string   `json:"project,omitempty"`
	Path      string   `json:"path,omitempty"`
	Progress  int      `json:"progress,omitempty"`
	Total     int      `json:"total"`
	Parallel  bool     `json:"parallel,omitempty"`
	Details   []string `json:"details,omitempty"`
	Reason    string   `json:"reason,omitempty"`
	Status    string   `json:"status,omitempty"`
	ExitCode  int      `json:"exitCode,omitempty"`
	ElapsedMS int64    `json:"elapsedMs,omitempty"`
	Error     string   `json:"error,omitempty"`
	Failures  []string `json:"failures,omitempty"`
}

func encodeEvent(ev runner.Event) ([]byte, error) {
	ts := ev.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	entry := payload{
		Timestamp: ts.UTC().Format(time.RFC3339Nano),
		Type:      string(ev.Type),
		RunID:     ev.RunID,
		Progress:  ev.Progress,
		Total:     ev.Total,
		Parallel:  ev.Parallel,
		Details:   ev.Details,
		Reason:    ev.Reason,
		Status:    string(ev.Status),
		ExitCode:  ev.ExitCode,
		ElapsedMS: ev.Elapsed.Milliseconds(),
	}
	if ev.Project != nil {
		entry.Project = ev.Project.Name
		entry.Path = ev.Project.Path
	}
	if ev.Err != nil {
		entry.Error = ev.Err.Error()
	}
	if ev.Result != nil {
		entry.ExitCode = ev.Result.ExitCode()
		entry.ElapsedMS = ev.Result.Elapsed.Milliseconds()
		for _, f := range ev.Result.Failures {
			entry.Failures = append(entry.Failures, f.Project.Name)
		}
	}
	return json.Marshal(entry)
}

type hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	logger  logr.Logger
}

func newHub(logger logr.Logger) *hub {
	return &hub{clients: make(map[*client]struct{}), logger: logger}
}

func (h *hub) Register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *hub) Unregister(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.Close()
}

func (h *hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *hub) Broadcast(msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.logger.Info("dropping event client for slow reader")
			go h.Unregister(c)
		}
	}
}

func (h *hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.Close()
		delete(h.clients, c)
	}
}

const (
	writeWait = 10 * time.Second
	pongWait  = 60 * time.Second
)

type client struct {
	conn   *websocket.Conn
	send   chan []byte
	once   sync.Once
	logger logr.Logger
}

func newClient(conn *websocket.Conn, logger logr.Logger) *client {
	return &client{conn: conn, send: make(chan []byte, 256), logger: logger}
}

func (c *client) Close() {
	c.once.Do(func() { _ = c.conn.Close() })
}

func (c *client) readLoop(onClose func()) {
	defer onClose()
	c.conn.SetReadLimit(64 * 1024)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				c.logger.V(1).Info("event client read error", "err", err)
			}
			break
		}
	}
}

func (c *client) writeLoop() {
	ticker := time.NewTicker((pongWait * 9) / 10)
	defer ticker.Stop()
	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.logger.V(1).Info("event client write error", "err", err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
