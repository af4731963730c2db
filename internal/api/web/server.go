package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"nhooyr.io/websocket"

	"github.com/bdrydyk/homebridge-securitysystem/internal/domain/security"
	"github.com/bdrydyk/homebridge-securitysystem/internal/engine"
	"github.com/bdrydyk/homebridge-securitysystem/internal/logger"
)

// StateUpdatedResponse is the body returned by the mode endpoints.
const StateUpdatedResponse = "State updated."

const (
	wsReadLimit    = 4096
	wsWriteTimeout = 10 * time.Second
)

// Engine abstracts the engine operations the HTTP surface depends on.
type Engine interface {
	Snapshot() security.Snapshot
	Subscribe(h engine.Handler) func()
	RequestTargetMode(ctx context.Context, mode security.Mode, opts ...engine.RequestOption) error
	SensorTriggered(ctx context.Context, active bool) error
	Trigger(ctx context.Context) error
}

// ServerOption configures the web server.
type ServerOption func(*Server)

// WithArmDelay decides whether mode requests made over HTTP honour the arm delay.
func WithArmDelay(enabled bool) ServerOption {
	return func(s *Server) {
		s.armDelay = enabled
	}
}

// WithAllowedOrigins sets allowed websocket origin patterns.
func WithAllowedOrigins(origins []string) ServerOption {
	return func(s *Server) {
		s.allowedOrigins = origins
	}
}

// Server is the HTTP handler for the mode endpoints and the event stream.
type Server struct {
	ctx            context.Context
	engine         Engine
	router         *mux.Router
	hub            *Hub
	unsubscribe    func()
	armDelay       bool
	allowedOrigins []string
}

// NewServer builds the router and starts the stream hub. Stop releases both.
func NewServer(ctx context.Context, eng Engine, opts ...ServerOption) *Server {
	s := &Server{
		ctx:      logger.WithName(ctx, "web"),
		engine:   eng,
		router:   mux.NewRouter(),
		armDelay: true,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.hub = NewHub(s.ctx)
	go s.hub.Run()

	// Engine handlers run under its lock; Broadcast never blocks.
	s.unsubscribe = eng.Subscribe(func(e engine.Event) {
		s.hub.Broadcast(eventMessage(e))
	})

	s.routes()

	return s
}

func (s *Server) routes() {
	s.router.HandleFunc("/{mode:home|away|night|off}", s.handleMode).Methods(http.MethodGet)
	s.router.HandleFunc("/triggered", s.handleTriggered).Methods(http.MethodGet)
	s.router.HandleFunc("/state", s.handleState).Methods(http.MethodGet)
	s.router.HandleFunc("/sensor/{state:on|off}", s.handleSensor).Methods(http.MethodPost)
	s.router.HandleFunc("/ws", s.handleWS).Methods(http.MethodGet)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Stop detaches from the engine and disconnects stream clients.
func (s *Server) Stop() {
	s.unsubscribe()
	s.hub.Stop()
}

func (s *Server) handleMode(w http.ResponseWriter, r *http.Request) {
	mode, err := security.ParseMode(mux.Vars(r)["mode"])
	if err != nil {
		s.writeError(w, err)

		return
	}

	logger.InfoKV(s.ctx, "Target mode requested", "mode", mode, "remote", r.RemoteAddr)

	err = s.engine.RequestTargetMode(r.Context(), mode, engine.WithRemoteUpdate(), engine.WithArmDelay(s.armDelay))
	if err != nil {
		s.writeError(w, err)

		return
	}

	writeText(w, http.StatusOK, StateUpdatedResponse)
}

func (s *Server) handleTriggered(w http.ResponseWriter, r *http.Request) {
	logger.InfoKV(s.ctx, "Alarm trigger requested", "remote", r.RemoteAddr)

	if err := s.engine.Trigger(r.Context()); err != nil {
		s.writeError(w, err)

		return
	}

	writeText(w, http.StatusOK, StateUpdatedResponse)
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(newStateBody(s.engine.Snapshot())); err != nil {
		logger.ErrorKV(s.ctx, "Unable to encode state", "error", err)
	}
}

func (s *Server) handleSensor(w http.ResponseWriter, r *http.Request) {
	active := mux.Vars(r)["state"] == "on"

	if err := s.engine.SensorTriggered(r.Context(), active); err != nil {
		s.writeError(w, err)

		return
	}

	writeText(w, http.StatusOK, StateUpdatedResponse)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	opts := &websocket.AcceptOptions{}
	if len(s.allowedOrigins) > 0 {
		opts.OriginPatterns = s.allowedOrigins
	}

	conn, err := websocket.Accept(w, r, opts)
	if err != nil {
		logger.ErrorKV(s.ctx, "Unable to accept stream client", "error", err)

		return
	}

	conn.SetReadLimit(wsReadLimit)

	c := newClient()

	// The snapshot goes first so clients never miss the starting point.
	data, err := json.Marshal(stateMessage(s.engine.Snapshot()))
	if err == nil {
		c.send <- data
	}

	if !s.hub.join(c) {
		_ = conn.Close(websocket.StatusGoingAway, "server shutdown")

		return
	}

	go writePump(conn, c)
	s.readPump(conn, c)
}

func writePump(conn *websocket.Conn, c *client) {
	for msg := range c.send {
		ctx, cancel := context.WithTimeout(context.Background(), wsWriteTimeout)
		err := conn.Write(ctx, websocket.MessageText, msg)

		cancel()

		if err != nil {
			return
		}
	}

	// Channel closed by the hub.
	_ = conn.Close(websocket.StatusNormalClosure, "")
}

func (s *Server) readPump(conn *websocket.Conn, c *client) {
	defer s.hub.leave(c)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		select {
		case <-s.hub.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	for {
		// Incoming messages are ignored.
		if _, _, err := conn.Read(ctx); err != nil {
			return
		}
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := statusCode(err)
	if code == http.StatusInternalServerError {
		logger.ErrorKV(s.ctx, "Request failed", "error", err)
	}

	writeText(w, code, err.Error())
}

// statusCode maps engine errors to HTTP status codes.
func statusCode(err error) int {
	switch {
	case errors.Is(err, security.ErrInvalidMode), errors.Is(err, security.ErrDisabledTarget):
		return http.StatusBadRequest
	case errors.Is(err, security.ErrNotArmed), errors.Is(err, security.ErrNotYetArmed):
		return http.StatusConflict
	case errors.Is(err, engine.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeText(w http.ResponseWriter, code int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write([]byte(body))
}
