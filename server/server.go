package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/wfunc/nightwatch/auth"
	"github.com/wfunc/nightwatch/broadcast"
	"github.com/wfunc/nightwatch/config"
	"github.com/wfunc/nightwatch/logger"
	"github.com/wfunc/nightwatch/network"
	"github.com/wfunc/nightwatch/room"
)

// StatusReader is implemented by room.Room.
type StatusReader interface {
	Status() room.Status
}

// TokenValidator is implemented by auth.Authenticator.
type TokenValidator interface {
	Validate(token string) (string, error)
}

type Options struct {
	Config             config.ServerConfig
	Room               *room.Room
	Hub                *broadcast.Hub
	Metrics            http.Handler
	Tokens             TokenValidator
	RequireStatusToken bool
}

type GameServer struct {
	cfg        config.ServerConfig
	upgrader   websocket.Upgrader
	room       *room.Room
	hub        *broadcast.Hub
	metrics    http.Handler
	tokens     TokenValidator
	needToken  bool
	httpServer *http.Server
	shutdown   chan struct{}
}

func NewGameServer(opts Options) *GameServer {
	s := &GameServer{
		cfg:       opts.Config,
		room:      opts.Room,
		hub:       opts.Hub,
		metrics:   opts.Metrics,
		tokens:    opts.Tokens,
		needToken: opts.RequireStatusToken,
		shutdown:  make(chan struct{}),
	}
	s.upgrader = websocket.Upgrader{
		CheckOrigin: originChecker(opts.Config.AllowedOrigins),
	}
	s.httpServer = &http.Server{
		Addr:              opts.Config.HTTPAddress,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the HTTP routes of the server.
func (s *GameServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics)
	}
	return mux
}

func (s *GameServer) Start() error {
	logger.Log.Infof("Game server listening on %s", s.cfg.HTTPAddress)
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown closes every websocket and stops the HTTP listener.
func (s *GameServer) Shutdown(ctx context.Context) error {
	select {
	case <-s.shutdown:
	default:
		close(s.shutdown)
	}
	s.hub.CloseAll()
	return s.httpServer.Shutdown(ctx)
}

func (s *GameServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	s.handleConnection(conn)
}

func (s *GameServer) handleConnection(conn *websocket.Conn) {
	wsConn := network.NewWSConnection(conn, s.cfg.SendQueueSize, s.cfg.Heartbeat)
	id := uuid.NewString()
	s.hub.Add(id, wsConn)
	s.room.OnConnect(id)

	logger.Log.Infof("New connection from %s, connection ID: %s", wsConn.RemoteAddr(), id)

	defer func() {
		logger.Log.Infof("Connection closed from %s, connection ID: %s", wsConn.RemoteAddr(), id)
		s.room.OnDisconnect(id)
		s.hub.Remove(id)
		wsConn.Close()
	}()

	for {
		select {
		case <-s.shutdown:
			return
		default:
		}

		env, err := wsConn.ReadEnvelope()
		if errors.Is(err, network.ErrMalformedFrame) {
			s.room.OnMalformed(id, err)
			continue
		}
		if err != nil {
			return
		}
		s.room.OnEvent(id, env.Event, env.Data)
	}
}

func (s *GameServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if s.needToken {
		if s.tokens == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": auth.ErrNotConfigured.Error()})
			return
		}
		if _, err := s.tokens.Validate(auth.BearerToken(r.Header.Get("Authorization"))); err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, s.room.Status())
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.Warnf("Failed to write response: %v", err)
	}
}

// originChecker 允许列表为空或包含 "*" 时放行所有来源
func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		if o != "" {
			set[strings.ToLower(o)] = struct{}{}
		}
	}
	if len(set) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			// 非浏览器客户端
			return true
		}
		_, ok := set[strings.ToLower(strings.TrimRight(origin, "/"))]
		return ok
	}
}
