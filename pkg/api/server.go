// Package api implements NodeAPI: the IS-04 Node API and IS-05
// Connection API HTTP surfaces, driven by resource.Store and
// connection.Engine (spec section 4.6 "NodeAPI").
package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/NVIDIA/nvnmos/internal/logger"
	"github.com/NVIDIA/nvnmos/pkg/connection"
	"github.com/NVIDIA/nvnmos/pkg/health"
	"github.com/NVIDIA/nvnmos/pkg/node"
	"github.com/NVIDIA/nvnmos/pkg/resource"
)

// Server hosts the Node and Connection API HTTP surfaces.
type Server struct {
	addr      string
	server    *http.Server
	logger    *logger.Logger
	nodeStore *resource.Store
	connStore *resource.Store
	model     *node.Model
	engine    *connection.Engine
	health    *health.Check
	auth      *authGuard

	wsClients    map[*websocket.Conn]bool
	wsClientsMux sync.RWMutex
	upgrader     websocket.Upgrader

	startedAt time.Time
}

// Config configures a Server.
type Config struct {
	Addr      string
	NodeStore *resource.Store
	ConnStore *resource.Store
	Model     *node.Model
	Engine    *connection.Engine
	Logger    *logger.Logger
	Health    *health.Check

	// Auth enables the bearer-token guard on the IS-05 PATCH endpoints
	// (BCP-003-02 Device.controls[].authorization); nil disables it.
	Auth *AuthConfig
}

// New constructs a Server. Call Start to begin serving.
func New(cfg Config) *Server {
	var guard *authGuard
	if cfg.Auth != nil && cfg.Auth.Enabled {
		guard = newAuthGuard(*cfg.Auth)
	}
	return &Server{
		addr:      cfg.Addr,
		logger:    cfg.Logger,
		nodeStore: cfg.NodeStore,
		connStore: cfg.ConnStore,
		model:     cfg.Model,
		engine:    cfg.Engine,
		health:    cfg.Health,
		auth:      guard,
		wsClients: make(map[*websocket.Conn]bool),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// routes builds the full route table, wrapped in the TRACE-blocking
// middleware. Exposed separately from Start so tests can exercise it
// with httptest without binding a socket.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /x-nmos/node/v1.3/", s.handleNodeAPIRoot)
	mux.HandleFunc("GET /x-nmos/node/v1.3/self", s.handleSelf)
	mux.HandleFunc("GET /x-nmos/node/v1.3/devices", s.handleCollection(resource.TypeDevice))
	mux.HandleFunc("GET /x-nmos/node/v1.3/devices/{id}", s.handleResourceByID(resource.TypeDevice))
	mux.HandleFunc("GET /x-nmos/node/v1.3/sources", s.handleCollection(resource.TypeSource))
	mux.HandleFunc("GET /x-nmos/node/v1.3/sources/{id}", s.handleResourceByID(resource.TypeSource))
	mux.HandleFunc("GET /x-nmos/node/v1.3/flows", s.handleCollection(resource.TypeFlow))
	mux.HandleFunc("GET /x-nmos/node/v1.3/flows/{id}", s.handleResourceByID(resource.TypeFlow))
	mux.HandleFunc("GET /x-nmos/node/v1.3/senders", s.handleCollection(resource.TypeSender))
	mux.HandleFunc("GET /x-nmos/node/v1.3/senders/{id}", s.handleResourceByID(resource.TypeSender))
	mux.HandleFunc("GET /x-nmos/node/v1.3/receivers", s.handleCollection(resource.TypeReceiver))
	mux.HandleFunc("GET /x-nmos/node/v1.3/receivers/{id}", s.handleResourceByID(resource.TypeReceiver))

	mux.HandleFunc("GET /x-nmos/connection/v1.1/", s.handleConnectionAPIRoot)
	mux.HandleFunc("GET /x-nmos/connection/v1.1/single/senders/{id}/constraints", s.handleSenderConstraints)
	mux.HandleFunc("GET /x-nmos/connection/v1.1/single/senders/{id}/staged", s.handleSenderStaged)
	mux.HandleFunc("PATCH /x-nmos/connection/v1.1/single/senders/{id}/staged", s.requireAuth(s.handleSenderStaged))
	mux.HandleFunc("GET /x-nmos/connection/v1.1/single/senders/{id}/active", s.handleSenderActive)
	mux.HandleFunc("GET /x-nmos/connection/v1.1/single/senders/{id}/transportfile", s.handleSenderTransportFile)
	mux.HandleFunc("GET /x-nmos/connection/v1.1/single/receivers/{id}/constraints", s.handleReceiverConstraints)
	mux.HandleFunc("GET /x-nmos/connection/v1.1/single/receivers/{id}/staged", s.handleReceiverStaged)
	mux.HandleFunc("PATCH /x-nmos/connection/v1.1/single/receivers/{id}/staged", s.requireAuth(s.handleReceiverStaged))
	mux.HandleFunc("GET /x-nmos/connection/v1.1/single/receivers/{id}/active", s.handleReceiverActive)

	mux.HandleFunc("GET /ws", s.handleWebSocket)
	mux.HandleFunc("GET /health", s.handleHealth)

	return s.traceBlockingMiddleware(mux)
}

// Start begins serving; it blocks until the server stops, mirroring
// net/http.Server.ListenAndServe.
func (s *Server) Start() error {
	s.startedAt = time.Now()

	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logSafe("starting node api server", s.addr)

	go s.watchStoreChanges()

	return s.server.ListenAndServe()
}

// Stop gracefully shuts the server down, closing every WebSocket
// client first (spec section 4.6; the teacher's Stop pattern).
func (s *Server) Stop(ctx context.Context) error {
	s.logSafe("stopping node api server")
	if s.server == nil {
		return nil
	}

	s.wsClientsMux.Lock()
	for client := range s.wsClients {
		client.Close()
	}
	s.wsClientsMux.Unlock()

	return s.server.Shutdown(ctx)
}

// traceBlockingMiddleware enforces spec section 4.6: "TRACE is not
// permitted; respond 405."
func (s *Server) traceBlockingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodTrace {
			s.sendError(w, http.StatusMethodNotAllowed, "TRACE is not permitted")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health == nil {
		s.sendJSON(w, http.StatusOK, map[string]interface{}{
			"status": "healthy",
			"uptime": time.Since(s.startedAt).Seconds(),
		})
		return
	}

	status := s.health.GetStatus()
	code := http.StatusOK
	if !status.Healthy {
		code = http.StatusServiceUnavailable
	}
	s.sendJSON(w, code, status)
}

func (s *Server) sendJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := encodeJSON(w, data); err != nil && s.logger != nil {
		s.logger.Error("failed to encode json response", err)
	}
}

// logSafe is a convenience wrapper since Logger may be nil in tests
// that don't care about log output.
func (s *Server) logSafe(msg string, fields ...interface{}) {
	if s.logger != nil {
		s.logger.Info(msg, fields...)
	}
}

func (s *Server) sendError(w http.ResponseWriter, status int, message string) {
	s.sendJSON(w, status, map[string]string{"error": message})
}

func (s *Server) notFound(w http.ResponseWriter, err error) {
	s.sendError(w, http.StatusNotFound, err.Error())
}

func (s *Server) badRequest(w http.ResponseWriter, err error) {
	s.sendError(w, http.StatusBadRequest, err.Error())
}
