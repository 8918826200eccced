package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/bryanchriswhite/DisplaySwitcher/internal/config"
	"github.com/bryanchriswhite/DisplaySwitcher/internal/coordinator"
	"github.com/bryanchriswhite/DisplaySwitcher/internal/logger"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// Controller is the part of the coordinator the API talks to
type Controller interface {
	State(ctx context.Context) (coordinator.Snapshot, error)
	History(ctx context.Context) ([]coordinator.Transition, error)
	RequestSwitch(ctx context.Context) error
	RequestLock(ctx context.Context) error
	Subscribe() chan coordinator.Transition
	Unsubscribe(ch chan coordinator.Transition)
}

// Server represents the HTTP API server
type Server struct {
	router    *mux.Router
	ctrl      Controller
	configMgr *config.Manager
	version   string
	upgrader  websocket.Upgrader
	srv       *http.Server
}

// NewServer creates a new API server
func NewServer(ctrl Controller, configMgr *config.Manager, version string) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		ctrl:      ctrl,
		configMgr: configMgr,
		version:   version,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Listener is bound to localhost
			},
		},
	}

	s.setupRoutes()
	s.srv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Daemon state
	api.HandleFunc("/state", s.handleGetState).Methods("GET")
	api.HandleFunc("/transitions", s.handleGetTransitions).Methods("GET")
	api.HandleFunc("/stream", s.handleStream)

	// Actions
	api.HandleFunc("/switch", s.handleSwitch).Methods("POST")
	api.HandleFunc("/lock", s.handleLock).Methods("POST")

	// Configuration
	api.HandleFunc("/config", s.handleGetConfig).Methods("GET")

	// Health check
	api.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Handler returns the router wrapped with CORS headers
func (s *Server) Handler() http.Handler {
	return s.enableCORS(s.router)
}

// Start serves on addr until Shutdown is called
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve serves on ln until Shutdown is called
func (s *Server) Serve(ln net.Listener) error {
	logger.WithComponent("api").Info().
		Str("addr", ln.Addr().String()).
		Msgf("Starting server on http://%s", ln.Addr())

	if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// enableCORS adds CORS headers
func (s *Server) enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.WithComponent("api").Debug().Err(err).Msg("Failed to write response")
	}
}

// errorStatus maps a coordinator error to a response code
func errorStatus(err error) int {
	if errors.Is(err, coordinator.ErrStopped) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// HTTP Handlers

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	snap, err := s.ctrl.State(r.Context())
	if err != nil {
		http.Error(w, err.Error(), errorStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleGetTransitions(w http.ResponseWriter, r *http.Request) {
	history, err := s.ctrl.History(r.Context())
	if err != nil {
		http.Error(w, err.Error(), errorStatus(err))
		return
	}
	if history == nil {
		history = []coordinator.Transition{}
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *Server) handleSwitch(w http.ResponseWriter, r *http.Request) {
	if err := s.ctrl.RequestSwitch(r.Context()); err != nil {
		http.Error(w, err.Error(), errorStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (s *Server) handleLock(w http.ResponseWriter, r *http.Request) {
	if err := s.ctrl.RequestLock(r.Context()); err != nil {
		http.Error(w, err.Error(), errorStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	log := logger.WithComponent("api")

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("WebSocket upgrade error")
		return
	}
	defer conn.Close()

	// Subscribe before reading the snapshot so nothing falls in between
	updates := s.ctrl.Subscribe()
	defer s.ctrl.Unsubscribe(updates)

	snap, err := s.ctrl.State(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to read state for stream")
		return
	}
	if snap.LastTransition != nil {
		if err := conn.WriteJSON(snap.LastTransition); err != nil {
			log.Debug().Err(err).Msg("WebSocket write error")
			return
		}
	}

	// Reader goroutine notices the client going away
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case t, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteJSON(t); err != nil {
				log.Debug().Err(err).Msg("WebSocket write error")
				return
			}
		}
	}
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	if s.configMgr == nil {
		writeJSON(w, http.StatusOK, config.Default())
		return
	}
	writeJSON(w, http.StatusOK, s.configMgr.Get())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": s.version,
	})
}
