package core

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/awsl-project/deskshell/internal/version"
)

// HTTPShutdownTimeout is the timeout for HTTP server shutdown.
const HTTPShutdownTimeout = 5 * time.Second

// ServerConfig configures the loopback bridge server.
type ServerConfig struct {
	// Addr defaults to an ephemeral loopback port.
	Addr string
	// Bridge serves child window connections at /ws.
	Bridge http.HandlerFunc
}

// ManagedServer is the loopback HTTP server child windows connect to.
type ManagedServer struct {
	config     *ServerConfig
	httpServer *http.Server
	mux        *http.ServeMux

	mu        sync.Mutex
	listener  net.Listener
	isRunning bool
}

// NewManagedServer creates the server without starting it.
func NewManagedServer(config *ServerConfig) *ManagedServer {
	if config.Addr == "" {
		config.Addr = "127.0.0.1:0"
	}
	s := &ManagedServer{config: config}
	s.mux = s.setupRoutes()
	return s
}

func (s *ManagedServer) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"ok","version":%q}`, version.Version)
	})

	if s.config.Bridge != nil {
		mux.HandleFunc("/ws", s.config.Bridge)
	}
	return mux
}

// Start binds the listener and serves in the background. The bound address
// is available from GetAddr once Start returns.
func (s *ManagedServer) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		log.Printf("[Server] Server already running")
		return nil
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.config.Addr, err)
	}
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	srv := s.httpServer
	go func() {
		log.Printf("[Server] Starting bridge server on %s", ln.Addr())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("[Server] Server error: %v", err)
		}
	}()

	s.isRunning = true
	return nil
}

// Stop shuts the server down, forcing open connections closed after
// HTTPShutdownTimeout.
func (s *ManagedServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, HTTPShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("[Server] Graceful shutdown failed: %v, forcing close", err)
		if closeErr := s.httpServer.Close(); closeErr != nil {
			log.Printf("[Server] Force close error: %v", closeErr)
		}
	}

	s.isRunning = false
	log.Printf("[Server] Server stopped")
	return nil
}

// IsRunning reports whether the server is serving.
func (s *ManagedServer) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// GetAddr returns the bound address, or the configured one before Start.
func (s *ManagedServer) GetAddr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.config.Addr
}

// BridgeURL is the websocket URL child windows dial.
func (s *ManagedServer) BridgeURL() string {
	return "ws://" + s.GetAddr() + "/ws"
}
