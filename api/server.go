// Package api serves the ledger over HTTP/JSON: transaction submission,
// blockhashes, account and execution queries, and the devnet faucet.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cosmossdk.io/log"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
)

// MaxRequestSize bounds request bodies.
const MaxRequestSize = 256 * 1024

// Server represents the main API server
type Server struct {
	router  *gin.Engine
	handler http.Handler
	backend Backend
	config  *Config
	logger  log.Logger
	srv     *http.Server

	wsHub    *WebSocketHub
	upgrader websocket.Upgrader
}

// Config holds server configuration
type Config struct {
	ListenAddr      string
	CORSOrigins     []string
	RateLimitRPS    int
	EnableAirdrop   bool
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DefaultConfig returns default server configuration
func DefaultConfig() *Config {
	return &Config{
		ListenAddr:      "127.0.0.1:8899",
		CORSOrigins:     []string{"http://localhost:3000"},
		RateLimitRPS:    100,
		EnableAirdrop:   true,
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    15 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

// NewServer creates a new API server instance
func NewServer(backend Backend, config *Config, logger log.Logger) *Server {
	if config == nil {
		config = DefaultConfig()
	}
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		router:  gin.New(),
		backend: backend,
		config:  config,
		logger:  logger.With("module", "api"),
	}
	s.wsHub = NewWebSocketHub(s.logger)
	s.upgrader = newUpgrader(config.CORSOrigins)
	go s.wsHub.Run()
	backend.SubscribeBlocks(s.wsHub.PublishBlock)
	s.setupRouter()

	c := cors.New(cors.Options{
		AllowedOrigins: config.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         86400,
	})
	s.handler = c.Handler(s.router)
	return s
}

// setupRouter configures middleware and routes. Recovery runs first so it
// catches panics from everything after it.
func (s *Server) setupRouter() {
	s.router.Use(RecoveryMiddleware(s.logger))
	s.router.Use(SecurityHeadersMiddleware())
	s.router.Use(RequestSizeLimitMiddleware(MaxRequestSize))
	s.router.Use(RequestIDMiddleware())
	s.router.Use(LoggerMiddleware(s.logger))
	if s.config.RateLimitRPS > 0 {
		s.router.Use(RateLimitMiddleware(s.config.RateLimitRPS))
	}
	s.registerRoutes()
}

// Hub returns the websocket hub.
func (s *Server) Hub() *WebSocketHub { return s.wsHub }

// Handler returns the HTTP handler, CORS included.
func (s *Server) Handler() http.Handler { return s.handler }

// Start serves until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.srv = &http.Server{
		Addr:              s.config.ListenAddr,
		Handler:           s.handler,
		ReadTimeout:       s.config.ReadTimeout,
		ReadHeaderTimeout: s.config.ReadTimeout,
		WriteTimeout:      s.config.WriteTimeout,
		MaxHeaderBytes:    1 << 20,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting API server", "addr", s.config.ListenAddr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.wsHub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	s.logger.Info("API server stopped")
	return nil
}
