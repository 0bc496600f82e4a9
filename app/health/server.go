package health

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cosmossdk.io/log"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server serves health checks and Prometheus metrics on a separate port
// from the public API.
type Server struct {
	logger     log.Logger
	router     *mux.Router
	httpServer *http.Server
}

// ServerConfig holds monitoring server configuration
type ServerConfig struct {
	ListenAddr string
	EnableCORS bool
}

// NewServer creates the monitoring server. gatherer defaults to the
// Prometheus default registry.
func NewServer(cfg ServerConfig, checker *Checker, gatherer prometheus.Gatherer, logger log.Logger) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	router := mux.NewRouter()
	checker.RegisterRoutes(router)
	router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	var httpHandler http.Handler = router
	if cfg.EnableCORS {
		httpHandler = handlers.CORS(
			handlers.AllowedOrigins([]string{"*"}),
			handlers.AllowedMethods([]string{http.MethodGet, http.MethodOptions}),
		)(httpHandler)
	}
	httpHandler = handlers.CompressHandler(httpHandler)
	httpHandler = handlers.RecoveryHandler(handlers.PrintRecoveryStack(false))(httpHandler)

	return &Server{
		logger: logger.With("module", "monitoring"),
		router: router,
		httpServer: &http.Server{
			Addr:              cfg.ListenAddr,
			Handler:           httpHandler,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
	}
}

// Handler returns the HTTP handler with middleware applied.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// Start serves until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting monitoring server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("monitoring server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}
