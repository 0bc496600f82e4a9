// Package health reports ledger liveness and readiness.
//
// Endpoints:
//   - /health           basic liveness
//   - /health/ready     readiness for load balancers
//   - /health/detailed  component status with metrics
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"cosmossdk.io/log"
	"github.com/gorilla/mux"
)

// Status represents the health status of a component
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// ComponentHealth represents the health status of a single component
type ComponentHealth struct {
	Status    Status                 `json:"status"`
	Message   string                 `json:"message,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Metrics   map[string]interface{} `json:"metrics,omitempty"`
}

// HealthCheck represents the overall health check response
type HealthCheck struct {
	Status     Status                     `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Version    string                     `json:"version,omitempty"`
	Components map[string]ComponentHealth `json:"components,omitempty"`
}

// Ledger is the state the checker observes.
type Ledger interface {
	Height() uint64
	LastCommitTime() time.Time
	Ping(ctx context.Context) error
	PendingExecutionCount() (int, error)
}

// Checker performs health checks on the ledger.
type Checker struct {
	logger  log.Logger
	ledger  Ledger
	version string

	blockInterval   time.Duration
	maxResponseTime time.Duration

	mu            sync.RWMutex
	lastCheck     time.Time
	cachedHealth  *HealthCheck
	cacheDuration time.Duration
}

// Config holds configuration for the health checker
type Config struct {
	// BlockInterval is the expected time between blocks. A ledger that has
	// not committed for five intervals is degraded, twenty is unhealthy.
	BlockInterval time.Duration

	// MaxResponseTime is the maximum acceptable database response time
	MaxResponseTime time.Duration

	// CacheDuration is how long to cache health check results
	CacheDuration time.Duration

	Version string
}

// DefaultConfig returns the default health check configuration
func DefaultConfig() Config {
	return Config{
		BlockInterval:   400 * time.Millisecond,
		MaxResponseTime: time.Second,
		CacheDuration:   2 * time.Second,
	}
}

// NewChecker creates a new health checker
func NewChecker(logger log.Logger, cfg Config, ledger Ledger) (*Checker, error) {
	if ledger == nil {
		return nil, fmt.Errorf("ledger is required")
	}
	if cfg.BlockInterval <= 0 {
		return nil, fmt.Errorf("block interval must be positive")
	}
	return &Checker{
		logger:          logger,
		ledger:          ledger,
		version:         cfg.Version,
		blockInterval:   cfg.BlockInterval,
		maxResponseTime: cfg.MaxResponseTime,
		cacheDuration:   cfg.CacheDuration,
	}, nil
}

// Check performs a comprehensive health check
func (c *Checker) Check(ctx context.Context, detailed bool) *HealthCheck {
	if !detailed && c.shouldUseCached() {
		c.mu.RLock()
		defer c.mu.RUnlock()
		return c.cachedHealth
	}

	health := &HealthCheck{
		Timestamp:  time.Now(),
		Version:    c.version,
		Components: map[string]ComponentHealth{
			"blocks":   c.checkBlocks(),
			"database": c.checkDatabase(ctx),
		},
	}
	if detailed {
		health.Components["executions"] = c.checkExecutions()
	}
	health.Status = calculateOverallStatus(health.Components)

	c.mu.Lock()
	c.lastCheck = time.Now()
	c.cachedHealth = health
	c.mu.Unlock()

	return health
}

// checkBlocks verifies that blocks are still being committed.
func (c *Checker) checkBlocks() ComponentHealth {
	age := time.Since(c.ledger.LastCommitTime())
	metrics := map[string]interface{}{
		"height":            c.ledger.Height(),
		"block_age_seconds": age.Seconds(),
	}

	switch {
	case age > 20*c.blockInterval:
		return ComponentHealth{
			Status:    StatusUnhealthy,
			Message:   fmt.Sprintf("no block committed for %s", age.Round(time.Millisecond)),
			Timestamp: time.Now(),
			Metrics:   metrics,
		}
	case age > 5*c.blockInterval:
		return ComponentHealth{
			Status:    StatusDegraded,
			Message:   "block production is lagging",
			Timestamp: time.Now(),
			Metrics:   metrics,
		}
	}
	return ComponentHealth{Status: StatusHealthy, Message: "blocks are being committed", Timestamp: time.Now(), Metrics: metrics}
}

// checkDatabase verifies database connectivity and performance
func (c *Checker) checkDatabase(ctx context.Context) ComponentHealth {
	timeoutCtx, cancel := context.WithTimeout(ctx, c.maxResponseTime)
	defer cancel()

	start := time.Now()
	err := c.ledger.Ping(timeoutCtx)
	duration := time.Since(start)

	if err != nil {
		return ComponentHealth{
			Status:    StatusUnhealthy,
			Message:   fmt.Sprintf("database query failed: %v", err),
			Timestamp: time.Now(),
		}
	}

	status, message := StatusHealthy, "database is responsive"
	if duration > c.maxResponseTime/2 {
		status, message = StatusDegraded, "database response time is degraded"
	}
	return ComponentHealth{
		Status:    status,
		Message:   message,
		Timestamp: time.Now(),
		Metrics:   map[string]interface{}{"query_time_ms": duration.Milliseconds()},
	}
}

func (c *Checker) checkExecutions() ComponentHealth {
	n, err := c.ledger.PendingExecutionCount()
	if err != nil {
		return ComponentHealth{Status: StatusUnhealthy, Message: err.Error(), Timestamp: time.Now()}
	}
	return ComponentHealth{
		Status:    StatusHealthy,
		Timestamp: time.Now(),
		Metrics:   map[string]interface{}{"pending": n},
	}
}

// calculateOverallStatus returns the worst component status.
func calculateOverallStatus(components map[string]ComponentHealth) Status {
	hasDegraded := false
	for _, component := range components {
		switch component.Status {
		case StatusUnhealthy:
			return StatusUnhealthy
		case StatusDegraded:
			hasDegraded = true
		}
	}
	if hasDegraded {
		return StatusDegraded
	}
	return StatusHealthy
}

func (c *Checker) shouldUseCached() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cachedHealth != nil && time.Since(c.lastCheck) < c.cacheDuration
}

// RegisterRoutes registers health check endpoints
func (c *Checker) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/health", c.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/health/ready", c.handleHealthReady).Methods(http.MethodGet)
	router.HandleFunc("/health/detailed", c.handleHealthDetailed).Methods(http.MethodGet)
}

func (c *Checker) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// handleHealthReady reports 503 only when unhealthy; degraded is still ready.
func (c *Checker) handleHealthReady(w http.ResponseWriter, r *http.Request) {
	c.writeHealth(w, c.Check(r.Context(), false))
}

func (c *Checker) handleHealthDetailed(w http.ResponseWriter, r *http.Request) {
	c.writeHealth(w, c.Check(r.Context(), true))
}

func (c *Checker) writeHealth(w http.ResponseWriter, health *HealthCheck) {
	statusCode := http.StatusOK
	if health.Status == StatusUnhealthy {
		c.logger.Error("health check failed", "components", health.Components)
		statusCode = http.StatusServiceUnavailable
	}
	writeJSON(w, statusCode, health)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
