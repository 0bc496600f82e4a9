package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cosmossdk.io/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type fakeLedger struct {
	height     uint64
	lastCommit time.Time
	pingErr    error
	pending    int
}

func (f *fakeLedger) Height() uint64                      { return f.height }
func (f *fakeLedger) LastCommitTime() time.Time           { return f.lastCommit }
func (f *fakeLedger) Ping(context.Context) error          { return f.pingErr }
func (f *fakeLedger) PendingExecutionCount() (int, error) { return f.pending, nil }

type HealthCheckTestSuite struct {
	suite.Suite
	ledger  *fakeLedger
	checker *Checker
}

func TestHealthCheckTestSuite(t *testing.T) {
	suite.Run(t, new(HealthCheckTestSuite))
}

func (suite *HealthCheckTestSuite) SetupTest() {
	suite.ledger = &fakeLedger{height: 42, lastCommit: time.Now(), pending: 3}
	cfg := DefaultConfig()
	cfg.CacheDuration = 0
	cfg.Version = "test"
	checker, err := NewChecker(log.NewNopLogger(), cfg, suite.ledger)
	suite.Require().NoError(err)
	suite.checker = checker
}

func (suite *HealthCheckTestSuite) TestHealthy() {
	health := suite.checker.Check(context.Background(), true)
	suite.Require().Equal(StatusHealthy, health.Status)
	suite.Require().Equal("test", health.Version)
	suite.Require().Contains(health.Components, "executions")
	suite.Require().Equal(3, health.Components["executions"].Metrics["pending"])
}

func (suite *HealthCheckTestSuite) TestStalledBlocks() {
	suite.ledger.lastCommit = time.Now().Add(-3 * time.Second)
	suite.Require().Equal(StatusDegraded, suite.checker.Check(context.Background(), false).Status)

	suite.ledger.lastCommit = time.Now().Add(-time.Minute)
	suite.Require().Equal(StatusUnhealthy, suite.checker.Check(context.Background(), false).Status)
}

func (suite *HealthCheckTestSuite) TestDatabaseFailure() {
	suite.ledger.pingErr = errors.New("closed")
	health := suite.checker.Check(context.Background(), false)
	suite.Require().Equal(StatusUnhealthy, health.Status)
	suite.Require().Contains(health.Components["database"].Message, "closed")
}

func (suite *HealthCheckTestSuite) TestEndpoints() {
	registry := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "health_test_total", Help: "test"})
	registry.MustRegister(counter)
	counter.Inc()
	server := NewServer(ServerConfig{ListenAddr: "127.0.0.1:0"}, suite.checker, registry, log.NewNopLogger())

	tests := []struct {
		path   string
		status int
		body   string
	}{
		{"/health", http.StatusOK, `"ok"`},
		{"/health/ready", http.StatusOK, `"healthy"`},
		{"/health/detailed", http.StatusOK, `"executions"`},
		{"/metrics", http.StatusOK, "health_test_total 1"},
		{"/unknown", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, tt.path, nil)
		w := httptest.NewRecorder()
		server.Handler().ServeHTTP(w, req)
		suite.Require().Equal(tt.status, w.Code, tt.path)
		suite.Require().True(strings.Contains(w.Body.String(), tt.body), tt.path)
	}

	suite.ledger.pingErr = errors.New("closed")
	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)
	suite.Require().Equal(http.StatusServiceUnavailable, w.Code)

	var health HealthCheck
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &health))
	suite.Require().Equal(StatusUnhealthy, health.Status)
}

func TestNewChecker(t *testing.T) {
	_, err := NewChecker(log.NewNopLogger(), DefaultConfig(), nil)
	require.ErrorContains(t, err, "ledger is required")

	cfg := DefaultConfig()
	cfg.BlockInterval = 0
	_, err = NewChecker(log.NewNopLogger(), cfg, &fakeLedger{})
	require.ErrorContains(t, err, "block interval")
}

func TestCachedResult(t *testing.T) {
	ledger := &fakeLedger{lastCommit: time.Now()}
	cfg := DefaultConfig()
	cfg.CacheDuration = time.Hour
	checker, err := NewChecker(log.NewNopLogger(), cfg, ledger)
	require.NoError(t, err)

	first := checker.Check(context.Background(), false)
	ledger.pingErr = errors.New("closed")
	require.Same(t, first, checker.Check(context.Background(), false))
	require.Equal(t, StatusUnhealthy, checker.Check(context.Background(), true).Status)
}
