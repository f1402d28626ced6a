package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-sync/internal/service"
)

func TestReadyReportsFailingDependency(t *testing.T) {
	handler := NewMetricsHandler(nil, map[string]Pinger{
		"postgres": PingFunc(func(ctx context.Context) error { return nil }),
		"redis":    PingFunc(func(ctx context.Context) error { return errors.New("connection refused") }),
	}, nil)
	c, w := newTestContext(http.MethodGet, "/ready")

	handler.Ready(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"postgres":"ok"`)
	assert.Contains(t, w.Body.String(), "connection refused")
}

func TestReadyAllHealthy(t *testing.T) {
	handler := NewMetricsHandler(nil, map[string]Pinger{
		"postgres": PingFunc(func(ctx context.Context) error { return nil }),
	}, nil)
	c, w := newTestContext(http.MethodGet, "/ready")

	handler.Ready(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ready"`)
}

func TestReadyHonoursTimeout(t *testing.T) {
	handler := NewMetricsHandler(nil, map[string]Pinger{
		"slow": PingFunc(func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}),
	}, nil)
	handler.timeout = 10 * time.Millisecond
	c, w := newTestContext(http.MethodGet, "/ready")

	handler.Ready(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestPrometheusWithoutMetrics(t *testing.T) {
	handler := NewMetricsHandler(nil, nil, nil)
	c, w := newTestContext(http.MethodGet, "/metrics")

	handler.Prometheus(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestPrometheusServesRegistry(t *testing.T) {
	metrics := service.NewMetricsService()
	metrics.RecordSyncDocument(service.SyncStatusSucceeded)
	handler := NewMetricsHandler(metrics, nil, nil)
	c, w := newTestContext(http.MethodGet, "/metrics")

	handler.Prometheus(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "sync_documents_total")
}
