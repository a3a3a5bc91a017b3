package server

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc/health/grpc_health_v1"
)

type flagChecker struct{ fail atomic.Bool }

func (f *flagChecker) Health(context.Context) error {
	if f.fail.Load() {
		return errors.New("down")
	}
	return nil
}

func status(t *testing.T, h *HealthService, service string) grpc_health_v1.HealthCheckResponse_ServingStatus {
	t.Helper()
	resp, err := h.Server().Check(context.Background(), &grpc_health_v1.HealthCheckRequest{Service: service})
	require.NoError(t, err)
	return resp.GetStatus()
}

func TestHealthService_RefreshTracksCheckers(t *testing.T) {
	db := &flagChecker{}
	h := NewHealthService("127.0.0.1:0", map[string]Checker{"postgres": db}, time.Second, zaptest.NewLogger(t))

	h.Refresh(context.Background())
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, status(t, h, ""))
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, status(t, h, "postgres"))

	db.fail.Store(true)
	h.Refresh(context.Background())
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_NOT_SERVING, status(t, h, ""))
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_NOT_SERVING, status(t, h, "postgres"))
}

func TestHealthService_StartStop(t *testing.T) {
	h := NewHealthService("127.0.0.1:0", nil, 50*time.Millisecond, zaptest.NewLogger(t))
	done := make(chan error, 1)
	go func() { done <- h.Start(context.Background()) }()

	require.Eventually(t, func() bool {
		resp, err := h.Server().Check(context.Background(), &grpc_health_v1.HealthCheckRequest{})
		return err == nil && resp.GetStatus() == grpc_health_v1.HealthCheckResponse_SERVING
	}, 2*time.Second, 10*time.Millisecond)

	h.Stop()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("health service did not stop")
	}
	h.Stop()
}
