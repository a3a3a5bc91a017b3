package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// Checker reports whether a dependency is healthy.
type Checker interface {
	Health(ctx context.Context) error
}

// HealthService serves the standard grpc.health.v1 service. The overall
// status is SERVING while every checker passes and NOT_SERVING otherwise.
type HealthService struct {
	addr     string
	checkers map[string]Checker
	interval time.Duration
	logger   *zap.Logger

	grpcServer *grpc.Server
	health     *health.Server
	done       chan struct{}
}

// NewHealthService creates a gRPC health service on addr.
//
// Precondition: interval must be positive; logger must be non-nil.
func NewHealthService(addr string, checkers map[string]Checker, interval time.Duration, logger *zap.Logger) *HealthService {
	hs := health.NewServer()
	gs := grpc.NewServer()
	grpc_health_v1.RegisterHealthServer(gs, hs)
	return &HealthService{
		addr:       addr,
		checkers:   checkers,
		interval:   interval,
		logger:     logger,
		grpcServer: gs,
		health:     hs,
		done:       make(chan struct{}),
	}
}

// Server returns the health server for direct status inspection.
func (h *HealthService) Server() *health.Server { return h.health }

// Refresh runs every checker once and updates the served statuses.
//
// Postcondition: the overall ("") status and one status per checker name are set.
func (h *HealthService) Refresh(ctx context.Context) {
	overall := grpc_health_v1.HealthCheckResponse_SERVING
	for name, c := range h.checkers {
		cctx, cancel := context.WithTimeout(ctx, h.interval)
		err := c.Health(cctx)
		cancel()
		status := grpc_health_v1.HealthCheckResponse_SERVING
		if err != nil {
			h.logger.Warn("health check failed", zap.String("check", name), zap.Error(err))
			status = grpc_health_v1.HealthCheckResponse_NOT_SERVING
			overall = status
		}
		h.health.SetServingStatus(name, status)
	}
	h.health.SetServingStatus("", overall)
}

// Start listens on addr and refreshes statuses every interval until Stop.
func (h *HealthService) Start(ctx context.Context) error {
	lis, err := net.Listen("tcp", h.addr)
	if err != nil {
		return fmt.Errorf("grpc listen %s: %w", h.addr, err)
	}
	h.Refresh(ctx)

	go func() {
		ticker := time.NewTicker(h.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				h.Refresh(ctx)
			case <-h.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	h.logger.Info("grpc health listening", zap.String("addr", h.addr))
	if err := h.grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("grpc serve: %w", err)
	}
	return nil
}

// Stop marks every status NOT_SERVING and stops the gRPC server gracefully.
func (h *HealthService) Stop() {
	select {
	case <-h.done:
		return
	default:
		close(h.done)
	}
	h.health.Shutdown()
	h.grpcServer.GracefulStop()
}
