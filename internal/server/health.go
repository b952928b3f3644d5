package server

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Checker probes a dependency. A nil error means healthy.
type Checker interface {
	Health(ctx context.Context) error
}

// HealthService serves grpc.health.v1 and flips the overall status between
// SERVING and NOT_SERVING by polling a Checker.
type HealthService struct {
	addr     string
	interval time.Duration
	checker  Checker
	logger   *zap.Logger

	grpcServer *grpc.Server
	status     *health.Server

	mu       sync.Mutex
	listener net.Listener
	quit     chan struct{}
	stopOnce sync.Once
}

// NewHealthService creates a HealthService listening on addr.
//
// Precondition: interval must be positive; checker and logger must be non-nil.
func NewHealthService(addr string, interval time.Duration, checker Checker, logger *zap.Logger) *HealthService {
	status := health.NewServer()
	status.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)

	grpcServer := grpc.NewServer()
	healthpb.RegisterHealthServer(grpcServer, status)

	return &HealthService{
		addr:       addr,
		interval:   interval,
		checker:    checker,
		logger:     logger,
		grpcServer: grpcServer,
		status:     status,
		quit:       make(chan struct{}),
	}
}

// Start binds the listener, runs the probe loop and serves until Stop.
func (h *HealthService) Start() error {
	lis, err := net.Listen("tcp", h.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", h.addr, err)
	}
	h.mu.Lock()
	h.listener = lis
	h.mu.Unlock()

	h.logger.Info("health endpoint listening", zap.String("addr", lis.Addr().String()))

	h.probe()
	go h.loop()

	return h.grpcServer.Serve(lis)
}

// Stop marks the service NOT_SERVING and stops the gRPC server.
func (h *HealthService) Stop() {
	h.stopOnce.Do(func() {
		close(h.quit)
		h.status.Shutdown()
		h.grpcServer.GracefulStop()
	})
}

// Addr returns the bound address, or empty string before Start.
func (h *HealthService) Addr() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.listener == nil {
		return ""
	}
	return h.listener.Addr().String()
}

func (h *HealthService) loop() {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-h.quit:
			return
		case <-ticker.C:
			h.probe()
		}
	}
}

func (h *HealthService) probe() {
	ctx, cancel := context.WithTimeout(context.Background(), h.interval)
	defer cancel()

	start := time.Now()
	if err := h.checker.Health(ctx); err != nil {
		h.logger.Warn("account store health check failed",
			zap.Error(err),
			zap.Duration("elapsed", time.Since(start)),
		)
		h.status.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
		return
	}
	h.status.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
}
