// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wither Pass Contributors

// Package control provides the gRPC health interface used by process
// supervisors.
package control

import (
	"context"
	"log/slog"
	"net"
	"sync"

	"github.com/samber/oops"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health service reporting hook readiness.
const ServiceName = "witherpass.hooks"

// HealthServer serves the standard gRPC health protocol. The overall
// server is always SERVING while running; ServiceName follows SetServing.
type HealthServer struct {
	mu         sync.Mutex
	listener   net.Listener
	grpcServer *grpc.Server
	health     *health.Server
}

// NewHealthServer creates a health server with ServiceName NOT_SERVING.
func NewHealthServer() *HealthServer {
	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return &HealthServer{health: hs}
}

// Start begins listening on addr. The returned channel receives the
// server's exit error, or nil on graceful stop.
func (s *HealthServer) Start(addr string) (<-chan error, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return nil, oops.Errorf("server is already running")
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, oops.With("addr", addr).Wrapf(err, "failed to listen")
	}
	s.listener = listener
	s.grpcServer = grpc.NewServer()
	healthpb.RegisterHealthServer(s.grpcServer, s.health)

	srv := s.grpcServer
	errCh := make(chan error, 1)
	go func() {
		err := srv.Serve(listener)
		if err != nil {
			slog.Error("health gRPC server error", "error", err)
		}
		errCh <- err
		close(errCh)
	}()

	return errCh, nil
}

// SetServing flips the status of ServiceName.
func (s *HealthServer) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(ServiceName, status)
}

// Addr returns the listen address, or "" when not started.
func (s *HealthServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop marks every service NOT_SERVING and stops the server. It is safe to
// call more than once.
func (s *HealthServer) Stop(_ context.Context) error {
	s.health.Shutdown()

	s.mu.Lock()
	srv := s.grpcServer
	s.grpcServer = nil
	s.mu.Unlock()

	if srv != nil {
		srv.GracefulStop()
	}
	return nil
}
