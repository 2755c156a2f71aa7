// Package grpc hosts the gRPC endpoint. Every call passes through the
// guard before reaching a service implementation.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/filmkeeper/internal/logging"
	"github.com/dmitrijs2005/filmkeeper/internal/server/guard"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type GRPCServer struct {
	address string
	logger  logging.Logger
	guard   *guard.Guard
	health  *health.Server
	srv     *grpc.Server
}

// NewGRPCServer builds the server and registers the health service. Health
// methods are made public in the guard's policy; every other method follows
// the policy default.
func NewGRPCServer(a string, l logging.Logger, g *guard.Guard) *GRPCServer {
	s := &GRPCServer{
		address: a,
		logger:  l.With("module", "grpc_server"),
		guard:   g,
		health:  health.NewServer(),
	}

	g.Policy().
		Public(healthpb.Health_Check_FullMethodName).
		Public(healthpb.Health_Watch_FullMethodName)

	s.srv = grpc.NewServer(
		grpc.ChainUnaryInterceptor(s.authUnaryInterceptor),
		grpc.ChainStreamInterceptor(s.authStreamInterceptor),
	)
	healthpb.RegisterHealthServer(s.srv, s.health)

	return s
}

// SetServing reports the overall serving state through the health service.
func (s *GRPCServer) SetServing(ok bool) {
	st := healthpb.HealthCheckResponse_SERVING
	if !ok {
		st = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", st)
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	s.SetServing(true)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gPRC server...")
		s.health.Shutdown()
		s.srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	// starts accepting incoming connections
	if err := s.srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
