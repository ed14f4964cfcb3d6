// Package grpc exposes the operational gRPC endpoint of the LMS backend:
// the standard health service and server reflection, open to probes, and
// channelz runtime introspection, which requires an access token.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/lms/internal/logging"
	"github.com/dmitrijs2005/lms/internal/server/auth"
	"google.golang.org/grpc"
	channelzsvc "google.golang.org/grpc/channelz/service"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// TokenVerifier checks access tokens carried in request metadata.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) auth.Result
}

type GRPCServer struct {
	address  string
	verifier TokenVerifier
	logger   logging.Logger
	health   *health.Server
	srv      *grpc.Server
}

func NewGRPCServer(a string, v TokenVerifier, l logging.Logger) *GRPCServer {
	s := &GRPCServer{
		address:  a,
		verifier: v,
		logger:   l.With("module", "grpc_server"),
		health:   health.NewServer(),
	}

	s.srv = grpc.NewServer(
		grpc.ChainUnaryInterceptor(s.accessTokenInterceptor),
		grpc.ChainStreamInterceptor(s.accessTokenStreamInterceptor),
	)
	healthpb.RegisterHealthServer(s.srv, s.health)
	reflection.Register(s.srv)
	channelzsvc.RegisterChannelzServiceToServer(s.srv)

	return s
}

// SetServing flips the overall health status reported to probes.
func (s *GRPCServer) SetServing(serving bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", st)
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listen)
}

// Serve accepts connections on l until ctx is cancelled.
func (s *GRPCServer) Serve(ctx context.Context, l net.Listener) error {
	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		s.health.Shutdown()
		s.srv.GracefulStop()
	}()

	s.SetServing(true)
	s.logger.Info(ctx, "Starting gRPC server", "address", l.Addr().String())

	// starts accepting incoming connections
	if err := s.srv.Serve(l); err != nil {
		return err
	}

	return nil
}
