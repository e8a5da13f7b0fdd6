// Package grpc implements wyosat's admin/control surface: a bare gRPC
// server listening beside the Wyoming wire protocol. No service is
// registered on it, so it answers no RPCs.
package grpc

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"google.golang.org/grpc"
)

// Controller is the subset of *satellite.Satellite the admin surface can
// act on, kept narrow so this package doesn't import the satellite
// package's full surface.
type Controller interface {
	Stop()
}

// Server implements the admin gRPC transport.
type Server struct {
	port   int
	ctrl   Controller
	server *grpc.Server
}

// New creates a new admin gRPC server on the given port.
func New(port int, ctrl Controller) *Server {
	return &Server{port: port, ctrl: ctrl}
}

// ListenAndServe starts the gRPC server. It blocks until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("admin grpc listen: %w", err)
	}

	s.server = grpc.NewServer()

	// TODO: Register the generated AdminService server here once the proto
	// is compiled (RPCs: ForceRunPipeline, PauseSatellite, GetStatus).
	// pb.RegisterAdminServiceServer(s.server, &adminServer{ctrl: s.ctrl})

	slog.Info("admin grpc listening", "port", s.port)

	go func() {
		<-ctx.Done()
		slog.Info("admin grpc shutting down")
		s.server.GracefulStop()
	}()

	return s.server.Serve(lis)
}

// Close gracefully stops the gRPC server.
func (s *Server) Close() error {
	if s.server != nil {
		s.server.GracefulStop()
	}
	return nil
}
