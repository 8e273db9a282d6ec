// Package grpc serves possync.v1.SyncService to POS devices on top of any
// remote.Admin backend.
package grpc

import (
	"context"
	"net"
	"time"

	"github.com/dmitrijs2005/possync/internal/api"
	"github.com/dmitrijs2005/possync/internal/logging"
	"github.com/dmitrijs2005/possync/internal/remote"
	"google.golang.org/grpc"
)

type GRPCServer struct {
	api.UnimplementedSyncServiceServer
	address       string
	store         remote.Admin
	logger        logging.Logger
	jwtSecret     []byte
	tokenValidity time.Duration
}

func NewGRPCServer(a string, l logging.Logger, store remote.Admin, secretKey string, tokenValidity time.Duration) *GRPCServer {
	return &GRPCServer{
		address:       a,
		logger:        l.With("module", "grpc_server"),
		store:         store,
		jwtSecret:     []byte(secretKey),
		tokenValidity: tokenValidity,
	}
}

// newServer builds a grpc.Server with the interceptor chain and the service
// registered.
func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(
		s.tracingInterceptor,
		s.metricsInterceptor,
		s.accessTokenInterceptor,
	))
	api.RegisterSyncServiceServer(srv, s)
	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is cancelled, then stops
// gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(lis); err != nil {
		return err
	}

	return nil
}
