// Package grpcserver exposes the catalog state over the standard gRPC health
// protocol so orchestrators can probe it without speaking HTTP.
package grpcserver

import (
	"context"
	"log"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// CatalogService is the health service name that tracks the recipe index.
const CatalogService = "recetas.Catalog"

type Server struct {
	Health *health.Server
	GRPC   *grpc.Server
}

func NewServer() *Server {
	hs := health.NewServer()
	hs.SetServingStatus(CatalogService, healthpb.HealthCheckResponse_NOT_SERVING)

	gs := grpc.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	return &Server{Health: hs, GRPC: gs}
}

// ObserveLoad matches recipes.Index.OnLoad: the catalog serves while the last
// load succeeded with at least one recipe.
func (s *Server) ObserveLoad(n int, err error) {
	st := healthpb.HealthCheckResponse_SERVING
	if err != nil || n == 0 {
		st = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.Health.SetServingStatus(CatalogService, st)
}

func (s *Server) Check(ctx context.Context, service string) (healthpb.HealthCheckResponse_ServingStatus, error) {
	resp, err := s.Health.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, err
	}
	return resp.GetStatus(), nil
}

func (s *Server) Serve(ln net.Listener) error {
	log.Printf("[grpc] health listening on %s", ln.Addr())
	return s.GRPC.Serve(ln)
}

func (s *Server) Stop() {
	s.Health.Shutdown()
	s.GRPC.GracefulStop()
}
