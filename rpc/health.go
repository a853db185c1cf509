package rpc

import (
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/wfunc/nightwatch/logger"
)

// ServiceName is the health service name reported for the session server.
const ServiceName = "nightwatch.Session"

// HealthServer serves the standard gRPC health checking protocol.
type HealthServer struct {
	grpcServer *grpc.Server
	health     *health.Server
	listener   net.Listener
}

func NewHealthServer(addr string) (*HealthServer, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	hs := health.NewServer()
	gs := grpc.NewServer()
	healthpb.RegisterHealthServer(gs, hs)

	return &HealthServer{grpcServer: gs, health: hs, listener: listener}, nil
}

func (h *HealthServer) Addr() string { return h.listener.Addr().String() }

// Health returns the underlying health service.
func (h *HealthServer) Health() *health.Server { return h.health }

// SetServing marks the overall server and the session service as serving or not.
func (h *HealthServer) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	h.health.SetServingStatus("", status)
	h.health.SetServingStatus(ServiceName, status)
}

func (h *HealthServer) Start() {
	h.SetServing(true)
	logger.Log.Infof("gRPC health server listening on %s", h.Addr())
	if err := h.grpcServer.Serve(h.listener); err != nil {
		logger.Log.Errorf("gRPC health server stopped: %v", err)
	}
}

func (h *HealthServer) Stop() {
	h.health.Shutdown()
	h.grpcServer.GracefulStop()
}
