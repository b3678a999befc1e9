package api

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/mirador-aiops/internal/config"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "aiops.v1.AIOps"

// Full method names, usable with grpc.ClientConn.Invoke.
const (
	RunMethod       = "/" + ServiceName + "/Run"
	GraphDataMethod = "/" + ServiceName + "/GraphData"
	DetectMethod    = "/" + ServiceName + "/Detect"
)

// AIOpsServer is the gRPC contract. Payloads are google.protobuf.Struct
// documents carrying the same JSON shapes as the HTTP API.
type AIOpsServer interface {
	Run(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GraphData(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Detect(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

var aiopsServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AIOpsServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Run", Handler: unaryHandler(RunMethod, AIOpsServer.Run)},
		{MethodName: "GraphData", Handler: unaryHandler(GraphDataMethod, AIOpsServer.GraphData)},
		{MethodName: "Detect", Handler: unaryHandler(DetectMethod, AIOpsServer.Detect)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "aiops/v1/aiops.proto",
}

// methodHandler matches grpc.MethodDesc.Handler.
type methodHandler = func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error)

func unaryHandler(fullMethod string, call func(AIOpsServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) methodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(AIOpsServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(AIOpsServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// RegisterAIOpsServer registers srv on s.
func RegisterAIOpsServer(s grpc.ServiceRegistrar, srv AIOpsServer) {
	s.RegisterService(&aiopsServiceDesc, srv)
}

// GRPCService adapts a Backend to AIOpsServer.
type GRPCService struct {
	logger  *slog.Logger
	backend Backend
}

// NewGRPCService constructs the gRPC facade.
func NewGRPCService(logger *slog.Logger, backend Backend) *GRPCService {
	if logger == nil {
		logger = slog.Default()
	}
	return &GRPCService{logger: logger, backend: backend}
}

// Run executes one correlation cycle.
func (s *GRPCService) Run(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	opts, err := RunOptionsFromStruct(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	snap, err := s.backend.Run(ctx, opts)
	if err != nil {
		return nil, s.toStatus("run", err)
	}
	return s.encode(snap.Result())
}

// GraphData returns the graph of the latest run.
func (s *GRPCService) GraphData(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	data, err := s.backend.GraphData(ctx)
	if err != nil {
		return nil, s.toStatus("graph data", err)
	}
	return s.encode(data)
}

// Detect labels the supplied records.
func (s *GRPCService) Detect(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	records, err := RecordsFromStruct(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	report, err := s.backend.Detect(ctx, records)
	if err != nil {
		return nil, s.toStatus("detect", err)
	}
	return s.encode(report)
}

func (s *GRPCService) encode(v any) (*structpb.Struct, error) {
	out, err := ToStruct(v)
	if err != nil {
		s.logger.Error("encode response failed", slog.Any("error", err))
		return nil, status.Error(codes.Internal, "failed to encode response")
	}
	return out, nil
}

func (s *GRPCService) toStatus(op string, err error) error {
	if isInvalidInput(err) {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	s.logger.Error(op+" failed", slog.Any("error", err))
	return status.Error(codes.Internal, fmt.Sprintf("%s failed: %v", op, err))
}

// Server wraps the gRPC server implementation and lifecycle helpers.
type Server struct {
	cfg        config.ServerConfig
	grpcServer *grpc.Server
	listener   net.Listener
}

// NewServer constructs a gRPC server bound to the configured address.
func NewServer(cfg config.ServerConfig, service AIOpsServer, opts ...grpc.ServerOption) (*Server, error) {
	lis, err := net.Listen("tcp", cfg.GRPCAddress)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", cfg.GRPCAddress, err)
	}
	return newServer(cfg, lis, service, opts...), nil
}

func newServer(cfg config.ServerConfig, lis net.Listener, service AIOpsServer, opts ...grpc.ServerOption) *Server {
	grpc_prometheus.EnableHandlingTimeHistogram()
	serverOpts := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(grpc_prometheus.UnaryServerInterceptor),
		grpc.ChainStreamInterceptor(grpc_prometheus.StreamServerInterceptor),
	}
	serverOpts = append(serverOpts, opts...)
	grpcServer := grpc.NewServer(serverOpts...)

	RegisterAIOpsServer(grpcServer, service)
	grpc_prometheus.Register(grpcServer)

	healthSrv := health.NewServer()
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthSrv.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthSrv)

	reflection.Register(grpcServer)

	return &Server{
		cfg:        cfg,
		grpcServer: grpcServer,
		listener:   lis,
	}
}

// Start serves incoming gRPC requests until Stop/Shutdown is invoked.
func (s *Server) Start() error {
	if s.grpcServer == nil || s.listener == nil {
		return fmt.Errorf("server not initialised")
	}
	return s.grpcServer.Serve(s.listener)
}

// Shutdown attempts a graceful shutdown, falling back to Stop after timeout.
func (s *Server) Shutdown(ctx context.Context) {
	if s.grpcServer == nil {
		return
	}

	stopped := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(stopped)
	}()

	select {
	case <-ctx.Done():
		s.grpcServer.Stop()
	case <-stopped:
	}
}

// Address exposes the bound listener address (useful for tests).
func (s *Server) Address() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// GracefulTimeout returns the configured graceful timeout duration.
func (s *Server) GracefulTimeout() time.Duration {
	return s.cfg.GracefulTimeout
}
