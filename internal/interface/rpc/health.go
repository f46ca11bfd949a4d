package rpc

import (
	"context"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName 对外报告健康状态的服务名
const ServiceName = "library.v1.Library"

// Checker 探测存储是否可用
type Checker func(ctx context.Context) error

// HealthServer gRPC健康检查服务(grpc.health.v1.Health)
// 供Kubernetes等编排系统探测,业务接口仍然是HTTP
type HealthServer struct {
	server  *grpc.Server
	health  *health.Server
	checker Checker
}

// NewHealthServer 创建健康检查服务,初始状态为NOT_SERVING
func NewHealthServer(checker Checker) *HealthServer {
	s := &HealthServer{
		server:  grpc.NewServer(),
		health:  health.NewServer(),
		checker: checker,
	}
	healthpb.RegisterHealthServer(s.server, s.health)
	// 注册反射服务(用于grpcurl调试)
	reflection.Register(s.server)

	s.setServing(false)
	return s
}

// Serve 阻塞监听,直到Stop
func (s *HealthServer) Serve(lis net.Listener) error {
	zap.L().Info("gRPC健康检查服务启动", zap.String("addr", lis.Addr().String()))
	return s.server.Serve(lis)
}

// Watch 按interval探测存储并更新状态,ctx取消时返回
func (s *HealthServer) Watch(ctx context.Context, interval time.Duration) {
	s.Probe(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Probe(ctx)
		}
	}
}

// Probe 探测一次存储,可达时SERVING,否则NOT_SERVING
func (s *HealthServer) Probe(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	err := s.checker(probeCtx)
	if err != nil {
		zap.L().Warn("存储健康检查失败", zap.Error(err))
	}
	s.setServing(err == nil)
}

// Stop 标记为NOT_SERVING并等待进行中的请求完成
func (s *HealthServer) Stop() {
	s.health.Shutdown()
	s.server.GracefulStop()
}

func (s *HealthServer) setServing(ok bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if ok {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}
