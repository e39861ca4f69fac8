package rpcServer

import (
	"context"
	"net/http"
	"time"

	"github.com/finthetix/sidecar/internal/metrics"
	"github.com/finthetix/sidecar/internal/metrics/metricsTypes"
	"github.com/google/uuid"
	grpc_middleware "github.com/grpc-ecosystem/go-grpc-middleware"
	grpc_zap "github.com/grpc-ecosystem/go-grpc-middleware/logging/zap"
	grpc_recovery "github.com/grpc-ecosystem/go-grpc-middleware/recovery"
	"github.com/rs/cors"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const requestIdHeader = "X-Request-Id"

// withRequestId echoes a caller supplied request id or assigns a new one.
func withRequestId(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIdHeader)
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set(requestIdHeader, id)
		next.ServeHTTP(w, r)
	})
}

func newCorsHandler(allowedOrigins []string) *cors.Cors {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", requestIdHeader},
		ExposedHeaders: []string{requestIdHeader},
	})
}

func metricsUnaryInterceptor(ms *metrics.MetricsSink) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		ms.Incr(metricsTypes.Metric_Incr_GrpcRequest, []metricsTypes.MetricsLabel{
			{Name: "method", Value: info.FullMethod},
			{Name: "code", Value: status.Code(err).String()},
		}, 1)
		ms.Timing(metricsTypes.Metric_Timing_GrpcDuration, time.Since(start), []metricsTypes.MetricsLabel{
			{Name: "method", Value: info.FullMethod},
		})
		return resp, err
	}
}

// NewGrpcServer builds a gRPC server that logs every call, recovers from panics and records request metrics.
func NewGrpcServer(ms *metrics.MetricsSink, l *zap.Logger) *grpc.Server {
	recoveryOpts := []grpc_recovery.Option{
		grpc_recovery.WithRecoveryHandler(func(p interface{}) error {
			l.Sugar().Errorw("Recovered from panic in grpc handler", zap.Any("panic", p))
			return status.Errorf(codes.Internal, "internal error")
		}),
	}
	return grpc.NewServer(
		grpc.UnaryInterceptor(grpc_middleware.ChainUnaryServer(
			grpc_recovery.UnaryServerInterceptor(recoveryOpts...),
			grpc_zap.UnaryServerInterceptor(l),
			metricsUnaryInterceptor(ms),
		)),
		grpc.StreamInterceptor(grpc_middleware.ChainStreamServer(
			grpc_recovery.StreamServerInterceptor(recoveryOpts...),
			grpc_zap.StreamServerInterceptor(l),
		)),
	)
}
