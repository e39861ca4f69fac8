package rpcServer

import (
	"context"
	"net/http"
	"time"

	"github.com/finthetix/sidecar/internal/config"
	"github.com/finthetix/sidecar/internal/metrics"
	"github.com/finthetix/sidecar/internal/metrics/metricsTypes"
	"github.com/finthetix/sidecar/pkg/stakingFetcher"
	"github.com/finthetix/sidecar/pkg/storage"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// StakingService is what the RPC surface serves. *stakingFetcher.StakingFetcher implements it.
type StakingService interface {
	GetUserRewards(ctx context.Context, address string) (*stakingFetcher.UserRewards, error)
	GetStatus(ctx context.Context) (*stakingFetcher.Status, error)
	GetMetadata(ctx context.Context) (*stakingFetcher.Metadata, error)
	GetHistory(ctx context.Context, req *stakingFetcher.HistoryRequest) (*stakingFetcher.History, error)
	ListSnapshots(address string, limit int) ([]*storage.RewardSnapshot, error)
	PreviewStakeAmount(ctx context.Context, address string, percentage uint64) (*stakingFetcher.StakePreview, error)
}

type RpcServer struct {
	Logger       *zap.Logger
	GlobalConfig *config.Config
	Metrics      *metrics.MetricsSink

	service      StakingService
	mux          *runtime.ServeMux
	healthServer *health.Server
}

type route struct {
	method  string
	pattern string
	handler runtime.HandlerFunc
}

func NewRpcServer(
	grpcServer *grpc.Server,
	mux *runtime.ServeMux,
	svc StakingService,
	ms *metrics.MetricsSink,
	cfg *config.Config,
	l *zap.Logger,
) (*RpcServer, error) {
	server := &RpcServer{
		Logger:       l,
		GlobalConfig: cfg,
		Metrics:      ms,
		service:      svc,
		mux:          mux,
		healthServer: health.NewServer(),
	}

	routes := []route{
		{http.MethodGet, "/v1/health", server.HealthCheck},
		{http.MethodGet, "/v1/ready", server.ReadyCheck},
		{http.MethodGet, "/v1/status", server.GetStatus},
		{http.MethodGet, "/v1/metadata", server.GetMetadata},
		{http.MethodGet, "/v1/stakers/{address}/rewards", server.GetUserRewards},
		{http.MethodGet, "/v1/stakers/{address}/history", server.GetHistory},
		{http.MethodGet, "/v1/stakers/{address}/snapshots", server.ListSnapshots},
		{http.MethodGet, "/v1/stakers/{address}/stake-preview", server.PreviewStakeAmount},
	}
	for _, r := range routes {
		if err := mux.HandlePath(r.method, r.pattern, server.instrument(r.pattern, r.handler)); err != nil {
			l.Sugar().Errorw("Failed to register route", zap.String("pattern", r.pattern), zap.Error(err))
			return nil, err
		}
	}

	healthpb.RegisterHealthServer(grpcServer, server.healthServer)
	reflection.Register(grpcServer)
	server.healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	return server, nil
}

// instrument records the request count and duration of a route under its pattern,
// so the label cardinality does not grow with staker addresses.
func (rpc *RpcServer) instrument(pattern string, h runtime.HandlerFunc) runtime.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r, pathParams)

		rpc.Metrics.Incr(metricsTypes.Metric_Incr_HttpRequest, []metricsTypes.MetricsLabel{
			{Name: "pattern", Value: pattern},
			{Name: "status", Value: http.StatusText(rec.status)},
		}, 1)
		rpc.Metrics.Timing(metricsTypes.Metric_Timing_HttpDuration, time.Since(start), []metricsTypes.MetricsLabel{
			{Name: "pattern", Value: pattern},
		})
	}
}

// Handler wraps the gateway mux with request ids and CORS.
func (rpc *RpcServer) Handler() http.Handler {
	return newCorsHandler(rpc.GlobalConfig.RpcConfig.CorsAllowedOrigins).Handler(withRequestId(rpc.mux))
}

// SetServing flips the gRPC health status, e.g. to NOT_SERVING while shutting down.
func (rpc *RpcServer) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_SERVING
	if !serving {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	rpc.healthServer.SetServingStatus("", status)
}
