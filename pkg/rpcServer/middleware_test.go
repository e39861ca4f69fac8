package rpcServer

import (
	"context"
	"testing"

	"github.com/finthetix/sidecar/internal/metrics"
	"github.com/finthetix/sidecar/internal/metrics/metricsTypes"
	"github.com/finthetix/sidecar/internal/metrics/prometheus"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func Test_MetricsUnaryInterceptor(t *testing.T) {
	t.Run("Counts requests by method and status code", func(t *testing.T) {
		registry := prom.NewRegistry()
		pm, err := prometheus.NewPrometheusMetricsClient(&prometheus.PrometheusMetricsConfig{
			Metrics:    metricsTypes.MetricTypes,
			Registerer: registry,
		}, zap.NewNop())
		assert.Nil(t, err)
		sink, _ := metrics.NewMetricsSink(&metrics.MetricsSinkConfig{}, []metricsTypes.IMetricsClient{pm}, zap.NewNop())

		interceptor := metricsUnaryInterceptor(sink)
		info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}

		_, err = interceptor(context.Background(), nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
			return nil, status.Error(codes.NotFound, "unknown service")
		})
		assert.Equal(t, codes.NotFound, status.Code(err))
		_, err = interceptor(context.Background(), nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
			return "ok", nil
		})
		assert.Nil(t, err)

		families, err := registry.Gather()
		assert.Nil(t, err)
		counts := map[string]float64{}
		for _, family := range families {
			if family.GetName() != "finthetix_"+metricsTypes.Metric_Incr_GrpcRequest {
				continue
			}
			for _, m := range family.GetMetric() {
				for _, label := range m.GetLabel() {
					if label.GetName() == "code" {
						counts[label.GetValue()] += m.GetCounter().GetValue()
					}
				}
			}
		}
		assert.Equal(t, map[string]float64{"NotFound": 1, "OK": 1}, counts)
	})
}
