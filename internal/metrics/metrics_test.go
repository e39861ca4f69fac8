package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/finthetix/sidecar/internal/metrics/metricsTypes"
	"github.com/finthetix/sidecar/internal/metrics/prometheus"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type recordingClient struct {
	incrs   map[string]float64
	labels  map[string][]metricsTypes.MetricsLabel
	timings map[string]time.Duration
	err     error
}

func newRecordingClient(err error) *recordingClient {
	return &recordingClient{
		incrs:   map[string]float64{},
		labels:  map[string][]metricsTypes.MetricsLabel{},
		timings: map[string]time.Duration{},
		err:     err,
	}
}

func (r *recordingClient) Incr(name string, labels []metricsTypes.MetricsLabel, value float64) error {
	r.incrs[name] += value
	r.labels[name] = labels
	return r.err
}

func (r *recordingClient) Gauge(name string, value float64, labels []metricsTypes.MetricsLabel) error {
	r.incrs[name] = value
	return r.err
}

func (r *recordingClient) Timing(name string, value time.Duration, labels []metricsTypes.MetricsLabel) error {
	r.timings[name] = value
	return r.err
}

func Test_MetricsSink(t *testing.T) {
	t.Run("Fans out to every client with default labels", func(t *testing.T) {
		failing := newRecordingClient(errors.New("statsd down"))
		healthy := newRecordingClient(nil)

		sink, err := NewMetricsSink(&MetricsSinkConfig{
			DefaultLabels: []metricsTypes.MetricsLabel{{Name: "chain", Value: "sepolia"}},
		}, []metricsTypes.IMetricsClient{failing, healthy}, zap.NewNop())
		assert.Nil(t, err)

		sink.Incr(metricsTypes.Metric_Incr_RewardsComputed, []metricsTypes.MetricsLabel{{Name: "variant", Value: "divided"}}, 1)
		sink.Timing(metricsTypes.Metric_Timing_FetchAccrualInputs, 25*time.Millisecond, nil)

		assert.Equal(t, float64(1), failing.incrs[metricsTypes.Metric_Incr_RewardsComputed])
		assert.Equal(t, float64(1), healthy.incrs[metricsTypes.Metric_Incr_RewardsComputed])
		assert.Equal(t, []metricsTypes.MetricsLabel{
			{Name: "chain", Value: "sepolia"},
			{Name: "variant", Value: "divided"},
		}, healthy.labels[metricsTypes.Metric_Incr_RewardsComputed])
		assert.Equal(t, 25*time.Millisecond, healthy.timings[metricsTypes.Metric_Timing_FetchAccrualInputs])
	})
	t.Run("Prometheus client drops undeclared labels", func(t *testing.T) {
		registry := prom.NewRegistry()
		pm, err := prometheus.NewPrometheusMetricsClient(&prometheus.PrometheusMetricsConfig{
			Metrics:    metricsTypes.MetricTypes,
			Registerer: registry,
		}, zap.NewNop())
		assert.Nil(t, err)

		sink, _ := NewMetricsSink(&MetricsSinkConfig{
			DefaultLabels: []metricsTypes.MetricsLabel{{Name: "chain", Value: "local"}},
		}, []metricsTypes.IMetricsClient{pm}, zap.NewNop())

		assert.NotPanics(t, func() {
			sink.Incr(metricsTypes.Metric_Incr_RewardsComputed, []metricsTypes.MetricsLabel{{Name: "variant", Value: "undivided"}}, 2)
			sink.Gauge(metricsTypes.Metric_Gauge_CurrentBlockHeight, 1234, nil)
			sink.Incr("not_registered", nil, 1)
		})

		count, err := testutil.GatherAndCount(registry, "finthetix_rewards_computed")
		assert.Nil(t, err)
		assert.Equal(t, 1, count)
	})
}
