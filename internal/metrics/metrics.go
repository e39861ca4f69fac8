package metrics

import (
	"time"

	"github.com/finthetix/sidecar/internal/config"
	"github.com/finthetix/sidecar/internal/metrics/dogstatsd"
	"github.com/finthetix/sidecar/internal/metrics/metricsTypes"
	"github.com/finthetix/sidecar/internal/metrics/prometheus"
	"go.uber.org/zap"
)

type MetricsSink struct {
	clients []metricsTypes.IMetricsClient
	config  *MetricsSinkConfig
	logger  *zap.Logger
}

type MetricsSinkConfig struct {
	DefaultLabels []metricsTypes.MetricsLabel
}

func NewMetricsSink(cfg *MetricsSinkConfig, clients []metricsTypes.IMetricsClient, l *zap.Logger) (*MetricsSink, error) {
	if cfg.DefaultLabels == nil {
		cfg.DefaultLabels = []metricsTypes.MetricsLabel{}
	}
	return &MetricsSink{
		clients: clients,
		config:  cfg,
		logger:  l,
	}, nil
}

// NewNoopMetricsSink is used by tests and one-shot CLI commands.
func NewNoopMetricsSink() *MetricsSink {
	return &MetricsSink{
		clients: []metricsTypes.IMetricsClient{},
		config:  &MetricsSinkConfig{DefaultLabels: []metricsTypes.MetricsLabel{}},
		logger:  zap.NewNop(),
	}
}

func mergeLabels(labels []metricsTypes.MetricsLabel, defaultLabels []metricsTypes.MetricsLabel) []metricsTypes.MetricsLabel {
	if labels == nil {
		return defaultLabels
	}
	mergedLabels := make([]metricsTypes.MetricsLabel, 0, len(defaultLabels)+len(labels))
	mergedLabels = append(mergedLabels, defaultLabels...)
	mergedLabels = append(mergedLabels, labels...)
	return mergedLabels
}

// Metrics are best effort; a failing client is logged and the remaining clients still receive the value.
func (ms *MetricsSink) Incr(name string, labels []metricsTypes.MetricsLabel, value float64) {
	mergedLabels := mergeLabels(labels, ms.config.DefaultLabels)
	for _, client := range ms.clients {
		if err := client.Incr(name, mergedLabels, value); err != nil {
			ms.logger.Sugar().Debugw("Failed to record incr", zap.String("name", name), zap.Error(err))
		}
	}
}

func (ms *MetricsSink) Gauge(name string, value float64, labels []metricsTypes.MetricsLabel) {
	mergedLabels := mergeLabels(labels, ms.config.DefaultLabels)
	for _, client := range ms.clients {
		if err := client.Gauge(name, value, mergedLabels); err != nil {
			ms.logger.Sugar().Debugw("Failed to record gauge", zap.String("name", name), zap.Error(err))
		}
	}
}

func (ms *MetricsSink) Timing(name string, value time.Duration, labels []metricsTypes.MetricsLabel) {
	mergedLabels := mergeLabels(labels, ms.config.DefaultLabels)
	for _, client := range ms.clients {
		if err := client.Timing(name, value, mergedLabels); err != nil {
			ms.logger.Sugar().Debugw("Failed to record timing", zap.String("name", name), zap.Error(err))
		}
	}
}

func InitMetricsSinksFromConfig(cfg *config.Config, l *zap.Logger) ([]metricsTypes.IMetricsClient, error) {
	clients := []metricsTypes.IMetricsClient{}

	if cfg.DataDogConfig.StatsdConfig.Enabled {
		dd, err := dogstatsd.NewDogStatsdMetricsClient(cfg.DataDogConfig.StatsdConfig.Url, cfg.DataDogConfig.StatsdConfig.SampleRate, l)
		if err != nil {
			return nil, err
		}
		clients = append(clients, dd)
	}

	if cfg.PrometheusConfig.Enabled {
		pm, err := prometheus.NewPrometheusMetricsClient(&prometheus.PrometheusMetricsConfig{
			Metrics: metricsTypes.MetricTypes,
		}, l)
		if err != nil {
			return nil, err
		}
		clients = append(clients, pm)
	}

	return clients, nil
}
