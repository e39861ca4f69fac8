package metricsTypes

import "time"

type IMetricsClient interface {
	Incr(name string, labels []MetricsLabel, value float64) error
	Gauge(name string, value float64, labels []MetricsLabel) error
	Timing(name string, value time.Duration, labels []MetricsLabel) error
}

type MetricsLabel struct {
	Name  string
	Value string
}

type MetricsType string

var (
	MetricsType_Incr   MetricsType = "incr"
	MetricsType_Gauge  MetricsType = "gauge"
	MetricsType_Timing MetricsType = "timing"
)

type MetricsTypeConfig struct {
	Name   string
	Labels []string
}

var (
	Metric_Incr_RewardsComputed     = "rewards_computed"
	Metric_Incr_ChainReadFailure    = "chain_read_failure"
	Metric_Incr_SnapshotWriteFailed = "snapshot_write_failed"
	Metric_Incr_GrpcRequest         = "rpc_grpc_request"
	Metric_Incr_HttpRequest         = "rpc_http_request"

	Metric_Gauge_CurrentBlockHeight = "current_block_height"
	Metric_Gauge_TotalStakedAmt     = "total_staked_amt"

	Metric_Timing_FetchAccrualInputs = "fetch_accrual_inputs_duration"
	Metric_Timing_FetchHistory       = "fetch_history_duration"
	Metric_Timing_GrpcDuration       = "rpc_grpc_duration"
	Metric_Timing_HttpDuration       = "rpc_http_duration"
)

var MetricTypes = map[MetricsType][]MetricsTypeConfig{
	MetricsType_Incr: {
		MetricsTypeConfig{
			Name:   Metric_Incr_RewardsComputed,
			Labels: []string{"variant"},
		},
		MetricsTypeConfig{
			Name:   Metric_Incr_ChainReadFailure,
			Labels: []string{"op"},
		},
		MetricsTypeConfig{
			Name:   Metric_Incr_SnapshotWriteFailed,
			Labels: []string{},
		},
		MetricsTypeConfig{
			Name:   Metric_Incr_GrpcRequest,
			Labels: []string{"method", "code"},
		},
		MetricsTypeConfig{
			Name:   Metric_Incr_HttpRequest,
			Labels: []string{"pattern", "status"},
		},
	},
	MetricsType_Gauge: {
		MetricsTypeConfig{
			Name:   Metric_Gauge_CurrentBlockHeight,
			Labels: []string{},
		},
		MetricsTypeConfig{
			Name:   Metric_Gauge_TotalStakedAmt,
			Labels: []string{},
		},
	},
	MetricsType_Timing: {
		MetricsTypeConfig{
			Name:   Metric_Timing_FetchAccrualInputs,
			Labels: []string{},
		},
		MetricsTypeConfig{
			Name:   Metric_Timing_FetchHistory,
			Labels: []string{},
		},
		MetricsTypeConfig{
			Name:   Metric_Timing_GrpcDuration,
			Labels: []string{"method"},
		},
		MetricsTypeConfig{
			Name:   Metric_Timing_HttpDuration,
			Labels: []string{"pattern"},
		},
	},
}
