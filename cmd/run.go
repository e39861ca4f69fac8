package cmd

import (
	"context"
	"time"

	"github.com/finthetix/sidecar/internal/config"
	"github.com/finthetix/sidecar/internal/logger"
	"github.com/finthetix/sidecar/internal/metrics"
	"github.com/finthetix/sidecar/internal/metrics/prometheus"
	"github.com/finthetix/sidecar/internal/shutdown"
	"github.com/finthetix/sidecar/internal/version"
	"github.com/finthetix/sidecar/pkg/rpcServer"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Serve rewards, status, metadata and history over HTTP and gRPC",
	Run: func(cmd *cobra.Command, args []string) {
		initCommandFlags(cmd)
		cfg := config.NewConfig()

		l, _ := logger.NewLogger(&logger.LoggerConfig{Debug: cfg.Debug})
		l.Sugar().Infow("Starting Finthetix sidecar",
			zap.String("version", version.GetVersion()),
			zap.String("commit", version.GetCommit()),
			zap.String("chain", string(cfg.Chain)),
		)

		metricsClients, err := metrics.InitMetricsSinksFromConfig(cfg, l)
		if err != nil {
			l.Sugar().Fatalw("Failed to setup metrics sink", zap.Error(err))
		}

		ms, err := metrics.NewMetricsSink(&metrics.MetricsSinkConfig{}, metricsClients, l)
		if err != nil {
			l.Sugar().Fatalw("Failed to setup metrics sink", zap.Error(err))
		}

		var promServer *prometheus.PrometheusServer
		if cfg.PrometheusConfig.Enabled {
			promServer = prometheus.NewPrometheusServer(&prometheus.PrometheusServerConfig{
				Port: cfg.PrometheusConfig.Port,
			}, l)
			promServer.Start()
		}

		fetcher, closeStore, err := newStakingFetcher(cfg, ms, l)
		if err != nil {
			l.Sugar().Fatalw("Failed to setup staking fetcher", zap.Error(err))
		}
		defer closeStore()

		grpcServer := rpcServer.NewGrpcServer(ms, l)
		rpc, err := rpcServer.NewRpcServer(grpcServer, runtime.NewServeMux(), fetcher, ms, cfg, l)
		if err != nil {
			l.Sugar().Fatalw("Failed to setup rpc server", zap.Error(err))
		}

		listeners := rpcServer.NewListeners(rpc, grpcServer, l)
		if err := listeners.Start(); err != nil {
			l.Sugar().Fatalw("Failed to start rpc server", zap.Error(err))
		}

		l.Sugar().Infow("Started Finthetix sidecar", zap.String("formulaVariant", fetcher.FormulaVariant().String()))

		gracefulShutdown := shutdown.CreateGracefulShutdownChannel()

		done := make(chan bool)
		shutdown.ListenForShutdown(gracefulShutdown, done, func() {
			l.Sugar().Info("Shutting down...")
			ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
			defer cancel()

			listeners.Shutdown(ctx)
			if promServer != nil {
				promServer.Shutdown(ctx)
			}
		}, time.Second*10, l)
	},
}
