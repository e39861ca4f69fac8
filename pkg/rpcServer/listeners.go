package rpcServer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
)

type Listeners struct {
	rpc        *RpcServer
	grpcServer *grpc.Server
	httpServer *http.Server
	logger     *zap.Logger
}

func NewListeners(rpc *RpcServer, grpcServer *grpc.Server, l *zap.Logger) *Listeners {
	return &Listeners{
		rpc:        rpc,
		grpcServer: grpcServer,
		logger:     l,
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", rpc.GlobalConfig.RpcConfig.HttpPort),
			Handler:           rpc.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start binds the gRPC port synchronously so a port conflict fails startup, then serves both in the background.
func (ls *Listeners) Start() error {
	grpcPort := ls.rpc.GlobalConfig.RpcConfig.GrpcPort
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", grpcPort))
	if err != nil {
		ls.logger.Sugar().Errorw("Failed to listen on grpc port", zap.Int("port", grpcPort), zap.Error(err))
		return err
	}

	go func() {
		ls.logger.Sugar().Infow("Starting grpc server", zap.Int("port", grpcPort))
		if err := ls.grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			ls.logger.Sugar().Errorw("Grpc server stopped", zap.Error(err))
		}
	}()
	go func() {
		ls.logger.Sugar().Infow("Starting http server", zap.Int("port", ls.rpc.GlobalConfig.RpcConfig.HttpPort))
		if err := ls.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			ls.logger.Sugar().Errorw("Http server stopped", zap.Error(err))
		}
	}()
	return nil
}

func (ls *Listeners) Shutdown(ctx context.Context) {
	ls.rpc.SetServing(false)

	ls.logger.Sugar().Infow("Shutting down http server")
	if err := ls.httpServer.Shutdown(ctx); err != nil {
		ls.logger.Sugar().Errorw("Failed to shutdown http server", zap.Error(err))
	}

	stopped := make(chan struct{})
	go func() {
		ls.grpcServer.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-ctx.Done():
		ls.logger.Sugar().Warnw("Forcing grpc server to stop")
		ls.grpcServer.Stop()
	}
}
