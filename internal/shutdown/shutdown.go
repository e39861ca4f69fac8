package shutdown

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

func CreateGracefulShutdownChannel() chan os.Signal {
	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGTERM, syscall.SIGINT)

	return gracefulShutdown
}

// ListenForShutdown blocks until SIGINT/SIGTERM, runs the handler, then waits up to
// timeToWait for in-flight work before closing done.
func ListenForShutdown(
	signalChan chan os.Signal,
	done chan bool,
	signalHandler func(),
	timeToWait time.Duration,
	l *zap.Logger,
) {
	sig := <-signalChan
	switch sig {
	case syscall.SIGTERM, syscall.SIGINT:
		l.Sugar().Infow("Caught signal", zap.String("signal", sig.String()))

		drained := make(chan struct{})
		go func() {
			signalHandler()
			close(drained)
		}()

		select {
		case <-drained:
			l.Sugar().Infow("Servers drained")
		case <-time.After(timeToWait):
			l.Sugar().Warnw("Timed out waiting for servers to drain", zap.Duration("timeToWait", timeToWait))
		}

		l.Sugar().Infow("Exiting")
		close(done)
	}
}
