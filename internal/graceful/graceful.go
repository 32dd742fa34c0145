package graceful

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
)

var shutdownSignals = []os.Signal{syscall.SIGINT, syscall.SIGTERM}

// WithCancel returns a context that is cancelled on the first SIGINT or
// SIGTERM, or when the returned stop func is called.
func WithCancel(parent context.Context, logger logrus.FieldLogger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, shutdownSignals...)

	go func() {
		defer signal.Stop(sigCh)
		select {
		case sig := <-sigCh:
			logger.WithField("signal", sig.String()).Info("interrupted, shutting down")
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
