package grace

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
)

// NewGracefulContext returns context cancelled by SIGINT, SIGTERM or SIGHUP.
// Received signal is logged if l is not nil. Signals are no longer caught
// after the context is done.
func NewGracefulContext(l *zap.Logger) (context.Context, context.CancelFunc) {
	if l == nil {
		l = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	go func() {
		defer signal.Stop(ch)

		select {
		case sig := <-ch:
			l.Info("received signal", zap.Stringer("signal", sig))
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
