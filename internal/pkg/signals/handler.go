package signals

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/endorses/lcdissect/internal/pkg/constants"
	"github.com/endorses/lcdissect/internal/pkg/logger"
)

// SetupHandler cancels ctx through cancel on SIGINT, SIGTERM or SIGHUP, so
// a long capture file read stops between frames.
// Returns a cleanup function that should be called when the signal handler is no longer needed
func SetupHandler(ctx context.Context, cancel context.CancelFunc) (cleanup func()) {
	sigCh := make(chan os.Signal, constants.SignalChannelBuffer)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		select {
		case sig := <-sigCh:
			logger.Info("Received signal, stopping dissection", "signal", sig.String())
			cancel()
		case <-ctx.Done():
			// Context already cancelled, clean up
		case <-stop:
		}
	}()

	return func() {
		signal.Stop(sigCh)
		close(stop)
		<-done
	}
}

// WithSignals returns a context cancelled by the first termination signal,
// and a stop function releasing the handler.
func WithSignals(parent context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)
	cleanup := SetupHandler(ctx, cancel)
	return ctx, func() {
		cancel()
		cleanup()
	}
}
