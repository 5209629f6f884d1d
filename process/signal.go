// Signal plumbing.  The daemon blocks until it is told to shut down; the collector instead carries
// a context canceled by the same signals so the account/user loop can abort between iterations.

package process

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func WaitForSignal(signals ...os.Signal) {
	stopSignal := make(chan os.Signal, 1)
	signal.Notify(stopSignal, signals...)
	<-stopSignal
}

// SignalContext returns a context canceled on any of the given signals, SIGINT and SIGTERM if none
// are given.  The cancel function releases the signal registrations.
func SignalContext(parent context.Context, signals ...os.Signal) (context.Context, context.CancelFunc) {
	if len(signals) == 0 {
		signals = []os.Signal{syscall.SIGINT, syscall.SIGTERM}
	}
	return signal.NotifyContext(parent, signals...)
}
