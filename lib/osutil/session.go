package osutil

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// Returns a context that will live until Ctrl+C is pressed
func SignalContext() context.Context {
	ctx, _ := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	return ctx
}

// Fatal logs the message with the error and exits with status 1.
func Fatal(message string, err error) {
	slog.Error(message, "err", err)
	os.Exit(1)
}
