package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
)

// errUsage marks bad command lines so Execute can exit with 2.
var errUsage = errors.New("usage")

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func exitCode(err error) int {
	if errors.Is(err, errUsage) {
		return 2
	}
	return 1
}
