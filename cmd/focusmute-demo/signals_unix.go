//go:build !windows

package main

import (
	"os"

	"golang.org/x/sys/unix"
)

// shutdownSignals names the signals that trigger a graceful shutdown on
// every platform but Windows, which has its own list.
func shutdownSignals() []os.Signal {
	return []os.Signal{unix.SIGINT, unix.SIGTERM}
}
