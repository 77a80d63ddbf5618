//go:build windows

package main

import (
	"os"
	"syscall"
)

// shutdownSignals names the signals that trigger a graceful shutdown on
// Windows: os.Interrupt for Ctrl+C, and syscall.SIGTERM, which Go's
// runtime raises for console close, logoff and shutdown events.
func shutdownSignals() []os.Signal {
	return []os.Signal{os.Interrupt, syscall.SIGTERM}
}
