//go:build !windows && !linux

// internal/monitor/other.go
// No platform-specific mute backend is wired for this OS; New reports
// Unsupported rather than silently doing nothing, so the supervisor can
// decide whether to run without a monitor at all.
package monitor

import "github.com/focusmute/focusmute-core/internal/errkind"

func init() {
	newFunc = newUnsupportedMonitor
}

func newUnsupportedMonitor() (Monitor, error) {
	return nil, errkind.New(errkind.Unsupported, "monitor.New", nil)
}
