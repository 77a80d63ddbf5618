// Package monitor is the platform-backed mute subscription:
// a stream of MuteSample for the operating system's default capture
// device, plus set_muted for the hotkey path. Each platform file
// registers a constructor in New; callers never branch on platform.
package monitor

import (
	"context"
	"time"
)

// MuteSample is one observation of the default capture device's mute
// state.
type MuteSample struct {
	Muted bool
	At time.Time
}

// Monitor is the interface the supervisor drives. Samples delivers every
// observation the platform backend produces; backends may coalesce
// consecutive samples with the same Muted value, The
// supervisor is responsible for the two-sample/500ms debounce — this
// interface is not debounced.
type Monitor interface {
	// Samples returns the channel samples arrive on. It is closed when
	// Close is called.
	Samples() <-chan MuteSample

	// SetMuted drives the OS-level mute toggle. A successful call
	// produces the corresponding sample through Samples, the same path a
	// remote mute event takes, so hotkey and remote mutes share one
	// code path.
	SetMuted(ctx context.Context, muted bool) error

	// Close releases the subscription. Idempotent.
	Close() error
}

// newSample stamps a MuteSample with the current time, shared by every
// platform backend so "at" always means "observed", not "produced".
func newSample(muted bool) MuteSample {
	return MuteSample{Muted: muted, At: time.Now()}
}

// newFunc is set by exactly one of the build-tagged platform files.
var newFunc func() (Monitor, error)

// New opens the default capture device's mute subscription for the
// current platform.
func New() (Monitor, error) {
	return newFunc()
}
