//go:build linux

// internal/monitor/linux.go
// Mute monitor backed by PulseAudio's default source, event-driven via
// the server's subscription stream with a poll-fallback baseline.
package monitor

import (
	"github.com/lawl/pulseaudio"

	"github.com/focusmute/focusmute-core/internal/errkind"
)

func init() {
	newFunc = newLinuxMonitor
}

// pulseReader adapts a pulseaudio.Client to muteReader: every getMuted
// call re-resolves the current default source, since PulseAudio lets the
// default change underneath a long-lived client.
type pulseReader struct {
	client *pulseaudio.Client
}

func (r *pulseReader) defaultSourceName() (string, error) {
	server, err := r.client.ServerInfo()
	if err != nil {
		return "", err
	}
	return server.DefaultSource, nil
}

func (r *pulseReader) getMuted() (bool, error) {
	name, err := r.defaultSourceName()
	if err != nil {
		return false, err
	}
	sources, err := r.client.Sources()
	if err != nil {
		return false, err
	}
	for _, s := range sources {
		if s.Name == name {
			return s.Muted, nil
		}
	}
	return false, errkind.New(errkind.NotFound, "monitor.pulseReader.getMuted", nil)
}

func (r *pulseReader) setMuted(muted bool) error {
	name, err := r.defaultSourceName()
	if err != nil {
		return err
	}
	sources, err := r.client.Sources()
	if err != nil {
		return err
	}
	for _, s := range sources {
		if s.Name == name {
			return r.client.SetSourceMute(s.Index, muted)
		}
	}
	return errkind.New(errkind.NotFound, "monitor.pulseReader.setMuted", nil)
}

func (r *pulseReader) release() {
	r.client.Close()
}

// linuxMonitor wraps pollMonitor but additionally listens on PulseAudio's
// server-side update stream to shorten the effective poll latency to
// "next update event or 250ms, whichever comes first", preferring
// event-driven delivery where the platform supports it.
type linuxMonitor struct {
	*pollMonitor
	updates chan struct{}
}

func newLinuxMonitor() (Monitor, error) {
	client, err := pulseaudio.NewClient()
	if err != nil {
		return nil, errkind.New(errkind.Unsupported, "monitor.newLinuxMonitor", err)
	}

	reader := &pulseReader{client: client}
	poll := newPollMonitor(reader)

	updates, err := client.Updates()
	if err != nil {
		// PulseAudio without subscription support still works via the
		// poll fallback alone.
		return &linuxMonitor{pollMonitor: poll}, nil
	}

	m := &linuxMonitor{pollMonitor: poll, updates: updates}
	go m.pump()
	return m, nil
}

// pump drains PulseAudio's update stream and forces an immediate
// mute-state re-check on every event, rather than waiting up to 250ms.
func (m *linuxMonitor) pump() {
	for range m.updates {
		muted, err := m.reader.getMuted()
		if err != nil {
			continue
		}
		m.emit(muted)
	}
}

func (m *linuxMonitor) emit(muted bool) {
	select {
	case m.ch <- newSample(muted):
	default:
	}
}
