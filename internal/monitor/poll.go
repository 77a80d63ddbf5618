package monitor

import (
	"context"
	"sync"
	"time"
)

// pollInterval is the poll fallback cadence.
const pollInterval = 250 * time.Millisecond

// muteReader is the minimal platform surface a poll-based Monitor needs:
// read the current mute state, and drive it.
type muteReader interface {
	getMuted() (bool, error)
	setMuted(muted bool) error
	release()
}

// pollMonitor implements Monitor by reading muteReader on a fixed tick
// and coalescing consecutive identical samples, used where the platform
// exposes no change-notification callback.
type pollMonitor struct {
	reader muteReader
	ch chan MuteSample
	cancel context.CancelFunc
	wg sync.WaitGroup

	closeOnce sync.Once
}

func newPollMonitor(reader muteReader) *pollMonitor {
	ctx, cancel := context.WithCancel(context.Background())
	m := &pollMonitor{
		reader: reader,
		ch: make(chan MuteSample, 4),
		cancel: cancel,
	}
	m.wg.Add(1)
	go m.run(ctx)
	return m
}

func (m *pollMonitor) run(ctx context.Context) {
	defer m.wg.Done()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	var last bool
	var haveLast bool

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			muted, err := m.reader.getMuted()
			if err != nil {
				continue
			}
			if haveLast && muted == last {
				continue
			}
			haveLast = true
			last = muted
			sample := MuteSample{Muted: muted, At: time.Now()}
			select {
			case m.ch <- sample:
			default:
			}
		}
	}
}

func (m *pollMonitor) Samples() <-chan MuteSample { return m.ch }

func (m *pollMonitor) SetMuted(ctx context.Context, muted bool) error {
	return m.reader.setMuted(muted)
}

func (m *pollMonitor) Close() error {
	m.closeOnce.Do(func() {
		m.cancel()
		m.wg.Wait()
		m.reader.release()
		close(m.ch)
	})
	return nil
}
