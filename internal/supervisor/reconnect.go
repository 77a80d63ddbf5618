package supervisor

import "time"

// minReconnectDelay/maxReconnectDelay bound the doubling backoff: 250ms on
// the first retry after a failure, capped at 10s.
const (
	minReconnectDelay = 250 * time.Millisecond
	maxReconnectDelay = 10 * time.Second
)

// reconnectState tracks the reconnect attempt count and the delay to wait
// before the next open attempt, doubling on failure and resetting on
// success.
type reconnectState struct {
	attempt uint32
	nextDelay time.Duration
	lastErr error
}

func newReconnectState() reconnectState {
	return reconnectState{nextDelay: minReconnectDelay}
}

// onFailure advances the state by one failed attempt. The first failure
// yields minReconnectDelay; each consecutive failure after that doubles
// the previous delay, capped at maxReconnectDelay.
func (r reconnectState) onFailure(err error) reconnectState {
	delay := minReconnectDelay << r.attempt
	if delay > maxReconnectDelay || delay <= 0 {
		delay = maxReconnectDelay
	}
	return reconnectState{attempt: r.attempt + 1, nextDelay: delay, lastErr: err}
}

func (r reconnectState) onSuccess() reconnectState {
	return newReconnectState()
}
