// Package supervisor is the event loop that owns the device handle, the
// model profile, and the indicator state, and drives them from mute
// samples, hotkey toggles, and a periodic tick.
package supervisor

import (
	"context"
	"log"
	"time"

	"github.com/focusmute/focusmute-core/internal/config"
	"github.com/focusmute/focusmute-core/internal/errkind"
	"github.com/focusmute/focusmute-core/internal/hotkey"
	"github.com/focusmute/focusmute-core/internal/indicator"
	"github.com/focusmute/focusmute-core/internal/monitor"
	"github.com/focusmute/focusmute-core/internal/profile"
	"github.com/focusmute/focusmute-core/internal/protocol"
	"github.com/focusmute/focusmute-core/internal/schema"
	"github.com/focusmute/focusmute-core/internal/transport"
)

// tickInterval is the periodic tick the event loop selects on alongside
// monitor samples and hotkey toggles; it also drives reconnect-attempt
// timing.
const tickInterval = 250 * time.Millisecond

// debounceWindow is the two-sample indicator debounce: a mute-state change
// only takes effect once two consecutive samples agree on the new value
// within this window.
const debounceWindow = 500 * time.Millisecond

// shutdownDeadline bounds the drain-to-Off/restore-on-exit sequence.
const shutdownDeadline = 2 * time.Second

type deviceState int

const (
	disconnected deviceState = iota
	connected
)

// connectFunc opens a handle, runs the handshake, and resolves a
// ModelProfile. It is a field rather than a free function so tests can
// substitute transport.NewMock-backed behavior without touching real
// hardware.
type connectFunc func(ctx context.Context) (*transport.Device, *protocol.Client, profile.ModelProfile, error)

// Supervisor is the event loop that reconciles mute state onto the
// indicator and keeps the device handle alive across disconnects. One
// Supervisor drives exactly one logical device slot; callers run Run on
// its own goroutine and cancel its context to start shutdown.
type Supervisor struct {
	cfg config.Config
	productID uint16
	mon monitor.Monitor
	hk *hotkey.Handle
	logger *log.Logger

	connect connectFunc

	dev *transport.Device
	client *protocol.Client
	profile profile.ModelProfile

	state deviceState
	reconnect reconnectState
	nextAttemptAt time.Time

	confirmedMuted bool
	pendingMuted *bool
	pendingSince time.Time

	target indicator.State
	targetDirty bool
}

// New builds a Supervisor for productID using cfg's recognized options.
// mon must already be open; hk may be nil when hotkey support is
// disabled or failed to register at startup.
func New(cfg config.Config, productID uint16, mon monitor.Monitor, hk *hotkey.Handle) *Supervisor {
	s := &Supervisor{
		cfg: cfg,
		productID: productID,
		mon: mon,
		hk: hk,
		logger: log.Default(),
		reconnect: newReconnectState(),
		target: indicator.Off(),
	}
	s.connect = s.defaultConnect
	return s
}

// defaultConnect is the handshake plus profile resolution: known
// product ids use the hardcoded table, unknown ones fall back to
// extracting and predicting from the firmware's self-description.
func (s *Supervisor) defaultConnect(ctx context.Context) (*transport.Device, *protocol.Client, profile.ModelProfile, error) {
	dev, err := transport.Open(s.productID, s.cfg.DeviceSerial)
	if err != nil {
		return nil, nil, profile.ModelProfile{}, err
	}
	client := protocol.New(dev)
	if err := client.Handshake(ctx); err != nil {
		dev.Close()
		return nil, nil, profile.ModelProfile{}, err
	}

	prof, ok := profile.Lookup(s.productID)
	if !ok {
		doc, err := schema.Extract(ctx, client)
		if err != nil {
			dev.Close()
			return nil, nil, profile.ModelProfile{}, err
		}
		prof, _ = profile.FromSchema(s.productID, doc)
	}
	if err := prof.Validate(); err != nil {
		dev.Close()
		return nil, nil, profile.ModelProfile{}, err
	}
	client.SetProtectedCheck(prof.IsProtected)
	return dev, client, prof, nil
}

func (s *Supervisor) hotkeyToggles() <-chan struct{} {
	if s.hk == nil {
		return nil
	}
	return s.hk.ToggleRequests()
}

// Run is the event loop. It blocks until ctx is canceled, then runs the
// shutdown sequence and returns.
func (s *Supervisor) Run(ctx context.Context) error {
	s.attemptConnect(context.Background())

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return s.shutdown()

		case sample, ok := <-s.mon.Samples():
			if !ok {
				continue
			}
			s.handleSample(ctx, sample)

		case <-s.hotkeyToggles():
			s.handleToggle(ctx)

		case <-ticker.C:
			s.handleTick(ctx)
		}
	}
}

// handleSample applies the debounce rule and, once a
// transition is confirmed, updates the indicator-side state machine.
func (s *Supervisor) handleSample(ctx context.Context, sample monitor.MuteSample) {
	if sample.Muted == s.confirmedMuted {
		s.pendingMuted = nil
		return
	}

	if s.pendingMuted != nil && *s.pendingMuted == sample.Muted && sample.At.Sub(s.pendingSince) <= debounceWindow {
		s.confirmedMuted = sample.Muted
		s.pendingMuted = nil
		s.onMuteConfirmed(ctx, sample.Muted)
		return
	}

	muted := sample.Muted
	s.pendingMuted = &muted
	s.pendingSince = sample.At
}

func (s *Supervisor) onMuteConfirmed(ctx context.Context, muted bool) {
	if muted {
		s.target = indicator.On(s.colorsForMutedInputs())
	} else {
		s.target = indicator.Off()
	}
	s.targetDirty = true
	s.applyTarget(ctx)
}

func (s *Supervisor) colorsForMutedInputs() map[int]uint32 {
	colors := make(map[int]uint32, len(s.profile.NumberLEDIndices))
	for inputNo := range s.profile.NumberLEDIndices {
		if !s.cfg.MuteInputsSel.Includes(uint16(inputNo)) {
			continue
		}
		colors[inputNo] = s.cfg.ColorFor(uint16(inputNo))
	}
	return colors
}

// handleToggle is the hotkey rule: compute the inverse of the
// last confirmed sample and drive the OS mute, never LED ops directly.
func (s *Supervisor) handleToggle(ctx context.Context) {
	if err := s.mon.SetMuted(ctx, !s.confirmedMuted); err != nil {
		s.logger.Printf("supervisor: hotkey toggle: %v", err)
	}
}

// applyTarget runs apply_mute_indicator/clear_mute_indicator iff
// Connected; while Disconnected it leaves targetDirty set so
// reconnection re-applies it.
func (s *Supervisor) applyTarget(ctx context.Context) {
	if s.state != connected {
		return
	}
	var err error
	if s.target.On {
		err = indicator.Apply(ctx, s.client, s.profile, s.target)
	} else {
		err = indicator.Clear(ctx, s.client, s.profile)
	}
	if err != nil {
		s.onDeviceError(err)
		return
	}
	s.targetDirty = false
}

// handleTick drives the reconnect-attempt schedule while Disconnected.
func (s *Supervisor) handleTick(ctx context.Context) {
	if s.state != disconnected {
		return
	}
	if time.Now().Before(s.nextAttemptAt) {
		return
	}
	s.attemptConnect(ctx)
}

func (s *Supervisor) attemptConnect(ctx context.Context) {
	dev, client, prof, err := s.connect(ctx)
	if err != nil {
		s.reconnect = s.reconnect.onFailure(err)
		s.nextAttemptAt = time.Now().Add(s.reconnect.nextDelay)
		s.logger.Printf("supervisor: connect attempt %d failed: %v", s.reconnect.attempt, err)
		return
	}
	s.dev = dev
	s.client = client
	s.profile = prof
	s.state = connected
	s.reconnect = s.reconnect.onSuccess()

	if s.targetDirty {
		if s.target.On {
			// The colour map may have been built before any profile was
			// known; rebuild it against the profile just resolved.
			s.target = indicator.On(s.colorsForMutedInputs())
		}
		s.applyTarget(ctx)
	}
}

// onDeviceError implements the propagation policy: Io/Timeout on a
// live handle means the device is lost; anything else is recorded but
// the handle stays open.
func (s *Supervisor) onDeviceError(err error) {
	kind := errkind.KindOf(err)
	if kind != errkind.Io && kind != errkind.Timeout {
		s.logger.Printf("supervisor: device error: %v", err)
		return
	}
	if s.dev != nil {
		s.dev.Close()
	}
	s.dev = nil
	s.client = nil
	s.state = disconnected
	s.reconnect = s.reconnect.onFailure(err)
	s.nextAttemptAt = time.Now().Add(s.reconnect.nextDelay)
	s.logger.Printf("supervisor: device lost: %v", err)
}

// shutdown is the cancellation sequence: drain to Off, run
// restore_on_exit even on the error path, then release every
// subordinate resource, bounded by shutdownDeadline.
func (s *Supervisor) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownDeadline)
	defer cancel()

	var restoreErr error
	if s.state == connected && s.client != nil {
		if err := indicator.RestoreOnExit(ctx, s.client, s.mon, s.profile); err != nil {
			restoreErr = err
			s.logger.Printf("supervisor: restore_on_exit: %v", err)
		}
	}

	if s.hk != nil {
		if err := s.hk.Unregister(); err != nil {
			s.logger.Printf("supervisor: hotkey unregister: %v", err)
		}
	}
	if s.dev != nil {
		s.dev.Close()
	}
	if s.mon != nil {
		s.mon.Close()
	}
	return restoreErr
}
