// Package hotkey registers the global mute-toggle shortcut and exposes a
// channel of toggle requests to the supervisor. Registration and the
// chord grammar are ambient infrastructure; the supervisor decides what a
// toggle means.
package hotkey

import (
	"fmt"
	"strings"

	"golang.design/x/hotkey"
)

// Chord is a parsed key combination, e.g. "Ctrl+Alt+M".
type Chord struct {
	Mods []hotkey.Modifier
	Key hotkey.Key
}

var modByName = map[string]hotkey.Modifier{
	"ctrl": hotkey.ModCtrl,
	"shift": hotkey.ModShift,
	"alt": hotkey.ModOption,
}

var keyByName = map[string]hotkey.Key{
	"a": hotkey.KeyA, "b": hotkey.KeyB, "c": hotkey.KeyC, "d": hotkey.KeyD,
	"e": hotkey.KeyE, "f": hotkey.KeyF, "g": hotkey.KeyG, "h": hotkey.KeyH,
	"i": hotkey.KeyI, "j": hotkey.KeyJ, "k": hotkey.KeyK, "l": hotkey.KeyL,
	"m": hotkey.KeyM, "n": hotkey.KeyN, "o": hotkey.KeyO, "p": hotkey.KeyP,
	"q": hotkey.KeyQ, "r": hotkey.KeyR, "s": hotkey.KeyS, "t": hotkey.KeyT,
	"u": hotkey.KeyU, "v": hotkey.KeyV, "w": hotkey.KeyW, "x": hotkey.KeyX,
	"y": hotkey.KeyY, "z": hotkey.KeyZ,
	"space": hotkey.KeySpace,
}

// ParseChord parses a "Mod+Mod+Key" string, case-insensitively, e.g.
// "Ctrl+Shift+M". It is the validation gate described in the design notes's
// hotkey chord grammar: an unknown modifier or key name is rejected
// before anything is registered with the OS.
func ParseChord(s string) (Chord, error) {
	parts := strings.Split(s, "+")
	if len(parts) < 2 {
		return Chord{}, fmt.Errorf("hotkey: chord %q needs at least one modifier and one key", s)
	}

	var mods []hotkey.Modifier
	for _, p := range parts[:len(parts)-1] {
		m, ok := modByName[strings.ToLower(strings.TrimSpace(p))]
		if !ok {
			return Chord{}, fmt.Errorf("hotkey: unknown modifier %q", p)
		}
		mods = append(mods, m)
	}

	keyName := strings.ToLower(strings.TrimSpace(parts[len(parts)-1]))
	key, ok := keyByName[keyName]
	if !ok {
		return Chord{}, fmt.Errorf("hotkey: unknown key %q", keyName)
	}

	return Chord{Mods: mods, Key: key}, nil
}

// Handle is a registered global hotkey. ToggleRequests delivers a value
// on every keydown; the supervisor computes the inverse of the last
// confirmed mute sample and calls monitor.SetMuted — Handle
// itself knows nothing about mute state.
type Handle struct {
	hk *hotkey.Hotkey
	ch chan struct{}
}

// Register binds chord to the OS as a global hotkey. The caller must run
// this from the platform's main thread where the platform requires it
// (see golang.design/x/mainthread in the dependency table);
// cmd/focusmute-demo wires that constraint at the entry point.
func Register(chord Chord) (*Handle, error) {
	hk := hotkey.New(chord.Mods, chord.Key)
	if err := hk.Register(); err != nil {
		return nil, fmt.Errorf("hotkey: register: %w", err)
	}

	h := &Handle{hk: hk, ch: make(chan struct{}, 1)}
	go h.pump()
	return h, nil
}

func (h *Handle) pump() {
	for range h.hk.Keydown() {
		select {
		case h.ch <- struct{}{}:
		default:
		}
	}
}

// ToggleRequests delivers a signal on every hotkey press. It is
// buffered at depth 1; a press that arrives while one is already pending
// is coalesced, matching the supervisor's "compute inverse of the last
// confirmed sample" semantics, which makes a second rapid press before
// the first is processed a no-op rather than a double-toggle.
func (h *Handle) ToggleRequests() <-chan struct{} {
	return h.ch
}

// Unregister releases the OS-level hotkey binding.
func (h *Handle) Unregister() error {
	return h.hk.Unregister()
}
