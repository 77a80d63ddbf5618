// Package config holds the recognized configuration shapes. Loading them
// from disk, watching for changes, and TOML serialization are the tray
// application's job; this package only defines what a valid
// configuration looks like so the tray and the core agree on it.
package config

import "fmt"

// MuteInputs selects which inputs the indicator reflects mute state on.
// The zero value selects no inputs; AllInputs returns the default, All.
type MuteInputs struct {
	All  bool
	Some map[uint16]struct{}
}

// AllInputs returns the default MuteInputs value.
func AllInputs() MuteInputs {
	return MuteInputs{All: true}
}

// SomeInputs returns a MuteInputs restricted to the given input numbers.
func SomeInputs(inputs...uint16) MuteInputs {
	m := MuteInputs{Some: make(map[uint16]struct{}, len(inputs))}
	for _, i := range inputs {
		m.Some[i] = struct{}{}
	}
	return m
}

// Includes reports whether inputNo should be indicated.
func (m MuteInputs) Includes(inputNo uint16) bool {
	if m.All {
		return true
	}
	_, ok := m.Some[inputNo]
	return ok
}

// Config is the set of options treats as recognized by the
// core. Fields consumed only by the tray app (notifications_enabled,
// sound_enabled, mute_sound_path, unmute_sound_path, on_mute_command,
// on_unmute_command, autostart) are deliberately absent: the core never
// reads them, so they have no reason to exist on this type.
type Config struct {
	// MuteColor is the fallback color when no per-input mapping applies.
	MuteColor uint32

	// InputColors are per-input overrides; keys must exist in the active
	// ModelProfile's NumberLEDIndices.
	InputColors map[uint16]uint32

	// MuteInputsSel selects which inputs the indicator reflects.
	MuteInputsSel MuteInputs

	// DeviceSerial pins the core to a specific device when more than one
	// is attached; empty means first-match.
	DeviceSerial string

	// Hotkey is the chord syntax string, e.g. "Ctrl+Alt+M", validated by
	// internal/hotkey.ParseChord before registration.
	Hotkey string
}

// DefaultMuteColor is the default mute indicator color: full red in the
// (R<<24)|(G<<16)|(B<<8) device word, low byte zero.
const DefaultMuteColor uint32 = 0xFF000000

// Default returns a Config with every recognized option at its default
// value.
func Default() Config {
	return Config{
		MuteColor: DefaultMuteColor,
		MuteInputsSel: AllInputs(),
		Hotkey: "Ctrl+Alt+M",
	}
}

// ColorFor resolves the color to use for inputNo: an explicit
// InputColors override if present, else MuteColor.
func (c Config) ColorFor(inputNo uint16) uint32 {
	if color, ok := c.InputColors[inputNo]; ok {
		return color
	}
	return c.MuteColor
}

// Validate checks the invariants it implies: input_colors keys must
// be validated against the active profile by the caller (this package
// has no profile to check against), but the hotkey string must not be
// empty.
func (c Config) Validate() error {
	if c.Hotkey == "" {
		return fmt.Errorf("config: hotkey must not be empty")
	}
	return nil
}
