// Package indicator implements the LED operations: applying
// a mute color to each input's number LED, clearing back to the
// firmware's native colors, and restoring on exit.
package indicator

import (
	"context"

	"github.com/focusmute/focusmute-core/internal/errkind"
	"github.com/focusmute/focusmute-core/internal/profile"
)

// ledWriter is the subset of protocol.Client the indicator layer needs.
type ledWriter interface {
	SetLED(ctx context.Context, index uint8, colour uint32) error
	SelectedInput(ctx context.Context) (uint8, error)
}

// muter is the subset of monitor.Monitor that RestoreOnExit drives; it
// lives in a separate package so indicator never imports monitor just
// for this one call.
type muter interface {
	SetMuted(ctx context.Context, muted bool) error
}

// State is the indicator's target: either fully off or on with a color
// per muted input. LastApplied has room for the last state that was
// applied in full, but Apply, Clear and the supervisor never set it; it
// stays nil unless a caller fills it in.
type State struct {
	On bool
	ColorPerInput map[int]uint32
	LastApplied *State
}

// Off returns the zero-value "all LEDs at firmware native color" state.
func Off() State {
	return State{On: false}
}

// On returns a lit state with colorPerInput describing each muted
// input's LED color.
func On(colorPerInput map[int]uint32) State {
	return State{On: true, ColorPerInput: colorPerInput}
}

// Apply runs apply_mute_indicator: for each (input_no, color)
// in state, look up the profile's LED index and execute the single-LED
// write sequence. On first failure it stops and returns the error without
// touching further LEDs; the caller is responsible for treating the
// result as "needs re-apply" rather than attempting a rollback here.
func Apply(ctx context.Context, w ledWriter, p profile.ModelProfile, state State) error {
	for inputNo, color := range state.ColorPerInput {
		ledIndex, ok := p.NumberLEDIndices[inputNo]
		if !ok {
			continue
		}
		if err := w.SetLED(ctx, uint8(ledIndex), color); err != nil {
			return errkind.New(errkind.Io, "indicator.Apply", err)
		}
	}
	return nil
}

// Clear runs clear_mute_indicator: reads the currently
// selected input and, for every number LED in the profile, writes the
// profile's selected or unselected firmware-approximate color.
func Clear(ctx context.Context, w ledWriter, p profile.ModelProfile) error {
	selectedRaw, err := w.SelectedInput(ctx)
	if err != nil {
		return errkind.New(errkind.Io, "indicator.Clear", err)
	}
	selectedInputNo := int(selectedRaw) + 1

	for inputNo, ledIndex := range p.NumberLEDIndices {
		color := p.FirmwareColors.Unselected
		if inputNo == selectedInputNo {
			color = p.FirmwareColors.Selected
		}
		if err := w.SetLED(ctx, uint8(ledIndex), color); err != nil {
			return errkind.New(errkind.Io, "indicator.Clear", err)
		}
	}
	return nil
}

// RestoreOnExit runs restore_on_exit: first unmutes at the OS
// level so the user is never left silently muted with restored LEDs,
// then clears the indicator. It must run even on the supervisor's error
// exit path.
func RestoreOnExit(ctx context.Context, w ledWriter, m muter, p profile.ModelProfile) error {
	if err := m.SetMuted(ctx, false); err != nil {
		return errkind.New(errkind.Io, "indicator.RestoreOnExit", err)
	}
	return Clear(ctx, w, p)
}
