package indicator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/focusmute/focusmute-core/internal/profile"
)

type fakeLED struct {
	calls          []ledCall
	selectedInput  uint8
	failAfter      int
	setLEDErr      error
}

type ledCall struct {
	Index uint8
	Color uint32
}

func (f *fakeLED) SetLED(ctx context.Context, index uint8, colour uint32) error {
	if f.setLEDErr != nil && len(f.calls) >= f.failAfter {
		return f.setLEDErr
	}
	f.calls = append(f.calls, ledCall{Index: index, Color: colour})
	return nil
}

func (f *fakeLED) SelectedInput(ctx context.Context) (uint8, error) {
	return f.selectedInput, nil
}

type fakeMuter struct {
	muted  bool
	setErr error
}

func (f *fakeMuter) SetMuted(ctx context.Context, muted bool) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.muted = muted
	return nil
}

func testProfile() profile.ModelProfile {
	p, _ := profile.Lookup(0x8219)
	return p
}

func TestApplyWritesEachInput(t *testing.T) {
	w := &fakeLED{}
	p := testProfile()
	err := Apply(context.Background(), w, p, On(map[int]uint32{1: profile.Encode(255, 0, 0)}))
	require.NoError(t, err)
	require.Len(t, w.calls, 1)
	assert.Equal(t, uint8(0), w.calls[0].Index)
}

func TestApplySkipsUnknownInput(t *testing.T) {
	w := &fakeLED{}
	p := testProfile()
	err := Apply(context.Background(), w, p, On(map[int]uint32{99: profile.Encode(255, 0, 0)}))
	require.NoError(t, err)
	assert.Empty(t, w.calls)
}

func TestApplyStopsOnFirstFailure(t *testing.T) {
	w := &fakeLED{failAfter: 0, setLEDErr: errors.New("boom")}
	p := testProfile()
	err := Apply(context.Background(), w, p, On(map[int]uint32{1: 1, 2: 2}))
	require.Error(t, err)
	assert.Empty(t, w.calls)
}

func TestClearUsesSelectedColorForSelectedInput(t *testing.T) {
	w := &fakeLED{selectedInput: 0} // selectedInput=0 means input 1 selected
	p := testProfile()
	err := Clear(context.Background(), w, p)
	require.NoError(t, err)

	for _, c := range w.calls {
		if c.Index == uint8(p.NumberLEDIndices[1]) {
			assert.Equal(t, p.FirmwareColors.Selected, c.Color)
		} else {
			assert.Equal(t, p.FirmwareColors.Unselected, c.Color)
		}
	}
}

func TestRestoreOnExitUnmutesThenClears(t *testing.T) {
	w := &fakeLED{}
	m := &fakeMuter{muted: true}
	p := testProfile()
	err := RestoreOnExit(context.Background(), w, m, p)
	require.NoError(t, err)
	assert.False(t, m.muted)
	assert.NotEmpty(t, w.calls)
}

func TestRestoreOnExitPropagatesMuteError(t *testing.T) {
	w := &fakeLED{}
	m := &fakeMuter{setErr: errors.New("boom")}
	p := testProfile()
	err := RestoreOnExit(context.Background(), w, m, p)
	require.Error(t, err)
	assert.Empty(t, w.calls, "must not touch LEDs if the unmute itself failed")
}
