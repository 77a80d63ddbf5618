package focusmute

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/focusmute/focusmute-core/internal/indicator"
	"github.com/focusmute/focusmute-core/internal/profile"
	"github.com/focusmute/focusmute-core/internal/protocol"
	"github.com/focusmute/focusmute-core/internal/transport"
)

func newTestHandle(t *testing.T) (*DeviceHandle, *transport.Mock) {
	t.Helper()
	mock := transport.NewMockBackend()
	mock.SessionToken = 1
	dev := transport.NewMock(mock)
	client := protocol.New(dev)
	require.NoError(t, client.Handshake(context.Background()))
	prof, ok := profile.Lookup(0x8219)
	require.True(t, ok)
	return &DeviceHandle{dev: dev, client: client, Profile: prof}, mock
}

func TestApplyAndClearIndicatorRoundTrip(t *testing.T) {
	h, mock := newTestHandle(t)

	state := indicator.On(map[int]uint32{1: profile.Encode(255, 0, 0)})
	require.NoError(t, ApplyIndicator(context.Background(), h, state))
	require.NoError(t, ClearIndicator(context.Background(), h))

	assert.Greater(t, mock.CallCount(), 2)
}

func TestReadDescriptorDelegatesToClient(t *testing.T) {
	h, mock := newTestHandle(t)
	mock.Responses[0x00800000] = []byte{0xAB}

	got, err := ReadDescriptor(context.Background(), h, 331, 1)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAB}, got)
}

func TestCloseDeviceIsNilSafe(t *testing.T) {
	assert.NoError(t, CloseDevice(nil))
	assert.NoError(t, CloseDevice(&DeviceHandle{}))
}

type fakeMuter struct{ called bool }

func (f *fakeMuter) SetMuted(ctx context.Context, muted bool) error {
	f.called = true
	return nil
}

func TestRestoreOnExitNeverPanicsOnNilHandle(t *testing.T) {
	assert.NotPanics(t, func() {
		RestoreOnExit(context.Background(), nil, &fakeMuter{})
	})
}

func TestRestoreOnExitUnmutesAndClears(t *testing.T) {
	h, mock := newTestHandle(t)
	m := &fakeMuter{}

	RestoreOnExit(context.Background(), h, m)

	assert.True(t, m.called)
	assert.Greater(t, mock.CallCount(), 2)
}
