package protocol

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/focusmute/focusmute-core/internal/errkind"
	"github.com/focusmute/focusmute-core/internal/transport"
)

func newHandshakenClient(t *testing.T, sessionToken uint64) (*Client, *transport.Mock) {
	t.Helper()
	mock := transport.NewMockBackend()
	mock.SessionToken = sessionToken
	dev := transport.NewMock(mock)
	c := New(dev)
	require.NoError(t, c.Handshake(context.Background()))
	return c, mock
}

func TestHandshakeRecoversSessionToken(t *testing.T) {
	c, _ := newHandshakenClient(t, 0xCAFEBABEDEADBEEF)
	assert.NotZero(t, c.dev.SessionToken())
}

func TestSetDescrRefusesForbiddenInputSelect(t *testing.T) {
	c, mock := newHandshakenClient(t, 1)
	err := c.SetDescr(context.Background(), 40, []byte{1}, NotifyInputSelect)
	require.Error(t, err)
	assert.Equal(t, errkind.Forbidden, errkind.KindOf(err))
	assert.Equal(t, 2, mock.CallCount(), "only the two handshake transmissions, no forbidden write")
}

func TestSetDescrRefusesForbiddenPhantomPower(t *testing.T) {
	c, _ := newHandshakenClient(t, 1)
	err := c.SetDescr(context.Background(), 40, []byte{1}, NotifyPhantomPower)
	require.Error(t, err)
	assert.Equal(t, errkind.Forbidden, errkind.KindOf(err))
}

func TestSetDescrRefusesForbiddenInputGain(t *testing.T) {
	c, _ := newHandshakenClient(t, 1)
	err := c.SetDescr(context.Background(), 40, []byte{1}, NotifyInputGain)
	require.Error(t, err)
	assert.Equal(t, errkind.Forbidden, errkind.KindOf(err))
}

func TestSetDescrRejectsSecondNotifyingWriteBeforeNotify(t *testing.T) {
	c, _ := newHandshakenClient(t, 1)
	require.NoError(t, c.SetDescr(context.Background(), 84, []byte{1, 2, 3, 4}, 8))
	err := c.SetDescr(context.Background(), 100, []byte{1}, 9)
	require.Error(t, err)
	assert.Equal(t, errkind.Protocol, errkind.KindOf(err))
}

func TestSetDescrRefusesProtectedField(t *testing.T) {
	c, mock := newHandshakenClient(t, 1)
	c.SetProtectedCheck(func(offset, size int) bool { return offset == 92 && size == 4 })
	err := c.SetDescr(context.Background(), 92, []byte{1, 2, 3, 4}, 0)
	require.Error(t, err)
	assert.Equal(t, errkind.Forbidden, errkind.KindOf(err))
	assert.Equal(t, 2, mock.CallCount(), "only the two handshake transmissions, no protected write")
}

func TestSetDescrAllowsUnprotectedFieldWhenCheckInstalled(t *testing.T) {
	c, _ := newHandshakenClient(t, 1)
	c.SetProtectedCheck(func(offset, size int) bool { return offset == 92 })
	require.NoError(t, c.SetDescr(context.Background(), 40, []byte{1}, 0))
}

func TestNotifyClearsArmedState(t *testing.T) {
	c, _ := newHandshakenClient(t, 1)
	require.NoError(t, c.SetDescr(context.Background(), 84, []byte{1, 2, 3, 4}, 8))
	require.NoError(t, c.Notify(context.Background(), 8))
	// A second notifying write to a different id now succeeds.
	require.NoError(t, c.SetDescr(context.Background(), 100, []byte{1}, 9))
}

func TestSetLEDWritesColourBeforeIndex(t *testing.T) {
	c, mock := newHandshakenClient(t, 1)
	require.NoError(t, c.SetLED(context.Background(), 3, 0x00FF00))

	// calls[0..1] are the handshake; the three LED steps follow in order.
	require.GreaterOrEqual(t, len(mock.Calls), 5)
	colourCall := mock.Calls[2]
	indexCall := mock.Calls[3]
	notifyCall := mock.Calls[4]

	assert.Equal(t, uint32(84), binary.LittleEndian.Uint32(colourCall.Payload[0:4]))
	assert.Equal(t, uint32(88), binary.LittleEndian.Uint32(indexCall.Payload[0:4]))
	assert.Equal(t, uint32(8), binary.LittleEndian.Uint32(notifyCall.Payload[0:4]))
}

func TestSelectedInputReadsOffset331(t *testing.T) {
	c, mock := newHandshakenClient(t, 1)
	mock.Responses[0x00800000] = []byte{1}
	v, err := c.SelectedInput(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint8(1), v)
	// calls[0..1] are the handshake; calls[2] is the GET_DESCR read.
	assert.Equal(t, uint32(331), binary.LittleEndian.Uint32(mock.Calls[2].Payload[0:4]))
}

func TestGetMeterDecodesSamples(t *testing.T) {
	c, mock := newHandshakenClient(t, 1)
	resp := make([]byte, 12)
	binary.LittleEndian.PutUint16(resp[0:2], 10)
	binary.LittleEndian.PutUint16(resp[4:6], 4095)
	binary.LittleEndian.PutUint16(resp[8:10], 0)
	mock.Responses[0x00001001] = resp
	samples, err := c.GetMeter(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, []uint16{10, 4095, 0}, samples)
}

func TestGetMeterRejectsOutOfRangeSample(t *testing.T) {
	c, mock := newHandshakenClient(t, 1)
	resp := make([]byte, 4)
	binary.LittleEndian.PutUint16(resp[0:2], 4096)
	mock.Responses[0x00001001] = resp
	_, err := c.GetMeter(context.Background(), 1)
	require.Error(t, err)
	assert.Equal(t, errkind.Protocol, errkind.KindOf(err))
}

func TestDevmapInfoParsesContentLen(t *testing.T) {
	c, mock := newHandshakenClient(t, 1)
	body := make([]byte, 4)
	binary.LittleEndian.PutUint16(body[2:4], 25000)
	mock.Responses[0x0080000C] = body
	n, err := c.DevmapInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint16(25000), n)
}
