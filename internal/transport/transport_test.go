package transport

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/focusmute/focusmute-core/internal/errkind"
	"github.com/focusmute/focusmute-core/internal/wire"
)

func TestTransactRefusesBeforeHandshake(t *testing.T) {
	mock := NewMockBackend()
	dev := NewMock(mock)

	_, err := dev.Transact(context.Background(), wire.GetDescr, make([]byte, 8), 4)
	require.Error(t, err)
	assert.Equal(t, errkind.Protocol, errkind.KindOf(err))
	assert.Equal(t, 0, mock.CallCount(), "guard must reject before any transmission")
}

func TestTransactAllowsHandshakeCommandsWithZeroToken(t *testing.T) {
	mock := NewMockBackend()
	dev := NewMock(mock)

	_, err := dev.Transact(context.Background(), wire.GetConfig, nil, 88)
	require.NoError(t, err)
	assert.Equal(t, 1, mock.CallCount())
}

func TestTransactRejectsMalformedSetDescrWithoutTransmitting(t *testing.T) {
	mock := NewMockBackend()
	dev := NewMock(mock)
	dev.SetSessionToken(1)

	payload := make([]byte, 8+1)
	binary.LittleEndian.PutUint32(payload[0:4], 84)
	binary.LittleEndian.PutUint32(payload[4:8], 4) // declares 4 bytes, carries 1

	_, err := dev.Transact(context.Background(), wire.SetDescr, payload, 0)
	require.Error(t, err)
	assert.Equal(t, errkind.Protocol, errkind.KindOf(err))
	assert.Equal(t, 0, mock.CallCount(), "malformed SET_DESCR must never reach the backend")
}

func TestTransactWellFormedSetDescrTransmitsOnce(t *testing.T) {
	mock := NewMockBackend()
	dev := NewMock(mock)
	dev.SetSessionToken(1)

	payload := make([]byte, 8+4)
	binary.LittleEndian.PutUint32(payload[0:4], 84)
	binary.LittleEndian.PutUint32(payload[4:8], 4)
	copy(payload[8:], []byte{1, 2, 3, 4})

	_, err := dev.Transact(context.Background(), wire.SetDescr, payload, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, mock.CallCount())
}

func TestTransactPropagatesBackendError(t *testing.T) {
	mock := NewMockBackend()
	dev := NewMock(mock)
	dev.SetSessionToken(1)

	mock.Errors[wire.Table[wire.DataNotify].Raw] = errkind.New(errkind.Forbidden, "mock", nil)

	_, err := dev.Transact(context.Background(), wire.DataNotify, make([]byte, 4), 0)
	require.Error(t, err)
	assert.Equal(t, errkind.Forbidden, errkind.KindOf(err))
}

func TestCloseIsIdempotent(t *testing.T) {
	mock := NewMockBackend()
	dev := NewMock(mock)
	require.NoError(t, dev.Close())
	require.NoError(t, dev.Close())

	_, err := dev.Transact(context.Background(), wire.GetConfig, nil, 88)
	require.Error(t, err)
	assert.Equal(t, errkind.Io, errkind.KindOf(err))
}

func TestStatsRecordsRequests(t *testing.T) {
	mock := NewMockBackend()
	dev := NewMock(mock)

	_, _ = dev.Transact(context.Background(), wire.GetConfig, nil, 88)
	snap := dev.Stats()
	assert.Equal(t, uint64(1), snap.TotalRequests)
	assert.Equal(t, uint64(0), snap.TotalErrors)
}
