package wire

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateRequestPayloadFixedShapes(t *testing.T) {
	assert.True(t, ValidateRequestPayload(USBInit, nil))
	assert.True(t, ValidateRequestPayload(GetDescr, make([]byte, 8)))
	assert.False(t, ValidateRequestPayload(GetDescr, make([]byte, 7)))
}

func TestValidateRequestPayloadSetDescr(t *testing.T) {
	payload := make([]byte, 8+4)
	binary.LittleEndian.PutUint32(payload[0:4], 84)
	binary.LittleEndian.PutUint32(payload[4:8], 4)
	assert.True(t, ValidateRequestPayload(SetDescr, payload))
}

func TestValidateRequestPayloadSetDescrLengthMismatch(t *testing.T) {
	// Declares length=4 but carries only 1 byte of data: the divide-by-zero
	// bug-check guard this validates against must reject before transmit.
	payload := make([]byte, 8+1)
	binary.LittleEndian.PutUint32(payload[0:4], 84)
	binary.LittleEndian.PutUint32(payload[4:8], 4)
	assert.False(t, ValidateRequestPayload(SetDescr, payload))
}

func TestValidateRequestPayloadSetDescrTooShort(t *testing.T) {
	assert.False(t, ValidateRequestPayload(SetDescr, make([]byte, 4)))
}

func TestResponseLen(t *testing.T) {
	assert.Equal(t, 88, ResponseLen(GetConfig))
	assert.Equal(t, 0, ResponseLen(USBInit))
	assert.Equal(t, -1, ResponseLen(GetDescr))
}
