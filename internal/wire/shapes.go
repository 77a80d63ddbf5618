package wire

import "encoding/binary"

// requestFixedLen gives the request payload length for every command whose
// shape never varies. SetDescr is the one variable-length exception (its
// length is carried in the payload itself) and is validated separately by
// ValidateRequestPayload.
var requestFixedLen = map[Command]int{
	USBInit: 0,
	GetConfig: 0,
	GetDescr: 8, // offset:u32, size:u32
	DataNotify: 4, // event_id:u32
	DevmapInfo: 0,
	DevmapPage: 4, // page:u32
	GetMeter: 8, // pad:u16, count:u16, magic:u32
	GetMux: 4, // pad:u16, table:u16
	ReadSegment: 12, // seg:u32, off:u32, len:u32
}

// ValidateRequestPayload enforces the framing guard: a command whose
// payload does not match the shape the table declares must never be
// submitted to the device. A rejected call must never reach the
// transport's I/O path.
func ValidateRequestPayload(cmd Command, payload []byte) bool {
	if cmd == SetDescr {
		if len(payload) < 8 {
			return false
		}
		length := binary.LittleEndian.Uint32(payload[4:8])
		return uint32(len(payload)-8) == length
	}
	want, ok := requestFixedLen[cmd]
	if !ok {
		return false
	}
	return len(payload) == want
}

// ResponseLen returns the expected response body length for fixed-shape
// responses, or -1 when the response length is determined by the caller
// (GetDescr's `size`, ReadSegment's `len`, GetMeter's `4*count`, GetMux's
// device-declared variable body).
func ResponseLen(cmd Command) int {
	switch cmd {
	case USBInit, SetDescr, DataNotify:
		return 0
	case GetConfig:
		return 88
	case DevmapInfo:
		return 4
	case DevmapPage:
		return 1024
	default:
		return -1
	}
}
