package transport

import (
	"context"
	"encoding/binary"
	"sync"

	"github.com/focusmute/focusmute-core/internal/errkind"
	"github.com/focusmute/focusmute-core/internal/wire"
)

// Mock is an in-memory backend used by tests. It never touches real
// hardware: transact just records the call and looks up a canned response,
// so tests can assert the transport guard rejected a call before it ever
// reached here.
type Mock struct {
	mu sync.Mutex

	// Transmissions counts every call that reached transact — i.e. every
	// command the transport-level guards let through.
	Transmissions int

	// Calls records, in order, every (code, payload) pair the mock saw.
	Calls []MockCall

	// Responses, keyed by wire code, is returned verbatim on every
	// matching transact call. If absent, a zero-filled buffer of
	// expectedLen is returned.
	Responses map[uint32][]byte

	// Errors, keyed by wire code, is returned instead of a response.
	Errors map[uint32]error

	// SessionToken is embedded in GET_CONFIG's canned response body at
	// bytes 8..16 if non-zero and no explicit Responses entry exists.
	SessionToken uint64

	closed bool
}

// MockCall is one recorded transact invocation.
type MockCall struct {
	Token   uint64
	Code    uint32
	Payload []byte
}

// NewMockBackend constructs an empty Mock backend; NewMock wraps it in a
// Device.
func NewMockBackend() *Mock {
	return &Mock{
		Responses: make(map[uint32][]byte),
		Errors: make(map[uint32]error),
	}
}

func (m *Mock) transact(ctx context.Context, token uint64, cmd wire.Command, code uint32, payload []byte, expectedLen int) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, errkind.New(errkind.Io, "mock.transact", nil)
	}

	m.Transmissions++
	cp := append([]byte(nil), payload...)
	m.Calls = append(m.Calls, MockCall{Token: token, Code: code, Payload: cp})

	if err, ok := m.Errors[code]; ok {
		return nil, err
	}
	if resp, ok := m.Responses[code]; ok {
		return append([]byte(nil), resp...), nil
	}

	if cmd == wire.GetConfig {
		return m.defaultGetConfigResponse(), nil
	}

	if expectedLen < 0 {
		expectedLen = 0
	}
	return make([]byte, expectedLen), nil
}

func (m *Mock) defaultGetConfigResponse() []byte {
	body := make([]byte, 88)
	binary.LittleEndian.PutUint64(body[8:16], m.SessionToken)
	return body
}

func (m *Mock) close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// CallCount returns how many transmissions reached this mock, the metric
// tests check after a rejected malformed SET_DESCR to confirm nothing was
// sent to the device.
func (m *Mock) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Transmissions
}
