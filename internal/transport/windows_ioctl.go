//go:build windows

// internal/transport/windows_ioctl.go
// Windows kernel-driver transport: every command multiplexed through a
// single IOCTL, plus the two handshake/notification IOCTLs.
package transport

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"golang.org/x/sys/windows"

	"github.com/focusmute/focusmute-core/internal/errkind"
	"github.com/focusmute/focusmute-core/internal/wire"
)

const (
	ioctlTransact = 0x00222008
	ioctlInit = 0x00222000
	ioctlPending = 0x0022200C
	requestHeaderLen = 16
	responseHeaderLen = 8
)

// ioctlBackend drives the kernel driver file handle with DeviceIoControl,
// mirroring the open/probe discipline the pack's IOCTLDevice wrapper uses
// but against the fixed codes names instead of computed ones.
type ioctlBackend struct {
	mu sync.Mutex
	handle windows.Handle
	closed bool
}

func init() {
	openFunc = openIOCTL
	// No SetupDi-based enumeration is wired for the kernel-driver path;
	// list_devices degrades to Unsupported on Windows until a device
	// interface GUID is available to walk. openIOCTL still works when a
	// caller already knows the device path.
}

// openIOCTL opens the symbolic link the Focusrite kernel driver
// publishes. It does no device enumeration of its own: serial must
// already hold the resolved device path, and an empty serial is reported
// as NotFound.
func openIOCTL(productID uint16, serial string) (backend, Variant, error) {
	path := serial
	if path == "" {
		return nil, 0, errkind.New(errkind.NotFound, "transport.openIOCTL", fmt.Errorf("no device path for product 0x%04x", productID))
	}
	pathPtr, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return nil, 0, errkind.New(errkind.Io, "transport.openIOCTL", err)
	}
	h, err := windows.CreateFile(
		pathPtr,
		windows.GENERIC_READ|windows.GENERIC_WRITE,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE,
		nil,
		windows.OPEN_EXISTING,
		windows.FILE_FLAG_OVERLAPPED,
		0,
	)
	if err != nil {
		return nil, 0, errkind.New(errkind.NotFound, "transport.openIOCTL", err)
	}

	b := &ioctlBackend{handle: h}
	if err := b.initHandshake(); err != nil {
		windows.CloseHandle(h)
		return nil, 0, err
	}
	return b, VariantWindowsIOCTL, nil
}

// initHandshake issues the one-time initialization IOCTL: no
// input, 16-byte output, run once at open before USB_INIT/GET_CONFIG.
func (b *ioctlBackend) initHandshake() error {
	out := make([]byte, 16)
	var returned uint32
	err := windows.DeviceIoControl(b.handle, ioctlInit, nil, 0, &out[0], uint32(len(out)), &returned, nil)
	if err != nil {
		return errkind.New(errkind.Io, "ioctl.initHandshake", err)
	}
	return nil
}

func (b *ioctlBackend) transact(ctx context.Context, token uint64, cmd wire.Command, code uint32, payload []byte, expectedLen int) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, errkind.New(errkind.Io, "ioctl.transact", nil)
	}

	req := make([]byte, requestHeaderLen+len(payload))
	binary.LittleEndian.PutUint64(req[0:8], token)
	binary.LittleEndian.PutUint32(req[8:12], code)
	copy(req[16:], payload)

	outLen := responseHeaderLen + expectedLen
	if expectedLen < 0 {
		outLen = responseHeaderLen
	}
	out := make([]byte, outLen)

	var returned uint32
	var inPtr *byte
	if len(req) > 0 {
		inPtr = &req[0]
	}
	var outPtr *byte
	if len(out) > 0 {
		outPtr = &out[0]
	}
	err := windows.DeviceIoControl(b.handle, ioctlTransact, inPtr, uint32(len(req)), outPtr, uint32(len(out)), &returned, nil)
	if err != nil {
		return nil, errkind.New(errkind.Io, "ioctl.transact", err)
	}

	if int(returned) < responseHeaderLen {
		return []byte{}, nil
	}
	body := out[responseHeaderLen:returned]
	return append([]byte(nil), body...), nil
}

// PollPending blocks on the pending-notification IOCTL until
// the device posts a hotplug/push event, returning the 4-byte event
// bitmask from bytes 4..8 of the 16-byte notification. The supervisor in
// this repository does not call it.
func (b *ioctlBackend) PollPending(ctx context.Context) (uint32, error) {
	b.mu.Lock()
	h := b.handle
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return 0, errkind.New(errkind.Io, "ioctl.PollPending", nil)
	}

	out := make([]byte, 16)
	var returned uint32
	err := windows.DeviceIoControl(h, ioctlPending, nil, 0, &out[0], uint32(len(out)), &returned, nil)
	if err != nil {
		return 0, errkind.New(errkind.Io, "ioctl.PollPending", err)
	}
	if returned < 8 {
		return 0, errkind.New(errkind.Protocol, "ioctl.PollPending", nil)
	}
	return binary.LittleEndian.Uint32(out[4:8]), nil
}

func (b *ioctlBackend) close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return windows.CloseHandle(b.handle)
}
