// Package protocol is the thin typed layer over transport.Device: the
// handshake, the DATA_NOTIFY activation rule, and the forbidden-field
// refusal. It never frames bytes itself; it calls
// transport.Device.Transact and interprets the result.
package protocol

import (
	"context"
	"encoding/binary"
	"sync"

	"github.com/focusmute/focusmute-core/internal/errkind"
	"github.com/focusmute/focusmute-core/internal/transport"
	"github.com/focusmute/focusmute-core/internal/wire"
)

// Notification ids the firmware treats as destructive; writes to fields
// declaring these ids are refused at this layer.
const (
	NotifyInputSelect = 17
	NotifyPhantomPower = 11
	NotifyInputGain = 12
)

// directLEDColour/directLEDIndex offsets ground the single-LED update
// path's write ordering.
const (
	OffsetDirectLEDColour = 84
	OffsetDirectLEDIndex = 88
	NotifyDirectLED = 8
)

func isForbidden(notifyID int32) bool {
	switch notifyID {
	case NotifyInputSelect, NotifyPhantomPower, NotifyInputGain:
		return true
	default:
		return false
	}
}

// Client wraps a transport.Device with the handshake and activation-rule
// bookkeeping. One Client owns one Device; it is not safe to share a
// Device between two Clients.
type Client struct {
	mu sync.Mutex
	dev *transport.Device
	armed bool // true once a SET_DESCR has gone out without a matching DATA_NOTIFY
	armedID int32
	protected func(offset, size int) bool
}

// New wraps an already-open transport.Device. The handle must not have
// completed the handshake yet; Handshake does that.
func New(dev *transport.Device) *Client {
	return &Client{dev: dev}
}

// SetProtectedCheck installs the never-touched-field guard SetDescr
// enforces. check is typically ModelProfile.IsProtected; taking it as a
// plain func avoids an import cycle (profile already depends on schema,
// which depends on this package for its devmapReader interface).
func (c *Client) SetProtectedCheck(check func(offset, size int) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.protected = check
}

// Handshake runs the handshake after transport.Open: USB_INIT with a
// zero token, GET_CONFIG with a zero token to recover the session token,
// then persists the token on the underlying handle. The init step itself
// belongs to the transport (at Open on the kernel-IOCTL variant, inside
// USB_INIT on raw USB).
func (c *Client) Handshake(ctx context.Context) error {
	if _, err := c.dev.Transact(ctx, wire.USBInit, nil, 0); err != nil {
		return errkind.New(errkind.Protocol, "protocol.Handshake", err)
	}
	resp, err := c.dev.Transact(ctx, wire.GetConfig, nil, 88)
	if err != nil {
		return errkind.New(errkind.Protocol, "protocol.Handshake", err)
	}
	if len(resp) < 16 {
		return errkind.New(errkind.Protocol, "protocol.Handshake", nil)
	}
	token := binary.LittleEndian.Uint64(resp[8:16])
	c.dev.SetSessionToken(token)
	return nil
}

// GetDescr reads size bytes of the descriptor starting at offset.
func (c *Client) GetDescr(ctx context.Context, offset, size uint32) ([]byte, error) {
	payload := make([]byte, 8)
	binary.LittleEndian.PutUint32(payload[0:4], offset)
	binary.LittleEndian.PutUint32(payload[4:8], size)
	return c.dev.Transact(ctx, wire.GetDescr, payload, int(size))
}

// SetDescr writes data at offset, enforcing the forbidden-field and
// activation-rule invariants. notifyID is the notification id this field
// is declared with in the schema (0 means "not notifying").
//
// If notifyID is non-zero, the caller must immediately follow this call
// with Notify(ctx, notifyID) before writing any other notifying field;
// SetDescr tracks this and refuses a notifying write with a different
// notifyID before the pending one is acknowledged; another write with the
// same notifyID is allowed.
func (c *Client) SetDescr(ctx context.Context, offset uint32, data []byte, notifyID int32) error {
	if isForbidden(notifyID) {
		return errkind.New(errkind.Forbidden, "protocol.SetDescr", nil)
	}

	c.mu.Lock()
	if c.protected != nil && c.protected(int(offset), len(data)) {
		c.mu.Unlock()
		return errkind.New(errkind.Forbidden, "protocol.SetDescr", nil)
	}
	if notifyID != 0 {
		if c.armed && c.armedID != notifyID {
			c.mu.Unlock()
			return errkind.New(errkind.Protocol, "protocol.SetDescr", nil)
		}
		c.armed = true
		c.armedID = notifyID
	}
	c.mu.Unlock()

	payload := make([]byte, 8+len(data))
	binary.LittleEndian.PutUint32(payload[0:4], offset)
	binary.LittleEndian.PutUint32(payload[4:8], uint32(len(data)))
	copy(payload[8:], data)

	_, err := c.dev.Transact(ctx, wire.SetDescr, payload, 0)
	return err
}

// Notify issues DATA_NOTIFY(eventID), clearing the pending-activation
// flag a prior SetDescr call set.
func (c *Client) Notify(ctx context.Context, eventID uint32) error {
	payload := make([]byte, 4)
	binary.LittleEndian.PutUint32(payload[0:4], eventID)
	_, err := c.dev.Transact(ctx, wire.DataNotify, payload, 0)
	if err != nil {
		return err
	}
	c.mu.Lock()
	if c.armed && c.armedID == int32(eventID) {
		c.armed = false
		c.armedID = 0
	}
	c.mu.Unlock()
	return nil
}

// SetDescrNotify is the common case: a write immediately followed by its
// notify, as a single call so callers cannot forget the second half.
func (c *Client) SetDescrNotify(ctx context.Context, offset uint32, data []byte, notifyID int32) error {
	if err := c.SetDescr(ctx, offset, data, notifyID); err != nil {
		return err
	}
	return c.Notify(ctx, uint32(notifyID))
}

// SetLED writes the single-LED update path: colour at offset
// 84 before index at offset 88, then DATA_NOTIFY(8). Order matters; the
// firmware ignores the update if index is written first.
func (c *Client) SetLED(ctx context.Context, index uint8, colour uint32) error {
	colourBytes := make([]byte, 4)
	binary.LittleEndian.PutUint32(colourBytes, colour)
	if err := c.SetDescr(ctx, OffsetDirectLEDColour, colourBytes, 0); err != nil {
		return err
	}
	if err := c.SetDescr(ctx, OffsetDirectLEDIndex, []byte{index}, NotifyDirectLED); err != nil {
		return err
	}
	return c.Notify(ctx, NotifyDirectLED)
}

// DevmapInfo issues DEVMAP_INFO and returns content_len (bytes 2..4).
func (c *Client) DevmapInfo(ctx context.Context) (uint16, error) {
	resp, err := c.dev.Transact(ctx, wire.DevmapInfo, nil, 4)
	if err != nil {
		return 0, err
	}
	if len(resp) < 4 {
		return 0, errkind.New(errkind.Protocol, "protocol.DevmapInfo", nil)
	}
	return binary.LittleEndian.Uint16(resp[2:4]), nil
}

// DevmapPage issues DEVMAP_PAGE(page) and returns its 1024-byte payload.
func (c *Client) DevmapPage(ctx context.Context, page uint32) ([]byte, error) {
	payload := make([]byte, 4)
	binary.LittleEndian.PutUint32(payload, page)
	return c.dev.Transact(ctx, wire.DevmapPage, payload, 1024)
}

// ReadSegment reads length bytes of firmware segment seg at off.
func (c *Client) ReadSegment(ctx context.Context, seg, off, length uint32) ([]byte, error) {
	payload := make([]byte, 12)
	binary.LittleEndian.PutUint32(payload[0:4], seg)
	binary.LittleEndian.PutUint32(payload[4:8], off)
	binary.LittleEndian.PutUint32(payload[8:12], length)
	return c.dev.Transact(ctx, wire.ReadSegment, payload, int(length))
}

// meterSampleMax is the exclusive upper bound on a decoded meter sample;
// the firmware's 32-bit meter slots carry a 16-bit level in the low half.
const meterSampleMax = 4096

// GetMeter reads count meter samples and decodes each 4-byte wire slot
// into its 16-bit level, in [0, 4096).
func (c *Client) GetMeter(ctx context.Context, count uint16) ([]uint16, error) {
	payload := make([]byte, 8)
	binary.LittleEndian.PutUint16(payload[2:4], count)
	binary.LittleEndian.PutUint32(payload[4:8], 1) // magic
	resp, err := c.dev.Transact(ctx, wire.GetMeter, payload, 4*int(count))
	if err != nil {
		return nil, err
	}
	if len(resp) < 4*int(count) {
		return nil, errkind.New(errkind.Protocol, "protocol.GetMeter", nil)
	}
	samples := make([]uint16, count)
	for i := range samples {
		v := binary.LittleEndian.Uint16(resp[4*i : 4*i+2])
		if v >= meterSampleMax {
			return nil, errkind.New(errkind.Protocol, "protocol.GetMeter", nil)
		}
		samples[i] = v
	}
	return samples, nil
}

// GetMux reads the routing table identified by table.
func (c *Client) GetMux(ctx context.Context, table uint16) ([]byte, error) {
	payload := make([]byte, 4)
	binary.LittleEndian.PutUint16(payload[2:4], table)
	return c.dev.Transact(ctx, wire.GetMux, payload, -1)
}

// SelectedInput reads offset 331 (u8): 0 means input 1 selected, 1 means
// input 2, and so on.
func (c *Client) SelectedInput(ctx context.Context) (uint8, error) {
	resp, err := c.GetDescr(ctx, 331, 1)
	if err != nil {
		return 0, err
	}
	if len(resp) < 1 {
		return 0, errkind.New(errkind.Protocol, "protocol.SelectedInput", nil)
	}
	return resp[0], nil
}
