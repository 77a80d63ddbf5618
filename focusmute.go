// Package focusmute is the surface the tray app, a CLI, or tests drive.
// It composes the internal packages into a handful of operations — open,
// close, list, apply/clear indicator, restore-on-exit, and firmware
// schema extraction — and nothing more. The supervisor's event loop is
// the only piece with its own goroutine; everything here is a direct,
// synchronous call.
package focusmute

import (
	"context"

	"github.com/focusmute/focusmute-core/internal/errkind"
	"github.com/focusmute/focusmute-core/internal/indicator"
	"github.com/focusmute/focusmute-core/internal/profile"
	"github.com/focusmute/focusmute-core/internal/protocol"
	"github.com/focusmute/focusmute-core/internal/schema"
	"github.com/focusmute/focusmute-core/internal/transport"
)

// SupportedProductIDs are the 4th-generation Scarlett product ids this
// core knows to probe for; list_devices and open_device's "first-match"
// fallback both walk this list.
var SupportedProductIDs = []uint16{0x8218, 0x8219, 0x821A}

// DeviceHandle is an opaque handle to an open device, bundling the
// transport-level connection with the protocol client that owns its
// session token and the resolved ModelProfile.
type DeviceHandle struct {
	dev *transport.Device
	client *protocol.Client
	Profile profile.ModelProfile
}

// DeviceInfo mirrors transport.DeviceInfo; re-exported so callers never
// import internal/transport directly.
type DeviceInfo = transport.DeviceInfo

// ListDevices enumerates every attached interface among
// SupportedProductIDs. The transport layer cannot
// name a product without a live handshake, so ProductName is filled in
// here from the hardcoded profile table when the product id is known.
func ListDevices() ([]DeviceInfo, error) {
	infos, err := transport.ListDevices(SupportedProductIDs)
	if err != nil {
		return nil, err
	}
	for i, info := range infos {
		if p, ok := profile.Lookup(info.ProductID); ok {
			infos[i].ProductName = p.ProductName
		}
	}
	return infos, nil
}

// OpenDevice opens the first attached interface matching preferredSerial,
// or the first match among SupportedProductIDs if preferredSerial is
// empty. It runs the handshake and resolves a
// ModelProfile before returning.
func OpenDevice(ctx context.Context, preferredSerial string) (*DeviceHandle, error) {
	var lastErr error
	for _, productID := range SupportedProductIDs {
		dev, err := transport.Open(productID, preferredSerial)
		if err != nil {
			lastErr = err
			continue
		}
		client := protocol.New(dev)
		if err := client.Handshake(ctx); err != nil {
			dev.Close()
			lastErr = err
			continue
		}
		prof, ok := profile.Lookup(productID)
		if !ok {
			doc, err := schema.Extract(ctx, client)
			if err != nil {
				dev.Close()
				lastErr = err
				continue
			}
			prof, _ = profile.FromSchema(productID, doc)
		}
		if err := prof.Validate(); err != nil {
			dev.Close()
			lastErr = err
			continue
		}
		client.SetProtectedCheck(prof.IsProtected)
		return &DeviceHandle{dev: dev, client: client, Profile: prof}, nil
	}
	if lastErr == nil {
		lastErr = errkind.New(errkind.NotFound, "focusmute.OpenDevice", nil)
	}
	return nil, lastErr
}

// CloseDevice releases h's underlying OS resource. Idempotent.
func CloseDevice(h *DeviceHandle) error {
	if h == nil || h.dev == nil {
		return nil
	}
	return h.dev.Close()
}

// ReadDescriptor reads size bytes of h's descriptor at offset.
func ReadDescriptor(ctx context.Context, h *DeviceHandle, offset, size uint32) ([]byte, error) {
	return h.client.GetDescr(ctx, offset, size)
}

// ApplyIndicator runs apply_mute_indicator against h.
func ApplyIndicator(ctx context.Context, h *DeviceHandle, state indicator.State) error {
	return indicator.Apply(ctx, h.client, h.Profile, state)
}

// ClearIndicator runs clear_mute_indicator against h.
func ClearIndicator(ctx context.Context, h *DeviceHandle) error {
	return indicator.Clear(ctx, h.client, h.Profile)
}

// RestoreOnExit is infallible at this layer: every error is logged by
// indicator.RestoreOnExit's caller, never propagated, matching its
// "best-effort, all errors logged" contract.
func RestoreOnExit(ctx context.Context, h *DeviceHandle, mon interface {
	SetMuted(ctx context.Context, muted bool) error
}) {
	if h == nil || h.client == nil {
		return
	}
	if err := indicator.RestoreOnExit(ctx, h.client, mon, h.Profile); err != nil {
		// Best-effort; the caller has no error path to report to.
		h.dev.Logger.Printf("focusmute: restore_on_exit: %v", err)
	}
}

// ExtractSchema retrieves and decodes h's firmware self-description.
func ExtractSchema(ctx context.Context, h *DeviceHandle) (*schema.Document, error) {
	return schema.Extract(ctx, h.client)
}

// PredictLayout predicts a ModelProfile's LED layout from doc for
// productID. knownProductID is true when
// productID already has a hardcoded entry, which raises the resulting
// Confidence from Medium to High when every input is labeled.
func PredictLayout(doc *schema.Document, productID uint16, knownProductID bool) schema.PredictedLayout {
	return doc.PredictLayout(knownProductID)
}

// GetMeter reads count meter samples, each in [0, 4095].
func GetMeter(ctx context.Context, h *DeviceHandle, count uint16) ([]uint16, error) {
	return h.client.GetMeter(ctx, count)
}
