// Package schema extracts and parses the firmware's self-description: a
// base64-encoded, deflate-compressed JSON blob retrieved page by page
// over the protocol, used both to sanity-check compiled-in constants and
// to predict LED layouts on models the core has not seen.
package schema

import (
	"bytes"
	"compress/flate"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"

	"github.com/focusmute/focusmute-core/internal/errkind"
	"github.com/focusmute/focusmute-core/internal/protocol"
)

const pageSize = 1024

// devmapReader is the subset of protocol.Client that extraction needs,
// narrowed so tests can supply a fake without standing up a full Client.
type devmapReader interface {
	DevmapInfo(ctx context.Context) (uint16, error)
	DevmapPage(ctx context.Context, page uint32) ([]byte, error)
}

var _ devmapReader = (*protocol.Client)(nil)

// AppSpaceField is one APP_SPACE record: a named, typed field at a fixed
// descriptor offset, with the notification id (if any) that activates a
// write to it.
type AppSpaceField struct {
	Name                  string `json:"name"`
	Offset                int `json:"offset"`
	Size                  int `json:"size"`
	Type                  string `json:"type"`
	ArrayShape            []int `json:"array-shape,omitempty"`
	NotifyDevice          int32 `json:"notify-device"`
	SetViaParameterBuffer bool `json:"set-via-parameter-buffer"`
}

// DeviceSpecification gives the physical input list and host-channel
// destinations the schema declares.
type DeviceSpecification struct {
	PhysicalInputs []PhysicalInput `json:"physical-inputs"`
	Destinations   []Destination `json:"destinations"`
}

// PhysicalInput is one input jack as the firmware orders it. Layout
// prediction takes LED indices from the order; an empty Label lowers the
// prediction's confidence.
type PhysicalInput struct {
	Label string `json:"label"`
}

// Destination is one host-channel router pin.
type Destination struct {
	Type      string `json:"type"`
	RouterPin int `json:"router-pin"`
}

// UserMessageType is one entry of the eDEV_FCP_USER_MESSAGE_TYPE enum,
// used as a sanity check that the core's compiled-in event-id constants
// match the firmware's.
type UserMessageType struct {
	Name string `json:"name"`
	ID   int32 `json:"id"`
}

// Document is the fully parsed firmware self-description.
type Document struct {
	AppSpace         []AppSpaceField `json:"APP_SPACE"`
	UserMessageTypes []UserMessageType `json:"eDEV_FCP_USER_MESSAGE_TYPE"`
	DeviceSpec       DeviceSpecification `json:"device-specification"`
	MaxNumberLEDs    int `json:"kMAX_NUMBER_LEDS"`
}

// Extract runs the full DEVMAP_INFO/DEVMAP_PAGE retrieval and decode
// pipeline: read content_len, read ceil(content_len/1024)
// pages, concatenate, truncate, trim trailing zeros, base64-decode,
// inflate.
func Extract(ctx context.Context, c devmapReader) (*Document, error) {
	contentLen, err := c.DevmapInfo(ctx)
	if err != nil {
		return nil, errkind.New(errkind.Io, "schema.Extract", err)
	}
	if contentLen == 0 {
		return nil, errkind.New(errkind.Protocol, "schema.Extract", nil)
	}

	pageCount := (int(contentLen) + pageSize - 1) / pageSize
	var buf bytes.Buffer
	for i := 0; i < pageCount; i++ {
		page, err := c.DevmapPage(ctx, uint32(i))
		if err != nil {
			return nil, errkind.New(errkind.Io, "schema.Extract", err)
		}
		buf.Write(page)
	}

	raw := buf.Bytes()
	if len(raw) > int(contentLen) {
		raw = raw[:contentLen]
	}
	raw = bytes.TrimRight(raw, "\x00")

	decoded, err := decodeSelfDescription(raw)
	if err != nil {
		return nil, err
	}

	var doc Document
	if err := json.Unmarshal(decoded, &doc); err != nil {
		return nil, errkind.New(errkind.Protocol, "schema.Extract", err)
	}
	return &doc, nil
}

func decodeSelfDescription(raw []byte) ([]byte, error) {
	b64decoded := make([]byte, base64.StdEncoding.DecodedLen(len(raw)))
	n, err := base64.StdEncoding.Decode(b64decoded, raw)
	if err != nil {
		return nil, errkind.New(errkind.Protocol, "schema.decodeSelfDescription", err)
	}
	b64decoded = b64decoded[:n]

	r := flate.NewReader(bytes.NewReader(b64decoded))
	defer r.Close()
	decompressed, err := io.ReadAll(r)
	if err != nil {
		return nil, errkind.New(errkind.Protocol, "schema.decodeSelfDescription", err)
	}
	return decompressed, nil
}

// VerifyUserMessageTypes is a non-fatal sanity check: it returns the names
// of the (name, id) pairs in want that the firmware's schema does not
// declare with the same id. Nothing in this repository calls it: Extract
// does not run it and no mismatch is logged.
func (d *Document) VerifyUserMessageTypes(want map[string]int32) []string {
	byName := make(map[string]int32, len(d.UserMessageTypes))
	for _, m := range d.UserMessageTypes {
		byName[m.Name] = m.ID
	}
	var mismatches []string
	for name, id := range want {
		got, ok := byName[name]
		if !ok || got != id {
			mismatches = append(mismatches, name)
		}
	}
	return mismatches
}

// FieldByName looks up one APP_SPACE record by name.
func (d *Document) FieldByName(name string) (AppSpaceField, bool) {
	for _, f := range d.AppSpace {
		if f.Name == name {
			return f, true
		}
	}
	return AppSpaceField{}, false
}
