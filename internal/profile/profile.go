// Package profile holds ModelProfile: the per-product-id mapping from
// logical input numbers to LED indices, plus the approximate firmware
// colors used by clear_mute_indicator.
package profile

import (
	"fmt"

	"github.com/focusmute/focusmute-core/internal/schema"
)

// maxLEDIndex is the exclusive upper bound on valid LED indices.
const maxLEDIndex = 40

// FirmwareColors are approximations of the device's native indicator
// colors; the descriptor does not expose the exact values.
type FirmwareColors struct {
	Selected   uint32
	Unselected uint32
}

// ProtectedField is an (offset, size) pair the LED-ops layer must never
// write.
type ProtectedField struct {
	Offset int
	Size   int
}

// ModelProfile is the per-product-id record of input-to-LED mappings,
// firmware color approximations, and protected descriptor fields.
type ModelProfile struct {
	ProductID        uint16
	ProductName      string
	DescriptorSize   int
	NumberLEDIndices map[int]int // input_no -> led_index
	FirmwareColors   FirmwareColors
	ProtectedFields  []ProtectedField
}

// defaultFirmwareColors are uncalibrated approximate firmware green/white.
// Schema-derived profiles use them, and so does every knownModels entry.
var defaultFirmwareColors = FirmwareColors{
	Selected: Encode(0, 200, 0), // approximate firmware green
	Unselected: Encode(200, 200, 200), // approximate firmware white
}

// Encode serializes a 24-bit RGB value into the device's 32-bit color
// word, (R<<24)|(G<<16)|(B<<8).
func Encode(r, g, b uint8) uint32 {
	return uint32(r)<<24 | uint32(g)<<16 | uint32(b)<<8
}

// neverTouched lists the fields the LED-ops layer must never write,
// regardless of product id.
var neverTouched = []ProtectedField{
	{Offset: 92, Size: 160},  // directLEDValues: 40-element bulk array
	{Offset: 384, Size: 164}, // LEDcolors: metering gradient
	{Offset: 77, Size: 1},    // enableDirectLEDMode
	{Offset: 711, Size: 1},   // brightness
}

// knownModels is the hardcoded table of LED layouts for the Scarlett
// Solo/2i2/4i4 4th-generation product ids. No entry carries calibrated
// colors of its own; all use defaultFirmwareColors. Indices are
// placeholders for models this core has not been run against hardware for.
var knownModels = map[uint16]ModelProfile{
	0x8218: { // Scarlett Solo 4th Gen
		ProductID: 0x8218,
		ProductName: "Scarlett Solo 4th Gen",
		DescriptorSize: 720,
		NumberLEDIndices: map[int]int{1: 0},
		FirmwareColors: defaultFirmwareColors,
	},
	0x8219: { // Scarlett 2i2 4th Gen
		ProductID: 0x8219,
		ProductName: "Scarlett 2i2 4th Gen",
		DescriptorSize: 720,
		NumberLEDIndices: map[int]int{1: 0, 2: 2},
		FirmwareColors: defaultFirmwareColors,
	},
	0x821A: { // Scarlett 4i4 4th Gen
		ProductID: 0x821A,
		ProductName: "Scarlett 4i4 4th Gen",
		DescriptorSize: 720,
		NumberLEDIndices: map[int]int{1: 0, 2: 2},
		FirmwareColors: defaultFirmwareColors,
	},
}

// Lookup returns the hardcoded profile for productID, if this core knows
// one.
func Lookup(productID uint16) (ModelProfile, bool) {
	p, ok := knownModels[productID]
	if !ok {
		return ModelProfile{}, false
	}
	p.ProtectedFields = append(append([]ProtectedField(nil), neverTouched...), p.ProtectedFields...)
	return p, true
}

// FromSchema builds a ModelProfile for an unknown-but-compatible product
// id from the firmware's self-description: LED indices predicted from the
// device's reported input layout, and uncalibrated default colors.
func FromSchema(productID uint16, doc *schema.Document) (ModelProfile, schema.Confidence) {
	layout := doc.PredictLayout(false)
	p := ModelProfile{
		ProductID: productID,
		ProductName: fmt.Sprintf("unknown Scarlett (0x%04x)", productID),
		DescriptorSize: 720,
		NumberLEDIndices: layout.NumberLEDIndices,
		FirmwareColors: defaultFirmwareColors,
		ProtectedFields: append([]ProtectedField(nil), neverTouched...),
	}
	return p, layout.Confidence
}

// Validate checks the ModelProfile invariants: every LED index is in
// [0, 40); every input_no is ≥1; indices are unique.
func (p ModelProfile) Validate() error {
	seen := make(map[int]bool, len(p.NumberLEDIndices))
	for inputNo, ledIndex := range p.NumberLEDIndices {
		if inputNo < 1 {
			return fmt.Errorf("profile: input_no %d must be >= 1", inputNo)
		}
		if ledIndex < 0 || ledIndex >= maxLEDIndex {
			return fmt.Errorf("profile: led index %d for input %d out of [0,%d)", ledIndex, inputNo, maxLEDIndex)
		}
		if seen[ledIndex] {
			return fmt.Errorf("profile: led index %d assigned to more than one input", ledIndex)
		}
		seen[ledIndex] = true
	}
	return nil
}

// IsProtected reports whether writing size bytes at offset would touch a
// field this profile marks never-touched.
func (p ModelProfile) IsProtected(offset, size int) bool {
	for _, f := range p.ProtectedFields {
		if offset < f.Offset+f.Size && offset+size > f.Offset {
			return true
		}
	}
	return false
}
