package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/focusmute/focusmute-core/internal/schema"
)

func TestLookupKnownModel(t *testing.T) {
	p, ok := Lookup(0x8219)
	require.True(t, ok)
	assert.Equal(t, "Scarlett 2i2 4th Gen", p.ProductName)
	assert.NoError(t, p.Validate())
}

func TestLookupUnknownModel(t *testing.T) {
	_, ok := Lookup(0xFFFF)
	assert.False(t, ok)
}

func TestLookupIncludesNeverTouchedFields(t *testing.T) {
	p, ok := Lookup(0x8219)
	require.True(t, ok)
	assert.True(t, p.IsProtected(92, 4), "directLEDValues must be protected")
	assert.True(t, p.IsProtected(77, 1), "enableDirectLEDMode must be protected")
	assert.True(t, p.IsProtected(384, 4), "LEDcolors must be protected")
	assert.True(t, p.IsProtected(711, 1), "brightness must be protected")
	assert.False(t, p.IsProtected(84, 4), "directLEDColour is not a never-touched field")
}

func TestFromSchemaUsesUncalibratedColors(t *testing.T) {
	doc := &schema.Document{
		MaxNumberLEDs: 40,
		DeviceSpec: schema.DeviceSpecification{
			PhysicalInputs: []schema.PhysicalInput{{Label: "Mic 1"}, {Label: "Mic 2"}},
		},
	}
	p, confidence := FromSchema(0x9999, doc)
	assert.Equal(t, schema.Medium, confidence)
	assert.Equal(t, defaultFirmwareColors, p.FirmwareColors)
	assert.NoError(t, p.Validate())
}

func TestValidateRejectsDuplicateIndices(t *testing.T) {
	p := ModelProfile{NumberLEDIndices: map[int]int{1: 0, 2: 0}}
	assert.Error(t, p.Validate())
}

func TestValidateRejectsOutOfRangeIndex(t *testing.T) {
	p := ModelProfile{NumberLEDIndices: map[int]int{1: 40}}
	assert.Error(t, p.Validate())
}

func TestValidateRejectsZeroInputNo(t *testing.T) {
	p := ModelProfile{NumberLEDIndices: map[int]int{0: 0}}
	assert.Error(t, p.Validate())
}

func TestEncodeColor(t *testing.T) {
	assert.Equal(t, uint32(0x00C80000), Encode(0, 200, 0))
}
