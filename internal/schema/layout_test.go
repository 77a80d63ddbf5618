package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPredictLayoutHighConfidence(t *testing.T) {
	doc := &Document{
		MaxNumberLEDs: 40,
		DeviceSpec: DeviceSpecification{
			PhysicalInputs: []PhysicalInput{{Label: "Mic 1"}, {Label: "Mic 2"}},
		},
	}
	layout := doc.PredictLayout(true)
	assert.Equal(t, High, layout.Confidence)
	assert.Equal(t, 0, layout.NumberLEDIndices[1])
	assert.Equal(t, 2, layout.NumberLEDIndices[2])
}

func TestPredictLayoutMediumConfidenceUnknownProduct(t *testing.T) {
	doc := &Document{
		MaxNumberLEDs: 40,
		DeviceSpec: DeviceSpecification{
			PhysicalInputs: []PhysicalInput{{Label: "Mic 1"}},
		},
	}
	layout := doc.PredictLayout(false)
	assert.Equal(t, Medium, layout.Confidence)
}

func TestPredictLayoutLowConfidenceUnlabeledInput(t *testing.T) {
	doc := &Document{
		MaxNumberLEDs: 40,
		DeviceSpec: DeviceSpecification{
			PhysicalInputs: []PhysicalInput{{Label: "Mic 1"}, {Label: ""}},
		},
	}
	layout := doc.PredictLayout(true)
	assert.Equal(t, Low, layout.Confidence)
}

func TestPredictLayoutLowConfidenceOverflowsMaxLEDs(t *testing.T) {
	doc := &Document{
		MaxNumberLEDs: 2,
		DeviceSpec: DeviceSpecification{
			PhysicalInputs: []PhysicalInput{{Label: "Mic 1"}, {Label: "Mic 2"}, {Label: "Mic 3"}},
		},
	}
	layout := doc.PredictLayout(true)
	assert.Equal(t, Low, layout.Confidence)
}
