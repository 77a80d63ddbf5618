package schema

// Confidence reflects how much the core trusts a predicted layout:
// whether the product id was already known, the schema parsed cleanly,
// and every input ended up labeled.
type Confidence int

const (
	Low Confidence = iota
	Medium
	High
)

func (c Confidence) String() string {
	switch c {
	case High:
		return "high"
	case Medium:
		return "medium"
	default:
		return "low"
	}
}

// PredictedLayout is the schema-derived guess at a model's number-LED
// indices, used when the product id has no hardcoded profile.
type PredictedLayout struct {
	NumberLEDIndices map[int]int // input_no -> led_index
	Confidence Confidence
}

// haloSegmentsPerInput is the schema constant spacing between consecutive
// inputs' leading number-LED index.
const haloSegmentsPerInput = 1

// PredictLayout derives a PredictedLayout from the device-specification's
// ordered physical-inputs list and kMAX_NUMBER_LEDS: the leftmost input
// maps to index 0, subsequent inputs step by 1+haloSegmentsPerInput.
// knownProductID indicates whether the caller already has a hardcoded
// ModelProfile for this device (if so, PredictLayout is not normally
// called at all, but callers may still use it to cross-check).
func (d *Document) PredictLayout(knownProductID bool) PredictedLayout {
	inputs := d.DeviceSpec.PhysicalInputs
	indices := make(map[int]int, len(inputs))
	allLabeled := true
	stride := 1 + haloSegmentsPerInput

	for i, in := range inputs {
		inputNo := i + 1
		ledIndex := i * stride
		if d.MaxNumberLEDs > 0 && ledIndex >= d.MaxNumberLEDs {
			allLabeled = false
			continue
		}
		if in.Label == "" {
			allLabeled = false
		}
		indices[inputNo] = ledIndex
	}

	confidence := Low
	switch {
	case knownProductID && allLabeled:
		confidence = High
	case allLabeled:
		confidence = Medium
	}

	return PredictedLayout{NumberLEDIndices: indices, Confidence: confidence}
}
