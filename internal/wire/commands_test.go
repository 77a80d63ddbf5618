package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKernelRawBijection(t *testing.T) {
	for cmd, codes := range Table {
		if codes.Raw == 0 {
			continue
		}
		raw := KernelToRaw(codes.Kernel)
		assert.Equal(t, codes.Raw, raw, "kernel->raw mismatch for %v", cmd)
		assert.Equal(t, codes.Kernel, RawToKernel(raw), "raw->kernel round trip mismatch for %v", cmd)
	}
}

func TestCommandFromKernelCode(t *testing.T) {
	cmd, ok := CommandFromKernelCode(Table[GetDescr].Kernel)
	assert.True(t, ok)
	assert.Equal(t, GetDescr, cmd)

	_, ok = CommandFromKernelCode(0xDEADBEEF)
	assert.False(t, ok)
}

func TestCommandFromRawCode(t *testing.T) {
	cmd, ok := CommandFromRawCode(Table[SetDescr].Raw)
	assert.True(t, ok)
	assert.Equal(t, SetDescr, cmd)

	// USBInit and GetConfig share Raw==0 and are intentionally absent from
	// the reverse map; callers must dispatch on the Command value itself
	// for those two, never on a recovered raw code.
	_, ok = CommandFromRawCode(0)
	assert.False(t, ok)
}
