// Package wire holds the bit-exact command table shared by both transport
// variants: the kernel-IOCTL command codes, their raw-USB equivalents, and
// the fixed request/response payload shapes the transport refuses to
// violate (its "refuses to submit" guard lives here as data, the
// enforcement lives in transport).
package wire

// Command identifies one entry of the protocol's command table.
type Command int

const (
	USBInit Command = iota
	GetConfig
	GetDescr
	SetDescr
	DataNotify
	DevmapInfo
	DevmapPage
	GetMeter
	GetMux
	ReadSegment
)

// Codes is the kernel-IOCTL and raw-USB numeric encoding of one command.
type Codes struct {
	Kernel uint32
	Raw    uint32
}

// Table maps every Command to its wire codes. Raw codes of 0 for USBInit and
// GetConfig reflect its "combined"/"internal" notes: those two commands
// only exist as explicit handshake steps on the kernel variant; the
// raw-USB handshake reuses the zero-sequence init transfer and GET_CONFIG's
// equivalent session bytes from the same transfer, so they carry no
// independent raw command code.
var Table = map[Command]Codes{
	USBInit: {Kernel: 0x00010400, Raw: 0},
	GetConfig: {Kernel: 0x00040400, Raw: 0},
	GetDescr: {Kernel: 0x00000800, Raw: 0x00800000},
	SetDescr: {Kernel: 0x00010800, Raw: 0x00800001},
	DataNotify: {Kernel: 0x00020800, Raw: 0x00800002},
	DevmapInfo: {Kernel: 0x000C0800, Raw: 0x0080000C},
	DevmapPage: {Kernel: 0x000D0800, Raw: 0x0080000D},
	GetMeter: {Kernel: 0x00010001, Raw: 0x00001001},
	GetMux: {Kernel: 0x00010003, Raw: 0x00003001},
	ReadSegment: {Kernel: 0x00050004, Raw: 0x00004005},
}

// byKernel and byRaw are built once for the two lookup directions the
// protocol layer needs (dispatch by variant tag never exposes raw/kernel to
// callers).
var byKernel = map[uint32]Command{}
var byRaw = map[uint32]Command{}

func init() {
	for cmd, codes := range Table {
		byKernel[codes.Kernel] = cmd
		if codes.Raw != 0 {
			byRaw[codes.Raw] = cmd
		}
	}
}

// CommandFromKernelCode resolves a kernel command code back to a Command.
func CommandFromKernelCode(code uint32) (Command, bool) {
	cmd, ok := byKernel[code]
	return cmd, ok
}

// CommandFromRawCode resolves a raw-USB command code back to a Command.
func CommandFromRawCode(code uint32) (Command, bool) {
	cmd, ok := byRaw[code]
	return cmd, ok
}

// KernelToRaw applies the bijection between kernel and raw-USB command
// codes: raw = ((kernel & 0xFFFF) << 12) | (kernel >> 16).
func KernelToRaw(kernel uint32) uint32 {
	return ((kernel & 0xFFFF) << 12) | (kernel >> 16)
}

// RawToKernel is the inverse of KernelToRaw, so that
// KernelToRaw(RawToKernel(x)) == x for every code the table defines (
// round-trip law).
func RawToKernel(raw uint32) uint32 {
	return (raw >> 12) | ((raw & 0xFFF) << 16)
}
