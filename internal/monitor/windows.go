//go:build windows

// internal/monitor/windows.go
// Event-driven mute monitor for the default capture endpoint, via the
// Core Audio IAudioEndpointVolume notification callback.
package monitor

import (
	"context"
	"sync"
	"syscall"
	"time"
	"unsafe"

	"github.com/go-ole/go-ole"
	"github.com/moutend/go-wca/pkg/wca"

	"github.com/focusmute/focusmute-core/internal/errkind"
)

func init() {
	newFunc = newWindowsMonitor
}

// endpointVolumeCallbackVtbl mirrors IAudioEndpointVolumeCallback's
// vtable: QueryInterface/AddRef/Release plus the single OnNotify method
// the Core Audio subsystem invokes on every mute/volume change.
type endpointVolumeCallbackVtbl struct {
	QueryInterface uintptr
	AddRef         uintptr
	Release        uintptr
	OnNotify       uintptr
}

type endpointVolumeCallback struct {
	lpVtbl   *endpointVolumeCallbackVtbl
	refCount uint32
	sink     func(muted bool)
}

var iidIAudioEndpointVolumeCallback = ole.NewGUID("{657804FA-D6AD-4496-8A60-352752AF4F89}")

func newEndpointVolumeCallback(sink func(muted bool)) *endpointVolumeCallback {
	c := &endpointVolumeCallback{refCount: 1, sink: sink}
	c.lpVtbl = &endpointVolumeCallbackVtbl{
		QueryInterface: syscall.NewCallback(evcQueryInterface),
		AddRef:         syscall.NewCallback(evcAddRef),
		Release:        syscall.NewCallback(evcRelease),
		OnNotify:       syscall.NewCallback(evcOnNotify),
	}
	return c
}

func evcQueryInterface(this *endpointVolumeCallback, riid *ole.GUID, ppv *unsafe.Pointer) uintptr {
	if ole.IsEqualGUID(riid, ole.IID_IUnknown) || ole.IsEqualGUID(riid, iidIAudioEndpointVolumeCallback) {
		*ppv = unsafe.Pointer(this)
		this.refCount++
		return 0
	}
	*ppv = nil
	return 0x80004002 // E_NOINTERFACE
}

func evcAddRef(this *endpointVolumeCallback) uintptr {
	this.refCount++
	return uintptr(this.refCount)
}

func evcRelease(this *endpointVolumeCallback) uintptr {
	this.refCount--
	return uintptr(this.refCount)
}

// audioVolumeNotificationData mirrors AUDIO_VOLUME_NOTIFICATION_DATA's
// layout far enough to reach bMuted: GUID event context, then the muted
// BOOL, then the master volume float, then channel count.
type audioVolumeNotificationData struct {
	EventContext ole.GUID
	Muted        int32
	MasterVolume float32
	Channels     uint32
}

func evcOnNotify(this *endpointVolumeCallback, data *audioVolumeNotificationData) uintptr {
	if this.sink != nil && data != nil {
		this.sink(data.Muted != 0)
	}
	return 0
}

// windowsMonitor registers an IAudioEndpointVolumeCallback against the
// default capture endpoint's IAudioEndpointVolume and forwards every
// OnNotify to Samples.
type windowsMonitor struct {
	mu       sync.Mutex
	endpoint *wca.IAudioEndpointVolume
	device   *wca.IMMDevice
	enum     *wca.IMMDeviceEnumerator
	callback *endpointVolumeCallback
	ch       chan MuteSample
	closed   bool
}

func newWindowsMonitor() (Monitor, error) {
	if err := ole.CoInitializeEx(0, ole.COINIT_MULTITHREADED); err != nil {
		// Already initialized on this thread is not fatal.
		_ = err
	}

	var enumerator *wca.IMMDeviceEnumerator
	if err := wca.CoCreateInstance(wca.CLSID_MMDeviceEnumerator, 0, wca.CLSCTX_ALL, wca.IID_IMMDeviceEnumerator, &enumerator); err != nil {
		return nil, errkind.New(errkind.Io, "monitor.newWindowsMonitor", err)
	}

	var device *wca.IMMDevice
	if err := enumerator.GetDefaultAudioEndpoint(wca.ECapture, wca.EConsole, &device); err != nil {
		enumerator.Release()
		return nil, errkind.New(errkind.Io, "monitor.newWindowsMonitor", err)
	}

	var endpoint *wca.IAudioEndpointVolume
	if err := device.Activate(wca.IID_IAudioEndpointVolume, wca.CLSCTX_ALL, nil, &endpoint); err != nil {
		device.Release()
		enumerator.Release()
		return nil, errkind.New(errkind.Io, "monitor.newWindowsMonitor", err)
	}

	m := &windowsMonitor{
		endpoint: endpoint,
		device:   device,
		enum:     enumerator,
		ch:       make(chan MuteSample, 4),
	}
	m.callback = newEndpointVolumeCallback(m.emit)

	hr, _, _ := syscall.SyscallN(
		endpoint.VTable().RegisterControlChangeNotify,
		uintptr(unsafe.Pointer(endpoint)),
		uintptr(unsafe.Pointer(m.callback)),
	)
	if hr != 0 {
		m.Close()
		return nil, errkind.New(errkind.Io, "monitor.newWindowsMonitor", nil)
	}

	// Prime the stream with the current value so the supervisor's first
	// debounce window has a baseline to compare against.
	var muted bool
	if err := endpoint.GetMute(&muted); err == nil {
		m.emit(muted)
	}

	return m, nil
}

func (m *windowsMonitor) emit(muted bool) {
	sample := MuteSample{Muted: muted, At: time.Now()}
	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()
	if closed {
		return
	}
	select {
	case m.ch <- sample:
	default:
	}
}

func (m *windowsMonitor) Samples() <-chan MuteSample { return m.ch }

func (m *windowsMonitor) SetMuted(ctx context.Context, muted bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errkind.New(errkind.Io, "monitor.SetMuted", nil)
	}
	if err := m.endpoint.SetMute(muted, nil); err != nil {
		return errkind.New(errkind.Io, "monitor.SetMuted", err)
	}
	return nil
}

func (m *windowsMonitor) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true

	if m.endpoint != nil && m.callback != nil {
		syscall.SyscallN(
			m.endpoint.VTable().UnregisterControlChangeNotify,
			uintptr(unsafe.Pointer(m.endpoint)),
			uintptr(unsafe.Pointer(m.callback)),
		)
		m.endpoint.Release()
	}
	if m.device != nil {
		m.device.Release()
	}
	if m.enum != nil {
		m.enum.Release()
	}
	close(m.ch)
	return nil
}
