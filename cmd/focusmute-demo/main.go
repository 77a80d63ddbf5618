// Command focusmute-demo runs the supervisor against the first attached
// Scarlett 4th-generation interface and reflects the OS capture device's
// mute state onto its number LEDs until interrupted.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"time"

	"golang.design/x/mainthread"

	focusmute "github.com/focusmute/focusmute-core"
	"github.com/focusmute/focusmute-core/internal/config"
	"github.com/focusmute/focusmute-core/internal/hotkey"
	"github.com/focusmute/focusmute-core/internal/monitor"
	"github.com/focusmute/focusmute-core/internal/supervisor"
)

func main() {
	deviceSerial := flag.String("serial", "", "pin to a specific device serial")
	hotkeyChord := flag.String("hotkey", "Ctrl+Alt+M", "global mute-toggle chord, e.g. Ctrl+Alt+M")
	flag.Parse()

	mainthread.Init(func() { run(*deviceSerial, *hotkeyChord) })
}

func run(deviceSerial, hotkeyChord string) {
	cfg := config.Default()
	cfg.DeviceSerial = deviceSerial
	cfg.Hotkey = hotkeyChord
	if err := cfg.Validate(); err != nil {
		log.Fatalf("focusmute-demo: invalid configuration: %v", err)
	}

	devices, err := focusmute.ListDevices()
	if err != nil {
		log.Fatalf("focusmute-demo: list_devices: %v", err)
	}
	if len(devices) == 0 {
		log.Fatalf("focusmute-demo: no supported Scarlett interface found")
	}
	log.Printf("focusmute-demo: found %d candidate device(s)", len(devices))

	mon, err := monitor.New()
	if err != nil {
		log.Fatalf("focusmute-demo: open mute monitor: %v", err)
	}

	var hk *hotkey.Handle
	chord, err := hotkey.ParseChord(cfg.Hotkey)
	if err != nil {
		// Fatal-startup errors that only affect an optional feature
		// surface as a one-shot log line; the supervisor still runs
		// without a hotkey.
		log.Printf("focusmute-demo: hotkey %q invalid, running without one: %v", cfg.Hotkey, err)
	} else {
		hk, err = hotkey.Register(chord)
		if err != nil {
			log.Printf("focusmute-demo: hotkey registration failed, running without one: %v", err)
			hk = nil
		}
	}

	sup := supervisor.New(cfg, devices[0].ProductID, mon, hk)

	ctx, cancel := context.WithCancel(context.Background())
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, shutdownSignals()...)

	done := make(chan error, 1)
	go func() { done <- sup.Run(ctx) }()

	<-quit
	log.Printf("focusmute-demo: shutting down")
	cancel()

	select {
	case err := <-done:
		if err != nil {
			log.Printf("focusmute-demo: shutdown completed with error: %v", err)
		}
	case <-time.After(3 * time.Second):
		log.Printf("focusmute-demo: shutdown deadline exceeded, exiting anyway")
	}
}
