package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"glasscribe/audio"
	"glasscribe/log"
	"glasscribe/session"
	"glasscribe/transport"
	"glasscribe/wire"
)

var version = "dev"

const defaultServer = "ws://localhost:8765/ws"

func main() {
	serverFlag := flag.String("server", "", "websocket endpoint of the transcription server (env GLASSCRIBE_SERVER)")
	deviceFlag := flag.String("device", "", "Use named microphone device")
	setupFlag := flag.Bool("setup", false, "Select microphone device (otherwise uses system default)")
	logPathFlag := flag.String("logpath", "", "log directory path (default: OS-specific location, use ./ for current dir)")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	headlessFlag := flag.Bool("headless", false, "Run without TUI, driven by stdin commands")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("glasscribe %s\n", version)
		os.Exit(0)
	}

	server := *serverFlag
	if server == "" {
		server = os.Getenv("GLASSCRIBE_SERVER")
	}
	if server == "" {
		server = defaultServer
	}

	logPath, err := log.ResolveDir(*logPathFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		os.Exit(1)
	}
	log.SetDir(logPath)

	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
	defer log.Close()

	crashPath := filepath.Join(log.Dir(), "crash_log.txt")
	crashFile, err := os.OpenFile(crashPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err == nil {
		fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
		debug.SetCrashOutput(crashFile, debug.CrashOptions{})
	}

	audioCtx, err := audio.NewContext()
	if err != nil {
		log.Errorf("audio context init error: %v", err)
		fmt.Printf("Error initializing audio context: %v\n", err)
		os.Exit(1)
	}
	defer audioCtx.Close()

	var selectedDevice *audio.DeviceInfo
	if *deviceFlag != "" {
		if devices, err := audioCtx.Devices(); err == nil {
			for i := range devices {
				if devices[i].Name == *deviceFlag {
					selectedDevice = &devices[i]
					break
				}
			}
		}
		if selectedDevice == nil {
			fmt.Printf("Warning: device %q not found, using system default\n", *deviceFlag)
		}
	} else if *setupFlag {
		selectedDevice, err = audio.SelectDevice(audioCtx)
		if err != nil {
			log.Warnf("device selection failed: %v", err)
			fmt.Printf("Warning: device selection failed: %v\n", err)
			fmt.Println("Falling back to default device")
			selectedDevice = nil
		}
	}

	deviceName := "system default"
	if selectedDevice != nil {
		deviceName = selectedDevice.Name
		if audio.IsBluetooth(deviceName) {
			deviceName += " (BT!)"
		}
	}

	log.SessionStart(server)
	defer log.SessionEnd()

	var sink session.EventSink
	tuiSink := &programSink{}
	if *headlessFlag {
		sink = stdoutSink{}
	} else {
		sink = tuiSink
	}

	// The transport callbacks fire only after the first dial, which the
	// controller itself triggers, so the late binding below is safe.
	var ctrl *session.Controller
	tr := transport.New(server,
		func(f wire.Frame) { ctrl.OnFrame(f) },
		func(reason string, remote bool) { ctrl.OnTransportClosed(reason, remote) },
	)
	keep := transport.NewKeepAlive(
		func() {
			if err := tr.Send(wire.Ping()); err != nil {
				log.Warnf("keepalive ping: %v", err)
			}
		},
		func(attempt int) error {
			ctrl.NotifyReconnectAttempt(attempt, transport.DefaultMaxAttempts)
			if err := tr.Dial(context.Background()); err != nil {
				return err
			}
			ctrl.NotifyOpen()
			return nil
		},
		func() { ctrl.NotifyReconnectExhausted() },
	)
	ctrl = session.New(tr, keep, audioCtx, selectedDevice, sink)

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ctrl.Run(runCtx)

	if *headlessFlag {
		runHeadless(ctrl)
		return
	}

	p := NewTUIProgram(ctrl, server, deviceName)
	tuiSink.attach(p)
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
