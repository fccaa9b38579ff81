package audio

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

// SelectDevice runs an interactive microphone picker on stdin/stdout and
// returns the chosen device. A single available device is returned
// without prompting; nil means "use the system default".
func SelectDevice(ctx Context) (*DeviceInfo, error) {
	devices, err := ctx.Devices()
	if err != nil {
		return nil, fmt.Errorf("enumerating capture devices: %w", err)
	}
	if len(devices) == 0 {
		return nil, fmt.Errorf("no capture devices found")
	}
	if len(devices) == 1 {
		return &devices[0], nil
	}

	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("raw mode: %w", err)
	}
	defer term.Restore(fd, oldState)

	cursor := 0
	draw := func() {
		fmt.Print("\r\x1b[J")
		fmt.Print("Pick a microphone (↑/↓ or j/k, Enter to confirm, q for default):\r\n\r\n")
		for i, d := range devices {
			marker := "  "
			line := d.Name
			if IsBluetooth(d.Name) {
				// Bluetooth codecs resample below the 16 kHz the
				// recognition server expects.
				line += " \x1b[33m[⚠ bluetooth - reduced quality]\x1b[0m"
			}
			if i == cursor {
				marker = "\x1b[1;36m> "
				line += "\x1b[0m"
			}
			fmt.Printf("%s%s\r\n", marker, line)
		}
	}

	draw()
	buf := make([]byte, 3)
	for {
		n, err := os.Stdin.Read(buf)
		if err != nil {
			return nil, fmt.Errorf("reading key: %w", err)
		}

		switch {
		case n == 1 && buf[0] == '\r':
			fmt.Print("\r\n")
			return &devices[cursor], nil
		case n == 1 && buf[0] == 'q':
			fmt.Print("\r\n")
			return nil, nil
		case n == 1 && buf[0] == 3: // Ctrl+C
			fmt.Print("\r\n")
			term.Restore(fd, oldState)
			os.Exit(130)
		case n == 1 && buf[0] == 'j':
			cursor = min(cursor+1, len(devices)-1)
		case n == 1 && buf[0] == 'k':
			cursor = max(cursor-1, 0)
		case n == 3 && buf[0] == 0x1b && buf[1] == '[' && buf[2] == 'B':
			cursor = min(cursor+1, len(devices)-1)
		case n == 3 && buf[0] == 0x1b && buf[1] == '[' && buf[2] == 'A':
			cursor = max(cursor-1, 0)
		}

		fmt.Printf("\x1b[%dA", len(devices)+2)
		draw()
	}
}
