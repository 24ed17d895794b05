package audio

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"
)

// ResolveDevice maps a configured identifier to a device. An empty id selects
// the system default (nil). Otherwise id is tried as a list index, an exact
// ID, an exact name and finally a case-insensitive name substring.
func ResolveDevice(ctx Context, id string) (*DeviceInfo, error) {
	if id == "" {
		return nil, nil
	}
	devices, err := ctx.Devices()
	if err != nil {
		return nil, fmt.Errorf("enumerating devices: %w", err)
	}

	if idx, err := strconv.Atoi(id); err == nil {
		if idx < 0 || idx >= len(devices) {
			return nil, fmt.Errorf("device index %d out of range (%d devices)", idx, len(devices))
		}
		return &devices[idx], nil
	}
	for i := range devices {
		if devices[i].ID == id || devices[i].Name == id {
			return &devices[i], nil
		}
	}
	lower := strings.ToLower(id)
	var match *DeviceInfo
	for i := range devices {
		if strings.Contains(strings.ToLower(devices[i].Name), lower) {
			if match != nil {
				return nil, fmt.Errorf("device %q is ambiguous: %q and %q", id, match.Name, devices[i].Name)
			}
			match = &devices[i]
		}
	}
	if match == nil {
		return nil, fmt.Errorf("no capture device matches %q", id)
	}
	return match, nil
}

// SelectDevice presents an interactive device picker and returns the index
// and the selected device. If only one device is available, it returns that
// device without prompting.
func SelectDevice(ctx Context) (int, *DeviceInfo, error) {
	devices, err := ctx.Devices()
	if err != nil {
		return 0, nil, fmt.Errorf("enumerating devices: %w", err)
	}

	if len(devices) == 0 {
		return 0, nil, fmt.Errorf("no capture devices found")
	}

	if len(devices) == 1 {
		return 0, &devices[0], nil
	}

	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return 0, nil, fmt.Errorf("setting raw mode: %w", err)
	}

	defer term.Restore(fd, oldState)

	cursor := 0
	renderList := func() {
		fmt.Print("\r\x1b[J")
		fmt.Print("Select input device (↑/↓, Enter to confirm, q to cancel):\r\n\r\n")
		for i, d := range devices {
			if i == cursor {
				fmt.Printf("  \x1b[1;36m▶ %d: %s\x1b[0m\r\n", i, d.Name)
			} else {
				fmt.Printf("    %d: %s\r\n", i, d.Name)
			}
		}
	}

	renderList()

	buf := make([]byte, 3)
	for {
		n, err := os.Stdin.Read(buf)
		if err != nil {
			return 0, nil, fmt.Errorf("reading input: %w", err)
		}

		if n == 1 {
			switch buf[0] {
			case 13: // Enter
				fmt.Print("\r\n")
				return cursor, &devices[cursor], nil
			case 3, 'q': // Ctrl+C
				fmt.Print("\r\n")
				return 0, nil, fmt.Errorf("selection cancelled")
			case 'j': // vim down
				if cursor < len(devices)-1 {
					cursor++
				}
			case 'k': // vim up
				if cursor > 0 {
					cursor--
				}
			}
		} else if n == 3 && buf[0] == 0x1b && buf[1] == '[' {
			switch buf[2] {
			case 'A': // Up arrow
				if cursor > 0 {
					cursor--
				}
			case 'B': // Down arrow
				if cursor < len(devices)-1 {
					cursor++
				}
			}
		}

		lines := len(devices) + 2
		fmt.Printf("\x1b[%dA", lines)
		renderList()
	}
}
