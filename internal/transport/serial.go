// Package transport opens the serial connection to the device.
package transport

import (
	"errors"
	"fmt"
	"sort"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// DefaultBaud matches the monitor speed of the firmware projects this tool
// is used with.
const DefaultBaud = 250000

var ErrNoPorts = errors.New("no serial ports found")

// Serial is an open serial port.
type Serial struct {
	serial.Port
	Name string
	Baud int
}

// OpenSerial opens name at baud, 8N1.
func OpenSerial(name string, baud int) (*Serial, error) {
	if baud <= 0 {
		baud = DefaultBaud
	}
	p, err := serial.Open(name, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s @ %d: %w", name, baud, err)
	}
	return &Serial{Port: p, Name: name, Baud: baud}, nil
}

func (s *Serial) String() string {
	return fmt.Sprintf("%s @ %d", s.Name, s.Baud)
}

// PortInfo describes a serial port found on the host.
type PortInfo struct {
	Name         string `json:"name"`
	USB          bool   `json:"usb"`
	VID          string `json:"vid,omitempty"`
	PID          string `json:"pid,omitempty"`
	SerialNumber string `json:"serial_number,omitempty"`
	Product      string `json:"product,omitempty"`
}

// ListPorts returns the serial ports of the host sorted by name.
func ListPorts() ([]PortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate serial ports: %w", err)
	}
	ports := make([]PortInfo, 0, len(details))
	for _, d := range details {
		ports = append(ports, PortInfo{
			Name:         d.Name,
			USB:          d.IsUSB,
			VID:          d.VID,
			PID:          d.PID,
			SerialNumber: d.SerialNumber,
			Product:      d.Product,
		})
	}
	sort.Slice(ports, func(i, j int) bool { return ports[i].Name < ports[j].Name })
	return ports, nil
}

// DefaultPort picks the port to use when none was given: the last one
// enumerated, which is usually the most recently attached board.
func DefaultPort() (string, error) {
	names, err := serial.GetPortsList()
	if err != nil {
		return "", fmt.Errorf("failed to list serial ports: %w", err)
	}
	return lastPort(names)
}

func lastPort(names []string) (string, error) {
	if len(names) == 0 {
		return "", ErrNoPorts
	}
	return names[len(names)-1], nil
}
