// Package serialport holds the port-string and link-option plumbing that
// sits in front of a lidar transport: address normalisation, baud-rate
// validation and discovery of the ports present on the host.
package serialport

import (
	"fmt"
	"strings"

	"go.bug.st/serial"
)

// DefaultBaudRate is the link rate of the supported sensor family.
const DefaultBaudRate = 115200

var supportedBaudRates = map[int]bool{
	9600:   true,
	19200:  true,
	38400:  true,
	57600:  true,
	115200: true,
	128000: true,
	153600: true,
	230400: true,
	256000: true,
	460800: true,
	512000: true,
	921600: true,
}

// PortOptions describes the link parameters passed to the transport when
// connecting.
type PortOptions struct {
	BaudRate int `json:"baud_rate"`
}

// Normalise validates the options and applies defaults for any unset values.
func (o PortOptions) Normalise() (PortOptions, error) {
	opts := o

	if opts.BaudRate <= 0 {
		opts.BaudRate = DefaultBaudRate
	}
	if !supportedBaudRates[opts.BaudRate] {
		return opts, fmt.Errorf("unsupported baud rate %d", opts.BaudRate)
	}
	return opts, nil
}

// Equal reports whether two PortOptions describe the same link configuration.
func (o PortOptions) Equal(other PortOptions) bool {
	normalisedA, errA := o.Normalise()
	normalisedB, errB := other.Normalise()
	if errA != nil || errB != nil {
		return false
	}
	return normalisedA.BaudRate == normalisedB.BaudRate
}

// NormalizeAddress rewrites Windows COM port names that need the device
// namespace prefix (COM5 and above, and any multi-digit port). Other
// addresses are returned unchanged.
func NormalizeAddress(address string) string {
	if len(address) < 4 || !strings.EqualFold(address[:3], "com") {
		return address
	}
	if len(address) > 4 || address[3] > '4' {
		return `\\.\` + address
	}
	return address
}

// listPorts is replaced in tests.
var listPorts = serial.GetPortsList

// ListPorts returns the serial ports currently present on the host.
func ListPorts() ([]string, error) {
	ports, err := listPorts()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate serial ports: %w", err)
	}
	return ports, nil
}

// HasPort reports whether address names one of the ports present on the
// host. Both the raw and normalised forms are accepted.
func HasPort(address string) (bool, error) {
	ports, err := ListPorts()
	if err != nil {
		return false, err
	}
	normalised := NormalizeAddress(address)
	for _, p := range ports {
		if p == address || p == normalised {
			return true, nil
		}
	}
	return false, nil
}
