// Package gpsport wraps go.bug.st/serial with the narrow seam the GPS
// manager needs: open/read/write/close plus port enumeration with the USB
// VID/PID/product/serial-number metadata used to guess which ports are GNSS
// receivers.
package gpsport

import (
	"fmt"
	"strings"
	"time"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"

	"github.com/tony-sparks-nz/Scout-GPS-Studio/internal/gpsdata"
)

// Port is the seam the GPS manager depends on instead of go.bug.st/serial
// directly, so tests can substitute a fake implementation.
type Port interface {
	Open(path string, baud int) error
	Close() error
	Read(buf []byte) (int, error)
	Write(data []byte) (int, error)
	SetReadTimeout(d time.Duration) error
}

// SerialPort is the real go.bug.st/serial backed implementation.
type SerialPort struct {
	port serial.Port
}

// NewSerialPort returns an unopened SerialPort.
func NewSerialPort() *SerialPort {
	return &SerialPort{}
}

func (p *SerialPort) Open(path string, baud int) error {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(path, mode)
	if err != nil {
		return fmt.Errorf("gpsport: open %s: %w", path, err)
	}
	p.port = port
	return p.SetReadTimeout(time.Second)
}

func (p *SerialPort) Close() error {
	if p.port == nil {
		return nil
	}
	return p.port.Close()
}

func (p *SerialPort) Read(buf []byte) (int, error) {
	if p.port == nil {
		return 0, fmt.Errorf("gpsport: read on unopened port")
	}
	return p.port.Read(buf)
}

func (p *SerialPort) Write(data []byte) (int, error) {
	if p.port == nil {
		return 0, fmt.Errorf("gpsport: write on unopened port")
	}
	return p.port.Write(data)
}

func (p *SerialPort) SetReadTimeout(d time.Duration) error {
	if p.port == nil {
		return fmt.Errorf("gpsport: set timeout on unopened port")
	}
	return p.port.SetReadTimeout(d)
}

// gnssKeywords is the case-insensitive vocabulary used to guess whether an
// enumerated port is likely attached to a GNSS receiver.
var gnssKeywords = []string{
	"gps", "gnss", "u-blox", "ublox", "sirf", "nmea",
	"garmin", "globalsat", "bu-353", "vk-162", "g-mouse", "receiver", "navigation",
}

// ubloxVID is the USB vendor ID u-blox ships its receivers under.
const ubloxVID = "1546"

func likelyGNSS(manufacturer, product string) bool {
	haystack := strings.ToLower(manufacturer + " " + product)
	for _, kw := range gnssKeywords {
		if strings.Contains(haystack, kw) {
			return true
		}
	}
	return false
}

// IsUblox reports whether a port's USB identity indicates a u-blox receiver,
// the gate for the conditional UBX bring-up performed on connect.
func IsUblox(d gpsdata.PortDescriptor) bool {
	if strings.EqualFold(d.VID, ubloxVID) {
		return true
	}
	haystack := strings.ToLower(d.Manufacturer + " " + d.Product)
	return strings.Contains(haystack, "u-blox") || strings.Contains(haystack, "ublox")
}

// List enumerates every system serial port with the USB metadata the
// enumerator reports (VID, PID, product, serial number). Manufacturer is
// left empty, so the likely-GNSS guess is made from the product string.
func List() ([]gpsdata.PortDescriptor, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("gpsport: enumerate: %w", err)
	}

	out := make([]gpsdata.PortDescriptor, 0, len(details))
	for _, d := range details {
		kind := gpsdata.PortKindUnknown
		if d.IsUSB {
			kind = gpsdata.PortKindUSB
		}
		desc := gpsdata.PortDescriptor{
			Path:         d.Name,
			Kind:         kind,
			Product:      d.Product,
			SerialNumber: d.SerialNumber,
			VID:          d.VID,
			PID:          d.PID,
		}
		desc.LikelyGNSS = likelyGNSS(desc.Manufacturer, desc.Product)
		out = append(out, desc)
	}
	return out, nil
}
