// Package gpsdata holds the data model shared by the NMEA decoder, the UBX
// codec, the GPS manager, and the acceptance/optimization state machines.
package gpsdata

import "time"

// Satellite describes one satellite slot from a GSV sentence.
type Satellite struct {
	PRN           string `json:"prn"`
	Elevation     int    `json:"elevation_deg"`
	Azimuth       int    `json:"azimuth_deg"`
	SNR           int    `json:"snr_db"`
	Constellation string `json:"constellation"`
}

// Observation is the cumulative GNSS state built up across NMEA sentences.
// Pointer fields are nil when no sentence has ever supplied that value.
type Observation struct {
	Latitude        *float64    `json:"latitude,omitempty"`
	Longitude       *float64    `json:"longitude,omitempty"`
	Altitude        *float64    `json:"altitude_m,omitempty"`
	SpeedKnots      *float64    `json:"speed_knots,omitempty"`
	CourseDeg       *float64    `json:"course_deg,omitempty"`
	HeadingDeg      *float64    `json:"heading_deg,omitempty"`
	FixQuality      *int        `json:"fix_quality,omitempty"`
	FixType         *string     `json:"fix_type,omitempty"`
	SatellitesInFix *int        `json:"satellites_in_fix,omitempty"`
	HDOP            *float64    `json:"hdop,omitempty"`
	VDOP            *float64    `json:"vdop,omitempty"`
	PDOP            *float64    `json:"pdop,omitempty"`
	FixTimeUTC      *string     `json:"fix_time_utc,omitempty"`
	Satellites      []Satellite `json:"satellites"`
}

// Merge folds src into the receiver using field-wise "adopt new if present".
// The satellite list is replaced wholesale when src carries a non-empty one.
func (o *Observation) Merge(src Observation) {
	if src.Latitude != nil {
		o.Latitude = src.Latitude
	}
	if src.Longitude != nil {
		o.Longitude = src.Longitude
	}
	if src.Altitude != nil {
		o.Altitude = src.Altitude
	}
	if src.SpeedKnots != nil {
		o.SpeedKnots = src.SpeedKnots
	}
	if src.CourseDeg != nil {
		o.CourseDeg = src.CourseDeg
	}
	if src.HeadingDeg != nil {
		o.HeadingDeg = src.HeadingDeg
	}
	if src.FixQuality != nil {
		o.FixQuality = src.FixQuality
	}
	if src.FixType != nil {
		o.FixType = src.FixType
	}
	if src.SatellitesInFix != nil {
		o.SatellitesInFix = src.SatellitesInFix
	}
	if src.HDOP != nil {
		o.HDOP = src.HDOP
	}
	if src.VDOP != nil {
		o.VDOP = src.VDOP
	}
	if src.PDOP != nil {
		o.PDOP = src.PDOP
	}
	if src.FixTimeUTC != nil {
		o.FixTimeUTC = src.FixTimeUTC
	}
	if len(src.Satellites) > 0 {
		o.Satellites = src.Satellites
	}
}

// PortKind tags the physical transport a serial port is exposed over.
type PortKind string

const (
	PortKindUSB       PortKind = "usb"
	PortKindBluetooth PortKind = "bluetooth"
	PortKindPCI       PortKind = "pci"
	PortKindUnknown   PortKind = "unknown"
)

// PortDescriptor describes one enumerated serial port.
type PortDescriptor struct {
	Path         string   `json:"path"`
	Kind         PortKind `json:"kind"`
	Manufacturer string   `json:"manufacturer,omitempty"`
	Product      string   `json:"product,omitempty"`
	SerialNumber string   `json:"serial_number,omitempty"`
	VID          string   `json:"vid,omitempty"`
	PID          string   `json:"pid,omitempty"`
	LikelyGNSS   bool     `json:"likely_gnss"`
}

// ConnectionState is the lifecycle state of a GPS Manager connection.
type ConnectionState string

const (
	StateDisconnected ConnectionState = "disconnected"
	StateConnecting   ConnectionState = "connecting"
	StateConnected    ConnectionState = "connected"
	StateReceiving    ConnectionState = "receiving"
	StateError        ConnectionState = "error"
)

// ConnectionStatus is the externally visible state of the current connection.
type ConnectionStatus struct {
	Port              *PortDescriptor `json:"port,omitempty"`
	State             ConnectionState `json:"state"`
	LastError         string          `json:"last_error,omitempty"`
	SentencesReceived uint64          `json:"sentences_received"`
	LastFixTime       *time.Time      `json:"last_fix_time,omitempty"`
}
