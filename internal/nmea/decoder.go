package nmea

import (
	"fmt"

	"github.com/tony-sparks-nz/Scout-GPS-Studio/internal/gpsdata"
)

// Decoder turns one NMEA 0183 sentence at a time into a partial observation.
// It is not safe for concurrent use; the GPS manager's single reader
// goroutine owns it exclusively, same as the rest of the reader's state.
type Decoder struct {
	gsvBuffer []gpsdata.Satellite
}

// NewDecoder returns a Decoder with a clean GSV reassembly buffer.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Reset clears any in-progress GSV reassembly.
func (d *Decoder) Reset() {
	d.gsvBuffer = nil
}

// Parse decodes one raw sentence into a partial observation. GSV sentences
// only yield a non-nil satellite list once the final part of the sequence
// arrives; earlier parts return an otherwise-empty observation while the
// decoder accumulates satellites internally.
func (d *Decoder) Parse(raw string) (gpsdata.Observation, error) {
	f, err := split(raw)
	if err != nil {
		return gpsdata.Observation{}, err
	}

	switch f.kind {
	case "GGA":
		return parseGGA(f)
	case "RMC":
		return parseRMC(f)
	case "VTG":
		return parseVTG(f)
	case "GSA":
		return parseGSA(f)
	case "GLL":
		return parseGLL(f)
	case "GSV":
		return d.parseGSV(f)
	default:
		return gpsdata.Observation{}, &ParseError{raw, fmt.Sprintf("unsupported sentence type %s", f.kind)}
	}
}

func (d *Decoder) parseGSV(f fields) (gpsdata.Observation, error) {
	if len(f.parts) < 3 {
		return gpsdata.Observation{}, &ParseError{f.kind, "not enough fields in GSV"}
	}
	total, _ := parseIntField(f.parts[0])
	msgNum, _ := parseIntField(f.parts[1])

	if msgNum == 1 {
		d.gsvBuffer = nil
	}
	d.gsvBuffer = append(d.gsvBuffer, parseGSVSatellites(f.parts, constellationForTalker(f.talker))...)

	var o gpsdata.Observation
	if msgNum == total {
		o.Satellites = d.gsvBuffer
		d.gsvBuffer = nil
	}
	return o, nil
}
