package nmea

import (
	"strings"

	"github.com/tony-sparks-nz/Scout-GPS-Studio/internal/gpsdata"
)

func parseGGA(f fields) (gpsdata.Observation, error) {
	if len(f.parts) < 10 {
		return gpsdata.Observation{}, &ParseError{f.kind, "not enough fields in GGA"}
	}
	var o gpsdata.Observation

	o.FixTimeUTC = ptrS(f.parts[0])

	lat, latOK := coordinate(f.parts[1], f.parts[2])
	lon, lonOK := coordinate(f.parts[3], f.parts[4])
	o.Latitude = ptrF(lat, latOK)
	o.Longitude = ptrF(lon, lonOK)

	o.FixQuality = ptrI(parseIntField(f.parts[5]))
	o.SatellitesInFix = ptrI(parseIntField(f.parts[6]))
	o.HDOP = ptrF(parseFloatField(f.parts[7]))
	o.Altitude = ptrF(parseFloatField(f.parts[8]))

	return o, nil
}

func parseRMC(f fields) (gpsdata.Observation, error) {
	if len(f.parts) < 11 {
		return gpsdata.Observation{}, &ParseError{f.kind, "not enough fields in RMC"}
	}
	var o gpsdata.Observation

	o.FixTimeUTC = ptrS(f.parts[0])

	lat, latOK := coordinate(f.parts[2], f.parts[3])
	lon, lonOK := coordinate(f.parts[4], f.parts[5])
	o.Latitude = ptrF(lat, latOK)
	o.Longitude = ptrF(lon, lonOK)

	o.SpeedKnots = ptrF(parseFloatField(f.parts[6]))
	o.CourseDeg = ptrF(parseFloatField(f.parts[7]))

	return o, nil
}

func parseVTG(f fields) (gpsdata.Observation, error) {
	if len(f.parts) < 8 {
		return gpsdata.Observation{}, &ParseError{f.kind, "not enough fields in VTG"}
	}
	var o gpsdata.Observation

	o.CourseDeg = ptrF(parseFloatField(f.parts[0]))
	o.SpeedKnots = ptrF(parseFloatField(f.parts[4]))

	return o, nil
}

func parseGSA(f fields) (gpsdata.Observation, error) {
	if len(f.parts) < 17 {
		return gpsdata.Observation{}, &ParseError{f.kind, "not enough fields in GSA"}
	}
	var o gpsdata.Observation

	mode2, ok := parseIntField(f.parts[1])
	if ok {
		o.FixType = ptrS(fixTypeName(mode2))
	}
	o.PDOP = ptrF(parseFloatField(f.parts[14]))
	o.HDOP = ptrF(parseFloatField(f.parts[15]))
	o.VDOP = ptrF(parseFloatField(f.parts[16]))

	return o, nil
}

func parseGLL(f fields) (gpsdata.Observation, error) {
	if len(f.parts) < 6 {
		return gpsdata.Observation{}, &ParseError{f.kind, "not enough fields in GLL"}
	}
	var o gpsdata.Observation

	lat, latOK := coordinate(f.parts[0], f.parts[1])
	lon, lonOK := coordinate(f.parts[2], f.parts[3])
	o.Latitude = ptrF(lat, latOK)
	o.Longitude = ptrF(lon, lonOK)
	o.FixTimeUTC = ptrS(f.parts[4])

	return o, nil
}

// parseGSVSatellites walks the repeating four-field satellite groups of one
// GSV sentence. Slots with an empty PRN are skipped.
func parseGSVSatellites(parts []string, constellation string) []gpsdata.Satellite {
	var sats []gpsdata.Satellite
	for i := 3; i+4 <= len(parts); i += 4 {
		prn := strings.TrimSpace(parts[i])
		if prn == "" {
			continue
		}
		elev, _ := parseIntField(parts[i+1])
		az, _ := parseIntField(parts[i+2])
		snr, _ := parseIntField(parts[i+3])
		sats = append(sats, gpsdata.Satellite{
			PRN:           prn,
			Elevation:     elev,
			Azimuth:       az,
			SNR:           snr,
			Constellation: constellation,
		})
	}
	return sats
}
