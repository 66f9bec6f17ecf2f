package acceptance

// Criteria is the configurable pass/fail threshold set for one acceptance
// test run.
type Criteria struct {
	MinSatellites         int     `json:"min_satellites"`
	MaxHDOP               float64 `json:"max_hdop"`
	MaxPDOP               float64 `json:"max_pdop"`
	MinAvgSNR             float64 `json:"min_avg_snr"`
	MinStrongSatellites   int     `json:"min_strong_satellites"`
	MaxTTFFSeconds        int     `json:"max_ttff_seconds"`
	MinConstellations     int     `json:"min_constellations"`
	MinFixQuality         int     `json:"min_fix_quality"`
	StabilityDurationSecs int     `json:"stability_duration_seconds"`
}

// strongSNRThreshold is the fixed SNR floor (dB) a satellite must clear to
// count toward MinStrongSatellites.
const strongSNRThreshold = 30

// DefaultCriteria mirrors a mid-grade marine GNSS acceptance gate.
func DefaultCriteria() Criteria {
	return Criteria{
		MinSatellites:         6,
		MaxHDOP:               2.0,
		MaxPDOP:               3.0,
		MinAvgSNR:             25.0,
		MinStrongSatellites:   4,
		MaxTTFFSeconds:        60,
		MinConstellations:     2,
		MinFixQuality:         1,
		StabilityDurationSecs: 10,
	}
}
