package optimize

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tony-sparks-nz/Scout-GPS-Studio/internal/gpsdata"
)

func TestCollectorSnapshotAverages(t *testing.T) {
	c := newCollector()
	h1, h2 := 1.0, 2.0
	s1, s2 := 6, 8
	fq := 1
	c.sample(gpsdata.Observation{
		HDOP: &h1, SatellitesInFix: &s1, FixQuality: &fq,
		Satellites: []gpsdata.Satellite{{SNR: 30, Constellation: "GPS"}},
	})
	c.sample(gpsdata.Observation{
		HDOP: &h2, SatellitesInFix: &s2, FixQuality: &fq,
		Satellites: []gpsdata.Satellite{{SNR: 40, Constellation: "GLONASS"}},
	})

	snap := c.snapshot()
	assert.InDelta(t, 1.5, snap.AvgHDOP, 0.001)
	assert.InDelta(t, 7.0, snap.AvgSatellites, 0.001)
	assert.InDelta(t, 35.0, snap.AvgSNR, 0.001)
	assert.Equal(t, 2, snap.ConstellationCount)
	assert.Equal(t, []string{"GLONASS", "GPS"}, snap.Constellations)
	assert.Equal(t, 2, snap.SampleCount)
}

func TestImprovementPctHDOPLowerIsBetter(t *testing.T) {
	before := PerformanceSnapshot{AvgHDOP: 2.0}
	after := PerformanceSnapshot{AvgHDOP: 1.0}
	report := buildReport("chip", "profile", before, after, "2026-01-01T00:00:00Z")
	assert.InDelta(t, 50.0, report.HDOPImprovementPct, 0.001)
}

func TestImprovementPctZeroBeforeIsZero(t *testing.T) {
	before := PerformanceSnapshot{AvgHDOP: 0}
	after := PerformanceSnapshot{AvgHDOP: 1.0}
	report := buildReport("chip", "profile", before, after, "2026-01-01T00:00:00Z")
	assert.Equal(t, 0.0, report.HDOPImprovementPct)
}

func TestImprovementPctSatelliteHigherIsBetter(t *testing.T) {
	before := PerformanceSnapshot{AvgSatellites: 6}
	after := PerformanceSnapshot{AvgSatellites: 9}
	report := buildReport("chip", "profile", before, after, "2026-01-01T00:00:00Z")
	assert.InDelta(t, 50.0, report.SatelliteImprovementPct, 0.001)
}
