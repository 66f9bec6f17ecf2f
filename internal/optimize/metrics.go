package optimize

import (
	"sort"

	"github.com/tony-sparks-nz/Scout-GPS-Studio/internal/gpsdata"
)

// PerformanceSnapshot is the averaged result of a sampling window.
type PerformanceSnapshot struct {
	AvgHDOP            float64  `json:"avg_hdop"`
	AvgSatellites      float64  `json:"avg_satellites"`
	AvgSNR             float64  `json:"avg_snr"`
	FixQualityAvg      float64  `json:"fix_quality_avg"`
	ConstellationCount int      `json:"constellation_count"`
	Constellations     []string `json:"constellations"`
	SampleCount        int      `json:"sample_count"`
}

// collector accumulates per-tick samples over a sampling window and reduces
// them to a PerformanceSnapshot.
type collector struct {
	hdopSamples       []float64
	satelliteSamples  []float64
	snrSamples        []float64
	fixQualitySamples []float64
	constellations    map[string]struct{}
}

func newCollector() *collector {
	return &collector{constellations: map[string]struct{}{}}
}

// sample folds one observation tick into the collector.
func (c *collector) sample(obs gpsdata.Observation) {
	if obs.HDOP != nil {
		c.hdopSamples = append(c.hdopSamples, *obs.HDOP)
	}
	if obs.SatellitesInFix != nil {
		c.satelliteSamples = append(c.satelliteSamples, float64(*obs.SatellitesInFix))
	}
	if obs.FixQuality != nil {
		c.fixQualitySamples = append(c.fixQualitySamples, float64(*obs.FixQuality))
	}

	var sum float64
	var count int
	for _, s := range obs.Satellites {
		if s.SNR > 0 {
			sum += float64(s.SNR)
			count++
		}
		if s.Constellation != "" {
			c.constellations[s.Constellation] = struct{}{}
		}
	}
	if count > 0 {
		c.snrSamples = append(c.snrSamples, sum/float64(count))
	}
}

func average(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// snapshot reduces the accumulated samples to a PerformanceSnapshot.
func (c *collector) snapshot() PerformanceSnapshot {
	constellations := make([]string, 0, len(c.constellations))
	for k := range c.constellations {
		constellations = append(constellations, k)
	}
	sort.Strings(constellations)

	sampleCount := len(c.hdopSamples)
	if len(c.satelliteSamples) > sampleCount {
		sampleCount = len(c.satelliteSamples)
	}

	return PerformanceSnapshot{
		AvgHDOP:            average(c.hdopSamples),
		AvgSatellites:      average(c.satelliteSamples),
		AvgSNR:             average(c.snrSamples),
		FixQualityAvg:      average(c.fixQualitySamples),
		ConstellationCount: len(constellations),
		Constellations:     constellations,
		SampleCount:        sampleCount,
	}
}

// OptimizationReport is the before/after delta produced on completion.
type OptimizationReport struct {
	Chip                    string              `json:"chip"`
	ProfileName             string              `json:"profile_name"`
	Before                  PerformanceSnapshot `json:"before"`
	After                   PerformanceSnapshot `json:"after"`
	HDOPImprovementPct      float64             `json:"hdop_improvement_pct"`
	SatelliteImprovementPct float64             `json:"satellite_improvement_pct"`
	SNRImprovementPct       float64             `json:"snr_improvement_pct"`
	ConstellationDelta      int                 `json:"constellation_delta"`
	Timestamp               string              `json:"timestamp"`
}

func improvementPct(before, after float64, lowerIsBetter bool) float64 {
	if before == 0 {
		return 0
	}
	if lowerIsBetter {
		return (before - after) / before * 100
	}
	return (after - before) / before * 100
}

func buildReport(chip, profile string, before, after PerformanceSnapshot, timestamp string) OptimizationReport {
	return OptimizationReport{
		Chip:                    chip,
		ProfileName:             profile,
		Before:                  before,
		After:                   after,
		HDOPImprovementPct:      improvementPct(before.AvgHDOP, after.AvgHDOP, true),
		SatelliteImprovementPct: improvementPct(before.AvgSatellites, after.AvgSatellites, false),
		SNRImprovementPct:       improvementPct(before.AvgSNR, after.AvgSNR, false),
		ConstellationDelta:      after.ConstellationCount - before.ConstellationCount,
		Timestamp:               timestamp,
	}
}
