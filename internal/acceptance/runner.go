// Package acceptance implements the streaming pass/fail state machine that
// gates a GNSS receiver against a fixed set of criteria before it leaves the
// factory floor.
package acceptance

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tony-sparks-nz/Scout-GPS-Studio/internal/clock"
	"github.com/tony-sparks-nz/Scout-GPS-Studio/internal/gpsdata"
)

// Verdict is the terminal or in-progress state of a test run.
type Verdict string

const (
	VerdictNotStarted Verdict = "not-started"
	VerdictRunning    Verdict = "running"
	VerdictPass       Verdict = "pass"
	VerdictFail       Verdict = "fail"
	VerdictTimedOut   Verdict = "timed-out"
)

// CriterionResult is the outcome of one of the eight ordered criteria.
type CriterionResult struct {
	Name     string `json:"name"`
	Passed   bool   `json:"passed"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
}

// Result is a full snapshot of one evaluation.
type Result struct {
	Verdict     Verdict           `json:"verdict"`
	Criteria    []CriterionResult `json:"criteria"`
	TTFFSeconds *float64          `json:"ttff_seconds,omitempty"`
}

// Runner evaluates a live observation stream against Criteria. It is driven
// externally by repeated Evaluate calls; it never spawns its own timer.
type Runner struct {
	criteria Criteria
	clk      clock.Clock
	log      logrus.FieldLogger

	start       time.Time
	firstFixAt  *time.Time
	stableSince *time.Time

	last Result
}

// New returns a Runner in state not-started; call Start to begin timing.
func New(criteria Criteria, clk clock.Clock, log logrus.FieldLogger) *Runner {
	if log == nil {
		log = logrus.New()
	}
	return &Runner{
		criteria: criteria,
		clk:      clk,
		log:      log,
		last:     Result{Verdict: VerdictNotStarted},
	}
}

// Start begins timing the run from the current clock reading.
func (r *Runner) Start() {
	r.start = r.clk.Now()
	r.firstFixAt = nil
	r.stableSince = nil
	r.last = Result{Verdict: VerdictRunning}
}

// Verdict returns the most recent verdict.
func (r *Runner) Verdict() Verdict {
	return r.last.Verdict
}

func isTerminal(v Verdict) bool {
	return v == VerdictPass || v == VerdictFail || v == VerdictTimedOut
}

// Evaluate runs the eight ordered criteria against obs and advances the
// state machine. Once the verdict is terminal, further calls are no-ops
// that return the frozen last result.
func (r *Runner) Evaluate(obs gpsdata.Observation) Result {
	if isTerminal(r.last.Verdict) {
		return r.last
	}
	if r.last.Verdict == VerdictNotStarted {
		r.Start()
	}

	now := r.clk.Now()
	results := make([]CriterionResult, 0, 8)

	satCount := 0
	if obs.SatellitesInFix != nil {
		satCount = *obs.SatellitesInFix
	}
	results = append(results, CriterionResult{
		Name:     "Satellite Count",
		Passed:   satCount >= r.criteria.MinSatellites,
		Expected: fmt.Sprintf("≥ %d", r.criteria.MinSatellites),
		Actual:   fmt.Sprintf("%d", satCount),
	})

	hdopOK := obs.HDOP != nil && *obs.HDOP <= r.criteria.MaxHDOP
	results = append(results, CriterionResult{
		Name:     "HDOP",
		Passed:   hdopOK,
		Expected: fmt.Sprintf("≤ %.2f", r.criteria.MaxHDOP),
		Actual:   floatOrMissing(obs.HDOP),
	})

	pdopOK := obs.PDOP != nil && *obs.PDOP <= r.criteria.MaxPDOP
	results = append(results, CriterionResult{
		Name:     "PDOP",
		Passed:   pdopOK,
		Expected: fmt.Sprintf("≤ %.2f", r.criteria.MaxPDOP),
		Actual:   floatOrMissing(obs.PDOP),
	})

	avgSNR := averageSNR(obs.Satellites)
	results = append(results, CriterionResult{
		Name:     "Average SNR",
		Passed:   avgSNR >= r.criteria.MinAvgSNR,
		Expected: fmt.Sprintf("≥ %.1f dB", r.criteria.MinAvgSNR),
		Actual:   fmt.Sprintf("%.1f dB", avgSNR),
	})

	strong := countStrongSatellites(obs.Satellites)
	results = append(results, CriterionResult{
		Name:     "Strong Satellites",
		Passed:   strong >= r.criteria.MinStrongSatellites,
		Expected: fmt.Sprintf("≥ %d at ≥%d dB", r.criteria.MinStrongSatellites, strongSNRThreshold),
		Actual:   fmt.Sprintf("%d", strong),
	})

	constellations := countConstellations(obs.Satellites)
	results = append(results, CriterionResult{
		Name:     "Constellations",
		Passed:   constellations >= r.criteria.MinConstellations,
		Expected: fmt.Sprintf("≥ %d", r.criteria.MinConstellations),
		Actual:   fmt.Sprintf("%d", constellations),
	})

	fixQuality := 0
	if obs.FixQuality != nil {
		fixQuality = *obs.FixQuality
	}
	fixQualityOK := fixQuality >= r.criteria.MinFixQuality
	results = append(results, CriterionResult{
		Name:     "Fix Quality",
		Passed:   fixQualityOK,
		Expected: fmt.Sprintf("≥ %d", r.criteria.MinFixQuality),
		Actual:   fmt.Sprintf("%d", fixQuality),
	})

	if fixQualityOK && r.firstFixAt == nil {
		fixTime := now
		r.firstFixAt = &fixTime
	}

	ttffResult := CriterionResult{Name: "Time To First Fix", Expected: fmt.Sprintf("≤ %ds", r.criteria.MaxTTFFSeconds)}
	var ttffSeconds *float64
	if r.firstFixAt != nil {
		secs := r.firstFixAt.Sub(r.start).Seconds()
		ttffSeconds = &secs
		ttffResult.Passed = true
		ttffResult.Actual = fmt.Sprintf("%.1fs", secs)
	} else {
		ttffResult.Passed = false
		ttffResult.Actual = "Waiting…"
	}
	results = append(results, ttffResult)

	allPass := true
	for _, c := range results {
		if !c.Passed {
			allPass = false
			break
		}
	}

	if allPass {
		if r.stableSince == nil {
			t := now
			r.stableSince = &t
		}
	} else {
		r.stableSince = nil
	}

	verdict := VerdictRunning
	if r.stableSince != nil {
		stableFor := now.Sub(*r.stableSince).Seconds()
		if stableFor >= float64(r.criteria.StabilityDurationSecs) {
			verdict = VerdictPass
		}
	}

	if verdict != VerdictPass {
		total := 3*float64(r.criteria.MaxTTFFSeconds) + float64(r.criteria.StabilityDurationSecs)
		elapsed := now.Sub(r.start).Seconds()
		if elapsed > total {
			if r.firstFixAt == nil {
				verdict = VerdictTimedOut
			} else {
				verdict = VerdictFail
			}
		}
	}

	r.last = Result{Verdict: verdict, Criteria: results, TTFFSeconds: ttffSeconds}
	if isTerminal(verdict) {
		r.log.Infof("acceptance test finished: %s", verdict)
	}
	return r.last
}

// Abort forces a run still in progress (not-started or running) to fail.
// A run that has already reached a terminal verdict keeps it.
func (r *Runner) Abort() {
	if !isTerminal(r.last.Verdict) {
		r.last.Verdict = VerdictFail
	}
}

func floatOrMissing(v *float64) string {
	if v == nil {
		return "missing"
	}
	return fmt.Sprintf("%.2f", *v)
}

func averageSNR(sats []gpsdata.Satellite) float64 {
	var sum float64
	var count int
	for _, s := range sats {
		if s.SNR > 0 {
			sum += float64(s.SNR)
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

func countStrongSatellites(sats []gpsdata.Satellite) int {
	count := 0
	for _, s := range sats {
		if s.SNR >= strongSNRThreshold {
			count++
		}
	}
	return count
}

func countConstellations(sats []gpsdata.Satellite) int {
	seen := map[string]struct{}{}
	for _, s := range sats {
		if s.Constellation != "" {
			seen[s.Constellation] = struct{}{}
		}
	}
	return len(seen)
}
