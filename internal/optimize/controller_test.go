package optimize

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tony-sparks-nz/Scout-GPS-Studio/internal/clock"
	"github.com/tony-sparks-nz/Scout-GPS-Studio/internal/gpsdata"
	"github.com/tony-sparks-nz/Scout-GPS-Studio/internal/ubx"
)

type fakeSink struct {
	queued  [][]byte
	pending int
}

func (s *fakeSink) QueueUBX(frames ...[]byte) error {
	s.queued = append(s.queued, frames...)
	return nil
}

func (s *fakeSink) PendingUBXCommands() int { return s.pending }

func testLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func series8MonVerPayload() []byte {
	payload := make([]byte, 70)
	copy(payload[0:30], []byte("ROM CORE 3.01 (107888)"))
	copy(payload[30:40], []byte("00080000"))
	copy(payload[40:70], []byte("FWVER=SPG 3.01"))
	return payload
}

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func sampleObservation() gpsdata.Observation {
	return gpsdata.Observation{
		HDOP:            floatPtr(1.0),
		SatellitesInFix: intPtr(8),
		FixQuality:      intPtr(1),
		Satellites: []gpsdata.Satellite{
			{PRN: "1", SNR: 35, Constellation: "GPS"},
		},
	}
}

func TestControllerIdentifiesSeries8AndQueuesFullProfile(t *testing.T) {
	fake := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	sink := &fakeSink{}
	c := New(sink, fake, testLogger())

	require.NoError(t, c.Start())
	assert.Equal(t, PhaseIdentifyingChip, c.Status().Phase)

	c.OnUBX(ubx.Message{Class: ubx.ClassMON, ID: ubx.IDMONVER, Payload: series8MonVerPayload()})
	status := c.Status()
	require.Equal(t, PhaseCollectingBaseline, status.Phase)
	require.NotNil(t, status.Chip)
	assert.Equal(t, ubx.Series8, status.Chip.Series)

	sink.queued = nil
	for i := 0; i < 30; i++ {
		fake.Advance(time.Second)
		c.Tick(sampleObservation())
	}
	require.Equal(t, PhaseApplyingProfile, c.Status().Phase)
	assert.GreaterOrEqual(t, len(sink.queued), 10)
	assert.Equal(t, ubx.CFGCFGSaveAll(), sink.queued[len(sink.queued)-1])
}

func TestControllerFullLifecycleReachesComplete(t *testing.T) {
	fake := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	sink := &fakeSink{}
	c := New(sink, fake, testLogger())

	require.NoError(t, c.Start())
	c.OnUBX(ubx.Message{Class: ubx.ClassMON, ID: ubx.IDMONVER, Payload: series8MonVerPayload()})

	baselineObs := sampleObservation()
	for i := 0; i < 30; i++ {
		fake.Advance(time.Second)
		c.Tick(baselineObs)
	}
	require.Equal(t, PhaseApplyingProfile, c.Status().Phase)

	sink.pending = 0
	fake.Advance(2 * time.Second)
	c.Tick(baselineObs)
	require.Equal(t, PhaseStabilizing, c.Status().Phase)

	for i := 0; i < 30; i++ {
		fake.Advance(time.Second)
		c.Tick(baselineObs)
	}
	require.Equal(t, PhaseCollectingResult, c.Status().Phase)

	betterObs := sampleObservation()
	*betterObs.HDOP = 0.5
	for i := 0; i < 30; i++ {
		fake.Advance(time.Second)
		c.Tick(betterObs)
	}

	status := c.Status()
	require.Equal(t, PhaseComplete, status.Phase)
	require.NotNil(t, status.Report)
	assert.Greater(t, status.Report.HDOPImprovementPct, 0.0)
}

func TestControllerMonVerTimeoutEntersError(t *testing.T) {
	fake := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	sink := &fakeSink{}
	c := New(sink, fake, testLogger())

	require.NoError(t, c.Start())
	fake.Advance(6 * time.Second)
	c.Tick(gpsdata.Observation{})

	status := c.Status()
	assert.Equal(t, PhaseError, status.Phase)
	assert.Contains(t, status.Error, "MON-VER")
}

func TestControllerResetReturnsToIdle(t *testing.T) {
	fake := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	sink := &fakeSink{}
	c := New(sink, fake, testLogger())

	require.NoError(t, c.Start())
	c.Reset()
	assert.Equal(t, PhaseIdle, c.Status().Phase)
}
