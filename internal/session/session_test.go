package session

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tony-sparks-nz/Scout-GPS-Studio/internal/acceptance"
	"github.com/tony-sparks-nz/Scout-GPS-Studio/internal/clock"
	"github.com/tony-sparks-nz/Scout-GPS-Studio/internal/gpsdata"
	"github.com/tony-sparks-nz/Scout-GPS-Studio/internal/gpsmanager"
	"github.com/tony-sparks-nz/Scout-GPS-Studio/internal/gpsport"
	"github.com/tony-sparks-nz/Scout-GPS-Studio/internal/report"
)

// fakePort is a minimal in-memory gpsport.Port that replays a fixed set of
// lines and then idles, mirroring gpsmanager's own test fixture.
type fakePort struct {
	mu     sync.Mutex
	chunks [][]byte
}

func newFakePort(lines ...string) *fakePort {
	p := &fakePort{}
	for _, l := range lines {
		p.chunks = append(p.chunks, []byte(l))
	}
	return p
}

func (p *fakePort) Open(string, int) error { return nil }
func (p *fakePort) Close() error           { return nil }

func (p *fakePort) Read(buf []byte) (int, error) {
	p.mu.Lock()
	if len(p.chunks) == 0 {
		p.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
		return 0, nil
	}
	chunk := p.chunks[0]
	p.chunks = p.chunks[1:]
	p.mu.Unlock()
	return copy(buf, chunk), nil
}

func (p *fakePort) Write(data []byte) (int, error)     { return len(data), nil }
func (p *fakePort) SetReadTimeout(time.Duration) error { return nil }

func testLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

// nmeaSentence joins body with a freshly computed XOR checksum, so fixture
// sentences stay valid without hand-computing hex by inspection.
func nmeaSentence(body string) string {
	var sum byte
	for i := 0; i < len(body); i++ {
		sum ^= body[i]
	}
	return fmt.Sprintf("$%s*%02X\r\n", body, sum)
}

func newTestSession(t *testing.T, clk clock.Clock, port gpsport.Port) (*Session, *gpsmanager.Manager) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("USERPROFILE", dir)

	m := gpsmanager.New(func() gpsport.Port { return port }, testLogger())
	store := report.NewStore()
	s := New(m, store, clk, testLogger())
	return s, m
}

func TestStartTestFailsWithoutConnection(t *testing.T) {
	s, _ := newTestSession(t, clock.Real(), newFakePort())
	resp := s.StartTest()
	assert.False(t, resp.Success)
	assert.Equal(t, "No GPS connected", resp.Error)
}

func TestGetTestStatusSyntheticWhenNoRunner(t *testing.T) {
	s, _ := newTestSession(t, clock.Real(), newFakePort())
	resp := s.GetTestStatus()
	require.True(t, resp.Success)
	assert.Equal(t, acceptance.VerdictNotStarted, resp.Data.Verdict)
	assert.Equal(t, "None", resp.Data.Device.Path)
}

func TestAbortTestFailsWithoutRunner(t *testing.T) {
	s, _ := newTestSession(t, clock.Real(), newFakePort())
	resp := s.AbortTest()
	assert.False(t, resp.Success)
}

func TestSaveTestReportFailsWithoutRunner(t *testing.T) {
	s, _ := newTestSession(t, clock.Real(), newFakePort())
	resp := s.SaveTestReport()
	assert.False(t, resp.Success)
}

func TestCriteriaRoundTripAndReset(t *testing.T) {
	s, _ := newTestSession(t, clock.Real(), newFakePort())

	custom := acceptance.DefaultCriteria()
	custom.MinSatellites = 9
	setResp := s.SetTestCriteria(custom)
	require.True(t, setResp.Success)

	getResp := s.GetTestCriteria()
	assert.Equal(t, 9, getResp.Data.MinSatellites)

	resetResp := s.ResetTestCriteria()
	require.True(t, resetResp.Success)
	assert.Equal(t, acceptance.DefaultCriteria(), *resetResp.Data)
}

func TestStartOptimizationFailsWithoutConnection(t *testing.T) {
	s, _ := newTestSession(t, clock.Real(), newFakePort())
	resp := s.StartOptimization()
	assert.False(t, resp.Success)
}

func TestGetRecentResultsEmptyBeforeAnySave(t *testing.T) {
	s, _ := newTestSession(t, clock.Real(), newFakePort())
	assert.Empty(t, s.GetRecentResults().Data)
}

// TestFullAcceptanceFlowPassesAndSaves drives a connected manager with a
// steady stream of sentences that satisfy every criterion, confirms the
// runner reaches pass once the stability window elapses, and saves the
// resulting report through the store.
func TestFullAcceptanceFlowPassesAndSaves(t *testing.T) {
	gga := nmeaSentence("GPGGA,092750.000,5321.6802,N,00630.3372,W,1,8,1.03,61.7,M,55.2,M,,")
	gsa := nmeaSentence("GPGSA,A,3,01,02,03,04,05,22,23,24,,,,,2.00,1.03,1.70")
	gsv1 := nmeaSentence("GPGSV,2,1,08,01,40,083,35,02,17,308,32,03,10,120,31,04,25,200,30")
	gsv2 := nmeaSentence("GLGSV,2,2,08,22,40,083,29,23,17,308,28,24,10,120,27,25,25,200,31")

	var lines []string
	for i := 0; i < 40; i++ {
		lines = append(lines, gga, gsa, gsv1, gsv2)
	}
	port := newFakePort(lines...)

	fake := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	s, m := newTestSession(t, fake, port)

	require.True(t, m.Connect(gpsdata.PortDescriptor{Path: "COM-FAKE"}, 9600) == nil)
	defer m.Disconnect()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if m.Observation().HDOP != nil {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	require.NotNil(t, m.Observation().HDOP)

	require.True(t, s.StartTest().Success)

	var last Response[AcceptanceResult]
	for sec := 0; sec <= 11; sec++ {
		last = s.GetTestStatus()
		if sec < 11 {
			fake.Advance(time.Second)
		}
	}

	require.True(t, last.Success)
	assert.Equal(t, acceptance.VerdictPass, last.Data.Verdict)

	saveResp := s.SaveTestReport()
	require.True(t, saveResp.Success)
	assert.FileExists(t, *saveResp.Data)

	recent := s.GetRecentResults()
	require.Len(t, *recent.Data, 1)
	assert.Equal(t, acceptance.VerdictPass, (*recent.Data)[0].Verdict)
}
