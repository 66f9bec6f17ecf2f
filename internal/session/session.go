// Package session wires the GPS Manager, Acceptance Runner, Optimization
// Controller, criteria configuration, and report store into the synchronous
// request/response command surface a front-end drives.
package session

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tony-sparks-nz/Scout-GPS-Studio/internal/acceptance"
	"github.com/tony-sparks-nz/Scout-GPS-Studio/internal/apierr"
	"github.com/tony-sparks-nz/Scout-GPS-Studio/internal/clock"
	"github.com/tony-sparks-nz/Scout-GPS-Studio/internal/config"
	"github.com/tony-sparks-nz/Scout-GPS-Studio/internal/gpsdata"
	"github.com/tony-sparks-nz/Scout-GPS-Studio/internal/gpsmanager"
	"github.com/tony-sparks-nz/Scout-GPS-Studio/internal/optimize"
	"github.com/tony-sparks-nz/Scout-GPS-Studio/internal/report"
)

const probeTimeout = 3 * time.Second

// AutoDetectResult is the port/baud pair auto_detect_gps resolves to.
type AutoDetectResult struct {
	Port gpsdata.PortDescriptor `json:"port"`
	Baud int                    `json:"baud"`
}

// AcceptanceResult is the externally visible snapshot get_test_status
// returns: the device under test plus the runner's latest evaluation.
type AcceptanceResult struct {
	Device      gpsdata.PortDescriptor       `json:"device"`
	Verdict     acceptance.Verdict           `json:"verdict"`
	Criteria    []acceptance.CriterionResult `json:"criteria,omitempty"`
	TTFFSeconds *float64                     `json:"ttff_seconds"`
	BestGPSData gpsdata.Observation          `json:"best_gps_data"`
}

// Session holds everything one front-end session needs: the GPS Manager it
// never lets outside callers touch directly, the current acceptance run (if
// any), the optimization controller, and the persisted-report store. All
// operations are synchronous and safe for concurrent use from multiple
// caller goroutines.
type Session struct {
	mu sync.Mutex

	manager *gpsmanager.Manager
	store   *report.Store
	clk     clock.Clock
	log     logrus.FieldLogger

	criteria acceptance.Criteria
	runner   *acceptance.Runner
	device   gpsdata.PortDescriptor

	controller *optimize.Controller
}

// New wires a Session around an already-constructed Manager and Store. The
// acceptance criteria are loaded from the optional config file, falling
// back to defaults.
func New(manager *gpsmanager.Manager, store *report.Store, clk clock.Clock, log logrus.FieldLogger) *Session {
	if log == nil {
		log = logrus.New()
	}
	s := &Session{
		manager:    manager,
		store:      store,
		clk:        clk,
		log:        log,
		criteria:   config.LoadCriteria(log),
		device:     gpsdata.PortDescriptor{Path: "None"},
		controller: optimize.New(manager, clk, log),
	}
	manager.SetUBXListener(s.controller)
	return s
}

// ListSerialPorts enumerates every system serial port.
func (s *Session) ListSerialPorts() Response[[]gpsdata.PortDescriptor] {
	ports, err := s.manager.ListPorts()
	if err != nil {
		return fail[[]gpsdata.PortDescriptor](&apierr.SerialPortError{Op: "enumerate", Err: err})
	}
	return ok(ports)
}

// AutoDetectGPS probes every enumerated port, likely-GNSS ports first, at
// each of the fallback baud rates.
func (s *Session) AutoDetectGPS() Response[AutoDetectResult] {
	port, baud, err := s.manager.AutoDetect()
	if err != nil {
		return fail[AutoDetectResult](apierr.ErrNoGpsDetected)
	}
	return ok(AutoDetectResult{Port: port, Baud: baud})
}

// TestGPSPort probes a single port/baud combination without connecting.
func (s *Session) TestGPSPort(port string, baud int) Response[bool] {
	matched, err := s.manager.Probe(port, baud, probeTimeout)
	if err != nil {
		return fail[bool](&apierr.SerialPortError{Op: "probe", Err: err})
	}
	return ok(matched)
}

// ConnectGPS opens a connection and starts the background reader. The port
// is looked up among the enumerated descriptors so the manager has the
// USB VID/manufacturer/product metadata the conditional u-blox bring-up
// gate needs; an unrecognized path still connects with a bare descriptor.
func (s *Session) ConnectGPS(path string, baud int) Response[bool] {
	if err := s.manager.Connect(s.lookupPort(path), baud); err != nil {
		return fail[bool](&apierr.SerialPortError{Op: "connect", Err: err})
	}
	return ok(true)
}

func (s *Session) lookupPort(path string) gpsdata.PortDescriptor {
	if ports, err := s.manager.ListPorts(); err == nil {
		for _, p := range ports {
			if p.Path == path {
				return p
			}
		}
	}
	return gpsdata.PortDescriptor{Path: path}
}

// DisconnectGPS stops the reader and releases the port.
func (s *Session) DisconnectGPS() Response[bool] {
	if err := s.manager.Disconnect(); err != nil {
		return fail[bool](err)
	}
	return ok(true)
}

// GetGPSData returns the current cumulative observation.
func (s *Session) GetGPSData() Response[gpsdata.Observation] {
	return ok(s.manager.Observation())
}

// GetGPSStatus returns the current connection status.
func (s *Session) GetGPSStatus() Response[gpsdata.ConnectionStatus] {
	return ok(s.manager.Status())
}

// GetNMEABuffer returns the raw sentence ring, oldest first.
func (s *Session) GetNMEABuffer() Response[[]string] {
	return ok(s.manager.NMEABuffer())
}

// ClearNMEABuffer empties the raw sentence ring.
func (s *Session) ClearNMEABuffer() Response[bool] {
	s.manager.ClearNMEABuffer()
	return ok(true)
}

// GetTestCriteria returns the acceptance criteria currently in effect.
func (s *Session) GetTestCriteria() Response[acceptance.Criteria] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ok(s.criteria)
}

// SetTestCriteria overrides the acceptance criteria for subsequent runs and
// persists them to the config file.
func (s *Session) SetTestCriteria(c acceptance.Criteria) Response[bool] {
	s.mu.Lock()
	s.criteria = c
	s.mu.Unlock()

	if err := config.SaveCriteria(c); err != nil {
		return fail[bool](&apierr.PersistenceError{Op: "save criteria", Err: err})
	}
	return ok(true)
}

// ResetTestCriteria restores the built-in defaults and returns them.
func (s *Session) ResetTestCriteria() Response[acceptance.Criteria] {
	defaults := acceptance.DefaultCriteria()
	s.mu.Lock()
	s.criteria = defaults
	s.mu.Unlock()

	if err := config.SaveCriteria(defaults); err != nil {
		return fail[acceptance.Criteria](&apierr.PersistenceError{Op: "save criteria", Err: err})
	}
	return ok(defaults)
}

// StartTest starts a new acceptance run against the currently connected
// port, capturing it as the device under test.
func (s *Session) StartTest() Response[bool] {
	status := s.manager.Status()
	if status.Port == nil {
		return fail[bool](apierr.ErrNoGPSConnected)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.device = *status.Port
	s.runner = acceptance.New(s.criteria, s.clk, s.log)
	s.runner.Start()
	return ok(true)
}

// GetTestStatus samples the latest observation into the runner and returns
// the resulting snapshot. When no test has ever been started, it returns a
// synthetic not-started result rather than an error, matching the command
// surface's "no runner exists" fallback.
func (s *Session) GetTestStatus() Response[AcceptanceResult] {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.runner == nil {
		return ok(AcceptanceResult{
			Device:  gpsdata.PortDescriptor{Path: "None"},
			Verdict: acceptance.VerdictNotStarted,
		})
	}

	obs := s.manager.Observation()
	result := s.runner.Evaluate(obs)
	return ok(AcceptanceResult{
		Device:      s.device,
		Verdict:     result.Verdict,
		Criteria:    result.Criteria,
		TTFFSeconds: result.TTFFSeconds,
		BestGPSData: obs,
	})
}

// AbortTest forces the running test to a terminal verdict immediately.
func (s *Session) AbortTest() Response[bool] {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runner == nil {
		return fail[bool](apierr.ErrNoRunner)
	}
	s.runner.Abort()
	return ok(true)
}

// SaveTestReport persists the current test result to disk and pushes it
// onto the bounded recent-results list.
func (s *Session) SaveTestReport() Response[string] {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.runner == nil {
		return fail[string](apierr.ErrNoRunner)
	}

	obs := s.manager.Observation()
	result := s.runner.Evaluate(obs)

	path, err := s.store.Save(report.TestResult{
		Device:      s.device,
		Verdict:     result.Verdict,
		Criteria:    result.Criteria,
		TTFFSeconds: result.TTFFSeconds,
		BestGPSData: obs,
	})
	if err != nil {
		return fail[string](&apierr.PersistenceError{Op: "save report", Err: err})
	}
	return ok(path)
}

// GetRecentResults returns the bounded list of previously saved reports.
func (s *Session) GetRecentResults() Response[[]report.TestResult] {
	return ok(s.store.Recent())
}

// StartOptimization begins a fresh before/after optimization run against
// the currently connected port.
func (s *Session) StartOptimization() Response[bool] {
	status := s.manager.Status()
	if status.Port == nil {
		return fail[bool](apierr.ErrNoGPSConnected)
	}
	if err := s.controller.Start(); err != nil {
		return fail[bool](err)
	}
	return ok(true)
}

// GetOptimizationStatus samples the latest observation into the controller
// and returns its current phase/report snapshot.
func (s *Session) GetOptimizationStatus() Response[optimize.Status] {
	s.controller.Tick(s.manager.Observation())
	return ok(s.controller.Status())
}

// ResetOptimization returns the controller to idle.
func (s *Session) ResetOptimization() Response[bool] {
	s.controller.Reset()
	return ok(true)
}
