// Package optimize implements the seven-phase before/after optimization
// state machine: identify the connected chip, sample a baseline, push a
// tuned configuration profile, let the receiver settle, sample the result,
// and report the delta.
package optimize

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tony-sparks-nz/Scout-GPS-Studio/internal/clock"
	"github.com/tony-sparks-nz/Scout-GPS-Studio/internal/gpsdata"
	"github.com/tony-sparks-nz/Scout-GPS-Studio/internal/ubx"
)

// Phase is one state of the controller's lifecycle.
type Phase string

const (
	PhaseIdle               Phase = "idle"
	PhaseIdentifyingChip    Phase = "identifying-chip"
	PhaseCollectingBaseline Phase = "collecting-baseline"
	PhaseApplyingProfile    Phase = "applying-profile"
	PhaseStabilizing        Phase = "stabilizing"
	PhaseCollectingResult   Phase = "collecting-result"
	PhaseComplete           Phase = "complete"
	PhaseError              Phase = "error"
)

const (
	monVerTimeout      = 5 * time.Second
	baselineDuration   = 30 * time.Second
	stabilizeDuration  = 30 * time.Second
	resultDuration     = 30 * time.Second
	ubxCmdDrainPerItem = 100 * time.Millisecond
	ubxCmdDrainBuffer  = 500 * time.Millisecond
)

// CommandSink is the subset of the GPS Manager the controller needs to push
// UBX command bursts back through the connected port.
type CommandSink interface {
	QueueUBX(frames ...[]byte) error
	PendingUBXCommands() int
}

// Status is the externally visible snapshot of the controller's progress.
type Status struct {
	Phase     Phase               `json:"phase"`
	Chip      *ubx.ChipIdentity   `json:"chip,omitempty"`
	Error     string              `json:"error,omitempty"`
	Report    *OptimizationReport `json:"report,omitempty"`
	ElapsedMS int64               `json:"elapsed_ms"`
}

// Controller drives the optimization lifecycle. It is single-threaded under
// external mutual exclusion: Start/Tick/OnUBX/Reset/Status all take the same
// lock, matching the Runner's ownership model.
type Controller struct {
	mu   sync.Mutex
	sink CommandSink
	clk  clock.Clock
	log  logrus.FieldLogger

	phase          Phase
	phaseStartedAt time.Time
	awaitingMonVer bool
	errMsg         string

	chip              *ubx.ChipIdentity
	baseline          *collector
	result            *collector
	appliedCommandCnt int
	profileCommands   [][]byte
	report            *OptimizationReport
}

// New returns a Controller in phase idle.
func New(sink CommandSink, clk clock.Clock, log logrus.FieldLogger) *Controller {
	if log == nil {
		log = logrus.New()
	}
	return &Controller{sink: sink, clk: clk, log: log, phase: PhaseIdle}
}

// Start clears prior state, polls MON-VER, and enters identifying-chip.
func (c *Controller) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.phase = PhaseIdentifyingChip
	c.phaseStartedAt = c.clk.Now()
	c.awaitingMonVer = true
	c.errMsg = ""
	c.chip = nil
	c.baseline = nil
	c.result = nil
	c.report = nil
	c.profileCommands = nil
	c.appliedCommandCnt = 0

	if err := c.sink.QueueUBX(ubx.PollMonVer()); err != nil {
		c.fail(fmt.Sprintf("could not poll MON-VER: %v", err))
		return fmt.Errorf("optimize: start: %w", err)
	}
	c.log.Info("optimization started, polling MON-VER")
	return nil
}

// Reset returns the controller to idle regardless of its current phase.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.phase = PhaseIdle
	c.awaitingMonVer = false
	c.errMsg = ""
	c.chip = nil
	c.baseline = nil
	c.result = nil
	c.report = nil
	c.profileCommands = nil
}

func (c *Controller) fail(msg string) {
	c.phase = PhaseError
	c.errMsg = msg
	c.log.Errorf("optimization error: %s", msg)
}

// OnUBX is the gpsmanager.UBXListener hook; only MON-VER replies are
// meaningful here, received while identifying-chip and awaiting one.
func (c *Controller) OnUBX(msg ubx.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseIdentifyingChip || !c.awaitingMonVer {
		return
	}
	if msg.Class != ubx.ClassMON || msg.ID != ubx.IDMONVER {
		return
	}

	info, ok := ubx.ParseMonVer(msg.Payload)
	if !ok {
		c.fail("could not identify chip: malformed MON-VER reply")
		return
	}

	c.chip = &info
	c.awaitingMonVer = false
	c.baseline = newCollector()
	c.phase = PhaseCollectingBaseline
	c.phaseStartedAt = c.clk.Now()
	c.log.Infof("identified chip: %s (%s)", info.DisplayName, info.Series)
}

// Tick advances the state machine by one sampling poll (~500 ms cadence).
func (c *Controller) Tick(obs gpsdata.Observation) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elapsed := c.clk.Now().Sub(c.phaseStartedAt)

	switch c.phase {
	case PhaseIdle, PhaseComplete, PhaseError:
		return

	case PhaseIdentifyingChip:
		if c.awaitingMonVer && elapsed >= monVerTimeout {
			c.fail("could not identify chip: MON-VER timed out")
		}

	case PhaseCollectingBaseline:
		c.baseline.sample(obs)
		if elapsed >= baselineDuration {
			commands := c.profileFor(c.chip.Series)
			c.profileCommands = commands
			if err := c.sink.QueueUBX(commands...); err != nil {
				c.fail(fmt.Sprintf("could not apply profile: %v", err))
				return
			}
			c.phase = PhaseApplyingProfile
			c.phaseStartedAt = c.clk.Now()
			c.log.Infof("baseline collected, applying %d commands", len(commands))
		}

	case PhaseApplyingProfile:
		expectedDrain := time.Duration(len(c.profileCommands))*ubxCmdDrainPerItem + ubxCmdDrainBuffer
		if c.sink.PendingUBXCommands() == 0 && elapsed >= expectedDrain {
			c.phase = PhaseStabilizing
			c.phaseStartedAt = c.clk.Now()
			c.log.Info("profile applied, stabilizing")
		}

	case PhaseStabilizing:
		if elapsed >= stabilizeDuration {
			c.result = newCollector()
			c.phase = PhaseCollectingResult
			c.phaseStartedAt = c.clk.Now()
		}

	case PhaseCollectingResult:
		c.result.sample(obs)
		if elapsed >= resultDuration {
			before := c.baseline.snapshot()
			after := c.result.snapshot()
			report := buildReport(c.chip.DisplayName, profileName(c.chip.Series), before, after, c.clk.Now().Format(time.RFC3339))
			c.report = &report
			c.phase = PhaseComplete
			c.log.Info("optimization complete")
		}
	}
}

func profileName(series ubx.Series) string {
	switch series {
	case ubx.Series8:
		return "Series 8 Marine Profile"
	case ubx.Series7:
		return "Series 7 Marine Profile"
	default:
		return "Generic Marine Profile"
	}
}

// profileFor composes the ordered command burst for the detected series,
// always ending with CFG-CFG save-all.
func (c *Controller) profileFor(series ubx.Series) [][]byte {
	var commands [][]byte
	if series == ubx.Series7 {
		commands = append(commands, ubx.CFGGNSSSeries7Marine())
	} else {
		commands = append(commands, ubx.CFGGNSSSeries8Marine())
	}
	commands = append(commands, ubx.CFGNAV5Sea())
	commands = append(commands, ubx.CFGRate1Hz())
	commands = append(commands, ubx.CFGSBASEnabled())
	commands = append(commands, ubx.CFGNMEAExtended())
	commands = append(commands, ubx.CFGMsgStandardSuite()...)
	commands = append(commands, ubx.CFGCFGSaveAll())
	return commands
}

// Status returns a snapshot suitable for the command surface.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Status{Phase: c.phase, Error: c.errMsg, Report: c.report}
	if c.chip != nil {
		s.Chip = c.chip
	}
	if !c.phaseStartedAt.IsZero() {
		s.ElapsedMS = c.clk.Now().Sub(c.phaseStartedAt).Milliseconds()
	}
	return s
}
