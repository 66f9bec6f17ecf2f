// Package gpsmanager owns the serial port and the background reader that
// turns its byte stream into a shared Observation, a bounded raw-sentence
// ring, and a UBX intake/injection path for the optimization controller.
package gpsmanager

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/tony-sparks-nz/Scout-GPS-Studio/internal/gpsdata"
	"github.com/tony-sparks-nz/Scout-GPS-Studio/internal/gpsport"
	"github.com/tony-sparks-nz/Scout-GPS-Studio/internal/nmea"
	"github.com/tony-sparks-nz/Scout-GPS-Studio/internal/ubx"
)

const (
	readTimeout      = time.Second
	sentenceRingSize = 100
	ubxBringUpPause  = 250 * time.Millisecond
	ubxDrainTimeout  = 100 * time.Millisecond
	ubxDrainMax      = 512
	ubxCmdPause      = 100 * time.Millisecond
	probeLines       = 10
	probeMinMatches  = 2
)

// ErrNotConnected is returned by operations that require an open port.
var ErrNotConnected = fmt.Errorf("gpsmanager: not connected")

// PortFactory builds the Port used for a connection; tests substitute a fake.
type PortFactory func() gpsport.Port

// UBXListener receives decoded UBX frames observed on the wire. Currently
// only the optimization controller registers one, and only MON-VER replies
// are meaningful to it; every frame is forwarded and the listener discards
// the rest.
type UBXListener interface {
	OnUBX(msg ubx.Message)
}

// Manager owns one serial connection at a time.
type Manager struct {
	newPort PortFactory
	logger  logrus.FieldLogger

	mu          sync.RWMutex
	port        gpsport.Port
	status      gpsdata.ConnectionStatus
	observation gpsdata.Observation
	ring        []string
	listener    UBXListener

	stopCh    chan struct{}
	doneCh    chan struct{}
	cmdCh     chan []byte
	sessionID string
}

// New creates a Manager. factory is usually gpsport.NewSerialPort wrapped in
// a closure; logger may be nil, in which case a standard logrus logger with
// defaults is used.
func New(factory PortFactory, logger logrus.FieldLogger) *Manager {
	if logger == nil {
		logger = logrus.New()
	}
	return &Manager{
		newPort: factory,
		logger:  logger,
		status:  gpsdata.ConnectionStatus{State: gpsdata.StateDisconnected},
	}
}

// SetUBXListener registers the single consumer of decoded UBX frames.
func (m *Manager) SetUBXListener(l UBXListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listener = l
}

// ListPorts enumerates system serial ports.
func (m *Manager) ListPorts() ([]gpsdata.PortDescriptor, error) {
	return gpsport.List()
}

// Probe opens a port briefly and reports whether it looks like a live NMEA
// source: at least probeMinMatches of the first probeLines lines must start
// with '$' and carry a GP/GN/GL talker ID.
func (m *Manager) Probe(path string, baud int, timeout time.Duration) (bool, error) {
	p := m.newPort()
	if err := p.Open(path, baud); err != nil {
		return false, fmt.Errorf("gpsmanager: probe open: %w", err)
	}
	defer p.Close()

	// Read timeout is kept short relative to the overall probe window so the
	// deadline below is the real bound, not a single blocking read.
	const probeReadTimeout = 500 * time.Millisecond
	_ = p.SetReadTimeout(probeReadTimeout)

	var buf bytes.Buffer
	readBuf := make([]byte, 256)
	matches := 0
	lines := 0
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) && lines < probeLines {
		n, err := p.Read(readBuf)
		if err != nil {
			break
		}
		if n == 0 {
			continue
		}
		buf.Write(readBuf[:n])

		for lines < probeLines {
			data := buf.Bytes()
			idx := bytes.IndexByte(data, '\n')
			if idx == -1 {
				break
			}
			line := strings.TrimRight(string(data[:idx]), "\r\n")
			rest := make([]byte, len(data)-idx-1)
			copy(rest, data[idx+1:])
			buf.Reset()
			buf.Write(rest)
			lines++

			if strings.HasPrefix(line, "$") && hasKnownTalker(line) {
				matches++
				if matches >= probeMinMatches {
					return true, nil
				}
			}
		}
	}
	return false, nil
}

func hasKnownTalker(line string) bool {
	for _, talker := range []string{"$GP", "$GN", "$GL"} {
		if strings.HasPrefix(line, talker) {
			return true
		}
	}
	return false
}

// AutoDetect tries every enumerated port (likely-GNSS ports first) against
// each baud rate in turn, returning the first combination that probes true.
func (m *Manager) AutoDetect() (gpsdata.PortDescriptor, int, error) {
	ports, err := m.ListPorts()
	if err != nil {
		return gpsdata.PortDescriptor{}, 0, err
	}

	ordered := make([]gpsdata.PortDescriptor, 0, len(ports))
	var rest []gpsdata.PortDescriptor
	for _, p := range ports {
		if p.LikelyGNSS {
			ordered = append(ordered, p)
		} else {
			rest = append(rest, p)
		}
	}
	ordered = append(ordered, rest...)

	for _, p := range ordered {
		for _, baud := range []int{4800, 9600, 115200} {
			ok, err := m.Probe(p.Path, baud, 3*time.Second)
			if err != nil {
				continue
			}
			if ok {
				return p, baud, nil
			}
		}
	}
	return gpsdata.PortDescriptor{}, 0, fmt.Errorf("gpsmanager: no GPS detected")
}

// Connect disconnects any prior session, opens the port, and starts the
// background reader. For a u-blox port the reader first runs the UBX
// bring-up, so Connect itself never blocks on those writes.
func (m *Manager) Connect(desc gpsdata.PortDescriptor, baud int) error {
	_ = m.Disconnect()

	m.mu.Lock()
	m.observation = gpsdata.Observation{}
	m.ring = nil
	m.status = gpsdata.ConnectionStatus{Port: &desc, State: gpsdata.StateConnecting}
	m.sessionID = uuid.New().String()
	m.mu.Unlock()

	port := m.newPort()
	if err := port.Open(desc.Path, baud); err != nil {
		m.mu.Lock()
		m.status.State = gpsdata.StateError
		m.status.LastError = err.Error()
		m.mu.Unlock()
		return fmt.Errorf("gpsmanager: connect: %w", err)
	}
	_ = port.SetReadTimeout(readTimeout)

	stopCh := make(chan struct{})
	doneCh := make(chan struct{})
	cmdCh := make(chan []byte, 32)

	m.mu.Lock()
	m.port = port
	m.status.State = gpsdata.StateConnected
	m.stopCh = stopCh
	m.doneCh = doneCh
	m.cmdCh = cmdCh
	sessionID := m.sessionID
	m.mu.Unlock()

	log := m.logger.WithFields(logrus.Fields{"session": sessionID, "port": desc.Path})
	log.Infof("connected at %d baud", baud)

	go func() {
		if gpsport.IsUblox(desc) {
			m.bringUpUblox(port, log)
		}
		m.readLoop(port, stopCh, doneCh, cmdCh, log)
	}()
	return nil
}

func (m *Manager) bringUpUblox(port gpsport.Port, log logrus.FieldLogger) {
	commands := [][]byte{
		ubx.CFGGNSSSeries8Marine(),
		ubx.CFGNMEAExtended(),
		ubx.CFGMsgEnableGSV(),
	}
	for _, cmd := range commands {
		if _, err := port.Write(cmd); err != nil {
			log.Warnf("ubx bring-up write failed: %v", err)
			return
		}
		time.Sleep(ubxBringUpPause)
	}

	_ = port.SetReadTimeout(ubxDrainTimeout)
	buf := make([]byte, ubxDrainMax)
	_, _ = port.Read(buf)
	_ = port.SetReadTimeout(readTimeout)
}

// Disconnect stops the reader, waits for it to terminate, and releases the
// port. A subsequent Connect therefore never races a stale reader.
func (m *Manager) Disconnect() error {
	m.mu.Lock()
	if m.stopCh == nil {
		m.mu.Unlock()
		return nil
	}
	stopCh := m.stopCh
	doneCh := m.doneCh
	port := m.port
	m.stopCh = nil
	m.doneCh = nil
	m.mu.Unlock()

	close(stopCh)

	// Closing the port unblocks a reader stuck in a blocking Read, so the
	// wait below is bounded by the 1s read timeout at worst.
	if port != nil {
		_ = port.Close()
	}
	if doneCh != nil {
		<-doneCh
	}

	m.mu.Lock()
	m.port = nil
	m.status.State = gpsdata.StateDisconnected
	m.mu.Unlock()
	return nil
}

// QueueUBX enqueues a burst of UBX frames for the reader to drain between
// lines. It is the only write path besides the connect-time bring-up.
func (m *Manager) QueueUBX(frames ...[]byte) error {
	m.mu.RLock()
	ch := m.cmdCh
	m.mu.RUnlock()
	if ch == nil {
		return ErrNotConnected
	}
	for _, f := range frames {
		ch <- f
	}
	return nil
}

// PendingUBXCommands reports how many queued UBX frames the reader has not
// yet taken off the queue; a frame it is currently writing is no longer
// counted. The Optimization Controller polls this, together with its own
// drain allowance, to detect when its command burst has been written.
func (m *Manager) PendingUBXCommands() int {
	m.mu.RLock()
	ch := m.cmdCh
	m.mu.RUnlock()
	if ch == nil {
		return 0
	}
	return len(ch)
}

// Observation returns a copy of the current cumulative observation.
func (m *Manager) Observation() gpsdata.Observation {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.observation
}

// Status returns a copy of the current connection status.
func (m *Manager) Status() gpsdata.ConnectionStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// NMEABuffer returns the raw sentence ring, oldest first.
func (m *Manager) NMEABuffer() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.ring))
	copy(out, m.ring)
	return out
}

// ClearNMEABuffer empties the raw sentence ring.
func (m *Manager) ClearNMEABuffer() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ring = nil
}

func (m *Manager) readLoop(port gpsport.Port, stopCh, doneCh chan struct{}, cmdCh chan []byte, log logrus.FieldLogger) {
	defer close(doneCh)

	decoder := nmea.NewDecoder()
	lineBuf := bytes.Buffer{}
	readBuf := make([]byte, 1024)

	for {
		select {
		case <-stopCh:
			return
		case cmd := <-cmdCh:
			if _, err := port.Write(cmd); err != nil {
				log.Warnf("ubx command write failed: %v", err)
			}
			time.Sleep(ubxCmdPause)
			continue
		default:
		}

		n, err := port.Read(readBuf)
		if err != nil {
			select {
			case <-stopCh:
				// Disconnect closed the port under us; not a fault.
				return
			default:
			}
			m.mu.Lock()
			m.status.State = gpsdata.StateError
			m.status.LastError = err.Error()
			m.mu.Unlock()
			log.Errorf("read error, reader exiting: %v", err)
			return
		}
		if n == 0 {
			// Read timeout elapsed with no data; go.bug.st/serial reports
			// this as (0, nil) rather than an error.
			continue
		}
		lineBuf.Write(readBuf[:n])

		if msg, consumed, ok := ubx.Scan(lineBuf.Bytes()); ok {
			m.dispatchUBX(msg)
			remaining := lineBuf.Bytes()[consumed:]
			lineBuf.Reset()
			lineBuf.Write(remaining)
			continue
		}

		for {
			data := lineBuf.Bytes()
			// A UBX frame may straddle read boundaries; never let the line
			// splitter consume bytes that belong to a frame still arriving.
			limit := len(data)
			if si := bytes.Index(data, []byte{0xB5, 0x62}); si != -1 && ubx.Pending(data[si:]) {
				limit = si
			}
			idx := bytes.IndexByte(data[:limit], '\n')
			if idx == -1 {
				break
			}
			line := strings.TrimRight(string(data[:idx]), "\r\n")
			rest := make([]byte, len(data)-idx-1)
			copy(rest, data[idx+1:])
			lineBuf.Reset()
			lineBuf.Write(rest)

			if line == "" || !strings.HasPrefix(line, "$") {
				continue
			}
			m.handleSentence(line, decoder, log)
		}
	}
}

func (m *Manager) handleSentence(line string, decoder *nmea.Decoder, log logrus.FieldLogger) {
	partial, err := decoder.Parse(line)

	m.mu.Lock()
	m.status.SentencesReceived++
	m.ring = append(m.ring, line)
	if len(m.ring) > sentenceRingSize {
		m.ring = m.ring[len(m.ring)-sentenceRingSize:]
	}
	if err == nil {
		m.observation.Merge(partial)
		m.status.State = gpsdata.StateReceiving
		if partial.FixTimeUTC != nil {
			now := time.Now()
			m.status.LastFixTime = &now
		}
	}
	m.mu.Unlock()

	if err != nil {
		log.Debugf("nmea parse error: %v", err)
	}
}

func (m *Manager) dispatchUBX(msg ubx.Message) {
	m.mu.RLock()
	listener := m.listener
	m.mu.RUnlock()
	if listener != nil {
		listener.OnUBX(msg)
	}
}

