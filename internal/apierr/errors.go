// Package apierr holds the sentinel error kinds the command surface
// translates into a response envelope's error string, matching the error
// kinds named by the system's error handling design.
package apierr

import "errors"

// Sentinel error kinds. The command surface returns them unwrapped, so their
// Error() text becomes the response envelope's error string and callers can
// still match them with errors.Is.
var (
	// ErrNoGPSConnected is returned by start_test when no port is open.
	ErrNoGPSConnected = errors.New("No GPS connected")
	// ErrNotConnected names the "no open port" condition. The command
	// surface does not return it; the GPS manager's QueueUBX returns its own
	// gpsmanager.ErrNotConnected instead.
	ErrNotConnected = errors.New("not connected")
	// ErrNoGpsDetected is returned when auto-detection exhausts every port
	// and baud rate without finding a live NMEA source.
	ErrNoGpsDetected = errors.New("no GPS detected")
	// ErrNoRunner is returned by test operations issued before start_test.
	ErrNoRunner = errors.New("no acceptance test has been started")
	// ErrNoOptimization names the "optimization never started" condition.
	// The command surface does not return it: get_optimization_status and
	// reset_optimization succeed in every phase and report idle before the
	// first start.
	ErrNoOptimization = errors.New("no optimization run in progress")
)

// SerialPortError wraps an open/enumerate failure from the serial transport.
type SerialPortError struct {
	Op  string
	Err error
}

func (e *SerialPortError) Error() string { return "serial port " + e.Op + ": " + e.Err.Error() }
func (e *SerialPortError) Unwrap() error { return e.Err }

// PersistenceError wraps a filesystem failure while saving a report or the
// criteria override.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string { return "persistence " + e.Op + ": " + e.Err.Error() }
func (e *PersistenceError) Unwrap() error { return e.Err }
