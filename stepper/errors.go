package stepper

import (
	"errors"
	"fmt"
)

// ErrNotConnected is returned when a command is sent while the controller is not connected.
var ErrNotConnected = errors.New("stepper: not connected")

// ConnectionError happens when the serial port could not be opened or the device could not
// settle. The controller stays disconnected.
type ConnectionError struct {
	PortName string
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("stepper: failed to connect to %s: %s", e.PortName, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// ValidationError happens when an axis position or its max value is not acceptable.
type ValidationError struct {
	Axis     Axis
	Position string
	Max      string
	Reason   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("stepper: axis %s: %s", e.Axis, e.Reason)
}

// IOError is a read or write failure on an open link. It always forces a disconnection.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("stepper: %s error: %s", e.Op, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// DecodeError happens when the device sends a line that is not valid UTF-8, or that is longer
// than MaxLineLength. For long lines, Line only holds its start.
type DecodeError struct {
	Line   []byte
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("stepper: received invalid line (%s): %q", e.Reason, e.Line)
}
