// Package tarmport adapts github.com/tarm/serial to the go.bug.st/serial Port interface, as an
// alternative driver for hosts where the default one misbehaves.
package tarmport

import (
	"errors"
	"fmt"
	"io"
	"time"

	"go.bug.st/serial"

	tarm "github.com/tarm/serial"
)

// rawPort is the subset of *tarm.Port used.
type rawPort interface {
	io.ReadWriteCloser
	Flush() error
}

// TarmPort partially implements serial.Port interface with tarm/serial. The read timeout is
// fixed when the port is opened.
type TarmPort struct {
	port        rawPort
	readTimeout time.Duration
}

var parities = map[serial.Parity]tarm.Parity{
	serial.NoParity:    tarm.ParityNone,
	serial.OddParity:   tarm.ParityOdd,
	serial.EvenParity:  tarm.ParityEven,
	serial.MarkParity:  tarm.ParityMark,
	serial.SpaceParity: tarm.ParitySpace,
}

var stopBits = map[serial.StopBits]tarm.StopBits{
	serial.OneStopBit:           tarm.Stop1,
	serial.OnePointFiveStopBits: tarm.Stop1Half,
	serial.TwoStopBits:          tarm.Stop2,
}

func newConfig(portName string, mode *serial.Mode, readTimeout time.Duration) (*tarm.Config, error) {
	parity, ok := parities[mode.Parity]
	if !ok {
		return nil, fmt.Errorf("tarmport: unsupported parity: %#v", mode.Parity)
	}
	stop, ok := stopBits[mode.StopBits]
	if !ok {
		return nil, fmt.Errorf("tarmport: unsupported stop bits: %#v", mode.StopBits)
	}
	return &tarm.Config{
		Name:        portName,
		Baud:        mode.BaudRate,
		ReadTimeout: readTimeout,
		Size:        byte(mode.DataBits),
		Parity:      parity,
		StopBits:    stop,
	}, nil
}

// Open opens portName with the given mode. Reads return after readTimeout when no data
// arrives; zero blocks.
func Open(portName string, mode *serial.Mode, readTimeout time.Duration) (*TarmPort, error) {
	config, err := newConfig(portName, mode, readTimeout)
	if err != nil {
		return nil, err
	}
	port, err := tarm.OpenPort(config)
	if err != nil {
		return nil, fmt.Errorf("tarmport: failed to open %s: %w", portName, err)
	}
	return &TarmPort{port: port, readTimeout: readTimeout}, nil
}

func (tp *TarmPort) SetMode(mode *serial.Mode) error {
	return errors.New("not supported")
}

// Read reads from the port. A read that times out returns no data and no error.
func (tp *TarmPort) Read(p []byte) (int, error) {
	n, err := tp.port.Read(p)
	if n == 0 && tp.readTimeout > 0 && errors.Is(err, io.EOF) {
		return 0, nil
	}
	return n, err
}

func (tp *TarmPort) Write(p []byte) (int, error) {
	return tp.port.Write(p)
}

func (tp *TarmPort) Drain() error {
	return errors.New("not supported")
}

func (tp *TarmPort) ResetInputBuffer() error {
	return tp.port.Flush()
}

func (tp *TarmPort) ResetOutputBuffer() error {
	return errors.New("not supported")
}

func (tp *TarmPort) SetDTR(dtr bool) error {
	return errors.New("not supported")
}

func (tp *TarmPort) SetRTS(rts bool) error {
	return errors.New("not supported")
}

func (tp *TarmPort) GetModemStatusBits() (*serial.ModemStatusBits, error) {
	return nil, errors.New("not supported")
}

// SetReadTimeout only accepts the timeout the port was opened with.
func (tp *TarmPort) SetReadTimeout(t time.Duration) error {
	if t != tp.readTimeout {
		return fmt.Errorf("tarmport: read timeout is fixed at %s, can not set %s", tp.readTimeout, t)
	}
	return nil
}

func (tp *TarmPort) Close() error {
	return tp.port.Close()
}

func (tp *TarmPort) Break(time.Duration) error {
	return errors.New("not supported")
}
