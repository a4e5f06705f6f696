package stepper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fornellas/slogxt/log"
	"go.bug.st/serial"

	brokerMod "github.com/fornellas/xyzctl/broker"
)

const (
	// BaudRate is the fixed link speed of the device.
	BaudRate = 9600
	// ReadTimeout bounds each read, so the reader can observe the stop signal.
	ReadTimeout = time.Second
	// DefaultSettleDelay is how long the device takes to reset after the port is opened.
	DefaultSettleDelay = 2 * time.Second
	// DefaultLineBufferSize is the capacity of the channel between the reader and its consumer.
	DefaultLineBufferSize = 64
)

// Mode is the serial port mode used to talk to the device.
var Mode = serial.Mode{
	BaudRate: BaudRate,
	DataBits: 8,
	Parity:   serial.NoParity,
	StopBits: serial.OneStopBit,
}

// OpenPortFn opens the named port with the given mode.
type OpenPortFn func(ctx context.Context, portName string, mode *serial.Mode) (serial.Port, error)

// OpenSerialPort is an OpenPortFn for local serial ports.
func OpenSerialPort(ctx context.Context, portName string, mode *serial.Mode) (serial.Port, error) {
	return serial.Open(portName, mode)
}

type ControllerOptions struct {
	// SettleDelay is waited after opening the port, before the link is considered usable.
	SettleDelay time.Duration
	// LineBufferSize is the capacity of the channel returned by Connect.
	LineBufferSize int
}

// DefaultControllerOptions returns the options matching the device firmware.
func DefaultControllerOptions() *ControllerOptions {
	return &ControllerOptions{
		SettleDelay:    DefaultSettleDelay,
		LineBufferSize: DefaultLineBufferSize,
	}
}

// link is a single open connection, from Connect until it is torn down.
type link struct {
	portName string
	port     serial.Port
	cancel   context.CancelFunc
	doneCh   chan struct{}
}

// connectAttempt is a Connect call in progress, which Disconnect can abort.
type connectAttempt struct {
	cancel context.CancelFunc
	doneCh chan struct{}
}

// Controller owns the serial connection to the device.
type Controller struct {
	mu          sync.Mutex
	openPortFn  OpenPortFn
	options     *ControllerOptions
	state       State
	connecting  *connectAttempt
	link        *link
	stateBroker *brokerMod.Broker[State]
}

func NewController(openPortFn OpenPortFn, options *ControllerOptions) *Controller {
	if options == nil {
		options = DefaultControllerOptions()
	}
	if options.LineBufferSize <= 0 {
		options.LineBufferSize = DefaultLineBufferSize
	}
	return &Controller{
		openPortFn:  openPortFn,
		options:     options,
		state:       StateDisconnected,
		stateBroker: brokerMod.NewBroker[State](),
	}
}

// must be called with c.mu held.
func (c *Controller) setState(state State) {
	c.state = state
	c.stateBroker.Publish(state)
}

// State returns the current connection state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// PortName returns the name of the connected port, or an empty string when not connected.
func (c *Controller) PortName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.link == nil {
		return ""
	}
	return c.link.portName
}

// Subscribe returns a channel that receives every state transition, in order.
func (c *Controller) Subscribe(name string, size int) <-chan State {
	return c.stateBroker.Subscribe(name, size)
}

// Unsubscribe closes a channel previously returned by Subscribe.
func (c *Controller) Unsubscribe(name string) {
	c.stateBroker.Unsubscribe(name)
}

// Dropped returns how many state transitions the named subscriber missed because its channel
// was full.
func (c *Controller) Dropped(name string) uint64 {
	return c.stateBroker.Dropped(name)
}

// Close disconnects and closes all channels returned by Subscribe. The controller must not be
// used afterwards.
func (c *Controller) Close(ctx context.Context) error {
	err := c.Disconnect(ctx)
	c.stateBroker.Close()
	return err
}

func (c *Controller) open(ctx context.Context, portName string) (serial.Port, error) {
	logger := log.MustLogger(ctx)

	mode := Mode
	port, err := c.openPortFn(ctx, portName, &mode)
	if err != nil {
		return nil, fmt.Errorf("serial port open error: %w", err)
	}

	if err := port.SetReadTimeout(ReadTimeout); err != nil {
		return nil, errors.Join(
			fmt.Errorf("error setting read timeout: %w", err),
			port.Close(),
		)
	}

	if c.options.SettleDelay > 0 {
		logger.Info("Waiting for device to settle", "delay", c.options.SettleDelay)
		select {
		case <-time.After(c.options.SettleDelay):
		case <-ctx.Done():
			return nil, errors.Join(ctx.Err(), port.Close())
		}
	}

	return port, nil
}

// Connect opens the serial port, waits for the device to settle and starts reading from it.
// On success, it returns a channel where each non empty line received from the device is sent
// to, terminated by "\n". The channel is closed when reading stops, either from Disconnect() or
// from a link failure, in which case the controller disconnects by itself.
// On failure, a *ConnectionError is returned and the controller stays disconnected. A
// Disconnect() call while connecting aborts the connection.
func (c *Controller) Connect(ctx context.Context, portName string) (<-chan string, error) {
	ctx, logger := log.MustWithAttrs(ctx, "port-name", portName)

	if portName == "" {
		return nil, &ConnectionError{PortName: portName, Err: errors.New("no port selected")}
	}

	c.mu.Lock()
	if c.state != StateDisconnected {
		state := c.state
		c.mu.Unlock()
		return nil, fmt.Errorf("stepper: can not connect to %s: %s", portName, state)
	}
	connectCtx, connectCancel := context.WithCancel(ctx)
	defer connectCancel()
	attempt := &connectAttempt{
		cancel: connectCancel,
		doneCh: make(chan struct{}),
	}
	defer close(attempt.doneCh)
	c.connecting = attempt
	c.setState(StateConnecting)
	c.mu.Unlock()

	logger.Info("Connecting")
	port, err := c.open(connectCtx, portName)
	if err != nil {
		c.mu.Lock()
		c.connecting = nil
		c.setState(StateDisconnected)
		c.mu.Unlock()
		err = &ConnectionError{PortName: portName, Err: err}
		logger.Error("Failed to connect", "err", err)
		return nil, err
	}

	// The reader outlives ctx: it only stops on Disconnect() or link failure.
	readerCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	l := &link{
		portName: portName,
		port:     port,
		cancel:   cancel,
		doneCh:   make(chan struct{}),
	}
	lineCh := make(chan string, c.options.LineBufferSize)

	c.mu.Lock()
	if connectCtx.Err() != nil {
		c.connecting = nil
		c.setState(StateDisconnected)
		c.mu.Unlock()
		cancel()
		err = &ConnectionError{PortName: portName, Err: errors.Join(connectCtx.Err(), port.Close())}
		logger.Error("Failed to connect", "err", err)
		return nil, err
	}
	c.connecting = nil
	c.link = l
	c.setState(StateConnected)
	c.mu.Unlock()

	go c.readerWorker(readerCtx, l, lineCh)

	logger.Info("Connected")
	return lineCh, nil
}

// teardown stops the reader of a link which was already detached from c.link, then closes
// its port. The port is only closed after the reader has returned.
func (c *Controller) teardown(ctx context.Context, l *link) error {
	logger := log.MustLogger(ctx)

	l.cancel()
	<-l.doneCh

	err := l.port.Close()

	c.mu.Lock()
	c.setState(StateDisconnected)
	c.mu.Unlock()

	logger.Info("Disconnected", "port-name", l.portName)
	if err != nil {
		return fmt.Errorf("stepper: serial port close error: %w", err)
	}
	return nil
}

// Disconnect stops reading and closes the serial port. While connecting, it aborts the
// connection and waits for Connect to return. It is safe to call when already disconnected.
func (c *Controller) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	if attempt := c.connecting; attempt != nil {
		c.mu.Unlock()
		log.MustLogger(ctx).Info("Aborting connection")
		attempt.cancel()
		<-attempt.doneCh
		return nil
	}
	l := c.link
	if l == nil {
		c.mu.Unlock()
		return nil
	}
	c.link = nil
	c.mu.Unlock()

	return c.teardown(ctx, l)
}

func checkCommandBody(body string) error {
	if body == "" {
		return errors.New("stepper: empty command")
	}
	for _, r := range body {
		if r > 0x7f || r < 0x20 {
			return fmt.Errorf("stepper: command must be printable ASCII: %#v", body)
		}
	}
	if strings.ContainsAny(body, "<>") {
		return fmt.Errorf("stepper: command must not contain frame delimiters: %#v", body)
	}
	return nil
}

// Send writes a framed command to the device. It fails with ErrNotConnected unless connected.
// On write failure, it returns an *IOError and disconnects.
func (c *Controller) Send(ctx context.Context, body string) error {
	logger := log.MustLogger(ctx)

	if err := checkCommandBody(body); err != nil {
		return err
	}
	data := Frame(body)

	c.mu.Lock()
	l := c.link
	if c.state != StateConnected || l == nil {
		c.mu.Unlock()
		return ErrNotConnected
	}
	n, err := l.port.Write(data)
	if err == nil && n != len(data) {
		err = fmt.Errorf("wrote %d bytes, expected %d", n, len(data))
	}
	if err != nil {
		c.link = nil
	}
	c.mu.Unlock()

	if err != nil {
		logger.Error("Failed to send command, disconnecting", "command", string(data), "err", err)
		return errors.Join(&IOError{Op: "write", Err: err}, c.teardown(ctx, l))
	}

	logger.Info("Sent", "command", string(data))
	return nil
}
