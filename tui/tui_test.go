package tui

import (
	"bufio"
	"context"
	"errors"
	"log/slog"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fornellas/slogxt/log"
	"github.com/rivo/tview"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"

	"github.com/fornellas/xyzctl/serialtcp"
	"github.com/fornellas/xyzctl/stepper"
)

func testContext(t *testing.T) context.Context {
	return log.WithLogger(t.Context(), slog.New(slog.DiscardHandler))
}

type recordingSender struct {
	mu     sync.Mutex
	bodies []string
	err    error
}

func (s *recordingSender) Send(ctx context.Context, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.bodies = append(s.bodies, body)
	return nil
}

func (s *recordingSender) Bodies() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.bodies...)
}

func runWorker(t *testing.T, fn func(context.Context) error) context.CancelFunc {
	ctx, cancel := context.WithCancel(testContext(t))
	errCh := make(chan error, 1)
	go func() { errCh <- fn(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.ErrorIs(t, <-errCh, context.Canceled)
	})
	return cancel
}

func TestStateText(t *testing.T) {
	for _, state := range []stepper.State{
		stepper.StateDisconnected,
		stepper.StateConnecting,
		stepper.StateConnected,
	} {
		t.Run(state.String(), func(t *testing.T) {
			text := stateText(state)
			require.Contains(t, text, state.String())
			require.Contains(t, text, stateColors[state].String())
		})
	}
}

func TestAxesPrimitiveWorker(t *testing.T) {
	sender := &recordingSender{}
	panel := stepper.NewPanel(sender, nil)
	ap := NewAxesPrimitive(tview.NewApplication(), panel)
	runWorker(t, ap.Worker)

	ap.QueueAction("Move X", func(ctx context.Context) error {
		return panel.MoveAxis(ctx, stepper.AxisX, "10")
	})
	// a failed action does not stop the worker
	ap.QueueAction("Move Y", func(ctx context.Context) error {
		return panel.MoveAxis(ctx, stepper.AxisY, "20000")
	})
	ap.QueueAction("Homing", panel.Home)

	require.Eventually(t, func() bool {
		return len(sender.Bodies()) == 2
	}, 5*time.Second, 10*time.Millisecond)
	require.Equal(t, []string{"X10", "HOME"}, sender.Bodies())
}

func TestAxesPrimitiveDefaults(t *testing.T) {
	panel := stepper.NewPanel(&recordingSender{}, nil)
	panel.Session().SetReversed(true)
	ap := NewAxesPrimitive(tview.NewApplication(), panel)

	require.True(t, ap.reverseCheckbox.IsChecked())
	require.Equal(t, DefaultTestPosition, ap.testPositionInput.GetText())
	for _, axis := range stepper.Axes {
		require.Equal(t, "10000", ap.inputs[axis].max.GetText())
	}
}

func newPipeController(t *testing.T) (*stepper.Controller, *bufio.Reader, net.Conn) {
	deviceConn, hostConn := net.Pipe()
	t.Cleanup(func() { deviceConn.Close() })
	controller := stepper.NewController(
		func(ctx context.Context, portName string, mode *serial.Mode) (serial.Port, error) {
			return serialtcp.NewTcpPort(hostConn), nil
		},
		&stepper.ControllerOptions{SettleDelay: time.Millisecond},
	)
	return controller, bufio.NewReader(deviceConn), deviceConn
}

func TestConnectionPrimitiveConnect(t *testing.T) {
	ctx := testContext(t)
	controller, deviceReader, deviceConn := newPipeController(t)
	t.Cleanup(func() { require.NoError(t, controller.Disconnect(ctx)) })

	cp := NewConnectionPrimitive(tview.NewApplication(), controller, func() ([]string, error) {
		return []string{"/dev/ttyFAKE"}, nil
	})
	cp.mu.Lock()
	cp.ports = []string{"/dev/ttyFAKE"}
	cp.selectedPort = "/dev/ttyFAKE"
	cp.mu.Unlock()
	runWorker(t, cp.Worker)

	cp.QueueRequest(connectionRequestConnect)

	var lineCh <-chan string
	select {
	case lineCh = <-cp.LineChannels():
	case <-time.After(5 * time.Second):
		require.Fail(t, "timeout waiting for line channel")
	}
	require.Equal(t, stepper.StateConnected, controller.State())
	require.Equal(t, "/dev/ttyFAKE", controller.PortName())

	_, err := deviceConn.Write([]byte("Moving X\r\n"))
	require.NoError(t, err)
	select {
	case line := <-lineCh:
		require.Equal(t, "Moving X\n", line)
	case <-time.After(5 * time.Second):
		require.Fail(t, "timeout waiting for line")
	}

	sendErrCh := make(chan error, 1)
	go func() { sendErrCh <- controller.Send(ctx, "HOME") }()
	frame, err := deviceReader.ReadString('>')
	require.NoError(t, err)
	require.Equal(t, "<HOME>", frame)
	require.NoError(t, <-sendErrCh)
}

func TestConnectionPrimitiveConnectFailure(t *testing.T) {
	controller := stepper.NewController(
		func(ctx context.Context, portName string, mode *serial.Mode) (serial.Port, error) {
			return nil, errors.New("no such device")
		},
		&stepper.ControllerOptions{},
	)
	cp := NewConnectionPrimitive(tview.NewApplication(), controller, nil)

	// no port selected
	cp.connect(testContext(t))
	require.Equal(t, stepper.StateDisconnected, controller.State())

	cp.mu.Lock()
	cp.selectedPort = "/dev/ttyMISSING"
	cp.mu.Unlock()
	cp.connect(testContext(t))
	require.Equal(t, stepper.StateDisconnected, controller.State())
	select {
	case <-cp.LineChannels():
		require.Fail(t, "unexpected line channel")
	default:
	}
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf strings.Builder
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestConnectionPrimitiveStateWorkerMissedUpdates(t *testing.T) {
	ctx := testContext(t)
	controller, _, _ := newPipeController(t)
	cp := NewConnectionPrimitive(tview.NewApplication(), controller, nil)
	stateCh := controller.Subscribe(StateSubscriberName, 1)

	_, err := controller.Connect(ctx, "/dev/ttyFAKE")
	require.NoError(t, err)
	require.Equal(t, uint64(1), controller.Dropped(StateSubscriberName))

	logs := &lockedBuffer{}
	workerCtx := log.WithLogger(ctx, slog.New(slog.NewTextHandler(logs, nil)))
	errCh := make(chan error, 1)
	go func() { errCh <- cp.StateWorker(workerCtx, stateCh) }()

	require.Eventually(t, func() bool {
		return strings.Contains(logs.String(), "Missed connection state updates")
	}, 5*time.Second, 10*time.Millisecond)
	require.Contains(t, logs.String(), "count=1")

	// closing the controller ends the worker
	require.NoError(t, controller.Close(ctx))
	select {
	case err := <-errCh:
		require.ErrorContains(t, err, "state channel closed")
	case <-time.After(5 * time.Second):
		require.Fail(t, "timeout waiting for worker")
	}
}

func TestStatusPrimitiveWorker(t *testing.T) {
	sp := NewStatusPrimitive(tview.NewApplication())
	lineChCh := make(chan (<-chan string), 1)
	runWorker(t, func(ctx context.Context) error {
		return sp.Worker(ctx, lineChCh)
	})

	lineCh := make(chan string, 2)
	lineChCh <- lineCh
	lineCh <- "Moving X 10\n"
	lineCh <- "Done\n"
	close(lineCh)

	require.Eventually(t, func() bool {
		return strings.Contains(sp.GetText(true), "Done")
	}, 5*time.Second, 10*time.Millisecond)
	require.Contains(t, sp.GetText(true), "Moving X 10\nDone")
}

func TestCurrentSettings(t *testing.T) {
	controller := stepper.NewController(stepper.OpenSerialPort, nil)
	panel := stepper.NewPanel(controller, nil)
	panel.Session().SetMax(stepper.AxisX, "500")
	panel.Session().SetMax(stepper.AxisY, "")
	tui := NewTui(controller, panel, nil)

	cp := NewConnectionPrimitive(tview.NewApplication(), controller, nil)
	cp.mu.Lock()
	cp.selectedPort = "/dev/ttyUSB0"
	cp.mu.Unlock()

	s := tui.currentSettings(cp)
	require.Equal(t, "/dev/ttyUSB0", s.Port)
	require.Equal(t, 500, s.XMax)
	require.Equal(t, stepper.DefaultAxisLimit, s.YMax)
	require.Equal(t, stepper.DefaultAxisLimit, s.ZMax)
}
