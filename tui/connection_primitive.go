package tui

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/fornellas/slogxt/log"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/fornellas/xyzctl/stepper"
)

type connectionRequest int

const (
	connectionRequestRefresh connectionRequest = iota
	connectionRequestConnect
	connectionRequestDisconnect
	connectionRequestToggle
)

var stateColors = map[stepper.State]tcell.Color{
	stepper.StateDisconnected: tcell.ColorRed,
	stepper.StateConnecting:   tcell.ColorYellow,
	stepper.StateConnected:    tcell.ColorGreen,
}

func stateText(state stepper.State) string {
	return fmt.Sprintf("[%s]●[-] %s", stateColors[state], state)
}

// ConnectionPrimitive selects the serial port, connects / disconnects and shows the connection
// state.
type ConnectionPrimitive struct {
	*tview.Flex
	app           *tview.Application
	controller    *stepper.Controller
	listPortsFn   func() ([]string, error)
	portDropDown  *tview.DropDown
	connectButton *tview.Button
	stateTextView *tview.TextView
	requestCh     chan connectionRequest
	lineChCh      chan (<-chan string)

	mu           sync.Mutex
	ports        []string
	selectedPort string
}

func NewConnectionPrimitive(
	app *tview.Application,
	controller *stepper.Controller,
	listPortsFn func() ([]string, error),
) *ConnectionPrimitive {
	cp := &ConnectionPrimitive{
		app:         app,
		controller:  controller,
		listPortsFn: listPortsFn,
		requestCh:   make(chan connectionRequest, 10),
		lineChCh:    make(chan (<-chan string), 1),
	}

	portDropDown := tview.NewDropDown()
	portDropDown.SetLabel("Port: ")
	portDropDown.SetSelectedFunc(func(text string, index int) {
		cp.mu.Lock()
		cp.selectedPort = text
		cp.mu.Unlock()
	})
	cp.portDropDown = portDropDown

	refreshButton := tview.NewButton("Refresh")
	refreshButton.SetSelectedFunc(func() { cp.QueueRequest(connectionRequestRefresh) })

	connectButton := tview.NewButton("Connect")
	connectButton.SetSelectedFunc(func() { cp.QueueRequest(connectionRequestToggle) })
	cp.connectButton = connectButton

	stateTextView := tview.NewTextView()
	stateTextView.SetDynamicColors(true)
	stateTextView.SetText(stateText(stepper.StateDisconnected))
	cp.stateTextView = stateTextView

	flex := tview.NewFlex()
	flex.SetBorder(true)
	flex.SetTitle("Connection")
	flex.SetDirection(tview.FlexColumn)
	flex.AddItem(portDropDown, 0, 1, true)
	flex.AddItem(refreshButton, 9, 0, false)
	flex.AddItem(nil, 1, 0, false)
	flex.AddItem(connectButton, 12, 0, false)
	flex.AddItem(nil, 2, 0, false)
	flex.AddItem(stateTextView, 16, 0, false)
	cp.Flex = flex

	return cp
}

// QueueRequest schedules a connection action, to be run by Worker.
func (cp *ConnectionPrimitive) QueueRequest(request connectionRequest) {
	select {
	case cp.requestCh <- request:
	default:
	}
}

// LineChannels returns where the line channel of each new connection is sent to.
func (cp *ConnectionPrimitive) LineChannels() <-chan (<-chan string) {
	return cp.lineChCh
}

// SelectedPort returns the name of the port currently selected.
func (cp *ConnectionPrimitive) SelectedPort() string {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	return cp.selectedPort
}

// SelectPort selects the given port, if available.
func (cp *ConnectionPrimitive) SelectPort(portName string) bool {
	cp.mu.Lock()
	index := slices.Index(cp.ports, portName)
	if index >= 0 {
		cp.selectedPort = portName
	}
	cp.mu.Unlock()
	if index < 0 {
		return false
	}
	cp.app.QueueUpdateDraw(func() {
		cp.portDropDown.SetCurrentOption(index)
	})
	return true
}

func (cp *ConnectionPrimitive) refreshPorts(ctx context.Context) {
	logger := log.MustLogger(ctx)

	ports, err := cp.listPortsFn()
	if err != nil {
		logger.Error("Failed to list ports", "err", err)
		return
	}

	cp.mu.Lock()
	cp.ports = ports
	index := slices.Index(ports, cp.selectedPort)
	if index < 0 && len(ports) > 0 {
		index = 0
	}
	cp.selectedPort = ""
	if index >= 0 {
		cp.selectedPort = ports[index]
	}
	cp.mu.Unlock()

	cp.app.QueueUpdateDraw(func() {
		cp.portDropDown.SetOptions(ports, nil)
		if index >= 0 {
			cp.portDropDown.SetCurrentOption(index)
		}
	})
	logger.Debug("Ports refreshed", "ports", ports)
}

func (cp *ConnectionPrimitive) connect(ctx context.Context) {
	logger := log.MustLogger(ctx)

	lineCh, err := cp.controller.Connect(ctx, cp.SelectedPort())
	if err != nil {
		logger.Error("Failed to connect. Please check the device and select the correct port.", "err", err)
		return
	}
	select {
	case cp.lineChCh <- lineCh:
	case <-ctx.Done():
	}
}

func (cp *ConnectionPrimitive) disconnect(ctx context.Context) {
	logger := log.MustLogger(ctx)
	if err := cp.controller.Disconnect(ctx); err != nil {
		logger.Error("Failed to disconnect", "err", err)
	}
}

// Worker runs queued connection requests.
func (cp *ConnectionPrimitive) Worker(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case request := <-cp.requestCh:
			switch request {
			case connectionRequestRefresh:
				cp.refreshPorts(ctx)
			case connectionRequestConnect:
				cp.connect(ctx)
			case connectionRequestDisconnect:
				cp.disconnect(ctx)
			case connectionRequestToggle:
				switch cp.controller.State() {
				case stepper.StateDisconnected:
					cp.connect(ctx)
				case stepper.StateConnected:
					cp.disconnect(ctx)
				}
			default:
				panic(fmt.Sprintf("bug: unexpected connection request: %#v", request))
			}
		}
	}
}

// StateSubscriberName is the name StateWorker expects its state channel to be subscribed with.
const StateSubscriberName = "ConnectionPrimitive"

// StateWorker updates the state indicator from controller state transitions. When transitions
// were missed, the current controller state is shown instead.
func (cp *ConnectionPrimitive) StateWorker(ctx context.Context, stateCh <-chan stepper.State) error {
	logger := log.MustLogger(ctx)
	var dropped uint64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case state, ok := <-stateCh:
			if !ok {
				return fmt.Errorf("state channel closed")
			}
			if n := cp.controller.Dropped(StateSubscriberName); n != dropped {
				logger.Warn("Missed connection state updates", "count", n-dropped)
				dropped = n
				state = cp.controller.State()
			}
			cp.app.QueueUpdateDraw(func() {
				cp.stateTextView.SetText(stateText(state))
				switch state {
				case stepper.StateConnected:
					cp.connectButton.SetLabel("Disconnect")
				default:
					cp.connectButton.SetLabel("Connect")
				}
				cp.connectButton.SetDisabled(state == stepper.StateConnecting)
			})
		}
	}
}
