package stepper

import "fmt"

// State is the connection state of a Controller.
type State int

const (
	StateDisconnected State = iota
	// StateConnecting covers opening the port and waiting for the device to reset. No command
	// may be sent while in this state.
	StateConnecting
	StateConnected
)

var stateNames = map[State]string{
	StateDisconnected: "Disconnected",
	StateConnecting:   "Connecting",
	StateConnected:    "Connected",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}
