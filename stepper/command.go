package stepper

import (
	"fmt"
	"strings"
)

const (
	commandHome         = "HOME"
	commandHomeReversed = "HOME_REVERSED"
)

// FormatAxis formats a single axis move, eg: X-100.
func FormatAxis(axis Axis, value int) string {
	return fmt.Sprintf("%s%d", axis, value)
}

// FormatAll formats a move of all axes, eg: X1,Y-2,Z3.
func FormatAll(x, y, z int) string {
	return strings.Join([]string{
		FormatAxis(AxisX, x),
		FormatAxis(AxisY, y),
		FormatAxis(AxisZ, z),
	}, ",")
}

// HomeCommand returns the homing command. Homing is the only command where direction is encoded
// in the command name instead of a sign.
func HomeCommand(reversed bool) string {
	if reversed {
		return commandHomeReversed
	}
	return commandHome
}

// Frame wraps a command body for the wire.
func Frame(body string) []byte {
	return []byte("<" + body + ">")
}
