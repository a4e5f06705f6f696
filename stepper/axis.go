package stepper

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultAxisLimit is the max absolute position used when no limit was given.
const DefaultAxisLimit = 10000

// Axis is one of the positioning channels of the device.
type Axis byte

const (
	AxisX Axis = 'X'
	AxisY Axis = 'Y'
	AxisZ Axis = 'Z'
)

// Axes lists all axes, in wire order.
var Axes = []Axis{AxisX, AxisY, AxisZ}

func (a Axis) String() string {
	return string(rune(a))
}

// ParseAxis parses a case insensitive axis name.
func ParseAxis(s string) (Axis, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "X":
		return AxisX, nil
	case "Y":
		return AxisY, nil
	case "Z":
		return AxisZ, nil
	default:
		return 0, fmt.Errorf("stepper: unknown axis %#v", s)
	}
}

// ParseLimit parses a max value as stored in settings: anything empty or non-numeric yields
// DefaultAxisLimit.
func ParseLimit(s string) int {
	limit, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return DefaultAxisLimit
	}
	return limit
}

func directionMultiplier(reversed bool) int {
	if reversed {
		return -1
	}
	return 1
}

// withinLimit reports whether position magnitude is at most limit. It never negates position,
// which would overflow for the most negative int.
func withinLimit(position, limit int) bool {
	return limit >= 0 && position <= limit && position >= -limit
}

// Validate checks positionText against maxText for the given axis and returns the value to be
// sent, with the direction applied.
// An empty positionText means 0, and an empty maxText means DefaultAxisLimit.
func Validate(axis Axis, positionText, maxText string, reversed bool) (int, error) {
	positionText = strings.TrimSpace(positionText)
	maxText = strings.TrimSpace(maxText)

	position := 0
	if positionText != "" {
		var err error
		position, err = strconv.Atoi(positionText)
		if err != nil {
			return 0, &ValidationError{
				Axis: axis, Position: positionText, Max: maxText,
				Reason: fmt.Sprintf("position %#v is not a valid integer", positionText),
			}
		}
	}

	limit := DefaultAxisLimit
	if maxText != "" {
		var err error
		limit, err = strconv.Atoi(maxText)
		if err != nil {
			return 0, &ValidationError{
				Axis: axis, Position: positionText, Max: maxText,
				Reason: fmt.Sprintf("max value %#v is not a valid integer", maxText),
			}
		}
	}

	if !withinLimit(position, limit) {
		return 0, &ValidationError{
			Axis: axis, Position: positionText, Max: maxText,
			Reason: fmt.Sprintf("position value (%d) cannot exceed max value (%d)", position, limit),
		}
	}

	return position * directionMultiplier(reversed), nil
}
