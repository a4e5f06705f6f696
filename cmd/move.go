package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fornellas/slogxt/log"
	"github.com/spf13/cobra"

	"github.com/fornellas/xyzctl/stepper"
)

var movePositions = map[stepper.Axis]*string{
	stepper.AxisX: new(string),
	stepper.AxisY: new(string),
	stepper.AxisZ: new(string),
}

func positionFlagName(axis stepper.Axis) string {
	return strings.ToLower(axis.String())
}

// getMoveAxes returns the axes with their position flag set.
func getMoveAxes(cmd *cobra.Command) ([]stepper.Axis, error) {
	axes := []stepper.Axis{}
	for _, axis := range stepper.Axes {
		if cmd.Flags().Changed(positionFlagName(axis)) {
			axes = append(axes, axis)
		}
	}
	if len(axes) != 1 && len(axes) != len(stepper.Axes) {
		return nil, fmt.Errorf("either a single axis or all of --x, --y and --z must be set")
	}
	return axes, nil
}

var MoveCmd = &cobra.Command{
	Use:   "move",
	Short: "Move a single axis or all axes at once.",
	Args:  cobra.NoArgs,
	Run: GetRunFn(func(cmd *cobra.Command, args []string) (err error) {
		axes, err := getMoveAxes(cmd)
		if err != nil {
			return err
		}

		ctx, logger := log.MustWithAttrs(
			cmd.Context(),
			"port-name", portName,
			"address", address,
			"x", *movePositions[stepper.AxisX],
			"y", *movePositions[stepper.AxisY],
			"z", *movePositions[stepper.AxisZ],
		)
		cmd.SetContext(ctx)

		panel, lineCh, disconnect, err := Connect(cmd)
		if err != nil {
			return err
		}
		defer func() { err = errors.Join(err, disconnect()) }()
		go LogLines(ctx, lineCh)

		logger.Info("Moving")
		if len(axes) == 1 {
			return panel.MoveAxis(ctx, axes[0], *movePositions[axes[0]])
		}
		return panel.MoveAll(
			ctx,
			*movePositions[stepper.AxisX],
			*movePositions[stepper.AxisY],
			*movePositions[stepper.AxisZ],
		)
	}),
}

func init() {
	AddPortFlags(MoveCmd)
	AddSessionFlags(MoveCmd)

	for _, axis := range stepper.Axes {
		MoveCmd.Flags().StringVar(
			movePositions[axis], positionFlagName(axis), "",
			fmt.Sprintf("Target position of axis %s", axis),
		)
	}

	RootCmd.AddCommand(MoveCmd)

	resetFlagsFns = append(resetFlagsFns, func() {
		for _, axis := range stepper.Axes {
			*movePositions[axis] = ""
		}
	})
}
