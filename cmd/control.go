package main

import (
	"errors"

	"github.com/fornellas/slogxt/log"
	"github.com/spf13/cobra"

	"github.com/fornellas/xyzctl/stepper"
	tuiMod "github.com/fornellas/xyzctl/tui"
)

var ControlCmd = &cobra.Command{
	Use:   "control",
	Short: "Open the terminal control panel.",
	Long:  "Opens a terminal control panel to select the serial port, connect to the device and move its axes. The selected port and axes max values are saved to the settings file on exit.",
	Args:  cobra.NoArgs,
	Run: GetRunFn(func(cmd *cobra.Command, args []string) (err error) {
		ctx, _ := log.MustWithAttrs(
			cmd.Context(),
			"address", address,
			"driver", driver,
			"settings-path", settingsPath,
		)
		cmd.SetContext(ctx)

		listPortsFn := stepper.ListPorts
		var openPortFn stepper.OpenPortFn
		if address != "" {
			openPortFn, _, err = GetOpenPortFn(ctx, nil)
			listPortsFn = func() ([]string, error) {
				return []string{address}, nil
			}
		} else {
			openPortFn, err = GetSerialOpenPortFn()
		}
		if err != nil {
			return err
		}

		controller := NewController(openPortFn)
		defer func() { err = errors.Join(err, controller.Close(ctx)) }()
		panel := stepper.NewPanel(controller, stepper.NewSession())

		tui := tuiMod.NewTui(controller, panel, &tuiMod.TuiOptions{
			SettingsPath: settingsPath,
			AppLogger:    logDebugFileLogger,
			ListPortsFn:  listPortsFn,
		})

		return tui.Run(ctx)
	}),
}

func init() {
	AddDriverFlags(ControlCmd)

	RootCmd.AddCommand(ControlCmd)
}
