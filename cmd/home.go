package main

import (
	"errors"

	"github.com/fornellas/slogxt/log"
	"github.com/spf13/cobra"
)

var HomeCmd = &cobra.Command{
	Use:   "home",
	Short: "Move all axes to their home position.",
	Args:  cobra.NoArgs,
	Run: GetRunFn(func(cmd *cobra.Command, args []string) (err error) {
		ctx, logger := log.MustWithAttrs(
			cmd.Context(),
			"port-name", portName,
			"address", address,
			"reverse", reverse,
		)
		cmd.SetContext(ctx)

		panel, lineCh, disconnect, err := Connect(cmd)
		if err != nil {
			return err
		}
		defer func() { err = errors.Join(err, disconnect()) }()
		go LogLines(ctx, lineCh)

		logger.Info("Homing")
		return panel.Home(ctx)
	}),
}

func init() {
	AddPortFlags(HomeCmd)
	AddSessionFlags(HomeCmd)

	RootCmd.AddCommand(HomeCmd)
}
