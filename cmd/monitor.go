package main

import (
	"errors"
	"fmt"

	"github.com/fornellas/slogxt/log"
	"github.com/spf13/cobra"
)

var MonitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Print lines received from the device until interrupted.",
	Args:  cobra.NoArgs,
	Run: GetRunFn(func(cmd *cobra.Command, args []string) (err error) {
		ctx, logger := log.MustWithAttrs(
			cmd.Context(),
			"port-name", portName,
			"address", address,
			"output", lineOutputValue.String(),
		)
		cmd.SetContext(ctx)

		output, err := lineOutputValue.Open()
		if err != nil {
			return err
		}
		defer func() { err = errors.Join(err, output.Close()) }()

		_, lineCh, disconnect, err := Connect(cmd)
		if err != nil {
			return err
		}
		defer func() { err = errors.Join(err, disconnect()) }()

		logger.Info("Monitoring")
		for {
			select {
			case <-ctx.Done():
				logger.Info("Interrupted")
				return nil
			case line, ok := <-lineCh:
				if !ok {
					return fmt.Errorf("connection lost")
				}
				if _, err := fmt.Fprint(output, line); err != nil {
					return err
				}
			}
		}
	}),
}

func init() {
	AddPortFlags(MonitorCmd)
	AddLineOutputFlags(MonitorCmd)

	RootCmd.AddCommand(MonitorCmd)
}
