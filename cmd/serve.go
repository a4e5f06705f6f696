package main

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/fornellas/slogxt/log"
	"github.com/spf13/cobra"
	"go.bug.st/serial"

	"github.com/fornellas/xyzctl/serialtcp"
	"github.com/fornellas/xyzctl/stepper"
)

var listenAddress string
var defaultListenAddress = "127.0.0.1:9999"

var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start a TCP server connected to a serial port.",
	Long:  "Opens serial port and a TCP server, and pipes communication between both. Other commands can then connect to it with --address. There's NO security implemented, this can only be used in secure networks at your own risk.",
	Args:  cobra.NoArgs,
	Run: GetRunFn(func(cmd *cobra.Command, args []string) (err error) {
		ctx, logger := log.MustWithAttrs(
			cmd.Context(),
			"port-name", portName,
			"driver", driver,
			"listen-address", listenAddress,
		)
		cmd.SetContext(ctx)

		openPortFn, err := GetSerialOpenPortFn()
		if err != nil {
			return err
		}

		logger.Info("Listening")
		listener, err := net.Listen("tcp", listenAddress)
		if err != nil {
			return fmt.Errorf("failed to listen: %s: %w", listenAddress, err)
		}
		defer func() {
			if closeErr := listener.Close(); closeErr != nil && !errors.Is(closeErr, net.ErrClosed) {
				err = errors.Join(err, closeErr)
			}
		}()

		return serialtcp.Serve(ctx, listener, func(ctx context.Context) (serial.Port, error) {
			mode := stepper.Mode
			return openPortFn(ctx, portName, &mode)
		})
	}),
}

func init() {
	ServeCmd.PersistentFlags().StringVarP(&portName, "port-name", "p", defaultPortName, "Serial port name to open")
	if err := ServeCmd.MarkPersistentFlagRequired("port-name"); err != nil {
		panic(err)
	}
	ServeCmd.PersistentFlags().StringVar(&driver, "driver", defaultDriver, fmt.Sprintf("Serial port driver: %s or %s", driverBugst, driverTarm))
	ServeCmd.PersistentFlags().StringVar(&listenAddress, "listen-address", defaultListenAddress, "TCP address to listen on (host:port)")

	RootCmd.AddCommand(ServeCmd)

	resetFlagsFns = append(resetFlagsFns, func() {
		listenAddress = defaultListenAddress
	})
}
