package main

import (
	"errors"

	"github.com/fornellas/slogxt/log"
	"github.com/spf13/cobra"

	"github.com/fornellas/xyzctl/script"
)

var ScriptCmd = &cobra.Command{
	Use:   "script path",
	Short: "Execute a Go script controlling the device.",
	Long:  `Connects to the device and interprets the Go script at path. The script can import "xyzctl" to use Move, MoveAll, Home, SetReversed, SetMax and Sleep.`,
	Args:  cobra.ExactArgs(1),
	Run: GetRunFn(func(cmd *cobra.Command, args []string) (err error) {
		path := args[0]

		ctx, _ := log.MustWithAttrs(
			cmd.Context(),
			"port-name", portName,
			"address", address,
		)
		cmd.SetContext(ctx)

		panel, lineCh, disconnect, err := Connect(cmd)
		if err != nil {
			return err
		}
		defer func() { err = errors.Join(err, disconnect()) }()
		go LogLines(ctx, lineCh)

		return script.Run(ctx, path, panel, cmd.OutOrStdout())
	}),
}

func init() {
	AddPortFlags(ScriptCmd)
	AddSessionFlags(ScriptCmd)

	RootCmd.AddCommand(ScriptCmd)
}
