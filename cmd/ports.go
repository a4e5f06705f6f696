package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fornellas/xyzctl/stepper"
)

var portsDetails bool
var defaultPortsDetails = false

var PortsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List available serial ports.",
	Args:  cobra.NoArgs,
	Run: GetRunFn(func(cmd *cobra.Command, args []string) error {
		if portsDetails {
			details, err := stepper.ListPortDetails()
			if err != nil {
				return err
			}
			for _, detail := range details {
				fmt.Fprintln(cmd.OutOrStdout(), detail)
			}
			return nil
		}

		ports, err := stepper.ListPorts()
		if err != nil {
			return err
		}
		for _, port := range ports {
			fmt.Fprintln(cmd.OutOrStdout(), port)
		}
		return nil
	}),
}

func init() {
	PortsCmd.Flags().BoolVarP(&portsDetails, "details", "d", defaultPortsDetails, "Show USB details of each port")

	RootCmd.AddCommand(PortsCmd)

	resetFlagsFns = append(resetFlagsFns, func() {
		portsDetails = defaultPortsDetails
	})
}
