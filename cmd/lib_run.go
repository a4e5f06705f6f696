package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/fornellas/slogxt/log"
	"github.com/spf13/cobra"
)

var exitFn = os.Exit

// Exit terminates the program with the given code.
func Exit(code int) {
	exitFn(code)
}

// GetRunFn adapts fn to cobra.Command.Run: the command context is cancelled on SIGINT or
// SIGTERM, and any error returned by fn is logged before exiting with 1.
func GetRunFn(fn func(cmd *cobra.Command, args []string) error) func(cmd *cobra.Command, args []string) {
	return func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		cmd.SetContext(ctx)

		if err := fn(cmd, args); err != nil {
			logger := log.MustLogger(ctx)
			logger.Error("Failed", "err", err)
			stop()
			Exit(1)
		}
	}
}
