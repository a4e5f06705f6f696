// Package script runs Go scripts that drive the device, interpreted with yaegi.
//
// Scripts import "xyzctl" to move the axes:
//
//	package main
//
//	import "xyzctl"
//
//	func main() {
//		if err := xyzctl.Move("X", "100"); err != nil {
//			panic(err)
//		}
//		xyzctl.Sleep(500)
//		if err := xyzctl.Home(); err != nil {
//			panic(err)
//		}
//	}
package script

import (
	"context"
	"io"
	"reflect"
	"time"

	"github.com/fornellas/slogxt/log"
	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"github.com/fornellas/xyzctl/stepper"
)

// ImportPath is what scripts import to access the device.
const ImportPath = "xyzctl"

// Symbols returns the functions exported to scripts. All of them act on panel, bound to ctx.
func Symbols(ctx context.Context, panel *stepper.Panel) interp.Exports {
	logger := log.MustLogger(ctx)
	return interp.Exports{
		ImportPath + "/" + ImportPath: {
			"Move": reflect.ValueOf(func(axisName, position string) error {
				axis, err := stepper.ParseAxis(axisName)
				if err != nil {
					return err
				}
				return panel.MoveAxis(ctx, axis, position)
			}),
			"MoveAll": reflect.ValueOf(func(x, y, z string) error {
				return panel.MoveAll(ctx, x, y, z)
			}),
			"Home": reflect.ValueOf(func() error {
				return panel.Home(ctx)
			}),
			"SetReversed": reflect.ValueOf(func(reversed bool) {
				logger.Info("Direction", "reversed", reversed)
				panel.Session().SetReversed(reversed)
			}),
			"SetMax": reflect.ValueOf(func(axisName, maxText string) error {
				axis, err := stepper.ParseAxis(axisName)
				if err != nil {
					return err
				}
				panel.Session().SetMax(axis, maxText)
				return nil
			}),
			"Sleep": reflect.ValueOf(func(ms int) {
				select {
				case <-time.After(time.Duration(ms) * time.Millisecond):
				case <-ctx.Done():
				}
			}),
		},
	}
}

// Run interprets the script at path. Script output goes to stdout.
func Run(ctx context.Context, path string, panel *stepper.Panel, stdout io.Writer) error {
	ctx, logger := log.MustWithAttrs(ctx, "path", path)

	interpreter := interp.New(interp.Options{
		Stdout: stdout,
	})
	if err := interpreter.Use(stdlib.Symbols); err != nil {
		return err
	}
	if err := interpreter.Use(Symbols(ctx, panel)); err != nil {
		return err
	}

	logger.Info("Running")
	if _, err := interpreter.EvalPathWithContext(ctx, path); err != nil {
		return err
	}
	logger.Info("Finished")
	return nil
}
