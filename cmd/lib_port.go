package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fornellas/slogxt/log"
	"github.com/spf13/cobra"
	"go.bug.st/serial"

	"github.com/fornellas/xyzctl/serialtcp"
	"github.com/fornellas/xyzctl/settings"
	"github.com/fornellas/xyzctl/stepper"
	"github.com/fornellas/xyzctl/tarmport"
)

const (
	driverBugst = "bugst"
	driverTarm  = "tarm"
)

var portName string
var defaultPortName = ""

var address string
var defaultAddress = ""

var dialTimeout time.Duration
var defaultDialTimeout = 5 * time.Second

var driver string
var defaultDriver = driverBugst

var settleDelay time.Duration
var defaultSettleDelay = stepper.DefaultSettleDelay

var reverse bool
var defaultReverse = false

var axisMax = map[stepper.Axis]*int{
	stepper.AxisX: new(int),
	stepper.AxisY: new(int),
	stepper.AxisZ: new(int),
}
var defaultAxisMax = stepper.DefaultAxisLimit

func maxFlagName(axis stepper.Axis) string {
	return strings.ToLower(axis.String()) + "-max"
}

func AddPortFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVarP(&portName, "port-name", "p", defaultPortName, "Serial port name to open; defaults to the port saved in the settings file")
	AddDriverFlags(cmd)
}

func AddDriverFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVarP(&address, "address", "a", defaultAddress, "TCP address to connect to, as exposed by the serve command")
	cmd.PersistentFlags().DurationVar(&dialTimeout, "dial-timeout", defaultDialTimeout, "Timeout when connecting to --address")
	cmd.PersistentFlags().StringVar(&driver, "driver", defaultDriver, fmt.Sprintf("Serial port driver: %s or %s", driverBugst, driverTarm))
	cmd.PersistentFlags().DurationVar(&settleDelay, "settle-delay", defaultSettleDelay, "Time to wait for the device to reset after the port is opened")
}

func AddSessionFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().BoolVar(&reverse, "reverse", defaultReverse, "Reverse direction of all axes")
	for _, axis := range stepper.Axes {
		cmd.PersistentFlags().IntVar(
			axisMax[axis],
			maxFlagName(axis),
			defaultAxisMax,
			fmt.Sprintf("Max absolute position of axis %s; defaults to the value in the settings file", axis),
		)
	}
}

// GetSerialOpenPortFn returns the function to open a local serial port with the selected driver.
func GetSerialOpenPortFn() (stepper.OpenPortFn, error) {
	switch driver {
	case driverBugst:
		return stepper.OpenSerialPort, nil
	case driverTarm:
		return func(ctx context.Context, portName string, mode *serial.Mode) (serial.Port, error) {
			return tarmport.Open(portName, mode, stepper.ReadTimeout)
		}, nil
	default:
		return nil, fmt.Errorf("invalid --driver: %#v", driver)
	}
}

// GetOpenPortFn returns the function to open the device and the name to pass to it, from
// either --port-name, --address or the settings file.
func GetOpenPortFn(ctx context.Context, s *settings.Settings) (stepper.OpenPortFn, string, error) {
	if portName != "" && address != "" {
		return nil, "", fmt.Errorf("flags --port-name and --address can not be set simultaneously")
	}

	if address != "" {
		return func(ctx context.Context, address string, mode *serial.Mode) (serial.Port, error) {
			return serialtcp.TcpPortDial(ctx, address, dialTimeout)
		}, address, nil
	}

	openPortFn, err := GetSerialOpenPortFn()
	if err != nil {
		return nil, "", err
	}

	name := portName
	if name == "" {
		name = s.Port
		log.MustLogger(ctx).Debug("Using port from settings", "port-name", name)
	}
	if name == "" {
		return nil, "", fmt.Errorf("either --port-name or --address must be set")
	}
	return openPortFn, name, nil
}

func NewController(openPortFn stepper.OpenPortFn) *stepper.Controller {
	return stepper.NewController(openPortFn, &stepper.ControllerOptions{
		SettleDelay:    settleDelay,
		LineBufferSize: stepper.DefaultLineBufferSize,
	})
}

// NewSession returns a session from the settings file, overridden by flags.
func NewSession(cmd *cobra.Command, s *settings.Settings) *stepper.Session {
	session := stepper.NewSession()
	s.ApplyTo(session)
	for _, axis := range stepper.Axes {
		flag := cmd.Flags().Lookup(maxFlagName(axis))
		if flag != nil && flag.Changed {
			session.SetMax(axis, strconv.Itoa(*axisMax[axis]))
		}
	}
	session.SetReversed(reverse)
	return session
}

// Connect loads settings, connects to the device and returns a panel to control it. The returned
// function disconnects and releases the controller.
func Connect(cmd *cobra.Command) (*stepper.Panel, <-chan string, func() error, error) {
	ctx := cmd.Context()

	s, err := settings.Load(ctx, settingsPath)
	if err != nil {
		return nil, nil, nil, err
	}

	openPortFn, name, err := GetOpenPortFn(ctx, s)
	if err != nil {
		return nil, nil, nil, err
	}

	controller := NewController(openPortFn)
	lineCh, err := controller.Connect(ctx, name)
	if err != nil {
		return nil, nil, nil, err
	}

	panel := stepper.NewPanel(controller, NewSession(cmd, s))
	disconnect := func() error {
		return controller.Close(ctx)
	}
	return panel, lineCh, disconnect, nil
}

// LogLines logs each line received from the device, until lineCh is closed.
func LogLines(ctx context.Context, lineCh <-chan string) {
	logger := log.MustLogger(ctx)
	for line := range lineCh {
		logger.Info("Received", "line", strings.TrimSpace(line))
	}
}

func init() {
	resetFlagsFns = append(resetFlagsFns, func() {
		portName = defaultPortName
		address = defaultAddress
		dialTimeout = defaultDialTimeout
		driver = defaultDriver
		settleDelay = defaultSettleDelay
		reverse = defaultReverse
		for _, axis := range stepper.Axes {
			*axisMax[axis] = defaultAxisMax
		}
	})
}
