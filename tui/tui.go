// Package tui implements the interactive control panel.
package tui

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/fornellas/slogxt/log"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/fornellas/xyzctl/settings"
	"github.com/fornellas/xyzctl/stepper"
	"github.com/fornellas/xyzctl/worker_manager"
)

type TuiOptions struct {
	// SettingsPath is loaded at startup and written on exit.
	SettingsPath string
	// AppLogger, if set, also receives all logs shown in the application.
	AppLogger *slog.Logger
	// ListPortsFn lists the ports available for selection. Defaults to stepper.ListPorts.
	ListPortsFn func() ([]string, error)
}

type Tui struct {
	controller *stepper.Controller
	panel      *stepper.Panel
	options    *TuiOptions
}

func NewTui(controller *stepper.Controller, panel *stepper.Panel, options *TuiOptions) *Tui {
	if options == nil {
		options = &TuiOptions{}
	}
	if options.SettingsPath == "" {
		options.SettingsPath = settings.DefaultPath
	}
	if options.ListPortsFn == nil {
		options.ListPortsFn = stepper.ListPorts
	}
	return &Tui{
		controller: controller,
		panel:      panel,
		options:    options,
	}
}

// startupWorker loads settings, refreshes the port list and connects to the saved port when it
// is available.
func (t *Tui) startupWorker(
	ctx context.Context,
	connectionPrimitive *ConnectionPrimitive,
	axesPrimitive *AxesPrimitive,
) error {
	logger := log.MustLogger(ctx)

	s, err := settings.Load(ctx, t.options.SettingsPath)
	if err != nil {
		logger.Error("Failed to load settings, using default values", "err", err)
		s = settings.Default()
	}
	s.ApplyTo(t.panel.Session())
	axesPrimitive.ApplySettings(s)

	connectionPrimitive.refreshPorts(ctx)
	if s.Port != "" {
		if connectionPrimitive.SelectPort(s.Port) {
			connectionPrimitive.QueueRequest(connectionRequestConnect)
		} else {
			logger.Warn("Saved port not available", "port-name", s.Port)
		}
	}

	<-ctx.Done()
	return ctx.Err()
}

func (t *Tui) currentSettings(connectionPrimitive *ConnectionPrimitive) *settings.Settings {
	s := &settings.Settings{
		Port: connectionPrimitive.SelectedPort(),
	}
	session := t.panel.Session()
	for _, axis := range stepper.Axes {
		s.SetLimit(axis, stepper.ParseLimit(session.Max(axis)))
	}
	return s
}

func (t *Tui) Run(ctx context.Context) (err error) {
	// Application
	app := tview.NewApplication()
	app.EnableMouse(true)

	// Context & Logging
	consoleCtx, consoleLogger := log.MustWithGroup(ctx, "Control")
	statusPrimitive := NewStatusPrimitive(app)
	appHandler := NewEnabledOverrideHandler(
		log.NewTerminalTreeHandler(
			tview.ANSIWriter(statusPrimitive),
			&log.TerminalHandlerOptions{
				// tview.TextView does not handle emojis correctly: drawing is corrupted.
				DisableGroupEmoji: true,
				ForceColor:        true,
			},
		),
		consoleLogger.Handler(),
	)
	appHandlers := []slog.Handler{
		appHandler,
	}
	if t.options.AppLogger != nil {
		appHandlers = append(appHandlers, t.options.AppLogger.Handler())
	}
	appLogger := slog.New(log.NewMultiHandler(appHandlers...))
	appCtx := log.WithLogger(consoleCtx, appLogger)

	// WorkerManager
	workerManager := worker_manager.NewWorkerManager()

	// ConnectionPrimitive
	connectionPrimitive := NewConnectionPrimitive(app, t.controller, t.options.ListPortsFn)
	workerManager.AddWorker("ConnectionPrimitive", connectionPrimitive.Worker)
	stateCh := t.controller.Subscribe(StateSubscriberName, 10)
	defer t.controller.Unsubscribe(StateSubscriberName)
	workerManager.AddWorker("ConnectionPrimitive.StateWorker", func(ctx context.Context) error {
		return connectionPrimitive.StateWorker(ctx, stateCh)
	})

	// StatusPrimitive
	workerManager.AddWorker("StatusPrimitive", func(ctx context.Context) error {
		return statusPrimitive.Worker(ctx, connectionPrimitive.LineChannels())
	})

	// AxesPrimitive
	axesPrimitive := NewAxesPrimitive(app, t.panel)
	workerManager.AddWorker("AxesPrimitive", axesPrimitive.Worker)

	// Startup
	workerManager.AddWorker("Startup", func(ctx context.Context) error {
		return t.startupWorker(ctx, connectionPrimitive, axesPrimitive)
	})

	// Root
	rootFlex := tview.NewFlex()
	rootFlex.SetDirection(tview.FlexRow)
	rootFlex.AddItem(connectionPrimitive, 3, 0, true)
	rootFlex.AddItem(axesPrimitive, 14, 0, false)
	rootFlex.AddItem(statusPrimitive, 0, 1, false)
	app.SetRoot(rootFlex, true)

	// Start
	workerManager.Start(appCtx)

	// App Input
	app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyCtrlC {
			workerManager.Cancel(appCtx)
			return nil
		}
		return event
	})

	// Exit
	var exitMu sync.Mutex
	exitMu.Lock()
	go func() {
		logger := log.MustLogger(appCtx)
		err = errors.Join(err, workerManager.Wait(appCtx))
		logger.Info("Disconnecting")
		err = errors.Join(err, t.controller.Disconnect(appCtx))
		logger.Info("Stopping App")
		app.Stop()
		exitMu.Unlock()
	}()
	defer func() {
		appHandler.Disable()
		if saveErr := settings.Save(consoleCtx, t.options.SettingsPath, t.currentSettings(connectionPrimitive)); saveErr != nil {
			err = errors.Join(err, saveErr)
		}
	}()
	defer func() { exitMu.Lock() }()
	defer func() {
		logger := log.MustLogger(appCtx)

		if r := recover(); r != nil {
			logger.Debug("Panic", "recovered", r, "stack", string(debug.Stack()))
		}

		// After Application.Run returns, any pending or future calls to Application.QueueUpdate
		// will block indefinitely.
		// This hack here spins the app again using a simulated screen, which enables any pending
		// Application.QueueUpdate to be processed, unblocking them, so that workers can properly
		// shutdown.
		app.SetScreen(tcell.NewSimulationScreen("UTF-8"))
		go func() {
			logger.Debug("Restarting app with simulated screen to support workers shutdown")
			logger.Debug("Simulated screen app returned", "err", app.Run())
		}()

		logger.Info("Stopping all workers")
		workerManager.Cancel(appCtx)
	}()

	if runErr := app.Run(); runErr != nil {
		consoleLogger.Error("Application failed", "err", runErr)
		err = errors.Join(err, runErr)
	}
	return
}
