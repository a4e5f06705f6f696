package worker_manager

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/fornellas/slogxt/log"
)

type workerType struct {
	name       string
	fn         func(context.Context) error
	cancelFunc context.CancelFunc
	errCh      chan error
}

// WorkerManager runs a group of named workers. When any worker returns, all workers are
// cancelled, in reverse order of addition.
type WorkerManager struct {
	workers []*workerType
}

func NewWorkerManager() *WorkerManager {
	return &WorkerManager{}
}

// AddWorker registers a worker to be run by Start. fn must return when its context is done.
func (wm *WorkerManager) AddWorker(name string, fn func(context.Context) error) {
	wm.workers = append([]*workerType{{name: name, fn: fn}}, wm.workers...)
}

// Start runs all workers, each in its own goroutine.
func (wm *WorkerManager) Start(ctx context.Context) {
	ctx, logger := log.MustWithGroup(ctx, "Worker Manager > Workers")
	logger.Debug("Starting workers")
	for _, worker := range wm.workers {
		workerCtx, workerLogger := log.MustWithGroup(ctx, worker.name)
		workerCtx, worker.cancelFunc = context.WithCancel(workerCtx)
		worker.errCh = make(chan error, 1)
		go func() {
			var err error
			defer func() {
				if r := recover(); r != nil {
					workerLogger.Error("Panic", "recovered", r, "stack", string(debug.Stack()))
					err = fmt.Errorf("panic: %v", r)
				}
				workerLogger.Debug("Finished", "err", err)
				wm.Cancel(workerCtx)
				worker.errCh <- err
			}()
			workerLogger.Debug("Starting")
			err = worker.fn(workerCtx)
		}()
	}
	logger.Debug("All workers started")
}

// Cancel cancels the last added worker. Once it returns, Wait cancels the others.
func (wm *WorkerManager) Cancel(ctx context.Context) {
	logger := log.MustLogger(ctx).WithGroup("Worker Manager > Cancel")
	if len(wm.workers) == 0 {
		return
	}
	worker := wm.workers[0]
	logger = logger.With("name", worker.name)
	logger.Debug("Cancelling")
	worker.cancelFunc()
}

// Wait blocks until all workers have returned. Workers returning context.Canceled are
// considered successful; other errors are prefixed with the worker name and joined.
func (wm *WorkerManager) Wait(ctx context.Context) (err error) {
	logger := log.MustLogger(ctx).WithGroup("Worker Manager > Wait")
	logger.Debug("Waiting for all workers")
	for i, worker := range wm.workers {
		workerLogger := logger.WithGroup(worker.name)
		if i > 0 {
			workerLogger.Debug("Cancelling")
			worker.cancelFunc()
		}
		workerLogger.Debug("Waiting")
		workerErr := <-worker.errCh
		if errors.Is(workerErr, context.Canceled) {
			workerErr = nil
		}
		if workerErr != nil {
			err = errors.Join(err, fmt.Errorf("%s: %w", worker.name, workerErr))
		}
	}
	wm.workers = nil
	logger.Debug("All workers returned", "err", err)
	return err
}
