package worker_manager

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/fornellas/slogxt/log"
	"github.com/stretchr/testify/require"
)

func testContext(t *testing.T) context.Context {
	return log.WithLogger(t.Context(), slog.New(slog.DiscardHandler))
}

func TestWorkerManagerCancel(t *testing.T) {
	ctx := testContext(t)
	wm := NewWorkerManager()

	var mu sync.Mutex
	var stopped []string
	for _, name := range []string{"first", "second", "third"} {
		wm.AddWorker(name, func(ctx context.Context) error {
			<-ctx.Done()
			mu.Lock()
			stopped = append(stopped, name)
			mu.Unlock()
			return ctx.Err()
		})
	}

	wm.Start(ctx)
	wm.Cancel(ctx)
	require.NoError(t, wm.Wait(ctx))
	require.Equal(t, []string{"third", "second", "first"}, stopped)
}

func TestWorkerManagerError(t *testing.T) {
	ctx := testContext(t)
	wm := NewWorkerManager()

	wm.AddWorker("waiting", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	wm.AddWorker("failing", func(ctx context.Context) error {
		return errors.New("boom")
	})

	wm.Start(ctx)
	err := wm.Wait(ctx)
	require.ErrorContains(t, err, "failing: boom")
	require.NotContains(t, err.Error(), "waiting")
}

func TestWorkerManagerPanic(t *testing.T) {
	ctx := testContext(t)
	wm := NewWorkerManager()

	wm.AddWorker("panicking", func(ctx context.Context) error {
		panic("oops")
	})

	wm.Start(ctx)
	require.ErrorContains(t, wm.Wait(ctx), "panicking: panic: oops")
}
