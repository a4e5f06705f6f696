package serialtcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/fornellas/slogxt/log"
	"go.bug.st/serial"
)

func handleConnection(
	ctx context.Context,
	conn net.Conn,
	openPortFn func(context.Context) (serial.Port, error),
) error {
	logger := log.MustLogger(ctx)

	if tcpConn, ok := conn.(*net.TCPConn); ok {
		if err := tcpConn.SetNoDelay(true); err != nil {
			return errors.Join(fmt.Errorf("failed to set TCP no delay: %w", err), conn.Close())
		}
	}

	logger.Info("Opening serial port")
	serialPort, err := openPortFn(ctx)
	if err != nil {
		return errors.Join(fmt.Errorf("failed to open serial port: %w", err), conn.Close())
	}

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	errCh := make(chan error, 2)

	logger.Info("Copying I/O")
	go func() {
		_, err := io.Copy(conn, serialPort)
		errCh <- err
	}()

	go func() {
		_, err := io.Copy(serialPort, conn)
		errCh <- err
	}()

	err = <-errCh
	logger.Info("Closing connection")
	err = errors.Join(err, conn.Close())
	logger.Info("Closing port")
	err = errors.Join(err, serialPort.Close())
	logger.Info("Waiting for copy routine to return")
	<-errCh

	if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

// Serve accepts TCP connections on listener, one at a time, and pipes each of them to a serial
// port opened by openPortFn. There's no authentication: only use it on trusted networks.
// It returns when ctx is done.
func Serve(
	ctx context.Context,
	listener net.Listener,
	openPortFn func(context.Context) (serial.Port, error),
) error {
	logger := log.MustLogger(ctx)

	stop := context.AfterFunc(ctx, func() { listener.Close() })
	defer stop()

	for {
		logger.Info("Accepting connection")
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return fmt.Errorf("failed to accept connection: %w", err)
			}
			logger.Error("Failed to accept connection", "error", err)
			continue
		}
		connCtx, connLogger := log.MustWithGroupAttrs(
			ctx,
			"Connection",
			"LocalAddr", conn.LocalAddr(),
			"RemoteAddr", conn.RemoteAddr(),
		)
		connLogger.Info("Accepted")

		if err := handleConnection(connCtx, conn, openPortFn); err != nil {
			connLogger.Error("Failed to handle connection", "error", err)
		}
	}
}
