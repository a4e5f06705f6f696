package stepper

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/fornellas/slogxt/log"
	"go.bug.st/serial"
)

// MaxLineLength is the longest line accepted from the device, newline excluded.
const MaxLineLength = 4096

func decodeLine(line []byte) (string, error) {
	if !utf8.Valid(line) {
		return "", &DecodeError{Line: append([]byte{}, line...), Reason: "invalid UTF-8"}
	}
	return strings.TrimSpace(string(line)), nil
}

// readLines reads from port until ctx is done or a failure happens. Reads return after at most
// ReadTimeout, which is when ctx is checked; partial lines are kept across reads.
//
//gocyclo:ignore
func readLines(ctx context.Context, port serial.Port, lineCh chan<- string) error {
	buf := make([]byte, 256)
	var line []byte
	for {
		if ctx.Err() != nil {
			return nil
		}

		n, err := port.Read(buf)

		for _, b := range buf[:n] {
			if b != '\n' {
				if len(line) >= MaxLineLength {
					return &DecodeError{
						Line:   append([]byte{}, line[:64]...),
						Reason: fmt.Sprintf("line longer than %d bytes", MaxLineLength),
					}
				}
				line = append(line, b)
				continue
			}
			text, decodeErr := decodeLine(line)
			line = line[:0]
			if decodeErr != nil {
				return decodeErr
			}
			if text == "" {
				continue
			}
			select {
			case lineCh <- text + "\n":
			case <-ctx.Done():
				return nil
			}
		}

		if err != nil && !errors.Is(err, os.ErrDeadlineExceeded) {
			if ctx.Err() != nil {
				return nil
			}
			return &IOError{Op: "read", Err: err}
		}
	}
}

// dropLink disconnects after the reader of l failed. It does nothing if l was already detached
// by Disconnect() or Send().
func (c *Controller) dropLink(ctx context.Context, l *link) {
	logger := log.MustLogger(ctx)

	c.mu.Lock()
	if c.link != l {
		c.mu.Unlock()
		return
	}
	c.link = nil
	l.cancel()
	err := l.port.Close()
	c.setState(StateDisconnected)
	c.mu.Unlock()

	if err != nil {
		logger.Error("Failed to close serial port", "err", fmt.Errorf("stepper: serial port close error: %w", err))
	}
	logger.Info("Disconnected", "port-name", l.portName)
}

func (c *Controller) readerWorker(ctx context.Context, l *link, lineCh chan<- string) {
	ctx, logger := log.MustWithGroup(ctx, "Reader")
	defer close(l.doneCh)

	logger.Debug("Starting")
	err := readLines(ctx, l.port, lineCh)
	close(lineCh)
	if err == nil {
		logger.Debug("Stopped")
		return
	}

	logger.Error("Link failed", "err", err)
	c.dropLink(ctx, l)
}
