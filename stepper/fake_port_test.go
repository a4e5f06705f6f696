package stepper

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/fornellas/slogxt/log"
	"go.bug.st/serial"
)

func testContext(t *testing.T) context.Context {
	return log.WithLogger(t.Context(), slog.New(slog.DiscardHandler))
}

// fakePort is an in memory serial.Port. Reads return data fed through feed(), or time out
// after a short while.
type fakePort struct {
	mu             sync.Mutex
	readCh         chan []byte
	readErr        error
	writeErr       error
	written        bytes.Buffer
	closed         bool
	closeCount     int
	readAfterClose bool
	readTimeout    time.Duration
	mode           *serial.Mode
}

func newFakePort() *fakePort {
	return &fakePort{
		readCh: make(chan []byte, 100),
	}
}

func (f *fakePort) feed(data string) {
	f.readCh <- []byte(data)
}

func (f *fakePort) setReadErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readErr = err
}

func (f *fakePort) setWriteErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writeErr = err
}

func (f *fakePort) Written() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.written.String()
}

func (f *fakePort) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakePort) ReadAfterClose() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.readAfterClose
}

func (f *fakePort) SetMode(mode *serial.Mode) error {
	f.mode = mode
	return nil
}

func (f *fakePort) Read(p []byte) (int, error) {
	f.mu.Lock()
	if f.closed {
		f.readAfterClose = true
		f.mu.Unlock()
		return 0, errors.New("fake port: read on closed port")
	}
	f.mu.Unlock()

	select {
	case data := <-f.readCh:
		return copy(p, data), nil
	case <-time.After(5 * time.Millisecond):
		f.mu.Lock()
		defer f.mu.Unlock()
		return 0, f.readErr
	}
}

func (f *fakePort) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return 0, errors.New("fake port: write on closed port")
	}
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	return f.written.Write(p)
}

func (f *fakePort) Drain() error             { return nil }
func (f *fakePort) ResetInputBuffer() error  { return nil }
func (f *fakePort) ResetOutputBuffer() error { return nil }
func (f *fakePort) SetDTR(dtr bool) error    { return nil }
func (f *fakePort) SetRTS(rts bool) error    { return nil }
func (f *fakePort) GetModemStatusBits() (*serial.ModemStatusBits, error) {
	return &serial.ModemStatusBits{}, nil
}
func (f *fakePort) Break(time.Duration) error { return nil }

func (f *fakePort) SetReadTimeout(t time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readTimeout = t
	return nil
}

func (f *fakePort) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.closeCount++
	return nil
}

// fakeSender records sent command bodies.
type fakeSender struct {
	bodies []string
	err    error
}

func (s *fakeSender) Send(ctx context.Context, body string) error {
	if s.err != nil {
		return s.err
	}
	s.bodies = append(s.bodies, body)
	return nil
}
