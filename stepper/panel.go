package stepper

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// Session holds the operator adjustable state used to build commands: the direction flag and
// the max value text of each axis.
type Session struct {
	mu       sync.Mutex
	reversed bool
	limits   map[Axis]string
}

func NewSession() *Session {
	s := &Session{
		limits: map[Axis]string{},
	}
	for _, axis := range Axes {
		s.limits[axis] = strconv.Itoa(DefaultAxisLimit)
	}
	return s
}

func (s *Session) Reversed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reversed
}

func (s *Session) SetReversed(reversed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reversed = reversed
}

// ToggleReversed flips the direction flag and returns its new value.
func (s *Session) ToggleReversed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reversed = !s.reversed
	return s.reversed
}

// Max returns the max value text of the axis.
func (s *Session) Max(axis Axis) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.limits[axis]
}

func (s *Session) SetMax(axis Axis, maxText string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.limits[axis] = maxText
}

// Sender sends a command body to the device.
type Sender interface {
	Send(ctx context.Context, body string) error
}

// Panel validates operator input against the Session and sends the resulting commands.
type Panel struct {
	sender  Sender
	session *Session
}

func NewPanel(sender Sender, session *Session) *Panel {
	if session == nil {
		session = NewSession()
	}
	return &Panel{
		sender:  sender,
		session: session,
	}
}

func (p *Panel) Session() *Session {
	return p.session
}

func (p *Panel) validate(axis Axis, positionText string) (int, error) {
	p.session.mu.Lock()
	reversed := p.session.reversed
	maxText := p.session.limits[axis]
	p.session.mu.Unlock()
	return Validate(axis, positionText, maxText, reversed)
}

// MoveAxis moves a single axis to positionText.
func (p *Panel) MoveAxis(ctx context.Context, axis Axis, positionText string) error {
	value, err := p.validate(axis, positionText)
	if err != nil {
		return err
	}
	return p.sender.Send(ctx, FormatAxis(axis, value))
}

// MoveAll moves all axes at once. If any axis is invalid, nothing is sent and the error of the
// first invalid axis is returned.
func (p *Panel) MoveAll(ctx context.Context, xText, yText, zText string) error {
	values := make([]int, 0, len(Axes))
	for i, positionText := range []string{xText, yText, zText} {
		value, err := p.validate(Axes[i], positionText)
		if err != nil {
			return err
		}
		values = append(values, value)
	}
	return p.sender.Send(ctx, FormatAll(values[0], values[1], values[2]))
}

// Home sends the homing command matching the direction flag.
func (p *Panel) Home(ctx context.Context) error {
	return p.sender.Send(ctx, HomeCommand(p.session.Reversed()))
}

// ToggleDirection flips the direction flag and returns its new value.
func (p *Panel) ToggleDirection() bool {
	return p.session.ToggleReversed()
}

// MoveAxisUnchecked moves a single axis without checking its max value. Direction still
// applies.
func (p *Panel) MoveAxisUnchecked(ctx context.Context, axis Axis, positionText string) error {
	positionText = strings.TrimSpace(positionText)
	position, err := strconv.Atoi(positionText)
	if err != nil {
		return &ValidationError{
			Axis: axis, Position: positionText,
			Reason: fmt.Sprintf("position %#v is not a valid integer", positionText),
		}
	}
	value := position * directionMultiplier(p.session.Reversed())
	return p.sender.Send(ctx, FormatAxis(axis, value))
}
