package stepper

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPanelMoveAxis(t *testing.T) {
	ctx := testContext(t)
	sender := &fakeSender{}
	session := NewSession()
	session.SetMax(AxisX, "500")
	panel := NewPanel(sender, session)

	require.NoError(t, panel.MoveAxis(ctx, AxisX, "500"))
	require.True(t, panel.ToggleDirection())
	require.NoError(t, panel.MoveAxis(ctx, AxisX, "500"))

	err := panel.MoveAxis(ctx, AxisX, "501")
	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
	require.Equal(t, AxisX, validationErr.Axis)

	require.Equal(t, []string{"X500", "X-500"}, sender.bodies)
}

func TestPanelMoveAxisMostNegativeInt(t *testing.T) {
	ctx := testContext(t)
	sender := &fakeSender{}
	session := NewSession()
	session.SetMax(AxisX, "500")
	panel := NewPanel(sender, session)

	for _, reversed := range []bool{false, true} {
		session.SetReversed(reversed)
		err := panel.MoveAxis(ctx, AxisX, "-9223372036854775808")
		var validationErr *ValidationError
		require.True(t, errors.As(err, &validationErr), "expected *ValidationError, got %#v", err)
		require.Error(t, panel.MoveAll(ctx, "-9223372036854775808", "0", "0"))
	}
	require.Empty(t, sender.bodies)
}

func TestPanelMoveAllIsAtomic(t *testing.T) {
	ctx := testContext(t)
	sender := &fakeSender{}
	session := NewSession()
	session.SetMax(AxisY, "10")
	panel := NewPanel(sender, session)

	err := panel.MoveAll(ctx, "1", "11", "3")
	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
	require.Equal(t, AxisY, validationErr.Axis)
	require.Empty(t, sender.bodies)

	require.NoError(t, panel.MoveAll(ctx, "1", "-10", ""))
	session.SetReversed(true)
	require.NoError(t, panel.MoveAll(ctx, "1", "-10", ""))
	require.Equal(t, []string{"X1,Y-10,Z0", "X-1,Y10,Z0"}, sender.bodies)
}

func TestPanelHome(t *testing.T) {
	ctx := testContext(t)
	sender := &fakeSender{}
	panel := NewPanel(sender, nil)

	require.NoError(t, panel.Home(ctx))
	panel.ToggleDirection()
	require.NoError(t, panel.Home(ctx))
	panel.ToggleDirection()
	require.NoError(t, panel.Home(ctx))
	require.Equal(t, []string{"HOME", "HOME_REVERSED", "HOME"}, sender.bodies)
}

func TestPanelMoveAxisUnchecked(t *testing.T) {
	ctx := testContext(t)
	sender := &fakeSender{}
	session := NewSession()
	session.SetMax(AxisX, "10")
	session.SetReversed(true)
	panel := NewPanel(sender, session)

	require.NoError(t, panel.MoveAxisUnchecked(ctx, AxisX, "100"))
	require.Error(t, panel.MoveAxisUnchecked(ctx, AxisX, ""))
	require.Equal(t, []string{"X-100"}, sender.bodies)
}

func TestPanelNotConnected(t *testing.T) {
	ctx := testContext(t)
	port := newFakePort()
	controller := newTestController(port)
	panel := NewPanel(controller, nil)

	require.ErrorIs(t, panel.MoveAxis(ctx, AxisZ, "1"), ErrNotConnected)
	require.ErrorIs(t, panel.MoveAll(ctx, "1", "2", "3"), ErrNotConnected)
	require.ErrorIs(t, panel.Home(ctx), ErrNotConnected)
	require.Equal(t, "", port.Written())
}

func TestPanelWithController(t *testing.T) {
	ctx := testContext(t)
	port := newFakePort()
	controller := newTestController(port)
	session := NewSession()
	session.SetMax(AxisZ, "500")
	panel := NewPanel(controller, session)

	_, err := controller.Connect(ctx, "/dev/ttyFAKE")
	require.NoError(t, err)
	defer func() { require.NoError(t, controller.Disconnect(ctx)) }()

	require.NoError(t, panel.MoveAxis(ctx, AxisZ, "500"))
	require.Error(t, panel.MoveAxis(ctx, AxisZ, "501"))
	require.Error(t, panel.MoveAll(ctx, "1", "x", "3"))
	panel.ToggleDirection()
	require.NoError(t, panel.MoveAll(ctx, "1", "2", "3"))
	require.NoError(t, panel.Home(ctx))

	require.Eventually(t, func() bool {
		return port.Written() == "<Z500><X-1,Y-2,Z-3><HOME_REVERSED>"
	}, time.Second, 10*time.Millisecond)
}
