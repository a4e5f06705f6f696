package tui

import (
	"context"
	"fmt"
	"strconv"

	"github.com/fornellas/slogxt/log"
	"github.com/rivo/tview"

	"github.com/fornellas/xyzctl/settings"
	"github.com/fornellas/xyzctl/stepper"
)

// DefaultTestPosition is the initial value of the unchecked X move input.
const DefaultTestPosition = "100"

type axisAction struct {
	name string
	fn   func(ctx context.Context) error
}

type axisInputs struct {
	position *tview.InputField
	max      *tview.InputField
}

// AxesPrimitive holds the position and max value inputs of each axis, plus the move, homing,
// direction and test controls.
type AxesPrimitive struct {
	*tview.Flex
	app               *tview.Application
	panel             *stepper.Panel
	inputs            map[stepper.Axis]*axisInputs
	reverseCheckbox   *tview.Checkbox
	testPositionInput *tview.InputField
	actionCh          chan axisAction
}

func NewAxesPrimitive(app *tview.Application, panel *stepper.Panel) *AxesPrimitive {
	ap := &AxesPrimitive{
		app:      app,
		panel:    panel,
		inputs:   map[stepper.Axis]*axisInputs{},
		actionCh: make(chan axisAction, 10),
	}

	axesFlex := tview.NewFlex()
	axesFlex.SetDirection(tview.FlexRow)
	for _, axis := range stepper.Axes {
		axesFlex.AddItem(ap.newAxisFlex(axis), 1, 0, false)
		axesFlex.AddItem(nil, 1, 0, false)
	}

	moveAllButton := tview.NewButton("Move All")
	moveAllButton.SetSelectedFunc(func() {
		xText := ap.inputs[stepper.AxisX].position.GetText()
		yText := ap.inputs[stepper.AxisY].position.GetText()
		zText := ap.inputs[stepper.AxisZ].position.GetText()
		ap.QueueAction("Move All", func(ctx context.Context) error {
			return ap.panel.MoveAll(ctx, xText, yText, zText)
		})
	})

	homeButton := tview.NewButton("Homing")
	homeButton.SetSelectedFunc(func() {
		ap.QueueAction("Homing", ap.panel.Home)
	})

	reverseCheckbox := tview.NewCheckbox()
	reverseCheckbox.SetLabel("Reverse ")
	reverseCheckbox.SetChecked(panel.Session().Reversed())
	reverseCheckbox.SetChangedFunc(func(checked bool) {
		ap.panel.Session().SetReversed(checked)
	})
	ap.reverseCheckbox = reverseCheckbox

	actionsFlex := tview.NewFlex()
	actionsFlex.SetDirection(tview.FlexColumn)
	actionsFlex.AddItem(moveAllButton, 10, 0, false)
	actionsFlex.AddItem(nil, 1, 0, false)
	actionsFlex.AddItem(homeButton, 8, 0, false)
	actionsFlex.AddItem(nil, 2, 0, false)
	actionsFlex.AddItem(reverseCheckbox, 10, 0, false)
	actionsFlex.AddItem(nil, 0, 1, false)

	testPositionInput := tview.NewInputField()
	testPositionInput.SetLabel("X ")
	testPositionInput.SetText(DefaultTestPosition)
	testPositionInput.SetAcceptanceFunc(tview.InputFieldInteger)
	ap.testPositionInput = testPositionInput

	testButton := tview.NewButton("Test Move X")
	testButton.SetSelectedFunc(func() {
		positionText := ap.testPositionInput.GetText()
		ap.QueueAction("Test Move X", func(ctx context.Context) error {
			return ap.panel.MoveAxisUnchecked(ctx, stepper.AxisX, positionText)
		})
	})

	testFlex := tview.NewFlex()
	testFlex.SetBorder(true)
	testFlex.SetTitle("Test (no max check)")
	testFlex.SetDirection(tview.FlexColumn)
	testFlex.AddItem(testPositionInput, 0, 1, false)
	testFlex.AddItem(nil, 1, 0, false)
	testFlex.AddItem(testButton, 13, 0, false)

	flex := tview.NewFlex()
	flex.SetBorder(true)
	flex.SetTitle("Axes")
	flex.SetDirection(tview.FlexRow)
	flex.AddItem(axesFlex, 6, 0, false)
	flex.AddItem(actionsFlex, 1, 0, false)
	flex.AddItem(nil, 1, 0, false)
	flex.AddItem(testFlex, 3, 0, false)
	ap.Flex = flex

	return ap
}

func (ap *AxesPrimitive) newAxisFlex(axis stepper.Axis) *tview.Flex {
	positionInput := tview.NewInputField()
	positionInput.SetLabel(fmt.Sprintf("%s ", axis))
	positionInput.SetPlaceholder("0")
	positionInput.SetAcceptanceFunc(tview.InputFieldInteger)

	maxInput := tview.NewInputField()
	maxInput.SetLabel("Max ")
	maxInput.SetText(ap.panel.Session().Max(axis))
	maxInput.SetAcceptanceFunc(tview.InputFieldInteger)
	maxInput.SetChangedFunc(func(text string) {
		ap.panel.Session().SetMax(axis, text)
	})

	ap.inputs[axis] = &axisInputs{
		position: positionInput,
		max:      maxInput,
	}

	moveButton := tview.NewButton(fmt.Sprintf("Move %s", axis))
	moveButton.SetSelectedFunc(func() {
		positionText := positionInput.GetText()
		ap.QueueAction(fmt.Sprintf("Move %s", axis), func(ctx context.Context) error {
			return ap.panel.MoveAxis(ctx, axis, positionText)
		})
	})

	axisFlex := tview.NewFlex()
	axisFlex.SetDirection(tview.FlexColumn)
	axisFlex.AddItem(positionInput, 0, 2, false)
	axisFlex.AddItem(nil, 1, 0, false)
	axisFlex.AddItem(maxInput, 0, 2, false)
	axisFlex.AddItem(nil, 1, 0, false)
	axisFlex.AddItem(moveButton, 8, 0, false)
	return axisFlex
}

// QueueAction schedules fn to be run by Worker. Actions are dropped while the queue is full.
func (ap *AxesPrimitive) QueueAction(name string, fn func(ctx context.Context) error) {
	select {
	case ap.actionCh <- axisAction{name: name, fn: fn}:
	default:
	}
}

// ApplySettings updates the max value inputs from s.
func (ap *AxesPrimitive) ApplySettings(s *settings.Settings) {
	ap.app.QueueUpdateDraw(func() {
		for _, axis := range stepper.Axes {
			ap.inputs[axis].max.SetText(strconv.Itoa(s.Limit(axis)))
		}
	})
}

// Worker runs queued actions in order, logging their failures.
func (ap *AxesPrimitive) Worker(ctx context.Context) error {
	logger := log.MustLogger(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case action := <-ap.actionCh:
			if err := action.fn(ctx); err != nil {
				logger.Error(fmt.Sprintf("%s failed", action.name), "err", err)
			}
		}
	}
}
