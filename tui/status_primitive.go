package tui

import (
	"context"
	"fmt"

	"github.com/rivo/tview"
)

// StatusPrimitive shows lines received from the device, interleaved with application logs.
type StatusPrimitive struct {
	*tview.TextView
}

func NewStatusPrimitive(app *tview.Application) *StatusPrimitive {
	textView := tview.NewTextView()
	textView.SetBorder(true)
	textView.SetTitle("Device Status")
	textView.SetDynamicColors(true)
	textView.SetScrollable(true)
	textView.SetWrap(true)
	textView.SetMaxLines(5000)
	textView.SetChangedFunc(func() {
		textView.ScrollToEnd()
		app.Draw()
	})
	return &StatusPrimitive{TextView: textView}
}

// Worker displays lines from each channel received on lineChCh, until it is closed.
func (sp *StatusPrimitive) Worker(ctx context.Context, lineChCh <-chan (<-chan string)) error {
	var lineCh <-chan string
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ch := <-lineChCh:
			lineCh = ch
		case line, ok := <-lineCh:
			if !ok {
				lineCh = nil
				continue
			}
			fmt.Fprint(sp.TextView, tview.Escape(line))
		}
	}
}
