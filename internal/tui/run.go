package tui

import (
	"context"
	"errors"
	"io"

	tea "github.com/charmbracelet/bubbletea"
)

// ErrCanceled is returned when the user interrupts the progress display.
var ErrCanceled = errors.New("canceled")

// RunWithWork creates a bubbletea program, launches workFn in a goroutine,
// and blocks until the program exits. workFn receives a send callback that
// forwards messages to the program; its error ends the program with ErrorMsg.
func RunWithWork(ctx context.Context, out io.Writer, model ProgressModel, workFn func(send func(tea.Msg)) error) error {
	p := tea.NewProgram(model, tea.WithOutput(out), tea.WithInput(nil), tea.WithContext(ctx))

	go func() {
		if err := workFn(p.Send); err != nil {
			p.Send(ErrorMsg{Err: err})

			return
		}

		p.Send(WorkDoneMsg{})
	}()

	finalModel, err := p.Run()
	if err != nil {
		return err
	}

	if m, ok := finalModel.(ProgressModel); ok {
		if m.Canceled() {
			return ErrCanceled
		}

		return m.Err()
	}

	return nil
}
