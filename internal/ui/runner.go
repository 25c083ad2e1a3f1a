package ui

import (
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"attrparse/internal/batch"
)

// RunWithProgress runs work while rendering its events to out. work gets
// the sink to report to; RunWithProgress returns once both the work and
// the view have finished.
func RunWithProgress(out io.Writer, title string, names []string, work func(sink batch.ProgressSink) error) error {
	events := make(chan batch.Event, 256)
	errCh := make(chan error, 1)
	go func() {
		err := work(batch.ChannelSink{Ch: events})
		close(events)
		errCh <- err
	}()

	model := NewProgressModel(title, names, events)
	program := tea.NewProgram(model, tea.WithOutput(out), tea.WithInput(nil))
	_, uiErr := program.Run()
	if uiErr != nil {
		// drain so the worker can finish
		for range events {
		}
	}
	err := <-errCh
	if uiErr != nil {
		return uiErr
	}
	return err
}
