package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type stepDoneMsg struct{}

type stepSpinnerModel struct {
	spinner spinner.Model
	label   string
	done    chan struct{}
	quit    bool
}

func newStepSpinnerModel(label string, done chan struct{}) stepSpinnerModel {
	s := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("69"))),
	)

	return stepSpinnerModel{
		spinner: s,
		label:   label,
		done:    done,
	}
}

func (m stepSpinnerModel) Init() tea.Cmd {
	waitCmd := func() tea.Msg {
		<-m.done
		return stepDoneMsg{}
	}

	return tea.Batch(m.spinner.Tick, waitCmd)
}

func (m stepSpinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case stepDoneMsg:
		m.quit = true
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m stepSpinnerModel) View() string {
	if m.quit {
		return ""
	}

	return fmt.Sprintf("%s %s", m.spinner.View(), m.label)
}

// runStepSpinner shows a spinner while the step executes. The step runs
// exactly once even when the display program fails; the spinner is
// decoration, never control flow.
func runStepSpinner(ctx context.Context, output io.Writer, label string, step func(context.Context)) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		step(ctx)
	}()

	p := tea.NewProgram(
		newStepSpinnerModel(label, done),
		tea.WithInput(nil),
		tea.WithOutput(output),
	)

	_, err := p.Run()
	<-done
	return err
}
