package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/bnema/classroom/internal/application"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type ingestProgressMsg application.IngestionProgress

type ingestDoneMsg struct {
	err error
}

type ingestSpinnerModel struct {
	spinner  spinner.Model
	label    string
	progress application.IngestionProgress
	ingest   tea.Cmd
	err      error
	done     bool
}

func newIngestSpinnerModel(label string, ingest tea.Cmd) ingestSpinnerModel {
	s := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("69"))),
	)

	return ingestSpinnerModel{
		spinner: s,
		label:   label,
		ingest:  ingest,
	}
}

func (m ingestSpinnerModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.ingest)
}

func (m ingestSpinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case ingestProgressMsg:
		m.progress = application.IngestionProgress(msg)
		return m, nil
	case ingestDoneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m ingestSpinnerModel) View() string {
	if m.done {
		return ""
	}
	if m.progress.Total == 0 {
		return fmt.Sprintf("%s %s", m.spinner.View(), m.label)
	}

	view := fmt.Sprintf("%s %s %s", m.spinner.View(), m.label, m.progress)
	if m.progress.Failed > 0 {
		view += fmt.Sprintf(" (%d failed)", m.progress.Failed)
	}
	return view
}

// runIngestSpinner shows a spinner with the page counter on output while
// ingest runs.
func runIngestSpinner(ctx context.Context, output io.Writer, ingest func(context.Context, func(application.IngestionProgress)) error) error {
	var p *tea.Program
	ingestCmd := func() tea.Msg {
		return ingestDoneMsg{err: ingest(ctx, func(progress application.IngestionProgress) {
			p.Send(ingestProgressMsg(progress))
		})}
	}

	p = tea.NewProgram(
		newIngestSpinnerModel("Ingesting document...", ingestCmd),
		tea.WithInput(nil),
		tea.WithOutput(output),
		tea.WithContext(ctx),
	)

	finalModel, err := p.Run()
	if err != nil {
		return err
	}

	result, ok := finalModel.(ingestSpinnerModel)
	if !ok {
		return fmt.Errorf("unexpected final spinner model type %T", finalModel)
	}

	return result.err
}
