package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/bnema/steam-gs-unlock/internal/domain"
)

type stageStartedMsg struct {
	stage domain.Stage
}

type unlockDoneMsg struct {
	err error
}

type unlockSpinnerModel struct {
	spinner spinner.Model
	label   string
	err     error
	done    bool
}

var stageLabels = map[domain.Stage]string{
	domain.StageInit:           "Initializing game server...",
	domain.StageLogOn:          "Logging on...",
	domain.StageStatsRequest:   "Requesting user stats...",
	domain.StageSetAchievement: "Setting achievement...",
	domain.StageStore:          "Storing user stats...",
}

func newUnlockSpinnerModel() unlockSpinnerModel {
	s := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("69"))),
	)

	return unlockSpinnerModel{
		spinner: s,
		label:   "Starting...",
	}
}

func (m unlockSpinnerModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m unlockSpinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case stageStartedMsg:
		if label, ok := stageLabels[msg.stage]; ok {
			m.label = label
		}
		return m, nil
	case unlockDoneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m unlockSpinnerModel) View() string {
	if m.done {
		return ""
	}

	return fmt.Sprintf("%s %s", m.spinner.View(), m.label)
}

// runUnlockSpinner shows the current stage while run executes on its own
// goroutine. The run's error is returned even if the UI fails.
func runUnlockSpinner(ctx context.Context, output io.Writer, run func(context.Context, func(domain.Stage)) error) error {
	p := tea.NewProgram(
		newUnlockSpinnerModel(),
		tea.WithInput(nil),
		tea.WithOutput(output),
		tea.WithoutSignalHandler(),
	)

	result := make(chan error, 1)
	go func() {
		err := run(ctx, func(stage domain.Stage) {
			p.Send(stageStartedMsg{stage: stage})
		})
		result <- err
		p.Send(unlockDoneMsg{err: err})
	}()

	if _, err := p.Run(); err != nil {
		p.Kill()
	}

	return <-result
}
