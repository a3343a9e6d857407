package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("69"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	elapsedStyle = lipgloss.NewStyle().Faint(true)
)

type taskDoneMsg struct {
	err error
}

// taskModel animates a label with the time spent so far. Once the task
// reports back, the last frame is a single outcome line that stays on screen.
type taskModel struct {
	spinner spinner.Model
	label   string
	task    tea.Cmd
	now     func() time.Time
	started time.Time
	elapsed time.Duration
	err     error
	done    bool
}

func newTaskModel(label string, task tea.Cmd, now func() time.Time) taskModel {
	return taskModel{
		spinner: spinner.New(spinner.WithSpinner(spinner.MiniDot), spinner.WithStyle(spinnerStyle)),
		label:   label,
		task:    task,
		now:     now,
		started: now(),
	}
}

func (m taskModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.task)
}

func (m taskModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		m.elapsed = m.now().Sub(m.started)
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case taskDoneMsg:
		m.done = true
		m.err = msg.err
		m.elapsed = m.now().Sub(m.started)
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m taskModel) View() string {
	elapsed := elapsedStyle.Render(formatElapsed(m.elapsed))
	switch {
	case !m.done:
		return fmt.Sprintf("%s %s %s", m.spinner.View(), m.label, elapsed)
	case m.err != nil:
		return fmt.Sprintf("%s %s %s\n", failStyle.Render("✗"), m.label, elapsed)
	default:
		return fmt.Sprintf("%s %s %s\n", okStyle.Render("✓"), m.label, elapsed)
	}
}

// Whole seconds while short tasks show tenths.
func formatElapsed(d time.Duration) string {
	if d < 10*time.Second {
		return fmt.Sprintf("(%.1fs)", d.Seconds())
	}
	return fmt.Sprintf("(%s)", d.Truncate(time.Second))
}

// runSpinner runs task while animating label on output and returns the
// task's error.
func runSpinner(ctx context.Context, output io.Writer, label string, task func(context.Context) error) error {
	taskCmd := func() tea.Msg {
		return taskDoneMsg{err: task(ctx)}
	}

	p := tea.NewProgram(
		newTaskModel(label, taskCmd, time.Now),
		tea.WithInput(nil),
		tea.WithOutput(output),
		tea.WithContext(ctx),
	)

	finalModel, err := p.Run()
	if err != nil {
		return err
	}

	result, ok := finalModel.(taskModel)
	if !ok {
		return fmt.Errorf("unexpected final spinner model type %T", finalModel)
	}

	return result.err
}
