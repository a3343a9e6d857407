package status

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/bnema/mailbot/internal/application"
	tea "github.com/charmbracelet/bubbletea"
)

var ErrUnexpectedRenderModel = errors.New("unexpected final bubbletea model type")

// Loader produces a fresh report for each refresh of a watched view.
type Loader func(ctx context.Context) (application.StatusReport, error)

type reportMsg struct {
	report application.StatusReport
	err    error
}

type refreshMsg struct{}

// model renders one report and quits, or with a loader keeps reloading
// every interval until q or ctrl+c.
type model struct {
	ctx      context.Context
	load     Loader
	interval time.Duration
	opts     RenderOptions
	styles   styles

	report    application.StatusReport
	loaded    bool
	refreshes int
	lastErr   error
	output    string
}

func newModel(report application.StatusReport, opts RenderOptions) model {
	return model{
		ctx:    context.Background(),
		opts:   opts,
		styles: newStyles(),
		report: report,
		loaded: true,
	}
}

func newWatchModel(ctx context.Context, load Loader, interval time.Duration, opts RenderOptions) model {
	return model{
		ctx:      ctx,
		load:     load,
		interval: interval,
		opts:     opts,
		styles:   newStyles(),
	}
}

func (m model) watching() bool {
	return m.load != nil
}

func (m model) Init() tea.Cmd {
	if !m.watching() {
		report := m.report
		return func() tea.Msg {
			return reportMsg{report: report}
		}
	}
	return m.fetch()
}

func (m model) fetch() tea.Cmd {
	ctx, load := m.ctx, m.load
	return func() tea.Msg {
		report, err := load(ctx)
		return reportMsg{report: report, err: err}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case reportMsg:
		m.refreshes++
		m.lastErr = msg.err
		if msg.err == nil {
			m.report = msg.report
			m.loaded = true
		}
		m.output = m.render()
		if !m.watching() {
			return m, tea.Quit
		}
		return m, tea.Tick(m.interval, func(time.Time) tea.Msg { return refreshMsg{} })
	case refreshMsg:
		return m, m.fetch()
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}
		return m, nil
	default:
		return m, nil
	}
}

func (m model) render() string {
	var out string
	if m.loaded {
		opts := m.opts
		if m.watching() {
			opts.Now = m.report.GeneratedAt
		}
		out = renderView(m.report, opts, m.styles)
	}
	if !m.watching() {
		return out
	}

	if m.lastErr != nil {
		out += "\n\n" + m.styles.warning.Render(fmt.Sprintf("refresh failed: %v", m.lastErr))
	}
	return out + "\n\n" + m.styles.meta.Render(fmt.Sprintf("refreshing every %s, q to quit", m.interval))
}

func (m model) View() string {
	return m.output
}

// Render lays out a status report for the terminal.
func Render(report application.StatusReport, opts RenderOptions) (string, error) {
	p := tea.NewProgram(
		newModel(report, opts),
		tea.WithInput(nil),
		tea.WithOutput(io.Discard),
	)

	finalModel, err := p.Run()
	if err != nil {
		return "", err
	}

	rendered, ok := finalModel.(model)
	if !ok {
		return "", ErrUnexpectedRenderModel
	}

	return rendered.View(), nil
}

type WatchOptions struct {
	Interval time.Duration
	// Input carries the quit keys; nil means only ctx ends the view.
	Input  io.Reader
	Output io.Writer
	Render RenderOptions
}

// Watch redraws the report from load every interval until the user quits or
// ctx is done.
func Watch(ctx context.Context, load Loader, opts WatchOptions) error {
	if load == nil {
		return errors.New("status loader is nil")
	}
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Second
	}
	if opts.Output == nil {
		opts.Output = io.Discard
	}

	p := tea.NewProgram(
		newWatchModel(ctx, load, opts.Interval, opts.Render),
		tea.WithContext(ctx),
		tea.WithInput(opts.Input),
		tea.WithOutput(opts.Output),
	)

	if _, err := p.Run(); err != nil {
		if ctx.Err() != nil && errors.Is(err, tea.ErrProgramKilled) {
			return nil
		}
		return fmt.Errorf("watch status: %w", err)
	}
	return nil
}
