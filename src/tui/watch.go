// Package tui renders a live view of a build watch with bubbletea.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"buildwatch-agent/src/watch"
)

const defaultWidth = 80

// ProgressMsg carries a poll update from the watcher.
type ProgressMsg watch.Progress

// DoneMsg carries the final result, or the error that kept the watch from
// starting.
type DoneMsg struct {
	Result watch.Result
	Err    error
}

// WatchModel shows a spinner while a build is polled and the verdict once it
// finishes.
type WatchModel struct {
	title    string
	spinner  spinner.Model
	styles   *StyleConfig
	progress watch.Progress
	result   *watch.Result
	err      error
	width    int
	quitting bool
	cancel   context.CancelFunc
}

// NewWatchModel creates the model. cancel, if set, is called when the user
// quits before the watch ends.
func NewWatchModel(title string, cancel context.CancelFunc) WatchModel {
	styles := DefaultStyles()
	s := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(styles.SpinnerStyle()),
	)
	return WatchModel{
		title:   title,
		spinner: s,
		styles:  styles,
		width:   defaultWidth,
		cancel:  cancel,
	}
}

func (m WatchModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			if m.cancel != nil && m.result == nil {
				m.cancel()
			}
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
		}
	case ProgressMsg:
		m.progress = watch.Progress(msg)
	case DoneMsg:
		if msg.Err != nil {
			m.err = msg.Err
		} else {
			result := msg.Result
			m.result = &result
		}
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m WatchModel) View() string {
	var b strings.Builder
	b.WriteString(m.styles.TitleStyle().Render(Truncate(m.title, m.width)))
	b.WriteString("\n\n")

	switch {
	case m.err != nil:
		b.WriteString(m.styles.OutcomeStyle(watch.OutcomeTransportFault).Render("ERROR"))
		b.WriteString(" ")
		b.WriteString(Wrap(m.err.Error(), m.contentWidth()))
		b.WriteString("\n")
	case m.result != nil:
		b.WriteString(m.resultView(*m.result))
	default:
		b.WriteString(m.pollingView())
	}
	return b.String()
}

func (m WatchModel) pollingView() string {
	status := "waiting for first poll"
	if m.progress.Polls > 0 {
		status = fmt.Sprintf("poll %d, %s elapsed", m.progress.Polls, m.progress.Elapsed)
		if last := m.progress.Last; last != nil && last.Building {
			status += ", building"
		}
	}

	lines := []string{m.spinner.View() + " " + status}
	if m.progress.Err != nil {
		lines = append(lines, m.styles.HelpStyle().Render(Truncate("last query: "+m.progress.Err.Error(), m.contentWidth())))
	}
	lines = append(lines, "", m.styles.HelpStyle().Render("q to stop watching"))
	return strings.Join(lines, "\n") + "\n"
}

func (m WatchModel) resultView(r watch.Result) string {
	badge := m.styles.OutcomeStyle(r.Outcome()).Render(strings.ToUpper(r.Outcome()))
	summary := fmt.Sprintf("%s after %d polls (%s)", badge, r.Polls, r.Elapsed)
	if r.Verdict != "" {
		summary += m.styles.HelpStyle().Render("  result: " + r.Verdict)
	}

	panel := m.styles.PanelStyle().
		Width(m.contentWidth()).
		Render(Wrap(r.DiagnosticLine, m.contentWidth()-2))

	return lipgloss.JoinVertical(lipgloss.Left, summary, panel) + "\n"
}

func (m WatchModel) contentWidth() int {
	if m.width < 20 {
		return 20
	}
	return m.width - 4
}

// Result returns the final result once the watch has ended.
func (m WatchModel) Result() (watch.Result, bool) {
	if m.result == nil {
		return watch.Result{}, false
	}
	return *m.result, true
}

// StartFunc runs a watch, reporting progress through observer.
type StartFunc func(ctx context.Context, observer watch.Observer) (watch.Result, error)

// Run shows the watch view until start returns or the user quits. Quitting
// cancels ctx for start, which then ends with a transport fault on its next
// query. stopWait bounds how long Run waits for that after the view closes;
// it should cover one poll interval. Zero waits until start returns.
func Run(ctx context.Context, title string, stopWait time.Duration, start StartFunc, opts ...tea.ProgramOption) (watch.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewWatchModel(title, cancel), opts...)

	done := make(chan DoneMsg, 1)
	go func() {
		result, err := start(ctx, func(progress watch.Progress) {
			p.Send(ProgressMsg(progress))
		})
		msg := DoneMsg{Result: result, Err: err}
		done <- msg
		p.Send(msg)
	}()

	if _, err := p.Run(); err != nil {
		return watch.Result{}, fmt.Errorf("watch view failed: %w", err)
	}
	cancel()

	return awaitStop(done, stopWait)
}

// awaitStop waits for the watch goroutine to report after cancellation.
func awaitStop(done <-chan DoneMsg, stopWait time.Duration) (watch.Result, error) {
	if stopWait <= 0 {
		msg := <-done
		return msg.Result, msg.Err
	}

	select {
	case msg := <-done:
		return msg.Result, msg.Err
	case <-time.After(stopWait):
		return watch.Result{}, fmt.Errorf("watch did not stop within %s after cancel", stopWait)
	}
}
