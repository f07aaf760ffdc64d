// Package tui renders the session's progress stream as a live log.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/example/court-booker/internal/domain/booking"
)

var (
	stageStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("63")).Width(10)
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type eventMsg struct{ event booking.ProgressEvent }

type doneMsg struct{ outcome booking.SessionOutcome }

type model struct {
	spinner spinner.Model

	// events arrive append-only and are rendered strictly in arrival order.
	events  []booking.ProgressEvent
	done    bool
	outcome booking.SessionOutcome
}

func newModel() model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("63"))
	return model{spinner: sp}
}

func (m model) Init() tea.Cmd { return m.spinner.Tick }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || (m.done && msg.String() == "q") {
			return m, tea.Quit
		}
		return m, nil
	case eventMsg:
		m.events = append(m.events, msg.event)
		return m, nil
	case doneMsg:
		m.done = true
		m.outcome = msg.outcome
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m model) View() string {
	var b strings.Builder
	for _, e := range m.events {
		style := infoStyle
		switch e.Severity {
		case booking.SeverityWarning:
			style = warnStyle
		case booking.SeverityError:
			style = errorStyle
		case booking.SeveritySuccess:
			style = successStyle
		}
		b.WriteString(fmt.Sprintf("%s %s %s\n",
			dimStyle.Render(e.At.Format("15:04:05")),
			stageStyle.Render(string(e.Stage)),
			style.Render(e.Message)))
	}
	if !m.done {
		b.WriteString(m.spinner.View() + " working...\n")
	} else {
		b.WriteString(outcomeLine(m.outcome) + "\n")
	}
	return b.String()
}

func outcomeLine(out booking.SessionOutcome) string {
	switch out.Status {
	case booking.StatusCompleted:
		return successStyle.Render(fmt.Sprintf("done: reservation completed (%d slot(s))", out.ClaimedCount()))
	case booking.StatusClaimedNotConfirmed:
		return warnStyle.Render(fmt.Sprintf("done: claimed but not confirmed, stopped at %q", out.FailedStep))
	case booking.StatusNoSlotsClaimed:
		if out.Err != nil {
			return errorStyle.Render("done: " + out.Err.Error())
		}
		return warnStyle.Render("done: no slots claimed")
	default:
		return warnStyle.Render(fmt.Sprintf("done: %s (%d slot(s))", out.Status, out.ClaimedCount()))
	}
}

// Run starts the live log and executes run in the background, feeding its
// reporter into the display. It returns once the session has finished.
func Run(run func(booking.Reporter) booking.SessionOutcome) (booking.SessionOutcome, error) {
	p := tea.NewProgram(newModel())

	outcomeCh := make(chan booking.SessionOutcome, 1)
	go func() {
		out := run(booking.ReporterFunc(func(e booking.ProgressEvent) {
			p.Send(eventMsg{event: e})
		}))
		outcomeCh <- out
		p.Send(doneMsg{outcome: out})
	}()

	if _, err := p.Run(); err != nil {
		return booking.SessionOutcome{}, err
	}
	return <-outcomeCh, nil
}
