package internal

import (
	"fmt"
	"strings"
	"time"

	"countdown_tui/internal/countdown"
	"countdown_tui/internal/timelog"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")).
			Bold(true).
			Align(lipgloss.Center)

	timerDisplayStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("69")).
				Bold(true)

	timerRunningStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("82")).
				Bold(true)

	timerEndedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("203")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	inputStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("170"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("203"))

	logHeaderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")).
			Bold(true)

	logTagStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("170"))

	logTimeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	inactiveStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	runningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("82")).
			Bold(true)
)

func formatDuration(d time.Duration) string {
	total := int(d.Seconds())
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}

func (m *Model) emptyStateView() string {
	return lipgloss.Place(
		80, 24,
		lipgloss.Center, lipgloss.Center,
		titleStyle.Render("Countdown")+"\n\n"+
			inactiveStyle.Render("No countdown attached."),
	)
}

func (m *Model) mainView() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Width(80).Render("Countdown"))
	sb.WriteString("\n\n")

	boxes := lipgloss.JoinHorizontal(lipgloss.Top,
		m.displayView(),
		"  ",
		m.eventsView(),
	)
	sb.WriteString(boxes)
	sb.WriteString("\n\n")
	sb.WriteString(helpStyle.Render("Start/Pause: Space | Stop: x | Restart: r | Time: +/- e | Resync: w | Log: l | Quit: q"))

	return sb.String()
}

func (m *Model) displayView() string {
	s := m.Snapshot

	body := ""
	if m.Renderer != nil {
		body = m.Renderer.Body(s.Values)
	}

	var display string
	switch s.State {
	case countdown.StateCounting:
		display = timerRunningStyle.Render(body)
	case countdown.StateEnded:
		display = timerEndedStyle.Render(body)
	default:
		display = timerDisplayStyle.Render(body)
	}

	statusStyle := inactiveStyle
	if s.Counting() {
		statusStyle = runningStyle
	}
	status := s.State.String()
	if !m.LastWake.IsZero() {
		status += " (resynced " + humanize.RelTime(m.LastWake, m.now(), "ago", "from now") + ")"
	}

	var sb strings.Builder
	sb.WriteString(display)
	sb.WriteString(fmt.Sprintf("\n\n%s\n", statusStyle.Render(status)))
	sb.WriteString(fmt.Sprintf("Remaining: %s\n", formatDuration(s.Count)))
	sb.WriteString(fmt.Sprintf("Total: %s\n", formatDuration(s.Time)))
	sb.WriteString(fmt.Sprintf("Interval: %s", s.Interval))

	return boxStyle.Width(40).Height(12).Render(sb.String())
}

func (m *Model) eventsView() string {
	var sb strings.Builder
	sb.WriteString(logHeaderStyle.Render("Recent Events"))
	sb.WriteString("\n")

	entries := m.History.Recent(8)
	if len(entries) == 0 {
		sb.WriteString(inactiveStyle.Render("  none yet"))
	}
	for _, e := range entries {
		sb.WriteString(m.formatLogEntry(e))
		sb.WriteString("\n")
	}

	return boxStyle.Width(36).Height(12).Render(sb.String())
}

func (m *Model) editFormView() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Width(80).Render("Set Countdown Time"))
	sb.WriteString("\n\n")

	label := inputStyle.Render("→ Time: ")
	value := inputStyle.Render(m.TimeInput + "█")

	errLine := ""
	if m.Err != nil {
		errLine = "\n\n" + errorStyle.Render(m.Err.Error())
	}

	form := fmt.Sprintf("%s%s%s\n\n%s",
		label, value,
		errLine,
		helpStyle.Render("Milliseconds or 1h30m style | Enter: Save | Esc: Cancel"),
	)

	sb.WriteString(lipgloss.Place(
		80, 20,
		lipgloss.Center, lipgloss.Center,
		boxStyle.Width(50).Render(form),
	))
	return sb.String()
}

func (m *Model) allLogsView() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Width(80).Render("Event Log"))
	sb.WriteString("\n\n")

	entries := m.History.Recent(0)
	if len(entries) == 0 {
		sb.WriteString(inactiveStyle.Render("No events recorded."))
	} else {
		start := min(m.LogViewScroll, len(entries)-1)
		end := min(start+15, len(entries))
		for _, e := range entries[start:end] {
			sb.WriteString(m.formatLogEntry(e))
			sb.WriteString("  ")
			sb.WriteString(logTimeStyle.Render(humanize.RelTime(e.At, m.now(), "ago", "from now")))
			sb.WriteString("\n")
		}
	}

	sb.WriteString("\n")
	sb.WriteString(helpStyle.Render("Scroll: Up/Down | Back: Esc/l"))
	return sb.String()
}

func (m *Model) formatLogEntry(e timelog.Entry) string {
	timeStr := logTimeStyle.Render(e.At.Format("15:04:05"))
	name := strings.TrimPrefix(e.Event, "countdown")
	detail := ""
	if e.Units != nil {
		detail = " " + logTagStyle.Render(fmt.Sprintf("[%gs]", e.Units.TotalSeconds))
	}
	return fmt.Sprintf("  %s  %s%s", timeStr, name, detail)
}
