package cli

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"

	"missioncontrol/internal/agent"
	"missioncontrol/internal/extract"
	"missioncontrol/internal/report"
	"missioncontrol/internal/timeutil"
)

const watchMaxWidth = 100

// SnapshotFunc returns the current status document.
type SnapshotFunc func() *report.Document

type refreshMsg struct {
	doc *report.Document
	at  time.Time
}

type watchModel struct {
	roster   *agent.Roster
	snapshot SnapshotFunc
	interval time.Duration
	now      func() time.Time

	doc       *report.Document
	refreshed time.Time
	width     int
	quitting  bool
}

func newWatchModel(roster *agent.Roster, snapshot SnapshotFunc, interval time.Duration) *watchModel {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &watchModel{
		roster:   roster,
		snapshot: snapshot,
		interval: interval,
		now:      time.Now,
		width:    watchMaxWidth,
	}
}

func (m *watchModel) refresh() tea.Msg {
	return refreshMsg{doc: m.snapshot(), at: m.now()}
}

func (m *watchModel) Init() tea.Cmd {
	return m.refresh
}

func (m *watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = min(msg.Width, watchMaxWidth)
		}
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc", "q":
			m.quitting = true
			return m, tea.Quit
		case "r":
			return m, m.refresh
		}
	case refreshMsg:
		m.doc = msg.doc
		m.refreshed = msg.at
		return m, tea.Tick(m.interval, func(time.Time) tea.Msg { return m.refresh() })
	}
	return m, nil
}

func (m *watchModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(gradientText("Mission Control", primary, secondary))
	b.WriteString("\n")
	if m.doc == nil {
		b.WriteString(mutedStyle.Render("loading..."))
		return b.String() + "\n"
	}

	taskWidth := max(m.width-40, 16)
	task := lipgloss.NewStyle().Foreground(secondary).Width(taskWidth).MaxHeight(1)

	counts := map[extract.Status]int{}
	for _, a := range m.roster.All() {
		status := extract.StatusIdle
		current := extract.DefaultTask
		seen := "never"
		if r, ok := m.doc.Get(a.ID); ok {
			if r.Status != "" {
				status = r.Status
			}
			if r.CurrentTask != "" {
				current = r.CurrentTask
			}
			if !r.ObservedAt.IsZero() {
				seen = timeutil.FormatRelativeTime(r.ObservedAt, m.refreshed)
			}
		}
		counts[status]++
		fmt.Fprintf(&b, "%s %-14s %s %s\n", statusBadge(status), a.Name, task.Render(current), mutedStyle.Render(seen))
	}

	fmt.Fprintf(&b, "\n%s  %s  %s\n",
		successStyle.Render(fmt.Sprintf("%d active", counts[extract.StatusActive])),
		errorStyle.Render(fmt.Sprintf("%d blocked", counts[extract.StatusBlocked])),
		mutedStyle.Render(fmt.Sprintf("%d idle", counts[extract.StatusIdle])),
	)
	b.WriteString(mutedStyle.Render(fmt.Sprintf("updated %s · r refresh · q quit", m.refreshed.Format("15:04:05"))))
	b.WriteString("\n")
	return b.String()
}

// gradientText colours each rune along a blend from one colour to another.
func gradientText(text string, from, to lipgloss.Color) string {
	start, err1 := colorful.Hex(string(from))
	end, err2 := colorful.Hex(string(to))
	runes := []rune(text)
	if err1 != nil || err2 != nil || len(runes) < 2 {
		return labelStyle.Render(text)
	}

	var out strings.Builder
	for i, r := range runes {
		c := start.BlendLuv(end, float64(i)/float64(len(runes)-1)).Clamped()
		out.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(c.Hex())).Bold(true).Render(string(r)))
	}
	return out.String()
}

// Watch shows a live status board until the user quits.
func Watch(roster *agent.Roster, snapshot SnapshotFunc, interval time.Duration) error {
	program := tea.NewProgram(newWatchModel(roster, snapshot, interval), tea.WithAltScreen())
	_, err := program.Run()
	return err
}
