// Package summary buckets recent report events into the hourly digest.
package summary

import (
	"fmt"
	"strings"
	"time"

	"missioncontrol/internal/agent"
	"missioncontrol/internal/history"
	"missioncontrol/internal/timeutil"
)

// DefaultWindow is the trailing window summarised when none is configured.
const DefaultWindow = 2 * time.Hour

const maxCellRunes = 80

// Row is one line of a bucket.
type Row struct {
	Agent agent.Agent `json:"agent"`
	Task  string      `json:"task"`
	Text  string      `json:"text"`
}

// Summary is the bucketed view of the events inside the window.
type Summary struct {
	GeneratedAt time.Time     `json:"generatedAt"`
	Window      time.Duration `json:"window"`
	Completed   []Row         `json:"completed"`
	InProgress  []Row         `json:"inProgress"`
	Blockers    []Row         `json:"blockers"`
	Next        []Row         `json:"next"`
	Reports     int           `json:"reports"`
	Agents      int           `json:"agents"`
}

// Build keeps events for roster agents whose timestamp is strictly after
// now-window and sorts them into buckets. Input order is preserved within a
// bucket; Next lists each agent's last event in roster order.
func Build(events []history.Event, now time.Time, window time.Duration, roster *agent.Roster) Summary {
	if window <= 0 {
		window = DefaultWindow
	}
	cutoff := now.Add(-window)

	s := Summary{GeneratedAt: now, Window: window}
	last := make(map[string]history.Event)

	for _, ev := range events {
		if !ev.Timestamp.After(cutoff) {
			continue
		}
		a, ok := roster.Lookup(ev.Agent)
		if !ok {
			continue
		}
		s.Reports++
		last[a.ID] = ev

		accomplished := strings.TrimSpace(ev.Accomplished)
		switch {
		case accomplished != "" && !ev.HasBlocker():
			s.Completed = append(s.Completed, Row{Agent: a, Task: ev.Task, Text: truncate(accomplished, maxCellRunes)})
		case accomplished != "":
			s.InProgress = append(s.InProgress, Row{Agent: a, Task: ev.Task, Text: "Working..."})
		}
		if ev.HasBlocker() {
			s.Blockers = append(s.Blockers, Row{Agent: a, Task: ev.Task, Text: strings.TrimSpace(ev.Blocking)})
		}
	}

	for _, a := range roster.All() {
		ev, ok := last[a.ID]
		if !ok {
			continue
		}
		s.Next = append(s.Next, Row{Agent: a, Task: ev.Task, Text: ev.Task})
	}
	s.Agents = len(s.Next)
	return s
}

// Markdown renders the digest.
func (s Summary) Markdown() string {
	var b strings.Builder

	fmt.Fprintf(&b, "# 🤖 Hourly Agent Report (%s)\n\n", timeutil.FormatHour(s.GeneratedAt))
	fmt.Fprintf(&b, "*Generated: %s*\n\n", timeutil.FormatLongDate(s.GeneratedAt))

	b.WriteString("## ✅ Completed This Hour\n\n")
	b.WriteString("| Agent | Task | What They Did |\n")
	b.WriteString("|-------|------|---------------|\n")
	for _, r := range s.Completed {
		fmt.Fprintf(&b, "| %s | %s | %s |\n", cell(r.Agent.Label()), cell(r.Task), cell(r.Text))
	}

	if len(s.InProgress) > 0 {
		b.WriteString("\n## 🔥 In Progress\n\n")
		b.WriteString("| Agent | Task | Status |\n")
		b.WriteString("|-------|------|--------|\n")
		for _, r := range s.InProgress {
			fmt.Fprintf(&b, "| %s | %s | %s |\n", cell(r.Agent.Label()), cell(r.Task), cell(r.Text))
		}
	}

	if len(s.Blockers) > 0 {
		b.WriteString("\n## ⚠️ Blockers\n\n")
		for _, r := range s.Blockers {
			fmt.Fprintf(&b, "- **%s**: %s\n", r.Agent.Name, oneLine(r.Text))
		}
	}

	b.WriteString("\n## 📋 Next Hour\n\n")
	for _, r := range s.Next {
		fmt.Fprintf(&b, "- %s: %s\n", r.Agent.Label(), oneLine(r.Text))
	}

	b.WriteString("\n---\n")
	fmt.Fprintf(&b, "*%d reports from %d agents*\n", s.Reports, s.Agents)
	return b.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func cell(s string) string {
	return strings.ReplaceAll(oneLine(s), "|", `\|`)
}
