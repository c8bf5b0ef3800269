package cli

import (
	"fmt"
	"io"
	"time"

	"missioncontrol/internal/agent"
	"missioncontrol/internal/extract"
	"missioncontrol/internal/report"
	"missioncontrol/internal/timeutil"
)

// ListAgents prints the roster with each agent's latest report.
func ListAgents(out io.Writer, roster *agent.Roster, doc *report.Document, now time.Time) {
	fmt.Fprintln(out, labelStyle.Render("Agents"))
	for _, a := range roster.All() {
		status := extract.StatusIdle
		task := extract.DefaultTask
		seen := mutedStyle.Render("never reported")

		if r, ok := doc.Get(a.ID); ok {
			if r.Status != "" {
				status = r.Status
			}
			if r.CurrentTask != "" {
				task = r.CurrentTask
			}
			switch {
			case !r.ObservedAt.IsZero():
				seen = mutedStyle.Render(timeutil.FormatRelativeTime(r.ObservedAt, now))
			case r.LastReport != "":
				seen = mutedStyle.Render(r.LastReport)
			}
		}

		fmt.Fprintf(out, "  %s %-22s %s  %s\n", statusBadge(status), a.Label(), valueStyle.Render(task), seen)
		fmt.Fprintf(out, "    %s\n", mutedStyle.Render(a.ID+" · "+a.Role))
	}
}
