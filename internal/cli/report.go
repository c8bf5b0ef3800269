package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"missioncontrol/internal/agent"
	"missioncontrol/internal/publish"
	"missioncontrol/internal/report"
	"missioncontrol/internal/summary"
)

// ErrUsage marks errors caused by bad arguments.
var ErrUsage = errors.New("usage")

const reportUsage = "mc report update <agentId> <status> <currentTask> <reportText>"

func usageError(roster *agent.Roster, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	return fmt.Errorf("%w: %s\nUsage: %s\nValid agents: %s\nValid statuses: active, idle, blocked",
		ErrUsage, msg, reportUsage, strings.Join(roster.IDs(), ", "))
}

// UpdateReport records a manual report. The report is saved even when the
// publish step fails; that case still returns an error.
func UpdateReport(ctx context.Context, out io.Writer, svc *report.Service, roster *agent.Roster, args []string, withPublish bool) error {
	if len(args) != 4 {
		return usageError(roster, "expected 4 arguments, got %d", len(args))
	}

	r, outcome, err := svc.Update(ctx, report.UpdateRequest{
		AgentID:     args[0],
		Status:      args[1],
		CurrentTask: args[2],
		Report:      args[3],
		Publish:     withPublish,
	})
	switch {
	case errors.Is(err, report.ErrUnknownAgent):
		return usageError(roster, "unknown agent %q", args[0])
	case errors.Is(err, report.ErrInvalidStatus):
		return usageError(roster, "invalid status %q", args[1])
	case err != nil:
		return err
	}

	fmt.Fprintf(out, "%s Updated %s %s %s\n", successStyle.Render("✓"), r.Name, statusBadge(r.Status), valueStyle.Render(r.CurrentTask))
	if !withPublish {
		return nil
	}
	if !outcome.OK() {
		fmt.Fprintf(out, "%s %s\n", errorStyle.Render("✗ publish"), outcome.String())
		return fmt.Errorf("report saved but not published: %w", outcome.Err())
	}
	fmt.Fprintf(out, "%s %s\n", mutedStyle.Render("publish:"), outcome.String())
	return nil
}

// HourlyReport regenerates the digest once, publishing it when asked.
func HourlyReport(ctx context.Context, out io.Writer, gen *summary.Generator, withPublish bool) error {
	var (
		sum     summary.Summary
		outcome publish.Outcome
		err     error
	)
	if withPublish {
		sum, outcome, err = gen.GenerateAndPublish(ctx)
	} else {
		sum, err = gen.Generate(ctx)
	}

	if errors.Is(err, summary.ErrNothingToSummarize) {
		fmt.Fprintf(out, "%s\n", mutedStyle.Render("No reports in the last "+gen.Window.String()+"; nothing written"))
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%s Wrote %s\n", successStyle.Render("✓"), filepath.Clean(gen.Path))
	fmt.Fprintf(out, "  %d completed, %d in progress, %d blockers from %d agents\n",
		len(sum.Completed), len(sum.InProgress), len(sum.Blockers), sum.Agents)
	if !withPublish {
		return nil
	}
	fmt.Fprintf(out, "  %s %s\n", mutedStyle.Render("publish:"), outcome.String())
	if !outcome.OK() {
		return fmt.Errorf("hourly report written but not published: %w", outcome.Err())
	}
	return nil
}
