package cli

import (
	"context"
	"fmt"
	"io"
	"sort"

	"missioncontrol/internal/scanner"
)

// Scan runs a single scan cycle and prints what changed.
func Scan(ctx context.Context, out io.Writer, s *scanner.Scanner) error {
	res := s.Scan(ctx)
	if res.Err != "" {
		return fmt.Errorf("scan failed: %s", res.Err)
	}

	if !res.HasChanges() {
		fmt.Fprintln(out, mutedStyle.Render("No changes"))
	}
	for _, r := range res.Changed {
		fmt.Fprintf(out, "%s %-10s %s %s\n", successStyle.Render("✓"), r.Name, statusBadge(r.Status), valueStyle.Render(r.CurrentTask))
	}
	for _, id := range res.Missing {
		fmt.Fprintf(out, "%s %-10s %s\n", warnStyle.Render("-"), id, mutedStyle.Render("no WORKING.md"))
	}

	ids := make([]string, 0, len(res.Errors))
	for id := range res.Errors {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Fprintf(out, "%s %-10s %s\n", errorStyle.Render("✗"), id, res.Errors[id])
	}

	if res.Publish != nil {
		fmt.Fprintf(out, "%s %s\n", mutedStyle.Render("publish:"), res.Publish.String())
		if !res.Publish.OK() {
			return fmt.Errorf("reports written but not published: %w", res.Publish.Err())
		}
	}
	return nil
}
