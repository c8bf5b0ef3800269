package summary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"missioncontrol/internal/agent"
	"missioncontrol/internal/history"
	"missioncontrol/internal/publish"
)

// ErrNothingToSummarize is returned when the source holds no events.
var ErrNothingToSummarize = errors.New("no reports to summarize")

// Generator writes the hourly digest to disk and optionally publishes it.
type Generator struct {
	Source    history.Source
	Roster    *agent.Roster
	Window    time.Duration
	Path      string
	Publisher publish.Publisher
	Now       func() time.Time
	Logger    *slog.Logger
}

func (g *Generator) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now()
}

func (g *Generator) logger() *slog.Logger {
	if g.Logger != nil {
		return g.Logger
	}
	return slog.New(slog.DiscardHandler)
}

// Generate builds the digest and writes it to Path.
func (g *Generator) Generate(ctx context.Context) (Summary, error) {
	now := g.now()
	window := g.Window
	if window <= 0 {
		window = DefaultWindow
	}

	events, err := g.Source.Events(ctx, now.Add(-window))
	if err != nil {
		return Summary{}, fmt.Errorf("load report events: %w", err)
	}
	if len(events) == 0 {
		return Summary{}, ErrNothingToSummarize
	}

	s := Build(events, now, window, g.Roster)
	if err := os.MkdirAll(filepath.Dir(g.Path), 0755); err != nil {
		return s, fmt.Errorf("failed to create reports directory: %w", err)
	}
	if err := os.WriteFile(g.Path, []byte(s.Markdown()), 0644); err != nil {
		return s, fmt.Errorf("failed to write hourly report: %w", err)
	}

	g.logger().Info("hourly report generated", "path", g.Path, "reports", s.Reports, "agents", s.Agents)
	return s, nil
}

// GenerateAndPublish runs Generate and, when it wrote a file, publishes it.
func (g *Generator) GenerateAndPublish(ctx context.Context) (Summary, publish.Outcome, error) {
	s, err := g.Generate(ctx)
	if err != nil {
		return s, publish.Ok(), err
	}
	if g.Publisher == nil {
		return s, publish.Ok(), nil
	}
	out := g.Publisher.Publish(ctx, "Update hourly report", g.Path)
	return s, out, nil
}

// Run regenerates the digest every interval until ctx is done. Failures are
// logged and retried on the next tick.
func (g *Generator) Run(ctx context.Context, interval time.Duration) error {
	log := g.logger()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			_, out, err := g.GenerateAndPublish(ctx)
			switch {
			case errors.Is(err, ErrNothingToSummarize):
				log.Debug("hourly report skipped, no recent events")
			case err != nil:
				log.Error("hourly report failed", "error", err)
			case !out.OK():
				log.Warn("hourly report publish failed", "outcome", out.String())
			}
		}
	}
}
