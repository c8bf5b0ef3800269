package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"missioncontrol/config"
	"missioncontrol/internal/agent"
	"missioncontrol/internal/credentials"
	"missioncontrol/internal/extract"
	"missioncontrol/internal/features"
	"missioncontrol/internal/history"
	"missioncontrol/internal/notes"
	"missioncontrol/internal/publish"
	"missioncontrol/internal/report"
	"missioncontrol/internal/scanner"
	"missioncontrol/internal/summary"
	"missioncontrol/internal/taskboard"
	"missioncontrol/pkg/db"
)

// Components are the long-lived state objects shared by the daemon and the
// one-shot CLI commands. Build them once and Close when done.
type Components struct {
	Settings  *config.Settings
	Roster    *agent.Roster
	Pool      *db.Pool
	History   *history.Store
	Secrets   *credentials.Registry
	Extractor *extract.Extractor
	Publisher publish.Publisher
	Reports   *report.Service
	Tasks     *taskboard.Store
	Features  *features.Store
	Notes     *notes.Reader

	logger *slog.Logger
}

// Build opens the database at dbPath and wires every store from settings.
func Build(ctx context.Context, settings *config.Settings, dbPath string, logger *slog.Logger) (*Components, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	roster, err := settings.Roster()
	if err != nil {
		return nil, fmt.Errorf("build roster: %w", err)
	}

	pool, err := db.Open(ctx, dbPath)
	if err != nil {
		return nil, err
	}

	events, err := history.Open(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, err
	}
	secrets, err := credentials.OpenRegistry(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, err
	}

	extractor := extract.New(extract.Options{LenientActive: settings.Extract.LenientActive})

	var publisher publish.Publisher = publish.Disabled{}
	if settings.Publish.Enabled {
		publisher = publish.New(
			publish.NewGitClient(settings.Workspace),
			settings.Publish.Remote,
			settings.Publish.Branch,
			logger.With("component", "publish"),
		)
	}

	reports := report.NewService(
		report.NewStore(settings.ReportDocumentPath(), logger.With("component", "report")),
		roster,
		report.WithRecorder(events),
		report.WithPublisher(publisher),
		report.WithLogger(logger.With("component", "report")),
	)

	reader, err := notes.NewReader(settings.AgentsRoot, roster,
		notes.WithExtractor(extractor),
		notes.WithLogger(logger.With("component", "notes")),
	)
	if err != nil {
		pool.Close()
		return nil, err
	}

	return &Components{
		Settings:  settings,
		Roster:    roster,
		Pool:      pool,
		History:   events,
		Secrets:   secrets,
		Extractor: extractor,
		Publisher: publisher,
		Reports:   reports,
		Tasks:     taskboard.NewStore(settings.TasksPath()),
		Features:  features.NewStore(settings.FeaturesPath(), settings.Owner),
		Notes:     reader,
		logger:    logger,
	}, nil
}

// NewScanner returns a scanner over the agent memory files. The publisher
// can be overridden so one-shot scans honour --publish.
func (c *Components) NewScanner(publisher publish.Publisher, opts ...func(*scanner.Config)) *scanner.Scanner {
	if publisher == nil {
		publisher = c.Publisher
	}
	cfg := scanner.Config{
		Root:           c.Settings.AgentsRoot,
		Roster:         c.Roster,
		Extractor:      c.Extractor,
		Service:        c.Reports,
		Publisher:      publisher,
		PublishTimeout: c.Settings.PublishTimeout,
		Interval:       c.Settings.PollInterval,
		Logger:         c.logger,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return scanner.New(cfg)
}

// NewGenerator returns the hourly digest generator reading from source, or
// from the event history when source is nil.
func (c *Components) NewGenerator(source history.Source, window time.Duration, publisher publish.Publisher) *summary.Generator {
	if source == nil {
		source = c.History
	}
	if window <= 0 {
		window = c.Settings.HourlyWindow
	}
	if publisher == nil {
		publisher = c.Publisher
	}
	return &summary.Generator{
		Source:    source,
		Roster:    c.Roster,
		Window:    window,
		Path:      c.Settings.HourlyReportPath(),
		Publisher: publisher,
		Logger:    c.logger.With("component", "summary"),
	}
}

// Close releases the database.
func (c *Components) Close() error {
	if c == nil || c.Pool == nil {
		return nil
	}
	err := c.Pool.Close()
	c.Pool = nil
	return err
}
