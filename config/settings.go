package config

import (
	"fmt"
	"net"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"missioncontrol/internal/agent"
)

// Settings is the on-disk configuration of the dashboard and its daemon.
type Settings struct {
	AgentsRoot     string        `yaml:"agents_root"`
	Workspace      string        `yaml:"workspace"`
	ReportsDir     string        `yaml:"reports_dir"`
	TasksFile      string        `yaml:"tasks_file"`
	PollInterval   time.Duration `yaml:"poll_interval"`
	HourlyInterval time.Duration `yaml:"hourly_interval"`
	HourlyWindow   time.Duration `yaml:"hourly_window"`
	PublishTimeout time.Duration `yaml:"publish_timeout"`
	Listen         string        `yaml:"listen"`
	StaticDir      string        `yaml:"static_dir,omitempty"`
	Owner          string        `yaml:"owner,omitempty"`

	Extract ExtractSettings `yaml:"extract"`
	Publish PublishSettings `yaml:"publish"`
	Agents  []agent.Agent   `yaml:"agents"`
}

// ExtractSettings tunes the WORKING.md heuristics.
type ExtractSettings struct {
	LenientActive bool `yaml:"lenient_active"`
}

// PublishSettings controls the git publish step.
type PublishSettings struct {
	Enabled bool   `yaml:"enabled"`
	Remote  string `yaml:"remote"`
	Branch  string `yaml:"branch"`
}

// Default returns settings matching the bundled default config file.
func Default() *Settings {
	return &Settings{
		AgentsRoot:     "~/clawd/agents",
		Workspace:      "~/personal-os",
		ReportsDir:     "reports",
		TasksFile:      "tasks.json",
		PollInterval:   60 * time.Second,
		HourlyInterval: time.Hour,
		HourlyWindow:   2 * time.Hour,
		PublishTimeout: 2 * time.Minute,
		Listen:         "127.0.0.1:3000",
		Publish: PublishSettings{
			Enabled: true,
			Remote:  "origin",
			Branch:  "main",
		},
		Agents: agent.DefaultAgents(),
	}
}

// Load reads settings from path. Fields missing from the file keep their
// defaults; paths have ${VAR} and a leading ~ expanded.
func Load(path string) (*Settings, error) {
	settings := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := settings.normalize(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return settings, nil
}

// LoadDefault ensures the default config file exists and loads it. An empty
// path selects the standard location.
func LoadDefault(path string) (*Settings, string, error) {
	if path == "" {
		p, err := GetConfigFile()
		if err != nil {
			return nil, "", err
		}
		path = p
	}
	if err := EnsureConfigExists(path); err != nil {
		return nil, path, fmt.Errorf("failed to initialize config: %w", err)
	}
	settings, err := Load(path)
	return settings, path, err
}

// Save writes settings to path as YAML.
func Save(path string, settings *Settings) error {
	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

func (s *Settings) normalize() error {
	defaults := Default()

	s.AgentsRoot = expandPath(s.AgentsRoot)
	s.Workspace = expandPath(s.Workspace)
	s.StaticDir = expandPath(s.StaticDir)
	if s.ReportsDir == "" {
		s.ReportsDir = defaults.ReportsDir
	}
	if s.TasksFile == "" {
		s.TasksFile = defaults.TasksFile
	}
	s.ReportsDir = expandPath(s.ReportsDir)
	s.TasksFile = expandPath(s.TasksFile)

	if s.PollInterval <= 0 {
		s.PollInterval = defaults.PollInterval
	}
	if s.HourlyInterval <= 0 {
		s.HourlyInterval = defaults.HourlyInterval
	}
	if s.HourlyWindow <= 0 {
		s.HourlyWindow = defaults.HourlyWindow
	}
	if s.PublishTimeout <= 0 {
		s.PublishTimeout = defaults.PublishTimeout
	}
	if s.Listen == "" {
		s.Listen = defaults.Listen
	}
	if s.Publish.Remote == "" {
		s.Publish.Remote = defaults.Publish.Remote
	}
	if s.Publish.Branch == "" {
		s.Publish.Branch = defaults.Publish.Branch
	}
	if strings.TrimSpace(s.Owner) == "" {
		s.Owner = defaultOwner()
	}
	if len(s.Agents) == 0 {
		s.Agents = defaults.Agents
	}

	return s.Validate()
}

// Validate checks that the settings can drive a dashboard.
func (s *Settings) Validate() error {
	if s.AgentsRoot == "" {
		return fmt.Errorf("agents_root cannot be empty")
	}
	if s.Workspace == "" {
		return fmt.Errorf("workspace cannot be empty")
	}
	if _, _, err := net.SplitHostPort(s.Listen); err != nil {
		return fmt.Errorf("listen address %q: %w", s.Listen, err)
	}
	if _, err := agent.NewRoster(s.Agents); err != nil {
		return fmt.Errorf("agents: %w", err)
	}
	return nil
}

// Roster builds the agent roster from the configured agents.
func (s *Settings) Roster() (*agent.Roster, error) {
	return agent.NewRoster(s.Agents)
}

// ReportsPath returns the absolute reports directory.
func (s *Settings) ReportsPath() string {
	return s.inWorkspace(s.ReportsDir)
}

// ReportDocumentPath is the agent status JSON document.
func (s *Settings) ReportDocumentPath() string {
	return filepath.Join(s.ReportsPath(), "agent-reports.json")
}

// HourlyReportPath is the rendered hourly markdown digest.
func (s *Settings) HourlyReportPath() string {
	return filepath.Join(s.ReportsPath(), "hourly-report.md")
}

// FeaturesPath is the feature approval list.
func (s *Settings) FeaturesPath() string {
	return filepath.Join(s.ReportsPath(), "features.json")
}

// TasksPath is the kanban task list.
func (s *Settings) TasksPath() string {
	return s.inWorkspace(s.TasksFile)
}

func (s *Settings) inWorkspace(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(s.Workspace, p)
}

// expandPath expands environment variables in the format ${VAR_NAME} and a leading ~.
func expandPath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	if strings.Contains(p, "$") {
		p = os.Expand(p, os.Getenv)
	}
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}

func defaultOwner() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	if name := os.Getenv("USER"); name != "" {
		return name
	}
	return "admin"
}
