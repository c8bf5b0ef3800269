// Package doctor inspects the local installation and reports problems with
// suggested fixes.
package doctor

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"strings"
	"time"

	"missioncontrol/config"
	"missioncontrol/internal/agent"
	"missioncontrol/internal/credentials"
	"missioncontrol/internal/daemon"
	"missioncontrol/internal/timeutil"
)

type Status string

const (
	StatusOK   Status = "OK"
	StatusWarn Status = "WARN"
	StatusFail Status = "FAIL"
)

type CheckResult struct {
	Name    string
	Status  Status
	Summary string
	Details []string
	Actions []string
}

type Report struct {
	Checks []CheckResult
}

func (r Report) HasFailures() bool {
	for _, check := range r.Checks {
		if check.Status == StatusFail {
			return true
		}
	}
	return false
}

func (r Report) ExitCode() int {
	if r.HasFailures() {
		return 1
	}
	return 0
}

// Inputs is what the checks inspect. Settings is nil when loading failed.
type Inputs struct {
	ConfigPath string
	Settings   *config.Settings
	LoadErr    error
	// StaleAfter flags WORKING.md files not touched for this long.
	StaleAfter time.Duration
	Now        func() time.Time
}

func GenerateReport(in Inputs) Report {
	if in.Now == nil {
		in.Now = time.Now
	}
	if in.StaleAfter <= 0 {
		in.StaleAfter = 24 * time.Hour
	}

	var checks []CheckResult

	checks = append(checks, checkMetadata())

	configResult, roster := checkConfig(in)
	checks = append(checks, configResult)

	checks = append(checks, checkToken())

	if in.Settings != nil {
		checks = append(checks, checkDaemon(in.Settings))
		checks = append(checks, checkAgentFiles(in, roster))
		checks = append(checks, checkWorkspace(in.Settings))
	}

	checks = append(checks, checkDataStore())

	return Report{Checks: checks}
}

func checkMetadata() CheckResult {
	result := CheckResult{Name: "Runtime Metadata", Status: StatusOK}

	execPath, err := os.Executable()
	if err != nil {
		result.Status = StatusWarn
		result.Summary = "Could not resolve executable path"
		result.Details = append(result.Details, err.Error())
		result.Actions = append(result.Actions, "re-run from installed binary path")
		return result
	}

	buildInfo, ok := debug.ReadBuildInfo()
	goVersion := runtime.Version()
	summaryParts := []string{fmt.Sprintf("go runtime %s", goVersion)}
	if ok && buildInfo != nil {
		if buildInfo.Main.Version != "" && buildInfo.Main.Version != "(devel)" {
			summaryParts = append(summaryParts, fmt.Sprintf("module %s", buildInfo.Main.Version))
		}
		if buildInfo.Main.Sum != "" {
			summaryParts = append(summaryParts, fmt.Sprintf("sum %s", buildInfo.Main.Sum))
		}
	}

	result.Summary = strings.Join(summaryParts, ", ")
	result.Details = append(result.Details,
		fmt.Sprintf("Executable: %s", execPath),
		fmt.Sprintf("OS/Arch: %s/%s", runtime.GOOS, runtime.GOARCH),
	)

	if ok && buildInfo != nil {
		if buildInfo.Main.Path != "" {
			result.Details = append(result.Details, fmt.Sprintf("Module: %s", buildInfo.Main.Path))
		}
		if buildInfo.Main.Version == "(devel)" {
			result.Details = append(result.Details, "Build from local sources")
		}
		if buildInfo.Settings != nil {
			for _, setting := range buildInfo.Settings {
				if setting.Key == "vcs.revision" && setting.Value != "" {
					result.Details = append(result.Details, fmt.Sprintf("VCS Revision: %s", setting.Value))
				}
				if setting.Key == "vcs.time" && setting.Value != "" {
					result.Details = append(result.Details, fmt.Sprintf("VCS Time: %s", setting.Value))
				}
			}
		}
	}

	return result
}

func checkConfig(in Inputs) (CheckResult, *agent.Roster) {
	result := CheckResult{Name: "Configuration", Status: StatusOK}

	configDir, err := config.GetConfigDir()
	if err != nil {
		result.Status = StatusFail
		result.Summary = "Unable to resolve config directory"
		result.Details = append(result.Details, err.Error())
		result.Actions = append(result.Actions, "verify HOME is set and accessible")
		return result, nil
	}
	result.Details = append(result.Details, fmt.Sprintf("Config directory: %s", configDir))

	if err := checkDirWritable(configDir); err != nil {
		result.Status = StatusWarn
		result.Details = append(result.Details, fmt.Sprintf("Directory not writable: %v", err))
		result.Actions = append(result.Actions, "adjust permissions so mc can write its config and database")
	}

	if in.ConfigPath != "" {
		result.Details = append(result.Details, fmt.Sprintf("Config file: %s", in.ConfigPath))
	}

	if in.LoadErr != nil || in.Settings == nil {
		result.Status = StatusFail
		result.Summary = "Failed to load config"
		if in.LoadErr != nil {
			result.Details = append(result.Details, in.LoadErr.Error())
		}
		result.Actions = append(result.Actions, "fix the YAML in config.yaml or delete it to regenerate defaults")
		return result, nil
	}

	roster, err := in.Settings.Roster()
	if err != nil {
		result.Status = StatusFail
		result.Summary = "Invalid agent roster"
		result.Details = append(result.Details, err.Error())
		result.Actions = append(result.Actions, "give every agent a unique, non-empty id")
		return result, nil
	}

	result.Summary = fmt.Sprintf("Config loaded (%d agents)", roster.Len())
	result.Details = append(result.Details,
		fmt.Sprintf("Agents root: %s", in.Settings.AgentsRoot),
		fmt.Sprintf("Workspace: %s", in.Settings.Workspace),
		fmt.Sprintf("Listen: %s", in.Settings.Listen),
	)
	return result, roster
}

func checkDirWritable(dir string) error {
	file, err := os.CreateTemp(dir, "doctor-")
	if err != nil {
		return err
	}
	name := file.Name()
	file.Close()
	if err := os.Remove(name); err != nil {
		return err
	}
	return nil
}

func checkToken() CheckResult {
	result := CheckResult{Name: "Dashboard Token", Status: StatusOK}

	exists, err := credentials.HasSecret(credentials.DashboardTokenName)
	if err != nil {
		result.Status = StatusWarn
		result.Summary = "Unable to access system keyring"
		result.Details = append(result.Details, err.Error())
		result.Actions = append(result.Actions, "confirm keyring backend is available")
		return result
	}

	if exists {
		result.Summary = "API token is stored; mutating endpoints require it"
	} else {
		result.Status = StatusWarn
		result.Summary = "No API token; mutating endpoints are open"
		result.Actions = append(result.Actions, fmt.Sprintf("run 'mc secret set %s' to require a bearer token", credentials.DashboardTokenName))
	}
	return result
}

func checkDaemon(settings *config.Settings) CheckResult {
	result := CheckResult{Name: "Daemon", Status: StatusOK}

	running := daemon.IsRunning(settings.Listen)

	pid, err := daemon.ReadPIDFile()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		result.Status = StatusWarn
		result.Details = append(result.Details, fmt.Sprintf("PID file error: %v", err))
	}

	if !running {
		result.Status = StatusWarn
		result.Summary = "Daemon is not running"
		if pid > 0 {
			result.Details = append(result.Details, fmt.Sprintf("Stale PID file for %d", pid))
		}
		result.Actions = append(result.Actions, "run 'mc daemon start'")
		return result
	}

	result.Summary = fmt.Sprintf("Dashboard answering at %s", daemon.HealthURL(settings.Listen))
	if pid > 0 {
		result.Details = append(result.Details, fmt.Sprintf("PID: %d", pid))
	} else {
		result.Status = StatusWarn
		result.Details = append(result.Details, "Daemon pid file missing or unreadable")
		result.Actions = append(result.Actions, "another process may own the port; check 'mc daemon status'")
	}
	return result
}

func checkAgentFiles(in Inputs, roster *agent.Roster) CheckResult {
	result := CheckResult{Name: "Agent Files", Status: StatusOK}
	if roster == nil {
		result.Status = StatusWarn
		result.Summary = "Roster unavailable"
		return result
	}

	now := in.Now()
	found := 0
	for _, a := range roster.All() {
		path := agent.MemoryFile(in.Settings.AgentsRoot, a.ID)
		info, err := os.Stat(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			result.Details = append(result.Details, fmt.Sprintf("%s: no WORKING.md", a.Label()))
		case err != nil:
			result.Status = StatusWarn
			result.Details = append(result.Details, fmt.Sprintf("%s: %v", a.Label(), err))
		default:
			found++
			age := now.Sub(info.ModTime())
			line := fmt.Sprintf("%s: updated %s", a.Label(), timeutil.FormatRelativeTime(info.ModTime(), now))
			if age > in.StaleAfter {
				line += " (stale)"
			}
			result.Details = append(result.Details, line)
		}
	}

	result.Summary = fmt.Sprintf("%d of %d agents have a WORKING.md", found, roster.Len())
	if found == 0 {
		result.Status = StatusWarn
		result.Actions = append(result.Actions, fmt.Sprintf("check agents_root (%s)", in.Settings.AgentsRoot))
	}
	return result
}

func checkWorkspace(settings *config.Settings) CheckResult {
	result := CheckResult{Name: "Workspace", Status: StatusOK}

	stat, err := os.Stat(settings.Workspace)
	if err != nil || !stat.IsDir() {
		result.Status = StatusFail
		result.Summary = "Workspace directory missing"
		if err != nil {
			result.Details = append(result.Details, err.Error())
		}
		result.Actions = append(result.Actions, fmt.Sprintf("create %s or point workspace at your reports repository", settings.Workspace))
		return result
	}
	result.Summary = "Workspace available"
	result.Details = append(result.Details, fmt.Sprintf("Reports: %s", settings.ReportsPath()))

	if err := checkDirWritable(settings.Workspace); err != nil {
		result.Status = StatusFail
		result.Summary = "Workspace not writable"
		result.Details = append(result.Details, err.Error())
		return result
	}

	if !settings.Publish.Enabled {
		result.Details = append(result.Details, "Publishing disabled")
		return result
	}
	if _, err := exec.LookPath("git"); err != nil {
		result.Status = StatusWarn
		result.Summary = "git not found in PATH; publishing will fail"
		result.Actions = append(result.Actions, "install git or set publish.enabled: false")
		return result
	}
	if _, err := os.Stat(filepath.Join(settings.Workspace, ".git")); err != nil {
		result.Status = StatusWarn
		result.Summary = "Workspace is not a git repository; publishing will fail"
		result.Actions = append(result.Actions, "run 'git init' in the workspace or disable publishing")
		return result
	}
	result.Details = append(result.Details, fmt.Sprintf("Publishing to %s/%s", settings.Publish.Remote, settings.Publish.Branch))
	return result
}

func checkDataStore() CheckResult {
	result := CheckResult{Name: "Data Store", Status: StatusOK}

	dbPath, err := config.GetDatabasePath()
	if err != nil {
		result.Status = StatusWarn
		result.Summary = "Unable to resolve database path"
		result.Details = append(result.Details, err.Error())
		return result
	}

	info, err := os.Stat(dbPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			result.Status = StatusWarn
			result.Summary = "Database file not initialized"
			result.Actions = append(result.Actions, "run 'mc scan' or start the daemon to create it")
			return result
		}
		result.Status = StatusWarn
		result.Summary = "Cannot read history database"
		result.Details = append(result.Details, err.Error())
		return result
	}

	result.Summary = "Database available"
	result.Details = append(result.Details,
		fmt.Sprintf("Path: %s", dbPath),
		fmt.Sprintf("Size: %s", formatBytes(info.Size())),
		fmt.Sprintf("Last modified: %s", info.ModTime().Format(time.RFC3339)),
	)

	return result
}

func formatBytes(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(size)/float64(div), "KMGTPE"[exp])
}
