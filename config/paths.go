package config

import (
	"os"
	"path/filepath"
)

const AppName = "missioncontrol"

// ConfigDirEnv overrides the configuration directory (useful for tests and
// running several dashboards side by side).
const ConfigDirEnv = "MC_CONFIG_DIR"

func GetConfigDir() (string, error) {
	configDir := os.Getenv(ConfigDirEnv)
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(homeDir, ".config", AppName)
	}

	// Ensure the directory exists
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", err
	}

	return configDir, nil
}

func GetConfigFile() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(configDir, "config.yaml"), nil
}

func GetPIDFile() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, AppName+".pid"), nil
}

func GetDatabasePath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, AppName+".db"), nil
}

func GetLogsDir() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}

	logsDir := filepath.Join(configDir, "logs")

	// Ensure the directory exists
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return "", err
	}

	return logsDir, nil
}

func GetDaemonLogPath() (string, error) {
	logsDir, err := GetLogsDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(logsDir, "daemon.log"), nil
}

// EnsureConfigExists writes the default configuration when path does not exist yet.
func EnsureConfigExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte(defaultConfig), 0644); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	return nil
}

const defaultConfig = `# Mission Control configuration.
agents_root: "~/clawd/agents"
workspace: "~/personal-os"
reports_dir: "reports"
tasks_file: "tasks.json"

poll_interval: 60s
hourly_interval: 1h
hourly_window: 2h
publish_timeout: 2m

listen: "127.0.0.1:3000"
static_dir: ""

extract:
  # When true a checkmark alone marks an agent active; otherwise the
  # WORKING.md must also contain the literal ACTIVE marker.
  lenient_active: false

publish:
  enabled: true
  remote: "origin"
  branch: "main"

agents:
  - id: "beacon"
    name: "Beacon"
    role: "Product Strategist"
    avatar: "🎯"
  - id: "forge"
    name: "Forge"
    role: "Developer"
    avatar: "🔨"
  - id: "echo"
    name: "Echo"
    role: "Content Creator"
    avatar: "📢"
  - id: "scout"
    name: "Scout"
    role: "Researcher"
    avatar: "🔭"
  - id: "sentinel"
    name: "Sentinel"
    role: "QA"
    avatar: "🛡️"
`
