package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"missioncontrol/config"
	"missioncontrol/internal/cli"
	"missioncontrol/internal/credentials"
	"missioncontrol/internal/daemon"
	"missioncontrol/internal/doctor"
	"missioncontrol/internal/history"
	"missioncontrol/internal/publish"
	"missioncontrol/internal/taskboard"
	"missioncontrol/version"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "mc",
	Short: "Mission Control: status board for a team of autonomous agents",
	Long: `Mission Control watches each agent's memory/WORKING.md, keeps the shared
status document and hourly digest up to date, publishes them to the workspace
repository and serves the dashboard API.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func cliLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func loadSettings() (*config.Settings, error) {
	settings, _, err := config.LoadDefault(configPath)
	return settings, err
}

// withComponents loads settings, builds the shared stores and hands them to fn.
func withComponents(ctx context.Context, fn func(*daemon.Components) error) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	dbPath, err := config.GetDatabasePath()
	if err != nil {
		return err
	}
	comps, err := daemon.Build(ctx, settings, dbPath, cliLogger())
	if err != nil {
		return err
	}
	defer comps.Close()
	return fn(comps)
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Record agent reports and generate the hourly digest",
}

var reportUpdateCmd = &cobra.Command{
	Use:   "update <agentId> <status> <currentTask> <reportText>",
	Short: "Record a manual status report for one agent",
	Long: `Record a manual status report and publish the status document.

Examples:
  mc report update forge active "Ship the scanner" "Tests are green"
  mc report update scout blocked "Market scan" "Waiting on API access" --no-publish`,
	RunE: func(cmd *cobra.Command, args []string) error {
		noPublish, _ := cmd.Flags().GetBool("no-publish")
		return withComponents(cmd.Context(), func(c *daemon.Components) error {
			return cli.UpdateReport(cmd.Context(), cmd.OutOrStdout(), c.Reports, c.Roster, args, !noPublish)
		})
	},
}

var reportHourlyCmd = &cobra.Command{
	Use:   "hourly",
	Short: "Generate the hourly digest once",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		window, _ := cmd.Flags().GetDuration("window")
		from, _ := cmd.Flags().GetString("from")
		withPublish, _ := cmd.Flags().GetBool("publish")

		return withComponents(cmd.Context(), func(c *daemon.Components) error {
			var source history.Source
			if from != "" {
				source = history.FileSource{Path: from}
			}
			gen := c.NewGenerator(source, window, nil)
			return cli.HourlyReport(cmd.Context(), cmd.OutOrStdout(), gen, withPublish)
		})
	},
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan every agent's WORKING.md once",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		withPublish, _ := cmd.Flags().GetBool("publish")
		return withComponents(cmd.Context(), func(c *daemon.Components) error {
			var publisher publish.Publisher = publish.Disabled{}
			if withPublish {
				publisher = c.Publisher
			}
			return cli.Scan(cmd.Context(), cmd.OutOrStdout(), c.NewScanner(publisher))
		})
	},
}

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "List the roster with each agent's latest status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withComponents(cmd.Context(), func(c *daemon.Components) error {
			cli.ListAgents(cmd.OutOrStdout(), c.Roster, c.Reports.Snapshot(), time.Now())
			return nil
		})
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Live status board (refreshes from the status document)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		interval, _ := cmd.Flags().GetDuration("interval")
		return withComponents(cmd.Context(), func(c *daemon.Components) error {
			return cli.Watch(c.Roster, c.Reports.Snapshot, interval)
		})
	},
}

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage the task board",
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the task board",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withComponents(cmd.Context(), func(c *daemon.Components) error {
			return cli.ListTasks(cmd.OutOrStdout(), c.Tasks)
		})
	},
}

var taskAddCmd = &cobra.Command{
	Use:   "add [title]",
	Short: "Add a task (prompts for details when run in a terminal without a title)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t := taskboard.Task{}
		if len(args) == 1 {
			t.Title = args[0]
		}
		t.Description, _ = cmd.Flags().GetString("description")
		t.Assignee, _ = cmd.Flags().GetString("assignee")
		t.Priority, _ = cmd.Flags().GetString("priority")
		status, _ := cmd.Flags().GetString("status")
		t.Status = taskboard.Status(status)

		return withComponents(cmd.Context(), func(c *daemon.Components) error {
			if strings.TrimSpace(t.Title) == "" {
				if !term.IsTerminal(int(os.Stdin.Fd())) {
					return errors.New("task title required")
				}
				if err := cli.PromptTask(&t, c.Roster.IDs()); err != nil {
					return err
				}
			}
			return cli.AddTask(cmd.OutOrStdout(), c.Tasks, t)
		})
	},
}

var taskMoveCmd = &cobra.Command{
	Use:   "move <id> <status>",
	Short: "Move a task to another column (inbox, assigned, in_progress, review, done)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withComponents(cmd.Context(), func(c *daemon.Components) error {
			return cli.MoveTask(cmd.OutOrStdout(), c.Tasks, args[0], args[1])
		})
	},
}

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Manage the background daemon",
}

var daemonStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the daemon (runs in background by default)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		foreground, _ := cmd.Flags().GetBool("foreground")
		settings, err := loadSettings()
		if err != nil {
			return err
		}

		if !foreground {
			return cli.StartDaemonBackground(cmd.OutOrStdout(), settings, configPath)
		}

		logPath, err := config.GetDaemonLogPath()
		if err != nil {
			return err
		}
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger, closer, err := daemon.OpenLogFile(logPath, level)
		if err != nil {
			return err
		}
		defer closer.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return cli.RunDaemonForeground(ctx, settings, logger)
	},
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the daemon",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cli.StopDaemon(cmd.OutOrStdout(), cliLogger())
	},
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check whether the daemon is serving",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := loadSettings()
		if err != nil {
			return err
		}
		if !cli.DaemonStatus(cmd.OutOrStdout(), settings) {
			os.Exit(1)
		}
		return nil
	},
}

var secretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Manage secrets in the system keyring",
	Long: fmt.Sprintf(`Manage secrets stored in the system keyring.

The dashboard API token is stored as %s. When it is set, mutating
dashboard endpoints require "Authorization: Bearer <token>". A running
daemon re-reads the token at most every 30 seconds, so no restart is needed.`, credentials.DashboardTokenName),
}

var secretSetCmd = &cobra.Command{
	Use:   "set [name] [value]",
	Short: "Create or replace a secret (defaults to the dashboard token)",
	Args:  cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := credentials.DashboardTokenName
		value := ""
		if len(args) > 0 {
			name = args[0]
		}
		if len(args) > 1 {
			value = args[1]
		}
		return withComponents(cmd.Context(), func(c *daemon.Components) error {
			return cli.SetSecret(cmd.Context(), cmd.OutOrStdout(), c.Secrets, name, value)
		})
	},
}

var secretDeleteCmd = &cobra.Command{
	Use:   "delete [name]",
	Short: "Delete a secret (defaults to the dashboard token)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := credentials.DashboardTokenName
		if len(args) > 0 {
			name = args[0]
		}
		return withComponents(cmd.Context(), func(c *daemon.Components) error {
			return cli.DeleteSecret(cmd.Context(), cmd.OutOrStdout(), c.Secrets, name)
		})
	},
}

var secretStatusCmd = &cobra.Command{
	Use:   "status [name]",
	Short: "Check whether a secret is stored (defaults to the dashboard token)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := credentials.DashboardTokenName
		if len(args) > 0 {
			name = args[0]
		}
		return cli.SecretStatus(cmd.OutOrStdout(), name)
	},
}

var secretListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored secret names",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withComponents(cmd.Context(), func(c *daemon.Components) error {
			return cli.ListSecrets(cmd.Context(), cmd.OutOrStdout(), c.Secrets)
		})
	},
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the installation for common problems",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		settings, path, err := config.LoadDefault(configPath)
		code := cli.Doctor(cmd.OutOrStdout(), doctor.Inputs{
			ConfigPath: path,
			Settings:   settings,
			LoadErr:    err,
		})
		if code != 0 {
			os.Exit(code)
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "mc %s\n", version.Get())
	},
}

func init() {
	// Disable the default completion command
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config.yaml (defaults to ~/.config/missioncontrol/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose logging")

	reportUpdateCmd.Flags().Bool("no-publish", false, "Save the report without committing and pushing it")
	reportHourlyCmd.Flags().Duration("window", 0, "Look-back window (defaults to hourly_window from config)")
	reportHourlyCmd.Flags().String("from", "", "Read events from a JSON history file instead of the event store")
	reportHourlyCmd.Flags().Bool("publish", false, "Commit and push the digest")
	reportCmd.AddCommand(reportUpdateCmd)
	reportCmd.AddCommand(reportHourlyCmd)

	scanCmd.Flags().Bool("publish", false, "Commit and push the status document when it changed")

	watchCmd.Flags().Duration("interval", 5*time.Second, "Refresh interval")

	taskAddCmd.Flags().StringP("description", "d", "", "Task description")
	taskAddCmd.Flags().StringP("assignee", "a", "", "Agent id to assign")
	taskAddCmd.Flags().StringP("priority", "p", "", "Priority (low, medium, high)")
	taskAddCmd.Flags().StringP("status", "s", "", "Initial column (defaults to inbox)")
	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskAddCmd)
	taskCmd.AddCommand(taskMoveCmd)

	// Daemon start flags
	daemonStartCmd.Flags().Bool("foreground", false, "Run daemon in foreground (blocks terminal)")
	daemonCmd.AddCommand(daemonStartCmd)
	daemonCmd.AddCommand(daemonStopCmd)
	daemonCmd.AddCommand(daemonStatusCmd)

	secretCmd.AddCommand(secretSetCmd)
	secretCmd.AddCommand(secretDeleteCmd)
	secretCmd.AddCommand(secretStatusCmd)
	secretCmd.AddCommand(secretListCmd)

	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(agentsCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(secretCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
