package cli

import (
	"fmt"
	"io"
	"strings"

	"missioncontrol/internal/doctor"
)

func Doctor(out io.Writer, in doctor.Inputs) int {
	report := doctor.GenerateReport(in)

	fmt.Fprintln(out, labelStyle.Render("Mission Control Doctor Report"))
	fmt.Fprintln(out, strings.Repeat("-", 29))

	for _, check := range report.Checks {
		fmt.Fprintf(out, "%s %s - %s\n", formatStatus(check.Status), check.Name, check.Summary)
		for _, detail := range check.Details {
			fmt.Fprintf(out, "    %s\n", detail)
		}
		for _, action := range check.Actions {
			fmt.Fprintf(out, "    -> %s\n", action)
		}
		fmt.Fprintln(out)
	}

	exitCode := report.ExitCode()
	if exitCode == 0 {
		fmt.Fprintln(out, "All checks completed")
	} else {
		fmt.Fprintln(out, "One or more checks failed")
	}

	return exitCode
}

func formatStatus(status doctor.Status) string {
	switch status {
	case doctor.StatusOK:
		return successStyle.Render("[OK  ]")
	case doctor.StatusWarn:
		return warnStyle.Render("[WARN]")
	case doctor.StatusFail:
		return errorStyle.Render("[FAIL]")
	default:
		return "[    ]"
	}
}
