package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/huh"

	"missioncontrol/internal/taskboard"
)

// ListTasks prints the board grouped by column.
func ListTasks(out io.Writer, store *taskboard.Store) error {
	tasks, err := store.List()
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		fmt.Fprintln(out, mutedStyle.Render("No tasks yet. Add one with 'mc task add'."))
		return nil
	}

	byStatus := make(map[taskboard.Status][]taskboard.Task)
	for _, t := range tasks {
		byStatus[t.Status] = append(byStatus[t.Status], t)
	}

	for _, status := range taskboard.Statuses {
		column := byStatus[status]
		if len(column) == 0 {
			continue
		}
		fmt.Fprintln(out, sectionStyle.Render(fmt.Sprintf("%s (%d)", strings.ToUpper(string(status)), len(column))))
		for _, t := range column {
			line := "  " + mutedStyle.Render(shortID(t.ID)) + " " + t.Title
			if t.Assignee != "" {
				line += " " + valueStyle.Render("@"+t.Assignee)
			}
			if t.Priority != "" {
				line += " " + warnStyle.Render("["+t.Priority+"]")
			}
			fmt.Fprintln(out, line)
		}
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// PromptTask fills in t interactively. Fields already set are used as defaults.
func PromptTask(t *taskboard.Task, assignees []string) error {
	status := string(t.Status)
	if status == "" {
		status = string(taskboard.StatusInbox)
	}

	statusOptions := make([]string, len(taskboard.Statuses))
	for i, s := range taskboard.Statuses {
		statusOptions[i] = string(s)
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Title").
				Value(&t.Title).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("title is required")
					}
					return nil
				}),
			huh.NewText().
				Title("Description").
				Value(&t.Description),
			huh.NewSelect[string]().
				Title("Assignee").
				Options(huh.NewOptions(append([]string{""}, assignees...)...)...).
				Value(&t.Assignee),
			huh.NewSelect[string]().
				Title("Priority").
				Options(huh.NewOptions("", "low", "medium", "high")...).
				Value(&t.Priority),
			huh.NewSelect[string]().
				Title("Column").
				Options(huh.NewOptions(statusOptions...)...).
				Value(&status),
		),
	).WithTheme(formTheme())

	if err := form.Run(); err != nil {
		return fmt.Errorf("task form: %w", err)
	}
	t.Status = taskboard.Status(status)
	return nil
}

// AddTask validates and appends t.
func AddTask(out io.Writer, store *taskboard.Store, t taskboard.Task) error {
	saved, err := store.Add(t)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s Added %s %s to %s\n", successStyle.Render("✓"), mutedStyle.Render(shortID(saved.ID)), saved.Title, valueStyle.Render(string(saved.Status)))
	return nil
}

// MoveTask moves a task to another column. id may be a unique prefix.
func MoveTask(out io.Writer, store *taskboard.Store, id, status string) error {
	full, err := resolveTaskID(store, id)
	if err != nil {
		return err
	}
	moved, err := store.Move(full, status)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s Moved %s to %s\n", successStyle.Render("✓"), moved.Title, valueStyle.Render(string(moved.Status)))
	return nil
}

func resolveTaskID(store *taskboard.Store, prefix string) (string, error) {
	tasks, err := store.List()
	if err != nil {
		return "", err
	}
	var matches []string
	for _, t := range tasks {
		if t.ID == prefix {
			return t.ID, nil
		}
		if strings.HasPrefix(t.ID, prefix) {
			matches = append(matches, t.ID)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: %s", taskboard.ErrNotFound, prefix)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("task id %q is ambiguous (%d matches)", prefix, len(matches))
	}
}
