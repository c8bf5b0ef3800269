package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"missioncontrol/internal/credentials"
)

// SetSecret stores value (prompting when empty) and registers the name.
func SetSecret(ctx context.Context, out io.Writer, reg *credentials.Registry, name, value string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("secret name cannot be empty")
	}
	secret, err := ensureSecretInput(out, value, fmt.Sprintf("Enter value for %s: ", name))
	if err != nil {
		return err
	}

	if err := reg.Set(ctx, name, secret); err != nil {
		return err
	}

	fmt.Fprintf(out, "Stored secret %q in the system keyring\n", name)
	if name == credentials.DashboardTokenName {
		fmt.Fprintln(out, mutedStyle.Render("A running daemon picks up the new token within 30 seconds."))
	}
	return nil
}

func DeleteSecret(ctx context.Context, out io.Writer, reg *credentials.Registry, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("secret name cannot be empty")
	}
	if err := reg.Delete(ctx, name); err != nil {
		if errors.Is(err, credentials.ErrNotFound) {
			return fmt.Errorf("no secret named %q is stored", name)
		}
		return err
	}

	fmt.Fprintf(out, "Removed secret %q from the system keyring\n", name)
	return nil
}

// SecretStatus reports whether the named secret exists in the keyring.
func SecretStatus(out io.Writer, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("secret name cannot be empty")
	}
	exists, err := credentials.HasSecret(name)
	if err != nil {
		return err
	}
	if exists {
		fmt.Fprintf(out, "Secret %q is stored in the system keyring\n", name)
	} else {
		fmt.Fprintf(out, "Secret %q is not stored\n", name)
	}
	return nil
}

// ListSecrets prints all recorded secret names.
func ListSecrets(ctx context.Context, out io.Writer, reg *credentials.Registry) error {
	names, err := reg.List(ctx)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Fprintln(out, "No secrets have been registered yet")
		return nil
	}
	for _, name := range names {
		label := name
		if name == credentials.DashboardTokenName {
			label += " (dashboard API token)"
		}
		fmt.Fprintln(out, label)
	}
	return nil
}

func ensureSecretInput(out io.Writer, raw, prompt string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" {
		return trimmed, nil
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", fmt.Errorf("secret value required; pass it as an argument or run interactively")
	}

	fmt.Fprint(out, prompt)
	bytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("read secret: %w", err)
	}

	trimmed = strings.TrimSpace(string(bytes))
	if trimmed == "" {
		return "", fmt.Errorf("secret value cannot be empty")
	}

	return trimmed, nil
}
