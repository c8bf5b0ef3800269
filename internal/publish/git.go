package publish

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// GitClient runs the git binary inside a working tree.
type GitClient struct {
	Dir string
	// Binary defaults to "git".
	Binary string
}

// NewGitClient returns a client rooted at dir.
func NewGitClient(dir string) *GitClient {
	return &GitClient{Dir: dir, Binary: "git"}
}

func (g *GitClient) Stage(ctx context.Context, paths ...string) error {
	args := append([]string{"add", "--"}, paths...)
	if len(paths) == 0 {
		args = []string{"add", "--all"}
	}
	_, err := g.run(ctx, args...)
	return err
}

func (g *GitClient) Commit(ctx context.Context, message string) error {
	out, err := g.run(ctx, "commit", "-m", message)
	if err != nil {
		if isNothingToCommit(out) || isNothingToCommit(err.Error()) {
			return ErrNothingToCommit
		}
		return err
	}
	return nil
}

func (g *GitClient) Push(ctx context.Context, remote, branch string) error {
	_, err := g.run(ctx, "push", remote, branch)
	return err
}

func (g *GitClient) run(ctx context.Context, args ...string) (string, error) {
	bin := g.Binary
	if bin == "" {
		bin = "git"
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = g.Dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return stdout.String(), fmt.Errorf("git %s: %w", args[0], ctxErr)
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = strings.TrimSpace(stdout.String())
		}
		return stdout.String(), fmt.Errorf("git %s: %w: %s", args[0], err, msg)
	}
	return stdout.String(), nil
}

func isNothingToCommit(s string) bool {
	s = strings.ToLower(s)
	return strings.Contains(s, "nothing to commit") || strings.Contains(s, "nothing added to commit") ||
		strings.Contains(s, "no changes added to commit")
}
