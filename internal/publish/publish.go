// Package publish commits generated artifacts and pushes them upstream.
// Failures are returned as an Outcome value rather than an error so callers
// can log them and carry on.
package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// ErrNothingToCommit is returned by a VCS commit when the index has no changes.
var ErrNothingToCommit = errors.New("nothing to commit")

// Step names the stage a publish stopped at.
type Step string

const (
	StepStage  Step = "stage"
	StepCommit Step = "commit"
	StepPush   Step = "push"
)

// Outcome is the result of one publish attempt.
type Outcome struct {
	Step   Step   `json:"step,omitempty"`
	Reason string `json:"reason,omitempty"`
	// Skipped is set when there was nothing to commit or publishing is off.
	Skipped bool `json:"skipped,omitempty"`
}

// Ok is a successful outcome.
func Ok() Outcome { return Outcome{} }

// Failed records the failing step and why. A blank reason falls back to the
// step name so the outcome never reads as a success.
func Failed(step Step, reason string) Outcome {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = string(step) + " failed"
	}
	return Outcome{Step: step, Reason: reason}
}

// OK reports whether the publish succeeded (or had nothing to do).
func (o Outcome) OK() bool { return o.Step == "" && o.Reason == "" }

// Err converts a failed outcome into an error, nil when OK.
func (o Outcome) Err() error {
	if o.OK() {
		return nil
	}
	return fmt.Errorf("publish failed at %s: %s", o.Step, o.Reason)
}

func (o Outcome) String() string {
	switch {
	case !o.OK():
		return fmt.Sprintf("failed(%s: %s)", o.Step, o.Reason)
	case o.Skipped:
		return "skipped"
	default:
		return "ok"
	}
}

// VCS is the version control collaborator.
type VCS interface {
	Stage(ctx context.Context, paths ...string) error
	Commit(ctx context.Context, message string) error
	Push(ctx context.Context, remote, branch string) error
}

// Publisher runs stage, commit and push in order.
type Publisher interface {
	Publish(ctx context.Context, message string, paths ...string) Outcome
}

// GitPublisher publishes through a VCS.
type GitPublisher struct {
	vcs    VCS
	remote string
	branch string
	logger *slog.Logger

	mu sync.Mutex
	// unpushed is set when a commit landed locally but the push failed.
	unpushed bool
}

// New returns a publisher pushing to remote/branch.
func New(vcs VCS, remote, branch string, logger *slog.Logger) *GitPublisher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &GitPublisher{vcs: vcs, remote: remote, branch: branch, logger: logger}
}

// Publish stages paths, commits with message and pushes. A commit with no
// changes is not a failure and skips the push, unless an earlier commit is
// still waiting to be pushed.
func (p *GitPublisher) Publish(ctx context.Context, message string, paths ...string) Outcome {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.vcs.Stage(ctx, paths...); err != nil {
		return p.fail(StepStage, err)
	}

	if err := p.vcs.Commit(ctx, message); err != nil {
		if !errors.Is(err, ErrNothingToCommit) {
			return p.fail(StepCommit, err)
		}
		if !p.unpushed {
			p.logger.Debug("publish skipped, nothing to commit", "message", message)
			return Outcome{Skipped: true}
		}
		p.logger.Info("nothing new to commit, pushing earlier commit")
	}

	if err := p.vcs.Push(ctx, p.remote, p.branch); err != nil {
		p.unpushed = true
		return p.fail(StepPush, err)
	}
	p.unpushed = false

	p.logger.Info("published", "message", message, "remote", p.remote, "branch", p.branch)
	return Ok()
}

func (p *GitPublisher) fail(step Step, err error) Outcome {
	out := Failed(step, err.Error())
	p.logger.Warn("publish failed", "step", step, "error", out.Reason)
	return out
}

// Disabled never touches the repository.
type Disabled struct{}

func (Disabled) Publish(context.Context, string, ...string) Outcome {
	return Outcome{Skipped: true}
}
