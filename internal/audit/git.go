package audit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strings"
	"sync"
)

// GitDestination commits one file per tick to a branch of a local clone and
// pushes it to origin.
type GitDestination struct {
	clone  string
	dir    string // subdirectory of the clone holding the records
	branch string

	mu sync.Mutex
}

// NewGitDestination returns a destination over an existing clone.
func NewGitDestination(clone, dir, branch string) *GitDestination {
	return &GitDestination{clone: clone, dir: dir, branch: branch}
}

func (d *GitDestination) Name() string { return "git" }

// File returns the clone-relative, slash-separated path of rec.
func (d *GitDestination) File(rec Record) string {
	return path.Join(d.dir, objectName(rec))
}

func (d *GitDestination) Write(ctx context.Context, rec Record, line []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, err := d.git(ctx, "checkout", d.branch); err != nil {
		return err
	}
	// Fails harmlessly while origin lacks the branch.
	_, _ = d.git(ctx, "pull", "--ff-only", "origin", d.branch)

	rel := d.File(rec)
	abs := filepath.Join(d.clone, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(abs), err)
	}
	if err := os.WriteFile(abs, line, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", abs, err)
	}
	if _, err := d.git(ctx, "add", rel); err != nil {
		return err
	}

	changed, err := d.staged(ctx)
	if err != nil || !changed {
		return err
	}
	msg := fmt.Sprintf("audit: %s demoted %d items", rec.TickID, len(rec.Updated))
	if _, err := d.git(ctx, "commit", "-m", msg); err != nil {
		return err
	}
	_, err = d.git(ctx, "push", "origin", d.branch)
	return err
}

// staged reports whether the index differs from HEAD.
func (d *GitDestination) staged(ctx context.Context) (bool, error) {
	_, err := d.git(ctx, "diff", "--cached", "--quiet")
	var exit *exec.ExitError
	if errors.As(err, &exit) && exit.ExitCode() == 1 {
		return true, nil
	}
	return false, err
}

// git runs a git subcommand in the clone. Failures carry git's output.
func (d *GitDestination) git(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = d.clone
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return out.Bytes(), &gitError{args: args, output: strings.TrimSpace(out.String()), err: err}
	}
	return out.Bytes(), nil
}

type gitError struct {
	args   []string
	output string
	err    error
}

func (e *gitError) Error() string {
	msg := "git " + e.args[0] + ": " + e.err.Error()
	if e.output != "" {
		msg += ": " + e.output
	}
	return msg
}

func (e *gitError) Unwrap() error { return e.err }
