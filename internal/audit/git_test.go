package audit

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// gitIn runs git in dir and returns its trimmed stdout.
func gitIn(t *testing.T, dir string, args ...string) string {
	t.Helper()
	out, err := exec.Command("git", append([]string{"-C", dir}, args...)...).CombinedOutput()
	if err != nil {
		t.Fatalf("git %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return strings.TrimSpace(string(out))
}

// newClone returns a clone of a fresh bare remote, with one commit pushed to
// main.
func newClone(t *testing.T) (clone, remote string) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not found in PATH")
	}

	remote = t.TempDir()
	gitIn(t, remote, "init", "--bare")

	clone = filepath.Join(t.TempDir(), "clone")
	gitIn(t, filepath.Dir(clone), "clone", remote, clone)
	gitIn(t, clone, "config", "user.email", "audit@example.com")
	gitIn(t, clone, "config", "user.name", "Audit")
	gitIn(t, clone, "symbolic-ref", "HEAD", "refs/heads/main")

	if err := os.WriteFile(filepath.Join(clone, "README"), []byte("audit\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	gitIn(t, clone, "add", "README")
	gitIn(t, clone, "commit", "-m", "init")
	gitIn(t, clone, "push", "origin", "main")
	return clone, remote
}

func TestGitDestination(t *testing.T) {
	clone, remote := newClone(t)
	dest := NewGitDestination(clone, "audit", "main")
	ctx := context.Background()

	rec := testRecord()
	line, _ := rec.Encode()
	if err := dest.Write(ctx, rec, line); err != nil {
		t.Fatalf("first write: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(clone, "audit", "2024", "01", "31", "tick-abc.jsonl"))
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if string(got) != string(line) {
		t.Fatalf("file content = %q, want %q", got, line)
	}

	// Rewriting the same record leaves nothing to commit.
	if err := dest.Write(ctx, rec, line); err != nil {
		t.Fatalf("second write: %v", err)
	}

	subjects := strings.Split(gitIn(t, remote, "log", "--format=%s", "main"), "\n")
	if len(subjects) != 2 || subjects[0] != "audit: tick-abc demoted 2 items" {
		t.Fatalf("pushed commits = %q", subjects)
	}
}

func TestGitDestination_MissingBranch(t *testing.T) {
	clone, _ := newClone(t)
	dest := NewGitDestination(clone, "audit", "no-such-branch")

	rec := testRecord()
	line, _ := rec.Encode()
	err := dest.Write(context.Background(), rec, line)

	var gerr *gitError
	if !errors.As(err, &gerr) {
		t.Fatalf("expected *gitError, got %T: %v", err, err)
	}
	if !strings.HasPrefix(err.Error(), "git checkout: ") {
		t.Errorf("error = %q", err)
	}
	var exit *exec.ExitError
	if !errors.As(err, &exit) {
		t.Errorf("expected wrapped *exec.ExitError")
	}
}

func TestGitDestination_FilePath(t *testing.T) {
	dest := NewGitDestination("/unused", "logs/adverthide", "main")
	if got := dest.File(testRecord()); got != "logs/adverthide/2024/01/31/tick-abc.jsonl" {
		t.Errorf("File = %q", got)
	}
}
