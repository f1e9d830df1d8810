// Package hooks runs an operator-supplied shell command after each demotion,
// typically to purge a page cache that still serves the demoted items.
package hooks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/alfredjeanlab/adverthide/internal/events"
	"github.com/alfredjeanlab/adverthide/internal/model"
)

// Default and max timeout for hook commands.
const (
	DefaultTimeout = 30 * time.Second
	MaxTimeout     = 300 * time.Second
)

// Result holds the output of running a single hook command.
type Result struct {
	Output string
	Err    error
}

// Execute runs command via "sh -c" with the given timeout, overlaying env on
// the process environment.
func Execute(ctx context.Context, command string, timeout time.Duration, env map[string]string) Result {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if timeout > MaxTimeout {
		timeout = MaxTimeout
	}

	hookCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(hookCtx, "sh", "-c", command) //nolint:gosec // command comes from operator config
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	cmd.Env = os.Environ()
	for k, v := range env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	err := cmd.Run()
	output := strings.TrimSpace(stdout.String())
	if output == "" {
		output = strings.TrimSpace(stderr.String())
	}
	return Result{Output: output, Err: err}
}

// DemotionHook is an events.Publisher that runs Command for every
// AccessDemoted event and ignores all other topics. Command failures are
// logged, never returned, so a broken hook cannot fail a tick.
type DemotionHook struct {
	Command string
	Timeout time.Duration
	Logger  *slog.Logger
}

var _ events.Publisher = (*DemotionHook)(nil)

// Env returns the variables a hook command sees for ev.
func Env(ev events.AccessDemoted) map[string]string {
	return map[string]string{
		"ADVERTHIDE_TICK_ID": ev.TickID,
		"ADVERTHIDE_IDS":     model.JoinIDs(ev.IDs),
		"ADVERTHIDE_FROM":    strconv.FormatInt(ev.From, 10),
		"ADVERTHIDE_TO":      strconv.FormatInt(ev.To, 10),
	}
}

func (h *DemotionHook) Publish(ctx context.Context, topic string, event any) error {
	if topic != events.TopicAccessDemoted {
		return nil
	}
	ev, err := asDemoted(event)
	if err != nil {
		return err
	}

	start := time.Now()
	res := Execute(ctx, h.Command, h.Timeout, Env(ev))
	if res.Err != nil {
		h.Logger.Error("demotion hook failed",
			"tick_id", ev.TickID, "output", res.Output, "err", res.Err)
		return nil
	}
	h.Logger.Info("demotion hook ran",
		"tick_id", ev.TickID, "duration", time.Since(start), "output", res.Output)
	return nil
}

func (h *DemotionHook) Close() error { return nil }

func asDemoted(event any) (events.AccessDemoted, error) {
	switch ev := event.(type) {
	case events.AccessDemoted:
		return ev, nil
	case *events.AccessDemoted:
		return *ev, nil
	}
	// Anything else is re-decoded through its JSON form.
	var ev events.AccessDemoted
	data, err := json.Marshal(event)
	if err == nil {
		err = json.Unmarshal(data, &ev)
	}
	if err != nil {
		return ev, fmt.Errorf("demotion hook: unexpected event %T: %w", event, err)
	}
	return ev, nil
}
