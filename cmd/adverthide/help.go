package main

import (
	"bytes"
	"io"
	"regexp"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/adverthide/internal/ui"
)

// Patterns over cobra's default usage text.
var (
	// Section headers such as "Updater:" and "Flags:".
	reGroupHeader = regexp.MustCompile(`(?m)^([A-Z][^\n]*:)[ \t]*$`)
	// Command rows: two-space indent, name, then the padded description.
	reCommand  = regexp.MustCompile(`(?m)^(  )(\S+)(  )`)
	reFlagType = regexp.MustCompile(`(--?\S+\s+)(string|int64Slice|int64|int|duration)`)
	reDefault  = regexp.MustCompile(`\(default "[^"]*"\)`)
)

// helpRule restyles one capture group of every match of re.
type helpRule struct {
	re     *regexp.Regexp
	group  int
	render func(string) string
}

var helpRules = []helpRule{
	{reGroupHeader, 1, ui.RenderAccent},
	{reCommand, 2, ui.RenderCommand},
	{reFlagType, 2, ui.RenderMuted},
	{reDefault, 0, ui.RenderMuted},
}

// colorizedHelpFunc renders cobra's usage text and styles it when color is
// enabled.
func colorizedHelpFunc() func(*cobra.Command, []string) {
	return func(cmd *cobra.Command, _ []string) {
		if !ui.ShouldUseColor() {
			_ = cmd.Usage()
			return
		}
		out := cmd.OutOrStdout()
		var buf bytes.Buffer
		cmd.SetOut(&buf)
		_ = cmd.Usage()
		cmd.SetOut(out)
		_, _ = io.WriteString(out, colorizeHelpOutput(buf.String()))
	}
}

func colorizeHelpOutput(s string) string {
	for _, r := range helpRules {
		s = restyle(s, r)
	}
	return s
}

// restyle replaces the rule's capture group in each match, leaving the rest
// of the match untouched.
func restyle(s string, r helpRule) string {
	var b bytes.Buffer
	last := 0
	for _, m := range r.re.FindAllStringSubmatchIndex(s, -1) {
		start, end := m[2*r.group], m[2*r.group+1]
		if start < 0 {
			continue
		}
		b.WriteString(s[last:start])
		b.WriteString(r.render(s[start:end]))
		last = end
	}
	b.WriteString(s[last:])
	return b.String()
}
