package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/alfredjeanlab/adverthide/internal/events"
	"github.com/alfredjeanlab/adverthide/internal/model"
	"github.com/alfredjeanlab/adverthide/internal/ui"
	"github.com/alfredjeanlab/adverthide/internal/updater"
)

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

// renderOutcome colors an outcome by whether it needs attention.
func renderOutcome(o updater.Outcome) string {
	switch o {
	case updater.OutcomeUpdated:
		return ui.RenderOK(string(o))
	case updater.OutcomeNoCandidates, updater.OutcomeNotDue, updater.OutcomeNotAdmin, updater.OutcomeBusy:
		return ui.RenderMuted(string(o))
	}
	return ui.RenderError(string(o))
}

func printResult(res *updater.Result) {
	writeResult(os.Stdout, res)
}

func writeResult(w io.Writer, res *updater.Result) {
	fmt.Fprintf(w, "Tick:       %s\n", res.TickID)
	fmt.Fprintf(w, "Outcome:    %s\n", renderOutcome(res.Outcome))
	fmt.Fprintf(w, "Time:       %s\n", res.Now.Format("2006-01-02 15:04:05"))
	if len(res.Candidates) > 0 {
		fmt.Fprintf(w, "Candidates: %s\n", model.JoinIDs(res.Candidates))
	}
	if len(res.Updated) > 0 {
		fmt.Fprintf(w, "Updated:    %s (%d rows)\n", model.JoinIDs(res.Updated), res.Affected)
	}
	if res.Outcome.Ran() {
		persisted := ui.RenderOK("yes")
		if !res.Persisted {
			persisted = ui.RenderWarn("no")
		}
		fmt.Fprintf(w, "Persisted:  %s\n", persisted)
	}
	for _, n := range res.Notices {
		mark := ui.RenderAccent("i")
		if n.Level == events.LevelError {
			mark = ui.RenderError("✗")
		}
		fmt.Fprintf(w, "  %s %s\n", mark, n.Message)
	}
}

func printStatus(st *updater.Status) {
	writeStatus(os.Stdout, st, time.Now())
}

// writeStatus renders st with run times relative to now.
func writeStatus(w io.Writer, st *updater.Status, now time.Time) {
	s := st.Settings
	when := func(t time.Time) string {
		return t.Format("2006-01-02 15:04:05") + " " +
			ui.RenderMuted("("+humanize.RelTime(t, now, "ago", "from now")+")")
	}
	lastRun := "never"
	if st.LastRun != nil {
		lastRun = when(*st.LastRun)
	}
	due := ui.RenderMuted("no")
	if st.Due {
		due = ui.RenderAccent("yes")
	}
	categories := "all"
	if len(s.Categories) > 0 {
		categories = model.JoinIDs(s.Categories)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Plugin:\t%s/%s\n", st.Folder, st.Element)
	fmt.Fprintf(tw, "Last run:\t%s\n", lastRun)
	fmt.Fprintf(tw, "Next run:\t%s\n", when(st.NextRun))
	fmt.Fprintf(tw, "Due:\t%s\n", due)
	fmt.Fprintf(tw, "Interval:\t%s\n", s.Interval())
	fmt.Fprintf(tw, "Batch size:\t%d\n", s.BatchSize)
	fmt.Fprintf(tw, "Categories:\t%s\n", categories)
	fmt.Fprintf(tw, "Groups:\t%d -> %d\n", s.PublicGroup, s.RegisteredGroup)
	fmt.Fprintf(tw, "Admin only:\t%t\n", s.AdminOnly)
	tw.Flush()

	if len(st.Problems) > 0 {
		fmt.Fprintln(w, ui.RenderWarn("Problems:"))
		fmt.Fprintln(w, "  "+strings.Join(st.Problems, "\n  "))
	}
}

func printFields(infos []fieldInfo) {
	writeFields(os.Stdout, infos)
}

func writeFields(w io.Writer, infos []fieldInfo) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FIELD\tID")
	for _, f := range infos {
		id := ui.RenderError("missing")
		if f.Found {
			id = fmt.Sprint(f.ID)
		}
		fmt.Fprintf(tw, "%s\t%s\n", f.Name, id)
	}
	tw.Flush()
}
