package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/kazz187/taskgraph/internal/event"
	"github.com/kazz187/taskgraph/internal/task"
	"github.com/kazz187/taskgraph/internal/taskgraph"
	"github.com/kazz187/taskgraph/internal/view"
)

type printer struct {
	w      io.Writer
	json   bool
	id     *color.Color
	label  *color.Color
	ok     *color.Color
	warn   *color.Color
	bad    *color.Color
	dimmed *color.Color
}

func newPrinter(w io.Writer, asJSON, noColor bool) *printer {
	if noColor {
		color.NoColor = true
	}
	return &printer{
		w:      w,
		json:   asJSON,
		id:     color.New(color.FgCyan),
		label:  color.New(color.Bold),
		ok:     color.New(color.FgGreen),
		warn:   color.New(color.FgYellow),
		bad:    color.New(color.FgRed, color.Bold),
		dimmed: color.New(color.FgHiBlack),
	}
}

func (p *printer) writeJSON(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (p *printer) status(s task.Status) string {
	switch s {
	case task.StatusDone:
		return p.ok.Sprint(s)
	case task.StatusNotNeeded, task.StatusBacklog:
		return p.dimmed.Sprint(s)
	case task.StatusBlocked:
		return p.bad.Sprint(s)
	case task.StatusInProgress, task.StatusReview:
		return p.warn.Sprint(s)
	}
	return s.String()
}

func (p *printer) refs(title string, refs []task.Ref) {
	fmt.Fprintf(p.w, "%s (%d)\n", p.label.Sprint(title), len(refs))
	for _, r := range refs {
		fmt.Fprintf(p.w, "  %s  %s\n", p.id.Sprint(r.ID), p.status(r.Status))
	}
}

func (p *printer) taskView(v *view.TaskView) error {
	if p.json {
		return p.writeJSON(v)
	}
	t := v.Task
	fmt.Fprintf(p.w, "%s %s\n", p.id.Sprint(t.ID), p.label.Sprint(t.Title))
	fmt.Fprintf(p.w, "  project:  %s\n", t.ProjectID)
	if t.ParentID != "" {
		fmt.Fprintf(p.w, "  parent:   %s\n", t.ParentID)
	}
	fmt.Fprintf(p.w, "  status:   %s\n", p.status(t.Status))
	if t.OwnerID != "" {
		fmt.Fprintf(p.w, "  owner:    %s\n", t.OwnerID)
	}
	blocked := p.ok.Sprint("no")
	if v.IsBlocked {
		blocked = p.bad.Sprint("yes")
	}
	fmt.Fprintf(p.w, "  blocked:  %s\n", blocked)
	fmt.Fprintf(p.w, "  progress: %d/%d (%.1f%%)\n", v.Progress.Completed, v.Progress.Total, v.Progress.Percentage)
	fmt.Fprintf(p.w, "  updated:  %s\n", t.UpdatedAt.Format(time.RFC3339))
	p.refs("blocked by", v.Blockers)
	p.refs("blocks", v.Blocked)
	p.refs("subtasks", v.Children)
	return nil
}

func (p *printer) tasks(ts []*task.Task) error {
	if p.json {
		return p.writeJSON(ts)
	}
	for _, t := range ts {
		owner := ""
		if t.OwnerID != "" {
			owner = p.dimmed.Sprintf(" @%s", t.OwnerID)
		}
		fmt.Fprintf(p.w, "%s  %-11s  %s%s\n", p.id.Sprint(t.ID), p.status(t.Status), t.Title, owner)
	}
	return nil
}

func (p *printer) events(events []*event.Event) error {
	if p.json {
		return p.writeJSON(events)
	}
	for _, e := range events {
		actor := e.ActorID
		if e.IsSystem() {
			actor = "system"
		}
		var detail []string
		if e.OldValue != "" || e.NewValue != "" {
			detail = append(detail, fmt.Sprintf("%q -> %q", e.OldValue, e.NewValue))
		}
		for _, k := range []string{event.MetaField, event.MetaBlockingID, event.MetaBlockedID, event.MetaBody} {
			if v, ok := e.Metadata[k]; ok {
				detail = append(detail, k+"="+v)
			}
		}
		fmt.Fprintf(p.w, "%s  %s  %-18s %s  %s\n",
			p.dimmed.Sprint(e.CreatedAt.Format(time.RFC3339)),
			p.id.Sprint(e.TaskID),
			p.label.Sprint(e.Kind),
			actor,
			strings.Join(detail, " "),
		)
	}
	return nil
}

func (p *printer) reports(reports []*taskgraph.Report) error {
	if p.json {
		return p.writeJSON(reports)
	}
	for _, r := range reports {
		result := p.ok.Sprint("OK")
		if !r.OK() {
			result = p.bad.Sprint("FAILED")
		}
		fmt.Fprintf(p.w, "%s  %s  tasks=%d edges=%d\n", p.id.Sprint(r.ProjectID), result, r.Tasks, r.Edges)
		if len(r.Cycle) > 0 {
			fmt.Fprintf(p.w, "  cycle: %s\n", strings.Join(r.Cycle, " -> "))
		}
		for _, e := range r.Deadlocks {
			fmt.Fprintf(p.w, "  deadlock: %s blocks %s\n", e.BlockingID, e.BlockedID)
		}
	}
	return nil
}

func (p *printer) days(days []time.Time) error {
	if p.json {
		out := make([]string, 0, len(days))
		for _, d := range days {
			out = append(out, d.Format(time.DateOnly))
		}
		return p.writeJSON(out)
	}
	for _, d := range days {
		fmt.Fprintln(p.w, d.Format(time.DateOnly))
	}
	return nil
}
