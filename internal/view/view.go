// Package view computes the read-time properties of tasks: blocked state,
// subtask progress and the actionable list. Nothing here is persisted.
package view

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/kazz187/taskgraph/internal/graph"
	"github.com/kazz187/taskgraph/internal/task"
)

// Progress summarizes the direct subtasks of a task. Only done subtasks count
// as completed.
type Progress struct {
	Total      int     `json:"total"`
	Completed  int     `json:"completed"`
	Percentage float64 `json:"percentage"`
}

func NewProgress(completed, total int) Progress {
	p := Progress{Total: total, Completed: completed}
	if total > 0 {
		p.Percentage = float64(completed) / float64(total) * 100
	}
	return p
}

// TaskView is a task with its derived properties and immediate neighbourhood.
type TaskView struct {
	Task      *task.Task `json:"task"`
	IsBlocked bool       `json:"is_blocked"`
	Blockers  []task.Ref `json:"blockers"`
	Blocked   []task.Ref `json:"blocked"`
	Children  []task.Ref `json:"children"`
	Progress  Progress   `json:"progress"`
}

// Tasks is the subset of task.Repository the calculator reads from.
type Tasks interface {
	Get(ctx context.Context, id string) (*task.Task, error)
	GetMany(ctx context.Context, ids []string) ([]*task.Task, error)
	ListByProject(ctx context.Context, projectID string) ([]*task.Task, error)
}

func refs(ctx context.Context, tasks Tasks, ids []string) ([]task.Ref, error) {
	ts, err := tasks.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]task.Ref, 0, len(ts))
	for _, t := range ts {
		out = append(out, t.Ref())
	}
	return out, nil
}

// BlockerRefs returns the id and status of every task blocking taskID.
func BlockerRefs(ctx context.Context, tasks Tasks, g graph.Reader, taskID string) ([]task.Ref, error) {
	ids, err := g.Blockers(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return refs(ctx, tasks, ids)
}

// ChildRefs returns the id and status of every direct subtask of taskID.
func ChildRefs(ctx context.Context, tasks Tasks, g graph.Reader, taskID string) ([]task.Ref, error) {
	ids, err := g.Children(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return refs(ctx, tasks, ids)
}

// IsBlocked reports whether some blocker of taskID is not done. The manual
// blocked status plays no part.
func IsBlocked(ctx context.Context, tasks Tasks, g graph.Reader, taskID string) (bool, error) {
	blockers, err := BlockerRefs(ctx, tasks, g, taskID)
	if err != nil {
		return false, err
	}
	return anyBlocking(blockers), nil
}

func anyBlocking(blockers []task.Ref) bool {
	for _, b := range blockers {
		if !b.Status.SatisfiesDependent() {
			return true
		}
	}
	return false
}

func ComputeProgress(ctx context.Context, tasks Tasks, g graph.Reader, taskID string) (Progress, error) {
	children, err := ChildRefs(ctx, tasks, g, taskID)
	if err != nil {
		return Progress{}, err
	}
	return progressOf(children), nil
}

func progressOf(children []task.Ref) Progress {
	completed := 0
	for _, c := range children {
		if c.Status == task.StatusDone {
			completed++
		}
	}
	return NewProgress(completed, len(children))
}

func Get(ctx context.Context, tasks Tasks, g graph.Reader, taskID string) (*TaskView, error) {
	t, err := tasks.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	blockers, err := BlockerRefs(ctx, tasks, g, taskID)
	if err != nil {
		return nil, err
	}
	blockedIDs, err := g.Blocked(ctx, taskID)
	if err != nil {
		return nil, err
	}
	blocked, err := refs(ctx, tasks, blockedIDs)
	if err != nil {
		return nil, err
	}
	children, err := ChildRefs(ctx, tasks, g, taskID)
	if err != nil {
		return nil, err
	}
	return &TaskView{
		Task:      t,
		IsBlocked: anyBlocking(blockers),
		Blockers:  blockers,
		Blocked:   blocked,
		Children:  children,
		Progress:  progressOf(children),
	}, nil
}

type SortOrder string

const (
	SortUpdatedDesc SortOrder = "updated_desc"
	SortUpdatedAsc  SortOrder = "updated_asc"
	SortCreatedAsc  SortOrder = "created_asc"
	SortCreatedDesc SortOrder = "created_desc"
	SortTitleAsc    SortOrder = "title_asc"
)

func ParseSortOrder(s string) (SortOrder, error) {
	switch o := SortOrder(s); o {
	case "":
		return SortUpdatedDesc, nil
	case SortUpdatedDesc, SortUpdatedAsc, SortCreatedAsc, SortCreatedDesc, SortTitleAsc:
		return o, nil
	}
	return "", fmt.Errorf("unknown sort order %q", s)
}

// Filter narrows the actionable list. The zero value sorts by most recently
// updated and returns every match.
type Filter struct {
	OwnerID string
	Sort    SortOrder
	Limit   int
}

// Actionable returns the tasks of projectID that are open work and not
// blocked by any unfinished dependency.
func Actionable(ctx context.Context, tasks Tasks, g graph.Reader, projectID string, f Filter) ([]*task.Task, error) {
	all, err := tasks.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*task.Task, len(all))
	for _, t := range all {
		byID[t.ID] = t
	}

	var out []*task.Task
	for _, t := range all {
		if !t.Status.IsOpenWork() {
			continue
		}
		if f.OwnerID != "" && t.OwnerID != f.OwnerID {
			continue
		}
		blockerIDs, err := g.Blockers(ctx, t.ID)
		if err != nil {
			return nil, err
		}
		blocked := false
		for _, id := range blockerIDs {
			b, ok := byID[id]
			if !ok || !b.Status.SatisfiesDependent() {
				blocked = true
				break
			}
		}
		if !blocked {
			out = append(out, t)
		}
	}

	sortTasks(out, f.Sort)
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func sortTasks(ts []*task.Task, order SortOrder) {
	var less func(a, b *task.Task) int
	switch order {
	case SortUpdatedAsc:
		less = func(a, b *task.Task) int { return a.UpdatedAt.Compare(b.UpdatedAt) }
	case SortCreatedAsc:
		less = func(a, b *task.Task) int { return a.CreatedAt.Compare(b.CreatedAt) }
	case SortCreatedDesc:
		less = func(a, b *task.Task) int { return b.CreatedAt.Compare(a.CreatedAt) }
	case SortTitleAsc:
		less = func(a, b *task.Task) int { return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title)) }
	default:
		less = func(a, b *task.Task) int { return b.UpdatedAt.Compare(a.UpdatedAt) }
	}
	slices.SortStableFunc(ts, func(a, b *task.Task) int {
		if c := less(a, b); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
