package view

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/taskgraph/internal/task"
)

type fixture struct {
	tasks map[string]*task.Task
	deps  [][2]string
}

func newFixture() *fixture {
	return &fixture{tasks: make(map[string]*task.Task)}
}

var epoch = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func (f *fixture) add(id string, status task.Status, parentID string, updated int) *task.Task {
	t := &task.Task{
		ID:        id,
		ProjectID: "p1",
		ParentID:  parentID,
		Title:     "task " + id,
		Status:    status,
		CreatedAt: epoch,
		UpdatedAt: epoch.Add(time.Duration(updated) * time.Minute),
	}
	f.tasks[id] = t
	return t
}

func (f *fixture) dep(blocking, blocked string) {
	f.deps = append(f.deps, [2]string{blocking, blocked})
}

func (f *fixture) Get(_ context.Context, id string) (*task.Task, error) {
	t, ok := f.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %s not found", id)
	}
	return t, nil
}

func (f *fixture) GetMany(ctx context.Context, ids []string) ([]*task.Task, error) {
	var out []*task.Task
	for _, id := range ids {
		t, err := f.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (f *fixture) ListByProject(_ context.Context, projectID string) ([]*task.Task, error) {
	var out []*task.Task
	for _, t := range f.tasks {
		if t.ProjectID == projectID {
			out = append(out, t)
		}
	}
	task.SortByID(out)
	return out, nil
}

func (f *fixture) Blockers(_ context.Context, id string) ([]string, error) {
	var out []string
	for _, d := range f.deps {
		if d[1] == id {
			out = append(out, d[0])
		}
	}
	sort.Strings(out)
	return out, nil
}

func (f *fixture) Blocked(_ context.Context, id string) ([]string, error) {
	var out []string
	for _, d := range f.deps {
		if d[0] == id {
			out = append(out, d[1])
		}
	}
	sort.Strings(out)
	return out, nil
}

func (f *fixture) Parent(_ context.Context, id string) (string, error) {
	return f.tasks[id].ParentID, nil
}

func (f *fixture) Children(_ context.Context, id string) ([]string, error) {
	var out []string
	for _, t := range f.tasks {
		if t.ParentID == id {
			out = append(out, t.ID)
		}
	}
	sort.Strings(out)
	return out, nil
}

func TestIsBlocked(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.add("A", task.StatusInProgress, "", 0)
	f.add("B", task.StatusTodo, "", 0)
	f.add("C", task.StatusBlocked, "", 0)
	f.dep("A", "B")

	blocked, err := IsBlocked(ctx, f, f, "B")
	require.NoError(t, err)
	assert.True(t, blocked)

	// The manual blocked status is independent of the computed flag.
	blocked, err = IsBlocked(ctx, f, f, "C")
	require.NoError(t, err)
	assert.False(t, blocked)

	f.tasks["A"].Status = task.StatusNotNeeded
	blocked, err = IsBlocked(ctx, f, f, "B")
	require.NoError(t, err)
	assert.True(t, blocked, "only done unblocks")

	f.tasks["A"].Status = task.StatusDone
	blocked, err = IsBlocked(ctx, f, f, "B")
	require.NoError(t, err)
	assert.False(t, blocked)
}

func TestComputeProgress(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		children []task.Status
		want     Progress
	}{
		{name: "no subtasks", want: Progress{}},
		{
			name:     "one of three done",
			children: []task.Status{task.StatusDone, task.StatusTodo, task.StatusInProgress},
			want:     Progress{Total: 3, Completed: 1, Percentage: float64(1) / float64(3) * 100},
		},
		{
			name:     "not_needed is not completed",
			children: []task.Status{task.StatusDone, task.StatusNotNeeded},
			want:     Progress{Total: 2, Completed: 1, Percentage: 50},
		},
		{
			name:     "all done",
			children: []task.Status{task.StatusDone, task.StatusDone, task.StatusDone, task.StatusDone},
			want:     Progress{Total: 4, Completed: 4, Percentage: 100},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.add("P", task.StatusInProgress, "", 0)
			for i, s := range tt.children {
				f.add(fmt.Sprintf("C%d", i), s, "P", 0)
			}
			got, err := ComputeProgress(ctx, f, f, "P")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestActionable(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.add("A", task.StatusDone, "", 1)
	f.add("B", task.StatusTodo, "", 2)       // blocked by C
	f.add("C", task.StatusInProgress, "", 3) // actionable
	f.add("D", task.StatusReview, "", 4)     // blocked only by A (done)
	f.add("E", task.StatusBacklog, "", 5)
	f.add("F", task.StatusBlocked, "", 6)
	f.add("G", task.StatusNotNeeded, "", 7)
	f.add("H", task.StatusTodo, "", 8)
	f.tasks["H"].OwnerID = "bob"
	f.dep("C", "B")
	f.dep("A", "D")

	got, err := Actionable(ctx, f, f, "p1", Filter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"H", "D", "C"}, ids(got))

	got, err = Actionable(ctx, f, f, "p1", Filter{Sort: SortUpdatedAsc, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "D"}, ids(got))

	got, err = Actionable(ctx, f, f, "p1", Filter{OwnerID: "bob"})
	require.NoError(t, err)
	assert.Equal(t, []string{"H"}, ids(got))

	f.tasks["C"].Status = task.StatusDone
	got, err = Actionable(ctx, f, f, "p1", Filter{Sort: SortTitleAsc})
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "D", "H"}, ids(got))
}

func TestGet(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.add("P", task.StatusInProgress, "", 0)
	f.add("C1", task.StatusDone, "P", 0)
	f.add("C2", task.StatusTodo, "P", 0)
	f.add("X", task.StatusTodo, "", 0)
	f.add("Y", task.StatusTodo, "", 0)
	f.dep("X", "P")
	f.dep("P", "Y")

	v, err := Get(ctx, f, f, "P")
	require.NoError(t, err)
	assert.True(t, v.IsBlocked)
	assert.Equal(t, []task.Ref{{ID: "X", Status: task.StatusTodo}}, v.Blockers)
	assert.Equal(t, []task.Ref{{ID: "Y", Status: task.StatusTodo}}, v.Blocked)
	assert.Len(t, v.Children, 2)
	assert.Equal(t, Progress{Total: 2, Completed: 1, Percentage: 50}, v.Progress)
}

func TestParseSortOrder(t *testing.T) {
	o, err := ParseSortOrder("")
	require.NoError(t, err)
	assert.Equal(t, SortUpdatedDesc, o)

	_, err = ParseSortOrder("random")
	assert.Error(t, err)
}

func ids(ts []*task.Task) []string {
	out := make([]string, 0, len(ts))
	for _, t := range ts {
		out = append(out, t.ID)
	}
	return out
}
