package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/taskgraph/internal/task"
	"github.com/kazz187/taskgraph/pkg/cerr"
)

func ref(id string, s task.Status) task.Ref {
	return task.Ref{ID: id, Status: s}
}

func TestCanTransition(t *testing.T) {
	subject := &task.Task{ID: "T", Status: task.StatusInProgress}

	tests := []struct {
		name     string
		target   task.Status
		snap     GraphSnapshot
		wantKind cerr.Kind
		wantIDs  map[string]string
	}{
		{
			name:   "done with nothing attached",
			target: task.StatusDone,
		},
		{
			name:   "done with finished blockers and children",
			target: task.StatusDone,
			snap: GraphSnapshot{
				Blockers: []task.Ref{ref("B1", task.StatusDone)},
				Children: []task.Ref{ref("C1", task.StatusDone), ref("C2", task.StatusNotNeeded)},
			},
		},
		{
			name:   "blocker not done",
			target: task.StatusDone,
			snap: GraphSnapshot{
				Blockers: []task.Ref{ref("B1", task.StatusDone), ref("B2", task.StatusReview)},
			},
			wantKind: cerr.KindBlockedByDependency,
			wantIDs:  map[string]string{"blocker_ids": "B2"},
		},
		{
			name:   "not_needed blocker still blocks",
			target: task.StatusDone,
			snap: GraphSnapshot{
				Blockers: []task.Ref{ref("B1", task.StatusNotNeeded)},
			},
			wantKind: cerr.KindBlockedByDependency,
		},
		{
			name:   "open subtask",
			target: task.StatusDone,
			snap: GraphSnapshot{
				Children: []task.Ref{ref("C1", task.StatusDone), ref("C2", task.StatusTodo), ref("C3", task.StatusBlocked)},
			},
			wantKind: cerr.KindIncompleteSubtasks,
			wantIDs:  map[string]string{"subtask_ids": "C2,C3"},
		},
		{
			name:   "blockers are reported before subtasks",
			target: task.StatusDone,
			snap: GraphSnapshot{
				Blockers: []task.Ref{ref("B1", task.StatusTodo)},
				Children: []task.Ref{ref("C1", task.StatusTodo)},
			},
			wantKind: cerr.KindBlockedByDependency,
		},
		{
			name:   "non-done targets are unguarded",
			target: task.StatusReview,
			snap: GraphSnapshot{
				Blockers: []task.Ref{ref("B1", task.StatusTodo)},
				Children: []task.Ref{ref("C1", task.StatusTodo)},
			},
		},
		{
			name:   "not_needed ignores open subtasks",
			target: task.StatusNotNeeded,
			snap: GraphSnapshot{
				Children: []task.Ref{ref("C1", task.StatusTodo)},
			},
		},
		{
			name:     "unknown status",
			target:   task.Status("archived"),
			wantKind: cerr.KindInvalidArgument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CanTransition(subject, tt.target, tt.snap)
			if tt.wantKind == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, cerr.KindOf(err))
			var cErr *cerr.Error
			require.ErrorAs(t, err, &cErr)
			for k, v := range tt.wantIDs {
				assert.Equal(t, v, cErr.Field(k))
			}
		})
	}
}

func TestCanTransition_ReopenIsAllowed(t *testing.T) {
	done := &task.Task{ID: "T", Status: task.StatusDone}
	for _, s := range task.Statuses() {
		if s == task.StatusDone {
			continue
		}
		assert.NoError(t, CanTransition(done, s, GraphSnapshot{}), s)
	}
}

func TestDefinition(t *testing.T) {
	defs := Definition()
	require.Len(t, defs, 7)
	assert.Equal(t, task.StatusBacklog, defs[0].Status)

	var initial, guarded []task.Status
	for _, d := range defs {
		if d.IsInitial {
			initial = append(initial, d.Status)
		}
		if d.Guarded {
			guarded = append(guarded, d.Status)
		}
	}
	assert.Equal(t, []task.Status{task.StatusTodo}, initial)
	assert.Equal(t, []task.Status{task.StatusDone}, guarded)
}
