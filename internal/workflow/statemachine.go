package workflow

import (
	"fmt"

	"github.com/kazz187/taskgraph/internal/task"
	"github.com/kazz187/taskgraph/pkg/cerr"
)

// CanTransition decides whether t may move to target given snap. Every status
// may be entered from every other status except done, which requires all
// blockers to be done and all direct children to be done or not_needed.
// Blockers are checked first.
func CanTransition(t *task.Task, target task.Status, snap GraphSnapshot) error {
	if !target.Valid() {
		return cerr.InvalidArgumentError(fmt.Sprintf("unknown status %q", target), map[string]string{
			"task_id": t.ID,
			"status":  string(target),
		})
	}
	if target != task.StatusDone {
		return nil
	}

	if open := Unsatisfied(snap.Blockers, task.Status.SatisfiesDependent); len(open) > 0 {
		return cerr.NewKindError(cerr.KindBlockedByDependency,
			fmt.Sprintf("task is blocked by %d unfinished task(s)", len(open)),
			map[string]string{
				"task_id":     t.ID,
				"blocker_ids": cerr.JoinIDs(open),
			})
	}
	if open := Unsatisfied(snap.Children, task.Status.SatisfiesParent); len(open) > 0 {
		return cerr.NewKindError(cerr.KindIncompleteSubtasks,
			fmt.Sprintf("task has %d incomplete subtask(s)", len(open)),
			map[string]string{
				"task_id":     t.ID,
				"subtask_ids": cerr.JoinIDs(open),
			})
	}
	return nil
}

// Unsatisfied returns the ids of refs whose status does not pass ok, in input order.
func Unsatisfied(refs []task.Ref, ok func(task.Status) bool) []string {
	var out []string
	for _, r := range refs {
		if !ok(r.Status) {
			out = append(out, r.ID)
		}
	}
	return out
}
