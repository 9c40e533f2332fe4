package taskgraph

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/kazz187/taskgraph/internal/event"
	"github.com/kazz187/taskgraph/internal/store"
	"github.com/kazz187/taskgraph/internal/task"
	"github.com/kazz187/taskgraph/internal/view"
	"github.com/kazz187/taskgraph/internal/workflow"
	"github.com/kazz187/taskgraph/pkg/clog"
)

// ChangeStatus moves a task to target. Entering done requires every blocker
// to be done (BlockedByDependency) and every direct subtask to be done or
// not_needed (IncompleteSubtasks). Requesting the current status is a no-op.
func (s *Service) ChangeStatus(ctx context.Context, actorID, taskID string, target task.Status) (t *task.Task, err error) {
	ctx, end := s.begin(ctx, "ChangeStatus",
		attribute.String(clog.ActorIDKey, actorID),
		attribute.String(clog.TaskIDKey, taskID),
		attribute.String("status", string(target)),
	)
	defer func() { end(err) }()

	if err := validateRequest(statusRequest{TaskID: taskID, Status: string(target)}); err != nil {
		return nil, err
	}
	projectID, err := s.projectOf(ctx, taskID)
	if err != nil {
		return nil, err
	}
	_, err = s.mutate(ctx, projectID, actorID, func(ctx context.Context, tx store.Tx, rec *event.Recorder) error {
		cur, err := tx.Tasks().Get(ctx, taskID)
		if err != nil {
			return err
		}
		t = cur
		if t.Status == target {
			return nil
		}

		var snap workflow.GraphSnapshot
		if target == task.StatusDone {
			if snap.Blockers, err = view.BlockerRefs(ctx, tx.Tasks(), tx.Graph(), taskID); err != nil {
				return err
			}
			if snap.Children, err = view.ChildRefs(ctx, tx.Tasks(), tx.Graph(), taskID); err != nil {
				return err
			}
		}
		if err := workflow.CanTransition(t, target, snap); err != nil {
			return err
		}

		rec.Record(t.ID, event.KindStatusChange, string(t.Status), string(target), nil)
		t.Status = target
		t.UpdatedAt = rec.Now()
		return tx.Tasks().Update(ctx, t)
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}
