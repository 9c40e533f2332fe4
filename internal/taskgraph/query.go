package taskgraph

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/kazz187/taskgraph/internal/event"
	"github.com/kazz187/taskgraph/internal/graph"
	"github.com/kazz187/taskgraph/internal/store"
	"github.com/kazz187/taskgraph/internal/task"
	"github.com/kazz187/taskgraph/internal/view"
	"github.com/kazz187/taskgraph/pkg/clog"
)

// GetTaskWithDerivedView returns a task with is_blocked, progress and its
// immediate neighbourhood, all computed from one snapshot.
func (s *Service) GetTaskWithDerivedView(ctx context.Context, taskID string) (v *view.TaskView, err error) {
	ctx, end := s.begin(ctx, "GetTaskWithDerivedView", attribute.String(clog.TaskIDKey, taskID))
	defer func() { end(err) }()

	if err := validateRequest(taskRequest{TaskID: taskID}); err != nil {
		return nil, err
	}
	err = s.store.View(ctx, func(ctx context.Context, tx store.Tx) error {
		v, err = view.Get(ctx, tx.Tasks(), tx.Graph(), taskID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (s *Service) ListActionable(ctx context.Context, projectID string, f view.Filter) (ts []*task.Task, err error) {
	ctx, end := s.begin(ctx, "ListActionable", attribute.String(clog.ProjectIDKey, projectID))
	defer func() { end(err) }()

	if err := validateRequest(projectRequest{ProjectID: projectID}); err != nil {
		return nil, err
	}
	err = s.store.View(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.Projects().Get(ctx, projectID); err != nil {
			return err
		}
		ts, err = view.Actionable(ctx, tx.Tasks(), tx.Graph(), projectID, f)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ts, nil
}

// ListEvents returns the events of a task ordered by (created_at, id).
func (s *Service) ListEvents(ctx context.Context, taskID string, f event.Filter) (events []*event.Event, err error) {
	ctx, end := s.begin(ctx, "ListEvents", attribute.String(clog.TaskIDKey, taskID))
	defer func() { end(err) }()

	if err := validateRequest(taskRequest{TaskID: taskID}); err != nil {
		return nil, err
	}
	err = s.store.View(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.Tasks().Get(ctx, taskID); err != nil {
			return err
		}
		events, err = tx.Events().ListByTask(ctx, taskID, f)
		return err
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// Report is the outcome of a whole-project integrity check.
type Report struct {
	ProjectID string   `json:"project_id"`
	Tasks     int      `json:"tasks"`
	Edges     int      `json:"edges"`
	Cycle     []string `json:"cycle,omitempty"`
	// Deadlocks lists edges that connect a task with one of its ancestors.
	Deadlocks []*graph.Edge `json:"deadlocks,omitempty"`
}

func (r *Report) OK() bool {
	return len(r.Cycle) == 0 && len(r.Deadlocks) == 0
}

// VerifyProject re-checks the stored graph of a project: dependency edges
// must be acyclic and no edge may join a task with its ancestor.
func (s *Service) VerifyProject(ctx context.Context, projectID string) (r *Report, err error) {
	ctx, end := s.begin(ctx, "VerifyProject", attribute.String(clog.ProjectIDKey, projectID))
	defer func() { end(err) }()

	if err := validateRequest(projectRequest{ProjectID: projectID}); err != nil {
		return nil, err
	}
	r = &Report{ProjectID: projectID}
	err = s.store.View(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.Projects().Get(ctx, projectID); err != nil {
			return err
		}
		ts, err := tx.Tasks().ListByProject(ctx, projectID)
		if err != nil {
			return err
		}
		edges, err := tx.Graph().ListByProject(ctx, projectID)
		if err != nil {
			return err
		}
		r.Tasks, r.Edges = len(ts), len(edges)
		r.Cycle = graph.NewAdjacency(edges).DetectCycle()
		for _, e := range edges {
			up, err := graph.IsAncestor(ctx, tx.Graph(), e.BlockingID, e.BlockedID)
			if err != nil {
				return err
			}
			down, err := graph.IsAncestor(ctx, tx.Graph(), e.BlockedID, e.BlockingID)
			if err != nil {
				return err
			}
			if up || down {
				r.Deadlocks = append(r.Deadlocks, e)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}
