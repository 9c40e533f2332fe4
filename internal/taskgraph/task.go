package taskgraph

import (
	"context"
	"maps"

	"go.opentelemetry.io/otel/attribute"

	"github.com/kazz187/taskgraph/internal/event"
	"github.com/kazz187/taskgraph/internal/graph"
	"github.com/kazz187/taskgraph/internal/store"
	"github.com/kazz187/taskgraph/internal/task"
	"github.com/kazz187/taskgraph/internal/workflow"
	"github.com/kazz187/taskgraph/pkg/cerr"
	"github.com/kazz187/taskgraph/pkg/clog"
)

// CreateTask creates a top-level task or, when ParentID is set, a subtask,
// together with any initial dependencies. Checks run in the order existence,
// same project, cycle/deadlock, uniqueness; nothing is written on failure.
func (s *Service) CreateTask(ctx context.Context, actorID string, req CreateTaskRequest) (t *task.Task, err error) {
	ctx, end := s.begin(ctx, "CreateTask",
		attribute.String(clog.ActorIDKey, actorID),
		attribute.String(clog.ProjectIDKey, req.ProjectID),
		attribute.String("parent_id", req.ParentID),
	)
	defer func() { end(err) }()

	if err := validateRequest(req); err != nil {
		return nil, err
	}
	status := task.DefaultStatus
	if req.Status != "" {
		status = task.Status(req.Status)
	}

	_, err = s.mutate(ctx, req.ProjectID, actorID, func(ctx context.Context, tx store.Tx, rec *event.Recorder) error {
		if _, err := tx.Projects().Get(ctx, req.ProjectID); err != nil {
			return err
		}

		// existence
		var parent *task.Task
		if req.ParentID != "" {
			p, err := tx.Tasks().Get(ctx, req.ParentID)
			if err != nil {
				return err
			}
			parent = p
		}
		blockers, err := tx.Tasks().GetMany(ctx, req.BlockedBy)
		if err != nil {
			return err
		}
		dependents, err := tx.Tasks().GetMany(ctx, req.Blocks)
		if err != nil {
			return err
		}

		// same project
		if parent != nil && parent.ProjectID != req.ProjectID {
			return cerr.NewKindError(cerr.KindCrossProjectDependency, "parent task belongs to another project", map[string]string{
				"parent_id":  parent.ID,
				"project_id": req.ProjectID,
			})
		}
		for _, other := range append(append([]*task.Task{}, blockers...), dependents...) {
			if other.ProjectID != req.ProjectID {
				return cerr.NewKindError(cerr.KindCrossProjectDependency, "dependencies must stay within one project", map[string]string{
					"task_id":    other.ID,
					"project_id": req.ProjectID,
				})
			}
		}

		now := rec.Now()
		t = &task.Task{
			ID:          event.NewID(now),
			ProjectID:   req.ProjectID,
			ParentID:    req.ParentID,
			Title:       req.Title,
			Description: req.Description,
			Status:      status,
			OwnerID:     req.OwnerID,
			Metadata:    maps.Clone(req.Metadata),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := tx.Tasks().Create(ctx, t); err != nil {
			return err
		}
		meta := map[string]string{"status": string(t.Status)}
		if t.ParentID != "" {
			meta["parent_id"] = t.ParentID
		}
		rec.Record(t.ID, event.KindTaskCreated, "", t.Title, meta)

		// cycle/deadlock and uniqueness, edge by edge
		for _, b := range blockers {
			if err := s.addEdge(ctx, tx, rec, actorID, b, t); err != nil {
				return err
			}
		}
		for _, d := range dependents {
			if err := s.addEdge(ctx, tx, rec, actorID, t, d); err != nil {
				return err
			}
		}

		// status
		if t.Status == task.StatusDone {
			refs := make([]task.Ref, 0, len(blockers))
			for _, b := range blockers {
				refs = append(refs, b.Ref())
			}
			return workflow.CanTransition(t, task.StatusDone, workflow.GraphSnapshot{Blockers: refs})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// CreateSubtask creates a task under parentID. The project is taken from the
// parent when req.ProjectID is empty.
func (s *Service) CreateSubtask(ctx context.Context, actorID, parentID string, req CreateTaskRequest) (*task.Task, error) {
	if err := validateRequest(taskRequest{TaskID: parentID}); err != nil {
		return nil, err
	}
	projectID, err := s.projectOf(ctx, parentID)
	if err != nil {
		return nil, err
	}
	if req.ProjectID == "" {
		req.ProjectID = projectID
	}
	req.ParentID = parentID
	return s.CreateTask(ctx, actorID, req)
}

// UpdateTask changes title and/or description, one field_updated event per
// field that actually changed.
func (s *Service) UpdateTask(ctx context.Context, actorID string, req UpdateTaskRequest) (t *task.Task, err error) {
	ctx, end := s.begin(ctx, "UpdateTask", attribute.String(clog.ActorIDKey, actorID), attribute.String(clog.TaskIDKey, req.TaskID))
	defer func() { end(err) }()

	if err := validateRequest(req); err != nil {
		return nil, err
	}
	projectID, err := s.projectOf(ctx, req.TaskID)
	if err != nil {
		return nil, err
	}
	_, err = s.mutate(ctx, projectID, actorID, func(ctx context.Context, tx store.Tx, rec *event.Recorder) error {
		cur, err := tx.Tasks().Get(ctx, req.TaskID)
		if err != nil {
			return err
		}
		t = cur
		if req.Title != nil && *req.Title != t.Title {
			rec.Record(t.ID, event.KindFieldUpdated, t.Title, *req.Title, map[string]string{event.MetaField: "title"})
			t.Title = *req.Title
		}
		if req.Description != nil && *req.Description != t.Description {
			rec.Record(t.ID, event.KindFieldUpdated, t.Description, *req.Description, map[string]string{event.MetaField: "description"})
			t.Description = *req.Description
		}
		if rec.Len() == 0 {
			return nil
		}
		t.UpdatedAt = rec.Now()
		return tx.Tasks().Update(ctx, t)
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// AssignOwner sets or clears (ownerID == "") the owner of a task.
func (s *Service) AssignOwner(ctx context.Context, actorID, taskID, ownerID string) (t *task.Task, err error) {
	ctx, end := s.begin(ctx, "AssignOwner", attribute.String(clog.ActorIDKey, actorID), attribute.String(clog.TaskIDKey, taskID))
	defer func() { end(err) }()

	if err := validateRequest(ownerRequest{TaskID: taskID, OwnerID: ownerID}); err != nil {
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
		if t.OwnerID == ownerID {
			return nil
		}
		rec.Record(t.ID, event.KindOwnershipChanged, t.OwnerID, ownerID, nil)
		t.OwnerID = ownerID
		t.UpdatedAt = rec.Now()
		return tx.Tasks().Update(ctx, t)
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) AddComment(ctx context.Context, actorID, taskID, body string) (e *event.Event, err error) {
	ctx, end := s.begin(ctx, "AddComment", attribute.String(clog.ActorIDKey, actorID), attribute.String(clog.TaskIDKey, taskID))
	defer func() { end(err) }()

	if err := validateRequest(commentRequest{TaskID: taskID, Body: body}); err != nil {
		return nil, err
	}
	projectID, err := s.projectOf(ctx, taskID)
	if err != nil {
		return nil, err
	}
	events, err := s.mutate(ctx, projectID, actorID, func(ctx context.Context, tx store.Tx, rec *event.Recorder) error {
		if _, err := tx.Tasks().Get(ctx, taskID); err != nil {
			return err
		}
		rec.Record(taskID, event.KindCommentAdded, "", "", map[string]string{event.MetaBody: body})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events[0], nil
}

type DeleteResult struct {
	TaskID       string        `json:"task_id"`
	RemovedEdges []*graph.Edge `json:"removed_edges"`
	// Subtasks lists the direct subtasks whose parent changed.
	Subtasks []string `json:"subtasks"`
	// NewParentID is where the subtasks went; empty when they became top-level.
	NewParentID string `json:"new_parent_id,omitempty"`
}

// DeleteTask removes a task, every dependency edge touching it and its own
// events. Cascaded edges produce no events. Subtasks are handled according to
// the service's SubtaskPolicy and each receives a field_updated event.
func (s *Service) DeleteTask(ctx context.Context, actorID, taskID string) (res *DeleteResult, err error) {
	ctx, end := s.begin(ctx, "DeleteTask", attribute.String(clog.ActorIDKey, actorID), attribute.String(clog.TaskIDKey, taskID))
	defer func() { end(err) }()

	if err := validateRequest(taskRequest{TaskID: taskID}); err != nil {
		return nil, err
	}
	projectID, err := s.projectOf(ctx, taskID)
	if err != nil {
		return nil, err
	}
	_, err = s.mutate(ctx, projectID, actorID, func(ctx context.Context, tx store.Tx, rec *event.Recorder) error {
		t, err := tx.Tasks().Get(ctx, taskID)
		if err != nil {
			return err
		}
		res = &DeleteResult{TaskID: taskID}
		if s.policy == SubtaskPolicyReparent {
			res.NewParentID = t.ParentID
		}

		edges, err := tx.Graph().RemoveEdgesOf(ctx, taskID)
		if err != nil {
			return err
		}
		res.RemovedEdges = edges

		children, err := tx.Graph().Children(ctx, taskID)
		if err != nil {
			return err
		}
		for _, id := range children {
			child, err := tx.Tasks().Get(ctx, id)
			if err != nil {
				return err
			}
			child.ParentID = res.NewParentID
			child.UpdatedAt = rec.Now()
			if err := tx.Tasks().Update(ctx, child); err != nil {
				return err
			}
			rec.Record(child.ID, event.KindFieldUpdated, taskID, res.NewParentID, map[string]string{
				event.MetaField:     "parent_id",
				event.MetaOperation: "delete_parent",
			})
			res.Subtasks = append(res.Subtasks, child.ID)
		}

		if err := tx.Events().DeleteByTask(ctx, taskID); err != nil {
			return err
		}
		return tx.Tasks().Delete(ctx, taskID)
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "task deleted",
		"task_id", taskID,
		"removed_edges", len(res.RemovedEdges),
		"subtasks", len(res.Subtasks),
		"policy", string(s.policy),
	)
	return res, nil
}
