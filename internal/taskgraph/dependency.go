package taskgraph

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/kazz187/taskgraph/internal/event"
	"github.com/kazz187/taskgraph/internal/graph"
	"github.com/kazz187/taskgraph/internal/store"
	"github.com/kazz187/taskgraph/internal/task"
	"github.com/kazz187/taskgraph/pkg/cerr"
	"github.com/kazz187/taskgraph/pkg/clog"
)

// AddDependency records that blockingID must be done before blockedID can be
// done. The edge is rejected with SelfDependency, CrossProjectDependency,
// ParentSubtaskDeadlock, CircularDependency or DuplicateDependency, in that
// order of precedence, after both tasks are confirmed to exist.
func (s *Service) AddDependency(ctx context.Context, actorID, blockingID, blockedID string) (edge *graph.Edge, err error) {
	ctx, end := s.begin(ctx, "AddDependency",
		attribute.String(clog.ActorIDKey, actorID),
		attribute.String("blocking_id", blockingID),
		attribute.String("blocked_id", blockedID),
	)
	defer func() { end(err) }()

	if err := validateRequest(dependencyRequest{BlockingID: blockingID, BlockedID: blockedID}); err != nil {
		return nil, err
	}
	projectID, err := s.projectOf(ctx, blockedID)
	if err != nil {
		return nil, err
	}
	_, err = s.mutate(ctx, projectID, actorID, func(ctx context.Context, tx store.Tx, rec *event.Recorder) error {
		blocking, err := tx.Tasks().Get(ctx, blockingID)
		if err != nil {
			return err
		}
		blocked, err := tx.Tasks().Get(ctx, blockedID)
		if err != nil {
			return err
		}
		if err := s.addEdge(ctx, tx, rec, actorID, blocking, blocked); err != nil {
			return err
		}
		edge, err = tx.Graph().GetDependencyEdge(ctx, blockingID, blockedID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return edge, nil
}

// addEdge validates and persists one edge inside an open transaction and
// records dependency_added on the blocked task.
func (s *Service) addEdge(ctx context.Context, tx store.Tx, rec *event.Recorder, actorID string, blocking, blocked *task.Task) error {
	res, err := graph.ValidateDependency(ctx, tx.Graph(), blocking, blocked)
	validatorVisited.Observe(float64(res.Visited))
	if err != nil {
		return err
	}
	dup, err := tx.Graph().HasDependencyEdge(ctx, blocking.ID, blocked.ID)
	if err != nil {
		return err
	}
	if dup {
		return cerr.NewKindError(cerr.KindDuplicateDependency, "dependency already exists", map[string]string{
			"blocking_id": blocking.ID,
			"blocked_id":  blocked.ID,
		})
	}
	e := &graph.Edge{
		BlockingID: blocking.ID,
		BlockedID:  blocked.ID,
		ProjectID:  blocked.ProjectID,
		CreatedBy:  actorID,
		CreatedAt:  rec.Now(),
	}
	if err := tx.Graph().AddDependencyEdge(ctx, e); err != nil {
		return err
	}
	rec.Record(blocked.ID, event.KindDependencyAdded, "", blocking.ID, map[string]string{
		event.MetaBlockingID: blocking.ID,
		event.MetaBlockedID:  blocked.ID,
	})
	return nil
}

// RemoveDependency deletes the edge blockingID -> blockedID. Removing an edge
// that does not exist fails with NotFound every time. A manual blocked status
// on either task is left untouched.
func (s *Service) RemoveDependency(ctx context.Context, actorID, blockingID, blockedID string) (err error) {
	ctx, end := s.begin(ctx, "RemoveDependency",
		attribute.String(clog.ActorIDKey, actorID),
		attribute.String("blocking_id", blockingID),
		attribute.String("blocked_id", blockedID),
	)
	defer func() { end(err) }()

	if err := validateRequest(dependencyRequest{BlockingID: blockingID, BlockedID: blockedID}); err != nil {
		return err
	}
	projectID, err := s.projectOf(ctx, blockedID)
	if err != nil {
		return err
	}
	_, err = s.mutate(ctx, projectID, actorID, func(ctx context.Context, tx store.Tx, rec *event.Recorder) error {
		if _, err := tx.Tasks().Get(ctx, blockingID); err != nil {
			return err
		}
		if err := tx.Graph().RemoveDependencyEdge(ctx, blockingID, blockedID); err != nil {
			return err
		}
		rec.Record(blockedID, event.KindDependencyRemoved, blockingID, "", map[string]string{
			event.MetaBlockingID: blockingID,
			event.MetaBlockedID:  blockedID,
		})
		return nil
	})
	return err
}
