package badgerstore

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v4"

	"github.com/kazz187/taskgraph/internal/graph"
	"github.com/kazz187/taskgraph/pkg/cerr"
)

type graphRepository struct {
	txn   *badger.Txn
	tasks *taskRepository
}

var _ graph.Repository = (*graphRepository)(nil)

func edgeFields(blockingID, blockedID string) map[string]string {
	return map[string]string{"blocking_id": blockingID, "blocked_id": blockedID}
}

func (r *graphRepository) AddDependencyEdge(ctx context.Context, e *graph.Edge) error {
	if e.BlockingID == e.BlockedID {
		return cerr.NewKindError(cerr.KindConstraintViolation, "dependency endpoints must differ", edgeFields(e.BlockingID, e.BlockedID))
	}
	blocking, err := r.tasks.Get(ctx, e.BlockingID)
	if err != nil {
		return err
	}
	blocked, err := r.tasks.Get(ctx, e.BlockedID)
	if err != nil {
		return err
	}
	if blocking.ProjectID != e.ProjectID || blocked.ProjectID != e.ProjectID {
		return cerr.NewKindError(cerr.KindConstraintViolation, "dependency endpoints must belong to the edge's project", edgeFields(e.BlockingID, e.BlockedID))
	}
	ok, err := exists(r.txn, depOutKey(e.BlockingID, e.BlockedID))
	if err != nil {
		return readError("dependency", e.BlockingID, err)
	}
	if ok {
		return cerr.NewKindError(cerr.KindConstraintViolation, "dependency already exists", edgeFields(e.BlockingID, e.BlockedID))
	}

	if err := setYAML(r.txn, depOutKey(e.BlockingID, e.BlockedID), e); err != nil {
		return writeError("dependency", err)
	}
	if err := setIndex(r.txn, depInKey(e.BlockedID, e.BlockingID)); err != nil {
		return writeError("dependency index", err)
	}
	return nil
}

func (r *graphRepository) RemoveDependencyEdge(_ context.Context, blockingID, blockedID string) error {
	ok, err := exists(r.txn, depOutKey(blockingID, blockedID))
	if err != nil {
		return readError("dependency", blockingID, err)
	}
	if !ok {
		return cerr.NewKindError(cerr.KindNotFound, "dependency not found", edgeFields(blockingID, blockedID))
	}
	if err := deleteKeys(r.txn, [][]byte{depOutKey(blockingID, blockedID), depInKey(blockedID, blockingID)}); err != nil {
		return writeError("dependency", err)
	}
	return nil
}

func (r *graphRepository) HasDependencyEdge(_ context.Context, blockingID, blockedID string) (bool, error) {
	ok, err := exists(r.txn, depOutKey(blockingID, blockedID))
	if err != nil {
		return false, readError("dependency", blockingID, err)
	}
	return ok, nil
}

func (r *graphRepository) GetDependencyEdge(_ context.Context, blockingID, blockedID string) (*graph.Edge, error) {
	var e graph.Edge
	if err := getYAML(r.txn, depOutKey(blockingID, blockedID), &e); err != nil {
		if errors.Is(err, errNotFound) {
			return nil, cerr.NewKindError(cerr.KindNotFound, "dependency not found", edgeFields(blockingID, blockedID))
		}
		return nil, readError("dependency", blockingID, err)
	}
	return &e, nil
}

func (r *graphRepository) Blockers(_ context.Context, taskID string) ([]string, error) {
	ids, err := scanSuffixes(r.txn, depInPrefixOf(taskID))
	if err != nil {
		return nil, readError("dependencies", taskID, err)
	}
	return ids, nil
}

func (r *graphRepository) Blocked(_ context.Context, taskID string) ([]string, error) {
	ids, err := scanSuffixes(r.txn, depOutPrefixOf(taskID))
	if err != nil {
		return nil, readError("dependencies", taskID, err)
	}
	return ids, nil
}

func (r *graphRepository) Parent(ctx context.Context, taskID string) (string, error) {
	t, err := r.tasks.Get(ctx, taskID)
	if err != nil {
		return "", err
	}
	return t.ParentID, nil
}

func (r *graphRepository) Children(_ context.Context, taskID string) ([]string, error) {
	ids, err := scanSuffixes(r.txn, childrenPrefix(taskID))
	if err != nil {
		return nil, readError("subtasks", taskID, err)
	}
	return ids, nil
}

func (r *graphRepository) RemoveEdgesOf(ctx context.Context, taskID string) ([]*graph.Edge, error) {
	blocked, err := r.Blocked(ctx, taskID)
	if err != nil {
		return nil, err
	}
	blockers, err := r.Blockers(ctx, taskID)
	if err != nil {
		return nil, err
	}

	var removed []*graph.Edge
	remove := func(blockingID, blockedID string) error {
		e, err := r.GetDependencyEdge(ctx, blockingID, blockedID)
		if err != nil {
			return err
		}
		if err := r.RemoveDependencyEdge(ctx, blockingID, blockedID); err != nil {
			return err
		}
		removed = append(removed, e)
		return nil
	}
	for _, id := range blocked {
		if err := remove(taskID, id); err != nil {
			return nil, err
		}
	}
	for _, id := range blockers {
		if err := remove(id, taskID); err != nil {
			return nil, err
		}
	}
	return removed, nil
}

func (r *graphRepository) ListByProject(ctx context.Context, projectID string) ([]*graph.Edge, error) {
	ids, err := scanSuffixes(r.txn, projectTasksPrefix(projectID))
	if err != nil {
		return nil, readError("tasks", projectID, err)
	}
	var out []*graph.Edge
	for _, id := range ids {
		edges, err := scanValues[graph.Edge](r.txn, depOutPrefixOf(id))
		if err != nil {
			return nil, readError("dependencies", id, err)
		}
		out = append(out, edges...)
	}
	return out, nil
}
