package graph

import (
	"context"
	"errors"
	"fmt"

	"github.com/kazz187/taskgraph/internal/task"
	"github.com/kazz187/taskgraph/pkg/cerr"
)

// Validation is the outcome of a successful ValidateDependency call.
type Validation struct {
	// Visited is the number of nodes expanded by the cycle search.
	Visited int
}

// ValidateDependency decides whether the edge blocking -> blocked may be added
// to the graph described by r. Both tasks must already exist. Checks run in a
// fixed order and the first failure is returned:
//
//  1. SelfDependency
//  2. CrossProjectDependency
//  3. ParentSubtaskDeadlock (blocking is an ancestor or descendant of blocked)
//  4. CircularDependency (blocked already reaches blocking in the combined graph)
//
// Uniqueness is not checked here.
func ValidateDependency(ctx context.Context, r Reader, blocking, blocked *task.Task) (Validation, error) {
	fields := edgeFields(blocking.ID, blocked.ID)
	if blocking.ID == blocked.ID {
		return Validation{}, cerr.NewKindError(cerr.KindSelfDependency, "a task cannot depend on itself", fields)
	}
	if blocking.ProjectID != blocked.ProjectID {
		fields["blocking_project_id"] = blocking.ProjectID
		fields["blocked_project_id"] = blocked.ProjectID
		return Validation{}, cerr.NewKindError(cerr.KindCrossProjectDependency, "dependencies must stay within one project", fields)
	}

	if err := checkParentChain(ctx, r, blocking.ID, blocked.ID, fields); err != nil {
		return Validation{}, err
	}

	res, err := Search(ctx, r, blocked.ID, blocking.ID)
	if err != nil {
		return Validation{}, traversalError(err)
	}
	if res.Found {
		fields["path"] = cerr.JoinIDs(res.Path)
		return Validation{Visited: res.Visited}, cerr.NewKindError(cerr.KindCircularDependency,
			fmt.Sprintf("%s already depends on %s", blocking.ID, blocked.ID), fields)
	}
	return Validation{Visited: res.Visited}, nil
}

func checkParentChain(ctx context.Context, r Reader, blockingID, blockedID string, fields map[string]string) error {
	up, err := IsAncestor(ctx, r, blockingID, blockedID)
	if err != nil {
		return traversalError(err)
	}
	if up {
		fields["ancestor_id"] = blockingID
		return cerr.NewKindError(cerr.KindParentSubtaskDeadlock, "a parent task cannot block its own subtask", fields)
	}
	down, err := IsAncestor(ctx, r, blockedID, blockingID)
	if err != nil {
		return traversalError(err)
	}
	if down {
		fields["ancestor_id"] = blockedID
		return cerr.NewKindError(cerr.KindParentSubtaskDeadlock, "a subtask cannot block its own parent", fields)
	}
	return nil
}

func traversalError(err error) error {
	if cerr.KindOf(err) != "" {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return cerr.UnavailableError("graph traversal interrupted", err)
	}
	return cerr.WrapKind(cerr.KindInternal, "failed to traverse task graph", err)
}

func edgeFields(blockingID, blockedID string) map[string]string {
	return map[string]string{
		"blocking_id": blockingID,
		"blocked_id":  blockedID,
	}
}
