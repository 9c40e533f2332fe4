package badgerstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/taskgraph/internal/event"
	"github.com/kazz187/taskgraph/internal/graph"
	"github.com/kazz187/taskgraph/internal/project"
	"github.com/kazz187/taskgraph/internal/store"
	"github.com/kazz187/taskgraph/internal/task"
	"github.com/kazz187/taskgraph/pkg/cerr"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(InMemoryConfig(), WithLockTimeout(time.Second))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seed(t *testing.T, s *Store, projectID string, tasks ...*task.Task) {
	t.Helper()
	now := time.Now()
	err := s.Update(context.Background(), projectID, func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.Projects().Get(ctx, projectID); cerr.IsKind(err, cerr.KindNotFound) {
			if err := tx.Projects().Create(ctx, &project.Project{ID: projectID, Name: projectID, CreatedAt: now, UpdatedAt: now}); err != nil {
				return err
			}
		}
		for _, tk := range tasks {
			tk.ProjectID = projectID
			if tk.Status == "" {
				tk.Status = task.StatusTodo
			}
			if err := tx.Tasks().Create(ctx, tk); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
}

func TestTaskRepository(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seed(t, s, "p1",
		&task.Task{ID: "P", Title: "parent"},
		&task.Task{ID: "C1", ParentID: "P", Title: "child 1"},
		&task.Task{ID: "C2", ParentID: "P", Title: "child 2"},
	)

	err := s.View(ctx, func(ctx context.Context, tx store.Tx) error {
		got, err := tx.Tasks().Get(ctx, "C1")
		require.NoError(t, err)
		assert.Equal(t, "P", got.ParentID)
		assert.Equal(t, "p1", got.ProjectID)

		children, err := tx.Graph().Children(ctx, "P")
		require.NoError(t, err)
		assert.Equal(t, []string{"C1", "C2"}, children)

		parent, err := tx.Graph().Parent(ctx, "C2")
		require.NoError(t, err)
		assert.Equal(t, "P", parent)

		all, err := tx.Tasks().ListByProject(ctx, "p1")
		require.NoError(t, err)
		assert.Len(t, all, 3)

		_, err = tx.Tasks().Get(ctx, "missing")
		assert.Equal(t, cerr.KindNotFound, cerr.KindOf(err))
		return nil
	})
	require.NoError(t, err)
}

func TestTaskRepository_ParentMustShareProject(t *testing.T) {
	s := newTestStore(t)
	seed(t, s, "p1", &task.Task{ID: "P"})
	seed(t, s, "p2")

	err := s.Update(context.Background(), "p2", func(ctx context.Context, tx store.Tx) error {
		return tx.Tasks().Create(ctx, &task.Task{ID: "X", ProjectID: "p2", ParentID: "P", Status: task.StatusTodo})
	})
	require.Error(t, err)
	assert.Equal(t, cerr.KindConstraintViolation, cerr.KindOf(err))
}

func TestTaskRepository_UpdateMovesChildIndex(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seed(t, s, "p1", &task.Task{ID: "P1"}, &task.Task{ID: "P2"}, &task.Task{ID: "C", ParentID: "P1"})

	err := s.Update(ctx, "p1", func(ctx context.Context, tx store.Tx) error {
		c, err := tx.Tasks().Get(ctx, "C")
		if err != nil {
			return err
		}
		c.ParentID = "P2"
		return tx.Tasks().Update(ctx, c)
	})
	require.NoError(t, err)

	err = s.View(ctx, func(ctx context.Context, tx store.Tx) error {
		c1, err := tx.Graph().Children(ctx, "P1")
		require.NoError(t, err)
		assert.Empty(t, c1)
		c2, err := tx.Graph().Children(ctx, "P2")
		require.NoError(t, err)
		assert.Equal(t, []string{"C"}, c2)
		return nil
	})
	require.NoError(t, err)
}

func TestGraphRepository_Edges(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seed(t, s, "p1", &task.Task{ID: "A"}, &task.Task{ID: "B"}, &task.Task{ID: "C"})
	seed(t, s, "p2", &task.Task{ID: "X"})

	err := s.Update(ctx, "p1", func(ctx context.Context, tx store.Tx) error {
		require.NoError(t, tx.Graph().AddDependencyEdge(ctx, &graph.Edge{BlockingID: "A", BlockedID: "B", ProjectID: "p1"}))
		require.NoError(t, tx.Graph().AddDependencyEdge(ctx, &graph.Edge{BlockingID: "C", BlockedID: "B", ProjectID: "p1"}))

		err := tx.Graph().AddDependencyEdge(ctx, &graph.Edge{BlockingID: "A", BlockedID: "B", ProjectID: "p1"})
		assert.Equal(t, cerr.KindConstraintViolation, cerr.KindOf(err), "duplicate")

		err = tx.Graph().AddDependencyEdge(ctx, &graph.Edge{BlockingID: "X", BlockedID: "B", ProjectID: "p1"})
		assert.Equal(t, cerr.KindConstraintViolation, cerr.KindOf(err), "cross project")

		err = tx.Graph().RemoveDependencyEdge(ctx, "B", "A")
		assert.Equal(t, cerr.KindNotFound, cerr.KindOf(err))
		return nil
	})
	require.NoError(t, err)

	err = s.View(ctx, func(ctx context.Context, tx store.Tx) error {
		blockers, err := tx.Graph().Blockers(ctx, "B")
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "C"}, blockers)

		blocked, err := tx.Graph().Blocked(ctx, "A")
		require.NoError(t, err)
		assert.Equal(t, []string{"B"}, blocked)

		edges, err := tx.Graph().ListByProject(ctx, "p1")
		require.NoError(t, err)
		assert.Len(t, edges, 2)
		return nil
	})
	require.NoError(t, err)
}

func TestGraphRepository_RemoveEdgesOf(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seed(t, s, "p1", &task.Task{ID: "A"}, &task.Task{ID: "B"}, &task.Task{ID: "C"})

	err := s.Update(ctx, "p1", func(ctx context.Context, tx store.Tx) error {
		if err := tx.Graph().AddDependencyEdge(ctx, &graph.Edge{BlockingID: "A", BlockedID: "B", ProjectID: "p1"}); err != nil {
			return err
		}
		return tx.Graph().AddDependencyEdge(ctx, &graph.Edge{BlockingID: "B", BlockedID: "C", ProjectID: "p1"})
	})
	require.NoError(t, err)

	err = s.Update(ctx, "p1", func(ctx context.Context, tx store.Tx) error {
		removed, err := tx.Graph().RemoveEdgesOf(ctx, "B")
		require.NoError(t, err)
		assert.Len(t, removed, 2)
		return nil
	})
	require.NoError(t, err)

	err = s.View(ctx, func(ctx context.Context, tx store.Tx) error {
		blocked, err := tx.Graph().Blocked(ctx, "A")
		require.NoError(t, err)
		assert.Empty(t, blocked)
		blockers, err := tx.Graph().Blockers(ctx, "C")
		require.NoError(t, err)
		assert.Empty(t, blockers)
		return nil
	})
	require.NoError(t, err)
}

func TestEventRepository_Order(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seed(t, s, "p1", &task.Task{ID: "A"})

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	first := event.NewRecorder("p1", "alice", base)
	first.Record("A", event.KindDependencyAdded, "", "X", nil)
	first.Record("A", event.KindStatusChange, "todo", "in_progress", nil)
	second := event.NewRecorder("p1", "", base.Add(time.Second))
	second.Record("A", event.KindCommentAdded, "", "", map[string]string{event.MetaBody: "hi"})

	err := s.Update(ctx, "p1", func(ctx context.Context, tx store.Tx) error {
		// Appended out of order on purpose.
		if err := tx.Events().Append(ctx, second.Events()...); err != nil {
			return err
		}
		return tx.Events().Append(ctx, first.Events()...)
	})
	require.NoError(t, err)

	err = s.View(ctx, func(ctx context.Context, tx store.Tx) error {
		events, err := tx.Events().ListByTask(ctx, "A", event.Filter{})
		require.NoError(t, err)
		require.Len(t, events, 3)
		assert.Equal(t, event.KindDependencyAdded, events[0].Kind)
		assert.Equal(t, event.KindStatusChange, events[1].Kind)
		assert.Equal(t, event.KindCommentAdded, events[2].Kind)
		assert.True(t, events[2].IsSystem())
		assert.Equal(t, events[0].OperationID, events[1].OperationID)

		only, err := tx.Events().ListByTask(ctx, "A", event.Filter{Kinds: []event.Kind{event.KindCommentAdded}})
		require.NoError(t, err)
		assert.Len(t, only, 1)

		limited, err := tx.Events().ListByTask(ctx, "A", event.Filter{Limit: 2})
		require.NoError(t, err)
		assert.Len(t, limited, 2)
		return nil
	})
	require.NoError(t, err)

	err = s.Update(ctx, "p1", func(ctx context.Context, tx store.Tx) error {
		return tx.Events().Append(ctx, first.Events()[0])
	})
	assert.Equal(t, cerr.KindConstraintViolation, cerr.KindOf(err))
}

func TestStore_UpdateRollsBackOnError(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seed(t, s, "p1")

	boom := errors.New("boom")
	err := s.Update(ctx, "p1", func(ctx context.Context, tx store.Tx) error {
		if err := tx.Tasks().Create(ctx, &task.Task{ID: "A", ProjectID: "p1", Status: task.StatusTodo}); err != nil {
			return err
		}
		return cerr.WrapKind(cerr.KindConstraintViolation, "abort", boom)
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	err = s.View(ctx, func(ctx context.Context, tx store.Tx) error {
		_, err := tx.Tasks().Get(ctx, "A")
		assert.Equal(t, cerr.KindNotFound, cerr.KindOf(err))
		return nil
	})
	require.NoError(t, err)
}

func TestStore_UnknownErrorsBecomeInternal(t *testing.T) {
	s := newTestStore(t)
	err := s.Update(context.Background(), "p1", func(ctx context.Context, tx store.Tx) error {
		return errors.New("disk on fire")
	})
	assert.Equal(t, cerr.KindInternal, cerr.KindOf(err))
}

func TestStore_CanceledContextIsUnavailable(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := s.Update(ctx, "p1", func(ctx context.Context, tx store.Tx) error {
		return nil
	})
	assert.Equal(t, cerr.KindUnavailable, cerr.KindOf(err))
}
